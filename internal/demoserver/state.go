package demoserver

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/threatlab/internal/api"
)

type account struct {
	user     api.User
	password string
}

type enrollment struct {
	pathID     string
	enrolledAt time.Time
}

type award struct {
	badgeID  string
	name     string
	earnedAt time.Time
}

// state is the server's in-memory database. Callers hold Server.mu.
type state struct {
	accounts  map[string]*account // by user id
	byEmail   map[string]string   // email -> user id
	tokens    map[string]string   // token -> user id
	scenarios []*api.Scenario
	diagrams  map[string]*api.Diagram
	scores    []*api.Score
	paths     []api.LearningPath
	enrolled  map[string][]enrollment
	awards    map[string][]award
}

func newState() *state {
	st := &state{
		accounts: map[string]*account{},
		byEmail:  map[string]string{},
		tokens:   map[string]string{},
		diagrams: map[string]*api.Diagram{},
		enrolled: map[string][]enrollment{},
		awards:   map[string][]award{},
	}
	now := api.NewTime(time.Now().UTC())
	st.addAccount(DemoEmail, DemoPassword, "Demo", "User")
	for i := range seedScenarios {
		sc := seedScenarios[i]
		sc.CreatedAt, sc.UpdatedAt = now, now
		st.scenarios = append(st.scenarios, &sc)
	}
	st.paths = seedPaths()
	return st
}

func (st *state) addAccount(email, password, first, last string) *account {
	id := uuid.NewString()
	acc := &account{
		user: api.User{
			ID:    id,
			Email: email,
			Profile: api.UserProfile{
				FirstName: first,
				LastName:  last,
			},
			Role:        "student",
			CreatedAt:   api.NewTime(time.Now().UTC()),
			Preferences: api.UserPreferences{Theme: "dark", Notifications: true},
			Progress: api.UserProgress{
				Level:              1,
				CompletedScenarios: []string{},
				Badges:             []string{},
			},
		},
		password: password,
	}
	st.accounts[id] = acc
	st.byEmail[strings.ToLower(email)] = id
	return acc
}

func (st *state) issueToken(userID string) string {
	tok := uuid.NewString()
	st.tokens[tok] = userID
	return tok
}

func (st *state) scenario(id string) *api.Scenario {
	for _, sc := range st.scenarios {
		if sc.ID == id {
			return sc
		}
	}
	return nil
}

func (st *state) userScores(userID string) []*api.Score {
	var out []*api.Score
	for _, sc := range st.scores {
		if sc.UserID == userID {
			out = append(out, sc)
		}
	}
	return out
}

func (st *state) hasAward(userID, badgeID string) bool {
	for _, a := range st.awards[userID] {
		if a.badgeID == badgeID {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }

var seedScenarios = []api.Scenario{
	{
		ID:          "ecommerce-web",
		Title:       "E-commerce Web Application",
		Description: "Design a secure e-commerce platform with user authentication, product catalog, shopping cart, and payment processing. Consider data protection, secure transactions, and scalability.",
		Category:    "web",
		Difficulty:  "beginner",
		Tags:        []string{"authentication", "payment", "data-protection", "web-security"},
		Requirements: api.ScenarioRequirements{
			BusinessContext: "You are designing an online store that sells consumer electronics. The system needs to handle user registration, product browsing, shopping cart functionality, and secure payment processing. The expected user base is 10,000 monthly active users.",
			TechnicalConstraints: []string{
				"Must comply with PCI DSS for payment processing",
				"User data must be encrypted at rest and in transit",
				"System must handle 1000 concurrent users",
				"Must integrate with external payment gateway",
			},
			RequiredElements: []string{
				"Web frontend (React/Angular)",
				"API gateway",
				"Authentication service",
				"Product database",
				"Payment processing service",
				"Load balancer",
			},
		},
		ReferenceArchitectures: []api.ReferenceArchitecture{{
			Name: "Secure E-commerce Architecture",
			DiagramData: map[string]any{
				"nodes": []any{
					map[string]any{"id": "frontend", "type": "frontend", "position": map[string]any{"x": 100, "y": 100}},
					map[string]any{"id": "api", "type": "api", "position": map[string]any{"x": 300, "y": 100}},
					map[string]any{"id": "auth", "type": "security", "position": map[string]any{"x": 500, "y": 50}},
					map[string]any{"id": "db", "type": "database", "position": map[string]any{"x": 500, "y": 150}},
				},
				"edges": []any{
					map[string]any{"id": "e1", "source": "frontend", "target": "api"},
					map[string]any{"id": "e2", "source": "api", "target": "auth"},
					map[string]any{"id": "e3", "source": "api", "target": "db"},
				},
			},
			ScoreWeight: 1.0,
		}},
		ScoringCriteria: api.ScoringCriteria{
			SecurityWeight: 0.4, ArchitectureWeight: 0.3, PerformanceWeight: 0.2, CompletenessWeight: 0.1,
		},
		MaxPoints:     100,
		TimeLimit:     intPtr(45),
		Prerequisites: []string{},
		Published:     true,
	},
	{
		ID:          "microservices-api",
		Title:       "Microservices API Architecture",
		Description: "Design a microservices-based API system with service discovery, load balancing, and inter-service communication. Focus on security between services and data consistency.",
		Category:    "api",
		Difficulty:  "intermediate",
		Tags:        []string{"microservices", "api-security", "service-mesh", "scalability"},
		Requirements: api.ScenarioRequirements{
			BusinessContext: "Design a backend system for a social media platform with user management, content posting, notifications, and messaging services. The system should be highly scalable and maintainable.",
			TechnicalConstraints: []string{
				"Services must communicate securely",
				"Must implement circuit breaker pattern",
				"API rate limiting required",
				"Distributed tracing for monitoring",
			},
			RequiredElements: []string{
				"API Gateway",
				"User Service",
				"Content Service",
				"Notification Service",
				"Message Queue",
				"Service Discovery",
				"Load Balancer",
			},
		},
		ScoringCriteria: api.ScoringCriteria{
			SecurityWeight: 0.35, ArchitectureWeight: 0.4, PerformanceWeight: 0.15, CompletenessWeight: 0.1,
		},
		MaxPoints:     120,
		TimeLimit:     intPtr(60),
		Prerequisites: []string{},
		Published:     true,
	},
	{
		ID:          "cloud-infrastructure",
		Title:       "Cloud Infrastructure Security",
		Description: "Design a secure cloud infrastructure with proper network segmentation, identity management, and data protection. Consider multi-region deployment and disaster recovery.",
		Category:    "cloud",
		Difficulty:  "expert",
		Tags:        []string{"cloud-security", "network-segmentation", "identity-management", "disaster-recovery"},
		Requirements: api.ScenarioRequirements{
			BusinessContext: "Design cloud infrastructure for a financial services company that needs to comply with regulatory requirements while maintaining high availability and performance.",
			TechnicalConstraints: []string{
				"Must comply with SOC 2 and PCI DSS",
				"Multi-region deployment required",
				"Zero-trust network architecture",
				"Automated backup and disaster recovery",
			},
			RequiredElements: []string{
				"Virtual Private Cloud (VPC)",
				"Identity and Access Management (IAM)",
				"Network Security Groups",
				"Load Balancers",
				"Database clusters",
				"Monitoring and logging",
				"Backup systems",
			},
		},
		ScoringCriteria: api.ScoringCriteria{
			SecurityWeight: 0.5, ArchitectureWeight: 0.25, PerformanceWeight: 0.15, CompletenessWeight: 0.1,
		},
		MaxPoints:     150,
		TimeLimit:     intPtr(90),
		Prerequisites: []string{},
		Published:     true,
	},
}

func seedPaths() []api.LearningPath {
	return []api.LearningPath{
		{
			ID:             "security-fundamentals",
			Name:           "Security Fundamentals",
			Description:    "Learn the basics of cybersecurity and threat modeling",
			Category:       "security",
			Difficulty:     "beginner",
			Scenarios:      []string{"ecommerce-web"},
			EstimatedHours: 10,
			Active:         true,
		},
		{
			ID:             "web-application-security",
			Name:           "Web Application Security",
			Description:    "Deep dive into web application security patterns",
			Category:       "web",
			Difficulty:     "intermediate",
			Scenarios:      []string{"ecommerce-web", "microservices-api"},
			EstimatedHours: 15,
			Active:         true,
		},
		{
			ID:             "cloud-security-architecture",
			Name:           "Cloud Security Architecture",
			Description:    "Master cloud security and architecture patterns",
			Category:       "cloud",
			Difficulty:     "expert",
			Scenarios:      []string{"microservices-api", "cloud-infrastructure"},
			EstimatedHours: 20,
			Active:         true,
		},
	}
}
