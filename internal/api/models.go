package api

import (
	"encoding/json"
	"fmt"
)

// NodeType is the kind of component a diagram node represents.
type NodeType string

const (
	NodeServer       NodeType = "server"
	NodeDatabase     NodeType = "database"
	NodeFrontend     NodeType = "frontend"
	NodeAPI          NodeType = "api"
	NodeSecurity     NodeType = "security"
	NodeNetwork      NodeType = "network"
	NodeStorage      NodeType = "storage"
	NodeExternal     NodeType = "external"
	NodeUser         NodeType = "user"
	NodeLoadBalancer NodeType = "loadbalancer"
	NodeCache        NodeType = "cache"
	NodeQueue        NodeType = "queue"
)

// NodeTypes lists every node type in palette order.
var NodeTypes = []NodeType{
	NodeServer, NodeDatabase, NodeFrontend, NodeAPI, NodeSecurity, NodeNetwork,
	NodeStorage, NodeExternal, NodeUser, NodeLoadBalancer, NodeCache, NodeQueue,
}

// Valid reports whether t is one of NodeTypes.
func (t NodeType) Valid() bool {
	for _, nt := range NodeTypes {
		if nt == t {
			return true
		}
	}
	return false
}

// DefaultEdgeType is the edge type the backend assumes when none is given.
const DefaultEdgeType = "default"

// Well-known keys of the node and edge data bags.
const (
	DataLabel     = "label"
	DataProtocol  = "protocol"
	DataEncrypted = "encrypted"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// Label returns the node's display label, falling back to its id.
func (n Node) Label() string {
	if s, ok := n.Data[DataLabel].(string); ok && s != "" {
		return s
	}
	return n.ID
}

type Edge struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Type   string         `json:"type"`
	Data   map[string]any `json:"data"`
}

// Protocol returns the edge's protocol, or "".
func (e Edge) Protocol() string {
	s, _ := e.Data[DataProtocol].(string)
	return s
}

// Encrypted reports the edge's encryption flag.
func (e Edge) Encrypted() bool {
	b, _ := e.Data[DataEncrypted].(bool)
	return b
}

type DiagramData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type TrustBoundary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Nodes       []string `json:"nodes"`
}

type DataFlow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SourceNode  string `json:"source_node"`
	TargetNode  string `json:"target_node"`
	DataType    string `json:"data_type"`
	Encryption  bool   `json:"encryption"`
	Protocol    string `json:"protocol,omitempty"`
}

type SecurityControl struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	AppliedTo   []string `json:"applied_to"`
}

type DiagramMetadata struct {
	TrustBoundaries  []TrustBoundary   `json:"trust_boundaries"`
	DataFlows        []DataFlow        `json:"data_flows"`
	SecurityControls []SecurityControl `json:"security_controls"`
}

// Diagram statuses.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusReviewed  = "reviewed"
)

type Diagram struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ScenarioID  string          `json:"scenario_id,omitempty"`
	Title       string          `json:"title"`
	DiagramData DiagramData     `json:"diagram_data"`
	Metadata    DiagramMetadata `json:"metadata"`
	Status      string          `json:"status"`
	CreatedAt   Time            `json:"created_at"`
	UpdatedAt   Time            `json:"updated_at"`
	Version     int             `json:"version"`
}

func (d *Diagram) UnmarshalJSON(b []byte) error {
	type plain Diagram
	if err := json.Unmarshal(b, (*plain)(d)); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = mongoID(b)
	}
	return nil
}

type DiagramCreate struct {
	Title       string          `json:"title"`
	ScenarioID  string          `json:"scenario_id,omitempty"`
	DiagramData DiagramData     `json:"diagram_data"`
	Metadata    DiagramMetadata `json:"metadata"`
}

// DiagramUpdate is a partial update; nil fields are left unchanged.
type DiagramUpdate struct {
	Title       *string          `json:"title,omitempty"`
	DiagramData *DiagramData     `json:"diagram_data,omitempty"`
	Metadata    *DiagramMetadata `json:"metadata,omitempty"`
}

// Finding categories.
type Category string

const (
	CategorySecurity     Category = "security"
	CategoryArchitecture Category = "architecture"
	CategoryPerformance  Category = "performance"
	CategoryCompleteness Category = "completeness"
	CategoryOther        Category = "other"
)

// Finding severities.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

type ValidationResult struct {
	RuleID      string   `json:"rule_id"`
	RuleName    string   `json:"rule_name"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	ElementID   string   `json:"element_id,omitempty"`
	ElementType string   `json:"element_type,omitempty"`
	Category    Category `json:"category"`
}

type ValidationResponse struct {
	DiagramID         string             `json:"diagram_id"`
	ValidationResults []ValidationResult `json:"validation_results"`
	// Timestamp is informational and not always a valid time.
	Timestamp string `json:"timestamp"`
}

type ScoreBreakdown struct {
	SecurityScore     float64 `json:"security_score"`
	ArchitectureScore float64 `json:"architecture_score"`
	PerformanceScore  float64 `json:"performance_score"`
	CompletenessScore float64 `json:"completeness_score"`
	TotalScore        float64 `json:"total_score"`
}

type FeedbackReport struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
	NextSteps       []string `json:"next_steps"`
}

type Score struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	ScenarioID        string             `json:"scenario_id"`
	DiagramID         string             `json:"diagram_id"`
	Scores            ScoreBreakdown     `json:"scores"`
	TimeSpent         int                `json:"time_spent"`
	SubmissionTime    Time               `json:"submission_time"`
	ValidationResults []ValidationResult `json:"validation_results"`
	Feedback          *FeedbackReport    `json:"feedback"`
}

func (s *Score) UnmarshalJSON(b []byte) error {
	type plain Score
	if err := json.Unmarshal(b, (*plain)(s)); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = mongoID(b)
	}
	return nil
}

type ValidationSummary struct {
	TotalIssues int `json:"total_issues"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	Info        int `json:"info"`
}

type DetailedAnalysis struct {
	ScoreBreakdown     ScoreBreakdown    `json:"score_breakdown"`
	ValidationSummary  ValidationSummary `json:"validation_summary"`
	PerformanceMetrics struct {
		TimeSpentMinutes int    `json:"time_spent_minutes"`
		EfficiencyRating string `json:"efficiency_rating"`
	} `json:"performance_metrics"`
}

type DetailedFeedback struct {
	Score                  Score            `json:"score"`
	DetailedAnalysis       DetailedAnalysis `json:"detailed_analysis"`
	ImprovementSuggestions []string         `json:"improvement_suggestions"`
}

type LeaderboardEntry struct {
	UserID             string  `json:"user_id"`
	UserName           string  `json:"user_name"`
	TotalScore         float64 `json:"total_score"`
	ScenariosCompleted int     `json:"scenarios_completed"`
	AverageScore       float64 `json:"average_score"`
	Rank               int     `json:"rank"`
}

type UserStats struct {
	TotalScenarios     int      `json:"total_scenarios"`
	CompletedScenarios int      `json:"completed_scenarios"`
	AverageScore       float64  `json:"average_score"`
	BestScore          float64  `json:"best_score"`
	TotalTimeSpent     int      `json:"total_time_spent"`
	CurrentStreak      int      `json:"current_streak"`
	BadgesEarned       []string `json:"badges_earned"`
}

type UserProfile struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

type UserPreferences struct {
	Theme         string `json:"theme"`
	Notifications bool   `json:"notifications"`
}

type UserProgress struct {
	Level              int      `json:"level"`
	ExperiencePoints   int      `json:"experience_points"`
	CompletedScenarios []string `json:"completed_scenarios"`
	Badges             []string `json:"badges"`
}

type User struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Profile     UserProfile     `json:"profile"`
	Role        string          `json:"role"`
	CreatedAt   Time            `json:"created_at"`
	LastLogin   *Time           `json:"last_login,omitempty"`
	Preferences UserPreferences `json:"preferences"`
	Progress    UserProgress    `json:"progress"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	if err := json.Unmarshal(b, (*plain)(u)); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = mongoID(b)
	}
	return nil
}

// DisplayName returns "First Last", falling back to the email.
func (u User) DisplayName() string {
	name := u.Profile.FirstName
	if u.Profile.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.Profile.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type AuthResponse struct {
	Message     string `json:"message"`
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type VerifyResponse struct {
	Valid bool `json:"valid"`
	User  User `json:"user"`
}

// ProfileUpdate is a partial profile update; nil fields are not sent.
type ProfileUpdate struct {
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	Bio           *string `json:"bio,omitempty"`
	Theme         *string `json:"theme,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
}

type ScenarioRequirements struct {
	BusinessContext      string   `json:"business_context"`
	TechnicalConstraints []string `json:"technical_constraints"`
	RequiredElements     []string `json:"required_elements"`
}

type ScoringCriteria struct {
	SecurityWeight     float64 `json:"security_weight"`
	ArchitectureWeight float64 `json:"architecture_weight"`
	PerformanceWeight  float64 `json:"performance_weight"`
	CompletenessWeight float64 `json:"completeness_weight"`
}

type ReferenceArchitecture struct {
	Name        string         `json:"name"`
	DiagramData map[string]any `json:"diagram_data"`
	ScoreWeight float64        `json:"score_weight"`
}

type Scenario struct {
	ID                     string                  `json:"id,omitempty"`
	Title                  string                  `json:"title"`
	Description            string                  `json:"description"`
	Category               string                  `json:"category"`
	Difficulty             string                  `json:"difficulty"`
	Tags                   []string                `json:"tags"`
	Requirements           ScenarioRequirements    `json:"requirements"`
	ReferenceArchitectures []ReferenceArchitecture `json:"reference_architectures,omitempty"`
	ScoringCriteria        ScoringCriteria         `json:"scoring_criteria"`
	MaxPoints              int                     `json:"max_points"`
	// TimeLimit is in minutes; nil means unlimited.
	TimeLimit     *int     `json:"time_limit,omitempty"`
	Prerequisites []string `json:"prerequisites"`
	CreatedAt     Time     `json:"created_at"`
	UpdatedAt     Time     `json:"updated_at"`
	Published     bool     `json:"published"`
}

func (s *Scenario) UnmarshalJSON(b []byte) error {
	type plain Scenario
	if err := json.Unmarshal(b, (*plain)(s)); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = mongoID(b)
	}
	return nil
}

type ScenarioProgress struct {
	ScenarioID    string  `json:"scenario_id"`
	Attempts      int     `json:"attempts"`
	BestScore     float64 `json:"best_score"`
	SavedDiagrams int     `json:"saved_diagrams"`
	Completed     bool    `json:"completed"`
	LastAttempt   *Time   `json:"last_attempt"`
}

type LearningPath struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Difficulty     string   `json:"difficulty"`
	Scenarios      []string `json:"scenarios"`
	EstimatedHours float64  `json:"estimated_hours"`
	Active         bool     `json:"active"`
}

func (p *LearningPath) UnmarshalJSON(b []byte) error {
	type plain LearningPath
	if err := json.Unmarshal(b, (*plain)(p)); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = mongoID(b)
	}
	return nil
}

type PathProgress struct {
	PathID               string  `json:"path_id"`
	PathName             string  `json:"path_name"`
	CompletionPercentage float64 `json:"completion_percentage"`
	CurrentModule        int     `json:"current_module"`
	LastActivity         *Time   `json:"last_activity"`
}

type LearningProgress struct {
	EnrolledPaths   int            `json:"enrolled_paths"`
	ActivePaths     []PathProgress `json:"active_paths"`
	CompletedPaths  []PathProgress `json:"completed_paths"`
	OverallProgress float64        `json:"overall_progress"`
}

type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty,omitempty"`
	Reason      string `json:"reason"`
}

type EarnedAchievement struct {
	BadgeID     string `json:"badge_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	EarnedAt    *Time  `json:"earned_at,omitempty"`
}

// LearningAchievements is the /learning/achievements payload.
type LearningAchievements struct {
	EarnedBadges       []string            `json:"earned_badges"`
	TotalEarned        int                 `json:"total_earned"`
	RecentAchievements []EarnedAchievement `json:"recent_achievements"`
}

type PerformanceOverview struct {
	CurrentLevel     string  `json:"current_level"`
	TotalScenarios   int     `json:"total_scenarios"`
	AverageScore     float64 `json:"average_score"`
	BestScore        float64 `json:"best_score"`
	ImprovementRate  float64 `json:"improvement_rate"`
	PerformanceTrend string  `json:"performance_trend"`
}

type LearningVelocity struct {
	ScenariosPerWeek float64 `json:"scenarios_per_week"`
	VelocityTrend    string  `json:"velocity_trend"`
}

type ImprovementTrend struct {
	EarlyAverage  float64 `json:"early_average"`
	RecentAverage float64 `json:"recent_average"`
	Improvement   float64 `json:"improvement"`
	Trend         string  `json:"trend"`
}

type Analytics struct {
	PerformanceOverview PerformanceOverview         `json:"performance_overview"`
	SkillRadar          map[string]float64          `json:"skill_radar"`
	LearningVelocity    LearningVelocity            `json:"learning_velocity"`
	ImprovementTrends   map[string]ImprovementTrend `json:"improvement_trends"`
}

type Dashboard struct {
	UserID             string    `json:"user_id"`
	AnalysisPeriodDays int       `json:"analysis_period_days"`
	Analytics          Analytics `json:"analytics"`
	GeneratedAt        string    `json:"generated_at"`
}

type TimelinePoint struct {
	Date              string  `json:"date"`
	TotalScore        float64 `json:"total_score"`
	SecurityScore     float64 `json:"security_score"`
	ArchitectureScore float64 `json:"architecture_score"`
	PerformanceScore  float64 `json:"performance_score"`
	CompletenessScore float64 `json:"completeness_score"`
	AttemptNumber     int     `json:"attempt_number"`
	TimeSpentMinutes  float64 `json:"time_spent_minutes"`
}

type Timeline struct {
	UserID        string          `json:"user_id"`
	Timeline      []TimelinePoint `json:"timeline"`
	TotalAttempts int             `json:"total_attempts"`
}

type PerformanceSummary struct {
	TotalAttempts  int                `json:"total_attempts"`
	AverageScore   float64            `json:"average_score"`
	SkillBreakdown map[string]float64 `json:"skill_breakdown"`
}

type Insights struct {
	Insights           []string            `json:"insights"`
	Recommendations    []string            `json:"recommendations"`
	FocusAreas         []string            `json:"focus_areas"`
	NextSteps          []string            `json:"next_steps"`
	PerformanceSummary *PerformanceSummary `json:"performance_summary,omitempty"`
}

type BadgeProgress struct {
	Current    float64 `json:"current"`
	Target     float64 `json:"target"`
	Percentage float64 `json:"percentage"`
}

type Badge struct {
	BadgeID     string         `json:"badge_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Icon        string         `json:"icon"`
	Tier        string         `json:"tier"`
	Earned      bool           `json:"earned"`
	EarnedAt    *Time          `json:"earned_at,omitempty"`
	Progress    *BadgeProgress `json:"progress,omitempty"`
}

type UserLevel struct {
	CurrentLevel       int     `json:"current_level"`
	ExperiencePoints   int     `json:"experience_points"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

type AchievementSummary struct {
	EarnedBadges         int       `json:"earned_badges"`
	TotalBadges          int       `json:"total_badges"`
	CompletionPercentage float64   `json:"completion_percentage"`
	Badges               []Badge   `json:"badges"`
	UserLevel            UserLevel `json:"user_level"`
	ExperiencePoints     int       `json:"experience_points"`
}

// Achievements is the /gamification/achievements payload.
type Achievements struct {
	UserID       string             `json:"user_id"`
	Achievements AchievementSummary `json:"achievements"`
	LastUpdated  string             `json:"last_updated"`
}

type NewAchievement struct {
	BadgeID string `json:"badge_id"`
	Name    string `json:"name"`
}

type AchievementCheck struct {
	UserID          string           `json:"user_id"`
	NewAchievements []NewAchievement `json:"new_achievements"`
	TotalNew        int              `json:"total_new"`
	CheckedAt       string           `json:"checked_at"`
}

// Message is the generic {"message": ...} acknowledgement.
type Message struct {
	Message string `json:"message"`
}

// mongoID returns the "_id" member of a JSON object. The backend serializes
// ids under that alias.
func mongoID(b []byte) string {
	var aux struct {
		ID any `json:"_id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil || aux.ID == nil {
		return ""
	}
	if s, ok := aux.ID.(string); ok {
		return s
	}
	return fmt.Sprint(aux.ID)
}
