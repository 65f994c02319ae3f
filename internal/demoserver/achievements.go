package demoserver

import (
	"net/http"
	"time"

	"github.com/abhisek/threatlab/internal/api"
)

// xpPerLevel is the experience needed for each level.
const xpPerLevel = 500

var badgeCatalog = []api.Badge{
	{BadgeID: "first_steps", Name: "First Steps", Description: "Complete your first threat modeling scenario", Icon: "🎯", Tier: "bronze"},
	{BadgeID: "high_scorer", Name: "High Scorer", Description: "Achieve a score of 90 or higher", Icon: "🏆", Tier: "silver"},
	{BadgeID: "consistent_performer", Name: "Consistent Performer", Description: "Maintain good scores across 5 scenarios", Icon: "📈", Tier: "silver"},
	{BadgeID: "security_expert", Name: "Security Expert", Description: "Consistently high security scores", Icon: "🔒", Tier: "gold"},
	{BadgeID: "perfectionist", Name: "Perfectionist", Description: "Achieve a perfect score of 100", Icon: "💯", Tier: "platinum"},
}

func badgeByID(id string) api.Badge {
	for _, b := range badgeCatalog {
		if b.BadgeID == id {
			return b
		}
	}
	return api.Badge{BadgeID: id, Name: id}
}

// badgeCriteria reports whether scores earn a badge, and the progress
// towards it.
func badgeCriteria(id string, scores []*api.Score) (bool, api.BadgeProgress) {
	var best, bestSecurity float64
	var high, secure int
	for _, sc := range scores {
		best = max(best, sc.Scores.TotalScore)
		bestSecurity = max(bestSecurity, sc.Scores.SecurityScore)
		if sc.Scores.TotalScore >= 90 {
			high++
		}
		if sc.Scores.SecurityScore >= 85 {
			secure++
		}
	}

	progress := func(cur, target float64) api.BadgeProgress {
		return api.BadgeProgress{Current: cur, Target: target, Percentage: min(100, cur/target*100)}
	}

	switch id {
	case "first_steps":
		return len(scores) >= 1, progress(float64(len(scores)), 1)
	case "high_scorer":
		return high >= 1, progress(best, 90)
	case "consistent_performer":
		n := 0
		if len(scores) >= 5 {
			n = 5
			for _, sc := range scores[len(scores)-5:] {
				if sc.Scores.TotalScore < passingScore {
					n--
				}
			}
		}
		return n == 5, progress(float64(min(len(scores), 5)), 5)
	case "security_expert":
		return secure >= 3, progress(float64(secure), 3)
	case "perfectionist":
		return best >= 100, progress(best, 100)
	}
	return false, api.BadgeProgress{}
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	scores := s.state.userScores(uid)
	earnedAt := map[string]time.Time{}
	for _, a := range s.state.awards[uid] {
		earnedAt[a.badgeID] = a.earnedAt
	}

	sum := api.AchievementSummary{TotalBadges: len(badgeCatalog)}
	for _, b := range badgeCatalog {
		if at, ok := earnedAt[b.BadgeID]; ok {
			t := api.NewTime(at)
			b.Earned = true
			b.EarnedAt = &t
			sum.EarnedBadges++
		} else {
			_, p := badgeCriteria(b.BadgeID, scores)
			b.Progress = &p
		}
		sum.Badges = append(sum.Badges, b)
	}
	sum.CompletionPercentage = float64(sum.EarnedBadges) / float64(sum.TotalBadges) * 100

	xp := sum.EarnedBadges * 100
	for _, sc := range scores {
		xp += int(sc.Scores.TotalScore)
	}
	sum.ExperiencePoints = xp
	sum.UserLevel = api.UserLevel{
		CurrentLevel:       xp/xpPerLevel + 1,
		ExperiencePoints:   xp,
		ProgressPercentage: float64(xp%xpPerLevel) / xpPerLevel * 100,
	}

	writeJSON(w, http.StatusOK, api.Achievements{
		UserID:       uid,
		Achievements: sum,
		LastUpdated:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	scores := s.state.userScores(uid)
	now := time.Now().UTC()
	out := api.AchievementCheck{UserID: uid, NewAchievements: []api.NewAchievement{}}
	for _, b := range badgeCatalog {
		if s.state.hasAward(uid, b.BadgeID) {
			continue
		}
		if earned, _ := badgeCriteria(b.BadgeID, scores); !earned {
			continue
		}
		s.state.awards[uid] = append(s.state.awards[uid], award{badgeID: b.BadgeID, name: b.Name, earnedAt: now})
		u := &s.state.accounts[uid].user
		u.Progress.Badges = append(u.Progress.Badges, b.BadgeID)
		out.NewAchievements = append(out.NewAchievements, api.NewAchievement{BadgeID: b.BadgeID, Name: b.Name})
	}
	out.TotalNew = len(out.NewAchievements)
	out.CheckedAt = now.Format(time.RFC3339)
	writeJSON(w, http.StatusOK, out)
}
