package api

import "context"

func (c *Client) Achievements(ctx context.Context) (*Achievements, error) {
	var out Achievements
	if err := c.get(ctx, "/gamification/achievements", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAchievements asks the backend to award any newly earned badges.
func (c *Client) CheckAchievements(ctx context.Context) (*AchievementCheck, error) {
	var out AchievementCheck
	if err := c.post(ctx, "/gamification/check-achievements", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
