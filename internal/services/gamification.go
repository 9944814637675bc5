package services

import (
	"context"
	"time"

	"unitap-backend-go/internal/models"
)

// Point values per action. First arrival stacks on top of the attendance base.
const (
	pointsAttendance   = 10
	pointsFirstArrival = 25
	pointsEventCheckin = 15
	pointsCheckout     = 5
)

const (
	BadgeEarlyBird   = "early_bird"
	BadgeStreak3     = "streak_3"
	BadgeStreak7     = "streak_7"
	BadgeStreak30    = "streak_30"
	BadgeCentury     = "century"
	BadgeSocietyStar = "society_star"
	BadgeTop10       = "top_10"
)

// BadgeMeta drives frontend badge rendering.
var BadgeMeta = map[string]map[string]string{
	BadgeEarlyBird:   {"label": "Early Bird", "color": "warning"},
	BadgeStreak3:     {"label": "3-Day Streak", "color": "success"},
	BadgeStreak7:     {"label": "Week Warrior", "color": "orange"},
	BadgeStreak30:    {"label": "Month Master", "color": "error"},
	BadgeCentury:     {"label": "100+ XP", "color": "blue"},
	BadgeSocietyStar: {"label": "Society Star", "color": "success"},
	BadgeTop10:       {"label": "Top 10", "color": "warning"},
}

const societyStarThreshold = 5

// applyGamification awards points, recomputes the streak and grants badges
// for one processed tap. user is the pre-tap snapshot; commutative updates
// (increments, badge inserts) go through atomic store operations, only the
// streak-day comparison is read-modify-write.
func (e *TapEngine) applyGamification(ctx context.Context, user *models.User, action Action, firstArrival bool, now time.Time) error {
	held, err := e.Store.UserBadges(ctx, user.ID)
	if err != nil {
		return err
	}
	heldSet := make(map[string]bool, len(held))
	for _, badge := range held {
		heldSet[badge] = true
	}

	points := 0
	var badges []string

	switch action {
	case ActionAttendance:
		points = pointsAttendance

		if firstArrival {
			points += pointsFirstArrival
			if !heldSet[BadgeEarlyBird] {
				badges = append(badges, BadgeEarlyBird)
			}
		}

		// Streak advances at most once per UTC calendar day.
		today := dateOnly(now)
		if user.LastAttendanceDate == nil || !dateOnly(*user.LastAttendanceDate).Equal(today) {
			newStreak := 1
			if user.LastAttendanceDate != nil && dateOnly(*user.LastAttendanceDate).Equal(today.AddDate(0, 0, -1)) {
				newStreak = user.CurrentStreak + 1
			}
			best := user.BestStreak
			if newStreak > best {
				best = newStreak
			}
			if err := e.Store.SetUserStreak(ctx, user.ID, newStreak, best, now); err != nil {
				return err
			}
			if newStreak >= 3 && !heldSet[BadgeStreak3] {
				badges = append(badges, BadgeStreak3)
				points += 20
			}
			if newStreak >= 7 && !heldSet[BadgeStreak7] {
				badges = append(badges, BadgeStreak7)
				points += 50
			}
			if newStreak >= 30 && !heldSet[BadgeStreak30] {
				badges = append(badges, BadgeStreak30)
				points += 200
			}
		}

	case ActionEventCheckin:
		points = pointsEventCheckin
		checkins, err := e.Store.CountUserEventCheckins(ctx, user.ID)
		if err != nil {
			return err
		}
		if checkins >= societyStarThreshold && !heldSet[BadgeSocietyStar] {
			badges = append(badges, BadgeSocietyStar)
		}

	case ActionEquipmentCheckout:
		points = pointsCheckout

	case ActionEquipmentReturn:
		// Returns earn nothing.
	}

	if points > 0 {
		if err := e.Store.IncrementUserPoints(ctx, user.ID, points); err != nil {
			return err
		}
	}
	if firstArrival && action == ActionAttendance {
		if err := e.Store.IncrementUserFirstArrivals(ctx, user.ID); err != nil {
			return err
		}
	}
	if len(badges) > 0 {
		if err := e.Store.GrantBadges(ctx, user.ID, badges); err != nil {
			return err
		}
	}

	if points > 0 {
		return e.applyMilestoneBadges(ctx, user.ID)
	}
	return nil
}

// applyMilestoneBadges re-reads the user's fresh total and grants the
// century and top_10 badges once their thresholds are crossed.
func (e *TapEngine) applyMilestoneBadges(ctx context.Context, userID string) error {
	refreshed, err := e.Store.FindUserByID(ctx, userID)
	if err != nil || refreshed == nil {
		return err
	}
	held, err := e.Store.UserBadges(ctx, userID)
	if err != nil {
		return err
	}
	heldSet := make(map[string]bool, len(held))
	for _, badge := range held {
		heldSet[badge] = true
	}

	var grants []string
	if refreshed.Points >= 100 && !heldSet[BadgeCentury] {
		grants = append(grants, BadgeCentury)
	}
	ahead, err := e.Store.CountUsersWithMorePoints(ctx, refreshed.Points)
	if err != nil {
		return err
	}
	if ahead+1 <= 10 && !heldSet[BadgeTop10] {
		grants = append(grants, BadgeTop10)
	}
	if len(grants) > 0 {
		return e.Store.GrantBadges(ctx, userID, grants)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
