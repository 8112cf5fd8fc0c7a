package steppal

import (
	"time"
)

// Metric names a value derived from a game state that challenges and achievements track.
type Metric string

const (
	MetricStepsToday       Metric = "steps_today"
	MetricStepsThisWeek    Metric = "steps_this_week"
	MetricLifetimeSteps    Metric = "lifetime_steps"
	MetricStreak           Metric = "streak"
	MetricLevel            Metric = "level"
	MetricTotalEarned      Metric = "total_earned"
	MetricHatched          Metric = "hatched"
	MetricStageReached     Metric = "stage_reached"
	MetricCareActionsToday Metric = "care_actions_today"
	// MetricDailyGoalPercent is today's steps as a percentage of the user's own daily goal.
	MetricDailyGoalPercent Metric = "daily_goal_percent"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricStepsToday, MetricStepsThisWeek, MetricLifetimeSteps, MetricStreak, MetricLevel,
		MetricTotalEarned, MetricHatched, MetricStageReached, MetricCareActionsToday, MetricDailyGoalPercent:
		return true
	}
	return false
}

// metricValue computes the current value of a metric. Counters scoped to a day or week read zero when
// the stored values belong to an earlier period than now. The stage argument is only used by
// MetricStageReached, which reads 1 once the pet has reached that stage.
func metricValue(cal *Calendar, state *GameState, metric Metric, stage Stage, now time.Time) int64 {
	pet, stats, coins := state.Pet, state.Stats, state.Coins

	switch metric {
	case MetricStepsToday:
		if stats == nil || stats.LastUpdateDate != cal.Date(now) {
			return 0
		}
		return stats.StepsToday
	case MetricDailyGoalPercent:
		if stats == nil || stats.DailyGoal <= 0 || stats.LastUpdateDate != cal.Date(now) {
			return 0
		}
		return stats.StepsToday * 100 / stats.DailyGoal
	case MetricStepsThisWeek:
		if stats == nil || stats.LastUpdateDate == "" || cal.IsNewWeek(stats.LastUpdateDate, now) {
			return 0
		}
		return stats.StepsThisWeek
	case MetricLifetimeSteps:
		if pet == nil {
			return 0
		}
		return pet.LifetimeSteps
	case MetricStreak:
		if stats == nil || stats.LastUpdateDate == "" {
			return 0
		}
		// A streak is still alive the day after the last update.
		if days, err := cal.DaysBetween(stats.LastUpdateDate, now); err != nil || days > 1 {
			return 0
		}
		return stats.Streak
	case MetricLevel:
		if pet == nil {
			return 0
		}
		return int64(pet.Level)
	case MetricTotalEarned:
		if coins == nil {
			return 0
		}
		return coins.TotalEarned
	case MetricHatched:
		if pet != nil && pet.Hatched {
			return 1
		}
		return 0
	case MetricStageReached:
		if pet != nil && pet.Stage >= stage {
			return 1
		}
		return 0
	case MetricCareActionsToday:
		if stats == nil || stats.LastCareDate != cal.Date(now) {
			return 0
		}
		return stats.CareActionsToday
	}
	return 0
}
