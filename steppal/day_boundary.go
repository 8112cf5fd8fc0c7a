package steppal

import (
	"time"
)

// DayBoundaryResolver applies calendar rollovers to user stats before new steps are credited.
type DayBoundaryResolver struct {
	cal *Calendar
}

func NewDayBoundaryResolver(cal *Calendar) *DayBoundaryResolver {
	return &DayBoundaryResolver{cal: cal}
}

// IsNewDay reports whether now falls on a later calendar day than the last update.
func (r *DayBoundaryResolver) IsNewDay(stats *UserStats, now time.Time) bool {
	if stats.LastUpdateDate == "" {
		return false
	}
	days, err := r.cal.DaysBetween(stats.LastUpdateDate, now)
	if err != nil {
		return true
	}
	return days > 0
}

// Resolve updates streaks, rolls per-day, per-week and per-month counters and archives history. It
// returns true when a day rollover happened. Only the given stats are mutated.
func (r *DayBoundaryResolver) Resolve(stats *UserStats, now time.Time) bool {
	today := r.cal.Date(now)

	if stats.LastUpdateDate == "" {
		// First submission ever starts the streak.
		stats.Streak = max(stats.Streak, 1)
		stats.LongestStreak = max(stats.LongestStreak, stats.Streak)
		stats.LastUpdateDate = today
		return false
	}

	days, err := r.cal.DaysBetween(stats.LastUpdateDate, now)
	if err != nil {
		// Unreadable stored date, treat as a broken streak.
		days = 2
	}

	if days <= 0 {
		// Same day, or the clock moved backwards.
		if stats.Streak == 0 {
			stats.Streak = 1
		}
		stats.LongestStreak = max(stats.LongestStreak, stats.Streak)
		return false
	}

	threshold := float64(stats.DailyGoal) * StreakGoalFraction
	if days == 1 && float64(stats.StepsToday) >= threshold {
		stats.Streak++
	} else {
		stats.Streak = 1
	}
	stats.LongestStreak = max(stats.LongestStreak, stats.Streak)

	if stats.StepsToday > 0 {
		stats.DailyHistory = upsertDailyHistory(stats.DailyHistory, stats.LastUpdateDate, stats.StepsToday)
	}
	stats.StepsToday = 0

	if r.cal.IsNewWeek(stats.LastUpdateDate, now) {
		if stats.StepsThisWeek > 0 {
			weekStart := stats.LastUpdateDate
			if last, err := r.cal.ParseDate(stats.LastUpdateDate); err == nil {
				weekStart = r.cal.Date(r.cal.WeekStart(last))
			}
			stats.WeeklyHistory = upsertWeeklyHistory(stats.WeeklyHistory, weekStart, stats.StepsThisWeek)
		}
		stats.StepsThisWeek = 0
	}

	if r.cal.IsNewMonth(stats.LastUpdateDate, now) {
		stats.StepsThisMonth = 0
	}

	stats.LastUpdateDate = today
	return true
}

func upsertDailyHistory(history []*DailyStepEntry, date string, steps int64) []*DailyStepEntry {
	for _, entry := range history {
		if entry.Date == date {
			entry.Steps = steps
			return history
		}
	}
	history = append(history, &DailyStepEntry{Date: date, Steps: steps})
	if len(history) > DailyHistoryLimit {
		history = history[len(history)-DailyHistoryLimit:]
	}
	return history
}

func upsertWeeklyHistory(history []*WeeklyStepEntry, weekStart string, steps int64) []*WeeklyStepEntry {
	for _, entry := range history {
		if entry.WeekStart == weekStart {
			entry.Steps = steps
			return history
		}
	}
	history = append(history, &WeeklyStepEntry{WeekStart: weekStart, Steps: steps})
	if len(history) > WeeklyHistoryLimit {
		history = history[len(history)-WeeklyHistoryLimit:]
	}
	return history
}
