package steppal

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	dailyResetCronexpr  = "0 0 * * *"
	weeklyResetCronexpr = "0 0 * * 0"
)

// ChallengeDefinition describes a recurring time-boxed goal.
type ChallengeDefinition struct {
	Type        ChallengeType `json:"type,omitempty"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Metric      Metric        `json:"metric,omitempty"`
	Target      int64         `json:"target,omitempty"`
	Reward      int64         `json:"reward,omitempty"`
	// ResetCronexpr overrides the window of daily and weekly challenges.
	ResetCronexpr string `json:"reset_cronexpr,omitempty"`
	// DurationSec is the lifetime of special challenges.
	DurationSec int64 `json:"duration_sec,omitempty"`
	Disabled    bool  `json:"disabled,omitempty"`
}

func defaultChallengeDefinitions() map[string]*ChallengeDefinition {
	return map[string]*ChallengeDefinition{
		"daily_steps": {
			Type:        ChallengeTypeDaily,
			Title:       "Daily Steps",
			Description: "Walk 5,000 steps today",
			Metric:      MetricStepsToday,
			Target:      5000,
			Reward:      10,
		},
		"daily_target": {
			Type:        ChallengeTypeDaily,
			Title:       "Daily Target",
			Description: "Reach your daily step goal",
			Metric:      MetricDailyGoalPercent,
			Target:      100,
			Reward:      50,
		},
		"daily_care": {
			Type:        ChallengeTypeDaily,
			Title:       "Care for Your Pet",
			Description: "Feed or play with your pet today",
			Metric:      MetricCareActionsToday,
			Target:      1,
			Reward:      15,
		},
		"weekly_marathon": {
			Type:        ChallengeTypeWeekly,
			Title:       "Weekly Marathon",
			Description: "Walk 50,000 steps this week",
			Metric:      MetricStepsThisWeek,
			Target:      DefaultWeeklyGoal,
			Reward:      200,
		},
		"weekly_perfect": {
			Type:        ChallengeTypeWeekly,
			Title:       "Perfect Week",
			Description: "Maintain a 7-day streak",
			Metric:      MetricStreak,
			Target:      7,
			Reward:      150,
		},
		"special_step_master": {
			Type:        ChallengeTypeSpecial,
			Title:       "Step Master",
			Description: "Take 15,000 steps in a single day",
			Metric:      MetricStepsToday,
			Target:      15000,
			Reward:      100,
			DurationSec: 72 * 60 * 60,
		},
	}
}

// ChallengeTracker keeps one active instance of every enabled challenge definition and tracks progress.
type ChallengeTracker struct {
	cal         *Calendar
	definitions map[string]*ChallengeDefinition
	schedules   map[string]cron.Schedule
	ids         []string
}

// NewChallengeTracker validates the definitions and parses their reset schedules.
func NewChallengeTracker(cal *Calendar, definitions map[string]*ChallengeDefinition) (*ChallengeTracker, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	t := &ChallengeTracker{
		cal:         cal,
		definitions: definitions,
		schedules:   make(map[string]cron.Schedule, len(definitions)),
		ids:         make([]string, 0, len(definitions)),
	}
	for id, def := range definitions {
		if def == nil {
			return nil, fmt.Errorf("challenge %q: empty definition", id)
		}
		if !def.Metric.Valid() {
			return nil, fmt.Errorf("challenge %q: unknown metric %q", id, def.Metric)
		}
		if def.Target <= 0 {
			return nil, fmt.Errorf("challenge %q: target must be positive", id)
		}
		switch def.Type {
		case ChallengeTypeDaily, ChallengeTypeWeekly:
			expr := def.ResetCronexpr
			if expr == "" {
				expr = dailyResetCronexpr
				if def.Type == ChallengeTypeWeekly {
					expr = weeklyResetCronexpr
				}
			}
			sched, err := parser.Parse(expr)
			if err != nil {
				return nil, fmt.Errorf("challenge %q: invalid reset cron expression %q: %w", id, expr, err)
			}
			t.schedules[id] = sched
		case ChallengeTypeSpecial:
			if def.DurationSec <= 0 {
				return nil, fmt.Errorf("challenge %q: special challenges need a positive duration", id)
			}
		default:
			return nil, fmt.Errorf("challenge %q: unknown type %q", id, def.Type)
		}
		t.ids = append(t.ids, id)
	}
	sort.Strings(t.ids)
	return t, nil
}

// Refresh drops expired instances, starts a fresh instance of every enabled definition without an active one,
// and recomputes progress from the state. Completion latches and produces one event. The changed result
// reports whether instances were dropped or started.
func (t *ChallengeTracker) Refresh(state *GameState, now time.Time) (events []*Event, changed bool) {
	if state.Challenges == nil {
		state.Challenges = make(map[string]*Challenge)
	}
	ts := now.Unix()

	active := make(map[string]bool, len(state.Challenges))
	for id, c := range state.Challenges {
		if c.ExpireTimeSec > 0 && ts >= c.ExpireTimeSec {
			delete(state.Challenges, id)
			changed = true
			continue
		}
		active[c.DefinitionId] = true
	}

	for _, defID := range t.ids {
		def := t.definitions[defID]
		if def.Disabled || active[defID] {
			continue
		}
		c := &Challenge{
			Id:            uuid.NewString(),
			DefinitionId:  defID,
			Type:          def.Type,
			Title:         def.Title,
			Description:   def.Description,
			Metric:        def.Metric,
			Target:        def.Target,
			Reward:        def.Reward,
			CreateTimeSec: ts,
			ExpireTimeSec: t.expiry(defID, def, now),
		}
		state.Challenges[c.Id] = c
		changed = true
	}

	ids := make([]string, 0, len(state.Challenges))
	for id := range state.Challenges {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := state.Challenges[id]
		c.Current = metricValue(t.cal, state, c.Metric, StageEgg, now)
		if !c.Completed && c.Current >= c.Target {
			c.Completed = true
			events = append(events, &Event{
				Type:    EventTypeChallengeCompleted,
				Id:      c.Id,
				TimeSec: ts,
			})
		}
	}
	return events, changed
}

func (t *ChallengeTracker) expiry(defID string, def *ChallengeDefinition, now time.Time) int64 {
	if def.Type == ChallengeTypeSpecial {
		return now.Unix() + def.DurationSec
	}
	sched, ok := t.schedules[defID]
	if !ok {
		return 0
	}
	return sched.Next(now.In(t.cal.Location())).Unix()
}

// Claim marks a completed challenge as claimed and returns it. Crediting the reward is left to the caller.
func (t *ChallengeTracker) Claim(state *GameState, challengeID string, now time.Time) (*Challenge, error) {
	c, ok := state.Challenges[challengeID]
	if !ok || (c.ExpireTimeSec > 0 && now.Unix() >= c.ExpireTimeSec) {
		return nil, ErrChallengeNotFound
	}
	if c.Claimed {
		return nil, ErrChallengeAlreadyClaimed
	}
	if !c.Completed {
		return nil, ErrChallengeNotCompleted
	}
	c.Claimed = true
	c.ClaimTimeSec = now.Unix()
	return c, nil
}
