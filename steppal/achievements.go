package steppal

import (
	"fmt"
	"sort"
	"time"
)

// AchievementDefinition describes a permanent milestone.
type AchievementDefinition struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Metric      Metric `json:"metric,omitempty"`
	Target      int64  `json:"target,omitempty"`
	// Stage is the stage to reach for the stage_reached metric.
	Stage    Stage `json:"stage,omitempty"`
	Disabled bool  `json:"disabled,omitempty"`
}

func defaultAchievementDefinitions() map[string]*AchievementDefinition {
	return map[string]*AchievementDefinition{
		"first_steps":      {Name: "First Steps", Description: "Take your first 100 steps", Metric: MetricLifetimeSteps, Target: 100},
		"walker":           {Name: "Daily Walker", Description: "Reach 5,000 steps in a day", Metric: MetricStepsToday, Target: 5000},
		"runner":           {Name: "Runner", Description: "Reach 10,000 steps in a day", Metric: MetricStepsToday, Target: 10000},
		"marathon":         {Name: "Marathon", Description: "Walk 42,000 steps total", Metric: MetricLifetimeSteps, Target: 42000},
		"streak_3":         {Name: "Consistent", Description: "Maintain a 3-day streak", Metric: MetricStreak, Target: 3},
		"streak_7":         {Name: "Week Warrior", Description: "Maintain a 7-day streak", Metric: MetricStreak, Target: 7},
		"streak_30":        {Name: "Monthly Master", Description: "Maintain a 30-day streak", Metric: MetricStreak, Target: 30},
		"hatch":            {Name: "New Beginning", Description: "Hatch your first egg", Metric: MetricHatched, Target: 1},
		"evolve_child":     {Name: "Growing Up", Description: "Evolve to Child stage", Metric: MetricStageReached, Target: 1, Stage: StageChild},
		"evolve_adult":     {Name: "Full Grown", Description: "Evolve to Adult stage", Metric: MetricStageReached, Target: 1, Stage: StageAdult},
		"evolve_legendary": {Name: "Legendary", Description: "Reach Legendary status", Metric: MetricStageReached, Target: 1, Stage: StageLegendary},
		"coins_100":        {Name: "Penny Saver", Description: "Earn 100 StepCoins", Metric: MetricTotalEarned, Target: 100},
		"coins_1000":       {Name: "Coin Collector", Description: "Earn 1,000 StepCoins", Metric: MetricTotalEarned, Target: 1000},
		"coins_10000":      {Name: "Wealthy", Description: "Earn 10,000 StepCoins", Metric: MetricTotalEarned, Target: 10000},
		"level_10":         {Name: "Rising Star", Description: "Reach level 10", Metric: MetricLevel, Target: 10},
		"level_25":         {Name: "Dedicated", Description: "Reach level 25", Metric: MetricLevel, Target: 25},
		"level_50":         {Name: "Expert", Description: "Reach level 50", Metric: MetricLevel, Target: 50},
	}
}

// AchievementTracker keeps achievement progress and unlocks each achievement once.
type AchievementTracker struct {
	cal         *Calendar
	definitions map[string]*AchievementDefinition
	ids         []string
}

func NewAchievementTracker(cal *Calendar, definitions map[string]*AchievementDefinition) (*AchievementTracker, error) {
	t := &AchievementTracker{
		cal:         cal,
		definitions: definitions,
		ids:         make([]string, 0, len(definitions)),
	}
	for id, def := range definitions {
		if def == nil {
			return nil, fmt.Errorf("achievement %q: empty definition", id)
		}
		if !def.Metric.Valid() {
			return nil, fmt.Errorf("achievement %q: unknown metric %q", id, def.Metric)
		}
		if def.Target <= 0 {
			return nil, fmt.Errorf("achievement %q: target must be positive", id)
		}
		t.ids = append(t.ids, id)
	}
	sort.Strings(t.ids)
	return t, nil
}

// Evaluate raises progress to the current metric values and unlocks achievements that reached their
// target. Progress never decreases.
func (t *AchievementTracker) Evaluate(state *GameState, now time.Time) []*Event {
	if state.Achievements == nil {
		state.Achievements = make(map[string]*Achievement, len(t.ids))
	}
	ts := now.Unix()

	var events []*Event
	for _, id := range t.ids {
		def := t.definitions[id]
		if def.Disabled {
			continue
		}
		a, ok := state.Achievements[id]
		if !ok {
			a = &Achievement{
				DefinitionId: id,
				Name:         def.Name,
				Description:  def.Description,
				Target:       def.Target,
			}
			state.Achievements[id] = a
		}
		if a.Unlocked() {
			continue
		}
		a.Progress = max(a.Progress, metricValue(t.cal, state, def.Metric, def.Stage, now))
		if a.Progress >= a.Target {
			a.UnlockTimeSec = ts
			events = append(events, &Event{
				Type:    EventTypeAchievementUnlocked,
				Id:      id,
				TimeSec: ts,
			})
		}
	}
	return events
}
