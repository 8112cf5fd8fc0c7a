package steppal

import (
	"fmt"
)

// Stage is one position in the fixed evolution sequence. Stages are ordered.
type Stage int32

const (
	StageEgg Stage = iota
	StageBaby
	StageChild
	StageTeen
	StageAdult
	StageElder
	StageLegendary
)

var stageNames = [...]string{"egg", "baby", "child", "teen", "adult", "elder", "legendary"}

func (s Stage) String() string {
	if s < StageEgg || s > StageLegendary {
		return fmt.Sprintf("stage(%d)", int32(s))
	}
	return stageNames[s]
}

func (s Stage) MarshalText() ([]byte, error) {
	if s < StageEgg || s > StageLegendary {
		return nil, fmt.Errorf("invalid stage %d", int32(s))
	}
	return []byte(stageNames[s]), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	stage, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = stage
	return nil
}

// ParseStage returns the stage with the given lowercase name.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return StageEgg, fmt.Errorf("unknown stage %q", name)
}

// EvolutionRequirement is the minimum level and lifetime steps needed to enter a stage.
type EvolutionRequirement struct {
	Level         int32
	LifetimeSteps int64
}

// evolutionRequirements is indexed by the stage being entered.
var evolutionRequirements = [...]EvolutionRequirement{
	StageEgg:       {Level: 0, LifetimeSteps: 0},
	StageBaby:      {Level: 1, LifetimeSteps: 500},
	StageChild:     {Level: 5, LifetimeSteps: 5000},
	StageTeen:      {Level: 15, LifetimeSteps: 25000},
	StageAdult:     {Level: 30, LifetimeSteps: 100000},
	StageElder:     {Level: 50, LifetimeSteps: 500000},
	StageLegendary: {Level: 75, LifetimeSteps: 1000000},
}

var miningEfficiencies = [...]float64{
	StageEgg:       0,
	StageBaby:      1.0,
	StageChild:     1.5,
	StageTeen:      2.0,
	StageAdult:     3.0,
	StageElder:     4.0,
	StageLegendary: 6.0,
}

// Requirement returns the requirement for entering the stage.
func (s Stage) Requirement() EvolutionRequirement {
	if s < StageEgg || s > StageLegendary {
		return EvolutionRequirement{}
	}
	return evolutionRequirements[s]
}

// MiningEfficiency is the coin multiplier of the stage.
func (s Stage) MiningEfficiency() float64 {
	if s < StageEgg || s > StageLegendary {
		return 0
	}
	return miningEfficiencies[s]
}

// Mood is the category derived from mood points.
type Mood string

const (
	MoodEcstatic  Mood = "ecstatic"
	MoodHappy     Mood = "happy"
	MoodContent   Mood = "content"
	MoodNeutral   Mood = "neutral"
	MoodSad       Mood = "sad"
	MoodNeglected Mood = "neglected"
)

// moodThresholds is ordered from the highest threshold down.
var moodThresholds = []struct {
	mood Mood
	min  float64
}{
	{MoodEcstatic, 90},
	{MoodHappy, 70},
	{MoodContent, 50},
	{MoodNeutral, 30},
	{MoodSad, 15},
}

// PetType is the cosmetic species picked at initialization.
type PetType string

const (
	PetTypePhoenix PetType = "phoenix"
	PetTypeDragon  PetType = "dragon"
	PetTypeSpirit  PetType = "spirit"
	PetTypeNature  PetType = "nature"
)

func (t PetType) Valid() bool {
	switch t {
	case PetTypePhoenix, PetTypeDragon, PetTypeSpirit, PetTypeNature:
		return true
	}
	return false
}

// CareAction is a paid interaction that replenishes vitals.
type CareAction string

const (
	CareActionFeed  CareAction = "feed"
	CareActionPlay  CareAction = "play"
	CareActionHeal  CareAction = "heal"
	CareActionBoost CareAction = "boost"
)

var careCosts = map[CareAction]int64{
	CareActionFeed:  5,
	CareActionPlay:  3,
	CareActionHeal:  10,
	CareActionBoost: 15,
}

// Cost returns the coin cost of the action and whether the action exists.
func (a CareAction) Cost() (int64, bool) {
	cost, ok := careCosts[a]
	return cost, ok
}

const (
	// DefaultDailyStepCap bounds the steps credited per calendar day.
	DefaultDailyStepCap int64 = 30000
	// DefaultMaxStepsPerSubmission bounds a single submission at the RPC boundary.
	DefaultMaxStepsPerSubmission int64 = 30000
	DefaultDailyGoal             int64 = 8000
	DefaultWeeklyGoal            int64 = 50000

	StepsPerExperience     = 10
	BaseCoinsPer1000Steps  = 10.0
	StreakGoalFraction     = 0.5
	DailyHistoryLimit      = 30
	WeeklyHistoryLimit     = 12
	MiningHistoryLimit     = 30
	MaxVital               = 100.0
	MinVital               = 0.0
	InitialMoodPoints      = 50.0
	InitialHunger          = 80.0
	InitialEnergy          = 80.0
	InitialHappiness       = 70.0
	InitialHealth          = 100.0
	StepsPerEnergyPoint    = 2000.0
	StepsPerHungerPoint    = 3000.0
	StepsPerMoodPoint      = 200.0
	MaxMoodBoostPerDelta   = 30.0
	MoodDecayPerHour       = 2.0
	HungerDecayPerHour     = 3.0
	EnergyDecayPerHour     = 2.0
	MaxMoodDecayPerEvent   = 50.0
	MaxHungerDecayPerEvent = 30.0
	MaxEnergyDecayPerEvent = 20.0
)
