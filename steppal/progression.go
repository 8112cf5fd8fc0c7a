package steppal

import (
	"math"
	"math/big"
	"time"
)

var (
	requirementBase = big.NewInt(100)
	growthNum       = big.NewInt(23)
	growthDen       = big.NewInt(20)
	maxInt64        = big.NewInt(math.MaxInt64)
)

// ExperienceRequirement returns the experience needed to advance from the given level, floor(100 * 1.15^level).
// It is computed with exact integer arithmetic so floating point rounding can never shift a threshold.
func ExperienceRequirement(level int32) int64 {
	if level <= 0 {
		return requirementBase.Int64()
	}
	l := big.NewInt(int64(level))
	num := new(big.Int).Exp(growthNum, l, nil)
	num.Mul(num, requirementBase)
	den := new(big.Int).Exp(growthDen, l, nil)
	num.Quo(num, den)
	if num.Cmp(maxInt64) > 0 {
		return math.MaxInt64
	}
	return num.Int64()
}

// ExperienceForSteps converts steps into experience points.
func ExperienceForSteps(steps int64) int64 {
	if steps <= 0 {
		return 0
	}
	return steps / StepsPerExperience
}

// ProgressionCalculator converts steps into experience and levels.
type ProgressionCalculator struct{}

// AddSteps credits the experience for the steps and runs the level loop when the pet is hatched. Unhatched
// pets bank their experience until hatching. One level up event is produced per level gained.
func (ProgressionCalculator) AddSteps(pet *PetState, steps int64, now time.Time) []*Event {
	pet.Experience += ExperienceForSteps(steps)
	return ProgressionCalculator{}.LevelUp(pet, now)
}

// LevelUp consumes banked experience for as many levels as it covers.
func (ProgressionCalculator) LevelUp(pet *PetState, now time.Time) []*Event {
	var events []*Event
	if pet.Hatched {
		for {
			requirement := ExperienceRequirement(pet.Level)
			if pet.Experience < requirement {
				break
			}
			pet.Experience -= requirement
			pet.Level++
			events = append(events, &Event{
				Type:    EventTypeLevelUp,
				Level:   pet.Level,
				TimeSec: now.Unix(),
			})
		}
	}
	pet.ExperienceToNextLevel = ExperienceRequirement(pet.Level)
	return events
}
