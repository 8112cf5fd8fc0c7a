package steppal

import (
	"math"
	"time"
)

// CategorizeMood maps mood points to a mood category.
func CategorizeMood(points float64) Mood {
	for _, t := range moodThresholds {
		if points >= t.min {
			return t.mood
		}
	}
	return MoodNeglected
}

func clampVital(v float64) float64 {
	return math.Max(MinVital, math.Min(MaxVital, v))
}

// VitalsModel updates mood, hunger, energy, happiness and health.
type VitalsModel struct{}

// ApplyActivity applies the effect of walking the steps. Activity counts as attention, so it also
// refreshes the last care time.
func (VitalsModel) ApplyActivity(pet *PetState, steps int64, now time.Time) {
	if steps <= 0 {
		return
	}
	s := float64(steps)
	pet.Energy = clampVital(pet.Energy - s/StepsPerEnergyPoint)
	pet.Hunger = clampVital(pet.Hunger - s/StepsPerHungerPoint)
	pet.MoodPoints = clampVital(pet.MoodPoints + math.Min(MaxMoodBoostPerDelta, s/StepsPerMoodPoint))
	pet.Mood = CategorizeMood(pet.MoodPoints)
	pet.LastCareTimeSec = now.Unix()
}

// ApplyCare applies the effect of a care action. Costs are settled by the caller.
func (VitalsModel) ApplyCare(pet *PetState, action CareAction, now time.Time) error {
	ts := now.Unix()
	switch action {
	case CareActionFeed:
		pet.Hunger = clampVital(pet.Hunger + 30)
		pet.Happiness = clampVital(pet.Happiness + 10)
		pet.MoodPoints = clampVital(pet.MoodPoints + 15)
		pet.LastFedTimeSec = ts
	case CareActionPlay:
		pet.Happiness = clampVital(pet.Happiness + 25)
		pet.Energy = clampVital(pet.Energy - 10)
		pet.MoodPoints = clampVital(pet.MoodPoints + 20)
		pet.LastPlayedTimeSec = ts
	case CareActionHeal:
		pet.Health = MaxVital
		pet.MoodPoints = clampVital(pet.MoodPoints + 10)
	case CareActionBoost:
		pet.Hunger = MaxVital
		pet.Energy = MaxVital
		pet.Happiness = MaxVital
		pet.Health = MaxVital
		pet.MoodPoints = MaxVital
	default:
		return ErrInvalidCareAction
	}
	pet.Mood = CategorizeMood(pet.MoodPoints)
	pet.LastCareTimeSec = ts
	return nil
}

// Decay applies hourly neglect since the later of the last care and the last decay. Only whole hours
// are consumed and the decay reference advances by exactly those hours, so repeated ticks never count
// an hour twice. It returns false when the pet was left untouched.
func (VitalsModel) Decay(pet *PetState, now time.Time) bool {
	if !pet.Hatched {
		return false
	}
	ref := max(pet.LastCareTimeSec, pet.LastDecayTimeSec)
	if ref == 0 {
		pet.LastDecayTimeSec = now.Unix()
		return true
	}
	hours := (now.Unix() - ref) / int64(time.Hour/time.Second)
	if hours <= 0 {
		return false
	}
	h := float64(hours)
	pet.MoodPoints = clampVital(pet.MoodPoints - math.Min(MaxMoodDecayPerEvent, h*MoodDecayPerHour))
	pet.Hunger = clampVital(pet.Hunger - math.Min(MaxHungerDecayPerEvent, h*HungerDecayPerHour))
	pet.Energy = clampVital(pet.Energy - math.Min(MaxEnergyDecayPerEvent, h*EnergyDecayPerHour))
	pet.Mood = CategorizeMood(pet.MoodPoints)
	pet.LastDecayTimeSec = ref + hours*int64(time.Hour/time.Second)
	return true
}
