package steppal

import (
	"time"
)

// EvolutionStateMachine advances a pet through the stage sequence.
type EvolutionStateMachine struct{}

// CanEvolve reports the next stage when the pet currently meets its requirement. Eggs only leave their
// stage by hatching and legendary is terminal.
func (EvolutionStateMachine) CanEvolve(pet *PetState) (Stage, bool) {
	if pet.Stage == StageEgg || pet.Stage >= StageLegendary {
		return pet.Stage, false
	}
	next := pet.Stage + 1
	req := next.Requirement()
	if pet.Level >= req.Level && pet.LifetimeSteps >= req.LifetimeSteps {
		return next, true
	}
	return pet.Stage, false
}

// Evolve advances at most one stage per call, even if the pet qualifies for several.
func (m EvolutionStateMachine) Evolve(pet *PetState, now time.Time) *Event {
	next, ok := m.CanEvolve(pet)
	if !ok {
		return nil
	}
	return enterStage(pet, next, now)
}

// Hatch moves an egg to the baby stage.
func (EvolutionStateMachine) Hatch(pet *PetState, now time.Time) (*Event, error) {
	if pet.Stage != StageEgg {
		return nil, ErrInvalidTransition
	}
	pet.Hatched = true
	return enterStage(pet, StageBaby, now), nil
}

func enterStage(pet *PetState, stage Stage, now time.Time) *Event {
	pet.Stage = stage
	pet.MiningEfficiency = stage.MiningEfficiency()
	pet.EvolutionAnimation = true
	return &Event{
		Type:    EventTypeEvolved,
		Stage:   stage,
		TimeSec: now.Unix(),
	}
}
