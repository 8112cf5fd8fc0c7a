package steppal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
)

var _ StepEngineSystem = &StepEngine{}

// StepEngine implements the StepEngineSystem on top of any GameStateStore.
type StepEngine struct {
	config *StepEngineConfig
	store  GameStateStore
	cal    *Calendar
	locks  *userLocks

	days         *DayBoundaryResolver
	mining       *MiningLedger
	progression  ProgressionCalculator
	evolution    EvolutionStateMachine
	vitals       VitalsModel
	challenges   *ChallengeTracker
	achievements *AchievementTracker

	publishersMu sync.RWMutex
	publishers   []Publisher
}

// NewStepEngine validates the configuration and creates the engine. Unset configuration fields take their defaults.
func NewStepEngine(config *StepEngineConfig, store GameStateStore) (*StepEngine, error) {
	if config == nil {
		config = DefaultStepEngineConfig()
	}
	config.applyDefaults()

	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", config.Timezone, err)
	}
	cal := NewCalendar(loc)

	challenges, err := NewChallengeTracker(cal, config.Challenges)
	if err != nil {
		return nil, err
	}
	achievements, err := NewAchievementTracker(cal, config.Achievements)
	if err != nil {
		return nil, err
	}

	return &StepEngine{
		config:       config,
		store:        store,
		cal:          cal,
		locks:        newUserLocks(),
		days:         NewDayBoundaryResolver(cal),
		mining:       NewMiningLedger(cal),
		challenges:   challenges,
		achievements: achievements,
	}, nil
}

func (e *StepEngine) GetType() SystemType {
	return SystemTypeStepEngine
}

func (e *StepEngine) GetConfig() any {
	return e.config
}

// Calendar returns the reference calendar of the engine.
func (e *StepEngine) Calendar() *Calendar {
	return e.cal
}

func (e *StepEngine) AddPublisher(publisher Publisher) {
	e.publishersMu.Lock()
	e.publishers = append(e.publishers, publisher)
	e.publishersMu.Unlock()
}

func (e *StepEngine) Initialize(ctx context.Context, logger runtime.Logger, userID, petName string, petType PetType, now time.Time) (*GameState, error) {
	if !petType.Valid() {
		return nil, ErrInvalidPetType
	}
	petName = strings.TrimSpace(petName)
	if petName == "" {
		return nil, ErrBadInput
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	_, err := e.store.Load(ctx, logger, userID)
	switch {
	case err == nil:
		return nil, ErrGameAlreadyInitialized
	case !errors.Is(err, ErrGameStateNotFound):
		logger.Error("Failed to load game state for user %s: %v", userID, err)
		return nil, err
	}

	state := e.newGameState(userID, petName, petType, now)
	e.challenges.Refresh(state, now)
	events := e.achievements.Evaluate(state, now)

	if err := e.store.Save(ctx, logger, userID, state); err != nil {
		logger.Error("Failed to save game state for user %s: %v", userID, err)
		return nil, err
	}
	logger.Info("Initialized game state for user %s with %s %q", userID, petType, petName)
	e.publish(ctx, logger, userID, events)
	return state, nil
}

func (e *StepEngine) newGameState(userID, petName string, petType PetType, now time.Time) *GameState {
	ts := now.Unix()
	return &GameState{
		UserId: userID,
		Pet: &PetState{
			Name:                  petName,
			Type:                  petType,
			Stage:                 StageEgg,
			ExperienceToNextLevel: ExperienceRequirement(0),
			MiningEfficiency:      StageEgg.MiningEfficiency(),
			MoodPoints:            InitialMoodPoints,
			Mood:                  CategorizeMood(InitialMoodPoints),
			Hunger:                InitialHunger,
			Energy:                InitialEnergy,
			Happiness:             InitialHappiness,
			Health:                InitialHealth,
			LastCareTimeSec:       ts,
		},
		Stats: &UserStats{
			DailyGoal:  e.config.DefaultDailyGoal,
			WeeklyGoal: e.config.DefaultWeeklyGoal,
		},
		Coins:         &CoinLedger{},
		Challenges:    make(map[string]*Challenge),
		Achievements:  make(map[string]*Achievement),
		Initialized:   true,
		CreateTimeSec: ts,
		UpdateTimeSec: ts,
	}
}

func (e *StepEngine) Get(ctx context.Context, logger runtime.Logger, userID string, now time.Time) (*GameState, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	state, err := e.load(ctx, logger, userID)
	if err != nil {
		return nil, err
	}

	events, changed := e.challenges.Refresh(state, now)
	events = append(events, e.achievements.Evaluate(state, now)...)
	if !changed && len(events) == 0 {
		return state, nil
	}
	if err := e.save(ctx, logger, userID, state, now); err != nil {
		return nil, err
	}
	e.publish(ctx, logger, userID, events)
	return state, nil
}

func (e *StepEngine) ApplyStepDelta(ctx context.Context, logger runtime.Logger, userID string, requestedSteps int64, now time.Time) (*GameState, []*Event, error) {
	return e.mutate(ctx, logger, userID, now, func(state *GameState) ([]*Event, bool, error) {
		if requestedSteps <= 0 {
			return nil, false, nil
		}
		if requestedSteps > e.config.MaxStepsPerSubmission {
			logger.Warn("Clamping step submission of %d for user %s", requestedSteps, userID)
			requestedSteps = e.config.MaxStepsPerSubmission
		}

		pet, stats := state.Pet, state.Stats

		stepsToday := stats.StepsToday
		if e.days.IsNewDay(stats, now) {
			stepsToday = 0
		}
		steps := min(requestedSteps, max(0, e.config.DailyStepCap-stepsToday))
		if steps <= 0 {
			logger.Debug("Daily step cap reached for user %s", userID)
			stats.LastCreditedSteps = 0
			return nil, false, nil
		}

		pet.EvolutionAnimation = false
		e.days.Resolve(stats, now)

		stats.StepsToday += steps
		stats.LastCreditedSteps = steps
		stats.StepsThisWeek += steps
		stats.StepsThisMonth += steps
		pet.LifetimeSteps += steps

		// Coins are mined at the stage the steps were walked in.
		stage := pet.Stage
		events := e.progression.AddSteps(pet, steps, now)
		e.mining.Accrue(state.Coins, steps, stage, now)
		if event := e.evolution.Evolve(pet, now); event != nil {
			events = append(events, event)
		}
		e.vitals.ApplyActivity(pet, steps, now)

		return events, true, nil
	})
}

func (e *StepEngine) ClaimPendingCoins(ctx context.Context, logger runtime.Logger, userID string, now time.Time) (int64, *GameState, []*Event, error) {
	var claimed int64
	state, events, err := e.mutate(ctx, logger, userID, now, func(state *GameState) ([]*Event, bool, error) {
		claimed = e.mining.Claim(state.Coins, now)
		if claimed == 0 {
			return nil, false, nil
		}
		state.Pet.EvolutionAnimation = false
		return nil, true, nil
	})
	if err != nil {
		return 0, nil, nil, err
	}
	return claimed, state, events, nil
}

func (e *StepEngine) ApplyCareAction(ctx context.Context, logger runtime.Logger, userID string, action CareAction, now time.Time) (*GameState, []*Event, error) {
	cost, ok := action.Cost()
	if !ok {
		return nil, nil, ErrInvalidCareAction
	}
	return e.mutate(ctx, logger, userID, now, func(state *GameState) ([]*Event, bool, error) {
		if err := e.mining.Spend(state.Coins, cost); err != nil {
			return nil, false, err
		}
		state.Pet.EvolutionAnimation = false
		if err := e.vitals.ApplyCare(state.Pet, action, now); err != nil {
			return nil, false, err
		}

		if action == CareActionFeed || action == CareActionPlay {
			stats := state.Stats
			today := e.cal.Date(now)
			if stats.LastCareDate != today {
				stats.CareActionsToday = 0
				stats.LastCareDate = today
			}
			stats.CareActionsToday++
		}
		return nil, true, nil
	})
}

func (e *StepEngine) HatchEgg(ctx context.Context, logger runtime.Logger, userID string, now time.Time) (*GameState, []*Event, error) {
	return e.mutate(ctx, logger, userID, now, func(state *GameState) ([]*Event, bool, error) {
		pet := state.Pet
		pet.EvolutionAnimation = false
		event, err := e.evolution.Hatch(pet, now)
		if err != nil {
			return nil, false, err
		}
		// Decay is measured from the moment the pet hatched.
		pet.LastCareTimeSec = now.Unix()
		pet.LastDecayTimeSec = 0

		events := []*Event{event}
		events = append(events, e.progression.LevelUp(pet, now)...)
		return events, true, nil
	})
}

func (e *StepEngine) ClaimChallenge(ctx context.Context, logger runtime.Logger, userID, challengeID string, now time.Time) (*GameState, []*Event, error) {
	return e.mutate(ctx, logger, userID, now, func(state *GameState) ([]*Event, bool, error) {
		challenge, err := e.challenges.Claim(state, challengeID, now)
		if err != nil {
			return nil, false, err
		}
		state.Pet.EvolutionAnimation = false
		e.mining.Credit(state.Coins, challenge.Reward)
		logger.Info("User %s claimed challenge %s for %d coins", userID, challenge.DefinitionId, challenge.Reward)
		return nil, true, nil
	})
}

func (e *StepEngine) UpdateDailyGoal(ctx context.Context, logger runtime.Logger, userID string, goal int64, now time.Time) (*GameState, error) {
	if goal <= 0 || goal > e.config.DailyStepCap {
		return nil, ErrInvalidDailyGoal
	}
	state, _, err := e.mutate(ctx, logger, userID, now, func(state *GameState) ([]*Event, bool, error) {
		if state.Stats.DailyGoal == goal {
			return nil, false, nil
		}
		state.Stats.DailyGoal = goal
		return nil, true, nil
	})
	return state, err
}

func (e *StepEngine) TickVitalsDecay(ctx context.Context, logger runtime.Logger, userID string, now time.Time) (*GameState, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	state, err := e.load(ctx, logger, userID)
	if err != nil {
		return nil, err
	}
	if !e.vitals.Decay(state.Pet, now) {
		return state, nil
	}
	if err := e.save(ctx, logger, userID, state, now); err != nil {
		return nil, err
	}
	return state, nil
}

// mutate runs fn as one atomic operation on the state of the user. When fn reports a change the trackers
// are refreshed, the state is saved and all events are published. Nothing is saved when fn fails or
// reports no change.
func (e *StepEngine) mutate(ctx context.Context, logger runtime.Logger, userID string, now time.Time, fn func(state *GameState) ([]*Event, bool, error)) (*GameState, []*Event, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	state, err := e.load(ctx, logger, userID)
	if err != nil {
		return nil, nil, err
	}

	events, changed, err := fn(state)
	if err != nil {
		return nil, nil, err
	}
	if !changed {
		return state, nil, nil
	}

	challengeEvents, _ := e.challenges.Refresh(state, now)
	events = append(events, challengeEvents...)
	events = append(events, e.achievements.Evaluate(state, now)...)

	if err := e.save(ctx, logger, userID, state, now); err != nil {
		return nil, nil, err
	}
	e.publish(ctx, logger, userID, events)
	return state, events, nil
}

func (e *StepEngine) load(ctx context.Context, logger runtime.Logger, userID string) (*GameState, error) {
	state, err := e.store.Load(ctx, logger, userID)
	if err != nil {
		if !errors.Is(err, ErrGameStateNotFound) {
			logger.Error("Failed to load game state for user %s: %v", userID, err)
		}
		return nil, err
	}
	if !state.Initialized || state.Pet == nil || state.Stats == nil || state.Coins == nil {
		return nil, ErrGameStateNotFound
	}
	return state, nil
}

func (e *StepEngine) save(ctx context.Context, logger runtime.Logger, userID string, state *GameState, now time.Time) error {
	state.UpdateTimeSec = now.Unix()
	if err := e.store.Save(ctx, logger, userID, state); err != nil {
		logger.Error("Failed to save game state for user %s: %v", userID, err)
		return err
	}
	return nil
}

func (e *StepEngine) publish(ctx context.Context, logger runtime.Logger, userID string, events []*Event) {
	if len(events) == 0 {
		return
	}
	e.publishersMu.RLock()
	publishers := e.publishers
	e.publishersMu.RUnlock()
	for _, publisher := range publishers {
		publisher.Send(ctx, logger, userID, events)
	}
}
