package steppal

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// update rewrites the stored state of the user through the normal versioned path.
func (s *memoryStore) update(t *testing.T, userID string, fn func(state *GameState)) {
	t.Helper()
	state, err := s.Load(context.Background(), &mockLogger{}, userID)
	require.NoError(t, err)
	fn(state)
	require.NoError(t, s.Save(context.Background(), &mockLogger{}, userID, state))
}

func hatchedBaby(level int32, lifetimeSteps int64) func(state *GameState) {
	return func(state *GameState) {
		state.Pet.Stage = StageBaby
		state.Pet.Hatched = true
		state.Pet.Level = level
		state.Pet.LifetimeSteps = lifetimeSteps
		state.Pet.MiningEfficiency = StageBaby.MiningEfficiency()
		state.Pet.ExperienceToNextLevel = ExperienceRequirement(level)
	}
}

func TestNewStepEngine_Config(t *testing.T) {
	engine, err := NewStepEngine(nil, newMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, SystemTypeStepEngine, engine.GetType())
	config := engine.GetConfig().(*StepEngineConfig)
	assert.Equal(t, DefaultDailyStepCap, config.DailyStepCap)
	assert.Len(t, config.Challenges, 6)
	assert.Len(t, config.Achievements, 17)

	engine, err = NewStepEngine(&StepEngineConfig{DailyStepCap: 1000, Timezone: "Europe/Paris"}, newMemoryStore())
	require.NoError(t, err)
	config = engine.GetConfig().(*StepEngineConfig)
	assert.Equal(t, int64(1000), config.DailyStepCap)
	assert.Equal(t, DefaultMaxStepsPerSubmission, config.MaxStepsPerSubmission)
	assert.Equal(t, "Europe/Paris", engine.Calendar().Location().String())

	_, err = NewStepEngine(&StepEngineConfig{Timezone: "Mars/Olympus"}, newMemoryStore())
	assert.Error(t, err)

	_, err = NewStepEngine(&StepEngineConfig{Challenges: map[string]*ChallengeDefinition{
		"broken": {Type: ChallengeTypeDaily, Metric: MetricStepsToday},
	}}, newMemoryStore())
	assert.Error(t, err)
}

func TestStepEngine_Initialize(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	ctx := context.Background()
	now := date(2024, 3, 13, 9, 0)

	state := initUser(t, engine, "user1", now)
	assert.True(t, state.Initialized)
	assert.Equal(t, "user1", state.UserId)
	assert.Equal(t, "Pip", state.Pet.Name)
	assert.Equal(t, PetTypePhoenix, state.Pet.Type)
	assert.Equal(t, StageEgg, state.Pet.Stage)
	assert.False(t, state.Pet.Hatched)
	assert.Equal(t, int32(0), state.Pet.Level)
	assert.Equal(t, int64(100), state.Pet.ExperienceToNextLevel)
	assert.Equal(t, 0.0, state.Pet.MiningEfficiency)
	assert.Equal(t, MoodContent, state.Pet.Mood)
	assert.Equal(t, DefaultDailyGoal, state.Stats.DailyGoal)
	assert.Equal(t, int64(0), state.Coins.Balance)
	assert.Len(t, state.Challenges, 6)
	assert.Len(t, state.Achievements, 17)
	assert.Equal(t, 1, store.saveCount())

	_, err := engine.Initialize(ctx, &mockLogger{}, "user1", "Again", PetTypeDragon, now)
	assert.ErrorIs(t, err, ErrGameAlreadyInitialized)

	_, err = engine.Initialize(ctx, &mockLogger{}, "user2", "Rex", PetType("unicorn"), now)
	assert.ErrorIs(t, err, ErrInvalidPetType)

	_, err = engine.Initialize(ctx, &mockLogger{}, "user2", "   ", PetTypeDragon, now)
	assert.ErrorIs(t, err, ErrBadInput)

	assert.Equal(t, 1, store.saveCount())
}

func TestStepEngine_NotInitialized(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)

	_, err := engine.Get(ctx, logger, "ghost", now)
	assert.ErrorIs(t, err, ErrGameStateNotFound)
	_, _, err = engine.ApplyStepDelta(ctx, logger, "ghost", 100, now)
	assert.ErrorIs(t, err, ErrGameStateNotFound)
	_, _, _, err = engine.ClaimPendingCoins(ctx, logger, "ghost", now)
	assert.ErrorIs(t, err, ErrGameStateNotFound)
	_, _, err = engine.ApplyCareAction(ctx, logger, "ghost", CareActionFeed, now)
	assert.ErrorIs(t, err, ErrGameStateNotFound)
	_, _, err = engine.HatchEgg(ctx, logger, "ghost", now)
	assert.ErrorIs(t, err, ErrGameStateNotFound)
	_, _, err = engine.ClaimChallenge(ctx, logger, "ghost", "c", now)
	assert.ErrorIs(t, err, ErrGameStateNotFound)
	_, err = engine.UpdateDailyGoal(ctx, logger, "ghost", 5000, now)
	assert.ErrorIs(t, err, ErrGameStateNotFound)
	_, err = engine.TickVitalsDecay(ctx, logger, "ghost", now)
	assert.ErrorIs(t, err, ErrGameStateNotFound)
}

func TestStepEngine_EggBanksStepsUntilHatched(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)

	state, events, err := engine.ApplyStepDelta(ctx, logger, "user1", 3000, now)
	require.NoError(t, err)
	assert.Equal(t, StageEgg, state.Pet.Stage)
	assert.Equal(t, int32(0), state.Pet.Level)
	assert.Equal(t, int64(300), state.Pet.Experience)
	assert.Equal(t, int64(3000), state.Pet.LifetimeSteps)
	assert.Equal(t, 0.0, state.Coins.PendingReward)
	assert.Equal(t, int64(1), state.Stats.Streak)
	assert.Empty(t, eventsOfType(events, EventTypeLevelUp))
	assert.Len(t, eventsOfType(events, EventTypeAchievementUnlocked), 1)

	state, events, err = engine.HatchEgg(ctx, logger, "user1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, state.Pet.Hatched)
	assert.Equal(t, StageBaby, state.Pet.Stage)
	assert.Equal(t, 1.0, state.Pet.MiningEfficiency)
	assert.True(t, state.Pet.EvolutionAnimation)
	assert.Equal(t, int32(2), state.Pet.Level)
	assert.Equal(t, int64(85), state.Pet.Experience)
	assert.Equal(t, now.Add(time.Hour).Unix(), state.Pet.LastCareTimeSec)

	evolved := eventsOfType(events, EventTypeEvolved)
	require.Len(t, evolved, 1)
	assert.Equal(t, StageBaby, evolved[0].Stage)
	assert.Len(t, eventsOfType(events, EventTypeLevelUp), 2)
	assert.True(t, state.Achievements["hatch"].Unlocked())

	saves := store.saveCount()
	_, _, err = engine.HatchEgg(ctx, logger, "user1", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, saves, store.saveCount())
}

func TestStepEngine_LevelUp(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)
	store.update(t, "user1", func(state *GameState) {
		hatchedBaby(1, 1000)(state)
		state.Pet.Experience = 100
	})

	state, events, err := engine.ApplyStepDelta(context.Background(), &mockLogger{}, "user1", 500, now)
	require.NoError(t, err)
	levelUps := eventsOfType(events, EventTypeLevelUp)
	require.Len(t, levelUps, 1)
	assert.Equal(t, int32(2), levelUps[0].Level)
	assert.Equal(t, int32(2), state.Pet.Level)
	assert.Equal(t, int64(35), state.Pet.Experience)
	assert.Equal(t, int64(132), state.Pet.ExperienceToNextLevel)
}

func TestStepEngine_EvolvesWhenBothThresholdsMet(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)
	store.update(t, "user1", hatchedBaby(5, 4999))

	state, events, err := engine.ApplyStepDelta(context.Background(), &mockLogger{}, "user1", 2, now)
	require.NoError(t, err)

	evolved := eventsOfType(events, EventTypeEvolved)
	require.Len(t, evolved, 1)
	assert.Equal(t, StageChild, evolved[0].Stage)
	assert.Equal(t, StageChild, state.Pet.Stage)
	assert.Equal(t, 1.5, state.Pet.MiningEfficiency)
	assert.True(t, state.Pet.EvolutionAnimation)
	assert.True(t, state.Achievements["evolve_child"].Unlocked())
	// The steps were walked as a baby.
	assert.InDelta(t, 0.02, state.Coins.PendingReward, 1e-9)

	// A call that credits nothing does not evolve again.
	state, events, err = engine.ApplyStepDelta(context.Background(), &mockLogger{}, "user1", 0, now)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, StageChild, state.Pet.Stage)

	// The animation flag is cleared by the next operation.
	state, events, err = engine.ApplyStepDelta(context.Background(), &mockLogger{}, "user1", 10, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, eventsOfType(events, EventTypeEvolved))
	assert.False(t, state.Pet.EvolutionAnimation)
}

func TestStepEngine_DailyStepCap(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)

	state, _, err := engine.ApplyStepDelta(ctx, logger, "user1", 25000, now)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), state.Stats.StepsToday)

	assert.Equal(t, int64(25000), state.Stats.LastCreditedSteps)

	state, _, err = engine.ApplyStepDelta(ctx, logger, "user1", 10000, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(30000), state.Stats.StepsToday)
	assert.Equal(t, int64(30000), state.Pet.LifetimeSteps)
	assert.Equal(t, int64(5000), state.Stats.LastCreditedSteps)

	saves := store.saveCount()
	state, events, err := engine.ApplyStepDelta(ctx, logger, "user1", 100, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int64(30000), state.Stats.StepsToday)
	assert.Equal(t, int64(0), state.Stats.LastCreditedSteps)
	assert.Equal(t, saves, store.saveCount())

	// A new day restores the allowance.
	state, _, err = engine.ApplyStepDelta(ctx, logger, "user1", 100, date(2024, 3, 14, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(100), state.Stats.StepsToday)
	assert.Equal(t, int64(30100), state.Pet.LifetimeSteps)
	assert.Equal(t, int64(100), state.Stats.LastCreditedSteps)
	assert.Equal(t, int64(2), state.Stats.Streak)
}

func TestStepEngine_OversizedSubmissionIsClamped(t *testing.T) {
	engine, _ := newTestEngine(t, &StepEngineConfig{MaxStepsPerSubmission: 1000, DailyStepCap: 5000})
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)

	state, _, err := engine.ApplyStepDelta(context.Background(), &mockLogger{}, "user1", 999999, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), state.Stats.StepsToday)
}

func TestStepEngine_NonPositiveDeltaIsNoop(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)
	saves := store.saveCount()

	for _, steps := range []int64{0, -50} {
		state, events, err := engine.ApplyStepDelta(context.Background(), &mockLogger{}, "user1", steps, now)
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.Equal(t, int64(0), state.Pet.LifetimeSteps)
	}
	assert.Equal(t, saves, store.saveCount())
}

func TestStepEngine_Streaks(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	initUser(t, engine, "user1", date(2024, 3, 11, 9, 0))

	for day := 11; day <= 13; day++ {
		_, _, err := engine.ApplyStepDelta(ctx, logger, "user1", 5000, date(2024, 3, day, 20, 0))
		require.NoError(t, err)
	}
	state, err := engine.Get(ctx, logger, "user1", date(2024, 3, 13, 21, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.Stats.Streak)
	assert.True(t, state.Achievements["streak_3"].Unlocked())

	// Skipping the 14th breaks the streak.
	state, _, err = engine.ApplyStepDelta(ctx, logger, "user1", 5000, date(2024, 3, 15, 20, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Stats.Streak)
	assert.Equal(t, int64(3), state.Stats.LongestStreak)
	require.Len(t, state.Stats.DailyHistory, 3)
	assert.Equal(t, "2024-03-13", state.Stats.DailyHistory[2].Date)
}

func TestStepEngine_MiningAndClaim(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)
	store.update(t, "user1", func(state *GameState) {
		hatchedBaby(15, 30000)(state)
		state.Pet.Stage = StageTeen
		state.Pet.MiningEfficiency = StageTeen.MiningEfficiency()
	})

	state, _, err := engine.ApplyStepDelta(ctx, logger, "user1", 1000, now)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, state.Coins.PendingReward, 1e-9)
	require.Len(t, state.Coins.MiningHistory, 1)

	claimed, state, _, err := engine.ClaimPendingCoins(ctx, logger, "user1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(20), claimed)
	assert.Equal(t, int64(20), state.Coins.Balance)
	assert.Equal(t, int64(20), state.Coins.TotalEarned)
	assert.InDelta(t, 0.0, state.Coins.PendingReward, 1e-9)

	saves := store.saveCount()
	claimed, state, _, err = engine.ClaimPendingCoins(ctx, logger, "user1", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), claimed)
	assert.Equal(t, int64(20), state.Coins.Balance)
	assert.Equal(t, saves, store.saveCount())
}

func TestStepEngine_ClaimKeepsFraction(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)
	store.update(t, "user1", func(state *GameState) {
		state.Coins.PendingReward = 12.7
	})

	claimed, state, _, err := engine.ClaimPendingCoins(context.Background(), &mockLogger{}, "user1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(12), claimed)
	assert.Equal(t, int64(12), state.Coins.Balance)
	assert.InDelta(t, 0.7, state.Coins.PendingReward, 1e-9)
}

func TestStepEngine_CareActions(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)

	saves := store.saveCount()
	_, _, err := engine.ApplyCareAction(ctx, logger, "user1", CareActionFeed, now)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, _, err = engine.ApplyCareAction(ctx, logger, "user1", CareAction("dance"), now)
	assert.ErrorIs(t, err, ErrInvalidCareAction)
	assert.Equal(t, saves, store.saveCount())

	store.update(t, "user1", func(state *GameState) {
		state.Coins.Balance = 10
		state.Coins.TotalEarned = 10
	})

	state, events, err := engine.ApplyCareAction(ctx, logger, "user1", CareActionFeed, now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), state.Coins.Balance)
	assert.Equal(t, int64(10), state.Coins.TotalEarned)
	assert.Equal(t, MaxVital, state.Pet.Hunger)
	assert.Equal(t, int64(1), state.Stats.CareActionsToday)

	completed := eventsOfType(events, EventTypeChallengeCompleted)
	require.Len(t, completed, 1)
	care := state.Challenges[completed[0].Id]
	require.NotNil(t, care)
	assert.Equal(t, "daily_care", care.DefinitionId)

	// Heal costs more than what is left.
	_, _, err = engine.ApplyCareAction(ctx, logger, "user1", CareActionHeal, now)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	state, err = engine.Get(ctx, logger, "user1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), state.Coins.Balance)
}

func TestStepEngine_ClaimChallenge(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)
	store.update(t, "user1", hatchedBaby(1, 0))

	state, events, err := engine.ApplyStepDelta(ctx, logger, "user1", 5000, now)
	require.NoError(t, err)
	var dailyID string
	for _, event := range eventsOfType(events, EventTypeChallengeCompleted) {
		if state.Challenges[event.Id].DefinitionId == "daily_steps" {
			dailyID = event.Id
		}
	}
	require.NotEmpty(t, dailyID)
	balance := state.Coins.Balance

	state, _, err = engine.ClaimChallenge(ctx, logger, "user1", dailyID, now)
	require.NoError(t, err)
	assert.Equal(t, balance+10, state.Coins.Balance)
	assert.True(t, state.Challenges[dailyID].Claimed)

	_, _, err = engine.ClaimChallenge(ctx, logger, "user1", dailyID, now)
	assert.ErrorIs(t, err, ErrChallengeAlreadyClaimed)

	target := challengeByDefinition(state, "daily_target")
	_, _, err = engine.ClaimChallenge(ctx, logger, "user1", target.Id, now)
	assert.ErrorIs(t, err, ErrChallengeNotCompleted)

	_, _, err = engine.ClaimChallenge(ctx, logger, "user1", "unknown", now)
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	// Once the window has closed the old instance is gone.
	_, _, err = engine.ClaimChallenge(ctx, logger, "user1", target.Id, date(2024, 3, 14, 1, 0))
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestStepEngine_UpdateDailyGoal(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)

	for _, goal := range []int64{0, -1, DefaultDailyStepCap + 1} {
		_, err := engine.UpdateDailyGoal(ctx, logger, "user1", goal, now)
		assert.ErrorIs(t, err, ErrInvalidDailyGoal, "goal %d", goal)
	}

	state, err := engine.UpdateDailyGoal(ctx, logger, "user1", 2000, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), state.Stats.DailyGoal)

	// Half of the lower goal now keeps the streak alive.
	_, _, err = engine.ApplyStepDelta(ctx, logger, "user1", 1000, now)
	require.NoError(t, err)
	state, _, err = engine.ApplyStepDelta(ctx, logger, "user1", 1000, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.Stats.Streak)
}

func TestStepEngine_DailyTargetFollowsGoal(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)

	_, err := engine.UpdateDailyGoal(ctx, logger, "user1", 4000, now)
	require.NoError(t, err)

	state, events, err := engine.ApplyStepDelta(ctx, logger, "user1", 4500, now)
	require.NoError(t, err)
	target := challengeByDefinition(state, "daily_target")
	require.NotNil(t, target)
	assert.True(t, target.Completed)
	assert.Equal(t, int64(112), target.Current)
	var completed []string
	for _, event := range eventsOfType(events, EventTypeChallengeCompleted) {
		completed = append(completed, event.Id)
	}
	assert.Contains(t, completed, target.Id)

	// Raising the goal later does not undo the completion.
	state, err = engine.UpdateDailyGoal(ctx, logger, "user1", 20000, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, challengeByDefinition(state, "daily_target").Completed)
	assert.Equal(t, int64(22), challengeByDefinition(state, "daily_target").Current)
}

func TestStepEngine_TickVitalsDecay(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)

	// Eggs do not decay.
	saves := store.saveCount()
	state, err := engine.TickVitalsDecay(ctx, logger, "user1", now.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, InitialMoodPoints, state.Pet.MoodPoints)
	assert.Equal(t, saves, store.saveCount())

	_, _, err = engine.HatchEgg(ctx, logger, "user1", now)
	require.NoError(t, err)

	state, err = engine.TickVitalsDecay(ctx, logger, "user1", now.Add(5*time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 40.0, state.Pet.MoodPoints, 1e-9)
	assert.InDelta(t, 65.0, state.Pet.Hunger, 1e-9)
	assert.InDelta(t, 70.0, state.Pet.Energy, 1e-9)

	saves = store.saveCount()
	state, err = engine.TickVitalsDecay(ctx, logger, "user1", now.Add(5*time.Hour+10*time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 40.0, state.Pet.MoodPoints, 1e-9)
	assert.Equal(t, saves, store.saveCount())
}

func TestStepEngine_GetRefreshesChallengeWindows(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initial := initUser(t, engine, "user1", now)
	oldDaily := challengeByDefinition(initial, "daily_steps")

	saves := store.saveCount()
	state, err := engine.Get(ctx, logger, "user1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, oldDaily.Id, challengeByDefinition(state, "daily_steps").Id)
	assert.Equal(t, saves, store.saveCount())

	state, err = engine.Get(ctx, logger, "user1", date(2024, 3, 14, 9, 0))
	require.NoError(t, err)
	assert.NotEqual(t, oldDaily.Id, challengeByDefinition(state, "daily_steps").Id)
	assert.Equal(t, saves+1, store.saveCount())
}

func TestStepEngine_FailedSaveChangesNothing(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	publisher := &recordingPublisher{}
	engine.AddPublisher(publisher)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)

	store.saveErr = errors.New("disk full")
	_, events, err := engine.ApplyStepDelta(ctx, logger, "user1", 5000, now)
	assert.Error(t, err)
	assert.Nil(t, events)
	assert.Empty(t, publisher.all())

	store.saveErr = nil
	state, err := engine.Get(ctx, logger, "user1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Pet.LifetimeSteps)
	assert.Equal(t, int64(0), state.Stats.StepsToday)
}

func TestStepEngine_PublishesEvents(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	publisher := &recordingPublisher{}
	engine.AddPublisher(publisher)
	ctx := context.Background()
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)

	_, events, err := engine.ApplyStepDelta(ctx, &mockLogger{}, "user1", 5000, now)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, events, publisher.all())
}

// progressSnapshot holds the values that may never go down.
type progressSnapshot struct {
	lifetimeSteps int64
	totalEarned   int64
	longestStreak int64
	stage         Stage
	achievements  map[string]int64
}

func snapshotProgress(state *GameState) progressSnapshot {
	snapshot := progressSnapshot{
		lifetimeSteps: state.Pet.LifetimeSteps,
		totalEarned:   state.Coins.TotalEarned,
		longestStreak: state.Stats.LongestStreak,
		stage:         state.Pet.Stage,
		achievements:  make(map[string]int64, len(state.Achievements)),
	}
	for id, a := range state.Achievements {
		snapshot.achievements[id] = a.Progress
	}
	return snapshot
}

func TestStepEngine_ProgressNeverDecreases(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	logger := &mockLogger{}
	now := date(2024, 3, 1, 7, 0)
	initUser(t, engine, "user1", now)
	rnd := rand.New(rand.NewSource(7))

	state, err := engine.Get(ctx, logger, "user1", now)
	require.NoError(t, err)
	prev := snapshotProgress(state)
	hatched := false

	for i := 0; i < 400; i++ {
		now = now.Add(time.Duration(1+rnd.Intn(9)) * time.Hour)

		op := rnd.Intn(7)
		switch op {
		case 0, 1:
			_, _, err = engine.ApplyStepDelta(ctx, logger, "user1", rnd.Int63n(15000), now)
		case 2:
			_, _, _, err = engine.ClaimPendingCoins(ctx, logger, "user1", now)
		case 3:
			actions := []CareAction{CareActionFeed, CareActionPlay, CareActionHeal, CareActionBoost}
			_, _, err = engine.ApplyCareAction(ctx, logger, "user1", actions[rnd.Intn(len(actions))], now)
			if errors.Is(err, ErrInsufficientFunds) {
				err = nil
			}
		case 4:
			_, err = engine.TickVitalsDecay(ctx, logger, "user1", now)
		case 5:
			if !hatched {
				_, _, err = engine.HatchEgg(ctx, logger, "user1", now)
				hatched = true
			} else {
				_, err = engine.UpdateDailyGoal(ctx, logger, "user1", 2000+rnd.Int63n(12000), now)
			}
		case 6:
			state, err = engine.Get(ctx, logger, "user1", now)
			require.NoError(t, err)
			for id, c := range state.Challenges {
				if c.Completed && !c.Claimed {
					_, _, err = engine.ClaimChallenge(ctx, logger, "user1", id, now)
					require.NoError(t, err, "claim %s at step %d", c.DefinitionId, i)
				}
			}
		}
		require.NoError(t, err, "operation %d at step %d", op, i)

		state, err = engine.Get(ctx, logger, "user1", now)
		require.NoError(t, err)
		next := snapshotProgress(state)

		assert.GreaterOrEqual(t, next.lifetimeSteps, prev.lifetimeSteps, "step %d", i)
		assert.GreaterOrEqual(t, next.totalEarned, prev.totalEarned, "step %d", i)
		assert.GreaterOrEqual(t, next.totalEarned, state.Coins.Balance, "step %d", i)
		assert.GreaterOrEqual(t, next.longestStreak, prev.longestStreak, "step %d", i)
		assert.GreaterOrEqual(t, next.longestStreak, state.Stats.Streak, "step %d", i)
		assert.GreaterOrEqual(t, next.stage, prev.stage, "step %d", i)
		for id, progress := range prev.achievements {
			assert.GreaterOrEqual(t, next.achievements[id], progress, "achievement %s at step %d", id, i)
		}
		prev = next
	}

	// The run covers rollovers, evolution and spending.
	assert.True(t, state.Pet.Hatched)
	assert.Greater(t, state.Stats.LongestStreak, int64(1))
	assert.Greater(t, state.Coins.TotalEarned, int64(0))
}

func TestStepEngine_ConcurrentSubmissions(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	now := date(2024, 3, 13, 9, 0)
	initUser(t, engine, "user1", now)
	initUser(t, engine, "user2", now)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 50; i++ {
		for _, userID := range []string{"user1", "user2"} {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				_, _, err := engine.ApplyStepDelta(ctx, &mockLogger{}, userID, 100, now)
				errs <- err
			}(userID)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	for _, userID := range []string{"user1", "user2"} {
		state, err := engine.Get(ctx, &mockLogger{}, userID, now)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), state.Pet.LifetimeSteps)
		assert.Equal(t, int64(5000), state.Stats.StepsToday)
	}
	assert.Equal(t, 0, engine.locks.size())
}
