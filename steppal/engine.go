package steppal

import (
	"context"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrGameStateNotFound       = runtime.NewError("game state not found", NOT_FOUND_ERROR_CODE)                       // NOT_FOUND
	ErrGameAlreadyInitialized  = runtime.NewError("game already initialized", FAILED_PRECONDITION_ERROR_CODE)         // FAILED_PRECONDITION
	ErrInvalidSteps            = runtime.NewError("invalid step count", INVALID_ARGUMENT_ERROR_CODE)                  // INVALID_ARGUMENT
	ErrInvalidCareAction       = runtime.NewError("invalid care action", INVALID_ARGUMENT_ERROR_CODE)                 // INVALID_ARGUMENT
	ErrInvalidDailyGoal        = runtime.NewError("invalid daily goal", INVALID_ARGUMENT_ERROR_CODE)                  // INVALID_ARGUMENT
	ErrInvalidPetType          = runtime.NewError("invalid pet type", INVALID_ARGUMENT_ERROR_CODE)                    // INVALID_ARGUMENT
	ErrInsufficientFunds       = runtime.NewError("insufficient coins", FAILED_PRECONDITION_ERROR_CODE)               // FAILED_PRECONDITION
	ErrInvalidTransition       = runtime.NewError("invalid stage transition", FAILED_PRECONDITION_ERROR_CODE)         // FAILED_PRECONDITION
	ErrChallengeNotFound       = runtime.NewError("challenge not found", NOT_FOUND_ERROR_CODE)                        // NOT_FOUND
	ErrChallengeNotCompleted   = runtime.NewError("challenge not completed", FAILED_PRECONDITION_ERROR_CODE)          // FAILED_PRECONDITION
	ErrChallengeAlreadyClaimed = runtime.NewError("challenge reward already claimed", FAILED_PRECONDITION_ERROR_CODE) // FAILED_PRECONDITION
)

// StepEngineConfig is the data definition for the StepEngineSystem type.
type StepEngineConfig struct {
	DailyStepCap          int64  `json:"daily_step_cap,omitempty"`
	MaxStepsPerSubmission int64  `json:"max_steps_per_submission,omitempty"`
	DefaultDailyGoal      int64  `json:"default_daily_goal,omitempty"`
	DefaultWeeklyGoal     int64  `json:"default_weekly_goal,omitempty"`
	Timezone              string `json:"timezone,omitempty"`
	DecayCronexpr         string `json:"decay_cronexpr,omitempty"`

	Challenges   map[string]*ChallengeDefinition   `json:"challenges,omitempty"`
	Achievements map[string]*AchievementDefinition `json:"achievements,omitempty"`
}

// DefaultStepEngineConfig returns the built-in rules, challenges and achievements.
func DefaultStepEngineConfig() *StepEngineConfig {
	return &StepEngineConfig{
		DailyStepCap:          DefaultDailyStepCap,
		MaxStepsPerSubmission: DefaultMaxStepsPerSubmission,
		DefaultDailyGoal:      DefaultDailyGoal,
		DefaultWeeklyGoal:     DefaultWeeklyGoal,
		Timezone:              "UTC",
		DecayCronexpr:         defaultDecayCronexpr,
		Challenges:            defaultChallengeDefinitions(),
		Achievements:          defaultAchievementDefinitions(),
	}
}

// applyDefaults fills every unset field. A nil definition table selects the built-in table, an empty one
// disables the tracker.
func (c *StepEngineConfig) applyDefaults() {
	defaults := DefaultStepEngineConfig()
	if c.DailyStepCap <= 0 {
		c.DailyStepCap = defaults.DailyStepCap
	}
	if c.MaxStepsPerSubmission <= 0 {
		c.MaxStepsPerSubmission = defaults.MaxStepsPerSubmission
	}
	if c.DefaultDailyGoal <= 0 {
		c.DefaultDailyGoal = defaults.DefaultDailyGoal
	}
	if c.DefaultWeeklyGoal <= 0 {
		c.DefaultWeeklyGoal = defaults.DefaultWeeklyGoal
	}
	if c.Timezone == "" {
		c.Timezone = defaults.Timezone
	}
	if c.DecayCronexpr == "" {
		c.DecayCronexpr = defaults.DecayCronexpr
	}
	if c.Challenges == nil {
		c.Challenges = defaults.Challenges
	}
	if c.Achievements == nil {
		c.Achievements = defaults.Achievements
	}
}

// The StepEngineSystem turns walked steps into pet progression, mined coins, streaks, challenges and achievements.
//
// Every mutating operation is atomic per user: it loads the state, computes the next state and saves it, and
// a failed operation saves nothing. Events are only returned, and published, after a successful save.
type StepEngineSystem interface {
	System

	// Initialize creates the game state of a new user with an unhatched egg.
	Initialize(ctx context.Context, logger runtime.Logger, userID, petName string, petType PetType, now time.Time) (*GameState, error)

	// Get returns the game state with challenge windows refreshed to now.
	Get(ctx context.Context, logger runtime.Logger, userID string, now time.Time) (*GameState, error)

	// ApplyStepDelta credits newly walked steps.
	ApplyStepDelta(ctx context.Context, logger runtime.Logger, userID string, requestedSteps int64, now time.Time) (*GameState, []*Event, error)

	// ClaimPendingCoins moves the whole part of the mined coins into the balance.
	ClaimPendingCoins(ctx context.Context, logger runtime.Logger, userID string, now time.Time) (claimed int64, state *GameState, events []*Event, err error)

	// ApplyCareAction spends coins on a care action.
	ApplyCareAction(ctx context.Context, logger runtime.Logger, userID string, action CareAction, now time.Time) (*GameState, []*Event, error)

	// HatchEgg hatches the pet egg into a baby.
	HatchEgg(ctx context.Context, logger runtime.Logger, userID string, now time.Time) (*GameState, []*Event, error)

	// ClaimChallenge credits the reward of a completed challenge.
	ClaimChallenge(ctx context.Context, logger runtime.Logger, userID, challengeID string, now time.Time) (*GameState, []*Event, error)

	// UpdateDailyGoal changes the daily step goal used for streaks.
	UpdateDailyGoal(ctx context.Context, logger runtime.Logger, userID string, goal int64, now time.Time) (*GameState, error)

	// TickVitalsDecay applies hourly vitals decay for the time elapsed since the last care or decay.
	TickVitalsDecay(ctx context.Context, logger runtime.Logger, userID string, now time.Time) (*GameState, error)

	// AddPublisher adds a target for the events of successful operations.
	AddPublisher(publisher Publisher)
}
