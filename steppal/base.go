package steppal

import (
	"context"

	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrInternal           = runtime.NewError("internal error occurred", INTERNAL_ERROR_CODE)       // INTERNAL
	ErrBadInput           = runtime.NewError("bad input", INVALID_ARGUMENT_ERROR_CODE)             // INVALID_ARGUMENT
	ErrNoSessionUser      = runtime.NewError("no user ID in session", INVALID_ARGUMENT_ERROR_CODE) // INVALID_ARGUMENT
	ErrPayloadDecode      = runtime.NewError("cannot decode json", INTERNAL_ERROR_CODE)            // INTERNAL
	ErrPayloadEmpty       = runtime.NewError("payload should not be empty", INVALID_ARGUMENT_ERROR_CODE)
	ErrPayloadEncode      = runtime.NewError("cannot encode json", INTERNAL_ERROR_CODE)        // INTERNAL
	ErrSystemNotAvailable = runtime.NewError("system not available", UNIMPLEMENTED_ERROR_CODE) // UNIMPLEMENTED
	ErrVersionConflict    = runtime.NewError("game state was modified concurrently", ABORTED_ERROR_CODE)
)

// Steppal provides a type which combines the step progression engine with its hosting concerns.
type Steppal interface {
	AddPublisher(publisher Publisher)

	GetStepEngineSystem() StepEngineSystem

	// GetClock returns the clock used by RPCs and scheduled jobs to stamp operations.
	GetClock() Clock

	// Close stops any background jobs started by Init.
	Close()
}

// The SystemType identifies each of the gameplay systems.
type SystemType uint

const (
	SystemTypeUnknown SystemType = iota
	SystemTypeStepEngine
)

func (t SystemType) String() string {
	switch t {
	case SystemTypeStepEngine:
		return "step_engine"
	default:
		return "unknown"
	}
}

// The SystemConfig describes the configuration that each gameplay system must use to configure itself.
type SystemConfig interface {
	// GetType returns the runtime type of the gameplay system.
	GetType() SystemType

	// GetConfigFile returns the configuration file used for the data definitions in the gameplay system.
	// An empty value selects the built-in defaults.
	GetConfigFile() string

	// GetRegister returns true if the gameplay system's RPCs should be registered with the game server.
	GetRegister() bool

	// GetExtra returns the extra parameter used to configure the gameplay system.
	GetExtra() any
}

var _ SystemConfig = &systemConfig{}

type systemConfig struct {
	systemType SystemType
	configFile string
	register   bool

	extra any
}

func (sc *systemConfig) GetType() SystemType {
	return sc.systemType
}
func (sc *systemConfig) GetConfigFile() string {
	return sc.configFile
}
func (sc *systemConfig) GetRegister() bool {
	return sc.register
}
func (sc *systemConfig) GetExtra() any {
	return sc.extra
}

// A System is a base type for a gameplay system.
type System interface {
	// GetType provides the runtime type of the gameplay system.
	GetType() SystemType

	// GetConfig returns the configuration type of the gameplay system.
	GetConfig() any
}

// WithStepEngine configures the StepEngineSystem and optionally registers its RPCs with the game server.
// An optional Clock overrides the wall clock used by RPCs and the decay scheduler.
func WithStepEngine(configFile string, register bool, clock ...Clock) SystemConfig {
	sc := &systemConfig{
		systemType: SystemTypeStepEngine,
		configFile: configFile,
		register:   register,
	}
	if len(clock) > 0 {
		sc.extra = clock[0]
	}
	return sc
}

// Publisher receives the events generated by successful engine operations.
//
// Publishers are called after the new state has been saved. Implementations must safely handle
// concurrent calls and must handle their own errors, callers will not repeat calls.
type Publisher interface {
	Send(ctx context.Context, logger runtime.Logger, userID string, events []*Event)
}
