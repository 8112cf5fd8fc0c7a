package steppal

import (
	"context"
	"encoding/json"
	"io"

	"github.com/heroiclabs/nakama-common/runtime"
)

// steppalImpl implements the Steppal interface
type steppalImpl struct {
	clock      Clock
	systems    map[SystemType]System
	publishers []Publisher
	schedulers []*DecayScheduler
}

// Init initializes a Steppal type with the configurations provided.
func Init(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, initializer runtime.Initializer, configs ...SystemConfig) (Steppal, error) {
	p := &steppalImpl{
		clock:   RealClock{},
		systems: make(map[SystemType]System),
	}

	for _, config := range configs {
		if err := p.initSystem(ctx, logger, nk, initializer, config); err != nil {
			p.Close()
			return nil, err
		}
	}

	return p, nil
}

// initSystem initializes a specific system based on its type
func (p *steppalImpl) initSystem(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, initializer runtime.Initializer, config SystemConfig) error {
	logger.Info("Initializing system type: %v, config file: %s", config.GetType(), config.GetConfigFile())

	if clock, ok := config.GetExtra().(Clock); ok && clock != nil {
		p.clock = clock
	}

	switch config.GetType() {
	case SystemTypeStepEngine:
		engineConfig := DefaultStepEngineConfig()
		if config.GetConfigFile() != "" {
			engineConfig = &StepEngineConfig{}
			if err := readConfigFile(logger, nk, config.GetConfigFile(), engineConfig); err != nil {
				return err
			}
		}

		store := NewNakamaGameStateStore(nk)
		engine, err := NewStepEngine(engineConfig, store)
		if err != nil {
			logger.Error("Failed to create step engine: %v", err)
			return runtime.NewError(err.Error(), INVALID_ARGUMENT_ERROR_CODE)
		}
		for _, publisher := range p.publishers {
			engine.AddPublisher(publisher)
		}

		scheduler, err := NewDecayScheduler(logger, engine, store, p.clock, engineConfig.DecayCronexpr, engine.Calendar().Location())
		if err != nil {
			logger.Error("Failed to create vitals decay scheduler: %v", err)
			return runtime.NewError(err.Error(), INVALID_ARGUMENT_ERROR_CODE)
		}
		scheduler.Start()
		p.schedulers = append(p.schedulers, scheduler)

		p.systems[SystemTypeStepEngine] = engine

	default:
		logger.Error("Unknown system type: %v", config.GetType())
		return runtime.NewError("unknown system type", INVALID_ARGUMENT_ERROR_CODE)
	}

	if config.GetRegister() {
		if err := p.registerSystemRpcs(initializer, config.GetType()); err != nil {
			logger.Error("Failed to register %v RPCs: %v", config.GetType(), err)
			return err
		}
	}

	return nil
}

func readConfigFile(logger runtime.Logger, nk runtime.NakamaModule, path string, config any) error {
	file, err := nk.ReadFile(path)
	if err != nil {
		logger.Error("Failed to read config file %s: %v", path, err)
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("Failed to read config file contents: %v", err)
		return err
	}
	if err := json.Unmarshal(data, config); err != nil {
		logger.Error("Failed to parse config file %s: %v", path, err)
		return err
	}
	return nil
}

// registerSystemRpcs registers the appropriate RPCs for a given system type
func (p *steppalImpl) registerSystemRpcs(initializer runtime.Initializer, systemType SystemType) error {
	switch systemType {
	case SystemTypeStepEngine:
		rpcs := map[string]rpcFn{
			RpcIdGet:             rpcGet(p),
			RpcIdInitialize:      rpcInitialize(p),
			RpcIdStepsSubmit:     rpcStepsSubmit(p),
			RpcIdCoinsClaim:      rpcCoinsClaim(p),
			RpcIdCare:            rpcCare(p),
			RpcIdHatch:           rpcHatch(p),
			RpcIdChallengeClaim:  rpcChallengeClaim(p),
			RpcIdDailyGoalUpdate: rpcDailyGoalUpdate(p),
		}
		for id, fn := range rpcs {
			if err := initializer.RegisterRpc(id, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *steppalImpl) AddPublisher(publisher Publisher) {
	p.publishers = append(p.publishers, publisher)
	if engine, ok := p.systems[SystemTypeStepEngine].(StepEngineSystem); ok {
		engine.AddPublisher(publisher)
	}
}

func (p *steppalImpl) GetStepEngineSystem() StepEngineSystem {
	if system, ok := p.systems[SystemTypeStepEngine].(StepEngineSystem); ok {
		return system
	}
	return nil
}

func (p *steppalImpl) GetClock() Clock {
	return p.clock
}

func (p *steppalImpl) Close() {
	for _, scheduler := range p.schedulers {
		scheduler.Stop()
	}
	p.schedulers = nil
}
