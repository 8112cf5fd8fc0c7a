package root

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"

	"steppal/persistence"
	"steppal/steppal"
)

// env is everything a command needs to run one engine operation.
type env struct {
	engine *steppal.StepEngine
	store  *persistence.SQLiteStore
	logger runtime.Logger
	config *steppal.StepEngineConfig
	now    time.Time
}

func openEnv() (*env, func(), error) {
	config, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if flags.now != "" {
		if now, err = time.Parse(time.RFC3339, flags.now); err != nil {
			return nil, nil, fmt.Errorf("invalid --now: %w", err)
		}
	}

	zl := zap.NewNop()
	if flags.verbose {
		if zl, err = zap.NewDevelopment(); err != nil {
			return nil, nil, err
		}
	}

	store, err := persistence.Open(flags.dbPath)
	if err != nil {
		return nil, nil, err
	}

	engine, err := steppal.NewStepEngine(config, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	logger := steppal.NewZapLogger(zl).WithField("user_id", flags.userID)
	if flags.verbose {
		engine.AddPublisher(&steppal.LogPublisher{})
	}

	cleanup := func() {
		_ = store.Close()
		_ = zl.Sync()
	}
	return &env{
		engine: engine,
		store:  store,
		logger: logger,
		config: config,
		now:    now,
	}, cleanup, nil
}

func loadConfig(path string) (*steppal.StepEngineConfig, error) {
	if path == "" {
		return steppal.DefaultStepEngineConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	config := &steppal.StepEngineConfig{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

// clock pins the scheduler to the evaluation time of the command.
type clock time.Time

func (c clock) Now() time.Time {
	return time.Time(c)
}
