package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"steppal/steppal"
)

var sp steppal.Steppal

// noinspection GoUnusedExportedFunction
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	initStart := time.Now()

	logger.Info("Loading StepPal Nakama plugin...")

	configFile := ""
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		configFile = env["STEPPAL_CONFIG_FILE"]
	}

	var err error
	sp, err = steppal.Init(ctx, logger, nk, initializer, steppal.WithStepEngine(configFile, true))
	if err != nil {
		logger.Error("Failed to initialize StepPal: %v", err)
		return err
	}
	sp.AddPublisher(&steppal.LogPublisher{})
	sp.AddPublisher(steppal.NewNotificationPublisher(nk))

	if err := initializer.RegisterShutdown(func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) {
		sp.Close()
	}); err != nil {
		logger.Error("Failed to register shutdown hook: %v", err)
		return err
	}

	logger.Info("StepPal Nakama plugin loaded in '%d' msec.", time.Since(initStart).Milliseconds())
	return nil
}

func main() {}
