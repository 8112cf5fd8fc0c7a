package steppal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/robfig/cron/v3"
)

const (
	defaultDecayCronexpr = "@every 15m"
	decayPageSize        = 100
)

// DecayScheduler periodically applies vitals decay to every stored pet.
type DecayScheduler struct {
	logger runtime.Logger
	engine StepEngineSystem
	users  UserLister
	clock  Clock
	cron   *cron.Cron
}

// NewDecayScheduler creates a scheduler that runs a decay pass on the given cron expression. Descriptors
// such as "@every 15m" are accepted.
func NewDecayScheduler(logger runtime.Logger, engine StepEngineSystem, users UserLister, clock Clock, cronexpr string, loc *time.Location) (*DecayScheduler, error) {
	if clock == nil {
		clock = RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &DecayScheduler{
		logger: logger,
		engine: engine,
		users:  users,
		clock:  clock,
		cron:   cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger: logger})),
	}
	if _, err := s.cron.AddFunc(cronexpr, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("Vitals decay pass failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid decay cron expression %q: %w", cronexpr, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *DecayScheduler) Start() {
	s.cron.Start()
}

// Stop stops the schedule and waits for a running pass to finish.
func (s *DecayScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce applies decay to every user with a stored state and returns the number of users ticked.
// A failure for one user is logged and does not stop the pass.
func (s *DecayScheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ticked := 0
	cursor := ""
	for {
		userIDs, next, err := s.users.ListUserIDs(ctx, s.logger, cursor, decayPageSize)
		if err != nil {
			return ticked, err
		}
		for _, userID := range userIDs {
			if _, err := s.engine.TickVitalsDecay(ctx, s.logger, userID, now); err != nil {
				if !errors.Is(err, ErrGameStateNotFound) {
					s.logger.Warn("Failed to decay vitals for user %s: %v", userID, err)
				}
				continue
			}
			ticked++
		}
		if next == "" {
			break
		}
		cursor = next
	}
	s.logger.Debug("Vitals decay pass finished for %d users", ticked)
	return ticked, nil
}

// cronLogger routes the scheduler's own logging to a runtime.Logger.
type cronLogger struct {
	logger runtime.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(keyValueFields(keysAndValues)).Debug("cron: %s", msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(keyValueFields(keysAndValues)).Error("cron: %s: %v", msg, err)
}

func keyValueFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
