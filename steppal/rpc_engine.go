package steppal

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	RpcIdGet             = "steppal_get"
	RpcIdInitialize      = "steppal_initialize"
	RpcIdStepsSubmit     = "steppal_steps_submit"
	RpcIdCoinsClaim      = "steppal_coins_claim"
	RpcIdCare            = "steppal_care"
	RpcIdHatch           = "steppal_hatch"
	RpcIdChallengeClaim  = "steppal_challenge_claim"
	RpcIdDailyGoalUpdate = "steppal_daily_goal_update"
)

type InitializeRequest struct {
	PetName string  `json:"pet_name"`
	PetType PetType `json:"pet_type"`
}

type StepsSubmitRequest struct {
	Steps int64 `json:"steps"`
}

type CareRequest struct {
	Action CareAction `json:"action"`
}

type ChallengeClaimRequest struct {
	ChallengeId string `json:"challenge_id"`
}

type DailyGoalUpdateRequest struct {
	DailyGoal int64 `json:"daily_goal"`
}

// StepEngineResponse is returned by every step engine RPC.
type StepEngineResponse struct {
	State   *GameState `json:"state"`
	Events  []*Event   `json:"events,omitempty"`
	Claimed int64      `json:"claimed,omitempty"`
}

type rpcFn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

// stepEngineRpc resolves the system and the session user shared by all step engine RPCs.
func stepEngineRpc(p *steppalImpl, fn func(ctx context.Context, logger runtime.Logger, system StepEngineSystem, userID, payload string) (*StepEngineResponse, error)) rpcFn {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		system := p.GetStepEngineSystem()
		if system == nil {
			return "", ErrSystemNotAvailable
		}

		userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if !ok || userID == "" {
			return "", ErrNoSessionUser
		}

		response, err := fn(ctx, logger.WithField("user_id", userID), system, userID, payload)
		if err != nil {
			return "", err
		}

		data, err := json.Marshal(response)
		if err != nil {
			logger.Error("Failed to marshal step engine response: %v", err)
			return "", ErrPayloadEncode
		}
		return string(data), nil
	}
}

func decodePayload(logger runtime.Logger, payload string, request any) error {
	if payload == "" {
		return ErrPayloadEmpty
	}
	if err := json.Unmarshal([]byte(payload), request); err != nil {
		logger.Error("Failed to unmarshal request: %v", err)
		return ErrBadInput
	}
	return nil
}

func rpcGet(p *steppalImpl) rpcFn {
	return stepEngineRpc(p, func(ctx context.Context, logger runtime.Logger, system StepEngineSystem, userID, payload string) (*StepEngineResponse, error) {
		state, err := system.Get(ctx, logger, userID, p.GetClock().Now())
		if err != nil {
			return nil, err
		}
		return &StepEngineResponse{State: state}, nil
	})
}

func rpcInitialize(p *steppalImpl) rpcFn {
	return stepEngineRpc(p, func(ctx context.Context, logger runtime.Logger, system StepEngineSystem, userID, payload string) (*StepEngineResponse, error) {
		var request InitializeRequest
		if err := decodePayload(logger, payload, &request); err != nil {
			return nil, err
		}
		state, err := system.Initialize(ctx, logger, userID, request.PetName, request.PetType, p.GetClock().Now())
		if err != nil {
			return nil, err
		}
		return &StepEngineResponse{State: state}, nil
	})
}

func rpcStepsSubmit(p *steppalImpl) rpcFn {
	return stepEngineRpc(p, func(ctx context.Context, logger runtime.Logger, system StepEngineSystem, userID, payload string) (*StepEngineResponse, error) {
		var request StepsSubmitRequest
		if err := decodePayload(logger, payload, &request); err != nil {
			return nil, err
		}
		maxSteps := DefaultMaxStepsPerSubmission
		if config, ok := system.GetConfig().(*StepEngineConfig); ok && config.MaxStepsPerSubmission > 0 {
			maxSteps = config.MaxStepsPerSubmission
		}
		if request.Steps < 1 || request.Steps > maxSteps {
			return nil, ErrInvalidSteps
		}
		state, events, err := system.ApplyStepDelta(ctx, logger, userID, request.Steps, p.GetClock().Now())
		if err != nil {
			return nil, err
		}
		return &StepEngineResponse{State: state, Events: events}, nil
	})
}

func rpcCoinsClaim(p *steppalImpl) rpcFn {
	return stepEngineRpc(p, func(ctx context.Context, logger runtime.Logger, system StepEngineSystem, userID, payload string) (*StepEngineResponse, error) {
		claimed, state, events, err := system.ClaimPendingCoins(ctx, logger, userID, p.GetClock().Now())
		if err != nil {
			return nil, err
		}
		return &StepEngineResponse{State: state, Events: events, Claimed: claimed}, nil
	})
}

func rpcCare(p *steppalImpl) rpcFn {
	return stepEngineRpc(p, func(ctx context.Context, logger runtime.Logger, system StepEngineSystem, userID, payload string) (*StepEngineResponse, error) {
		var request CareRequest
		if err := decodePayload(logger, payload, &request); err != nil {
			return nil, err
		}
		state, events, err := system.ApplyCareAction(ctx, logger, userID, request.Action, p.GetClock().Now())
		if err != nil {
			return nil, err
		}
		return &StepEngineResponse{State: state, Events: events}, nil
	})
}

func rpcHatch(p *steppalImpl) rpcFn {
	return stepEngineRpc(p, func(ctx context.Context, logger runtime.Logger, system StepEngineSystem, userID, payload string) (*StepEngineResponse, error) {
		state, events, err := system.HatchEgg(ctx, logger, userID, p.GetClock().Now())
		if err != nil {
			return nil, err
		}
		return &StepEngineResponse{State: state, Events: events}, nil
	})
}

func rpcChallengeClaim(p *steppalImpl) rpcFn {
	return stepEngineRpc(p, func(ctx context.Context, logger runtime.Logger, system StepEngineSystem, userID, payload string) (*StepEngineResponse, error) {
		var request ChallengeClaimRequest
		if err := decodePayload(logger, payload, &request); err != nil {
			return nil, err
		}
		if request.ChallengeId == "" {
			return nil, ErrBadInput
		}
		state, events, err := system.ClaimChallenge(ctx, logger, userID, request.ChallengeId, p.GetClock().Now())
		if err != nil {
			return nil, err
		}
		return &StepEngineResponse{State: state, Events: events}, nil
	})
}

func rpcDailyGoalUpdate(p *steppalImpl) rpcFn {
	return stepEngineRpc(p, func(ctx context.Context, logger runtime.Logger, system StepEngineSystem, userID, payload string) (*StepEngineResponse, error) {
		var request DailyGoalUpdateRequest
		if err := decodePayload(logger, payload, &request); err != nil {
			return nil, err
		}
		state, err := system.UpdateDailyGoal(ctx, logger, userID, request.DailyGoal, p.GetClock().Now())
		if err != nil {
			return nil, err
		}
		return &StepEngineResponse{State: state}, nil
	})
}
