package steppal

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	gameStateStorageCollection = "steppal"
	gameStateStorageKey        = "game_state"
)

// GameStateStore persists the game state of each user.
//
// Load returns ErrGameStateNotFound when the user has no state. Save must reject the write with
// ErrVersionConflict when the stored version differs from state.Version, and set state.Version to the
// new version on success. An empty version means the state is new.
type GameStateStore interface {
	Load(ctx context.Context, logger runtime.Logger, userID string) (*GameState, error)
	Save(ctx context.Context, logger runtime.Logger, userID string, state *GameState) error
}

// UserLister pages through the users that have a stored game state.
type UserLister interface {
	ListUserIDs(ctx context.Context, logger runtime.Logger, cursor string, limit int) ([]string, string, error)
}

// NakamaStorage is the part of runtime.NakamaModule used by NakamaGameStateStore.
type NakamaStorage interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error)
}

var (
	_ GameStateStore = &NakamaGameStateStore{}
	_ UserLister     = &NakamaGameStateStore{}
)

// NakamaGameStateStore keeps one storage object per user. Clients may read their own state but only the
// server writes it.
type NakamaGameStateStore struct {
	nk NakamaStorage
}

func NewNakamaGameStateStore(nk NakamaStorage) *NakamaGameStateStore {
	return &NakamaGameStateStore{nk: nk}
}

func (s *NakamaGameStateStore) Load(ctx context.Context, logger runtime.Logger, userID string) (*GameState, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{
		{
			Collection: gameStateStorageCollection,
			Key:        gameStateStorageKey,
			UserID:     userID,
		},
	})
	if err != nil {
		logger.Error("Failed to read game state: %v", err)
		return nil, err
	}
	if len(objects) == 0 || objects[0] == nil || objects[0].Value == "" {
		return nil, ErrGameStateNotFound
	}

	var state GameState
	if err := json.Unmarshal([]byte(objects[0].Value), &state); err != nil {
		logger.Error("Failed to unmarshal game state: %v", err)
		return nil, ErrPayloadDecode
	}
	state.Version = objects[0].Version
	return &state, nil
}

func (s *NakamaGameStateStore) Save(ctx context.Context, logger runtime.Logger, userID string, state *GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		logger.Error("Failed to marshal game state: %v", err)
		return ErrPayloadEncode
	}

	version := state.Version
	if version == "" {
		// Only create when no object exists yet.
		version = "*"
	}
	acks, err := s.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      gameStateStorageCollection,
			Key:             gameStateStorageKey,
			UserID:          userID,
			Value:           string(data),
			Version:         version,
			PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		logger.Error("Failed to write game state: %v", err)
		if strings.Contains(strings.ToLower(err.Error()), "version") {
			return ErrVersionConflict
		}
		return err
	}
	if len(acks) > 0 {
		state.Version = acks[0].Version
	}
	return nil
}

func (s *NakamaGameStateStore) ListUserIDs(ctx context.Context, logger runtime.Logger, cursor string, limit int) ([]string, string, error) {
	objects, next, err := s.nk.StorageList(ctx, "", "", gameStateStorageCollection, limit, cursor)
	if err != nil {
		logger.Error("Failed to list game states: %v", err)
		return nil, "", err
	}
	userIDs := make([]string, 0, len(objects))
	for _, object := range objects {
		if object.Key != gameStateStorageKey || object.UserId == "" {
			continue
		}
		userIDs = append(userIDs, object.UserId)
	}
	return userIDs, next, nil
}
