package steppal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (l *mockLogger) Debug(format string, v ...interface{})                   {}
func (l *mockLogger) Info(format string, v ...interface{})                    {}
func (l *mockLogger) Warn(format string, v ...interface{})                    {}
func (l *mockLogger) Error(format string, v ...interface{})                   {}
func (l *mockLogger) WithField(key string, v interface{}) runtime.Logger      { return l }
func (l *mockLogger) WithFields(fields map[string]interface{}) runtime.Logger { return l }
func (l *mockLogger) Fields() map[string]interface{}                          { return nil }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// date returns the given UTC wall time.
func date(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

// memoryStore is an in-memory GameStateStore that stores JSON documents like the real stores do.
type memoryStore struct {
	mu       sync.Mutex
	docs     map[string]string
	versions map[string]int
	saves    int
	saveErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]string), versions: make(map[string]int)}
}

func (s *memoryStore) Load(ctx context.Context, logger runtime.Logger, userID string) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		return nil, ErrGameStateNotFound
	}
	var state GameState
	if err := json.Unmarshal([]byte(doc), &state); err != nil {
		return nil, err
	}
	state.Version = strconv.Itoa(s.versions[userID])
	return &state, nil
}

func (s *memoryStore) Save(ctx context.Context, logger runtime.Logger, userID string, state *GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	current, exists := s.versions[userID]
	if (state.Version == "" && exists) || (state.Version != "" && state.Version != strconv.Itoa(current)) {
		return ErrVersionConflict
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.docs[userID] = string(data)
	s.versions[userID] = current + 1
	s.saves++
	state.Version = strconv.Itoa(current + 1)
	return nil
}

func (s *memoryStore) ListUserIDs(ctx context.Context, logger runtime.Logger, cursor string, limit int) ([]string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		if id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		return ids[:limit], ids[limit-1], nil
	}
	return ids, "", nil
}

func (s *memoryStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*Event
}

func (p *recordingPublisher) Send(ctx context.Context, logger runtime.Logger, userID string, events []*Event) {
	p.mu.Lock()
	p.events = append(p.events, events...)
	p.mu.Unlock()
}

func (p *recordingPublisher) all() []*Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Event(nil), p.events...)
}

func eventsOfType(events []*Event, eventType EventType) []*Event {
	var out []*Event
	for _, event := range events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// newTestEngine creates an engine over a memory store with a hatched-ready user.
func newTestEngine(t *testing.T, config *StepEngineConfig) (*StepEngine, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	engine, err := NewStepEngine(config, store)
	require.NoError(t, err)
	return engine, store
}

func initUser(t *testing.T, engine *StepEngine, userID string, now time.Time) *GameState {
	t.Helper()
	state, err := engine.Initialize(context.Background(), &mockLogger{}, userID, "Pip", PetTypePhoenix, now)
	require.NoError(t, err)
	return state
}

// testNakama is a NakamaModule with in-memory storage. Methods that are not overridden panic.
type testNakama struct {
	runtime.NakamaModule

	mu            sync.Mutex
	storage       map[string]*api.StorageObject
	nextVersion   int
	notifications []string
}

func newTestNakama() *testNakama {
	return &testNakama{storage: make(map[string]*api.StorageObject)}
}

func storageKey(collection, key, userID string) string {
	return collection + ":" + key + ":" + userID
}

func cloneStorageObject(obj *api.StorageObject) *api.StorageObject {
	return &api.StorageObject{
		Collection: obj.Collection,
		Key:        obj.Key,
		UserId:     obj.UserId,
		Value:      obj.Value,
		Version:    obj.Version,
	}
}

func (m *testNakama) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*api.StorageObject
	for _, read := range reads {
		if obj, ok := m.storage[storageKey(read.Collection, read.Key, read.UserID)]; ok {
			result = append(result, cloneStorageObject(obj))
		}
	}
	return result, nil
}

func (m *testNakama) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var acks []*api.StorageObjectAck
	for _, write := range writes {
		k := storageKey(write.Collection, write.Key, write.UserID)
		existing, exists := m.storage[k]
		switch {
		case write.Version == "*" && exists:
			return nil, fmt.Errorf("Storage write rejected - version check failed.")
		case write.Version != "" && write.Version != "*" && (!exists || existing.Version != write.Version):
			return nil, fmt.Errorf("Storage write rejected - version check failed.")
		}
		m.nextVersion++
		version := strconv.Itoa(m.nextVersion)
		m.storage[k] = &api.StorageObject{
			Collection: write.Collection,
			Key:        write.Key,
			UserId:     write.UserID,
			Value:      write.Value,
			Version:    version,
		}
		acks = append(acks, &api.StorageObjectAck{
			Collection: write.Collection,
			Key:        write.Key,
			UserId:     write.UserID,
			Version:    version,
		})
	}
	return acks, nil
}

func (m *testNakama) StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.storage))
	for k, obj := range m.storage {
		if obj.Collection == collection && (userID == "" || obj.UserId == userID) && k > cursor {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	next := ""
	if len(keys) > limit {
		keys = keys[:limit]
		next = keys[limit-1]
	}
	objects := make([]*api.StorageObject, 0, len(keys))
	for _, k := range keys {
		objects = append(objects, cloneStorageObject(m.storage[k]))
	}
	return objects, next, nil
}

func (m *testNakama) ReadFile(path string) (*os.File, error) {
	return os.Open(path)
}

func (m *testNakama) NotificationSend(ctx context.Context, userID, subject string, content map[string]interface{}, code int, sender string, persistent bool) error {
	m.mu.Lock()
	m.notifications = append(m.notifications, subject)
	m.mu.Unlock()
	return nil
}

// testInitializer records registered RPCs. Methods that are not overridden panic.
type testInitializer struct {
	runtime.Initializer
	rpcs map[string]func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)
}

func newTestInitializer() *testInitializer {
	return &testInitializer{rpcs: make(map[string]func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error))}
}

func (i *testInitializer) RegisterRpc(id string, fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)) error {
	i.rpcs[id] = fn
	return nil
}
