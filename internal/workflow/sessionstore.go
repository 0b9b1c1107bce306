package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSessionNotFound is returned when a clarify reply references an unknown
// or expired session. Fatal to that request only.
var ErrSessionNotFound = errors.New("workflow: session not found")

// SessionStore persists the last workflow state per session id so a
// clarification reply can resume a suspended invocation.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, state *State) error
}

// MemorySessionStore keeps serialized states in memory. States are stored as
// JSON so callers never alias the stored copy.
type MemorySessionStore struct {
	mu     sync.Mutex
	states map[string][]byte
}

// NewMemorySessionStore builds an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{states: make(map[string][]byte)}
}

// Load returns the stored state or ErrSessionNotFound.
func (m *MemorySessionStore) Load(_ context.Context, sessionID string) (*State, error) {
	m.mu.Lock()
	raw, ok := m.states[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("workflow: decode session %q: %w", sessionID, err)
	}
	return &st, nil
}

// Save stores a serialized snapshot of the state.
func (m *MemorySessionStore) Save(_ context.Context, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("workflow: encode session %q: %w", state.SessionID, err)
	}
	m.mu.Lock()
	m.states[state.SessionID] = raw
	m.mu.Unlock()
	return nil
}

// sessionRecord is the persisted row for one session.
type sessionRecord struct {
	SessionID string    `gorm:"primaryKey;column:session_id"`
	State     []byte    `gorm:"column:state"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (sessionRecord) TableName() string { return "sessions" }

// GormSessionStore persists sessions in the same database as the catalog.
type GormSessionStore struct {
	db *gorm.DB
}

// NewGormSessionStore migrates the sessions table and wraps the connection.
func NewGormSessionStore(db *gorm.DB) (*GormSessionStore, error) {
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("workflow: migrate sessions: %w", err)
	}
	return &GormSessionStore{db: db}, nil
}

// Load returns the stored state or ErrSessionNotFound.
func (g *GormSessionStore) Load(ctx context.Context, sessionID string) (*State, error) {
	var rec sessionRecord
	err := g.db.WithContext(ctx).First(&rec, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: load session %q: %w", sessionID, err)
	}
	var st State
	if err := json.Unmarshal(rec.State, &st); err != nil {
		return nil, fmt.Errorf("workflow: decode session %q: %w", sessionID, err)
	}
	return &st, nil
}

// Save upserts the serialized state keyed by session id.
func (g *GormSessionStore) Save(ctx context.Context, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("workflow: encode session %q: %w", state.SessionID, err)
	}
	rec := sessionRecord{SessionID: state.SessionID, State: raw, UpdatedAt: time.Now().UTC()}
	err = g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("workflow: save session %q: %w", state.SessionID, err)
	}
	return nil
}
