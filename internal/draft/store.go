// Package draft implements durable persistence of in-progress local edits
// and their reconciliation against server records.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akarpov87/storysync/internal/common"
	"github.com/akarpov87/storysync/internal/localstore"
	"github.com/akarpov87/storysync/internal/models"
)

// Store persists the local draft of one logical record. The draft is owned
// exclusively by the local device/session and is never shared.
//
// A record moves NoDraft -> Drafting on SaveLocal (repeatable) and back to
// NoDraft on ClearLocal. A successful publish that supersedes the draft is
// the caller's responsibility to clear.
type Store struct {
	kv   localstore.KV
	kind string
	id   string

	mu       sync.Mutex
	hasDraft bool

	now func() time.Time
}

// NewStore returns a draft store for the record identified by kind and id.
func NewStore(kv localstore.KV, kind, id string) *Store {
	return &Store{kv: kv, kind: kind, id: id, now: time.Now}
}

// Key is the local storage key the draft lives under.
func (s *Store) Key() string {
	return fmt.Sprintf("draft_%s_%s", s.kind, s.id)
}

// HasDraft reports the in-memory draft flag, updated by the last
// SaveLocal/LoadLocal/ClearLocal call.
func (s *Store) HasDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasDraft
}

// SaveLocal stamps the record with a fresh LastSaved timestamp and writes it
// to local storage. On a storage failure the previous state is left
// unchanged and the error wraps common.ErrLocalPersistence.
func (s *Store) SaveLocal(ctx context.Context, record *models.Record) (*models.LocalDraft, error) {
	d := &models.LocalDraft{Record: *record.Clone(), LastSaved: s.now().UTC()}

	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal draft: %v", common.ErrLocalPersistence, err)
	}

	if err := s.kv.Set(ctx, s.Key(), string(b)); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLocalPersistence, err)
	}

	s.mu.Lock()
	s.hasDraft = true
	s.mu.Unlock()

	return d, nil
}

// LoadLocal reads the stored draft. Absent drafts return (nil, nil); a draft
// that cannot be deserialized is treated as absent and reported via an error
// wrapping common.ErrLocalPersistence.
func (s *Store) LoadLocal(ctx context.Context) (*models.LocalDraft, error) {
	raw, err := s.kv.Get(ctx, s.Key())
	if err != nil {
		s.setHasDraft(false)
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrLocalPersistence, err)
	}

	var d models.LocalDraft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		s.setHasDraft(false)
		return nil, fmt.Errorf("%w: unmarshal draft: %v", common.ErrLocalPersistence, err)
	}

	s.setHasDraft(true)
	return &d, nil
}

// ClearLocal removes the persisted draft and resets the in-memory flag.
// Clearing an absent draft is a no-op.
func (s *Store) ClearLocal(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.Key()); err != nil {
		return fmt.Errorf("%w: %v", common.ErrLocalPersistence, err)
	}
	s.setHasDraft(false)
	return nil
}

func (s *Store) setHasDraft(v bool) {
	s.mu.Lock()
	s.hasDraft = v
	s.mu.Unlock()
}
