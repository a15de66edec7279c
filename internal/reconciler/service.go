// Package reconciler drives the draft lifecycle end to end: loading the
// local and remote copies of a record, merging them, publishing the result
// to the remote store and clearing the superseded draft.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akarpov87/storysync/internal/common"
	"github.com/akarpov87/storysync/internal/draft"
	"github.com/akarpov87/storysync/internal/localstore"
	"github.com/akarpov87/storysync/internal/logging"
	"github.com/akarpov87/storysync/internal/models"
	"github.com/akarpov87/storysync/internal/remote"
	"github.com/akarpov87/storysync/internal/retryx"
	"github.com/google/uuid"
)

const writeAttempts = 3

// Service reconciles local drafts against the remote document store.
// Draft stores are created lazily per logical record and reused.
type Service struct {
	kv    localstore.KV
	store remote.Store
	log   logging.Logger

	retryDelay retryx.DelayStrategy

	mu     sync.Mutex
	drafts map[string]*draft.Store

	now func() time.Time
}

// NewService wires the reconciler over a local KV and a remote store.
func NewService(kv localstore.KV, store remote.Store, log logging.Logger) *Service {
	return &Service{
		kv:         kv,
		store:      store,
		log:        log.With("component", "reconciler"),
		retryDelay: retryx.Fixed(time.Second),
		drafts:     make(map[string]*draft.Store),
		now:        time.Now,
	}
}

// Drafts returns the draft store for one logical record, creating it on
// first use.
func (s *Service) Drafts(kind, id string) *draft.Store {
	key := kind + "/" + id
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.drafts[key]; ok {
		return d
	}
	d := draft.NewStore(s.kv, kind, id)
	s.drafts[key] = d
	return d
}

// Open loads both copies of a record: the local draft (nil when absent) and
// the remote record (nil when never persisted server-side).
func (s *Service) Open(ctx context.Context, kind, id string) (*models.LocalDraft, *models.Record, error) {
	local, err := s.Drafts(kind, id).LoadLocal(ctx)
	if err != nil {
		// corrupted draft is treated as absent; surface it so the UI can
		// tell the user their draft was lost
		s.log.Warn(ctx, "local draft unreadable", "kind", kind, "id", id, "error", err)
	}

	rec, remoteErr := s.fetchRecord(ctx, kind, id)
	if remoteErr != nil && !errors.Is(remoteErr, common.ErrNotFound) {
		return local, nil, remoteErr
	}

	return local, rec, nil
}

// SaveDraft persists an in-progress edit locally without touching the
// remote store.
func (s *Service) SaveDraft(ctx context.Context, record *models.Record) (*models.LocalDraft, error) {
	return s.Drafts(record.Kind, record.ID).SaveLocal(ctx, record)
}

// Publish writes the reconciled record to the remote store and clears the
// local draft it supersedes.
//
// When a remote copy exists and a draft was provided, the two are merged
// first. When the record has never been persisted remotely the draft is
// authoritative and a create is performed, stamping identity and creation
// metadata. The remote write is retried before failing with
// common.ErrRemoteWrite.
func (s *Service) Publish(ctx context.Context, record *models.Record, publishedBy string) (*models.Record, error) {
	if record.Kind == "" {
		return nil, fmt.Errorf("record kind is required")
	}

	existing, err := s.fetchRecord(ctx, record.Kind, record.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	out := record.Clone()
	if existing == nil {
		if out.ID == "" {
			out.ID = uuid.NewString()
		}
		out.CreatedAt = s.now().UTC()
		out.CreatedBy = publishedBy
	} else {
		if local, err := s.Drafts(record.Kind, record.ID).LoadLocal(ctx); err == nil && local != nil {
			out = draft.Merge(local, existing)
		}
		// identity and creation metadata never change after the first publish
		out.ID = existing.ID
		out.Kind = existing.Kind
		out.CreatedBy = existing.CreatedBy
		out.CreatedAt = existing.CreatedAt
	}
	out.UpdatedAt = s.now().UTC()

	if err := s.writeRecord(ctx, out); err != nil {
		return nil, err
	}

	if err := s.Drafts(out.Kind, out.ID).ClearLocal(ctx); err != nil {
		// the publish itself succeeded, a stale draft is only a nuisance
		s.log.Warn(ctx, "failed to clear superseded draft", "kind", out.Kind, "id", out.ID, "error", err)
	} else {
		s.dropDrafts(out.Kind, out.ID)
	}

	s.log.Info(ctx, "record published", "kind", out.Kind, "id", out.ID, "published_by", publishedBy)
	return out, nil
}

// Discard drops the local draft of a record.
func (s *Service) Discard(ctx context.Context, kind, id string) error {
	if err := s.Drafts(kind, id).ClearLocal(ctx); err != nil {
		return err
	}
	s.dropDrafts(kind, id)
	return nil
}

// dropDrafts evicts the per-record draft store once its draft is cleared,
// so the map does not accumulate an entry for every record ever touched.
func (s *Service) dropDrafts(kind, id string) {
	s.mu.Lock()
	delete(s.drafts, kind+"/"+id)
	s.mu.Unlock()
}

func documentID(kind, id string) string {
	return kind + "/" + id
}

func (s *Service) fetchRecord(ctx context.Context, kind, id string) (*models.Record, error) {
	if id == "" {
		return nil, common.ErrNotFound
	}
	doc, err := s.store.GetDocument(ctx, documentID(kind, id))
	if err != nil {
		return nil, err
	}
	var rec models.Record
	if err := json.Unmarshal(doc.Payload, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func (s *Service) writeRecord(ctx context.Context, rec *models.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	doc := &remote.Document{
		ID:        documentID(rec.Kind, rec.ID),
		Payload:   b,
		UpdatedAt: rec.UpdatedAt,
	}
	return retryx.Do(ctx, writeAttempts, s.retryDelay, func(ctx context.Context) error {
		return s.store.SetDocument(ctx, doc)
	})
}
