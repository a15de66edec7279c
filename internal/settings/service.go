// Package settings provides TTL-cached, single-flight access to the
// singleton admin allow-list document and race-safe mutation of it.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akarpov87/storysync/internal/common"
	"github.com/akarpov87/storysync/internal/logging"
	"github.com/akarpov87/storysync/internal/models"
	"github.com/akarpov87/storysync/internal/remote"
	"github.com/akarpov87/storysync/internal/retryx"
)

// DefaultTTL bounds how long a cached settings document is served without a
// fresh remote read.
const DefaultTTL = 5 * time.Minute

const readAttempts = 3

// Service is the process-wide accessor for AdminSettings. It owns the cache
// explicitly (no package-level state) so it can be instantiated per test.
//
// The single in-flight guard covers remote reads only. Two concurrent
// mutations can still race at the remote store (last writer wins there);
// admin-list changes are rare enough that this is an accepted weakness.
type Service struct {
	store remote.Store
	log   logging.Logger
	ttl   time.Duration

	retryDelay retryx.DelayStrategy

	mu        sync.Mutex
	cached    *models.AdminSettings
	lastFetch time.Time
	fetching  bool

	// loaded is the last successfully fetched document. Unlike cached it
	// survives invalidation, so IsAdmin keeps answering between a mutation
	// and its forced re-fetch.
	loaded *models.AdminSettings

	now func() time.Time
}

// NewService returns a settings accessor over the given remote store.
// A non-positive ttl falls back to DefaultTTL.
func NewService(store remote.Store, log logging.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:      store,
		log:        log.With("component", "settings"),
		ttl:        ttl,
		retryDelay: retryx.Fixed(time.Second),
		now:        time.Now,
	}
}

// Get returns the current AdminSettings.
//
// Without force, a cache entry younger than the TTL is returned with no I/O.
// If a fetch is already in flight the best currently-available value is
// returned immediately (possibly stale, possibly nil) instead of starting a
// second remote read; callers needing certainty should re-poll.
//
// An actual fetch retries up to 3 times with a fixed one second delay and,
// when the document does not exist yet, lazily initializes it with an empty
// allow-list attributed to "system". Exhausted retries surface
// common.ErrSettingsFetch and leave any stale cache in place.
func (s *Service) Get(ctx context.Context, force bool) (*models.AdminSettings, error) {
	s.mu.Lock()
	if !force && s.cached != nil && s.now().Sub(s.lastFetch) < s.ttl {
		v := s.cached.Clone()
		s.mu.Unlock()
		return v, nil
	}
	if s.fetching {
		v := s.cached.Clone()
		s.mu.Unlock()
		return v, nil
	}
	s.fetching = true
	s.mu.Unlock()

	fetched, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
	if err != nil {
		s.log.Warn(ctx, "settings fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrSettingsFetch, err)
	}
	s.cached = fetched
	s.loaded = fetched
	s.lastFetch = s.now()
	return s.cached.Clone(), nil
}

// AddAdmin appends a normalized email to the allow-list and writes the full
// document back. Duplicates are rejected with common.ErrDuplicateAdmin and
// never written. The cache is invalidated unconditionally after the write
// attempt and a forced re-fetch returns the authoritative post-write state.
func (s *Service) AddAdmin(ctx context.Context, email, addedBy string) (*models.AdminSettings, error) {
	email = models.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, common.ErrInvalidEmail
	}

	cur, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSettingsFetch, err)
	}
	if cur.HasAdmin(email) {
		return nil, common.ErrDuplicateAdmin
	}

	writeErr := s.write(ctx, cur.WithAdmin(email, addedBy, s.now().UTC()))
	s.Invalidate()
	if writeErr != nil {
		return nil, writeErr
	}

	s.log.Info(ctx, "admin added", "email", email, "added_by", addedBy)
	return s.Get(ctx, true)
}

// RemoveAdmin drops a normalized email from the allow-list. Removing an
// absent entry is rejected with common.ErrNotFound; removing the last entry
// is rejected with common.ErrLastAdmin before any write, keeping the
// allow-list non-empty.
func (s *Service) RemoveAdmin(ctx context.Context, email, updatedBy string) (*models.AdminSettings, error) {
	email = models.NormalizeEmail(email)

	cur, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSettingsFetch, err)
	}
	if !cur.HasAdmin(email) {
		return nil, common.ErrNotFound
	}
	if len(cur.AdminEmails) <= 1 {
		return nil, common.ErrLastAdmin
	}

	writeErr := s.write(ctx, cur.WithoutAdmin(email, updatedBy, s.now().UTC()))
	s.Invalidate()
	if writeErr != nil {
		return nil, writeErr
	}

	s.log.Info(ctx, "admin removed", "email", email, "updated_by", updatedBy)
	return s.Get(ctx, true)
}

// IsAdmin is a pure predicate over the last-loaded settings. It returns
// false before the first successful load and never triggers a fetch.
func (s *Service) IsAdmin(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded.HasAdmin(email)
}

// Invalidate clears the TTL cache so the next Get performs a remote read.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.lastFetch = time.Time{}
}

// fetch performs the retried remote read, lazily initializing the document
// when it does not exist yet.
func (s *Service) fetch(ctx context.Context) (*models.AdminSettings, error) {
	var out *models.AdminSettings

	err := retryx.Do(ctx, readAttempts, s.retryDelay, func(ctx context.Context) error {
		doc, err := s.store.GetDocument(ctx, models.SettingsDocumentID)
		if errors.Is(err, common.ErrNotFound) {
			init := &models.AdminSettings{
				AdminEmails: []string{},
				LastUpdated: s.now().UTC(),
				UpdatedBy:   models.SystemActor,
			}
			if err := s.write(ctx, init); err != nil {
				return err
			}
			out = init
			return nil
		}
		if err != nil {
			return err
		}

		var v models.AdminSettings
		if err := json.Unmarshal(doc.Payload, &v); err != nil {
			return fmt.Errorf("decode settings: %w", err)
		}
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// write replaces the full settings document.
func (s *Service) write(ctx context.Context, v *models.AdminSettings) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	doc := &remote.Document{
		ID:        models.SettingsDocumentID,
		Payload:   b,
		UpdatedAt: v.LastUpdated,
	}
	if err := s.store.SetDocument(ctx, doc); err != nil {
		if errors.Is(err, common.ErrRemoteWrite) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrRemoteWrite, err)
	}
	return nil
}
