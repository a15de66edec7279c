package remote

import (
	"context"
	"errors"
	"sync"

	"github.com/akarpov87/storysync/internal/common"
)

// ErrInjected is returned by operations failed on purpose via FailNextReads
// and FailNextWrites.
var ErrInjected = errors.New("injected fault")

// MemoryStore is a mutex-guarded map implementation of Store for tests.
// It counts calls and can fail a bounded number of upcoming operations to
// exercise retry and single-flight behavior.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]Document

	reads  int
	writes int

	failReads  int
	failWrites int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (m *MemoryStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.failReads > 0 {
		m.failReads--
		return nil, ErrInjected
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := doc
	cp.Payload = append([]byte(nil), doc.Payload...)
	return &cp, nil
}

func (m *MemoryStore) SetDocument(ctx context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failWrites > 0 {
		m.failWrites--
		return common.ErrRemoteWrite
	}
	cp := *doc
	cp.Payload = append([]byte(nil), doc.Payload...)
	m.docs[doc.ID] = cp
	return nil
}

// Reads returns the number of GetDocument calls, including failed ones.
func (m *MemoryStore) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Writes returns the number of SetDocument calls, including failed ones.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// FailNextReads makes the next n GetDocument calls fail.
func (m *MemoryStore) FailNextReads(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = n
}

// FailNextWrites makes the next n SetDocument calls fail.
func (m *MemoryStore) FailNextWrites(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = n
}
