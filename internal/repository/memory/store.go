/*
Package memory is an in-process implementation of repository.Querier.

A transaction works on a private copy of the whole state and replaces the live
state only when the callback returns nil, so a failed unit of work leaves
nothing behind. Transactions are serialized by a single mutex, which stands in
for the row locks the Postgres store takes with SELECT ... FOR UPDATE.

Calling Store.Queries or Store.RunInTx from inside a RunInTx callback
deadlocks; use the Querier handed to the callback instead.
*/
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/google/uuid"
)

type state struct {
	seq        int64
	order      map[uuid.UUID]int64
	users      map[uuid.UUID]models.User
	identities map[uuid.UUID]models.Identity
	platforms  map[uuid.UUID]models.Platform
	accounts   map[uuid.UUID]models.Account
	operations map[uuid.UUID]models.FinancialOperation
	promotions map[uuid.UUID]models.Promotion
	audit      []models.AuditEntry
}

func newState() *state {
	return &state{
		order:      make(map[uuid.UUID]int64),
		users:      make(map[uuid.UUID]models.User),
		identities: make(map[uuid.UUID]models.Identity),
		platforms:  make(map[uuid.UUID]models.Platform),
		accounts:   make(map[uuid.UUID]models.Account),
		operations: make(map[uuid.UUID]models.FinancialOperation),
		promotions: make(map[uuid.UUID]models.Promotion),
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:        s.seq,
		order:      cloneMap(s.order),
		users:      cloneMap(s.users),
		identities: cloneMap(s.identities),
		platforms:  cloneMap(s.platforms),
		accounts:   cloneMap(s.accounts),
		operations: make(map[uuid.UUID]models.FinancialOperation, len(s.operations)),
		promotions: cloneMap(s.promotions),
		audit:      append([]models.AuditEntry(nil), s.audit...),
	}
	for id, op := range s.operations {
		c.operations[id] = copyOperation(op)
	}
	return c
}

func (s *state) track(id uuid.UUID) {
	s.seq++
	s.order[id] = s.seq
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store is a concurrency-safe in-memory data store.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{state: newState(), now: time.Now}
}

// WithClock overrides the clock used for created_at and updated_at stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Queries returns a query set that commits each call immediately.
func (s *Store) Queries() repository.Querier {
	return &Queries{store: s}
}

// RunInTx runs fn against a snapshot and publishes it only if fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(q repository.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(&Queries{store: s, tx: tx}); err != nil {
		return err
	}
	s.state = tx
	return nil
}

// AuditEntries returns a copy of the audit trail.
func (s *Store) AuditEntries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditEntry(nil), s.state.audit...)
}
