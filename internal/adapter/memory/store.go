// Package memory provides a transactional in-memory store with the same
// repository method sets as the PostgreSQL adapter. It backs the "memory"
// database driver and end-to-end service tests.
//
// A transaction works on a copy of the committed state and swaps it in on
// success, so a failed transaction leaves no trace. Transactions are
// serialized; reads outside a transaction see the last committed state.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

type state struct {
	dictionaries map[uuid.UUID]domain.Dictionary
	categories   map[uuid.UUID]domain.Category
	submissions  map[uuid.UUID]domain.ActiveSubmission
	data         map[uuid.UUID]domain.SubmittedData
	audit        []domain.AuditRecord
}

func newState() state {
	return state{
		dictionaries: map[uuid.UUID]domain.Dictionary{},
		categories:   map[uuid.UUID]domain.Category{},
		submissions:  map[uuid.UUID]domain.ActiveSubmission{},
		data:         map[uuid.UUID]domain.SubmittedData{},
	}
}

// clone copies the maps. Stored values are never mutated in place, so the
// values themselves are shared.
func (s state) clone() state {
	out := state{
		dictionaries: make(map[uuid.UUID]domain.Dictionary, len(s.dictionaries)),
		categories:   make(map[uuid.UUID]domain.Category, len(s.categories)),
		submissions:  make(map[uuid.UUID]domain.ActiveSubmission, len(s.submissions)),
		data:         make(map[uuid.UUID]domain.SubmittedData, len(s.data)),
		audit:        append([]domain.AuditRecord(nil), s.audit...),
	}
	for k, v := range s.dictionaries {
		out.dictionaries[k] = v
	}
	for k, v := range s.categories {
		out.categories[k] = v
	}
	for k, v := range s.submissions {
		out.submissions[k] = v
	}
	for k, v := range s.data {
		out.data[k] = v
	}
	return out
}

// Store is the in-memory database. The zero value is not usable; call New.
type Store struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state state
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

type txCtxKey struct{}

type txState struct {
	store *Store
	state state
}

// RunInTx executes fn against a private copy of the state and commits it
// when fn returns nil. A call made inside another transaction of the same
// store joins it.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFromCtx(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	tx := &txState{store: s, state: s.state.clone()}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txCtxKey{}, tx)); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = tx.state
	s.mu.Unlock()
	return nil
}

func (s *Store) txFromCtx(ctx context.Context) *txState {
	if tx, ok := ctx.Value(txCtxKey{}).(*txState); ok && tx.store == s {
		return tx
	}
	return nil
}

// read runs fn against the transaction state in ctx, or the committed state.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := s.txFromCtx(ctx); tx != nil {
		return fn(&tx.state)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.state)
}

// write runs fn inside the transaction in ctx, or inside a new one.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := s.txFromCtx(ctx); tx != nil {
		return fn(&tx.state)
	}
	return s.RunInTx(ctx, func(ctx context.Context) error {
		return fn(&s.txFromCtx(ctx).state)
	})
}

// copyOf deep-copies v through JSON, the same encoding the PostgreSQL
// adapter stores documents with, so numbers come back as float64 from both.
func copyOf[T any](v T) (T, error) {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("memory copy: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("memory copy: %w", err)
	}
	return out, nil
}

// Dictionaries returns the dictionary repository.
func (s *Store) Dictionaries() *DictionaryRepo { return &DictionaryRepo{s: s} }

// Categories returns the category repository.
func (s *Store) Categories() *CategoryRepo { return &CategoryRepo{s: s} }

// Submissions returns the active submission repository.
func (s *Store) Submissions() *SubmissionRepo { return &SubmissionRepo{s: s} }

// SubmittedData returns the submitted data repository.
func (s *Store) SubmittedData() *SubmittedDataRepo { return &SubmittedDataRepo{s: s} }

// Audit returns the audit repository.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

// Ping reports the store as reachable; it exists for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
