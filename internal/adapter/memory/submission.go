package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// SubmissionRepo stores active submissions.
type SubmissionRepo struct{ s *Store }

// Create inserts sub. A second non-terminal submission for the same
// (category, organization, user) yields domain.ErrAlreadyExists.
func (r *SubmissionRepo) Create(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error) {
	stored, err := copyOf(sub)
	if err != nil {
		return domain.ActiveSubmission{}, err
	}
	err = r.s.write(ctx, func(st *state) error {
		if _, ok := st.categories[sub.CategoryID]; !ok {
			return fmt.Errorf("submission %s: category %s: %w", sub.ID, sub.CategoryID, domain.ErrNotFound)
		}
		if _, ok := st.dictionaries[sub.DictionaryID]; !ok {
			return fmt.Errorf("submission %s: dictionary %s: %w", sub.ID, sub.DictionaryID, domain.ErrNotFound)
		}
		if _, ok := st.submissions[sub.ID]; ok {
			return fmt.Errorf("submission %s: %w", sub.ID, domain.ErrAlreadyExists)
		}
		if !sub.Status.IsTerminal() && activeConflict(st, sub) {
			return fmt.Errorf("submission %s: %w", sub.ID, domain.ErrAlreadyExists)
		}
		st.submissions[sub.ID] = stored
		return nil
	})
	if err != nil {
		return domain.ActiveSubmission{}, err
	}
	return copyOf(stored)
}

// Update overwrites the mutable state of a submission.
func (r *SubmissionRepo) Update(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error) {
	var updated domain.ActiveSubmission
	err := r.s.write(ctx, func(st *state) error {
		cur, ok := st.submissions[sub.ID]
		if !ok {
			return fmt.Errorf("submission %s: %w", sub.ID, domain.ErrNotFound)
		}
		if !sub.Status.IsTerminal() && cur.Status.IsTerminal() && activeConflict(st, cur) {
			return fmt.Errorf("submission %s: %w", sub.ID, domain.ErrAlreadyExists)
		}

		next, err := copyOf(sub)
		if err != nil {
			return err
		}
		// identity and creation columns are immutable
		next.CategoryID = cur.CategoryID
		next.Organization = cur.Organization
		next.CreatedAt = cur.CreatedAt
		next.CreatedBy = cur.CreatedBy

		st.submissions[sub.ID] = next
		updated = next
		return nil
	})
	if err != nil {
		return domain.ActiveSubmission{}, err
	}
	return copyOf(updated)
}

// GetByID returns the submission with the given id.
func (r *SubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ActiveSubmission, error) {
	var found domain.ActiveSubmission
	err := r.s.read(ctx, func(st *state) error {
		sub, ok := st.submissions[id]
		if !ok {
			return fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
		}
		found = sub
		return nil
	})
	if err != nil {
		return domain.ActiveSubmission{}, err
	}
	return copyOf(found)
}

// GetByIDForUpdate returns the submission inside a transaction. Transactions
// are serialized, so the row stays stable until the transaction ends.
func (r *SubmissionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.ActiveSubmission, error) {
	if r.s.txFromCtx(ctx) == nil {
		return domain.ActiveSubmission{}, fmt.Errorf("submission %s: lock outside transaction: %w", id, domain.ErrInternal)
	}
	return r.GetByID(ctx, id)
}

// GetActive returns the non-terminal submission of (category, organization, user),
// or domain.ErrNotFound when there is none.
func (r *SubmissionRepo) GetActive(ctx context.Context, categoryID uuid.UUID, organization string, userID uuid.UUID) (domain.ActiveSubmission, error) {
	var (
		found domain.ActiveSubmission
		ok    bool
	)
	err := r.s.read(ctx, func(st *state) error {
		for _, sub := range st.submissions {
			if sub.CategoryID == categoryID && sub.Organization == organization &&
				sub.CreatedBy == userID && !sub.Status.IsTerminal() {
				found, ok = sub, true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return domain.ActiveSubmission{}, err
	}
	if !ok {
		return domain.ActiveSubmission{}, fmt.Errorf("submission %s: %w", organization, domain.ErrNotFound)
	}
	return copyOf(found)
}

// List returns submissions matching q, newest first.
func (r *SubmissionRepo) List(ctx context.Context, q domain.SubmissionQuery) ([]domain.ActiveSubmission, error) {
	var out []domain.ActiveSubmission
	err := r.s.read(ctx, func(st *state) error {
		for _, sub := range st.submissions {
			if q.CategoryID != uuid.Nil && sub.CategoryID != q.CategoryID {
				continue
			}
			if q.Organization != "" && sub.Organization != q.Organization {
				continue
			}
			if q.OnlyActive && sub.Status.IsTerminal() {
				continue
			}
			out = append(out, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return copyOf(paginate(out, q.Limit, q.Offset))
}

func activeConflict(st *state, sub domain.ActiveSubmission) bool {
	for id, other := range st.submissions {
		if id == sub.ID || other.Status.IsTerminal() {
			continue
		}
		if other.CategoryID == sub.CategoryID && other.Organization == sub.Organization && other.CreatedBy == sub.CreatedBy {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
