package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/datadiff"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// SubmittedDataRepo stores committed records.
type SubmittedDataRepo struct{ s *Store }

// Create inserts row. A reused system id yields domain.ErrAlreadyExists.
func (r *SubmittedDataRepo) Create(ctx context.Context, row domain.SubmittedData) (domain.SubmittedData, error) {
	stored, err := copyOf(row)
	if err != nil {
		return domain.SubmittedData{}, err
	}
	err = r.s.write(ctx, func(st *state) error {
		if _, ok := st.categories[row.CategoryID]; !ok {
			return fmt.Errorf("submitted_data %s: category %s: %w", row.SystemID, row.CategoryID, domain.ErrNotFound)
		}
		if _, ok := st.data[row.ID]; ok {
			return fmt.Errorf("submitted_data %s: %w", row.SystemID, domain.ErrAlreadyExists)
		}
		for _, other := range st.data {
			if other.SystemID == row.SystemID {
				return fmt.Errorf("submitted_data %s: %w", row.SystemID, domain.ErrAlreadyExists)
			}
		}
		st.data[row.ID] = stored
		return nil
	})
	if err != nil {
		return domain.SubmittedData{}, err
	}
	return copyOf(stored)
}

// Update rewrites data, validity and the last valid schema of an existing row.
func (r *SubmittedDataRepo) Update(ctx context.Context, row domain.SubmittedData) (domain.SubmittedData, error) {
	var updated domain.SubmittedData
	err := r.s.write(ctx, func(st *state) error {
		cur, ok := st.data[row.ID]
		if !ok {
			return fmt.Errorf("submitted_data %s: %w", row.SystemID, domain.ErrNotFound)
		}
		next, err := copyOf(row)
		if err != nil {
			return err
		}
		cur.Data = next.Data
		cur.IsValid = next.IsValid
		cur.LastValidSchemaID = next.LastValidSchemaID
		cur.UpdatedAt = next.UpdatedAt
		cur.UpdatedBy = next.UpdatedBy
		st.data[row.ID] = cur
		updated = cur
		return nil
	})
	if err != nil {
		return domain.SubmittedData{}, err
	}
	return copyOf(updated)
}

// Delete removes the row with the given id.
func (r *SubmittedDataRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.data[id]; !ok {
			return fmt.Errorf("submitted_data %s: %w", id, domain.ErrNotFound)
		}
		delete(st.data, id)
		return nil
	})
}

// GetBySystemID returns the row carrying systemID.
func (r *SubmittedDataRepo) GetBySystemID(ctx context.Context, systemID string) (domain.SubmittedData, error) {
	var (
		found domain.SubmittedData
		ok    bool
	)
	err := r.s.read(ctx, func(st *state) error {
		found, ok = bySystemID(st, systemID)
		return nil
	})
	if err != nil {
		return domain.SubmittedData{}, err
	}
	if !ok {
		return domain.SubmittedData{}, fmt.Errorf("submitted_data %s: %w", systemID, domain.ErrNotFound)
	}
	return copyOf(found)
}

// ExistsBySystemID reports whether any row carries systemID.
func (r *SubmittedDataRepo) ExistsBySystemID(ctx context.Context, systemID string) (bool, error) {
	var ok bool
	err := r.s.read(ctx, func(st *state) error {
		_, ok = bySystemID(st, systemID)
		return nil
	})
	return ok, err
}

// ListByFilter returns the rows of f.EntityName in (category, organization)
// whose data[f.DataField] equals f.DataValue.
func (r *SubmittedDataRepo) ListByFilter(ctx context.Context, categoryID uuid.UUID, organization string, f domain.DataFilter) ([]domain.SubmittedData, error) {
	return r.list(ctx, categoryID, organization, func(row domain.SubmittedData) bool {
		if row.EntityName != f.EntityName {
			return false
		}
		v, ok := row.Data[f.DataField]
		return ok && datadiff.Equal(v, f.DataValue)
	}, sortBySystemID)
}

// List returns the rows of (category, organization) matching q, ordered by
// entity name then system id. Limit 0 means no limit.
func (r *SubmittedDataRepo) List(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) ([]domain.SubmittedData, error) {
	rows, err := r.list(ctx, categoryID, organization, matcher(q), sortByEntity)
	if err != nil {
		return nil, err
	}
	return paginate(rows, q.Limit, q.Offset), nil
}

// Count returns how many rows of (category, organization) match q, ignoring
// pagination.
func (r *SubmittedDataRepo) Count(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) (int, error) {
	rows, err := r.list(ctx, categoryID, organization, matcher(q), nil)
	return len(rows), err
}

func (r *SubmittedDataRepo) list(ctx context.Context, categoryID uuid.UUID, organization string, keep func(domain.SubmittedData) bool, less func(a, b domain.SubmittedData) bool) ([]domain.SubmittedData, error) {
	var out []domain.SubmittedData
	err := r.s.read(ctx, func(st *state) error {
		for _, row := range st.data {
			if row.CategoryID == categoryID && row.Organization == organization && keep(row) {
				out = append(out, row)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if less != nil {
		sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return copyOf(out)
}

func matcher(q domain.SubmittedDataQuery) func(domain.SubmittedData) bool {
	entities := make(map[string]struct{}, len(q.EntityNames))
	for _, name := range q.EntityNames {
		entities[name] = struct{}{}
	}
	return func(row domain.SubmittedData) bool {
		if len(entities) > 0 {
			if _, ok := entities[row.EntityName]; !ok {
				return false
			}
		}
		if q.OnlyValid && !row.IsValid {
			return false
		}
		return q.Predicate == nil || q.Predicate.Match(row.Data)
	}
}

func bySystemID(st *state, systemID string) (domain.SubmittedData, bool) {
	for _, row := range st.data {
		if row.SystemID == systemID {
			return row, true
		}
	}
	return domain.SubmittedData{}, false
}

func sortBySystemID(a, b domain.SubmittedData) bool { return a.SystemID < b.SystemID }

func sortByEntity(a, b domain.SubmittedData) bool {
	if a.EntityName != b.EntityName {
		return a.EntityName < b.EntityName
	}
	return a.SystemID < b.SystemID
}

// AuditRepo stores append-only audit records.
type AuditRepo struct{ s *Store }

// Log appends record. The referenced submission must exist.
func (r *AuditRepo) Log(ctx context.Context, record domain.AuditRecord) error {
	stored, err := copyOf(record)
	if err != nil {
		return err
	}
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.submissions[record.SubmissionID]; !ok {
			return fmt.Errorf("audit_record %s: submission %s: %w", record.ID, record.SubmissionID, domain.ErrNotFound)
		}
		st.audit = append(st.audit, stored)
		return nil
	})
}

// List returns the audit history of (category, organization) narrowed by q,
// newest first.
func (r *AuditRepo) List(ctx context.Context, q domain.AuditQuery) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	err := r.s.read(ctx, func(st *state) error {
		for _, rec := range st.audit {
			switch {
			case rec.CategoryID != q.CategoryID, rec.Organization != q.Organization:
				continue
			case q.SystemID != "" && rec.SystemID != q.SystemID:
				continue
			case q.EntityName != "" && rec.EntityName != q.EntityName:
				continue
			case q.Action != "" && rec.Action != q.Action:
				continue
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// newest first; records appended in the same instant keep reverse insertion order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return copyOf(paginate(out, q.Limit, q.Offset))
}
