// Package submission implements the ActiveSubmission repository using PostgreSQL.
// Pending data, errors and task failures are stored as JSONB documents.
package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/submission-backend/internal/adapter/postgres"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

const table = "active_submissions"

var columns = []string{
	"id", "category_id", "organization", "dictionary_id", "status",
	"data", "errors", "failure",
	"created_at", "created_by", "updated_at", "updated_by",
}

// Repo provides active submission persistence backed by PostgreSQL.
type Repo struct {
	db postgres.DB
}

// New creates a new submission repository.
func New(db postgres.DB) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new submission. A second non-terminal submission for the
// same (category, organization, user) violates ux_active_submissions_open and
// yields domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error) {
	data, errs, failure, err := marshalDocuments(sub)
	if err != nil {
		return domain.ActiveSubmission{}, err
	}

	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns...).
		Values(sub.ID, sub.CategoryID, sub.Organization, sub.DictionaryID, string(sub.Status),
			data, errs, failure,
			sub.CreatedAt, sub.CreatedBy, sub.UpdatedAt, sub.UpdatedBy).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.ActiveSubmission{}, fmt.Errorf("build insert submission: %w", err)
	}

	created, err := scanSubmission(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.ActiveSubmission{}, postgres.MapError(err, "submission", sub.ID)
	}
	return created, nil
}

// Update overwrites the mutable state of a submission: status, dictionary,
// data, errors, failure and the updated_* audit columns.
func (r *Repo) Update(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error) {
	data, errs, failure, err := marshalDocuments(sub)
	if err != nil {
		return domain.ActiveSubmission{}, err
	}

	query, args, err := postgres.Builder().
		Update(table).
		Set("status", string(sub.Status)).
		Set("dictionary_id", sub.DictionaryID).
		Set("data", data).
		Set("errors", errs).
		Set("failure", failure).
		Set("updated_at", sub.UpdatedAt).
		Set("updated_by", sub.UpdatedBy).
		Where(sq.Eq{"id": sub.ID}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.ActiveSubmission{}, fmt.Errorf("build update submission: %w", err)
	}

	updated, err := scanSubmission(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.ActiveSubmission{}, postgres.MapError(err, "submission", sub.ID)
	}
	return updated, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns the submission with the given id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.ActiveSubmission, error) {
	return r.getOne(ctx, postgres.Builder().Select(columns...).From(table).Where(sq.Eq{"id": id}), id)
}

// GetByIDForUpdate returns the submission and locks its row until the
// surrounding transaction ends. Must be called inside TxManager.RunInTx.
func (r *Repo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.ActiveSubmission, error) {
	if !postgres.InTx(ctx) {
		return domain.ActiveSubmission{}, fmt.Errorf("submission %s: lock outside transaction: %w", id, domain.ErrInternal)
	}
	return r.getOne(ctx, postgres.Builder().Select(columns...).From(table).Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"), id)
}

// GetActive returns the non-terminal submission of (category, organization, user),
// or domain.ErrNotFound when there is none.
func (r *Repo) GetActive(ctx context.Context, categoryID uuid.UUID, organization string, userID uuid.UUID) (domain.ActiveSubmission, error) {
	builder := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{
			"category_id":  categoryID,
			"organization": organization,
			"created_by":   userID,
			"status":       statusStrings(domain.ActiveSubmissionStatuses),
		})
	return r.getOne(ctx, builder, organization)
}

// List returns submissions matching q, newest first.
func (r *Repo) List(ctx context.Context, q domain.SubmissionQuery) ([]domain.ActiveSubmission, error) {
	builder := postgres.Builder().
		Select(columns...).
		From(table).
		OrderBy("created_at DESC", "id")

	if q.CategoryID != uuid.Nil {
		builder = builder.Where(sq.Eq{"category_id": q.CategoryID})
	}
	if q.Organization != "" {
		builder = builder.Where(sq.Eq{"organization": q.Organization})
	}
	if q.OnlyActive {
		builder = builder.Where(sq.Eq{"status": statusStrings(domain.ActiveSubmissionStatuses)})
	}
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		builder = builder.Offset(uint64(q.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list submissions: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "submission", "list")
	}
	defer rows.Close()

	var out []domain.ActiveSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "submission", "list")
	}
	return out, nil
}

func (r *Repo) getOne(ctx context.Context, builder sq.SelectBuilder, id any) (domain.ActiveSubmission, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return domain.ActiveSubmission{}, fmt.Errorf("build get submission: %w", err)
	}

	sub, err := scanSubmission(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.ActiveSubmission{}, postgres.MapError(err, "submission", id)
	}
	return sub, nil
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

func marshalDocuments(sub domain.ActiveSubmission) (data, errs, failure []byte, err error) {
	if data, err = json.Marshal(sub.Data); err != nil {
		return nil, nil, nil, fmt.Errorf("submission %s marshal data: %w", sub.ID, err)
	}
	if errs, err = json.Marshal(sub.Errors); err != nil {
		return nil, nil, nil, fmt.Errorf("submission %s marshal errors: %w", sub.ID, err)
	}
	if sub.Failure != nil {
		if failure, err = json.Marshal(sub.Failure); err != nil {
			return nil, nil, nil, fmt.Errorf("submission %s marshal failure: %w", sub.ID, err)
		}
	}
	return data, errs, failure, nil
}

func scanSubmission(row pgx.Row) (domain.ActiveSubmission, error) {
	var (
		sub                 domain.ActiveSubmission
		status              string
		data, errs, failure []byte
	)
	err := row.Scan(
		&sub.ID, &sub.CategoryID, &sub.Organization, &sub.DictionaryID, &status,
		&data, &errs, &failure,
		&sub.CreatedAt, &sub.CreatedBy, &sub.UpdatedAt, &sub.UpdatedBy,
	)
	if err != nil {
		return domain.ActiveSubmission{}, err
	}
	sub.Status = domain.SubmissionStatus(status)

	if len(data) > 0 {
		if err := json.Unmarshal(data, &sub.Data); err != nil {
			return domain.ActiveSubmission{}, fmt.Errorf("submission %s unmarshal data: %w", sub.ID, err)
		}
	}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &sub.Errors); err != nil {
			return domain.ActiveSubmission{}, fmt.Errorf("submission %s unmarshal errors: %w", sub.ID, err)
		}
	}
	if len(failure) > 0 {
		sub.Failure = &domain.TaskFailure{}
		if err := json.Unmarshal(failure, sub.Failure); err != nil {
			return domain.ActiveSubmission{}, fmt.Errorf("submission %s unmarshal failure: %w", sub.ID, err)
		}
	}
	return sub, nil
}

func statusStrings(statuses []domain.SubmissionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
