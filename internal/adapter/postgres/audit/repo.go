// Package audit implements the submitted data audit repository using PostgreSQL.
// It provides append-only operations for audit records.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/submission-backend/internal/adapter/postgres"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

const table = "audit_submitted_data"

var columns = []string{
	"id", "action", "entity_name", "system_id", "data_diff", "old_is_valid", "new_is_valid",
	"submission_id", "organization", "category_id", "created_at", "created_by",
}

// Repo provides audit log persistence backed by PostgreSQL.
type Repo struct {
	db postgres.DB
}

// New creates a new audit repository.
func New(db postgres.DB) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new audit record and returns the persisted domain.AuditRecord.
func (r *Repo) Create(ctx context.Context, record domain.AuditRecord) (domain.AuditRecord, error) {
	diff, err := json.Marshal(record.DataDiff)
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("audit_record marshal diff: %w", err)
	}

	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns...).
		Values(record.ID, string(record.Action), record.EntityName, record.SystemID, diff,
			record.OldIsValid, record.NewIsValid, record.SubmissionID, record.Organization,
			record.CategoryID, record.CreatedAt, record.CreatedBy).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("build insert audit_record: %w", err)
	}

	created, err := scanRecord(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.AuditRecord{}, postgres.MapError(err, "audit_record", record.ID)
	}
	return created, nil
}

// Log creates an audit record without returning it.
// Satisfies commit.auditLogger.
func (r *Repo) Log(ctx context.Context, record domain.AuditRecord) error {
	_, err := r.Create(ctx, record)
	return err
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// List returns the audit history of (category, organization) narrowed by q,
// ordered by created_at DESC.
func (r *Repo) List(ctx context.Context, q domain.AuditQuery) ([]domain.AuditRecord, error) {
	builder := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"category_id": q.CategoryID, "organization": q.Organization}).
		OrderBy("created_at DESC", "id")

	if q.SystemID != "" {
		builder = builder.Where(sq.Eq{"system_id": q.SystemID})
	}
	if q.EntityName != "" {
		builder = builder.Where(sq.Eq{"entity_name": q.EntityName})
	}
	if q.Action != "" {
		builder = builder.Where(sq.Eq{"action": string(q.Action)})
	}
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		builder = builder.Offset(uint64(q.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit_records: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "audit_record", q.Organization)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "audit_record", q.Organization)
	}
	return records, nil
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

func scanRecord(row pgx.Row) (domain.AuditRecord, error) {
	var (
		rec    domain.AuditRecord
		action string
		diff   []byte
	)
	err := row.Scan(
		&rec.ID, &action, &rec.EntityName, &rec.SystemID, &diff, &rec.OldIsValid, &rec.NewIsValid,
		&rec.SubmissionID, &rec.Organization, &rec.CategoryID, &rec.CreatedAt, &rec.CreatedBy,
	)
	if err != nil {
		return domain.AuditRecord{}, err
	}
	rec.Action = domain.AuditAction(action)

	// data_diff: JSONB -> {old, new}
	if len(diff) > 0 {
		if err := json.Unmarshal(diff, &rec.DataDiff); err != nil {
			return domain.AuditRecord{}, fmt.Errorf("audit_record %s unmarshal diff: %w", rec.ID, err)
		}
	}
	return rec, nil
}
