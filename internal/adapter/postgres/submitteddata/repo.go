// Package submitteddata implements the SubmittedData repository using PostgreSQL.
// Rows are only written by the commit pipeline. Reads serve the cascade
// resolver, the cross-entity validator and the read API.
package submitteddata

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

const table = "submitted_data"

var columns = []string{
	"id", "system_id", "entity_name", "organization", "category_id", "data", "is_valid",
	"original_schema_id", "last_valid_schema_id",
	"created_at", "created_by", "updated_at", "updated_by",
}

// Repo provides submitted data persistence backed by PostgreSQL.
type Repo struct {
	db postgres.DB
}

// New creates a new submitted data repository.
func New(db postgres.DB) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new row. A reused system_id yields domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, row domain.SubmittedData) (domain.SubmittedData, error) {
	data, err := json.Marshal(row.Data)
	if err != nil {
		return domain.SubmittedData{}, fmt.Errorf("submitted_data marshal data: %w", err)
	}

	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns...).
		Values(row.ID, row.SystemID, row.EntityName, row.Organization, row.CategoryID, data, row.IsValid,
			row.OriginalSchemaID, row.LastValidSchemaID,
			row.CreatedAt, row.CreatedBy, row.UpdatedAt, row.UpdatedBy).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.SubmittedData{}, fmt.Errorf("build insert submitted_data: %w", err)
	}

	created, err := scanRow(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.SubmittedData{}, postgres.MapError(err, "submitted_data", row.SystemID)
	}
	return created, nil
}

// Update rewrites data, validity and the last valid schema of an existing row.
func (r *Repo) Update(ctx context.Context, row domain.SubmittedData) (domain.SubmittedData, error) {
	data, err := json.Marshal(row.Data)
	if err != nil {
		return domain.SubmittedData{}, fmt.Errorf("submitted_data marshal data: %w", err)
	}

	query, args, err := postgres.Builder().
		Update(table).
		Set("data", data).
		Set("is_valid", row.IsValid).
		Set("last_valid_schema_id", row.LastValidSchemaID).
		Set("updated_at", row.UpdatedAt).
		Set("updated_by", row.UpdatedBy).
		Where(sq.Eq{"id": row.ID}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.SubmittedData{}, fmt.Errorf("build update submitted_data: %w", err)
	}

	updated, err := scanRow(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.SubmittedData{}, postgres.MapError(err, "submitted_data", row.SystemID)
	}
	return updated, nil
}

// Delete removes the row with the given id.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := postgres.Builder().
		Delete(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete submitted_data: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, "submitted_data", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("submitted_data %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetBySystemID returns the row carrying systemID.
func (r *Repo) GetBySystemID(ctx context.Context, systemID string) (domain.SubmittedData, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"system_id": systemID}).
		ToSql()
	if err != nil {
		return domain.SubmittedData{}, fmt.Errorf("build get submitted_data: %w", err)
	}

	row, err := scanRow(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.SubmittedData{}, postgres.MapError(err, "submitted_data", systemID)
	}
	return row, nil
}

// ExistsBySystemID reports whether any row carries systemID.
func (r *Repo) ExistsBySystemID(ctx context.Context, systemID string) (bool, error) {
	var exists bool
	err := postgres.QuerierFromCtx(ctx, r.db).
		QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM submitted_data WHERE system_id = $1)`, systemID).
		Scan(&exists)
	if err != nil {
		return false, postgres.MapError(err, "submitted_data", systemID)
	}
	return exists, nil
}

// ListByFilter returns the rows of f.EntityName in (category, organization)
// whose data[f.DataField] equals f.DataValue. Equality is JSON equality via
// containment, served by the GIN index on data.
func (r *Repo) ListByFilter(ctx context.Context, categoryID uuid.UUID, organization string, f domain.DataFilter) ([]domain.SubmittedData, error) {
	probe, err := json.Marshal(map[string]any{f.DataField: f.DataValue})
	if err != nil {
		return nil, fmt.Errorf("submitted_data marshal filter: %w", err)
	}

	builder := scope(categoryID, organization).
		Where(sq.Eq{"entity_name": f.EntityName}).
		Where(sq.Expr("data @> ?::jsonb", string(probe))).
		OrderBy("system_id")

	return r.list(ctx, builder)
}

// List returns the rows of (category, organization) matching q, ordered by
// entity name then system id. Limit 0 means no limit.
func (r *Repo) List(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) ([]domain.SubmittedData, error) {
	builder := applyQuery(scope(categoryID, organization), q).OrderBy("entity_name", "system_id")
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		builder = builder.Offset(uint64(q.Offset))
	}
	return r.list(ctx, builder)
}

// Count returns how many rows of (category, organization) match q, ignoring
// pagination.
func (r *Repo) Count(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) (int, error) {
	builder := applyQuery(
		postgres.Builder().Select("count(*)").From(table).
			Where(sq.Eq{"category_id": categoryID, "organization": organization}),
		q,
	)

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count submitted_data: %w", err)
	}

	var n int
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, postgres.MapError(err, "submitted_data", organization)
	}
	return n, nil
}

func (r *Repo) list(ctx context.Context, builder sq.SelectBuilder) ([]domain.SubmittedData, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list submitted_data: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "submitted_data", "list")
	}
	defer rows.Close()

	var out []domain.SubmittedData
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submitted_data: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "submitted_data", "list")
	}
	return out, nil
}

func scope(categoryID uuid.UUID, organization string) sq.SelectBuilder {
	return postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"category_id": categoryID, "organization": organization})
}

func applyQuery(builder sq.SelectBuilder, q domain.SubmittedDataQuery) sq.SelectBuilder {
	if len(q.EntityNames) > 0 {
		builder = builder.Where(sq.Eq{"entity_name": q.EntityNames})
	}
	if q.OnlyValid {
		builder = builder.Where(sq.Eq{"is_valid": true})
	}
	if q.Predicate != nil {
		builder = builder.Where(q.Predicate)
	}
	return builder
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

func scanRow(row pgx.Row) (domain.SubmittedData, error) {
	var (
		sd   domain.SubmittedData
		data []byte
	)
	err := row.Scan(
		&sd.ID, &sd.SystemID, &sd.EntityName, &sd.Organization, &sd.CategoryID, &data, &sd.IsValid,
		&sd.OriginalSchemaID, &sd.LastValidSchemaID,
		&sd.CreatedAt, &sd.CreatedBy, &sd.UpdatedAt, &sd.UpdatedBy,
	)
	if err != nil {
		return domain.SubmittedData{}, err
	}
	if err := json.Unmarshal(data, &sd.Data); err != nil {
		return domain.SubmittedData{}, fmt.Errorf("submitted_data %s unmarshal data: %w", sd.SystemID, err)
	}
	return sd, nil
}
