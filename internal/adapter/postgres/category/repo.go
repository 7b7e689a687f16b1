// Package category implements the Category repository using PostgreSQL.
package category

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/submission-backend/internal/adapter/postgres"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

const table = "categories"

var columns = []string{
	"id", "name", "active_dictionary_id", "default_centric_entity",
	"created_at", "created_by", "updated_at", "updated_by",
}

// Repo provides category persistence backed by PostgreSQL.
type Repo struct {
	db postgres.DB
}

// New creates a new category repository.
func New(db postgres.DB) *Repo {
	return &Repo{db: db}
}

// Create inserts a new category. A duplicate name yields domain.ErrAlreadyExists;
// an unknown dictionary yields domain.ErrNotFound.
func (r *Repo) Create(ctx context.Context, cat domain.Category) (domain.Category, error) {
	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns...).
		Values(cat.ID, cat.Name, cat.ActiveDictionaryID, cat.DefaultCentricEntity,
			cat.CreatedAt, cat.CreatedBy, cat.UpdatedAt, cat.UpdatedBy).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.Category{}, fmt.Errorf("build insert category: %w", err)
	}

	created, err := scanCategory(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.Category{}, postgres.MapError(err, "category", cat.ID)
	}
	return created, nil
}

// UpdateActiveDictionary points the category at another dictionary version.
func (r *Repo) UpdateActiveDictionary(ctx context.Context, id, dictionaryID, updatedBy uuid.UUID, updatedAt time.Time) (domain.Category, error) {
	query, args, err := postgres.Builder().
		Update(table).
		Set("active_dictionary_id", dictionaryID).
		Set("updated_at", updatedAt).
		Set("updated_by", updatedBy).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.Category{}, fmt.Errorf("build update category: %w", err)
	}

	updated, err := scanCategory(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.Category{}, postgres.MapError(err, "category", id)
	}
	return updated, nil
}

// GetByID returns the category with the given id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Category, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Category{}, fmt.Errorf("build get category: %w", err)
	}

	cat, err := scanCategory(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.Category{}, postgres.MapError(err, "category", id)
	}
	return cat, nil
}

// List returns all categories ordered by name.
func (r *Repo) List(ctx context.Context) ([]domain.Category, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list categories: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "category", "list")
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "category", "list")
	}
	return out, nil
}

func scanCategory(row pgx.Row) (domain.Category, error) {
	var cat domain.Category
	err := row.Scan(
		&cat.ID, &cat.Name, &cat.ActiveDictionaryID, &cat.DefaultCentricEntity,
		&cat.CreatedAt, &cat.CreatedBy, &cat.UpdatedAt, &cat.UpdatedBy,
	)
	return cat, err
}
