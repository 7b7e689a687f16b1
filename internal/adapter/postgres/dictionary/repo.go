// Package dictionary implements the Dictionary repository using PostgreSQL.
// Dictionaries are immutable once created; schemas are stored as JSONB.
package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/submission-backend/internal/adapter/postgres"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

const table = "dictionaries"

var columns = []string{"id", "name", "version", "schemas", "created_at", "created_by"}

// Repo provides dictionary persistence backed by PostgreSQL.
type Repo struct {
	db postgres.DB
}

// New creates a new dictionary repository.
func New(db postgres.DB) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new dictionary. A duplicate (name, version) yields
// domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, dict domain.Dictionary) (domain.Dictionary, error) {
	schemas, err := json.Marshal(dict.Schemas)
	if err != nil {
		return domain.Dictionary{}, fmt.Errorf("dictionary marshal schemas: %w", err)
	}

	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns...).
		Values(dict.ID, dict.Name, dict.Version, schemas, dict.CreatedAt, dict.CreatedBy).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return domain.Dictionary{}, fmt.Errorf("build insert dictionary: %w", err)
	}

	row := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...)
	created, err := scanDictionary(row)
	if err != nil {
		return domain.Dictionary{}, postgres.MapError(err, "dictionary", dict.ID)
	}
	return created, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns the dictionary with the given id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Dictionary, error) {
	return r.getOne(ctx, sq.Eq{"id": id}, id)
}

// GetByNameVersion returns the dictionary identified by (name, version).
func (r *Repo) GetByNameVersion(ctx context.Context, name, version string) (domain.Dictionary, error) {
	return r.getOne(ctx, sq.Eq{"name": name, "version": version}, name+"@"+version)
}

// List returns all dictionaries ordered by name, then newest first.
func (r *Repo) List(ctx context.Context) ([]domain.Dictionary, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		OrderBy("name ASC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list dictionaries: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "dictionary", "list")
	}
	defer rows.Close()

	var out []domain.Dictionary
	for rows.Next() {
		dict, err := scanDictionary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dictionary: %w", err)
		}
		out = append(out, dict)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "dictionary", "list")
	}
	return out, nil
}

func (r *Repo) getOne(ctx context.Context, where sq.Sqlizer, id any) (domain.Dictionary, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(where).
		ToSql()
	if err != nil {
		return domain.Dictionary{}, fmt.Errorf("build get dictionary: %w", err)
	}

	row := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...)
	dict, err := scanDictionary(row)
	if err != nil {
		return domain.Dictionary{}, postgres.MapError(err, "dictionary", id)
	}
	return dict, nil
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

func scanDictionary(row pgx.Row) (domain.Dictionary, error) {
	var (
		dict    domain.Dictionary
		schemas []byte
	)
	if err := row.Scan(&dict.ID, &dict.Name, &dict.Version, &schemas, &dict.CreatedAt, &dict.CreatedBy); err != nil {
		return domain.Dictionary{}, err
	}
	if err := json.Unmarshal(schemas, &dict.Schemas); err != nil {
		return domain.Dictionary{}, fmt.Errorf("dictionary %s unmarshal schemas: %w", dict.ID, err)
	}
	dict.CreatedAt = dict.CreatedAt.In(time.UTC)
	return dict, nil
}
