package testhelper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// StudyDictionary returns a three-level dictionary study → participant → sample
// with a unique name, ready to be seeded.
func StudyDictionary() domain.Dictionary {
	return domain.Dictionary{
		ID:      uuid.New(),
		Name:    "clinical-" + uniqueSuffix(),
		Version: "1.0",
		Schemas: []domain.Schema{
			{
				Name: "study",
				Fields: []domain.Field{
					{Name: "study_id", ValueType: domain.ValueTypeString, Restrictions: domain.Restrictions{Required: true}},
					{Name: "name", ValueType: domain.ValueTypeString},
				},
			},
			{
				Name: "participant",
				Fields: []domain.Field{
					{Name: "participant_id", ValueType: domain.ValueTypeString, Restrictions: domain.Restrictions{Required: true}},
					{Name: "study_id", ValueType: domain.ValueTypeString, Restrictions: domain.Restrictions{Required: true}},
					{Name: "age", ValueType: domain.ValueTypeInteger},
				},
				ForeignKeys: []domain.ForeignKey{{
					Schema:   "study",
					Mappings: []domain.ForeignKeyMapping{{Local: "study_id", Foreign: "study_id"}},
				}},
			},
			{
				Name: "sample",
				Fields: []domain.Field{
					{Name: "sample_id", ValueType: domain.ValueTypeString, Restrictions: domain.Restrictions{Required: true}},
					{Name: "participant_id", ValueType: domain.ValueTypeString, Restrictions: domain.Restrictions{Required: true}},
				},
				ForeignKeys: []domain.ForeignKey{{
					Schema:   "participant",
					Mappings: []domain.ForeignKeyMapping{{Local: "participant_id", Foreign: "participant_id"}},
				}},
			},
		},
	}
}

// SeedDictionary inserts StudyDictionary and returns it.
func SeedDictionary(t *testing.T, pool *pgxpool.Pool) domain.Dictionary {
	t.Helper()
	ctx := context.Background()

	dict := StudyDictionary()
	dict.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	dict.CreatedBy = uuid.New()

	schemas, err := json.Marshal(dict.Schemas)
	if err != nil {
		t.Fatalf("testhelper: SeedDictionary marshal schemas: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO dictionaries (id, name, version, schemas, created_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		dict.ID, dict.Name, dict.Version, schemas, dict.CreatedAt, dict.CreatedBy,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedDictionary insert: %v", err)
	}

	return dict
}

// SeedCategory creates a fresh dictionary and a category pointing at it.
func SeedCategory(t *testing.T, pool *pgxpool.Pool) (domain.Category, domain.Dictionary) {
	t.Helper()
	ctx := context.Background()

	dict := SeedDictionary(t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	centric := "participant"
	cat := domain.Category{
		ID:                   uuid.New(),
		Name:                 "category-" + uniqueSuffix(),
		ActiveDictionaryID:   dict.ID,
		DefaultCentricEntity: &centric,
		CreatedAt:            now,
		CreatedBy:            dict.CreatedBy,
		UpdatedAt:            now,
		UpdatedBy:            dict.CreatedBy,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO categories (id, name, active_dictionary_id, default_centric_entity, created_at, created_by, updated_at, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cat.ID, cat.Name, cat.ActiveDictionaryID, cat.DefaultCentricEntity, cat.CreatedAt, cat.CreatedBy, cat.UpdatedAt, cat.UpdatedBy,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedCategory insert: %v", err)
	}

	return cat, dict
}

// SeedSubmission inserts an empty OPEN submission for (category, organization, user).
func SeedSubmission(t *testing.T, pool *pgxpool.Pool, cat domain.Category, organization string, userID uuid.UUID) domain.ActiveSubmission {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	sub := domain.ActiveSubmission{
		ID:           uuid.New(),
		CategoryID:   cat.ID,
		Organization: organization,
		DictionaryID: cat.ActiveDictionaryID,
		Status:       domain.SubmissionStatusOpen,
		CreatedAt:    now,
		CreatedBy:    userID,
		UpdatedAt:    now,
		UpdatedBy:    userID,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO active_submissions (id, category_id, organization, dictionary_id, status, data, errors, created_at, created_by, updated_at, updated_by)
		 VALUES ($1, $2, $3, $4, $5, '{}'::jsonb, '{}'::jsonb, $6, $7, $8, $9)`,
		sub.ID, sub.CategoryID, sub.Organization, sub.DictionaryID, string(sub.Status),
		sub.CreatedAt, sub.CreatedBy, sub.UpdatedAt, sub.UpdatedBy,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSubmission insert: %v", err)
	}

	return sub
}

// SeedSubmittedData inserts a valid record of entityName for (category, organization).
func SeedSubmittedData(t *testing.T, pool *pgxpool.Pool, cat domain.Category, organization, entityName string, data domain.DataRecord) domain.SubmittedData {
	t.Helper()
	ctx := context.Background()

	row := domain.SubmittedData{
		ID:               uuid.New(),
		SystemID:         "SYS" + uniqueSuffix(),
		EntityName:       entityName,
		Organization:     organization,
		CategoryID:       cat.ID,
		Data:             data,
		IsValid:          true,
		OriginalSchemaID: cat.ActiveDictionaryID,
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
		CreatedBy:        cat.CreatedBy,
	}

	raw, err := json.Marshal(row.Data)
	if err != nil {
		t.Fatalf("testhelper: SeedSubmittedData marshal: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO submitted_data (id, system_id, entity_name, organization, category_id, data, is_valid, original_schema_id, created_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.ID, row.SystemID, row.EntityName, row.Organization, row.CategoryID, raw, row.IsValid,
		row.OriginalSchemaID, row.CreatedAt, row.CreatedBy,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSubmittedData insert: %v", err)
	}

	return row
}
