package category_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/heartmarshall/submission-backend/internal/adapter/postgres/category"
	"github.com/heartmarshall/submission-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

func TestRepo_CreateGetUpdate(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := category.New(pool)
	ctx := context.Background()

	dict := testhelper.SeedDictionary(t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	cat := domain.Category{
		ID:                 uuid.New(),
		Name:               "cat-" + uuid.NewString()[:8],
		ActiveDictionaryID: dict.ID,
		CreatedAt:          now,
		CreatedBy:          dict.CreatedBy,
		UpdatedAt:          now,
		UpdatedBy:          dict.CreatedBy,
	}

	created, err := repo.Create(ctx, cat)
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}
	if created.DefaultCentricEntity != nil {
		t.Errorf("DefaultCentricEntity: got %v, want nil", *created.DefaultCentricEntity)
	}

	next := testhelper.SeedDictionary(t, pool)
	later := now.Add(time.Minute)
	updated, err := repo.UpdateActiveDictionary(ctx, cat.ID, next.ID, next.CreatedBy, later)
	if err != nil {
		t.Fatalf("UpdateActiveDictionary: unexpected error: %v", err)
	}
	if updated.ActiveDictionaryID != next.ID {
		t.Errorf("ActiveDictionaryID: got %s, want %s", updated.ActiveDictionaryID, next.ID)
	}

	got, err := repo.GetByID(ctx, cat.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if got.UpdatedBy != next.CreatedBy {
		t.Errorf("UpdatedBy: got %s, want %s", got.UpdatedBy, next.CreatedBy)
	}
}

func TestRepo_Create_UnknownDictionary(t *testing.T) {
	t.Parallel()
	repo := category.New(testhelper.SetupTestDB(t))

	now := time.Now().UTC()
	_, err := repo.Create(context.Background(), domain.Category{
		ID:                 uuid.New(),
		Name:               "orphan-" + uuid.NewString()[:8],
		ActiveDictionaryID: uuid.New(),
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Create: got %v, want ErrNotFound", err)
	}
}

func TestRepo_List_Mock(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	centric := "donor"
	rows := pgxmock.NewRows([]string{
		"id", "name", "active_dictionary_id", "default_centric_entity",
		"created_at", "created_by", "updated_at", "updated_by",
	}).
		AddRow(uuid.New(), "alpha", uuid.New(), &centric, now, uuid.New(), now, uuid.New()).
		AddRow(uuid.New(), "beta", uuid.New(), (*string)(nil), now, uuid.New(), now, uuid.New())
	mock.ExpectQuery(`SELECT .* FROM categories ORDER BY name ASC`).WillReturnRows(rows)

	got, err := category.New(mock).List(context.Background())
	if err != nil {
		t.Fatalf("List: unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List: got %d categories, want 2", len(got))
	}
	if got[0].DefaultCentricEntity == nil || *got[0].DefaultCentricEntity != "donor" {
		t.Errorf("first category centric entity: got %v", got[0].DefaultCentricEntity)
	}
	if got[1].DefaultCentricEntity != nil {
		t.Errorf("second category centric entity: got %v, want nil", *got[1].DefaultCentricEntity)
	}
}
