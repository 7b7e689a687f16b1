package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/heartmarshall/submission-backend/internal/adapter/postgres/audit"
	"github.com/heartmarshall/submission-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// buildAuditRecord creates a domain.AuditRecord for testing.
func buildAuditRecord(sub domain.ActiveSubmission, action domain.AuditAction, systemID string, diff domain.DataDiff) domain.AuditRecord {
	return domain.AuditRecord{
		ID:           uuid.New(),
		Action:       action,
		EntityName:   "participant",
		SystemID:     systemID,
		DataDiff:     diff,
		OldIsValid:   true,
		NewIsValid:   action == domain.AuditActionUpdate,
		SubmissionID: sub.ID,
		Organization: sub.Organization,
		CategoryID:   sub.CategoryID,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
		CreatedBy:    sub.CreatedBy,
	}
}

// ---------------------------------------------------------------------------
// Create tests
// ---------------------------------------------------------------------------

func TestRepo_Create_HappyPath(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := audit.New(pool)
	ctx := context.Background()
	cat, _ := testhelper.SeedCategory(t, pool)
	sub := testhelper.SeedSubmission(t, pool, cat, "ORG1", uuid.New())

	input := buildAuditRecord(sub, domain.AuditActionDelete, "P1", domain.DataDiff{
		Old: domain.DataRecord{"participant_id": "P1"},
		New: domain.DataRecord{},
	})

	got, err := repo.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	if got.ID != input.ID {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, input.ID)
	}
	if got.Action != domain.AuditActionDelete {
		t.Errorf("Action mismatch: got %s, want %s", got.Action, domain.AuditActionDelete)
	}
	if got.DataDiff.Old["participant_id"] != "P1" {
		t.Errorf("DataDiff.Old mismatch: got %v", got.DataDiff.Old)
	}
	if len(got.DataDiff.New) != 0 {
		t.Errorf("DataDiff.New: got %v, want empty", got.DataDiff.New)
	}
	if got.SubmissionID != sub.ID {
		t.Errorf("SubmissionID mismatch: got %s, want %s", got.SubmissionID, sub.ID)
	}
}

func TestRepo_Create_UnknownSubmission(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	cat, _ := testhelper.SeedCategory(t, pool)

	orphan := domain.ActiveSubmission{ID: uuid.New(), CategoryID: cat.ID, Organization: "ORG1"}
	err := audit.New(pool).Log(context.Background(), buildAuditRecord(orphan, domain.AuditActionUpdate, "P1", domain.DataDiff{}))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Log: got %v, want ErrNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// List tests
// ---------------------------------------------------------------------------

func TestRepo_List_Filters(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := audit.New(pool)
	ctx := context.Background()
	cat, _ := testhelper.SeedCategory(t, pool)
	sub := testhelper.SeedSubmission(t, pool, cat, "ORG1", uuid.New())

	for _, rec := range []domain.AuditRecord{
		buildAuditRecord(sub, domain.AuditActionUpdate, "P1", domain.DataDiff{Old: domain.DataRecord{"age": 1}, New: domain.DataRecord{"age": 2}}),
		buildAuditRecord(sub, domain.AuditActionDelete, "P1", domain.DataDiff{Old: domain.DataRecord{"age": 2}, New: domain.DataRecord{}}),
		buildAuditRecord(sub, domain.AuditActionDelete, "P2", domain.DataDiff{Old: domain.DataRecord{"age": 9}, New: domain.DataRecord{}}),
	} {
		if err := repo.Log(ctx, rec); err != nil {
			t.Fatalf("Log: unexpected error: %v", err)
		}
	}

	tests := []struct {
		name  string
		query domain.AuditQuery
		want  int
	}{
		{"all", domain.AuditQuery{}, 3},
		{"by system id", domain.AuditQuery{SystemID: "P1"}, 2},
		{"by action", domain.AuditQuery{Action: domain.AuditActionDelete}, 2},
		{"by system id and action", domain.AuditQuery{SystemID: "P1", Action: domain.AuditActionUpdate}, 1},
		{"paged", domain.AuditQuery{Limit: 2}, 2},
		{"other organization", domain.AuditQuery{Organization: "ORG2"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			q.CategoryID = cat.ID
			if q.Organization == "" {
				q.Organization = "ORG1"
			}
			got, err := repo.List(ctx, q)
			if err != nil {
				t.Fatalf("List: unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List: got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestRepo_List_Mock_Shape(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	catID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM audit_submitted_data WHERE category_id = \$1 AND organization = \$2 AND system_id = \$3 AND action = \$4 ORDER BY created_at DESC, id LIMIT 10`).
		WithArgs(catID, "ORG1", "P1", "DELETE").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "action", "entity_name", "system_id", "data_diff", "old_is_valid", "new_is_valid",
			"submission_id", "organization", "category_id", "created_at", "created_by",
		}).AddRow(uuid.New(), "DELETE", "participant", "P1", []byte(`{"old":{"a":1},"new":{}}`), true, false,
			uuid.New(), "ORG1", catID, time.Now(), uuid.New()))

	got, err := audit.New(mock).List(context.Background(), domain.AuditQuery{
		CategoryID: catID, Organization: "ORG1", SystemID: "P1", Action: domain.AuditActionDelete, Limit: 10,
	})
	if err != nil {
		t.Fatalf("List: unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].DataDiff.Old["a"] != float64(1) {
		t.Errorf("List: got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
