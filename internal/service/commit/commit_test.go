package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/submission-backend/internal/adapter/memory"
	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/identifier"
	"github.com/heartmarshall/submission-backend/internal/schemavalidator"
	"github.com/heartmarshall/submission-backend/internal/service/validation"
)

const org = "OICR"

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	store *memory.Store
	cat   domain.Category
	dict  domain.Dictionary
	user  uuid.UUID
	rows  map[string]domain.SubmittedData
}

func studyDictionary() domain.Dictionary {
	return domain.Dictionary{
		ID:      uuid.New(),
		Name:    "clinical",
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
				},
				ForeignKeys: []domain.ForeignKey{{
					Schema:   "study",
					Mappings: []domain.ForeignKeyMapping{{Local: "study_id", Foreign: "study_id"}},
				}},
			},
		},
	}
}

// newFixture stores study ST1 with participants P1 and P2.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	store := memory.New()

	dict, err := store.Dictionaries().Create(ctx, studyDictionary())
	require.NoError(t, err)
	cat, err := store.Categories().Create(ctx, domain.Category{
		ID: uuid.New(), Name: "clinical", ActiveDictionaryID: dict.ID, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	f := &fixture{store: store, cat: cat, dict: dict, user: uuid.New(), rows: make(map[string]domain.SubmittedData)}
	f.seed(t, "ST1", "study", domain.DataRecord{"study_id": "ST1", "name": "Pilot"})
	f.seed(t, "SP1", "participant", domain.DataRecord{"participant_id": "P1", "study_id": "ST1"})
	f.seed(t, "SP2", "participant", domain.DataRecord{"participant_id": "P2", "study_id": "ST1"})
	return f
}

func (f *fixture) seed(t *testing.T, systemID, entity string, data domain.DataRecord) {
	t.Helper()
	row, err := f.store.SubmittedData().Create(context.Background(), domain.SubmittedData{
		ID:               uuid.New(),
		SystemID:         systemID,
		EntityName:       entity,
		Organization:     org,
		CategoryID:       f.cat.ID,
		Data:             data,
		IsValid:          true,
		OriginalSchemaID: f.dict.ID,
		CreatedAt:        time.Now().UTC(),
	})
	require.NoError(t, err)
	f.rows[systemID] = row
}

func (f *fixture) submission(t *testing.T, status domain.SubmissionStatus, data domain.SubmissionData) domain.ActiveSubmission {
	t.Helper()
	now := time.Now().UTC()
	sub, err := f.store.Submissions().Create(context.Background(), domain.ActiveSubmission{
		ID:           uuid.New(),
		CategoryID:   f.cat.ID,
		Organization: org,
		DictionaryID: f.dict.ID,
		Status:       status,
		Data:         data,
		CreatedAt:    now,
		CreatedBy:    f.user,
		UpdatedAt:    now,
		UpdatedBy:    f.user,
	})
	require.NoError(t, err)
	return sub
}

func (f *fixture) service(t *testing.T, submissions submissionRepo, ids idGenerator) *Service {
	t.Helper()
	if submissions == nil {
		submissions = f.store.Submissions()
	}
	if ids == nil {
		gen, err := identifier.New(identifier.StrategyRandom)
		require.NoError(t, err)
		ids = gen
	}
	return NewService(
		slog.Default(),
		submissions,
		f.store.SubmittedData(),
		f.store.Categories(),
		f.store.Dictionaries(),
		f.store.Audit(),
		validation.NewValidator(schemavalidator.New()),
		ids,
		f.store,
	)
}

func (f *fixture) allRows(t *testing.T) []domain.SubmittedData {
	t.Helper()
	rows, err := f.store.SubmittedData().List(context.Background(), f.cat.ID, org, domain.SubmittedDataQuery{})
	require.NoError(t, err)
	return rows
}

func (f *fixture) auditLog(t *testing.T) []domain.AuditRecord {
	t.Helper()
	recs, err := f.store.Audit().List(context.Background(), domain.AuditQuery{CategoryID: f.cat.ID, Organization: org})
	require.NoError(t, err)
	return recs
}

// failingSubmissions fails the final status write of a commit.
type failingSubmissions struct {
	*memory.SubmissionRepo
}

func (r failingSubmissions) Update(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error) {
	if sub.Status == domain.SubmissionStatusCommitted {
		return domain.ActiveSubmission{}, fmt.Errorf("update submission: %w", domain.ErrServiceUnavailable)
	}
	return r.SubmissionRepo.Update(ctx, sub)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCommit_InsertAndDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sub := f.submission(t, domain.SubmissionStatusValid, domain.SubmissionData{
		Inserts: map[string]domain.InsertBatch{
			"participant": {BatchName: "participant.tsv", Records: []domain.DataRecord{{"participant_id": "P3", "study_id": "ST1"}}},
		},
		Deletes: map[string][]domain.SubmittedData{"participant": {f.rows["SP2"]}},
	})

	got, err := f.service(t, nil, nil).Commit(context.Background(), sub.ID, f.user)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusCommitted, got.Status)
	assert.Nil(t, got.Failure)

	rows := f.allRows(t)
	require.Len(t, rows, 3)
	var inserted []domain.SubmittedData
	for _, r := range rows {
		assert.NotEqual(t, "SP2", r.SystemID)
		if _, seeded := f.rows[r.SystemID]; !seeded {
			inserted = append(inserted, r)
		}
	}
	require.Len(t, inserted, 1)
	assert.Equal(t, "P3", inserted[0].Data["participant_id"])
	assert.True(t, inserted[0].IsValid)
	assert.Equal(t, f.dict.ID, inserted[0].OriginalSchemaID)
	require.NotNil(t, inserted[0].LastValidSchemaID)
	assert.Equal(t, f.dict.ID, *inserted[0].LastValidSchemaID)
	assert.Equal(t, f.user, inserted[0].CreatedBy)

	audit := f.auditLog(t)
	require.Len(t, audit, 1)
	assert.Equal(t, domain.AuditActionDelete, audit[0].Action)
	assert.Equal(t, "SP2", audit[0].SystemID)
	assert.Equal(t, sub.ID, audit[0].SubmissionID)
	assert.Equal(t, "P2", audit[0].DataDiff.Old["participant_id"])
	assert.Empty(t, audit[0].DataDiff.New)
	assert.True(t, audit[0].OldIsValid)
	assert.False(t, audit[0].NewIsValid)
}

func TestCommit_UpdateWritesDiffAudit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sub := f.submission(t, domain.SubmissionStatusValid, domain.SubmissionData{
		Updates: map[string][]domain.UpdateRecord{"study": {{
			SystemID: "ST1",
			Old:      domain.DataRecord{"name": "Pilot"},
			New:      domain.DataRecord{"name": "Main"},
		}}},
	})

	_, err := f.service(t, nil, nil).Commit(context.Background(), sub.ID, f.user)
	require.NoError(t, err)

	row, err := f.store.SubmittedData().GetBySystemID(context.Background(), "ST1")
	require.NoError(t, err)
	assert.Equal(t, "Main", row.Data["name"])
	require.NotNil(t, row.UpdatedBy)
	assert.Equal(t, f.user, *row.UpdatedBy)

	audit := f.auditLog(t)
	require.Len(t, audit, 1)
	assert.Equal(t, domain.AuditActionUpdate, audit[0].Action)
	assert.Equal(t, domain.DataDiff{
		Old: domain.DataRecord{"name": "Pilot"},
		New: domain.DataRecord{"name": "Main"},
	}, audit[0].DataDiff)
}

func TestCommit_RevalidatesOrphanedExistingRows(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sub := f.submission(t, domain.SubmissionStatusValid, domain.SubmissionData{
		Deletes: map[string][]domain.SubmittedData{"study": {f.rows["ST1"]}},
	})

	_, err := f.service(t, nil, nil).Commit(context.Background(), sub.ID, f.user)
	require.NoError(t, err)

	for _, r := range f.allRows(t) {
		assert.False(t, r.IsValid, r.SystemID)
		assert.Equal(t, f.rows[r.SystemID].LastValidSchemaID, r.LastValidSchemaID)
	}

	audit := f.auditLog(t)
	require.Len(t, audit, 3)
	actions := map[domain.AuditAction]int{}
	for _, a := range audit {
		actions[a.Action]++
		if a.Action == domain.AuditActionUpdate {
			assert.True(t, a.DataDiff.IsEmpty())
			assert.True(t, a.OldIsValid)
			assert.False(t, a.NewIsValid)
		}
	}
	assert.Equal(t, map[domain.AuditAction]int{domain.AuditActionDelete: 1, domain.AuditActionUpdate: 2}, actions)
}

func TestCommit_FailureOnLastWriteRollsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sub := f.submission(t, domain.SubmissionStatusValid, domain.SubmissionData{
		Inserts: map[string]domain.InsertBatch{
			"participant": {Records: []domain.DataRecord{{"participant_id": "P3", "study_id": "ST1"}}},
		},
		Deletes: map[string][]domain.SubmittedData{"participant": {f.rows["SP2"]}},
	})

	svc := f.service(t, failingSubmissions{f.store.Submissions()}, nil)
	_, err := svc.Commit(context.Background(), sub.ID, f.user)
	require.ErrorIs(t, err, domain.ErrServiceUnavailable)

	rows := f.allRows(t)
	require.Len(t, rows, 3)
	for _, r := range rows {
		_, seeded := f.rows[r.SystemID]
		assert.True(t, seeded, r.SystemID)
	}
	assert.Empty(t, f.auditLog(t))

	after, err := f.store.Submissions().GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusValid, after.Status)
}

func TestCommit_RequiresValidStatus(t *testing.T) {
	t.Parallel()
	for _, status := range []domain.SubmissionStatus{
		domain.SubmissionStatusOpen,
		domain.SubmissionStatusInvalid,
		domain.SubmissionStatusClosed,
		domain.SubmissionStatusCommitted,
	} {
		t.Run(status.String(), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			sub := f.submission(t, status, domain.SubmissionData{
				Deletes: map[string][]domain.SubmittedData{"participant": {f.rows["SP2"]}},
			})

			_, err := f.service(t, nil, nil).Commit(context.Background(), sub.ID, f.user)
			require.ErrorIs(t, err, domain.ErrStatusConflict)
			assert.Len(t, f.allRows(t), 3)
		})
	}
}

func TestCommit_UnknownSubmission(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.service(t, nil, nil).Commit(context.Background(), uuid.New(), f.user)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommit_SystemIDCollisionRetries(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sub := f.submission(t, domain.SubmissionStatusValid, domain.SubmissionData{
		Inserts: map[string]domain.InsertBatch{
			"participant": {Records: []domain.DataRecord{
				{"participant_id": "P3", "study_id": "ST1"},
				{"participant_id": "P4", "study_id": "ST1"},
			}},
		},
	})

	// first attempt collides with a stored row, then ids repeat within the commit
	ids := &idGeneratorMock{GenerateFunc: func(_, _ string, _ domain.DataRecord, attempt int) (string, error) {
		if attempt == 0 {
			return "SP1", nil
		}
		return fmt.Sprintf("NEW%d", attempt), nil
	}}

	_, err := f.service(t, nil, ids).Commit(context.Background(), sub.ID, f.user)
	require.NoError(t, err)

	for _, id := range []string{"NEW1", "NEW2"} {
		_, err := f.store.SubmittedData().GetBySystemID(context.Background(), id)
		assert.NoError(t, err, id)
	}
	assert.Len(t, ids.GenerateCalls(), 5)
}

func TestCommit_SystemIDExhausted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sub := f.submission(t, domain.SubmissionStatusValid, domain.SubmissionData{
		Inserts: map[string]domain.InsertBatch{
			"participant": {Records: []domain.DataRecord{{"participant_id": "P3", "study_id": "ST1"}}},
		},
	})
	ids := &idGeneratorMock{GenerateFunc: func(string, string, domain.DataRecord, int) (string, error) {
		return "SP1", nil
	}}

	_, err := f.service(t, nil, ids).Commit(context.Background(), sub.ID, f.user)
	require.ErrorIs(t, err, domain.ErrInternal)
	assert.Len(t, ids.GenerateCalls(), MaxIDAttempts)

	after, err := f.store.Submissions().GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusValid, after.Status)
}

func TestCommit_GeneratorError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sub := f.submission(t, domain.SubmissionStatusValid, domain.SubmissionData{
		Inserts: map[string]domain.InsertBatch{
			"study": {Records: []domain.DataRecord{{"study_id": "ST2"}}},
		},
	})
	boom := errors.New("entropy exhausted")
	ids := &idGeneratorMock{GenerateFunc: func(string, string, domain.DataRecord, int) (string, error) {
		return "", boom
	}}

	_, err := f.service(t, nil, ids).Commit(context.Background(), sub.ID, f.user)
	require.ErrorIs(t, err, boom)
}
