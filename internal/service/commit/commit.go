package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/datadiff"
	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/service/validation"
)

// Stats counts the rows touched by one commit.
type Stats struct {
	Inserted    int
	Updated     int
	Revalidated int
	Deleted     int
}

// commitRun carries the state of one commit transaction.
type commitRun struct {
	sub      domain.ActiveSubmission
	dict     domain.Dictionary
	userID   uuid.UUID
	now      time.Time
	assigned map[string]struct{}
	stats    Stats
}

// Commit promotes the submission: pending updates and inserts are written
// with the validity computed on the as-if-committed dataset, pending deletes
// are removed, and every update and delete is audited. The submission ends
// COMMITTED. Any failure rolls the whole commit back and leaves the
// submission untouched.
func (s *Service) Commit(ctx context.Context, submissionID, userID uuid.UUID) (domain.ActiveSubmission, error) {
	var (
		committed domain.ActiveSubmission
		stats     Stats
	)

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.submissions.GetByIDForUpdate(txCtx, submissionID)
		if err != nil {
			return fmt.Errorf("lock submission: %w", err)
		}
		if sub.Status != domain.SubmissionStatusValid {
			return fmt.Errorf("submission %s is %s, want %s: %w",
				sub.ID, sub.Status, domain.SubmissionStatusValid, domain.ErrStatusConflict)
		}

		cat, err := s.categories.GetByID(txCtx, sub.CategoryID)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		dict, err := s.dicts.GetByID(txCtx, cat.ActiveDictionaryID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("active dictionary %s of category %s: %w", cat.ActiveDictionaryID, cat.ID, domain.ErrInternal)
			}
			return fmt.Errorf("get dictionary: %w", err)
		}

		existing, err := s.data.List(txCtx, sub.CategoryID, sub.Organization, domain.SubmittedDataQuery{})
		if err != nil {
			return fmt.Errorf("list submitted data: %w", err)
		}

		run := &commitRun{
			sub:      sub,
			dict:     dict,
			userID:   userID,
			now:      s.now().UTC(),
			assigned: make(map[string]struct{}),
		}

		eval := s.validator.Evaluate(&dict, existing, sub.Data)
		for _, entity := range eval.Dataset.EntityNames() {
			for _, entry := range eval.Dataset[entity] {
				if err := s.write(txCtx, run, entity, entry); err != nil {
					return err
				}
			}
		}

		if err := s.deleteRows(txCtx, run); err != nil {
			return err
		}

		sub.Status = domain.SubmissionStatusCommitted
		sub.DictionaryID = dict.ID
		sub.Failure = nil
		sub.UpdatedAt = run.now
		sub.UpdatedBy = userID
		committed, err = s.submissions.Update(txCtx, sub)
		if err != nil {
			return fmt.Errorf("update submission: %w", err)
		}
		stats = run.stats
		return nil
	})
	if err != nil {
		return domain.ActiveSubmission{}, err
	}

	s.log.InfoContext(ctx, "submission committed",
		slog.String("submission_id", committed.ID.String()),
		slog.String("organization", committed.Organization),
		slog.Int("inserted", stats.Inserted),
		slog.Int("updated", stats.Updated),
		slog.Int("revalidated", stats.Revalidated),
		slog.Int("deleted", stats.Deleted),
	)

	return committed, nil
}

// write persists one dataset entry according to its provenance.
func (s *Service) write(ctx context.Context, run *commitRun, entity string, entry validation.Entry) error {
	valid := entry.IsValid()

	switch ref := entry.Ref.(type) {
	case validation.InsertRef:
		systemID, err := s.newSystemID(ctx, run, entity, entry.Data)
		if err != nil {
			return err
		}
		row := domain.SubmittedData{
			ID:               uuid.New(),
			SystemID:         systemID,
			EntityName:       entity,
			Organization:     run.sub.Organization,
			CategoryID:       run.sub.CategoryID,
			Data:             entry.Data,
			IsValid:          valid,
			OriginalSchemaID: run.dict.ID,
			CreatedAt:        run.now,
			CreatedBy:        run.userID,
		}
		if valid {
			row.LastValidSchemaID = &run.dict.ID
		}
		if _, err := s.data.Create(ctx, row); err != nil {
			return fmt.Errorf("insert %s record %d: %w", entity, ref.Index, err)
		}
		run.stats.Inserted++

	case validation.UpdateRef:
		diff := datadiff.ComputeDiff(ref.Prior.Data, entry.Data)
		if err := s.updateRow(ctx, run, ref.Prior, entry.Data, valid); err != nil {
			return err
		}
		if err := s.logAudit(ctx, run, domain.AuditActionUpdate, ref.Prior, diff, valid); err != nil {
			return err
		}
		run.stats.Updated++

	case validation.ExistingRef:
		if ref.Prior.IsValid == valid {
			return nil
		}
		if err := s.updateRow(ctx, run, ref.Prior, ref.Prior.Data, valid); err != nil {
			return err
		}
		empty := domain.DataDiff{Old: domain.DataRecord{}, New: domain.DataRecord{}}
		if err := s.logAudit(ctx, run, domain.AuditActionUpdate, ref.Prior, empty, valid); err != nil {
			return err
		}
		run.stats.Revalidated++

	default:
		return fmt.Errorf("dataset entry of %s has unknown provenance %T: %w", entity, ref, domain.ErrInternal)
	}
	return nil
}

func (s *Service) updateRow(ctx context.Context, run *commitRun, prior domain.SubmittedData, data domain.DataRecord, valid bool) error {
	row := prior
	row.Data = data
	row.IsValid = valid
	if valid {
		row.LastValidSchemaID = &run.dict.ID
	}
	row.UpdatedAt = &run.now
	row.UpdatedBy = &run.userID
	if _, err := s.data.Update(ctx, row); err != nil {
		return fmt.Errorf("update %s %s: %w", prior.EntityName, prior.SystemID, err)
	}
	return nil
}

// deleteRows removes the pending deletes. Rows already gone are skipped.
func (s *Service) deleteRows(ctx context.Context, run *commitRun) error {
	entities := make([]string, 0, len(run.sub.Data.Deletes))
	for entity := range run.sub.Data.Deletes {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	for _, entity := range entities {
		for _, pending := range run.sub.Data.Deletes[entity] {
			cur, err := s.data.GetBySystemID(ctx, pending.SystemID)
			if errors.Is(err, domain.ErrNotFound) {
				s.log.WarnContext(ctx, "pending delete already gone",
					slog.String("submission_id", run.sub.ID.String()),
					slog.String("system_id", pending.SystemID),
				)
				continue
			}
			if err != nil {
				return fmt.Errorf("get %s %s: %w", entity, pending.SystemID, err)
			}
			if cur.CategoryID != run.sub.CategoryID || cur.Organization != run.sub.Organization {
				return fmt.Errorf("delete %s: record belongs to another category or organization: %w",
					pending.SystemID, domain.ErrInternal)
			}

			if err := s.data.Delete(ctx, cur.ID); err != nil {
				return fmt.Errorf("delete %s %s: %w", entity, cur.SystemID, err)
			}
			diff := domain.DataDiff{Old: cur.Data, New: domain.DataRecord{}}
			if err := s.logAudit(ctx, run, domain.AuditActionDelete, cur, diff, false); err != nil {
				return err
			}
			run.stats.Deleted++
		}
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, run *commitRun, action domain.AuditAction, prior domain.SubmittedData, diff domain.DataDiff, newValid bool) error {
	err := s.audit.Log(ctx, domain.AuditRecord{
		ID:           uuid.New(),
		Action:       action,
		EntityName:   prior.EntityName,
		SystemID:     prior.SystemID,
		DataDiff:     diff,
		OldIsValid:   prior.IsValid,
		NewIsValid:   newValid,
		SubmissionID: run.sub.ID,
		Organization: run.sub.Organization,
		CategoryID:   run.sub.CategoryID,
		CreatedAt:    run.now,
		CreatedBy:    run.userID,
	})
	if err != nil {
		return fmt.Errorf("audit %s %s: %w", action, prior.SystemID, err)
	}
	return nil
}

// newSystemID issues an unused systemId. Ids handed out earlier in the same
// commit count as used.
func (s *Service) newSystemID(ctx context.Context, run *commitRun, entity string, record domain.DataRecord) (string, error) {
	for attempt := 0; attempt < MaxIDAttempts; attempt++ {
		id, err := s.ids.Generate(run.sub.Organization, entity, record, attempt)
		if err != nil {
			return "", fmt.Errorf("generate system id: %w", err)
		}
		if _, taken := run.assigned[id]; taken {
			continue
		}
		exists, err := s.data.ExistsBySystemID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check system id: %w", err)
		}
		if !exists {
			run.assigned[id] = struct{}{}
			return id, nil
		}
	}
	return "", fmt.Errorf("system id for %s collided %d times: %w", entity, MaxIDAttempts, domain.ErrInternal)
}
