package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/worker"
	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

// mutation changes the staged data of a locked submission. dict is the
// category's current active dictionary.
type mutation func(sub *domain.ActiveSubmission, dict *domain.Dictionary) error

// mutate locks the submission, applies fn and revalidates the result against
// everything committed for the organization, all in one transaction.
func (s *Service) mutate(ctx context.Context, submissionID, userID uuid.UUID, fn mutation) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.submissions.GetByIDForUpdate(txCtx, submissionID)
		if err != nil {
			return fmt.Errorf("lock submission: %w", err)
		}
		if sub.Status.IsTerminal() {
			return fmt.Errorf("submission %s is %s: %w", sub.ID, sub.Status, domain.ErrStatusConflict)
		}

		_, dict, err := s.activeDictionary(txCtx, sub.CategoryID)
		if err != nil {
			return err
		}

		if err := fn(&sub, &dict); err != nil {
			return err
		}
		sub.Data = prune(sub.Data)

		if err := s.revalidate(txCtx, &sub, &dict); err != nil {
			return err
		}

		sub.DictionaryID = dict.ID
		sub.Failure = nil
		sub.UpdatedAt = s.now().UTC()
		sub.UpdatedBy = userID
		if _, err := s.submissions.Update(txCtx, sub); err != nil {
			return fmt.Errorf("update submission: %w", err)
		}
		return nil
	})
}

// revalidate sets status and errors of sub. An empty submission is OPEN.
func (s *Service) revalidate(ctx context.Context, sub *domain.ActiveSubmission, dict *domain.Dictionary) error {
	if sub.Data.IsEmpty() {
		sub.Status = domain.SubmissionStatusOpen
		sub.Errors = domain.SubmissionErrors{}
		return nil
	}

	existing, err := s.validationBase(ctx, sub)
	if err != nil {
		return err
	}
	res := s.validator.Validate(dict, existing, sub.Data)
	sub.Status = res.Status
	sub.Errors = res.Errors
	return nil
}

// validationBase returns the committed records a submission is checked
// against: every valid record of its category and organization, plus the
// invalid records it updates, so an edit can repair them. Invalid records do
// not satisfy references.
func (s *Service) validationBase(ctx context.Context, sub *domain.ActiveSubmission) ([]domain.SubmittedData, error) {
	existing, err := s.data.List(ctx, sub.CategoryID, sub.Organization, domain.SubmittedDataQuery{OnlyValid: true})
	if err != nil {
		return nil, fmt.Errorf("list submitted data: %w", err)
	}

	loaded := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		loaded[row.SystemID] = struct{}{}
	}
	for _, updates := range sub.Data.Updates {
		for _, u := range updates {
			if _, ok := loaded[u.SystemID]; ok {
				continue
			}
			row, err := s.data.GetBySystemID(ctx, u.SystemID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("get submitted data %s: %w", u.SystemID, err)
			}
			if row.CategoryID != sub.CategoryID || row.Organization != sub.Organization {
				continue
			}
			loaded[row.SystemID] = struct{}{}
			existing = append(existing, row)
		}
	}
	return existing, nil
}

// activeDictionary loads a category and the dictionary it validates against.
// An unknown category is the caller's mistake; a missing dictionary is not.
func (s *Service) activeDictionary(ctx context.Context, categoryID uuid.UUID) (domain.Category, domain.Dictionary, error) {
	cat, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Category{}, domain.Dictionary{}, fmt.Errorf("category %s: %w", categoryID, domain.ErrBadRequest)
		}
		return domain.Category{}, domain.Dictionary{}, fmt.Errorf("get category: %w", err)
	}
	dict, err := s.dicts.GetByID(ctx, cat.ActiveDictionaryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Category{}, domain.Dictionary{}, fmt.Errorf("active dictionary %s of category %s: %w", cat.ActiveDictionaryID, cat.ID, domain.ErrInternal)
		}
		return domain.Category{}, domain.Dictionary{}, fmt.Errorf("get dictionary: %w", err)
	}
	return cat, dict, nil
}

// getOrCreate returns the caller's non-terminal submission for the category
// and organization, creating an empty OPEN one when there is none.
func (s *Service) getOrCreate(ctx context.Context, cat domain.Category, dict domain.Dictionary, organization string, userID uuid.UUID) (domain.ActiveSubmission, error) {
	sub, err := s.submissions.GetActive(ctx, cat.ID, organization, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.ActiveSubmission{}, fmt.Errorf("get active submission: %w", err)
	}

	now := s.now().UTC()
	sub, err = s.submissions.Create(ctx, domain.ActiveSubmission{
		ID:           uuid.New(),
		CategoryID:   cat.ID,
		Organization: organization,
		DictionaryID: dict.ID,
		Status:       domain.SubmissionStatusOpen,
		CreatedAt:    now,
		CreatedBy:    userID,
		UpdatedAt:    now,
		UpdatedBy:    userID,
	})
	switch {
	case err == nil:
		s.log.InfoContext(ctx, "submission opened",
			slog.String("submission_id", sub.ID.String()),
			slog.String("category_id", cat.ID.String()),
			slog.String("organization", organization),
			slog.String("user_id", userID.String()),
		)
		return sub, nil
	case errors.Is(err, domain.ErrAlreadyExists):
		// a concurrent call created it first
		sub, err = s.submissions.GetActive(ctx, cat.ID, organization, userID)
		if err != nil {
			return domain.ActiveSubmission{}, fmt.Errorf("get active submission: %w", err)
		}
		return sub, nil
	default:
		return domain.ActiveSubmission{}, fmt.Errorf("create submission: %w", err)
	}
}

// enqueue schedules run as a background mutation of the submission. The task
// context carries the identity and request id of ctx.
func (s *Service) enqueue(ctx context.Context, submissionID uuid.UUID, operation string, run func(ctx context.Context) error) error {
	err := s.tasks.Submit(worker.Task{
		Key:       submissionID,
		Operation: operation,
		Run: func(taskCtx context.Context) error {
			return run(ctxutil.Propagate(taskCtx, ctx))
		},
	})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", operation, errors.Join(domain.ErrServiceUnavailable, err))
	}
	return nil
}

// RecordFailure stores a task failure on its submission so callers can see
// it. Terminal submissions are left alone. It is the worker failure handler.
func (s *Service) RecordFailure(ctx context.Context, task worker.Task, taskErr error) {
	log := s.log.With(
		slog.String("submission_id", task.Key.String()),
		slog.String("operation", task.Operation),
	)

	recorded := false
	var terminal domain.SubmissionStatus
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.submissions.GetByIDForUpdate(txCtx, task.Key)
		if err != nil {
			return err
		}
		if sub.Status.IsTerminal() {
			terminal = sub.Status
			return nil
		}
		sub.Failure = &domain.TaskFailure{
			Operation:  task.Operation,
			Message:    taskErr.Error(),
			OccurredAt: s.now().UTC(),
		}
		if _, err := s.submissions.Update(txCtx, sub); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		log.ErrorContext(ctx, "record task failure", slog.String("task_error", taskErr.Error()), slog.String("error", err.Error()))
		return
	}
	if terminal != "" {
		log.WarnContext(ctx, "queued changes discarded",
			slog.String("status", terminal.String()),
			slog.String("error", taskErr.Error()),
		)
		return
	}
	log.WarnContext(ctx, "task failed", slog.String("error", taskErr.Error()), slog.Bool("recorded", recorded))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func currentUser(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return userID, nil
}

// ownedMutable loads a submission the caller may change.
func (s *Service) ownedMutable(ctx context.Context, submissionID, userID uuid.UUID) (domain.ActiveSubmission, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return domain.ActiveSubmission{}, fmt.Errorf("get submission: %w", err)
	}
	if sub.CreatedBy != userID {
		return domain.ActiveSubmission{}, fmt.Errorf("submission %s belongs to another user: %w", sub.ID, domain.ErrForbidden)
	}
	if sub.Status.IsTerminal() {
		return domain.ActiveSubmission{}, fmt.Errorf("submission %s is %s: %w", sub.ID, sub.Status, domain.ErrStatusConflict)
	}
	return sub, nil
}

// prune drops entities left without pending changes.
func prune(data domain.SubmissionData) domain.SubmissionData {
	for entity, b := range data.Inserts {
		if len(b.Records) == 0 {
			delete(data.Inserts, entity)
		}
	}
	for entity, u := range data.Updates {
		if len(u) == 0 {
			delete(data.Updates, entity)
		}
	}
	for entity, d := range data.Deletes {
		if len(d) == 0 {
			delete(data.Deletes, entity)
		}
	}
	return data
}

// withoutUpdates drops pending updates of the given records.
func withoutUpdates(updates map[string][]domain.UpdateRecord, systemIDs map[string]struct{}) map[string][]domain.UpdateRecord {
	for entity, list := range updates {
		kept := list[:0:0]
		for _, u := range list {
			if _, drop := systemIDs[u.SystemID]; !drop {
				kept = append(kept, u)
			}
		}
		updates[entity] = kept
	}
	return updates
}

// withoutDeletes drops pending deletes of the given records.
func withoutDeletes(deletes map[string][]domain.SubmittedData, systemIDs map[string]struct{}) map[string][]domain.SubmittedData {
	for entity, list := range deletes {
		kept := list[:0:0]
		for _, d := range list {
			if _, drop := systemIDs[d.SystemID]; !drop {
				kept = append(kept, d)
			}
		}
		deletes[entity] = kept
	}
	return deletes
}

func systemIDSet[T any](byEntity map[string][]T, key func(T) string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range byEntity {
		for _, item := range list {
			set[key(item)] = struct{}{}
		}
	}
	return set
}
