package submission

import (
	"context"
	"log/slog"
	"slices"
	"strconv"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// DeleteEntity removes pending changes of one entity from the caller's
// submission and revalidates what is left. With an Index only that position
// is removed.
func (s *Service) DeleteEntity(ctx context.Context, input DeleteEntityInput) (MutationResult, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return MutationResult{}, err
	}
	if err := input.Validate(); err != nil {
		return MutationResult{}, err
	}

	sub, err := s.ownedMutable(ctx, input.SubmissionID, userID)
	if err != nil {
		return MutationResult{}, err
	}
	if input.Index != nil {
		if n := pendingCount(sub.Data, input.ActionType, input.EntityName); *input.Index >= n {
			return MutationResult{}, domain.NewValidationError("index",
				"out of range: "+strconv.Itoa(n)+" pending "+input.ActionType.String()+" for "+input.EntityName)
		}
	}

	err = s.enqueue(ctx, sub.ID, OperationDeleteEntity, func(ctx context.Context) error {
		return s.mutate(ctx, sub.ID, userID, func(sub *domain.ActiveSubmission, _ *domain.Dictionary) error {
			removePending(&sub.Data, input.ActionType, input.EntityName, input.Index)
			return nil
		})
	})
	if err != nil {
		return MutationResult{}, err
	}

	s.log.InfoContext(ctx, "entity removal queued",
		slog.String("submission_id", sub.ID.String()),
		slog.String("entity", input.EntityName),
		slog.String("action_type", input.ActionType.String()),
	)

	return processing(sub.ID, input.EntityName), nil
}

func pendingCount(data domain.SubmissionData, action domain.SubmissionActionType, entity string) int {
	switch action {
	case domain.SubmissionActionInserts:
		return len(data.Inserts[entity].Records)
	case domain.SubmissionActionUpdates:
		return len(data.Updates[entity])
	case domain.SubmissionActionDeletes:
		return len(data.Deletes[entity])
	}
	return 0
}

// removePending removes the pending changes selected by action. An index past
// the end, possible when an earlier task shrank the list, removes nothing.
func removePending(data *domain.SubmissionData, action domain.SubmissionActionType, entity string, index *int) {
	switch action {
	case domain.SubmissionActionInserts:
		batch, ok := data.Inserts[entity]
		if !ok {
			return
		}
		if index == nil {
			delete(data.Inserts, entity)
			return
		}
		if *index < len(batch.Records) {
			batch.Records = slices.Delete(slices.Clone(batch.Records), *index, *index+1)
			data.Inserts[entity] = batch
		}
	case domain.SubmissionActionUpdates:
		data.Updates = removeAt(data.Updates, entity, index)
	case domain.SubmissionActionDeletes:
		data.Deletes = removeAt(data.Deletes, entity, index)
	case domain.SubmissionActionAll:
		delete(data.Inserts, entity)
		delete(data.Updates, entity)
		delete(data.Deletes, entity)
	}
}

func removeAt[T any](m map[string][]T, entity string, index *int) map[string][]T {
	list, ok := m[entity]
	if !ok {
		return m
	}
	if index == nil {
		delete(m, entity)
		return m
	}
	if *index < len(list) {
		m[entity] = slices.Delete(slices.Clone(list), *index, *index+1)
	}
	return m
}
