package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/submission-backend/internal/datadiff"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// DeleteSubmittedData stages the deletion of a committed record together with
// every record that depends on it. Pending updates of those records are
// dropped.
func (s *Service) DeleteSubmittedData(ctx context.Context, input DeleteDataInput) (MutationResult, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return MutationResult{}, err
	}
	if err := input.Validate(); err != nil {
		return MutationResult{}, err
	}

	cat, dict, err := s.activeDictionary(ctx, input.CategoryID)
	if err != nil {
		return MutationResult{}, err
	}

	row, err := s.scopedRecord(ctx, input.CategoryID, input.Organization, input.SystemID)
	if err != nil {
		return MutationResult{}, err
	}
	if input.EntityName != "" && row.EntityName != input.EntityName {
		return MutationResult{}, fmt.Errorf("record %s is not a %s: %w", row.SystemID, input.EntityName, domain.ErrNotFound)
	}

	sub, err := s.getOrCreate(ctx, cat, dict, input.Organization, userID)
	if err != nil {
		return MutationResult{}, err
	}

	err = s.enqueue(ctx, sub.ID, OperationDeleteData, func(ctx context.Context) error {
		deletes, err := s.cascadeDeletes(ctx, input)
		if err != nil {
			return err
		}
		if deletes == nil {
			return nil
		}
		return s.mutate(ctx, sub.ID, userID, func(sub *domain.ActiveSubmission, _ *domain.Dictionary) error {
			ids := systemIDSet(deletes, func(d domain.SubmittedData) string { return d.SystemID })
			sub.Data.Deletes = datadiff.MergeDeletes(sub.Data.Deletes, deletes)
			sub.Data.Updates = withoutUpdates(sub.Data.Updates, ids)
			return nil
		})
	})
	if err != nil {
		return MutationResult{}, err
	}

	s.log.InfoContext(ctx, "delete queued",
		slog.String("submission_id", sub.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("system_id", row.SystemID),
		slog.String("entity", row.EntityName),
	)

	return processing(sub.ID, row.EntityName), nil
}

// cascadeDeletes groups the record and its dependents by entity. It returns
// nil when the record no longer exists.
func (s *Service) cascadeDeletes(ctx context.Context, input DeleteDataInput) (map[string][]domain.SubmittedData, error) {
	row, err := s.scopedRecord(ctx, input.CategoryID, input.Organization, input.SystemID)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.WarnContext(ctx, "deleted record is gone", slog.String("system_id", input.SystemID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	_, dict, err := s.activeDictionary(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	graph := s.graphs.Get(&dict)

	deps, err := s.cascade.Dependents(ctx, graph.Children, row)
	if err != nil {
		return nil, fmt.Errorf("resolve dependents of %s: %w", row.SystemID, err)
	}

	deletes := map[string][]domain.SubmittedData{row.EntityName: {row}}
	for _, d := range deps {
		deletes[d.EntityName] = append(deletes[d.EntityName], d)
	}
	return deletes, nil
}
