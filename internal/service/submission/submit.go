package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/heartmarshall/submission-backend/internal/datadiff"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// Submit stages new records in the caller's active submission, opening one
// when needed. Batches for entities the category's dictionary does not
// declare are rejected up front; the rest are merged in the background.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (MutationResult, error) {
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

	entities := make([]string, 0, len(input.Inserts))
	for entity := range input.Inserts {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	accepted := make(map[string]domain.InsertBatch)
	inProcess := []string{}
	batchErrs := []BatchError{}
	for _, entity := range entities {
		batch := input.Inserts[entity]
		switch {
		case !dict.HasSchema(entity):
			batchErrs = append(batchErrs, BatchError{
				EntityName: entity,
				BatchName:  batch.BatchName,
				Reason:     ReasonUnrecognizedEntity,
				Message:    fmt.Sprintf("entity %q is not defined in dictionary %s@%s", entity, dict.Name, dict.Version),
			})
		case len(batch.Records) == 0:
			batchErrs = append(batchErrs, BatchError{
				EntityName: entity,
				BatchName:  batch.BatchName,
				Reason:     ReasonEmptyBatch,
				Message:    "batch has no records",
			})
		default:
			accepted[entity] = batch
			inProcess = append(inProcess, entity)
		}
	}

	if len(accepted) == 0 {
		return MutationResult{
			Status:            StatusInvalidSubmission,
			InProcessEntities: inProcess,
			BatchErrors:       batchErrs,
		}, nil
	}

	sub, err := s.getOrCreate(ctx, cat, dict, input.Organization, userID)
	if err != nil {
		return MutationResult{}, err
	}

	err = s.enqueue(ctx, sub.ID, OperationSubmit, func(ctx context.Context) error {
		err := s.mutate(ctx, sub.ID, userID, func(sub *domain.ActiveSubmission, _ *domain.Dictionary) error {
			sub.Data.Inserts = datadiff.MergeInserts(sub.Data.Inserts, accepted)
			return nil
		})
		if errors.Is(err, domain.ErrStatusConflict) {
			// Closed or committed after the inserts were accepted.
			s.log.WarnContext(ctx, "queued inserts dropped",
				slog.String("submission_id", sub.ID.String()),
				slog.String("user_id", userID.String()),
				slog.Any("entities", inProcess),
				slog.Int("records", countRecords(accepted)),
				slog.String("reason", err.Error()),
			)
		}
		return err
	})
	if err != nil {
		return MutationResult{}, err
	}

	s.log.InfoContext(ctx, "inserts queued",
		slog.String("submission_id", sub.ID.String()),
		slog.String("user_id", userID.String()),
		slog.Any("entities", inProcess),
		slog.Int("rejected_batches", len(batchErrs)),
	)

	res := processing(sub.ID, inProcess...)
	if len(batchErrs) > 0 {
		res.Status = StatusInvalidSubmission
		res.BatchErrors = batchErrs
	}
	return res, nil
}

func countRecords(batches map[string]domain.InsertBatch) int {
	n := 0
	for _, b := range batches {
		n += len(b.Records)
	}
	return n
}
