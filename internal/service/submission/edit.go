package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/datadiff"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// editPlan is computed outside the submission transaction because resolving
// dependents queries the store concurrently.
type editPlan struct {
	updates  map[string][]domain.UpdateRecord
	orphans  map[string][]domain.SubmittedData
	edited   map[string]struct{}
	reverted map[string]struct{}
}

// Edit stages changes to committed records. Each record carries its complete
// new data; the pending update keeps only the difference. When a change
// touches a field other entities reference, the records depending on the old
// value are staged for deletion.
func (s *Service) Edit(ctx context.Context, input EditInput) (MutationResult, error) {
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

	seen := make(map[string]struct{})
	entities := []string{}
	for _, rec := range input.Records {
		row, err := s.scopedRecord(ctx, input.CategoryID, input.Organization, rec.SystemID)
		if err != nil {
			return MutationResult{}, err
		}
		if _, ok := seen[row.EntityName]; !ok {
			seen[row.EntityName] = struct{}{}
			entities = append(entities, row.EntityName)
		}
	}
	sort.Strings(entities)

	sub, err := s.getOrCreate(ctx, cat, dict, input.Organization, userID)
	if err != nil {
		return MutationResult{}, err
	}

	records := append([]EditRecord(nil), input.Records...)
	err = s.enqueue(ctx, sub.ID, OperationEdit, func(ctx context.Context) error {
		plan, err := s.planEdits(ctx, sub.ID, input.CategoryID, input.Organization, records)
		if err != nil {
			return err
		}
		return s.mutate(ctx, sub.ID, userID, func(sub *domain.ActiveSubmission, _ *domain.Dictionary) error {
			orphanIDs := systemIDSet(plan.orphans, func(d domain.SubmittedData) string { return d.SystemID })

			sub.Data.Deletes = withoutDeletes(sub.Data.Deletes, plan.edited)
			sub.Data.Updates = withoutUpdates(sub.Data.Updates, plan.reverted)
			sub.Data.Updates = datadiff.MergeUpdates(sub.Data.Updates, plan.updates)
			sub.Data.Deletes = datadiff.MergeDeletes(sub.Data.Deletes, plan.orphans)
			sub.Data.Updates = withoutUpdates(sub.Data.Updates, orphanIDs)
			return nil
		})
	})
	if err != nil {
		return MutationResult{}, err
	}

	s.log.InfoContext(ctx, "edits queued",
		slog.String("submission_id", sub.ID.String()),
		slog.String("user_id", userID.String()),
		slog.Int("records", len(records)),
	)

	return processing(sub.ID, entities...), nil
}

func (s *Service) planEdits(ctx context.Context, submissionID, categoryID uuid.UUID, organization string, records []EditRecord) (editPlan, error) {
	plan := editPlan{
		updates:  make(map[string][]domain.UpdateRecord),
		orphans:  make(map[string][]domain.SubmittedData),
		edited:   make(map[string]struct{}),
		reverted: make(map[string]struct{}),
	}

	_, dict, err := s.activeDictionary(ctx, categoryID)
	if err != nil {
		return editPlan{}, err
	}
	graph := s.graphs.Get(&dict)

	for _, rec := range records {
		row, err := s.scopedRecord(ctx, categoryID, organization, rec.SystemID)
		if errors.Is(err, domain.ErrNotFound) {
			s.log.WarnContext(ctx, "edited record is gone",
				slog.String("submission_id", submissionID.String()),
				slog.String("system_id", rec.SystemID),
			)
			continue
		}
		if err != nil {
			return editPlan{}, err
		}
		plan.edited[row.SystemID] = struct{}{}

		diff := datadiff.ComputeDiff(row.Data, rec.Data)
		if diff.IsEmpty() {
			plan.reverted[row.SystemID] = struct{}{}
			continue
		}
		plan.updates[row.EntityName] = append(plan.updates[row.EntityName], domain.UpdateRecord{
			SystemID: row.SystemID,
			Old:      diff.Old,
			New:      diff.New,
		})

		if !touchesAny(diff, graph.ParentFields(row.EntityName)) {
			continue
		}
		deps, err := s.cascade.Dependents(ctx, graph.Children, row)
		if err != nil {
			return editPlan{}, fmt.Errorf("resolve dependents of %s: %w", row.SystemID, err)
		}
		for _, d := range deps {
			plan.orphans[d.EntityName] = append(plan.orphans[d.EntityName], d)
		}
	}

	// records edited in the same call are not orphaned by each other
	plan.orphans = withoutDeletes(plan.orphans, plan.edited)
	return plan, nil
}

// scopedRecord returns a committed record of the category and organization.
func (s *Service) scopedRecord(ctx context.Context, categoryID uuid.UUID, organization, systemID string) (domain.SubmittedData, error) {
	row, err := s.data.GetBySystemID(ctx, systemID)
	if err != nil {
		return domain.SubmittedData{}, fmt.Errorf("get record %s: %w", systemID, err)
	}
	if row.CategoryID != categoryID || row.Organization != organization {
		return domain.SubmittedData{}, fmt.Errorf("record %s in category %s for %s: %w", systemID, categoryID, organization, domain.ErrNotFound)
	}
	return row, nil
}

func touchesAny(diff domain.DataDiff, fields map[string]struct{}) bool {
	for name := range fields {
		if _, ok := diff.Old[name]; ok {
			return true
		}
		if _, ok := diff.New[name]; ok {
			return true
		}
	}
	return false
}
