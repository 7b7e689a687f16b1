package submission

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// Get returns a submission by id.
func (s *Service) Get(ctx context.Context, submissionID uuid.UUID) (domain.ActiveSubmission, error) {
	if _, err := currentUser(ctx); err != nil {
		return domain.ActiveSubmission{}, err
	}
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return domain.ActiveSubmission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// GetActive returns the caller's non-terminal submission for the category
// and organization.
func (s *Service) GetActive(ctx context.Context, categoryID uuid.UUID, organization string) (domain.ActiveSubmission, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return domain.ActiveSubmission{}, err
	}
	if errs := appendScopeErrors(nil, categoryID, organization); len(errs) > 0 {
		return domain.ActiveSubmission{}, domain.NewValidationErrors(errs)
	}
	sub, err := s.submissions.GetActive(ctx, categoryID, organization, userID)
	if err != nil {
		return domain.ActiveSubmission{}, fmt.Errorf("get active submission: %w", err)
	}
	return sub, nil
}

// List returns the submissions of a category, newest first.
func (s *Service) List(ctx context.Context, input ListInput) ([]domain.ActiveSubmission, error) {
	if _, err := currentUser(ctx); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit == 0 {
		limit = MaxPageSize
	}
	subs, err := s.submissions.List(ctx, domain.SubmissionQuery{
		CategoryID:   input.CategoryID,
		Organization: input.Organization,
		OnlyActive:   input.OnlyActive,
		Limit:        limit,
		Offset:       input.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}
