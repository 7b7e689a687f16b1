package submission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// Close abandons the caller's submission. CLOSED is terminal; tasks still
// queued for the submission fail with a status conflict.
func (s *Service) Close(ctx context.Context, submissionID uuid.UUID) (domain.ActiveSubmission, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return domain.ActiveSubmission{}, err
	}
	if submissionID == uuid.Nil {
		return domain.ActiveSubmission{}, domain.NewValidationError("submission_id", "required")
	}

	var closed domain.ActiveSubmission
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.submissions.GetByIDForUpdate(txCtx, submissionID)
		if err != nil {
			return fmt.Errorf("lock submission: %w", err)
		}
		if sub.CreatedBy != userID {
			return fmt.Errorf("submission %s belongs to another user: %w", sub.ID, domain.ErrForbidden)
		}
		if sub.Status.IsTerminal() {
			return fmt.Errorf("submission %s is %s: %w", sub.ID, sub.Status, domain.ErrStatusConflict)
		}

		sub.Status = domain.SubmissionStatusClosed
		sub.UpdatedAt = s.now().UTC()
		sub.UpdatedBy = userID
		closed, err = s.submissions.Update(txCtx, sub)
		if err != nil {
			return fmt.Errorf("update submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ActiveSubmission{}, err
	}

	s.log.InfoContext(ctx, "submission closed",
		slog.String("submission_id", closed.ID.String()),
		slog.String("user_id", userID.String()),
	)
	return closed, nil
}

// Commit queues the commit of the caller's VALID submission.
func (s *Service) Commit(ctx context.Context, input CommitInput) (MutationResult, error) {
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
	if sub.CategoryID != input.CategoryID {
		return MutationResult{}, fmt.Errorf("submission %s is not in category %s: %w", sub.ID, input.CategoryID, domain.ErrBadRequest)
	}
	if sub.Status != domain.SubmissionStatusValid {
		return MutationResult{}, fmt.Errorf("submission %s is %s, want %s: %w",
			sub.ID, sub.Status, domain.SubmissionStatusValid, domain.ErrStatusConflict)
	}

	err = s.enqueue(ctx, sub.ID, OperationCommit, func(ctx context.Context) error {
		_, err := s.committer.Commit(ctx, sub.ID, userID)
		return err
	})
	if err != nil {
		return MutationResult{}, err
	}

	s.log.InfoContext(ctx, "commit queued",
		slog.String("submission_id", sub.ID.String()),
		slog.String("user_id", userID.String()),
	)
	return processing(sub.ID, sub.Data.EntityNames()...), nil
}

// Revalidate queues a validation run of the caller's submission against the
// category's current dictionary and committed data.
func (s *Service) Revalidate(ctx context.Context, submissionID uuid.UUID) (MutationResult, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return MutationResult{}, err
	}
	if submissionID == uuid.Nil {
		return MutationResult{}, domain.NewValidationError("submission_id", "required")
	}

	sub, err := s.ownedMutable(ctx, submissionID, userID)
	if err != nil {
		return MutationResult{}, err
	}

	err = s.enqueue(ctx, sub.ID, OperationRevalidate, func(ctx context.Context) error {
		return s.mutate(ctx, sub.ID, userID, func(*domain.ActiveSubmission, *domain.Dictionary) error {
			return nil
		})
	})
	if err != nil {
		return MutationResult{}, err
	}
	return processing(sub.ID, sub.Data.EntityNames()...), nil
}
