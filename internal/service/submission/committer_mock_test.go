package submission

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

var _ committer = &committerMock{}

type committerMock struct {
	CommitFunc func(ctx context.Context, submissionID, userID uuid.UUID) (domain.ActiveSubmission, error)

	calls struct {
		Commit []struct {
			SubmissionID uuid.UUID
			UserID       uuid.UUID
		}
	}
	lockCommit sync.RWMutex
}

func (mock *committerMock) Commit(ctx context.Context, submissionID, userID uuid.UUID) (domain.ActiveSubmission, error) {
	if mock.CommitFunc == nil {
		panic("committerMock.CommitFunc: method is nil but committer.Commit was just called")
	}
	callInfo := struct {
		SubmissionID uuid.UUID
		UserID       uuid.UUID
	}{SubmissionID: submissionID, UserID: userID}
	mock.lockCommit.Lock()
	mock.calls.Commit = append(mock.calls.Commit, callInfo)
	mock.lockCommit.Unlock()
	return mock.CommitFunc(ctx, submissionID, userID)
}

func (mock *committerMock) CommitCalls() []struct {
	SubmissionID uuid.UUID
	UserID       uuid.UUID
} {
	mock.lockCommit.RLock()
	calls := mock.calls.Commit
	mock.lockCommit.RUnlock()
	return calls
}
