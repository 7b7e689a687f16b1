package cascade

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

var _ submittedDataRepo = &submittedDataRepoMock{}

type submittedDataRepoMock struct {
	ListByFilterFunc func(ctx context.Context, categoryID uuid.UUID, organization string, filter domain.DataFilter) ([]domain.SubmittedData, error)

	calls struct {
		ListByFilter []struct {
			CategoryID   uuid.UUID
			Organization string
			Filter       domain.DataFilter
		}
	}
	lockListByFilter sync.RWMutex
}

func (mock *submittedDataRepoMock) ListByFilter(ctx context.Context, categoryID uuid.UUID, organization string, filter domain.DataFilter) ([]domain.SubmittedData, error) {
	if mock.ListByFilterFunc == nil {
		panic("submittedDataRepoMock.ListByFilterFunc: method is nil but submittedDataRepo.ListByFilter was just called")
	}
	callInfo := struct {
		CategoryID   uuid.UUID
		Organization string
		Filter       domain.DataFilter
	}{CategoryID: categoryID, Organization: organization, Filter: filter}
	mock.lockListByFilter.Lock()
	mock.calls.ListByFilter = append(mock.calls.ListByFilter, callInfo)
	mock.lockListByFilter.Unlock()
	return mock.ListByFilterFunc(ctx, categoryID, organization, filter)
}

func (mock *submittedDataRepoMock) ListByFilterCalls() []struct {
	CategoryID   uuid.UUID
	Organization string
	Filter       domain.DataFilter
} {
	mock.lockListByFilter.RLock()
	calls := mock.calls.ListByFilter
	mock.lockListByFilter.RUnlock()
	return calls
}
