package commit

import (
	"sync"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

var _ idGenerator = &idGeneratorMock{}

type idGeneratorMock struct {
	GenerateFunc func(organization, entityName string, record domain.DataRecord, attempt int) (string, error)

	calls struct {
		Generate []struct {
			Organization string
			EntityName   string
			Record       domain.DataRecord
			Attempt      int
		}
	}
	lockGenerate sync.RWMutex
}

func (mock *idGeneratorMock) Generate(organization, entityName string, record domain.DataRecord, attempt int) (string, error) {
	if mock.GenerateFunc == nil {
		panic("idGeneratorMock.GenerateFunc: method is nil but idGenerator.Generate was just called")
	}
	callInfo := struct {
		Organization string
		EntityName   string
		Record       domain.DataRecord
		Attempt      int
	}{Organization: organization, EntityName: entityName, Record: record, Attempt: attempt}
	mock.lockGenerate.Lock()
	mock.calls.Generate = append(mock.calls.Generate, callInfo)
	mock.lockGenerate.Unlock()
	return mock.GenerateFunc(organization, entityName, record, attempt)
}

func (mock *idGeneratorMock) GenerateCalls() []struct {
	Organization string
	EntityName   string
	Record       domain.DataRecord
	Attempt      int
} {
	mock.lockGenerate.RLock()
	calls := mock.calls.Generate
	mock.lockGenerate.RUnlock()
	return calls
}
