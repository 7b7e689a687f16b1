package validation

import (
	"sync"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

var _ schemaValidator = &schemaValidatorMock{}

type schemaValidatorMock struct {
	ValidateFunc func(dict *domain.Dictionary, data map[string][]domain.DataRecord) map[string][]domain.RecordError

	calls struct {
		Validate []struct {
			Dict *domain.Dictionary
			Data map[string][]domain.DataRecord
		}
	}
	lockValidate sync.RWMutex
}

func (mock *schemaValidatorMock) Validate(dict *domain.Dictionary, data map[string][]domain.DataRecord) map[string][]domain.RecordError {
	if mock.ValidateFunc == nil {
		panic("schemaValidatorMock.ValidateFunc: method is nil but schemaValidator.Validate was just called")
	}
	callInfo := struct {
		Dict *domain.Dictionary
		Data map[string][]domain.DataRecord
	}{Dict: dict, Data: data}
	mock.lockValidate.Lock()
	mock.calls.Validate = append(mock.calls.Validate, callInfo)
	mock.lockValidate.Unlock()
	return mock.ValidateFunc(dict, data)
}

func (mock *schemaValidatorMock) ValidateCalls() []struct {
	Dict *domain.Dictionary
	Data map[string][]domain.DataRecord
} {
	mock.lockValidate.RLock()
	calls := mock.calls.Validate
	mock.lockValidate.RUnlock()
	return calls
}
