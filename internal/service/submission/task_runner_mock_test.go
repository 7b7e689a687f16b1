package submission

import (
	"sync"

	"github.com/heartmarshall/submission-backend/internal/worker"
)

var _ taskRunner = &taskRunnerMock{}

type taskRunnerMock struct {
	SubmitFunc func(t worker.Task) error

	calls struct {
		Submit []struct {
			T worker.Task
		}
	}
	lockSubmit sync.RWMutex
}

func (mock *taskRunnerMock) Submit(t worker.Task) error {
	if mock.SubmitFunc == nil {
		panic("taskRunnerMock.SubmitFunc: method is nil but taskRunner.Submit was just called")
	}
	callInfo := struct {
		T worker.Task
	}{T: t}
	mock.lockSubmit.Lock()
	mock.calls.Submit = append(mock.calls.Submit, callInfo)
	mock.lockSubmit.Unlock()
	return mock.SubmitFunc(t)
}

func (mock *taskRunnerMock) SubmitCalls() []struct {
	T worker.Task
} {
	mock.lockSubmit.RLock()
	calls := mock.calls.Submit
	mock.lockSubmit.RUnlock()
	return calls
}
