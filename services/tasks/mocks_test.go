package tasks

import (
	"context"
	"errors"
	"sync"

	"marketplace/services/mail"
	"marketplace/services/storage"

	"github.com/hibiken/asynq"
)

type queuedTask struct {
	task  *asynq.Task
	id    string
	queue string
	opts  []asynq.Option
}

// MockTaskClient implements TaskClient. Task IDs stay reserved until the task is popped.
type MockTaskClient struct {
	mu     sync.Mutex
	Err    error
	Queued []queuedTask
	ids    map[string]bool
}

func (m *MockTaskClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	qt := queuedTask{task: task, queue: "default", opts: opts}
	for _, o := range opts {
		switch o.Type() {
		case asynq.TaskIDOpt:
			qt.id = o.Value().(string)
		case asynq.QueueOpt:
			qt.queue = o.Value().(string)
		}
	}
	if m.ids == nil {
		m.ids = make(map[string]bool)
	}
	if m.ids[qt.id] {
		return nil, asynq.ErrTaskIDConflict
	}
	m.ids[qt.id] = true
	m.Queued = append(m.Queued, qt)
	return &asynq.TaskInfo{ID: qt.id, Queue: qt.queue, Type: task.Type(), Payload: task.Payload()}, nil
}

func (m *MockTaskClient) Pop() (queuedTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Queued) == 0 {
		return queuedTask{}, false
	}
	qt := m.Queued[0]
	m.Queued = m.Queued[1:]
	delete(m.ids, qt.id)
	return qt, true
}

func (m *MockTaskClient) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.Queued))
	for _, qt := range m.Queued {
		types = append(types, qt.task.Type())
	}
	return types
}

// MockBlobStore wraps a real store and fails the first FailPuts writes.
type MockBlobStore struct {
	storage.BlobStore
	FailPuts int
	Puts     int
}

var errStorageDown = errors.New("storage unavailable")

func (m *MockBlobStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	m.Puts++
	if m.FailPuts > 0 {
		m.FailPuts--
		return errStorageDown
	}
	return m.BlobStore.Put(ctx, name, data, contentType)
}

// MockMailer records sent messages and fails the first FailSends calls.
type MockMailer struct {
	FailSends int
	Attempts  int
	Sent      []mail.Message
}

var errSMTPDown = errors.New("smtp unavailable")

func (m *MockMailer) Send(_ context.Context, msg mail.Message) error {
	m.Attempts++
	if m.FailSends > 0 {
		m.FailSends--
		return errSMTPDown
	}
	m.Sent = append(m.Sent, msg)
	return nil
}
