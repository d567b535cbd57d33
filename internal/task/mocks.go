package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foodiary/foodiary-api/internal/domain"
	"github.com/foodiary/foodiary-api/internal/recognition"
)

// MockMealStore is a configurable MealStore implementation for tests.
type MockMealStore struct {
	GetByInputFileKeyFunc   func(ctx context.Context, fileKey string) (*domain.Meal, error)
	MarkProcessingFunc      func(ctx context.Context, id uuid.UUID) (bool, error)
	CompleteRecognitionFunc func(ctx context.Context, id uuid.UUID, name, icon string, foods []domain.Food) error
	MarkFailedFunc          func(ctx context.Context, id uuid.UUID) error

	mu                       sync.Mutex
	GetByInputFileKeyCalls   int
	MarkProcessingCalls      int
	CompleteRecognitionCalls int
	MarkFailedCalls          int
}

// GetByInputFileKey implements MealStore.
func (m *MockMealStore) GetByInputFileKey(ctx context.Context, fileKey string) (*domain.Meal, error) {
	m.mu.Lock()
	m.GetByInputFileKeyCalls++
	m.mu.Unlock()
	return m.GetByInputFileKeyFunc(ctx, fileKey)
}

// MarkProcessing implements MealStore.
func (m *MockMealStore) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	m.MarkProcessingCalls++
	m.mu.Unlock()
	return m.MarkProcessingFunc(ctx, id)
}

// CompleteRecognition implements MealStore.
func (m *MockMealStore) CompleteRecognition(
	ctx context.Context,
	id uuid.UUID,
	name, icon string,
	foods []domain.Food,
) error {
	m.mu.Lock()
	m.CompleteRecognitionCalls++
	m.mu.Unlock()
	return m.CompleteRecognitionFunc(ctx, id, name, icon, foods)
}

// MarkFailed implements MealStore.
func (m *MockMealStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.MarkFailedCalls++
	m.mu.Unlock()
	return m.MarkFailedFunc(ctx, id)
}

// MockFileFetcher is a configurable FileFetcher implementation for tests.
type MockFileFetcher struct {
	FetchFunc func(ctx context.Context, key string) ([]byte, string, error)

	mu         sync.Mutex
	FetchCalls int
}

// Fetch implements FileFetcher.
func (m *MockFileFetcher) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	m.FetchCalls++
	m.mu.Unlock()
	return m.FetchFunc(ctx, key)
}

// MockRecognizer is a configurable recognition.Recognizer implementation
// for tests.
type MockRecognizer struct {
	RecognizeFunc func(ctx context.Context, input recognition.Input) (*recognition.Result, error)

	mu             sync.Mutex
	RecognizeCalls int
}

// Recognize implements recognition.Recognizer.
func (m *MockRecognizer) Recognize(
	ctx context.Context,
	input recognition.Input,
) (*recognition.Result, error) {
	m.mu.Lock()
	m.RecognizeCalls++
	m.mu.Unlock()
	return m.RecognizeFunc(ctx, input)
}

// MockTaskStore is an in-memory TaskStore implementation for tests.
type MockTaskStore struct {
	mu       sync.Mutex
	Saved    []Task
	Statuses map[uuid.UUID]TaskStatus

	SaveTaskFunc func(ctx context.Context, task Task) error
}

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		Statuses: make(map[uuid.UUID]TaskStatus),
	}
}

// SaveTask implements TaskStore.
func (m *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	if m.SaveTaskFunc != nil {
		if err := m.SaveTaskFunc(ctx, task); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, task)
	m.Statuses[task.ID()] = TaskStatusPending
	return nil
}

// UpdateTaskStatus implements TaskStore.
func (m *MockTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses[taskID] = status
	return nil
}

// GetPendingTasks implements TaskStore.
func (m *MockTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	return m.tasksWithStatus(TaskStatusPending), nil
}

// GetProcessingTasks implements TaskStore. The olderThan filter is ignored;
// tests control staleness by choosing which tasks to save.
func (m *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	return m.tasksWithStatus(TaskStatusProcessing), nil
}

func (m *MockTaskStore) tasksWithStatus(status TaskStatus) []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Task
	for _, t := range m.Saved {
		if m.Statuses[t.ID()] == status {
			out = append(out, t)
		}
	}
	return out
}

// WithTx implements TaskStore.
func (m *MockTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return m
}

// StatusOf returns the last status recorded for the given task.
func (m *MockTaskStore) StatusOf(taskID uuid.UUID) TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Statuses[taskID]
}
