package task

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/foodiary/foodiary-api/internal/recognition"
)

// MealProcessingTaskFactory creates MealProcessingTask instances
type MealProcessingTaskFactory struct {
	mealStore  MealStore
	fetcher    FileFetcher
	recognizer recognition.Recognizer
	timeout    time.Duration
	logger     *slog.Logger
}

// NewMealProcessingTaskFactory creates a new factory for MealProcessingTasks
func NewMealProcessingTaskFactory(
	mealStore MealStore,
	fetcher FileFetcher,
	recognizer recognition.Recognizer,
	timeout time.Duration,
	logger *slog.Logger,
) *MealProcessingTaskFactory {
	return &MealProcessingTaskFactory{
		mealStore:  mealStore,
		fetcher:    fetcher,
		recognizer: recognizer,
		timeout:    timeout,
		logger:     logger.With("component", "meal_processing_task_factory"),
	}
}

// CreateTask creates a new MealProcessingTask for the specified storage key
func (f *MealProcessingTaskFactory) CreateTask(fileKey string) (Task, error) {
	task, err := NewMealProcessingTask(
		fileKey,
		f.mealStore,
		f.fetcher,
		f.recognizer,
		f.timeout,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ResolveTask rebuilds an executable MealProcessingTask from a persisted
// task row. It implements the TaskResolver contract used by the runner's
// recovery path. The resolved task keeps the row's ID so status updates
// land on the persisted row rather than orphaning it in pending.
func (f *MealProcessingTaskFactory) ResolveTask(id uuid.UUID, taskType string, payload []byte) (Task, error) {
	if taskType != TaskTypeMealProcessing {
		return nil, fmt.Errorf("unsupported task type: %s", taskType)
	}

	var p mealProcessingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	task, err := NewMealProcessingTask(
		p.FileKey,
		f.mealStore,
		f.fetcher,
		f.recognizer,
		f.timeout,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	task.id = id
	return task, nil
}
