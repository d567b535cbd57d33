package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/foodiary/foodiary-api/internal/domain"
	"github.com/foodiary/foodiary-api/internal/recognition"
	"github.com/foodiary/foodiary-api/internal/store"
)

// Common errors
var (
	ErrNilMealStore  = errors.New("meal store cannot be nil")
	ErrNilFetcher    = errors.New("file fetcher cannot be nil")
	ErrNilRecognizer = errors.New("recognizer cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyFileKey  = errors.New("file key cannot be empty")

	// ErrUnknownFileKey is returned when a completion event references a
	// storage key no meal owns. No record will appear later under correct
	// operation, so the event is reported and dropped rather than retried.
	ErrUnknownFileKey = errors.New("no meal owns the uploaded file key")
)

// MealStore is the narrow persistence interface the processing task needs.
// It is satisfied by store.MealStore.
type MealStore interface {
	// GetByInputFileKey retrieves the meal owning the given storage key.
	GetByInputFileKey(ctx context.Context, fileKey string) (*domain.Meal, error)

	// MarkProcessing performs the conditional uploading -> processing
	// transition, reporting whether this caller won it.
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)

	// CompleteRecognition atomically commits the success outcome.
	CompleteRecognition(ctx context.Context, id uuid.UUID, name, icon string, foods []domain.Food) error

	// MarkFailed atomically commits the failed outcome.
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// FileFetcher retrieves the uploaded object from the storage tier.
type FileFetcher interface {
	// Fetch downloads the object stored under key, returning its content
	// and MIME type.
	Fetch(ctx context.Context, key string) ([]byte, string, error)
}

// mealProcessingPayload represents the serialized data stored in the task
type mealProcessingPayload struct {
	FileKey string `json:"file_key"`
}

// MealProcessingTask implements the Task interface for driving one meal
// through the uploading -> processing -> {success | failed} state machine.
//
// The task is safe to deliver more than once per meal: terminal states and
// lost conditional transitions are treated as successful no-ops, so the
// recognizer runs at most once per meal under correct operation.
type MealProcessingTask struct {
	id         uuid.UUID
	fileKey    string
	mealStore  MealStore
	fetcher    FileFetcher
	recognizer recognition.Recognizer
	timeout    time.Duration
	logger     *slog.Logger
	status     TaskStatus
}

// NewMealProcessingTask creates a new meal processing task for the given
// storage key.
func NewMealProcessingTask(
	fileKey string,
	mealStore MealStore,
	fetcher FileFetcher,
	recognizer recognition.Recognizer,
	timeout time.Duration,
	logger *slog.Logger,
) (*MealProcessingTask, error) {
	if mealStore == nil {
		return nil, ErrNilMealStore
	}
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if recognizer == nil {
		return nil, ErrNilRecognizer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if fileKey == "" {
		return nil, ErrEmptyFileKey
	}

	if timeout <= 0 {
		timeout = time.Minute
	}

	return &MealProcessingTask{
		id:         uuid.New(),
		fileKey:    fileKey,
		mealStore:  mealStore,
		fetcher:    fetcher,
		recognizer: recognizer,
		timeout:    timeout,
		logger:     logger.With("task_type", TaskTypeMealProcessing, "file_key", fileKey),
		status:     TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *MealProcessingTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *MealProcessingTask) Type() string {
	return TaskTypeMealProcessing
}

// Payload returns the task data as a byte slice
func (t *MealProcessingTask) Payload() []byte {
	payload := mealProcessingPayload{
		FileKey: t.fileKey,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *MealProcessingTask) Status() TaskStatus {
	return t.status
}

// Execute runs one invocation of the meal state machine for the task's
// storage key. Invariants:
//
//   - a meal already in a terminal state is left untouched
//   - the uploading -> processing transition is committed before the
//     recognizer is invoked
//   - result fields are written only together with the success status
//   - a recognizer failure or timeout commits the failed status, leaving
//     result fields empty
func (t *MealProcessingTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting meal processing task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	// 1. Locate the meal owning the uploaded key.
	meal, err := t.mealStore.GetByInputFileKey(ctx, t.fileKey)
	if err != nil {
		t.status = TaskStatusFailed
		if errors.Is(err, store.ErrMealNotFound) {
			t.logger.Error("completion event references unknown file key")
			return fmt.Errorf("%w: %s", ErrUnknownFileKey, t.fileKey)
		}
		t.logger.Error("failed to look up meal by file key", "error", err)
		return fmt.Errorf("failed to look up meal: %w", err)
	}

	log := t.logger.With("meal_id", meal.ID, "user_id", meal.UserID)

	// 2. Duplicate-delivery guard: terminal meals are done, full stop.
	if meal.Status.IsTerminal() {
		log.Info("meal already in terminal state, ignoring duplicate delivery",
			"status", meal.Status)
		t.status = TaskStatusCompleted
		return nil
	}

	// 3. Claim the meal before the long-latency call. A meal observed in
	// processing state belongs to a crashed earlier attempt and is
	// re-entered; a lost conditional update means a live concurrent
	// invocation owns it.
	switch meal.Status {
	case domain.MealStatusUploading:
		won, err := t.mealStore.MarkProcessing(ctx, meal.ID)
		if err != nil {
			t.status = TaskStatusFailed
			log.Error("failed to mark meal processing", "error", err)
			return fmt.Errorf("failed to mark meal processing: %w", err)
		}
		if !won {
			log.Info("another invocation owns this meal, exiting as no-op")
			t.status = TaskStatusCompleted
			return nil
		}
	case domain.MealStatusProcessing:
		log.Info("meal left processing by an earlier attempt, retrying recognition")
	}

	// 4. Fetch the uploaded file and invoke the recognition collaborator.
	outcome, err := t.recognize(ctx, meal, log)
	if err != nil {
		if failErr := t.mealStore.MarkFailed(ctx, meal.ID); failErr != nil {
			// ErrUpdateFailed here means a concurrent run already
			// committed a terminal state; anything else is an
			// infrastructure problem worth surfacing.
			if errors.Is(failErr, store.ErrUpdateFailed) {
				log.Warn("meal reached a terminal state concurrently", "error", failErr)
			} else {
				log.Error("failed to mark meal failed", "error", failErr)
			}
		} else {
			log.Info("meal marked failed after recognition error")
		}
		t.status = TaskStatusFailed
		return fmt.Errorf("meal recognition failed: %w", err)
	}

	// 5. Commit the success outcome atomically with the result fields.
	err = t.mealStore.CompleteRecognition(ctx, meal.ID, outcome.Name, outcome.Icon, outcome.Foods)
	if err != nil {
		if errors.Is(err, store.ErrUpdateFailed) {
			log.Warn("meal reached a terminal state concurrently, dropping result")
			t.status = TaskStatusCompleted
			return nil
		}
		t.status = TaskStatusFailed
		log.Error("failed to commit recognition result", "error", err)
		return fmt.Errorf("failed to commit recognition result: %w", err)
	}

	t.status = TaskStatusCompleted
	log.Info("meal processing task completed successfully",
		"name", outcome.Name,
		"food_count", len(outcome.Foods))
	return nil
}

// recognize downloads the uploaded object and runs the recognition
// collaborator under the configured timeout.
func (t *MealProcessingTask) recognize(
	ctx context.Context,
	meal *domain.Meal,
	log *slog.Logger,
) (*recognition.Result, error) {
	data, contentType, err := t.fetcher.Fetch(ctx, meal.InputFileKey)
	if err != nil {
		log.Error("failed to fetch uploaded file", "error", err)
		return nil, fmt.Errorf("failed to fetch uploaded file: %w", err)
	}

	log.Info("invoking recognition", "input_type", meal.InputType, "size_bytes", len(data))

	recognizeCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.recognizer.Recognize(recognizeCtx, recognition.Input{
		FileKey:     meal.InputFileKey,
		Type:        meal.InputType,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		log.Error("recognition failed", "error", err)
		return nil, err
	}

	return result, nil
}
