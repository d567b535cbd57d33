// Package service contains the application's business logic, coordinating
// domain objects, stores and the storage tier.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foodiary/foodiary-api/internal/domain"
	"github.com/foodiary/foodiary-api/internal/store"
)

// Common sentinel errors for MealService
var (
	// ErrMealNotFound indicates that the meal does not exist or belongs to
	// another user.
	ErrMealNotFound = errors.New("meal not found")

	// ErrUnsupportedFileType indicates the declared upload MIME type is not
	// one of the accepted meal input types.
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// inputTypeByMIME maps the accepted upload MIME types to the input type and
// file extension they produce. Everything else is rejected up front.
var inputTypeByMIME = map[string]struct {
	inputType domain.InputType
	extension string
}{
	"audio/m4a":  {domain.InputTypeAudio, ".m4a"},
	"image/jpeg": {domain.InputTypePicture, ".jpg"},
}

// UploadTarget is what a client receives in exchange for announcing an
// upload: the created meal and a pre-signed URL to PUT the file to.
type UploadTarget struct {
	Meal      *domain.Meal
	UploadURL string
}

// Presigner issues pre-signed upload URLs for storage keys.
type Presigner interface {
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// MealService provides meal-related operations
type MealService interface {
	// RequestUpload creates a meal in uploading state for the declared file
	// type and returns the pre-signed URL the client uploads to.
	RequestUpload(ctx context.Context, userID uuid.UUID, fileType string) (*UploadTarget, error)

	// GetMeal retrieves one of the user's meals by ID.
	GetMeal(ctx context.Context, userID, mealID uuid.UUID) (*domain.Meal, error)

	// ListMealsByDay retrieves the user's successfully processed meals for
	// the given UTC calendar day.
	ListMealsByDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]*domain.Meal, error)
}

// MealServiceError wraps errors from the meal service with context.
type MealServiceError struct {
	// Operation is the operation that failed (e.g., "request_upload")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for MealServiceError.
func (e *MealServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("meal service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("meal service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *MealServiceError) Unwrap() error {
	return e.Err
}

// NewMealServiceError creates a new MealServiceError.
// It returns known sentinel errors directly without wrapping.
func NewMealServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrMealNotFound) || errors.Is(err, ErrUnsupportedFileType) {
		return err
	}

	if errors.Is(err, store.ErrMealNotFound) {
		return ErrMealNotFound
	}

	return &MealServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// mealServiceImpl implements the MealService interface
type mealServiceImpl struct {
	mealStore     store.MealStore
	db            *sql.DB
	presigner     Presigner
	uploadPrefix  string
	presignExpiry time.Duration
	logger        *slog.Logger

	// runInTx is store.RunInTransaction, injectable for tests.
	runInTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewMealService creates a new MealService.
// It returns an error if any of the required dependencies are nil.
func NewMealService(
	mealStore store.MealStore,
	db *sql.DB,
	presigner Presigner,
	uploadPrefix string,
	presignExpiry time.Duration,
	logger *slog.Logger,
) (MealService, error) {
	if mealStore == nil {
		return nil, &MealServiceError{
			Operation: "create_service",
			Message:   "mealStore cannot be nil",
		}
	}
	if db == nil {
		return nil, &MealServiceError{
			Operation: "create_service",
			Message:   "db cannot be nil",
		}
	}
	if presigner == nil {
		return nil, &MealServiceError{
			Operation: "create_service",
			Message:   "presigner cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	// Keys are built by plain concatenation, so the prefix must carry its
	// own separator.
	if uploadPrefix != "" && !strings.HasSuffix(uploadPrefix, "/") {
		uploadPrefix += "/"
	}

	return &mealServiceImpl{
		mealStore:     mealStore,
		db:            db,
		presigner:     presigner,
		uploadPrefix:  uploadPrefix,
		presignExpiry: presignExpiry,
		logger:        logger.With("component", "meal_service"),
		runInTx:       store.RunInTransaction,
	}, nil
}

// RequestUpload creates a meal in uploading state and returns a pre-signed
// PUT URL for the file body. The storage key is derived from a fresh UUID so
// concurrent uploads can never collide.
func (s *mealServiceImpl) RequestUpload(
	ctx context.Context,
	userID uuid.UUID,
	fileType string,
) (*UploadTarget, error) {
	mapping, ok := inputTypeByMIME[fileType]
	if !ok {
		s.logger.Warn("rejected upload request with unsupported file type",
			"file_type", fileType,
			"user_id", userID)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, fileType)
	}

	fileKey := s.uploadPrefix + uuid.NewString() + mapping.extension

	meal, err := domain.NewMeal(userID, fileKey, mapping.inputType)
	if err != nil {
		s.logger.Error("failed to create meal object",
			"error", err,
			"user_id", userID)
		return nil, NewMealServiceError("request_upload", "failed to create meal object", err)
	}

	err = s.runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.mealStore.WithTx(tx)
		if err := txStore.Create(ctx, meal); err != nil {
			s.logger.Error("failed to create meal in transaction",
				"error", err,
				"user_id", userID,
				"meal_id", meal.ID)
			return NewMealServiceError("request_upload", "failed to save meal to database", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uploadURL, err := s.presigner.PresignPut(ctx, fileKey, s.presignExpiry)
	if err != nil {
		s.logger.Error("failed to presign upload URL",
			"error", err,
			"meal_id", meal.ID,
			"file_key", fileKey)
		return nil, NewMealServiceError("request_upload", "failed to presign upload URL", err)
	}

	s.logger.Info("upload target issued",
		"meal_id", meal.ID,
		"user_id", userID,
		"file_key", fileKey,
		"input_type", meal.InputType)

	return &UploadTarget{
		Meal:      meal,
		UploadURL: uploadURL,
	}, nil
}

// GetMeal retrieves one of the user's meals. A meal belonging to another
// user is reported as not found.
func (s *mealServiceImpl) GetMeal(
	ctx context.Context,
	userID, mealID uuid.UUID,
) (*domain.Meal, error) {
	meal, err := s.mealStore.GetByIDForUser(ctx, userID, mealID)
	if err != nil {
		if errors.Is(err, store.ErrMealNotFound) {
			return nil, ErrMealNotFound
		}
		s.logger.Error("failed to retrieve meal",
			"error", err,
			"meal_id", mealID,
			"user_id", userID)
		return nil, NewMealServiceError("get_meal", "failed to retrieve meal", err)
	}

	return meal, nil
}

// ListMealsByDay retrieves the user's successful meals for the given UTC
// calendar day.
func (s *mealServiceImpl) ListMealsByDay(
	ctx context.Context,
	userID uuid.UUID,
	day time.Time,
) ([]*domain.Meal, error) {
	meals, err := s.mealStore.ListByDay(ctx, userID, day)
	if err != nil {
		s.logger.Error("failed to list meals",
			"error", err,
			"user_id", userID,
			"day", day.Format("2006-01-02"))
		return nil, NewMealServiceError("list_meals", "failed to list meals", err)
	}

	return meals, nil
}
