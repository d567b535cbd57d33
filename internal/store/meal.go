package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/foodiary/foodiary-api/internal/domain"
)

// MealStore defines the interface for meal data persistence.
//
// All mutations after creation are single-row atomic updates scoped by the
// meal's identifier; the conditional updates double as the cross-invocation
// coordination mechanism, replacing any in-process lock.
type MealStore interface {
	// Create saves a new meal to the store.
	// It handles domain validation internally.
	// Returns ErrFileKeyExists if the input file key is already in use.
	Create(ctx context.Context, meal *domain.Meal) error

	// GetByID retrieves a meal by its unique ID.
	// Returns ErrMealNotFound if the meal does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Meal, error)

	// GetByIDForUser retrieves a meal by ID, scoped to the owning user.
	// Returns ErrMealNotFound both when the meal does not exist and when it
	// belongs to a different user, so that lookups never leak existence.
	GetByIDForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Meal, error)

	// GetByInputFileKey retrieves the meal owning the given storage key.
	// Returns ErrMealNotFound if no meal references the key.
	GetByInputFileKey(ctx context.Context, fileKey string) (*domain.Meal, error)

	// MarkProcessing performs the conditional uploading -> processing
	// transition. It reports true if this call won the transition, false if
	// the meal was no longer in the uploading state (another invocation owns
	// it, or it already finished).
	// Returns ErrMealNotFound if the meal does not exist at all.
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)

	// CompleteRecognition atomically moves a processing meal to success and
	// populates name, icon and foods in the same update. This is the sole
	// point at which result fields are written.
	// Returns ErrUpdateFailed if the meal is not currently processing.
	CompleteRecognition(ctx context.Context, id uuid.UUID, name, icon string, foods []domain.Food) error

	// MarkFailed atomically moves a processing meal to failed, leaving the
	// result fields untouched.
	// Returns ErrUpdateFailed if the meal is not currently processing.
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// ListByDay retrieves the user's successful meals whose creation
	// timestamp falls within the given UTC calendar day.
	// Returns an empty slice if no meals match.
	ListByDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]*domain.Meal, error)

	// WithTx returns a new MealStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) MealStore
}
