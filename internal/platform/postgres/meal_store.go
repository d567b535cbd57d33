package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/foodiary/foodiary-api/internal/domain"
	"github.com/foodiary/foodiary-api/internal/platform/logger"
	"github.com/foodiary/foodiary-api/internal/store"
)

// PostgreSQL error codes
const pgUniqueViolationCode = "23505"

// PostgresMealStore implements the store.MealStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMealStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMealStore creates a new PostgreSQL implementation of the MealStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresMealStore(db store.DBTX, logger *slog.Logger) *PostgresMealStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMealStore{
		db:     db,
		logger: logger.With(slog.String("component", "meal_store")),
	}
}

// Ensure PostgresMealStore implements store.MealStore interface
var _ store.MealStore = (*PostgresMealStore)(nil)

// WithTx returns a new store instance bound to the provided transaction.
func (s *PostgresMealStore) WithTx(tx *sql.Tx) store.MealStore {
	return &PostgresMealStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.MealStore.Create
// It saves a new meal to the database, handling domain validation.
// Returns store.ErrFileKeyExists if the input file key is already in use.
func (s *PostgresMealStore) Create(ctx context.Context, meal *domain.Meal) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := meal.Validate(); err != nil {
		log.Warn("meal validation failed during create",
			slog.String("error", err.Error()),
			slog.String("meal_id", meal.ID.String()))
		return err
	}

	foodsJSON, err := json.Marshal(meal.Foods)
	if err != nil {
		return fmt.Errorf("failed to marshal foods: %w", err)
	}

	query := `
		INSERT INTO meals (id, user_id, input_file_key, input_type, status,
			name, icon, foods, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		meal.ID,
		meal.UserID,
		meal.InputFileKey,
		meal.InputType,
		meal.Status,
		meal.Name,
		meal.Icon,
		foodsJSON,
		meal.CreatedAt,
		meal.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			log.Warn("unique violation during meal creation",
				slog.String("error", err.Error()),
				slog.String("meal_id", meal.ID.String()),
				slog.String("input_file_key", meal.InputFileKey))
			return fmt.Errorf("%w: %s", store.ErrFileKeyExists, meal.InputFileKey)
		}

		log.Error("failed to create meal",
			slog.String("error", err.Error()),
			slog.String("meal_id", meal.ID.String()),
			slog.String("user_id", meal.UserID.String()))
		return err
	}

	log.Info("meal created successfully",
		slog.String("meal_id", meal.ID.String()),
		slog.String("user_id", meal.UserID.String()),
		slog.String("status", string(meal.Status)))
	return nil
}

// mealColumns is the column list shared by every meal select.
const mealColumns = `id, user_id, input_file_key, input_type, status, name, icon, foods, created_at, updated_at`

// scanMeal reads one meal row from the given row scanner.
func scanMeal(scan func(dest ...any) error) (*domain.Meal, error) {
	var meal domain.Meal
	var status, inputType string
	var foodsJSON []byte

	err := scan(
		&meal.ID,
		&meal.UserID,
		&meal.InputFileKey,
		&inputType,
		&status,
		&meal.Name,
		&meal.Icon,
		&foodsJSON,
		&meal.CreatedAt,
		&meal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	meal.Status = domain.MealStatus(status)
	meal.InputType = domain.InputType(inputType)

	if len(foodsJSON) > 0 {
		if err := json.Unmarshal(foodsJSON, &meal.Foods); err != nil {
			return nil, fmt.Errorf("failed to unmarshal foods: %w", err)
		}
	}
	if meal.Foods == nil {
		meal.Foods = []domain.Food{}
	}

	return &meal, nil
}

// GetByID implements store.MealStore.GetByID
// Returns store.ErrMealNotFound if the meal does not exist.
func (s *PostgresMealStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Meal, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + mealColumns + ` FROM meals WHERE id = $1`

	meal, err := scanMeal(s.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("meal not found", slog.String("meal_id", id.String()))
			return nil, store.ErrMealNotFound
		}
		log.Error("failed to get meal by ID",
			slog.String("error", err.Error()),
			slog.String("meal_id", id.String()))
		return nil, err
	}

	return meal, nil
}

// GetByIDForUser implements store.MealStore.GetByIDForUser
// Owner mismatch is reported as store.ErrMealNotFound rather than a
// dedicated forbidden error so that lookups never leak existence.
func (s *PostgresMealStore) GetByIDForUser(
	ctx context.Context,
	userID, id uuid.UUID,
) (*domain.Meal, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + mealColumns + ` FROM meals WHERE id = $1 AND user_id = $2`

	meal, err := scanMeal(s.db.QueryRowContext(ctx, query, id, userID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("meal not found for user",
				slog.String("meal_id", id.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrMealNotFound
		}
		log.Error("failed to get meal by ID for user",
			slog.String("error", err.Error()),
			slog.String("meal_id", id.String()))
		return nil, err
	}

	return meal, nil
}

// GetByInputFileKey implements store.MealStore.GetByInputFileKey
// Returns store.ErrMealNotFound if no meal references the key.
func (s *PostgresMealStore) GetByInputFileKey(
	ctx context.Context,
	fileKey string,
) (*domain.Meal, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + mealColumns + ` FROM meals WHERE input_file_key = $1`

	meal, err := scanMeal(s.db.QueryRowContext(ctx, query, fileKey).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no meal owns input file key",
				slog.String("input_file_key", fileKey))
			return nil, store.ErrMealNotFound
		}
		log.Error("failed to get meal by input file key",
			slog.String("error", err.Error()),
			slog.String("input_file_key", fileKey))
		return nil, err
	}

	return meal, nil
}

// MarkProcessing implements store.MealStore.MarkProcessing
// The update is conditional on the current status still being uploading, so
// concurrent duplicate deliveries collapse onto a single effective run: only
// one caller observes rows affected == 1.
func (s *PostgresMealStore) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE meals
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.MealStatusProcessing,
		time.Now().UTC(),
		id,
		domain.MealStatusUploading,
	)
	if err != nil {
		log.Error("failed to mark meal processing",
			slog.String("error", err.Error()),
			slog.String("meal_id", id.String()))
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("meal_id", id.String()))
		return false, err
	}

	if rowsAffected == 0 {
		// Distinguish a lost race from a missing row.
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return false, getErr
		}
		log.Debug("meal no longer in uploading state, transition not taken",
			slog.String("meal_id", id.String()))
		return false, nil
	}

	log.Info("meal marked processing",
		slog.String("meal_id", id.String()))
	return true, nil
}

// CompleteRecognition implements store.MealStore.CompleteRecognition
// Status, name, icon and foods are written in a single atomic update guarded
// by the processing state, so result fields are populated exactly when the
// meal reaches success and never partially.
func (s *PostgresMealStore) CompleteRecognition(
	ctx context.Context,
	id uuid.UUID,
	name, icon string,
	foods []domain.Food,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if foods == nil {
		foods = []domain.Food{}
	}
	foodsJSON, err := json.Marshal(foods)
	if err != nil {
		return fmt.Errorf("failed to marshal foods: %w", err)
	}

	query := `
		UPDATE meals
		SET status = $1, name = $2, icon = $3, foods = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.MealStatusSuccess,
		name,
		icon,
		foodsJSON,
		time.Now().UTC(),
		id,
		domain.MealStatusProcessing,
	)
	if err != nil {
		log.Error("failed to complete meal recognition",
			slog.String("error", err.Error()),
			slog.String("meal_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("meal_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Warn("meal not in processing state, success transition rejected",
			slog.String("meal_id", id.String()))
		return fmt.Errorf("%w: meal %s is not processing", store.ErrUpdateFailed, id)
	}

	log.Info("meal recognition completed",
		slog.String("meal_id", id.String()),
		slog.String("name", name),
		slog.Int("food_count", len(foods)))
	return nil
}

// MarkFailed implements store.MealStore.MarkFailed
// The result fields are left at their empty defaults; only the status moves.
func (s *PostgresMealStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE meals
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.MealStatusFailed,
		time.Now().UTC(),
		id,
		domain.MealStatusProcessing,
	)
	if err != nil {
		log.Error("failed to mark meal failed",
			slog.String("error", err.Error()),
			slog.String("meal_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("meal_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Warn("meal not in processing state, failed transition rejected",
			slog.String("meal_id", id.String()))
		return fmt.Errorf("%w: meal %s is not processing", store.ErrUpdateFailed, id)
	}

	log.Info("meal marked failed",
		slog.String("meal_id", id.String()))
	return nil
}

// ListByDay implements store.MealStore.ListByDay
// The day boundaries are [00:00:00.000, 23:59:59.999] UTC, matching the
// listing contract; only successful meals are visible through listing.
func (s *PostgresMealStore) ListByDay(
	ctx context.Context,
	userID uuid.UUID,
	day time.Time,
) ([]*domain.Meal, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Millisecond)

	query := `
		SELECT ` + mealColumns + `
		FROM meals
		WHERE user_id = $1 AND status = $2 AND created_at >= $3 AND created_at <= $4
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, domain.MealStatusSuccess, start, end)
	if err != nil {
		log.Error("failed to query meals by day",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var meals []*domain.Meal
	for rows.Next() {
		meal, err := scanMeal(rows.Scan)
		if err != nil {
			log.Error("failed to scan meal row",
				slog.String("error", err.Error()))
			return nil, err
		}
		meals = append(meals, meal)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	if meals == nil {
		meals = []*domain.Meal{}
	}

	log.Debug("listed meals by day",
		slog.String("user_id", userID.String()),
		slog.Time("day", start),
		slog.Int("count", len(meals)))
	return meals, nil
}
