package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiary/foodiary-api/internal/domain"
	"github.com/foodiary/foodiary-api/internal/store"
)

// fakeDBTX implements store.DBTX, recording the last exec/query call and
// returning canned results. Row-producing paths are covered through the
// scan helpers instead, since *sql.Rows cannot be built without a driver.
type fakeDBTX struct {
	execQuery  string
	execArgs   []any
	execResult sql.Result
	execErr    error

	queryQuery string
	queryArgs  []any
	queryErr   error
}

func (f *fakeDBTX) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.execQuery = query
	f.execArgs = args
	if f.execErr != nil {
		return nil, f.execErr
	}
	return f.execResult, nil
}

func (f *fakeDBTX) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, nil
}

func (f *fakeDBTX) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	f.queryQuery = query
	f.queryArgs = args
	return nil, f.queryErr
}

func (f *fakeDBTX) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

// fakeResult implements sql.Result with a fixed affected-row count.
type fakeResult struct {
	rows    int64
	rowsErr error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.rowsErr }

func validMeal(t *testing.T) *domain.Meal {
	t.Helper()
	meal, err := domain.NewMeal(uuid.New(), "uploads/k1.m4a", domain.InputTypeAudio)
	require.NoError(t, err)
	return meal
}

func TestNewPostgresMealStore(t *testing.T) {
	t.Run("nil db panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewPostgresMealStore(nil, nil)
		})
	})

	t.Run("nil logger uses default", func(t *testing.T) {
		s := NewPostgresMealStore(&fakeDBTX{}, nil)

		assert.NotNil(t, s)
		assert.NotNil(t, s.logger)
	})
}

func TestMealStoreCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid meal never reaches the database", func(t *testing.T) {
		db := &fakeDBTX{}
		s := NewPostgresMealStore(db, nil)

		err := s.Create(ctx, &domain.Meal{})

		assert.Error(t, err)
		assert.Empty(t, db.execQuery)
	})

	t.Run("unique violation maps to file key sentinel", func(t *testing.T) {
		db := &fakeDBTX{execErr: &pgconn.PgError{Code: pgUniqueViolationCode}}
		s := NewPostgresMealStore(db, nil)

		err := s.Create(ctx, validMeal(t))

		assert.ErrorIs(t, err, store.ErrFileKeyExists)
	})

	t.Run("other database errors pass through", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		db := &fakeDBTX{execErr: dbErr}
		s := NewPostgresMealStore(db, nil)

		err := s.Create(ctx, validMeal(t))

		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("inserts all meal columns", func(t *testing.T) {
		db := &fakeDBTX{execResult: fakeResult{rows: 1}}
		s := NewPostgresMealStore(db, nil)
		meal := validMeal(t)

		err := s.Create(ctx, meal)

		require.NoError(t, err)
		require.Len(t, db.execArgs, 10)
		assert.Equal(t, meal.ID, db.execArgs[0])
		assert.Equal(t, meal.UserID, db.execArgs[1])
		assert.Equal(t, meal.InputFileKey, db.execArgs[2])
		assert.Equal(t, domain.MealStatusUploading, db.execArgs[4])
	})
}

func TestScanMeal(t *testing.T) {
	id := uuid.New()
	userID := uuid.New()
	now := time.Now().UTC()

	scanRow := func(foodsJSON []byte) func(dest ...any) error {
		return func(dest ...any) error {
			*dest[0].(*uuid.UUID) = id
			*dest[1].(*uuid.UUID) = userID
			*dest[2].(*string) = "uploads/k1.m4a"
			*dest[3].(*string) = "audio"
			*dest[4].(*string) = "success"
			*dest[5].(*string) = "Café"
			*dest[6].(*string) = "🥐"
			*dest[7].(*[]byte) = foodsJSON
			*dest[8].(*time.Time) = now
			*dest[9].(*time.Time) = now
			return nil
		}
	}

	t.Run("full row", func(t *testing.T) {
		meal, err := scanMeal(scanRow([]byte(`[{"name":"coffee","quantity":"1 cup"}]`)))

		require.NoError(t, err)
		assert.Equal(t, id, meal.ID)
		assert.Equal(t, domain.MealStatusSuccess, meal.Status)
		assert.Equal(t, domain.InputTypeAudio, meal.InputType)
		assert.Equal(t, "Café", meal.Name)
		assert.Equal(t, []domain.Food{{Name: "coffee", Quantity: "1 cup"}}, meal.Foods)
	})

	t.Run("empty foods column yields empty slice", func(t *testing.T) {
		meal, err := scanMeal(scanRow(nil))

		require.NoError(t, err)
		assert.NotNil(t, meal.Foods)
		assert.Empty(t, meal.Foods)
	})

	t.Run("malformed foods column fails", func(t *testing.T) {
		_, err := scanMeal(scanRow([]byte(`not-json`)))

		assert.Error(t, err)
	})

	t.Run("scan errors pass through", func(t *testing.T) {
		scanErr := errors.New("driver: bad value")
		_, err := scanMeal(func(dest ...any) error { return scanErr })

		assert.ErrorIs(t, err, scanErr)
	})
}

func TestMealStoreMarkProcessing(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("transition taken when row was uploading", func(t *testing.T) {
		db := &fakeDBTX{execResult: fakeResult{rows: 1}}
		s := NewPostgresMealStore(db, nil)

		won, err := s.MarkProcessing(ctx, id)

		require.NoError(t, err)
		assert.True(t, won)
		require.Len(t, db.execArgs, 4)
		assert.Equal(t, domain.MealStatusProcessing, db.execArgs[0])
		assert.Equal(t, id, db.execArgs[2])
		assert.Equal(t, domain.MealStatusUploading, db.execArgs[3])
	})

	t.Run("database error surfaces", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		db := &fakeDBTX{execErr: dbErr}
		s := NewPostgresMealStore(db, nil)

		won, err := s.MarkProcessing(ctx, id)

		assert.ErrorIs(t, err, dbErr)
		assert.False(t, won)
	})
}

func TestMealStoreCompleteRecognition(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("zero affected rows maps to update sentinel", func(t *testing.T) {
		db := &fakeDBTX{execResult: fakeResult{rows: 0}}
		s := NewPostgresMealStore(db, nil)

		err := s.CompleteRecognition(ctx, id, "Café", "🥐", nil)

		assert.ErrorIs(t, err, store.ErrUpdateFailed)
	})

	t.Run("commits result fields guarded by processing state", func(t *testing.T) {
		db := &fakeDBTX{execResult: fakeResult{rows: 1}}
		s := NewPostgresMealStore(db, nil)
		foods := []domain.Food{{Name: "coffee", Quantity: "1 cup"}}

		err := s.CompleteRecognition(ctx, id, "Café", "🥐", foods)

		require.NoError(t, err)
		require.Len(t, db.execArgs, 7)
		assert.Equal(t, domain.MealStatusSuccess, db.execArgs[0])
		assert.Equal(t, "Café", db.execArgs[1])
		assert.Equal(t, "🥐", db.execArgs[2])
		assert.JSONEq(t, `[{"name":"coffee","quantity":"1 cup"}]`, string(db.execArgs[3].([]byte)))
		assert.Equal(t, id, db.execArgs[5])
		assert.Equal(t, domain.MealStatusProcessing, db.execArgs[6])
	})

	t.Run("nil foods stored as empty array", func(t *testing.T) {
		db := &fakeDBTX{execResult: fakeResult{rows: 1}}
		s := NewPostgresMealStore(db, nil)

		err := s.CompleteRecognition(ctx, id, "Café", "🥐", nil)

		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(db.execArgs[3].([]byte)))
	})
}

func TestMealStoreMarkFailed(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("zero affected rows maps to update sentinel", func(t *testing.T) {
		db := &fakeDBTX{execResult: fakeResult{rows: 0}}
		s := NewPostgresMealStore(db, nil)

		err := s.MarkFailed(ctx, id)

		assert.ErrorIs(t, err, store.ErrUpdateFailed)
	})

	t.Run("moves only the status", func(t *testing.T) {
		db := &fakeDBTX{execResult: fakeResult{rows: 1}}
		s := NewPostgresMealStore(db, nil)

		err := s.MarkFailed(ctx, id)

		require.NoError(t, err)
		require.Len(t, db.execArgs, 4)
		assert.Equal(t, domain.MealStatusFailed, db.execArgs[0])
		assert.Equal(t, id, db.execArgs[2])
		assert.Equal(t, domain.MealStatusProcessing, db.execArgs[3])
	})
}

func TestMealStoreListByDayWindow(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	// The fake cannot produce rows, so the query fails after the arguments
	// are captured; the window arithmetic is what matters here.
	queryErr := errors.New("no rows in unit test")

	t.Run("time of day is truncated to the calendar day", func(t *testing.T) {
		db := &fakeDBTX{queryErr: queryErr}
		s := NewPostgresMealStore(db, nil)
		day := time.Date(2025, 6, 1, 15, 4, 5, 0, time.UTC)

		_, err := s.ListByDay(ctx, userID, day)

		assert.ErrorIs(t, err, queryErr)
		require.Len(t, db.queryArgs, 4)
		assert.Equal(t, userID, db.queryArgs[0])
		assert.Equal(t, domain.MealStatusSuccess, db.queryArgs[1])
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), db.queryArgs[2])
	})

	t.Run("upper bound is the last millisecond of the day", func(t *testing.T) {
		db := &fakeDBTX{queryErr: queryErr}
		s := NewPostgresMealStore(db, nil)
		day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

		_, err := s.ListByDay(ctx, userID, day)

		assert.ErrorIs(t, err, queryErr)
		require.Len(t, db.queryArgs, 4)

		end, ok := db.queryArgs[3].(time.Time)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, 6, 1, 23, 59, 59, 999_000_000, time.UTC), end)
		// A timestamp one millisecond later belongs to the next day.
		assert.True(t, end.Add(time.Millisecond).Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
	})
}
