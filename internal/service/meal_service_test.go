package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiary/foodiary-api/internal/domain"
	"github.com/foodiary/foodiary-api/internal/store"
)

// mockMealStore is a function-field mock of store.MealStore.
type mockMealStore struct {
	CreateFunc         func(ctx context.Context, meal *domain.Meal) error
	GetByIDForUserFunc func(ctx context.Context, userID, id uuid.UUID) (*domain.Meal, error)
	ListByDayFunc      func(ctx context.Context, userID uuid.UUID, day time.Time) ([]*domain.Meal, error)
}

func (m *mockMealStore) Create(ctx context.Context, meal *domain.Meal) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, meal)
	}
	return nil
}

func (m *mockMealStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Meal, error) {
	return nil, store.ErrMealNotFound
}

func (m *mockMealStore) GetByIDForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Meal, error) {
	if m.GetByIDForUserFunc != nil {
		return m.GetByIDForUserFunc(ctx, userID, id)
	}
	return nil, store.ErrMealNotFound
}

func (m *mockMealStore) GetByInputFileKey(ctx context.Context, fileKey string) (*domain.Meal, error) {
	return nil, store.ErrMealNotFound
}

func (m *mockMealStore) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

func (m *mockMealStore) CompleteRecognition(
	ctx context.Context,
	id uuid.UUID,
	name, icon string,
	foods []domain.Food,
) error {
	return nil
}

func (m *mockMealStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (m *mockMealStore) ListByDay(
	ctx context.Context,
	userID uuid.UUID,
	day time.Time,
) ([]*domain.Meal, error) {
	if m.ListByDayFunc != nil {
		return m.ListByDayFunc(ctx, userID, day)
	}
	return []*domain.Meal{}, nil
}

func (m *mockMealStore) WithTx(tx *sql.Tx) store.MealStore {
	return m
}

// mockPresigner is a function-field mock of Presigner.
type mockPresigner struct {
	PresignPutFunc func(ctx context.Context, key string, expiry time.Duration) (string, error)
}

func (m *mockPresigner) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.PresignPutFunc != nil {
		return m.PresignPutFunc(ctx, key, expiry)
	}
	return "https://storage.example.com/" + key, nil
}

// newServiceFixture builds a meal service with the transaction boundary
// replaced by a direct call, so unit tests need no database.
func newServiceFixture(
	t *testing.T,
	mealStore *mockMealStore,
	presigner *mockPresigner,
) MealService {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc, err := NewMealService(mealStore, &sql.DB{}, presigner, "uploads/", 15*time.Minute, logger)
	require.NoError(t, err)

	impl := svc.(*mealServiceImpl)
	impl.runInTx = func(ctx context.Context, db *sql.DB, fn store.TxFn) error {
		return fn(ctx, nil)
	}
	return svc
}

func TestNewMealService(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("fails with nil meal store", func(t *testing.T) {
		_, err := NewMealService(nil, &sql.DB{}, &mockPresigner{}, "uploads/", time.Minute, logger)

		assert.Error(t, err)
	})

	t.Run("fails with nil db", func(t *testing.T) {
		_, err := NewMealService(&mockMealStore{}, nil, &mockPresigner{}, "uploads/", time.Minute, logger)

		assert.Error(t, err)
	})

	t.Run("fails with nil presigner", func(t *testing.T) {
		_, err := NewMealService(&mockMealStore{}, &sql.DB{}, nil, "uploads/", time.Minute, logger)

		assert.Error(t, err)
	})

	t.Run("normalizes the upload prefix", func(t *testing.T) {
		svc, err := NewMealService(&mockMealStore{}, &sql.DB{}, &mockPresigner{}, "uploads", time.Minute, logger)

		require.NoError(t, err)
		assert.Equal(t, "uploads/", svc.(*mealServiceImpl).uploadPrefix)
	})
}

func TestRequestUpload(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("audio upload creates an uploading meal and presigned URL", func(t *testing.T) {
		var created *domain.Meal
		mealStore := &mockMealStore{
			CreateFunc: func(ctx context.Context, meal *domain.Meal) error {
				created = meal
				return nil
			},
		}
		var presignedKey string
		presigner := &mockPresigner{
			PresignPutFunc: func(ctx context.Context, key string, expiry time.Duration) (string, error) {
				presignedKey = key
				assert.Equal(t, 15*time.Minute, expiry)
				return "https://storage.example.com/" + key, nil
			},
		}

		svc := newServiceFixture(t, mealStore, presigner)
		target, err := svc.RequestUpload(context.Background(), userID, "audio/m4a")

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, domain.MealStatusUploading, created.Status)
		assert.Equal(t, domain.InputTypeAudio, created.InputType)
		assert.Equal(t, userID, created.UserID)
		assert.True(t, strings.HasPrefix(created.InputFileKey, "uploads/"))
		assert.True(t, strings.HasSuffix(created.InputFileKey, ".m4a"))
		assert.Equal(t, created.InputFileKey, presignedKey)
		assert.Equal(t, "https://storage.example.com/"+created.InputFileKey, target.UploadURL)
		assert.Empty(t, created.Name)
		assert.Empty(t, created.Foods)
	})

	t.Run("jpeg upload maps to picture input with jpg key", func(t *testing.T) {
		var created *domain.Meal
		mealStore := &mockMealStore{
			CreateFunc: func(ctx context.Context, meal *domain.Meal) error {
				created = meal
				return nil
			},
		}

		svc := newServiceFixture(t, mealStore, &mockPresigner{})
		_, err := svc.RequestUpload(context.Background(), userID, "image/jpeg")

		require.NoError(t, err)
		assert.Equal(t, domain.InputTypePicture, created.InputType)
		assert.True(t, strings.HasSuffix(created.InputFileKey, ".jpg"))
	})

	t.Run("distinct uploads get distinct keys", func(t *testing.T) {
		keys := map[string]bool{}
		mealStore := &mockMealStore{
			CreateFunc: func(ctx context.Context, meal *domain.Meal) error {
				keys[meal.InputFileKey] = true
				return nil
			},
		}

		svc := newServiceFixture(t, mealStore, &mockPresigner{})
		for i := 0; i < 5; i++ {
			_, err := svc.RequestUpload(context.Background(), userID, "audio/m4a")
			require.NoError(t, err)
		}

		assert.Len(t, keys, 5)
	})

	t.Run("unsupported file type is rejected before any side effect", func(t *testing.T) {
		mealStore := &mockMealStore{
			CreateFunc: func(ctx context.Context, meal *domain.Meal) error {
				t.Fatal("no meal must be created for rejected uploads")
				return nil
			},
		}

		svc := newServiceFixture(t, mealStore, &mockPresigner{})
		_, err := svc.RequestUpload(context.Background(), userID, "video/mp4")

		assert.ErrorIs(t, err, ErrUnsupportedFileType)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		storeErr := errors.New("connection refused")
		mealStore := &mockMealStore{
			CreateFunc: func(ctx context.Context, meal *domain.Meal) error {
				return storeErr
			},
		}

		svc := newServiceFixture(t, mealStore, &mockPresigner{})
		_, err := svc.RequestUpload(context.Background(), userID, "audio/m4a")

		assert.ErrorIs(t, err, storeErr)
		var svcErr *MealServiceError
		assert.ErrorAs(t, err, &svcErr)
	})

	t.Run("presign failure is wrapped", func(t *testing.T) {
		presignErr := errors.New("storage unreachable")
		presigner := &mockPresigner{
			PresignPutFunc: func(ctx context.Context, key string, expiry time.Duration) (string, error) {
				return "", presignErr
			},
		}

		svc := newServiceFixture(t, &mockMealStore{}, presigner)
		_, err := svc.RequestUpload(context.Background(), userID, "audio/m4a")

		assert.ErrorIs(t, err, presignErr)
	})
}

func TestGetMeal(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("returns the user's meal", func(t *testing.T) {
		meal, err := domain.NewMeal(userID, "uploads/k1.m4a", domain.InputTypeAudio)
		require.NoError(t, err)

		mealStore := &mockMealStore{
			GetByIDForUserFunc: func(ctx context.Context, gotUser, gotID uuid.UUID) (*domain.Meal, error) {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, meal.ID, gotID)
				return meal, nil
			},
		}

		svc := newServiceFixture(t, mealStore, &mockPresigner{})
		got, err := svc.GetMeal(context.Background(), userID, meal.ID)

		require.NoError(t, err)
		assert.Equal(t, meal, got)
	})

	t.Run("missing meal maps to service not found", func(t *testing.T) {
		svc := newServiceFixture(t, &mockMealStore{}, &mockPresigner{})

		_, err := svc.GetMeal(context.Background(), userID, uuid.New())

		assert.ErrorIs(t, err, ErrMealNotFound)
	})
}

func TestListMealsByDay(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("returns the day's meals", func(t *testing.T) {
		meal, err := domain.NewMeal(userID, "uploads/k1.m4a", domain.InputTypeAudio)
		require.NoError(t, err)

		day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		mealStore := &mockMealStore{
			ListByDayFunc: func(ctx context.Context, gotUser uuid.UUID, gotDay time.Time) ([]*domain.Meal, error) {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, day, gotDay)
				return []*domain.Meal{meal}, nil
			},
		}

		svc := newServiceFixture(t, mealStore, &mockPresigner{})
		meals, err := svc.ListMealsByDay(context.Background(), userID, day)

		require.NoError(t, err)
		assert.Len(t, meals, 1)
	})

	t.Run("empty day yields empty slice", func(t *testing.T) {
		svc := newServiceFixture(t, &mockMealStore{}, &mockPresigner{})

		meals, err := svc.ListMealsByDay(context.Background(), userID, time.Now().UTC())

		require.NoError(t, err)
		assert.Empty(t, meals)
	})
}
