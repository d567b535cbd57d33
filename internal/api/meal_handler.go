package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/foodiary/foodiary-api/internal/api/shared"
	"github.com/foodiary/foodiary-api/internal/domain"
	"github.com/foodiary/foodiary-api/internal/service"
)

// CreateMealRequest represents the request body for announcing a meal upload
type CreateMealRequest struct {
	FileType string `json:"file_type" validate:"required"`
}

// CreateMealResponse carries the created meal ID and the pre-signed URL the
// client must PUT the file to.
type CreateMealResponse struct {
	MealID    string `json:"mealId"`
	UploadURL string `json:"uploadUrl"`
}

// MealResponse represents the response data for a meal
type MealResponse struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	Name      string        `json:"name"`
	Icon      string        `json:"icon"`
	Foods     []domain.Food `json:"foods"`
	CreatedAt time.Time     `json:"createdAt"`
}

// MealHandler handles meal-related HTTP requests
type MealHandler struct {
	mealService service.MealService
	validator   *validator.Validate
}

// NewMealHandler creates a new MealHandler
func NewMealHandler(mealService service.MealService) *MealHandler {
	return &MealHandler{
		mealService: mealService,
		validator:   validator.New(),
	}
}

// CreateMeal handles POST /api/meals requests. It creates a meal in
// uploading state and hands back the upload target; the file body itself
// goes directly to storage.
func (h *MealHandler) CreateMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateMealRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	target, err := h.mealService.RequestUpload(r.Context(), userID, req.FileType)
	if err != nil {
		status := MapErrorToStatusCode(err)
		if status >= http.StatusInternalServerError {
			slog.Error("failed to create meal", "error", err, "user_id", userID)
		}
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, CreateMealResponse{
		MealID:    target.Meal.ID.String(),
		UploadURL: target.UploadURL,
	})
}

// GetMeal handles GET /api/meals/{id} requests
func (h *MealHandler) GetMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	mealID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid meal ID")
		return
	}

	meal, err := h.mealService.GetMeal(r.Context(), userID, mealID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]MealResponse{
		"meal": mealToResponse(meal),
	})
}

// ListMeals handles GET /api/meals?date=YYYY-MM-DD requests, returning the
// user's successfully processed meals for that UTC day.
func (h *MealHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing date query parameter")
		return
	}

	day, err := time.ParseInLocation("2006-01-02", dateParam, time.UTC)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	meals, err := h.mealService.ListMealsByDay(r.Context(), userID, day)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]MealResponse, 0, len(meals))
	for _, meal := range meals {
		responses = append(responses, mealToResponse(meal))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string][]MealResponse{
		"meals": responses,
	})
}

// mealToResponse converts a domain.Meal to a MealResponse
func mealToResponse(meal *domain.Meal) MealResponse {
	foods := meal.Foods
	if foods == nil {
		foods = []domain.Food{}
	}

	return MealResponse{
		ID:        meal.ID.String(),
		Status:    string(meal.Status),
		Name:      meal.Name,
		Icon:      meal.Icon,
		Foods:     foods,
		CreatedAt: meal.CreatedAt,
	}
}
