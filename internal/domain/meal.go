package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MealStatus represents the processing state of a meal.
type MealStatus string

// Possible meal status values.
//
// A meal moves along uploading -> processing -> {success | failed}.
// Success and failed are terminal; no transition ever leaves them.
const (
	MealStatusUploading  MealStatus = "uploading"
	MealStatusProcessing MealStatus = "processing"
	MealStatusSuccess    MealStatus = "success"
	MealStatusFailed     MealStatus = "failed"
)

// IsTerminal reports whether the status is one of the terminal states.
func (s MealStatus) IsTerminal() bool {
	return s == MealStatusSuccess || s == MealStatusFailed
}

// InputType identifies the kind of file the user uploaded for a meal.
type InputType string

// Possible input type values, derived from the declared MIME type at
// creation time.
const (
	InputTypeAudio   InputType = "audio"
	InputTypePicture InputType = "picture"
)

// Common validation errors for Meal
var (
	ErrEmptyMealID       = errors.New("meal ID cannot be empty")
	ErrEmptyMealUserID   = errors.New("meal user ID cannot be empty")
	ErrEmptyInputFileKey = errors.New("meal input file key cannot be empty")
	ErrInvalidMealStatus = errors.New("invalid meal status")
	ErrInvalidInputType  = errors.New("invalid meal input type")
	ErrInvalidTransition = errors.New("invalid meal status transition")
)

// Food is a single recognized food item within a meal. The shape is owned
// by the recognition collaborator's contract: a name plus a free-form
// quantity/measure string (e.g. "1 cup").
type Food struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Meal represents one uploaded audio or picture file and the structured
// result derived from it. Name, Icon and Foods stay empty until the meal
// reaches the success state, and are set exactly once.
type Meal struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	InputFileKey string     `json:"input_file_key"`
	InputType    InputType  `json:"input_type"`
	Status       MealStatus `json:"status"`
	Name         string     `json:"name"`
	Icon         string     `json:"icon"`
	Foods        []Food     `json:"foods"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewMeal creates a new Meal in the uploading state with empty result
// fields. It generates a new UUID for the meal ID and sets the
// creation/update timestamps.
// Returns an error if validation fails.
func NewMeal(userID uuid.UUID, inputFileKey string, inputType InputType) (*Meal, error) {
	now := time.Now().UTC()
	meal := &Meal{
		ID:           uuid.New(),
		UserID:       userID,
		InputFileKey: inputFileKey,
		InputType:    inputType,
		Status:       MealStatusUploading,
		Name:         "",
		Icon:         "",
		Foods:        []Food{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := meal.Validate(); err != nil {
		return nil, err
	}

	return meal, nil
}

// Validate checks if the Meal has valid data.
// Returns an error if any field fails validation.
func (m *Meal) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyMealID
	}

	if m.UserID == uuid.Nil {
		return ErrEmptyMealUserID
	}

	if m.InputFileKey == "" {
		return ErrEmptyInputFileKey
	}

	if !isValidInputType(m.InputType) {
		return ErrInvalidInputType
	}

	if !isValidMealStatus(m.Status) {
		return ErrInvalidMealStatus
	}

	return nil
}

// CanTransitionTo reports whether moving from the meal's current status to
// the target status is permitted by the state machine. Terminal states
// absorb everything; re-entering processing from processing is allowed so
// that a crashed attempt can be retried by re-delivering the same event.
func (m *Meal) CanTransitionTo(target MealStatus) bool {
	if m.Status.IsTerminal() {
		return false
	}

	switch m.Status {
	case MealStatusUploading:
		return target == MealStatusProcessing
	case MealStatusProcessing:
		return target == MealStatusProcessing ||
			target == MealStatusSuccess ||
			target == MealStatusFailed
	default:
		return false
	}
}

// isValidMealStatus checks if the given status is a valid MealStatus.
func isValidMealStatus(status MealStatus) bool {
	switch status {
	case MealStatusUploading, MealStatusProcessing, MealStatusSuccess, MealStatusFailed:
		return true
	default:
		return false
	}
}

// isValidInputType checks if the given input type is a valid InputType.
func isValidInputType(inputType InputType) bool {
	switch inputType {
	case InputTypeAudio, InputTypePicture:
		return true
	default:
		return false
	}
}
