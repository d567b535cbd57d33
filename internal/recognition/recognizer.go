package recognition

import (
	"context"

	"github.com/foodiary/foodiary-api/internal/domain"
)

// Input carries the uploaded file to the recognition backend.
type Input struct {
	// FileKey is the storage key of the uploaded object, used for logging
	// and correlation only.
	FileKey string

	// Type tells the backend whether Data holds audio or a picture.
	Type domain.InputType

	// ContentType is the MIME type the file was uploaded with.
	ContentType string

	// Data is the raw file content.
	Data []byte
}

// Result is the structured output of a successful recognition call.
type Result struct {
	// Name is a short human-readable title for the meal (e.g. "Café").
	Name string

	// Icon is a single emoji representing the meal.
	Icon string

	// Foods lists the recognized food items in the order the backend
	// reported them.
	Foods []domain.Food
}

// Recognizer defines the interface for deriving structured meal data from
// an uploaded file. This interface serves as a boundary between the
// processing pipeline and external AI services, keeping the state-machine
// logic testable with a fake implementation.
type Recognizer interface {
	// Recognize analyzes the uploaded file and returns the structured
	// result. Implementations must honor ctx cancellation; the caller
	// bounds every invocation with a timeout, and a timeout is treated
	// identically to any other failure.
	Recognize(ctx context.Context, input Input) (*Result, error)
}
