package sentimen

import "errors"

// Errors returned by the pipeline stages. Stage errors wrap one of these so
// callers can branch with errors.Is.
var (
	// ErrValidation reports missing fields or columns and invalid parameters.
	ErrValidation = errors.New("validation error")

	// ErrInsufficientData reports an empty corpus or partition, or a class
	// too small to stratify or oversample.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrResourceLoad reports a dictionary or stemmer resource that could
	// not be loaded.
	ErrResourceLoad = errors.New("resource unavailable")

	// ErrModelState reports an operation invoked in the wrong lifecycle
	// state, e.g. predicting with an unfit model.
	ErrModelState = errors.New("invalid model state")
)
