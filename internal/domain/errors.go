package domain

import "errors"

var (
	// ErrInsufficientHistory reports that a product has too little sales history
	// to build features or to train and evaluate a model.
	ErrInsufficientHistory = errors.New("insufficient sales history")

	// ErrModelNotAvailable reports that neither a product model nor a global
	// fallback model has been trained.
	ErrModelNotAvailable = errors.New("forecast model not available")

	// ErrInvalidConfiguration reports a policy or input value the decision
	// engine refuses to work with.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlertOpen is returned by CreateAlert when the product already has an
	// unacknowledged alert for the same risk level.
	ErrAlertOpen = errors.New("open alert already exists")
)

// IsForecastUnavailable reports whether err means no forecast can be produced
// for the product right now.
func IsForecastUnavailable(err error) bool {
	return errors.Is(err, ErrInsufficientHistory) || errors.Is(err, ErrModelNotAvailable)
}
