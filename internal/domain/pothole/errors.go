package pothole

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrDetectionFailed    = errors.New("detection failed")
	ErrGeocodingFailed    = errors.New("geocoding failed")
	ErrHistoryUnavailable = errors.New("pothole history unavailable")
	ErrNotFound           = errors.New("not found")
	ErrBusy               = errors.New("detection already in progress")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrUnauthorized       = errors.New("unauthorized")
)
