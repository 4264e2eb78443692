package relay

import "errors"

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrSendFailed    = errors.New("notification send failed")
	ErrAckFailed     = errors.New("callback acknowledgment failed")
	ErrInvalidInput  = errors.New("invalid input")
)
