package telegram

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured = errors.New("telegram client not configured")
	ErrEmptyHandle   = errors.New("empty callback query id")
)

// APIError is a Bot API reply with ok=false.
type APIError struct {
	Method      string
	Status      int
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: status %d code %d: %s", e.Method, e.Status, e.Code, e.Description)
}
