package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/mindwell/internal/common"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d", e.Status)
	}
	return fmt.Sprintf("server responded %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match the common sentinels with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return common.ErrValidation
	case http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case http.StatusForbidden:
		return common.ErrorForbidden
	case http.StatusNotFound:
		return common.ErrorNotFound
	}
	return nil
}

// IsNetwork reports whether err means the request never got an answer.
func IsNetwork(err error) bool {
	return errors.Is(err, common.ErrNetwork)
}

func networkError(err error) error {
	return fmt.Errorf("%w: %v", common.ErrNetwork, err)
}
