package cli

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/mindwell/internal/client/client"
	"github.com/dmitrijs2005/mindwell/internal/common"
)

// describe turns a command error into a line for the user.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, common.ErrPermission):
		return "microphone not available, check the device and its permissions"
	case errors.Is(err, common.ErrNetwork):
		return "server unreachable, check your connection and try again"
	case errors.Is(err, common.ErrValidation) && !errors.As(err, &apiErr):
		return strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
	case errors.Is(err, common.ErrorUnauthorized):
		return "not authorized, set a valid access token with 'token'"
	case errors.As(err, &apiErr):
		return apiErr.Message
	}
	return err.Error()
}
