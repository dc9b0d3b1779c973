package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// messageFor hides internal details from clients.
func messageFor(err error, status int) string {
	switch status {
	case http.StatusBadRequest:
		return strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
	case http.StatusRequestEntityTooLarge:
		return common.ErrTooLarge.Error()
	case http.StatusInternalServerError:
		return common.ErrorInternal.Error()
	}
	return http.StatusText(status)
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	c.AbortWithStatusJSON(status, errorBody{Message: messageFor(err, status)})
}
