package response

import (
	"net/http"

	"cineticket/internal/shared/apperr"
	"cineticket/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes err using the status code of its kind. Errors without
// a kind are logged and answered with a generic 500.
func RespondError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		logger.GetDefault().LogHTTPError(c, err, http.StatusInternalServerError)
		RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
		return
	}

	var details interface{}
	if len(appErr.Details) > 0 {
		details = appErr.Details
	}
	RespondJSON(c, "error", StatusCodeFor(appErr.Kind), appErr.Message, nil, details)
}

// StatusCodeFor maps an error kind to an HTTP status code.
func StatusCodeFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidState:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidSignature, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindProviderError:
		return http.StatusBadGateway
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
