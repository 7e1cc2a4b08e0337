package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/middleware"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// respondError maps err onto a status code and a structured body.
// Errors outside the taxonomy are reported as persistence failures without
// leaking their text.
func respondError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"requestId": c.GetString(middleware.KeyRequestID),
			"path":      c.FullPath(),
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// badRequest reports a body or query that could not be decoded.
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errorBody{
		Code:    apperr.CodeValidation,
		Message: "Invalid request payload",
		Details: err.Error(),
	}})
}

func classify(err error) (int, errorBody) {
	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
		funds      *apperr.InsufficientFundsError
		stale      *apperr.StaleStateError
		forbidden  *apperr.ForbiddenError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorBody{Code: apperr.CodeValidation, Message: err.Error(), Details: validation.Fields}
	case errors.As(err, &notFound):
		return http.StatusNotFound, errorBody{Code: apperr.CodeNotFound, Message: err.Error()}
	case errors.As(err, &funds):
		return http.StatusPaymentRequired, errorBody{
			Code:    apperr.CodeInsufficientFunds,
			Message: "Insufficient wallet balance",
			Details: gin.H{"balance": funds.Balance.StringFixed(2), "required": funds.Required.StringFixed(2)},
		}
	case errors.As(err, &stale):
		return http.StatusConflict, errorBody{
			Code:    apperr.CodeStaleState,
			Message: err.Error(),
			Details: gin.H{"current": stale.Current, "expected": stale.Expected},
		}
	case errors.As(err, &forbidden):
		return http.StatusForbidden, errorBody{Code: apperr.CodeForbidden, Message: forbidden.Reason}
	default:
		return http.StatusInternalServerError, errorBody{Code: apperr.CodePersistence, Message: "Internal server error"}
	}
}
