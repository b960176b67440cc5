package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/revroute/internal/audit/domain"
	billingdomain "github.com/smallbiznis/revroute/internal/billing/domain"
	entitydomain "github.com/smallbiznis/revroute/internal/entity/domain"
	pausedomain "github.com/smallbiznis/revroute/internal/pause/domain"
	routingdomain "github.com/smallbiznis/revroute/internal/routing/domain"
	subscriptiondomain "github.com/smallbiznis/revroute/internal/subscription/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

// ErrorHandlingMiddleware renders the last recorded error as a JSON
// envelope. Raw stack traces never reach the client.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var thresholdErr *routingdomain.ThresholdExceededError
	var alreadyApplied *pausedomain.AlreadyAppliedError
	var externalErr *billingdomain.ExternalServiceError

	switch {
	case errors.As(err, &thresholdErr):
		return http.StatusUnprocessableEntity, errorPayload{Type: "threshold_exceeded", Message: thresholdErr.Error()}
	case errors.As(err, &alreadyApplied):
		return http.StatusConflict, errorPayload{Type: "already_applied", Message: alreadyApplied.Error()}
	case errors.As(err, &externalErr):
		return http.StatusBadGateway, errorPayload{Type: "external_service_error", Message: externalErr.Error()}
	case errors.Is(err, routingdomain.ErrNoEntitiesAvailable):
		return http.StatusUnprocessableEntity, errorPayload{Type: "no_entities_available", Message: "no active entities to route to"}
	case errors.Is(err, auditdomain.ErrDuplicateOperation):
		return http.StatusConflict, errorPayload{Type: "duplicate_operation", Message: "operation already recorded"}
	case errors.Is(err, pausedomain.ErrRunInProgress):
		return http.StatusConflict, errorPayload{Type: "run_in_progress", Message: "a pause batch run is already in progress"}
	case errors.Is(err, pausedomain.ErrOverlappingWindow):
		return http.StatusConflict, errorPayload{Type: "overlapping_window", Message: "subscription already has an open pause window in this range"}
	case errors.Is(err, entitydomain.ErrEntityNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, pausedomain.ErrWindowNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "resource not found"}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pausedomain.ErrInvalidWindow),
		errors.Is(err, entitydomain.ErrInvalidEntity),
		errors.Is(err, routingdomain.ErrInvalidCandidate),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal error"}
	}
}
