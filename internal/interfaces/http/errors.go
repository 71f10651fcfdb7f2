package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/authz"
	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/application/projection"
	"github.com/garyjia/pto-workflow/internal/application/workflow"
	domainwf "github.com/garyjia/pto-workflow/internal/domain/workflow"
)

// errBadRequest marks malformed input caught at the boundary
var errBadRequest = errors.New("bad request")

// Error codes returned alongside the message
const (
	codeDenied            = "DENIED"
	codeInvalidTransition = "INVALID_TRANSITION"
	codeConflict          = "CONFLICT"
	codeNotFound          = "NOT_FOUND"
	codeInvalidRequest    = "INVALID_REQUEST"
	codeUnavailable       = "UNAVAILABLE"
	codeInternal          = "INTERNAL"
)

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, authz.ErrDenied):
		return http.StatusForbidden, codeDenied
	case errors.Is(err, domainwf.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, codeInvalidTransition
	case errors.Is(err, workflow.ErrConflict):
		return http.StatusConflict, codeConflict
	case errors.Is(err, workflow.ErrNotFound),
		errors.Is(err, projection.ErrNotFound),
		errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, workflow.ErrInvalidRequest),
		errors.Is(err, domainwf.ErrUnknownAction),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// respondError writes the error envelope. Internal errors are logged and
// their detail withheld from the client.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)

	resp := Response{Success: false, Code: code, Error: err.Error()}
	if reason := authz.ReasonOf(err); reason != "" {
		resp.Reason = string(reason)
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("user_id", currentUser(c)),
			zap.Error(err))
		resp.Error = "internal server error"
	}

	c.JSON(status, resp)
}
