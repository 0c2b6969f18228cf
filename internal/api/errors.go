package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tandem/internal/assistant"
	"tandem/internal/model"
	"tandem/pkg/circuitbreaker"
	"tandem/pkg/outbox"
	"tandem/pkg/rbac"
	"tandem/pkg/util"
)

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	var denied *rbac.PermissionDeniedError
	var upstream *util.Upstream
	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, outbox.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrMalformedTask),
		errors.Is(err, assistant.ErrEmptyHistory):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotMember), errors.Is(err, model.ErrNotAuthor), errors.As(err, &denied):
		return http.StatusForbidden
	case errors.Is(err, assistant.ErrDialogueNotDone):
		return http.StatusConflict
	case errors.Is(err, assistant.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &upstream), errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes {"error": ...}. Internal errors are not echoed.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// optionalDate parses s when set; the zero time means absent.
func optionalDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return parseDate(s)
}
