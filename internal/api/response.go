package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andy/billable/internal/auth"
	"github.com/andy/billable/internal/domain"
)

// Response is the envelope every endpoint returns
type Response struct {
	Success bool              `json:"success"`
	Data    any               `json:"data"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

const internalMessage = "an unexpected error occurred"

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string, fields map[string]string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message, Errors: fields})
}

// respondError maps the error taxonomy onto HTTP statuses. Anything outside
// it is reported as a 500 without detail.
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		verr  *domain.ValidationError
		nf    *domain.NotFoundError
		conf  *domain.ConflictError
		state *domain.InvalidStateError
	)
	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, "validation failed", verr.Fields)
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		fail(c, http.StatusUnauthorized, err.Error(), nil)
	case errors.As(err, &nf):
		fail(c, http.StatusNotFound, nf.Error(), nil)
	case errors.As(err, &conf):
		fail(c, http.StatusConflict, conf.Error(), nil)
	case errors.As(err, &state):
		fail(c, http.StatusConflict, state.Error(), nil)
	default:
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"request_id", c.GetString(ctxRequestID),
			"path", c.FullPath(),
			"error", err,
		)
		fail(c, http.StatusInternalServerError, internalMessage, nil)
	}
}

// bind decodes the JSON body into req, answering 400 on malformed input
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", map[string]string{"body": err.Error()})
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "validation failed", map[string]string{name: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

// queryID reads an optional positive integer query parameter
func queryID(c *gin.Context, name string) (*int64, bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "validation failed", map[string]string{name: "must be a positive integer"})
		return nil, false
	}
	return &id, true
}

// queryTime reads an optional RFC 3339 timestamp or YYYY-MM-DD date
func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	fail(c, http.StatusBadRequest, "validation failed", map[string]string{name: fmt.Sprintf("%q is not a date", raw)})
	return nil, false
}

func queryBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func logAttrs(c *gin.Context) []any {
	attrs := []any{"request_id", c.GetString(ctxRequestID)}
	if id := userID(c); id != 0 {
		attrs = append(attrs, "user_id", id)
	}
	return attrs
}
