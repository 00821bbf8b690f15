package transporthttp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/service"
)

type Problem struct {
	Type     string              `json:"type,omitempty"`
	Title    string              `json:"title,omitempty"`
	Status   int                 `json:"status,omitempty"`
	Detail   string              `json:"detail,omitempty"`
	Instance string              `json:"instance,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Meta     map[string]any      `json:"meta,omitempty"`
}

func WriteProblem(c *gin.Context, status int, title, detail string, errs map[string][]string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, Problem{
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request.URL.Path,
		Errors:   errs,
	})
}

// writeError maps service errors onto problem responses.
func writeError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrInvalidStatus):
		WriteProblem(c, http.StatusUnprocessableEntity, "invalid status", err.Error(), nil)
	case errors.Is(err, domain.ErrUnknownEventType):
		WriteProblem(c, http.StatusBadRequest, "invalid parameters", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		WriteProblem(c, http.StatusNotFound, "not found", err.Error(), nil)
	case errors.As(err, &ve):
		title := "validation failed"
		if errors.Is(err, service.ErrInvalidPageRequest) {
			title = "invalid page request"
		}
		WriteProblem(c, http.StatusBadRequest, title, "one or more fields are invalid", ve.ByField())
	case errors.Is(err, service.ErrInvalidPageRequest):
		WriteProblem(c, http.StatusBadRequest, "invalid page request", err.Error(), nil)
	default:
		_ = c.Error(err)
		WriteProblem(c, http.StatusInternalServerError, "internal error", err.Error(), nil)
	}
}
