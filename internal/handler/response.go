package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/authz"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type Response struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Code    string            `json:"code,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Authorizer builds the middleware that admits callers holding a capability.
type Authorizer func(authz.Capability) gin.HandlerFunc

// RespondError writes err using the status of its AppError kind. Anything
// that is not an AppError is hidden behind a 500. The error is attached to
// the context for the error logging middleware.
func RespondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}
	_ = c.Error(err)

	c.AbortWithStatusJSON(appErr.StatusCode(), &Response{
		Status:  "error",
		Message: appErr.Message,
		Code:    appErr.Code,
		Errors:  appErr.Fields,
	})
}

// RespondBindError reports a request body or query that failed to bind.
func RespondBindError(c *gin.Context, err error) {
	if fields := validator.FieldErrors(err, validationMessages); fields != nil {
		RespondError(c, apperrors.Validation("validation failed", fields))
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		RespondError(c, apperrors.Validation("validation failed",
			map[string]string{typeErr.Field: "has the wrong type"}))
	case errors.As(err, &syntaxErr):
		RespondError(c, apperrors.Validation("malformed JSON body", nil))
	default:
		RespondError(c, apperrors.Validation(err.Error(), nil))
	}
}

// ParseID reads the :id path parameter. A malformed id cannot name an
// existing resource, so it is reported as not found.
func ParseID(c *gin.Context, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperrors.NotFound(resource, nil))
		return uuid.Nil, false
	}
	return id, true
}

// OK writes a success envelope.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, NewSuccessResponse(data))
}

// QueryBool reads an optional boolean query parameter.
func QueryBool(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.Validation("invalid query", map[string]string{name: "must be true or false"})
	}
	return &b, nil
}

// QueryIDs parses optional UUID query parameters into their targets; gin's
// form binding cannot decode uuid.UUID.
func QueryIDs(c *gin.Context, targets map[string]*uuid.UUID) error {
	fields := map[string]string{}
	for name, target := range targets {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			fields[name] = "must be a valid UUID"
			continue
		}
		*target = id
	}
	if len(fields) > 0 {
		return apperrors.Validation("invalid query", fields)
	}
	return nil
}
