package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/eventdesk/eventdesk/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// AppError is an error that knows its HTTP status and machine-readable code
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail attaches a key to the reply's details object
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

func (e *AppError) response() ErrorResponse {
	return ErrorResponse{Error: e.Message, Code: e.Code, Details: e.Details}
}

func newAppError(status int, code, message string) *AppError {
	return &AppError{StatusCode: status, Code: code, Message: message}
}

func NewBadRequestError(message string) *AppError {
	return newAppError(http.StatusBadRequest, "BAD_REQUEST", message)
}

func NewNotFoundError(resource string) *AppError {
	return newAppError(http.StatusNotFound, "NOT_FOUND", resource+" not found")
}

func NewUnauthorizedError(message string) *AppError {
	return newAppError(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func NewForbiddenError(message string) *AppError {
	return newAppError(http.StatusForbidden, "FORBIDDEN", message)
}

func NewInternalError(err error) *AppError {
	e := newAppError(http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	e.Err = err
	return e
}

func requestFields(c *gin.Context) map[string]interface{} {
	return map[string]interface{}{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}
}

// ErrorHandler recovers panics and turns errors left on the context by
// c.Error into replies, unless the handler already wrote one.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			logger.Error("Panic recovered", err, requestFields(c))
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Internal server error",
				Message: "An unexpected error occurred",
				Code:    "INTERNAL_ERROR",
			})
		}()

		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		var appErr *AppError
		if !errors.As(last.Err, &appErr) {
			appErr = NewInternalError(last.Err)
		}
		HandleAppError(c, appErr)
	}
}

// HandleAppError writes the reply. 5xx is logged as an error, 4xx as a warning.
func HandleAppError(c *gin.Context, err *AppError) {
	fields := requestFields(c)
	fields["code"] = err.Code
	fields["status"] = err.StatusCode

	if err.StatusCode >= http.StatusInternalServerError {
		logger.Error(err.Message, err.Err, fields)
	} else {
		logger.Warn(err.Message, fields)
	}
	c.AbortWithStatusJSON(err.StatusCode, err.response())
}
