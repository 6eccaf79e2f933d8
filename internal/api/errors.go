package api

import (
	"errors"
	"net/http"

	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/pcap"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP replies
func respondError(c *gin.Context, err error) {
	middleware.HandleAppError(c, toAppError(err))
}

func toAppError(err error) *middleware.AppError {
	var appErr *middleware.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, models.ErrEventNotFound):
		return middleware.NewNotFoundError("Event")
	case errors.Is(err, models.ErrNoteNotFound):
		return middleware.NewNotFoundError("Note")
	case errors.Is(err, models.ErrClassificationNotFound):
		return middleware.NewNotFoundError("Classification")
	case errors.Is(err, models.ErrUserNotFound):
		return middleware.NewNotFoundError("User")
	case errors.Is(err, repository.ErrNotificationNotFound):
		return middleware.NewNotFoundError("Notification")
	case errors.Is(err, models.ErrInvalidCredentials):
		return middleware.NewUnauthorizedError("Invalid email or password")
	case errors.Is(err, models.ErrUserDisabled):
		return middleware.NewForbiddenError("Account is disabled")
	case errors.Is(err, service.ErrNotePermission):
		return middleware.NewForbiddenError(err.Error())
	case errors.Is(err, service.ErrLookupDisabled):
		return middleware.NewForbiddenError(err.Error())
	case errors.Is(err, pcap.ErrNotConfigured):
		return &middleware.AppError{StatusCode: http.StatusNotFound, Code: "NOT_CONFIGURED", Message: err.Error()}
	case errors.Is(err, models.ErrInvalidEventID),
		errors.Is(err, service.ErrEmptyNote),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidPerPage),
		errors.Is(err, service.ErrNotificationTarget),
		errors.Is(err, pcap.ErrNoIPHeader):
		return middleware.NewBadRequestError(err.Error())
	}
	return middleware.NewInternalError(err)
}
