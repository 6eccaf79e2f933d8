package api

import (
	"net/http"

	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/gin-gonic/gin"
)

type LookupHandler struct {
	lookups *service.LookupService
}

func NewLookupHandler(lookups *service.LookupService) *LookupHandler {
	return &LookupHandler{lookups: lookups}
}

// Lookup handles GET /api/lookup?address=
func (h *LookupHandler) Lookup(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		respondError(c, middleware.NewBadRequestError("address is required"))
		return
	}
	result, err := h.lookups.Lookup(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// NotificationHandler manages the caller's alert subscriptions
type NotificationHandler struct {
	notifications *service.NotificationService
}

func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// Create handles POST /api/notifications
func (h *NotificationHandler) Create(c *gin.Context) {
	var req service.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, middleware.NewBadRequestError(err.Error()))
		return
	}
	n, err := h.notifications.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// Delete handles DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
