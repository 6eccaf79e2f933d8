package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/gin-gonic/gin"
)

// SettingsHandler exposes the admin-editable settings
type SettingsHandler struct {
	settings *service.SettingsService
}

func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// List handles GET /api/settings
func (h *SettingsHandler) List(c *gin.Context) {
	all, err := h.settings.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make(map[string]string, len(all))
	for _, s := range all {
		out[s.Name] = s.Value
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

// Update handles PUT /api/settings with a name to value object
func (h *SettingsHandler) Update(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, middleware.NewBadRequestError(err.Error()))
		return
	}
	for name, value := range req {
		if strings.TrimSpace(name) == "" {
			respondError(c, middleware.NewBadRequestError("setting name is empty"))
			return
		}
		if err := h.settings.Set(c.Request.Context(), name, value); err != nil {
			respondError(c, err)
			return
		}
	}
	h.List(c)
}

// AuditHandler serves the audit trail recorded by the event bus
type AuditHandler struct {
	bus *events.EventBus
}

func NewAuditHandler(bus *events.EventBus) *AuditHandler {
	return &AuditHandler{bus: bus}
}

// List handles GET /api/audit?type=&subject=&user_id=&since=&limit=
func (h *AuditHandler) List(c *gin.Context) {
	filters := events.EventFilters{Subject: c.Query("subject")}
	for _, t := range strings.Split(c.Query("type"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			filters.Types = append(filters.Types, events.EventType(t))
		}
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, middleware.NewBadRequestError("invalid user_id"))
			return
		}
		filters.UserID = uint(id)
	}
	if raw := c.Query("since"); raw != "" {
		t, err := parseTimestamp(raw)
		if err != nil {
			respondError(c, middleware.NewBadRequestError("invalid since"))
			return
		}
		filters.StartTime = t
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	if filters.Limit <= 0 || filters.Limit > 1000 {
		filters.Limit = 100
	}

	list, err := h.bus.Query(filters)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": list, "queried_at": time.Now().UTC()})
}
