package api

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/pcap"
	"github.com/eventdesk/eventdesk/internal/render"
	"github.com/eventdesk/eventdesk/internal/search"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/gin-gonic/gin"
)

// EventHandler serves the event list, detail views and per-event actions
type EventHandler struct {
	events    *service.EventService
	notes     *service.NoteService
	favorites *service.FavoriteService
	settings  *service.SettingsService
	mailer    *service.MailerService
	auth      *service.AuthService
}

func NewEventHandler(
	events *service.EventService,
	notes *service.NoteService,
	favorites *service.FavoriteService,
	settings *service.SettingsService,
	mailer *service.MailerService,
	auth *service.AuthService,
) *EventHandler {
	return &EventHandler{
		events:    events,
		notes:     notes,
		favorites: favorites,
		settings:  settings,
		mailer:    mailer,
		auth:      auth,
	}
}

// listResponse is a page of events plus which of them the caller starred
type listResponse struct {
	*service.Page
	Favorited []string `json:"favorited"`
}

// List handles GET /api/events
func (h *EventHandler) List(c *gin.Context) {
	params := search.ParamsFromQuery(c.Request.URL.Query())
	opts := h.listOptions(c)
	opts.Search = &params

	page, err := h.events.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondPage(c, page)
}

// Queue handles GET /api/events/queue
func (h *EventHandler) Queue(c *gin.Context) {
	page, err := h.events.Queue(c.Request.Context(), middleware.GetUserID(c), h.listOptions(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondPage(c, page)
}

// History handles GET /api/events/history
func (h *EventHandler) History(c *gin.Context) {
	opts := h.listOptions(c)
	page, err := h.events.History(c.Request.Context(), middleware.GetUserID(c), opts.Page, opts.PerPage)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondPage(c, page)
}

// Activity handles GET /api/events/activity/:user_id
func (h *EventHandler) Activity(c *gin.Context) {
	userID, err := uintParam(c, "user_id")
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := h.auth.GetUser(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	opts := h.listOptions(c)
	page, err := h.events.Activity(c.Request.Context(), userID, opts.Page, opts.PerPage)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondPage(c, page)
}

// Last handles GET /api/events/last
func (h *EventHandler) Last(c *gin.Context) {
	last, err := h.events.Last(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	var ts int64
	if !last.IsZero() {
		ts = last.Unix()
	}
	c.JSON(http.StatusOK, gin.H{"time": ts})
}

// Since handles GET /api/events/since?timestamp=
func (h *EventHandler) Since(c *gin.Context) {
	t, err := parseTimestamp(c.Query("timestamp"))
	if err != nil {
		respondError(c, middleware.NewBadRequestError("invalid timestamp"))
		return
	}
	feed, err := h.events.Since(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": feed})
}

// Export handles GET /api/events/export?events=&format=
func (h *EventHandler) Export(c *gin.Context) {
	list, err := h.events.FindByIDs(c.Request.Context(), c.Query("events"))
	if err != nil {
		respondError(c, err)
		return
	}

	format := render.Negotiate(c.Query("format"), c.GetHeader("Accept"), render.FormatJSON, render.FormatXML, render.FormatCSV)
	var buf bytes.Buffer
	switch format {
	case render.FormatXML:
		err = render.EventsXML(&buf, list)
	case render.FormatCSV:
		c.Header("Content-Disposition", `attachment; filename="events.csv"`)
		err = render.EventsCSV(&buf, list)
	default:
		summaries := make([]render.Summary, len(list))
		for i := range list {
			summaries[i] = render.Summarize(render.Report{Event: &list[i]})
		}
		c.JSON(http.StatusOK, summaries)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, render.ContentType(format), buf.Bytes())
}

// Show handles GET /api/events/:sid/:cid in every supported format
func (h *EventHandler) Show(c *gin.Context) {
	id, err := eventIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	event, err := h.events.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	notes, err := h.notes.All(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	report := render.Report{Event: event, Notes: notes, Generated: time.Now().UTC()}
	if event.Signature != nil {
		report.SignatureURL = h.settings.SignatureURL(ctx, event.Signature)
	}

	format := render.Negotiate(c.Query("format"), c.GetHeader("Accept"))
	var buf bytes.Buffer
	switch format {
	case render.FormatXML:
		err = render.EventXML(&buf, report)
	case render.FormatCSV:
		err = render.EventsCSV(&buf, []models.Event{*event})
	case render.FormatPDF:
		c.Header("Content-Disposition", `inline; filename="event-`+id.String()+`.pdf"`)
		err = render.PDF(&buf, report)
	case render.FormatHTML:
		err = render.HTML(&buf, report)
	default:
		favorite, ferr := h.favorites.IsFavorite(ctx, id, middleware.GetUserID(c))
		if ferr != nil {
			respondError(c, ferr)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"event":         render.Summarize(report),
			"notes":         notes,
			"favorite":      favorite,
			"signature_url": report.SignatureURL,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, render.ContentType(format), buf.Bytes())
}

// Delete handles DELETE /api/events/:sid/:cid
func (h *EventHandler) Delete(c *gin.Context) {
	id, err := eventIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.events.Delete(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

// Email handles POST /api/events/:sid/:cid/email
func (h *EventHandler) Email(c *gin.Context) {
	id, err := eventIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, middleware.NewBadRequestError(err.Error()))
		return
	}
	if err := h.mailer.Enqueue(c.Request.Context(), id, req.Email, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// PacketCapture handles GET /api/events/:sid/:cid/packet-capture
func (h *EventHandler) PacketCapture(c *gin.Context) {
	id, err := eventIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	plugin, opts, err := h.settings.PacketCapture(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if plugin == nil {
		respondError(c, pcap.ErrNotConfigured)
		return
	}
	if minutes, err := strconv.Atoi(c.Query("window")); err == nil && minutes > 0 {
		opts.Window = time.Duration(minutes) * time.Minute
	}

	event, err := h.events.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := plugin.URL(event, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plugin": plugin.Name(), "url": url})
}

// listOptions reads paging and sort, falling back to the user's page size
func (h *EventHandler) listOptions(c *gin.Context) service.ListOptions {
	page, perPage := pageQuery(c)
	if perPage == 0 {
		if user, err := h.auth.GetUser(c.Request.Context(), middleware.GetUserID(c)); err == nil {
			perPage = user.PageSize()
		}
	}
	return service.ListOptions{
		Page:      page,
		PerPage:   perPage,
		Sort:      c.Query("sort"),
		Direction: c.Query("direction"),
	}
}

func (h *EventHandler) respondPage(c *gin.Context, page *service.Page) {
	marked, err := h.favorites.FavoritedIDs(c.Request.Context(), middleware.GetUserID(c), page.Events)
	if err != nil {
		respondError(c, err)
		return
	}
	favorited := make([]string, 0, len(marked))
	for i := range page.Events {
		if id := page.Events[i].ID(); marked[id] {
			favorited = append(favorited, id.String())
		}
	}
	c.JSON(http.StatusOK, listResponse{Page: page, Favorited: favorited})
}

// parseTimestamp accepts unix seconds or RFC 3339; empty means the epoch
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}
