package api

import (
	"net/http"

	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/gin-gonic/gin"
)

type FavoriteHandler struct {
	favorites *service.FavoriteService
}

func NewFavoriteHandler(favorites *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// Toggle handles POST /api/events/:sid/:cid/favorite and answers {}
func (h *FavoriteHandler) Toggle(c *gin.Context) {
	id, err := eventIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := h.favorites.Toggle(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type eventsRequest struct {
	Events string `json:"events" binding:"required"`
}

func bindEventIDs(c *gin.Context) ([]models.EventID, bool) {
	var req eventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, middleware.NewBadRequestError(err.Error()))
		return nil, false
	}
	ids, err := models.ParseEventIDList(req.Events)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ids, true
}

// MassCreate handles POST /api/events/favorites
func (h *FavoriteHandler) MassCreate(c *gin.Context) {
	ids, ok := bindEventIDs(c)
	if !ok {
		return
	}
	if _, err := h.favorites.MassCreate(c.Request.Context(), ids, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// MassDestroy handles DELETE /api/events/favorites
func (h *FavoriteHandler) MassDestroy(c *gin.Context) {
	ids, ok := bindEventIDs(c)
	if !ok {
		return
	}
	if _, err := h.favorites.MassDestroy(c.Request.Context(), ids, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type NoteHandler struct {
	notes *service.NoteService
}

func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// List handles GET /api/events/:sid/:cid/notes?page=
func (h *NoteHandler) List(c *gin.Context) {
	id, err := eventIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, _ := pageQuery(c)
	notes, total, err := h.notes.List(c.Request.Context(), id, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notes": notes,
		"total": total,
		"page":  page,
		"pages": (total + service.NotesPerPage - 1) / service.NotesPerPage,
	})
}

type noteRequest struct {
	Body string `json:"body" binding:"required"`
}

// Create handles POST /api/events/:sid/:cid/notes
func (h *NoteHandler) Create(c *gin.Context) {
	id, err := eventIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, middleware.NewBadRequestError(err.Error()))
		return
	}
	note, err := h.notes.Create(c.Request.Context(), id, middleware.GetUserID(c), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// Delete handles DELETE /api/notes/:id
func (h *NoteHandler) Delete(c *gin.Context) {
	noteID, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	err = h.notes.Delete(c.Request.Context(), noteID, middleware.GetUserID(c), c.GetBool(middleware.ContextIsAdmin))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
