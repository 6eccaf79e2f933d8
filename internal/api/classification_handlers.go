package api

import (
	"errors"
	"net/http"
	"net/netip"
	"strings"

	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/search"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/gin-gonic/gin"
)

// ClassificationHandler lists classifications and queues classification jobs
type ClassificationHandler struct {
	classifications *service.ClassificationService
	massActions     *service.MassActionService
}

func NewClassificationHandler(classifications *service.ClassificationService, massActions *service.MassActionService) *ClassificationHandler {
	return &ClassificationHandler{
		classifications: classifications,
		massActions:     massActions,
	}
}

// List handles GET /api/classifications
func (h *ClassificationHandler) List(c *gin.Context) {
	list, err := h.classifications.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classifications": list})
}

type classifyRequest struct {
	// Events is a "sid-cid,sid-cid" list
	Events           string `json:"events" binding:"required"`
	ClassificationID uint   `json:"classification_id"`
	Reclassify       bool   `json:"reclassify"`
}

// Classify handles POST /api/events/classify. The work runs on the job queue;
// success carries no body.
func (h *ClassificationHandler) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, middleware.NewBadRequestError(err.Error()))
		return
	}
	ids, err := models.ParseEventIDList(req.Events)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(ids) == 0 {
		respondError(c, middleware.NewBadRequestError("no events given"))
		return
	}

	if err := h.classifications.Enqueue(c.Request.Context(), ids, req.ClassificationID, middleware.GetUserID(c), req.Reclassify); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// massActionRequest takes the console's form: each optional criterion is
// only applied when its use_ flag is set.
type massActionRequest struct {
	ClassificationID uint   `json:"classification_id" form:"classification_id"`
	SensorIDs        []uint `json:"sensor_ids" form:"sensor_ids[]"`
	UseSigID         bool   `json:"use_sig_id" form:"use_sig_id"`
	SigID            uint   `json:"sig_id" form:"sig_id"`
	UseIPSrc         bool   `json:"use_ip_src" form:"use_ip_src"`
	IPSrc            string `json:"ip_src" form:"ip_src"`
	UseIPDst         bool   `json:"use_ip_dst" form:"use_ip_dst"`
	IPDst            string `json:"ip_dst" form:"ip_dst"`
	Reclassify       bool   `json:"reclassify" form:"reclassify"`
}

func (r massActionRequest) filter() (search.MassFilter, error) {
	f := search.MassFilter{SensorIDs: r.SensorIDs}
	if r.UseSigID && r.SigID != 0 {
		sig := r.SigID
		f.SignatureID = &sig
	}
	for _, a := range []struct {
		use bool
		raw string
		dst **netip.Addr
	}{{r.UseIPSrc, r.IPSrc, &f.IPSrc}, {r.UseIPDst, r.IPDst, &f.IPDst}} {
		raw := strings.TrimSpace(a.raw)
		if !a.use || raw == "" {
			continue
		}
		v, err := search.ParseAddress(raw)
		if err != nil {
			return f, middleware.NewBadRequestError(err.Error())
		}
		addr := models.Uint32ToAddr(v)
		*a.dst = &addr
	}
	return f, nil
}

// MassAction handles POST /api/events/mass-action. A request without any
// filter criterion is answered with 200 and an error message for the console
// to show; nothing is queued.
func (h *ClassificationHandler) MassAction(c *gin.Context) {
	var req massActionRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, middleware.NewBadRequestError(err.Error()))
		return
	}
	filter, err := req.filter()
	if err != nil {
		respondError(c, err)
		return
	}

	ref, err := h.massActions.Enqueue(c.Request.Context(), service.MassActionRequest{
		ClassificationID: req.ClassificationID,
		Filter:           filter,
		UserID:           middleware.GetUserID(c),
		Reclassify:       req.Reclassify,
	})
	if errors.Is(err, service.ErrInsufficientCriteria) {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Events are being classified in the background",
		"reference": ref,
	})
}
