package api

import (
	"fmt"
	"strconv"

	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/gin-gonic/gin"
)

// maxPerPage bounds explicit ?per_page= values
const maxPerPage = 500

// eventIDParam reads the :sid/:cid path pair
func eventIDParam(c *gin.Context) (models.EventID, error) {
	return models.ParseEventID(fmt.Sprintf("%s-%s", c.Param("sid"), c.Param("cid")))
}

func uintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		return 0, middleware.NewBadRequestError("invalid " + name)
	}
	return uint(v), nil
}

// pageQuery returns ?page= (default 1) and ?per_page=, 0 when absent
func pageQuery(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.Query("per_page"))
	if perPage < 0 {
		perPage = 0
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
