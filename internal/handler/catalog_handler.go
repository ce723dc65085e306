package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/galleon/clash-of-courses/internal/models"
	"github.com/galleon/clash-of-courses/internal/service"
	"github.com/galleon/clash-of-courses/pkg/response"
)

// CatalogHandler exposes catalog browse endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Search godoc
// @Summary Search the course catalog
// @Tags Catalog
// @Produce json
// @Param q query string false "Search code or title"
// @Param level query int false "Course level"
// @Param termId query string false "Term with open sections"
// @Param available query bool false "Only courses with open seats"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /catalog/courses [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	var filter models.CourseFilter
	filter.Search = c.Query("q")
	filter.TermID = c.Query("termId")
	if level, err := strconv.Atoi(c.Query("level")); err == nil {
		filter.Level = level
	}
	if available, err := strconv.ParseBool(c.Query("available")); err == nil {
		filter.AvailableOnly = available
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	courses, pagination, err := h.catalog.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// GetCourse godoc
// @Summary Get a course
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/courses/{id} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	course, err := h.catalog.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ActiveTerm godoc
// @Summary Get the active term
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /terms/active [get]
func (h *CatalogHandler) ActiveTerm(c *gin.Context) {
	term, err := h.catalog.ActiveTerm(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, term, nil)
}

// GetTerm godoc
// @Summary Get a term
// @Tags Catalog
// @Produce json
// @Param id path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /terms/{id} [get]
func (h *CatalogHandler) GetTerm(c *gin.Context) {
	term, err := h.catalog.GetTerm(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, term, nil)
}

// GetSection godoc
// @Summary Get a section with meetings
// @Tags Catalog
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/sections/{id} [get]
func (h *CatalogHandler) GetSection(c *gin.Context) {
	section, err := h.catalog.GetSection(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}
