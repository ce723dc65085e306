package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/galleon/clash-of-courses/internal/dto"
	"github.com/galleon/clash-of-courses/internal/models"
	"github.com/galleon/clash-of-courses/internal/service"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
	"github.com/galleon/clash-of-courses/pkg/response"
)

// SectionHandler exposes administrative section endpoints and rule
// documentation.
type SectionHandler struct {
	sections *service.SectionService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections *service.SectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// OverrideCapacity godoc
// @Summary Override section capacity
// @Description Raise or lower a section's seat limit; never below the current enrolled count
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body dto.OverrideCapacityRequest true "Capacity payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /sections/{id}/capacity [put]
func (h *SectionHandler) OverrideCapacity(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.OverrideCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.sections.OverrideCapacity(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ExplainRule godoc
// @Summary Explain a business rule
// @Description Reviewer-facing documentation for a violation rule code
// @Tags Rules
// @Produce json
// @Param code path string true "Rule code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rules/{code} [get]
func (h *SectionHandler) ExplainRule(c *gin.Context) {
	code := models.RuleCode(strings.ToUpper(c.Param("code")))
	explanation, err := h.sections.ExplainRule(code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, explanation, nil)
}
