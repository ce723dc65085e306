package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/galleon/clash-of-courses/internal/service"
	"github.com/galleon/clash-of-courses/pkg/response"
)

// ScheduleHandler exposes the weekly schedule endpoint.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Current godoc
// @Summary Student weekly schedule
// @Description Registered meetings for the student's active term, ordered by day then start time
// @Tags Schedules
// @Produce json
// @Param studentID path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentID}/schedule [get]
func (h *ScheduleHandler) Current(c *gin.Context) {
	schedule, err := h.schedules.CurrentSchedule(c.Request.Context(), c.Param("studentID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
