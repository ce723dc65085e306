package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/galleon/clash-of-courses/internal/dto"
	"github.com/galleon/clash-of-courses/internal/models"
	"github.com/galleon/clash-of-courses/internal/service"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
	"github.com/galleon/clash-of-courses/pkg/response"
)

// RegistrationHandler exposes the eligibility check and the request
// workflow endpoints.
type RegistrationHandler struct {
	registration *service.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// Evaluate godoc
// @Summary Check section eligibility
// @Description Run the full rule set for a student against a section without committing anything
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body dto.EvaluateRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /registration/evaluate [post]
func (h *RegistrationHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if !h.allowStudentScope(c, req.StudentID) {
		return
	}
	result, err := h.registration.Evaluate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Submit godoc
// @Summary Submit a registration request
// @Description Create an ADD, DROP or CHANGE_SECTION request; clean and auto-resolvable requests commit immediately
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /registration/requests [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if !h.allowStudentScope(c, req.StudentID) {
		return
	}
	result, err := h.registration.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Get a registration request
// @Tags Registration
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registration/requests/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	request, err := h.registration.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.allowStudentScope(c, request.StudentID) {
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// List godoc
// @Summary List registration requests
// @Tags Registration
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param state query string false "Comma-separated states"
// @Param type query string false "Filter by request type"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /registration/requests [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	var filter models.RequestFilter
	filter.StudentID = c.Query("studentId")
	filter.Type = models.RequestType(strings.ToUpper(c.Query("type")))
	if states := c.Query("state"); states != "" {
		for _, s := range strings.Split(states, ",") {
			filter.States = append(filter.States, models.RequestState(strings.TrimSpace(s)))
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	// Students only see their own requests.
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		filter.StudentID = claims.StudentID
	}

	requests, pagination, err := h.registration.ListRequests(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Decide godoc
// @Summary Decide on a registration request
// @Description Apply an approve, reject, refer, hold or cancel action to a pending request
// @Tags Registration
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecideRequestRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /registration/requests/{id}/decision [post]
func (h *RegistrationHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.DecideRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	actor := service.Actor{UserID: claims.UserID, Role: claims.Role, StudentID: claims.StudentID}
	request, err := h.registration.Decide(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// allowStudentScope blocks students from acting on other students'
// records; staff roles pass through. A false return means the error
// response was already written.
func (h *RegistrationHandler) allowStudentScope(c *gin.Context, studentID string) bool {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleStudent {
		return true
	}
	if claims.StudentID == studentID {
		return true
	}
	response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only act on their own registration"))
	return false
}
