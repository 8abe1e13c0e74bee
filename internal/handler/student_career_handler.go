package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academico-sys/siu-api/internal/models"
	"github.com/academico-sys/siu-api/internal/service"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
	"github.com/academico-sys/siu-api/pkg/response"
)

// StudentCareerHandler exposes student career membership endpoints.
type StudentCareerHandler struct {
	service *service.StudentCareerService
}

// NewStudentCareerHandler constructs a student career handler.
func NewStudentCareerHandler(svc *service.StudentCareerService) *StudentCareerHandler {
	return &StudentCareerHandler{service: svc}
}

// List godoc
// @Summary List student careers
// @Tags StudentCareers
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param careerId query string false "Filter by career"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /student-careers [get]
func (h *StudentCareerHandler) List(c *gin.Context) {
	var filter models.StudentCareerFilter
	filter.StudentID = c.Query("studentId")
	filter.CareerID = c.Query("careerId")
	filter.Active = queryBool(c, "active")
	applyPaging(c, &filter.Page, &filter.PageSize)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	memberships, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, memberships, pagination)
}

// Get godoc
// @Summary Get student career detail
// @Tags StudentCareers
// @Produce json
// @Param id path string true "Student career ID"
// @Success 200 {object} response.Envelope
// @Router /student-careers/{id} [get]
func (h *StudentCareerHandler) Get(c *gin.Context) {
	membership, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, membership, nil)
}

// Create godoc
// @Summary Register a student into a career
// @Tags StudentCareers
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentCareerRequest true "Student career payload"
// @Success 201 {object} response.Envelope
// @Router /student-careers [post]
func (h *StudentCareerHandler) Create(c *gin.Context) {
	var req service.CreateStudentCareerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	membership, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, membership)
}

// Deactivate godoc
// @Summary Deactivate a student career
// @Tags StudentCareers
// @Produce json
// @Param id path string true "Student career ID"
// @Success 204 {object} response.Envelope
// @Router /student-careers/{id} [delete]
func (h *StudentCareerHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reactivate godoc
// @Summary Reactivate a student career
// @Tags StudentCareers
// @Produce json
// @Param id path string true "Student career ID"
// @Success 200 {object} response.Envelope
// @Router /student-careers/{id}/reactivate [post]
func (h *StudentCareerHandler) Reactivate(c *gin.Context) {
	if err := h.service.Reactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "active"}, nil)
}
