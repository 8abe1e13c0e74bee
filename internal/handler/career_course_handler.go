package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academico-sys/siu-api/internal/models"
	"github.com/academico-sys/siu-api/internal/service"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
	"github.com/academico-sys/siu-api/pkg/response"
)

// CareerCourseHandler exposes curriculum endpoints: the career-course links
// and their prerequisite edges.
type CareerCourseHandler struct {
	service *service.CareerCourseService
}

// NewCareerCourseHandler constructs a career course handler.
func NewCareerCourseHandler(svc *service.CareerCourseService) *CareerCourseHandler {
	return &CareerCourseHandler{service: svc}
}

// List godoc
// @Summary List career courses
// @Tags Curriculum
// @Produce json
// @Param careerId query string false "Filter by career"
// @Param courseId query string false "Filter by course"
// @Param year query int false "Filter by curriculum year"
// @Param mandatory query bool false "Filter by mandatory flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /career-courses [get]
func (h *CareerCourseHandler) List(c *gin.Context) {
	var filter models.CareerCourseFilter
	filter.CareerID = c.Query("careerId")
	filter.CourseID = c.Query("courseId")
	filter.Year = queryInt(c, "year")
	filter.Mandatory = queryBool(c, "mandatory")
	applyPaging(c, &filter.Page, &filter.PageSize)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	links, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, pagination)
}

// Get godoc
// @Summary Get career course
// @Tags Curriculum
// @Produce json
// @Param id path string true "Career course ID"
// @Success 200 {object} response.Envelope
// @Router /career-courses/{id} [get]
func (h *CareerCourseHandler) Get(c *gin.Context) {
	link, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Create godoc
// @Summary Attach a course to a career
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param payload body service.CreateCareerCourseRequest true "Career course payload"
// @Success 201 {object} response.Envelope
// @Router /career-courses [post]
func (h *CareerCourseHandler) Create(c *gin.Context) {
	var req service.CreateCareerCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	link, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Update godoc
// @Summary Update career course
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Career course ID"
// @Param payload body service.UpdateCareerCourseRequest true "Career course payload"
// @Success 200 {object} response.Envelope
// @Router /career-courses/{id} [put]
func (h *CareerCourseHandler) Update(c *gin.Context) {
	var req service.UpdateCareerCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	link, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Delete godoc
// @Summary Detach a course from a career
// @Tags Curriculum
// @Produce json
// @Param id path string true "Career course ID"
// @Success 204 {object} response.Envelope
// @Router /career-courses/{id} [delete]
func (h *CareerCourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListPrerequisites godoc
// @Summary List prerequisites of a career course
// @Tags Curriculum
// @Produce json
// @Param id path string true "Career course ID"
// @Success 200 {object} response.Envelope
// @Router /career-courses/{id}/prerequisites [get]
func (h *CareerCourseHandler) ListPrerequisites(c *gin.Context) {
	prerequisites, err := h.service.ListPrerequisites(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prerequisites, nil)
}

// AddPrerequisite godoc
// @Summary Add a prerequisite edge
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Career course ID"
// @Param payload body service.AddPrerequisiteRequest true "Prerequisite payload"
// @Success 201 {object} response.Envelope
// @Router /career-courses/{id}/prerequisites [post]
func (h *CareerCourseHandler) AddPrerequisite(c *gin.Context) {
	var req service.AddPrerequisiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.AddPrerequisite(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"status": "created"}, nil)
}

// RemovePrerequisite godoc
// @Summary Remove a prerequisite edge
// @Tags Curriculum
// @Produce json
// @Param id path string true "Career course ID"
// @Param requiresId path string true "Required career course ID"
// @Success 204 {object} response.Envelope
// @Router /career-courses/{id}/prerequisites/{requiresId} [delete]
func (h *CareerCourseHandler) RemovePrerequisite(c *gin.Context) {
	if err := h.service.RemovePrerequisite(c.Request.Context(), c.Param("id"), c.Param("requiresId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
