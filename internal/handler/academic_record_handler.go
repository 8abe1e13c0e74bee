package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/academico-sys/siu-api/internal/models"
	"github.com/academico-sys/siu-api/internal/service"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
	"github.com/academico-sys/siu-api/pkg/response"
)

// AcademicRecordHandler exposes approved course endpoints.
type AcademicRecordHandler struct {
	service *service.AcademicRecordService
}

// NewAcademicRecordHandler constructs an academic record handler.
func NewAcademicRecordHandler(svc *service.AcademicRecordService) *AcademicRecordHandler {
	return &AcademicRecordHandler{service: svc}
}

// List godoc
// @Summary List approved courses
// @Tags AcademicRecords
// @Produce json
// @Param studentCareerId query string false "Filter by student career"
// @Param courseId query string false "Filter by course"
// @Param condition query string false "Filter by approval condition"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /approved-courses [get]
func (h *AcademicRecordHandler) List(c *gin.Context) {
	var filter models.ApprovedCourseFilter
	filter.StudentCareerID = c.Query("studentCareerId")
	filter.CourseID = c.Query("courseId")
	filter.Condition = models.ApprovalCondition(strings.ToUpper(c.Query("condition")))
	applyPaging(c, &filter.Page, &filter.PageSize)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	records, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// RecordApproval godoc
// @Summary Record an approved course
// @Tags AcademicRecords
// @Accept json
// @Produce json
// @Param payload body service.RecordApprovalRequest true "Approval payload"
// @Success 201 {object} response.Envelope
// @Router /approved-courses [post]
func (h *AcademicRecordHandler) RecordApproval(c *gin.Context) {
	var req service.RecordApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.RecordApproval(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// RevokeApproval godoc
// @Summary Revoke an approved course
// @Tags AcademicRecords
// @Produce json
// @Param id path string true "Approved course ID"
// @Success 204 {object} response.Envelope
// @Router /approved-courses/{id} [delete]
func (h *AcademicRecordHandler) RevokeApproval(c *gin.Context) {
	if err := h.service.RevokeApproval(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
