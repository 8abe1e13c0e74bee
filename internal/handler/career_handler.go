package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/academico-sys/siu-api/internal/middleware"
	"github.com/academico-sys/siu-api/internal/models"
	"github.com/academico-sys/siu-api/internal/service"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
	"github.com/academico-sys/siu-api/pkg/response"
)

// CareerHandler exposes career CRUD endpoints.
type CareerHandler struct {
	service *service.CareerService
}

// NewCareerHandler constructs a career handler.
func NewCareerHandler(svc *service.CareerService) *CareerHandler {
	return &CareerHandler{service: svc}
}

// List godoc
// @Summary List careers
// @Tags Careers
// @Produce json
// @Param instituteId query string false "Filter by institute"
// @Param modality query string false "Filter by modality"
// @Param search query string false "Search keyword"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /careers [get]
func (h *CareerHandler) List(c *gin.Context) {
	var filter models.CareerFilter
	filter.InstituteID = c.Query("instituteId")
	filter.Modality = models.CareerModality(strings.ToUpper(c.Query("modality")))
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Active = queryBool(c, "active")
	applyPaging(c, &filter.Page, &filter.PageSize)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	careers, pagination, cacheHit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, careers, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get career detail
// @Tags Careers
// @Produce json
// @Param id path string true "Career ID"
// @Success 200 {object} response.Envelope
// @Router /careers/{id} [get]
func (h *CareerHandler) Get(c *gin.Context) {
	career, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, career, nil)
}

// Create godoc
// @Summary Create career
// @Tags Careers
// @Accept json
// @Produce json
// @Param payload body service.CreateCareerRequest true "Career payload"
// @Success 201 {object} response.Envelope
// @Router /careers [post]
func (h *CareerHandler) Create(c *gin.Context) {
	var req service.CreateCareerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	career, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, career)
}

// Update godoc
// @Summary Update career
// @Tags Careers
// @Accept json
// @Produce json
// @Param id path string true "Career ID"
// @Param payload body service.UpdateCareerRequest true "Career payload"
// @Success 200 {object} response.Envelope
// @Router /careers/{id} [put]
func (h *CareerHandler) Update(c *gin.Context) {
	var req service.UpdateCareerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	career, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, career, nil)
}

// Delete godoc
// @Summary Delete career
// @Tags Careers
// @Produce json
// @Param id path string true "Career ID"
// @Success 204 {object} response.Envelope
// @Router /careers/{id} [delete]
func (h *CareerHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
