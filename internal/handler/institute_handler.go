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

// InstituteHandler exposes institute CRUD endpoints.
type InstituteHandler struct {
	service *service.InstituteService
}

// NewInstituteHandler constructs an institute handler.
func NewInstituteHandler(svc *service.InstituteService) *InstituteHandler {
	return &InstituteHandler{service: svc}
}

// List godoc
// @Summary List institutes
// @Tags Institutes
// @Produce json
// @Param search query string false "Search keyword"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /institutes [get]
func (h *InstituteHandler) List(c *gin.Context) {
	var filter models.InstituteFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Active = queryBool(c, "active")
	applyPaging(c, &filter.Page, &filter.PageSize)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	institutes, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institutes, pagination)
}

// Get godoc
// @Summary Get institute detail
// @Tags Institutes
// @Produce json
// @Param id path string true "Institute ID"
// @Success 200 {object} response.Envelope
// @Router /institutes/{id} [get]
func (h *InstituteHandler) Get(c *gin.Context) {
	institute, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institute, nil)
}

// Create godoc
// @Summary Create institute
// @Tags Institutes
// @Accept json
// @Produce json
// @Param payload body service.CreateInstituteRequest true "Institute payload"
// @Success 201 {object} response.Envelope
// @Router /institutes [post]
func (h *InstituteHandler) Create(c *gin.Context) {
	var req service.CreateInstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	institute, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, institute)
}

// Update godoc
// @Summary Update institute
// @Tags Institutes
// @Accept json
// @Produce json
// @Param id path string true "Institute ID"
// @Param payload body service.UpdateInstituteRequest true "Institute payload"
// @Success 200 {object} response.Envelope
// @Router /institutes/{id} [put]
func (h *InstituteHandler) Update(c *gin.Context) {
	var req service.UpdateInstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	institute, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institute, nil)
}

// Delete godoc
// @Summary Delete institute
// @Tags Institutes
// @Produce json
// @Param id path string true "Institute ID"
// @Success 204 {object} response.Envelope
// @Router /institutes/{id} [delete]
func (h *InstituteHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
