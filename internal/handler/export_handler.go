package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academico-sys/siu-api/internal/service"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
	"github.com/academico-sys/siu-api/pkg/response"
)

// ExportHandler streams rendered roster and transcript documents.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func (h *ExportHandler) serve(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}

// Roster godoc
// @Summary Export section roster as CSV
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Section ID"
// @Success 200 {file} file
// @Router /sections/{id}/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	if !h.exports.Enabled() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	file, err := h.exports.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.serve(c, file)
}

// Transcript godoc
// @Summary Export student career transcript as PDF
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Student career ID"
// @Success 200 {file} file
// @Router /student-careers/{id}/transcript [get]
func (h *ExportHandler) Transcript(c *gin.Context) {
	if !h.exports.Enabled() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	file, err := h.exports.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.serve(c, file)
}
