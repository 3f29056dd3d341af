package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/healthcare-admin-api/internal/dto"
	"github.com/noah-isme/healthcare-admin-api/pkg/response"
)

type exportService interface {
	Clients(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error)
	Enrollments(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error)
}

// ExportHandler streams registry exports.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Clients godoc
// @Summary Export clients
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param from query string false "Registered on or after (YYYY-MM-DD)"
// @Param to query string false "Registered on or before (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/clients [get]
func (h *ExportHandler) Clients(c *gin.Context) {
	h.serve(c, h.exports.Clients)
}

// Enrollments godoc
// @Summary Export enrollments
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param from query string false "Enrolled on or after (YYYY-MM-DD)"
// @Param to query string false "Enrolled on or before (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/enrollments [get]
func (h *ExportHandler) Enrollments(c *gin.Context) {
	h.serve(c, h.exports.Enrollments)
}

func (h *ExportHandler) serve(c *gin.Context, build func(context.Context, dto.ExportQuery) (*dto.ExportFile, error)) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	file, err := build(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
