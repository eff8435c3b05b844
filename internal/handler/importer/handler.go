package importer

import (
	"encoding/csv"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/funnelhq/funnel-api/internal/middleware"
	"github.com/funnelhq/funnel-api/internal/service/funnel"
	"github.com/funnelhq/funnel-api/internal/service/importer"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
	"github.com/funnelhq/funnel-api/pkg/httputil"
)

type Handler struct {
	svc       importer.ImportServicer
	funnelSvc funnel.Servicer
	auth      *middleware.AuthMiddleware
}

func NewHandler(svc importer.ImportServicer, funnelSvc funnel.Servicer, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, funnelSvc: funnelSvc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	org := r.Group("/organizations/:orgID")
	org.Use(h.auth.OrgContext(), h.auth.RequireImporter())
	{
		org.POST("/import", h.ImportRows)
		org.POST("/import/csv", h.ImportCSV)
	}
}

// ImportRows takes pre-parsed rows, e.g. from a frontend that parses
// the CSV client-side.
func (h *Handler) ImportRows(c *gin.Context) {
	var req struct {
		Type string              `json:"type" binding:"required,oneof=funnel utm"`
		Data []map[string]string `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	result, err := h.svc.ImportRecords(c.Request.Context(), middleware.OrgID(c), req.Type, req.Data)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.funnelSvc.InvalidateTotals(c.Request.Context(), middleware.OrgID(c))
	httputil.RespondWithSuccess(c, result)
}

// ImportCSV takes a raw CSV upload; the first record is the header.
func (h *Handler) ImportCSV(c *gin.Context) {
	importType := c.PostForm("type")
	if importType != "funnel" && importType != "utm" {
		httputil.RespondWithError(c, apperrors.BadRequest("type must be funnel or utm", nil))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("missing csv file", err))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("cannot read csv file", err))
		return
	}
	defer file.Close()

	headers, rows, err := readCSV(file)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var result *importer.Result
	if importType == "utm" {
		result, err = h.svc.ImportUTMRows(c.Request.Context(), middleware.OrgID(c), headers, rows)
	} else {
		result, err = h.svc.ImportFunnelRows(c.Request.Context(), middleware.OrgID(c), headers, rows)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.funnelSvc.InvalidateTotals(c.Request.Context(), middleware.OrgID(c))
	httputil.RespondWithSuccess(c, result)
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, apperrors.BadRequest("malformed csv", err)
	}
	if len(records) < 2 {
		return nil, nil, apperrors.BadRequest("csv has no data rows", nil)
	}
	return records[0], records[1:], nil
}
