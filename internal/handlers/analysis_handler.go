package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/housing/internal/analytics"
	"github.com/stwalsh4118/housing/internal/dataset"
	apierrors "github.com/stwalsh4118/housing/internal/errors"
	"github.com/stwalsh4118/housing/internal/export"
	"github.com/stwalsh4118/housing/internal/middleware"
	"github.com/stwalsh4118/housing/internal/services"
)

// ExportFilename is the attachment name of the workbook download.
const ExportFilename = "housing_analysis.xlsx"

// AnalysisHandler serves the housing analysis endpoints.
type AnalysisHandler struct {
	service services.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler instance.
func NewAnalysisHandler(service services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
	}
}

// RegisterRoutes mounts every analysis endpoint on rg.
func (h *AnalysisHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dataset", h.Dataset)
	rg.GET("/overview", h.Overview)
	rg.GET("/trends", h.Trends)
	rg.GET("/export.xlsx", h.Export)

	sales := rg.Group("/sales")
	{
		sales.GET("/yearly", h.YearlySales)
		sales.GET("/volume", h.SalesVolume)
	}

	rg.GET("/assessments/yearly", h.YearlyAssessments)
	rg.GET("/affordability/disparity", h.Disparity)

	ownership := rg.Group("/ownership")
	{
		ownership.GET("/summary", h.OwnershipSummary)
		ownership.GET("/owners", h.Owners)
	}

	properties := rg.Group("/properties")
	{
		properties.GET("/search", h.Search)
		properties.GET("/resolve", h.Resolve)
		properties.GET("/:parcel/history", h.History)
	}
}

// YearRequest represents the query parameters of the yearly endpoints.
type YearRequest struct {
	MinYear *int `form:"min_year" binding:"omitempty,gte=1900,lte=2100"`
}

func (r YearRequest) minYear() int {
	if r.MinYear == nil {
		return analytics.DefaultMinYear
	}
	return *r.MinYear
}

// OwnersRequest represents the query parameters of the owner ranking.
type OwnersRequest struct {
	Limit *int   `form:"limit" binding:"omitempty,gte=1,lte=1000"`
	Sort  string `form:"sort" binding:"omitempty,oneof=properties acres assessment"`
}

// SearchRequest represents the query parameters of the property search.
type SearchRequest struct {
	Q      string `form:"q" binding:"required,max=200"`
	Parcel string `form:"parcel" binding:"omitempty,max=64"`
}

// bindQuery binds and validates query parameters, writing the error
// response itself. It reports whether the handler should continue.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return false
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return false
	}
	return true
}

// fail maps a service error onto the HTTP error envelope.
func fail(c *gin.Context, err error, lookup *services.PropertyLookup) {
	switch {
	case errors.Is(err, dataset.ErrDataUnavailable):
		apierrors.DataUnavailable(c, err)
	case errors.Is(err, services.ErrInvalidQuery):
		apierrors.BadRequest(c, err.Error(), nil)
	case errors.Is(err, analytics.ErrSelectionRequired):
		details := map[string]interface{}{}
		if lookup != nil {
			details["candidates"] = lookup.Search.Matches
		}
		apierrors.Conflict(c, "Several properties match; pass parcel to choose one", details)
	case errors.Is(err, analytics.ErrNoMatch):
		apierrors.NotFound(c, "No property matches the search")
	case errors.Is(err, analytics.ErrNotInResults):
		apierrors.NotFound(c, "The selected parcel is not among the search results")
	case errors.Is(err, services.ErrParcelNotFound):
		apierrors.NotFound(c, "No assessments recorded for this parcel")
	default:
		apierrors.InternalServerError(c, "Failed to compute housing analysis", err)
	}
}

// Dataset handles GET /api/v1/dataset.
func (h *AnalysisHandler) Dataset(c *gin.Context) {
	info, err := h.service.DatasetInfo(c.Request.Context())
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Overview handles GET /api/v1/overview.
func (h *AnalysisHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// Trends handles GET /api/v1/trends.
func (h *AnalysisHandler) Trends(c *gin.Context) {
	trends, err := h.service.Trends(c.Request.Context())
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, trends)
}

// YearsResponse wraps a per-year series with the floor it was cut at.
type YearsResponse struct {
	Years   interface{} `json:"years"`
	MinYear int         `json:"minYear"`
}

// YearlySales handles GET /api/v1/sales/yearly.
func (h *AnalysisHandler) YearlySales(c *gin.Context) {
	var req YearRequest
	if !bindQuery(c, &req) {
		return
	}

	stats, err := h.service.YearlySales(c.Request.Context(), req.minYear())
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, YearsResponse{Years: stats, MinYear: req.minYear()})
}

// SalesVolume handles GET /api/v1/sales/volume.
func (h *AnalysisHandler) SalesVolume(c *gin.Context) {
	var req YearRequest
	if !bindQuery(c, &req) {
		return
	}

	volume, err := h.service.SalesVolume(c.Request.Context(), req.minYear())
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, YearsResponse{Years: volume, MinYear: req.minYear()})
}

// YearlyAssessments handles GET /api/v1/assessments/yearly.
func (h *AnalysisHandler) YearlyAssessments(c *gin.Context) {
	var req YearRequest
	if !bindQuery(c, &req) {
		return
	}

	stats, err := h.service.YearlyAssessments(c.Request.Context(), req.minYear())
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, YearsResponse{Years: stats, MinYear: req.minYear()})
}

// Disparity handles GET /api/v1/affordability/disparity.
func (h *AnalysisHandler) Disparity(c *gin.Context) {
	disparity, err := h.service.IncomeDisparity(c.Request.Context())
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, disparity)
}

// OwnershipSummary handles GET /api/v1/ownership/summary.
func (h *AnalysisHandler) OwnershipSummary(c *gin.Context) {
	summary, err := h.service.OwnershipSummary(c.Request.Context())
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Owners handles GET /api/v1/ownership/owners.
func (h *AnalysisHandler) Owners(c *gin.Context) {
	var req OwnersRequest
	if !bindQuery(c, &req) {
		return
	}

	key, err := analytics.ParseOwnerSortKey(req.Sort)
	if err != nil {
		apierrors.BadRequest(c, err.Error(), nil)
		return
	}
	limit := analytics.DefaultTopOwnerLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	ranking, err := h.service.TopOwners(c.Request.Context(), key, limit)
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, ranking)
}

// Search handles GET /api/v1/properties/search.
// Several matches without a parcel are a normal result listing the
// candidates.
func (h *AnalysisHandler) Search(c *gin.Context) {
	var req SearchRequest
	if !bindQuery(c, &req) {
		return
	}

	lookup, err := h.service.SearchProperties(c.Request.Context(), req.Q, req.Parcel)
	if err != nil {
		fail(c, err, lookup)
		return
	}
	c.JSON(http.StatusOK, lookup)
}

// Resolve handles GET /api/v1/properties/resolve.
// Unlike Search it answers only with one parcel's history.
func (h *AnalysisHandler) Resolve(c *gin.Context) {
	var req SearchRequest
	if !bindQuery(c, &req) {
		return
	}

	lookup, err := h.service.ResolveProperty(c.Request.Context(), req.Q, req.Parcel)
	if err != nil {
		fail(c, err, lookup)
		return
	}
	c.JSON(http.StatusOK, lookup)
}

// History handles GET /api/v1/properties/:parcel/history.
func (h *AnalysisHandler) History(c *gin.Context) {
	history, err := h.service.PropertyHistory(c.Request.Context(), c.Param("parcel"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Export handles GET /api/v1/export.xlsx.
func (h *AnalysisHandler) Export(c *gin.Context) {
	log := middleware.GetLogger(c)

	report, err := services.CollectReport(c.Request.Context(), h.service, analytics.DefaultTopOwnerLimit)
	if err != nil {
		fail(c, err, nil)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, report); err != nil {
		apierrors.InternalServerError(c, "Failed to build workbook", err)
		return
	}

	if log != nil {
		log.Info("Workbook exported", map[string]interface{}{
			"bytes":   buf.Len(),
			"version": report.Dataset.Version,
		})
	}

	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
