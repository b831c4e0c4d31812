package transport

import (
	"net/http"

	"warehouse/internal/middleware"
	"warehouse/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportHandler serves the dashboard and sales figures
type ReportHandler struct {
	reportService     service.ReportService
	lowStockThreshold int
	logger            *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService service.ReportService, lowStockThreshold int, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService:     reportService,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

// RegisterRoutes registers the read-only report routes
func (h *ReportHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/api/dashboard", h.Dashboard)
		r.Get("/api/reports", h.Reports)
	})
}

// Dashboard returns store-wide totals and the low stock list
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	threshold := h.lowStockThreshold
	if v, err := queryInt(r, "threshold"); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	} else if v != nil {
		threshold = *v
	}

	stats, err := h.reportService.Dashboard(r.Context(), threshold)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "compute dashboard")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

// Reports returns the dashboard together with the sales figures
func (h *ReportHandler) Reports(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reportService.Dashboard(r.Context(), h.lowStockThreshold)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "compute dashboard")
		return
	}

	sales, err := h.reportService.Sales(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "compute sales report")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"dashboard": stats,
		"sales":     sales,
	})
}
