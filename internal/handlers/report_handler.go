package handlers

import (
	"context"
	"net/http"
	"time"

	"pharmacy-pos/internal/database"

	"github.com/gin-gonic/gin"
)

type SalesReporter interface {
	GetSalesReport(ctx context.Context, from, to time.Time) (*database.SalesReport, error)
}

type ReportHandler struct {
	reports SalesReporter
	now     func() time.Time
}

func NewReportHandler(reports SalesReporter) *ReportHandler {
	return &ReportHandler{reports: reports, now: time.Now}
}

const dayLayout = "2006-01-02"

// --- GET: /api/admin/reports/sales?from=2026-03-01&to=2026-03-31 ---
// Both days are inclusive. Without parameters the report covers today.
func (h *ReportHandler) GetSalesReport(c *gin.Context) {
	today := h.now().Format(dayLayout)

	from, err := time.ParseInLocation(dayLayout, c.DefaultQuery("from", today), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a date like 2026-03-01"})
		return
	}
	to, err := time.ParseInLocation(dayLayout, c.DefaultQuery("to", from.Format(dayLayout)), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a date like 2026-03-31"})
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to is before from"})
		return
	}

	end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	report, err := h.reports.GetSalesReport(c.Request.Context(), from, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
