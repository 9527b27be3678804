// internal/handlers/reporting.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/daviddelgadop/greencart-backend/internal/services"
	"github.com/daviddelgadop/greencart-backend/internal/utils"
)

type ReportingHandler struct {
	attributionService *services.AttributionService
}

func NewReportingHandler(attributionService *services.AttributionService) *ReportingHandler {
	return &ReportingHandler{attributionService: attributionService}
}

// GET /reporting/attribution
func (h *ReportingHandler) GetAttribution(c *gin.Context) {
	query := services.AttributionQuery{
		GroupBy:   c.DefaultQuery("group_by", "producer"),
		Weighting: c.Query("weighting"),
	}

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid 'from' timestamp, expected RFC3339", nil)
			return
		}
		query.From = &from
	}

	if toStr := c.Query("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid 'to' timestamp, expected RFC3339", nil)
			return
		}
		query.To = &to
	}

	report, err := h.attributionService.Report(query)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"report": report})
}
