package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veridianhq/carbonledger/internal/activities"
	"github.com/veridianhq/carbonledger/internal/ledger"
	"github.com/veridianhq/carbonledger/internal/summary"
	"go.uber.org/zap"
)

type recordActivityPayload struct {
	ReportingPeriodID string          `json:"reporting_period_id"`
	ActivityType      string          `json:"activity_type"`
	Payload           json.RawMessage `json:"payload"`
}

type amendActivityPayload struct {
	Payload json.RawMessage `json:"payload"`
}

type activityResponsePayload struct {
	ActivityID        string          `json:"activity_id"`
	CompanyID         string          `json:"company_id"`
	ReportingPeriodID string          `json:"reporting_period_id"`
	ActivityType      string          `json:"activity_type"`
	Payload           json.RawMessage `json:"payload"`
	CreatedAtSeconds  int64           `json:"created_at_s"`
	UpdatedAtSeconds  int64           `json:"updated_at_s"`
	// Calculation is null when emissions are not yet calculated for the entry.
	Calculation *calculationPayload `json:"calculation"`
}

type calculationPayload struct {
	RowID            string          `json:"row_id"`
	ActivityID       string          `json:"activity_id"`
	ActivityType     string          `json:"activity_type"`
	Method           string          `json:"method"`
	Standard         string          `json:"standard"`
	CO2Kg            float64         `json:"co2_kg"`
	CH4G             float64         `json:"ch4_g"`
	N2OG             float64         `json:"n2o_g"`
	TotalCO2eMt      float64         `json:"total_co2e_mt"`
	LocationCO2eMt   *float64        `json:"location_co2e_mt,omitempty"`
	MarketCO2eMt     *float64        `json:"market_co2e_mt,omitempty"`
	MarketIsFallback bool            `json:"market_is_fallback"`
	Breakdown        json.RawMessage `json:"breakdown"`
	CalculatedBy     string          `json:"calculated_by"`
	CalculatedAtNs   int64           `json:"calculated_at_ns"`
}

func calculationFromRow(row ledger.Row) *calculationPayload {
	return &calculationPayload{
		RowID:            row.RowID,
		ActivityID:       row.ActivityID,
		ActivityType:     row.ActivityType,
		Method:           row.Method,
		Standard:         row.Standard,
		CO2Kg:            row.CO2Kg,
		CH4G:             row.CH4G,
		N2OG:             row.N2OG,
		TotalCO2eMt:      row.TotalCO2eMt,
		LocationCO2eMt:   row.LocationCO2eMt,
		MarketCO2eMt:     row.MarketCO2eMt,
		MarketIsFallback: row.MarketIsFallback,
		Breakdown:        json.RawMessage(row.BreakdownJSON),
		CalculatedBy:     row.CalculatedBy,
		CalculatedAtNs:   row.CalculatedAtNs,
	}
}

func activityResponse(activity activities.Activity, row *ledger.Row) activityResponsePayload {
	response := activityResponsePayload{
		ActivityID:        activity.ActivityID,
		CompanyID:         activity.CompanyID,
		ReportingPeriodID: activity.ReportingPeriodID,
		ActivityType:      activity.ActivityType,
		Payload:           json.RawMessage(activity.PayloadJSON),
		CreatedAtSeconds:  activity.CreatedAtSeconds,
		UpdatedAtSeconds:  activity.UpdatedAtSeconds,
	}
	if row != nil {
		response.Calculation = calculationFromRow(*row)
	}
	return response
}

func (h *httpHandler) handleRecordActivity(c *gin.Context) {
	claims, ok := requestClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request recordActivityPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	activity, row, err := h.activities.Record(c.Request.Context(), activities.RecordRequest{
		CompanyID:         claims.CompanyID,
		ReportingPeriodID: request.ReportingPeriodID,
		UserID:            claims.UserID,
		ActivityType:      request.ActivityType,
		Payload:           request.Payload,
		CompanyCountry:    claims.CompanyCountry,
	})
	if errors.Is(err, activities.ErrInvalidActivity) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("record activity failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record_failed"})
		return
	}

	c.JSON(http.StatusCreated, activityResponse(activity, row))
}

func (h *httpHandler) handleAmendActivity(c *gin.Context) {
	claims, ok := requestClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request amendActivityPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	activity, row, err := h.activities.Amend(c.Request.Context(),
		c.Param("id"), claims.CompanyID, claims.UserID, request.Payload, claims.CompanyCountry)
	if errors.Is(err, activities.ErrActivityNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "activity_not_found"})
		return
	}
	if errors.Is(err, activities.ErrInvalidActivity) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("amend activity failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "amend_failed"})
		return
	}

	c.JSON(http.StatusOK, activityResponse(activity, row))
}

func (h *httpHandler) handleLatestCalculation(c *gin.Context) {
	claims, ok := requestClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	activityID := c.Param("id")
	if _, err := h.activities.Get(c.Request.Context(), activityID, claims.CompanyID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "activity_not_found"})
		return
	}

	row, err := h.engine.GetLatest(c.Request.Context(), activityID)
	if err != nil {
		h.logger.Error("latest calculation lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	if row == nil {
		c.JSON(http.StatusOK, gin.H{"calculation": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calculation": calculationFromRow(*row)})
}

func (h *httpHandler) handleCalculationHistory(c *gin.Context) {
	claims, ok := requestClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	activityID := c.Param("id")
	if _, err := h.activities.Get(c.Request.Context(), activityID, claims.CompanyID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "activity_not_found"})
		return
	}

	rows, err := h.engine.GetHistory(c.Request.Context(), activityID, parseLimit(c))
	if err != nil {
		h.logger.Error("calculation history lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}

	history := make([]*calculationPayload, 0, len(rows))
	for _, row := range rows {
		history = append(history, calculationFromRow(row))
	}
	c.JSON(http.StatusOK, gin.H{"calculations": history})
}

func (h *httpHandler) handlePeriodSummary(c *gin.Context) {
	claims, ok := requestClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	periodSummary, err := h.engine.GetPeriodSummary(c.Request.Context(), claims.CompanyID, c.Param("id"))
	if errors.Is(err, summary.ErrNoSummary) {
		c.JSON(http.StatusNotFound, gin.H{"error": "summary_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("period summary lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, periodSummary)
}

func (h *httpHandler) handleAggregate(c *gin.Context) {
	claims, ok := requestClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	periodSummary, err := h.engine.Aggregate(c.Request.Context(), claims.CompanyID, c.Param("id"))
	if err != nil {
		h.logger.Error("aggregate failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregate_failed"})
		return
	}
	c.JSON(http.StatusOK, periodSummary)
}

func (h *httpHandler) handleClearFactorCache(c *gin.Context) {
	h.cache.ClearCache()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
