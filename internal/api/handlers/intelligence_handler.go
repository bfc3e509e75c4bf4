package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockintel/internal/inventory"
	"github.com/andresuchdata/stockintel/internal/inventory/forecast"
	"github.com/andresuchdata/stockintel/internal/service"
)

type IntelligenceHandler struct {
	service *service.IntelligenceService
}

func NewIntelligenceHandler(service *service.IntelligenceService) *IntelligenceHandler {
	return &IntelligenceHandler{service: service}
}

// bind decodes the JSON body and writes a 400 on failure
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return false
	}
	return true
}

// writeError maps core and service errors to HTTP status codes
func writeError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case inventory.IsInvalidArgument(err):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func (h *IntelligenceHandler) Classify(c *gin.Context) {
	var req service.ClassifyRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.service.Classify(c.Request.Context(), req)
	if err != nil {
		writeError(c, "failed to classify items", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *IntelligenceHandler) Forecast(c *gin.Context) {
	var req forecast.Request
	if !bind(c, &req) {
		return
	}
	if req.Periods == 0 {
		req.Periods = h.service.DefaultHorizon()
	}

	result, err := h.service.Forecast(c.Request.Context(), req)
	if err != nil {
		writeError(c, "failed to forecast demand", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *IntelligenceHandler) Backtest(c *gin.Context) {
	var req service.BacktestRequest
	if !bind(c, &req) {
		return
	}
	if req.Periods == 0 {
		req.Periods = h.service.DefaultHorizon()
	}

	result, err := h.service.Backtest(c.Request.Context(), req)
	if err != nil {
		writeError(c, "failed to backtest method", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *IntelligenceHandler) Reorder(c *gin.Context) {
	var req service.ReorderRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.service.Reorder(c.Request.Context(), req)
	if err != nil {
		writeError(c, "failed to compute reorder recommendations", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *IntelligenceHandler) Simulate(c *gin.Context) {
	var req service.SimulateRequest
	if !bind(c, &req) {
		return
	}

	results, err := h.service.Simulate(c.Request.Context(), req)
	if err != nil {
		writeError(c, "failed to run simulation", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *IntelligenceHandler) SweepSafetyStock(c *gin.Context) {
	var req service.SweepRequest
	if !bind(c, &req) {
		return
	}

	points, err := h.service.SweepSafetyStock(c.Request.Context(), req)
	if err != nil {
		writeError(c, "failed to run safety stock sweep", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"points": points})
}

// GradeChanges accepts product_ids as repeated params or a comma-separated list.
func (h *IntelligenceHandler) GradeChanges(c *gin.Context) {
	q := service.GradeChangeQuery{ProductIDs: splitList(c.QueryArray("product_ids"))}
	if raw := strings.TrimSpace(c.Query("high_risk_only")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid high_risk_only", "details": err.Error()})
			return
		}
		q.HighRiskOnly = v
	}

	report, err := h.service.GradeChanges(c.Request.Context(), q)
	if err != nil {
		writeError(c, "failed to load grade changes", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *IntelligenceHandler) Evaluate(c *gin.Context) {
	var req service.EvaluateRequest
	if !bind(c, &req) {
		return
	}

	report, err := h.service.EvaluatePortfolio(c.Request.Context(), req)
	if err != nil {
		writeError(c, "failed to evaluate portfolio", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *IntelligenceHandler) InvalidateCache(c *gin.Context) {
	sku := strings.TrimSpace(c.Query("sku"))
	if err := h.service.InvalidateCache(c.Request.Context(), sku); err != nil {
		writeError(c, "failed to invalidate cache", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
