package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	service *service.RestockService
}

func NewAlertHandler(service *service.RestockService) *AlertHandler {
	return &AlertHandler{service: service}
}

func (h *AlertHandler) parseFilter(c *gin.Context) (domain.AlertFilter, bool) {
	filter := domain.AlertFilter{Limit: 100}

	if raw := strings.TrimSpace(c.Query("product_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid product_id")
			return filter, false
		}
		filter.ProductID = id
	}

	switch risk := domain.RiskLevel(strings.ToLower(strings.TrimSpace(c.Query("risk_level")))); risk {
	case "":
	case domain.RiskUnderstock, domain.RiskOverstock, domain.RiskNone:
		filter.RiskLevel = risk
	default:
		badRequest(c, "invalid risk_level")
		return filter, false
	}

	if raw := strings.TrimSpace(c.Query("acknowledged")); raw != "" {
		ack, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid acknowledged")
			return filter, false
		}
		filter.Acknowledged = &ack
	}

	limit, ok := intQuery(c, "limit", filter.Limit)
	if !ok {
		return filter, false
	}
	filter.Limit = limit
	return filter, true
}

func (h *AlertHandler) ListAlerts(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	alerts, err := h.service.Alerts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if alerts == nil {
		alerts = []domain.InventoryAlert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *AlertHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.AlertSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AlertHandler) Acknowledge(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		badRequest(c, "invalid alert id")
		return
	}

	if err := h.service.AcknowledgeAlert(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "acknowledged": true})
}
