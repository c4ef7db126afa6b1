package handlers

import (
	"net/http"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/gin-gonic/gin"
)

type RestockHandler struct {
	service *service.RestockService
}

func NewRestockHandler(service *service.RestockService) *RestockHandler {
	return &RestockHandler{service: service}
}

// GetForecast handles GET /products/:id/forecast?horizon=N
func (h *RestockHandler) GetForecast(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}
	horizon, ok := intQuery(c, "horizon", 0)
	if !ok {
		return
	}

	fc, err := h.service.Forecast(c.Request.Context(), id, horizon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc)
}

// GetDecision handles GET /products/:id/decision. Deciding records the
// recommendation and may raise an alert.
func (h *RestockHandler) GetDecision(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.Decide(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RestockHandler) TrainProduct(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.Train(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RestockHandler) TrainGlobal(c *gin.Context) {
	result, err := h.service.TrainGlobal(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RestockHandler) GetEvaluations(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}
	h.listEvaluations(c, domain.ModelKey(id))
}

func (h *RestockHandler) GetGlobalEvaluations(c *gin.Context) {
	h.listEvaluations(c, domain.GlobalModelKey)
}

func (h *RestockHandler) listEvaluations(c *gin.Context, key string) {
	limit, ok := intQuery(c, "limit", 20)
	if !ok {
		return
	}

	evals, err := h.service.Evaluations(c.Request.Context(), key, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model_key": key, "evaluations": evals})
}

func (h *RestockHandler) GetTrend(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	trend, err := h.service.Trend(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}
