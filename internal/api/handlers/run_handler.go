package handlers

import (
	"net/http"
	"strconv"

	"github.com/andresuchdata/restock-advisor/internal/pipeline"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/gin-gonic/gin"
)

type RunHandler struct {
	orchestrator *pipeline.Orchestrator
	runs         repository.RunRepository
}

func NewRunHandler(orchestrator *pipeline.Orchestrator, runs repository.RunRepository) *RunHandler {
	return &RunHandler{orchestrator: orchestrator, runs: runs}
}

// StartRun handles POST /runs and blocks until every product is processed.
func (h *RunHandler) StartRun(c *gin.Context) {
	run, err := h.orchestrator.RunAll(c.Request.Context())
	if err != nil && run == nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid run id")
		return
	}

	run, err := h.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	jobs, err := h.runs.ListJobs(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "jobs": jobs})
}
