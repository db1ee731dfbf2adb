package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mosaicry/mosaicry-backend/internal/http/response"
	"github.com/mosaicry/mosaicry-backend/internal/pipeline"
)

type PipelineHandler struct {
	scheduler *pipeline.Scheduler
}

func NewPipelineHandler(scheduler *pipeline.Scheduler) *PipelineHandler {
	return &PipelineHandler{scheduler: scheduler}
}

// POST /api/admin/pipeline/start
func (h *PipelineHandler) Start(c *gin.Context) {
	res := h.scheduler.Start()
	response.RespondOK(c, gin.H{
		"status":          h.scheduler.Status(),
		"already_running": res.AlreadyRunning,
	})
}

// POST /api/admin/pipeline/stop
func (h *PipelineHandler) Stop(c *gin.Context) {
	h.scheduler.Stop()
	response.RespondOK(c, gin.H{"status": h.scheduler.Status()})
}

// GET /api/admin/pipeline/status
func (h *PipelineHandler) Status(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": h.scheduler.Status()})
}
