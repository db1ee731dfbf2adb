package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mosaicry/mosaicry-backend/internal/http/response"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/dbctx"
	"github.com/mosaicry/mosaicry-backend/internal/services"
)

type GenerationHandler struct {
	intake services.GenerationIntakeService
}

func NewGenerationHandler(intake services.GenerationIntakeService) *GenerationHandler {
	return &GenerationHandler{intake: intake}
}

// POST /api/admin/generation/batches
func (h *GenerationHandler) CreateBatch(c *gin.Context) {
	var input services.CreateBatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.intake.CreateBatch(dbctx.Context{Ctx: c.Request.Context()}, input)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "create_batch_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"batch": view})
}

// GET /api/admin/generation/batches/:id
func (h *GenerationHandler) GetBatch(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_record_id", err)
		return
	}
	view, err := h.intake.GetBatch(dbctx.Context{Ctx: c.Request.Context()}, recordID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrBatchNotFound) {
			status = http.StatusNotFound
		}
		response.RespondError(c, status, "batch_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"batch": view})
}

// GET /api/admin/generation/batches?status=not_started&limit=50
func (h *GenerationHandler) ListBatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.intake.ListBatches(dbctx.Context{Ctx: c.Request.Context()}, c.Query("status"), limit)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "list_batches_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"records": records})
}
