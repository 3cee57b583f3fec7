package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/response"
)

// SlotHandler 时段模块 HTTP 处理器
type SlotHandler struct {
	slotSvc service.SlotService
}

// NewSlotHandler 创建 SlotHandler
func NewSlotHandler(slotSvc service.SlotService) *SlotHandler {
	return &SlotHandler{slotSvc: slotSvc}
}

// ListSlots 查询时段
// GET /api/v1/slots
func (h *SlotHandler) ListSlots(c *gin.Context) {
	var req dto.SlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 22001, "参数校验失败")
		return
	}

	list, total, err := h.slotSvc.ListSlots(c.Request.Context(), &req)
	if err != nil {
		handleSlotError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// OverrideSlot 人工覆盖
// PUT /api/v1/slots/override
func (h *SlotHandler) OverrideSlot(c *gin.Context) {
	var req dto.OverrideSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 22001, "参数校验失败")
		return
	}
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}

	slot, err := h.slotSvc.OverrideSlot(c.Request.Context(), &req, actorID)
	if err != nil {
		handleSlotError(c, err)
		return
	}
	response.OK(c, slot)
}

// IngestBatch 优化器 / 预加载批量导入
// POST /api/v1/slots/ingest
func (h *SlotHandler) IngestBatch(c *gin.Context) {
	var req dto.IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 22001, "参数校验失败")
		return
	}
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}

	result, err := h.slotSvc.IngestBatch(c.Request.Context(), &req, actorID)
	if err != nil {
		handleSlotError(c, err)
		return
	}
	response.OK(c, result)
}

func handleSlotError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSlotInput):
		response.BadRequest(c, 22002, err.Error())
	case errors.Is(err, service.ErrInvalidFeedSource):
		response.BadRequest(c, 22003, err.Error())
	case writeDomainError(c, err, nil):
	default:
		response.InternalError(c)
	}
}
