package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/response"
)

// ConflictHandler 冲突检测与告警 HTTP 处理器
type ConflictHandler struct {
	conflictSvc service.ConflictService
}

// NewConflictHandler 创建 ConflictHandler
func NewConflictHandler(conflictSvc service.ConflictService) *ConflictHandler {
	return &ConflictHandler{conflictSvc: conflictSvc}
}

// Detect 检测冲突，persist=true 时同时落库告警
// POST /api/v1/conflicts/detect
func (h *ConflictHandler) Detect(c *gin.Context) {
	var req dto.DetectConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}

	result, err := h.conflictSvc.Detect(c.Request.Context(), &req, actorID)
	if err != nil {
		handleConflictError(c, err)
		return
	}
	response.OK(c, result)
}

// ListAlerts 告警列表
// GET /api/v1/conflict-alerts
func (h *ConflictHandler) ListAlerts(c *gin.Context) {
	var req dto.AlertListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}

	list, total, err := h.conflictSvc.ListAlerts(c.Request.Context(), &req)
	if err != nil {
		handleConflictError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Acknowledge 确认告警
// POST /api/v1/conflict-alerts/:id/acknowledge
func (h *ConflictHandler) Acknowledge(c *gin.Context) {
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}
	alert, err := h.conflictSvc.Acknowledge(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		handleConflictError(c, err)
		return
	}
	response.OK(c, alert)
}

// Resolve 解决告警
// POST /api/v1/conflict-alerts/:id/resolve
func (h *ConflictHandler) Resolve(c *gin.Context) {
	h.closeAlert(c, h.conflictSvc.Resolve)
}

// Ignore 忽略告警
// POST /api/v1/conflict-alerts/:id/ignore
func (h *ConflictHandler) Ignore(c *gin.Context) {
	h.closeAlert(c, h.conflictSvc.Ignore)
}

type closeFunc func(ctx context.Context, alertID, actor, notes string) (*dto.ConflictAlertResponse, error)

func (h *ConflictHandler) closeAlert(c *gin.Context, fn closeFunc) {
	var req dto.AlertActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 21001, "参数校验失败")
			return
		}
	}
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}

	alert, err := fn(c.Request.Context(), c.Param("id"), actorID, req.Notes)
	if err != nil {
		handleConflictError(c, err)
		return
	}
	response.OK(c, alert)
}

func handleConflictError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 21002, err.Error())
	case writeDomainError(c, err, nil):
	default:
		response.InternalError(c)
	}
}
