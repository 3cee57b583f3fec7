package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/response"
)

// SwapHandler 换班模块 HTTP 处理器
type SwapHandler struct {
	swapSvc service.SwapEngine
}

// NewSwapHandler 创建 SwapHandler
func NewSwapHandler(swapSvc service.SwapEngine) *SwapHandler {
	return &SwapHandler{swapSvc: swapSvc}
}

// CreateSwap 创建换班申请
// POST /api/v1/swaps
func (h *SwapHandler) CreateSwap(c *gin.Context) {
	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}

	swap, err := h.swapSvc.CreateSwapRequest(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleSwapError(c, err, nil)
		return
	}
	response.Created(c, swap)
}

// ListSwaps 换班列表
// GET /api/v1/swaps
func (h *SwapHandler) ListSwaps(c *gin.Context) {
	var req dto.SwapListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	list, total, err := h.swapSvc.ListSwaps(c.Request.Context(), &req)
	if err != nil {
		h.handleSwapError(c, err, nil)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetSwap 换班详情（含执行步骤与审批）
// GET /api/v1/swaps/:id
func (h *SwapHandler) GetSwap(c *gin.Context) {
	swap, err := h.swapSvc.GetSwap(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSwapError(c, err, nil)
		return
	}
	response.OK(c, swap)
}

// ValidateSwap 执行校验链（只读）
// POST /api/v1/swaps/:id/validate
func (h *SwapHandler) ValidateSwap(c *gin.Context) {
	result, err := h.swapSvc.ValidateSwap(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSwapError(c, err, nil)
		return
	}
	response.OK(c, result)
}

// GetPlan 预览执行计划（只读）
// GET /api/v1/swaps/:id/plan
func (h *SwapHandler) GetPlan(c *gin.Context) {
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}
	plan, err := h.swapSvc.CreateExecutionPlan(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		h.handleSwapError(c, err, nil)
		return
	}
	response.OK(c, plan)
}

// ExecuteSwap 执行换班
// POST /api/v1/swaps/:id/execute
func (h *SwapHandler) ExecuteSwap(c *gin.Context) {
	var req dto.ExecuteSwapRequest
	// 请求体可省略
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 20001, "参数校验失败")
			return
		}
	}
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}

	outcome, err := h.swapSvc.ExecuteSwap(c.Request.Context(), c.Param("id"), actorID, req.DryRun)
	if err != nil {
		h.handleSwapError(c, err, outcome)
		return
	}
	response.OK(c, outcome)
}

// RollbackSwap 回滚换班
// POST /api/v1/swaps/:id/rollback
func (h *SwapHandler) RollbackSwap(c *gin.Context) {
	var req dto.RollbackSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}

	outcome, err := h.swapSvc.RollbackSwap(c.Request.Context(), c.Param("id"), req.Reason, actorID)
	if err != nil {
		h.handleSwapError(c, err, outcome)
		return
	}
	response.OK(c, outcome)
}

// RespondApproval 审批作答（审批人即当前操作人）
// POST /api/v1/swaps/:id/approvals
func (h *SwapHandler) RespondApproval(c *gin.Context) {
	var req dto.RespondApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}

	swap, err := h.swapSvc.RespondToApproval(c.Request.Context(), c.Param("id"), actorID, req.Role, *req.Approve, req.Notes)
	if err != nil {
		h.handleSwapError(c, err, nil)
		return
	}
	response.OK(c, swap)
}

// handleSwapError 统一处理换班模块错误
func (h *SwapHandler) handleSwapError(c *gin.Context, err error, outcome *dto.SwapOutcome) {
	var data interface{}
	if outcome != nil {
		data = outcome
	}
	switch {
	case errors.Is(err, service.ErrInvalidSwapRequest):
		response.BadRequest(c, 20002, err.Error())
	case writeDomainError(c, err, data):
	default:
		response.InternalError(c)
	}
}
