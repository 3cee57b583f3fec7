package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 审计导出 HTTP 处理器
type ExportHandler struct {
	exportSvc service.AuditExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.AuditExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportSwaps 导出换班审计记录
// GET /api/v1/swaps/export?from=2026-11-01&to=2026-12-01
func (h *ExportHandler) ExportSwaps(c *gin.Context) {
	var req dto.SwapExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 24001, "from / to 不能为空")
		return
	}
	from, err := model.ParseDate(req.From)
	if err != nil {
		response.BadRequest(c, 24001, "from 格式无效")
		return
	}
	to, err := model.ParseDate(req.To)
	if err != nil || !from.Before(to) {
		response.BadRequest(c, 24001, "to 必须晚于 from")
		return
	}

	buf, filename, err := h.exportSvc.ExportSwaps(c.Request.Context(), from, to)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoSwaps):
		response.NotFound(c, 24101, "该时间范围内没有换班记录")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
