package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/response"
)

// AbsenceHandler 缺勤日历导入 HTTP 处理器
type AbsenceHandler struct {
	absenceSvc service.AbsenceService
}

// NewAbsenceHandler 创建 AbsenceHandler
func NewAbsenceHandler(absenceSvc service.AbsenceService) *AbsenceHandler {
	return &AbsenceHandler{absenceSvc: absenceSvc}
}

// ImportICS 导入缺勤日历
// POST /api/v1/absences/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file", faculty_id
//   - URL 导入: application/json, body={"faculty_id": "...", "url": "..."}
func (h *AbsenceHandler) ImportICS(c *gin.Context) {
	actorID, ok := MustGetActorID(c)
	if !ok {
		return
	}

	// 文件上传方式
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		facultyID := c.PostForm("faculty_id")
		if facultyID == "" {
			response.BadRequest(c, 23001, "faculty_id 不能为空")
			return
		}
		resp, err := h.absenceSvc.ImportICS(c.Request.Context(), file, facultyID, actorID)
		if err != nil {
			handleAbsenceError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	// URL 方式
	var req dto.ImportAbsencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 23001, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	resp, err := h.absenceSvc.ImportICSURL(c.Request.Context(), req.URL, req.FacultyID, actorID)
	if err != nil {
		handleAbsenceError(c, err)
		return
	}
	response.Created(c, resp)
}

func handleAbsenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrICSFetch):
		response.ErrorWithDetails(c, http.StatusBadRequest, 23002, "ICS URL 获取失败", err.Error())
	case errors.Is(err, service.ErrICSParse):
		response.ErrorWithDetails(c, http.StatusBadRequest, 23003, "ICS 格式解析失败", err.Error())
	case writeDomainError(c, err, nil):
	default:
		response.InternalError(c)
	}
}
