package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/response"
)

// ── 业务错误码 ──
// 10xxx 通用 · 20xxx 换班 · 21xxx 冲突告警 · 22xxx 时段 · 23xxx 缺勤 · 24xxx 导出

const (
	codeBadRequest = 10001

	codeNotFound         = 19001
	codeValidationFailed = 19002
	codePolicyRejected   = 19003
	codeInvalidStatus    = 19004
	codeAlreadyProcessed = 19005
	codeRollbackExpired  = 19006
	codeRollbackConflict = 19007
	codeStalePlan        = 19008
)

// writeDomainError 领域错误 → HTTP 响应；data 非空时随错误一起返回（换班执行/回滚结果）
// 返回 false 表示不是已知的领域错误，由调用方兜底
func writeDomainError(c *gin.Context, err error, data interface{}) bool {
	status, code := 0, 0
	var (
		notFound  *pkgerrors.NotFoundError
		validFail *pkgerrors.ValidationFailedError
		rejected  *pkgerrors.PolicyRejectedError
		invalid   *pkgerrors.InvalidStatusError
		processed *pkgerrors.AlreadyProcessedError
		expired   *pkgerrors.RollbackExpiredError
		conflict  *pkgerrors.RollbackConflictError
		stale     *pkgerrors.StalePlanError
	)
	switch {
	case errors.As(err, &notFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.As(err, &validFail):
		status, code = http.StatusUnprocessableEntity, codeValidationFailed
	case errors.As(err, &rejected):
		status, code = http.StatusConflict, codePolicyRejected
	case errors.As(err, &invalid):
		status, code = http.StatusConflict, codeInvalidStatus
	case errors.As(err, &processed):
		status, code = http.StatusConflict, codeAlreadyProcessed
	case errors.As(err, &expired):
		status, code = http.StatusGone, codeRollbackExpired
	case errors.As(err, &conflict):
		status, code = http.StatusConflict, codeRollbackConflict
	case errors.As(err, &stale):
		status, code = http.StatusConflict, codeStalePlan
	case errors.Is(err, service.ErrActorRequired):
		response.Unauthorized(c, 10002, "未认证")
		return true
	default:
		return false
	}

	if data != nil {
		response.ErrorWithData(c, status, code, err.Error(), data)
	} else {
		response.Error(c, status, code, err.Error())
	}
	return true
}
