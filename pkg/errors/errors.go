package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 错误码（对外结构化结果中的 error_code）──

const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodePolicyRejected   = "POLICY_REJECTED"
	CodeInvalidStatus    = "INVALID_STATUS"
	CodeAlreadyProcessed = "ALREADY_PROCESSED"
	CodeRollbackExpired  = "ROLLBACK_EXPIRED"
	CodeRollbackConflict = "ROLLBACK_CONFLICT"
	CodeStalePlan        = "STALE_PLAN"
	CodeInternal         = "INTERNAL_ERROR"
)

// Coded 可映射为错误码的业务错误
type Coded interface {
	error
	Code() string
}

// CodeOf 提取错误码；非业务错误统一返回 INTERNAL_ERROR
func CodeOf(err error) string {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// NotFoundError 实体不存在（教员、换班申请、告警等）
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s 不存在: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Code() string { return CodeNotFound }

// ValidationFailedError 校验链拒绝，Validator 为首个失败的校验器
type ValidationFailedError struct {
	Validator string
	Message   string
	Failures  []string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("校验失败 [%s]: %s", e.Validator, e.Message)
}

func (e *ValidationFailedError) Code() string { return CodeValidationFailed }

// PolicyRejectedError 来源优先级策略拒绝了对某个时段的写入
type PolicyRejectedError struct {
	SlotKey         string
	CurrentSource   string
	AttemptedSource string
	ManualOverride  bool
	Rule            string
}

func (e *PolicyRejectedError) Error() string {
	return fmt.Sprintf("时段 %s 拒绝写入: 当前来源 %s，尝试来源 %s (override=%t, rule=%s)",
		e.SlotKey, e.CurrentSource, e.AttemptedSource, e.ManualOverride, e.Rule)
}

func (e *PolicyRejectedError) Code() string { return CodePolicyRejected }

// InvalidStatusError 当前状态不允许该操作
type InvalidStatusError struct {
	Entity    string
	ID        string
	Status    string
	Operation string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("%s %s 处于 %s 状态，不允许 %s", e.Entity, e.ID, e.Status, e.Operation)
}

func (e *InvalidStatusError) Code() string { return CodeInvalidStatus }

// AlreadyProcessedError 状态 CAS 竞争失败：记录已被其他调用处理
type AlreadyProcessedError struct {
	SwapID string
	Status string
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("换班申请 %s 已被处理 (当前状态 %s)", e.SwapID, e.Status)
}

func (e *AlreadyProcessedError) Code() string { return CodeAlreadyProcessed }

// RollbackExpiredError 超出回滚窗口
type RollbackExpiredError struct {
	SwapID   string
	Deadline time.Time
}

func (e *RollbackExpiredError) Error() string {
	return fmt.Sprintf("换班申请 %s 已超过回滚期限 %s", e.SwapID, e.Deadline.Format(time.RFC3339))
}

func (e *RollbackExpiredError) Code() string { return CodeRollbackExpired }

// RollbackConflictError 回滚时时段已被其他写入修改
type RollbackConflictError struct {
	SwapID  string
	SlotKey string
	Detail  string
}

func (e *RollbackConflictError) Error() string {
	return fmt.Sprintf("换班申请 %s 回滚冲突: 时段 %s 已被修改 (%s)", e.SwapID, e.SlotKey, e.Detail)
}

func (e *RollbackConflictError) Code() string { return CodeRollbackConflict }

// StalePlanError 执行计划生成后时段已变化，需要重新校验
type StalePlanError struct {
	SwapID  string
	SlotKey string
}

func (e *StalePlanError) Error() string {
	return fmt.Sprintf("换班申请 %s 的执行计划已过期: 时段 %s 已变化", e.SwapID, e.SlotKey)
}

func (e *StalePlanError) Code() string { return CodeStalePlan }

// SlotDriftError 仓储层一致性检查失败：当前值与期望值不一致
type SlotDriftError struct {
	SlotKey string
	Detail  string
}

func (e *SlotDriftError) Error() string {
	return fmt.Sprintf("时段 %s 当前值与期望不一致: %s", e.SlotKey, e.Detail)
}
