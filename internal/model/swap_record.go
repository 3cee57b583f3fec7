package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// SwapType 换班类型
type SwapType string

const (
	SwapOneToOne SwapType = "one_to_one" // 双方互换各自的值班周
	SwapAbsorb   SwapType = "absorb"     // 目标教员接收源教员的值班周
)

// Valid 是否为已知换班类型
func (t SwapType) Valid() bool { return t == SwapOneToOne || t == SwapAbsorb }

// SwapStatus 换班申请状态
// pending → executed → rolled_back；rejected / failed 为终态
type SwapStatus string

const (
	SwapPending    SwapStatus = "pending"
	SwapExecuted   SwapStatus = "executed"
	SwapRolledBack SwapStatus = "rolled_back"
	SwapRejected   SwapStatus = "rejected"
	SwapFailed     SwapStatus = "failed"
)

// IsTerminal 是否为终态
func (s SwapStatus) IsTerminal() bool {
	return s == SwapRolledBack || s == SwapRejected || s == SwapFailed
}

// SlotMutation 执行计划中的一步：同时携带正向值与逆向值
// 计划一经执行即原样持久化，回滚时不重新计算
type SlotMutation struct {
	Seq    int       `json:"seq"`
	Key    SlotKey   `json:"key"`
	Before SlotValue `json:"before"`
	After  SlotValue `json:"after"`
}

// Inverse 逆向步骤
func (m SlotMutation) Inverse() SlotMutation {
	return SlotMutation{Seq: m.Seq, Key: m.Key, Before: m.After, After: m.Before}
}

// SwapRecord 换班申请表：对应 swap_records
type SwapRecord struct {
	SwapID               string                              `gorm:"type:uuid;primaryKey"                         json:"swap_id"`
	SourceFacultyID      string                              `gorm:"type:uuid;not null;index"                     json:"source_faculty_id"`
	SourceWeek           time.Time                           `gorm:"type:date;not null"                           json:"source_week"`
	TargetFacultyID      string                              `gorm:"type:uuid;not null;index"                     json:"target_faculty_id"`
	TargetWeek           *time.Time                          `gorm:"type:date"                                    json:"target_week,omitempty"`
	SwapType             SwapType                            `gorm:"type:varchar(20);not null"                    json:"swap_type"`
	Status               SwapStatus                          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Reason               string                              `gorm:"type:varchar(500)"                            json:"reason,omitempty"`
	RequestedBy          string                              `gorm:"type:varchar(64);not null"                    json:"requested_by"`
	RequestedAt          time.Time                           `gorm:"not null"                                     json:"requested_at"`
	ApprovedBy           *string                             `gorm:"type:varchar(64)"                             json:"approved_by,omitempty"`
	ApprovedAt           *time.Time                          `json:"approved_at,omitempty"`
	ExecutedBy           *string                             `gorm:"type:varchar(64)"                             json:"executed_by,omitempty"`
	ExecutedAt           *time.Time                          `json:"executed_at,omitempty"`
	RollbackDeadline     *time.Time                          `json:"rollback_deadline,omitempty"`
	RolledBackBy         *string                             `gorm:"type:varchar(64)"                             json:"rolled_back_by,omitempty"`
	RolledBackAt         *time.Time                          `json:"rolled_back_at,omitempty"`
	RollbackReason       *string                             `gorm:"type:varchar(500)"                            json:"rollback_reason,omitempty"`
	RejectedBy           *string                             `gorm:"type:varchar(64)"                             json:"rejected_by,omitempty"`
	RejectedAt           *time.Time                          `json:"rejected_at,omitempty"`
	FailureReason        *string                             `gorm:"type:varchar(1000)"                           json:"failure_reason,omitempty"`
	CriticalAlertsWaived bool                                `gorm:"not null;default:false"                       json:"critical_alerts_waived"`
	Steps                datatypes.JSONSlice[SlotMutation]   `json:"steps,omitempty"`
	VersionedModel

	// 关联
	Approvals []SwapApproval `gorm:"foreignKey:SwapID;references:SwapID" json:"approvals,omitempty"`
}

// TableName 指定表名
func (SwapRecord) TableName() string { return "swap_records" }

// BeforeCreate 生成主键
func (r *SwapRecord) BeforeCreate(_ *gorm.DB) error {
	if r.SwapID == "" {
		r.SwapID = newID()
	}
	r.initVersion()
	if r.Steps == nil {
		r.Steps = datatypes.JSONSlice[SlotMutation]{}
	}
	r.SourceWeek = WeekStart(r.SourceWeek)
	if r.TargetWeek != nil {
		w := WeekStart(*r.TargetWeek)
		r.TargetWeek = &w
	}
	return nil
}

// AfterFind 统一时间为 UTC
func (r *SwapRecord) AfterFind(_ *gorm.DB) error {
	r.SourceWeek = DateOf(r.SourceWeek)
	if r.TargetWeek != nil {
		w := DateOf(*r.TargetWeek)
		r.TargetWeek = &w
	}
	r.ExecutedAt = utcPtr(r.ExecutedAt)
	r.RollbackDeadline = utcPtr(r.RollbackDeadline)
	return nil
}

// ReceivedWeek 目标教员需要承担的周（即源周）
func (r *SwapRecord) ReceivedWeek() time.Time { return r.SourceWeek }

// ExaminedWeek 校验关注的"目标周"：absorb 没有目标周时取源周
func (r *SwapRecord) ExaminedWeek() time.Time {
	if r.TargetWeek != nil {
		return *r.TargetWeek
	}
	return r.SourceWeek
}

// Parties 双方教员
func (r *SwapRecord) Parties() []string {
	return []string{r.SourceFacultyID, r.TargetFacultyID}
}

// MutationSteps 已持久化的执行步骤
func (r *SwapRecord) MutationSteps() []SlotMutation {
	return []SlotMutation(r.Steps)
}

// ── 状态迁移：只暴露带前置状态检查的迁移方法 ──

func (r *SwapRecord) invalid(op string) error {
	return &pkgerrors.InvalidStatusError{Entity: "swap", ID: r.SwapID, Status: string(r.Status), Operation: op}
}

// MarkExecuted pending → executed
func (r *SwapRecord) MarkExecuted(by string, at time.Time, window time.Duration, steps []SlotMutation) error {
	if r.Status != SwapPending {
		return r.invalid("execute")
	}
	deadline := at.Add(window)
	r.Status = SwapExecuted
	r.ExecutedBy = &by
	r.ExecutedAt = &at
	r.RollbackDeadline = &deadline
	r.Steps = datatypes.NewJSONSlice(steps)
	r.UpdatedBy = &by
	return nil
}

// MarkFailed pending → failed
func (r *SwapRecord) MarkFailed(by, reason string) error {
	if r.Status != SwapPending {
		return r.invalid("fail")
	}
	r.Status = SwapFailed
	r.FailureReason = &reason
	r.UpdatedBy = &by
	return nil
}

// MarkRejected pending → rejected
func (r *SwapRecord) MarkRejected(by string, at time.Time, reason string) error {
	if r.Status != SwapPending {
		return r.invalid("reject")
	}
	r.Status = SwapRejected
	r.RejectedBy = &by
	r.RejectedAt = &at
	if reason != "" {
		r.FailureReason = &reason
	}
	r.UpdatedBy = &by
	return nil
}

// MarkRolledBack executed → rolled_back
func (r *SwapRecord) MarkRolledBack(by string, at time.Time, reason string) error {
	if r.Status != SwapExecuted {
		return r.invalid("rollback")
	}
	r.Status = SwapRolledBack
	r.RolledBackBy = &by
	r.RolledBackAt = &at
	r.RollbackReason = &reason
	r.UpdatedBy = &by
	return nil
}

// MarkApproved 记录审批完成（不改变状态）
func (r *SwapRecord) MarkApproved(by string, at time.Time) error {
	if r.Status != SwapPending {
		return r.invalid("approve")
	}
	r.ApprovedBy = &by
	r.ApprovedAt = &at
	r.UpdatedBy = &by
	return nil
}
