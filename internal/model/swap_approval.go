package model

import (
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// ApprovalRole 审批角色
type ApprovalRole string

const (
	ApprovalRoleTargetFaculty ApprovalRole = "target_faculty"
	ApprovalRoleCoordinator   ApprovalRole = "coordinator"
)

// ApprovalStatus 审批状态
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
)

// SwapApproval 换班审批表：对应 swap_approvals，唯一键 (swap, faculty, role)
type SwapApproval struct {
	ApprovalID  string         `gorm:"type:uuid;primaryKey"                                        json:"approval_id"`
	SwapID      string         `gorm:"type:uuid;not null;uniqueIndex:uq_swap_approval,priority:1"  json:"swap_id"`
	FacultyID   string         `gorm:"type:uuid;not null;uniqueIndex:uq_swap_approval,priority:2"  json:"faculty_id"`
	Role        ApprovalRole   `gorm:"type:varchar(20);not null;uniqueIndex:uq_swap_approval,priority:3" json:"role"`
	Status      ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending'"                 json:"status"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
	Notes       string         `gorm:"type:varchar(500)"                                           json:"notes,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (SwapApproval) TableName() string { return "swap_approvals" }

// BeforeCreate 生成主键
func (a *SwapApproval) BeforeCreate(_ *gorm.DB) error {
	if a.ApprovalID == "" {
		a.ApprovalID = newID()
	}
	a.initVersion()
	return nil
}

// Respond 审批人作答；只能从 pending 作答一次
func (a *SwapApproval) Respond(approve bool, at time.Time, notes string) error {
	if a.Status != ApprovalPending {
		return &pkgerrors.InvalidStatusError{Entity: "swap_approval", ID: a.ApprovalID, Status: string(a.Status), Operation: "respond"}
	}
	if approve {
		a.Status = ApprovalApproved
	} else {
		a.Status = ApprovalDenied
	}
	a.RespondedAt = &at
	a.Notes = notes
	a.UpdatedBy = &a.FacultyID
	return nil
}
