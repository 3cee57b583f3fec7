package model

import (
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictLeaveFMITOverlap   ConflictType = "leave_fmit_overlap"
	ConflictBackToBack         ConflictType = "back_to_back"
	ConflictCallCascade        ConflictType = "call_cascade"
	ConflictExternalCommitment ConflictType = "external_commitment"
)

// Severity 告警级别
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertStatus 告警状态
// new → acknowledged → resolved；new → ignored
type AlertStatus string

const (
	AlertNew          AlertStatus = "new"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
	AlertIgnored      AlertStatus = "ignored"
)

// OpenAlertStatuses 参与去重的未关闭状态
var OpenAlertStatuses = []AlertStatus{AlertNew, AlertAcknowledged}

// ConflictAlert 冲突告警表：对应 conflict_alerts
type ConflictAlert struct {
	AlertID         string       `gorm:"type:uuid;primaryKey"                        json:"alert_id"`
	FacultyID       string       `gorm:"type:uuid;not null;index:idx_alert_dedup,priority:1" json:"faculty_id"`
	ConflictType    ConflictType `gorm:"type:varchar(30);not null;index:idx_alert_dedup,priority:2" json:"conflict_type"`
	FmitWeek        time.Time    `gorm:"type:date;not null;index:idx_alert_dedup,priority:3" json:"fmit_week"`
	Severity        Severity     `gorm:"type:varchar(10);not null"                   json:"severity"`
	Description     string       `gorm:"type:varchar(1000)"                          json:"description"`
	LeaveID         *string      `gorm:"type:uuid"                                   json:"leave_id,omitempty"`
	SwapID          *string      `gorm:"type:uuid"                                   json:"swap_id,omitempty"`
	Status          AlertStatus  `gorm:"type:varchar(20);not null;default:'new'"     json:"status"`
	AcknowledgedBy  *string      `gorm:"type:varchar(64)"                            json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time   `json:"acknowledged_at,omitempty"`
	ResolvedBy      *string      `gorm:"type:varchar(64)"                            json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
	ResolutionNotes *string      `gorm:"type:varchar(1000)"                          json:"resolution_notes,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (ConflictAlert) TableName() string { return "conflict_alerts" }

// BeforeCreate 生成主键
func (a *ConflictAlert) BeforeCreate(_ *gorm.DB) error {
	if a.AlertID == "" {
		a.AlertID = newID()
	}
	a.initVersion()
	a.FmitWeek = WeekStart(a.FmitWeek)
	return nil
}

// AfterFind 统一时间为 UTC
func (a *ConflictAlert) AfterFind(_ *gorm.DB) error {
	a.FmitWeek = DateOf(a.FmitWeek)
	return nil
}

// IsOpen 是否为未关闭告警
func (a *ConflictAlert) IsOpen() bool {
	return a.Status == AlertNew || a.Status == AlertAcknowledged
}

func (a *ConflictAlert) invalid(op string) error {
	return &pkgerrors.InvalidStatusError{Entity: "conflict_alert", ID: a.AlertID, Status: string(a.Status), Operation: op}
}

// Acknowledge new → acknowledged
func (a *ConflictAlert) Acknowledge(by string, at time.Time) error {
	if a.Status != AlertNew {
		return a.invalid("acknowledge")
	}
	a.Status = AlertAcknowledged
	a.AcknowledgedBy = &by
	a.AcknowledgedAt = &at
	a.UpdatedBy = &by
	return nil
}

// Resolve acknowledged → resolved
func (a *ConflictAlert) Resolve(by string, at time.Time, notes string) error {
	if a.Status != AlertAcknowledged {
		return a.invalid("resolve")
	}
	a.Status = AlertResolved
	a.ResolvedBy = &by
	a.ResolvedAt = &at
	a.ResolutionNotes = &notes
	a.UpdatedBy = &by
	return nil
}

// Ignore new → ignored
func (a *ConflictAlert) Ignore(by string, at time.Time, notes string) error {
	if a.Status != AlertNew {
		return a.invalid("ignore")
	}
	a.Status = AlertIgnored
	a.ResolvedBy = &by
	a.ResolvedAt = &at
	a.ResolutionNotes = &notes
	a.UpdatedBy = &by
	return nil
}
