package model

import (
	"time"

	"gorm.io/gorm"
)

// AbsenceType 请假/缺勤类型
type AbsenceType string

const (
	AbsenceVacation         AbsenceType = "vacation"
	AbsenceConference       AbsenceType = "conference"
	AbsenceMedical          AbsenceType = "medical"
	AbsenceMedicalEmergency AbsenceType = "medical_emergency"
	AbsenceFamilyEmergency  AbsenceType = "family_emergency"
	AbsenceDeployment       AbsenceType = "deployment"
	AbsenceTDY              AbsenceType = "tdy"
	AbsenceTraining         AbsenceType = "training"
)

// Valid 是否为已知缺勤类型
func (t AbsenceType) Valid() bool {
	switch t {
	case AbsenceVacation, AbsenceConference, AbsenceMedical, AbsenceMedicalEmergency,
		AbsenceFamilyEmergency, AbsenceDeployment, AbsenceTDY, AbsenceTraining:
		return true
	}
	return false
}

// Absence 缺勤记录表：对应 absences（冲突检测只读输入）
type Absence struct {
	AbsenceID   string      `gorm:"type:uuid;primaryKey"                        json:"absence_id"`
	FacultyID   string      `gorm:"type:uuid;not null;index;uniqueIndex:uq_absence_external,priority:1" json:"faculty_id"`
	StartDate   time.Time   `gorm:"type:date;not null"                          json:"start_date"`
	EndDate     time.Time   `gorm:"type:date;not null"                          json:"end_date"` // 含当天
	AbsenceType AbsenceType `gorm:"type:varchar(30);not null"                   json:"absence_type"`
	IsBlocking  bool        `gorm:"not null;default:false"                      json:"is_blocking"`
	Notes       string      `gorm:"type:varchar(500)"                           json:"notes,omitempty"`
	Origin      string      `gorm:"type:varchar(20);not null;default:'manual'"  json:"origin"` // manual | ics
	ExternalUID *string     `gorm:"type:varchar(255);uniqueIndex:uq_absence_external,priority:2" json:"external_uid,omitempty"` // 日历导入的 VEVENT UID
	BaseModel
}

// TableName 指定表名
func (Absence) TableName() string { return "absences" }

// BeforeCreate 生成主键
func (a *Absence) BeforeCreate(_ *gorm.DB) error {
	if a.AbsenceID == "" {
		a.AbsenceID = newID()
	}
	a.StartDate = DateOf(a.StartDate)
	a.EndDate = DateOf(a.EndDate)
	return nil
}

// AfterFind 统一时间为 UTC
func (a *Absence) AfterFind(_ *gorm.DB) error {
	a.StartDate = DateOf(a.StartDate)
	a.EndDate = DateOf(a.EndDate)
	return nil
}

// EffectivelyBlocking deployment 无论标记如何一律视为阻断
func (a *Absence) EffectivelyBlocking() bool {
	return a.IsBlocking || a.AbsenceType == AbsenceDeployment
}

// IsCriticalType 影响值班周时按 critical 处理的类型
func (a *Absence) IsCriticalType() bool {
	return a.AbsenceType == AbsenceDeployment || a.AbsenceType == AbsenceMedicalEmergency
}

// OverlapsRange 与 [from, to) 是否有交集
func (a *Absence) OverlapsRange(from, to time.Time) bool {
	end := DateOf(a.EndDate).AddDate(0, 0, 1)
	return DateOf(a.StartDate).Before(to) && from.Before(end)
}

// OverlapsWeek 与某一周（周一开始）是否有交集
func (a *Absence) OverlapsWeek(week time.Time) bool {
	return a.OverlapsRange(WeekStart(week), WeekEnd(week))
}
