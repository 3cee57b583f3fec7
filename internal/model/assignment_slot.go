package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// HalfDay 半天时段
type HalfDay string

const (
	HalfDayAM HalfDay = "AM"
	HalfDayPM HalfDay = "PM"
)

// Valid 是否为合法半天标识
func (h HalfDay) Valid() bool { return h == HalfDayAM || h == HalfDayPM }

// AssignmentSource 时段写入来源
// 来源之间的优先级比较只允许出现在 internal/policy
type AssignmentSource string

const (
	SourcePreload  AssignmentSource = "PRELOAD"
	SourceManual   AssignmentSource = "MANUAL"
	SourceSolver   AssignmentSource = "SOLVER"
	SourceTemplate AssignmentSource = "TEMPLATE"
)

// AllSources 全部来源（用于穷举测试与参数校验）
var AllSources = []AssignmentSource{SourcePreload, SourceManual, SourceSolver, SourceTemplate}

// Valid 是否为已知来源
func (s AssignmentSource) Valid() bool {
	for _, v := range AllSources {
		if s == v {
			return true
		}
	}
	return false
}

// ParseSource 解析来源字符串（大小写不敏感）
func ParseSource(raw string) (AssignmentSource, error) {
	s := AssignmentSource(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("未知的时段来源 %q", raw)
	}
	return s, nil
}

// SlotKey 时段唯一键 (教员, 日期, 半天)
type SlotKey struct {
	FacultyID string    `json:"faculty_id"`
	Date      time.Time `json:"date"`
	HalfDay   HalfDay   `json:"half_day"`
}

// Normalize 日期截断为 UTC 零点
func (k SlotKey) Normalize() SlotKey {
	k.Date = DateOf(k.Date)
	return k
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.FacultyID, FormatDate(k.Date), k.HalfDay)
}

// Less 计划步骤排序：日期 → 半天(AM 先) → 教员
func (k SlotKey) Less(o SlotKey) bool {
	if !k.Date.Equal(o.Date) {
		return k.Date.Before(o.Date)
	}
	if k.HalfDay != o.HalfDay {
		return k.HalfDay == HalfDayAM
	}
	return k.FacultyID < o.FacultyID
}

// SlotValue 时段的完整取值快照（执行计划中的 before/after）
// Exists=false 表示该键在写入前没有记录
type SlotValue struct {
	Exists         bool             `json:"exists"`
	Activity       *string          `json:"activity,omitempty"`
	Source         AssignmentSource `json:"source,omitempty"`
	OverrideReason *string          `json:"override_reason,omitempty"`
	OverrideBy     *string          `json:"override_by,omitempty"`
	OverrideAt     *time.Time       `json:"override_at,omitempty"`
}

// Equal 逐字段比较（时间按时刻比较，不比较时区表示）
func (v SlotValue) Equal(o SlotValue) bool {
	if v.Exists != o.Exists {
		return false
	}
	if !v.Exists {
		return true
	}
	return v.Source == o.Source &&
		strPtrEqual(v.Activity, o.Activity) &&
		strPtrEqual(v.OverrideReason, o.OverrideReason) &&
		strPtrEqual(v.OverrideBy, o.OverrideBy) &&
		timePtrEqual(v.OverrideAt, o.OverrideAt)
}

// ActivityOrEmpty 活动名，空值返回 ""
func (v SlotValue) ActivityOrEmpty() string {
	if v.Activity == nil {
		return ""
	}
	return *v.Activity
}

func (v SlotValue) String() string {
	if !v.Exists {
		return "<absent>"
	}
	act := v.ActivityOrEmpty()
	if act == "" {
		act = "-"
	}
	return fmt.Sprintf("%s(%s)", act, v.Source)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// AssignmentSlot 半天排班时段表：对应 assignment_slots
type AssignmentSlot struct {
	SlotID         string           `gorm:"type:uuid;primaryKey"                                          json:"slot_id"`
	FacultyID      string           `gorm:"type:uuid;not null;uniqueIndex:uq_assignment_slot_key,priority:1" json:"faculty_id"`
	Date           time.Time        `gorm:"type:date;not null;uniqueIndex:uq_assignment_slot_key,priority:2" json:"date"`
	HalfDay        HalfDay          `gorm:"type:varchar(2);not null;uniqueIndex:uq_assignment_slot_key,priority:3" json:"half_day"`
	Activity       *string          `gorm:"type:varchar(50)"                                              json:"activity,omitempty"`
	Source         AssignmentSource `gorm:"type:varchar(10);not null"                                     json:"source"`
	OverrideReason *string          `gorm:"type:varchar(500)"                                             json:"override_reason,omitempty"`
	OverrideBy     *string          `gorm:"type:varchar(64)"                                              json:"override_by,omitempty"`
	OverrideAt     *time.Time       `json:"override_at,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (AssignmentSlot) TableName() string { return "assignment_slots" }

// BeforeCreate 生成主键
func (s *AssignmentSlot) BeforeCreate(_ *gorm.DB) error {
	if s.SlotID == "" {
		s.SlotID = newID()
	}
	s.initVersion()
	s.Date = DateOf(s.Date)
	return nil
}

// AfterFind 统一时间为 UTC
func (s *AssignmentSlot) AfterFind(_ *gorm.DB) error {
	s.Date = DateOf(s.Date)
	s.OverrideAt = utcPtr(s.OverrideAt)
	return nil
}

// Key 返回时段唯一键
func (s *AssignmentSlot) Key() SlotKey {
	return SlotKey{FacultyID: s.FacultyID, Date: DateOf(s.Date), HalfDay: s.HalfDay}
}

// Value 返回时段当前取值快照
func (s *AssignmentSlot) Value() SlotValue {
	return SlotValue{
		Exists:         true,
		Activity:       s.Activity,
		Source:         s.Source,
		OverrideReason: s.OverrideReason,
		OverrideBy:     s.OverrideBy,
		OverrideAt:     utcPtr(s.OverrideAt),
	}
}

// ApplyValue 用快照覆盖时段内容（不修改键与版本）
func (s *AssignmentSlot) ApplyValue(v SlotValue) {
	s.Activity = v.Activity
	s.Source = v.Source
	s.OverrideReason = v.OverrideReason
	s.OverrideBy = v.OverrideBy
	s.OverrideAt = utcPtr(v.OverrideAt)
}
