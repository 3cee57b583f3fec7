package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)"                   json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"                   json:"updated_by,omitempty"`
}

// VersionedModel 支持乐观锁的审计模型
// 时段、换班申请与告警均不做软删除，只能被覆盖或迁移状态
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// initVersion 新建记录的版本号从 1 开始
func (m *VersionedModel) initVersion() {
	if m.Version == 0 {
		m.Version = 1
	}
}

// newID 生成主键；SQLite 与 PostgreSQL 共用模型，不依赖 gen_random_uuid()
func newID() string {
	return uuid.New().String()
}

// ── 日期辅助 ──

const dateLayout = "2006-01-02"

// DateOf 截断为 UTC 零点，所有 date 列统一使用该形式读写
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart 返回 t 所在周的周一（UTC 零点）
func WeekStart(t time.Time) time.Time {
	d := DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 … Sunday=6
	return d.AddDate(0, 0, -offset)
}

// WeekEnd 返回周的结束边界（下周一，开区间）
func WeekEnd(week time.Time) time.Time {
	return WeekStart(week).AddDate(0, 0, 7)
}

// WeeksBetween 两个周一之间相差的周数（b - a）
func WeeksBetween(a, b time.Time) int {
	return int(WeekStart(b).Sub(WeekStart(a)).Hours() / (24 * 7))
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
