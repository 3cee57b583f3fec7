// Package testutil 测试辅助：基于 SQLite 内存库的 gorm 连接与种子数据
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
)

var dbSeq atomic.Int64

// NewDB 为每个测试创建独立的共享缓存内存库
// 单连接保证事务串行，与 Postgres 行锁下的语义一致
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:roster_%d?mode=memory&cache=shared&_busy_timeout=5000", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&model.Faculty{},
		&model.AssignmentSlot{},
		&model.Absence{},
		&model.SwapRecord{},
		&model.SwapApproval{},
		&model.ConflictAlert{},
	); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	// 与线上迁移一致：同一 (教员, 类型, 周) 最多一条未关闭告警
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_alert_open
		ON conflict_alerts (faculty_id, conflict_type, fmit_week)
		WHERE status IN ('new', 'acknowledged')`).Error; err != nil {
		t.Fatalf("创建告警唯一索引失败: %v", err)
	}
	return db
}

// MustDate 解析 YYYY-MM-DD，失败直接 panic（仅用于测试常量）
func MustDate(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Ptr 取地址
func Ptr[T any](v T) *T { return &v }

// SeedFaculty 创建一名教员
func SeedFaculty(t *testing.T, db *gorm.DB, name string, active bool) *model.Faculty {
	t.Helper()
	f := &model.Faculty{
		Name:     name,
		Email:    strings.ToLower(name) + "@clinic.test",
		Role:     "faculty",
		IsActive: active,
	}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("创建教员失败: %v", err)
	}
	return f
}

// SeedWeek 为教员在某周的每个工作日 AM/PM 写入同一活动
func SeedWeek(t *testing.T, db *gorm.DB, facultyID string, week time.Time, activity string, source model.AssignmentSource) []model.AssignmentSlot {
	t.Helper()
	start := model.WeekStart(week)
	var slots []model.AssignmentSlot
	for d := 0; d < 5; d++ {
		for _, h := range []model.HalfDay{model.HalfDayAM, model.HalfDayPM} {
			slot := model.AssignmentSlot{
				FacultyID: facultyID,
				Date:      start.AddDate(0, 0, d),
				HalfDay:   h,
				Activity:  Ptr(activity),
				Source:    source,
			}
			if err := db.Create(&slot).Error; err != nil {
				t.Fatalf("创建时段失败: %v", err)
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

// SnapshotSlots 读取全部时段（按键排序），用于前后对比
func SnapshotSlots(t *testing.T, db *gorm.DB) map[string]model.SlotValue {
	t.Helper()
	var slots []model.AssignmentSlot
	if err := db.Order("faculty_id, date, half_day").Find(&slots).Error; err != nil {
		t.Fatalf("读取时段失败: %v", err)
	}
	out := make(map[string]model.SlotValue, len(slots))
	for i := range slots {
		out[slots[i].Key().String()] = slots[i].Value()
	}
	return out
}
