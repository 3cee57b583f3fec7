package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// AlertFilter 告警查询条件
type AlertFilter struct {
	FacultyID    string
	Status       model.AlertStatus
	Severity     model.Severity
	ConflictType model.ConflictType
	OpenOnly     bool
}

// ConflictAlertRepository 冲突告警数据访问接口
type ConflictAlertRepository interface {
	Create(ctx context.Context, alert *model.ConflictAlert) error
	// CreateIfAbsent 去重键上已有未关闭告警时不写入，返回 false
	CreateIfAbsent(ctx context.Context, alert *model.ConflictAlert) (bool, error)
	GetByID(ctx context.Context, id string) (*model.ConflictAlert, error)
	// FindOpen 查找去重键 (faculty, type, week) 上未关闭的告警
	FindOpen(ctx context.Context, facultyID string, conflictType model.ConflictType, week time.Time) (*model.ConflictAlert, error)
	// ListOpenBySeverity 某些教员在某周上未关闭的指定级别告警
	ListOpenBySeverity(ctx context.Context, facultyIDs []string, week time.Time, severity model.Severity) ([]model.ConflictAlert, error)
	List(ctx context.Context, filter AlertFilter, offset, limit int) ([]model.ConflictAlert, int64, error)
	Update(ctx context.Context, alert *model.ConflictAlert) error
}

type conflictAlertRepo struct {
	db *gorm.DB
}

func NewConflictAlertRepo(db *gorm.DB) ConflictAlertRepository {
	return &conflictAlertRepo{db: db}
}

func (r *conflictAlertRepo) Create(ctx context.Context, alert *model.ConflictAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *conflictAlertRepo) CreateIfAbsent(ctx context.Context, alert *model.ConflictAlert) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(alert)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *conflictAlertRepo) GetByID(ctx context.Context, id string) (*model.ConflictAlert, error) {
	var alert model.ConflictAlert
	err := r.db.WithContext(ctx).Where("alert_id = ?", id).First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *conflictAlertRepo) FindOpen(ctx context.Context, facultyID string, conflictType model.ConflictType, week time.Time) (*model.ConflictAlert, error) {
	var alert model.ConflictAlert
	err := r.db.WithContext(ctx).
		Where("faculty_id = ? AND conflict_type = ? AND fmit_week = ? AND status IN ?",
			facultyID, conflictType, model.WeekStart(week), model.OpenAlertStatuses).
		First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *conflictAlertRepo) ListOpenBySeverity(ctx context.Context, facultyIDs []string, week time.Time, severity model.Severity) ([]model.ConflictAlert, error) {
	var list []model.ConflictAlert
	if len(facultyIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("faculty_id IN ? AND fmit_week = ? AND severity = ? AND status IN ?",
			facultyIDs, model.WeekStart(week), severity, model.OpenAlertStatuses).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *conflictAlertRepo) List(ctx context.Context, filter AlertFilter, offset, limit int) ([]model.ConflictAlert, int64, error) {
	var list []model.ConflictAlert
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ConflictAlert{})
	if filter.FacultyID != "" {
		query = query.Where("faculty_id = ?", filter.FacultyID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.ConflictType != "" {
		query = query.Where("conflict_type = ?", filter.ConflictType)
	}
	if filter.OpenOnly {
		query = query.Where("status IN ?", model.OpenAlertStatuses)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	err := query.Order("fmit_week ASC, created_at ASC").Find(&list).Error
	return list, total, err
}

func (r *conflictAlertRepo) Update(ctx context.Context, alert *model.ConflictAlert) error {
	oldVersion := alert.Version
	result := r.db.WithContext(ctx).
		Model(&model.ConflictAlert{}).
		Where("alert_id = ? AND version = ?", alert.AlertID, oldVersion).
		Updates(map[string]interface{}{
			"status":           alert.Status,
			"acknowledged_by":  alert.AcknowledgedBy,
			"acknowledged_at":  alert.AcknowledgedAt,
			"resolved_by":      alert.ResolvedBy,
			"resolved_at":      alert.ResolvedAt,
			"resolution_notes": alert.ResolutionNotes,
			"updated_by":       alert.UpdatedBy,
			"updated_at":       time.Now().UTC(),
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	alert.Version = oldVersion + 1
	return nil
}
