package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// SwapFilter 换班申请查询条件
type SwapFilter struct {
	FacultyID string // 源或目标任一方
	Status    model.SwapStatus
	From      time.Time // requested_at 下界（含）
	To        time.Time // requested_at 上界（不含）
}

// SwapRepository 换班申请数据访问接口
type SwapRepository interface {
	Create(ctx context.Context, record *model.SwapRecord) error
	GetByID(ctx context.Context, id string) (*model.SwapRecord, error)
	// GetForUpdate 行级锁读取，必须在事务内调用
	GetForUpdate(ctx context.Context, id string) (*model.SwapRecord, error)
	List(ctx context.Context, filter SwapFilter, offset, limit int) ([]model.SwapRecord, int64, error)
	// UpdateStatus 以 (status, version) 为条件的 CAS 更新，失败返回 ErrOptimisticLock
	UpdateStatus(ctx context.Context, record *model.SwapRecord, expected model.SwapStatus) error
}

type swapRepo struct {
	db *gorm.DB
}

func NewSwapRepo(db *gorm.DB) SwapRepository {
	return &swapRepo{db: db}
}

func (r *swapRepo) Create(ctx context.Context, record *model.SwapRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *swapRepo) GetByID(ctx context.Context, id string) (*model.SwapRecord, error) {
	var record model.SwapRecord
	err := r.db.WithContext(ctx).
		Preload("Approvals").
		Where("swap_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *swapRepo) GetForUpdate(ctx context.Context, id string) (*model.SwapRecord, error) {
	var record model.SwapRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("swap_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *swapRepo) List(ctx context.Context, filter SwapFilter, offset, limit int) ([]model.SwapRecord, int64, error) {
	var list []model.SwapRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SwapRecord{})
	if filter.FacultyID != "" {
		query = query.Where("source_faculty_id = ? OR target_faculty_id = ?", filter.FacultyID, filter.FacultyID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		query = query.Where("requested_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query = query.Where("requested_at < ?", filter.To.UTC())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	err := query.Preload("Approvals").Order("requested_at DESC").Find(&list).Error
	return list, total, err
}

func (r *swapRepo) UpdateStatus(ctx context.Context, record *model.SwapRecord, expected model.SwapStatus) error {
	oldVersion := record.Version
	result := r.db.WithContext(ctx).
		Model(&model.SwapRecord{}).
		Where("swap_id = ? AND status = ? AND version = ?", record.SwapID, expected, oldVersion).
		Updates(map[string]interface{}{
			"status":            record.Status,
			"approved_by":       record.ApprovedBy,
			"approved_at":       record.ApprovedAt,
			"executed_by":       record.ExecutedBy,
			"executed_at":       record.ExecutedAt,
			"rollback_deadline": record.RollbackDeadline,
			"rolled_back_by":    record.RolledBackBy,
			"rolled_back_at":    record.RolledBackAt,
			"rollback_reason":   record.RollbackReason,
			"rejected_by":       record.RejectedBy,
			"rejected_at":       record.RejectedAt,
			"failure_reason":    record.FailureReason,
			"steps":             record.Steps,
			"updated_by":        record.UpdatedBy,
			"updated_at":        time.Now().UTC(),
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	record.Version = oldVersion + 1
	return nil
}
