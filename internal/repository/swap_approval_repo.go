package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// SwapApprovalRepository 换班审批数据访问接口
type SwapApprovalRepository interface {
	Create(ctx context.Context, approval *model.SwapApproval) error
	Get(ctx context.Context, swapID, facultyID string, role model.ApprovalRole) (*model.SwapApproval, error)
	ListBySwap(ctx context.Context, swapID string) ([]model.SwapApproval, error)
	Update(ctx context.Context, approval *model.SwapApproval) error
}

type swapApprovalRepo struct {
	db *gorm.DB
}

func NewSwapApprovalRepo(db *gorm.DB) SwapApprovalRepository {
	return &swapApprovalRepo{db: db}
}

func (r *swapApprovalRepo) Create(ctx context.Context, approval *model.SwapApproval) error {
	return r.db.WithContext(ctx).Create(approval).Error
}

func (r *swapApprovalRepo) Get(ctx context.Context, swapID, facultyID string, role model.ApprovalRole) (*model.SwapApproval, error) {
	var approval model.SwapApproval
	err := r.db.WithContext(ctx).
		Where("swap_id = ? AND faculty_id = ? AND role = ?", swapID, facultyID, role).
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *swapApprovalRepo) ListBySwap(ctx context.Context, swapID string) ([]model.SwapApproval, error) {
	var list []model.SwapApproval
	err := r.db.WithContext(ctx).
		Where("swap_id = ?", swapID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *swapApprovalRepo) Update(ctx context.Context, approval *model.SwapApproval) error {
	oldVersion := approval.Version
	result := r.db.WithContext(ctx).
		Model(&model.SwapApproval{}).
		Where("approval_id = ? AND version = ?", approval.ApprovalID, oldVersion).
		Updates(map[string]interface{}{
			"status":       approval.Status,
			"responded_at": approval.RespondedAt,
			"notes":        approval.Notes,
			"updated_by":   approval.UpdatedBy,
			"updated_at":   time.Now().UTC(),
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	approval.Version = oldVersion + 1
	return nil
}
