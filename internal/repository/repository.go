package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Faculty       FacultyRepository
	Slot          SlotRepository
	Absence       AbsenceRepository
	Swap          SwapRepository
	Approval      SwapApprovalRepository
	ConflictAlert ConflictAlertRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:            db,
		Faculty:       NewFacultyRepo(db),
		Slot:          NewSlotRepo(db),
		Absence:       NewAbsenceRepo(db),
		Swap:          NewSwapRepo(db),
		Approval:      NewSwapApprovalRepo(db),
		ConflictAlert: NewConflictAlertRepo(db),
	}
}

// WithTx 返回绑定到事务连接的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个事务内执行 fn；fn 返回错误或 panic 时回滚
// fn 内只能使用传入的 txRepo，不能再使用外层 Repository
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
