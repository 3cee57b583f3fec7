package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/policy"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// SlotWrite 一次经过来源策略校验的时段写入
//
// Value.Source 是写入后时段保存的来源；Authority 是本次写入方用于策略判定的来源。
// 两者通常相同，回滚恢复旧值时 Value 为旧快照，Authority 仍是换班的 MANUAL。
type SlotWrite struct {
	Key            model.SlotKey
	Value          model.SlotValue
	Authority      model.AssignmentSource
	ManualOverride bool
	Expect         *model.SlotValue // 非空时要求当前值与之一致，否则返回 SlotDriftError
	Actor          string
}

// WriteResult 写入结果
type WriteResult struct {
	Before   model.SlotValue
	After    model.SlotValue
	Changed  bool
	Decision policy.Decision
}

// ErrSlotDeleteWithoutExpect 删除时段必须携带期望值（仅换班回滚）
var ErrSlotDeleteWithoutExpect = errors.New("时段只能由换班回滚删除")

// SlotFilter 时段查询条件
type SlotFilter struct {
	FacultyID string
	From      time.Time // 含
	To        time.Time // 不含
	Source    model.AssignmentSource
	Activity  string
}

// SlotRepository 半天时段数据访问接口
// Write 是时段表唯一的变更入口
type SlotRepository interface {
	Get(ctx context.Context, key model.SlotKey) (*model.AssignmentSlot, error)
	Current(ctx context.Context, key model.SlotKey) (model.SlotValue, error)
	Write(ctx context.Context, w SlotWrite) (*WriteResult, error)
	List(ctx context.Context, filter SlotFilter, offset, limit int) ([]model.AssignmentSlot, int64, error)
	ListByFacultyInRange(ctx context.Context, facultyID string, from, to time.Time) ([]model.AssignmentSlot, error)
	ListByActivities(ctx context.Context, activities []string, from, to time.Time, facultyID string) ([]model.AssignmentSlot, error)
}

type slotRepo struct {
	db *gorm.DB
}

func NewSlotRepo(db *gorm.DB) SlotRepository {
	return &slotRepo{db: db}
}

func (r *slotRepo) Get(ctx context.Context, key model.SlotKey) (*model.AssignmentSlot, error) {
	key = key.Normalize()
	var slot model.AssignmentSlot
	err := r.db.WithContext(ctx).
		Where("faculty_id = ? AND date = ? AND half_day = ?", key.FacultyID, key.Date, key.HalfDay).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) Current(ctx context.Context, key model.SlotKey) (model.SlotValue, error) {
	slot, err := r.Get(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.SlotValue{}, nil
	}
	if err != nil {
		return model.SlotValue{}, err
	}
	return slot.Value(), nil
}

func (r *slotRepo) Write(ctx context.Context, w SlotWrite) (*WriteResult, error) {
	key := w.Key.Normalize()
	if !key.HalfDay.Valid() {
		return nil, fmt.Errorf("非法半天标识 %q", key.HalfDay)
	}
	if w.Value.Exists && !w.Value.Source.Valid() {
		return nil, fmt.Errorf("非法时段来源 %q", w.Value.Source)
	}

	slot, err := r.Get(ctx, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slot = nil
	}

	before := model.SlotValue{}
	if slot != nil {
		before = slot.Value()
	}
	if w.Expect != nil && !before.Equal(*w.Expect) {
		return nil, &pkgerrors.SlotDriftError{
			SlotKey: key.String(),
			Detail:  fmt.Sprintf("期望 %s，实际 %s", w.Expect.String(), before.String()),
		}
	}

	res := &WriteResult{Before: before, After: w.Value}

	// 不存在的键总是可写
	if slot == nil {
		res.Decision = policy.Decision{Allowed: true, Rule: policy.RuleRankAllowed}
		if !w.Value.Exists {
			res.After = before
			return res, nil
		}
		slot = &model.AssignmentSlot{FacultyID: key.FacultyID, Date: key.Date, HalfDay: key.HalfDay}
		slot.ApplyValue(w.Value)
		if w.Actor != "" {
			slot.CreatedBy = &w.Actor
			slot.UpdatedBy = &w.Actor
		}
		if err := r.db.WithContext(ctx).Create(slot).Error; err != nil {
			return nil, err
		}
		res.Changed = true
		return res, nil
	}

	res.Decision = policy.Decide(before.Source, w.Authority, w.ManualOverride)
	if !res.Decision.Allowed {
		return nil, &pkgerrors.PolicyRejectedError{
			SlotKey:         key.String(),
			CurrentSource:   string(before.Source),
			AttemptedSource: string(w.Authority),
			ManualOverride:  w.ManualOverride,
			Rule:            string(res.Decision.Rule),
		}
	}

	if before.Equal(w.Value) {
		return res, nil
	}

	// 恢复为"不存在"：只有换班回滚会走到这里，撤销执行时新建的时段；
	// 回滚总是带 Expect，其余写入方不能删除时段
	if !w.Value.Exists {
		if w.Expect == nil {
			return nil, ErrSlotDeleteWithoutExpect
		}
		result := r.db.WithContext(ctx).
			Where("slot_id = ? AND version = ?", slot.SlotID, slot.Version).
			Delete(&model.AssignmentSlot{})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, pkgerrors.ErrOptimisticLock
		}
		res.Changed = true
		return res, nil
	}

	oldVersion := slot.Version
	slot.ApplyValue(w.Value)
	updates := map[string]interface{}{
		"activity":        slot.Activity,
		"source":          slot.Source,
		"override_reason": slot.OverrideReason,
		"override_by":     slot.OverrideBy,
		"override_at":     slot.OverrideAt,
		"version":         oldVersion + 1,
		"updated_at":      time.Now().UTC(),
	}
	if w.Actor != "" {
		updates["updated_by"] = w.Actor
	}
	result := r.db.WithContext(ctx).
		Model(&model.AssignmentSlot{}).
		Where("slot_id = ? AND version = ?", slot.SlotID, oldVersion).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.ErrOptimisticLock
	}
	res.Changed = true
	return res, nil
}

func (r *slotRepo) List(ctx context.Context, filter SlotFilter, offset, limit int) ([]model.AssignmentSlot, int64, error) {
	var slots []model.AssignmentSlot
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AssignmentSlot{})
	if filter.FacultyID != "" {
		query = query.Where("faculty_id = ?", filter.FacultyID)
	}
	if !filter.From.IsZero() {
		query = query.Where("date >= ?", model.DateOf(filter.From))
	}
	if !filter.To.IsZero() {
		query = query.Where("date < ?", model.DateOf(filter.To))
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Activity != "" {
		query = query.Where("activity = ?", filter.Activity)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.
		Order("date ASC, half_day ASC, faculty_id ASC").
		Offset(offset).Limit(limit).
		Find(&slots).Error
	return slots, total, err
}

func (r *slotRepo) ListByFacultyInRange(ctx context.Context, facultyID string, from, to time.Time) ([]model.AssignmentSlot, error) {
	var slots []model.AssignmentSlot
	err := r.db.WithContext(ctx).
		Where("faculty_id = ? AND date >= ? AND date < ?", facultyID, model.DateOf(from), model.DateOf(to)).
		Order("date ASC, half_day ASC").
		Find(&slots).Error
	return slots, err
}

func (r *slotRepo) ListByActivities(ctx context.Context, activities []string, from, to time.Time, facultyID string) ([]model.AssignmentSlot, error) {
	var slots []model.AssignmentSlot
	if len(activities) == 0 {
		return slots, nil
	}
	query := r.db.WithContext(ctx).
		Where("activity IN ? AND date >= ? AND date < ?", activities, model.DateOf(from), model.DateOf(to))
	if facultyID != "" {
		query = query.Where("faculty_id = ?", facultyID)
	}
	err := query.Order("faculty_id ASC, date ASC, half_day ASC").Find(&slots).Error
	return slots, err
}
