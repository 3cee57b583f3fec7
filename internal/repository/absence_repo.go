package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
)

// AbsenceRepository 缺勤记录数据访问接口（冲突检测的只读输入 + 导入）
type AbsenceRepository interface {
	Create(ctx context.Context, absence *model.Absence) error
	// UpsertByExternalUID 按外部日历 UID 幂等导入
	UpsertByExternalUID(ctx context.Context, absences []model.Absence) (int64, error)
	GetByID(ctx context.Context, id string) (*model.Absence, error)
	ListByFacultyInRange(ctx context.Context, facultyID string, from, to time.Time) ([]model.Absence, error)
	// ListBlockingInRange 与 [from, to) 相交的阻断性缺勤（is_blocking 或 deployment）
	ListBlockingInRange(ctx context.Context, from, to time.Time, facultyID string) ([]model.Absence, error)
}

type absenceRepo struct {
	db *gorm.DB
}

func NewAbsenceRepo(db *gorm.DB) AbsenceRepository {
	return &absenceRepo{db: db}
}

func (r *absenceRepo) Create(ctx context.Context, absence *model.Absence) error {
	return r.db.WithContext(ctx).Create(absence).Error
}

func (r *absenceRepo) UpsertByExternalUID(ctx context.Context, absences []model.Absence) (int64, error) {
	if len(absences) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "faculty_id"}, {Name: "external_uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_date", "end_date", "absence_type", "is_blocking", "notes", "updated_at"}),
		}).
		Create(&absences)
	return result.RowsAffected, result.Error
}

func (r *absenceRepo) GetByID(ctx context.Context, id string) (*model.Absence, error) {
	var absence model.Absence
	err := r.db.WithContext(ctx).Where("absence_id = ?", id).First(&absence).Error
	if err != nil {
		return nil, err
	}
	return &absence, nil
}

func (r *absenceRepo) ListByFacultyInRange(ctx context.Context, facultyID string, from, to time.Time) ([]model.Absence, error) {
	var list []model.Absence
	err := r.db.WithContext(ctx).
		Where("faculty_id = ? AND start_date < ? AND end_date >= ?", facultyID, model.DateOf(to), model.DateOf(from)).
		Order("start_date ASC").
		Find(&list).Error
	return list, err
}

func (r *absenceRepo) ListBlockingInRange(ctx context.Context, from, to time.Time, facultyID string) ([]model.Absence, error) {
	var list []model.Absence
	query := r.db.WithContext(ctx).
		Where("start_date < ? AND end_date >= ?", model.DateOf(to), model.DateOf(from)).
		Where("is_blocking = ? OR absence_type = ?", true, model.AbsenceDeployment)
	if facultyID != "" {
		query = query.Where("faculty_id = ?", facultyID)
	}
	err := query.Order("faculty_id ASC, start_date ASC").Find(&list).Error
	return list, err
}
