package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
)

// FacultyRepository 教员数据访问接口
type FacultyRepository interface {
	Create(ctx context.Context, faculty *model.Faculty) error
	GetByID(ctx context.Context, id string) (*model.Faculty, error)
	GetByEmail(ctx context.Context, email string) (*model.Faculty, error)
	List(ctx context.Context, activeOnly bool) ([]model.Faculty, error)
	SetActive(ctx context.Context, id string, active bool, updatedBy string) error
}

type facultyRepo struct {
	db *gorm.DB
}

func NewFacultyRepo(db *gorm.DB) FacultyRepository {
	return &facultyRepo{db: db}
}

func (r *facultyRepo) Create(ctx context.Context, faculty *model.Faculty) error {
	return r.db.WithContext(ctx).Create(faculty).Error
}

func (r *facultyRepo) GetByID(ctx context.Context, id string) (*model.Faculty, error) {
	var faculty model.Faculty
	err := r.db.WithContext(ctx).Where("faculty_id = ?", id).First(&faculty).Error
	if err != nil {
		return nil, err
	}
	return &faculty, nil
}

func (r *facultyRepo) GetByEmail(ctx context.Context, email string) (*model.Faculty, error) {
	var faculty model.Faculty
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&faculty).Error
	if err != nil {
		return nil, err
	}
	return &faculty, nil
}

func (r *facultyRepo) List(ctx context.Context, activeOnly bool) ([]model.Faculty, error) {
	var list []model.Faculty
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("name ASC").Find(&list).Error
	return list, err
}

func (r *facultyRepo) SetActive(ctx context.Context, id string, active bool, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Faculty{}).
		Where("faculty_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_by": updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
