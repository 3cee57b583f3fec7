package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// AbsenceService 缺勤数据导入
// 缺勤只作为冲突检测与换班校验的输入，本服务不负责审批
type AbsenceService interface {
	// ImportICS 从日历内容导入，按 (教员, UID) 幂等覆盖
	ImportICS(ctx context.Context, reader io.Reader, facultyID, actor string) (*dto.AbsenceImportResponse, error)
	// ImportICSURL 从订阅地址拉取后导入
	ImportICSURL(ctx context.Context, url, facultyID, actor string) (*dto.AbsenceImportResponse, error)
}

type absenceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAbsenceService 创建 AbsenceService 实例
func NewAbsenceService(repo *repository.Repository, logger *zap.Logger) AbsenceService {
	return &absenceService{repo: repo, logger: logger}
}

func (s *absenceService) ImportICS(ctx context.Context, reader io.Reader, facultyID, actor string) (*dto.AbsenceImportResponse, error) {
	if actor == "" {
		return nil, ErrActorRequired
	}
	if _, err := s.repo.Faculty.GetByID(ctx, facultyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &pkgerrors.NotFoundError{Entity: "faculty", ID: facultyID}
		}
		s.logger.Error("查询教员失败", zap.String("faculty_id", facultyID), zap.Error(err))
		return nil, err
	}

	absences, skipped, err := ParseAbsenceICS(reader, facultyID)
	if err != nil {
		return nil, err
	}
	for i := range absences {
		absences[i].CreatedBy = &actor
		absences[i].UpdatedBy = &actor
	}

	resp := &dto.AbsenceImportResponse{FacultyID: facultyID, Parsed: len(absences), Skipped: skipped}
	if len(absences) == 0 {
		return resp, nil
	}
	upserted, err := s.repo.Absence.UpsertByExternalUID(ctx, absences)
	if err != nil {
		s.logger.Error("导入缺勤失败", zap.String("faculty_id", facultyID), zap.Error(err))
		return nil, err
	}
	resp.Upserted = upserted

	s.logger.Info("导入缺勤日历",
		zap.String("faculty_id", facultyID),
		zap.Int("parsed", resp.Parsed),
		zap.Int("skipped", skipped),
		zap.Int64("upserted", upserted),
	)
	return resp, nil
}

func (s *absenceService) ImportICSURL(ctx context.Context, url, facultyID, actor string) (*dto.AbsenceImportResponse, error) {
	body, err := FetchICSContent(url)
	if err != nil {
		s.logger.Warn("拉取缺勤日历失败", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	defer body.Close()
	return s.ImportICS(ctx, body, facultyID, actor)
}
