package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
)

// Clock 当前时间来源（测试注入固定时钟）
type Clock func() time.Time

// SystemClock 系统时钟（UTC）
func SystemClock() time.Time { return time.Now().UTC() }

// Service 所有 Service 的聚合入口
type Service struct {
	Slot     SlotService
	Conflict ConflictService
	Swap     SwapEngine
	Absence  AbsenceService
	Export   AuditExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	publisher EventPublisher,
	clock Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = SystemClock
	}
	conflict := NewConflictService(&cfg.Conflict, cfg.Swap.CommitmentActivities, repo, publisher, clock, logger)
	return &Service{
		Slot:     NewSlotService(repo, clock, logger),
		Conflict: conflict,
		Swap:     NewSwapEngine(&cfg.Swap, repo, publisher, clock, logger),
		Absence:  NewAbsenceService(repo, logger),
		Export:   NewAuditExportService(repo, logger),
	}
}
