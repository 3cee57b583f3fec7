package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
)

// scanActor 定时扫描写入告警时使用的操作人
const scanActor = "system:conflict-scan"

// conflictScanner 扫描所需的冲突服务能力
type conflictScanner interface {
	DetectConflicts(ctx context.Context, from, to time.Time, facultyID string) ([]service.ConflictInfo, error)
	CreateConflictAlerts(ctx context.Context, infos []service.ConflictInfo, actor string) (*service.CreateAlertsResult, error)
}

// ScanResult 一次扫描的结果
type ScanResult struct {
	From     time.Time
	To       time.Time
	Detected int
	Created  int
	Skipped  int
}

// ConflictScanJob 周期性冲突扫描：检测 [今天, 今天+horizon) 并落库告警
// 已存在未关闭告警的冲突被去重跳过，重复扫描不会产生重复告警
type ConflictScanJob struct {
	cfg      *config.ConflictConfig
	conflict conflictScanner
	clock    service.Clock
	timeout  time.Duration
	logger   *zap.Logger
}

// NewConflictScanJob 创建冲突扫描任务
func NewConflictScanJob(cfg *config.ConflictConfig, conflict conflictScanner, clock service.Clock, logger *zap.Logger) *ConflictScanJob {
	if clock == nil {
		clock = service.SystemClock
	}
	return &ConflictScanJob{
		cfg:      cfg,
		conflict: conflict,
		clock:    clock,
		timeout:  5 * time.Minute,
		logger:   logger,
	}
}

func (j *ConflictScanJob) Name() string { return "conflict_scan" }

func (j *ConflictScanJob) Spec() string { return j.cfg.ScanCron }

// Run 实现 Job
func (j *ConflictScanJob) Run(ctx context.Context) error {
	_, err := j.Scan(ctx)
	return err
}

// Scan 执行一次扫描
func (j *ConflictScanJob) Scan(ctx context.Context) (*ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	from := model.DateOf(j.clock())
	to := from.AddDate(0, 0, j.cfg.ScanHorizonDays)
	result := &ScanResult{From: from, To: to}

	infos, err := j.conflict.DetectConflicts(ctx, from, to, "")
	if err != nil {
		return nil, err
	}
	result.Detected = len(infos)

	if len(infos) > 0 {
		created, err := j.conflict.CreateConflictAlerts(ctx, infos, scanActor)
		if err != nil {
			return nil, err
		}
		result.Created = len(created.Created)
		result.Skipped = created.Skipped
	}

	j.logger.Info("冲突扫描完成",
		zap.String("from", model.FormatDate(from)),
		zap.String("to", model.FormatDate(to)),
		zap.Int("detected", result.Detected),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}
