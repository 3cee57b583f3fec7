package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// ── 冲突检测模块业务错误 ──

var ErrInvalidDateRange = errors.New("日期范围不合法：起始日期必须早于结束日期")

// ConflictInfo 检测到的冲突（不落库）
type ConflictInfo struct {
	FacultyID    string             `json:"faculty_id"`
	ConflictType model.ConflictType `json:"conflict_type"`
	Severity     model.Severity     `json:"severity"`
	FmitWeek     time.Time          `json:"fmit_week"`
	Description  string             `json:"description"`
	LeaveID      *string            `json:"leave_id,omitempty"`
}

// CreateAlertsResult 告警落库结果
type CreateAlertsResult struct {
	Created []dto.ConflictAlertResponse
	Skipped int // 已存在未关闭告警而跳过
}

// ConflictService 冲突检测与告警生命周期
type ConflictService interface {
	// DetectConflicts 检测 [from, to) 内的冲突；facultyID 为空时检测全部教员
	DetectConflicts(ctx context.Context, from, to time.Time, facultyID string) ([]ConflictInfo, error)
	// CreateConflictAlerts 按 (faculty, type, week) 对未关闭告警去重后落库
	CreateConflictAlerts(ctx context.Context, infos []ConflictInfo, actor string) (*CreateAlertsResult, error)
	// Detect 请求入口：检测并可选落库
	Detect(ctx context.Context, req *dto.DetectConflictsRequest, actor string) (*dto.DetectConflictsResponse, error)
	ListAlerts(ctx context.Context, req *dto.AlertListRequest) ([]dto.ConflictAlertResponse, int64, error)
	Acknowledge(ctx context.Context, alertID, actor string) (*dto.ConflictAlertResponse, error)
	Resolve(ctx context.Context, alertID, actor, notes string) (*dto.ConflictAlertResponse, error)
	Ignore(ctx context.Context, alertID, actor, notes string) (*dto.ConflictAlertResponse, error)
}

type conflictService struct {
	cfg        *config.ConflictConfig
	activities []string
	repo       *repository.Repository
	publisher  EventPublisher
	clock      Clock
	logger     *zap.Logger
}

// NewConflictService 创建 ConflictService 实例
// activities 为视作固定值班（FMIT 周）的活动名
func NewConflictService(
	cfg *config.ConflictConfig,
	activities []string,
	repo *repository.Repository,
	publisher EventPublisher,
	clock Clock,
	logger *zap.Logger,
) ConflictService {
	return &conflictService{
		cfg:        cfg,
		activities: activities,
		repo:       repo,
		publisher:  publisher,
		clock:      clock,
		logger:     logger,
	}
}

// ════════════════════════════════════════════════════════════
// DetectConflicts：纯读取，重复调用结果一致
// ════════════════════════════════════════════════════════════
//
// 1. 加载窗口内的阻断性缺勤（is_blocking 或 deployment）与值班时段
// 2. 值班周 = 教员持有值班活动时段的周（周一开始）
// 3. 阻断缺勤与值班周重叠 → leave_fmit_overlap（deployment / medical_emergency 为 critical）
// 4. 同一教员相邻值班周间隔不超过 min_week_gap → back_to_back（记在后一周）

func (s *conflictService) DetectConflicts(ctx context.Context, from, to time.Time, facultyID string) ([]ConflictInfo, error) {
	from, to = model.DateOf(from), model.DateOf(to)
	if !from.Before(to) {
		return nil, ErrInvalidDateRange
	}
	// 扩展到完整周，保证边界周的重叠与相邻关系可见
	rangeStart := model.WeekStart(from)
	rangeEnd := model.WeekEnd(to.AddDate(0, 0, -1))

	var (
		absences []model.Absence
		slots    []model.AssignmentSlot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		absences, err = s.repo.Absence.ListBlockingInRange(gctx, rangeStart, rangeEnd, facultyID)
		return err
	})
	g.Go(func() error {
		var err error
		slots, err = s.repo.Slot.ListByActivities(gctx, s.activities, rangeStart, rangeEnd, facultyID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("加载冲突检测数据失败", zap.Error(err))
		return nil, err
	}

	weeks := commitmentWeeks(slots)
	var infos []ConflictInfo

	// 缺勤 × 值班周
	for i := range absences {
		a := &absences[i]
		if !a.EffectivelyBlocking() {
			continue
		}
		for _, week := range weeks[a.FacultyID] {
			if !a.OverlapsWeek(week) {
				continue
			}
			severity := model.SeverityWarning
			if a.IsCriticalType() {
				severity = model.SeverityCritical
			}
			leaveID := a.AbsenceID
			infos = append(infos, ConflictInfo{
				FacultyID:    a.FacultyID,
				ConflictType: model.ConflictLeaveFMITOverlap,
				Severity:     severity,
				FmitWeek:     week,
				Description: fmt.Sprintf("%s 缺勤 (%s ~ %s) 与值班周 %s 重叠",
					a.AbsenceType, model.FormatDate(a.StartDate), model.FormatDate(a.EndDate), model.FormatDate(week)),
				LeaveID: &leaveID,
			})
		}
	}

	// 连续值班周
	for fac, list := range weeks {
		for i := 1; i < len(list); i++ {
			gap := model.WeeksBetween(list[i-1], list[i])
			if gap <= 0 || gap > s.cfg.MinWeekGap {
				continue
			}
			infos = append(infos, ConflictInfo{
				FacultyID:    fac,
				ConflictType: model.ConflictBackToBack,
				Severity:     model.SeverityWarning,
				FmitWeek:     list[i],
				Description: fmt.Sprintf("值班周 %s 与 %s 间隔 %d 周，低于最小间隔",
					model.FormatDate(list[i-1]), model.FormatDate(list[i]), gap),
			})
		}
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].FacultyID != infos[j].FacultyID {
			return infos[i].FacultyID < infos[j].FacultyID
		}
		if !infos[i].FmitWeek.Equal(infos[j].FmitWeek) {
			return infos[i].FmitWeek.Before(infos[j].FmitWeek)
		}
		return infos[i].ConflictType < infos[j].ConflictType
	})
	return infos, nil
}

// commitmentWeeks 按教员归集值班周（升序去重）
func commitmentWeeks(slots []model.AssignmentSlot) map[string][]time.Time {
	seen := make(map[string]map[time.Time]bool)
	for i := range slots {
		fac := slots[i].FacultyID
		if seen[fac] == nil {
			seen[fac] = make(map[time.Time]bool)
		}
		seen[fac][model.WeekStart(slots[i].Date)] = true
	}
	out := make(map[string][]time.Time, len(seen))
	for fac, set := range seen {
		list := make([]time.Time, 0, len(set))
		for w := range set {
			list = append(list, w)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Before(list[j]) })
		out[fac] = list
	}
	return out
}

// ════════════════════════════════════════════════════════════
// CreateConflictAlerts：去重落库
// ════════════════════════════════════════════════════════════

func (s *conflictService) CreateConflictAlerts(ctx context.Context, infos []ConflictInfo, actor string) (*CreateAlertsResult, error) {
	result := &CreateAlertsResult{}
	var created []model.ConflictAlert

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		for _, info := range infos {
			_, err := txRepo.ConflictAlert.FindOpen(ctx, info.FacultyID, info.ConflictType, info.FmitWeek)
			if err == nil {
				result.Skipped++
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			alert := model.ConflictAlert{
				FacultyID:    info.FacultyID,
				ConflictType: info.ConflictType,
				Severity:     info.Severity,
				FmitWeek:     info.FmitWeek,
				Description:  info.Description,
				LeaveID:      info.LeaveID,
				Status:       model.AlertNew,
			}
			if actor != "" {
				alert.CreatedBy = &actor
			}
			// 并发扫描可能在 FindOpen 之后抢先写入，由唯一索引兜底去重
			inserted, err := txRepo.ConflictAlert.CreateIfAbsent(ctx, &alert)
			if err != nil {
				return err
			}
			if !inserted {
				result.Skipped++
				continue
			}
			created = append(created, alert)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("创建冲突告警失败", zap.Error(err))
		return nil, err
	}

	for i := range created {
		a := &created[i]
		result.Created = append(result.Created, toAlertResponse(a))
		publishEvent(ctx, s.publisher, s.logger, ChannelAlerts, Event{
			Type:       "alert.created",
			EntityID:   a.AlertID,
			FacultyIDs: []string{a.FacultyID},
			Actor:      actor,
			OccurredAt: s.clock(),
			Attributes: map[string]string{
				"conflict_type": string(a.ConflictType),
				"severity":      string(a.Severity),
				"fmit_week":     model.FormatDate(a.FmitWeek),
			},
		})
	}

	if len(created) > 0 {
		s.logger.Info("创建冲突告警", zap.Int("created", len(created)), zap.Int("skipped", result.Skipped))
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// Detect：请求入口
// ════════════════════════════════════════════════════════════

func (s *conflictService) Detect(ctx context.Context, req *dto.DetectConflictsRequest, actor string) (*dto.DetectConflictsResponse, error) {
	from, err := model.ParseDate(req.From)
	if err != nil {
		return nil, ErrInvalidDateRange
	}
	to, err := model.ParseDate(req.To)
	if err != nil {
		return nil, ErrInvalidDateRange
	}
	facultyID := ""
	if req.FacultyID != nil {
		facultyID = *req.FacultyID
	}

	infos, err := s.DetectConflicts(ctx, from, to, facultyID)
	if err != nil {
		return nil, err
	}

	resp := &dto.DetectConflictsResponse{Conflicts: make([]dto.ConflictInfoResponse, 0, len(infos))}
	for _, c := range infos {
		resp.Conflicts = append(resp.Conflicts, toConflictInfoResponse(c))
	}
	if !req.Persist {
		return resp, nil
	}
	if actor == "" {
		return nil, ErrActorRequired
	}

	created, err := s.CreateConflictAlerts(ctx, infos, actor)
	if err != nil {
		return nil, err
	}
	resp.Created = len(created.Created)
	resp.Skipped = created.Skipped
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// 告警查询与状态迁移
// ════════════════════════════════════════════════════════════

func (s *conflictService) ListAlerts(ctx context.Context, req *dto.AlertListRequest) ([]dto.ConflictAlertResponse, int64, error) {
	filter := repository.AlertFilter{
		FacultyID:    req.FacultyID,
		Status:       model.AlertStatus(req.Status),
		Severity:     model.Severity(req.Severity),
		ConflictType: model.ConflictType(req.ConflictType),
		OpenOnly:     req.OpenOnly,
	}
	list, total, err := s.repo.ConflictAlert.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询冲突告警失败", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.ConflictAlertResponse, 0, len(list))
	for i := range list {
		out = append(out, toAlertResponse(&list[i]))
	}
	return out, total, nil
}

func (s *conflictService) Acknowledge(ctx context.Context, alertID, actor string) (*dto.ConflictAlertResponse, error) {
	return s.transition(ctx, alertID, actor, "alert.acknowledged", func(a *model.ConflictAlert, now time.Time) error {
		return a.Acknowledge(actor, now)
	})
}

func (s *conflictService) Resolve(ctx context.Context, alertID, actor, notes string) (*dto.ConflictAlertResponse, error) {
	return s.transition(ctx, alertID, actor, "alert.resolved", func(a *model.ConflictAlert, now time.Time) error {
		return a.Resolve(actor, now, notes)
	})
}

func (s *conflictService) Ignore(ctx context.Context, alertID, actor, notes string) (*dto.ConflictAlertResponse, error) {
	return s.transition(ctx, alertID, actor, "alert.ignored", func(a *model.ConflictAlert, now time.Time) error {
		return a.Ignore(actor, now, notes)
	})
}

// transition 读取 → 模型状态迁移 → 版本 CAS 更新 → 发布事件
func (s *conflictService) transition(
	ctx context.Context,
	alertID, actor, eventType string,
	apply func(a *model.ConflictAlert, now time.Time) error,
) (*dto.ConflictAlertResponse, error) {
	if actor == "" {
		return nil, ErrActorRequired
	}
	alert, err := s.repo.ConflictAlert.GetByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &pkgerrors.NotFoundError{Entity: "conflict_alert", ID: alertID}
		}
		s.logger.Error("查询冲突告警失败", zap.String("id", alertID), zap.Error(err))
		return nil, err
	}

	now := stamp(s.clock)
	if err := apply(alert, now); err != nil {
		return nil, err
	}
	if err := s.repo.ConflictAlert.Update(ctx, alert); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新冲突告警失败", zap.String("id", alertID), zap.Error(err))
		}
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, ChannelAlerts, Event{
		Type:       eventType,
		EntityID:   alert.AlertID,
		FacultyIDs: []string{alert.FacultyID},
		Actor:      actor,
		OccurredAt: now,
	})
	resp := toAlertResponse(alert)
	return &resp, nil
}
