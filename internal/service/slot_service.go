package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// ── 时段模块业务错误 ──

var (
	ErrActorRequired     = errors.New("缺少操作人身份")
	ErrInvalidFeedSource = errors.New("批量导入来源只能是 PRELOAD、SOLVER 或 TEMPLATE")
	ErrInvalidSlotInput  = errors.New("时段参数不合法")
)

// SlotService 时段写入与查询
// 所有写入都经过 SlotRepository.Write 的来源策略校验，没有旁路
type SlotService interface {
	// IngestBatch 优化器/预加载批量导入（单事务，策略拒绝的逐条报告）
	IngestBatch(ctx context.Context, req *dto.IngestBatchRequest, actor string) (*dto.IngestBatchResponse, error)
	// OverrideSlot 人工覆盖单个时段
	OverrideSlot(ctx context.Context, req *dto.OverrideSlotRequest, actor string) (*dto.SlotResponse, error)
	// ListSlots 查询时段
	ListSlots(ctx context.Context, req *dto.SlotListRequest) ([]dto.SlotResponse, int64, error)
}

type slotService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewSlotService 创建 SlotService 实例
func NewSlotService(repo *repository.Repository, clock Clock, logger *zap.Logger) SlotService {
	return &slotService{repo: repo, clock: clock, logger: logger}
}

// stamp 覆盖时间精确到微秒，保证经数据库往返后仍逐字节一致
func stamp(clock Clock) time.Time {
	return clock().UTC().Truncate(time.Microsecond)
}

func parseSlotKey(facultyID, date, halfDay string) (model.SlotKey, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return model.SlotKey{}, fmt.Errorf("%w: 日期 %q", ErrInvalidSlotInput, date)
	}
	h := model.HalfDay(halfDay)
	if !h.Valid() {
		return model.SlotKey{}, fmt.Errorf("%w: 半天 %q", ErrInvalidSlotInput, halfDay)
	}
	if facultyID == "" {
		return model.SlotKey{}, fmt.Errorf("%w: 教员为空", ErrInvalidSlotInput)
	}
	return model.SlotKey{FacultyID: facultyID, Date: d, HalfDay: h}, nil
}

// ════════════════════════════════════════════════════════════
// IngestBatch：优化器 / 预加载批量导入
// ════════════════════════════════════════════════════════════

func (s *slotService) IngestBatch(ctx context.Context, req *dto.IngestBatchRequest, actor string) (*dto.IngestBatchResponse, error) {
	if actor == "" {
		return nil, ErrActorRequired
	}
	source, err := model.ParseSource(req.Source)
	if err != nil || source == model.SourceManual {
		return nil, ErrInvalidFeedSource
	}

	// 1. 先整体解析，任何一条非法则整批不写
	writes := make([]repository.SlotWrite, 0, len(req.Slots))
	for _, item := range req.Slots {
		key, err := parseSlotKey(item.FacultyID, item.Date, item.HalfDay)
		if err != nil {
			return nil, err
		}
		writes = append(writes, repository.SlotWrite{
			Key:       key,
			Value:     model.SlotValue{Exists: true, Activity: item.Activity, Source: source},
			Authority: source,
			Actor:     actor,
		})
	}

	// 2. 单事务逐条写入
	resp := &dto.IngestBatchResponse{Source: string(source), Total: len(writes)}
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		for _, w := range writes {
			res, err := txRepo.Slot.Write(ctx, w)
			var rejected *pkgerrors.PolicyRejectedError
			switch {
			case errors.As(err, &rejected):
				resp.Rejected++
				resp.Rejections = append(resp.Rejections, dto.SlotRejection{
					SlotKey:         rejected.SlotKey,
					CurrentSource:   rejected.CurrentSource,
					AttemptedSource: rejected.AttemptedSource,
					Rule:            rejected.Rule,
				})
			case err != nil:
				return err
			case res.Changed:
				resp.Written++
			default:
				resp.Unchanged++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("批量导入时段失败", zap.String("source", string(source)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("批量导入时段完成",
		zap.String("source", string(source)),
		zap.String("actor", actor),
		zap.Int("written", resp.Written),
		zap.Int("unchanged", resp.Unchanged),
		zap.Int("rejected", resp.Rejected),
	)
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// OverrideSlot：人工覆盖
// ════════════════════════════════════════════════════════════

func (s *slotService) OverrideSlot(ctx context.Context, req *dto.OverrideSlotRequest, actor string) (*dto.SlotResponse, error) {
	if actor == "" {
		return nil, ErrActorRequired
	}
	key, err := parseSlotKey(req.FacultyID, req.Date, req.HalfDay)
	if err != nil {
		return nil, err
	}

	at := stamp(s.clock)
	reason := req.Reason
	by := actor
	w := repository.SlotWrite{
		Key: key,
		Value: model.SlotValue{
			Exists:         true,
			Activity:       req.Activity,
			Source:         model.SourceManual,
			OverrideReason: &reason,
			OverrideBy:     &by,
			OverrideAt:     &at,
		},
		Authority:      model.SourceManual,
		ManualOverride: true,
		Actor:          actor,
	}

	var slot *model.AssignmentSlot
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if _, err := txRepo.Slot.Write(ctx, w); err != nil {
			return err
		}
		got, err := txRepo.Slot.Get(ctx, key)
		slot = got
		return err
	})
	if err != nil {
		var rejected *pkgerrors.PolicyRejectedError
		if !errors.As(err, &rejected) {
			s.logger.Error("人工覆盖时段失败", zap.String("slot", key.String()), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("人工覆盖时段", zap.String("slot", key.String()), zap.String("actor", actor))
	resp := toSlotResponse(slot)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// ListSlots
// ════════════════════════════════════════════════════════════

func (s *slotService) ListSlots(ctx context.Context, req *dto.SlotListRequest) ([]dto.SlotResponse, int64, error) {
	filter := repository.SlotFilter{
		FacultyID: req.FacultyID,
		Source:    model.AssignmentSource(req.Source),
		Activity:  req.Activity,
	}
	if req.From != "" {
		d, err := model.ParseDate(req.From)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: from", ErrInvalidSlotInput)
		}
		filter.From = d
	}
	if req.To != "" {
		d, err := model.ParseDate(req.To)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: to", ErrInvalidSlotInput)
		}
		filter.To = d
	}

	slots, total, err := s.repo.Slot.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询时段失败", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, toSlotResponse(&slots[i]))
	}
	return out, total, nil
}
