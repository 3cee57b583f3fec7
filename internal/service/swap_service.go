package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// ── 换班模块业务错误 ──

var (
	ErrInvalidSwapRequest   = errors.New("换班申请参数不合法")
	ErrValidatorChainSealed = errors.New("校验链已开始使用，不能再注册校验器")
)

// SwapEngine 换班生命周期管理
type SwapEngine interface {
	// CreateSwapRequest 创建换班申请（PENDING）
	CreateSwapRequest(ctx context.Context, req *dto.CreateSwapRequest, requestedBy string) (*dto.SwapResponse, error)
	// ValidateSwap 执行校验链，只读
	ValidateSwap(ctx context.Context, swapID string) (*dto.ValidationResult, error)
	// CreateExecutionPlan 预览执行计划，只读
	CreateExecutionPlan(ctx context.Context, swapID, actor string) (*dto.ExecutionPlanResponse, error)
	// ExecuteSwap 执行换班；业务失败时同时返回结构化结果与类型化错误
	ExecuteSwap(ctx context.Context, swapID, executedBy string, dryRun bool) (*dto.SwapOutcome, error)
	// RollbackSwap 在回滚窗口内按逆序恢复
	RollbackSwap(ctx context.Context, swapID, reason, rolledBackBy string) (*dto.SwapOutcome, error)
	// RespondToApproval 审批人作答；拒绝即驳回申请
	RespondToApproval(ctx context.Context, swapID, facultyID, role string, approve bool, notes string) (*dto.SwapResponse, error)
	GetSwap(ctx context.Context, swapID string) (*dto.SwapResponse, error)
	ListSwaps(ctx context.Context, req *dto.SwapListRequest) ([]dto.SwapResponse, int64, error)
	// RegisterValidator 追加校验器；首次校验后返回 ErrValidatorChainSealed
	RegisterValidator(v Validator) error
}

type swapEngine struct {
	cfg       *config.SwapConfig
	repo      *repository.Repository
	planner   *ExecutionPlanner
	publisher EventPublisher
	clock     Clock
	logger    *zap.Logger

	mu         sync.Mutex
	validators []Validator
	sealed     bool
}

// NewSwapEngine 创建 SwapEngine 实例，内置校验器在此注册
func NewSwapEngine(
	cfg *config.SwapConfig,
	repo *repository.Repository,
	publisher EventPublisher,
	clock Clock,
	logger *zap.Logger,
) SwapEngine {
	if clock == nil {
		clock = SystemClock
	}
	planner := NewExecutionPlanner(cfg.CommitmentActivities)
	return &swapEngine{
		cfg:        cfg,
		repo:       repo,
		planner:    planner,
		publisher:  publisher,
		clock:      clock,
		logger:     logger,
		validators: builtinValidators(repo, planner, clock),
	}
}

func (e *swapEngine) RegisterValidator(v Validator) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sealed {
		return ErrValidatorChainSealed
	}
	e.validators = append(e.validators, v)
	return nil
}

// chain 取校验链并封存
func (e *swapEngine) chain() []Validator {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sealed = true
	return e.validators
}

func (e *swapEngine) loadSwap(ctx context.Context, swapID string) (*model.SwapRecord, error) {
	rec, err := e.repo.Swap.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &pkgerrors.NotFoundError{Entity: "swap", ID: swapID}
		}
		e.logger.Error("查询换班申请失败", zap.String("swap_id", swapID), zap.Error(err))
		return nil, err
	}
	return rec, nil
}

func (e *swapEngine) swapEvent(typ string, rec *model.SwapRecord, actor string) Event {
	return Event{
		Type:       typ,
		EntityID:   rec.SwapID,
		FacultyIDs: rec.Parties(),
		Actor:      actor,
		OccurredAt: e.clock().UTC(),
		Attributes: map[string]string{
			"swap_type":   string(rec.SwapType),
			"source_week": model.FormatDate(rec.SourceWeek),
			"status":      string(rec.Status),
		},
	}
}

// ════════════════════════════════════════════════════════════
// CreateSwapRequest
// ════════════════════════════════════════════════════════════

func (e *swapEngine) CreateSwapRequest(ctx context.Context, req *dto.CreateSwapRequest, requestedBy string) (*dto.SwapResponse, error) {
	if requestedBy == "" {
		return nil, ErrActorRequired
	}

	// 1. 参数校验
	swapType := model.SwapType(req.SwapType)
	if !swapType.Valid() {
		return nil, fmt.Errorf("%w: 换班类型 %q", ErrInvalidSwapRequest, req.SwapType)
	}
	if req.SourceFacultyID == "" || req.TargetFacultyID == "" {
		return nil, fmt.Errorf("%w: 教员为空", ErrInvalidSwapRequest)
	}
	if req.SourceFacultyID == req.TargetFacultyID {
		return nil, fmt.Errorf("%w: 源教员与目标教员相同", ErrInvalidSwapRequest)
	}
	sourceWeek, err := model.ParseDate(req.SourceWeek)
	if err != nil {
		return nil, fmt.Errorf("%w: 源周 %q", ErrInvalidSwapRequest, req.SourceWeek)
	}
	rec := &model.SwapRecord{
		SourceFacultyID:      req.SourceFacultyID,
		SourceWeek:           model.WeekStart(sourceWeek),
		TargetFacultyID:      req.TargetFacultyID,
		SwapType:             swapType,
		Status:               model.SwapPending,
		Reason:               req.Reason,
		RequestedBy:          requestedBy,
		RequestedAt:          stamp(e.clock),
		CriticalAlertsWaived: req.WaiveCriticalAlerts,
	}
	// absorb 只涉及源周，忽略目标周
	if swapType == model.SwapOneToOne {
		if req.TargetWeek == nil || *req.TargetWeek == "" {
			return nil, fmt.Errorf("%w: one_to_one 必须指定目标周", ErrInvalidSwapRequest)
		}
		tw, err := model.ParseDate(*req.TargetWeek)
		if err != nil {
			return nil, fmt.Errorf("%w: 目标周 %q", ErrInvalidSwapRequest, *req.TargetWeek)
		}
		tw = model.WeekStart(tw)
		rec.TargetWeek = &tw
	}
	rec.CreatedBy = &requestedBy

	// 2. 双方教员必须存在且在岗
	for _, id := range rec.Parties() {
		f, err := e.repo.Faculty.GetByID(ctx, id)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			e.logger.Error("查询教员失败", zap.String("faculty_id", id), zap.Error(err))
			return nil, err
		}
		if f == nil || !f.IsActive {
			return nil, &pkgerrors.NotFoundError{Entity: "faculty", ID: id}
		}
	}

	// 3. 事务内创建申请与审批
	err = e.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Swap.Create(ctx, rec); err != nil {
			return err
		}
		if !e.cfg.RequireTargetApproval {
			return nil
		}
		approval := &model.SwapApproval{
			SwapID:    rec.SwapID,
			FacultyID: rec.TargetFacultyID,
			Role:      model.ApprovalRoleTargetFaculty,
			Status:    model.ApprovalPending,
		}
		approval.CreatedBy = &requestedBy
		if err := txRepo.Approval.Create(ctx, approval); err != nil {
			return err
		}
		rec.Approvals = []model.SwapApproval{*approval}
		return nil
	})
	if err != nil {
		e.logger.Error("创建换班申请失败", zap.Error(err))
		return nil, err
	}

	e.logger.Info("创建换班申请",
		zap.String("swap_id", rec.SwapID),
		zap.String("swap_type", string(rec.SwapType)),
		zap.String("requested_by", requestedBy),
	)
	publishEvent(ctx, e.publisher, e.logger, ChannelSwaps, e.swapEvent("swap.created", rec, requestedBy))
	return toSwapResponse(rec), nil
}

// ════════════════════════════════════════════════════════════
// ValidateSwap
// ════════════════════════════════════════════════════════════

func (e *swapEngine) ValidateSwap(ctx context.Context, swapID string) (*dto.ValidationResult, error) {
	rec, err := e.loadSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	return e.validate(ctx, rec)
}

// validate 依次执行全部校验器，收集所有失败项
func (e *swapEngine) validate(ctx context.Context, rec *model.SwapRecord) (*dto.ValidationResult, error) {
	result := &dto.ValidationResult{SwapID: rec.SwapID, Valid: true}
	for _, v := range e.chain() {
		outcome, err := v.Check(ctx, rec)
		if err != nil {
			e.logger.Error("校验器执行失败", zap.String("validator", v.Name()), zap.String("swap_id", rec.SwapID), zap.Error(err))
			return nil, fmt.Errorf("校验器 %s: %w", v.Name(), err)
		}
		if !outcome.Passed {
			result.Valid = false
			result.Failures = append(result.Failures, dto.ValidatorFailure{Validator: v.Name(), Message: outcome.Message})
		}
	}
	return result, nil
}

func validationError(result *dto.ValidationResult) *pkgerrors.ValidationFailedError {
	verr := &pkgerrors.ValidationFailedError{}
	for i, f := range result.Failures {
		if i == 0 {
			verr.Validator, verr.Message = f.Validator, f.Message
		}
		verr.Failures = append(verr.Failures, fmt.Sprintf("%s: %s", f.Validator, f.Message))
	}
	return verr
}

// ════════════════════════════════════════════════════════════
// CreateExecutionPlan
// ════════════════════════════════════════════════════════════

func (e *swapEngine) CreateExecutionPlan(ctx context.Context, swapID, actor string) (*dto.ExecutionPlanResponse, error) {
	rec, err := e.loadSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if actor == "" {
		actor = rec.RequestedBy
	}
	steps, err := e.planner.Plan(ctx, e.repo.Slot, rec, actor, stamp(e.clock))
	if err != nil {
		e.logger.Error("生成执行计划失败", zap.String("swap_id", swapID), zap.Error(err))
		return nil, err
	}
	return &dto.ExecutionPlanResponse{
		SwapID:            rec.SwapID,
		AffectedSlotCount: len(steps),
		Steps:             toMutationResponses(steps),
	}, nil
}

// ════════════════════════════════════════════════════════════
// ExecuteSwap
// ════════════════════════════════════════════════════════════

func failedOutcome(swapID string, status model.SwapStatus, err error) *dto.SwapOutcome {
	return &dto.SwapOutcome{
		SwapID:    swapID,
		Success:   false,
		ErrorCode: pkgerrors.CodeOf(err),
		Message:   err.Error(),
		Status:    string(status),
	}
}

// alreadyProcessedOr 重新读取状态：已不是 PENDING 时说明被并发执行者抢先处理
func (e *swapEngine) alreadyProcessedOr(ctx context.Context, swapID string, fallback error) error {
	latest, err := e.repo.Swap.GetByID(ctx, swapID)
	if err == nil && latest.Status != model.SwapPending {
		return &pkgerrors.AlreadyProcessedError{SwapID: swapID, Status: string(latest.Status)}
	}
	return fallback
}

func (e *swapEngine) ExecuteSwap(ctx context.Context, swapID, executedBy string, dryRun bool) (*dto.SwapOutcome, error) {
	if executedBy == "" {
		return nil, ErrActorRequired
	}

	// 1. 读取申请，必须为 PENDING
	rec, err := e.loadSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.SwapPending {
		perr := &pkgerrors.AlreadyProcessedError{SwapID: swapID, Status: string(rec.Status)}
		return failedOutcome(swapID, rec.Status, perr), perr
	}

	// 2. 重新校验
	result, err := e.validate(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		verr := e.alreadyProcessedOr(ctx, swapID, validationError(result))
		e.logger.Info("换班校验未通过", zap.String("swap_id", swapID), zap.Error(verr))
		return failedOutcome(swapID, rec.Status, verr), verr
	}

	// 3. 生成计划
	at := stamp(e.clock)
	steps, err := e.planner.Plan(ctx, e.repo.Slot, rec, executedBy, at)
	if err != nil {
		e.logger.Error("生成执行计划失败", zap.String("swap_id", swapID), zap.Error(err))
		return nil, err
	}
	if len(steps) == 0 {
		verr := e.alreadyProcessedOr(ctx, swapID, &pkgerrors.ValidationFailedError{
			Validator: "has_commitment_slots",
			Message:   "执行计划为空",
		})
		return failedOutcome(swapID, rec.Status, verr), verr
	}

	if dryRun {
		return &dto.SwapOutcome{
			SwapID:            swapID,
			Success:           true,
			Message:           "dry run：未写入任何时段",
			AffectedSlotCount: len(steps),
			Status:            string(rec.Status),
			DryRun:            true,
			Steps:             toMutationResponses(steps),
		}, nil
	}

	// 4. 单事务：锁定申请 → 逐步写入 → CAS 状态
	var (
		executed   *model.SwapRecord
		rejectedAt *model.SlotMutation
	)
	err = e.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Swap.GetForUpdate(ctx, swapID)
		if err != nil {
			return err
		}
		if locked.Status != model.SwapPending {
			return &pkgerrors.AlreadyProcessedError{SwapID: swapID, Status: string(locked.Status)}
		}

		for i := range steps {
			st := steps[i]
			_, err := txRepo.Slot.Write(ctx, repository.SlotWrite{
				Key:       st.Key,
				Value:     st.After,
				Authority: model.SourceManual,
				Expect:    &st.Before,
				Actor:     executedBy,
			})
			var drift *pkgerrors.SlotDriftError
			var rejected *pkgerrors.PolicyRejectedError
			switch {
			case errors.As(err, &drift):
				return &pkgerrors.StalePlanError{SwapID: swapID, SlotKey: st.Key.String()}
			case errors.As(err, &rejected):
				rejectedAt = &st
				return err
			case err != nil:
				return err
			}
		}

		if err := locked.MarkExecuted(executedBy, at, e.cfg.RollbackWindow, steps); err != nil {
			return err
		}
		if err := txRepo.Swap.UpdateStatus(ctx, locked, model.SwapPending); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return &pkgerrors.AlreadyProcessedError{SwapID: swapID, Status: "unknown"}
			}
			return err
		}
		executed = locked
		return nil
	})

	if err != nil {
		var rejected *pkgerrors.PolicyRejectedError
		var processed *pkgerrors.AlreadyProcessedError
		var stale *pkgerrors.StalePlanError
		switch {
		case errors.As(err, &rejected):
			// 事务已回滚，没有任何时段被修改；申请转为 FAILED
			reason := fmt.Sprintf("step %d %s: %s", rejectedAt.Seq, rejectedAt.Key.String(), rejected.Error())
			status := e.markFailed(ctx, swapID, executedBy, reason)
			e.logger.Warn("换班执行被来源策略拒绝", zap.String("swap_id", swapID), zap.String("reason", reason))
			return failedOutcome(swapID, status, err), err
		case errors.As(err, &processed):
			return failedOutcome(swapID, model.SwapStatus(processed.Status), err), err
		case errors.As(err, &stale):
			e.logger.Warn("换班执行计划已过期", zap.String("swap_id", swapID), zap.String("slot", stale.SlotKey))
			return failedOutcome(swapID, model.SwapPending, err), err
		default:
			e.logger.Error("执行换班失败", zap.String("swap_id", swapID), zap.Error(err))
			return nil, err
		}
	}

	e.logger.Info("换班已执行",
		zap.String("swap_id", swapID),
		zap.String("executed_by", executedBy),
		zap.Int("steps", len(steps)),
	)
	publishEvent(ctx, e.publisher, e.logger, ChannelSwaps, e.swapEvent("swap.executed", executed, executedBy))
	return &dto.SwapOutcome{
		SwapID:            swapID,
		Success:           true,
		Message:           fmt.Sprintf("换班已执行，修改 %d 个时段", len(steps)),
		AffectedSlotCount: len(steps),
		Status:            string(executed.Status),
		Steps:             toMutationResponses(steps),
	}, nil
}

// markFailed 独立事务将申请置为 FAILED，返回最终状态
func (e *swapEngine) markFailed(ctx context.Context, swapID, by, reason string) model.SwapStatus {
	status := model.SwapPending
	err := e.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Swap.GetForUpdate(ctx, swapID)
		if err != nil {
			return err
		}
		if err := locked.MarkFailed(by, reason); err != nil {
			status = locked.Status
			return err
		}
		if err := txRepo.Swap.UpdateStatus(ctx, locked, model.SwapPending); err != nil {
			return err
		}
		status = locked.Status
		return nil
	})
	if err != nil {
		e.logger.Error("记录换班失败状态失败", zap.String("swap_id", swapID), zap.Error(err))
		return status
	}
	publishEvent(ctx, e.publisher, e.logger, ChannelSwaps, Event{
		Type:       "swap.failed",
		EntityID:   swapID,
		Actor:      by,
		OccurredAt: e.clock().UTC(),
		Attributes: map[string]string{"reason": reason},
	})
	return status
}

// ════════════════════════════════════════════════════════════
// RollbackSwap
// ════════════════════════════════════════════════════════════

func (e *swapEngine) RollbackSwap(ctx context.Context, swapID, reason, rolledBackBy string) (*dto.SwapOutcome, error) {
	if rolledBackBy == "" {
		return nil, ErrActorRequired
	}

	rec, err := e.loadSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.SwapExecuted {
		serr := &pkgerrors.InvalidStatusError{Entity: "swap", ID: swapID, Status: string(rec.Status), Operation: "rollback"}
		return failedOutcome(swapID, rec.Status, serr), serr
	}

	now := stamp(e.clock)
	if rec.RollbackDeadline != nil && now.After(*rec.RollbackDeadline) {
		xerr := &pkgerrors.RollbackExpiredError{SwapID: swapID, Deadline: *rec.RollbackDeadline}
		return failedOutcome(swapID, rec.Status, xerr), xerr
	}

	var (
		rolled *model.SwapRecord
		count  int
	)
	err = e.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Swap.GetForUpdate(ctx, swapID)
		if err != nil {
			return err
		}
		if locked.Status != model.SwapExecuted {
			return &pkgerrors.AlreadyProcessedError{SwapID: swapID, Status: string(locked.Status)}
		}

		// 逆序回放逆向步骤：每步要求当前值仍等于执行时写入的 after。
		// 执行时新建的时段在这里被删除，这是时段表唯一的删除路径
		steps := locked.MutationSteps()
		for i := len(steps) - 1; i >= 0; i-- {
			st := steps[i].Inverse()
			_, err := txRepo.Slot.Write(ctx, repository.SlotWrite{
				Key:       st.Key,
				Value:     st.After,
				Authority: model.SourceManual,
				Expect:    &st.Before,
				Actor:     rolledBackBy,
			})
			var drift *pkgerrors.SlotDriftError
			var rejected *pkgerrors.PolicyRejectedError
			switch {
			case errors.As(err, &drift):
				return &pkgerrors.RollbackConflictError{SwapID: swapID, SlotKey: st.Key.String(), Detail: drift.Detail}
			case errors.As(err, &rejected):
				return &pkgerrors.RollbackConflictError{SwapID: swapID, SlotKey: st.Key.String(), Detail: rejected.Error()}
			case err != nil:
				return err
			}
		}
		count = len(steps)

		if err := locked.MarkRolledBack(rolledBackBy, now, reason); err != nil {
			return err
		}
		if err := txRepo.Swap.UpdateStatus(ctx, locked, model.SwapExecuted); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return &pkgerrors.AlreadyProcessedError{SwapID: swapID, Status: "unknown"}
			}
			return err
		}
		rolled = locked
		return nil
	})

	if err != nil {
		var conflict *pkgerrors.RollbackConflictError
		var processed *pkgerrors.AlreadyProcessedError
		switch {
		case errors.As(err, &conflict):
			e.logger.Warn("换班回滚冲突", zap.String("swap_id", swapID), zap.String("slot", conflict.SlotKey))
			return failedOutcome(swapID, model.SwapExecuted, err), err
		case errors.As(err, &processed):
			return failedOutcome(swapID, model.SwapStatus(processed.Status), err), err
		default:
			e.logger.Error("回滚换班失败", zap.String("swap_id", swapID), zap.Error(err))
			return nil, err
		}
	}

	e.logger.Info("换班已回滚",
		zap.String("swap_id", swapID),
		zap.String("rolled_back_by", rolledBackBy),
		zap.Int("steps", count),
	)
	publishEvent(ctx, e.publisher, e.logger, ChannelSwaps, e.swapEvent("swap.rolled_back", rolled, rolledBackBy))
	return &dto.SwapOutcome{
		SwapID:            swapID,
		Success:           true,
		Message:           fmt.Sprintf("换班已回滚，恢复 %d 个时段", count),
		AffectedSlotCount: count,
		Status:            string(rolled.Status),
	}, nil
}

// ════════════════════════════════════════════════════════════
// RespondToApproval
// ════════════════════════════════════════════════════════════

func (e *swapEngine) RespondToApproval(ctx context.Context, swapID, facultyID, role string, approve bool, notes string) (*dto.SwapResponse, error) {
	if facultyID == "" {
		return nil, ErrActorRequired
	}
	approvalRole := model.ApprovalRoleTargetFaculty
	if role != "" {
		approvalRole = model.ApprovalRole(role)
	}
	at := stamp(e.clock)

	var rec *model.SwapRecord
	err := e.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Swap.GetForUpdate(ctx, swapID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &pkgerrors.NotFoundError{Entity: "swap", ID: swapID}
			}
			return err
		}
		if locked.Status != model.SwapPending {
			return &pkgerrors.InvalidStatusError{Entity: "swap", ID: swapID, Status: string(locked.Status), Operation: "respond"}
		}

		// 只有被指定的审批人才能找到对应的审批记录
		approval, err := txRepo.Approval.Get(ctx, swapID, facultyID, approvalRole)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &pkgerrors.NotFoundError{Entity: "swap_approval", ID: fmt.Sprintf("%s/%s/%s", swapID, facultyID, approvalRole)}
			}
			return err
		}
		if err := approval.Respond(approve, at, notes); err != nil {
			return err
		}
		if err := txRepo.Approval.Update(ctx, approval); err != nil {
			return err
		}

		if !approve {
			if err := locked.MarkRejected(facultyID, at, notes); err != nil {
				return err
			}
		} else {
			approvals, err := txRepo.Approval.ListBySwap(ctx, swapID)
			if err != nil {
				return err
			}
			allApproved := true
			for _, a := range approvals {
				if a.Status != model.ApprovalApproved {
					allApproved = false
					break
				}
			}
			if !allApproved {
				locked.Approvals = approvals
				rec = locked
				return nil
			}
			if err := locked.MarkApproved(facultyID, at); err != nil {
				return err
			}
			locked.Approvals = approvals
		}
		if err := txRepo.Swap.UpdateStatus(ctx, locked, model.SwapPending); err != nil {
			return err
		}
		rec = locked
		return nil
	})
	if err != nil {
		var nf *pkgerrors.NotFoundError
		var is *pkgerrors.InvalidStatusError
		if !errors.As(err, &nf) && !errors.As(err, &is) {
			e.logger.Error("审批作答失败", zap.String("swap_id", swapID), zap.Error(err))
		}
		return nil, err
	}

	evt := "swap.approval_granted"
	if !approve {
		evt = "swap.rejected"
	}
	e.logger.Info("换班审批作答",
		zap.String("swap_id", swapID),
		zap.String("faculty_id", facultyID),
		zap.Bool("approve", approve),
	)
	publishEvent(ctx, e.publisher, e.logger, ChannelSwaps, e.swapEvent(evt, rec, facultyID))

	full, err := e.loadSwap(ctx, swapID)
	if err != nil {
		return toSwapResponse(rec), nil
	}
	return toSwapResponse(full), nil
}

// ════════════════════════════════════════════════════════════
// GetSwap / ListSwaps
// ════════════════════════════════════════════════════════════

func (e *swapEngine) GetSwap(ctx context.Context, swapID string) (*dto.SwapResponse, error) {
	rec, err := e.loadSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	return toSwapResponse(rec), nil
}

func (e *swapEngine) ListSwaps(ctx context.Context, req *dto.SwapListRequest) ([]dto.SwapResponse, int64, error) {
	filter := repository.SwapFilter{
		FacultyID: req.FacultyID,
		Status:    model.SwapStatus(req.Status),
	}
	records, total, err := e.repo.Swap.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		e.logger.Error("查询换班列表失败", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.SwapResponse, 0, len(records))
	for i := range records {
		out = append(out, *toSwapResponse(&records[i]))
	}
	return out, total, nil
}
