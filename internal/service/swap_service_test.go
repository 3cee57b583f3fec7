package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/testutil"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// ── CreateSwapRequest ──

func TestSwapEngine_CreateSwapRequest_Validation(t *testing.T) {
	env := newTestEnv(t)
	inactive := testutil.SeedFaculty(t, env.db, "Carol", false)

	tests := []struct {
		name    string
		req     dto.CreateSwapRequest
		wantErr func(error) bool
	}{
		{
			name: "one_to_one 缺少目标周",
			req: dto.CreateSwapRequest{
				SourceFacultyID: env.a.FacultyID, SourceWeek: "2026-11-02",
				TargetFacultyID: env.b.FacultyID, SwapType: "one_to_one",
			},
			wantErr: func(err error) bool { return errors.Is(err, ErrInvalidSwapRequest) },
		},
		{
			name: "同一教员",
			req: dto.CreateSwapRequest{
				SourceFacultyID: env.a.FacultyID, SourceWeek: "2026-11-02",
				TargetFacultyID: env.a.FacultyID, SwapType: "absorb",
			},
			wantErr: func(err error) bool { return errors.Is(err, ErrInvalidSwapRequest) },
		},
		{
			name: "未知类型",
			req: dto.CreateSwapRequest{
				SourceFacultyID: env.a.FacultyID, SourceWeek: "2026-11-02",
				TargetFacultyID: env.b.FacultyID, SwapType: "trade",
			},
			wantErr: func(err error) bool { return errors.Is(err, ErrInvalidSwapRequest) },
		},
		{
			name: "目标教员已停用",
			req: dto.CreateSwapRequest{
				SourceFacultyID: env.a.FacultyID, SourceWeek: "2026-11-02",
				TargetFacultyID: inactive.FacultyID, SwapType: "absorb",
			},
			wantErr: func(err error) bool {
				var nf *pkgerrors.NotFoundError
				return errors.As(err, &nf) && nf.ID == inactive.FacultyID
			},
		},
		{
			name: "源教员不存在",
			req: dto.CreateSwapRequest{
				SourceFacultyID: "00000000-0000-0000-0000-000000000000", SourceWeek: "2026-11-02",
				TargetFacultyID: env.b.FacultyID, SwapType: "absorb",
			},
			wantErr: func(err error) bool {
				var nf *pkgerrors.NotFoundError
				return errors.As(err, &nf)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Swap.CreateSwapRequest(testCtx(), &tt.req, "coordinator-1")
			if err == nil || !tt.wantErr(err) {
				t.Errorf("错误不符合预期: %v", err)
			}
		})
	}

	if _, err := env.svc.Swap.CreateSwapRequest(testCtx(), &tests[0].req, ""); !errors.Is(err, ErrActorRequired) {
		t.Errorf("期望 ErrActorRequired，实际: %v", err)
	}
}

func TestSwapEngine_CreateSwapRequest_NormalizesWeek(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.svc.Swap.CreateSwapRequest(testCtx(), &dto.CreateSwapRequest{
		SourceFacultyID: env.a.FacultyID,
		SourceWeek:      "2026-11-05", // 周四
		TargetFacultyID: env.b.FacultyID,
		TargetWeek:      testutil.Ptr("2026-11-12"),
		SwapType:        "absorb",
	}, "coordinator-1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if resp.SourceWeek != "2026-11-02" {
		t.Errorf("源周应归一到周一，实际 %s", resp.SourceWeek)
	}
	if resp.TargetWeek != nil {
		t.Errorf("absorb 不应保存目标周，实际 %s", *resp.TargetWeek)
	}
	if resp.Status != string(model.SwapPending) || resp.Version != 1 {
		t.Errorf("新申请应为 pending/v1，实际 %s/v%d", resp.Status, resp.Version)
	}
	if got := env.events.types(); len(got) != 1 || got[0] != "swap.created" {
		t.Errorf("期望发布 swap.created，实际 %v", got)
	}
}

// ── ExecuteSwap ──

func TestSwapEngine_ExecuteSwap_OneToOne(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	testutil.SeedWeek(t, env.db, env.b.FacultyID, testSourceWeek, "CLINIC", model.SourceSolver)
	testutil.SeedWeek(t, env.db, env.b.FacultyID, testTargetWeek, "FMIT", model.SourceSolver)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testTargetWeek, "CLINIC", model.SourceSolver)
	swap := env.createSwap(t, model.SwapOneToOne)

	outcome, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false)
	if err != nil {
		t.Fatalf("执行失败: %v", err)
	}
	if !outcome.Success || outcome.AffectedSlotCount != 40 || outcome.Status != string(model.SwapExecuted) {
		t.Fatalf("结果不符合预期: %+v", outcome)
	}

	// 源周：A 接手 B 的门诊，B 接手 A 的 FMIT
	monday := testSourceWeek
	if got := env.slot(t, env.a.FacultyID, monday, model.HalfDayAM); got.ActivityOrEmpty() != "CLINIC" || got.Source != model.SourceManual {
		t.Errorf("A 源周时段错误: %s", got)
	}
	if got := env.slot(t, env.b.FacultyID, monday, model.HalfDayPM); got.ActivityOrEmpty() != "FMIT" {
		t.Errorf("B 源周时段错误: %s", got)
	}
	// 目标周反向
	if got := env.slot(t, env.a.FacultyID, testTargetWeek.AddDate(0, 0, 4), model.HalfDayPM); got.ActivityOrEmpty() != "FMIT" {
		t.Errorf("A 目标周时段错误: %s", got)
	}
	got := env.slot(t, env.b.FacultyID, testTargetWeek, model.HalfDayAM)
	if got.ActivityOrEmpty() != "CLINIC" || got.OverrideBy == nil || *got.OverrideBy != "coordinator-1" {
		t.Errorf("B 目标周时段错误: %s", got)
	}
	if got.OverrideReason == nil || !strings.HasPrefix(*got.OverrideReason, "swap "+swap.ID) {
		t.Errorf("覆盖原因应记录换班 ID，实际 %v", got.OverrideReason)
	}

	rec, err := env.svc.Swap.GetSwap(testCtx(), swap.ID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if rec.ExecutedBy == nil || *rec.ExecutedBy != "coordinator-1" || len(rec.Steps) != 40 {
		t.Errorf("审计记录不完整: %+v", rec)
	}
	if rec.RollbackDeadline == nil || *rec.RollbackDeadline != formatTime(testNow.Add(24*time.Hour)) {
		t.Errorf("回滚期限错误: %v", rec.RollbackDeadline)
	}
}

func TestSwapEngine_ExecuteSwap_DryRun(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	swap := env.createSwap(t, model.SwapAbsorb)
	before := testutil.SnapshotSlots(t, env.db)

	outcome, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", true)
	if err != nil {
		t.Fatalf("dry run 失败: %v", err)
	}
	if !outcome.DryRun || outcome.AffectedSlotCount != 20 || outcome.Status != string(model.SwapPending) {
		t.Errorf("dry run 结果错误: %+v", outcome)
	}
	assertSnapshotEqual(t, before, testutil.SnapshotSlots(t, env.db))

	plan, err := env.svc.Swap.CreateExecutionPlan(testCtx(), swap.ID, "")
	if err != nil {
		t.Fatalf("生成计划失败: %v", err)
	}
	if plan.AffectedSlotCount != 20 {
		t.Errorf("计划步骤数错误: %d", plan.AffectedSlotCount)
	}
	for i, st := range plan.Steps {
		if st.Seq != i+1 {
			t.Fatalf("步骤序号应连续，第 %d 步为 %d", i, st.Seq)
		}
	}
}

func TestSwapEngine_ExecuteSwap_RacingExecutors(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	swap := env.createSwap(t, model.SwapAbsorb)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		processed int
		others    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := env.svc.Swap.ExecuteSwap(context.Background(), swap.ID, "coordinator-1", false)
			mu.Lock()
			defer mu.Unlock()
			var ap *pkgerrors.AlreadyProcessedError
			switch {
			case err == nil && outcome.Success:
				successes++
			case errors.As(err, &ap):
				processed++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || processed != n-1 {
		t.Fatalf("期望 1 次成功 %d 次 ALREADY_PROCESSED，实际 %d / %d，其他错误 %v", n-1, successes, processed, others)
	}
	// 时段只被写入一次
	if got := env.slot(t, env.b.FacultyID, testSourceWeek, model.HalfDayAM); got.ActivityOrEmpty() != "FMIT" {
		t.Errorf("B 应接手 FMIT，实际 %s", got)
	}
	var slot model.AssignmentSlot
	if err := env.db.Where("faculty_id = ?", env.b.FacultyID).First(&slot).Error; err != nil {
		t.Fatalf("读取时段失败: %v", err)
	}
	if slot.Version != 1 {
		t.Errorf("时段不应被重复写入，version=%d", slot.Version)
	}
}

func TestSwapEngine_ExecuteSwap_PolicyRejectionIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	testutil.SeedWeek(t, env.db, env.b.FacultyID, testSourceWeek, "CLINIC", model.SourceSolver)
	testutil.SeedWeek(t, env.db, env.b.FacultyID, testTargetWeek, "FMIT", model.SourceSolver)
	// B 在源周周三上午为预加载时段，换班无权覆盖
	wed := testSourceWeek.AddDate(0, 0, 2)
	if err := env.db.Model(&model.AssignmentSlot{}).
		Where("faculty_id = ? AND date = ? AND half_day = ?", env.b.FacultyID, wed, model.HalfDayAM).
		Update("source", model.SourcePreload).Error; err != nil {
		t.Fatalf("准备数据失败: %v", err)
	}
	swap := env.createSwap(t, model.SwapOneToOne)
	before := testutil.SnapshotSlots(t, env.db)

	outcome, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false)
	var rejected *pkgerrors.PolicyRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("期望 PolicyRejectedError，实际: %v", err)
	}
	if rejected.CurrentSource != string(model.SourcePreload) || rejected.AttemptedSource != string(model.SourceManual) {
		t.Errorf("拒绝详情错误: %+v", rejected)
	}
	if outcome == nil || outcome.Success || outcome.ErrorCode != pkgerrors.CodePolicyRejected || outcome.Status != string(model.SwapFailed) {
		t.Errorf("结果错误: %+v", outcome)
	}

	// 零步骤生效
	assertSnapshotEqual(t, before, testutil.SnapshotSlots(t, env.db))

	rec, _ := env.svc.Swap.GetSwap(testCtx(), swap.ID)
	if rec.Status != string(model.SwapFailed) || rec.FailureReason == nil || !strings.Contains(*rec.FailureReason, "step") {
		t.Errorf("申请应为 failed 并记录拒绝步骤: %+v", rec)
	}
	if len(rec.Steps) != 0 {
		t.Errorf("失败申请不应保存步骤，实际 %d", len(rec.Steps))
	}
}

func TestSwapEngine_ExecuteSwap_NotPending(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	swap := env.createSwap(t, model.SwapAbsorb)
	if _, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false); err != nil {
		t.Fatalf("首次执行失败: %v", err)
	}

	outcome, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false)
	var ap *pkgerrors.AlreadyProcessedError
	if !errors.As(err, &ap) || outcome.ErrorCode != pkgerrors.CodeAlreadyProcessed {
		t.Errorf("期望 ALREADY_PROCESSED，实际 %v / %+v", err, outcome)
	}

	var nf *pkgerrors.NotFoundError
	if _, err := env.svc.Swap.ExecuteSwap(testCtx(), "00000000-0000-0000-0000-000000000000", "x", false); !errors.As(err, &nf) {
		t.Errorf("期望 NotFoundError，实际 %v", err)
	}
}

// ── 校验链 ──

func TestSwapEngine_Validate_DeploymentAbsence(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	// deployment 未标记 is_blocking 仍视为阻断
	if err := env.repo.Absence.Create(testCtx(), &model.Absence{
		FacultyID:   env.b.FacultyID,
		StartDate:   testSourceWeek.AddDate(0, 0, -3),
		EndDate:     testSourceWeek.AddDate(0, 0, 1),
		AbsenceType: model.AbsenceDeployment,
		Origin:      "manual",
	}); err != nil {
		t.Fatalf("创建缺勤失败: %v", err)
	}
	swap := env.createSwap(t, model.SwapAbsorb)

	result, err := env.svc.Swap.ValidateSwap(testCtx(), swap.ID)
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if result.Valid || len(result.Failures) != 1 || result.Failures[0].Validator != "receiver_not_absent" {
		t.Fatalf("校验结果错误: %+v", result)
	}

	before := testutil.SnapshotSlots(t, env.db)
	outcome, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false)
	var verr *pkgerrors.ValidationFailedError
	if !errors.As(err, &verr) || outcome.ErrorCode != pkgerrors.CodeValidationFailed {
		t.Fatalf("期望 VALIDATION_FAILED，实际 %v / %+v", err, outcome)
	}
	assertSnapshotEqual(t, before, testutil.SnapshotSlots(t, env.db))
	rec, _ := env.svc.Swap.GetSwap(testCtx(), swap.ID)
	if rec.Status != string(model.SwapPending) {
		t.Errorf("校验失败后申请应保持 pending，实际 %s", rec.Status)
	}
}

func TestSwapEngine_Validate_Builtins(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, env *testEnv)
		swapType  model.SwapType
		validator string
	}{
		{
			name:      "源周无值班",
			setup:     func(t *testing.T, env *testEnv) {},
			swapType:  model.SwapAbsorb,
			validator: "has_commitment_slots",
		},
		{
			name: "源周已过去",
			setup: func(t *testing.T, env *testEnv) {
				testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
				env.now = testSourceWeek.AddDate(0, 0, 8)
			},
			swapType:  model.SwapAbsorb,
			validator: "weeks_not_in_past",
		},
		{
			name: "目标周存在人工时段",
			setup: func(t *testing.T, env *testEnv) {
				testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
				testutil.SeedWeek(t, env.db, env.b.FacultyID, testTargetWeek, "FMIT", model.SourceSolver)
				testutil.SeedWeek(t, env.db, env.a.FacultyID, testTargetWeek, "ADMIN", model.SourceManual)
			},
			swapType:  model.SwapOneToOne,
			validator: "target_week_unprotected",
		},
		{
			name: "目标周存在 critical 告警",
			setup: func(t *testing.T, env *testEnv) {
				testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
				testutil.SeedWeek(t, env.db, env.b.FacultyID, testTargetWeek, "FMIT", model.SourceSolver)
				if err := env.repo.ConflictAlert.Create(testCtx(), &model.ConflictAlert{
					FacultyID:    env.b.FacultyID,
					ConflictType: model.ConflictLeaveFMITOverlap,
					Severity:     model.SeverityCritical,
					FmitWeek:     testTargetWeek,
					Status:       model.AlertNew,
				}); err != nil {
					t.Fatalf("创建告警失败: %v", err)
				}
			},
			swapType:  model.SwapOneToOne,
			validator: "no_critical_alerts",
		},
		{
			name: "源教员在目标周缺勤",
			setup: func(t *testing.T, env *testEnv) {
				testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
				testutil.SeedWeek(t, env.db, env.b.FacultyID, testTargetWeek, "FMIT", model.SourceSolver)
				if err := env.repo.Absence.Create(testCtx(), &model.Absence{
					FacultyID:   env.a.FacultyID,
					StartDate:   testTargetWeek.AddDate(0, 0, 2),
					EndDate:     testTargetWeek.AddDate(0, 0, 2),
					AbsenceType: model.AbsenceConference,
					IsBlocking:  true,
				}); err != nil {
					t.Fatalf("创建缺勤失败: %v", err)
				}
			},
			swapType:  model.SwapOneToOne,
			validator: "receiver_not_absent",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			swap := env.createSwap(t, tt.swapType)
			tt.setup(t, env)

			result, err := env.svc.Swap.ValidateSwap(testCtx(), swap.ID)
			if err != nil {
				t.Fatalf("校验失败: %v", err)
			}
			if result.Valid {
				t.Fatalf("期望校验不通过")
			}
			found := false
			for _, f := range result.Failures {
				if f.Validator == tt.validator {
					found = true
				}
			}
			if !found {
				t.Errorf("期望 %s 失败，实际 %+v", tt.validator, result.Failures)
			}
		})
	}
}

func TestSwapEngine_Validate_WaivedCriticalAlert(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	if err := env.repo.ConflictAlert.Create(testCtx(), &model.ConflictAlert{
		FacultyID:    env.a.FacultyID,
		ConflictType: model.ConflictLeaveFMITOverlap,
		Severity:     model.SeverityCritical,
		FmitWeek:     testSourceWeek,
		Status:       model.AlertAcknowledged,
	}); err != nil {
		t.Fatalf("创建告警失败: %v", err)
	}
	swap, err := env.svc.Swap.CreateSwapRequest(testCtx(), &dto.CreateSwapRequest{
		SourceFacultyID:     env.a.FacultyID,
		SourceWeek:          model.FormatDate(testSourceWeek),
		TargetFacultyID:     env.b.FacultyID,
		SwapType:            "absorb",
		WaiveCriticalAlerts: true,
	}, "coordinator-1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	result, err := env.svc.Swap.ValidateSwap(testCtx(), swap.ID)
	if err != nil || !result.Valid {
		t.Errorf("豁免后应通过校验: %v %+v", err, result)
	}
}

type denyAllValidator struct{}

func (denyAllValidator) Name() string { return "deny_all" }

func (denyAllValidator) Check(context.Context, *model.SwapRecord) (ValidationOutcome, error) {
	return ValidationOutcome{Message: "维护窗口内禁止换班"}, nil
}

func TestSwapEngine_RegisterValidator_SealedAfterFirstUse(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	swap := env.createSwap(t, model.SwapAbsorb)

	if err := env.svc.Swap.RegisterValidator(denyAllValidator{}); err != nil {
		t.Fatalf("首次校验前应允许注册: %v", err)
	}
	result, err := env.svc.Swap.ValidateSwap(testCtx(), swap.ID)
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if result.Valid || result.Failures[len(result.Failures)-1].Validator != "deny_all" {
		t.Errorf("自定义校验器应在内置校验器之后执行: %+v", result)
	}
	if err := env.svc.Swap.RegisterValidator(denyAllValidator{}); !errors.Is(err, ErrValidatorChainSealed) {
		t.Errorf("期望 ErrValidatorChainSealed，实际 %v", err)
	}
}

// ── RollbackSwap ──

func TestSwapEngine_RollbackSwap_RestoresExactly(t *testing.T) {
	for _, swapType := range []model.SwapType{model.SwapAbsorb, model.SwapOneToOne} {
		t.Run(string(swapType), func(t *testing.T) {
			env := newTestEnv(t)
			testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
			testutil.SeedWeek(t, env.db, env.b.FacultyID, testTargetWeek, "FMIT", model.SourceTemplate)
			// 带覆盖元数据的 SOLVER 时段也必须逐字段恢复
			if err := env.db.Model(&model.AssignmentSlot{}).
				Where("faculty_id = ? AND date = ?", env.a.FacultyID, testSourceWeek).
				Updates(map[string]interface{}{"override_reason": "legacy", "override_by": "importer"}).Error; err != nil {
				t.Fatalf("准备数据失败: %v", err)
			}
			swap := env.createSwap(t, swapType)
			before := testutil.SnapshotSlots(t, env.db)

			if _, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false); err != nil {
				t.Fatalf("执行失败: %v", err)
			}
			env.now = env.now.Add(2 * time.Hour)
			outcome, err := env.svc.Swap.RollbackSwap(testCtx(), swap.ID, "录入错误", "coordinator-2")
			if err != nil {
				t.Fatalf("回滚失败: %v", err)
			}
			if !outcome.Success || outcome.Status != string(model.SwapRolledBack) {
				t.Errorf("回滚结果错误: %+v", outcome)
			}
			assertSnapshotEqual(t, before, testutil.SnapshotSlots(t, env.db))

			rec, _ := env.svc.Swap.GetSwap(testCtx(), swap.ID)
			if rec.RolledBackBy == nil || *rec.RolledBackBy != "coordinator-2" || rec.RollbackReason == nil {
				t.Errorf("回滚审计信息缺失: %+v", rec)
			}

			// 再次回滚
			_, err = env.svc.Swap.RollbackSwap(testCtx(), swap.ID, "again", "coordinator-2")
			var is *pkgerrors.InvalidStatusError
			if !errors.As(err, &is) {
				t.Errorf("期望 InvalidStatusError，实际 %v", err)
			}
		})
	}
}

func TestSwapEngine_RollbackSwap_Window(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		expired bool
	}{
		{"窗口内", 23*time.Hour + 59*time.Minute, false},
		{"恰好到期", 24 * time.Hour, false},
		{"超出窗口", 24*time.Hour + time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
			swap := env.createSwap(t, model.SwapAbsorb)
			if _, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false); err != nil {
				t.Fatalf("执行失败: %v", err)
			}

			env.now = testNow.Add(tt.elapsed)
			outcome, err := env.svc.Swap.RollbackSwap(testCtx(), swap.ID, "window test", "coordinator-1")
			var expired *pkgerrors.RollbackExpiredError
			if tt.expired {
				if !errors.As(err, &expired) || outcome.ErrorCode != pkgerrors.CodeRollbackExpired {
					t.Errorf("期望 ROLLBACK_EXPIRED，实际 %v", err)
				}
				return
			}
			if err != nil || !outcome.Success {
				t.Errorf("窗口内回滚应成功: %v", err)
			}
		})
	}
}

func TestSwapEngine_RollbackSwap_ConflictAfterIntervention(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	swap := env.createSwap(t, model.SwapAbsorb)
	if _, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false); err != nil {
		t.Fatalf("执行失败: %v", err)
	}

	// 换班后有人再次人工调整了 B 的一个时段
	if _, err := env.svc.Slot.OverrideSlot(testCtx(), &dto.OverrideSlotRequest{
		FacultyID: env.b.FacultyID,
		Date:      model.FormatDate(testSourceWeek.AddDate(0, 0, 1)),
		HalfDay:   "PM",
		Activity:  testutil.Ptr("SICK_CALL"),
		Reason:    "临时调整",
	}, "coordinator-3"); err != nil {
		t.Fatalf("人工覆盖失败: %v", err)
	}
	afterIntervention := testutil.SnapshotSlots(t, env.db)

	outcome, err := env.svc.Swap.RollbackSwap(testCtx(), swap.ID, "undo", "coordinator-1")
	var conflict *pkgerrors.RollbackConflictError
	if !errors.As(err, &conflict) || outcome.ErrorCode != pkgerrors.CodeRollbackConflict {
		t.Fatalf("期望 ROLLBACK_CONFLICT，实际 %v", err)
	}
	assertSnapshotEqual(t, afterIntervention, testutil.SnapshotSlots(t, env.db))
	rec, _ := env.svc.Swap.GetSwap(testCtx(), swap.ID)
	if rec.Status != string(model.SwapExecuted) {
		t.Errorf("回滚冲突后应保持 executed，实际 %s", rec.Status)
	}
}

// ── 审批 ──

func TestSwapEngine_Approvals(t *testing.T) {
	requireApproval := func(cfg *config.Config) { cfg.Swap.RequireTargetApproval = true }

	t.Run("批准后可执行", func(t *testing.T) {
		env := newTestEnv(t, requireApproval)
		testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
		swap := env.createSwap(t, model.SwapAbsorb)
		if len(swap.Approvals) != 1 || swap.Approvals[0].Status != string(model.ApprovalPending) {
			t.Fatalf("应创建待审批记录: %+v", swap.Approvals)
		}

		result, _ := env.svc.Swap.ValidateSwap(testCtx(), swap.ID)
		if result.Valid || result.Failures[0].Validator != "approvals_granted" {
			t.Fatalf("未审批时应校验失败: %+v", result)
		}

		// 非指定审批人
		var nf *pkgerrors.NotFoundError
		if _, err := env.svc.Swap.RespondToApproval(testCtx(), swap.ID, env.a.FacultyID, "", true, ""); !errors.As(err, &nf) {
			t.Errorf("非审批人作答应返回 NotFoundError，实际 %v", err)
		}

		resp, err := env.svc.Swap.RespondToApproval(testCtx(), swap.ID, env.b.FacultyID, "", true, "ok")
		if err != nil {
			t.Fatalf("审批失败: %v", err)
		}
		if resp.ApprovedBy == nil || *resp.ApprovedBy != env.b.FacultyID {
			t.Errorf("应记录批准人: %+v", resp)
		}
		if _, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false); err != nil {
			t.Errorf("审批通过后应可执行: %v", err)
		}
	})

	t.Run("拒绝即驳回", func(t *testing.T) {
		env := newTestEnv(t, requireApproval)
		testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
		swap := env.createSwap(t, model.SwapAbsorb)

		resp, err := env.svc.Swap.RespondToApproval(testCtx(), swap.ID, env.b.FacultyID, "target_faculty", false, "那周有事")
		if err != nil {
			t.Fatalf("作答失败: %v", err)
		}
		if resp.Status != string(model.SwapRejected) || resp.RejectedBy == nil {
			t.Errorf("拒绝后应为 rejected: %+v", resp)
		}

		var is *pkgerrors.InvalidStatusError
		if _, err := env.svc.Swap.RespondToApproval(testCtx(), swap.ID, env.b.FacultyID, "", true, ""); !errors.As(err, &is) {
			t.Errorf("已驳回的申请不能再作答，实际 %v", err)
		}
		var ap *pkgerrors.AlreadyProcessedError
		if _, err := env.svc.Swap.ExecuteSwap(testCtx(), swap.ID, "coordinator-1", false); !errors.As(err, &ap) {
			t.Errorf("已驳回的申请执行应返回 ALREADY_PROCESSED，实际 %v", err)
		}
	})
}

// ── 列表 ──

func TestSwapEngine_ListSwaps(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	first := env.createSwap(t, model.SwapAbsorb)
	env.now = env.now.Add(time.Minute)
	env.createSwap(t, model.SwapAbsorb)
	if _, err := env.svc.Swap.ExecuteSwap(testCtx(), first.ID, "coordinator-1", false); err != nil {
		t.Fatalf("执行失败: %v", err)
	}

	list, total, err := env.svc.Swap.ListSwaps(testCtx(), &dto.SwapListRequest{FacultyID: env.b.FacultyID})
	if err != nil || total != 2 || len(list) != 2 {
		t.Fatalf("列表错误: %v total=%d", err, total)
	}
	executed, total, _ := env.svc.Swap.ListSwaps(testCtx(), &dto.SwapListRequest{Status: "executed"})
	if total != 1 || executed[0].ID != first.ID {
		t.Errorf("按状态过滤错误: %+v", executed)
	}
}
