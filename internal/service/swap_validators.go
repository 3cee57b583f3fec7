package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/policy"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
)

// ── 换班校验链 ──────────────────────────────────────────────
//
// 校验器只读，不修改任何数据。
// 业务规则不满足时返回 Passed=false 与说明；只有基础设施故障才返回 error。
// ─────────────────────────────────────────────────────────────

// ValidationOutcome 单个校验器的结果
type ValidationOutcome struct {
	Passed  bool
	Message string
}

func pass() ValidationOutcome { return ValidationOutcome{Passed: true} }

func fail(format string, args ...interface{}) ValidationOutcome {
	return ValidationOutcome{Message: fmt.Sprintf(format, args...)}
}

// Validator 换班校验器
type Validator interface {
	Name() string
	Check(ctx context.Context, rec *model.SwapRecord) (ValidationOutcome, error)
}

// builtinValidators 内置校验器，按顺序执行
func builtinValidators(repo *repository.Repository, planner *ExecutionPlanner, clock Clock) []Validator {
	return []Validator{
		&weeksNotPastValidator{clock: clock},
		&hasCommitmentValidator{repo: repo, planner: planner},
		&targetWeekUnprotectedValidator{repo: repo, planner: planner, clock: clock},
		&criticalAlertValidator{repo: repo},
		&receiverAbsenceValidator{repo: repo},
		&approvalsGrantedValidator{repo: repo},
	}
}

// ── (1) 周次不能早于当前周 ──

type weeksNotPastValidator struct {
	clock Clock
}

func (v *weeksNotPastValidator) Name() string { return "weeks_not_in_past" }

func (v *weeksNotPastValidator) Check(_ context.Context, rec *model.SwapRecord) (ValidationOutcome, error) {
	current := model.WeekStart(v.clock())
	if rec.SourceWeek.Before(current) {
		return fail("源周 %s 已过去", model.FormatDate(rec.SourceWeek)), nil
	}
	if rec.TargetWeek != nil && rec.TargetWeek.Before(current) {
		return fail("目标周 %s 已过去", model.FormatDate(*rec.TargetWeek)), nil
	}
	return pass(), nil
}

// ── (2) 源教员在源周必须有值班时段 ──

type hasCommitmentValidator struct {
	repo    *repository.Repository
	planner *ExecutionPlanner
}

func (v *hasCommitmentValidator) Name() string { return "has_commitment_slots" }

func (v *hasCommitmentValidator) Check(ctx context.Context, rec *model.SwapRecord) (ValidationOutcome, error) {
	slots, err := v.planner.commitmentSlots(ctx, v.repo.Slot, rec.SourceFacultyID, rec.SourceWeek)
	if err != nil {
		return ValidationOutcome{}, err
	}
	if len(slots) == 0 {
		return fail("教员 %s 在源周 %s 没有值班时段", rec.SourceFacultyID, model.FormatDate(rec.SourceWeek)), nil
	}
	return pass(), nil
}

// ── (3) 目标周内换班将触碰的时段不能是 PRELOAD / MANUAL ──

type targetWeekUnprotectedValidator struct {
	repo    *repository.Repository
	planner *ExecutionPlanner
	clock   Clock
}

func (v *targetWeekUnprotectedValidator) Name() string { return "target_week_unprotected" }

func (v *targetWeekUnprotectedValidator) Check(ctx context.Context, rec *model.SwapRecord) (ValidationOutcome, error) {
	steps, err := v.planner.Plan(ctx, v.repo.Slot, rec, "validator", v.clock())
	if err != nil {
		return ValidationOutcome{}, err
	}
	week := rec.ExaminedWeek()
	end := model.WeekEnd(week)

	var protected []string
	for _, st := range steps {
		if st.Key.Date.Before(week) || !st.Key.Date.Before(end) {
			continue
		}
		if st.Before.Exists && policy.IsProtected(st.Before.Source) {
			protected = append(protected, fmt.Sprintf("%s(%s)", st.Key.String(), st.Before.Source))
		}
	}
	if len(protected) > 0 {
		return fail("目标周 %s 存在受保护时段: %s", model.FormatDate(week), strings.Join(protected, ", ")), nil
	}
	return pass(), nil
}

// ── (4) 双方在目标周没有未关闭的 critical 告警（可豁免）──

type criticalAlertValidator struct {
	repo *repository.Repository
}

func (v *criticalAlertValidator) Name() string { return "no_critical_alerts" }

func (v *criticalAlertValidator) Check(ctx context.Context, rec *model.SwapRecord) (ValidationOutcome, error) {
	if rec.CriticalAlertsWaived {
		return pass(), nil
	}
	week := rec.ExaminedWeek()
	alerts, err := v.repo.ConflictAlert.ListOpenBySeverity(ctx, rec.Parties(), week, model.SeverityCritical)
	if err != nil {
		return ValidationOutcome{}, err
	}
	if len(alerts) > 0 {
		a := alerts[0]
		return fail("教员 %s 在 %s 周存在未处理的 critical 告警 (%s)", a.FacultyID, model.FormatDate(week), a.ConflictType), nil
	}
	return pass(), nil
}

// ── (5) 接收方在接手的周没有阻断性缺勤 ──

type receiverAbsenceValidator struct {
	repo *repository.Repository
}

func (v *receiverAbsenceValidator) Name() string { return "receiver_not_absent" }

func (v *receiverAbsenceValidator) Check(ctx context.Context, rec *model.SwapRecord) (ValidationOutcome, error) {
	type take struct {
		facultyID string
		week      time.Time
	}
	takes := []take{{facultyID: rec.TargetFacultyID, week: rec.ReceivedWeek()}}
	if rec.SwapType == model.SwapOneToOne && rec.TargetWeek != nil {
		takes = append(takes, take{facultyID: rec.SourceFacultyID, week: *rec.TargetWeek})
	}

	for _, tk := range takes {
		absences, err := v.repo.Absence.ListByFacultyInRange(ctx, tk.facultyID, model.WeekStart(tk.week), model.WeekEnd(tk.week))
		if err != nil {
			return ValidationOutcome{}, err
		}
		for i := range absences {
			a := &absences[i]
			if a.EffectivelyBlocking() && a.OverlapsWeek(tk.week) {
				return fail("教员 %s 的 %s 缺勤 (%s ~ %s) 与接手的 %s 周重叠",
					tk.facultyID, a.AbsenceType, model.FormatDate(a.StartDate), model.FormatDate(a.EndDate),
					model.FormatDate(tk.week)), nil
			}
		}
	}
	return pass(), nil
}

// ── (6) 所有审批已通过 ──

type approvalsGrantedValidator struct {
	repo *repository.Repository
}

func (v *approvalsGrantedValidator) Name() string { return "approvals_granted" }

func (v *approvalsGrantedValidator) Check(ctx context.Context, rec *model.SwapRecord) (ValidationOutcome, error) {
	approvals, err := v.repo.Approval.ListBySwap(ctx, rec.SwapID)
	if err != nil {
		return ValidationOutcome{}, err
	}
	for _, a := range approvals {
		if a.Status != model.ApprovalApproved {
			return fail("审批 %s/%s 状态为 %s", a.FacultyID, a.Role, a.Status), nil
		}
	}
	return pass(), nil
}
