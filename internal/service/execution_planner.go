package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
)

// ExecutionPlanner 根据当前时段生成换班执行计划
//
// one_to_one：源周内 A 的值班时段与 B 同一 (日期, 半天) 的时段互换；
// 目标周内 B 的值班时段与 A 同一时段互换。
// absorb：源周内 A 的值班时段交给 B，A 的该时段活动置空。
// 每一步写入的新值来源为 MANUAL，并带上换班原因、执行人与执行时间。
type ExecutionPlanner struct {
	activities map[string]bool
}

// NewExecutionPlanner 创建执行计划生成器
func NewExecutionPlanner(commitmentActivities []string) *ExecutionPlanner {
	set := make(map[string]bool, len(commitmentActivities))
	for _, a := range commitmentActivities {
		set[a] = true
	}
	return &ExecutionPlanner{activities: set}
}

// IsCommitment 活动是否为固定值班
func (p *ExecutionPlanner) IsCommitment(activity *string) bool {
	return activity != nil && p.activities[*activity]
}

type halfDaySlot struct {
	date    time.Time
	halfDay model.HalfDay
}

// Plan 生成有序步骤；每步同时记录 before / after
func (p *ExecutionPlanner) Plan(
	ctx context.Context,
	slots repository.SlotRepository,
	rec *model.SwapRecord,
	actor string,
	at time.Time,
) ([]model.SlotMutation, error) {
	a, b := rec.SourceFacultyID, rec.TargetFacultyID

	type pair struct {
		owner, other string
		hd           halfDaySlot
	}
	var pairs []pair

	// 源周：A 的值班时段
	srcSlots, err := p.commitmentSlots(ctx, slots, a, rec.SourceWeek)
	if err != nil {
		return nil, err
	}
	for _, hd := range srcSlots {
		pairs = append(pairs, pair{owner: a, other: b, hd: hd})
	}

	// 目标周：B 的值班时段
	if rec.SwapType == model.SwapOneToOne && rec.TargetWeek != nil {
		tgtSlots, err := p.commitmentSlots(ctx, slots, b, *rec.TargetWeek)
		if err != nil {
			return nil, err
		}
		for _, hd := range tgtSlots {
			pairs = append(pairs, pair{owner: b, other: a, hd: hd})
		}
	}

	reason := fmt.Sprintf("swap %s", rec.SwapID)
	if rec.Reason != "" {
		reason = fmt.Sprintf("swap %s: %s", rec.SwapID, rec.Reason)
	}
	newValue := func(activity *string) model.SlotValue {
		r, by, t := reason, actor, at
		return model.SlotValue{
			Exists:         true,
			Activity:       activity,
			Source:         model.SourceManual,
			OverrideReason: &r,
			OverrideBy:     &by,
			OverrideAt:     &t,
		}
	}

	seen := make(map[string]bool)
	var steps []model.SlotMutation
	for _, pr := range pairs {
		ownerKey := model.SlotKey{FacultyID: pr.owner, Date: pr.hd.date, HalfDay: pr.hd.halfDay}
		otherKey := model.SlotKey{FacultyID: pr.other, Date: pr.hd.date, HalfDay: pr.hd.halfDay}
		if seen[ownerKey.String()] || seen[otherKey.String()] {
			continue
		}
		seen[ownerKey.String()], seen[otherKey.String()] = true, true

		ownerCur, err := slots.Current(ctx, ownerKey)
		if err != nil {
			return nil, err
		}
		otherCur, err := slots.Current(ctx, otherKey)
		if err != nil {
			return nil, err
		}

		var ownerActivity *string
		if rec.SwapType == model.SwapOneToOne && otherCur.Exists {
			ownerActivity = otherCur.Activity
		}
		steps = append(steps,
			model.SlotMutation{Key: ownerKey, Before: ownerCur, After: newValue(ownerActivity)},
			model.SlotMutation{Key: otherKey, Before: otherCur, After: newValue(ownerCur.Activity)},
		)
	}

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Key.Less(steps[j].Key) })
	for i := range steps {
		steps[i].Seq = i + 1
	}
	return steps, nil
}

// commitmentSlots 教员某周内持有值班活动的 (日期, 半天)
func (p *ExecutionPlanner) commitmentSlots(ctx context.Context, slots repository.SlotRepository, facultyID string, week time.Time) ([]halfDaySlot, error) {
	list, err := slots.ListByFacultyInRange(ctx, facultyID, model.WeekStart(week), model.WeekEnd(week))
	if err != nil {
		return nil, err
	}
	var out []halfDaySlot
	for i := range list {
		if p.IsCommitment(list[i].Activity) {
			out = append(out, halfDaySlot{date: list[i].Date, halfDay: list[i].HalfDay})
		}
	}
	return out, nil
}
