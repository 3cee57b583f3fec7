package service

import (
	"errors"
	"testing"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/policy"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/testutil"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

func batchFor(facultyID, source string, activity string, dates ...string) *dto.IngestBatchRequest {
	req := &dto.IngestBatchRequest{Source: source}
	for _, d := range dates {
		for _, h := range []string{"AM", "PM"} {
			req.Slots = append(req.Slots, dto.SlotWriteItem{
				FacultyID: facultyID,
				Date:      d,
				HalfDay:   h,
				Activity:  testutil.Ptr(activity),
			})
		}
	}
	return req
}

func TestSlotService_IngestBatch_PreloadIdempotent(t *testing.T) {
	env := newTestEnv(t)
	req := batchFor(env.a.FacultyID, "PRELOAD", "FMIT", "2026-11-02", "2026-11-03")

	first, err := env.svc.Slot.IngestBatch(testCtx(), req, "preload-feed")
	if err != nil {
		t.Fatalf("首次导入失败: %v", err)
	}
	if first.Written != 4 || first.Unchanged != 0 || first.Rejected != 0 {
		t.Errorf("首次导入统计错误: %+v", first)
	}
	before := testutil.SnapshotSlots(t, env.db)

	second, err := env.svc.Slot.IngestBatch(testCtx(), req, "preload-feed")
	if err != nil {
		t.Fatalf("再次导入失败: %v", err)
	}
	if second.Written != 0 || second.Unchanged != 4 {
		t.Errorf("重复导入应全部 unchanged: %+v", second)
	}
	assertSnapshotEqual(t, before, testutil.SnapshotSlots(t, env.db))

	var slot model.AssignmentSlot
	if err := env.db.Where("faculty_id = ?", env.a.FacultyID).First(&slot).Error; err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if slot.Version != 1 {
		t.Errorf("重复导入不应增加版本号，version=%d", slot.Version)
	}
}

func TestSlotService_ManualOverrideBlocksSolver(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Slot.IngestBatch(testCtx(), batchFor(env.a.FacultyID, "SOLVER", "CLINIC", "2026-11-02"), "solver"); err != nil {
		t.Fatalf("导入失败: %v", err)
	}

	slot, err := env.svc.Slot.OverrideSlot(testCtx(), &dto.OverrideSlotRequest{
		FacultyID: env.a.FacultyID,
		Date:      "2026-11-02",
		HalfDay:   "AM",
		Activity:  testutil.Ptr("ADMIN"),
		Reason:    "department meeting",
	}, "coordinator-1")
	if err != nil {
		t.Fatalf("人工覆盖失败: %v", err)
	}
	if slot.Source != string(model.SourceManual) || slot.OverrideBy == nil || *slot.OverrideBy != "coordinator-1" || slot.OverrideAt == nil {
		t.Errorf("覆盖元数据缺失: %+v", slot)
	}

	resp, err := env.svc.Slot.IngestBatch(testCtx(), batchFor(env.a.FacultyID, "SOLVER", "FMIT", "2026-11-02"), "solver")
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Written != 1 || resp.Rejected != 1 {
		t.Fatalf("期望 1 条写入 1 条拒绝: %+v", resp)
	}
	rej := resp.Rejections[0]
	if rej.CurrentSource != "MANUAL" || rej.AttemptedSource != "SOLVER" || rej.Rule != string(policy.RuleRankRejected) {
		t.Errorf("拒绝详情错误: %+v", rej)
	}
	if got := env.slot(t, env.a.FacultyID, testSourceWeek, model.HalfDayAM); got.ActivityOrEmpty() != "ADMIN" {
		t.Errorf("人工时段不应被覆盖: %s", got)
	}
}

func TestSlotService_OverridePreload(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Slot.IngestBatch(testCtx(), batchFor(env.a.FacultyID, "PRELOAD", "FMIT", "2026-11-02"), "preload"); err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	// 人工覆盖也不能改写 PRELOAD
	_, err := env.svc.Slot.OverrideSlot(testCtx(), &dto.OverrideSlotRequest{
		FacultyID: env.a.FacultyID, Date: "2026-11-02", HalfDay: "PM", Reason: "leave",
	}, "coordinator-1")
	var rejected *pkgerrors.PolicyRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("覆盖 PRELOAD 应被策略拒绝，实际 %v", err)
	}
	if rejected.Rule != string(policy.RulePreloadProtected) || !rejected.ManualOverride {
		t.Errorf("拒绝详情错误: %+v", rejected)
	}
	if got := env.slot(t, env.a.FacultyID, testSourceWeek, model.HalfDayPM); got.Source != model.SourcePreload || got.ActivityOrEmpty() != "FMIT" {
		t.Errorf("PRELOAD 时段不应被改写: %s", got)
	}
	// TEMPLATE 不能改写 PRELOAD
	resp, err := env.svc.Slot.IngestBatch(testCtx(), batchFor(env.a.FacultyID, "TEMPLATE", "CLINIC", "2026-11-02"), "template")
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Rejected != 2 {
		t.Errorf("TEMPLATE 应全部被拒绝: %+v", resp)
	}
}

func TestSlotService_IngestBatch_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.Slot.IngestBatch(testCtx(), batchFor(env.a.FacultyID, "MANUAL", "X", "2026-11-02"), "x"); !errors.Is(err, ErrInvalidFeedSource) {
		t.Errorf("MANUAL 不能作为批量来源，实际 %v", err)
	}
	bad := batchFor(env.a.FacultyID, "SOLVER", "X", "2026-11-02")
	bad.Slots = append(bad.Slots, dto.SlotWriteItem{FacultyID: env.a.FacultyID, Date: "2026-13-01", HalfDay: "AM"})
	if _, err := env.svc.Slot.IngestBatch(testCtx(), bad, "x"); !errors.Is(err, ErrInvalidSlotInput) {
		t.Errorf("非法日期应整批拒绝，实际 %v", err)
	}
	if n := len(testutil.SnapshotSlots(t, env.db)); n != 0 {
		t.Errorf("整批拒绝时不应写入任何时段，实际 %d", n)
	}
	if _, err := env.svc.Slot.IngestBatch(testCtx(), batchFor(env.a.FacultyID, "SOLVER", "X", "2026-11-02"), ""); !errors.Is(err, ErrActorRequired) {
		t.Errorf("期望 ErrActorRequired，实际 %v", err)
	}
}

func TestSlotService_ListSlots(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedWeek(t, env.db, env.a.FacultyID, testSourceWeek, "FMIT", model.SourceSolver)
	testutil.SeedWeek(t, env.db, env.b.FacultyID, testSourceWeek, "CLINIC", model.SourcePreload)

	list, total, err := env.svc.Slot.ListSlots(testCtx(), &dto.SlotListRequest{
		Source: "PRELOAD",
		From:   "2026-11-02",
		To:     "2026-11-04",
	})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if total != 4 || len(list) != 4 {
		t.Errorf("期望 4 条，实际 total=%d len=%d", total, len(list))
	}
	for _, s := range list {
		if s.FacultyID != env.b.FacultyID {
			t.Errorf("来源过滤错误: %+v", s)
		}
	}

	_, _, err = env.svc.Slot.ListSlots(testCtx(), &dto.SlotListRequest{From: "11/02/2026"})
	if !errors.Is(err, ErrInvalidSlotInput) {
		t.Errorf("期望 ErrInvalidSlotInput，实际 %v", err)
	}
}
