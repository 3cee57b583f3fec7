package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/testutil"
)

// ── 测试辅助 ──

var (
	// 2026-10-19 为周一
	testNow        = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	testSourceWeek = testutil.MustDate("2026-11-02")
	testTargetWeek = testutil.MustDate("2026-11-09")
)

func testCtx() context.Context { return context.Background() }

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if evt, ok := payload.(Event); ok {
		p.events = append(p.events, evt)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db     *gorm.DB
	repo   *repository.Repository
	svc    *Service
	cfg    *config.Config
	events *recordingPublisher
	now    time.Time
	a, b   *model.Faculty
}

func newTestEnv(t *testing.T, mutate ...func(cfg *config.Config)) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	env := &testEnv{
		db:     db,
		repo:   repository.NewRepository(db),
		cfg:    cfg,
		events: &recordingPublisher{},
		now:    testNow,
	}
	env.svc = NewService(cfg, env.repo, env.events, func() time.Time { return env.now }, zap.NewNop())
	env.a = testutil.SeedFaculty(t, db, "Alice", true)
	env.b = testutil.SeedFaculty(t, db, "Bob", true)
	return env
}

func (e *testEnv) createSwap(t *testing.T, swapType model.SwapType) *dto.SwapResponse {
	t.Helper()
	req := &dto.CreateSwapRequest{
		SourceFacultyID: e.a.FacultyID,
		SourceWeek:      model.FormatDate(testSourceWeek),
		TargetFacultyID: e.b.FacultyID,
		SwapType:        string(swapType),
		Reason:          "conference",
	}
	if swapType == model.SwapOneToOne {
		req.TargetWeek = testutil.Ptr(model.FormatDate(testTargetWeek))
	}
	resp, err := e.svc.Swap.CreateSwapRequest(testCtx(), req, "coordinator-1")
	if err != nil {
		t.Fatalf("创建换班申请失败: %v", err)
	}
	return resp
}

func (e *testEnv) slot(t *testing.T, facultyID string, date time.Time, half model.HalfDay) model.SlotValue {
	t.Helper()
	v, err := e.repo.Slot.Current(testCtx(), model.SlotKey{FacultyID: facultyID, Date: date, HalfDay: half})
	if err != nil {
		t.Fatalf("读取时段失败: %v", err)
	}
	return v
}

func assertSnapshotEqual(t *testing.T, want, got map[string]model.SlotValue) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("时段数量不一致: 期望 %d，实际 %d", len(want), len(got))
	}
	for k, w := range want {
		g, ok := got[k]
		if !ok {
			t.Errorf("时段 %s 丢失", k)
			continue
		}
		if !w.Equal(g) {
			t.Errorf("时段 %s 不一致: 期望 %s，实际 %s", k, w, g)
		}
	}
}

func swapReq(sourceID, targetID string) *dto.CreateSwapRequest {
	return &dto.CreateSwapRequest{
		SourceFacultyID: sourceID,
		SourceWeek:      model.FormatDate(testSourceWeek),
		TargetFacultyID: targetID,
		SwapType:        string(model.SwapAbsorb),
	}
}
