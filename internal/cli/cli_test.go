package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/testutil"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/jwt"
)

// ── 测试辅助 ──

// 2026-10-19 为周一
var cliNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (r *fakeRevoker) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = make(map[string]time.Duration)
	}
	r.revoked[jti] = ttl
	return nil
}

type cliEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	revoker    *fakeRevoker
	storeCalls int
	alice, bob *model.Faculty
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := config.Default()
	cfg.Auth.JWTSecret = "cli-test-secret-0123456789"
	return &cliEnv{
		db:    db,
		cfg:   cfg,
		alice: testutil.SeedFaculty(t, db, "Alice", true),
		bob:   testutil.SeedFaculty(t, db, "Bob", true),
	}
}

func (e *cliEnv) factory(_ *RootOptions, withStore bool) (*Runtime, error) {
	logger := zap.NewNop()
	rt := &Runtime{Config: e.cfg, Logger: logger, Tokens: jwt.NewManager(&e.cfg.Auth)}
	if e.revoker != nil {
		rt.Revoker = e.revoker
	}
	if withStore {
		e.storeCalls++
		clock := func() time.Time { return cliNow }
		rt.Service = service.NewService(e.cfg, repository.NewRepository(e.db), nil, clock, logger)
	}
	return rt, nil
}

func (e *cliEnv) run(args ...string) (string, error) {
	cmd := NewRootCommand(e.factory)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decode(t *testing.T, out string, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), "输出应为 JSON: %s", out)
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ── 根命令 ──

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand(nil)
	for _, path := range [][]string{
		{"ingest"}, {"override"}, {"detect"},
		{"swap", "create"}, {"swap", "plan"}, {"swap", "execute"}, {"swap", "rollback"},
		{"absences", "import"}, {"token", "issue"}, {"token", "revoke"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("--format", "xml", "detect", "--from", "2026-10-19", "--to", "2026-12-01")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Zero(t, env.storeCalls, "参数错误时不应构造运行时")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}

// ── 时段 ──

func TestIngest_WritesThenReportsPolicyRejections(t *testing.T) {
	env := newCLIEnv(t)
	batch := writeFile(t, "batch.yaml", `
source: SOLVER
slots:
  - faculty_id: `+env.alice.FacultyID+`
    date: 2026-11-02
    half_day: AM
    activity: FMIT
  - faculty_id: `+env.alice.FacultyID+`
    date: 2026-11-02
    half_day: PM
    activity: FMIT
`)

	out, err := env.run("--format", "json", "ingest", batch)
	require.NoError(t, err)
	var first dto.IngestBatchResponse
	decode(t, out, &first)
	assert.Equal(t, 2, first.Written)

	out, err = env.run("--format", "json", "--actor", "coordinator-1", "override",
		"--faculty", env.alice.FacultyID, "--date", "2026-11-02", "--half-day", "AM",
		"--activity", "CLINIC", "--reason", "coverage change")
	require.NoError(t, err)
	var slot dto.SlotResponse
	decode(t, out, &slot)
	assert.Equal(t, "MANUAL", slot.Source)
	require.NotNil(t, slot.OverrideBy)
	assert.Equal(t, "coordinator-1", *slot.OverrideBy)

	out, err = env.run("--format", "json", "ingest", batch)
	require.NoError(t, err)
	var second dto.IngestBatchResponse
	decode(t, out, &second)
	assert.Equal(t, 1, second.Rejected)
	assert.Equal(t, 1, second.Unchanged)
	assert.Zero(t, second.Written)
	require.Len(t, second.Rejections, 1)
	assert.Equal(t, "MANUAL", second.Rejections[0].CurrentSource)
}

func TestIngest_InvalidFileRejectedBeforeRuntime(t *testing.T) {
	env := newCLIEnv(t)
	batch := writeFile(t, "batch.yaml", `
source: SOLVER
slots:
  - faculty_id: not-a-uuid
    date: 2026-11-02
    half_day: EVENING
`)

	out, err := env.run("--format", "json", "ingest", batch)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	res := decode(t, out, nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeInvalidInput, res.Error.Code)
	assert.Zero(t, env.storeCalls)
}

func TestIngest_MissingFile(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("ingest", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOverride_RequiresActivityOrClear(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("override", "--faculty", env.alice.FacultyID, "--date", "2026-11-02",
		"--half-day", "AM", "--reason", "coverage")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOverride_PreloadIsProtected(t *testing.T) {
	env := newCLIEnv(t)
	testutil.SeedWeek(t, env.db, env.alice.FacultyID, testutil.MustDate("2026-11-02"), "FMIT", model.SourcePreload)

	out, err := env.run("--format", "json", "override", "--faculty", env.alice.FacultyID,
		"--date", "2026-11-02", "--half-day", "AM", "--clear", "--reason", "coverage")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	res := decode(t, out, nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, "POLICY_REJECTED", res.Error.Code)
}

// ── 冲突检测 ──

func TestDetect_PersistSkipsDuplicates(t *testing.T) {
	env := newCLIEnv(t)
	testutil.SeedWeek(t, env.db, env.alice.FacultyID, testutil.MustDate("2026-11-02"), "FMIT", model.SourceSolver)
	testutil.SeedWeek(t, env.db, env.alice.FacultyID, testutil.MustDate("2026-11-09"), "FMIT", model.SourceSolver)

	args := []string{"--format", "json", "detect", "--from", "2026-10-19", "--to", "2027-01-04", "--persist"}
	out, err := env.run(args...)
	require.NoError(t, err)
	var first dto.DetectConflictsResponse
	decode(t, out, &first)
	require.Len(t, first.Conflicts, 1)
	assert.Equal(t, "back_to_back", first.Conflicts[0].ConflictType)
	assert.Equal(t, 1, first.Created)

	out, err = env.run(args...)
	require.NoError(t, err)
	var second dto.DetectConflictsResponse
	decode(t, out, &second)
	assert.Zero(t, second.Created)
	assert.Equal(t, 1, second.Skipped)
}

func TestDetect_TextOutput(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run("detect", "--from", "2026-10-19", "--to", "2026-12-01")
	require.NoError(t, err)
	assert.Contains(t, out, "conflicts:")
}

func TestDetect_MissingRange(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("detect", "--from", "2026-10-19")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// ── 换班 ──

func TestSwap_CreatePlanExecuteRollback(t *testing.T) {
	env := newCLIEnv(t)
	testutil.SeedWeek(t, env.db, env.alice.FacultyID, testutil.MustDate("2026-11-02"), "FMIT", model.SourceSolver)
	before := testutil.SnapshotSlots(t, env.db)

	out, err := env.run("--format", "json", "--actor", "coordinator-1", "swap", "create",
		"--source-faculty", env.alice.FacultyID, "--source-week", "2026-11-04",
		"--target-faculty", env.bob.FacultyID, "--type", "absorb", "--reason", "conference")
	require.NoError(t, err)
	var swap dto.SwapResponse
	decode(t, out, &swap)
	assert.Equal(t, "2026-11-02", swap.SourceWeek)
	assert.Equal(t, "pending", swap.Status)

	out, err = env.run("--format", "json", "swap", "plan", swap.ID)
	require.NoError(t, err)
	var plan dto.ExecutionPlanResponse
	decode(t, out, &plan)
	assert.Equal(t, 20, plan.AffectedSlotCount)

	out, err = env.run("--format", "json", "swap", "execute", swap.ID, "--dry-run")
	require.NoError(t, err)
	var dry dto.SwapOutcome
	decode(t, out, &dry)
	assert.True(t, dry.DryRun)
	assert.Equal(t, "pending", dry.Status)

	out, err = env.run("--format", "json", "--actor", "coordinator-1", "swap", "execute", swap.ID)
	require.NoError(t, err)
	var executed dto.SwapOutcome
	decode(t, out, &executed)
	assert.True(t, executed.Success)
	assert.Equal(t, "executed", executed.Status)
	assert.Equal(t, 20, executed.AffectedSlotCount)

	out, err = env.run("--format", "json", "--actor", "coordinator-1", "swap", "rollback", swap.ID,
		"--reason", "entered in error")
	require.NoError(t, err)
	var rolled dto.SwapOutcome
	decode(t, out, &rolled)
	assert.Equal(t, "rolled_back", rolled.Status)

	after := testutil.SnapshotSlots(t, env.db)
	require.Len(t, after, len(before))
	for k, v := range before {
		assert.True(t, v.Equal(after[k]), "时段 %s 应恢复", k)
	}

	// 已回滚的申请不能再次执行
	out, err = env.run("--format", "json", "swap", "execute", swap.ID)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	res := decode(t, out, nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, "ALREADY_PROCESSED", res.Error.Code)
}

func TestSwap_ExecuteFailureCarriesOutcome(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run("--format", "json", "swap", "create",
		"--source-faculty", env.alice.FacultyID, "--source-week", "2026-11-02",
		"--target-faculty", env.bob.FacultyID, "--type", "absorb")
	require.NoError(t, err)
	var swap dto.SwapResponse
	decode(t, out, &swap)

	out, err = env.run("--format", "json", "swap", "execute", swap.ID)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	res := decode(t, out, nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, "VALIDATION_FAILED", res.Error.Code)
	details, ok := res.Error.Details.(map[string]interface{})
	require.True(t, ok, "失败时应输出结构化结果")
	assert.Equal(t, swap.ID, details["swap_id"])
	assert.Equal(t, false, details["success"])
}

func TestSwap_CreateRejectsSameFaculty(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("swap", "create",
		"--source-faculty", env.alice.FacultyID, "--source-week", "2026-11-02",
		"--target-faculty", env.alice.FacultyID, "--type", "absorb")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Zero(t, env.storeCalls)
}

func TestSwap_RollbackRequiresReason(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("swap", "rollback", "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// ── 缺勤 ──

const cliLeaveCalendar = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//clinic//leave//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:cli-leave-001@clinic\r\n" +
	"DTSTAMP:20261001T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20261102\r\n" +
	"DTEND;VALUE=DATE:20261107\r\n" +
	"SUMMARY:Deployment\r\n" +
	"CATEGORIES:DEPLOYMENT\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestAbsencesImport_FileIsIdempotent(t *testing.T) {
	env := newCLIEnv(t)
	path := writeFile(t, "leave.ics", cliLeaveCalendar)

	for i := 0; i < 2; i++ {
		out, err := env.run("--format", "json", "absences", "import", "--faculty", env.alice.FacultyID, "--file", path)
		require.NoError(t, err)
		var resp dto.AbsenceImportResponse
		decode(t, out, &resp)
		assert.Equal(t, 1, resp.Parsed)
	}

	var count int64
	require.NoError(t, env.db.Model(&model.Absence{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAbsencesImport_RequiresExactlyOneSource(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("absences", "import", "--faculty", env.alice.FacultyID)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = env.run("absences", "import", "--faculty", env.alice.FacultyID,
		"--file", "a.ics", "--url", "https://calendar.example/leave.ics")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// ── Token ──

func TestToken_IssueAndRevoke(t *testing.T) {
	env := newCLIEnv(t)
	env.revoker = &fakeRevoker{}

	out, err := env.run("--format", "json", "token", "issue", "--subject", "solver-svc", "--role", "feed", "--ttl", "1h")
	require.NoError(t, err)
	var issued TokenIssued
	decode(t, out, &issued)
	assert.Equal(t, "feed", issued.Role)
	assert.Zero(t, env.storeCalls, "签发 Token 不需要数据库")

	claims, err := jwt.NewManager(&env.cfg.Auth).ParseToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "solver-svc", claims.ActorID)

	out, err = env.run("--format", "json", "token", "revoke", issued.Token)
	require.NoError(t, err)
	var revoked TokenRevoked
	decode(t, out, &revoked)
	assert.True(t, revoked.Revoked)
	assert.Equal(t, claims.ID, revoked.JTI)

	ttl, ok := env.revoker.revoked[claims.ID]
	require.True(t, ok)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 60)
}

func TestToken_IssueRejectsUnknownRole(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("token", "issue", "--subject", "x", "--role", "admin")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestToken_RevokeWithoutRedis(t *testing.T) {
	env := newCLIEnv(t)
	token, err := jwt.NewManager(&env.cfg.Auth).GenerateToken("solver-svc", jwt.RoleFeed, time.Hour)
	require.NoError(t, err)

	_, err = env.run("token", "revoke", token)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
