package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/testutil"
	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

func newPendingSwap(t *testing.T, repo *repository.Repository) *model.SwapRecord {
	t.Helper()
	tw := testutil.MustDate("2026-03-16")
	rec := &model.SwapRecord{
		SourceFacultyID: "fac-a",
		SourceWeek:      testutil.MustDate("2026-03-11"),
		TargetFacultyID: "fac-b",
		TargetWeek:      &tw,
		SwapType:        model.SwapOneToOne,
		Status:          model.SwapPending,
		RequestedBy:     "fac-a",
		RequestedAt:     time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Swap.Create(context.Background(), rec))
	return rec
}

func TestSwapRepo_CreateNormalizesWeeks(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewRepository(db)

	rec := newPendingSwap(t, repo)
	got, err := repo.Swap.GetByID(context.Background(), rec.SwapID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", model.FormatDate(got.SourceWeek))
	assert.Equal(t, "2026-03-16", model.FormatDate(*got.TargetWeek))
	assert.Equal(t, 1, got.Version)
	assert.Empty(t, got.MutationSteps())
}

func TestSwapRepo_UpdateStatusCAS(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	rec := newPendingSwap(t, repo)
	steps := []model.SlotMutation{{
		Seq:    1,
		Key:    model.SlotKey{FacultyID: "fac-a", Date: testutil.MustDate("2026-03-09"), HalfDay: model.HalfDayAM},
		Before: slotValue("FMIT", model.SourceSolver),
		After:  slotValue("CLINIC", model.SourceManual),
	}}

	first, err := repo.Swap.GetByID(ctx, rec.SwapID)
	require.NoError(t, err)
	second, err := repo.Swap.GetByID(ctx, rec.SwapID)
	require.NoError(t, err)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, first.MarkExecuted("exec", now, 24*time.Hour, steps))
	require.NoError(t, repo.Swap.UpdateStatus(ctx, first, model.SwapPending))
	assert.Equal(t, 2, first.Version)

	// 第二个读者持有旧版本，CAS 失败
	require.NoError(t, second.MarkFailed("exec", "late"))
	err = repo.Swap.UpdateStatus(ctx, second, model.SwapPending)
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)

	got, err := repo.Swap.GetByID(ctx, rec.SwapID)
	require.NoError(t, err)
	assert.Equal(t, model.SwapExecuted, got.Status)
	require.Len(t, got.MutationSteps(), 1)
	assert.True(t, got.MutationSteps()[0].Before.Equal(steps[0].Before))
	assert.True(t, got.RollbackDeadline.Equal(now.Add(24*time.Hour)))
}

func TestSwapRepo_ListByFaculty(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	newPendingSwap(t, repo)
	newPendingSwap(t, repo)

	list, total, err := repo.Swap.List(ctx, repository.SwapFilter{FacultyID: "fac-b", Status: model.SwapPending}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	_, total, err = repo.Swap.List(ctx, repository.SwapFilter{FacultyID: "fac-z"}, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSwapApprovalRepo_UniqueAndUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()
	rec := newPendingSwap(t, repo)

	a := &model.SwapApproval{SwapID: rec.SwapID, FacultyID: "fac-b", Role: model.ApprovalRoleTargetFaculty, Status: model.ApprovalPending}
	require.NoError(t, repo.Approval.Create(ctx, a))

	dup := &model.SwapApproval{SwapID: rec.SwapID, FacultyID: "fac-b", Role: model.ApprovalRoleTargetFaculty, Status: model.ApprovalPending}
	assert.Error(t, repo.Approval.Create(ctx, dup), "(swap, faculty, role) 唯一")

	got, err := repo.Approval.Get(ctx, rec.SwapID, "fac-b", model.ApprovalRoleTargetFaculty)
	require.NoError(t, err)
	require.NoError(t, got.Respond(true, time.Now().UTC(), "ok"))
	require.NoError(t, repo.Approval.Update(ctx, got))

	list, err := repo.Approval.ListBySwap(ctx, rec.SwapID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.ApprovalApproved, list[0].Status)

	_, err = repo.Approval.Get(ctx, rec.SwapID, "fac-a", model.ApprovalRoleTargetFaculty)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
