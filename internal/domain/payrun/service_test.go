package payrun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paycore/internal/domain/tax"
)

func testPeriod() (time.Time, time.Time, time.Time) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	payDate := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	return start, end, payDate
}

func TestCanTransition(t *testing.T) {
	legal := [][2]Status{
		{StatusDraft, StatusPendingApproval},
		{StatusPendingApproval, StatusApproved},
		{StatusApproved, StatusProcessing},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
	}
	for _, step := range legal {
		require.True(t, CanTransition(step[0], step[1]), "%s -> %s", step[0], step[1])
	}

	illegal := [][2]Status{
		{StatusDraft, StatusApproved},
		{StatusDraft, StatusFailed},
		{StatusPendingApproval, StatusProcessing},
		{StatusApproved, StatusCompleted},
		{StatusApproved, StatusFailed},
		{StatusCompleted, StatusProcessing},
		{StatusFailed, StatusProcessing},
		{StatusPendingApproval, StatusDraft},
	}
	for _, step := range illegal {
		require.False(t, CanTransition(step[0], step[1]), "%s -> %s", step[0], step[1])
	}
}

func TestServiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	start, end, payDate := testPeriod()

	run, err := svc.Create(ctx, start, end, payDate, tax.FrequencyBiweekly)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, run.Status)
	require.NotEmpty(t, run.ID)

	_, err = svc.Create(ctx, start, end, payDate, "fortnightly")
	require.ErrorIs(t, err, tax.ErrInvalidFrequency)

	_, err = svc.Create(ctx, end, start, payDate, tax.FrequencyBiweekly)
	require.Error(t, err)
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	start, end, payDate := testPeriod()

	run, err := svc.Create(ctx, start, end, payDate, tax.FrequencyBiweekly)
	require.NoError(t, err)

	// An empty run cannot leave draft.
	require.ErrorIs(t, svc.Submit(ctx, run.ID), ErrNoMembers)

	require.NoError(t, svc.AddMember(ctx, run.ID, "emp-1"))
	require.NoError(t, svc.AddMember(ctx, run.ID, "emp-2"))
	require.NoError(t, svc.AddMember(ctx, run.ID, "emp-1"))
	members, err := svc.Members(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"emp-1", "emp-2"}, members)

	require.NoError(t, svc.RemoveMember(ctx, run.ID, "emp-2"))

	// Approval may not skip the pending step.
	require.ErrorIs(t, svc.Approve(ctx, run.ID), ErrInvalidState)

	require.NoError(t, svc.Submit(ctx, run.ID))
	got, err := svc.Get(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPendingApproval, got.Status)

	// Membership is frozen outside draft.
	require.ErrorIs(t, svc.AddMember(ctx, run.ID, "emp-3"), ErrNotDraft)
	require.ErrorIs(t, svc.RemoveMember(ctx, run.ID, "emp-1"), ErrNotDraft)

	require.ErrorIs(t, svc.Submit(ctx, run.ID), ErrInvalidState)
	require.NoError(t, svc.Approve(ctx, run.ID))
	got, err = svc.Get(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, got.Status)
}

func TestServiceUnknownRun(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.AddMember(ctx, "missing", "emp-1"), ErrNotFound)
	require.ErrorIs(t, svc.Approve(ctx, "missing"), ErrNotFound)
}

func TestMemoryStoreMarkFailedGuard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	start, end, payDate := testPeriod()

	id, err := store.Create(ctx, Run{PeriodStart: start, PeriodEnd: end, PayDate: payDate, Frequency: tax.FrequencyBiweekly})
	require.NoError(t, err)

	// Only a processing run can land in failed.
	require.ErrorIs(t, store.MarkFailed(ctx, id, "emp-1", "boom"), ErrInvalidState)

	require.NoError(t, store.Transition(ctx, id, StatusDraft, StatusPendingApproval))
	require.NoError(t, store.Transition(ctx, id, StatusPendingApproval, StatusApproved))
	require.NoError(t, store.Transition(ctx, id, StatusApproved, StatusProcessing))
	require.NoError(t, store.MarkFailed(ctx, id, "emp-1", "boom"))

	run, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, run.Status)
	require.Equal(t, "emp-1", run.FailedEmployeeID)
	require.Equal(t, "boom", run.FailureReason)
}
