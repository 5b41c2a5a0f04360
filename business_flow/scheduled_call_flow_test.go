package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduledCallFlow_Create(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	flow := NewScheduledCallFlow(env.ScheduledCall, env.Leads)

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	lead, err := env.Fixtures.CreateTestLead(user.ID, "Anand Hardware", "9876543210")
	require.NoError(t, err)

	at := time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC)

	t.Run("duration minutes are stored as seconds", func(t *testing.T) {
		call, err := flow.CreateScheduledCall(ctx, user.ID, &dto.CreateScheduledCallRequest{
			LeadID:          lead.ID,
			ScheduledTime:   at,
			DurationMinutes: 45,
			Notes:           " pricing ",
			EmailAddress:    "Me@Example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, 2700, call.DurationSeconds)
		assert.Equal(t, "Anand Hardware", call.LeadName)
		assert.Equal(t, "pricing", call.Notes)
		assert.Equal(t, "me@example.com", call.EmailAddress)
		assert.Equal(t, "scheduled", call.Status)
		assert.False(t, call.ReminderSent)

		stored, err := flow.GetScheduledCall(ctx, user.ID, call.ID)
		require.NoError(t, err)
		assert.True(t, stored.Reminder)
		assert.True(t, stored.EmailEnabled)
		assert.False(t, stored.SMSEnabled)
		assert.Equal(t, utils.DefaultReminderMinutes, stored.ReminderTimeMinutes)
		assert.True(t, stored.ScheduledTime.Equal(at))
	})

	t.Run("missing duration falls back to default", func(t *testing.T) {
		call, err := flow.CreateScheduledCall(ctx, user.ID, &dto.CreateScheduledCallRequest{LeadID: lead.ID, ScheduledTime: at})
		require.NoError(t, err)
		assert.Equal(t, utils.DefaultCallDurationSeconds, call.DurationSeconds)
	})

	t.Run("zero time is rejected", func(t *testing.T) {
		_, err := flow.CreateScheduledCall(ctx, user.ID, &dto.CreateScheduledCallRequest{LeadID: lead.ID})
		assert.ErrorIs(t, err, ErrScheduledTimeRequired)
	})

	t.Run("lead of another user is rejected", func(t *testing.T) {
		other, err := env.Fixtures.CreateTestUser()
		require.NoError(t, err)
		_, err = flow.CreateScheduledCall(ctx, other.ID, &dto.CreateScheduledCallRequest{LeadID: lead.ID, ScheduledTime: at})
		assert.ErrorIs(t, err, ErrLeadNotFound)
	})
}

func TestScheduledCallFlow_ListUpdateDelete(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	flow := NewScheduledCallFlow(env.ScheduledCall, env.Leads)

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	other, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	lead, err := env.Fixtures.CreateTestLead(user.ID, "Lead A", "1")
	require.NoError(t, err)
	lead2, err := env.Fixtures.CreateTestLead(user.ID, "Lead B", "2")
	require.NoError(t, err)
	foreignLead, err := env.Fixtures.CreateTestLead(other.ID, "Lead C", "3")
	require.NoError(t, err)

	day1 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	day3 := time.Date(2025, 5, 3, 10, 0, 0, 0, time.UTC)
	c3, err := env.Fixtures.CreateTestScheduledCall(user.ID, lead.ID, day3, 15, "")
	require.NoError(t, err)
	c1, err := env.Fixtures.CreateTestScheduledCall(user.ID, lead.ID, day1, 15, "")
	require.NoError(t, err)
	c2, err := env.Fixtures.CreateTestScheduledCall(user.ID, lead.ID, day2, 15, "")
	require.NoError(t, err)

	all, err := flow.ListScheduledCalls(ctx, user.ID, &dto.ListScheduledCallsRequest{})
	require.NoError(t, err)
	require.Len(t, all.Calls, 3)
	assert.Equal(t, []uint{c1.ID, c2.ID, c3.ID}, []uint{all.Calls[0].ID, all.Calls[1].ID, all.Calls[2].ID})

	ranged, err := flow.ListScheduledCalls(ctx, user.ID, &dto.ListScheduledCallsRequest{StartDate: "2025-05-02", EndDate: "2025-05-02"})
	require.NoError(t, err)
	require.Len(t, ranged.Calls, 1)
	assert.Equal(t, c2.ID, ranged.Calls[0].ID)

	_, err = flow.ListScheduledCalls(ctx, user.ID, &dto.ListScheduledCallsRequest{StartDate: "2025-05-03", EndDate: "2025-05-01"})
	assert.ErrorIs(t, err, ErrStartDateAfterEndDate)
	_, err = flow.ListScheduledCalls(ctx, user.ID, &dto.ListScheduledCallsRequest{StartDate: "yesterday"})
	assert.ErrorIs(t, err, ErrInvalidDate)

	updated, err := flow.UpdateScheduledCall(ctx, user.ID, c1.ID, &dto.UpdateScheduledCallRequest{
		LeadID:          &lead2.ID,
		DurationMinutes: utils.ToPtr(10),
		Status:          utils.ToPtr("completed"),
	})
	require.NoError(t, err)
	assert.Equal(t, lead2.ID, updated.LeadID)
	assert.Equal(t, 600, updated.DurationSeconds)
	assert.Equal(t, "completed", updated.Status)

	done, err := flow.ListScheduledCalls(ctx, user.ID, &dto.ListScheduledCallsRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Len(t, done.Calls, 1)

	_, err = flow.UpdateScheduledCall(ctx, user.ID, c1.ID, &dto.UpdateScheduledCallRequest{LeadID: &foreignLead.ID})
	assert.ErrorIs(t, err, ErrLeadNotFound)

	_, err = flow.UpdateScheduledCall(ctx, other.ID, c1.ID, &dto.UpdateScheduledCallRequest{Notes: utils.ToPtr("x")})
	assert.True(t, IsScheduledCallNotFound(err))

	_, err = flow.GetScheduledCall(ctx, other.ID, c2.ID)
	assert.True(t, IsScheduledCallNotFound(err))

	assert.True(t, IsScheduledCallNotFound(flow.DeleteScheduledCall(ctx, other.ID, c2.ID)))
	require.NoError(t, flow.DeleteScheduledCall(ctx, user.ID, c2.ID))

	left, err := flow.ListScheduledCalls(ctx, user.ID, &dto.ListScheduledCallsRequest{})
	require.NoError(t, err)
	assert.Len(t, left.Calls, 2)
}
