package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCallHistoryFlowForTest(env *flowEnv, now time.Time) CallHistoryFlow {
	flow := NewCallHistoryFlow(env.CallHistory, env.Leads, env.ScheduledCall).(*CallHistoryFlowImpl)
	flow.now = func() time.Time { return now }
	return flow
}

func TestCallHistoryFlow_InitiateCall(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	now := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)
	flow := newCallHistoryFlowForTest(env, now)

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	lead, err := env.Fixtures.CreateTestLead(user.ID, "Anand Hardware", "9876543210")
	require.NoError(t, err)

	tests := []struct {
		phone string
		valid bool
	}{
		{"+91 98765 43210", true},
		{"(022) 2345-6789", true},
		{"9876543210", true},
		{"98765abc", false},
		{"", false},
		{"+", false},
		{"tel:9876543210", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			rec, err := flow.InitiateCall(ctx, user.ID, &dto.InitiateCallRequest{LeadID: lead.ID, PhoneNumber: tt.phone, DeviceInfo: "test"})
			if !tt.valid {
				assert.True(t, IsInvalidPhone(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(models.CallOutcomeInProgress), rec.Outcome)
			assert.Zero(t, rec.DurationSeconds)
			assert.True(t, rec.ActualStartTime.Equal(now))
			assert.Equal(t, "Anand Hardware", rec.LeadName)
		})
	}

	other, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	_, err = flow.InitiateCall(ctx, other.ID, &dto.InitiateCallRequest{LeadID: lead.ID, PhoneNumber: "123"})
	assert.ErrorIs(t, err, ErrLeadNotFound)

	missing := uint(9999)
	_, err = flow.InitiateCall(ctx, user.ID, &dto.InitiateCallRequest{LeadID: lead.ID, PhoneNumber: "123", ScheduledCallID: &missing})
	assert.ErrorIs(t, err, ErrScheduledCallNotFound)
}

func TestCallHistoryFlow_UpdateCallStatus(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	flow := newCallHistoryFlowForTest(env, time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC))

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	lead, err := env.Fixtures.CreateTestLead(user.ID, "Lead", "1")
	require.NoError(t, err)

	rec, err := flow.InitiateCall(ctx, user.ID, &dto.InitiateCallRequest{LeadID: lead.ID, PhoneNumber: "12345"})
	require.NoError(t, err)

	followUp := time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC)
	updated, err := flow.UpdateCallStatus(ctx, user.ID, rec.ID, &dto.UpdateCallStatusRequest{
		Outcome:          utils.ToPtr("successful"),
		DurationSeconds:  utils.ToPtr(185),
		Notes:            utils.ToPtr(" agreed to demo "),
		FollowUpRequired: utils.ToPtr(true),
		FollowUpDate:     &followUp,
	})
	require.NoError(t, err)
	assert.Equal(t, "successful", updated.Outcome)
	assert.Equal(t, 185, updated.DurationSeconds)
	assert.Equal(t, "agreed to demo", updated.Notes)
	assert.True(t, updated.FollowUpRequired)
	require.NotNil(t, updated.FollowUpDate)
	assert.True(t, updated.FollowUpDate.Equal(followUp))

	_, err = flow.UpdateCallStatus(ctx, user.ID, rec.ID, &dto.UpdateCallStatusRequest{Outcome: utils.ToPtr("exploded")})
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	_, err = flow.UpdateCallStatus(ctx, user.ID, rec.ID, &dto.UpdateCallStatusRequest{Outcome: utils.ToPtr(string(models.CallOutcomeInProgress))})
	assert.ErrorIs(t, err, ErrInvalidOutcome)
	stored, err := env.CallHistory.ByID(ctx, user.ID, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.CallOutcomeSuccessful, stored.Outcome)

	other, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	_, err = flow.UpdateCallStatus(ctx, other.ID, rec.ID, &dto.UpdateCallStatusRequest{Outcome: utils.ToPtr("busy")})
	assert.True(t, IsCallNotFound(err))
	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "Call not found or not authorized", be.Message)
}

func TestCallHistoryFlow_CreateAndList(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	flow := newCallHistoryFlowForTest(env, time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	anand, err := env.Fixtures.CreateTestLead(user.ID, "Anand Hardware", "1")
	require.NoError(t, err)
	zara, err := env.Fixtures.CreateTestLead(user.ID, "Zara Foods", "2")
	require.NoError(t, err)

	day1 := time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 5, 2, 11, 0, 0, 0, time.UTC)

	created, err := flow.CreateCallHistory(ctx, user.ID, &dto.CreateCallHistoryRequest{
		LeadID:          anand.ID,
		ActualStartTime: &day1,
		DurationSeconds: 60,
		Outcome:         "no-answer",
	})
	require.NoError(t, err)
	assert.Equal(t, "Anand Hardware", created.LeadName)

	_, err = env.Fixtures.CreateTestCallHistory(user.ID, zara.ID, day2, models.CallOutcomeSuccessful)
	require.NoError(t, err)

	_, err = flow.CreateCallHistory(ctx, user.ID, &dto.CreateCallHistoryRequest{LeadID: anand.ID, Outcome: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	all, err := flow.ListCallHistory(ctx, user.ID, &dto.ListCallHistoryRequest{})
	require.NoError(t, err)
	require.Len(t, all.Calls, 2)
	assert.Equal(t, "Zara Foods", all.Calls[0].LeadName)
	assert.Equal(t, "Anand Hardware", all.Calls[1].LeadName)

	byName, err := flow.ListCallHistory(ctx, user.ID, &dto.ListCallHistoryRequest{LeadName: "anand"})
	require.NoError(t, err)
	require.Len(t, byName.Calls, 1)
	assert.Equal(t, created.ID, byName.Calls[0].ID)

	byOutcome, err := flow.ListCallHistory(ctx, user.ID, &dto.ListCallHistoryRequest{Outcome: "successful"})
	require.NoError(t, err)
	require.Len(t, byOutcome.Calls, 1)
	assert.Equal(t, zara.ID, byOutcome.Calls[0].LeadID)

	byDay, err := flow.ListCallHistory(ctx, user.ID, &dto.ListCallHistoryRequest{StartDate: "2025-05-01", EndDate: "2025-05-01"})
	require.NoError(t, err)
	require.Len(t, byDay.Calls, 1)
	assert.Equal(t, anand.ID, byDay.Calls[0].LeadID)

	other, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	none, err := flow.ListCallHistory(ctx, other.ID, &dto.ListCallHistoryRequest{})
	require.NoError(t, err)
	assert.Empty(t, none.Calls)
}
