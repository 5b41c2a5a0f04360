package callsession

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	testingutil "github.com/amirphl/ring-crm/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowStore_SessionPersistsOutcomes(t *testing.T) {
	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })
	fixtures := testingutil.NewTestFixtures(tdb)

	owner, err := fixtures.CreateTestUser()
	require.NoError(t, err)
	other, err := fixtures.CreateTestUser()
	require.NoError(t, err)
	first, err := fixtures.CreateTestLead(owner.ID, "First", "+1 555 010 0001")
	require.NoError(t, err)
	second, err := fixtures.CreateTestLead(owner.ID, "Second", "555 010 0002")
	require.NoError(t, err)

	leadRepo := repository.NewLeadRepository(tdb.DB)
	leadFlow := businessflow.NewLeadFlow(leadRepo, repository.NewAuditLogRepository(tdb.DB), tdb.DB)
	historyFlow := businessflow.NewCallHistoryFlow(
		repository.NewCallHistoryRepository(tdb.DB), leadRepo, repository.NewScheduledCallRepository(tdb.DB))

	ctx := context.Background()
	listed, err := leadFlow.ListLeads(ctx, owner.ID, &dto.ListLeadsRequest{})
	require.NoError(t, err)

	clock := NewManualClock(time.Now())
	ctrl := NewController(Config{
		Store:  NewFlowStore(owner.ID, leadFlow, historyFlow),
		Dialer: &fakeDialer{available: true},
		Clock:  clock,
	})

	require.NoError(t, ctrl.Start(ctx, listed.Leads))
	firstID := ctrl.Status().Lead.ID
	clock.Advance(42 * time.Second)
	require.NoError(t, ctrl.SaveNotes(ctx, SaveRequest{Outcome: "successful", Notes: "wants a demo"}))
	clock.Advance(DefaultSettleDelay)
	require.NoError(t, ctrl.Skip(ctx))
	clock.Advance(DefaultSettleDelay)
	require.Equal(t, Stopped, ctrl.Status().State)

	got, err := leadFlow.GetLead(ctx, owner.ID, firstID)
	require.NoError(t, err)
	assert.Equal(t, "successful", got.LastCallOutcome)
	assert.Equal(t, "wants a demo", got.LastCallNotes)

	history, err := historyFlow.ListCallHistory(ctx, owner.ID, &dto.ListCallHistoryRequest{})
	require.NoError(t, err)
	require.Len(t, history.Calls, 2)
	byLead := map[uint]dto.CallHistoryDTO{}
	for _, c := range history.Calls {
		byLead[c.LeadID] = c
	}
	assert.Equal(t, string(models.CallOutcomeSuccessful), byLead[firstID].Outcome)
	assert.Equal(t, 42, byLead[firstID].DurationSeconds)
	for _, id := range []uint{first.ID, second.ID} {
		assert.NotEqual(t, string(models.CallOutcomeInProgress), byLead[id].Outcome)
	}

	// another user's store cannot touch these leads
	foreign := NewFlowStore(other.ID, leadFlow, historyFlow)
	outcome := "busy"
	_, err = foreign.UpdateLead(ctx, first.ID, &dto.UpdateLeadRequest{LastCallOutcome: &outcome})
	assert.True(t, businessflow.IsNotFound(err))
}
