package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func testClient(api *fakeAPI) *apiClient {
	return newAPIClient(&cliConfig{Server: api.server.URL, Token: "tok", Timeout: defaultTimeout})
}

func TestMCPListLeads(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("GET /api/v1/leads", http.StatusOK, dto.ListLeadsResponse{
		Leads: []dto.LeadDTO{{ID: 1, Name: "Acme"}}, Total: 1, Page: 1, TotalPages: 1,
	})

	res, err := mcpListLeads(testClient(api))(context.Background(), toolRequest("list_leads", map[string]any{
		"search": "ac",
		"limit":  float64(500),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var leads []dto.LeadDTO
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &leads))
	assert.Equal(t, "Acme", leads[0].Name)
	assert.Equal(t, "/api/v1/leads?limit=200&page=1&search=ac", api.recorded()[0].Path)
}

func TestMCPLogCall(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("POST /api/v1/call-history", http.StatusCreated, dto.CallHistoryDTO{ID: 9, LeadID: 4, Outcome: "busy"})
	api.respond("PUT /api/v1/leads/4", http.StatusOK, dto.LeadDTO{ID: 4, LastCallOutcome: "busy"})
	handler := mcpLogCall(testClient(api))

	res, err := handler(context.Background(), toolRequest("log_call", map[string]any{
		"lead_id":          float64(4),
		"outcome":          "busy",
		"notes":            "try after lunch",
		"duration_seconds": float64(35),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Logged call 9 with lead 4 as busy", resultText(t, res))

	var created dto.CreateCallHistoryRequest
	require.NoError(t, json.Unmarshal([]byte(api.recorded()[0].Body), &created))
	assert.Equal(t, 35, created.DurationSeconds)
	assert.Equal(t, "try after lunch", created.Notes)

	res, err = handler(context.Background(), toolRequest("log_call", map[string]any{"lead_id": float64(4), "outcome": "in-progress"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMCPNextLead_EndOfList(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /api/v1/leads/next", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, dto.APIResponse{Message: "No more leads", Error: dto.ErrorDetail{Code: "NO_MORE_LEADS"}})
	})

	res, err := mcpNextLead(testClient(api))(context.Background(), toolRequest("next_lead", map[string]any{"after_id": float64(12)}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "No more leads.", resultText(t, res))
	assert.Equal(t, "/api/v1/leads/next?last_lead_id=12", api.recorded()[0].Path)
}

func TestMCPScheduleCall_ValidatesTime(t *testing.T) {
	api := newFakeAPI(t)
	handler := mcpScheduleCall(testClient(api))

	res, err := handler(context.Background(), toolRequest("schedule_call", map[string]any{
		"lead_id":        float64(3),
		"scheduled_time": "tomorrow",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, api.recorded())

	api.respond("POST /api/v1/scheduled-calls", http.StatusCreated, dto.ScheduledCallDTO{ID: 11, LeadID: 3})
	res, err = handler(context.Background(), toolRequest("schedule_call", map[string]any{
		"lead_id":        float64(3),
		"scheduled_time": "2025-05-02T09:30:00Z",
		"email":          "me@example.com",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var sent dto.CreateScheduledCallRequest
	require.NoError(t, json.Unmarshal([]byte(api.recorded()[0].Body), &sent))
	assert.Equal(t, "me@example.com", sent.EmailAddress)
	assert.True(t, *sent.EmailEnabled)
	assert.Equal(t, 15, sent.ReminderTimeMinutes)
}

func TestNewMCPServer_RegistersTools(t *testing.T) {
	api := newFakeAPI(t)
	s := newMCPServer(testClient(api))

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"list_leads", "next_lead", "log_call", "schedule_call", "call_history", "check_reminders"} {
		assert.Contains(t, string(raw), `"name":"`+name+`"`)
	}
}
