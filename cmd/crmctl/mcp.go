package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve CRM tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireLogin(); err != nil {
				return err
			}
			stdio := server.NewStdioServer(newMCPServer(opts.client()))
			err := stdio.Listen(cmd.Context(), os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

// newMCPServer exposes lead, call and reminder operations as MCP tools
func newMCPServer(client *apiClient) *server.MCPServer {
	s := server.NewMCPServer(
		"crmctl",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("CRM tools: look up leads, log calls, schedule follow-ups and send due reminders."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_leads",
			mcp.WithDescription("List leads, optionally filtered by a search term or status."),
			mcp.WithString("search", mcp.Description("Matches name, email or phone")),
			mcp.WithString("status", mcp.Description("new, contacted, qualified, lost, converted or in-progress")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of leads (default 20)")),
		),
		mcpListLeads(client),
	)

	s.AddTool(
		mcp.NewTool("next_lead",
			mcp.WithDescription("Return the lead after the given one in ID order, or the first lead."),
			mcp.WithNumber("after_id", mcp.Description("ID of the last lead handled")),
		),
		mcpNextLead(client),
	)

	s.AddTool(
		mcp.NewTool("log_call",
			mcp.WithDescription("Record a finished call and update the lead's last outcome."),
			mcp.WithNumber("lead_id", mcp.Description("Lead that was called"), mcp.Required()),
			mcp.WithString("outcome", mcp.Description("completed, successful, no-answer, wrong-number, busy, rescheduled, cancelled or skipped"), mcp.Required()),
			mcp.WithString("notes", mcp.Description("Call notes")),
			mcp.WithNumber("duration_seconds", mcp.Description("Call length in seconds")),
		),
		mcpLogCall(client),
	)

	s.AddTool(
		mcp.NewTool("schedule_call",
			mcp.WithDescription("Schedule a call with a lead, with an optional email reminder."),
			mcp.WithNumber("lead_id", mcp.Description("Lead to call"), mcp.Required()),
			mcp.WithString("scheduled_time", mcp.Description("RFC 3339 time, e.g. 2025-05-02T09:30:00Z"), mcp.Required()),
			mcp.WithString("notes", mcp.Description("Agenda")),
			mcp.WithString("email", mcp.Description("Reminder recipient")),
			mcp.WithNumber("reminder_minutes", mcp.Description("Minutes before the call to send the reminder (default 15)")),
		),
		mcpScheduleCall(client),
	)

	s.AddTool(
		mcp.NewTool("call_history",
			mcp.WithDescription("List recorded calls, newest first."),
			mcp.WithNumber("lead_id", mcp.Description("Only calls with this lead")),
			mcp.WithString("outcome", mcp.Description("Only calls with this outcome")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of calls (default 20)")),
		),
		mcpCallHistory(client),
	)

	s.AddTool(
		mcp.NewTool("check_reminders",
			mcp.WithDescription("Send reminders that are due and list calls in the next 30 minutes."),
		),
		mcpCheckReminders(client),
	)

	return s
}

func clampLimit(n int) int {
	if n <= 0 {
		return 20
	}
	if n > 200 {
		return 200
	}
	return n
}

func mcpListLeads(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := client.ListLeads(ctx, dto.ListLeadsRequest{
			Search: req.GetString("search", ""),
			Status: req.GetString("status", ""),
			Page:   1,
			Limit:  clampLimit(req.GetInt("limit", 20)),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("list leads failed: %v", err)), nil
		}
		return mcpJSON(resp.Leads)
	}
}

func mcpNextLead(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lead, err := client.NextLead(ctx, uint(max(req.GetInt("after_id", 0), 0)))
		if err != nil {
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == 404 {
				return mcpText("No more leads."), nil
			}
			return mcpError(fmt.Sprintf("next lead failed: %v", err)), nil
		}
		return mcpJSON(lead)
	}
}

func mcpLogCall(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		leadID := req.GetInt("lead_id", 0)
		if leadID <= 0 {
			return mcpError("lead_id is required"), nil
		}
		outcome, err := req.RequireString("outcome")
		if err != nil || !models.CallOutcome(outcome).Terminal() {
			return mcpError("outcome must be a finished call outcome"), nil
		}
		notes := req.GetString("notes", "")

		record, err := client.CreateCallHistory(ctx, &dto.CreateCallHistoryRequest{
			LeadID:          uint(leadID),
			Outcome:         outcome,
			Notes:           notes,
			DurationSeconds: max(req.GetInt("duration_seconds", 0), 0),
			DeviceInfo:      "crmctl/mcp",
		})
		if err != nil {
			return mcpError(fmt.Sprintf("log call failed: %v", err)), nil
		}
		if _, err := client.UpdateLead(ctx, uint(leadID), &dto.UpdateLeadRequest{LastCallOutcome: &outcome, LastCallNotes: &notes}); err != nil {
			return mcpError(fmt.Sprintf("call %d saved but lead update failed: %v", record.ID, err)), nil
		}
		return mcpText(fmt.Sprintf("Logged call %d with lead %d as %s", record.ID, leadID, outcome)), nil
	}
}

func mcpScheduleCall(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		leadID := req.GetInt("lead_id", 0)
		if leadID <= 0 {
			return mcpError("lead_id is required"), nil
		}
		raw, err := req.RequireString("scheduled_time")
		if err != nil {
			return mcpError("scheduled_time is required"), nil
		}
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcpError("scheduled_time must be RFC 3339"), nil
		}

		call := &dto.CreateScheduledCallRequest{
			LeadID:              uint(leadID),
			ScheduledTime:       at,
			Notes:               req.GetString("notes", ""),
			ReminderTimeMinutes: req.GetInt("reminder_minutes", 15),
		}
		if email := req.GetString("email", ""); email != "" {
			enabled := true
			call.EmailEnabled = &enabled
			call.EmailAddress = email
		}

		created, err := client.CreateScheduledCall(ctx, call)
		if err != nil {
			return mcpError(fmt.Sprintf("schedule call failed: %v", err)), nil
		}
		return mcpJSON(created)
	}
}

func mcpCallHistory(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := client.ListCallHistory(ctx, dto.ListCallHistoryRequest{
			LeadID:  uint(max(req.GetInt("lead_id", 0), 0)),
			Outcome: req.GetString("outcome", ""),
			Limit:   clampLimit(req.GetInt("limit", 20)),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("call history failed: %v", err)), nil
		}
		return mcpJSON(resp.Calls)
	}
}

func mcpCheckReminders(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := client.CheckReminders(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("check reminders failed: %v", err)), nil
		}
		return mcpJSON(resp)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
