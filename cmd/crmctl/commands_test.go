package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/amirphl/ring-crm/app/callsession"
	"github.com/amirphl/ring-crm/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

// fakeAPI answers with canned envelopes keyed by "METHOD /path" (query excluded)
type fakeAPI struct {
	t        *testing.T
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, handlers: map[string]http.HandlerFunc{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   string(body),
			Auth:   r.Header.Get("Authorization"),
		})
		h, ok := f.handlers[r.Method+" "+r.URL.Path]
		f.mu.Unlock()

		if !ok {
			writeEnvelope(w, http.StatusNotFound, dto.APIResponse{Message: "Route not found", Error: dto.ErrorDetail{Code: "NOT_FOUND"}})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		h(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) handle(key string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[key] = h
}

func (f *fakeAPI) respond(key string, status int, data any) {
	f.handle(key, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, status, dto.APIResponse{Success: status < 300, Message: "ok", Data: data})
	})
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func writeEnvelope(w http.ResponseWriter, status int, resp dto.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// runCLI executes the root command against api with a private config file
func runCLI(t *testing.T, api *fakeAPI, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	return runCLIWithConfig(t, cfgPath, api, stdin, args...)
}

func runCLIWithConfig(t *testing.T, cfgPath string, api *fakeAPI, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := newRootCommand()
	cmd.SetArgs(append([]string{"--config", cfgPath, "--server", api.server.URL, "--no-color"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultServer, cfg.Server)
	assert.Equal(t, defaultTimeout, cfg.Timeout)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: https://crm.example.com\ntoken: abc\ntimeout: 5s\ndialer:\n  command: adb shell am start -d tel:{phone}\n"), 0o600))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://crm.example.com", cfg.Server)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, "5s", cfg.Timeout.String())
	assert.Equal(t, "adb shell am start -d tel:{phone}", cfg.Dialer.Command)

	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, saveConfig(path, &cliConfig{Server: "http://crm.local", Token: "tok", Timeout: defaultTimeout}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.Token)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /api/v1/leads/7", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, dto.APIResponse{Message: "Lead not found", Error: dto.ErrorDetail{Code: "LEAD_NOT_FOUND"}})
	})

	client := newAPIClient(&cliConfig{Server: api.server.URL, Token: "tok", Timeout: defaultTimeout})
	_, err := client.GetLead(context.Background(), 7)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "LEAD_NOT_FOUND", apiErr.Code)
	assert.Equal(t, "Bearer tok", api.recorded()[0].Auth)
}

func TestLoginCommand_StoresToken(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("POST /api/v1/auth/login", http.StatusOK, dto.AuthResponse{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		User:         dto.UserDTO{Email: "priya@example.com"},
	})
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, stderr, err := runCLIWithConfig(t, cfgPath, api, "s3cret\n", "login", "--email", "priya@example.com")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Logged in as priya@example.com")

	var body dto.LoginRequest
	require.NoError(t, json.Unmarshal([]byte(api.recorded()[0].Body), &body))
	assert.Equal(t, "s3cret", body.Password)

	cfg, err := loadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "access-1", cfg.Token)
	assert.Equal(t, "refresh-1", cfg.RefreshToken)
	assert.Equal(t, "priya@example.com", cfg.Email)
}

func TestLeadsCommands_RequireLogin(t *testing.T) {
	t.Setenv("CRMCTL_TOKEN", "")
	api := newFakeAPI(t)

	_, _, err := runCLI(t, api, "", "leads", "list")

	assert.ErrorContains(t, err, "not logged in")
	assert.Empty(t, api.recorded())
}

func TestLeadsListCommand(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("GET /api/v1/leads", http.StatusOK, dto.ListLeadsResponse{
		Leads: []dto.LeadDTO{
			{ID: 1, Name: "Acme Traders", Phone: "+91 98765 43210", Status: "new"},
			{ID: 2, Name: "Globex", Phone: "555-010-0002", Status: "contacted", LastCallOutcome: "busy"},
		},
		Total: 2, Page: 1, Limit: 50, TotalPages: 1,
	})

	stdout, stderr, err := runCLI(t, api, "", "--token", "tok", "leads", "list", "--search", "acme")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Acme Traders")
	assert.Contains(t, stdout, "busy")
	assert.Contains(t, stderr, "page 1 of 1, 2 leads")
	req := api.recorded()[0]
	assert.Equal(t, "/api/v1/leads?limit=50&page=1&search=acme", req.Path)
	assert.Equal(t, "Bearer tok", req.Auth)
}

func TestLeadsExportCommand(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /api/v1/leads/export-csv", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="leads_2025-03-01.csv"`)
		_, _ = w.Write([]byte("name,email,phone\nAcme,,5550100001\n"))
	})
	out := filepath.Join(t.TempDir(), "out.csv")

	_, _, err := runCLI(t, api, "", "--token", "tok", "leads", "export", "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "name,email,phone\nAcme,,5550100001\n", string(data))

	_, _, err = runCLI(t, api, "", "--token", "tok", "leads", "export", "--format", "pdf")
	assert.ErrorContains(t, err, "invalid format")
}

func TestLeadsImportCommand(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /api/v1/leads/import-csv", func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("file")
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, dto.APIResponse{Message: "no file"})
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		writeEnvelope(w, http.StatusOK, dto.APIResponse{Success: true, Data: dto.ImportResponse{
			Imported: strings.Count(string(data), "\n") - 1,
			Skipped:  1,
			Errors:   []dto.ImportRowError{{Line: 3, Message: fh.Filename + ": name is required"}},
		}})
	})
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,phone\nA,5550100001\nB,5550100002\n,5550100003\n"), 0o600))

	_, stderr, err := runCLI(t, api, "", "--token", "tok", "leads", "import", path)
	require.NoError(t, err)

	assert.Contains(t, stderr, "Imported 3 leads, skipped 1")
	assert.Contains(t, stderr, "line 3: leads.csv: name is required")
}

func TestRemindersCheckCommand(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("GET /api/v1/scheduled-calls/check-reminders", http.StatusOK, dto.CheckRemindersResponse{
		UpcomingCalls: []dto.UpcomingCallDTO{{ScheduledCallDTO: dto.ScheduledCallDTO{ID: 4, LeadName: "Globex"}, MinutesUntilCall: 12}},
		ReminderResults: []dto.ReminderResultDTO{
			{CallID: 4, Status: dto.ReminderStatusSuccess},
			{CallID: 5, Status: dto.ReminderStatusError, Error: "smtp down"},
		},
		Message: "Checked 2 upcoming calls",
	})

	stdout, stderr, err := runCLI(t, api, "", "--token", "tok", "reminders", "check")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Globex")
	assert.Contains(t, stdout, "reminder sent for call 4")
	assert.Contains(t, stderr, "call 5: smtp down")
	assert.Contains(t, stderr, "Checked 2 upcoming calls")
}

type stubDialer struct {
	mu     sync.Mutex
	phones []string
}

func (d *stubDialer) CanPlaceCall() bool { return true }

func (d *stubDialer) PlaceCall(ctx context.Context, phone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phones = append(d.phones, phone)
	return nil
}

func TestAutocallCommand_RunsSession(t *testing.T) {
	dialer := &stubDialer{}
	orig := newDialer
	newDialer = func(string) callsession.Dialer { return dialer }
	t.Cleanup(func() { newDialer = orig })

	api := newFakeAPI(t)
	api.respond("GET /api/v1/leads", http.StatusOK, dto.ListLeadsResponse{
		Leads: []dto.LeadDTO{
			{ID: 1, Name: "Acme", Phone: "+1 555 010 0001"},
			{ID: 2, Name: "Done", Phone: "5550100002", LastCallOutcome: "successful"},
			{ID: 3, Name: "Globex", Phone: "555-010-0003", LastCallOutcome: "busy"},
		},
		Total: 3, Page: 1, TotalPages: 1,
	})
	var nextCall uint
	api.handle("POST /api/v1/call-history/initiate", func(w http.ResponseWriter, r *http.Request) {
		var req dto.InitiateCallRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		nextCall++
		writeEnvelope(w, http.StatusCreated, dto.APIResponse{Success: true, Data: dto.CallHistoryDTO{ID: 100 + nextCall, LeadID: req.LeadID, Outcome: "in-progress"}})
	})
	for _, key := range []string{"PUT /api/v1/leads/1", "PUT /api/v1/leads/3", "PUT /api/v1/call-history/101/status", "PUT /api/v1/call-history/102/status"} {
		api.respond(key, http.StatusOK, map[string]any{})
	}

	stdout, _, err := runCLI(t, api, "s successful wants a demo\nk\n", "--token", "tok", "autocall", "--settle", "10ms")
	require.NoError(t, err)

	assert.Equal(t, []string{"+15550100001", "5550100003"}, dialer.phones)
	assert.Contains(t, stdout, "2 leads to call")
	assert.Contains(t, stdout, "Acme: successful")
	assert.Contains(t, stdout, "Globex: skipped")
	assert.Contains(t, stdout, "Auto-calling completed for all available leads")

	var paths []string
	for _, r := range api.recorded() {
		paths = append(paths, r.Method+" "+r.Path)
	}
	assert.Equal(t, []string{
		"GET /api/v1/leads?limit=1000&page=1",
		"POST /api/v1/call-history/initiate",
		"PUT /api/v1/leads/1",
		"PUT /api/v1/call-history/101/status",
		"POST /api/v1/call-history/initiate",
		"PUT /api/v1/leads/3",
		"PUT /api/v1/call-history/102/status",
	}, paths)

	var status dto.UpdateCallStatusRequest
	require.NoError(t, json.Unmarshal([]byte(api.recorded()[3].Body), &status))
	assert.Equal(t, "successful", *status.Outcome)
	assert.Equal(t, "wants a demo", *status.Notes)
}

func TestHandleLine(t *testing.T) {
	ctrl := callsession.NewController(callsession.Config{Store: nil, Dialer: &stubDialer{}})
	var out bytes.Buffer

	assert.NoError(t, handleLine(context.Background(), ctrl, "   ", &out))
	assert.ErrorIs(t, handleLine(context.Background(), ctrl, "q", &out), errQuit)
	assert.ErrorContains(t, handleLine(context.Background(), ctrl, "o", &out), "usage")
	assert.ErrorIs(t, handleLine(context.Background(), ctrl, "o busy", &out), callsession.ErrNoActiveCall)
	assert.ErrorContains(t, handleLine(context.Background(), ctrl, "x", &out), "unknown command")

	require.NoError(t, handleLine(context.Background(), ctrl, "t", &out))
	assert.Contains(t, out.String(), "idle")
}

func TestFormatSeconds(t *testing.T) {
	for in, want := range map[int]string{0: "00:00", 59: "00:59", 61: "01:01", 3600: "60:00"} {
		assert.Equal(t, want, formatSeconds(in), fmt.Sprint(in))
	}
}
