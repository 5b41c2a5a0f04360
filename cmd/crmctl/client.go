package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amirphl/ring-crm/app/dto"
)

const apiPrefix = "/api/v1"

// apiClient talks to the CRM API on behalf of the logged-in user. It implements
// callsession.Store.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newAPIClient(cfg *cliConfig) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(cfg.Server, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// apiError is a non-2xx answer carrying the API error envelope
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("%s [%s] (HTTP %d)", e.Message, e.Code, e.Status)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   dto.ErrorDetail `json:"error"`
}

func (c *apiClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *apiClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable at %s: %w", c.baseURL, err)
	}
	return resp, nil
}

// decode unwraps the response envelope into out
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return &apiError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Code: env.Error.Code, Message: msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *apiClient) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) ListLeads(ctx context.Context, req dto.ListLeadsRequest) (*dto.ListLeadsResponse, error) {
	q := url.Values{}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Status != "" {
		q.Set("status", req.Status)
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	path := "/leads"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out dto.ListLeadsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AllLeads walks every page of the lead list
func (c *apiClient) AllLeads(ctx context.Context) ([]dto.LeadDTO, error) {
	var leads []dto.LeadDTO
	for page := 1; ; page++ {
		resp, err := c.ListLeads(ctx, dto.ListLeadsRequest{Page: page, Limit: 1000})
		if err != nil {
			return nil, err
		}
		leads = append(leads, resp.Leads...)
		if page >= resp.TotalPages || len(resp.Leads) == 0 {
			return leads, nil
		}
	}
}

func (c *apiClient) NextLead(ctx context.Context, afterID uint) (*dto.LeadDTO, error) {
	path := "/leads/next"
	if afterID > 0 {
		path += "?last_lead_id=" + strconv.FormatUint(uint64(afterID), 10)
	}
	var out dto.NextLeadResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Lead, nil
}

// ImportLeads uploads a CSV file as multipart form field "file"
func (c *apiClient) ImportLeads(ctx context.Context, filename string, r io.Reader) (*dto.ImportResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/leads/import-csv", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	var out dto.ImportResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportLeads downloads the csv or xlsx export and returns the server-chosen filename
func (c *apiClient) ExportLeads(ctx context.Context, format string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/leads/export-"+format, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", decode(resp, nil)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading export: %w", err)
	}
	name := "leads." + format
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return data, name, nil
}

func (c *apiClient) CheckReminders(ctx context.Context) (*dto.CheckRemindersResponse, error) {
	var out dto.CheckRemindersResponse
	if err := c.do(ctx, http.MethodGet, "/scheduled-calls/check-reminders", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) CreateScheduledCall(ctx context.Context, req *dto.CreateScheduledCallRequest) (*dto.ScheduledCallDTO, error) {
	var out dto.ScheduledCallDTO
	if err := c.do(ctx, http.MethodPost, "/scheduled-calls", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) ListCallHistory(ctx context.Context, req dto.ListCallHistoryRequest) (*dto.ListCallHistoryResponse, error) {
	q := url.Values{}
	if req.Outcome != "" {
		q.Set("outcome", req.Outcome)
	}
	if req.LeadName != "" {
		q.Set("lead_name", req.LeadName)
	}
	if req.LeadID > 0 {
		q.Set("lead_id", strconv.FormatUint(uint64(req.LeadID), 10))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	path := "/call-history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out dto.ListCallHistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) CreateCallHistory(ctx context.Context, req *dto.CreateCallHistoryRequest) (*dto.CallHistoryDTO, error) {
	var out dto.CallHistoryDTO
	if err := c.do(ctx, http.MethodPost, "/call-history", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) InitiateCall(ctx context.Context, req *dto.InitiateCallRequest) (*dto.CallHistoryDTO, error) {
	var out dto.CallHistoryDTO
	if err := c.do(ctx, http.MethodPost, "/call-history/initiate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) UpdateCallStatus(ctx context.Context, callID uint, req *dto.UpdateCallStatusRequest) (*dto.CallHistoryDTO, error) {
	var out dto.CallHistoryDTO
	path := fmt.Sprintf("/call-history/%d/status", callID)
	if err := c.do(ctx, http.MethodPut, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) UpdateLead(ctx context.Context, leadID uint, req *dto.UpdateLeadRequest) (*dto.LeadDTO, error) {
	var out dto.LeadDTO
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/leads/%d", leadID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) GetLead(ctx context.Context, id uint) (*dto.LeadDTO, error) {
	var out dto.LeadDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/leads/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
