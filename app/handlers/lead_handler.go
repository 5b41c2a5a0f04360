package handlers

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/gofiber/fiber/v3"
)

// LeadHandlerInterface defines the contract for lead handlers
type LeadHandlerInterface interface {
	CreateLead(c fiber.Ctx) error
	ListLeads(c fiber.Ctx) error
	GetLead(c fiber.Ctx) error
	UpdateLead(c fiber.Ctx) error
	DeleteLead(c fiber.Ctx) error
	BulkDeleteLeads(c fiber.Ctx) error
	NextLead(c fiber.Ctx) error
	ImportCSV(c fiber.Ctx) error
	ImportCSVText(c fiber.Ctx) error
	ExportCSV(c fiber.Ctx) error
	ExportXLSX(c fiber.Ctx) error
}

// LeadHandler serves the lead book of the authenticated user
type LeadHandler struct {
	baseHandler
	flow businessflow.LeadFlow
}

func NewLeadHandler(flow businessflow.LeadFlow, logger *log.Logger) *LeadHandler {
	return &LeadHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// CreateLead adds a lead
// @Summary Create lead
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateLeadRequest true "Lead"
// @Success 201 {object} dto.APIResponse{data=dto.LeadDTO} "Lead created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/leads [post]
func (h *LeadHandler) CreateLead(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.CreateLeadRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads")
	defer cancel()

	lead, err := h.flow.CreateLead(ctx, userID, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "CREATE_LEAD_FAILED", "Failed to create lead")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Lead created successfully", lead)
}

// ListLeads returns a page of leads
// @Summary List leads
// @Description Search matches name, email, phone and notes
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search text"
// @Param status query string false "Lead status"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(100)
// @Success 200 {object} dto.APIResponse{data=dto.ListLeadsResponse} "Leads retrieved"
// @Router /api/v1/leads [get]
func (h *LeadHandler) ListLeads(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.ListLeadsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads")
	defer cancel()

	resp, err := h.flow.ListLeads(ctx, userID, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "LIST_LEADS_FAILED", "Failed to list leads")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Leads retrieved successfully", resp)
}

// GetLead returns one lead
// @Summary Get lead
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO} "Lead retrieved"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) GetLead(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id")
	defer cancel()

	lead, err := h.flow.GetLead(ctx, userID, id)
	if err != nil {
		return h.HandleBusinessError(c, err, "GET_LEAD_FAILED", "Failed to get lead")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead retrieved successfully", lead)
}

// UpdateLead applies a partial update
// @Summary Update lead
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param request body dto.UpdateLeadRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO} "Lead updated"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/leads/{id} [put]
func (h *LeadHandler) UpdateLead(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}
	var req dto.UpdateLeadRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id")
	defer cancel()

	lead, err := h.flow.UpdateLead(ctx, userID, id, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "UPDATE_LEAD_FAILED", "Failed to update lead")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead updated successfully", lead)
}

// DeleteLead removes a lead
// @Summary Delete lead
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse "Lead deleted"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/leads/{id} [delete]
func (h *LeadHandler) DeleteLead(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id")
	defer cancel()

	if err := h.flow.DeleteLead(ctx, userID, id); err != nil {
		return h.HandleBusinessError(c, err, "DELETE_LEAD_FAILED", "Failed to delete lead")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead deleted successfully", nil)
}

// BulkDeleteLeads deletes the listed leads that belong to the caller
// @Summary Bulk delete leads
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkDeleteRequest true "Lead IDs"
// @Success 200 {object} dto.APIResponse{data=dto.BulkDeleteResponse} "Leads deleted"
// @Router /api/v1/leads/bulk/delete [delete]
func (h *LeadHandler) BulkDeleteLeads(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.BulkDeleteRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/bulk/delete")
	defer cancel()

	resp, err := h.flow.BulkDeleteLeads(ctx, userID, &req, h.metadata(c))
	if err != nil {
		return h.HandleBusinessError(c, err, "BULK_DELETE_FAILED", "Failed to delete leads")
	}
	return h.SuccessResponse(c, fiber.StatusOK, fmt.Sprintf("%d leads deleted", resp.Deleted), resp)
}

// NextLead returns the lead following last_lead_id in ID order
// @Summary Next lead
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param last_lead_id query int false "ID of the previous lead"
// @Success 200 {object} dto.APIResponse{data=dto.NextLeadResponse} "Next lead"
// @Failure 404 {object} dto.APIResponse "No more leads"
// @Router /api/v1/leads/next [get]
func (h *LeadHandler) NextLead(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}

	var afterID *uint
	if raw := c.Query("last_lead_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid last_lead_id", "INVALID_ID", nil)
		}
		v := uint(id)
		afterID = &v
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/next")
	defer cancel()

	resp, err := h.flow.NextLead(ctx, userID, afterID)
	if err != nil {
		return h.HandleBusinessError(c, err, "NEXT_LEAD_FAILED", "Failed to get next lead")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Next lead retrieved", resp)
}

// ImportCSV imports leads from an uploaded file
// @Summary Import leads from CSV file
// @Tags Leads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file with a name column"
// @Success 200 {object} dto.APIResponse{data=dto.ImportResponse} "Import finished"
// @Failure 400 {object} dto.APIResponse "Invalid CSV"
// @Router /api/v1/leads/import-csv [post]
func (h *LeadHandler) ImportCSV(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "CSV file is required", "FILE_REQUIRED", nil)
	}
	file, err := fh.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read uploaded file", "FILE_UNREADABLE", nil)
	}
	defer file.Close()

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/import-csv")
	defer cancel()

	resp, err := h.flow.ImportCSV(ctx, userID, file, h.metadata(c))
	if err != nil {
		return h.HandleBusinessError(c, err, "IMPORT_FAILED", "Failed to import leads")
	}
	return h.SuccessResponse(c, fiber.StatusOK, fmt.Sprintf("%d leads imported", resp.Imported), resp)
}

// ImportCSVText imports leads from CSV pasted as text
// @Summary Import leads from CSV text
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ImportCSVTextRequest true "CSV text"
// @Success 200 {object} dto.APIResponse{data=dto.ImportResponse} "Import finished"
// @Failure 400 {object} dto.APIResponse "Invalid CSV"
// @Router /api/v1/leads/import-csv-text [post]
func (h *LeadHandler) ImportCSVText(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.ImportCSVTextRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/import-csv-text")
	defer cancel()

	resp, err := h.flow.ImportCSV(ctx, userID, strings.NewReader(req.CSV), h.metadata(c))
	if err != nil {
		return h.HandleBusinessError(c, err, "IMPORT_FAILED", "Failed to import leads")
	}
	return h.SuccessResponse(c, fiber.StatusOK, fmt.Sprintf("%d leads imported", resp.Imported), resp)
}

// ExportCSV downloads every lead as CSV
// @Summary Export leads as CSV
// @Tags Leads
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file "CSV attachment"
// @Failure 404 {object} dto.APIResponse "No leads"
// @Router /api/v1/leads/export-csv [get]
func (h *LeadHandler) ExportCSV(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/export-csv")
	defer cancel()

	name, data, err := h.flow.ExportCSV(ctx, userID)
	if err != nil {
		return h.HandleBusinessError(c, err, "EXPORT_FAILED", "Failed to export leads")
	}
	return sendAttachment(c, "text/csv; charset=utf-8", name, data)
}

// ExportXLSX downloads every lead as a spreadsheet
// @Summary Export leads as XLSX
// @Tags Leads
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "XLSX attachment"
// @Failure 404 {object} dto.APIResponse "No leads"
// @Router /api/v1/leads/export-xlsx [get]
func (h *LeadHandler) ExportXLSX(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/export-xlsx")
	defer cancel()

	name, data, err := h.flow.ExportXLSX(ctx, userID)
	if err != nil {
		return h.HandleBusinessError(c, err, "EXPORT_FAILED", "Failed to export leads")
	}
	return sendAttachment(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", name, data)
}

func sendAttachment(c fiber.Ctx, contentType, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(data)
}
