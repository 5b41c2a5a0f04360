package handlers

import (
	"log"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/gofiber/fiber/v3"
)

type CallHistoryHandlerInterface interface {
	CreateCallHistory(c fiber.Ctx) error
	ListCallHistory(c fiber.Ctx) error
	InitiateCall(c fiber.Ctx) error
	UpdateCallStatus(c fiber.Ctx) error
}

// CallHistoryHandler records and lists calls that were made
type CallHistoryHandler struct {
	baseHandler
	flow businessflow.CallHistoryFlow
}

func NewCallHistoryHandler(flow businessflow.CallHistoryFlow, logger *log.Logger) *CallHistoryHandler {
	return &CallHistoryHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// CreateCallHistory records a finished call
// @Summary Record call
// @Tags Call History
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCallHistoryRequest true "Call record"
// @Success 201 {object} dto.APIResponse{data=dto.CallHistoryDTO} "Call recorded"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/call-history [post]
func (h *CallHistoryHandler) CreateCallHistory(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.CreateCallHistoryRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/call-history")
	defer cancel()

	record, err := h.flow.CreateCallHistory(ctx, userID, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "CREATE_CALL_HISTORY_FAILED", "Failed to record call")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Call recorded successfully", record)
}

// ListCallHistory returns call records, newest first
// @Summary List call history
// @Tags Call History
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Param outcome query string false "Outcome"
// @Param lead_name query string false "Lead name contains"
// @Param lead_id query int false "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListCallHistoryResponse} "Call history retrieved"
// @Router /api/v1/call-history [get]
func (h *CallHistoryHandler) ListCallHistory(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.ListCallHistoryRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/call-history")
	defer cancel()

	resp, err := h.flow.ListCallHistory(ctx, userID, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "LIST_CALL_HISTORY_FAILED", "Failed to list call history")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Call history retrieved successfully", resp)
}

// InitiateCall opens an in-progress record before the device dials
// @Summary Initiate call
// @Tags Call History
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InitiateCallRequest true "Lead and number to dial"
// @Success 201 {object} dto.APIResponse{data=dto.CallHistoryDTO} "Call initiated"
// @Failure 400 {object} dto.APIResponse "Invalid phone number"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/call-history/initiate [post]
func (h *CallHistoryHandler) InitiateCall(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.InitiateCallRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/call-history/initiate")
	defer cancel()

	record, err := h.flow.InitiateCall(ctx, userID, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "INITIATE_CALL_FAILED", "Failed to initiate call")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Call initiated successfully", record)
}

// UpdateCallStatus resolves a call record
// @Summary Update call status
// @Tags Call History
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Call record ID"
// @Param request body dto.UpdateCallStatusRequest true "Outcome and notes"
// @Success 200 {object} dto.APIResponse{data=dto.CallHistoryDTO} "Call updated"
// @Failure 404 {object} dto.APIResponse "Call record not found"
// @Router /api/v1/call-history/{id}/status [put]
func (h *CallHistoryHandler) UpdateCallStatus(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}
	var req dto.UpdateCallStatusRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/call-history/:id/status")
	defer cancel()

	record, err := h.flow.UpdateCallStatus(ctx, userID, id, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "UPDATE_CALL_STATUS_FAILED", "Failed to update call status")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Call status updated successfully", record)
}
