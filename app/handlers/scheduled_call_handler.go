package handlers

import (
	"log"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/gofiber/fiber/v3"
)

// ScheduledCallHandlerInterface defines the contract for scheduled call handlers
type ScheduledCallHandlerInterface interface {
	CreateScheduledCall(c fiber.Ctx) error
	ListScheduledCalls(c fiber.Ctx) error
	GetScheduledCall(c fiber.Ctx) error
	UpdateScheduledCall(c fiber.Ctx) error
	DeleteScheduledCall(c fiber.Ctx) error
	CheckReminders(c fiber.Ctx) error
}

// ScheduledCallHandler serves planned calls and the on-demand reminder scan
type ScheduledCallHandler struct {
	baseHandler
	flow         businessflow.ScheduledCallFlow
	reminderFlow businessflow.ReminderFlow
}

func NewScheduledCallHandler(flow businessflow.ScheduledCallFlow, reminderFlow businessflow.ReminderFlow, logger *log.Logger) *ScheduledCallHandler {
	return &ScheduledCallHandler{
		baseHandler:  newBaseHandler(logger),
		flow:         flow,
		reminderFlow: reminderFlow,
	}
}

// CreateScheduledCall plans a call with a lead
// @Summary Schedule call
// @Tags Scheduled Calls
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateScheduledCallRequest true "Call plan"
// @Success 201 {object} dto.APIResponse{data=dto.ScheduledCallDTO} "Call scheduled"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/scheduled-calls [post]
func (h *ScheduledCallHandler) CreateScheduledCall(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.CreateScheduledCallRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/scheduled-calls")
	defer cancel()

	call, err := h.flow.CreateScheduledCall(ctx, userID, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "SCHEDULE_CALL_FAILED", "Failed to schedule call")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Call scheduled successfully", call)
}

// ListScheduledCalls lists planned calls in time order
// @Summary List scheduled calls
// @Tags Scheduled Calls
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} dto.APIResponse{data=dto.ListScheduledCallsResponse} "Calls retrieved"
// @Router /api/v1/scheduled-calls [get]
func (h *ScheduledCallHandler) ListScheduledCalls(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.ListScheduledCallsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/scheduled-calls")
	defer cancel()

	resp, err := h.flow.ListScheduledCalls(ctx, userID, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "LIST_SCHEDULED_CALLS_FAILED", "Failed to list scheduled calls")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Scheduled calls retrieved successfully", resp)
}

// GetScheduledCall returns one planned call
// @Summary Get scheduled call
// @Tags Scheduled Calls
// @Produce json
// @Security BearerAuth
// @Param id path int true "Scheduled call ID"
// @Success 200 {object} dto.APIResponse{data=dto.ScheduledCallDTO} "Call retrieved"
// @Failure 404 {object} dto.APIResponse "Call not found"
// @Router /api/v1/scheduled-calls/{id} [get]
func (h *ScheduledCallHandler) GetScheduledCall(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/scheduled-calls/:id")
	defer cancel()

	call, err := h.flow.GetScheduledCall(ctx, userID, id)
	if err != nil {
		return h.HandleBusinessError(c, err, "GET_SCHEDULED_CALL_FAILED", "Failed to get scheduled call")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Scheduled call retrieved successfully", call)
}

// UpdateScheduledCall applies a partial update
// @Summary Update scheduled call
// @Tags Scheduled Calls
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Scheduled call ID"
// @Param request body dto.UpdateScheduledCallRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.ScheduledCallDTO} "Call updated"
// @Failure 404 {object} dto.APIResponse "Call not found"
// @Router /api/v1/scheduled-calls/{id} [put]
func (h *ScheduledCallHandler) UpdateScheduledCall(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}
	var req dto.UpdateScheduledCallRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/scheduled-calls/:id")
	defer cancel()

	call, err := h.flow.UpdateScheduledCall(ctx, userID, id, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "UPDATE_SCHEDULED_CALL_FAILED", "Failed to update scheduled call")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Scheduled call updated successfully", call)
}

// DeleteScheduledCall removes a planned call
// @Summary Delete scheduled call
// @Tags Scheduled Calls
// @Produce json
// @Security BearerAuth
// @Param id path int true "Scheduled call ID"
// @Success 200 {object} dto.APIResponse "Call deleted"
// @Failure 404 {object} dto.APIResponse "Call not found"
// @Router /api/v1/scheduled-calls/{id} [delete]
func (h *ScheduledCallHandler) DeleteScheduledCall(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/scheduled-calls/:id")
	defer cancel()

	if err := h.flow.DeleteScheduledCall(ctx, userID, id); err != nil {
		return h.HandleBusinessError(c, err, "DELETE_SCHEDULED_CALL_FAILED", "Failed to delete scheduled call")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Scheduled call deleted successfully", nil)
}

// CheckReminders scans the caller's upcoming calls and sends due reminders
// @Summary Check reminders
// @Description Returns calls inside the reminder window and the outcome of each reminder sent during this scan
// @Tags Scheduled Calls
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.CheckRemindersResponse} "Scan finished"
// @Failure 500 {object} dto.APIResponse "Scan failed"
// @Router /api/v1/scheduled-calls/check-reminders [get]
func (h *ScheduledCallHandler) CheckReminders(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/scheduled-calls/check-reminders")
	defer cancel()

	resp, err := h.reminderFlow.CheckReminders(ctx, userID, h.metadata(c))
	if err != nil {
		return h.HandleBusinessError(c, err, "CHECK_REMINDERS_FAILED", "Failed to check reminders")
	}
	return h.SuccessResponse(c, fiber.StatusOK, resp.Message, resp)
}
