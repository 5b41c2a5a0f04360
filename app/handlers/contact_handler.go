package handlers

import (
	"fmt"
	"log"
	"strings"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/gofiber/fiber/v3"
)

type ContactHandlerInterface interface {
	CreateContact(c fiber.Ctx) error
	ListContacts(c fiber.Ctx) error
	UpdateContact(c fiber.Ctx) error
	DeleteContact(c fiber.Ctx) error
	ImportCSV(c fiber.Ctx) error
	ImportCSVText(c fiber.Ctx) error
	ExportCSV(c fiber.Ctx) error
}

type ContactHandler struct {
	baseHandler
	flow businessflow.ContactFlow
}

func NewContactHandler(flow businessflow.ContactFlow, logger *log.Logger) *ContactHandler {
	return &ContactHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// CreateContact adds an address book entry
// @Summary Create contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateContactRequest true "Contact"
// @Success 201 {object} dto.APIResponse{data=dto.ContactDTO} "Contact created"
// @Router /api/v1/contacts [post]
func (h *ContactHandler) CreateContact(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.CreateContactRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/contacts")
	defer cancel()

	contact, err := h.flow.CreateContact(ctx, userID, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "CREATE_CONTACT_FAILED", "Failed to create contact")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Contact created successfully", contact)
}

// ListContacts returns a page of contacts
// @Summary List contacts
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search text"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListContactsResponse} "Contacts retrieved"
// @Router /api/v1/contacts [get]
func (h *ContactHandler) ListContacts(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.ListContactsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/contacts")
	defer cancel()

	resp, err := h.flow.ListContacts(ctx, userID, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "LIST_CONTACTS_FAILED", "Failed to list contacts")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Contacts retrieved successfully", resp)
}

// UpdateContact applies a partial update
// @Summary Update contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contact ID"
// @Param request body dto.UpdateContactRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.ContactDTO} "Contact updated"
// @Failure 404 {object} dto.APIResponse "Contact not found"
// @Router /api/v1/contacts/{id} [put]
func (h *ContactHandler) UpdateContact(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}
	var req dto.UpdateContactRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/contacts/:id")
	defer cancel()

	contact, err := h.flow.UpdateContact(ctx, userID, id, &req)
	if err != nil {
		return h.HandleBusinessError(c, err, "UPDATE_CONTACT_FAILED", "Failed to update contact")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Contact updated successfully", contact)
}

// DeleteContact removes a contact
// @Summary Delete contact
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contact ID"
// @Success 200 {object} dto.APIResponse "Contact deleted"
// @Failure 404 {object} dto.APIResponse "Contact not found"
// @Router /api/v1/contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	id, ok, err := h.idParam(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/contacts/:id")
	defer cancel()

	if err := h.flow.DeleteContact(ctx, userID, id); err != nil {
		return h.HandleBusinessError(c, err, "DELETE_CONTACT_FAILED", "Failed to delete contact")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Contact deleted successfully", nil)
}

// ImportCSV imports contacts from an uploaded file
// @Summary Import contacts from CSV file
// @Tags Contacts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file with a name column"
// @Success 200 {object} dto.APIResponse{data=dto.ImportResponse} "Import finished"
// @Router /api/v1/contacts/import-csv [post]
func (h *ContactHandler) ImportCSV(c fiber.Ctx) error {
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

	ctx, cancel := h.createRequestContext(c, "/api/v1/contacts/import-csv")
	defer cancel()

	resp, err := h.flow.ImportCSV(ctx, userID, file)
	if err != nil {
		return h.HandleBusinessError(c, err, "IMPORT_FAILED", "Failed to import contacts")
	}
	return h.SuccessResponse(c, fiber.StatusOK, fmt.Sprintf("%d contacts imported", resp.Imported), resp)
}

// ImportCSVText imports contacts from CSV pasted as text
// @Summary Import contacts from CSV text
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ImportCSVTextRequest true "CSV text"
// @Success 200 {object} dto.APIResponse{data=dto.ImportResponse} "Import finished"
// @Router /api/v1/contacts/import-csv-text [post]
func (h *ContactHandler) ImportCSVText(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}
	var req dto.ImportCSVTextRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/contacts/import-csv-text")
	defer cancel()

	resp, err := h.flow.ImportCSV(ctx, userID, strings.NewReader(req.CSV))
	if err != nil {
		return h.HandleBusinessError(c, err, "IMPORT_FAILED", "Failed to import contacts")
	}
	return h.SuccessResponse(c, fiber.StatusOK, fmt.Sprintf("%d contacts imported", resp.Imported), resp)
}

// ExportCSV downloads the address book
// @Summary Export contacts as CSV
// @Tags Contacts
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file "CSV attachment"
// @Router /api/v1/contacts/export-csv [get]
func (h *ContactHandler) ExportCSV(c fiber.Ctx) error {
	userID, ok, err := h.currentUser(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/contacts/export-csv")
	defer cancel()

	name, data, err := h.flow.ExportCSV(ctx, userID)
	if err != nil {
		return h.HandleBusinessError(c, err, "EXPORT_FAILED", "Failed to export contacts")
	}
	return sendAttachment(c, "text/csv; charset=utf-8", name, data)
}
