package businessflow

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
	"gorm.io/gorm"
)

var ContactExportColumns = []string{"name", "email", "phone", "notes"}

// ContactFlow handles the address book of a user
type ContactFlow interface {
	CreateContact(ctx context.Context, userID uint, req *dto.CreateContactRequest) (*dto.ContactDTO, error)
	ListContacts(ctx context.Context, userID uint, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error)
	UpdateContact(ctx context.Context, userID, id uint, req *dto.UpdateContactRequest) (*dto.ContactDTO, error)
	DeleteContact(ctx context.Context, userID, id uint) error
	ImportCSV(ctx context.Context, userID uint, r io.Reader) (*dto.ImportResponse, error)
	ExportCSV(ctx context.Context, userID uint) (string, []byte, error)
}

type ContactFlowImpl struct {
	contactRepo repository.ContactRepository
	db          *gorm.DB
}

func NewContactFlow(contactRepo repository.ContactRepository, db *gorm.DB) ContactFlow {
	return &ContactFlowImpl{
		contactRepo: contactRepo,
		db:          db,
	}
}

func (cf *ContactFlowImpl) CreateContact(ctx context.Context, userID uint, req *dto.CreateContactRequest) (*dto.ContactDTO, error) {
	contact, err := newContact(userID, req.Name, req.Email, req.Phone, req.Notes)
	if err != nil {
		return nil, NewBusinessError("CONTACT_VALIDATION_FAILED", "Contact validation failed", err)
	}

	if err := cf.contactRepo.Save(ctx, contact); err != nil {
		return nil, NewBusinessError("CREATE_CONTACT_FAILED", "Failed to create contact", err)
	}

	out := ToContactDTO(*contact)
	return &out, nil
}

func (cf *ContactFlowImpl) ListContacts(ctx context.Context, userID uint, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error) {
	filter := models.ContactFilter{}
	if s := strings.TrimSpace(req.Search); s != "" {
		filter.Search = &s
	}

	page, limit, offset := normalizePage(req.Page, req.Limit, utils.DefaultContactPageLimit)

	total, err := cf.contactRepo.Count(ctx, userID, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_CONTACTS_FAILED", "Failed to list contacts", err)
	}
	contacts, err := cf.contactRepo.ByFilter(ctx, userID, filter, "", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_CONTACTS_FAILED", "Failed to list contacts", err)
	}

	items := make([]dto.ContactDTO, 0, len(contacts))
	for _, c := range contacts {
		items = append(items, ToContactDTO(*c))
	}

	return &dto.ListContactsResponse{
		Contacts:   items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

func (cf *ContactFlowImpl) UpdateContact(ctx context.Context, userID, id uint, req *dto.UpdateContactRequest) (*dto.ContactDTO, error) {
	patch := models.ContactPatch{
		Phone: trimPtr(req.Phone),
		Notes: trimPtr(req.Notes),
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, NewBusinessError("CONTACT_VALIDATION_FAILED", "Contact validation failed", ErrNameRequired)
		}
		patch.Name = &name
	}
	if req.Email != nil {
		email := utils.NormalizeEmail(*req.Email)
		patch.Email = &email
	}

	contact, err := cf.contactRepo.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, NewBusinessError("UPDATE_CONTACT_FAILED", "Failed to update contact", err)
	}
	if contact == nil {
		return nil, NewBusinessError("CONTACT_NOT_FOUND", "Contact not found", ErrContactNotFound)
	}

	out := ToContactDTO(*contact)
	return &out, nil
}

func (cf *ContactFlowImpl) DeleteContact(ctx context.Context, userID, id uint) error {
	deleted, err := cf.contactRepo.Delete(ctx, userID, id)
	if err != nil {
		return NewBusinessError("DELETE_CONTACT_FAILED", "Failed to delete contact", err)
	}
	if !deleted {
		return NewBusinessError("CONTACT_NOT_FOUND", "Contact not found", ErrContactNotFound)
	}
	return nil
}

// ImportCSV stores every named row; unnamed rows are reported back
func (cf *ContactFlowImpl) ImportCSV(ctx context.Context, userID uint, r io.Reader) (*dto.ImportResponse, error) {
	records, err := readCSVRecords(r, "name")
	if err != nil {
		return nil, NewBusinessError("IMPORT_CONTACTS_FAILED", "Failed to read CSV", err)
	}

	resp := &dto.ImportResponse{}
	contacts := make([]*models.Contact, 0, len(records))
	for _, rec := range records {
		contact, err := newContact(userID, rec.get("name"), rec.get("email"), rec.get("phone"), rec.get("notes"))
		if err != nil {
			resp.Skipped++
			resp.Errors = append(resp.Errors, dto.ImportRowError{Line: rec.Line, Message: err.Error()})
			continue
		}
		contacts = append(contacts, contact)
	}
	if len(contacts) == 0 {
		return resp, NewBusinessError("NO_VALID_CONTACTS", "No valid contacts found", ErrEmptyCSV)
	}

	err = repository.WithTransaction(ctx, cf.db, func(ctx context.Context) error {
		return cf.contactRepo.SaveBatch(ctx, contacts)
	})
	if err != nil {
		return nil, NewBusinessError("IMPORT_CONTACTS_FAILED", "Failed to import contacts", err)
	}
	resp.Imported = len(contacts)
	return resp, nil
}

func (cf *ContactFlowImpl) ExportCSV(ctx context.Context, userID uint) (string, []byte, error) {
	contacts, err := cf.contactRepo.ByFilter(ctx, userID, models.ContactFilter{}, "", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_CONTACTS_FAILED", "Failed to export contacts", err)
	}
	if len(contacts) == 0 {
		return "", nil, NewBusinessError("NO_CONTACTS_TO_EXPORT", "No contacts to export", ErrNothingToExport)
	}

	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []string{c.Name, c.Email, c.Phone, c.Notes})
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, ContactExportColumns, rows); err != nil {
		return "", nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to write CSV file", err)
	}
	return "contacts.csv", buf.Bytes(), nil
}

func newContact(userID uint, name, email, phone, notes string) (*models.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	return &models.Contact{
		UserID: userID,
		Name:   name,
		Email:  utils.NormalizeEmail(email),
		Phone:  strings.TrimSpace(phone),
		Notes:  strings.TrimSpace(notes),
	}, nil
}
