package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// LeadExportColumns is the header of the lead CSV export, in order
var LeadExportColumns = []string{"name", "email", "phone", "notes", "status"}

// LeadFlow handles the lead book of a user
type LeadFlow interface {
	CreateLead(ctx context.Context, userID uint, req *dto.CreateLeadRequest) (*dto.LeadDTO, error)
	ListLeads(ctx context.Context, userID uint, req *dto.ListLeadsRequest) (*dto.ListLeadsResponse, error)
	GetLead(ctx context.Context, userID, id uint) (*dto.LeadDTO, error)
	UpdateLead(ctx context.Context, userID, id uint, req *dto.UpdateLeadRequest) (*dto.LeadDTO, error)
	DeleteLead(ctx context.Context, userID, id uint) error
	BulkDeleteLeads(ctx context.Context, userID uint, req *dto.BulkDeleteRequest, metadata *ClientMetadata) (*dto.BulkDeleteResponse, error)
	ImportCSV(ctx context.Context, userID uint, r io.Reader, metadata *ClientMetadata) (*dto.ImportResponse, error)
	ExportCSV(ctx context.Context, userID uint) (string, []byte, error)
	ExportXLSX(ctx context.Context, userID uint) (string, []byte, error)
	NextLead(ctx context.Context, userID uint, afterID *uint) (*dto.NextLeadResponse, error)
}

// LeadFlowImpl implements the lead business flow
type LeadFlowImpl struct {
	leadRepo  repository.LeadRepository
	auditRepo repository.AuditLogRepository
	db        *gorm.DB
}

// NewLeadFlow creates a new lead flow instance
func NewLeadFlow(leadRepo repository.LeadRepository, auditRepo repository.AuditLogRepository, db *gorm.DB) LeadFlow {
	return &LeadFlowImpl{
		leadRepo:  leadRepo,
		auditRepo: auditRepo,
		db:        db,
	}
}

// CreateLead adds a lead owned by userID
func (lf *LeadFlowImpl) CreateLead(ctx context.Context, userID uint, req *dto.CreateLeadRequest) (*dto.LeadDTO, error) {
	lead, err := newLead(userID, req.Name, req.Email, req.Phone, req.Notes, req.Status)
	if err != nil {
		return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Lead validation failed", err)
	}

	if err := lf.leadRepo.Save(ctx, lead); err != nil {
		return nil, NewBusinessError("CREATE_LEAD_FAILED", "Failed to create lead", err)
	}

	out := ToLeadDTO(*lead)
	return &out, nil
}

// ListLeads returns one page of the user's leads sorted by name
func (lf *LeadFlowImpl) ListLeads(ctx context.Context, userID uint, req *dto.ListLeadsRequest) (*dto.ListLeadsResponse, error) {
	filter := models.LeadFilter{}
	if s := strings.TrimSpace(req.Search); s != "" {
		filter.Search = &s
	}
	if req.Status != "" {
		status := models.LeadStatus(req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Lead validation failed", ErrInvalidLeadStatus)
		}
		filter.Status = &status
	}

	page, limit, offset := normalizePage(req.Page, req.Limit, utils.DefaultLeadPageLimit)

	total, err := lf.leadRepo.Count(ctx, userID, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_LEADS_FAILED", "Failed to list leads", err)
	}
	leads, err := lf.leadRepo.ByFilter(ctx, userID, filter, "", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_LEADS_FAILED", "Failed to list leads", err)
	}

	items := make([]dto.LeadDTO, 0, len(leads))
	for _, l := range leads {
		items = append(items, ToLeadDTO(*l))
	}

	return &dto.ListLeadsResponse{
		Leads:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// GetLead returns one lead; leads of other users look like missing ones
func (lf *LeadFlowImpl) GetLead(ctx context.Context, userID, id uint) (*dto.LeadDTO, error) {
	lead, err := lf.leadRepo.ByID(ctx, userID, id)
	if err != nil {
		return nil, NewBusinessError("GET_LEAD_FAILED", "Failed to get lead", err)
	}
	if lead == nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead not found", ErrLeadNotFound)
	}

	out := ToLeadDTO(*lead)
	return &out, nil
}

// UpdateLead applies a partial update
func (lf *LeadFlowImpl) UpdateLead(ctx context.Context, userID, id uint, req *dto.UpdateLeadRequest) (*dto.LeadDTO, error) {
	patch, err := leadPatchFromRequest(req)
	if err != nil {
		return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Lead validation failed", err)
	}

	lead, err := lf.leadRepo.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, NewBusinessError("UPDATE_LEAD_FAILED", "Failed to update lead", err)
	}
	if lead == nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead not found", ErrLeadNotFound)
	}

	out := ToLeadDTO(*lead)
	return &out, nil
}

func leadPatchFromRequest(req *dto.UpdateLeadRequest) (models.LeadPatch, error) {
	patch := models.LeadPatch{
		Phone:         trimPtr(req.Phone),
		Notes:         trimPtr(req.Notes),
		LastCallNotes: trimPtr(req.LastCallNotes),
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return patch, ErrNameRequired
		}
		patch.Name = &name
	}
	if req.Email != nil {
		email := utils.NormalizeEmail(*req.Email)
		patch.Email = &email
	}
	if req.Status != nil {
		status := models.LeadStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !status.Valid() {
			return patch, ErrInvalidLeadStatus
		}
		patch.Status = &status
	}
	if req.LastCallOutcome != nil {
		outcome := models.CallOutcome(*req.LastCallOutcome)
		if outcome != "" && !outcome.Valid() {
			return patch, ErrInvalidOutcome
		}
		patch.LastCallOutcome = req.LastCallOutcome
	}
	return patch, nil
}

// DeleteLead removes one lead
func (lf *LeadFlowImpl) DeleteLead(ctx context.Context, userID, id uint) error {
	deleted, err := lf.leadRepo.Delete(ctx, userID, id)
	if err != nil {
		return NewBusinessError("DELETE_LEAD_FAILED", "Failed to delete lead", err)
	}
	if !deleted {
		return NewBusinessError("LEAD_NOT_FOUND", "Lead not found", ErrLeadNotFound)
	}
	return nil
}

// BulkDeleteLeads removes the listed leads; IDs owned by other users are ignored
func (lf *LeadFlowImpl) BulkDeleteLeads(ctx context.Context, userID uint, req *dto.BulkDeleteRequest, metadata *ClientMetadata) (*dto.BulkDeleteResponse, error) {
	if len(req.IDs) == 0 {
		return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Lead validation failed", ErrNoIDsProvided)
	}

	deleted, err := lf.leadRepo.DeleteMany(ctx, userID, req.IDs)
	if err != nil {
		return nil, NewBusinessError("BULK_DELETE_LEADS_FAILED", "Failed to delete leads", err)
	}

	logAudit(ctx, lf.auditRepo, auditEntry{
		UserID:      &userID,
		Action:      models.AuditActionLeadsBulkDeleted,
		Description: fmt.Sprintf("Deleted %d of %d requested leads", deleted, len(req.IDs)),
		Success:     true,
	}, metadata)

	return &dto.BulkDeleteResponse{Deleted: deleted}, nil
}

// ImportCSV reads leads from CSV with at least a name column. Rows without a name or with an
// unknown status are reported and skipped; the rest are stored in one transaction.
func (lf *LeadFlowImpl) ImportCSV(ctx context.Context, userID uint, r io.Reader, metadata *ClientMetadata) (*dto.ImportResponse, error) {
	records, err := readCSVRecords(r, "name")
	if err != nil {
		return nil, NewBusinessError("IMPORT_LEADS_FAILED", "Failed to read CSV", err)
	}

	resp := &dto.ImportResponse{}
	leads := make([]*models.Lead, 0, len(records))
	for _, rec := range records {
		lead, err := newLead(userID, rec.get("name"), rec.get("email"), rec.get("phone"), rec.get("notes"), rec.get("status"))
		if err != nil {
			resp.Skipped++
			resp.Errors = append(resp.Errors, dto.ImportRowError{Line: rec.Line, Message: err.Error()})
			continue
		}
		leads = append(leads, lead)
	}
	if len(leads) == 0 {
		return resp, NewBusinessError("NO_VALID_LEADS", "No valid leads found", ErrEmptyCSV)
	}

	err = repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		return lf.leadRepo.SaveBatch(ctx, leads)
	})
	if err != nil {
		return nil, NewBusinessError("IMPORT_LEADS_FAILED", "Failed to import leads", err)
	}
	resp.Imported = len(leads)

	logAudit(ctx, lf.auditRepo, auditEntry{
		UserID:      &userID,
		Action:      models.AuditActionLeadsImported,
		Description: fmt.Sprintf("Imported %d leads, skipped %d", resp.Imported, resp.Skipped),
		Success:     true,
	}, metadata)

	return resp, nil
}

func (lf *LeadFlowImpl) allLeads(ctx context.Context, userID uint) ([]*models.Lead, error) {
	leads, err := lf.leadRepo.ByFilter(ctx, userID, models.LeadFilter{}, "", 0, 0)
	if err != nil {
		return nil, NewBusinessError("EXPORT_LEADS_FAILED", "Failed to export leads", err)
	}
	if len(leads) == 0 {
		return nil, NewBusinessError("NO_LEADS_TO_EXPORT", "No leads to export", ErrNothingToExport)
	}
	return leads, nil
}

func leadRow(l *models.Lead) []string {
	return []string{l.Name, l.Email, l.Phone, l.Notes, string(l.Status)}
}

// ExportCSV renders every lead of the user as CSV
func (lf *LeadFlowImpl) ExportCSV(ctx context.Context, userID uint) (string, []byte, error) {
	leads, err := lf.allLeads(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, leadRow(l))
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, LeadExportColumns, rows); err != nil {
		return "", nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to write CSV file", err)
	}
	return "leads.csv", buf.Bytes(), nil
}

// ExportXLSX renders every lead of the user as a one-sheet workbook
func (lf *LeadFlowImpl) ExportXLSX(ctx context.Context, userID uint) (string, []byte, error) {
	leads, err := lf.allLeads(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Leads"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	header := append([]string{"id"}, LeadExportColumns...)
	header = append(header, "last_call_outcome", "created_at")
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	for i, l := range leads {
		record := []string{strconv.FormatUint(uint64(l.ID), 10)}
		record = append(record, leadRow(l)...)
		record = append(record, l.LastCallOutcome, l.CreatedAt.UTC().Format(time.RFC3339))

		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return "leads.xlsx", buf.Bytes(), nil
}

// NextLead returns the lead following afterID in ID order, or the first lead when afterID is nil
func (lf *LeadFlowImpl) NextLead(ctx context.Context, userID uint, afterID *uint) (*dto.NextLeadResponse, error) {
	lead, err := lf.leadRepo.Next(ctx, userID, afterID)
	if err != nil {
		return nil, NewBusinessError("NEXT_LEAD_FAILED", "Failed to get next lead", err)
	}
	if lead == nil {
		return nil, NewBusinessError("NO_MORE_LEADS", "No more leads found", ErrNoMoreLeads)
	}
	return &dto.NextLeadResponse{Lead: ToLeadDTO(*lead)}, nil
}

// newLead validates and normalizes user input into a lead row
func newLead(userID uint, name, email, phone, notes, status string) (*models.Lead, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	leadStatus := models.LeadStatusNew
	if s := strings.ToLower(strings.TrimSpace(status)); s != "" {
		leadStatus = models.LeadStatus(s)
		if !leadStatus.Valid() {
			return nil, ErrInvalidLeadStatus
		}
	}

	return &models.Lead{
		UserID: userID,
		Name:   name,
		Email:  utils.NormalizeEmail(email),
		Phone:  strings.TrimSpace(phone),
		Notes:  strings.TrimSpace(notes),
		Status: leadStatus,
	}, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
