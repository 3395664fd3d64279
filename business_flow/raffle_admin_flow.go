// Package businessflow contains the core business logic and use cases for raffle administration
package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/app/services"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	"github.com/subaruffles/backend/utils"
	"gorm.io/gorm"
)

// RaffleAdminFlow handles raffle CRUD and exports for the admin panel
type RaffleAdminFlow interface {
	CreateRaffle(ctx context.Context, req *dto.CreateRaffleRequest, adminUsername string, metadata *ClientMetadata) (*dto.RaffleResponse, error)
	UpdateRaffle(ctx context.Context, req *dto.UpdateRaffleRequest, adminUsername string, metadata *ClientMetadata) (*dto.RaffleResponse, error)
	DeleteRaffle(ctx context.Context, raffleID uint, adminUsername string, metadata *ClientMetadata) error
	ListSelections(ctx context.Context, raffleID uint) ([]*models.Selection, error)
	LookupSelection(ctx context.Context, raffleID uint, page, number int) (*dto.SelectionLookupResponse, error)
	Export(ctx context.Context, req *dto.ExportRequest, adminUsername string, metadata *ClientMetadata) (data []byte, contentType, fileName string, err error)
}

// RaffleAdminFlowImpl implements the raffle admin flow
type RaffleAdminFlowImpl struct {
	raffleRepo    repository.RaffleRepository
	selectionRepo repository.SelectionRepository
	receiptRepo   repository.ReceiptRepository
	auditRepo     repository.AuditLogRepository
	exporter      services.ExportService
	db            *gorm.DB
}

// NewRaffleAdminFlow creates a new raffle admin flow instance
func NewRaffleAdminFlow(
	raffleRepo repository.RaffleRepository,
	selectionRepo repository.SelectionRepository,
	receiptRepo repository.ReceiptRepository,
	auditRepo repository.AuditLogRepository,
	exporter services.ExportService,
	db *gorm.DB,
) RaffleAdminFlow {
	return &RaffleAdminFlowImpl{
		raffleRepo:    raffleRepo,
		selectionRepo: selectionRepo,
		receiptRepo:   receiptRepo,
		auditRepo:     auditRepo,
		exporter:      exporter,
		db:            db,
	}
}

// CreateRaffle creates a new raffle in the open state
func (s *RaffleAdminFlowImpl) CreateRaffle(ctx context.Context, req *dto.CreateRaffleRequest, adminUsername string, metadata *ClientMetadata) (*dto.RaffleResponse, error) {
	if err := validateCreateRaffleRequest(req); err != nil {
		return nil, NewBusinessError("RAFFLE_VALIDATION_FAILED", "Raffle validation failed", err)
	}

	expiration := utils.DefaultExpirationMinutes
	if req.ExpirationMinutes != nil {
		expiration = *req.ExpirationMinutes
	}

	raffle := &models.Raffle{
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		Status:            models.RaffleStatusOpen,
		EndDate:           req.EndDate,
		TotalNumbers:      req.TotalNumbers,
		Price:             req.Price,
		ExpirationMinutes: expiration,
		PixName:           req.PixName,
		PixKey:            req.PixKey,
		PixQRCode:         req.PixQRCode,
	}

	if err := s.raffleRepo.Save(ctx, raffle); err != nil {
		errMsg := fmt.Sprintf("Raffle creation failed: %s", err.Error())
		_ = s.createAuditLog(ctx, adminUsername, models.AuditActionRaffleCreated, nil, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("RAFFLE_CREATION_FAILED", "Raffle creation failed", err)
	}

	resourceID := fmt.Sprintf("%d", raffle.ID)
	msg := fmt.Sprintf("Raffle %q created with %d numbers", raffle.Title, raffle.TotalNumbers)
	_ = s.createAuditLog(ctx, adminUsername, models.AuditActionRaffleCreated, &resourceID, msg, true, nil, metadata)

	resp := ToRaffleResponse(*raffle, 0)
	return &resp, nil
}

// UpdateRaffle applies a partial update. Closing a raffle requires a paid
// winning receipt belonging to it.
func (s *RaffleAdminFlowImpl) UpdateRaffle(ctx context.Context, req *dto.UpdateRaffleRequest, adminUsername string, metadata *ClientMetadata) (*dto.RaffleResponse, error) {
	raffle, err := s.loadRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		raffle.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		raffle.Description = *req.Description
	}
	if req.EndDate != nil {
		raffle.EndDate = *req.EndDate
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, NewBusinessError("RAFFLE_VALIDATION_FAILED", "Raffle validation failed", ErrPriceRequired)
		}
		raffle.Price = *req.Price
	}
	if req.ExpirationMinutes != nil {
		raffle.ExpirationMinutes = *req.ExpirationMinutes
	}
	if req.PixName != nil {
		raffle.PixName = *req.PixName
	}
	if req.PixKey != nil {
		raffle.PixKey = *req.PixKey
	}
	if req.PixQRCode != nil {
		raffle.PixQRCode = req.PixQRCode
	}
	if req.WinningReceiptID != nil {
		raffle.WinningReceiptID = req.WinningReceiptID
	}

	action := models.AuditActionRaffleUpdated
	if req.Status != nil {
		status := models.RaffleStatus(*req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("RAFFLE_VALIDATION_FAILED", "Raffle validation failed", ErrInvalidRaffleStatus)
		}
		if status == models.RaffleStatusClosed {
			if err := s.validateWinner(ctx, raffle); err != nil {
				return nil, err
			}
			action = models.AuditActionRaffleClosed
		}
		raffle.Status = status
	}

	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		errMsg := fmt.Sprintf("Raffle update failed: %s", err.Error())
		resourceID := fmt.Sprintf("%d", raffle.ID)
		_ = s.createAuditLog(ctx, adminUsername, action, &resourceID, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("RAFFLE_UPDATE_FAILED", "Raffle update failed", err)
	}

	resourceID := fmt.Sprintf("%d", raffle.ID)
	msg := fmt.Sprintf("Raffle %d updated, status %s", raffle.ID, raffle.Status)
	_ = s.createAuditLog(ctx, adminUsername, action, &resourceID, msg, true, nil, metadata)

	taken, err := s.selectionRepo.CountByRaffle(ctx, raffle.ID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_COUNT_FAILED", "Failed to count selections", err)
	}

	resp := ToRaffleResponse(*raffle, taken)
	return &resp, nil
}

// DeleteRaffle removes a raffle and its ledger entries. Raffles that already
// have receipts must be closed instead of deleted.
func (s *RaffleAdminFlowImpl) DeleteRaffle(ctx context.Context, raffleID uint, adminUsername string, metadata *ClientMetadata) error {
	raffle, err := s.loadRaffle(ctx, raffleID)
	if err != nil {
		return err
	}

	receipts, err := s.receiptRepo.ListByRaffle(ctx, raffleID)
	if err != nil {
		return NewBusinessError("RECEIPT_LOOKUP_FAILED", "Failed to list receipts", err)
	}
	if len(receipts) > 0 {
		return NewBusinessError("RAFFLE_HAS_RECEIPTS", "Raffle with receipts cannot be deleted", ErrRaffleHasReceipts)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if _, err := s.selectionRepo.DeleteByRaffle(txCtx, raffleID); err != nil {
			return err
		}
		_, err := s.raffleRepo.Delete(txCtx, raffleID)
		return err
	})
	if err != nil {
		errMsg := fmt.Sprintf("Raffle deletion failed: %s", err.Error())
		resourceID := fmt.Sprintf("%d", raffleID)
		_ = s.createAuditLog(ctx, adminUsername, models.AuditActionRaffleDeleted, &resourceID, errMsg, false, &errMsg, metadata)
		return NewBusinessError("RAFFLE_DELETION_FAILED", "Raffle deletion failed", err)
	}

	resourceID := fmt.Sprintf("%d", raffleID)
	msg := fmt.Sprintf("Raffle %d (%q) deleted", raffleID, raffle.Title)
	_ = s.createAuditLog(ctx, adminUsername, models.AuditActionRaffleDeleted, &resourceID, msg, true, nil, metadata)

	return nil
}

// ListSelections returns the full ledger of a raffle for the admin panel
func (s *RaffleAdminFlowImpl) ListSelections(ctx context.Context, raffleID uint) ([]*models.Selection, error) {
	if _, err := s.loadRaffle(ctx, raffleID); err != nil {
		return nil, err
	}
	selections, err := s.selectionRepo.ListByRaffle(ctx, raffleID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to list selections", err)
	}
	return selections, nil
}

// LookupSelection checks whether a single (page, number) slot is claimed and
// returns the claiming entry when it is
func (s *RaffleAdminFlowImpl) LookupSelection(ctx context.Context, raffleID uint, page, number int) (*dto.SelectionLookupResponse, error) {
	raffle, err := s.loadRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	if number < 1 || number > raffle.TotalNumbers {
		return nil, NewBusinessError("INVALID_NUMBER", "Number is out of range for this raffle", ErrInvalidNumber)
	}
	if expectedPage := (number-1)/utils.NumbersPerPage + 1; page != expectedPage {
		return nil, NewBusinessError("INVALID_PAGE_NUMBER", "Page number does not match the number", ErrInvalidPageNumber)
	}

	sel, err := s.selectionRepo.ByRafflePageNumber(ctx, raffleID, page, number)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to lookup selection", err)
	}

	resp := &dto.SelectionLookupResponse{
		RaffleID:   raffleID,
		PageNumber: page,
		Number:     number,
		Claimed:    sel != nil,
	}
	if sel != nil {
		resp.Selection = &dto.SelectionDTO{
			Number:           sel.Number,
			PageNumber:       sel.PageNumber,
			ReceiptID:        sel.ReceiptID,
			XHandle:          sel.Buyer.XHandle,
			InstagramHandle:  sel.Buyer.InstagramHandle,
			Whatsapp:         sel.Buyer.Whatsapp,
			PreferredContact: sel.Buyer.PreferredContact,
			SelectedAt:       sel.SelectedAt,
		}
	}
	return resp, nil
}

// Export renders the raffle's ledger as a CSV or XLSX download
func (s *RaffleAdminFlowImpl) Export(ctx context.Context, req *dto.ExportRequest, adminUsername string, metadata *ClientMetadata) ([]byte, string, string, error) {
	raffle, err := s.loadRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, "", "", err
	}

	selections, err := s.selectionRepo.ListByRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, "", "", NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to list selections", err)
	}

	receipts, err := s.receiptRepo.ListByRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, "", "", NewBusinessError("RECEIPT_LOOKUP_FAILED", "Failed to list receipts", err)
	}
	statusByReceipt := make(map[string]models.ReceiptStatus, len(receipts))
	for _, r := range receipts {
		statusByReceipt[r.ReceiptID] = r.Status
	}

	rows := make([]dto.SelectionExportRow, 0, len(selections))
	for _, sel := range selections {
		rows = append(rows, dto.SelectionExportRow{
			Number:           sel.Number,
			PageNumber:       sel.PageNumber,
			ReceiptID:        sel.ReceiptID,
			Status:           string(statusByReceipt[sel.ReceiptID]),
			XHandle:          sel.Buyer.XHandle,
			InstagramHandle:  sel.Buyer.InstagramHandle,
			Whatsapp:         sel.Buyer.Whatsapp,
			PreferredContact: sel.Buyer.PreferredContact,
			SelectedAt:       utils.ToSaoPaulo(sel.SelectedAt).Format(time.RFC3339),
		})
	}

	data, contentType, extension, err := s.exporter.Render(rows, req.Format)
	if err != nil {
		return nil, "", "", NewBusinessError("EXPORT_FAILED", "Export failed", err)
	}

	resourceID := fmt.Sprintf("%d", raffle.ID)
	msg := fmt.Sprintf("Exported %d selections of raffle %d as %s", len(rows), raffle.ID, extension)
	_ = s.createAuditLog(ctx, adminUsername, models.AuditActionExport, &resourceID, msg, true, nil, metadata)

	fileName := fmt.Sprintf("raffle-%d-selections.%s", raffle.ID, extension)
	return data, contentType, fileName, nil
}

// validateWinner checks that the winning receipt exists, belongs to the
// raffle, and is paid
func (s *RaffleAdminFlowImpl) validateWinner(ctx context.Context, raffle *models.Raffle) error {
	if raffle.WinningReceiptID == nil || *raffle.WinningReceiptID == "" {
		return NewBusinessError("WINNER_REQUIRED", "A paid winning receipt is required to close the raffle", ErrWinningReceiptRequired)
	}
	receipt, err := s.receiptRepo.ByReceiptID(ctx, *raffle.WinningReceiptID)
	if err != nil {
		return NewBusinessError("RECEIPT_LOOKUP_FAILED", "Failed to lookup winning receipt", err)
	}
	if receipt == nil || receipt.RaffleID != raffle.ID {
		return NewBusinessError("WINNER_REQUIRED", "Winning receipt does not belong to this raffle", ErrWinningReceiptRequired)
	}
	if receipt.Status != models.ReceiptStatusPaid {
		return NewBusinessError("WINNER_NOT_PAID", "Winning receipt is not paid", ErrWinningReceiptNotPaid)
	}
	return nil
}

func validateCreateRaffleRequest(req *dto.CreateRaffleRequest) error {
	if req == nil || strings.TrimSpace(req.Title) == "" {
		return ErrRaffleTitleRequired
	}
	if req.TotalNumbers < utils.MinTotalNumbers {
		return ErrTotalNumbersTooSmall
	}
	if req.Price <= 0 {
		return ErrPriceRequired
	}
	if req.EndDate.Before(utils.UTCNow()) {
		return ErrEndDateInPast
	}
	return nil
}

func (s *RaffleAdminFlowImpl) loadRaffle(ctx context.Context, raffleID uint) (*models.Raffle, error) {
	raffle, err := s.raffleRepo.ByID(ctx, raffleID)
	if err != nil {
		return nil, NewBusinessError("RAFFLE_LOOKUP_FAILED", "Failed to lookup raffle", err)
	}
	if raffle == nil {
		return nil, NewBusinessError("RAFFLE_NOT_FOUND", "Raffle not found", ErrRaffleNotFound)
	}
	return raffle, nil
}

func (s *RaffleAdminFlowImpl) createAuditLog(ctx context.Context, adminUsername, action string, resourceID *string, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		Action:       action,
		Resource:     models.AuditResourceRaffle,
		ResourceID:   resourceID,
		Description:  utils.ToPtr(fmt.Sprintf("[%s] %s", adminUsername, description)),
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}
