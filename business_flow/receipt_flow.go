// Package businessflow contains the core business logic and use cases for receipt workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/app/services"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	"github.com/subaruffles/backend/utils"
	"gorm.io/gorm"
)

// ReceiptFlow handles receipt lookups, proof uploads, and status changes
type ReceiptFlow interface {
	GetReceipt(ctx context.Context, receiptID string) (*dto.ReceiptResponse, error)
	UploadProof(ctx context.Context, receiptID string, doc services.ProofDocument, metadata *ClientMetadata) (*dto.UploadProofResponse, error)
	UpdateStatus(ctx context.Context, req *dto.UpdateReceiptStatusRequest, adminUsername string, metadata *ClientMetadata) (*dto.UpdateReceiptStatusResponse, error)
	ListByRaffle(ctx context.Context, raffleID uint) (*dto.ReceiptListResponse, error)
}

// ReceiptFlowImpl implements the receipt business flow
type ReceiptFlowImpl struct {
	receiptRepo   repository.ReceiptRepository
	selectionRepo repository.SelectionRepository
	raffleRepo    repository.RaffleRepository
	auditRepo     repository.AuditLogRepository
	relay         services.ProofRelay
	db            *gorm.DB
}

// NewReceiptFlow creates a new receipt flow instance
func NewReceiptFlow(
	receiptRepo repository.ReceiptRepository,
	selectionRepo repository.SelectionRepository,
	raffleRepo repository.RaffleRepository,
	auditRepo repository.AuditLogRepository,
	relay services.ProofRelay,
	db *gorm.DB,
) ReceiptFlow {
	return &ReceiptFlowImpl{
		receiptRepo:   receiptRepo,
		selectionRepo: selectionRepo,
		raffleRepo:    raffleRepo,
		auditRepo:     auditRepo,
		relay:         relay,
		db:            db,
	}
}

// GetReceipt returns a receipt with its claimed numbers and payment info
func (s *ReceiptFlowImpl) GetReceipt(ctx context.Context, receiptID string) (*dto.ReceiptResponse, error) {
	receipt, raffle, err := s.loadReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	resp := ToReceiptResponse(*receipt, raffle)
	return &resp, nil
}

// UploadProof relays the payment proof to the review channel and moves the
// receipt to receipt_uploaded. A relay failure leaves the receipt untouched
// so the buyer can retry.
func (s *ReceiptFlowImpl) UploadProof(ctx context.Context, receiptID string, doc services.ProofDocument, metadata *ClientMetadata) (*dto.UploadProofResponse, error) {
	if len(doc.Data) == 0 {
		return nil, NewBusinessError("PROOF_REQUIRED", "Proof file is required", ErrProofFileRequired)
	}
	if len(doc.Data) > utils.MaxProofFileSize {
		return nil, NewBusinessError("PROOF_TOO_LARGE", "Proof file is too large", ErrProofFileTooLarge)
	}

	receipt, raffle, err := s.loadReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	if receipt.IsOverdue(now) {
		return nil, NewBusinessError("RECEIPT_EXPIRED", "Receipt has expired", ErrReceiptExpired)
	}

	// Validate the transition before touching the relay: a paid or expired
	// receipt must not trigger an upstream call at all
	next, err := models.NextReceipt(*receipt, models.ReceiptStatusReceiptUploaded, nil, nil, now, true)
	if err != nil {
		var invalid *models.InvalidTransitionError
		if errors.As(err, &invalid) {
			return nil, NewBusinessError("INVALID_STATUS_TRANSITION", invalid.Error(), ErrInvalidStatusTransition)
		}
		return nil, NewBusinessError("STATUS_TRANSITION_FAILED", "Status transition failed", err)
	}

	raffleTitle := ""
	if raffle != nil {
		raffleTitle = raffle.Title
	}
	numbers := make([]int, 0, len(receipt.Numbers))
	for _, n := range receipt.Numbers {
		numbers = append(numbers, n.Number)
	}

	if err := s.relay.RelayProof(ctx, receipt.ReceiptID, raffleTitle, numbers, doc); err != nil {
		errMsg := fmt.Sprintf("Proof relay failed for receipt %s: %s", receipt.ReceiptID, err.Error())
		_ = s.createAuditLog(ctx, nil, models.AuditActionProofUploaded, &receiptID, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("RELAY_UNAVAILABLE", "Proof relay is unavailable", ErrRelayUnavailable)
	}

	if err := s.receiptRepo.SaveTransition(ctx, &next); err != nil {
		return nil, NewBusinessError("RECEIPT_SAVE_FAILED", "Failed to save receipt", err)
	}

	msg := fmt.Sprintf("Proof uploaded for receipt %s", receipt.ReceiptID)
	_ = s.createAuditLog(ctx, nil, models.AuditActionProofUploaded, &receiptID, msg, true, nil, metadata)

	return &dto.UploadProofResponse{
		ReceiptID: next.ReceiptID,
		Status:    string(next.Status),
	}, nil
}

// UpdateStatus applies an admin-driven status change. Admin changes bypass
// the forward-only transition table but are always recorded in the history.
// Moving a receipt into expired releases its ledger entries in the same
// transaction.
func (s *ReceiptFlowImpl) UpdateStatus(ctx context.Context, req *dto.UpdateReceiptStatusRequest, adminUsername string, metadata *ClientMetadata) (*dto.UpdateReceiptStatusResponse, error) {
	if req == nil {
		return nil, NewBusinessError("STATUS_VALIDATION_FAILED", "Status validation failed", ErrInvalidStatusTransition)
	}

	to := models.ReceiptStatus(strings.ToLower(req.Status))
	if !to.Valid() {
		return nil, NewBusinessError("STATUS_VALIDATION_FAILED", "Unknown receipt status", ErrInvalidStatusTransition)
	}

	receipt, _, err := s.loadReceipt(ctx, req.ReceiptID)
	if err != nil {
		return nil, err
	}

	next, err := models.NextReceipt(*receipt, to, &adminUsername, req.Note, utils.UTCNow(), false)
	if err != nil {
		return nil, NewBusinessError("STATUS_TRANSITION_FAILED", "Status transition failed", err)
	}

	var released int64
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.receiptRepo.SaveTransition(txCtx, &next); err != nil {
			return err
		}
		if to == models.ReceiptStatusExpired {
			var err error
			released, err = s.selectionRepo.ReleaseByReceipt(txCtx, next.ReceiptID)
			return err
		}
		return nil
	})
	if err != nil {
		errMsg := fmt.Sprintf("Status change failed for receipt %s: %s", req.ReceiptID, err.Error())
		_ = s.createAuditLog(ctx, &adminUsername, models.AuditActionStatusChanged, &req.ReceiptID, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("STATUS_CHANGE_FAILED", "Status change failed", err)
	}

	msg := fmt.Sprintf("Receipt %s moved from %s to %s", next.ReceiptID, receipt.Status, next.Status)
	_ = s.createAuditLog(ctx, &adminUsername, models.AuditActionStatusChanged, &req.ReceiptID, msg, true, nil, metadata)

	return &dto.UpdateReceiptStatusResponse{
		ReceiptID:       next.ReceiptID,
		Status:          string(next.Status),
		ReleasedNumbers: released,
	}, nil
}

// ListByRaffle returns every receipt of a raffle for the admin panel
func (s *ReceiptFlowImpl) ListByRaffle(ctx context.Context, raffleID uint) (*dto.ReceiptListResponse, error) {
	raffle, err := s.raffleRepo.ByID(ctx, raffleID)
	if err != nil {
		return nil, NewBusinessError("RAFFLE_LOOKUP_FAILED", "Failed to lookup raffle", err)
	}
	if raffle == nil {
		return nil, NewBusinessError("RAFFLE_NOT_FOUND", "Raffle not found", ErrRaffleNotFound)
	}

	receipts, err := s.receiptRepo.ListByRaffle(ctx, raffleID)
	if err != nil {
		return nil, NewBusinessError("RECEIPT_LOOKUP_FAILED", "Failed to list receipts", err)
	}

	resp := &dto.ReceiptListResponse{Receipts: make([]dto.ReceiptResponse, 0, len(receipts))}
	for _, r := range receipts {
		resp.Receipts = append(resp.Receipts, ToReceiptResponse(*r, raffle))
	}
	return resp, nil
}

func (s *ReceiptFlowImpl) loadReceipt(ctx context.Context, receiptID string) (*models.Receipt, *models.Raffle, error) {
	receipt, err := s.receiptRepo.ByReceiptID(ctx, strings.TrimSpace(receiptID))
	if err != nil {
		return nil, nil, NewBusinessError("RECEIPT_LOOKUP_FAILED", "Failed to lookup receipt", err)
	}
	if receipt == nil {
		return nil, nil, NewBusinessError("RECEIPT_NOT_FOUND", "Receipt not found", ErrReceiptNotFound)
	}

	raffle, err := s.raffleRepo.ByID(ctx, receipt.RaffleID)
	if err != nil {
		return nil, nil, NewBusinessError("RAFFLE_LOOKUP_FAILED", "Failed to lookup raffle", err)
	}

	return receipt, raffle, nil
}

func (s *ReceiptFlowImpl) createAuditLog(ctx context.Context, adminUsername *string, action string, resourceID *string, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		Action:       action,
		Resource:     models.AuditResourceReceipt,
		ResourceID:   resourceID,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}
	if adminUsername != nil {
		audit.Description = utils.ToPtr(fmt.Sprintf("[%s] %s", *adminUsername, description))
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
