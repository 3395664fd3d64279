// Package businessflow contains the core business logic and use cases for reservation workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/app/services"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	"github.com/subaruffles/backend/utils"
	"gorm.io/gorm"
)

// ReservationFlow handles the batch claim of raffle numbers
type ReservationFlow interface {
	Reserve(ctx context.Context, req *dto.ReserveRequest, metadata *ClientMetadata) (*dto.ReserveResponse, error)
}

// ReservationFlowImpl implements the reservation business flow
type ReservationFlowImpl struct {
	raffleRepo    repository.RaffleRepository
	selectionRepo repository.SelectionRepository
	receiptRepo   repository.ReceiptRepository
	auditRepo     repository.AuditLogRepository
	eventBus      services.EventBus
	db            *gorm.DB
}

// NewReservationFlow creates a new reservation flow instance
func NewReservationFlow(
	raffleRepo repository.RaffleRepository,
	selectionRepo repository.SelectionRepository,
	receiptRepo repository.ReceiptRepository,
	auditRepo repository.AuditLogRepository,
	eventBus services.EventBus,
	db *gorm.DB,
) ReservationFlow {
	return &ReservationFlowImpl{
		raffleRepo:    raffleRepo,
		selectionRepo: selectionRepo,
		receiptRepo:   receiptRepo,
		auditRepo:     auditRepo,
		eventBus:      eventBus,
		db:            db,
	}
}

// Reserve claims a batch of numbers and creates the receipt that owns them.
// The whole claim is atomic: either every number is written together with the
// receipt, or nothing is.
func (s *ReservationFlowImpl) Reserve(ctx context.Context, req *dto.ReserveRequest, metadata *ClientMetadata) (*dto.ReserveResponse, error) {
	if req == nil || len(req.Numbers) == 0 {
		return nil, NewBusinessError("RESERVATION_VALIDATION_FAILED", "Reservation validation failed", ErrNumbersRequired)
	}

	raffle, err := s.raffleRepo.ByID(ctx, req.RaffleID)
	if err != nil {
		return nil, NewBusinessError("RAFFLE_LOOKUP_FAILED", "Failed to lookup raffle", err)
	}
	if raffle == nil {
		return nil, NewBusinessError("RAFFLE_NOT_FOUND", "Raffle not found", ErrRaffleNotFound)
	}

	now := utils.UTCNow()
	if raffle.HasEnded(now) {
		return nil, NewBusinessError("RAFFLE_ENDED", "Raffle has ended", ErrRaffleEnded)
	}
	if !raffle.IsSellable(now) {
		return nil, NewBusinessError("RAFFLE_NOT_OPEN", "Raffle is not open for reservations", ErrRaffleNotOpen)
	}

	contact := ToBuyerContact(req.Contact)
	if !contact.HasAnyChannel() {
		return nil, NewBusinessError("CONTACT_REQUIRED", "At least one contact channel is required", ErrContactRequired)
	}

	claims, err := validateClaims(raffle, req.Numbers)
	if err != nil {
		return nil, NewBusinessError("RESERVATION_VALIDATION_FAILED", "Reservation validation failed", err)
	}

	receiptID, err := s.resolveReceiptID(ctx, req.ReceiptID)
	if err != nil {
		return nil, err
	}

	totalAmount := float64(len(claims)) * raffle.Price
	expiresAt := now.Add(time.Duration(raffle.ExpirationMinutes) * time.Minute)

	receipt := &models.Receipt{
		ReceiptID:   receiptID,
		RaffleID:    raffle.ID,
		Status:      models.ReceiptStatusWaitingPayment,
		Numbers:     claims,
		Buyer:       contact,
		TotalAmount: totalAmount,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	entries := make([]*models.Selection, 0, len(claims))
	for _, c := range claims {
		entries = append(entries, &models.Selection{
			RaffleID:   raffle.ID,
			ReceiptID:  receiptID,
			PageNumber: c.PageNumber,
			Number:     c.Number,
			Buyer:      contact,
			SelectedAt: now,
		})
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.selectionRepo.ClaimBatch(txCtx, entries); err != nil {
			return err
		}
		return s.receiptRepo.Save(txCtx, receipt)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			conflict := s.findConflict(ctx, raffle.ID, claims)
			errMsg := conflict.Error()
			_ = s.createAuditLog(ctx, models.AuditActionReservationMade, models.AuditResourceSelection, &receiptID, errMsg, false, &errMsg, metadata)
			return nil, NewBusinessError("NUMBER_CONFLICT", "Number already claimed", conflict)
		}
		errMsg := fmt.Sprintf("Reservation failed: %s", err.Error())
		_ = s.createAuditLog(ctx, models.AuditActionReservationMade, models.AuditResourceSelection, &receiptID, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("RESERVATION_FAILED", "Reservation failed", err)
	}

	msg := fmt.Sprintf("Reserved %d numbers on raffle %d under receipt %s", len(claims), raffle.ID, receiptID)
	_ = s.createAuditLog(ctx, models.AuditActionReservationMade, models.AuditResourceSelection, &receiptID, msg, true, nil, metadata)

	// Best-effort grid refresh events, one per claimed number
	if s.eventBus != nil {
		for _, c := range claims {
			s.eventBus.Publish(ctx, services.EventSelectionCreated, services.SelectionCreatedEvent{
				RaffleID:   raffle.ID,
				ReceiptID:  receiptID,
				Number:     c.Number,
				PageNumber: c.PageNumber,
				CreatedAt:  now,
			})
		}
	}

	return &dto.ReserveResponse{
		ReceiptID:   receiptID,
		RaffleID:    raffle.ID,
		TotalAmount: totalAmount,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// validateClaims checks every pair's range and page consistency and rejects
// duplicates within the batch itself
func validateClaims(raffle *models.Raffle, pairs []dto.ClaimedPairDTO) (models.ClaimedNumbers, error) {
	seen := make(map[int]struct{}, len(pairs))
	claims := make(models.ClaimedNumbers, 0, len(pairs))

	for _, p := range pairs {
		if !raffle.ContainsNumber(p.Number) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidNumber, p.Number)
		}
		expectedPage := (p.Number-1)/utils.NumbersPerPage + 1
		if p.PageNumber != expectedPage {
			return nil, fmt.Errorf("%w: number %d belongs to page %d", ErrInvalidPageNumber, p.Number, expectedPage)
		}
		if _, dup := seen[p.Number]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateNumbersInBatch, p.Number)
		}
		seen[p.Number] = struct{}{}
		claims = append(claims, models.ClaimedNumber{Number: p.Number, PageNumber: p.PageNumber})
	}

	return claims, nil
}

// resolveReceiptID uses the caller-supplied ID when present, otherwise
// generates one, retrying on collision and falling back to a UUID
func (s *ReservationFlowImpl) resolveReceiptID(ctx context.Context, requested *string) (string, error) {
	if requested != nil {
		id := strings.ToUpper(strings.TrimSpace(*requested))
		exists, err := s.receiptRepo.ReceiptIDExists(ctx, id)
		if err != nil {
			return "", NewBusinessError("RECEIPT_LOOKUP_FAILED", "Failed to check receipt ID", err)
		}
		if exists {
			return "", NewBusinessError("RECEIPT_ID_TAKEN", "Requested receipt ID is already in use", ErrReceiptIDTaken)
		}
		return id, nil
	}

	for attempt := 0; attempt < utils.ReceiptIDMaxAttempts; attempt++ {
		id, err := utils.GenerateReceiptID()
		if err != nil {
			return "", NewBusinessError("RECEIPT_ID_GENERATION_FAILED", "Failed to generate receipt ID", err)
		}
		exists, err := s.receiptRepo.ReceiptIDExists(ctx, id)
		if err != nil {
			return "", NewBusinessError("RECEIPT_LOOKUP_FAILED", "Failed to check receipt ID", err)
		}
		if !exists {
			return id, nil
		}
	}

	// Repeated collisions, trade readability for guaranteed uniqueness
	return uuid.New().String(), nil
}

// findConflict names the exact pair that lost the race. When the lookup
// itself fails the first requested pair is reported.
func (s *ReservationFlowImpl) findConflict(ctx context.Context, raffleID uint, claims models.ClaimedNumbers) *NumberConflictError {
	taken, err := s.selectionRepo.FirstClaimed(ctx, raffleID, claims)
	if err == nil && taken != nil {
		return &NumberConflictError{Number: taken.Number, PageNumber: taken.PageNumber}
	}
	return &NumberConflictError{Number: claims[0].Number, PageNumber: claims[0].PageNumber}
}

func (s *ReservationFlowImpl) createAuditLog(ctx context.Context, action, resource string, resourceID *string, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		Action:       action,
		Resource:     resource,
		ResourceID:   resourceID,
		Description:  &description,
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
