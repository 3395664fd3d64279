// Package businessflow contains the core business logic and use cases for raffle workflows
package businessflow

import (
	"context"

	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
)

// RaffleFlow handles the public raffle read operations
type RaffleFlow interface {
	ListRaffles(ctx context.Context) (*dto.RaffleListResponse, error)
	GetRaffle(ctx context.Context, raffleID uint) (*dto.RaffleResponse, error)
	AvailableNumbers(ctx context.Context, req *dto.AvailableNumbersRequest) (*dto.AvailableNumbersResponse, error)
	Winner(ctx context.Context, raffleID uint) (*dto.WinnerResponse, error)
}

// RaffleFlowImpl implements the public raffle flow
type RaffleFlowImpl struct {
	raffleRepo    repository.RaffleRepository
	selectionRepo repository.SelectionRepository
	receiptRepo   repository.ReceiptRepository
}

// NewRaffleFlow creates a new raffle flow instance
func NewRaffleFlow(
	raffleRepo repository.RaffleRepository,
	selectionRepo repository.SelectionRepository,
	receiptRepo repository.ReceiptRepository,
) RaffleFlow {
	return &RaffleFlowImpl{
		raffleRepo:    raffleRepo,
		selectionRepo: selectionRepo,
		receiptRepo:   receiptRepo,
	}
}

// ListRaffles returns every raffle with its sold-number count, newest first
func (s *RaffleFlowImpl) ListRaffles(ctx context.Context) (*dto.RaffleListResponse, error) {
	raffles, err := s.raffleRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("RAFFLE_LOOKUP_FAILED", "Failed to list raffles", err)
	}

	resp := &dto.RaffleListResponse{Raffles: make([]dto.RaffleResponse, 0, len(raffles))}
	for _, raffle := range raffles {
		taken, err := s.selectionRepo.CountByRaffle(ctx, raffle.ID)
		if err != nil {
			return nil, NewBusinessError("SELECTION_COUNT_FAILED", "Failed to count selections", err)
		}
		resp.Raffles = append(resp.Raffles, ToRaffleResponse(*raffle, taken))
	}
	return resp, nil
}

// GetRaffle returns one raffle with its sold-number count
func (s *RaffleFlowImpl) GetRaffle(ctx context.Context, raffleID uint) (*dto.RaffleResponse, error) {
	raffle, err := s.loadRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	taken, err := s.selectionRepo.CountByRaffle(ctx, raffle.ID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_COUNT_FAILED", "Failed to count selections", err)
	}

	resp := ToRaffleResponse(*raffle, taken)
	return &resp, nil
}

// AvailableNumbers returns the free and taken numbers on one grid page. The
// split is a point-in-time snapshot; the claim itself is still decided by
// the ledger's uniqueness constraint.
func (s *RaffleFlowImpl) AvailableNumbers(ctx context.Context, req *dto.AvailableNumbersRequest) (*dto.AvailableNumbersResponse, error) {
	raffle, err := s.loadRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page == 0 {
		page = 1
	}
	start, end, err := raffle.PageBounds(page)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGE", "Page out of range", ErrInvalidPage)
	}

	selections, err := s.selectionRepo.ListByRafflePage(ctx, raffle.ID, page)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to list selections", err)
	}

	taken := make(map[int]struct{}, len(selections))
	takenNumbers := make([]int, 0, len(selections))
	for _, sel := range selections {
		taken[sel.Number] = struct{}{}
		takenNumbers = append(takenNumbers, sel.Number)
	}

	available := make([]int, 0, end-start+1-len(takenNumbers))
	for n := start; n <= end; n++ {
		if _, claimed := taken[n]; !claimed {
			available = append(available, n)
		}
	}

	return &dto.AvailableNumbersResponse{
		RaffleID:         raffle.ID,
		Page:             page,
		TotalPages:       raffle.TotalPages(),
		StartNumber:      start,
		EndNumber:        end,
		AvailableNumbers: available,
		TakenNumbers:     takenNumbers,
	}, nil
}

// Winner returns the winning receipt of a closed raffle with the buyer's
// contact redacted for public display
func (s *RaffleFlowImpl) Winner(ctx context.Context, raffleID uint) (*dto.WinnerResponse, error) {
	raffle, err := s.loadRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if raffle.Status != models.RaffleStatusClosed || raffle.WinningReceiptID == nil {
		return nil, NewBusinessError("WINNER_NOT_AVAILABLE", "Raffle has no winner yet", ErrRaffleNotFound)
	}

	receipt, err := s.receiptRepo.ByReceiptID(ctx, *raffle.WinningReceiptID)
	if err != nil {
		return nil, NewBusinessError("RECEIPT_LOOKUP_FAILED", "Failed to lookup winning receipt", err)
	}
	if receipt == nil {
		return nil, NewBusinessError("RECEIPT_NOT_FOUND", "Winning receipt not found", ErrReceiptNotFound)
	}

	numbers := make([]dto.ClaimedPairDTO, 0, len(receipt.Numbers))
	for _, n := range receipt.Numbers {
		numbers = append(numbers, dto.ClaimedPairDTO{Number: n.Number, PageNumber: n.PageNumber})
	}

	return &dto.WinnerResponse{
		RaffleID:    raffle.ID,
		RaffleTitle: raffle.Title,
		ReceiptID:   receipt.ReceiptID,
		Numbers:     numbers,
		Contact:     RedactContact(receipt.Buyer),
		PaidAt:      receipt.PaidAt,
	}, nil
}

func (s *RaffleFlowImpl) loadRaffle(ctx context.Context, raffleID uint) (*models.Raffle, error) {
	raffle, err := s.raffleRepo.ByID(ctx, raffleID)
	if err != nil {
		return nil, NewBusinessError("RAFFLE_LOOKUP_FAILED", "Failed to lookup raffle", err)
	}
	if raffle == nil {
		return nil, NewBusinessError("RAFFLE_NOT_FOUND", "Raffle not found", ErrRaffleNotFound)
	}
	return raffle, nil
}
