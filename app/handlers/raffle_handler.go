// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/subaruffles/backend/app/dto"
	businessflow "github.com/subaruffles/backend/business_flow"
	"github.com/subaruffles/backend/utils"
)

// RaffleHandlerInterface defines the contract for public raffle handlers
type RaffleHandlerInterface interface {
	ListRaffles(c fiber.Ctx) error
	GetRaffle(c fiber.Ctx) error
	AvailableNumbers(c fiber.Ctx) error
	Winner(c fiber.Ctx) error
}

// RaffleHandler handles public raffle HTTP requests
type RaffleHandler struct {
	raffleFlow businessflow.RaffleFlow
	validator  *validator.Validate
}

// NewRaffleHandler creates a new raffle handler
func NewRaffleHandler(raffleFlow businessflow.RaffleFlow) *RaffleHandler {
	return &RaffleHandler{
		raffleFlow: raffleFlow,
		validator:  validator.New(),
	}
}

func (h *RaffleHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *RaffleHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListRaffles returns all raffles with sale progress
func (h *RaffleHandler) ListRaffles(c fiber.Ctx) error {
	result, err := h.raffleFlow.ListRaffles(h.createRequestContext(c, "/api/v1/raffles"))
	if err != nil {
		log.Println("Raffle listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list raffles", "RAFFLE_LIST_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Raffles retrieved successfully", result)
}

// GetRaffle returns one raffle by ID
func (h *RaffleHandler) GetRaffle(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	result, err := h.raffleFlow.GetRaffle(h.createRequestContext(c, "/api/v1/raffles/:id"), raffleID)
	if err != nil {
		if businessflow.IsRaffleNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Raffle not found", "RAFFLE_NOT_FOUND", nil)
		}
		log.Println("Raffle lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get raffle", "RAFFLE_LOOKUP_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Raffle retrieved successfully", result)
}

// AvailableNumbers returns the free/taken split of one grid page
func (h *RaffleHandler) AvailableNumbers(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page", "INVALID_PAGE", nil)
		}
	}

	req := &dto.AvailableNumbersRequest{RaffleID: raffleID, Page: page}
	result, err := h.raffleFlow.AvailableNumbers(h.createRequestContext(c, "/api/v1/raffles/:id/available"), req)
	if err != nil {
		if businessflow.IsRaffleNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Raffle not found", "RAFFLE_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidPage(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Page out of range", "INVALID_PAGE", nil)
		}
		log.Println("Available numbers lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list numbers", "NUMBER_LOOKUP_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Numbers retrieved successfully", result)
}

// Winner returns the redacted winner of a closed raffle
func (h *RaffleHandler) Winner(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	result, err := h.raffleFlow.Winner(h.createRequestContext(c, "/api/v1/raffles/:id/winner"), raffleID)
	if err != nil {
		if businessflow.IsRaffleNotFound(err) || businessflow.IsReceiptNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Winner not available", "WINNER_NOT_AVAILABLE", nil)
		}
		log.Println("Winner lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get winner", "WINNER_LOOKUP_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Winner retrieved successfully", result)
}

func parseRaffleID(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

func (h *RaffleHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
