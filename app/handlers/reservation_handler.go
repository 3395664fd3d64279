// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/app/middleware"
	businessflow "github.com/subaruffles/backend/business_flow"
)

// ReservationHandlerInterface defines the contract for reservation handlers
type ReservationHandlerInterface interface {
	Reserve(c fiber.Ctx) error
}

// ReservationHandler handles number reservation HTTP requests
type ReservationHandler struct {
	reservationFlow businessflow.ReservationFlow
	validator       *validator.Validate
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservationFlow businessflow.ReservationFlow) *ReservationHandler {
	return &ReservationHandler{
		reservationFlow: reservationFlow,
		validator:       validator.New(),
	}
}

func (h *ReservationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ReservationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Reserve handles a batch claim of numbers. A lost race for any number
// returns 409 naming the exact conflicting pair so the client can deselect
// just that one and resubmit the rest.
func (h *ReservationHandler) Reserve(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	var req dto.ReserveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.RaffleID = raffleID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		middleware.RecordReservation(middleware.ReservationOutcomeRejected)
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.reservationFlow.Reserve(h.createRequestContext(c, "/api/v1/raffles/:id/reserve"), &req, metadata)
	if err != nil {
		if conflict, ok := businessflow.AsNumberConflict(err); ok {
			middleware.RecordReservation(middleware.ReservationOutcomeConflict)
			return h.ErrorResponse(c, fiber.StatusConflict, "Number already claimed", "NUMBER_CONFLICT", dto.NumberConflictDetail{
				Number:     conflict.Number,
				PageNumber: conflict.PageNumber,
			})
		}

		middleware.RecordReservation(middleware.ReservationOutcomeRejected)
		switch {
		case businessflow.IsRaffleNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Raffle not found", "RAFFLE_NOT_FOUND", nil)
		case businessflow.IsReceiptIDTaken(err):
			return h.ErrorResponse(c, fiber.StatusConflict, "Requested receipt ID is already in use", "RECEIPT_ID_TAKEN", nil)
		case businessflow.IsTooManyNumbers(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Too many numbers in one reservation", "TOO_MANY_NUMBERS", nil)
		case businessflow.IsRaffleEnded(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Raffle has ended", "RAFFLE_ENDED", nil)
		case businessflow.IsRaffleNotOpen(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Raffle is not open", "RAFFLE_NOT_OPEN", nil)
		case businessflow.IsContactRequired(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one contact channel is required", "CONTACT_REQUIRED", nil)
		case businessflow.IsInvalidNumber(err), businessflow.IsInvalidPageNumber(err),
			businessflow.IsDuplicateNumbersInBatch(err), businessflow.IsNumbersRequired(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_SELECTION", nil)
		}

		log.Println("Reservation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Reservation failed", "RESERVATION_FAILED", nil)
	}

	middleware.RecordReservation(middleware.ReservationOutcomeSuccess)
	return h.SuccessResponse(c, fiber.StatusCreated, "Numbers reserved successfully", result)
}

func (h *ReservationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
