// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/subaruffles/backend/app/dto"
	businessflow "github.com/subaruffles/backend/business_flow"
)

// ReceiptAdminHandlerInterface defines the contract for admin receipt handlers
type ReceiptAdminHandlerInterface interface {
	UpdateStatus(c fiber.Ctx) error
	ListByRaffle(c fiber.Ctx) error
}

// ReceiptAdminHandler handles admin receipt management HTTP requests
type ReceiptAdminHandler struct {
	receiptFlow businessflow.ReceiptFlow
	validator   *validator.Validate
}

// NewReceiptAdminHandler creates a new admin receipt handler
func NewReceiptAdminHandler(receiptFlow businessflow.ReceiptFlow) *ReceiptAdminHandler {
	return &ReceiptAdminHandler{
		receiptFlow: receiptFlow,
		validator:   validator.New(),
	}
}

func (h *ReceiptAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ReceiptAdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// UpdateStatus moves a receipt to a new status. Marking a receipt expired
// also releases its numbers back to the pool.
func (h *ReceiptAdminHandler) UpdateStatus(c fiber.Ctx) error {
	receiptID := strings.ToUpper(strings.TrimSpace(c.Params("receiptId")))
	if receiptID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Receipt ID is required", "RECEIPT_ID_REQUIRED", nil)
	}

	var req dto.UpdateReceiptStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.ReceiptID = receiptID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/receipts/:receiptId/status", 30*time.Second)

	result, err := h.receiptFlow.UpdateStatus(ctx, &req, adminUsernameFromLocals(c), metadata)
	if err != nil {
		switch {
		case businessflow.IsReceiptNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Receipt not found", "RECEIPT_NOT_FOUND", nil)
		case businessflow.IsInvalidStatusTransition(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_STATUS_TRANSITION", nil)
		}

		log.Println("Failed to update receipt status", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update receipt status", "RECEIPT_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Receipt status updated successfully", result)
}

// ListByRaffle returns all receipts of a raffle with full contact details
func (h *ReceiptAdminHandler) ListByRaffle(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/raffles/:id/receipts", 30*time.Second)

	result, err := h.receiptFlow.ListByRaffle(ctx, raffleID)
	if err != nil {
		if businessflow.IsRaffleNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Raffle not found", "RAFFLE_NOT_FOUND", nil)
		}

		log.Println("Failed to list receipts", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list receipts", "RECEIPT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Receipts retrieved successfully", result)
}
