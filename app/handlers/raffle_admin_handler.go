// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/app/middleware"
	businessflow "github.com/subaruffles/backend/business_flow"
)

// RaffleAdminHandlerInterface defines the contract for admin raffle handlers
type RaffleAdminHandlerInterface interface {
	CreateRaffle(c fiber.Ctx) error
	UpdateRaffle(c fiber.Ctx) error
	DeleteRaffle(c fiber.Ctx) error
	ListSelections(c fiber.Ctx) error
	LookupSelection(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// RaffleAdminHandler handles admin raffle management HTTP requests
type RaffleAdminHandler struct {
	adminFlow businessflow.RaffleAdminFlow
	validator *validator.Validate
}

// NewRaffleAdminHandler creates a new admin raffle handler
func NewRaffleAdminHandler(adminFlow businessflow.RaffleAdminFlow) *RaffleAdminHandler {
	return &RaffleAdminHandler{
		adminFlow: adminFlow,
		validator: validator.New(),
	}
}

func (h *RaffleAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *RaffleAdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateRaffle creates a new raffle
func (h *RaffleAdminHandler) CreateRaffle(c fiber.Ctx) error {
	var req dto.CreateRaffleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/raffles", 30*time.Second)

	result, err := h.adminFlow.CreateRaffle(ctx, &req, adminUsernameFromLocals(c), metadata)
	if err != nil {
		switch {
		case businessflow.IsRaffleTitleRequired(err), businessflow.IsTotalNumbersTooSmall(err),
			businessflow.IsPriceRequired(err), businessflow.IsEndDateInPast(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_RAFFLE", nil)
		}

		log.Println("Failed to create raffle", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create raffle", "RAFFLE_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Raffle created successfully", result)
}

// UpdateRaffle applies a partial update to a raffle. Closing a raffle
// requires a winning receipt that belongs to it and has been paid.
func (h *RaffleAdminHandler) UpdateRaffle(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	var req dto.UpdateRaffleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.RaffleID = raffleID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/raffles/:id", 30*time.Second)

	result, err := h.adminFlow.UpdateRaffle(ctx, &req, adminUsernameFromLocals(c), metadata)
	if err != nil {
		switch {
		case businessflow.IsRaffleNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Raffle not found", "RAFFLE_NOT_FOUND", nil)
		case businessflow.IsInvalidRaffleStatus(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle status", "INVALID_RAFFLE_STATUS", nil)
		case businessflow.IsWinningReceiptRequired(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Closing a raffle requires a winning receipt", "WINNING_RECEIPT_REQUIRED", nil)
		case businessflow.IsWinningReceiptNotPaid(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Winning receipt must be paid", "WINNING_RECEIPT_NOT_PAID", nil)
		case businessflow.IsReceiptNotFound(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Winning receipt not found in this raffle", "WINNING_RECEIPT_NOT_FOUND", nil)
		case businessflow.IsPriceRequired(err), businessflow.IsEndDateInPast(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_RAFFLE", nil)
		}

		log.Println("Failed to update raffle", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update raffle", "RAFFLE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Raffle updated successfully", result)
}

// DeleteRaffle removes a raffle that has no receipts yet
func (h *RaffleAdminHandler) DeleteRaffle(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/raffles/:id", 30*time.Second)

	if err := h.adminFlow.DeleteRaffle(ctx, raffleID, adminUsernameFromLocals(c), metadata); err != nil {
		switch {
		case businessflow.IsRaffleNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Raffle not found", "RAFFLE_NOT_FOUND", nil)
		case businessflow.IsRaffleHasReceipts(err):
			return h.ErrorResponse(c, fiber.StatusConflict, "Raffle has receipts and cannot be deleted", "RAFFLE_HAS_RECEIPTS", nil)
		}

		log.Println("Failed to delete raffle", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete raffle", "RAFFLE_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Raffle deleted successfully", nil)
}

// ListSelections returns every claimed number of a raffle with buyer contacts
func (h *RaffleAdminHandler) ListSelections(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/raffles/:id/selections", 30*time.Second)

	selections, err := h.adminFlow.ListSelections(ctx, raffleID)
	if err != nil {
		if businessflow.IsRaffleNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Raffle not found", "RAFFLE_NOT_FOUND", nil)
		}

		log.Println("Failed to list selections", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list selections", "SELECTION_LIST_FAILED", nil)
	}

	resp := &dto.SelectionListResponse{
		RaffleID:   raffleID,
		Total:      len(selections),
		Selections: make([]dto.SelectionDTO, 0, len(selections)),
	}
	for _, sel := range selections {
		resp.Selections = append(resp.Selections, dto.SelectionDTO{
			Number:           sel.Number,
			PageNumber:       sel.PageNumber,
			ReceiptID:        sel.ReceiptID,
			XHandle:          sel.Buyer.XHandle,
			InstagramHandle:  sel.Buyer.InstagramHandle,
			Whatsapp:         sel.Buyer.Whatsapp,
			PreferredContact: sel.Buyer.PreferredContact,
			SelectedAt:       sel.SelectedAt,
		})
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Selections retrieved successfully", resp)
}

// LookupSelection checks a single (page, number) slot of a raffle
func (h *RaffleAdminHandler) LookupSelection(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	page, err := strconv.Atoi(c.Params("pageNumber"))
	if err != nil || page < 1 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page number", "INVALID_PAGE_NUMBER", nil)
	}
	number, err := strconv.Atoi(c.Params("number"))
	if err != nil || number < 1 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid number", "INVALID_NUMBER", nil)
	}

	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/raffles/:id/selections/:pageNumber/:number", 30*time.Second)

	result, err := h.adminFlow.LookupSelection(ctx, raffleID, page, number)
	if err != nil {
		switch {
		case businessflow.IsRaffleNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Raffle not found", "RAFFLE_NOT_FOUND", nil)
		case businessflow.IsInvalidNumber(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Number is out of range for this raffle", "INVALID_NUMBER", nil)
		case businessflow.IsInvalidPageNumber(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Page number does not match the number", "INVALID_PAGE_NUMBER", nil)
		}

		log.Println("Failed to lookup selection", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to lookup selection", "SELECTION_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Selection retrieved successfully", result)
}

// Export streams the raffle's selections as a CSV or XLSX download
func (h *RaffleAdminHandler) Export(c fiber.Ctx) error {
	raffleID, err := parseRaffleID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid raffle ID", "INVALID_RAFFLE_ID", nil)
	}

	req := dto.ExportRequest{
		RaffleID: raffleID,
		Format:   c.Query("format", "csv"),
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported export format", "INVALID_EXPORT_FORMAT", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/raffles/:id/export", 60*time.Second)

	data, contentType, fileName, err := h.adminFlow.Export(ctx, &req, adminUsernameFromLocals(c), metadata)
	if err != nil {
		if businessflow.IsRaffleNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Raffle not found", "RAFFLE_NOT_FOUND", nil)
		}

		log.Println("Failed to export raffle", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export raffle", "RAFFLE_EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Status(fiber.StatusOK).Send(data)
}

func adminUsernameFromLocals(c fiber.Ctx) string {
	if claims, ok := middleware.GetAdminClaimsFromContext(c); ok {
		return claims.Username
	}
	return ""
}
