// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"io"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/app/services"
	businessflow "github.com/subaruffles/backend/business_flow"
	"github.com/subaruffles/backend/utils"
)

// ReceiptHandlerInterface defines the contract for public receipt handlers
type ReceiptHandlerInterface interface {
	GetReceipt(c fiber.Ctx) error
	UploadProof(c fiber.Ctx) error
}

// ReceiptHandler handles public receipt HTTP requests
type ReceiptHandler struct {
	receiptFlow businessflow.ReceiptFlow
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receiptFlow businessflow.ReceiptFlow) *ReceiptHandler {
	return &ReceiptHandler{receiptFlow: receiptFlow}
}

func (h *ReceiptHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ReceiptHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetReceipt returns the receipt for a given receipt ID, including its
// status history and payment instructions while payment is still pending.
func (h *ReceiptHandler) GetReceipt(c fiber.Ctx) error {
	receiptID := strings.ToUpper(strings.TrimSpace(c.Params("receiptId")))
	if receiptID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Receipt ID is required", "RECEIPT_ID_REQUIRED", nil)
	}

	ctx := createRequestContextWithTimeout(c, "/api/v1/receipts/detail/:receiptId", 30*time.Second)

	result, err := h.receiptFlow.GetReceipt(ctx, receiptID)
	if err != nil {
		if businessflow.IsReceiptNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Receipt not found", "RECEIPT_NOT_FOUND", nil)
		}

		log.Println("Failed to get receipt", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get receipt", "RECEIPT_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Receipt retrieved successfully", result)
}

// UploadProof accepts a payment proof file and relays it upstream. The
// receipt moves to receipt_uploaded only after the relay succeeds.
func (h *ReceiptHandler) UploadProof(c fiber.Ctx) error {
	receiptID := strings.ToUpper(strings.TrimSpace(c.Params("receiptId")))
	if receiptID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Receipt ID is required", "RECEIPT_ID_REQUIRED", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Proof file is required", "PROOF_REQUIRED", nil)
	}
	if fileHeader.Size > utils.MaxProofFileSize {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Proof file is too large", "PROOF_TOO_LARGE", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read proof file", "PROOF_READ_FAILED", nil)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, utils.MaxProofFileSize+1))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read proof file", "PROOF_READ_FAILED", nil)
	}
	if int64(len(data)) > utils.MaxProofFileSize {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Proof file is too large", "PROOF_TOO_LARGE", nil)
	}

	doc := services.ProofDocument{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	ctx := createRequestContextWithTimeout(c, "/api/v1/receipts/:receiptId/upload", 60*time.Second)

	result, err := h.receiptFlow.UploadProof(ctx, receiptID, doc, metadata)
	if err != nil {
		switch {
		case businessflow.IsReceiptNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Receipt not found", "RECEIPT_NOT_FOUND", nil)
		case businessflow.IsReceiptExpired(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Receipt has expired", "RECEIPT_EXPIRED", nil)
		case businessflow.IsInvalidStatusTransition(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Receipt does not accept proof uploads in its current status", "INVALID_STATUS_TRANSITION", nil)
		case businessflow.IsProofFileRequired(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Proof file is required", "PROOF_REQUIRED", nil)
		case businessflow.IsProofFileTooLarge(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Proof file is too large", "PROOF_TOO_LARGE", nil)
		case businessflow.IsRelayUnavailable(err):
			return h.ErrorResponse(c, fiber.StatusBadGateway, "Proof relay is unavailable, try again later", "RELAY_UNAVAILABLE", nil)
		}

		log.Println("Proof upload failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Proof upload failed", "PROOF_UPLOAD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Proof uploaded successfully", result)
}
