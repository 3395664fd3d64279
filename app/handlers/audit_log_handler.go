// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/subaruffles/backend/app/dto"
	businessflow "github.com/subaruffles/backend/business_flow"
)

// AuditLogHandlerInterface defines the contract for audit log handlers
type AuditLogHandlerInterface interface {
	List(c fiber.Ctx) error
}

// AuditLogHandler handles audit log HTTP requests
type AuditLogHandler struct {
	auditFlow businessflow.AuditLogFlow
	validator *validator.Validate
}

// NewAuditLogHandler creates a new audit log handler
func NewAuditLogHandler(auditFlow businessflow.AuditLogFlow) *AuditLogHandler {
	return &AuditLogHandler{
		auditFlow: auditFlow,
		validator: validator.New(),
	}
}

func (h *AuditLogHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AuditLogHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// List returns a filtered, paginated view of the audit trail
func (h *AuditLogHandler) List(c fiber.Ctx) error {
	var req dto.AuditLogFilterRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/audit-logs", 30*time.Second)

	result, err := h.auditFlow.List(ctx, &req)
	if err != nil {
		switch {
		case businessflow.IsInvalidPage(err), businessflow.IsInvalidPageSize(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_PAGINATION", nil)
		}

		log.Println("Failed to list audit logs", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list audit logs", "AUDIT_LOG_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Audit logs retrieved successfully", result)
}
