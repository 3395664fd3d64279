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

// AdminAuthHandlerInterface defines the contract for admin auth handlers
type AdminAuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	Init(c fiber.Ctx) error
}

// AdminAuthHandler handles admin authentication HTTP requests
type AdminAuthHandler struct {
	authFlow  businessflow.AdminAuthFlow
	validator *validator.Validate
}

// NewAdminAuthHandler creates a new admin auth handler
func NewAdminAuthHandler(authFlow businessflow.AdminAuthFlow) *AdminAuthHandler {
	return &AdminAuthHandler{
		authFlow:  authFlow,
		validator: validator.New(),
	}
}

func (h *AdminAuthHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AdminAuthHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Login authenticates an admin and issues a token pair
func (h *AdminAuthHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
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
	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/login", 30*time.Second)

	result, err := h.authFlow.Login(ctx, &req, metadata)
	if err != nil {
		switch {
		case businessflow.IsInvalidCredentials(err):
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid username or password", "INVALID_CREDENTIALS", nil)
		case businessflow.IsAdminInactive(err):
			return h.ErrorResponse(c, fiber.StatusForbidden, "Account is disabled", "ADMIN_INACTIVE", nil)
		}

		log.Println("Admin login failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Init creates the first admin account. It only works while no admin
// exists yet; afterwards the endpoint is permanently closed.
func (h *AdminAuthHandler) Init(c fiber.Ctx) error {
	var req dto.AdminInitRequest
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
	ctx := createRequestContextWithTimeout(c, "/api/v1/admin/init", 30*time.Second)

	result, err := h.authFlow.Init(ctx, &req, metadata)
	if err != nil {
		switch {
		case businessflow.IsAdminAlreadyExists(err):
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin account already exists", "ADMIN_ALREADY_EXISTS", nil)
		case businessflow.IsUsernameRequired(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Username is required", "USERNAME_REQUIRED", nil)
		case businessflow.IsPasswordTooShort(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Password must be at least 8 characters", "PASSWORD_TOO_SHORT", nil)
		}

		log.Println("Admin init failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Admin initialization failed", "ADMIN_INIT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Admin account created successfully", result)
}
