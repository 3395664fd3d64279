// Package businessflow contains the core business logic and use cases for admin authentication
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/app/services"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	"github.com/subaruffles/backend/utils"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthFlow represents the admin authentication flow used by handlers
type AdminAuthFlow interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
	Init(ctx context.Context, req *dto.AdminInitRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
}

// AdminAuthFlowImpl provides credential verification and first-admin bootstrap
type AdminAuthFlowImpl struct {
	adminRepo    repository.AdminRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
}

func NewAdminAuthFlow(adminRepo repository.AdminRepository, auditRepo repository.AuditLogRepository, tokenService services.TokenService) AdminAuthFlow {
	return &AdminAuthFlowImpl{
		adminRepo:    adminRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
	}
}

// Login verifies admin credentials and issues a token pair. Lookup and
// password failures return the same error so usernames cannot be probed.
func (af *AdminAuthFlowImpl) Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	if req == nil || len(req.Username) == 0 || len(req.Password) == 0 {
		return nil, NewBusinessError("ADMIN_LOGIN_VALIDATION_FAILED", "Admin login validation failed", ErrInvalidCredentials)
	}

	username := strings.TrimSpace(req.Username)

	admin, err := af.adminRepo.ByUsername(ctx, username)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if admin == nil {
		af.auditLogin(ctx, nil, username, false, utils.ToPtr("admin not found"), metadata)
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid username or password", ErrInvalidCredentials)
	}
	if !utils.IsTrue(admin.IsActive) {
		af.auditLogin(ctx, &admin.ID, username, false, utils.ToPtr("admin inactive"), metadata)
		return nil, NewBusinessError("ADMIN_INACTIVE", "Admin account is inactive", ErrAdminInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		af.auditLogin(ctx, &admin.ID, username, false, utils.ToPtr("incorrect password"), metadata)
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid username or password", ErrInvalidCredentials)
	}

	accessToken, refreshToken, err := af.tokenService.GenerateAdminTokens(admin.ID, admin.Username)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	now := utils.UTCNow()
	if err := af.adminRepo.UpdateLastLogin(ctx, admin.ID, now); err == nil {
		admin.LastLoginAt = &now
	}

	af.auditLogin(ctx, &admin.ID, username, true, nil, metadata)

	return &dto.AdminLoginResponse{
		Admin:   ToAdminDTOModel(*admin),
		Session: ToAdminSessionDTO(accessToken, refreshToken, af.tokenService.AccessTokenTTL()),
	}, nil
}

// Init bootstraps the first admin account. Once any admin exists the
// endpoint is permanently closed.
func (af *AdminAuthFlowImpl) Init(ctx context.Context, req *dto.AdminInitRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	if req == nil || strings.TrimSpace(req.Username) == "" {
		return nil, NewBusinessError("ADMIN_INIT_VALIDATION_FAILED", "Admin init validation failed", ErrUsernameRequired)
	}
	if len(req.Password) < 8 {
		return nil, NewBusinessError("ADMIN_INIT_VALIDATION_FAILED", "Admin init validation failed", ErrPasswordTooShort)
	}

	exists, err := af.adminRepo.Any(ctx)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admins", err)
	}
	if exists {
		return nil, NewBusinessError("ADMIN_ALREADY_EXISTS", "An admin account already exists", ErrAdminAlreadyExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_HASH_FAILED", "Failed to hash password", err)
	}

	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
	}
	if err := af.adminRepo.Save(ctx, admin); err != nil {
		return nil, NewBusinessError("ADMIN_CREATION_FAILED", "Failed to create admin", err)
	}

	msg := fmt.Sprintf("Admin account %q bootstrapped", admin.Username)
	af.audit(ctx, &admin.ID, models.AuditActionAdminCreated, msg, true, nil, metadata)

	accessToken, refreshToken, err := af.tokenService.GenerateAdminTokens(admin.ID, admin.Username)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	return &dto.AdminLoginResponse{
		Admin:   ToAdminDTOModel(*admin),
		Session: ToAdminSessionDTO(accessToken, refreshToken, af.tokenService.AccessTokenTTL()),
	}, nil
}

func (af *AdminAuthFlowImpl) auditLogin(ctx context.Context, adminID *uint, username string, success bool, errorMsg *string, metadata *ClientMetadata) {
	action := models.AuditActionLoginSuccess
	msg := fmt.Sprintf("Admin %q logged in", username)
	if !success {
		action = models.AuditActionLoginFailed
		msg = fmt.Sprintf("Admin login failed for %q", username)
	}
	af.audit(ctx, adminID, action, msg, success, errorMsg, metadata)
}

func (af *AdminAuthFlowImpl) audit(ctx context.Context, adminID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		AdminID:      adminID,
		Action:       action,
		Resource:     models.AuditResourceAdmin,
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

	_ = af.auditRepo.Save(ctx, audit)
}
