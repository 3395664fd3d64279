package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/app/services"
	businessflow "github.com/subaruffles/backend/business_flow"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	testingutil "github.com/subaruffles/backend/testing"
	"github.com/subaruffles/backend/utils"
)

func newTokenService(t *testing.T) services.TokenService {
	t.Helper()
	ts, err := services.NewTokenService(
		utils.AccessTokenTTL,
		utils.RefreshTokenTTL,
		"subaruffles-test",
		"subaruffles-test",
		false,
		"", "",
		"test-secret-key-that-is-long-enough-0123456789",
	)
	require.NoError(t, err)
	return ts
}

func newAdminAuthFlow(testDB *testingutil.TestDB, tokenService services.TokenService) businessflow.AdminAuthFlow {
	return businessflow.NewAdminAuthFlow(
		repository.NewAdminRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		tokenService,
	)
}

func TestAdminInit(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		tokenService := newTokenService(t)
		flow := newAdminAuthFlow(testDB, tokenService)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("BootstrapsFirstAdmin", func(t *testing.T) {
			resp, err := flow.Init(ctx, &dto.AdminInitRequest{
				Username: "operator",
				Password: "CorrectHorse1!",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "operator", resp.Admin.Username)
			assert.True(t, resp.Admin.IsActive)
			assert.NotEmpty(t, resp.Session.AccessToken)
			assert.NotEmpty(t, resp.Session.RefreshToken)
			assert.Equal(t, "Bearer", resp.Session.TokenType)

			claims, err := tokenService.ValidateAdminToken(resp.Session.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, "operator", claims.Username)
			assert.Equal(t, "access", claims.TokenType)
		})

		t.Run("SecondInitRejected", func(t *testing.T) {
			_, err := flow.Init(ctx, &dto.AdminInitRequest{
				Username: "intruder",
				Password: "CorrectHorse1!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsAdminAlreadyExists(err))
		})

		t.Run("ShortPasswordRejected", func(t *testing.T) {
			_, err := flow.Init(ctx, &dto.AdminInitRequest{
				Username: "operator",
				Password: "short",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsPasswordTooShort(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAdminLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		tokenService := newTokenService(t)
		flow := newAdminAuthFlow(testDB, tokenService)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		admin, err := fixtures.CreateTestAdmin("operator", "CorrectHorse1!")
		require.NoError(t, err)

		t.Run("Success", func(t *testing.T) {
			resp, err := flow.Login(ctx, &dto.AdminLoginRequest{
				Username: "operator",
				Password: "CorrectHorse1!",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, admin.ID, resp.Admin.ID)
			assert.NotEmpty(t, resp.Session.AccessToken)

			// Last login recorded
			var loaded models.Admin
			require.NoError(t, testDB.DB.First(&loaded, admin.ID).Error)
			require.NotNil(t, loaded.LastLoginAt)
			assert.WithinDuration(t, utils.UTCNow(), *loaded.LastLoginAt, time.Minute)

			// Audit trail entry
			var audit models.AuditLog
			require.NoError(t, testDB.DB.Where("action = ?", models.AuditActionLoginSuccess).First(&audit).Error)
			require.NotNil(t, audit.AdminID)
			assert.Equal(t, admin.ID, *audit.AdminID)
		})

		t.Run("WrongPassword", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.AdminLoginRequest{
				Username: "operator",
				Password: "WrongHorse1!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))

			var audit models.AuditLog
			require.NoError(t, testDB.DB.Where("action = ?", models.AuditActionLoginFailed).First(&audit).Error)
		})

		t.Run("UnknownUsernameSameError", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.AdminLoginRequest{
				Username: "nobody",
				Password: "CorrectHorse1!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("InactiveAdmin", func(t *testing.T) {
			inactive, err := fixtures.CreateTestAdmin("retired", "CorrectHorse1!")
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.Admin{}).
				Where("id = ?", inactive.ID).
				Update("is_active", false).Error)

			_, err = flow.Login(ctx, &dto.AdminLoginRequest{
				Username: "retired",
				Password: "CorrectHorse1!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsAdminInactive(err))
		})

		return nil
	})
	require.NoError(t, err)
}
