// Package testing provides test utilities and database setup for testing the raffle platform
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// TestBuyer returns a contact snapshot with all channels filled
func TestBuyer() models.BuyerContact {
	return models.BuyerContact{
		XHandle:          "@testbuyer",
		InstagramHandle:  "@testbuyer.ig",
		Whatsapp:         "+5511987654321",
		PreferredContact: models.ContactChannelX,
	}
}

// CreateTestRaffle creates an open raffle ending in the future
func (tf *TestFixtures) CreateTestRaffle(totalNumbers int) (*models.Raffle, error) {
	raffle := &models.Raffle{
		Title:             fmt.Sprintf("Test Raffle %d", rand.Intn(1000000)),
		Description:       "Raffle created by the test fixtures",
		Status:            models.RaffleStatusOpen,
		EndDate:           utils.UTCNowAdd(72 * time.Hour),
		TotalNumbers:      totalNumbers,
		Price:             10,
		ExpirationMinutes: 30,
		PixName:           "Test Seller",
		PixKey:            "test@pix.example.com",
	}

	if err := tf.DB.DB.Create(raffle).Error; err != nil {
		return nil, fmt.Errorf("failed to create test raffle: %w", err)
	}

	return raffle, nil
}

// CreateEndedRaffle creates a raffle whose sale cutoff has already passed
func (tf *TestFixtures) CreateEndedRaffle(totalNumbers int) (*models.Raffle, error) {
	raffle := &models.Raffle{
		Title:             fmt.Sprintf("Ended Raffle %d", rand.Intn(1000000)),
		Description:       "Ended raffle created by the test fixtures",
		Status:            models.RaffleStatusOpen,
		EndDate:           utils.UTCNowAdd(-1 * time.Hour),
		TotalNumbers:      totalNumbers,
		Price:             10,
		ExpirationMinutes: 30,
	}

	if err := tf.DB.DB.Create(raffle).Error; err != nil {
		return nil, fmt.Errorf("failed to create ended test raffle: %w", err)
	}

	return raffle, nil
}

// CreateTestReceipt creates a receipt with the given numbers bound to it,
// plus the matching selection rows. The receipt expires in 30 minutes.
func (tf *TestFixtures) CreateTestReceipt(raffle *models.Raffle, numbers []int) (*models.Receipt, error) {
	receiptID, err := utils.GenerateReceiptID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt id: %w", err)
	}

	buyer := TestBuyer()
	now := utils.UTCNow()

	claimed := make(models.ClaimedNumbers, 0, len(numbers))
	for _, n := range numbers {
		page := (n-1)/utils.NumbersPerPage + 1
		claimed = append(claimed, models.ClaimedNumber{Number: n, PageNumber: page})
	}

	receipt := &models.Receipt{
		ReceiptID:   receiptID,
		RaffleID:    raffle.ID,
		Status:      models.ReceiptStatusWaitingPayment,
		Numbers:     claimed,
		Buyer:       buyer,
		TotalAmount: float64(len(numbers)) * raffle.Price,
		CreatedAt:   now,
		ExpiresAt:   now.Add(30 * time.Minute),
	}

	if err := tf.DB.DB.Create(receipt).Error; err != nil {
		return nil, fmt.Errorf("failed to create test receipt: %w", err)
	}

	for _, c := range claimed {
		selection := &models.Selection{
			RaffleID:   raffle.ID,
			ReceiptID:  receiptID,
			PageNumber: c.PageNumber,
			Number:     c.Number,
			Buyer:      buyer,
			SelectedAt: now,
		}
		if err := tf.DB.DB.Create(selection).Error; err != nil {
			return nil, fmt.Errorf("failed to create test selection %d: %w", c.Number, err)
		}
	}

	return receipt, nil
}

// CreateOverdueReceipt creates a receipt whose payment deadline has passed
// but which is still in a non-terminal state
func (tf *TestFixtures) CreateOverdueReceipt(raffle *models.Raffle, numbers []int) (*models.Receipt, error) {
	receipt, err := tf.CreateTestReceipt(raffle, numbers)
	if err != nil {
		return nil, err
	}

	expiredAt := utils.UTCNowAdd(-10 * time.Minute)
	err = tf.DB.DB.Model(&models.Receipt{}).
		Where("id = ?", receipt.ID).
		Update("expires_at", expiredAt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to backdate test receipt: %w", err)
	}

	receipt.ExpiresAt = expiredAt
	return receipt, nil
}

// CreateTestAdmin creates an active admin with the given credentials
func (tf *TestFixtures) CreateTestAdmin(username, password string) (*models.Admin, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}

	return admin, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(adminID *uint, action, resource string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		AdminID:     adminID,
		Action:      action,
		Resource:    resource,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
