// Package businessflow contains the business logic for the application.
package businessflow

import (
	"strings"
	"time"

	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToRaffleResponse converts a raffle model to its API representation
func ToRaffleResponse(raffle models.Raffle, takenCount int64) dto.RaffleResponse {
	return dto.RaffleResponse{
		ID:                raffle.ID,
		Title:             raffle.Title,
		Description:       raffle.Description,
		Status:            string(raffle.Status),
		EndDate:           raffle.EndDate,
		TotalNumbers:      raffle.TotalNumbers,
		TotalPages:        raffle.TotalPages(),
		Price:             raffle.Price,
		ExpirationMinutes: raffle.ExpirationMinutes,
		WinningReceiptID:  raffle.WinningReceiptID,
		PixName:           raffle.PixName,
		PixKey:            raffle.PixKey,
		PixQRCode:         raffle.PixQRCode,
		TakenCount:        takenCount,
		CreatedAt:         raffle.CreatedAt,
		UpdatedAt:         raffle.UpdatedAt,
	}
}

// ToReceiptResponse converts a receipt model to its API representation.
// Payment instructions are attached only while the receipt still awaits
// payment.
func ToReceiptResponse(receipt models.Receipt, raffle *models.Raffle) dto.ReceiptResponse {
	resp := dto.ReceiptResponse{
		ReceiptID:   receipt.ReceiptID,
		RaffleID:    receipt.RaffleID,
		Status:      string(receipt.Status),
		Numbers:     toClaimedPairDTOs(receipt.Numbers),
		Contact:     ToBuyerContactDTO(receipt.Buyer),
		TotalAmount: receipt.TotalAmount,
		CreatedAt:   receipt.CreatedAt,
		ExpiresAt:   receipt.ExpiresAt,
		PaidAt:      receipt.PaidAt,
		History:     toStatusChangeDTOs(receipt.History),
	}
	if raffle != nil {
		resp.RaffleTitle = raffle.Title
		if receipt.Status == models.ReceiptStatusWaitingPayment {
			resp.Payment = &dto.ReceiptPaymentDTO{
				PixName:   raffle.PixName,
				PixKey:    raffle.PixKey,
				PixQRCode: raffle.PixQRCode,
			}
		}
	}
	return resp
}

func toClaimedPairDTOs(numbers models.ClaimedNumbers) []dto.ClaimedPairDTO {
	pairs := make([]dto.ClaimedPairDTO, 0, len(numbers))
	for _, n := range numbers {
		pairs = append(pairs, dto.ClaimedPairDTO{Number: n.Number, PageNumber: n.PageNumber})
	}
	return pairs
}

func toStatusChangeDTOs(history models.StatusHistory) []dto.StatusChangeDTO {
	changes := make([]dto.StatusChangeDTO, 0, len(history))
	for _, h := range history {
		changes = append(changes, dto.StatusChangeDTO{
			Status:    string(h.Status),
			ChangedAt: h.ChangedAt,
			ChangedBy: h.ChangedBy,
			Note:      h.Note,
		})
	}
	return changes
}

// ToBuyerContactDTO converts a stored buyer contact to its API representation
func ToBuyerContactDTO(contact models.BuyerContact) dto.BuyerContactDTO {
	return dto.BuyerContactDTO{
		XHandle:          contact.XHandle,
		InstagramHandle:  contact.InstagramHandle,
		Whatsapp:         contact.Whatsapp,
		PreferredContact: contact.PreferredContact,
	}
}

// ToBuyerContact converts an API buyer contact into its storage form
func ToBuyerContact(contact dto.BuyerContactDTO) models.BuyerContact {
	return models.BuyerContact{
		XHandle:          strings.TrimSpace(contact.XHandle),
		InstagramHandle:  strings.TrimSpace(contact.InstagramHandle),
		Whatsapp:         strings.TrimSpace(contact.Whatsapp),
		PreferredContact: contact.PreferredContact,
	}
}

// RedactContact masks buyer contact handles for public display, keeping a
// short recognizable prefix
func RedactContact(contact models.BuyerContact) dto.WinnerContactDTO {
	return dto.WinnerContactDTO{
		XHandle:          redactHandle(contact.XHandle),
		InstagramHandle:  redactHandle(contact.InstagramHandle),
		Whatsapp:         redactHandle(contact.Whatsapp),
		PreferredContact: contact.PreferredContact,
	}
}

func redactHandle(handle string) string {
	if handle == "" {
		return ""
	}
	visible := 3
	if len(handle) <= visible {
		visible = 1
	}
	return handle[:visible] + strings.Repeat("*", len(handle)-visible)
}

// ToAdminDTOModel converts an admin model to its API representation
func ToAdminDTOModel(admin models.Admin) dto.AdminDTO {
	return dto.AdminDTO{
		ID:          admin.ID,
		UUID:        admin.UUID.String(),
		Username:    admin.Username,
		IsActive:    utils.IsTrue(admin.IsActive),
		LastLoginAt: admin.LastLoginAt,
		CreatedAt:   admin.CreatedAt.Format(time.RFC3339),
	}
}

// ToAdminSessionDTO builds the session payload for issued admin tokens
func ToAdminSessionDTO(accessToken, refreshToken string, expiresIn time.Duration) dto.AdminSessionDTO {
	return dto.AdminSessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(expiresIn.Seconds()),
		TokenType:    "Bearer",
	}
}
