package services

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Relay error constants
var (
	ErrRelayNotConfigured = errors.New("proof relay is not configured")
	ErrRelaySendFailed    = errors.New("failed to relay proof")
)

// ProofDocument is one payment proof file handed to the relay
type ProofDocument struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ProofRelay forwards payment proofs to an external review channel. The
// transition into receipt_uploaded only happens after the relay confirms
// delivery.
type ProofRelay interface {
	RelayProof(ctx context.Context, receiptID, raffleTitle string, numbers []int, doc ProofDocument) error
}

// TelegramProofRelay implements ProofRelay on top of a Telegram bot that
// posts each proof as a document into the review chat
type TelegramProofRelay struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramProofRelay creates a relay for the given bot token and chat
func NewTelegramProofRelay(token string, chatID int64) (*TelegramProofRelay, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	return &TelegramProofRelay{bot: bot, chatID: chatID}, nil
}

// RelayProof sends the proof file with a caption identifying the receipt
func (r *TelegramProofRelay) RelayProof(ctx context.Context, receiptID, raffleTitle string, numbers []int, doc ProofDocument) error {
	if r.bot == nil {
		return ErrRelayNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	file := tgbotapi.FileBytes{
		Name:  doc.FileName,
		Bytes: doc.Data,
	}
	msg := tgbotapi.NewDocument(r.chatID, file)
	msg.Caption = fmt.Sprintf("Payment proof\nReceipt: %s\nRaffle: %s\nNumbers: %v", receiptID, raffleTitle, numbers)

	if _, err := r.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrRelaySendFailed, err)
	}
	return nil
}

// NoopProofRelay accepts every proof without forwarding it, for deployments
// without a review channel and for tests
type NoopProofRelay struct{}

func (NoopProofRelay) RelayProof(ctx context.Context, receiptID, raffleTitle string, numbers []int, doc ProofDocument) error {
	return nil
}
