// Package notifier pushes review events to a Telegram chat so
// administrators hear about new submissions without polling the dashboard.
package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kycportal/internal/config"
	"kycportal/internal/models"
)

// Notifier sends review notifications. A nil *Notifier is valid and does
// nothing, mirroring how the service is skipped when disabled in config.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// New creates a Notifier, or (nil, nil) when the notifier is disabled.
func New(cfg *config.Config, logger *zap.Logger) (*Notifier, error) {
	if !cfg.Notifier.Enabled || cfg.Notifier.TelegramBotToken == "" {
		logger.Info("Review notifier is disabled (notifier.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Notifier.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Review notifier authorized", zap.String("username", botAPI.Self.UserName))

	return &Notifier{
		api:    botAPI,
		chatID: cfg.Notifier.ChatID,
		logger: logger,
	}, nil
}

// SubmissionReceived announces a freshly submitted KYC record.
func (n *Notifier) SubmissionReceived(kyc *models.KYC) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("New KYC submission #%d from %s (%s), awaiting review.", kyc.ID, kyc.FullName, kyc.UserEmail)
	n.send(text)
}

// Decision announces an admin decision on a KYC record.
func (n *Notifier) Decision(kyc *models.KYC) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("KYC #%d (%s) marked %s.", kyc.ID, kyc.UserEmail, kyc.Status)
	if kyc.AdminNotes.Valid && kyc.AdminNotes.String != "" {
		text += "\nNotes: " + kyc.AdminNotes.String
	}
	n.send(text)
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Warn("Failed to send review notification", zap.Error(err))
	}
}
