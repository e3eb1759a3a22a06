package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		logrus.Debug("telegram bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		logrus.WithError(err).Warn("failed to send telegram message")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logrus.WithField("status", resp.StatusCode).Warn("telegram returned unexpected status")
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		logrus.Debug("telegram admin chat not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// DonationNotification contains settled-donation data for the admin chat.
type DonationNotification struct {
	TxRef     string
	DonorName string
	Email     string
	Amount    string
	Currency  string
}

// NotifyDonationSettled sends a notification about a completed donation.
func (s *TelegramService) NotifyDonationSettled(d DonationNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>💚 NEW DONATION!</b>
<b>📋 Reference:</b> %s
<b>👤 Donor:</b> %s
<b>✉️ Email:</b> %s
<b>💰 Amount:</b> %s %s
━━━━━━━━━━━━━━━━━━`,
		d.TxRef,
		d.DonorName,
		d.Email,
		d.Amount,
		d.Currency,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
