package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shopsite/internal/models"
)

// OrderNotifier pushes a short notification when an order is placed.
type OrderNotifier interface {
	NotifyNewOrder(order *models.Order) error
}

type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier returns nil when no bot token is configured; callers
// treat a nil notifier as disabled.
func NewTelegramNotifier(botToken string, adminChatID int64) OrderNotifier {
	if botToken == "" || adminChatID == 0 {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Printf("[notify][telegram] init failed: %v", err)
		return nil
	}
	return &telegramNotifier{bot: bot, chatID: adminChatID}
}

func (n *telegramNotifier) NotifyNewOrder(order *models.Order) error {
	text := fmt.Sprintf("New order #%d\nTotal: %s\nItems: %d\nShip to: %s",
		order.ID, order.TotalAmount, len(order.Items), order.ShippingAddress)
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
