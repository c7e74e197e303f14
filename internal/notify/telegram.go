package notify

import (
	"context"
	"fmt"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier delivers notifications as Telegram messages. The
// previous notification for a user is deleted before a new one is sent
// so recurring reminders do not flood the chat.
type TelegramNotifier struct {
	api *tgbotapi.BotAPI

	mu       sync.Mutex
	lastMsgs map[int64]int
}

func NewTelegram(token string) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram API: %w", err)
	}
	return &TelegramNotifier{
		api:      api,
		lastMsgs: make(map[int64]int),
	}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, title, body string) error {
	n.mu.Lock()
	prev, hadPrev := n.lastMsgs[userID]
	n.mu.Unlock()

	if hadPrev {
		deleteMsg := tgbotapi.NewDeleteMessage(userID, prev)
		if _, err := n.api.Request(deleteMsg); err != nil {
			// The old message may already be gone; keep going.
			log.Printf("Failed to delete old notification message %d: %v", prev, err)
		}
	}

	text := "⏰ " + title
	if body != "" {
		text += "\n\n" + body
	}
	msg := tgbotapi.NewMessage(userID, text)

	sent, err := n.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}

	n.mu.Lock()
	n.lastMsgs[userID] = sent.MessageID
	n.mu.Unlock()
	return nil
}
