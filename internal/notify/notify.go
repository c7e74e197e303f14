package notify

import (
	"context"
	"log"
)

// LogNotifier writes notifications to the process log. It is the
// fallback display channel when no Telegram token is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, userID int64, title, body string) error {
	if body != "" {
		log.Printf("Notification for user %d: %s: %s", userID, title, body)
	} else {
		log.Printf("Notification for user %d: %s", userID, title)
	}
	return nil
}
