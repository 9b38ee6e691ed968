package notifier

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"
)

// pollTimeout is the long-poll window requested from getUpdates.
const pollTimeout = 30

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

type getUpdatesParams struct {
	Offset  int `json:"offset"`
	Timeout int `json:"timeout"`
}

// StartPolling long-polls for commands and answers each with the
// handler's reply. Failed polls back off like SendWithRetry. Blocks until
// ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: (pollTimeout + 5) * time.Second, Transport: t.Client.Transport}
	offset, failures := 0, 0

	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			wait := t.backoff(failures)
			failures++
			log.Printf("[WARN] poll updates failed (%d in a row): %v, retrying in %v", failures, err, wait)
			pause(ctx, wait)
			continue
		}
		failures = 0
		offset = t.dispatch(ctx, updates, offset, handler)
	}
	log.Println("[INFO] Telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	var updates []telegramUpdate
	err := t.call(ctx, client, "getUpdates", getUpdatesParams{Offset: offset, Timeout: pollTimeout}, &updates)
	return updates, err
}

// dispatch runs handler for every text message and returns the next offset.
func (t *TelegramNotifier) dispatch(ctx context.Context, updates []telegramUpdate, offset int, handler CommandHandler) int {
	for _, update := range updates {
		if update.UpdateID >= offset {
			offset = update.UpdateID + 1
		}
		if update.Message == nil {
			continue
		}
		command := strings.TrimSpace(update.Message.Text)
		if command == "" {
			continue
		}
		log.Printf("[INFO] received command: %s", command)
		if reply := handler(ctx, command); reply != "" {
			if err := t.Send(ctx, reply); err != nil {
				log.Printf("[ERROR] send reply: %v", err)
			}
		}
	}
	return offset
}
