package notifier

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// CommandHandler answers one chat command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// pollTimeout is the long-poll window in seconds.
var pollTimeout = 30

// StartPolling long-polls getUpdates and answers commands from the configured chat.
// Messages from other chats are acknowledged and dropped. Blocks until ctx is done.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: time.Duration(pollTimeout+5) * time.Second}
	if t.Client != nil {
		client.Transport = t.Client.Transport
	}

	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = 2 * time.Second
	wait.MaxInterval = time.Minute
	wait.MaxElapsedTime = 0

	offset := 0
	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			d := wait.NextBackOff()
			t.Logger.Warn("telegram polling failed", zap.Duration("wait", d), zap.Error(err))
			sleepCtx(ctx, d)
			continue
		}
		wait.Reset()

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			text := strings.TrimSpace(u.Message.Text)
			if text == "" {
				continue
			}
			if chat := strconv.FormatInt(u.Message.Chat.ID, 10); chat != t.ChatID {
				t.Logger.Warn("ignoring command from unknown chat", zap.String("chat_id", chat))
				continue
			}
			t.dispatch(ctx, handler, text)
		}
	}
	t.Logger.Info("telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	var updates []telegramUpdate
	err := t.call(ctx, client, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         pollTimeout,
		"allowed_updates": []string{"message"},
	}, &updates)
	return updates, err
}

func (t *TelegramNotifier) dispatch(ctx context.Context, handler CommandHandler, command string) {
	t.Logger.Info("received command", zap.String("command", command))
	reply := handler(ctx, command)
	if reply == "" {
		return
	}
	if err := t.Send(ctx, reply); err != nil {
		t.Logger.Error("send reply", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
