// Package telegram notifies admins about upload and ledger transitions. Like
// the sheets exporter it is a pure event subscriber.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"apartment-ledger-backend/internal/events"
	"apartment-ledger-backend/internal/models"
)

const apiBase = "https://api.telegram.org"

type Notifier struct {
	token   string
	chatIDs []string
	client  *http.Client
	log     zerolog.Logger
}

func NewNotifier(token string, chatIDs []string, log zerolog.Logger) *Notifier {
	return &Notifier{
		token:   token,
		chatIDs: chatIDs,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Register subscribes the notifier to upload completions and recorded
// payments.
func (n *Notifier) Register(bus *events.Bus) {
	bus.Subscribe(events.UploadCompleted{}.Name(), func(_ context.Context, e events.Event) {
		ev, ok := e.(events.UploadCompleted)
		if !ok {
			return
		}
		uploadType := strings.ReplaceAll(string(ev.Type), "_", " ")

		var text string
		switch ev.Status {
		case models.UploadStatusProcessed:
			text = fmt.Sprintf("Upload processed: %s with %d transactions", uploadType, ev.TransactionCount)
		case models.UploadStatusFailed:
			text = fmt.Sprintf("Upload failed: %s (ID: %s)", uploadType, ev.UploadID)
		default:
			return
		}
		go n.NotifyAdmins(context.Background(), text)
	})

	bus.Subscribe(events.PaymentRecorded{}.Name(), func(_ context.Context, e events.Event) {
		ev, ok := e.(events.PaymentRecorded)
		if !ok {
			return
		}
		text := fmt.Sprintf("Payment recorded: %s for period %s (%s)",
			ev.Amount.StringFixed(2), ev.BillingPeriod, ev.MatchedBy)
		go n.NotifyAdmins(context.Background(), text)
	})
}

// NotifyAdmins sends text to every configured admin chat. Failures are
// logged, never propagated; notifications are best effort.
func (n *Notifier) NotifyAdmins(ctx context.Context, text string) {
	for _, chatID := range n.chatIDs {
		if err := n.send(ctx, chatID, text); err != nil {
			n.log.Error().Err(err).Str("chat_id", chatID).Msg("telegram send failed")
		}
	}
}

func (n *Notifier) send(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned %s", resp.Status)
	}
	return nil
}
