package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
)

// Webhook posts an order-confirmed event to the fulfillment collaborator.
// Delivery is fire-and-observe: failures are returned for logging but must
// never roll back the confirmation that triggered them.
type Webhook struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func NewWebhook(url string, log *zap.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log,
	}
}

type orderConfirmedEvent struct {
	EventID    string             `json:"event_id"`
	EventType  string             `json:"event_type"`
	OccurredAt time.Time          `json:"occurred_at"`
	Order      *domain.Order      `json:"order"`
	Items      []domain.OrderItem `json:"items"`
}

func (w *Webhook) OrderConfirmed(ctx context.Context, order *domain.Order, items []domain.OrderItem) error {
	if w.url == "" {
		w.log.Debug("no fulfillment webhook configured, skipping", zap.Int64("order_id", order.ID))
		return nil
	}
	event := orderConfirmedEvent{
		EventID:    uuid.NewString(),
		EventType:  "order.confirmed",
		OccurredAt: time.Now().UTC(),
		Order:      order,
		Items:      items,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Id", event.EventID)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	w.log.Info("fulfillment webhook delivered", zap.Int64("order_id", order.ID), zap.String("event_id", event.EventID))
	return nil
}
