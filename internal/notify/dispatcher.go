package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-photoedit/internal/events"
	"github.com/noah-isme/backend-photoedit/internal/obs"
)

// Notification is one message bound for one channel.
type Notification struct {
	UserID     string
	Channel    Channel
	Category   Category
	Topic      string
	OrderID    uuid.UUID
	Title      string
	Body       string
	OccurredAt time.Time
}

// Sender delivers notifications on a channel.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	Logger zerolog.Logger
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, n Notification) error {
	s.Logger.Info().
		Str("user_id", n.UserID).
		Str("channel", string(n.Channel)).
		Str("category", string(n.Category)).
		Str("topic", n.Topic).
		Str("order_id", n.OrderID.String()).
		Str("title", n.Title).
		Msg(n.Body)
	return nil
}

// Dispatcher turns order events into notifications filtered by the
// recipient's preferences. It implements events.Notifier.
type Dispatcher struct {
	Prefs   Store
	Senders map[Channel]Sender
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Notify implements events.Notifier. Events without a category or a
// userId in their payload are ignored.
func (d Dispatcher) Notify(ctx context.Context, ev events.Event) error {
	category, ok := CategoryFor(ev.Topic)
	if !ok || d.Prefs == nil {
		return nil
	}
	payload := map[string]any{}
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("notify: decode payload: %w", err)
		}
	}
	userID := stringField(payload, "userId")
	if userID == "" {
		return nil
	}
	prefs, err := d.Prefs.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("notify: load preferences: %w", err)
	}
	decision := prefs.Decide(category, d.now())
	obs.ObserveNotification(string(category), decision.Outcome)
	if len(decision.Channels) == 0 {
		d.Logger.Debug().
			Str("user_id", userID).
			Str("topic", ev.Topic).
			Str("outcome", decision.Outcome).
			Msg("notification suppressed")
		return nil
	}

	title, body := render(ev.Topic, payload)
	var errs []error
	for _, ch := range decision.Channels {
		sender := d.Senders[ch]
		if sender == nil {
			continue
		}
		err := sender.Send(ctx, Notification{
			UserID:     userID,
			Channel:    ch,
			Category:   category,
			Topic:      ev.Topic,
			OrderID:    ev.AggregateID,
			Title:      title,
			Body:       body,
			OccurredAt: ev.OccurredAt,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

func (d Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func stringField(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func render(topic string, payload map[string]any) (string, string) {
	switch topic {
	case events.TopicOrderCreated:
		return "Order received", "Your editing order has been placed."
	case events.TopicOrderStatusChanged:
		return "Order updated", fmt.Sprintf("Your order is now %s.", stringField(payload, "to"))
	case events.TopicPaymentChanged:
		return "Payment updated", fmt.Sprintf("Payment status changed to %s.", stringField(payload, "to"))
	case events.TopicRevisionRequested:
		return "Revision requested", "Your revision request has been received."
	}
	return "Notification", topic
}
