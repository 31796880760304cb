package events

import "context"

// StreamLifecycle carries every event lifecycle notification.
const StreamLifecycle = "events:lifecycle"

// Event types
const (
	EventCreated       = "event_created"
	EventStatusChanged = "event_status_changed"
	PaymentRecorded    = "payment_recorded"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Wallet returns the owning wallet carried in the payload, if any.
func (e Event) Wallet() string {
	w, _ := e.Payload["walletAddress"].(string)
	return w
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
