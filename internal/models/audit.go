package models

import "time"

// Audit actor types
const (
	AuditActorWallet  = "wallet"
	AuditActorSystem  = "system"
	AuditActorPayment = "payment_executor"
)

// AuditLog records one lifecycle step of an event.
type AuditLog struct {
	ID        int64          `json:"id"`
	EventID   int64          `json:"eventId"`
	ActorType string         `json:"actorType"`
	ActorID   *string        `json:"actorId,omitempty"` // wallet address when known
	Action    string         `json:"action"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
