package models

import (
	"strings"
	"time"
)

// Event statuses
const (
	EventStatusObserved = "observed" // action reported, no signature yet
	EventStatusVerified = "verified" // wallet signature checked
	EventStatusPaid     = "paid"     // tip recorded
)

// Valid state transitions: from -> []to
var ValidEventTransitions = map[string][]string{
	EventStatusObserved: {EventStatusVerified},
	EventStatusVerified: {EventStatusPaid},
	EventStatusPaid:     {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidEventTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsValidInitialStatus reports whether an event may be created directly in status.
func IsValidInitialStatus(status string) bool {
	return status == EventStatusObserved || status == EventStatusVerified
}

func IsValidEventStatus(status string) bool {
	_, ok := ValidEventTransitions[status]
	return ok
}

// Well-known actions used by platform integrations.
const (
	ActionLike   = "LIKE"
	ActionFollow = "FOLLOW"
)

// EventFields are the identity fields covered by the wallet signature.
// They never change once an event is stored.
type EventFields struct {
	Platform      string `json:"platform"`
	Action        string `json:"action"`
	Actor         string `json:"actor"`
	Target        string `json:"target"`
	Timestamp     int64  `json:"timestamp"`
	WalletAddress string `json:"walletAddress"`
}

type Event struct {
	ID int64 `json:"id"`
	EventFields
	Status          string            `json:"status"`
	Signature       *string           `json:"signature,omitempty"`
	Fingerprint     string            `json:"-"`
	ProviderReceipt *string           `json:"providerReceipt,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	TxHash          *string           `json:"txHash,omitempty"`
	TipAmount       *string           `json:"tipAmount,omitempty"`
	TipToken        *Token            `json:"tipToken,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       *time.Time        `json:"updatedAt,omitempty"`
	VerifiedAt      *time.Time        `json:"verifiedAt,omitempty"`
	PaidAt          *time.Time        `json:"paidAt,omitempty"`
}

// Verified is derived from Status; there is no separate flag.
func (e *Event) Verified() bool {
	return e.Status == EventStatusVerified || e.Status == EventStatusPaid
}

// Fields returns the signed identity tuple of the event.
func (e *Event) Fields() EventFields {
	return e.EventFields
}

// BelongsTo compares wallets case-insensitively.
func (e *Event) BelongsTo(wallet string) bool {
	return e.WalletAddress != "" && strings.EqualFold(e.WalletAddress, wallet)
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Signature = cloneStr(e.Signature)
	c.ProviderReceipt = cloneStr(e.ProviderReceipt)
	c.TxHash = cloneStr(e.TxHash)
	c.TipAmount = cloneStr(e.TipAmount)
	c.UpdatedAt = cloneTime(e.UpdatedAt)
	c.VerifiedAt = cloneTime(e.VerifiedAt)
	c.PaidAt = cloneTime(e.PaidAt)
	if e.TipToken != nil {
		t := *e.TipToken
		c.TipToken = &t
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// EventPatch holds the mutable fields of an event. Nil fields are left as is.
type EventPatch struct {
	Status     *string
	Signature  *string
	Metadata   map[string]string
	TxHash     *string
	TipAmount  *string
	TipToken   *Token
	VerifiedAt *time.Time
	PaidAt     *time.Time
}

// Apply merges the patch into e and stamps UpdatedAt.
func (p EventPatch) Apply(e *Event, now time.Time) {
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Signature != nil {
		e.Signature = cloneStr(p.Signature)
	}
	if len(p.Metadata) > 0 {
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			e.Metadata[k] = v
		}
	}
	if p.TxHash != nil {
		e.TxHash = cloneStr(p.TxHash)
	}
	if p.TipAmount != nil {
		e.TipAmount = cloneStr(p.TipAmount)
	}
	if p.TipToken != nil {
		t := *p.TipToken
		e.TipToken = &t
	}
	if p.VerifiedAt != nil {
		e.VerifiedAt = cloneTime(p.VerifiedAt)
	}
	if p.PaidAt != nil {
		e.PaidAt = cloneTime(p.PaidAt)
	}
	e.UpdatedAt = &now
}

// EventStats is the read-only summary served by /events/stats.
type EventStats struct {
	Total      int            `json:"total"`
	ByPlatform map[string]int `json:"byPlatform"`
	ByAction   map[string]int `json:"byAction"`
	ByStatus   map[string]int `json:"byStatus"`
}

func NewEventStats() EventStats {
	return EventStats{
		ByPlatform: map[string]int{},
		ByAction:   map[string]int{},
		ByStatus:   map[string]int{},
	}
}

func (s *EventStats) Add(e *Event) {
	s.Total++
	s.ByPlatform[e.Platform]++
	s.ByAction[e.Action]++
	s.ByStatus[e.Status]++
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func StrPtr(s string) *string {
	return &s
}

func TimePtr(t time.Time) *time.Time {
	return &t
}
