package dto

import (
	"time"

	"github.com/eventhub/backend/internal/models"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	Kind          string `json:"kind,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

// EventView adds the boolean view of the status that wallet frontends read.
type EventView struct {
	*models.Event
	Verified bool `json:"verified"`
}

func NewEventView(e *models.Event) EventView {
	return EventView{Event: e, Verified: e.Verified()}
}

func NewEventViews(list []models.Event) []EventView {
	out := make([]EventView, 0, len(list))
	for i := range list {
		out = append(out, NewEventView(&list[i]))
	}
	return out
}

// EventListResponse pages a filtered listing. Total counts every event
// matching the filter before limit and offset.
type EventListResponse struct {
	Count  int         `json:"count"`
	Total  int         `json:"total"`
	Events []EventView `json:"events"`
}

type NonceResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthResponse struct {
	Token  string `json:"token"`
	Wallet string `json:"wallet"`
}

type TippingConfigResponse struct {
	WalletAddress string                `json:"walletAddress"`
	Config        *models.TippingConfig `json:"config"`
	// IsDefault is true when the wallet never saved a config.
	IsDefault bool `json:"isDefault"`
}

type ResolveReceiverResponse struct {
	ExternalID      string  `json:"externalId"`
	ReceiverAddress *string `json:"receiverAddress"`
	Source          string  `json:"source"`
}

type ReceiverListResponse struct {
	Claims []models.ReceiverClaim `json:"claims"`
	Total  int                    `json:"total"`
}
