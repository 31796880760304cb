package models

import "time"

// PaymentRecord is the ledger entry for a paid event; at most one per event.
type PaymentRecord struct {
	EventID    int64     `json:"eventId"`
	TxHash     string    `json:"txHash"`
	Amount     string    `json:"amount"`
	Token      Token     `json:"token"`
	Timestamp  time.Time `json:"timestamp"`
	RecordedAt time.Time `json:"recordedAt"`
}

// ReceiverClaim maps an external creator identity to a payout address.
type ReceiverClaim struct {
	ExternalID      string    `json:"externalId"`
	ReceiverAddress string    `json:"receiverAddress"`
	ClaimedBy       string    `json:"claimedBy,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AuthNonce is a one-shot wallet login challenge.
type AuthNonce struct {
	Nonce         string    `json:"nonce"`
	WalletAddress string    `json:"walletAddress"`
	CreatedAt     time.Time `json:"-"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Used          bool      `json:"-"`
}
