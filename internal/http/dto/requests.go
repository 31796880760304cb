package dto

import "github.com/eventhub/backend/internal/models"

type SubmitEventRequest struct {
	Platform      string            `json:"platform"`
	Action        string            `json:"action"`
	Actor         string            `json:"actor"`
	Target        string            `json:"target"`
	Timestamp     int64             `json:"timestamp"`
	WalletAddress string            `json:"walletAddress"`
	Signature     string            `json:"signature"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type ConfirmEventRequest struct {
	Signature string `json:"signature"`
}

// ObservedActionRequest is what a platform integration reports.
type ObservedActionRequest struct {
	TargetID         string `json:"targetId"`
	WalletAddress    string `json:"walletAddress"`
	SoundcloudUserID string `json:"soundcloudUserId,omitempty"`
}

type NonceRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type WalletLoginRequest struct {
	WalletAddress string `json:"walletAddress"`
	Nonce         string `json:"nonce"`
	Signature     string `json:"signature"`
}

type SaveTippingConfigRequest struct {
	WalletAddress string                `json:"walletAddress"`
	Config        *models.TippingConfig `json:"config"`
}

type QuoteRequest struct {
	EventID   int64  `json:"eventId"`
	CreatorID string `json:"creatorId,omitempty"`
}

type RecordPaymentRequest struct {
	EventID int64         `json:"eventId"`
	TxHash  string        `json:"txHash"`
	Amount  string        `json:"amount"`
	Token   *models.Token `json:"token"`
}

// ClaimReceiverRequest accepts the legacy soundcloudUserId as an alias of externalId.
type ClaimReceiverRequest struct {
	ExternalID       string `json:"externalId"`
	SoundcloudUserID string `json:"soundcloudUserId,omitempty"`
	ReceiverAddress  string `json:"receiverAddress"`
}

func (r ClaimReceiverRequest) ID() string {
	if r.ExternalID != "" {
		return r.ExternalID
	}
	return r.SoundcloudUserID
}
