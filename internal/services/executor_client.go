package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eventhub/backend/internal/events"
	"github.com/eventhub/backend/internal/models"
	"go.uber.org/zap"
)

// ExecutorClient notifies the external payment executor about events that
// became tippable. The executor then calls quote and recordPayment itself.
type ExecutorClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewExecutorClient(baseURL string, log *zap.Logger) *ExecutorClient {
	return &ExecutorClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// Tippable reports whether a lifecycle notification is worth forwarding.
func Tippable(event events.Event) bool {
	status, _ := event.Payload["status"].(string)
	return status == models.EventStatusVerified &&
		(event.Type == events.EventCreated || event.Type == events.EventStatusChanged)
}

// Forward posts the notification to <base>/events/verified.
func (c *ExecutorClient) Forward(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	url := c.baseURL + "/events/verified"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment executor unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payment executor returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
