package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventhub/backend/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTippable(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  bool
	}{
		{"confirmed", events.Event{Type: events.EventStatusChanged, Payload: map[string]any{"status": "verified"}}, true},
		{"signed submit", events.Event{Type: events.EventCreated, Payload: map[string]any{"status": "verified"}}, true},
		{"observed", events.Event{Type: events.EventCreated, Payload: map[string]any{"status": "observed"}}, false},
		{"paid", events.Event{Type: events.EventStatusChanged, Payload: map[string]any{"status": "paid"}}, false},
		{"payment recorded", events.Event{Type: events.PaymentRecorded, Payload: map[string]any{"status": "verified"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tippable(tt.event))
		})
	}
}

func TestExecutorClient_Forward(t *testing.T) {
	var got events.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/verified" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewExecutorClient(srv.URL+"/", zap.NewNop())
	ev := events.Event{Type: events.EventStatusChanged, Payload: map[string]any{"eventId": float64(7), "status": "verified"}}
	require.NoError(t, c.Forward(context.Background(), ev))
	assert.Equal(t, ev, got)

	bad := NewExecutorClient(srv.URL+"/nope", zap.NewNop())
	assert.Error(t, bad.Forward(context.Background(), ev))
}
