package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summerberry-forecast/models"
)

func sampleEvent() models.ForecastEvent {
	return models.ForecastEvent{
		Site:         "alm",
		Variety:      "b",
		Sector:       "S4",
		PlantType:    "rb",
		SelectedDate: "2024-06-01",
		Total:        1610,
		Average:      230,
		Days:         7,
	}
}

func TestCreatePayload(t *testing.T) {
	wm := NewWebhookManager(nil, nil)

	p := wm.CreatePayload(sampleEvent())

	assert.Equal(t, "forecast_generated", p.EventType)
	assert.Equal(t, 1610, p.TotalKg)
	assert.Contains(t, p.Message, "ALM/B sector S4")
	assert.Contains(t, p.Message, "Total: 1,610 kg")
	assert.Contains(t, p.Message, "Avg: 230 kg/day")
}

func TestForecastCompleted_Delivers(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p WebhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "alm", p.Site)
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	wm := NewWebhookManager([]string{server.URL, " ", server.URL + "/second"}, nil)
	require.True(t, wm.Enabled())

	wm.ForecastCompleted(context.Background(), sampleEvent())

	assert.Equal(t, int32(2), received.Load())
}

func TestForecastCompleted_RetriesThenGivesUp(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	wm := NewWebhookManager([]string{server.URL}, nil)
	wm.retryDelay = time.Millisecond

	wm.ForecastCompleted(context.Background(), sampleEvent())

	assert.Equal(t, int32(defaultMaxRetries), attempts.Load())
}

func TestDeliverWebhook_RecoversOnRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wm := NewWebhookManager(nil, nil)
	wm.retryDelay = time.Millisecond

	ok := wm.deliverWebhook(context.Background(), server.URL, []byte(`{}`))
	assert.True(t, ok)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestForecastCompleted_NoURLs(t *testing.T) {
	wm := NewWebhookManager([]string{"", "  "}, nil)
	assert.False(t, wm.Enabled())
	wm.ForecastCompleted(context.Background(), sampleEvent())
}
