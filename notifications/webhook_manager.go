package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"summerberry-forecast/helpers"
	"summerberry-forecast/models"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// WebhookManager posts forecast summaries to configured webhook URLs
type WebhookManager struct {
	urls       []string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	log        *zap.Logger
}

// WebhookPayload represents the JSON payload sent to webhooks
type WebhookPayload struct {
	EventType    string    `json:"EventType"`
	GeneratedAt  time.Time `json:"GeneratedAt"`
	Site         string    `json:"Site"`
	Variety      string    `json:"Variety"`
	Sector       string    `json:"Sector"`
	PlantType    string    `json:"PlantType"`
	SelectedDate string    `json:"SelectedDate"`
	TotalKg      int       `json:"TotalKg"`
	AverageKg    int       `json:"AverageKg"`
	Days         int       `json:"Days"`
	Message      string    `json:"Message"`
}

// NewWebhookManager creates a new webhook manager. Blank URLs are ignored.
func NewWebhookManager(urls []string, log *zap.Logger) *WebhookManager {
	if log == nil {
		log = zap.NewNop()
	}

	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}

	return &WebhookManager{
		urls: clean,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		log:        log,
	}
}

// Enabled reports whether any webhook is configured
func (wm *WebhookManager) Enabled() bool {
	return len(wm.urls) > 0
}

// ForecastCompleted delivers the summary to every webhook and waits for all deliveries
func (wm *WebhookManager) ForecastCompleted(ctx context.Context, evt models.ForecastEvent) {
	if !wm.Enabled() {
		return
	}

	payloadBytes, err := json.Marshal(wm.CreatePayload(evt))
	if err != nil {
		wm.log.Error("Failed to marshal webhook payload", zap.Error(err))
		return
	}

	done := make(chan struct{}, len(wm.urls))
	for _, url := range wm.urls {
		go func(url string) {
			defer func() { done <- struct{}{} }()
			wm.deliverWebhook(ctx, url, payloadBytes)
		}(url)
	}
	for range wm.urls {
		<-done
	}
}

// CreatePayload generates the webhook payload from a forecast summary
func (wm *WebhookManager) CreatePayload(evt models.ForecastEvent) WebhookPayload {
	// Example: "🫐 FORECAST ALM/B sector S4 from 2024-06-01 | 7 days | Total: 1,610 kg | Avg: 230 kg/day"
	message := fmt.Sprintf("🫐 FORECAST %s/%s sector %s from %s | %d days | Total: %s | Avg: %s/day",
		strings.ToUpper(evt.Site),
		strings.ToUpper(evt.Variety),
		evt.Sector,
		evt.SelectedDate,
		evt.Days,
		helpers.FormatKg(evt.Total),
		helpers.FormatKg(evt.Average),
	)

	return WebhookPayload{
		EventType:    "forecast_generated",
		GeneratedAt:  time.Now().UTC(),
		Site:         evt.Site,
		Variety:      evt.Variety,
		Sector:       evt.Sector,
		PlantType:    evt.PlantType,
		SelectedDate: evt.SelectedDate,
		TotalKg:      evt.Total,
		AverageKg:    evt.Average,
		Days:         evt.Days,
		Message:      message,
	}
}

func (wm *WebhookManager) deliverWebhook(ctx context.Context, url string, payload []byte) bool {
	var lastErr error

	for attempt := 1; attempt <= wm.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
		if err != nil {
			wm.log.Warn("Invalid webhook URL", zap.String("url", url), zap.Error(err))
			return false
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Summerberry-Forecast/1.0")

		wm.log.Debug("Sending webhook",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", wm.maxRetries))

		resp, err := wm.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return true
			}
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		// Wait before retry
		if attempt < wm.maxRetries {
			select {
			case <-time.After(wm.retryDelay):
			case <-ctx.Done():
				wm.log.Warn("Webhook delivery cancelled", zap.String("url", url), zap.Error(ctx.Err()))
				return false
			}
		}
	}

	wm.log.Warn("Webhook delivery failed",
		zap.String("url", url),
		zap.Int("attempts", wm.maxRetries),
		zap.Error(lastErr))
	return false
}
