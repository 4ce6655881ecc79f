package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"summerberry-forecast/models"
	"summerberry-forecast/websocket"
)

// EventForecastGenerated is broadcast after every successful forecast
const EventForecastGenerated = "forecast_generated"

// Broker fans events out to Server-Sent Events and WebSocket clients
type Broker struct {
	clients    map[chan []byte]bool
	register   chan chan []byte
	unregister chan chan []byte
	broadcast  chan []byte
	mu         sync.RWMutex

	allowedOrigins []string
	pingInterval   time.Duration
	log            *zap.Logger
}

// NewBroker creates a new broker. allowedOrigins applies to WebSocket upgrades.
func NewBroker(log *zap.Logger, allowedOrigins []string) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{
		clients:        make(map[chan []byte]bool),
		register:       make(chan chan []byte),
		unregister:     make(chan chan []byte),
		broadcast:      make(chan []byte, 256),
		allowedOrigins: allowedOrigins,
		pingInterval:   30 * time.Second,
		log:            log,
	}
}

// Run starts the broker loop and returns when ctx is done
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for client := range b.clients {
				delete(b.clients, client)
				close(client)
			}
			b.mu.Unlock()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			total := len(b.clients)
			b.mu.Unlock()
			b.log.Debug("Event client connected", zap.Int("clients", total))

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client)
			}
			total := len(b.clients)
			b.mu.Unlock()
			b.log.Debug("Event client disconnected", zap.Int("clients", total))

		case msg := <-b.broadcast:
			b.mu.RLock()
			for client := range b.clients {
				select {
				case client <- msg:
				default:
					// Skip if client buffer is full to prevent blocking
				}
			}
			b.mu.RUnlock()
		}
	}
}

// ClientCount returns the number of connected clients
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broker) subscribe(ctx context.Context) (chan []byte, bool) {
	client := make(chan []byte, 10)
	select {
	case b.register <- client:
		return client, true
	case <-ctx.Done():
		return nil, false
	}
}

func (b *Broker) unsubscribe(client chan []byte) {
	// Run may already have stopped and closed the channel
	select {
	case b.unregister <- client:
	case <-time.After(time.Second):
	}
}

// ServeHTTP handles the SSE endpoint
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, ok := b.subscribe(r.Context())
	if !ok {
		return
	}

	// Flush headers so clients see the stream open immediately
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			b.unsubscribe(client)
			return
		case msg, open := <-client:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// ServeWS streams the same events over a WebSocket
func (b *Broker) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Upgrade(w, r, b.allowedOrigins)
	if err != nil {
		b.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client, ok := b.subscribe(r.Context())
	if !ok {
		return
	}
	conn.StartPing(b.pingInterval)
	done := conn.Done()

	for {
		select {
		case <-done:
			b.unsubscribe(client)
			return
		case msg, open := <-client:
			if !open {
				return
			}
			if err := conn.WriteTextMessage(msg); err != nil {
				b.unsubscribe(client)
				return
			}
		}
	}
}

// Broadcast sends an event to all connected clients
func (b *Broker) Broadcast(event string, payload interface{}) {
	data := map[string]interface{}{
		"event":   event,
		"payload": payload,
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		b.log.Error("Error marshalling broadcast message", zap.Error(err))
		return
	}

	select {
	case b.broadcast <- jsonBytes:
	default:
		b.log.Warn("Broadcast buffer full, dropping event", zap.String("event", event))
	}
}

// ForecastCompleted broadcasts a forecast summary
func (b *Broker) ForecastCompleted(_ context.Context, evt models.ForecastEvent) {
	b.Broadcast(EventForecastGenerated, evt)
}
