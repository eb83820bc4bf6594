// Package livegrid serves the live grid widget: seed rows over HTTP and
// real-time ticks over a WebSocket.
package livegrid

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/okonst/widgetbridge/internal/service/market"
	"github.com/okonst/widgetbridge/pkg/utils"
)

// Handler owns the live grid endpoints.
type Handler struct {
	feed     *market.Feed
	interval time.Duration
	upgrader websocket.Upgrader
}

// New creates the live grid handler around a market feed.
func New(feed *market.Feed, interval time.Duration) *Handler {
	return &Handler{
		feed:     feed,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the seed-data and WebSocket endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/live_grid_data", h.handleSeedData)
	r.Get("/live_grid_ws", h.handleWebSocket)
}

// handleSeedData returns the initial table rows for the requested
// comma-separated symbols.
func (h *Handler) handleSeedData(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if raw == "" {
		utils.RespondError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}

	symbols := splitSymbols(raw)
	utils.RespondJSON(w, http.StatusOK, h.feed.SeedRows(symbols))
}

// subscribeMessage is the inbound WebSocket frame: the dashboard sends the
// currently selected symbols whenever the widget parameters change.
type subscribeMessage struct {
	Params struct {
		Symbol json.RawMessage `json:"symbol"`
	} `json:"params"`
}

// symbols decodes the symbol field, which arrives either as a
// comma-separated string or as a string array.
func (m *subscribeMessage) symbols() []string {
	if len(m.Params.Symbol) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(m.Params.Symbol, &single); err == nil {
		return splitSymbols(single)
	}

	var many []string
	if err := json.Unmarshal(m.Params.Symbol, &many); err == nil {
		out := make([]string, 0, len(many))
		for _, sym := range many {
			if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
				out = append(out, sym)
			}
		}
		return out
	}
	return nil
}

// handleWebSocket upgrades the connection and runs the consumer/producer
// pair until either side fails or the client goes away.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[livegrid] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[livegrid] connection from %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The subscription set is owned by the consumer goroutine and
	// published here for the producer.
	updates := make(chan []string, 1)

	go func() {
		defer cancel()
		for {
			var msg subscribeMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("[livegrid] read failed: %v", err)
				}
				return
			}
			if symbols := msg.symbols(); symbols != nil {
				select {
				case updates <- symbols:
				case <-ctx.Done():
					return
				default:
					// Replace a stale unconsumed update.
					select {
					case <-updates:
					default:
					}
					updates <- symbols
				}
			}
		}
	}()

	h.produceTicks(ctx, conn, updates)
}

// produceTicks pushes one tick per subscribed symbol each interval.
func (h *Handler) produceTicks(ctx context.Context, conn *websocket.Conn, updates <-chan []string) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var subscribed []string
	for {
		select {
		case <-ctx.Done():
			return
		case symbols := <-updates:
			subscribed = symbols
		case <-ticker.C:
			for _, sym := range subscribed {
				if err := conn.WriteJSON(h.feed.Next(sym)); err != nil {
					log.Printf("[livegrid] write failed: %v", err)
					return
				}
			}
		}
	}
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, sym := range parts {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}
