package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// StatsFunc supplies live counters for the health endpoint.
type StatsFunc func() map[string]any

// Hub mirrors the rendered frames to websocket clients and serves a small
// health endpoint. It observes the render loop; it never feeds back into
// the signal path.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*websocket.Conn]bool
	frameID   uint64
	startTime time.Time
	leds      int
	stats     StatsFunc
}

func NewHub(leds int, stats StatsFunc) *Hub {
	return &Hub{
		clients:   map[*websocket.Conn]bool{},
		startTime: time.Now(),
		leds:      leds,
		stats:     stats,
	}
}

// BroadcastFrame fans one rendered frame out to every connected client.
// Slow clients are given a short write deadline and otherwise dropped on
// the floor; the render cadence must not care.
func (h *Hub) BroadcastFrame(rgb []byte) {
	h.mu.Lock()
	h.frameID++
	id := h.frameID
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}
	type frame struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		RGB     []byte `json:"rgb"`
	}
	b, _ := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: id, RGB: rgb})
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	resp := map[string]any{
		"frame_id": h.frameID,
		"uptime_s": time.Since(h.startTime).Seconds(),
		"leds":     h.leds,
	}
	h.mu.RUnlock()
	if h.stats != nil {
		for k, v := range h.stats() {
			resp[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Routes registers the hub's endpoints on mux.
func (h *Hub) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleFramesWS)
	mux.HandleFunc("/health", h.HandleHealth)
}
