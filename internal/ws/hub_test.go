package ws_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sacnstrip/internal/ws"
)

func TestHealth(t *testing.T) {
	h := ws.NewHub(50, func() map[string]any {
		return map[string]any{"packets_received": 7, "phase": "server-ready"}
	})

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 50, body["leds"])
	assert.EqualValues(t, 7, body["packets_received"])
	assert.Equal(t, "server-ready", body["phase"])
}

func TestBroadcastWithoutClients(t *testing.T) {
	h := ws.NewHub(2, nil)
	assert.NotPanics(t, func() { h.BroadcastFrame([]byte{1, 2, 3, 4, 5, 6}) })
}

func TestFramesReachClient(t *testing.T) {
	h := ws.NewHub(1, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleFramesWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The handler may still be registering the client; keep broadcasting
	// until a frame arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(10 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				h.BroadcastFrame([]byte{10, 20, 30})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		FrameID uint64 `json:"frame_id"`
		RGB     []byte `json:"rgb"`
	}
	require.NoError(t, json.Unmarshal(msg, &frame))
	assert.Equal(t, []byte{10, 20, 30}, frame.RGB)
	assert.NotZero(t, frame.FrameID)
}
