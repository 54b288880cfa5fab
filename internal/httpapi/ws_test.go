package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"psyched/internal/hub"
	"psyched/pkg/types"
)

func TestCanvasSocketReceivesBroadcast(t *testing.T) {
	reg := hub.NewRegistry([]string{"left-canva", "right-canva"}, zerolog.Nop())
	bc := hub.NewBroadcaster(reg, zerolog.Nop())
	mux := NewMux(&mockService{ready: true}, reg, bc, Options{})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/left-canva"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("handshake status=%d", resp.StatusCode)
	}

	// The join happens in the handler goroutine after the upgrade returns.
	deadline := time.Now().Add(2 * time.Second)
	for len(reg.Members("left-canva")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never joined the canvas")
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := types.FrameMessage{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Image:     "aGVsbG8=",
		ImageID:   "test-image-id",
	}
	if sent, failed := bc.Broadcast("left-canva", want); sent != 1 || failed != 0 {
		t.Fatalf("broadcast sent=%d failed=%d", sent, failed)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got types.FrameMessage
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("frame not JSON: %v", err)
	}
	if got != want {
		t.Fatalf("frame=%+v want %+v", got, want)
	}
}

func TestCanvasSocketUnknownCanvas(t *testing.T) {
	reg := hub.NewRegistry([]string{"left-canva"}, zerolog.Nop())
	bc := hub.NewBroadcaster(reg, zerolog.Nop())
	mux := NewMux(&mockService{ready: true}, reg, bc, Options{})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/nope"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		t.Fatal("dial succeeded for unknown canvas")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake response=%v", resp)
	}
}

func TestCanvasSocketDisconnectLeaves(t *testing.T) {
	reg := hub.NewRegistry([]string{"left-canva"}, zerolog.Nop())
	bc := hub.NewBroadcaster(reg, zerolog.Nop())
	mux := NewMux(&mockService{ready: true}, reg, bc, Options{})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/left-canva"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(reg.Members("left-canva")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never joined the canvas")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for len(reg.Members("left-canva")) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never left the canvas after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
