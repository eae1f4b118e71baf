package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type stubVerifier struct {
	userID uuid.UUID
	err    error
}

func (s stubVerifier) ParseUserID(tokenStr string) (uuid.UUID, error) {
	return s.userID, s.err
}

func TestHandleWebSocket_RejectsMissingOrBadToken(t *testing.T) {
	tests := []struct {
		name   string
		target string
		auth   stubVerifier
	}{
		{"no token", "/api/v1/ws", stubVerifier{userID: uuid.New()}},
		{"bad token", "/api/v1/ws?token=garbage", stubVerifier{err: errors.New("invalid")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHub(nil, tc.auth, "http://localhost:3000")
			rr := httptest.NewRecorder()
			h.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, tc.target, nil))

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if len(h.connections) != 0 {
				t.Error("no connection should be registered")
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewHub(nil, stubVerifier{}, "http://localhost:3000")

	cases := map[string]bool{
		"":                      true,
		"http://localhost:3000": true,
		"https://evil.example":  false,
	}
	for origin, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if got := h.upgrader.CheckOrigin(req); got != want {
			t.Errorf("CheckOrigin(%q) = %v, want %v", origin, got, want)
		}
	}
}

// dialPair returns the server and client ends of a live socket.
func dialPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	select {
	case conn := <-serverConns:
		t.Cleanup(func() { conn.Close() })
		return conn, clientConn
	case <-time.After(5 * time.Second):
		t.Fatal("server side of the socket never arrived")
	}
	return nil, nil
}

func TestBroadcast_ConcurrentSubscribersShareOneWriter(t *testing.T) {
	serverConn, clientConn := dialPair(t)

	userID := uuid.New()
	h := NewHub(nil, stubVerifier{}, "")
	h.connections[userID] = []*client{{conn: serverConn}}

	// Two subscribers for the same user, as during a quick reconnect.
	const perSubscriber = 50
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSubscriber; j++ {
				h.broadcast(userID, []byte(`{"type":"status_update"}`))
			}
		}()
	}

	clientConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 2*perSubscriber; i++ {
		_, data, err := clientConn.ReadMessage()
		if err != nil {
			t.Fatalf("message %d: read failed: %v", i+1, err)
		}
		if string(data) != `{"type":"status_update"}` {
			t.Fatalf("message %d corrupted: %q", i+1, data)
		}
	}
	wg.Wait()
}
