package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/game"
	"github.com/4cecoder/snakearena/models"
	"github.com/4cecoder/snakearena/protocol"
	"github.com/4cecoder/snakearena/session"
)

type rawMessage struct {
	Type     string            `json:"type"`
	ID       string            `json:"id"`
	Messages []json.RawMessage `json:"messages"`
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.TickPeriod = 5 * time.Millisecond
	cfg.BotCount = 2
	cfg.Food.TargetCount = 40
	cfg.Network.HeartbeatInterval = 50 * time.Millisecond
	return cfg
}

func startArena(t *testing.T, cfg config.Config, codec protocol.Codec) (*game.Server, string) {
	t.Helper()
	logger := log.New(io.Discard)
	srv := game.NewServer(cfg, codec, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Run(ctx)
		close(done)
	}()

	h := NewHandler(srv, cfg.Network, codec.Binary(), logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWebSocket)
	mux.HandleFunc("/", h.HandleRoot)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return srv, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// flatten expands batches into their messages.
func flatten(t *testing.T, data []byte) []rawMessage {
	t.Helper()
	var m rawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if m.Type != models.MsgBatch {
		return []rawMessage{m}
	}
	var out []rawMessage
	for _, raw := range m.Messages {
		out = append(out, flatten(t, raw)...)
	}
	return out
}

func waitFor(t *testing.T, conn *websocket.Conn, match func(rawMessage) bool) rawMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		for _, m := range flatten(t, data) {
			if match(m) {
				return m
			}
		}
	}
}

func TestWebSocketHandshakeWelcomeAndState(t *testing.T) {
	srv, wsURL := startArena(t, testConfig(), protocol.JSONCodec{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Input before hello is ignored rather than fatal.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"input","angle":1}`)); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello","name":"tester"}`)); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	welcome := waitFor(t, conn, func(m rawMessage) bool { return m.Type == models.MsgWelcome })
	if welcome.ID == "" {
		t.Fatalf("welcome without id")
	}
	waitFor(t, conn, func(m rawMessage) bool { return m.Type == models.MsgState })

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"input","angle":0.5,"boost":true}`)); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"respawn"}`)); err != nil {
		t.Fatalf("write respawn: %v", err)
	}
	again := waitFor(t, conn, func(m rawMessage) bool { return m.Type == models.MsgWelcome })
	if again.ID == welcome.ID {
		t.Fatalf("respawn kept snake id %s", welcome.ID)
	}

	if got := srv.Stats().Sessions; got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}
	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Stats().Sessions != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not closed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketBinaryFrames(t *testing.T) {
	_, wsURL := startArena(t, testConfig(), protocol.MsgpackCodec{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello, _ := msgpack.Marshal(map[string]any{"type": "hello", "name": "bin"})
	if err := conn.WriteMessage(websocket.BinaryMessage, hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frameType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if frameType != websocket.BinaryMessage {
		t.Fatalf("frame type = %d, want binary", frameType)
	}
	var m struct {
		Type string `msgpack:"type"`
	}
	if err := msgpack.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != models.MsgBatch && m.Type != models.MsgWelcome {
		t.Fatalf("first message type = %q", m.Type)
	}
}

func TestSilentClientIsDropped(t *testing.T) {
	srv, wsURL := startArena(t, testConfig(), protocol.JSONCodec{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello"}`)); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for srv.Stats().Sessions != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("session never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Never read: pings go unanswered, so the server gives up after two
	// heartbeat intervals.
	deadline = time.Now().Add(2 * time.Second)
	for srv.Stats().Sessions != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("unresponsive client kept its session")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type stubGame struct {
	stats game.Stats
}

func (s stubGame) Join(context.Context, string, session.Conn, string) (string, error) {
	return "", errors.New("not implemented")
}

func (s stubGame) Input(string, float64, bool) {}

func (s stubGame) Respawn(context.Context, string) error { return nil }

func (s stubGame) Leave(context.Context, string) error { return nil }

func (s stubGame) Stats() game.Stats { return s.stats }

func TestHandleRootReportsStats(t *testing.T) {
	want := game.Stats{Tick: 42, Snakes: 3, Food: 600, Sessions: 1, TickMillis: 0.5}
	h := NewHandler(stubGame{stats: want}, config.Default().Network, false, log.New(io.Discard))

	rec := httptest.NewRecorder()
	h.HandleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var got game.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}

func TestClientSendAccounting(t *testing.T) {
	cfg := config.Default().Network
	cfg.SendQueueSize = 2
	c := NewClient("c1", nil, cfg, false, log.New(io.Discard))

	if err := c.Send(make([]byte, 10)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Send(make([]byte, 5)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := c.Buffered(); got != 15 {
		t.Fatalf("buffered = %d, want 15", got)
	}
	if err := c.Send([]byte{1}); !errors.Is(err, ErrSendBufferFull) {
		t.Fatalf("send to full buffer = %v, want ErrSendBufferFull", err)
	}

	close(c.done)
	if err := c.Send([]byte{1}); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("send after close = %v, want ErrClientClosed", err)
	}
}
