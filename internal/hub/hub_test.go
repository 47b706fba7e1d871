package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/termdemo/internal/markup"
	"github.com/user/termdemo/internal/scenario"
	"github.com/user/termdemo/internal/surface"
	"github.com/user/termdemo/internal/surface/widget"
)

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/ws?token=%s", server.URL[7:], token)
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	dialCancel()
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn, v any) string {
	t.Helper()
	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, data, err := conn.Read(readCtx)
	readCancel()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		t.Fatalf("failed to unmarshal base message: %v", err)
	}
	if v != nil {
		if err := json.Unmarshal(data, v); err != nil {
			t.Fatalf("failed to unmarshal %s message: %v", base.Type, err)
		}
	}
	return base.Type
}

func TestTokenAuthentication(t *testing.T) {
	validToken := "secret-token-123"

	tests := []struct {
		name       string
		hubToken   string
		token      string
		wantStatus int
	}{
		{"valid token", validToken, validToken, http.StatusSwitchingProtocols},
		{"invalid token", validToken, "wrong-token", http.StatusUnauthorized},
		{"missing token", validToken, "", http.StatusUnauthorized},
		{"auth disabled", "", "", http.StatusSwitchingProtocols},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := New(tt.hubToken, nil)

			ctx, cancel := context.WithCancel(context.Background())
			go hub.Run(ctx)
			defer cancel()

			server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
			defer server.Close()

			url := fmt.Sprintf("ws://%s/ws", server.URL[7:])
			if tt.token != "" {
				url = fmt.Sprintf("%s?token=%s", url, tt.token)
			}

			dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
			conn, resp, err := websocket.Dial(dialCtx, url, nil)
			dialCancel()

			if resp != nil && resp.StatusCode != tt.wantStatus {
				t.Errorf("status code mismatch: got %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusSwitchingProtocols {
				if err != nil {
					t.Fatalf("expected successful connection, got error: %v", err)
				}
				conn.Close(websocket.StatusNormalClosure, "")
			} else if conn != nil {
				conn.Close(websocket.StatusNormalClosure, "")
			}
		})
	}
}

func TestInitMessageCarriesCurrentView(t *testing.T) {
	token := "test-token"
	hub := New(token, nil)
	w := widget.New(hub)
	hub.SetSnapshot(w.Snapshot)
	hub.SetTheme(markup.LightTheme)
	hub.SetTitle("demo")
	hub.SetScenarios([]scenario.Scenario{{Name: "install", Description: "Install deps"}})
	w.AppendLine(surface.Line{Text: "[green]ok[/green]"})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, token)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var msg InitMessage
	if typ := readMessage(t, conn, &msg); typ != "init" {
		t.Fatalf("expected init message, got type: %s", typ)
	}
	if msg.Theme.Name != "light" || msg.Title != "demo" || msg.State != "idle" {
		t.Errorf("unexpected init header: %+v", msg)
	}
	if len(msg.Scenarios) != 1 || msg.Scenarios[0].Name != "install" {
		t.Errorf("unexpected scenarios: %+v", msg.Scenarios)
	}
	if len(msg.Lines) != 1 || msg.Lines[0].HTML != `<span class="td-green">ok</span>` {
		t.Errorf("unexpected lines: %+v", msg.Lines)
	}
}

func TestInitialEmptyView(t *testing.T) {
	token := "test-token"
	hub := New(token, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, token)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var msg InitMessage
	if typ := readMessage(t, conn, &msg); typ != "init" {
		t.Fatalf("expected init message, got type: %s", typ)
	}
	if len(msg.Lines) != 0 || len(msg.Scenarios) != 0 {
		t.Errorf("expected empty view, got %+v", msg)
	}
}

func TestControlMessagesReachCallback(t *testing.T) {
	token := "test-token"
	var received []ClientMessage
	var mu sync.Mutex

	hub := New(token, func(msg ClientMessage) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	conn := dial(t, server, token)
	waitForClientCount(t, hub, 1, 1*time.Second)
	readMessage(t, conn, nil)

	for _, raw := range []string{`{"type":"play","index":2}`, `{"type":"pause"}`, `{"type":"explode"}`} {
		writeCtx, writeCancel := context.WithTimeout(context.Background(), 1*time.Second)
		err := conn.Write(writeCtx, websocket.MessageText, []byte(raw))
		writeCancel()
		if err != nil {
			t.Fatalf("failed to send message: %v", err)
		}
	}

	var errMsg ErrorMessage
	if typ := readMessage(t, conn, &errMsg); typ != "error" || errMsg.Message != "unknown message type: explode" {
		t.Errorf("unexpected reply: %s %+v", typ, errMsg)
	}

	mu.Lock()
	if len(received) != 2 {
		t.Fatalf("expected 2 control messages, got %v", received)
	}
	if received[0].Type != ControlPlay || received[0].Index == nil || *received[0].Index != 2 {
		t.Errorf("play not received correctly: %+v", received[0])
	}
	if received[1].Type != ControlPause || received[1].Index != nil {
		t.Errorf("pause not received correctly: %+v", received[1])
	}
	mu.Unlock()

	conn.Close(websocket.StatusNormalClosure, "")
	waitForClientCount(t, hub, 0, 1*time.Second)
}

func TestOpsFanOut(t *testing.T) {
	token := "test-token"
	hub := New(token, nil)
	hub.SetBatchEnabled(false)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	numClients := 3
	clients := make([]*websocket.Conn, numClients)
	for i := range clients {
		clients[i] = dial(t, server, token)
	}
	waitForClientCount(t, hub, numClients, 2*time.Second)

	w := widget.New(hub)
	id := w.AppendLine(surface.Line{Text: "broadcast test", Cursor: true})

	for i, conn := range clients {
		if typ := readMessage(t, conn, nil); typ != "init" {
			t.Fatalf("client %d expected init message, got type: %s", i, typ)
		}
		var msg OpsMessage
		if typ := readMessage(t, conn, &msg); typ != "ops" {
			t.Fatalf("client %d expected ops message, got type: %s", i, typ)
		}
		if len(msg.Ops) != 1 || msg.Ops[0].Op != widget.OpAppend || msg.Ops[0].ID != id || msg.Ops[0].HTML != "broadcast test" {
			t.Errorf("client %d received wrong ops: %+v", i, msg.Ops)
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func TestBatchedOpsKeepOrder(t *testing.T) {
	token := "test-token"
	hub := New(token, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, token)
	defer conn.Close(websocket.StatusNormalClosure, "")
	waitForClientCount(t, hub, 1, 1*time.Second)
	readMessage(t, conn, nil)

	w := widget.New(hub)
	id := w.AppendLine(surface.Line{Text: "$ "})
	w.UpdateLine(id, surface.Line{Text: "$ l"})
	w.UpdateLine(id, surface.Line{Text: "$ ls"})

	var msg OpsMessage
	if typ := readMessage(t, conn, &msg); typ != "ops" {
		t.Fatalf("expected ops message, got type: %s", typ)
	}
	if len(msg.Ops) != 3 || msg.Ops[2].HTML != "$ ls" {
		t.Errorf("batched ops out of order: %+v", msg.Ops)
	}
}

func TestStatusFlushesPendingOps(t *testing.T) {
	token := "test-token"
	hub := New(token, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, token)
	defer conn.Close(websocket.StatusNormalClosure, "")
	waitForClientCount(t, hub, 1, 1*time.Second)
	readMessage(t, conn, nil)

	hub.Publish(widget.Op{Op: widget.OpClear})
	hub.BroadcastStatus("running", 1, "deploy")

	if typ := readMessage(t, conn, nil); typ != "ops" {
		t.Fatalf("expected pending ops before status, got type: %s", typ)
	}
	var status StatusMessage
	if typ := readMessage(t, conn, &status); typ != "status" {
		t.Fatalf("expected status message, got type: %s", typ)
	}
	if status.State != "running" || status.Scenario != 1 || status.Name != "deploy" {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestBatcherDirect(t *testing.T) {
	var received [][]widget.Op
	var mu sync.Mutex

	batcher := NewBatcher(50*time.Millisecond, func(ops []widget.Op) {
		mu.Lock()
		received = append(received, ops)
		mu.Unlock()
	})

	for i := 1; i <= 3; i++ {
		batcher.Add(widget.Op{Op: widget.OpUpdate, ID: surface.LineID(i)})
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	if len(received) != 1 {
		t.Errorf("expected 1 batch, got %d", len(received))
	}
	if len(received) > 0 && (len(received[0]) != 3 || received[0][0].ID != 1) {
		t.Errorf("batch should hold all ops in order, got: %+v", received[0])
	}
	mu.Unlock()

	batcher.Flush()
	mu.Lock()
	if len(received) != 1 {
		t.Errorf("empty flush should not call back, got %d batches", len(received))
	}
	mu.Unlock()
}

func TestConnectionBeforeRun(t *testing.T) {
	token := "test-token"
	hub := New(token, nil)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, token)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	if typ := readMessage(t, conn, nil); typ != "init" {
		t.Errorf("expected init message, got type: %s", typ)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	cancel()
}

func TestHighClientCountShutdown(t *testing.T) {
	token := "test-token"
	hub := New(token, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	numClients := 20
	var conns []*websocket.Conn
	for i := 0; i < numClients; i++ {
		conns = append(conns, dial(t, server, token))
	}

	waitForClientCount(t, hub, numClients, 2*time.Second)

	cancel()
	time.Sleep(200 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after shutdown, got %d", hub.ClientCount())
	}

	for _, conn := range conns {
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func waitForClientCount(t *testing.T, hub *Hub, expected int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == expected {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != expected {
		t.Errorf("expected %d clients, got %d", expected, hub.ClientCount())
	}
}
