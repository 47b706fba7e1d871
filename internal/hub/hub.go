package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/termdemo/internal/markup"
	"github.com/user/termdemo/internal/scenario"
	"github.com/user/termdemo/internal/surface/widget"
)

const defaultBatchInterval = 16 * time.Millisecond

// Hub fans widget surface ops out to every connected browser and hands
// control messages from them to a single callback.
type Hub struct {
	clients      map[string]*Client
	register     chan *Client
	unregister   chan *Client
	broadcast    chan []byte
	onControl    func(ClientMessage)
	token        string
	mu           sync.RWMutex
	batcher      *Batcher
	batchEnabled atomic.Bool
	ctxWrap      *ctxWrapper
	running      atomic.Bool

	viewMu    sync.RWMutex
	snapshot  func() []widget.Row
	title     string
	theme     markup.Theme
	scenarios []ScenarioInfo
	status    StatusMessage
}

type ctxWrapper struct {
	ctx context.Context
}

var _ widget.Publisher = (*Hub)(nil)

// New returns a hub that accepts clients presenting token. An empty token
// disables the check.
func New(token string, onControl func(ClientMessage)) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
		onControl:  onControl,
		token:      token,
		ctxWrap:    &ctxWrapper{ctx: context.Background()},
		theme:      markup.DarkTheme,
		status:     StatusMessage{Type: "status", State: "idle", Scenario: -1},
	}
	h.batchEnabled.Store(true)
	h.batcher = NewBatcher(defaultBatchInterval, func(ops []widget.Op) {
		h.send(OpsMessage{Type: "ops", Ops: ops})
	})
	return h
}

func (h *Hub) getContext() context.Context {
	if h.ctxWrap != nil {
		return h.ctxWrap.ctx
	}
	return context.Background()
}

func (h *Hub) Run(ctx context.Context) {
	h.ctxWrap = &ctxWrapper{ctx: ctx}
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.batcher.Flush()
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			if data, err := json.Marshal(h.initMessage()); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}
			go client.writePump(h.getContext())
			go client.readPump(h.getContext())
			slog.Info("client connected", "id", client.id, "total", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("client disconnected", "id", client.id, "total", h.ClientCount())

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- data:
				default:
					slog.Warn("client send buffer full, dropping message", "id", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && r.URL.Query().Get("token") != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}

	client := newClient(conn, h)
	select {
	case h.register <- client:
	default:
		slog.Warn("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
	}
}

// initMessage is built when the client registers, after every op already
// queued for broadcast has been applied to the snapshot source. Ops still
// in flight are replayed on top; the browser applies them idempotently.
func (h *Hub) initMessage() InitMessage {
	h.viewMu.RLock()
	defer h.viewMu.RUnlock()
	msg := InitMessage{
		Type:      "init",
		Title:     h.title,
		Theme:     h.theme,
		State:     h.status.State,
		Scenarios: h.scenarios,
		Lines:     []widget.Row{},
	}
	if msg.Scenarios == nil {
		msg.Scenarios = []ScenarioInfo{}
	}
	if h.snapshot != nil {
		msg.Lines = h.snapshot()
	}
	return msg
}

// Publish queues a surface op for every client. It never blocks.
func (h *Hub) Publish(op widget.Op) {
	if h.batchEnabled.Load() {
		h.batcher.Add(op)
		return
	}
	h.send(OpsMessage{Type: "ops", Ops: []widget.Op{op}})
}

func (h *Hub) BroadcastStatus(state string, index int, name string) {
	msg := StatusMessage{Type: "status", State: state, Scenario: index, Name: name}
	h.viewMu.Lock()
	h.status = msg
	h.viewMu.Unlock()
	h.batcher.Flush()
	h.send(msg)
}

func (h *Hub) send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("error marshaling message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("broadcast channel full, dropping message")
	}
}

func (h *Hub) SendError(client *Client, message string) {
	data, err := json.Marshal(ErrorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// SetSnapshot sets the source of the lines sent to newly connected clients.
func (h *Hub) SetSnapshot(fn func() []widget.Row) {
	h.viewMu.Lock()
	h.snapshot = fn
	h.viewMu.Unlock()
}

func (h *Hub) SetTheme(theme markup.Theme) {
	h.viewMu.Lock()
	h.theme = theme
	h.viewMu.Unlock()
}

func (h *Hub) SetTitle(title string) {
	h.viewMu.Lock()
	h.title = title
	h.viewMu.Unlock()
}

func (h *Hub) SetScenarios(scenarios []scenario.Scenario) {
	infos := make([]ScenarioInfo, len(scenarios))
	for i, sc := range scenarios {
		infos[i] = ScenarioInfo{Index: i, Name: sc.Name, Description: sc.Description}
	}
	h.viewMu.Lock()
	h.scenarios = infos
	h.viewMu.Unlock()
}

// SetOnControl replaces the control callback. Call it before Run.
func (h *Hub) SetOnControl(fn func(ClientMessage)) {
	h.onControl = fn
}

func (h *Hub) SetBatchEnabled(enabled bool) {
	h.batchEnabled.Store(enabled)
	if !enabled {
		h.batcher.Flush()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleControl(msg ClientMessage) {
	if h.onControl != nil {
		h.onControl(msg)
	}
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		slog.Warn("unregister channel full, forcing close", "id", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
