package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one item on the assistant's activity feed: a recognized
// command, an executed action or an error.
type Event struct {
	Kind    string    `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Action  string    `json:"action,omitempty"`
	Target  string    `json:"target,omitempty"`
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

const (
	KindCommand = "command"
	KindResult  = "result"
	KindError   = "error"
)

// Hub serves the activity feed over websocket. Subscribers connect to
// /events and receive every published event as a JSON text message.
type Hub struct {
	srv *http.Server
	log *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func Start(addr string, log *slog.Logger) *Hub {
	h := &Hub{
		log:   log,
		conns: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", h.serveEvents)
	h.srv = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("feed server stopped", "err", err)
		}
	}()

	log.Info("event feed listening", "addr", addr)
	return h
}

func (h *Hub) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Subscribers never send data, but the connection must still be read
	// so close and ping control frames are processed and departures are
	// noticed before the next publish.
	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		conn.Close()
		delete(h.conns, conn)
	}
}

// Publish sends the event to every connected subscriber. Connections
// that fail to write are dropped.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *Hub) Close() error {
	h.mu.Lock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
	h.mu.Unlock()

	return h.srv.Close()
}
