package web

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sitesmith/sitesmith/internal/editor"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/render"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 << 10
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// EditorView is what the editor UI needs after every change: the rendered
// canvas plus the session flags.
type EditorView struct {
	Type     string   `json:"type,omitempty"`
	Canvas   string   `json:"canvas"`
	Name     string   `json:"name"`
	Page     string   `json:"page"`
	Pages    []string `json:"pages"`
	Dirty    bool     `json:"dirty"`
	CanUndo  bool     `json:"canUndo"`
	CanRedo  bool     `json:"canRedo"`
	Revision uint64   `json:"revision"`
}

// hubClient is one websocket connection watching a site.
type hubClient struct {
	conn   *websocket.Conn
	siteID string
	send   chan []byte
}

// Hub pushes re-rendered canvases to every websocket watching a site.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*hubClient]struct{}
	renderer *render.Renderer
}

// NewHub returns a hub rendering canvases with renderer.
func NewHub(renderer *render.Renderer) *Hub {
	return &Hub{
		rooms:    make(map[string]map[*hubClient]struct{}),
		renderer: renderer,
	}
}

// View renders state for the editor UI.
func (h *Hub) View(state editor.State) EditorView {
	return EditorView{
		Canvas:   string(h.renderer.Canvas(state.Sections)),
		Name:     state.Name,
		Page:     state.Page,
		Pages:    state.Pages,
		Dirty:    state.Dirty,
		CanUndo:  state.CanUndo,
		CanRedo:  state.CanRedo,
		Revision: state.Revision,
	}
}

// Notify is the editor change hook: it broadcasts the new canvas to the
// site's watchers.
func (h *Hub) Notify(state editor.State) {
	h.mu.RLock()
	n := len(h.rooms[state.SiteID])
	h.mu.RUnlock()
	if n == 0 {
		return
	}

	view := h.View(state)
	view.Type = "canvas"
	data, err := json.Marshal(view)
	if err != nil {
		log.Printf("[web] Failed to encode canvas for %s: %v", state.SiteID, err)
		return
	}
	h.broadcast(state.SiteID, data)
}

// Watchers returns the number of connections watching siteID.
func (h *Hub) Watchers(siteID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[siteID])
}

func (h *Hub) broadcast(siteID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[siteID] {
		select {
		case c.send <- data:
		default:
			// drop slow client
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.siteID]
	if !ok {
		room = make(map[*hubClient]struct{})
		h.rooms[c.siteID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *hubClient) {
	room, ok := h.rooms[c.siteID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.siteID)
	}
}

// Serve upgrades the request and attaches it to session. The client gets
// the current view immediately; messages it sends are edit ops applied to
// the session, whose change hook fans the result out to every watcher.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] WebSocket upgrade error: %v", err)
		return
	}

	c := &hubClient{conn: conn, siteID: session.SiteID(), send: make(chan []byte, sendBuffer)}
	view := h.View(session.State())
	view.Type = "canvas"
	if data, err := json.Marshal(view); err == nil {
		c.send <- data
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c, session)
}

func (h *Hub) readPump(c *hubClient, session *editor.Session) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[web] panic in websocket reader for %s: %v\n%s", c.siteID, rec, debug.Stack())
		}
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var op editor.Op
		if err := c.conn.ReadJSON(&op); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[web] WebSocket read error for %s: %v", c.siteID, err)
			}
			return
		}
		if err := session.Apply(op); err != nil {
			h.reply(c, err)
		}
	}
}

// reply sends an error to a single client.
func (h *Hub) reply(c *hubClient, err error) {
	sErr := errors.As(err)
	data, _ := json.Marshal(map[string]any{
		"type":  "error",
		"code":  string(sErr.Code),
		"error": sErr.Message,
	})
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.siteID][c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
