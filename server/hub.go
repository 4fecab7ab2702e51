package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Request is a single client command delivered over the websocket: Object
// names the subsystem ("simulation", "negotiations"), Action is the verb,
// Params carries any action-specific payload undecoded.
type Request struct {
	ID     string          `json:"id"`
	Object string          `json:"object"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers a Request (or carries an unsolicited push, with ID
// "") with either a raw JSON payload or an error message.
type Response struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// RawJSON tags a []byte as already-valid JSON, so NewResponse doesn't
// double-encode it.
type RawJSON []byte

// NewResponse builds a successful Response carrying data, which may be a
// RawJSON (used verbatim) or any value json.Marshal accepts.
func NewResponse(id string, data interface{}) *Response {
	switch v := data.(type) {
	case RawJSON:
		return &Response{ID: id, Data: json.RawMessage(v)}
	case []byte:
		return &Response{ID: id, Data: json.RawMessage(v)}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return &Response{ID: id, Error: err.Error()}
		}
		return &Response{ID: id, Data: b}
	}
}

// NewOkResponse builds a Response whose data is {"message": msg}.
func NewOkResponse(id, msg string) *Response {
	return NewResponse(id, map[string]string{"message": msg})
}

// NewErrorResponse builds a Response carrying err's message.
func NewErrorResponse(id string, err error) *Response {
	return &Response{ID: id, Error: err.Error()}
}

// hubObject handles Requests for one subsystem ("simulation",
// "negotiations", ...); each lives in its own hub_*.go file and registers
// itself into hub.objects from an init().
type hubObject interface {
	dispatch(h *Hub, req Request, conn *connection)
}

// connection wraps one client's websocket, with a buffered outbound
// channel so a slow client can't block the dispatcher goroutine. id is a
// correlation handle for log lines across the connection's lifetime —
// a sequence counter would do too, but would collide across restarts of
// the process while clients reconnect; uuid.New avoids that for free.
type connection struct {
	id       uuid.UUID
	ws       *websocket.Conn
	pushChan chan *Response
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns every live connection and the registry of dispatchable
// objects. There is exactly one Hub per process, wired up in http.go.
type Hub struct {
	objects     map[string]hubObject
	connections map[*connection]bool
	register    chan *connection
	unregister  chan *connection
	broadcast   chan *Response
}

// NewHub returns an empty, unstarted Hub.
func NewHub() *Hub {
	return &Hub{
		objects:     make(map[string]hubObject),
		connections: make(map[*connection]bool),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		broadcast:   make(chan *Response, 256),
	}
}

// run is the Hub's single-goroutine event loop: connection bookkeeping
// and broadcast fan-out. hubUp is closed once the loop is ready, so Run
// (http.go) can bound startup time.
func (h *Hub) run(hubUp chan bool) {
	close(hubUp)
	for {
		select {
		case c := <-h.register:
			h.connections[c] = true
		case c := <-h.unregister:
			if _, ok := h.connections[c]; ok {
				delete(h.connections, c)
				close(c.pushChan)
			}
		case resp := <-h.broadcast:
			for c := range h.connections {
				select {
				case c.pushChan <- resp:
				default:
					delete(h.connections, c)
					close(c.pushChan)
				}
			}
		}
	}
}

// Broadcast pushes resp (typically an unsolicited event notification, ID
// "") to every connected client.
func (h *Hub) Broadcast(resp *Response) {
	select {
	case h.broadcast <- resp:
	default:
		logger.Warn("Broadcast channel full, dropping message", "submodule", "hub")
	}
}

// serveWs upgrades an HTTP request to a websocket connection and runs its
// read/write pumps.
func serveWs(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Websocket upgrade failed", "submodule", "hub", "error", err)
		return
	}
	c := &connection{id: uuid.New(), ws: ws, pushChan: make(chan *Response, 64)}
	logger.Debug("Websocket connection opened", "submodule", "hub", "connection", c.id, "remote", r.RemoteAddr)
	hub.register <- c
	go c.writePump()
	c.readPump()
}

func (c *connection) readPump() {
	defer func() {
		hub.unregister <- c
		c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var req Request
		if err := c.ws.ReadJSON(&req); err != nil {
			break
		}
		obj, ok := hub.objects[req.Object]
		if !ok {
			c.pushChan <- NewErrorResponse(req.ID, errUnknownObject(req.Object))
			continue
		}
		obj.dispatch(hub, req, c)
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case resp, ok := <-c.pushChan:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(resp); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type unknownObjectError struct{ object string }

func (e *unknownObjectError) Error() string { return "unknown object: " + e.object }

func errUnknownObject(object string) error { return &unknownObjectError{object} }
