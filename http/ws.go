package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"svmpredict/workflow"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	actionWait   = 30 * time.Second
	maxFrameSize = 64 << 10
)

// Action is a client message on the session channel.
type Action struct {
	Action   string             `json:"action"`
	Dataset  string             `json:"dataset,omitempty"`
	Feature  string             `json:"feature,omitempty"`
	Value    float64            `json:"value,omitempty"`
	Features map[string]float64 `json:"features,omitempty"`
}

// Reply answers every action with the session view after it ran.
type Reply struct {
	SessionID string        `json:"session_id"`
	Action    string        `json:"action"`
	Error     string        `json:"error,omitempty"`
	View      workflow.View `json:"view"`
}

type client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{} // closed when writePump exits
	writeWait time.Duration
	session   *workflow.Session
}

// SessionHub upgrades websocket connections and owns one workflow.Session
// per connection.
type SessionHub struct {
	wf       *workflow.Workflow
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// writeWait bounds each frame write; a client that stops reading is
	// dropped after it.
	writeWait time.Duration

	mu      sync.Mutex
	clients map[string]*client
}

// NewSessionHub builds a hub that opens sessions on wf.
func NewSessionHub(wf *workflow.Workflow, logger *zap.Logger) *SessionHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHub{
		wf: wf,
		upgrader: websocket.Upgrader{
			// CORSMiddleware already filters browser origins.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		writeWait: writeWait,
		logger:    logger,
		clients:   make(map[string]*client),
	}
}

// Len is the number of open sessions.
func (h *SessionHub) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll closes every open connection; their read loops then exit.
func (h *SessionHub) CloseAll() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.conn.Close()
	}
}

// ServeHTTP upgrades the request and runs the session until the connection
// closes.
func (h *SessionHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:        uuid.NewString(),
		conn:      conn,
		send:      make(chan []byte, 16),
		done:      make(chan struct{}),
		writeWait: h.writeWait,
		session:   h.wf.NewSession(),
	}
	h.register(c)

	go c.writePump(h.logger)
	h.readPump(c)
}

func (h *SessionHub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("session opened", zap.String("session_id", c.id), zap.Int("sessions", n))
}

func (h *SessionHub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	h.logger.Info("session closed", zap.String("session_id", c.id), zap.Int("sessions", n))
}

// readPump runs the session. It starts on the first dataset and answers
// each action in order.
func (h *SessionHub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if !h.reply(c, h.handle(c, Action{Action: "select", Dataset: h.wf.Registry().First().Name})) {
		return
	}

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read", zap.String("session_id", c.id), zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var action Action
		if err := json.Unmarshal(payload, &action); err != nil {
			if !h.reply(c, Reply{SessionID: c.id, Error: "invalid message: " + err.Error(), View: c.session.View()}) {
				return
			}
			continue
		}
		if !h.reply(c, h.handle(c, action)) {
			return
		}
	}
}

func (h *SessionHub) handle(c *client, action Action) Reply {
	var err error
	switch action.Action {
	case "select":
		err = c.session.Select(action.Dataset)
	case "input":
		if action.Features != nil {
			err = c.session.SetInputs(action.Features)
		} else {
			err = c.session.SetInput(action.Feature, action.Value)
		}
	case "predict":
		if action.Features != nil {
			if err = c.session.SetInputs(action.Features); err != nil {
				break
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), actionWait)
		_, err = c.session.Predict(ctx)
		cancel()
	case "view":
	default:
		err = errors.New("unknown action " + action.Action)
	}

	reply := Reply{SessionID: c.id, Action: action.Action, View: c.session.View()}
	if err != nil {
		reply.Error = err.Error()
	}
	return reply
}

// reply queues a reply for writePump. It reports false once the writer is
// gone, which ends the session.
func (h *SessionHub) reply(c *client, reply Reply) bool {
	payload, err := json.Marshal(reply)
	if err != nil {
		h.logger.Error("encode reply", zap.String("session_id", c.id), zap.Error(err))
		return true
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		h.logger.Debug("reply dropped, writer closed", zap.String("session_id", c.id))
		return false
	}
}

func (c *client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write", zap.String("session_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
