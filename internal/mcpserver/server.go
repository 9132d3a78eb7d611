// Package mcpserver implements the MCP half of ServiceSurface (spec §6): a
// hand-rolled JSON-RPC 2.0 dispatcher running over a WebSocket connection,
// grounded on the upgrade/read-write-pump mechanics of the teacher's
// websocket interface and the tool catalog of the original
// mcp/mcp_server.py it replaces.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"graphrag/internal/graphstore"
	"graphrag/internal/ingest"
	"graphrag/internal/jobs"
	"graphrag/internal/observability"
	"graphrag/internal/search"
	"graphrag/internal/vectorstore"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBufferSize = 16
)

// Server exposes the MCP tool catalog of spec §6 over WebSocket.
type Server struct {
	Graph    graphstore.GraphRepo
	Vector   vectorstore.VectorRepo
	Ingestor *ingest.Ingestor
	Searcher *search.Searcher
	Jobs     *jobs.Manager
	Version  string
	Log      *logrus.Logger

	upgrader websocket.Upgrader
}

func NewServer(graph graphstore.GraphRepo, vector vectorstore.VectorRepo, ig *ingest.Ingestor, searcher *search.Searcher, jobManager *jobs.Manager, version string, log *logrus.Logger) *Server {
	return &Server{
		Graph:    graph,
		Vector:   vector,
		Ingestor: ig,
		Searcher: searcher,
		Jobs:     jobManager,
		Version:  version,
		Log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket upgrades the request and runs the connection's read/write
// pumps until the client disconnects. It is meant to be registered directly
// against an http.ServeMux (e.g. at "/mcp").
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.warn("upgrade", err)
		return
	}

	c := &connection{srv: s, conn: conn, send: make(chan []byte, sendBufferSize)}
	go c.writePump()
	go c.readPump()
	c.sendWelcome()
}

func (s *Server) warn(stage string, err error) {
	if s.Log == nil {
		return
	}
	s.Log.WithError(err).WithField("stage", stage).Warn("mcpserver connection step failed")
}

// debugf logs a preview of one inbound frame, with any API-key/token/secret
// shaped fields scrubbed, mirroring the original server's
// logger.debug(f"Received message from client ...: {msg_preview}").
func (s *Server) debugf(msg string, raw []byte) {
	if s.Log == nil {
		return
	}
	s.Log.WithField("preview", string(observability.RedactJSON(raw))).Debug(msg)
}

// connection is one upgraded WebSocket client. Reads are handled inline in
// readPump; writes are funneled through send so a single goroutine ever
// calls conn.WriteMessage, since gorilla/websocket forbids concurrent
// writers on one connection.
type connection struct {
	srv  *Server
	conn *websocket.Conn
	send chan []byte
}

func (c *connection) readPump() {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.srv.warn("read", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.srv.debugf("received mcp message", message)
		if reply, ok := c.srv.processMessage(context.Background(), message); ok {
			select {
			case c.send <- reply:
			default:
				c.srv.warn("send", errSendBufferFull)
				return
			}
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.srv.warn("write", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.srv.warn("ping", err)
				return
			}
		}
	}
}

// sendWelcome mirrors the original server's on-connect notification, sent
// outside the request/response cycle so clients can confirm liveness
// without issuing a request first.
func (c *connection) sendWelcome() {
	notification := map[string]any{
		"jsonrpc": "2.0",
		"method":  "notification",
		"params": map[string]any{
			"message": "Connected to GraphRAG MCP Server",
			"server":  serverName,
			"version": c.srv.Version,
		},
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		c.srv.warn("welcome", errSendBufferFull)
	}
}

var errSendBufferFull = &sendBufferFullError{}

type sendBufferFullError struct{}

func (*sendBufferFullError) Error() string { return "send buffer full, dropping connection" }
