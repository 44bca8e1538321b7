package gateway

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/c360/textpipe/message"
	"github.com/c360/textpipe/operation"
)

// wsSink adapts a websocket connection to the registry's Sink. Writes are
// serialized; gorilla connections allow only one concurrent writer.
type wsSink struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *wsSink) Send(env *message.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsSink) Close() error {
	return s.conn.Close()
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.trackError("upgrade_error")
		g.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	connectionID := uuid.NewString()
	userID := r.URL.Query().Get("user_id")
	sink := &wsSink{conn: conn}

	if _, err := g.processor.AddConnection(connectionID, userID, sink); err != nil {
		g.trackError("register_error")
		conn.Close()
		return
	}
	g.logger.Info("websocket connected",
		"connection_id", connectionID, "user_id", userID, "remote", r.RemoteAddr)

	g.wg.Add(1)
	go g.receiveLoop(connectionID, sink, conn)
}

// receiveLoop is the single reader for one connection. It owns the
// connection's removal: whatever path exits the loop, the connection is
// unregistered exactly once because Remove reports who won.
func (g *Gateway) receiveLoop(connectionID string, sink *wsSink, conn *websocket.Conn) {
	defer g.wg.Done()
	defer func() {
		if err := g.processor.RemoveConnection(connectionID); err == nil {
			g.logger.Info("websocket disconnected", "connection_id", connectionID)
		}
		if g.limiter != nil {
			g.limiter.Forget(connectionID)
		}
	}()

	// Short read deadlines keep the loop responsive to shutdown.
	const readDeadline = 1 * time.Second

	for {
		select {
		case <-g.shutdown:
			return
		default:
			conn.SetReadDeadline(time.Now().Add(readDeadline))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					g.trackError("read_error")
				}
				return
			}
			g.dispatch(connectionID, sink, raw)
		}
	}
}

// processTextData is the payload of an inbound process_text envelope.
type processTextData struct {
	Text        string   `json:"text"`
	Operations  []string `json:"operations"`
	UserID      string   `json:"user_id"`
	Priority    string   `json:"priority"`
	UseDebounce *bool    `json:"use_debounce"`
}

// streamTextData is the payload of an inbound stream_text envelope.
type streamTextData struct {
	StreamID  string         `json:"stream_id"`
	TextChunk string         `json:"text_chunk"`
	Metadata  map[string]any `json:"metadata"`
}

type subscribeData struct {
	Topics []string `json:"topics"`
}

// dispatch routes one inbound frame. Protocol violations answer with an
// error envelope on the same connection and never tear it down.
func (g *Gateway) dispatch(connectionID string, sink *wsSink, raw []byte) {
	if g.limiter != nil && !g.limiter.Allow(connectionID, time.Now()) {
		g.trackError("rate_limited")
		g.sendError(sink, "rate limit exceeded", "")
		return
	}

	var env message.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.trackError("parse_error")
		g.sendError(sink, "invalid message format", "")
		return
	}

	switch env.Type {
	case message.TypeProcessText:
		g.handleProcessText(connectionID, sink, env.Data)

	case message.TypeStreamText:
		g.handleStreamText(connectionID, sink, env.Data)

	case message.TypeGetMetrics:
		g.deliver(connectionID, message.NewMetrics(g.processor.Metrics()))

	case message.TypeSubscribe:
		var data subscribeData
		if env.Data != nil {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				g.sendError(sink, "invalid subscribe payload", "")
				return
			}
		}
		if conn, ok := g.registry.Get(connectionID); ok {
			conn.Subscribe(data.Topics...)
		}
		g.deliver(connectionID, message.NewSubscriptionConfirmed(data.Topics))

	default:
		g.trackError("unknown_type")
		g.sendError(sink, fmt.Sprintf("unknown message type: %s", env.Type), "")
	}
}

func (g *Gateway) handleProcessText(connectionID string, sink *wsSink, payload json.RawMessage) {
	var data processTextData
	if payload != nil {
		if err := json.Unmarshal(payload, &data); err != nil {
			g.trackError("parse_error")
			g.sendError(sink, "invalid process_text payload", "")
			return
		}
	}
	if data.Text == "" {
		g.sendError(sink, "text is required", "")
		return
	}
	if data.Operations == nil {
		data.Operations = []string{operation.FixLayout}
	}
	useDebounce := true
	if data.UseDebounce != nil {
		useDebounce = *data.UseDebounce
	}

	request := message.NewRequest(data.Text, data.Operations, data.UserID,
		message.ParsePriority(data.Priority))
	g.processor.ProcessTextRequest(connectionID, request, useDebounce)
}

func (g *Gateway) handleStreamText(connectionID string, sink *wsSink, payload json.RawMessage) {
	var data streamTextData
	if payload != nil {
		if err := json.Unmarshal(payload, &data); err != nil {
			g.trackError("parse_error")
			g.sendError(sink, "invalid stream_text payload", "")
			return
		}
	}
	if data.StreamID == "" {
		data.StreamID = "default"
	}
	if err := g.processor.AddStreamText(connectionID, data.StreamID, data.TextChunk, data.Metadata); err != nil {
		g.trackError("stream_error")
		g.sendError(sink, "stream write failed", "")
	}
}

// deliver pushes through the registry so activity accounting stays accurate.
func (g *Gateway) deliver(connectionID string, env *message.Envelope) {
	if err := g.registry.Deliver(connectionID, env); err != nil {
		g.logger.Debug("gateway delivery failed",
			"connection_id", connectionID, "type", env.Type, "error", err)
	}
}

// sendError writes directly to the sink: validation failures must reach the
// client even when the connection is mid-registration.
func (g *Gateway) sendError(sink *wsSink, errorMessage, requestID string) {
	if err := sink.Send(message.NewError(errorMessage, requestID)); err != nil {
		g.logger.Debug("error send failed", "error", err)
	}
}
