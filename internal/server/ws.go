package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"riskscan/internal/badge"
	"riskscan/internal/metrics"
	"riskscan/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
	inboxBuffer    = 16
)

// Client message types.
const (
	msgToken  = "token"
	msgClear  = "clear"
	msgRetry  = "retry"
	msgRender = "render"
)

// inbound is a message sent by the client.
type inbound struct {
	Type    string `json:"type"`
	ChainID uint64 `json:"chainId,omitempty"`
	Address string `json:"address,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
}

// outbound is a message pushed to the client. A "view" message with a null
// view means the badge is hidden.
type outbound struct {
	Type    string      `json:"type"`
	View    *badge.View `json:"view"`
	Retried *bool       `json:"retried,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	trusted := make(map[string]struct{}, len(s.cfg.TrustedOrigins))
	for _, origin := range s.cfg.TrustedOrigins {
		trusted[origin] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := trusted[origin]; ok {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return u.Host == r.Host
		},
	}
}

// session is one websocket connection hosting one badge mount.
type session struct {
	server *Server
	conn   *websocket.Conn
	badge  *badge.Badge
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// renderMu orders render-and-enqueue so the last queued view is never stale.
	renderMu sync.Mutex

	inbox chan inbound
	send  chan outbound
	done  chan struct{}
	once  sync.Once
}

func (s *Server) serveWS(c *gin.Context) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	user := userID(c)
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		server: s,
		conn:   conn,
		badge:  badge.New(s.fetcher, s.prefs.For(user), s.translator(c), s.logger),
		logger: s.logger.With(zap.String("user", user)),
		ctx:    ctx,
		cancel: cancel,
		inbox:  make(chan inbound, inboxBuffer),
		send:   make(chan outbound, sendBuffer),
		done:   make(chan struct{}),
	}
	sess.badge.OnChange(func(*badge.View) {
		sess.pushView(nil)
	})

	metrics.BadgeSessions.Inc()
	sess.logger.Debug("badge session opened")

	go sess.writePump()
	go sess.handleLoop()
	sess.readPump()

	sess.close()
	metrics.BadgeSessions.Dec()
	sess.logger.Debug("badge session closed")
}

func (sess *session) close() {
	sess.once.Do(func() {
		sess.cancel()
		sess.badge.Close()
		close(sess.done)
		_ = sess.conn.Close()
	})
}

// pushView renders the badge and queues the view while holding renderMu.
func (sess *session) pushView(retried *bool) {
	sess.renderMu.Lock()
	defer sess.renderMu.Unlock()
	sess.push(outbound{Type: "view", View: sess.badge.Render(), Retried: retried})
}

// push queues a message without blocking. A client that cannot keep up is disconnected.
func (sess *session) push(msg outbound) {
	select {
	case <-sess.done:
		return
	default:
	}
	select {
	case sess.send <- msg:
	default:
		sess.logger.Warn("badge session too slow, closing")
		go sess.close()
	}
}

func (sess *session) readPump() {
	sess.conn.SetReadLimit(maxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				sess.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.push(outbound{Type: "error", Error: "invalid message"})
			continue
		}
		select {
		case sess.inbox <- msg:
		case <-sess.done:
			return
		}
	}
}

// handleLoop applies client messages in order. It runs apart from readPump so
// a disconnect is noticed, and the session context cancelled, while a message
// is still being handled.
func (sess *session) handleLoop() {
	for {
		select {
		case <-sess.done:
			return
		case msg := <-sess.inbox:
			sess.handle(msg)
		}
	}
}

func (sess *session) handle(msg inbound) {
	switch msg.Type {
	case msgToken:
		token, err := model.ParseToken(msg.ChainID, msg.Address)
		if err != nil {
			sess.push(outbound{Type: "error", Error: err.Error()})
			return
		}
		token.Symbol = msg.Symbol
		sess.server.enrich(sess.ctx, &token)
		sess.badge.SetToken(&token)
		sess.pushView(nil)
	case msgClear:
		sess.badge.SetToken(nil)
		sess.pushView(nil)
	case msgRetry:
		retried := sess.badge.Retry()
		sess.pushView(&retried)
	case msgRender:
		sess.pushView(nil)
	default:
		sess.push(outbound{Type: "error", Error: "unknown message type"})
	}
}

func (sess *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sess.done:
			return
		case msg := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteJSON(msg); err != nil {
				sess.logger.Debug("websocket write failed", zap.Error(err))
				sess.close()
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sess.close()
				return
			}
		}
	}
}
