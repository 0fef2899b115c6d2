package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neboloop/turbo/internal/bridge"
	"github.com/neboloop/turbo/internal/middleware"
)

const (
	maxFrameSize = 10 * 1024 * 1024
	readTimeout  = 10 * time.Minute
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 256
)

// Server exposes a bridge.Host to websocket clients.
type Server struct {
	host     bridge.Host
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger.
func WithServerLogger(l *slog.Logger) ServerOption { return func(s *Server) { s.logger = l } }

// WithCheckOrigin replaces the localhost-only origin check.
func WithCheckOrigin(fn func(*http.Request) bool) ServerOption {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// NewServer creates a server dispatching to host.
func NewServer(host bridge.Host, opts ...ServerOption) *Server {
	s := &Server{
		host:   host,
		logger: slog.Default(),
		conns:  make(map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.IsLocalhostOrigin(origin)
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// conn is one connected client.
type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]func()

	once sync.Once
}

// ServeHTTP upgrades the request and starts the connection pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ipc upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]func()),
	}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("ipc client connected", "remote", r.RemoteAddr)

	go s.readPump(c)
	go s.writePump(c)
}

// ConnCount returns the number of connected clients.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		s.drop(c)
	}
}

// drop tears a connection down once: pending host calls are cancelled and
// update subscriptions released.
func (s *Server) drop(c *conn) {
	c.once.Do(func() {
		close(c.done)
		c.cancel()

		c.mu.Lock()
		subs := c.subs
		c.subs = nil
		c.mu.Unlock()
		for _, cancel := range subs {
			cancel()
		}

		c.ws.Close()

		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	})
}

func (s *Server) readPump(c *conn) {
	defer s.drop(c)

	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("ipc unexpected close", "error", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			s.logger.Warn("ipc invalid frame", "error", err, "len", len(message))
			continue
		}
		s.handleFrame(c, &frame)
	}
}

func (s *Server) writePump(c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				s.drop(c)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.drop(c)
				return
			}
		}
	}
}

// enqueue never blocks; a client that stops reading loses frames.
func (s *Server) enqueue(c *conn, frame *Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("ipc encode frame", "error", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		s.logger.Warn("ipc send buffer full, dropping frame", "type", frame.Type, "channel", frame.Channel)
	}
}

func (s *Server) handleFrame(c *conn, frame *Frame) {
	capability, err := bridge.ParseChannel(frame.Channel)
	if err != nil {
		if frame.Type == TypeRequest {
			s.enqueue(c, &Frame{Type: TypeResponse, ID: frame.ID, Error: err.Error()})
		}
		return
	}

	switch frame.Type {
	case TypeRequest:
		// Dialogs block on the user, so requests run concurrently.
		go s.respond(c, capability, frame)
	case TypeSend:
		if capability == bridge.CapUpdateStatus {
			s.subscription(c, frame)
			return
		}
		if _, err := s.dispatch(c.ctx, capability, frame.Params); err != nil {
			s.logger.Warn("ipc send failed", "channel", frame.Channel, "error", err)
		}
	default:
		s.logger.Debug("ipc ignoring frame", "type", frame.Type)
	}
}

func (s *Server) respond(c *conn, capability bridge.Capability, frame *Frame) {
	resp := &Frame{Type: TypeResponse, ID: frame.ID, Channel: frame.Channel}
	result, err := s.dispatch(c.ctx, capability, frame.Params)
	if err == nil {
		resp.Payload, err = encode(result)
	}
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.OK = true
	}
	s.enqueue(c, resp)
}

// subscription starts or stops pushing update statuses for frame.ID.
func (s *Server) subscription(c *conn, frame *Frame) {
	var p subscribeParams
	if err := decode(frame.Params, &p); err != nil || frame.ID == "" {
		s.logger.Warn("ipc bad subscription frame", "id", frame.ID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		return
	}
	if cancel, ok := c.subs[frame.ID]; ok {
		delete(c.subs, frame.ID)
		cancel()
	}
	if !p.Subscribe {
		return
	}

	id := frame.ID
	c.subs[id] = s.host.SubscribeUpdateStatus(func(st bridge.UpdateStatus) {
		payload, err := json.Marshal(st)
		if err != nil {
			return
		}
		s.enqueue(c, &Frame{Type: TypeEvent, ID: id, Channel: frame.Channel, Payload: payload})
	})
}

// dispatch runs one capability against the host and returns the value to
// put in the response payload.
func (s *Server) dispatch(ctx context.Context, capability bridge.Capability, params json.RawMessage) (any, error) {
	h := s.host
	switch capability {
	case bridge.CapReadFile:
		var p pathParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.ReadFile(ctx, p.Path)
	case bridge.CapWriteFile:
		var p writeParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, h.WriteFile(ctx, p.Path, p.Content)
	case bridge.CapFileExists:
		var p pathParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.FileExists(ctx, p.Path)
	case bridge.CapGetAppInfo:
		return h.AppInfo(ctx)
	case bridge.CapGetPath:
		var p getPathParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		name, err := bridge.ParsePathName(string(p.Name))
		if err != nil {
			return nil, err
		}
		return h.GetPath(ctx, name)
	case bridge.CapMinimize:
		return nil, h.Minimize(ctx)
	case bridge.CapMaximize:
		return nil, h.Maximize(ctx)
	case bridge.CapClose:
		return nil, h.Close(ctx)
	case bridge.CapOpenFileDialog:
		var opts *bridge.OpenDialogOptions
		if err := decode(params, &opts); err != nil {
			return nil, err
		}
		return h.OpenFileDialog(ctx, opts)
	case bridge.CapSaveFileDialog:
		var opts *bridge.SaveDialogOptions
		if err := decode(params, &opts); err != nil {
			return nil, err
		}
		return h.SaveFileDialog(ctx, opts)
	case bridge.CapCheckForUpdates:
		return nil, h.CheckForUpdates(ctx)
	case bridge.CapDownloadUpdate:
		return nil, h.DownloadUpdate(ctx)
	case bridge.CapInstallUpdate:
		return nil, h.InstallUpdate(ctx)
	}
	return nil, fmt.Errorf("ipc: %s cannot be called", capability)
}
