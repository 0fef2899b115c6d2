package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/neboloop/turbo/internal/bridge"
)

// ErrDisconnected is returned by calls on a closed connection.
var ErrDisconnected = errors.New("ipc: connection closed")

// Client implements bridge.Host against a remote Server.
type Client struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *Frame
	subs    map[string]func(bridge.UpdateStatus)

	done chan struct{}
	once sync.Once
}

var _ bridge.Host = (*Client)(nil)

// WebSocketURL turns an http(s) base URL into the ws(s) URL of the /ipc
// endpoint. ws:// and wss:// URLs are returned unchanged.
func WebSocketURL(base string) string {
	if strings.HasPrefix(base, "ws://") || strings.HasPrefix(base, "wss://") {
		return base
	}
	u := strings.Replace(base, "http://", "ws://", 1)
	u = strings.Replace(u, "https://", "wss://", 1)
	return strings.TrimRight(u, "/") + "/ipc"
}

// Dial connects to a Server. url may be http(s) or ws(s).
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, WebSocketURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("ipc: connect: %w", err)
	}
	c := &Client{
		ws:      ws,
		logger:  logger,
		pending: make(map[string]chan *Frame),
		subs:    make(map[string]func(bridge.UpdateStatus)),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Disconnect closes the socket. Pending calls fail with ErrDisconnected.
func (c *Client) Disconnect() error {
	err := c.ws.Close()
	c.shutdown()
	return err
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		c.mu.Lock()
		c.subs = map[string]func(bridge.UpdateStatus){}
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Client) readLoop() {
	defer c.shutdown()
	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Warn("ipc invalid frame", "error", err)
			continue
		}
		switch frame.Type {
		case TypeResponse:
			c.mu.Lock()
			ch, ok := c.pending[frame.ID]
			c.mu.Unlock()
			if ok {
				ch <- &frame
			}
		case TypeEvent:
			c.mu.Lock()
			push := c.subs[frame.ID]
			c.mu.Unlock()
			if push == nil {
				continue
			}
			var st bridge.UpdateStatus
			if err := json.Unmarshal(frame.Payload, &st); err != nil {
				c.logger.Warn("ipc invalid status event", "error", err)
				continue
			}
			push(st)
		}
	}
}

func (c *Client) write(frame *Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrDisconnected
	default:
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("ipc: write: %w", err)
	}
	return nil
}

// call sends a request and decodes the response payload into out.
func (c *Client) call(ctx context.Context, capability bridge.Capability, params, out any) error {
	raw, err := encode(params)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	ch := make(chan *Frame, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(&Frame{Type: TypeRequest, ID: id, Channel: capability.Channel(), Params: raw}); err != nil {
		return err
	}

	select {
	case resp := <-ch:
		if !resp.OK {
			return &CallError{Channel: capability.Channel(), Message: resp.Error}
		}
		if out == nil {
			return nil
		}
		if err := decode(resp.Payload, out); err != nil {
			return fmt.Errorf("ipc: decode %s result: %w", capability.Channel(), err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrDisconnected
	}
}

// notify sends a fire-and-forget frame.
func (c *Client) notify(capability bridge.Capability, params any) error {
	raw, err := encode(params)
	if err != nil {
		return err
	}
	return c.write(&Frame{Type: TypeSend, Channel: capability.Channel(), Params: raw})
}

func (c *Client) ReadFile(ctx context.Context, path string) (string, error) {
	var out string
	err := c.call(ctx, bridge.CapReadFile, pathParams{Path: path}, &out)
	return out, err
}

func (c *Client) WriteFile(ctx context.Context, path, content string) error {
	return c.call(ctx, bridge.CapWriteFile, writeParams{Path: path, Content: content}, nil)
}

func (c *Client) FileExists(ctx context.Context, path string) (bool, error) {
	var out bool
	err := c.call(ctx, bridge.CapFileExists, pathParams{Path: path}, &out)
	return out, err
}

func (c *Client) AppInfo(ctx context.Context) (bridge.AppInfo, error) {
	var out bridge.AppInfo
	err := c.call(ctx, bridge.CapGetAppInfo, nil, &out)
	return out, err
}

func (c *Client) GetPath(ctx context.Context, name bridge.PathName) (string, error) {
	var out string
	err := c.call(ctx, bridge.CapGetPath, getPathParams{Name: name}, &out)
	return out, err
}

func (c *Client) Minimize(context.Context) error { return c.notify(bridge.CapMinimize, nil) }

func (c *Client) Maximize(context.Context) error { return c.notify(bridge.CapMaximize, nil) }

func (c *Client) Close(context.Context) error { return c.notify(bridge.CapClose, nil) }

func (c *Client) OpenFileDialog(ctx context.Context, opts *bridge.OpenDialogOptions) (*string, error) {
	var out *string
	err := c.call(ctx, bridge.CapOpenFileDialog, opts, &out)
	return out, err
}

func (c *Client) SaveFileDialog(ctx context.Context, opts *bridge.SaveDialogOptions) (*string, error) {
	var out *string
	err := c.call(ctx, bridge.CapSaveFileDialog, opts, &out)
	return out, err
}

func (c *Client) CheckForUpdates(ctx context.Context) error {
	return c.call(ctx, bridge.CapCheckForUpdates, nil, nil)
}

func (c *Client) DownloadUpdate(ctx context.Context) error {
	return c.call(ctx, bridge.CapDownloadUpdate, nil, nil)
}

func (c *Client) InstallUpdate(context.Context) error { return c.notify(bridge.CapInstallUpdate, nil) }

// SubscribeUpdateStatus asks the server to push statuses to push. The
// returned cancel is idempotent and tells the server to stop.
func (c *Client) SubscribeUpdateStatus(push func(bridge.UpdateStatus)) func() {
	id := uuid.NewString()

	c.mu.Lock()
	c.subs[id] = push
	c.mu.Unlock()

	channel := bridge.CapUpdateStatus.Channel()
	sub, _ := encode(subscribeParams{Subscribe: true})
	if err := c.write(&Frame{Type: TypeSend, ID: id, Channel: channel, Params: sub}); err != nil {
		c.logger.Warn("ipc subscribe failed", "error", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			unsub, _ := encode(subscribeParams{Subscribe: false})
			c.write(&Frame{Type: TypeSend, ID: id, Channel: channel, Params: unsub})
		})
	}
}
