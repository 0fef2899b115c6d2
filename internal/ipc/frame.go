// Package ipc carries bridge capabilities between UI code and the desktop
// host process over a websocket.
//
// Every message is a JSON Frame. A "req" expects exactly one "res" with the
// same id; a "send" gets no reply; "event" frames carry pushed update
// statuses for a subscription id the client chose.
package ipc

import (
	"encoding/json"

	"github.com/neboloop/turbo/internal/bridge"
)

// Frame types.
const (
	TypeRequest  = "req"
	TypeResponse = "res"
	TypeSend     = "send"
	TypeEvent    = "event"
)

// Frame is one message on the socket.
type Frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type pathParams struct {
	Path string `json:"path"`
}

type writeParams struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type getPathParams struct {
	Name bridge.PathName `json:"name"`
}

type subscribeParams struct {
	Subscribe bool `json:"subscribe"`
}

// CallError is a failed "res": the host ran the call and reported Message.
type CallError struct {
	Channel string
	Message string
}

func (e *CallError) Error() string { return e.Message }

func encode(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
