// Package trezor is a client of a Trezor Connect bridge, reached through a
// single long lived websocket connection.
//
// Every request is a {"id", "method", "params"} message. The bridge answers
// with a {"id", "success", "payload"} envelope; failures come back as
// envelopes with success false and an error field in the payload.
package trezor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// Response is the envelope of every bridge answer.
type Response struct {
	ID      string              `json:"id"`
	Success bool                `json:"success"`
	Payload jsoniter.RawMessage `json:"payload"`
}

// Error is the payload of an unsuccessful response.
type Error struct {
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("trezor: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("trezor: %s", e.Message)
}

// Client sends Connect requests over a websocket. Requests are serialized,
// the device handles one at a time.
type Client struct {
	conn *websocket.Conn
	lock *sync.Mutex

	closed bool
}

// Dial connects to the Connect bridge at the given websocket url.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionFailed, err)
	}
	log.Debugf("trezor: connected to %s", url)

	return &Client{conn: conn, lock: &sync.Mutex{}}, nil
}

// Call sends a request for the given method and waits for its response.
// Messages of the bridge not matching the request id, like device events,
// are skipped.
func (c *Client) Call(
	ctx context.Context, method string, params interface{},
) (*Response, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}

	req := request{
		ID:     uuid.New().String(),
		Method: method,
		Params: params,
	}
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		c.conn.SetReadDeadline(deadline)
	} else {
		c.conn.SetWriteDeadline(time.Time{})
		c.conn.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := c.conn.WriteMessage(websocket.TextMessage, buf); err != nil {
		return nil, c.connError(ctx, err)
	}

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return nil, c.connError(ctx, err)
		}

		resp := &Response{}
		if err := json.Unmarshal(msg, resp); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
		}
		if resp.ID != req.ID {
			log.Debugf("trezor: skipping message %s", msg)
			continue
		}
		return resp, nil
	}
}

// Close closes the connection with the bridge.
func (c *Client) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

func (c *Client) connError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s", ErrDisconnected, err)
}

// call sends the request and decodes the payload of a successful response
// into out. An unsuccessful response, or a payload with an error field, is
// returned as *Error.
func (c *Client) call(
	ctx context.Context, method string, params, out interface{},
) error {
	resp, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}

	failure := &Error{}
	if len(resp.Payload) > 0 {
		json.Unmarshal(resp.Payload, failure)
	}
	if !resp.Success || failure.Message != "" {
		if failure.Message == "" {
			failure.Message = "unknown error"
		}
		return failure
	}

	if len(resp.Payload) == 0 || string(resp.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Payload, out); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	return nil
}
