package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	wsMsgOpened   = "opened"
	wsMsgResponse = "response"
	wsMsgError    = "error"
)

type wsMessage struct {
	Type  string `json:"type"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type wsTransport struct {
	conn *websocket.Conn
	lock *sync.Mutex

	closed bool
}

// OpenWebSocketTransport connects to a websocket bridge forwarding APDUs to a
// device. Every message sent is the hex of an APDU, the bridge answers with
// {"type":"response","data":<hex>} or {"type":"error","error":<msg>}.
// The bridge signals that the device is ready with a {"type":"opened"}
// message, which is awaited before returning.
func OpenWebSocketTransport(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDisconnected, err)
	}

	t := &wsTransport{conn: conn, lock: &sync.Mutex{}}

	msg, err := t.readMessage(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if msg.Type != wsMsgOpened {
		conn.Close()
		if msg.Type == wsMsgError {
			return nil, fmt.Errorf("%w: %s", ErrBridgeError, msg.Error)
		}
		return nil, fmt.Errorf(
			"%w: unexpected message type %q", ErrMalformedResponse, msg.Type,
		)
	}

	log.Debugf("ledger: websocket transport opened on %s", url)
	return t, nil
}

func (t *wsTransport) Exchange(ctx context.Context, apdu []byte) ([]byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil, ErrTransportClosed
	}

	if deadline, ok := ctx.Deadline(); ok {
		t.conn.SetWriteDeadline(deadline)
	} else {
		t.conn.SetWriteDeadline(time.Time{})
	}
	if err := t.conn.WriteMessage(
		websocket.TextMessage, []byte(hex.EncodeToString(apdu)),
	); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDisconnected, err)
	}

	msg, err := t.readMessage(ctx)
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case wsMsgResponse:
		resp, err := hex.DecodeString(msg.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
		}
		return resp, nil
	case wsMsgError:
		return nil, fmt.Errorf("%w: %s", ErrBridgeError, msg.Error)
	default:
		return nil, fmt.Errorf(
			"%w: unexpected message type %q", ErrMalformedResponse, msg.Type,
		)
	}
}

func (t *wsTransport) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.conn.Close()
}

// readMessage waits for the next message of the bridge. The read is aborted
// when the context is done.
func (t *wsTransport) readMessage(ctx context.Context) (*wsMessage, error) {
	if deadline, ok := ctx.Deadline(); ok {
		t.conn.SetReadDeadline(deadline)
	} else {
		t.conn.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	_, buf, err := t.conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s", ErrDisconnected, err)
	}

	msg := &wsMessage{}
	if err := json.Unmarshal(buf, msg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	return msg, nil
}
