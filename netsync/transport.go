package netsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by a transport after Close or a lost connection.
var ErrClosed = errors.New("transport closed")

// Transport carries allocation requests to the authority. Poll never blocks:
// it reports a response only once one has arrived.
type Transport interface {
	Send(req AllocationRequest) error
	Poll() (resp AllocationResponse, ok bool, err error)
	Close() error
}

// WSTransport is a Transport over a websocket connection. A reader goroutine
// decodes responses into a buffered channel that Poll drains.
type WSTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	responses chan AllocationResponse
	errs      chan error

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to an authority at url.
func Dial(ctx context.Context, url string, writeTimeout time.Duration) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	t := &WSTransport{
		conn:         conn,
		writeTimeout: writeTimeout,
		responses:    make(chan AllocationResponse, 1),
		errs:         make(chan error, 1),
	}
	go t.readLoop()
	return t, nil
}

func (t *WSTransport) readLoop() {
	for {
		_, msg, err := t.conn.ReadMessage()
		if err != nil {
			t.errs <- fmt.Errorf("%w: %v", ErrClosed, err)
			return
		}
		base, err := DecodeBase(msg)
		if err != nil || base.Type != TypeResult {
			continue
		}
		if base.ProtocolVersion != Version {
			slog.Warn("dropping response with unexpected protocol version", "version", base.ProtocolVersion)
			continue
		}
		var resp AllocationResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			slog.Warn("dropping malformed response", "error", err)
			continue
		}
		t.responses <- resp
	}
}

// Send writes a request to the authority.
func (t *WSTransport) Send(req AllocationRequest) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	if err := t.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("sending request %s: %w", req.ID, err)
	}
	return nil
}

// Poll returns a response if one has arrived.
func (t *WSTransport) Poll() (AllocationResponse, bool, error) {
	select {
	case resp := <-t.responses:
		return resp, true, nil
	default:
	}
	select {
	case err := <-t.errs:
		// Keep reporting the failure on later polls
		t.errs <- err
		return AllocationResponse{}, false, err
	default:
		return AllocationResponse{}, false, nil
	}
}

// Close sends a close frame and closes the connection.
func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}
