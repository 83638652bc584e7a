package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"marathon-agent/internal/interfaces"
)

// WS carries the same newline-delimited frames over a websocket connection,
// for collectors that sit behind HTTP infrastructure. A pump goroutine reads
// messages into a channel; Receive drains it without blocking the tick.
type WS struct {
	url      string
	conn     *websocket.Conn
	incoming chan []byte
	readErr  chan error
	leftover []byte
}

var _ interfaces.Transport = (*WS)(nil)

func NewWS(url string) *WS {
	return &WS{url: url}
}

func (w *WS) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.url, err)
	}
	w.conn = conn
	w.incoming = make(chan []byte, 64)
	w.readErr = make(chan error, 1)
	go w.readLoop(conn, w.incoming, w.readErr)
	return nil
}

func (w *WS) readLoop(conn *websocket.Conn, incoming chan<- []byte, readErr chan<- error) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		incoming <- msg
	}
}

func (w *WS) Send(p []byte) (int, error) {
	if w.conn == nil {
		return 0, ErrNotConnected
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WS) Receive(p []byte) (int, error) {
	if w.conn == nil {
		return 0, ErrNotConnected
	}
	if len(w.leftover) == 0 {
		select {
		case msg := <-w.incoming:
			w.leftover = msg
		case err := <-w.readErr:
			return 0, err
		default:
			return 0, ErrWouldBlock
		}
	}
	n := copy(p, w.leftover)
	w.leftover = w.leftover[n:]
	return n, nil
}

func (w *WS) Close() error {
	if w.conn == nil {
		return nil
	}
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := w.conn.Close()
	w.conn = nil
	w.leftover = nil
	return err
}
