package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/room"
)

var (
	errClientClosed   = errors.New("client is closed")
	errSendBufferFull = errors.New("send buffer is full")
)

// client is one live connection: the reader runs in the upgrade handler,
// writes go through writePump.
type client struct {
	id     string
	logger *slog.Logger
	conn   *websocket.Conn

	// subject of the upgrade token, empty when auth is off
	subject string

	send         chan room.Envelope
	writeTimeout time.Duration

	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(logger *slog.Logger, id string, conn *websocket.Conn, subject string, sendBuffer int, writeTimeout time.Duration, cancel context.CancelFunc) *client {
	return &client{
		id:     id,
		logger: logger.With("connectionID", id),
		conn:   conn,

		subject: subject,

		send:         make(chan room.Envelope, sendBuffer),
		writeTimeout: writeTimeout,

		done:   make(chan struct{}),
		cancel: cancel,
	}
}

func (that *client) ID() string {
	return that.id
}

// Send queues the envelope. A client that can't keep up is dropped.
func (that *client) Send(envelope room.Envelope) error {
	select {
	case <-that.done:
		return errClientClosed
	default:
	}

	select {
	case that.send <- envelope:
		return nil
	case <-that.done:
		return errClientClosed
	default:
		that.logger.Warn("send buffer is full, dropping connection", "event", envelope.Event)
		that.close()

		return errSendBufferFull
	}
}

func (that *client) writePump(ctx context.Context) {
	log := that.logger.With("method", "writePump")

	for {
		select {
		case <-that.done:
			return
		case envelope := <-that.send:
			writeCtx, cancel := context.WithTimeout(ctx, that.writeTimeout)
			err := wsjson.Write(writeCtx, that.conn, envelope)
			cancel()

			if err != nil {
				log.Warn("failed to write event", "event", envelope.Event, "error", err)
				that.close()

				return
			}
		}
	}
}

// close stops the writer and cancels the read loop, which closes the socket.
func (that *client) close() {
	that.closeOnce.Do(func() {
		close(that.done)
		that.cancel()
	})
}
