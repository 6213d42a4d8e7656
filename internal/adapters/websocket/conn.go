package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/pkg/safego"
)

const defaultSendBufferSize = 64

// Connection wraps a websocket.Conn and adds buffering and lifecycle management.
// Writes go through a per-connection buffer drained by a single writer
// goroutine, so broadcasts from the hub never block on a slow client; when
// the buffer is full the oldest queued message is dropped.
type Connection struct {
	wsConn            *websocket.Conn
	logger            domain.Logger
	mu                sync.Mutex // Protects wsConn for writes
	connCtx           context.Context
	cancelConnCtxFunc context.CancelFunc
	writeTimeout      time.Duration
	remoteAddrStr     string

	messageBuffer   chan []byte
	writerWg        sync.WaitGroup
	isWriterRunning bool
	writerMu        sync.Mutex // Protects isWriterRunning
}

// NewConnection creates a new managed WebSocket connection and starts its
// writer goroutine.
func NewConnection(
	connCtx context.Context,
	cancelFunc context.CancelFunc,
	wsConn *websocket.Conn,
	remoteAddr string,
	logger domain.Logger,
	writeTimeout time.Duration,
) *Connection {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	c := &Connection{
		wsConn:            wsConn,
		logger:            logger,
		connCtx:           connCtx,
		cancelConnCtxFunc: cancelFunc,
		writeTimeout:      writeTimeout,
		remoteAddrStr:     remoteAddr,
		messageBuffer:     make(chan []byte, defaultSendBufferSize),
	}

	c.startWriter()
	return c
}

func (c *Connection) startWriter() {
	c.writerMu.Lock()
	if c.isWriterRunning {
		c.writerMu.Unlock()
		return
	}
	c.isWriterRunning = true
	c.writerMu.Unlock()

	c.writerWg.Add(1)
	safego.Execute(c.connCtx, c.logger, fmt.Sprintf("WebSocketWriter-%s", c.remoteAddrStr), func() {
		defer c.writerWg.Done()
		for {
			select {
			case <-c.connCtx.Done():
				return
			case msgBytes, ok := <-c.messageBuffer:
				if !ok {
					return
				}

				// Writes use a detached timeout context so an in-flight
				// message can still complete during connection teardown.
				ctxToWrite, cancel := context.WithTimeout(context.Background(), c.writeTimeout)

				c.mu.Lock()
				var err error
				select {
				case <-c.connCtx.Done():
					err = c.connCtx.Err()
				default:
					err = c.wsConn.Write(ctxToWrite, websocket.MessageText, msgBytes)
				}
				c.mu.Unlock()
				cancel()

				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						c.logger.Info(c.connCtx, "WebSocket write canceled or timed out, connection likely closing", "error", err.Error(), "remote_addr", c.remoteAddrStr)
					} else {
						c.logger.Error(c.connCtx, "Failed to write message from buffer to WebSocket", "error", err.Error(), "remote_addr", c.remoteAddrStr)
						c.cancelConnCtxFunc()
					}
					return
				}
			}
		}
	})
}

// Context returns the context associated with this connection.
func (c *Connection) Context() context.Context {
	return c.connCtx
}

// Close stops the writer goroutine and closes the WebSocket connection with
// the given status code and reason.
func (c *Connection) Close(statusCode websocket.StatusCode, reason string) error {
	c.writerMu.Lock()
	if c.isWriterRunning {
		if c.messageBuffer != nil {
			close(c.messageBuffer)
		}
		c.isWriterRunning = false
	}
	c.writerMu.Unlock()
	c.writerWg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelConnCtxFunc != nil {
		currentCancelFunc := c.cancelConnCtxFunc
		c.cancelConnCtxFunc = nil
		currentCancelFunc()
	}

	if c.wsConn == nil {
		return errors.New("WebSocket connection is already nil")
	}

	err := c.wsConn.Close(statusCode, reason)
	c.wsConn = nil
	return err
}

// WriteJSON marshals the value to JSON and queues it on the send buffer.
// When the buffer is full the oldest queued message is dropped to make room.
func (c *Connection) WriteJSON(v interface{}) error {
	msgBytes, err := json.Marshal(v)
	if err != nil {
		c.logger.Error(c.connCtx, "Failed to marshal JSON for WriteJSON", "error", err.Error(), "remote_addr", c.remoteAddrStr)
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	select {
	case <-c.connCtx.Done():
		return c.connCtx.Err()
	default:
	}

	c.writerMu.Lock()
	if !c.isWriterRunning {
		c.writerMu.Unlock()
		return fmt.Errorf("writer goroutine not running for connection %s", c.remoteAddrStr)
	}
	c.writerMu.Unlock()

	select {
	case c.messageBuffer <- msgBytes:
		return nil
	default:
	}

	// Buffer full, drop oldest and retry once.
	select {
	case <-c.messageBuffer:
		c.logger.Warn(c.connCtx, "Dropped oldest message from send buffer due to backpressure", "remote_addr", c.remoteAddrStr)
	default:
	}
	select {
	case c.messageBuffer <- msgBytes:
		return nil
	case <-c.connCtx.Done():
		return c.connCtx.Err()
	}
}

// ReadMessage reads a data message from the WebSocket connection.
// Control frames (like pongs) are handled by the library and not returned here.
func (c *Connection) ReadMessage(ctx context.Context) (websocket.MessageType, []byte, error) {
	return c.wsConn.Read(ctx)
}

// RemoteAddr returns the remote network address string of the client.
func (c *Connection) RemoteAddr() string {
	return c.remoteAddrStr
}
