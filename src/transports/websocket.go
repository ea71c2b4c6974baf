package transports

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/metrics"
	"stream-processor/src/models"

	"github.com/gorilla/websocket"
)

var (
	ErrAlreadyRunning = errors.New("connection client already running")
	ErrNotConnected   = errors.New("connection is nil")
)

const (
	defaultReconnectInterval = 5 * time.Second
	defaultHandshakeTimeout  = 10 * time.Second
)

// -----------------------------------------------------------------------------

// WebSocketClient implements IConnectionClient using Gorilla WebSocket.
// It owns one session at a time and reconnects after any failure until its context ends.
type WebSocketClient struct {
	name    string
	decoder interfaces.IDecoder
	logger  *logger.Logger
	metrics *metrics.Metrics

	reconnectInterval time.Duration
	handshakeTimeout  time.Duration
	onRawData         func(ctx context.Context, data []byte)

	mu      sync.RWMutex
	conn    *websocket.Conn
	state   models.MConnectionState
	writeMu sync.Mutex

	running    atomic.Bool
	reconnects atomic.Uint64
}

// -----------------------------------------------------------------------------

// NewWebSocketClient creates a new WebSocket client. onRawData is invoked synchronously
// from the read loop for every data frame; the next frame is not read until it returns.
func NewWebSocketClient(name string, config *models.MStreamConfig, decoder interfaces.IDecoder, logger *logger.Logger, m *metrics.Metrics, onRawData func(context.Context, []byte)) *WebSocketClient {
	reconnect := config.ReconnectInterval
	if reconnect <= 0 {
		reconnect = defaultReconnectInterval
	}
	handshake := config.HandshakeTimeout
	if handshake <= 0 {
		handshake = defaultHandshakeTimeout
	}
	return &WebSocketClient{
		name:              name,
		decoder:           decoder,
		logger:            logger,
		metrics:           m,
		reconnectInterval: reconnect,
		handshakeTimeout:  handshake,
		onRawData:         onRawData,
		state:             models.StateDisconnected,
	}
}

// -----------------------------------------------------------------------------

// Run connects, subscribes and reads until ctx is done. Any failure (dial, handshake,
// read, or a panic in the data callback) closes the session, waits the reconnect
// interval and starts over. Cancellation is a normal stop and returns nil.
func (w *WebSocketClient) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%s : %w", w.name, ErrAlreadyRunning)
	}
	defer w.running.Store(false)
	defer w.setState(models.StateDisconnected)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		err := w.session(ctx)
		if ctx.Err() != nil {
			w.logger.Info("%s : stopped", w.name)
			return nil
		}

		w.setState(models.StateDisconnected)
		w.reconnects.Add(1)
		w.metrics.Reconnects.Inc()
		w.logger.Error("%s : connection to %s lost: %v, reconnecting in %s", w.name, w.decoder.GetEndPoint(), err, w.reconnectInterval)

		timer.Reset(w.reconnectInterval)
		select {
		case <-ctx.Done():
			w.logger.Info("%s : stopped", w.name)
			return nil
		case <-timer.C:
		}
	}
}

// -----------------------------------------------------------------------------

// GetName returns the client name
func (w *WebSocketClient) GetName() string {
	return w.name
}

// -----------------------------------------------------------------------------

// GetType returns the transport type
func (w *WebSocketClient) GetType() string {
	return "websocket"
}

// -----------------------------------------------------------------------------

// IsRunning reports whether Run is active
func (w *WebSocketClient) IsRunning() bool {
	return w.running.Load()
}

// -----------------------------------------------------------------------------

// GetState returns the current connection state
func (w *WebSocketClient) GetState() models.MConnectionState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// -----------------------------------------------------------------------------

// GetReconnects returns how many reconnects were scheduled
func (w *WebSocketClient) GetReconnects() uint64 {
	return w.reconnects.Load()
}

// -----------------------------------------------------------------------------

// SendMessage sends a text message on the live connection
func (w *WebSocketClient) SendMessage(data []byte) error {
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// session runs one connect/subscribe/read cycle and always returns a non-nil error
// unless ctx ended.
func (w *WebSocketClient) session(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in session: %v", r)
		}
	}()

	w.setState(models.StateConnecting)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: w.handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, w.decoder.GetEndpointWithCredentials(), w.decoder.GetHeaders())
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect: %w", err)
	}

	w.setConn(conn)
	defer w.setConn(nil)
	defer conn.Close()

	// unblocks ReadMessage when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	w.setState(models.StateConnected)
	w.logger.Info("%s : WebSocket connected to %s", w.name, w.decoder.GetEndPoint())

	messages, err := w.decoder.SubscribeMessages()
	if err != nil {
		return fmt.Errorf("failed to build subscription: %w", err)
	}
	for _, msg := range messages {
		if err := w.SendMessage(msg); err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}
	}
	if len(messages) > 0 {
		w.logger.Info("%s : subscribed to %v", w.name, w.decoder.GetSymbols())
	}

	w.setState(models.StateReceiving)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message error: %w", err)
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		w.metrics.MessagesReceived.Inc()
		w.onRawData(ctx, data)
	}
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) setState(state models.MConnectionState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != state {
		w.logger.Debug("%s : state %s -> %s", w.name, w.state, state)
	}
	w.state = state
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) setConn(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = conn
}
