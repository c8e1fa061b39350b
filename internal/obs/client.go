package obs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"colourstream/internal/config"
	"colourstream/internal/logging"
)

var (
	// ErrNotConnected is returned when a request is made before Connect.
	ErrNotConnected = errors.New("obs not connected")
	// ErrClosed is returned for requests in flight when the connection drops.
	ErrClosed = errors.New("obs connection closed")
)

const requestTimeout = 10 * time.Second

// Client is an obs-websocket v5 client. Connect must be called before any
// request; Close releases the connection.
type Client struct {
	addr     string
	password string
	logger   *slog.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan responseData
	closed  bool
	done    chan struct{}
}

// NewClient builds a client for the OBS instance described in cfg.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	scheme := "ws"
	if cfg.OBS.UseSSL {
		scheme = "wss"
	}
	addr := url.URL{Scheme: scheme, Host: fmt.Sprintf("%s:%d", cfg.OBS.Host, cfg.OBS.Port), Path: "/"}
	return &Client{
		addr:     addr.String(),
		password: cfg.OBS.Password,
		logger:   logging.NewComponentLogger(logger, "obs"),
	}
}

// Connect dials OBS and completes the Hello/Identify handshake.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.addr, nil)
	if err != nil {
		return fmt.Errorf("dial obs at %s: %w", c.addr, err)
	}

	var hello message
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()
		return fmt.Errorf("read obs hello: %w", err)
	}
	if hello.Op != opHello {
		_ = conn.Close()
		return fmt.Errorf("expected hello opcode, got %d", hello.Op)
	}
	var helloPayload helloData
	if err := json.Unmarshal(hello.D, &helloPayload); err != nil {
		_ = conn.Close()
		return fmt.Errorf("decode obs hello: %w", err)
	}

	identify := identifyData{RPCVersion: rpcVersion}
	if helloPayload.Authentication != nil {
		identify.Authentication = authResponse(c.password,
			helloPayload.Authentication.Salt,
			helloPayload.Authentication.Challenge)
	}
	if err := writeMessage(conn, opIdentify, identify); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send obs identify: %w", err)
	}

	var identified message
	if err := conn.ReadJSON(&identified); err != nil {
		_ = conn.Close()
		return fmt.Errorf("read obs identified: %w", err)
	}
	if identified.Op != opIdentified {
		_ = conn.Close()
		return fmt.Errorf("obs rejected identify (opcode %d)", identified.Op)
	}

	c.mu.Lock()
	c.conn = conn
	c.pending = make(map[string]chan responseData)
	c.closed = false
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(conn)
	c.logger.Info("connected", logging.String("address", c.addr))
	return nil
}

// Close shuts down the websocket connection. Pending requests fail with
// ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return nil
	}
	c.closed = true
	err := c.conn.Close()
	return err
}

// Connected reports whether the handshake has completed and the connection
// is still up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.closed = true
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		if c.done != nil {
			close(c.done)
			c.done = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Op != opRequestResponse {
			continue
		}
		var resp responseData
		if err := json.Unmarshal(msg.D, &resp); err != nil {
			c.logger.Warn("undecodable response", logging.Error(err))
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.RequestID]
		if ok {
			delete(c.pending, resp.RequestID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
			close(ch)
		}
	}
}

func (c *Client) request(ctx context.Context, requestType string, data any, out any) error {
	c.mu.Lock()
	if c.conn == nil || c.closed {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	requestID := uuid.NewString()
	ch := make(chan responseData, 1)
	c.pending[requestID] = ch
	c.mu.Unlock()

	payload := requestData{RequestType: requestType, RequestID: requestID, RequestData: data}
	c.writeMu.Lock()
	err := writeMessage(conn, opRequest, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
		return fmt.Errorf("send obs %s: %w", requestType, err)
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if !resp.RequestStatus.Result {
			return fmt.Errorf("obs %s failed (code %d): %s",
				requestType, resp.RequestStatus.Code, resp.RequestStatus.Comment)
		}
		if out != nil && len(resp.ResponseData) > 0 {
			if err := json.Unmarshal(resp.ResponseData, out); err != nil {
				return fmt.Errorf("decode obs %s response: %w", requestType, err)
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("obs %s timed out", requestType)
	}
}

func writeMessage(conn *websocket.Conn, op int, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(message{Op: op, D: raw})
}
