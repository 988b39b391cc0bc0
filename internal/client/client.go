// Package client owns exactly one outbound connection to one server
// endpoint. All state mutation happens on the caller's poll thread; the
// async entry points only run the blocking primitive elsewhere and
// resolve a pending-operation handle.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/peerwire/internal/async"
	"github.com/danmuck/peerwire/internal/observability"
	"github.com/danmuck/peerwire/internal/protocol"
	"github.com/rs/zerolog/log"
)

const scratchSize = 32 * 1024

// Events are push-style observations. A nil field is simply not invoked.
// Handlers run on the thread driving the client (Connect/Disconnect/Poll
// callers), never concurrently with each other.
type Events struct {
	OnConnected     func()
	OnDisconnected  func(reason string)
	OnMessage       func(m protocol.Message)
	OnConnectFailed func(err error)
	OnDecodeError   func(err error)
}

type Config struct {
	ConnectTimeout time.Duration
	Limits         protocol.Limits
	Backoff        BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		Limits:         protocol.DefaultLimits(),
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

type Client struct {
	host   string
	port   uint16
	cfg    Config
	name   string
	events Events

	mu        sync.Mutex
	conn      net.Conn
	cancel    context.CancelFunc
	connected bool
	localID   uint32
	asm       *protocol.Assembler
	scratch   []byte
}

func New(host string, port uint16) *Client {
	return NewWithConfig(host, port, DefaultConfig())
}

func NewWithConfig(host string, port uint16, cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	return &Client{
		host:    host,
		port:    port,
		cfg:     cfg,
		name:    "client:" + net.JoinHostPort(host, strconv.Itoa(int(port))),
		asm:     protocol.NewAssembler(cfg.Limits),
		scratch: make([]byte, scratchSize),
	}
}

// Handle registers the observation callbacks. Call before Connect.
func (c *Client) Handle(ev Events) {
	c.events = ev
}

func (c *Client) Host() string { return c.host }
func (c *Client) Port() uint16 { return c.port }

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// LocalID is the identity negotiated with the server, zero until assigned.
func (c *Client) LocalID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localID
}

// SetLocalID records the identity a handshake layer negotiated. Cleared
// on disconnect.
func (c *Client) SetLocalID(id uint32) {
	c.mu.Lock()
	c.localID = id
	c.mu.Unlock()
}

// Connect performs a blocking connection attempt honoring the configured
// timeout. A Disconnect issued while the attempt is in flight cancels it.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	if c.host == "" {
		c.mu.Unlock()
		err := fmt.Errorf("%w: empty host", ErrConnectionFailed)
		c.emitConnectFailed(err)
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	var dialer net.Dialer
	addr := net.JoinHostPort(c.host, strconv.Itoa(int(c.port)))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: dial %s: %v", ErrTimeout, addr, err)
		} else {
			err = fmt.Errorf("%w: dial %s: %v", ErrConnectionFailed, addr, err)
		}
		log.Warn().Str("node", c.name).Err(err).Msg("connect_failed")
		c.emitConnectFailed(err)
		return err
	}

	c.mu.Lock()
	c.cancel = nil
	if c.connected {
		// A racing attempt won; keep the established connection.
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyConnected
	}
	c.conn = conn
	c.connected = true
	c.asm.Reset()
	c.mu.Unlock()

	log.Info().Str("node", c.name).Str("remote", conn.RemoteAddr().String()).Msg("connected")
	if c.events.OnConnected != nil {
		c.events.OnConnected()
	}
	return nil
}

// ConnectAsync resolves its handle to the result Connect would return,
// without blocking the caller.
func (c *Client) ConnectAsync() *async.Op {
	return async.Run(c.Connect)
}

// ConnectWithRetry repeats Connect up to maxAttempts times, sleeping the
// configured backoff between failures. It stops early when ctx is done or
// a racing attempt already established the connection.
func (c *Client) ConnectWithRetry(ctx context.Context, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = c.Connect()
		if err == nil || errors.Is(err, ErrAlreadyConnected) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		delay := NextBackoffDelay(c.cfg.Backoff, attempt, rng)
		log.Debug().Str("node", c.name).Int("attempt", attempt).
			Dur("delay", delay).Msg("reconnect_scheduled")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrConnectionFailed, ctx.Err())
		case <-time.After(delay):
		}
	}
	return err
}

// Disconnect is an idempotent no-op when not connected. It cancels an
// in-flight connect attempt.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	c.mu.Unlock()

	log.Info().Str("node", c.name).Msg("disconnected")
	c.emitDisconnected("")
}

// Send serializes m and performs a blocking full write. A failed write is
// surfaced to the caller and does not by itself flip the connected flag;
// a broken connection is detected by Poll.
func (c *Client) Send(m protocol.Message) error {
	c.mu.Lock()
	if !c.connected || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	buf := protocol.Encode(m)
	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	observability.RecordMessageSent(c.name, m.Type.String(), len(buf))
	return nil
}

// SendAsync resolves its handle to the result Send would return.
func (c *Client) SendAsync(m protocol.Message) *async.Op {
	return async.Run(func() error { return c.Send(m) })
}

// Poll drains available bytes without blocking, surfaces every complete
// frame, and detects a closed connection. Call once per application tick.
func (c *Client) Poll() {
	c.mu.Lock()
	if !c.connected || c.conn == nil {
		c.mu.Unlock()
		return
	}
	conn := c.conn

	conn.SetReadDeadline(time.Now())
	n, readErr := conn.Read(c.scratch)
	if n > 0 {
		c.asm.Feed(c.scratch[:n])
	}

	var msgs []protocol.Message
	var decodeErrs []error
	for {
		m, ok, err := c.asm.Next()
		if err != nil {
			decodeErrs = append(decodeErrs, err)
			continue
		}
		if !ok {
			break
		}
		if m.Type == protocol.MessagePing {
			c.pongLocked(conn, m)
		}
		msgs = append(msgs, m)
	}

	closed := false
	var reason string
	if readErr != nil && !errors.Is(readErr, os.ErrDeadlineExceeded) {
		closed = true
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			reason = ErrConnectionClosed.Error()
		} else {
			reason = readErr.Error()
		}
		c.teardownLocked()
	}
	c.mu.Unlock()

	for _, err := range decodeErrs {
		observability.RecordDecodeError(c.name)
		log.Warn().Str("node", c.name).Err(err).Msg("frame_dropped")
		if c.events.OnDecodeError != nil {
			c.events.OnDecodeError(err)
		}
	}
	for _, m := range msgs {
		observability.RecordMessageReceived(c.name, m.Type.String())
		if c.events.OnMessage != nil {
			c.events.OnMessage(m)
		}
	}
	if closed {
		log.Info().Str("node", c.name).Str("reason", reason).Msg("disconnected")
		c.emitDisconnected(reason)
	}
}

// pongLocked answers a ping in place, echoing sequence and payload so the
// sender can time the round trip.
func (c *Client) pongLocked(conn net.Conn, ping protocol.Message) {
	pong := protocol.NewMessage(protocol.MessagePong, c.localID, ping.SenderID, ping.Payload)
	pong.Sequence = ping.Sequence
	buf := protocol.Encode(pong)
	if _, err := conn.Write(buf); err != nil {
		log.Warn().Str("node", c.name).Err(err).Msg("pong_failed")
		return
	}
	observability.RecordMessageSent(c.name, pong.Type.String(), len(buf))
}

func (c *Client) teardownLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.localID = 0
	c.asm.Reset()
}

func (c *Client) emitConnectFailed(err error) {
	if c.events.OnConnectFailed != nil {
		c.events.OnConnectFailed(err)
	}
}

func (c *Client) emitDisconnected(reason string) {
	if c.events.OnDisconnected != nil {
		c.events.OnDisconnected(reason)
	}
}
