/*
 * MIT License
 *
 * Copyright (c) 2026 nabbar
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package wsclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nabbar/wscore/certificates"
	"github.com/nabbar/wscore/queue"
	"github.com/nabbar/wscore/wsconn"
	"github.com/nabbar/wscore/workerpool"
)

// ConnectDeadline bounds how long Connect waits for TCP connect, TLS
// handshake, and WebSocket upgrade to complete before giving up.
const ConnectDeadline = 30 * time.Second

// Client is a single outbound WebSocket endpoint: at most one live
// connection, reusable across connect/disconnect cycles. The zero value
// is not usable; build one with NewPlain, NewSecureVerified, or
// NewSecureAnonymous.
type Client struct {
	tls *certificates.Config

	mu   sync.Mutex
	pool *workerpool.Pool
	conn wsconn.Conn
	host string
	port int

	inbound  *queue.Queue
	outbound *queue.Queue
	writeMu  sync.Mutex

	live   atomic.Bool
	failed atomic.Bool

	log *logrus.Logger
}

func newClient(cfg *certificates.Config) *Client {
	return &Client{
		tls:      cfg,
		pool:     workerpool.New(2),
		inbound:  queue.New(),
		outbound: queue.New(),
		log:      logrus.StandardLogger(),
	}
}

// NewPlain returns a Client that connects over plain TCP.
func NewPlain() *Client {
	return newClient(nil)
}

// NewSecureVerified returns a Client that connects over TLS, verifying
// the server's certificate against the given authority.
func NewSecureVerified(keyPath, certPath, caPath string) (*Client, error) {
	cfg, err := certificates.NewVerified(keyPath, certPath, caPath)
	if err != nil {
		return nil, err
	}
	return newClient(cfg), nil
}

// NewSecureAnonymous returns a Client that connects over TLS with
// key-exchange only, no server verification.
func NewSecureAnonymous(keyPath string) (*Client, error) {
	cfg, err := certificates.NewAnonymous(keyPath)
	if err != nil {
		return nil, err
	}
	return newClient(cfg), nil
}

// SetLogger replaces the logger used for this client's lifecycle
// messages.
func (c *Client) SetLogger(log *logrus.Logger) {
	if log == nil {
		return
	}
	c.mu.Lock()
	c.log = log
	c.mu.Unlock()
}

// Connect dials host:port. If the client is already live and the target
// matches the endpoint it's already connected to, Connect returns true
// without reconnecting. If it's already live against a different
// endpoint, Connect returns false. If the previous attempt left the
// failure flag set, Connect resets the client first. On any error —
// resolution, TCP, handshake, or a deadline of ConnectDeadline — Connect
// sets the failure flag and returns false.
func (c *Client) Connect(ctx context.Context, host string, port int) bool {
	if c.live.Load() {
		c.mu.Lock()
		same := c.host == host && c.port == port
		c.mu.Unlock()
		return same
	}

	if c.failed.Load() {
		c.Reset()
	}

	dialCtx, cancel := context.WithTimeout(ctx, ConnectDeadline)
	defer cancel()

	conn, err := c.dial(dialCtx, host, port)
	if err != nil {
		c.failed.Store(true)
		return false
	}

	c.mu.Lock()
	c.conn = conn
	c.host = host
	c.port = port
	pool := c.pool
	c.mu.Unlock()

	c.live.Store(true)

	if err := pool.Go(dialCtx, c.receiveLoop); err != nil {
		c.live.Store(false)
		_ = conn.Close(wsconn.CloseProtocolError)
		c.failed.Store(true)
		return false
	}

	return true
}

func (c *Client) dial(ctx context.Context, host string, port int) (wsconn.Conn, error) {
	if c.tls != nil {
		return wsconn.DialTLS(ctx, host, port, c.tls.ForClient(host))
	}
	return wsconn.DialPlain(ctx, host, port)
}

func (c *Client) receiveLoop() {
	for c.live.Load() {
		p, err := c.currentConn().ReadFrame()
		if err != nil {
			code := wsconn.CloseNormal
			if !errors.Is(err, wsconn.ErrPeerClosed) {
				c.failed.Store(true)
				c.log.WithError(err).Warn("wsclient: read failed, closing")
				code = wsconn.CloseProtocolError
			}
			c.closeConn(code)
			return
		}

		if len(p) == 0 {
			continue
		}

		c.inbound.Push(p)
	}
}

func (c *Client) currentConn() wsconn.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Send enqueues p for delivery and schedules a write.
func (c *Client) Send(p []byte) error {
	if !c.live.Load() {
		return wsconn.ErrNotOpen
	}

	c.outbound.Push(p)

	c.mu.Lock()
	pool := c.pool
	c.mu.Unlock()

	return pool.Go(context.Background(), c.flushOne)
}

func (c *Client) flushOne() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !c.outbound.NonEmpty() {
		return
	}

	p := c.outbound.Pop()
	if err := c.currentConn().WriteFrame(p); err != nil {
		c.log.WithError(err).Warn("wsclient: write failed, closing")
		c.closeConn(wsconn.CloseProtocolError)
	}
}

// Read pops the oldest buffered inbound frame, or a zero-length slice if
// none is pending.
func (c *Client) Read() []byte {
	return c.inbound.Pop()
}

// InboxNonEmpty reports whether Read would currently return a buffered
// frame.
func (c *Client) InboxNonEmpty() bool {
	return c.inbound.NonEmpty()
}

// IsConnected reports whether the client currently holds a live
// connection.
func (c *Client) IsConnected() bool {
	return c.live.Load()
}

// HadFailure reports whether the last connect attempt failed and the
// client needs a reset before it can connect again. Connect performs this
// reset automatically.
func (c *Client) HadFailure() bool {
	return c.failed.Load()
}

// closeConn flips liveness off and closes the stream, without joining
// the worker pool. Safe to call from a goroutine running on that pool
// (the receive loop); Disconnect/Reset call it and then join separately.
func (c *Client) closeConn(code wsconn.CloseCode) {
	c.live.Store(false)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(code)
	}
}

// Disconnect closes the connection gracefully, joins the worker pool,
// and reconstructs the client's runtime so it can be reused for another
// Connect without further action.
func (c *Client) Disconnect() {
	c.closeConn(wsconn.CloseNormal)

	c.mu.Lock()
	pool := c.pool
	c.mu.Unlock()
	pool.Wait()

	c.rebuild()
}

// Reset reconstructs the client's runtime after a failed connect. A
// no-op if the failure flag is not set.
func (c *Client) Reset() {
	if !c.failed.Load() {
		return
	}

	c.closeConn(wsconn.CloseProtocolError)

	c.mu.Lock()
	pool := c.pool
	c.mu.Unlock()
	pool.Wait()

	c.rebuild()
}

func (c *Client) rebuild() {
	c.mu.Lock()
	c.conn = nil
	c.host = ""
	c.port = 0
	c.pool = workerpool.New(2)
	c.mu.Unlock()

	c.inbound.Clear()
	c.outbound.Clear()
	c.failed.Store(false)
}
