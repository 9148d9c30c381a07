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

package wsconn

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// CloseCode is the close status this package will ever emit: a graceful
// close and a protocol-error close.
type CloseCode int

const (
	// CloseNormal is used for user-initiated close, peer close, and EOF.
	CloseNormal CloseCode = websocket.CloseNormalClosure
	// CloseProtocolError is used for handshake failure, I/O error, and
	// handshake timeout.
	CloseProtocolError CloseCode = websocket.CloseProtocolError
)

var (
	// ErrNotOpen is returned by ReadFrame/WriteFrame when the stream has
	// already been closed.
	ErrNotOpen = errors.New("wsconn: stream not open")
	// ErrPeerClosed marks a graceful close observed from ReadFrame, either
	// a received close frame or a plain EOF on the underlying transport.
	ErrPeerClosed = errors.New("wsconn: peer closed")
)

// Conn is the framed-stream capability set every Session and Client needs
// once a stream is open: read one frame, write one frame, and close with a
// code. The two handshake directions are the Accept*/Dial* constructors
// below, which return an already-open Conn. Exactly one read and one write
// may be outstanding at a time; callers serialize both themselves (see
// session.Session's and wsclient.Client's single receive goroutine and
// mutex-guarded writes) — Conn itself does not re-enter its own locking
// beyond what gorilla/websocket requires internally.
type Conn interface {
	// ReadFrame blocks for the next binary/text frame. Empty payloads are
	// returned as a zero-length, non-nil slice and the caller is expected
	// to ignore them and read again.
	ReadFrame() ([]byte, error)

	// WriteFrame sends one binary frame.
	WriteFrame(p []byte) error

	// Close closes the stream with the given code. Idempotent: closing an
	// already-closed Conn returns ErrNotOpen but causes no panic and no
	// double-close on the wire.
	Close(code CloseCode) error

	// RemoteAddr reports the address of the other side, for logging.
	RemoteAddr() string
}

type wsConn struct {
	c      *websocket.Conn
	closed bool
}

func (w *wsConn) ReadFrame() ([]byte, error) {
	if w.closed {
		return nil, ErrNotOpen
	}

	_, p, err := w.c.ReadMessage()
	if err != nil {
		// gorilla/websocket reports an EOF on the transport as
		// CloseAbnormalClosure (1006); that code is never sent on the wire.
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			return nil, ErrPeerClosed
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrPeerClosed
		}
		return nil, err
	}

	if p == nil {
		p = []byte{}
	}
	return p, nil
}

func (w *wsConn) WriteFrame(p []byte) error {
	if w.closed {
		return ErrNotOpen
	}
	return w.c.WriteMessage(websocket.BinaryMessage, p)
}

func (w *wsConn) Close(code CloseCode) error {
	if w.closed {
		return ErrNotOpen
	}
	w.closed = true

	msg := websocket.FormatCloseMessage(int(code), "")
	_ = w.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return w.c.Close()
}

func (w *wsConn) RemoteAddr() string {
	if w.c == nil {
		return ""
	}
	return w.c.RemoteAddr().String()
}

// serverUpgrader is shared across accepted connections; gorilla/websocket's
// Upgrader is safe for concurrent use once configured.
var serverUpgrader = websocket.Upgrader{
	HandshakeTimeout: 0, // the caller races the handshake against its own deadline
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// AcceptPlain performs the WebSocket upgrade on an already-accepted plain
// TCP connection. w/r are the http.ResponseWriter/Request captured by the
// one-shot HTTP handler the listener feeds the upgrade through.
func AcceptPlain(w http.ResponseWriter, r *http.Request) (Conn, error) {
	c, err := serverUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("wsconn: upgrade: %w", err)
	}
	return &wsConn{c: c}, nil
}

// AcceptTLS performs the WebSocket upgrade on a TLS connection, using the
// same upgrader as the plain variant. It does no TLS work itself: the TLS
// handshake already happened at the net/http.Server / tls.Listener layer by
// the time this is called, so AcceptTLS and AcceptPlain share one body.
func AcceptTLS(w http.ResponseWriter, r *http.Request) (Conn, error) {
	return AcceptPlain(w, r)
}

// DialPlain dials host:port and performs the client-side WebSocket
// handshake over plain TCP.
func DialPlain(ctx context.Context, host string, port int) (Conn, error) {
	u := fmt.Sprintf("ws://%s:%d/", host, port)
	return dial(ctx, u, nil)
}

// DialTLS dials host:port, performs the TLS handshake (with the supplied
// *tls.Config, which carries SNI/verification settings from the
// certificates package) then the client-side WebSocket handshake.
func DialTLS(ctx context.Context, host string, port int, cfg *tls.Config) (Conn, error) {
	u := fmt.Sprintf("wss://%s:%d/", host, port)

	cfgCopy := cfg.Clone()
	if cfgCopy.ServerName == "" {
		cfgCopy.ServerName = host
	}

	return dial(ctx, u, cfgCopy)
}

func dial(ctx context.Context, url string, tlsCfg *tls.Config) (Conn, error) {
	dialer := websocket.Dialer{
		TLSClientConfig:  tlsCfg,
		HandshakeTimeout: 0, // caller races against its own deadline via ctx
	}

	c, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsconn: dial: %w", err)
	}

	return &wsConn{c: c}, nil
}
