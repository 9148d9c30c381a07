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

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nabbar/wscore/queue"
	"github.com/nabbar/wscore/registry"
	"github.com/nabbar/wscore/wsconn"
	"github.com/nabbar/wscore/workerpool"
)

// HandshakeDeadline bounds how long a connection may take to complete its
// TLS and WebSocket handshake before the accept path gives up on it. The
// handshake itself runs at the transport layer (net/http's
// ReadHeaderTimeout); Session.Start just has to not outlive it.
const HandshakeDeadline = 4 * time.Second

// closeGrace is how long Stop waits after closing the stream before
// returning, so a write or a final registry lookup already in flight has a
// chance to observe the closed state rather than racing it.
const closeGrace = 25 * time.Millisecond

// Session is one accepted connection on the server side: an id, a framed
// stream, an inbound and an outbound queue.Queue, and a self-reposting
// receive loop running on a shared workerpool.Pool. The zero value is not
// usable; construct with New.
type Session struct {
	id     uint64
	conn   wsconn.Conn
	reg    *registry.Registry
	active *atomic.Int64
	pool   *workerpool.Pool
	log    *logrus.Entry

	inbound  *queue.Queue
	outbound *queue.Queue

	writeMu sync.Mutex
	live    atomic.Bool
}

// New builds a Session for an already-upgraded stream. id must already be
// allocated from reg by the caller; New does not insert itself into reg —
// that is the accept path's job, done once New succeeds, so a failed Start
// never leaves a half-registered id behind.
func New(id uint64, conn wsconn.Conn, reg *registry.Registry, active *atomic.Int64, pool *workerpool.Pool, log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		id:       id,
		conn:     conn,
		reg:      reg,
		active:   active,
		pool:     pool,
		inbound:  queue.New(),
		outbound: queue.New(),
		log:      log.WithField("session", id),
	}
}

// ID returns the session's registry id.
func (s *Session) ID() uint64 {
	return s.id
}

// Start marks the session live and launches its receive loop onto the
// shared pool. By the time Start is called the TLS/WebSocket handshake has
// already completed (the accept path only builds a Session once the
// upgrade succeeds), so the only way Start itself can fail is if the pool
// has no slot free within HandshakeDeadline — in that case the session is
// torn down with a protocol-error close, which also removes its id from
// the registry, returns the id to the pool and decrements the active
// counter, and the error is returned.
func (s *Session) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HandshakeDeadline)
	defer cancel()

	s.live.Store(true)

	if err := s.pool.Go(ctx, s.receiveLoop); err != nil {
		s.stop(wsconn.CloseProtocolError)
		return err
	}

	return nil
}

// receiveLoop runs on one worker for the life of the session. It reads one
// frame at a time, ignores empty frames by looping back for the next read,
// and on any error classifies a graceful peer close against everything
// else before stopping the session.
func (s *Session) receiveLoop() {
	for s.live.Load() {
		p, err := s.conn.ReadFrame()
		if err != nil {
			if errors.Is(err, wsconn.ErrPeerClosed) {
				s.stop(wsconn.CloseNormal)
			} else {
				s.log.WithError(err).Warn("session: read failed, closing")
				s.stop(wsconn.CloseProtocolError)
			}
			return
		}

		if len(p) == 0 {
			continue
		}

		s.inbound.Push(p)
	}
}

// Send enqueues p for delivery and schedules a write. Send returns
// immediately; the actual write happens asynchronously on the shared pool,
// serialized against any other in-flight write for this session.
func (s *Session) Send(p []byte) error {
	if !s.live.Load() {
		return wsconn.ErrNotOpen
	}

	s.outbound.Push(p)
	return s.pool.Go(context.Background(), s.flushOne)
}

// flushOne writes the front of the outbound queue, if any. Multiple Sends
// in quick succession each schedule a flushOne; writeMu makes sure at most
// one of them is ever touching the wire at a time, and an empty queue when
// a later flushOne runs is a harmless no-op (an earlier one already sent
// it).
func (s *Session) flushOne() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.outbound.NonEmpty() {
		return
	}

	p := s.outbound.Pop()
	if err := s.conn.WriteFrame(p); err != nil {
		s.log.WithError(err).Warn("session: write failed, closing")
		s.stop(wsconn.CloseProtocolError)
	}
}

// Read pops the oldest buffered inbound frame, or a zero-length slice if
// none is pending.
func (s *Session) Read() []byte {
	return s.inbound.Pop()
}

// InboxNonEmpty reports whether Read would currently return a buffered
// frame.
func (s *Session) InboxNonEmpty() bool {
	return s.inbound.NonEmpty()
}

// IsAlive reports whether the session is still open.
func (s *Session) IsAlive() bool {
	return s.live.Load()
}

// Stop closes the session gracefully. Idempotent: calling Stop more than
// once, or after a peer-initiated close already ran, is a no-op.
func (s *Session) Stop() {
	s.stop(wsconn.CloseNormal)
}

func (s *Session) stop(code wsconn.CloseCode) {
	if !s.live.CompareAndSwap(true, false) {
		return
	}

	s.reg.Terminate(s.id)
	s.active.Add(-1)

	if err := s.conn.Close(code); err != nil && !errors.Is(err, wsconn.ErrNotOpen) {
		s.log.WithError(err).Debug("session: close returned an error")
	}

	time.Sleep(closeGrace)
}
