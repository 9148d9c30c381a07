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

package wsserver

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/nabbar/wscore/certificates"
	"github.com/nabbar/wscore/registry"
	"github.com/nabbar/wscore/session"
	"github.com/nabbar/wscore/wsconn"
	"github.com/nabbar/wscore/workerpool"
)

type variant int

const (
	variantPlain variant = iota
	variantSecureVerified
	variantSecureAnonymous
)

type singletonKey struct {
	port    int
	variant variant
}

var (
	singletonMu sync.Mutex
	singletons  = map[singletonKey]*Server{}
)

// Server accepts WebSocket connections on one port, plain or TLS, up to
// maxSessions concurrently live. The zero value is not usable; build one
// with NewPlain, NewSecureVerified, or NewSecureAnonymous.
type Server struct {
	key         singletonKey
	port        int
	maxSessions int
	tls         *certificates.Config

	listener   net.Listener
	httpServer *http.Server

	pool   *workerpool.Pool
	reg    *registry.Registry
	active atomic.Int64
	running atomic.Bool

	acceptGate sync.Mutex

	logMu sync.RWMutex
	log   *logrus.Logger
}

// NewPlain returns the plain (non-TLS) server for port, creating it if one
// isn't already running there.
func NewPlain(port, maxSessions int) (*Server, error) {
	return newOrExisting(singletonKey{port: port, variant: variantPlain}, maxSessions, nil)
}

// NewSecureVerified returns the mutual-TLS server for port, creating it if
// one isn't already running there.
func NewSecureVerified(port, maxSessions int, keyPath, certPath, caPath string) (*Server, error) {
	cfg, err := certificates.NewVerified(keyPath, certPath, caPath)
	if err != nil {
		return nil, err
	}
	return newOrExisting(singletonKey{port: port, variant: variantSecureVerified}, maxSessions, cfg)
}

// NewSecureAnonymous returns the key-exchange-only TLS server for port,
// creating it if one isn't already running there.
func NewSecureAnonymous(port, maxSessions int, keyPath string) (*Server, error) {
	cfg, err := certificates.NewAnonymous(keyPath)
	if err != nil {
		return nil, err
	}
	return newOrExisting(singletonKey{port: port, variant: variantSecureAnonymous}, maxSessions, cfg)
}

func newOrExisting(key singletonKey, maxSessions int, cfg *certificates.Config) (*Server, error) {
	if maxSessions < 1 {
		return nil, fmt.Errorf("wsserver: maxSessions must be >= 1, got %d", maxSessions)
	}

	singletonMu.Lock()
	defer singletonMu.Unlock()

	if existing, ok := singletons[key]; ok && existing.IsRunning() {
		return existing, nil
	}

	registerMetrics()

	s := &Server{
		key:         key,
		port:        key.port,
		maxSessions: maxSessions,
		tls:         cfg,
		reg:         registry.New(maxSessions),
		pool:        workerpool.New(2 * maxSessions),
		log:         logrus.StandardLogger(),
	}
	singletons[key] = s
	return s, nil
}

// SetLogger replaces the logger used for this server's lifecycle
// messages. Sessions already started keep whatever logger they were
// handed at construction time.
func (s *Server) SetLogger(log *logrus.Logger) {
	if log == nil {
		return
	}
	s.logMu.Lock()
	s.log = log
	s.logMu.Unlock()
}

func (s *Server) logger() *logrus.Logger {
	s.logMu.RLock()
	defer s.logMu.RUnlock()
	return s.log
}

// Port reports the TCP port this server is bound to. Before Start, or if
// the configured port was 0, this is only meaningful after Start has
// returned successfully.
func (s *Server) Port() int {
	if s.listener != nil {
		if tcpAddr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return tcpAddr.Port
		}
	}
	return s.port
}

// Start opens the listener and begins accepting connections. Calling
// Start on an already-running Server is a no-op.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: session.HandshakeDeadline,
	}

	if s.tls != nil {
		s.httpServer.TLSConfig = s.tls.TLS()
		go func() {
			if err := s.httpServer.ServeTLS(ln, "", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger().WithError(err).Error("wsserver: ServeTLS exited")
			}
		}()
	} else {
		go func() {
			if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger().WithError(err).Error("wsserver: Serve exited")
			}
		}()
	}

	return nil
}

// handleUpgrade is the single HTTP handler backing every accepted
// connection. The accept-gate mutex protects only the capacity-check and
// id-allocation decision; the handshake and session lifetime run outside
// it so one slow client can't stall every other connection's admission
// decision.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	portLabel := strconv.Itoa(s.port)

	if !s.running.Load() {
		http.Error(w, "server not running", http.StatusServiceUnavailable)
		return
	}

	s.acceptGate.Lock()
	id, ok := s.reg.Allocate()
	if ok {
		s.active.Add(1)
	}
	s.acceptGate.Unlock()

	if !ok {
		rejectedTotal.WithLabelValues(portLabel).Inc()
		http.Error(w, "server at capacity", http.StatusServiceUnavailable)
		return
	}

	var (
		conn wsconn.Conn
		err  error
	)
	if s.tls != nil {
		conn, err = wsconn.AcceptTLS(w, r)
	} else {
		conn, err = wsconn.AcceptPlain(w, r)
	}
	if err != nil {
		s.reg.Release(id)
		s.active.Add(-1)
		rejectedTotal.WithLabelValues(portLabel).Inc()
		s.logger().WithError(err).Warn("wsserver: upgrade failed")
		return
	}

	sess := session.New(id, conn, s.reg, &s.active, s.pool, s.logger())
	s.reg.Insert(id, sess)

	if err := sess.Start(r.Context()); err != nil {
		rejectedTotal.WithLabelValues(portLabel).Inc()
		s.logger().WithError(err).Warn("wsserver: session start failed")
		return
	}

	acceptedTotal.WithLabelValues(portLabel).Inc()
	activeSessionsGauge.WithLabelValues(portLabel).Set(float64(s.active.Load()))
}

// Stop closes the listener, stops every live session, waits for
// in-flight async work to finish, and releases this server's singleton
// slot so a later New* call for the same port/variant starts fresh.
// Calling Stop on an already-stopped Server is a no-op.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	var result *multierror.Error

	if s.httpServer != nil {
		if err := s.httpServer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	var live []*session.Session
	s.reg.Each(func(_ uint64, h registry.Handle) {
		if sess, ok := h.(*session.Session); ok {
			live = append(live, sess)
		}
	})
	for _, sess := range live {
		sess.Stop()
	}

	s.pool.Wait()
	s.reg.Reset()

	singletonMu.Lock()
	delete(singletons, s.key)
	singletonMu.Unlock()

	return result.ErrorOrNil()
}

// Send queues p for delivery to the session with the given id.
func (s *Server) Send(id uint64, p []byte) error {
	h, ok := s.reg.Lookup(id)
	if !ok {
		return wsconn.ErrNotOpen
	}
	return h.(*session.Session).Send(p)
}

// Read pops the oldest buffered inbound frame for the session with the
// given id, or a zero-length slice if there is none or the id is unknown.
func (s *Server) Read(id uint64) []byte {
	h, ok := s.reg.Lookup(id)
	if !ok {
		return []byte{}
	}
	return h.(*session.Session).Read()
}

// InboxNonEmpty reports whether Read would currently return a buffered
// frame for the session with the given id.
func (s *Server) InboxNonEmpty(id uint64) bool {
	h, ok := s.reg.Lookup(id)
	return ok && h.(*session.Session).InboxNonEmpty()
}

// SessionLive reports whether the session with the given id is still
// open.
func (s *Server) SessionLive(id uint64) bool {
	h, ok := s.reg.Lookup(id)
	return ok && h.(*session.Session).IsAlive()
}

// Close closes the session with the given id. Unknown or already-closed
// ids are a no-op.
func (s *Server) Close(id uint64) {
	if h, ok := s.reg.Lookup(id); ok {
		h.(*session.Session).Stop()
	}
}

// Count reports the number of sessions currently live.
func (s *Server) Count() int {
	return int(s.active.Load())
}

// IsRunning reports whether Start has been called and Stop has not.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// IsServing reports whether at least one session is currently live.
func (s *Server) IsServing() bool {
	return s.active.Load() > 0
}
