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

package wsserver_test

import (
	"context"
	"crypto/tls"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/wscore/certificates"
	"github.com/nabbar/wscore/wsconn"
	"github.com/nabbar/wscore/wsserver"
)

func certTestdata(name string) string {
	return filepath.Join("..", "certificates", "testdata", name)
}

const firstSessionID = uint64(1)

var _ = Describe("Server", func() {
	var srv *wsserver.Server

	AfterEach(func() {
		if srv != nil {
			Expect(srv.Stop()).To(Succeed())
			srv = nil
		}
	})

	It("accepts a plain connection and exchanges frames in both directions", func() {
		var err error
		srv, err = wsserver.NewPlain(0, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())

		Eventually(func() bool { return srv.IsRunning() }, time.Second).Should(BeTrue())
		Expect(srv.IsServing()).To(BeFalse())

		conn, err := wsconn.DialPlain(context.Background(), "127.0.0.1", srv.Port())
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close(wsconn.CloseNormal)

		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(1))
		Expect(srv.IsServing()).To(BeTrue())

		Expect(conn.WriteFrame([]byte("This is message 1 - Alfa"))).To(Succeed())
		Eventually(func() bool { return srv.InboxNonEmpty(firstSessionID) }, time.Second).Should(BeTrue())
		Expect(string(srv.Read(firstSessionID))).To(Equal("This is message 1 - Alfa"))

		Expect(srv.Send(firstSessionID, []byte("This is message 2 - Bravo"))).To(Succeed())
		p, err := conn.ReadFrame()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(p)).To(Equal("This is message 2 - Bravo"))
	})

	It("rejects a connection once at capacity", func() {
		var err error
		srv, err = wsserver.NewPlain(0, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())
		Eventually(func() bool { return srv.IsRunning() }, time.Second).Should(BeTrue())

		first, err := wsconn.DialPlain(context.Background(), "127.0.0.1", srv.Port())
		Expect(err).NotTo(HaveOccurred())
		defer first.Close(wsconn.CloseNormal)
		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(1))

		_, err = wsconn.DialPlain(context.Background(), "127.0.0.1", srv.Port())
		Expect(err).To(HaveOccurred())
	})

	It("frees a session's id for reuse once it is closed", func() {
		var err error
		srv, err = wsserver.NewPlain(0, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())
		Eventually(func() bool { return srv.IsRunning() }, time.Second).Should(BeTrue())

		conn, err := wsconn.DialPlain(context.Background(), "127.0.0.1", srv.Port())
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(1))

		srv.Close(firstSessionID)
		Eventually(func() bool { return srv.SessionLive(firstSessionID) }, time.Second).Should(BeFalse())
		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(0))
		Expect(srv.IsServing()).To(BeFalse())

		_ = conn.Close(wsconn.CloseNormal)

		second, err := wsconn.DialPlain(context.Background(), "127.0.0.1", srv.Port())
		Expect(err).NotTo(HaveOccurred())
		defer second.Close(wsconn.CloseNormal)
		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(1))
		Expect(srv.SessionLive(firstSessionID)).To(BeTrue())
	})

	It("returns the same instance for a repeated constructor call on a running port", func() {
		var err error
		srv, err = wsserver.NewPlain(0, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())

		again, err := wsserver.NewPlain(0, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeIdenticalTo(srv))
	})

	It("accepts a mutual-TLS connection when the client presents a verified certificate", func() {
		var err error
		srv, err = wsserver.NewSecureVerified(0, 4,
			certTestdata("server-key.pem"), certTestdata("server-cert.pem"), certTestdata("ca-cert.pem"))
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())
		Eventually(func() bool { return srv.IsRunning() }, time.Second).Should(BeTrue())

		clientCfg, err := certificates.NewVerified(
			certTestdata("client-key.pem"), certTestdata("client-cert.pem"), certTestdata("ca-cert.pem"))
		Expect(err).NotTo(HaveOccurred())

		conn, err := wsconn.DialTLS(context.Background(), "127.0.0.1", srv.Port(), clientCfg.ForClient("localhost"))
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close(wsconn.CloseNormal)

		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(1))
		Expect(srv.SessionLive(firstSessionID)).To(BeTrue())
	})

	It("accepts a TLS connection in anonymous key-exchange-only mode", func() {
		var err error
		srv, err = wsserver.NewSecureAnonymous(0, 4, certTestdata("server-key.pem"))
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())
		Eventually(func() bool { return srv.IsRunning() }, time.Second).Should(BeTrue())

		clientTLS := &tls.Config{InsecureSkipVerify: true} //nolint:gosec // anonymous mode is key-exchange only by design

		conn, err := wsconn.DialTLS(context.Background(), "127.0.0.1", srv.Port(), clientTLS)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close(wsconn.CloseNormal)

		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(1))
		Expect(srv.SessionLive(firstSessionID)).To(BeTrue())
	})

	It("admits 25 concurrent connections at N=25 and rejects the 26th", func() {
		var err error
		srv, err = wsserver.NewPlain(0, 25)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())
		Eventually(func() bool { return srv.IsRunning() }, time.Second).Should(BeTrue())

		conns := make([]wsconn.Conn, 0, 25)
		for i := 0; i < 25; i++ {
			c, err := wsconn.DialPlain(context.Background(), "127.0.0.1", srv.Port())
			Expect(err).NotTo(HaveOccurred())
			conns = append(conns, c)
		}
		defer func() {
			for _, c := range conns {
				_ = c.Close(wsconn.CloseNormal)
			}
		}()

		Eventually(func() int { return srv.Count() }, 2*time.Second).Should(Equal(25))

		_, err = wsconn.DialPlain(context.Background(), "127.0.0.1", srv.Port())
		Expect(err).To(HaveOccurred())
	})

	It("rejects a connect after stop and accepts one after a second start", func() {
		var err error
		srv, err = wsserver.NewPlain(0, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())
		Eventually(func() bool { return srv.IsRunning() }, time.Second).Should(BeTrue())
		port := srv.Port()

		Expect(srv.Stop()).To(Succeed())
		Expect(srv.IsRunning()).To(BeFalse())

		_, err = wsconn.DialPlain(context.Background(), "127.0.0.1", port)
		Expect(err).To(HaveOccurred())

		srv, err = wsserver.NewPlain(port, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())
		Eventually(func() bool { return srv.IsRunning() }, time.Second).Should(BeTrue())

		conn, err := wsconn.DialPlain(context.Background(), "127.0.0.1", srv.Port())
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close(wsconn.CloseNormal)
		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(1))
	})
})
