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

package wsclient_test

import (
	"context"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/wscore/wsclient"
	"github.com/nabbar/wscore/wsserver"
)

const firstSessionID = uint64(1)

var _ = Describe("Client", func() {
	var srv *wsserver.Server
	var cli *wsclient.Client

	BeforeEach(func() {
		var err error
		srv, err = wsserver.NewPlain(0, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Start()).To(Succeed())
		Eventually(func() bool { return srv.IsRunning() }, time.Second).Should(BeTrue())

		cli = wsclient.NewPlain()
	})

	AfterEach(func() {
		cli.Disconnect()
		Expect(srv.Stop()).To(Succeed())
	})

	It("connects, exchanges frames in both directions, and disconnects cleanly", func() {
		ok := cli.Connect(context.Background(), "127.0.0.1", srv.Port())
		Expect(ok).To(BeTrue())
		Expect(cli.IsConnected()).To(BeTrue())
		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(1))

		Expect(cli.Send([]byte("This is message 1 - Alfa"))).To(Succeed())
		Eventually(func() bool { return srv.InboxNonEmpty(firstSessionID) }, time.Second).Should(BeTrue())
		Expect(string(srv.Read(firstSessionID))).To(Equal("This is message 1 - Alfa"))

		Expect(srv.Send(firstSessionID, []byte("This is message 2 - Bravo"))).To(Succeed())
		Eventually(func() bool { return cli.InboxNonEmpty() }, time.Second).Should(BeTrue())
		Expect(string(cli.Read())).To(Equal("This is message 2 - Bravo"))

		cli.Disconnect()
		Expect(cli.IsConnected()).To(BeFalse())
		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(0))
	})

	It("returns true without reconnecting when asked to connect to the same endpoint twice", func() {
		Expect(cli.Connect(context.Background(), "127.0.0.1", srv.Port())).To(BeTrue())
		Expect(cli.Connect(context.Background(), "127.0.0.1", srv.Port())).To(BeTrue())
	})

	It("fails a connect to a different endpoint while already live", func() {
		Expect(cli.Connect(context.Background(), "127.0.0.1", srv.Port())).To(BeTrue())
		Expect(cli.Connect(context.Background(), "127.0.0.1", srv.Port()+1)).To(BeFalse())
	})

	It("sets the failure flag on a refused connection and recovers on the next connect", func() {
		// A listener opened and closed again leaves a port nobody listens
		// on. wsserver.NewPlain(0, ...) would hand back the running suite
		// server here, since servers are keyed on the configured port.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		port := ln.Addr().(*net.TCPAddr).Port
		Expect(ln.Close()).To(Succeed())

		Expect(cli.Connect(context.Background(), "127.0.0.1", port)).To(BeFalse())
		Expect(cli.HadFailure()).To(BeTrue())

		Expect(cli.Connect(context.Background(), "127.0.0.1", srv.Port())).To(BeTrue())
		Expect(cli.HadFailure()).To(BeFalse())
	})

	It("can reconnect after a clean disconnect without an explicit reset", func() {
		Expect(cli.Connect(context.Background(), "127.0.0.1", srv.Port())).To(BeTrue())
		cli.Disconnect()
		Expect(cli.Connect(context.Background(), "127.0.0.1", srv.Port())).To(BeTrue())
	})

	It("admits four clients at cap 4, rejects a fifth, and decrements on disconnect", func() {
		clients := []*wsclient.Client{cli, wsclient.NewPlain(), wsclient.NewPlain(), wsclient.NewPlain()}
		for i, c := range clients {
			Expect(c.Connect(context.Background(), "127.0.0.1", srv.Port())).To(BeTrue(), "client %d", i)
		}
		Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(4))

		fifth := wsclient.NewPlain()
		Expect(fifth.Connect(context.Background(), "127.0.0.1", srv.Port())).To(BeFalse())
		Expect(srv.SessionLive(uint64(5))).To(BeFalse())

		for i, want := range []int{3, 2, 1, 0} {
			clients[i].Disconnect()
			Eventually(func() int { return srv.Count() }, time.Second).Should(Equal(want))
		}
	})
})
