/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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
 *
 */

package server_test

import (
	"fmt"
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/beansdb-io/beansdb/config"
	"github.com/beansdb-io/beansdb/server"
	"github.com/beansdb-io/beansdb/stats"
	"github.com/beansdb-io/beansdb/store"
)

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Server Suite")
}

// getFreeAddr returns a loopback address on an ephemeral free port.
func getFreeAddr() string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).ToNot(HaveOccurred())
	defer func() { _ = ln.Close() }()
	return ln.Addr().String()
}

func newTestServer(addr string) server.Server {
	cfg := config.Default()
	cfg.Listen = addr
	cfg.HomeDirs = []string{"./testdata"}
	cfg.FlushPeriod = 50 * time.Millisecond

	st, err := store.Open(store.Config{HomeDirs: cfg.HomeDirs})
	Expect(err).ToNot(HaveOccurred())

	return server.New(cfg, st, stats.New(), nil)
}

func waitUntilRunning(s server.Server) {
	Eventually(s.IsRunning, 2*time.Second, 10*time.Millisecond).Should(BeTrue())
}

// readLine reads one CRLF-terminated line from conn within a bounded time.
func readLine(conn net.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	total := 0
	for {
		n, err := conn.Read(buf[total:])
		Expect(err).ToNot(HaveOccurred())
		total += n
		if total >= 2 && buf[total-2] == '\r' && buf[total-1] == '\n' {
			return string(buf[:total])
		}
	}
}

func sendLine(conn net.Conn, line string) {
	_, err := conn.Write([]byte(line + "\r\n"))
	Expect(err).ToNot(HaveOccurred())
}

var _ = Describe("beansdb request core", func() {
	var (
		addr string
		srv  server.Server
	)

	BeforeEach(func() {
		addr = getFreeAddr()
		srv = newTestServer(addr)
		Expect(srv.Listen()).To(BeNil())
		waitUntilRunning(srv)
	})

	AfterEach(func() {
		srv.Shutdown()
	})

	It("stores and retrieves a value via set/get", func() {
		conn, err := net.Dial("tcp", addr)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = conn.Close() }()

		sendLine(conn, "set foo 0 0 5")
		sendLine(conn, "hello")
		Expect(readLine(conn)).To(Equal("STORED\r\n"))

		sendLine(conn, "get foo")
		reply := readLine(conn)
		Expect(reply).To(ContainSubstring("VALUE foo 0 5"))
	})

	It("reports a miss as an empty END block", func() {
		conn, err := net.Dial("tcp", addr)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = conn.Close() }()

		sendLine(conn, "get missing")
		Expect(readLine(conn)).To(Equal("END\r\n"))
	})

	It("increments a numeric value", func() {
		conn, err := net.Dial("tcp", addr)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = conn.Close() }()

		sendLine(conn, "set counter 0 0 1")
		sendLine(conn, "1")
		Expect(readLine(conn)).To(Equal("STORED\r\n"))

		sendLine(conn, "incr counter 4")
		Expect(readLine(conn)).To(Equal("5\r\n"))
	})

	It("deletes a stored key", func() {
		conn, err := net.Dial("tcp", addr)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = conn.Close() }()

		sendLine(conn, "set k 0 0 1")
		sendLine(conn, "v")
		Expect(readLine(conn)).To(Equal("STORED\r\n"))

		sendLine(conn, "delete k")
		Expect(readLine(conn)).To(Equal("DELETED\r\n"))

		sendLine(conn, "delete k")
		Expect(readLine(conn)).To(Equal("NOT_FOUND\r\n"))
	})

	It("reports the protocol version", func() {
		conn, err := net.Dial("tcp", addr)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = conn.Close() }()

		sendLine(conn, "version")
		Expect(readLine(conn)).To(ContainSubstring("VERSION"))
	})

	It("closes the connection on quit without a reply", func() {
		conn, err := net.Dial("tcp", addr)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = conn.Close() }()

		sendLine(conn, "quit")

		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		buf := make([]byte, 1)
		_, err = conn.Read(buf)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a malformed command line", func() {
		conn, err := net.Dial("tcp", addr)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = conn.Close() }()

		sendLine(conn, "set onlykey")
		Expect(readLine(conn)).To(ContainSubstring("CLIENT_ERROR"))
	})

	It("stops running after Shutdown", func() {
		srv.Shutdown()
		Eventually(func() bool { return srv.IsRunning() }, time.Second, 10*time.Millisecond).Should(BeFalse())
	})
})

var _ = Describe("multiple connections", func() {
	It("serves concurrent clients independently", func() {
		addr := getFreeAddr()
		srv := newTestServer(addr)
		Expect(srv.Listen()).To(BeNil())
		waitUntilRunning(srv)
		defer srv.Shutdown()

		for i := 0; i < 5; i++ {
			conn, err := net.Dial("tcp", addr)
			Expect(err).ToNot(HaveOccurred())

			key := fmt.Sprintf("k%d", i)
			sendLine(conn, fmt.Sprintf("set %s 0 0 1", key))
			sendLine(conn, "v")
			Expect(readLine(conn)).To(Equal("STORED\r\n"))
			_ = conn.Close()
		}
	})
})
