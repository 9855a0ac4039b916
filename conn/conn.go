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

// Package conn drives one client connection end to end: framing lines off
// the wire, streaming a set/append body through NRead, and assembling
// scatter/gather replies bounded the way §4.3 and §4.5 describe. The eight
// state names from the source (listening/read/nread/swallow/write/mwrite/
// closing) collapse here into a smaller explicit set because Go's blocking
// net.Conn plus a goroutine-per-connection already gives us the listening
// and non-blocking-read states for free. The state field is set to
// StateRead when a Conn is built and is not updated afterwards; there is no
// add_iov or buffer high-water-mark bookkeeping and no epoll readiness
// handling.
package conn

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/nabbar/golib/logger"

	"github.com/beansdb-io/beansdb/item"
	"github.com/beansdb-io/beansdb/protocol"
	"github.com/beansdb-io/beansdb/stats"
	"github.com/beansdb-io/beansdb/store"
)

// State names the phase of request handling a Conn is currently in.
type State int

const (
	StateRead State = iota
	StateNRead
	StateSwallow
	StateWrite
	StateClosing
)

const (
	// readBufHighWater and readBufLowWater record DATA_BUFFER_SIZE's
	// 8192-byte/2048-byte high/low water marks. readBufHighWater sizes the
	// connection's bufio.Reader; readBufLowWater is not referenced. The read
	// buffer keeps its size for the life of the connection and is never
	// shrunk.
	readBufHighWater = 8192
	readBufLowWater  = 2048

	// maxPayloadSize is the size at which handleGet writes its first
	// scatter/gather group early, after the source's MAX_PAYLOAD_SIZE, to keep
	// latency low on the first byte back to the client. It is a trigger, not
	// a hard cap: see handleGet.
	maxPayloadSize = 1400
)

// Conn owns the per-connection request/response loop. One goroutine per
// connection calls Serve; there is no sharing across connections except
// through Store and Stats, both already safe for concurrent use.
type Conn struct {
	id     uuid.UUID
	nc     net.Conn
	rd     *bufio.Reader
	remote string

	store  store.Store
	stats  *stats.Counters
	log    logger.Logger

	state   State
	noreply bool

	maxKeyLen int

	slowThreshold time.Duration
	stopMeEnabled bool
	shutdown      func()
}

// Options configures a Conn. A Conn keeps no verbosity level: the verbosity
// command logs the requested level and replies OK without changing any
// setting.
type Options struct {
	Store store.Store
	Stats *stats.Counters
	Log   logger.Logger

	// SlowThreshold overrides the default 100ms cmd_slow threshold; zero
	// keeps the default, matching the daemon's --slow-cmd-ms flag.
	SlowThreshold time.Duration

	// StopMeEnabled gates the stopme command per §4.4 ("stopme only when
	// guarded flag is on"); false makes stopme behave like any other
	// unrecognized-in-this-mode command.
	StopMeEnabled bool

	// Shutdown, when set, is called to stop the whole daemon when a guarded
	// stopme command is accepted — normally the owning server's Shutdown
	// method.
	Shutdown func()
}

// New wraps an accepted net.Conn for the request loop. The read side is a
// bufio.Reader of readBufHighWater bytes, the way the source pre-allocates
// DATA_BUFFER_SIZE; ReadBytes assembles a longer line into a fresh slice, so
// this package does no grow/shrink of its own on the read side, and the
// write side keeps no buffer.
func New(nc net.Conn, opt Options) *Conn {
	threshold := opt.SlowThreshold
	if threshold <= 0 {
		threshold = slowCommandThreshold
	}

	return &Conn{
		id:            uuid.New(),
		nc:            nc,
		rd:            bufio.NewReaderSize(nc, readBufHighWater),
		remote:        nc.RemoteAddr().String(),
		store:         opt.Store,
		stats:         opt.Stats,
		log:           opt.Log,
		state:         StateRead,
		slowThreshold: threshold,
		stopMeEnabled: opt.StopMeEnabled,
		shutdown:      opt.Shutdown,
	}
}

// ID returns the connection's trace identifier, surfaced in log entries so
// a multi-line exchange can be correlated back to one client.
func (c *Conn) ID() uuid.UUID { return c.id }

// Serve runs the read-parse-execute-write loop until the client disconnects,
// sends quit, or ctx is cancelled. It never returns an error: connection-
// level failures are logged and simply end the loop, matching the source's
// conn_close path rather than bubbling errors up to the listener.
func (c *Conn) Serve(ctx context.Context) {
	c.stats.ConnOpened()
	if c.log != nil {
		c.log.Info("connection opened", nil, c.id.String(), c.remote)
	}
	defer func() {
		c.stats.ConnClosed()
		_ = c.nc.Close()
		if c.log != nil {
			c.log.Info("connection closed", nil, c.id.String())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if dl, ok := ctx.Deadline(); ok {
			_ = c.nc.SetReadDeadline(dl)
		}

		line, err := c.readLine()
		if err != nil {
			return
		}
		if line == nil {
			continue
		}

		start := time.Now()
		cont := c.dispatch(ctx, line)
		if c.stats != nil {
			if time.Since(start) > c.slowThreshold {
				c.stats.AddSlowCmd()
				if c.log != nil {
					c.log.Warning("slow command", nil, c.id.String(), c.remote)
				}
			}
		}
		if !cont {
			return
		}
	}
}

// slowCommandThreshold is the default cmd_slow threshold (the daemon's
// SLOW_CMD_TIME), used when Options.SlowThreshold is left unset.
const slowCommandThreshold = 100 * time.Millisecond

// readLine returns one line with its terminator stripped, tolerating a bare
// "\n" the same way the source's try_read_command does for clients that
// skip the "\r". A nil, nil result means no line was available this pass
// (never actually reached with a blocking bufio.Reader, but kept so the
// read loop has a single place to extend with partial-read handling).
func (c *Conn) readLine() ([]byte, error) {
	raw, err := c.rd.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	raw = raw[:len(raw)-1]
	if n := len(raw); n > 0 && raw[n-1] == '\r' {
		raw = raw[:n-1]
	}
	return raw, nil
}

// readBody reads the data chunk of a set/append command (n bytes plus its
// terminating CRLF) straight into an item.Item allocated up front via
// item.Alloc, the NRead state in the source: the payload area is sized and
// owned by the Item from the first read, rather than copied into it later.
func (c *Conn) readBody(key []byte, flag, ver uint32, n int) (*item.Item, error) {
	it := item.Alloc(key, flag, ver, n+2)
	if _, err := readFull(c.rd, it.Data); err != nil {
		return nil, err
	}
	return it, nil
}

func readFull(rd *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		m, err := rd.Read(buf[total:])
		total += m
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// dispatch parses and executes one line, writing its reply. It returns
// false when the connection should close (quit, or an unrecoverable write
// error), true otherwise.
func (c *Conn) dispatch(ctx context.Context, line []byte) bool {
	cmd, perr := protocol.ParseLine(line)
	if perr != nil {
		return c.writeReply(perr.Line)
	}

	switch cmd.Kind {
	case protocol.Get:
		return c.handleGet(cmd)
	case protocol.Set:
		return c.handleStore(cmd, false)
	case protocol.Append:
		return c.handleStore(cmd, true)
	case protocol.Incr:
		return c.handleIncr(cmd)
	case protocol.Delete:
		return c.handleDelete(cmd)
	case protocol.Stats:
		return c.handleStats(cmd)
	case protocol.FlushAll:
		return c.handleFlushAll(ctx, cmd)
	case protocol.Verbosity:
		return c.handleVerbosity(cmd)
	case protocol.Version:
		return c.handleVersion(cmd)
	case protocol.Quit:
		return false
	case protocol.OptimizeStat:
		return c.handleOptimizeStat(cmd)
	case protocol.StopMe:
		return c.handleStopMe(cmd)
	default:
		return c.writeReply(protocol.ErrUnknownCommand.Line)
	}
}

// writeReply writes a single CRLF-terminated line and reports whether the
// connection should stay open.
func (c *Conn) writeReply(line string) bool {
	if _, err := c.nc.Write([]byte(line + "\r\n")); err != nil {
		return false
	}
	if c.stats != nil {
		c.stats.AddBytesWritten(len(line) + 2)
	}
	return true
}
