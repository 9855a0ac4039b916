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

package conn

import (
	"context"
	"fmt"
	"net"

	"github.com/beansdb-io/beansdb/protocol"
	"github.com/beansdb-io/beansdb/store"
)

// handleGet writes one VALUE block per hit followed by END, using
// net.Buffers so the kernel gets one writev-equivalent call per response
// group instead of one syscall per key. The first group is written as soon
// as it holds maxPayloadSize bytes or more; it is made of whole VALUE
// blocks, so it can run past maxPayloadSize by up to one block, and a block
// larger than maxPayloadSize is not split. Every later key and the END line
// go out together in one final group with no size bound.
func (c *Conn) handleGet(cmd *protocol.Command) bool {
	var bufs net.Buffers
	first := true
	size := 0

	flush := func() bool {
		if len(bufs) == 0 {
			return true
		}
		n, err := bufs.WriteTo(c.nc)
		if c.stats != nil {
			c.stats.AddBytesWritten(int(n))
		}
		bufs = nil
		size = 0
		return err == nil
	}

	for _, key := range cmd.Keys {
		it, ok := c.store.Get(key)
		if c.stats != nil {
			c.stats.AddGetCmd(ok)
		}
		if !ok {
			continue
		}

		header := []byte(fmt.Sprintf("VALUE %s", key))
		bufs = append(bufs, header, it.Suffix, it.Data)
		size += len(header) + len(it.Suffix) + len(it.Data)

		if first && size >= maxPayloadSize {
			if !flush() {
				return false
			}
			first = false
		}
	}

	bufs = append(bufs, []byte("END\r\n"))
	return flush()
}

// handleStore reads the data chunk via NRead and applies it through the
// store, matching set/append's shared framing in §4.4. A malformed
// trailing CRLF still consumes the body (so the connection does not
// desync) but replies CLIENT_ERROR instead of committing the write.
func (c *Conn) handleStore(cmd *protocol.Command, isAppend bool) bool {
	it, err := c.readBody(cmd.Key, cmd.Flag, cmd.Ver, cmd.VLen)
	if err != nil {
		return false
	}

	if !it.HasTrailingCRLF() {
		if cmd.Noreply {
			return true
		}
		return c.writeReply(protocol.ErrBadDataChunk.Line)
	}

	value := it.Value()
	body := it.Data

	var res store.Status
	if isAppend {
		res = c.store.Append(cmd.Key, value)
	} else {
		res = c.store.Set(cmd.Key, value, cmd.Flag, cmd.Ver)
	}

	var status string
	switch res {
	case store.Stored:
		status = "STORED"
	case store.Exists:
		status = "EXISTS"
	case store.NotFound:
		status = "NOT_FOUND"
	default:
		status = "NOT_STORED"
	}

	if c.stats != nil {
		c.stats.AddSetCmd()
		c.stats.AddBytesRead(len(body))
	}

	if cmd.Noreply {
		return true
	}
	return c.writeReply(status)
}

func (c *Conn) handleIncr(cmd *protocol.Command) bool {
	n, status := c.store.Incr(cmd.Key, cmd.Delta)
	if cmd.Noreply {
		return true
	}
	switch status {
	case store.IncrNotFound:
		return c.writeReply("NOT_FOUND")
	case store.IncrNonNumeric:
		return c.writeReply("CLIENT_ERROR cannot increment or decrement non-numeric value")
	default:
		return c.writeReply(fmt.Sprintf("%d", n))
	}
}

func (c *Conn) handleDelete(cmd *protocol.Command) bool {
	ok := c.store.Delete(cmd.Key)
	if c.stats != nil {
		c.stats.AddDeleteCmd()
	}
	if cmd.Noreply {
		return true
	}
	if ok {
		return c.writeReply("DELETED")
	}
	return c.writeReply("NOT_FOUND")
}

func (c *Conn) handleStats(cmd *protocol.Command) bool {
	if cmd.StatsReset {
		if c.stats != nil {
			c.stats.Reset()
		}
		return c.writeReply("RESET")
	}

	if c.stats == nil {
		return c.writeReply("END")
	}

	s := c.stats.Snapshot()
	lines := []string{
		fmt.Sprintf("STAT curr_connections %d", s.CurrConns),
		fmt.Sprintf("STAT total_connections %d", s.TotalConns),
		fmt.Sprintf("STAT cmd_get %d", s.GetCmds),
		fmt.Sprintf("STAT cmd_set %d", s.SetCmds),
		fmt.Sprintf("STAT cmd_delete %d", s.DeleteCmds),
		fmt.Sprintf("STAT cmd_slow %d", s.SlowCmds),
		fmt.Sprintf("STAT get_hits %d", s.GetHits),
		fmt.Sprintf("STAT get_misses %d", s.GetMisses),
		fmt.Sprintf("STAT bytes_read %d", s.BytesRead),
		fmt.Sprintf("STAT bytes_written %d", s.BytesWritten),
		fmt.Sprintf("STAT uptime %d", int64(s.Uptime.Seconds())),
	}

	total, curr := c.store.Count()
	lines = append(lines,
		fmt.Sprintf("STAT total_items %d", total),
		fmt.Sprintf("STAT curr_items %d", curr),
	)

	totalBytes, availBytes := c.store.Stat()
	lines = append(lines,
		fmt.Sprintf("STAT bytes %d", totalBytes),
		fmt.Sprintf("STAT bytes_avail %d", availBytes),
		"END",
	)

	for _, l := range lines {
		if !c.writeReply(l) {
			return false
		}
	}
	return true
}

// handleFlushAll maps flush_all's optional limit/tree arguments onto
// Store.Optimize, the compaction handshake described in §4.5/§4.6 — not
// the periodic flush worker's Store.Flush, which is a separate, unrelated
// contract (§4.7) driven by the server's own ticker, never by a client.
func (c *Conn) handleFlushAll(ctx context.Context, cmd *protocol.Command) bool {
	limit := 0
	if cmd.FlushSet {
		limit = cmd.FlushLimit
	}

	result := c.store.Optimize(limit, cmd.FlushTree)
	if cmd.Noreply {
		return true
	}

	switch result {
	case store.OptimizeOK:
		return c.writeReply("OK")
	case store.OptimizeReadOnly:
		return c.writeReply("ERROR READ_ONLY")
	case store.OptimizeRunning:
		return c.writeReply("ERROR OPTIMIZE_RUNNING")
	default:
		return c.writeReply("CLIENT_ERROR bad command line format")
	}
}

func (c *Conn) handleVerbosity(cmd *protocol.Command) bool {
	if c.log != nil {
		c.log.Info("verbosity changed", nil, cmd.VerbosityLevel)
	}
	if cmd.Noreply {
		return true
	}
	return c.writeReply("OK")
}

func (c *Conn) handleVersion(cmd *protocol.Command) bool {
	return c.writeReply("VERSION " + Version)
}

func (c *Conn) handleOptimizeStat(cmd *protocol.Command) bool {
	return c.writeReply(fmt.Sprintf("%d", c.store.OptimizeStat()))
}

// handleStopMe implements stopme only when the daemon was started with the
// guard flag on (§4.4: "stopme only when guarded flag is on"). When
// accepted it does what the source's stopme does — sets daemon_quit and
// brings the whole process down, not just this connection — by invoking
// the server's Shutdown in the background so the OK reply still reaches
// the client before the listener closes.
func (c *Conn) handleStopMe(cmd *protocol.Command) bool {
	if !c.stopMeEnabled {
		return c.writeReply(protocol.ErrUnknownCommand.Line)
	}

	c.writeReply("OK")
	if c.shutdown != nil {
		go c.shutdown()
	}
	return false
}

// Version is the daemon's self-reported protocol version string.
const Version = "1.0.0"
