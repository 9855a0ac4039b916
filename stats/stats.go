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

// Package stats holds the process-wide counters record shared by every
// connection. Hot fields (bytes in/out, command counts) are plain
// sync/atomic counters; the stats command itself takes a mutex to snapshot
// a consistent view, mirroring the source's STATS_LOCK split between
// read-modify-write and the reporting path.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counters is the process-wide stats record. The zero value is not usable;
// build one with New.
type Counters struct {
	mu sync.Mutex

	currConns   int64
	totalConns  int64
	connStructs int64
	getCmds     int64
	setCmds     int64
	deleteCmds  int64
	slowCmds    int64
	getHits     int64
	getMisses   int64
	bytesRead   int64
	bytesWritten int64

	started time.Time
}

// New returns a Counters record with Started set to now.
func New() *Counters {
	return &Counters{started: time.Now()}
}

func (c *Counters) ConnOpened() {
	atomic.AddInt64(&c.currConns, 1)
	atomic.AddInt64(&c.totalConns, 1)
	atomic.AddInt64(&c.connStructs, 1)
}

func (c *Counters) ConnClosed() {
	atomic.AddInt64(&c.currConns, -1)
}

func (c *Counters) ConnFromFreelist() {
	atomic.AddInt64(&c.connStructs, -1)
}

func (c *Counters) AddGetCmd(hit bool)    { atomic.AddInt64(&c.getCmds, 1); c.addHit(hit) }
func (c *Counters) AddSetCmd()            { atomic.AddInt64(&c.setCmds, 1) }
func (c *Counters) AddDeleteCmd()         { atomic.AddInt64(&c.deleteCmds, 1) }
func (c *Counters) AddSlowCmd()           { atomic.AddInt64(&c.slowCmds, 1) }
func (c *Counters) AddBytesRead(n int)    { atomic.AddInt64(&c.bytesRead, int64(n)) }
func (c *Counters) AddBytesWritten(n int) { atomic.AddInt64(&c.bytesWritten, int64(n)) }

func (c *Counters) addHit(hit bool) {
	if hit {
		atomic.AddInt64(&c.getHits, 1)
	} else {
		atomic.AddInt64(&c.getMisses, 1)
	}
}

// Snapshot is a point-in-time, consistent copy of every counter, used to
// build the reply to the stats command.
type Snapshot struct {
	CurrConns    int64
	TotalConns   int64
	ConnStructs  int64
	GetCmds      int64
	SetCmds      int64
	DeleteCmds   int64
	SlowCmds     int64
	GetHits      int64
	GetMisses    int64
	BytesRead    int64
	BytesWritten int64
	Uptime       time.Duration
	Started      time.Time
}

// Snapshot takes STATS_LOCK-equivalent protection around the read so the
// reply's counters are a consistent view rather than a tear across fields.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		CurrConns:    atomic.LoadInt64(&c.currConns),
		TotalConns:   atomic.LoadInt64(&c.totalConns),
		ConnStructs:  atomic.LoadInt64(&c.connStructs),
		GetCmds:      atomic.LoadInt64(&c.getCmds),
		SetCmds:      atomic.LoadInt64(&c.setCmds),
		DeleteCmds:   atomic.LoadInt64(&c.deleteCmds),
		SlowCmds:     atomic.LoadInt64(&c.slowCmds),
		GetHits:      atomic.LoadInt64(&c.getHits),
		GetMisses:    atomic.LoadInt64(&c.getMisses),
		BytesRead:    atomic.LoadInt64(&c.bytesRead),
		BytesWritten: atomic.LoadInt64(&c.bytesWritten),
		Uptime:       time.Since(c.started),
		Started:      c.started,
	}
}

// Reset zeroes every command/byte counter (used by "stats reset"); conn
// counts are left alone since they reflect the live world, not history.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.getCmds, 0)
	atomic.StoreInt64(&c.setCmds, 0)
	atomic.StoreInt64(&c.deleteCmds, 0)
	atomic.StoreInt64(&c.slowCmds, 0)
	atomic.StoreInt64(&c.getHits, 0)
	atomic.StoreInt64(&c.getMisses, 0)
	atomic.StoreInt64(&c.bytesRead, 0)
	atomic.StoreInt64(&c.bytesWritten, 0)
}
