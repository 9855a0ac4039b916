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

package store

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/nabbar/golib/errors"

	"github.com/beansdb-io/beansdb/item"
)

// memEngine is a minimal, thread-safe Store backed by an in-process map.
// It stands in for the hash-tree/bitcask engine the request core treats as
// opaque (§1 of the spec carves the real engine out of scope); every
// operation the request core needs is preserved faithfully, including the
// optimize/optimize_stat handshake and the read-only/busy status codes.
type memEngine struct {
	mu   sync.RWMutex
	data map[string]*item.Item

	totalEver int64 // every Set/Append that created a new key

	optimizing int32 // -1 idle+success, -2 idle+failed bucket, >=0 bucket in progress
	readOnly   int32
}

// Open builds an in-memory Store. cfg.HomeDirs must not be empty, matching
// the external engine's requirement for at least one dirtree root.
func Open(cfg Config) (Store, errors.Error) {
	if len(cfg.HomeDirs) == 0 {
		return nil, ErrorHomeDirsEmpty.Error(nil)
	}

	return &memEngine{
		data:       make(map[string]*item.Item),
		optimizing: -1,
	}, nil
}

func (m *memEngine) Get(key []byte) (*item.Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.data[string(key)]
	return it, ok
}

func (m *memEngine) Set(key []byte, value []byte, flag, ver uint32) Status {
	if atomic.LoadInt32(&m.readOnly) == 1 {
		return NotStored
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, existed := m.data[string(key)]; !existed {
		m.totalEver++
	}
	m.data[string(key)] = item.New(key, flag, ver, value)
	return Stored
}

func (m *memEngine) Append(key []byte, value []byte) Status {
	if atomic.LoadInt32(&m.readOnly) == 1 {
		return NotStored
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.data[string(key)]
	if !ok {
		return NotStored
	}

	merged := append(append([]byte(nil), cur.Value()...), value...)
	m.data[string(key)] = item.New(key, cur.Flag, cur.Ver, merged)
	return Stored
}

func (m *memEngine) Incr(key []byte, delta uint64) (uint64, IncrStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.data[string(key)]
	if !ok {
		return 0, IncrNotFound
	}

	n, err := strconv.ParseUint(string(cur.Value()), 10, 64)
	if err != nil {
		return 0, IncrNonNumeric
	}

	n += delta
	m.data[string(key)] = item.New(key, cur.Flag, cur.Ver, []byte(strconv.FormatUint(n, 10)))
	return n, IncrOK
}

func (m *memEngine) Delete(key []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[string(key)]; !ok {
		return false
	}
	delete(m.data, string(key))
	return true
}

func (m *memEngine) Count() (total, curr int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.totalEver, int64(len(m.data))
}

func (m *memEngine) Stat() (totalBytes, availBytes int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, it := range m.data {
		n += int64(len(it.Data)) + int64(len(it.Key))
	}
	return n, 0
}

func (m *memEngine) Optimize(limit, tree int) OptimizeResult {
	if atomic.LoadInt32(&m.readOnly) == 1 {
		return OptimizeReadOnly
	}
	if limit < 0 || tree < 0 {
		return OptimizeBadArg
	}
	if !atomic.CompareAndSwapInt32(&m.optimizing, -1, int32(tree)) &&
		!atomic.CompareAndSwapInt32(&m.optimizing, -2, int32(tree)) {
		return OptimizeRunning
	}

	// the real engine compacts bitcask segments in the background; the
	// in-memory stand-in has nothing to compact, so it completes inline.
	atomic.StoreInt32(&m.optimizing, -1)
	return OptimizeOK
}

func (m *memEngine) OptimizeStat() int32 {
	return atomic.LoadInt32(&m.optimizing)
}

func (m *memEngine) Flush(ctx context.Context, limitKB int) error {
	// nothing to fsync for the in-memory stand-in; real engines sync their
	// open segment files here, bounded by limitKB per pass.
	return ctx.Err()
}

func (m *memEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	return nil
}
