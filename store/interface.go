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

// Package store defines the facade the request core consumes from the
// external storage engine (hash-tree directory, bitcask segments, hint
// files, compaction). The engine itself is out of scope; this package only
// specifies the surface and ships an in-memory implementation sufficient to
// drive the request core end to end.
package store

import (
	"context"

	"github.com/beansdb-io/beansdb/item"
)

// Status is the result of a mutating command.
type Status int

const (
	Stored Status = iota
	Exists
	NotFound
	NotStored
)

// IncrStatus is the outcome of an Incr call. The source's add_delta always
// returned 0 with dead NON_NUMERIC/EOM branches that never actually ran;
// here they are live: a non-numeric stored value is reported distinctly
// from a missing key so the connection can reply CLIENT_ERROR instead of
// NOT_FOUND.
type IncrStatus int

const (
	IncrOK IncrStatus = iota
	IncrNotFound
	IncrNonNumeric
)

// OptimizeResult is the result of a flush_all-triggered compaction request.
type OptimizeResult int

const (
	OptimizeOK OptimizeResult = iota
	OptimizeReadOnly
	OptimizeRunning
	OptimizeBadArg
)

// Store is the facade the connection state machine and command handlers
// call into. Implementations must be safe for concurrent use by many
// connection goroutines: the request core never holds a lock across a call
// into Store.
type Store interface {
	// Get returns the item for key, or ok=false on a miss.
	Get(key []byte) (it *item.Item, ok bool)

	// Set stores value under key with the given flag and version,
	// replacing any prior value.
	Set(key []byte, value []byte, flag, ver uint32) Status

	// Append concatenates value onto the existing value for key. Returns
	// NotStored if key does not exist.
	Append(key []byte, value []byte) Status

	// Incr adds delta to the integer value stored under key, returning the
	// new value and whether the key existed and held a numeric value.
	Incr(key []byte, delta uint64) (newValue uint64, status IncrStatus)

	// Delete removes key, reporting whether it existed.
	Delete(key []byte) bool

	// Count returns the total number of keys ever stored and the number
	// currently live.
	Count() (total, curr int64)

	// Stat returns total and available bytes on the storage backing.
	Stat() (totalBytes, availBytes int64)

	// Optimize triggers (or reports on) a compaction pass bounded by limit
	// items per bucket, restricted to the given dirtree height ("tree"); a
	// tree of 0 means every bucket.
	Optimize(limit, tree int) OptimizeResult

	// OptimizeStat reports -1 when the last optimize succeeded, -2 when it
	// failed, or the id of the bucket currently being compacted.
	OptimizeStat() int32

	// Flush runs one periodic flush pass, limited to limitKB written per
	// invocation. It takes no period: the caller controls the interval
	// between calls, per §4.7 of the flush worker design.
	Flush(ctx context.Context, limitKB int) error

	// Close releases every resource backing the store.
	Close() error
}

// Config describes how to open a Store, mirroring Store::open(home_dirs,
// height, before_time, nthreads) from the external engine's contract.
type Config struct {
	HomeDirs   []string
	Height     int
	BeforeTime int64
	NThreads   int
}
