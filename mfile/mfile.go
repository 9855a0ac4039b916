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

// Package mfile enforces the process-wide mmap byte budget described in
// §4.5b: no more than Budget bytes of data-file mappings may be live at
// once, and a bulk scan opening a mapping of 100 MiB or more must sleep and
// retry rather than push the process over budget. The storage engine itself
// is out of scope (see package store); this package is the accounting gate
// a real engine's segment-file opens would call through, grounded on the
// rlimit-style query/reserve/release pattern in
// ioutils/fileDescriptor's SystemFileDescriptor.
package mfile

import (
	"context"
	"sync"
	"time"
)

const (
	// Budget is the default process-wide mmap ceiling, 4096 MiB.
	Budget = 4096 * 1024 * 1024

	// BulkThreshold is the mapping size at or above which Reserve applies
	// sleep-and-retry backpressure instead of failing immediately.
	BulkThreshold = 100 * 1024 * 1024

	// DefaultRetryInterval is the sleep-and-retry period for bulk
	// reservations blocked on budget, matching §4.5b's "sleeps 5 seconds
	// and retries".
	DefaultRetryInterval = 5 * time.Second
)

// Accountant tracks live mmap bytes against a fixed budget. The zero value
// is not usable; build one with New.
type Accountant struct {
	mu            sync.Mutex
	budget        int64
	used          int64
	retryInterval time.Duration
}

// New builds an Accountant with the given byte budget, retrying bulk
// reservations every DefaultRetryInterval. A budget of 0 uses the package
// default.
func New(budget int64) *Accountant {
	return NewWithRetryInterval(budget, DefaultRetryInterval)
}

// NewWithRetryInterval builds an Accountant like New but with an explicit
// retry period, letting tests exercise the sleep-and-retry path without
// waiting the full production interval.
func NewWithRetryInterval(budget int64, retryInterval time.Duration) *Accountant {
	if budget <= 0 {
		budget = Budget
	}
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	return &Accountant{budget: budget, retryInterval: retryInterval}
}

// Reserve accounts for n bytes when they fit under the budget. When they do
// not, a request below BulkThreshold returns ErrBudgetExceeded at once, and
// a request at or above BulkThreshold sleeps the retry interval and tries
// again until it fits; ctx cancellation aborts that wait.
func (a *Accountant) Reserve(ctx context.Context, n int64) error {
	for {
		if a.tryReserve(n) {
			return nil
		}

		if n < BulkThreshold {
			// small mappings are rare enough in practice that the caller
			// is expected to fail fast rather than wait; see Stat's used
			// ratio to decide whether to retry at the call site.
			return ErrBudgetExceeded
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.retryInterval):
		}
	}
}

func (a *Accountant) tryReserve(n int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.used+n > a.budget {
		return false
	}
	a.used += n
	return true
}

// Release returns n bytes to the budget, called when a mapping is unmapped.
func (a *Accountant) Release(n int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.used -= n
	if a.used < 0 {
		a.used = 0
	}
}

// Stat reports the current usage against the configured budget.
func (a *Accountant) Stat() (used, budget int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.used, a.budget
}
