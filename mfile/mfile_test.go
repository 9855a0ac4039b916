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

package mfile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveRelease_TracksUsage(t *testing.T) {
	a := New(1000)

	require.Nil(t, a.Reserve(context.Background(), 400))
	used, budget := a.Stat()
	assert.Equal(t, int64(400), used)
	assert.Equal(t, int64(1000), budget)

	a.Release(400)
	used, _ = a.Stat()
	assert.Equal(t, int64(0), used)
}

func TestReserve_SmallRequestFailsFastOverBudget(t *testing.T) {
	a := New(100)
	require.Nil(t, a.Reserve(context.Background(), 100))

	err := a.Reserve(context.Background(), 1)
	assert.Equal(t, ErrBudgetExceeded, err)
}

func TestReserve_BulkRequestRetriesUntilSpaceFreed(t *testing.T) {
	a := NewWithRetryInterval(BulkThreshold, 20*time.Millisecond)
	require.Nil(t, a.Reserve(context.Background(), BulkThreshold/2))

	go func() {
		time.Sleep(60 * time.Millisecond)
		a.Release(BulkThreshold / 2)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := a.Reserve(ctx, BulkThreshold)
	assert.Nil(t, err)
}

func TestReserve_BulkRequestAbortsOnContextCancel(t *testing.T) {
	a := NewWithRetryInterval(BulkThreshold, 20*time.Millisecond)
	require.Nil(t, a.Reserve(context.Background(), BulkThreshold/2))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := a.Reserve(ctx, BulkThreshold)
	assert.NotNil(t, err)
}

func TestNew_DefaultsWhenBudgetNonPositive(t *testing.T) {
	a := New(0)
	_, budget := a.Stat()
	assert.Equal(t, int64(Budget), budget)
}

func TestNew_UsesDefaultRetryInterval(t *testing.T) {
	a := New(BulkThreshold)
	assert.Equal(t, DefaultRetryInterval, a.retryInterval)
}
