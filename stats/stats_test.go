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

package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters_ConnLifecycle(t *testing.T) {
	c := New()
	c.ConnOpened()
	c.ConnOpened()
	c.ConnClosed()

	s := c.Snapshot()
	assert.Equal(t, int64(1), s.CurrConns)
	assert.Equal(t, int64(2), s.TotalConns)
}

func TestCounters_GetHitsAndMisses(t *testing.T) {
	c := New()
	c.AddGetCmd(true)
	c.AddGetCmd(true)
	c.AddGetCmd(false)

	s := c.Snapshot()
	assert.Equal(t, int64(3), s.GetCmds)
	assert.Equal(t, int64(2), s.GetHits)
	assert.Equal(t, int64(1), s.GetMisses)
}

func TestCounters_Reset(t *testing.T) {
	c := New()
	c.AddGetCmd(true)
	c.AddSetCmd()
	c.ConnOpened()

	c.Reset()

	s := c.Snapshot()
	assert.Equal(t, int64(0), s.GetCmds)
	assert.Equal(t, int64(0), s.SetCmds)
	assert.Equal(t, int64(1), s.CurrConns, "conn counts survive a stats reset")
}

func TestCounters_BytesAccounting(t *testing.T) {
	c := New()
	c.AddBytesRead(10)
	c.AddBytesWritten(20)

	s := c.Snapshot()
	assert.Equal(t, int64(10), s.BytesRead)
	assert.Equal(t, int64(20), s.BytesWritten)
}
