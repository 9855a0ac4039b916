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

package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_SuffixAndValue(t *testing.T) {
	it := New([]byte("k"), 42, 1, []byte("hello"))

	assert.Equal(t, 5, it.NBytes())
	assert.Equal(t, "hello", string(it.Value()))
	assert.Equal(t, " 42 5\r\n", string(it.Suffix))
	assert.True(t, it.HasTrailingCRLF())
}

func TestAlloc_SuffixReflectsReservedLength(t *testing.T) {
	it := Alloc([]byte("k"), 7, 0, 12) // 10 bytes of payload + CRLF
	assert.Equal(t, 10, it.NBytes())
	assert.Equal(t, " 7 10\r\n", string(it.Suffix))
}

func TestHasTrailingCRLF_Malformed(t *testing.T) {
	it := &Item{Data: []byte("hello")}
	assert.False(t, it.HasTrailingCRLF())
}

func TestNBytes_TooShort(t *testing.T) {
	it := &Item{Data: []byte("\r")}
	assert.Equal(t, 0, it.NBytes())
}
