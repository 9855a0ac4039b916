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

// Package item defines the record that is passed between the store adapter
// and the connection state machine while a get/set/append reply is being
// assembled.
package item

import "fmt"

// Item is the in-memory record owned transiently by a connection. Its Data
// slice always ends in the trailing CRLF so it can be handed directly to a
// scatter/gather write without further copies, and Suffix precomputes the
// " <flag> <len>\r\n" header used on the hot get path so building a VALUE
// reply never needs extra formatting.
type Item struct {
	Key    []byte
	Flag   uint32
	Ver    uint32
	Data   []byte // payload followed by "\r\n"
	Suffix []byte
}

// NBytes returns the payload length excluding the trailing CRLF.
func (it *Item) NBytes() int {
	if len(it.Data) < 2 {
		return 0
	}
	return len(it.Data) - 2
}

// New builds an Item from a key and a value payload (without CRLF), caching
// the suffix header used by the get response path.
func New(key []byte, flag, ver uint32, value []byte) *Item {
	it := &Item{
		Key:  append([]byte(nil), key...),
		Flag: flag,
		Ver:  ver,
		Data: make([]byte, len(value)+2),
	}
	copy(it.Data, value)
	it.Data[len(value)] = '\r'
	it.Data[len(value)+1] = '\n'
	it.buildSuffix()
	return it
}

// Alloc reserves a payload area of nbytes (including the trailing CRLF) so a
// set/append handler can stream the socket body straight into it via NRead.
func Alloc(key []byte, flag, ver uint32, nbytes int) *Item {
	it := &Item{
		Key:  append([]byte(nil), key...),
		Flag: flag,
		Ver:  ver,
		Data: make([]byte, nbytes),
	}
	it.buildSuffix()
	return it
}

func (it *Item) buildSuffix() {
	it.Suffix = []byte(fmt.Sprintf(" %d %d\r\n", it.Flag, it.NBytes()))
}

// HasTrailingCRLF reports whether the last two payload bytes are CRLF, the
// framing check performed once the NRead body has been fully read.
func (it *Item) HasTrailingCRLF() bool {
	if len(it.Data) < 2 {
		return false
	}
	n := len(it.Data)
	return it.Data[n-2] == '\r' && it.Data[n-1] == '\n'
}

// Value returns the payload without its trailing CRLF.
func (it *Item) Value() []byte {
	if len(it.Data) < 2 {
		return nil
	}
	return it.Data[:len(it.Data)-2]
}
