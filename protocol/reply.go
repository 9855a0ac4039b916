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

package protocol

// ReplyError is a protocol-level failure that becomes a single wire reply
// line rather than a Go error a caller would branch on. §7 of the spec
// keeps this family deliberately lightweight: the connection stays open and
// the handler just writes Line back, so wrapping it in the heavier
// github.com/nabbar/golib/errors machinery (stack traces, parent chains)
// would add nothing a caller could use.
type ReplyError struct {
	Line string
}

func (e *ReplyError) Error() string { return e.Line }

func ClientError(msg string) *ReplyError {
	return &ReplyError{Line: "CLIENT_ERROR " + msg}
}

func ServerError(msg string) *ReplyError {
	return &ReplyError{Line: "SERVER_ERROR " + msg}
}

var (
	ErrBadFormat      = ClientError("bad command line format")
	ErrBadDelta       = ClientError("invalid numeric delta argument")
	ErrBadDataChunk   = ClientError("bad data chunk")
	ErrUnknownCommand = &ReplyError{Line: "ERROR"}
)
