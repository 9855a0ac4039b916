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

package server

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// reserveStubFD pre-opens a single throwaway descriptor the way the source
// keeps one fd in reserve for the EMFILE safety valve: when the process hits
// its file descriptor ceiling mid-accept, closing this fd briefly frees one
// slot so the kernel can hand out an fd long enough to accept and
// immediately close the excess connection, shedding load instead of
// spinning on a hard accept-error loop. Grounded on the rlimit query in
// ioutils/fileDescriptor/fileDescriptor_ok.go.
func reserveStubFD() (*os.File, error) {
	return os.Open(os.DevNull)
}

// openFileLimit reports the process's current RLIMIT_NOFILE soft and hard
// limits, logged once at startup so an operator can see how close the
// configured MaxConns is to the kernel ceiling that triggers the EMFILE
// safety valve.
func openFileLimit() (cur, max uint64, err error) {
	var rl unix.Rlimit
	if err = unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, 0, err
	}
	return rl.Cur, rl.Max, nil
}

// shedOneConnection frees the reserved descriptor, accepts and immediately
// closes one pending connection, then reopens the reserve so the next
// EMFILE spike can be absorbed the same way.
func (s *server) shedOneConnection() {
	if s.stub == nil {
		return
	}

	_ = s.stub.Close()
	s.stub = nil

	if nc, err := s.ln.Accept(); err == nil {
		_ = nc.Close()
	}

	if f, err := reserveStubFD(); err == nil {
		s.stub = f
	}
}

// isEMFILE reports whether err is the kernel's "too many open files"
// signal, the condition the stand-by descriptor exists to absorb.
func isEMFILE(err error) bool {
	return errors.Is(err, syscall.EMFILE)
}
