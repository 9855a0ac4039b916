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

// Package server owns the listener accept loop, the bounded worker pool
// that runs each connection, the periodic flush worker, and graceful
// shutdown — the daemon-lifecycle shape httpserver/server.go uses (an
// atomic running flag, a cancel func, Listen/Shutdown/WaitNotify/IsRunning),
// generalized from one HTTP listener to beansdb's accept-loop-plus-worker-
// pool-plus-flush-worker trio.
package server

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	liberr "github.com/nabbar/golib/errors"
	"github.com/nabbar/golib/logger"

	"github.com/beansdb-io/beansdb/conn"
	"github.com/beansdb-io/beansdb/config"
	"github.com/beansdb-io/beansdb/stats"
	"github.com/beansdb-io/beansdb/store"
)

const shutdownTimeout = 10 * time.Second

// Server is the daemon's process lifecycle: a TCP listener feeding a
// semaphore-bounded pool of connection goroutines, plus a background flush
// worker, torn down together on Shutdown.
type Server interface {
	IsRunning() bool
	Listen() liberr.Error
	Shutdown()
	WaitNotify()
}

type server struct {
	cfg   *config.Config
	store store.Store
	stats *stats.Counters
	log   logger.Logger

	ln  net.Listener
	run atomic.Value
	cnl context.CancelFunc

	stub *os.File // reserved fd, see emfile.go
}

// New builds a Server bound to cfg, serving from st and reporting into
// counters. log may be nil, matching the rest of the pack's optional
// constructor-injected logger convention.
func New(cfg *config.Config, st store.Store, counters *stats.Counters, log logger.Logger) Server {
	return &server{cfg: cfg, store: st, stats: counters, log: log}
}

func (s *server) IsRunning() bool {
	b, ok := s.run.Load().(bool)
	return ok && b
}

func (s *server) setRunning(v bool) { s.run.Store(v) }

// Listen binds the configured address, reserves the EMFILE safety-valve fd,
// and starts the accept loop, the worker pool, and the flush worker in the
// background. It returns once the listener is bound; callers that want to
// block until shutdown should follow with WaitNotify.
func (s *server) Listen() liberr.Error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return ErrorListen.Error(err)
	}
	s.ln = ln

	if cur, max, rErr := openFileLimit(); rErr == nil && s.log != nil {
		s.log.Info("open file limit", nil, cur, max)
	}

	stub, err := reserveStubFD()
	if err != nil && s.log != nil {
		s.log.Warning("could not reserve EMFILE stand-by descriptor", err)
	}
	s.stub = stub

	ctx, cancel := context.WithCancel(context.Background())
	s.cnl = cancel

	grp, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(s.cfg.Threads))

	grp.Go(func() error { return s.acceptLoop(gctx, sem) })
	grp.Go(func() error { return s.flushLoop(gctx) })

	s.setRunning(true)

	go func() {
		_ = grp.Wait()
		s.setRunning(false)
	}()

	if s.log != nil {
		s.log.Info("beansdb listening", nil, s.cfg.Listen)
	}
	return nil
}

// acceptLoop accepts connections and dispatches each to its own goroutine,
// gated by sem so no more than cfg.Threads run concurrently — the pack's
// idiomatic substitute for the source's fixed N-thread libevent pool. When
// an EMFILE-class accept error is seen, the stand-by descriptor is freed to let the kernel hand out one more fd long
// enough to accept-and-close the excess connection (see emfile.go).
func (s *server) acceptLoop(ctx context.Context, sem *semaphore.Weighted) error {
	defer func() { _ = s.ln.Close() }()

	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isEMFILE(err) {
				s.shedOneConnection()
				continue
			}
			return err
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			_ = nc.Close()
			return nil
		}

		go func() {
			defer sem.Release(1)
			c := conn.New(nc, conn.Options{
				Store:         s.store,
				Stats:         s.stats,
				Log:           s.log,
				SlowThreshold: s.cfg.SlowCommandThreshold(),
				StopMeEnabled: s.cfg.StopMeEnabled,
				Shutdown:      s.Shutdown,
			})
			c.Serve(ctx)
		}()
	}
}

// flushLoop runs Store.Flush once per FlushPeriod until ctx is cancelled,
// the goroutine equivalent of the daemon's dedicated flush thread.
func (s *server) flushLoop(ctx context.Context) error {
	period := s.cfg.FlushPeriod
	if period <= 0 {
		period = time.Second
	}

	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := s.store.Flush(ctx, s.cfg.FlushLimitKB); err != nil && s.log != nil {
				s.log.Warning("periodic flush failed", err)
			}
		}
	}
}

// Shutdown cancels the accept loop and flush worker, waits up to
// shutdownTimeout for both to return, then closes the store, mirroring
// httpserver.Shutdown's context.WithTimeout pattern. Connection goroutines
// are not waited for: one blocked reading from its client keeps running
// after the store is closed, until that client sends a line or disconnects.
func (s *server) Shutdown() {
	if s.log != nil {
		s.log.Info("beansdb shutting down", nil)
	}

	if s.cnl != nil {
		s.cnl()
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
	if s.stub != nil {
		_ = s.stub.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	deadline := time.NewTimer(shutdownTimeout)
	defer deadline.Stop()
	for s.IsRunning() {
		select {
		case <-ctx.Done():
			break
		case <-time.After(20 * time.Millisecond):
			continue
		}
		break
	}

	if err := s.store.Close(); err != nil && s.log != nil {
		s.log.Error("error closing store", err)
	}
}

// WaitNotify blocks until SIGINT/SIGTERM/SIGQUIT, then shuts the server
// down, the same signal set httpserver.WaitNotify listens for.
func (s *server) WaitNotify() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	s.Shutdown()
}
