// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logio is the module's async logging back-end: a single
// writer goroutine drains a mutex-protected FIFO of formatted-line
// records and schedules a bounded number of concurrent writes, one
// goroutine per write standing in for native per-fd asynchronous I/O.
//
// The producer queue is a pkg/heap.Heap[*record] keyed by a
// monotonically increasing sequence number rather than a plain slice
// or channel -- DeleteMin always yields the oldest enqueued record,
// giving FIFO drain order while reusing the container this module
// already specifies instead of introducing a second one.
package logio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/vencik/ctxkit/pkg/heap"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Emit after the backend has been shut down.
var ErrClosed = errors.New("ctxkit/logio: backend is closed")

// inFlightLimit bounds the number of concurrent asynchronous writes
// in flight at once, standing in for a fixed-size native AIO
// control-block ring.
const inFlightLimit = 64

const (
	stdoutPath = "/dev/stdout"
	stderrPath = "/dev/stderr"
)

type record struct {
	seq    uint64
	target string
	buf    *bytes.Buffer
	poison bool
}

func recordLess(a, b *record) bool { return a.seq < b.seq }

// Backend owns the write queue, the writer goroutine and the set of
// open log files. Construct with NewBackend; stop with Shutdown.
type Backend struct {
	mu      sync.Mutex
	cond    *sync.Cond
	q       *heap.Heap[*record]
	nextSeq uint64
	closed  bool

	sem      *semaphore.Weighted
	inFlight sync.WaitGroup

	filesMu sync.Mutex
	files   map[string]*os.File

	linePool sync.Pool

	inFlight64 int64 // atomic: writes currently dispatched, for metrics

	// OnFatal is invoked from the writer goroutine when a write fails.
	// The default aborts the process, treating I/O errors as fatal;
	// tests may override it to observe the error instead of exiting.
	OnFatal func(err error)

	writerDone chan struct{}
}

// NewBackend starts the writer goroutine and returns a ready Backend.
func NewBackend() *Backend {
	b := &Backend{
		q:          heap.New[*record](recordLess),
		sem:        semaphore.NewWeighted(inFlightLimit),
		files:      make(map[string]*os.File),
		writerDone: make(chan struct{}),
		OnFatal: func(err error) {
			fmt.Fprintf(os.Stderr, "ctxkit/logio: fatal write error: %v\n", err)
			os.Exit(1)
		},
	}
	b.cond = sync.NewCond(&b.mu)
	b.linePool.New = func() any { return new(bytes.Buffer) }
	go b.writerLoop()
	return b
}

func (b *Backend) getLineBuffer() *bytes.Buffer {
	return b.linePool.Get().(*bytes.Buffer)
}

func (b *Backend) putLineBuffer(buf *bytes.Buffer) {
	buf.Reset()
	b.linePool.Put(buf)
}

// enqueue appends a record to the FIFO and wakes the writer.
func (b *Backend) enqueue(target string, buf *bytes.Buffer, poison bool) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	r := &record{seq: b.nextSeq, target: target, buf: buf, poison: poison}
	b.nextSeq++
	if poison {
		b.closed = true
	}
	b.q.Add(r)
	b.mu.Unlock()
	b.cond.Signal()
	return nil
}

// QueueDepth reports the number of records currently waiting to be
// picked up by the writer goroutine.
func (b *Backend) QueueDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.q.Len()
}

// InFlight reports the number of writes currently dispatched to the
// bounded goroutine ring.
func (b *Backend) InFlight() int64 {
	return atomic.LoadInt64(&b.inFlight64)
}

// Shutdown enqueues the poison record (fd=-1 in spec terms), waits
// for the writer to drain every outstanding write, and closes every
// file this backend opened -- stdout/stderr aliases are never closed.
func (b *Backend) Shutdown() {
	_ = b.enqueue("", nil, true)
	<-b.writerDone

	b.filesMu.Lock()
	for path, f := range b.files {
		if path == stdoutPath || path == stderrPath {
			continue
		}
		f.Close()
	}
	b.filesMu.Unlock()
}

func (b *Backend) writerLoop() {
	defer close(b.writerDone)
	for {
		b.mu.Lock()
		for b.q.Len() == 0 {
			b.cond.Wait()
		}
		r, _ := b.q.DeleteMin()
		b.mu.Unlock()

		if r.poison {
			b.inFlight.Wait()
			return
		}

		if err := b.sem.Acquire(context.Background(), 1); err != nil {
			// Only returns non-nil if the context is canceled; this
			// backend never cancels its own background context.
			continue
		}
		b.inFlight.Add(1)
		atomic.AddInt64(&b.inFlight64, 1)
		go b.write(r)
	}
}

func (b *Backend) write(r *record) {
	defer b.inFlight.Done()
	defer atomic.AddInt64(&b.inFlight64, -1)
	defer b.sem.Release(1)
	defer b.putLineBuffer(r.buf)

	f, err := b.fileFor(r.target)
	if err != nil {
		b.OnFatal(err)
		return
	}
	if _, err := f.Write(r.buf.Bytes()); err != nil {
		b.OnFatal(err)
	}
}

// fileFor resolves target to an open *os.File, opening it for
// append on first use with owner-rw/group-rw/others-r permissions.
// stdout/stderr aliases are recognized by path string.
func (b *Backend) fileFor(target string) (*os.File, error) {
	switch target {
	case stdoutPath:
		return os.Stdout, nil
	case stderrPath:
		return os.Stderr, nil
	}

	b.filesMu.Lock()
	defer b.filesMu.Unlock()
	if f, ok := b.files[target]; ok {
		return f, nil
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return nil, err
	}
	b.files[target] = f
	return f, nil
}
