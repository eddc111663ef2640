package sd

import (
	"bytes"
	"io"
	"sync"
)

// Feed is a source for interactive sessions. Reads block while no text is
// available and end with io.EOF only after Close.
type Feed struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
	idle   chan struct{}
}

func NewFeed() *Feed {
	f := &Feed{idle: make(chan struct{}, 1)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Feed appends text for the reading side.
func (f *Feed) Feed(text string) {
	_, _ = f.Write([]byte(text))
}

func (f *Feed) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	// a pending idle signal predates this text
	select {
	case <-f.idle:
	default:
	}
	n, _ := f.buf.Write(p)
	f.cond.Broadcast()
	return n, nil
}

// Close marks the end of input. Buffered text is still delivered.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
	return nil
}

// Idle receives a value whenever the reading side starts waiting for more text.
func (f *Feed) Idle() <-chan struct{} {
	return f.idle
}

func (f *Feed) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.buf.Len() == 0 && !f.closed {
		select {
		case f.idle <- struct{}{}:
		default:
		}
		f.cond.Wait()
	}
	if f.buf.Len() == 0 {
		return 0, io.EOF
	}
	return f.buf.Read(p)
}
