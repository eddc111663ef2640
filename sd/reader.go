package sd

import (
	"errors"
	"io"
	"unicode/utf8"
)

const readChunkSize = 4096

// Reader yields runes from a source one at a time while filling its buffer in
// chunks. It tracks the current line and supports stacked pushback.
type Reader struct {
	src   io.Reader
	chunk []byte
	carry []byte

	buf     []rune
	pos     int
	pending []rune

	line int
	eof  bool
	err  error
}

func NewReader(src io.Reader) *Reader {
	return &Reader{src: src, chunk: make([]byte, readChunkSize), line: 1}
}

// Next returns the next rune. It blocks while the source has nothing to offer
// and reports false once the source is exhausted.
func (r *Reader) Next() (rune, bool) {
	var ch rune
	if n := len(r.pending); n > 0 {
		ch = r.pending[n-1]
		r.pending = r.pending[:n-1]
	} else {
		if r.pos >= len(r.buf) && !r.fill() {
			return 0, false
		}
		ch = r.buf[r.pos]
		r.pos++
	}
	if ch == '\n' {
		r.line++
	}
	return ch, true
}

// Restore pushes ch back so the next call to Next returns it again.
func (r *Reader) Restore(ch rune) {
	if ch == '\n' {
		r.line--
	}
	r.pending = append(r.pending, ch)
}

func (r *Reader) Line() int {
	return r.line
}

// Finished reports whether the source signalled end of input and every
// buffered or restored rune has been consumed.
func (r *Reader) Finished() bool {
	return r.eof && r.pos >= len(r.buf) && len(r.pending) == 0 && len(r.carry) == 0
}

// Err returns the first non-EOF error reported by the source.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fill() bool {
	r.buf = r.buf[:0]
	r.pos = 0
	for len(r.buf) == 0 {
		if r.eof {
			if len(r.carry) == 0 {
				return false
			}
			// truncated sequence at the very end of input
			r.buf = append(r.buf, utf8.RuneError)
			r.carry = nil
			return true
		}
		n, err := r.src.Read(r.chunk)
		data := make([]byte, 0, len(r.carry)+n)
		data = append(data, r.carry...)
		data = append(data, r.chunk[:n]...)
		r.carry = nil
		r.decode(data)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			r.eof = true
		}
	}
	return true
}

func (r *Reader) decode(data []byte) {
	for len(data) > 0 {
		if !utf8.FullRune(data) {
			r.carry = append(r.carry, data...)
			return
		}
		ch, size := utf8.DecodeRune(data)
		r.buf = append(r.buf, ch)
		data = data[size:]
	}
}
