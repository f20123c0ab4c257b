package core

// streaming.go cleans up CSV bytes before the parser sees them:
//
//   - bomSkippingReader drops a leading UTF-8 BOM written by Excel on Windows
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//
// Use WrapCSVReader to apply both in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomSkippingReader strips a UTF-8 BOM from the start of the stream.
type bomSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader returns a reader that omits a leading UTF-8 BOM.
func NewBOMSkippingReader(r io.Reader) io.Reader {
	return &bomSkippingReader{br: bufio.NewReader(r)}
}

func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 bytes on the fly. A multi-byte
// sequence split across two reads is carried over in pending; sanitized
// output the caller has not taken yet waits in ready and is emitted as is.
type utf8Sanitizer struct {
	reader  io.Reader
	pending []byte
	ready   []byte
	buf     []byte
	err     error
}

// minSanitizeChunk is the smallest read issued to the underlying reader.
const minSanitizeChunk = 512

// NewUTF8Sanitizer returns a reader that never yields invalid UTF-8.
func NewUTF8Sanitizer(r io.Reader) io.Reader {
	return &utf8Sanitizer{reader: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(s.ready) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill(len(p))
	}

	n := copy(p, s.ready)
	s.ready = s.ready[n:]
	if len(s.ready) == 0 && s.err != nil {
		return n, s.err
	}
	return n, nil
}

// fill reads from the source until there is sanitized output or an error.
func (s *utf8Sanitizer) fill(size int) {
	size = max(size, minSanitizeChunk)
	for len(s.ready) == 0 && s.err == nil {
		need := len(s.pending) + size
		if cap(s.buf) < need {
			s.buf = make([]byte, need)
		}
		buf := s.buf[:need]

		offset := copy(buf, s.pending)
		s.pending = s.pending[:0]

		n, err := s.reader.Read(buf[offset:])
		n += offset
		s.err = err
		s.ready = buf[:s.sanitize(buf[:n], err != nil)]
	}
}

// sanitize rewrites data in place and returns the number of bytes to emit.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if data[read] < utf8.RuneSelf {
			data[write] = data[read]
			write++
			read++
			continue
		}
		if !atEOF && !utf8.FullRune(data[read:]) {
			// Copied out: data aliases buf, which the next fill reuses.
			s.pending = append(s.pending, data[read:]...)
			return write
		}
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// WrapCSVReader strips a BOM and then sanitizes UTF-8.
func WrapCSVReader(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(NewBOMSkippingReader(r))
}
