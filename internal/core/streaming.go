package core

// streaming.go provides the reader chain CSV import runs its input through.
//
// Each stage wraps an io.Reader and works in constant memory:
//
//   - BOMSkippingReader: drops a leading UTF-8 BOM written by spreadsheet tools
//   - StreamingUTF8Sanitizer: replaces invalid UTF-8 bytes with '?' and
//     rejects binary input
//   - SizeLimitReader: fails once more than a configured number of bytes is read
//   - CountingReader: records how many bytes the parser consumed
//
// Use WrapForImport to apply them in the correct order.

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	// ErrFileTooLarge is returned once input exceeds the import size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrBinaryContent is returned when input contains NUL bytes, which no
	// text CSV does (a spreadsheet uploaded as CSV, for example).
	ErrBinaryContent = errors.New("encoding error: file is not text")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader removes a UTF-8 BOM from the start of a stream.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// StreamingUTF8Sanitizer decodes its input rune by rune, writing '?' for
// every byte that is not valid UTF-8. A NUL byte fails the read with
// ErrBinaryContent.
type StreamingUTF8Sanitizer struct {
	br *bufio.Reader

	// Tail of a multi-byte rune that did not fit the caller's buffer.
	pending []byte
}

// NewStreamingUTF8Sanitizer wraps r.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) > 0 {
			c := copy(p[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		r, size, err := s.br.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}

		switch {
		case r == 0:
			return n, ErrBinaryContent
		case r == utf8.RuneError && size == 1:
			p[n] = '?'
			n++
		case size <= len(p)-n:
			n += utf8.EncodeRune(p[n:], r)
		default:
			var buf [utf8.UTFMax]byte
			w := utf8.EncodeRune(buf[:], r)
			c := copy(p[n:], buf[:w])
			s.pending = append(s.pending[:0], buf[c:w]...)
			n += c
		}
	}
	return n, nil
}

// SizeLimitReader reads at most limit bytes, then fails with ErrFileTooLarge
// if the underlying reader still has data. A limit <= 0 disables the check.
type SizeLimitReader struct {
	reader    io.Reader
	limit     int64
	remaining int64
}

// NewSizeLimitReader wraps r with a byte limit.
func NewSizeLimitReader(r io.Reader, limit int64) *SizeLimitReader {
	return &SizeLimitReader{reader: r, limit: limit, remaining: limit}
}

// Read implements io.Reader.
func (r *SizeLimitReader) Read(p []byte) (int, error) {
	if r.limit <= 0 {
		return r.reader.Read(p)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.remaining <= 0 {
		var extra [1]byte
		n, err := r.reader.Read(extra[:])
		if n > 0 {
			return 0, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, r.limit)
		}
		return 0, err
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.reader.Read(p)
	r.remaining -= int64(n)
	return n, err
}

// CountingReader tracks bytes read. Not safe for concurrent use.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(p)
}

// WrapForImport builds the import reader chain around r.
//
// The order matters:
//  1. the size limit applies to raw bytes as uploaded
//  2. the BOM must be stripped before anything inspects content
//  3. sanitization sees BOM-free text
//  4. counting wraps everything
func WrapForImport(r io.Reader, maxBytes int64) *CountingReader {
	limited := NewSizeLimitReader(r, maxBytes)
	bomless := NewBOMSkippingReader(limited)
	sanitized := NewStreamingUTF8Sanitizer(bomless)
	return NewCountingReader(sanitized)
}
