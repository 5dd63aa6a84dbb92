// Package record implements decoding of fixed-layout little-endian records
// from a seekable byte source.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTruncated reports that the source ran out of bytes in the middle of a
// structured read.
var ErrTruncated = errors.New("truncated input")

// Reader is a cursor over one random-access byte source. All seeking and
// reading during a parse goes through a single Reader, so record positions
// follow from explicit seeks and sequential decode loops only.
type Reader struct {
	src io.ReadSeeker
}

// NewReader creates a Reader over src.
func NewReader(src io.ReadSeeker) *Reader {
	return &Reader{src: src}
}

// Seek moves the cursor to an absolute file offset.
func (r *Reader) Seek(offset int64) error {
	if _, err := r.src.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to offset %d: %w", offset, err)
	}
	return nil
}

// Offset returns the current cursor position.
func (r *Reader) Offset() (int64, error) {
	off, err := r.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("failed to query offset: %w", err)
	}
	return off, nil
}

// Read implements io.Reader, advancing the cursor.
func (r *Reader) Read(p []byte) (int, error) {
	return r.src.Read(p)
}

// Bytes reads exactly n bytes from the current position.
func (r *Reader) Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read %d bytes: %w", n, truncated(err))
	}
	return buf, nil
}

// ReadMax reads up to n bytes from the current position, stopping early at
// end of input. Callers that require exactly n bytes compare the returned
// length themselves.
func (r *Reader) ReadMax(n int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, fmt.Errorf("failed to read %d bytes: %w", n, err)
	}
	return buf, nil
}

// Decode reads one fixed-layout record at the cursor. The layout is the
// record type itself: fields are decoded in declaration order as
// little-endian values, consuming exactly the record's wire width.
func Decode[T any](r *Reader) (T, error) {
	var v T
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("failed to decode %T: %w", v, truncated(err))
	}
	return v, nil
}

// DecodeN reads n consecutive records of one kind.
func DecodeN[T any](r *Reader, n int) ([]T, error) {
	var out []T
	for i := 0; i < n; i++ {
		v, err := Decode[T](r)
		if err != nil {
			return nil, fmt.Errorf("record %d of %d: %w", i, n, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// truncated maps end-of-input errors to ErrTruncated so callers can classify
// structural failures with errors.Is.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
