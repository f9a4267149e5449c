package bitio

import (
	"io"
)

// Reader is the byte reader implementation. The underlying source must
// be seekable so that partially parsed structures can be skipped over
// without desynchronizing the stream.
type Reader struct {
	in io.ReadSeeker

	// TryError holds the first error occurred in TryXXX() methods.
	TryError error
}

// NewReader returns a new Reader using the specified io.ReadSeeker as
// the source.
func NewReader(in io.ReadSeeker) *Reader {
	return &Reader{in: in}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	return r.in.Read(p)
}

// ReadFull reads exactly len(p) bytes.
func (r *Reader) ReadFull(p []byte) error {
	_, err := io.ReadFull(r.in, p)
	return err
}

// ReadByte reads 1 byte.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if err := r.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads 16 bits.
func (r *Reader) ReadUint16() (uint16, error) {
	var b [2]byte
	if err := r.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// ReadUint32 reads 32 bits.
func (r *Reader) ReadUint32() (uint32, error) {
	var b [4]byte
	if err := r.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 |
		uint32(b[2])<<8 | uint32(b[3]), nil
}

// ReadUint64 reads 64 bits.
func (r *Reader) ReadUint64() (uint64, error) {
	var b [8]byte
	if err := r.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return uint64(b[0])<<56 | uint64(b[1])<<48 |
		uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 |
		uint64(b[6])<<8 | uint64(b[7]), nil
}

// Pos returns the current position in the source.
func (r *Reader) Pos() (uint64, error) {
	pos, err := r.in.Seek(0, io.SeekCurrent)
	return uint64(pos), err
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n uint64) error {
	_, err := r.in.Seek(int64(n), io.SeekCurrent)
	return err
}

// SeekTo moves to an absolute position in the source.
func (r *Reader) SeekTo(pos uint64) error {
	_, err := r.in.Seek(int64(pos), io.SeekStart)
	return err
}

// TryReadFull tries to read exactly len(p) bytes.
func (r *Reader) TryReadFull(p []byte) {
	if r.TryError == nil {
		r.TryError = r.ReadFull(p)
	}
}

// TryReadByte tries to read 1 byte.
func (r *Reader) TryReadByte() byte {
	if r.TryError != nil {
		return 0
	}
	var b byte
	b, r.TryError = r.ReadByte()
	return b
}

// TryReadUint16 tries to read 16 bits.
func (r *Reader) TryReadUint16() uint16 {
	if r.TryError != nil {
		return 0
	}
	var v uint16
	v, r.TryError = r.ReadUint16()
	return v
}

// TryReadUint32 tries to read 32 bits.
func (r *Reader) TryReadUint32() uint32 {
	if r.TryError != nil {
		return 0
	}
	var v uint32
	v, r.TryError = r.ReadUint32()
	return v
}

// TryReadUint64 tries to read 64 bits.
func (r *Reader) TryReadUint64() uint64 {
	if r.TryError != nil {
		return 0
	}
	var v uint64
	v, r.TryError = r.ReadUint64()
	return v
}
