// Package mp4 implements encoding and decoding of ISO base media
// file format (ISOBMFF) boxes, including the fragmented subset used
// by CMAF segments.
package mp4

import (
	"errors"
	"fmt"

	"mp4/bitio"
)

// BoxType is mpeg box type.
type BoxType [4]byte

// String returns the printable form of the type.
func (t BoxType) String() string {
	return string(t[:])
}

// ImmutableBoxes is slice of ImmutableBox.
type ImmutableBoxes []ImmutableBox

// ImmutableBox is common interface of box.
type ImmutableBox interface {
	// Type returns the BoxType.
	Type() BoxType

	// Size returns the marshaled size in bytes.
	// The size must be known before marshaling
	// since the box header contains the size.
	Size() int

	// Marshal box to writer.
	Marshal(w *bitio.Writer) error
}

// Box is a ImmutableBox that can also be parsed back from its
// serialized form. Unmarshal assumes the box header has already been
// consumed and must not read past payloadSize bytes.
type Box interface {
	ImmutableBox

	// Unmarshal box payload from reader.
	Unmarshal(r *bitio.Reader, payloadSize uint64) error
}

// Boxes is a structure of boxes that can be marshaled together.
type Boxes struct {
	Box      ImmutableBox
	Children []Boxes
}

// Size returns the total size of the box including children.
func (b *Boxes) Size() int {
	total := b.Box.Size() + 8
	for _, child := range b.Children {
		size := child.Size()
		total += size
	}
	return total
}

// Marshal box including children.
func (b *Boxes) Marshal(w *bitio.Writer) error {
	size := b.Size()

	err := writeBoxInfo(w, uint32(size), b.Box.Type())
	if err != nil {
		return err
	}

	// The size of a empty box is 8 bytes.
	if size != 8 {
		err := b.Box.Marshal(w)
		if err != nil {
			return err
		}
	}

	for _, child := range b.Children {
		err := child.Marshal(w)
		if err != nil {
			return err
		}
	}
	return nil
}

// FindType returns the first box of the given type in a depth-first
// walk of the tree, or nil.
func (b *Boxes) FindType(typ BoxType) *Boxes {
	if b.Box.Type() == typ {
		return b
	}
	for i := range b.Children {
		if found := b.Children[i].FindType(typ); found != nil {
			return found
		}
	}
	return nil
}

func writeBoxInfo(w *bitio.Writer, size uint32, typ BoxType) error {
	w.TryWriteUint32(size)
	w.TryWrite(typ[:])
	return w.TryError
}

// WriteSingleBox write a single box.
func WriteSingleBox(w *bitio.Writer, b ImmutableBox) (int, error) {
	size := 8 + b.Size()

	err := writeBoxInfo(w, uint32(size), b.Type())
	if err != nil {
		return 0, err
	}

	// The size of a empty box is 8 bytes.
	if size != 8 {
		err := b.Marshal(w)
		if err != nil {
			return 0, err
		}
	}
	return size, nil
}

// Marshal ImmutableBoxes to writer.
func (boxes ImmutableBoxes) Marshal(w *bitio.Writer) error {
	for _, b := range boxes {
		if _, err := WriteSingleBox(w, b); err != nil {
			return err
		}
	}
	return nil
}

// Size combined size of boxes.
func (boxes ImmutableBoxes) Size() int {
	var n int
	for _, b := range boxes {
		n += 8
		n += b.Size()
	}
	return n
}

// BoxHeader is the size and type prefix of a single box.
type BoxHeader struct {
	// Size is the total box size in bytes, header included.
	Size uint64

	// Type is the 4-byte box type tag.
	Type BoxType

	// HeaderSize is 8, or 16 when the 64-bit largesize form was used.
	HeaderSize uint64
}

// PayloadSize returns the number of payload bytes following the header.
func (h BoxHeader) PayloadSize() uint64 {
	return h.Size - h.HeaderSize
}

// ReadBoxHeader reads the (size, type) prefix of the next box. The
// 64-bit largesize form is accepted on read but never produced on
// write.
func ReadBoxHeader(r *bitio.Reader) (BoxHeader, error) {
	size32 := r.TryReadUint32()
	var typ BoxType
	r.TryReadFull(typ[:])
	if r.TryError != nil {
		err := r.TryError
		r.TryError = nil
		return BoxHeader{}, err
	}

	hdr := BoxHeader{
		Size:       uint64(size32),
		Type:       typ,
		HeaderSize: 8,
	}
	if size32 == 1 {
		size64, err := r.ReadUint64()
		if err != nil {
			return BoxHeader{}, err
		}
		hdr.Size = size64
		hdr.HeaderSize = 16
	}
	if hdr.Size < hdr.HeaderSize {
		return BoxHeader{}, fmt.Errorf("%w: box '%v' declares size %d",
			ErrInvalidData, typ, hdr.Size)
	}
	return hdr, nil
}

// ErrInvalidData is the base of all data-integrity errors: malformed
// payloads, out-of-range values and size fields that contradict the
// enclosing box.
var ErrInvalidData = errors.New("invalid data")

// BoxNotFoundError is returned when a composite box is missing a
// required child.
type BoxNotFoundError struct {
	Type BoxType
}

func (e BoxNotFoundError) Error() string {
	return fmt.Sprintf("box not found: %v", e.Type)
}
