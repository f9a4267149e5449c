package mp4

import (
	"fmt"

	"mp4/bitio"
)

// MPEG-4 descriptor tags used inside the esds box.
// https://developer.apple.com/library/content/documentation/QuickTime/QTFF/QTFFChap3/qtff3.html
const (
	ESDescrTag            = 0x03
	DecoderConfigDescrTag = 0x04
	DecSpecificInfoTag    = 0x05
	SLConfigDescrTag      = 0x06
)

// descrMaxLength is the largest descriptor length representable in
// four base-128 bytes of seven bits each.
const descrMaxLength = 0x0FFFFFFF

// DescrLengthSize returns how many bytes the base-128 length field
// occupies for the given value. The encoding is always minimal: one
// byte up to 127, two up to 16383, three up to 0x1FFFFF, four beyond.
func DescrLengthSize(length uint32) (int, error) {
	switch {
	case length <= 0x7F:
		return 1, nil
	case length <= 0x3FFF:
		return 2, nil
	case length <= 0x1FFFFF:
		return 3, nil
	case length <= descrMaxLength:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: descriptor length %d exceeds %d",
		ErrInvalidData, length, uint32(descrMaxLength))
}

// DescrHeaderSize returns the serialized size of a descriptor header,
// tag byte included.
func DescrHeaderSize(length uint32) (int, error) {
	n, err := DescrLengthSize(length)
	if err != nil {
		return 0, err
	}
	return 1 + n, nil
}

// WriteDescrHeader writes a descriptor tag followed by its payload
// length in minimal base-128 form. Every length byte except the last
// has its top bit set to signal continuation.
func WriteDescrHeader(w *bitio.Writer, tag byte, length uint32) error {
	n, err := DescrLengthSize(length)
	if err != nil {
		return err
	}
	w.TryWriteByte(tag)
	for i := n - 1; i > 0; i-- {
		w.TryWriteByte(byte(length>>(uint(i)*7))&0x7F | 0x80)
	}
	w.TryWriteByte(byte(length) & 0x7F)
	return w.TryError
}

// ReadDescrHeader reads a descriptor tag and its base-128 length.
// headerSize is the number of bytes consumed, tag byte included.
func ReadDescrHeader(r *bitio.Reader) (tag byte, length uint32, headerSize int, err error) {
	tag, err = r.ReadByte()
	if err != nil {
		return 0, 0, 0, err
	}
	headerSize = 1
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, 0, err
		}
		headerSize++
		length = length<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			break
		}
		if headerSize > 4 {
			return 0, 0, 0, fmt.Errorf(
				"%w: descriptor length exceeds 4 bytes", ErrInvalidData)
		}
	}
	return tag, length, headerSize, nil
}
