package mp4

import (
	"fmt"

	"mp4/bitio"
)

/*************************** frma ****************************/

// Frma is the original format box inside sinf.
type Frma struct {
	DataFormat [4]byte
}

// Type returns the BoxType.
func (*Frma) Type() BoxType {
	return [4]byte{'f', 'r', 'm', 'a'}
}

// Size returns the marshaled size in bytes.
func (b *Frma) Size() int {
	return 4
}

// Marshal box to writer.
func (b *Frma) Marshal(w *bitio.Writer) error {
	w.TryWrite(b.DataFormat[:])
	return w.TryError
}

// Unmarshal box from reader.
func (b *Frma) Unmarshal(r *bitio.Reader, _ uint64) error {
	r.TryReadFull(b.DataFormat[:])
	return r.TryError
}

/*************************** schm ****************************/

// SchmSchemeURIPresent signals a trailing scheme URI string.
const SchmSchemeURIPresent = 0x000001

// Schm is the scheme type box.
type Schm struct {
	FullBox
	SchemeType    [4]byte
	SchemeVersion uint32
	SchemeURI     string // present when flag 0x1 is set
}

// Type returns the BoxType.
func (*Schm) Type() BoxType {
	return [4]byte{'s', 'c', 'h', 'm'}
}

// Size returns the marshaled size in bytes.
func (b *Schm) Size() int {
	total := 12
	if b.FullBox.CheckFlag(SchmSchemeURIPresent) {
		total += len(b.SchemeURI) + 1
	}
	return total
}

// Marshal box to writer.
func (b *Schm) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWrite(b.SchemeType[:])
	w.TryWriteUint32(b.SchemeVersion)
	if b.FullBox.CheckFlag(SchmSchemeURIPresent) {
		w.TryWrite([]byte(b.SchemeURI + "\000"))
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Schm) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	r.TryReadFull(b.SchemeType[:])
	b.SchemeVersion = r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	if b.FullBox.CheckFlag(SchmSchemeURIPresent) {
		uri, err := readCString(r, payloadSize-12)
		if err != nil {
			return err
		}
		b.SchemeURI = uri
	}
	return nil
}

/*************************** tenc ****************************/

// Tenc is the track encryption box. Version 1 adds the pattern
// encryption byte blocks.
type Tenc struct {
	FullBox
	DefaultCryptByteBlock  uint8 // 4 bits, version 1 only.
	DefaultSkipByteBlock   uint8 // 4 bits, version 1 only.
	DefaultIsProtected     bool
	DefaultPerSampleIVSize uint8
	DefaultKID             [16]byte
	// Constant IV, required when protected with a zero per-sample
	// IV size.
	DefaultConstantIVSize uint8 // 8 or 16.
	DefaultConstantIV     [16]byte
}

func (b *Tenc) hasConstantIV() bool {
	return b.DefaultIsProtected && b.DefaultPerSampleIVSize == 0
}

// Type returns the BoxType.
func (*Tenc) Type() BoxType {
	return [4]byte{'t', 'e', 'n', 'c'}
}

// Size returns the marshaled size in bytes.
func (b *Tenc) Size() int {
	total := 24
	if b.hasConstantIV() {
		total += 1 + int(b.DefaultConstantIVSize)
	}
	return total
}

// Marshal box to writer.
func (b *Tenc) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		w.TryWriteZeros(2) // Reserved.
	} else {
		w.TryWriteByte(0) // Reserved.
		w.TryWriteByte(b.DefaultCryptByteBlock&0xf<<4 | b.DefaultSkipByteBlock&0xf)
	}
	if b.DefaultIsProtected {
		w.TryWriteByte(1)
	} else {
		w.TryWriteByte(0)
	}
	w.TryWriteByte(b.DefaultPerSampleIVSize)
	w.TryWrite(b.DefaultKID[:])
	if b.hasConstantIV() {
		if b.DefaultConstantIVSize != 8 && b.DefaultConstantIVSize != 16 {
			return fmt.Errorf(
				"%w: tenc protected with zero per-sample IV size"+
					" needs an 8 or 16 byte constant IV, got %d",
				ErrInvalidData, b.DefaultConstantIVSize)
		}
		w.TryWriteByte(b.DefaultConstantIVSize)
		w.TryWrite(b.DefaultConstantIV[:b.DefaultConstantIVSize])
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Tenc) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	r.TryReadByte() // Reserved.
	blocks := r.TryReadByte()
	if b.FullBox.Version != 0 {
		b.DefaultCryptByteBlock = blocks >> 4
		b.DefaultSkipByteBlock = blocks & 0xf
	}
	b.DefaultIsProtected = r.TryReadByte() != 0
	b.DefaultPerSampleIVSize = r.TryReadByte()
	r.TryReadFull(b.DefaultKID[:])
	if r.TryError != nil {
		return r.TryError
	}
	if b.hasConstantIV() {
		b.DefaultConstantIVSize = r.TryReadByte()
		if r.TryError != nil {
			return r.TryError
		}
		if b.DefaultConstantIVSize != 8 && b.DefaultConstantIVSize != 16 {
			return fmt.Errorf("%w: tenc constant IV size %d",
				ErrInvalidData, b.DefaultConstantIVSize)
		}
		r.TryReadFull(b.DefaultConstantIV[:b.DefaultConstantIVSize])
	}
	return r.TryError
}

/*************************** schi ****************************/

// Schi is the scheme information box. It requires a tenc child.
type Schi struct {
	Tenc Tenc
}

// Type returns the BoxType.
func (*Schi) Type() BoxType {
	return [4]byte{'s', 'c', 'h', 'i'}
}

// Size returns the marshaled size in bytes.
func (b *Schi) Size() int {
	return 8 + b.Tenc.Size()
}

// Marshal box to writer.
func (b *Schi) Marshal(w *bitio.Writer) error {
	_, err := WriteSingleBox(w, &b.Tenc)
	return err
}

// Unmarshal box from reader.
func (b *Schi) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	found, err := unmarshalChildren(r, payloadSize, map[BoxType]Box{
		(&Tenc{}).Type(): &b.Tenc,
	})
	if err != nil {
		return err
	}
	if !found[(&Tenc{}).Type()] {
		return BoxNotFoundError{Type: (&Tenc{}).Type()}
	}
	return nil
}

/*************************** sinf ****************************/

// Sinf is the protection scheme information box. The original format
// box is required, scheme type and information are optional.
type Sinf struct {
	Frma Frma
	Schm *Schm
	Schi *Schi
}

// Type returns the BoxType.
func (*Sinf) Type() BoxType {
	return [4]byte{'s', 'i', 'n', 'f'}
}

// Size returns the marshaled size in bytes.
func (b *Sinf) Size() int {
	total := 8 + b.Frma.Size()
	if b.Schm != nil {
		total += 8 + b.Schm.Size()
	}
	if b.Schi != nil {
		total += 8 + b.Schi.Size()
	}
	return total
}

// Marshal box to writer.
func (b *Sinf) Marshal(w *bitio.Writer) error {
	if _, err := WriteSingleBox(w, &b.Frma); err != nil {
		return err
	}
	if b.Schm != nil {
		if _, err := WriteSingleBox(w, b.Schm); err != nil {
			return err
		}
	}
	if b.Schi != nil {
		if _, err := WriteSingleBox(w, b.Schi); err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal box from reader.
func (b *Sinf) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	schm := &Schm{}
	schi := &Schi{}
	found, err := unmarshalChildren(r, payloadSize, map[BoxType]Box{
		(&Frma{}).Type(): &b.Frma,
		(&Schm{}).Type(): schm,
		(&Schi{}).Type(): schi,
	})
	if err != nil {
		return err
	}
	if !found[(&Frma{}).Type()] {
		return BoxNotFoundError{Type: (&Frma{}).Type()}
	}
	if found[(&Schm{}).Type()] {
		b.Schm = schm
	}
	if found[(&Schi{}).Type()] {
		b.Schi = schi
	}
	return nil
}

// unmarshalChildren parses a run of child boxes into the given typed
// decoders. Children of unlisted types are skipped. The returned map
// records which listed types were seen.
func unmarshalChildren(
	r *bitio.Reader,
	payloadSize uint64,
	decoders map[BoxType]Box,
) (map[BoxType]bool, error) {
	found := make(map[BoxType]bool)
	remaining := payloadSize
	for remaining >= 8 {
		hdr, err := ReadBoxHeader(r)
		if err != nil {
			return nil, err
		}
		if hdr.Size > remaining {
			return nil, fmt.Errorf(
				"%w: box '%v' declares %d bytes but only %d remain in parent",
				ErrInvalidData, hdr.Type, hdr.Size, remaining)
		}
		start, err := r.Pos()
		if err != nil {
			return nil, err
		}
		if box, ok := decoders[hdr.Type]; ok {
			if err := box.Unmarshal(r, hdr.PayloadSize()); err != nil {
				return nil, fmt.Errorf("unmarshal '%v': %w", hdr.Type, err)
			}
			found[hdr.Type] = true
		}
		if err := r.SeekTo(start + hdr.PayloadSize()); err != nil {
			return nil, err
		}
		remaining -= hdr.Size
	}
	if remaining > 0 {
		if err := r.Skip(remaining); err != nil {
			return nil, err
		}
	}
	return found, nil
}

/*************************** pssh ****************************/

// Pssh is the protection system specific header box.
type Pssh struct {
	FullBox
	SystemID [16]byte
	KIDs     [][16]byte // version 1 and up.
	Data     []byte
}

// Type returns the BoxType.
func (*Pssh) Type() BoxType {
	return [4]byte{'p', 's', 's', 'h'}
}

// Size returns the marshaled size in bytes.
func (b *Pssh) Size() int {
	total := 24
	if b.FullBox.Version > 0 {
		total += 4 + len(b.KIDs)*16
	}
	return total + len(b.Data)
}

// Marshal box to writer.
func (b *Pssh) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWrite(b.SystemID[:])
	if b.FullBox.Version > 0 {
		w.TryWriteUint32(uint32(len(b.KIDs)))
		for i := range b.KIDs {
			w.TryWrite(b.KIDs[i][:])
		}
	}
	w.TryWriteUint32(uint32(len(b.Data)))
	w.TryWrite(b.Data)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Pssh) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	r.TryReadFull(b.SystemID[:])
	fixedSize := uint64(24) // Fullbox, system ID and data size.
	if b.FullBox.Version > 0 {
		kidCount := r.TryReadUint32()
		if r.TryError != nil {
			return r.TryError
		}
		if err := checkEntryCount(kidCount, payloadSize, 28, 16); err != nil {
			return err
		}
		fixedSize += 4 + 16*uint64(kidCount)
		b.KIDs = make([][16]byte, kidCount)
		for i := range b.KIDs {
			r.TryReadFull(b.KIDs[i][:])
		}
	}
	dataSize := r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	if payloadSize < fixedSize {
		return fmt.Errorf("%w: pssh payload too short", ErrInvalidData)
	}
	if uint64(dataSize) > payloadSize-fixedSize {
		return fmt.Errorf("%w: pssh data size %d exceeds payload",
			ErrInvalidData, dataSize)
	}
	if dataSize > 0 {
		b.Data = make([]byte, dataSize)
		return r.ReadFull(b.Data)
	}
	return nil
}
