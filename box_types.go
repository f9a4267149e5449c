package mp4

import (
	"fmt"

	"mp4/bitio"
)

/************************* FullBox **************************/

// FullBox is ISOBMFF FullBox.
type FullBox struct {
	Version uint8
	Flags   [3]byte
}

// GetFlags returns the flags.
func (b *FullBox) GetFlags() uint32 {
	flag := uint32(b.Flags[0]) << 16
	flag ^= uint32(b.Flags[1]) << 8
	flag ^= uint32(b.Flags[2])
	return flag
}

// CheckFlag checks the flag status.
func (b *FullBox) CheckFlag(flag uint32) bool {
	return b.GetFlags()&flag != 0
}

// SetFlags overwrites the flags.
func (b *FullBox) SetFlags(flags uint32) {
	b.Flags[0] = byte(flags >> 16)
	b.Flags[1] = byte(flags >> 8)
	b.Flags[2] = byte(flags)
}

// FieldSize returns the marshaled size in bytes.
func (b *FullBox) FieldSize() int {
	return 4
}

// MarshalField box to writer.
func (b *FullBox) MarshalField(w *bitio.Writer) error {
	w.TryWriteByte(b.Version)
	w.TryWriteByte(b.Flags[0])
	w.TryWriteByte(b.Flags[1])
	w.TryWriteByte(b.Flags[2])
	return w.TryError
}

// UnmarshalField box from reader.
func (b *FullBox) UnmarshalField(r *bitio.Reader) error {
	b.Version = r.TryReadByte()
	b.Flags[0] = r.TryReadByte()
	b.Flags[1] = r.TryReadByte()
	b.Flags[2] = r.TryReadByte()
	return r.TryError
}

// checkEntryCount rejects a count field whose entries could not
// possibly fit in the box payload, so a crafted count cannot force a
// huge allocation before any entry byte is read. fixedSize is the
// number of payload bytes preceding the entries.
func checkEntryCount(count uint32, payloadSize, fixedSize, entrySize uint64) error {
	if payloadSize < fixedSize ||
		uint64(count) > (payloadSize-fixedSize)/entrySize {
		return fmt.Errorf("%w: %d entries do not fit in %d payload bytes",
			ErrInvalidData, count, payloadSize)
	}
	return nil
}

/*************************** btrt ****************************/

// Btrt is ISOBMFF btrt box type.
type Btrt struct {
	BufferSizeDB uint32
	MaxBitrate   uint32
	AvgBitrate   uint32
}

// Type returns the BoxType.
func (*Btrt) Type() BoxType {
	return [4]byte{'b', 't', 'r', 't'}
}

// Size returns the marshaled size in bytes.
func (*Btrt) Size() int {
	return 12
}

// Marshal box to writer.
func (b *Btrt) Marshal(w *bitio.Writer) error {
	w.TryWriteUint32(b.BufferSizeDB)
	w.TryWriteUint32(b.MaxBitrate)
	w.TryWriteUint32(b.AvgBitrate)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Btrt) Unmarshal(r *bitio.Reader, _ uint64) error {
	b.BufferSizeDB = r.TryReadUint32()
	b.MaxBitrate = r.TryReadUint32()
	b.AvgBitrate = r.TryReadUint32()
	return r.TryError
}

/*************************** ctts ****************************/

// Ctts is ISOBMFF ctts box type.
type Ctts struct {
	FullBox
	EntryCount uint32
	Entries    []CttsEntry
}

// CttsEntry .
type CttsEntry struct {
	SampleCount    uint32
	SampleOffsetV0 uint32
	SampleOffsetV1 int32
}

// Type returns the BoxType.
func (*Ctts) Type() BoxType {
	return [4]byte{'c', 't', 't', 's'}
}

// Size returns the marshaled size in bytes.
func (b *Ctts) Size() int {
	return 8 + len(b.Entries)*8
}

// Marshal box to writer.
func (b *Ctts) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.EntryCount)
	for _, entry := range b.Entries {
		w.TryWriteUint32(entry.SampleCount)
		if b.FullBox.Version == 0 {
			w.TryWriteUint32(entry.SampleOffsetV0)
		} else {
			w.TryWriteUint32(uint32(entry.SampleOffsetV1))
		}
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Ctts) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.EntryCount = r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	if err := checkEntryCount(b.EntryCount, payloadSize, 8, 8); err != nil {
		return err
	}
	b.Entries = make([]CttsEntry, b.EntryCount)
	for i := range b.Entries {
		b.Entries[i].SampleCount = r.TryReadUint32()
		if b.FullBox.Version == 0 {
			b.Entries[i].SampleOffsetV0 = r.TryReadUint32()
		} else {
			b.Entries[i].SampleOffsetV1 = int32(r.TryReadUint32())
		}
	}
	return r.TryError
}

/*************************** dinf ****************************/

// Dinf is ISOBMFF dinf box type.
type Dinf struct{}

// Type returns the BoxType.
func (*Dinf) Type() BoxType {
	return [4]byte{'d', 'i', 'n', 'f'}
}

// Size returns the marshaled size in bytes.
func (*Dinf) Size() int {
	return 0
}

// Marshal is never called.
func (b *Dinf) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Dinf) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** dref ****************************/

// Dref is ISOBMFF dref box type.
type Dref struct {
	FullBox
	EntryCount uint32
}

// Type returns the BoxType.
func (*Dref) Type() BoxType {
	return [4]byte{'d', 'r', 'e', 'f'}
}

// Size returns the marshaled size in bytes.
func (b *Dref) Size() int {
	return 8
}

// Marshal box to writer.
func (b *Dref) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	return w.WriteUint32(b.EntryCount)
}

// Unmarshal box from reader.
func (b *Dref) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.EntryCount = r.TryReadUint32()
	return r.TryError
}

/*************************** url ****************************/

// Url is ISOBMFF url box type.
type Url struct { //nolint:revive,stylecheck
	FullBox
	Location string
}

// Type returns the BoxType.
func (*Url) Type() BoxType {
	return [4]byte{'u', 'r', 'l', ' '}
}

// Size returns the marshaled size in bytes.
func (b *Url) Size() int {
	if !b.FullBox.CheckFlag(urlNopt) {
		return len(b.Location) + 5
	}
	return 4
}

const urlNopt = 0x000001

// Marshal box to writer.
func (b *Url) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	if !b.FullBox.CheckFlag(urlNopt) {
		_, err := w.Write([]byte(b.Location + "\000"))
		return err
	}
	return nil
}

// Unmarshal box from reader.
func (b *Url) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	if !b.FullBox.CheckFlag(urlNopt) {
		loc, err := readCString(r, payloadSize-4)
		if err != nil {
			return err
		}
		b.Location = loc
	}
	return nil
}

/*************************** edts ****************************/

// Edts is ISOBMFF edts box type.
type Edts struct{}

// Type returns the BoxType.
func (*Edts) Type() BoxType {
	return [4]byte{'e', 'd', 't', 's'}
}

// Size returns the marshaled size in bytes.
func (b *Edts) Size() int {
	return 0
}

// Marshal is never called.
func (b *Edts) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Edts) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** elst ****************************/

// Elst is ISOBMFF elst box type.
type Elst struct {
	FullBox
	EntryCount uint32
	Entries    []ElstEntry
}

// ElstEntry .
type ElstEntry struct {
	SegmentDurationV0 uint32
	MediaTimeV0       int32
	SegmentDurationV1 uint64
	MediaTimeV1       int64
	MediaRateInteger  int16
	MediaRateFraction int16
}

// Type returns the BoxType.
func (*Elst) Type() BoxType {
	return [4]byte{'e', 'l', 's', 't'}
}

// Size returns the marshaled size in bytes.
func (b *Elst) Size() int {
	if b.FullBox.Version == 0 {
		return 8 + len(b.Entries)*12
	}
	return 8 + len(b.Entries)*20
}

// Marshal box to writer.
func (b *Elst) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.EntryCount)
	for _, entry := range b.Entries {
		if b.FullBox.Version == 0 {
			w.TryWriteUint32(entry.SegmentDurationV0)
			w.TryWriteUint32(uint32(entry.MediaTimeV0))
		} else {
			w.TryWriteUint64(entry.SegmentDurationV1)
			w.TryWriteUint64(uint64(entry.MediaTimeV1))
		}
		w.TryWriteUint16(uint16(entry.MediaRateInteger))
		w.TryWriteUint16(uint16(entry.MediaRateFraction))
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Elst) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.EntryCount = r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	entrySize := uint64(12)
	if b.FullBox.Version != 0 {
		entrySize = 20
	}
	if err := checkEntryCount(b.EntryCount, payloadSize, 8, entrySize); err != nil {
		return err
	}
	b.Entries = make([]ElstEntry, b.EntryCount)
	for i := range b.Entries {
		if b.FullBox.Version == 0 {
			b.Entries[i].SegmentDurationV0 = r.TryReadUint32()
			b.Entries[i].MediaTimeV0 = int32(r.TryReadUint32())
		} else {
			b.Entries[i].SegmentDurationV1 = r.TryReadUint64()
			b.Entries[i].MediaTimeV1 = int64(r.TryReadUint64())
		}
		b.Entries[i].MediaRateInteger = int16(r.TryReadUint16())
		b.Entries[i].MediaRateFraction = int16(r.TryReadUint16())
	}
	return r.TryError
}

/*************************** free ****************************/

// Free is ISOBMFF free box type.
type Free struct{}

// Type returns the BoxType.
func (*Free) Type() BoxType {
	return [4]byte{'f', 'r', 'e', 'e'}
}

// Size returns the marshaled size in bytes.
func (b *Free) Size() int {
	return 0
}

// Marshal is never called.
func (b *Free) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal ignores the payload.
func (b *Free) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** ftyp ****************************/

// Ftyp is ISOBMFF ftyp box type.
type Ftyp struct {
	MajorBrand       [4]byte
	MinorVersion     uint32
	CompatibleBrands []CompatibleBrandElem
}

// CompatibleBrandElem .
type CompatibleBrandElem struct {
	CompatibleBrand [4]byte
}

// Type returns the BoxType.
func (*Ftyp) Type() BoxType {
	return [4]byte{'f', 't', 'y', 'p'}
}

// Size returns the marshaled size in bytes.
func (b *Ftyp) Size() int {
	total := len(b.MajorBrand) + 4
	total += len(b.CompatibleBrands) * 4
	return total
}

// Marshal box to writer.
func (b *Ftyp) Marshal(w *bitio.Writer) error {
	w.TryWrite(b.MajorBrand[:])
	w.TryWriteUint32(b.MinorVersion)
	for _, brands := range b.CompatibleBrands {
		w.TryWrite(brands.CompatibleBrand[:])
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Ftyp) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	r.TryReadFull(b.MajorBrand[:])
	b.MinorVersion = r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	if payloadSize < 8 {
		return fmt.Errorf("%w: ftyp payload too short", ErrInvalidData)
	}
	count := (payloadSize - 8) / 4
	b.CompatibleBrands = make([]CompatibleBrandElem, count)
	for i := range b.CompatibleBrands {
		r.TryReadFull(b.CompatibleBrands[i].CompatibleBrand[:])
	}
	return r.TryError
}

/*************************** hdlr ****************************/

// Hdlr is ISOBMFF hdlr box type.
type Hdlr struct {
	FullBox
	// Predefined corresponds to component_type of QuickTime.
	PreDefined  uint32
	HandlerType [4]byte
	Reserved    [3]uint32
	Name        string
}

// Type returns the BoxType.
func (*Hdlr) Type() BoxType {
	return [4]byte{'h', 'd', 'l', 'r'}
}

// Size returns the marshaled size in bytes.
func (b *Hdlr) Size() int {
	total := len(b.HandlerType) + 9
	total += len(b.Reserved) * 4
	total += len(b.Name)
	return total
}

// Marshal box to writer.
func (b *Hdlr) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.PreDefined)
	w.TryWrite(b.HandlerType[:])
	for _, reserved := range b.Reserved {
		w.TryWriteUint32(reserved)
	}
	w.TryWrite([]byte(b.Name + "\000"))
	return w.TryError
}

// Unmarshal box from reader.
func (b *Hdlr) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.PreDefined = r.TryReadUint32()
	r.TryReadFull(b.HandlerType[:])
	for i := range b.Reserved {
		b.Reserved[i] = r.TryReadUint32()
	}
	if r.TryError != nil {
		return r.TryError
	}
	if payloadSize < 25 {
		return fmt.Errorf("%w: hdlr payload too short", ErrInvalidData)
	}
	name := make([]byte, payloadSize-24)
	if err := r.ReadFull(name); err != nil {
		return err
	}
	// Name is null-terminated on the wire.
	b.Name = string(name[:len(name)-1])
	return nil
}

/*************************** mdat ****************************/

// Mdat is ISOBMFF mdat box type.
type Mdat struct {
	Data []byte
}

// Type returns the BoxType.
func (*Mdat) Type() BoxType {
	return [4]byte{'m', 'd', 'a', 't'}
}

// Size returns the marshaled size in bytes.
func (b *Mdat) Size() int {
	return len(b.Data)
}

// Marshal box to writer.
func (b *Mdat) Marshal(w *bitio.Writer) error {
	_, err := w.Write(b.Data)
	return err
}

// Unmarshal box from reader.
func (b *Mdat) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	b.Data = make([]byte, payloadSize)
	return r.ReadFull(b.Data)
}

/*************************** mdhd ****************************/

// Mdhd is ISOBMFF mdhd box type.
type Mdhd struct {
	FullBox
	CreationTimeV0     uint32
	ModificationTimeV0 uint32
	CreationTimeV1     uint64
	ModificationTimeV1 uint64
	Timescale          uint32
	DurationV0         uint32
	DurationV1         uint64
	//
	Pad        bool    // 1 bit.
	Language   [3]byte // 5 bits. ISO-639-2/T language code
	PreDefined uint16
}

// Type returns the BoxType.
func (*Mdhd) Type() BoxType {
	return [4]byte{'m', 'd', 'h', 'd'}
}

// Size returns the marshaled size in bytes.
func (b *Mdhd) Size() int {
	if b.FullBox.Version == 0 {
		return 24
	}
	return 36
}

// Marshal box to writer.
func (b *Mdhd) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		w.TryWriteUint32(b.CreationTimeV0)
		w.TryWriteUint32(b.ModificationTimeV0)
	} else {
		w.TryWriteUint64(b.CreationTimeV1)
		w.TryWriteUint64(b.ModificationTimeV1)
	}
	w.TryWriteUint32(b.Timescale)
	if b.FullBox.Version == 0 {
		w.TryWriteUint32(b.DurationV0)
	} else {
		w.TryWriteUint64(b.DurationV1)
	}
	if b.Pad {
		w.TryWriteByte(byte(0x1)<<7 | b.Language[0]&0x1f<<2 | b.Language[1]&0x1f>>3)
	} else {
		w.TryWriteByte(b.Language[0]&0x1f<<2 | b.Language[1]&0x1f>>3)
	}
	w.TryWriteByte(b.Language[1]<<5 | b.Language[2]&0x1f)
	w.TryWriteUint16(b.PreDefined)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Mdhd) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		b.CreationTimeV0 = r.TryReadUint32()
		b.ModificationTimeV0 = r.TryReadUint32()
	} else {
		b.CreationTimeV1 = r.TryReadUint64()
		b.ModificationTimeV1 = r.TryReadUint64()
	}
	b.Timescale = r.TryReadUint32()
	if b.FullBox.Version == 0 {
		b.DurationV0 = r.TryReadUint32()
	} else {
		b.DurationV1 = r.TryReadUint64()
	}
	lang0 := r.TryReadByte()
	lang1 := r.TryReadByte()
	b.Pad = lang0>>7 != 0
	b.Language[0] = lang0 >> 2 & 0x1f
	b.Language[1] = lang0&0x3<<3 | lang1>>5
	b.Language[2] = lang1 & 0x1f
	b.PreDefined = r.TryReadUint16()
	return r.TryError
}

/*************************** mdia ****************************/

// Mdia is ISOBMFF mdia box type.
type Mdia struct{}

// Type returns the BoxType.
func (*Mdia) Type() BoxType {
	return [4]byte{'m', 'd', 'i', 'a'}
}

// Size returns the marshaled size in bytes.
func (b *Mdia) Size() int {
	return 0
}

// Marshal is never called.
func (b *Mdia) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Mdia) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** mehd ****************************/

// Mehd is ISOBMFF mehd box type.
type Mehd struct {
	FullBox
	FragmentDurationV0 uint32
	FragmentDurationV1 uint64
}

// Type returns the BoxType.
func (*Mehd) Type() BoxType {
	return [4]byte{'m', 'e', 'h', 'd'}
}

// Size returns the marshaled size in bytes.
func (b *Mehd) Size() int {
	if b.FullBox.Version == 0 {
		return 8
	}
	return 12
}

// Marshal box to writer.
func (b *Mehd) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		w.TryWriteUint32(b.FragmentDurationV0)
	} else {
		w.TryWriteUint64(b.FragmentDurationV1)
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Mehd) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		b.FragmentDurationV0 = r.TryReadUint32()
	} else {
		b.FragmentDurationV1 = r.TryReadUint64()
	}
	return r.TryError
}

/*************************** meta ****************************/

// Meta is ISOBMFF meta box type.
type Meta struct {
	FullBox
}

// Type returns the BoxType.
func (*Meta) Type() BoxType {
	return [4]byte{'m', 'e', 't', 'a'}
}

// Size returns the marshaled size in bytes.
func (b *Meta) Size() int {
	return 4
}

// Marshal box to writer.
func (b *Meta) Marshal(w *bitio.Writer) error {
	return b.FullBox.MarshalField(w)
}

// Unmarshal box payload from reader.
func (b *Meta) Unmarshal(r *bitio.Reader, _ uint64) error {
	return b.FullBox.UnmarshalField(r)
}

/*************************** mfhd ****************************/

// Mfhd is ISOBMFF mfhd box type.
type Mfhd struct {
	FullBox
	SequenceNumber uint32
}

// Type returns the BoxType.
func (*Mfhd) Type() BoxType {
	return [4]byte{'m', 'f', 'h', 'd'}
}

// Size returns the marshaled size in bytes.
func (b *Mfhd) Size() int {
	return 8
}

// Marshal box to writer.
func (b *Mfhd) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	return w.WriteUint32(b.SequenceNumber)
}

// Unmarshal box from reader.
func (b *Mfhd) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.SequenceNumber = r.TryReadUint32()
	return r.TryError
}

/*************************** minf ****************************/

// Minf is ISOBMFF minf box type.
type Minf struct{}

// Type returns the BoxType.
func (*Minf) Type() BoxType {
	return [4]byte{'m', 'i', 'n', 'f'}
}

// Size returns the marshaled size in bytes.
func (b *Minf) Size() int {
	return 0
}

// Marshal is never called.
func (b *Minf) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Minf) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** moof ****************************/

// Moof is ISOBMFF moof box type.
type Moof struct{}

// Type returns the BoxType.
func (*Moof) Type() BoxType {
	return [4]byte{'m', 'o', 'o', 'f'}
}

// Size returns the marshaled size in bytes.
func (b *Moof) Size() int {
	return 0
}

// Marshal is never called.
func (b *Moof) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Moof) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** moov ****************************/

// Moov is ISOBMFF moov box type.
type Moov struct{}

// Type returns the BoxType.
func (*Moov) Type() BoxType {
	return [4]byte{'m', 'o', 'o', 'v'}
}

// Size returns the marshaled size in bytes.
func (b *Moov) Size() int {
	return 0
}

// Marshal is never called.
func (b *Moov) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Moov) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** mvex ****************************/

// Mvex is ISOBMFF mvex box type.
type Mvex struct{}

// Type returns the BoxType.
func (*Mvex) Type() BoxType {
	return [4]byte{'m', 'v', 'e', 'x'}
}

// Size returns the marshaled size in bytes.
func (b *Mvex) Size() int {
	return 0
}

// Marshal is never called.
func (b *Mvex) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Mvex) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** mvhd ****************************/

// Mvhd is ISOBMFF mvhd box type.
type Mvhd struct {
	FullBox
	CreationTimeV0     uint32
	ModificationTimeV0 uint32
	CreationTimeV1     uint64
	ModificationTimeV1 uint64
	Timescale          uint32
	DurationV0         uint32
	DurationV1         uint64
	Rate               int32 // fixed-point 16.16 - template=0x00010000
	Volume             int16 // template=0x0100
	Reserved           int16
	Reserved2          [2]uint32
	Matrix             [9]int32 // template={ 0x00010000,0,0,0,0x00010000,0,0,0,0x40000000 }
	PreDefined         [6]int32
	NextTrackID        uint32
}

// Type returns the BoxType.
func (*Mvhd) Type() BoxType {
	return [4]byte{'m', 'v', 'h', 'd'}
}

// Size returns the marshaled size in bytes.
func (b *Mvhd) Size() int {
	if b.FullBox.Version == 0 {
		return 100
	}
	return 112
}

// Marshal box to writer.
func (b *Mvhd) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		w.TryWriteUint32(b.CreationTimeV0)
		w.TryWriteUint32(b.ModificationTimeV0)
	} else {
		w.TryWriteUint64(b.CreationTimeV1)
		w.TryWriteUint64(b.ModificationTimeV1)
	}
	w.TryWriteUint32(b.Timescale)
	if b.FullBox.Version == 0 {
		w.TryWriteUint32(b.DurationV0)
	} else {
		w.TryWriteUint64(b.DurationV1)
	}
	w.TryWriteUint32(uint32(b.Rate))
	w.TryWriteUint16(uint16(b.Volume))
	w.TryWriteUint16(uint16(b.Reserved))
	for _, reserved := range b.Reserved2 {
		w.TryWriteUint32(reserved)
	}
	for _, matrix := range b.Matrix {
		w.TryWriteUint32(uint32(matrix))
	}
	for _, preDefined := range b.PreDefined {
		w.TryWriteUint32(uint32(preDefined))
	}
	w.TryWriteUint32(b.NextTrackID)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Mvhd) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		b.CreationTimeV0 = r.TryReadUint32()
		b.ModificationTimeV0 = r.TryReadUint32()
	} else {
		b.CreationTimeV1 = r.TryReadUint64()
		b.ModificationTimeV1 = r.TryReadUint64()
	}
	b.Timescale = r.TryReadUint32()
	if b.FullBox.Version == 0 {
		b.DurationV0 = r.TryReadUint32()
	} else {
		b.DurationV1 = r.TryReadUint64()
	}
	b.Rate = int32(r.TryReadUint32())
	b.Volume = int16(r.TryReadUint16())
	b.Reserved = int16(r.TryReadUint16())
	for i := range b.Reserved2 {
		b.Reserved2[i] = r.TryReadUint32()
	}
	for i := range b.Matrix {
		b.Matrix[i] = int32(r.TryReadUint32())
	}
	for i := range b.PreDefined {
		b.PreDefined[i] = int32(r.TryReadUint32())
	}
	b.NextTrackID = r.TryReadUint32()
	return r.TryError
}

/*************************** smhd ****************************/

// Smhd is ISOBMFF smhd box type.
type Smhd struct {
	FullBox
	Balance  int16 // fixed-point 8.8 template=0
	Reserved uint16
}

// Type returns the BoxType.
func (*Smhd) Type() BoxType {
	return [4]byte{'s', 'm', 'h', 'd'}
}

// Size returns the marshaled size in bytes.
func (b *Smhd) Size() int {
	return 8
}

// Marshal box to writer.
func (b *Smhd) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint16(uint16(b.Balance))
	w.TryWriteUint16(b.Reserved)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Smhd) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.Balance = int16(r.TryReadUint16())
	b.Reserved = r.TryReadUint16()
	return r.TryError
}

/*************************** stbl ****************************/

// Stbl is ISOBMFF stbl box type.
type Stbl struct{}

// Type returns the BoxType.
func (*Stbl) Type() BoxType {
	return [4]byte{'s', 't', 'b', 'l'}
}

// Size returns the marshaled size in bytes.
func (b *Stbl) Size() int {
	return 0
}

// Marshal is never called.
func (b *Stbl) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Stbl) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** stco ****************************/

// Stco is ISOBMFF stco box type.
type Stco struct {
	FullBox
	EntryCount  uint32
	ChunkOffset []uint32
}

// Type returns the BoxType.
func (*Stco) Type() BoxType {
	return [4]byte{'s', 't', 'c', 'o'}
}

// Size returns the marshaled size in bytes.
func (b *Stco) Size() int {
	return 8 + len(b.ChunkOffset)*4
}

// Marshal box to writer.
func (b *Stco) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.EntryCount)
	for _, offset := range b.ChunkOffset {
		w.TryWriteUint32(offset)
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Stco) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.EntryCount = r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	if err := checkEntryCount(b.EntryCount, payloadSize, 8, 4); err != nil {
		return err
	}
	if b.EntryCount > 0 {
		b.ChunkOffset = make([]uint32, b.EntryCount)
		for i := range b.ChunkOffset {
			b.ChunkOffset[i] = r.TryReadUint32()
		}
	}
	return r.TryError
}

/*************************** stsc ****************************/

// StscEntry .
type StscEntry struct {
	FirstChunk             uint32
	SamplesPerChunk        uint32
	SampleDescriptionIndex uint32
}

// MarshalField entry to buffer.
func (b *StscEntry) MarshalField(w *bitio.Writer) error {
	w.TryWriteUint32(b.FirstChunk)
	w.TryWriteUint32(b.SamplesPerChunk)
	w.TryWriteUint32(b.SampleDescriptionIndex)
	return w.TryError
}

// Stsc is ISOBMFF stsc box type.
type Stsc struct {
	FullBox
	EntryCount uint32
	Entries    []StscEntry
}

// Type returns the BoxType.
func (*Stsc) Type() BoxType {
	return [4]byte{'s', 't', 's', 'c'}
}

// Size returns the marshaled size in bytes.
func (b *Stsc) Size() int {
	return 8 + len(b.Entries)*12
}

// Marshal box to writer.
func (b *Stsc) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	err = w.WriteUint32(b.EntryCount)
	if err != nil {
		return err
	}
	for _, entry := range b.Entries {
		err := entry.MarshalField(w)
		if err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal box from reader.
func (b *Stsc) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.EntryCount = r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	if err := checkEntryCount(b.EntryCount, payloadSize, 8, 12); err != nil {
		return err
	}
	if b.EntryCount > 0 {
		b.Entries = make([]StscEntry, b.EntryCount)
		for i := range b.Entries {
			b.Entries[i].FirstChunk = r.TryReadUint32()
			b.Entries[i].SamplesPerChunk = r.TryReadUint32()
			b.Entries[i].SampleDescriptionIndex = r.TryReadUint32()
		}
	}
	return r.TryError
}

/*************************** stsd ****************************/

// Stsd is ISOBMFF stsd box type.
type Stsd struct {
	FullBox
	EntryCount uint32
}

// Type returns the BoxType.
func (*Stsd) Type() BoxType {
	return [4]byte{'s', 't', 's', 'd'}
}

// Size returns the marshaled size in bytes.
func (b *Stsd) Size() int {
	return 8
}

// Marshal box to writer.
func (b *Stsd) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	return w.WriteUint32(b.EntryCount)
}

// Unmarshal box from reader.
func (b *Stsd) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.EntryCount = r.TryReadUint32()
	return r.TryError
}

/*************************** stss ****************************/

// Stss is ISOBMFF stss box type.
type Stss struct {
	FullBox
	EntryCount   uint32
	SampleNumber []uint32
}

// Type returns the BoxType.
func (*Stss) Type() BoxType {
	return [4]byte{'s', 't', 's', 's'}
}

// Size returns the marshaled size in bytes.
func (b *Stss) Size() int {
	return 8 + len(b.SampleNumber)*4
}

// Marshal box to writer.
func (b *Stss) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.EntryCount)
	for _, number := range b.SampleNumber {
		w.TryWriteUint32(number)
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Stss) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.EntryCount = r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	if err := checkEntryCount(b.EntryCount, payloadSize, 8, 4); err != nil {
		return err
	}
	if b.EntryCount > 0 {
		b.SampleNumber = make([]uint32, b.EntryCount)
		for i := range b.SampleNumber {
			b.SampleNumber[i] = r.TryReadUint32()
		}
	}
	return r.TryError
}

/*************************** stsz ****************************/

// Stsz is ISOBMFF stsz box type.
type Stsz struct {
	FullBox
	SampleSize  uint32
	SampleCount uint32
	EntrySize   []uint32
}

// Type returns the BoxType.
func (*Stsz) Type() BoxType {
	return [4]byte{'s', 't', 's', 'z'}
}

// Size returns the marshaled size in bytes.
func (b *Stsz) Size() int {
	return 12 + len(b.EntrySize)*4
}

// Marshal box to writer.
func (b *Stsz) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.SampleSize)
	w.TryWriteUint32(b.SampleCount)
	for _, entry := range b.EntrySize {
		w.TryWriteUint32(entry)
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Stsz) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.SampleSize = r.TryReadUint32()
	b.SampleCount = r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	if b.SampleSize == 0 {
		err := checkEntryCount(b.SampleCount, payloadSize, 12, 4)
		if err != nil {
			return err
		}
	}
	if b.SampleSize == 0 && b.SampleCount > 0 {
		b.EntrySize = make([]uint32, b.SampleCount)
		for i := range b.EntrySize {
			b.EntrySize[i] = r.TryReadUint32()
		}
	}
	return r.TryError
}

/*************************** stts ****************************/

// Stts is ISOBMFF stts box type.
type Stts struct {
	FullBox
	EntryCount uint32
	Entries    []SttsEntry
}

// SttsEntry .
type SttsEntry struct {
	SampleCount uint32
	SampleDelta uint32
}

// Marshal entry to buffer.
func (b *SttsEntry) Marshal(w *bitio.Writer) error {
	w.TryWriteUint32(b.SampleCount)
	w.TryWriteUint32(b.SampleDelta)
	return w.TryError
}

// Type returns the BoxType.
func (*Stts) Type() BoxType {
	return [4]byte{'s', 't', 't', 's'}
}

// Size returns the marshaled size in bytes.
func (b *Stts) Size() int {
	return 8 + len(b.Entries)*8
}

// Marshal box to writer.
func (b *Stts) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	err = w.WriteUint32(b.EntryCount)
	if err != nil {
		return err
	}
	for _, entry := range b.Entries {
		err := entry.Marshal(w)
		if err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal box from reader.
func (b *Stts) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.EntryCount = r.TryReadUint32()
	if r.TryError != nil {
		return r.TryError
	}
	if err := checkEntryCount(b.EntryCount, payloadSize, 8, 8); err != nil {
		return err
	}
	if b.EntryCount > 0 {
		b.Entries = make([]SttsEntry, b.EntryCount)
		for i := range b.Entries {
			b.Entries[i].SampleCount = r.TryReadUint32()
			b.Entries[i].SampleDelta = r.TryReadUint32()
		}
	}
	return r.TryError
}

/*************************** tfdt ****************************/

// Tfdt is ISOBMFF tfdt box type.
type Tfdt struct {
	FullBox
	BaseMediaDecodeTimeV0 uint32
	BaseMediaDecodeTimeV1 uint64
}

// Type returns the BoxType.
func (*Tfdt) Type() BoxType {
	return [4]byte{'t', 'f', 'd', 't'}
}

// Size returns the marshaled size in bytes.
func (b *Tfdt) Size() int {
	total := b.FullBox.FieldSize()
	if b.FullBox.Version == 0 {
		total += 4
	} else {
		total += 8
	}
	return total
}

// Marshal box to writer.
func (b *Tfdt) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		err = w.WriteUint32(b.BaseMediaDecodeTimeV0)
	} else {
		err = w.WriteUint64(b.BaseMediaDecodeTimeV1)
	}
	return err
}

// Unmarshal box from reader.
func (b *Tfdt) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		b.BaseMediaDecodeTimeV0 = r.TryReadUint32()
	} else {
		b.BaseMediaDecodeTimeV1 = r.TryReadUint64()
	}
	return r.TryError
}

/*************************** tfhd ****************************/

// Tfhd is ISOBMFF tfhd box type.
type Tfhd struct {
	FullBox
	TrackID uint32

	// optional
	BaseDataOffset         uint64
	SampleDescriptionIndex uint32
	DefaultSampleDuration  uint32
	DefaultSampleSize      uint32
	DefaultSampleFlags     uint32
}

// tfhd flags.
const (
	TfhdBaseDataOffsetPresent         = 0x000001
	TfhdSampleDescriptionIndexPresent = 0x000002
	TfhdDefaultSampleDurationPresent  = 0x000008
	TfhdDefaultSampleSizePresent      = 0x000010
	TfhdDefaultSampleFlagsPresent     = 0x000020
)

// Type returns the BoxType.
func (*Tfhd) Type() BoxType {
	return [4]byte{'t', 'f', 'h', 'd'}
}

// Size returns the marshaled size in bytes.
func (b *Tfhd) Size() int {
	total := b.FullBox.FieldSize() + 4
	if b.FullBox.CheckFlag(TfhdBaseDataOffsetPresent) {
		total += 8
	}
	if b.FullBox.CheckFlag(TfhdSampleDescriptionIndexPresent) {
		total += 4
	}
	if b.FullBox.CheckFlag(TfhdDefaultSampleDurationPresent) {
		total += 4
	}
	if b.FullBox.CheckFlag(TfhdDefaultSampleSizePresent) {
		total += 4
	}
	if b.FullBox.CheckFlag(TfhdDefaultSampleFlagsPresent) {
		total += 4
	}
	return total
}

// Marshal box to writer.
func (b *Tfhd) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.TrackID)
	if b.FullBox.CheckFlag(TfhdBaseDataOffsetPresent) {
		w.TryWriteUint64(b.BaseDataOffset)
	}
	if b.FullBox.CheckFlag(TfhdSampleDescriptionIndexPresent) {
		w.TryWriteUint32(b.SampleDescriptionIndex)
	}
	if b.FullBox.CheckFlag(TfhdDefaultSampleDurationPresent) {
		w.TryWriteUint32(b.DefaultSampleDuration)
	}
	if b.FullBox.CheckFlag(TfhdDefaultSampleSizePresent) {
		w.TryWriteUint32(b.DefaultSampleSize)
	}
	if b.FullBox.CheckFlag(TfhdDefaultSampleFlagsPresent) {
		w.TryWriteUint32(b.DefaultSampleFlags)
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Tfhd) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.TrackID = r.TryReadUint32()
	if b.FullBox.CheckFlag(TfhdBaseDataOffsetPresent) {
		b.BaseDataOffset = r.TryReadUint64()
	}
	if b.FullBox.CheckFlag(TfhdSampleDescriptionIndexPresent) {
		b.SampleDescriptionIndex = r.TryReadUint32()
	}
	if b.FullBox.CheckFlag(TfhdDefaultSampleDurationPresent) {
		b.DefaultSampleDuration = r.TryReadUint32()
	}
	if b.FullBox.CheckFlag(TfhdDefaultSampleSizePresent) {
		b.DefaultSampleSize = r.TryReadUint32()
	}
	if b.FullBox.CheckFlag(TfhdDefaultSampleFlagsPresent) {
		b.DefaultSampleFlags = r.TryReadUint32()
	}
	return r.TryError
}

/*************************** tkhd ****************************/

// Tkhd is ISOBMFF tkhd box type.
type Tkhd struct {
	FullBox
	CreationTimeV0     uint32
	ModificationTimeV0 uint32
	CreationTimeV1     uint64
	ModificationTimeV1 uint64
	TrackID            uint32
	Reserved0          uint32
	DurationV0         uint32
	DurationV1         uint64

	Reserved1      [2]uint32
	Layer          int16 // template=0
	AlternateGroup int16 // template=0
	Volume         int16 // template={if track_is_audio 0x0100 else 0}
	Reserved2      uint16
	Matrix         [9]int32 // template={ 0x00010000,0,0,0,0x00010000,0,0,0,0x40000000 };
	Width          uint32   // fixed-point 16.16
	Height         uint32   // fixed-point 16.16
}

// Type returns the BoxType.
func (*Tkhd) Type() BoxType {
	return [4]byte{'t', 'k', 'h', 'd'}
}

// Size returns the marshaled size in bytes.
func (b *Tkhd) Size() int {
	if b.FullBox.Version == 0 {
		return 84
	}
	return 96
}

// Marshal box to writer.
func (b *Tkhd) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		w.TryWriteUint32(b.CreationTimeV0)
		w.TryWriteUint32(b.ModificationTimeV0)
	} else {
		w.TryWriteUint64(b.CreationTimeV1)
		w.TryWriteUint64(b.ModificationTimeV1)
	}
	w.TryWriteUint32(b.TrackID)
	w.TryWriteUint32(b.Reserved0)
	if b.FullBox.Version == 0 {
		w.TryWriteUint32(b.DurationV0)
	} else {
		w.TryWriteUint64(b.DurationV1)
	}
	for _, reserved := range b.Reserved1 {
		w.TryWriteUint32(reserved)
	}
	w.TryWriteUint16(uint16(b.Layer))
	w.TryWriteUint16(uint16(b.AlternateGroup))
	w.TryWriteUint16(uint16(b.Volume))
	w.TryWriteUint16(b.Reserved2)
	for _, matrix := range b.Matrix {
		w.TryWriteUint32(uint32(matrix))
	}
	w.TryWriteUint32(b.Width)
	w.TryWriteUint32(b.Height)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Tkhd) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		b.CreationTimeV0 = r.TryReadUint32()
		b.ModificationTimeV0 = r.TryReadUint32()
	} else {
		b.CreationTimeV1 = r.TryReadUint64()
		b.ModificationTimeV1 = r.TryReadUint64()
	}
	b.TrackID = r.TryReadUint32()
	b.Reserved0 = r.TryReadUint32()
	if b.FullBox.Version == 0 {
		b.DurationV0 = r.TryReadUint32()
	} else {
		b.DurationV1 = r.TryReadUint64()
	}
	for i := range b.Reserved1 {
		b.Reserved1[i] = r.TryReadUint32()
	}
	b.Layer = int16(r.TryReadUint16())
	b.AlternateGroup = int16(r.TryReadUint16())
	b.Volume = int16(r.TryReadUint16())
	b.Reserved2 = r.TryReadUint16()
	for i := range b.Matrix {
		b.Matrix[i] = int32(r.TryReadUint32())
	}
	b.Width = r.TryReadUint32()
	b.Height = r.TryReadUint32()
	return r.TryError
}

/*************************** traf ****************************/

// Traf is ISOBMFF traf box type.
type Traf struct{}

// Type returns the BoxType.
func (*Traf) Type() BoxType {
	return [4]byte{'t', 'r', 'a', 'f'}
}

// Size returns the marshaled size in bytes.
func (b *Traf) Size() int {
	return 0
}

// Marshal is never called.
func (b *Traf) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Traf) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** trak ****************************/

// Trak is ISOBMFF trak box type.
type Trak struct{}

// Type returns the BoxType.
func (*Trak) Type() BoxType {
	return [4]byte{'t', 'r', 'a', 'k'}
}

// Size returns the marshaled size in bytes.
func (b *Trak) Size() int {
	return 0
}

// Marshal is never called.
func (b *Trak) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Trak) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** trex ****************************/

// Trex is ISOBMFF trex box type.
type Trex struct {
	FullBox
	TrackID                       uint32
	DefaultSampleDescriptionIndex uint32
	DefaultSampleDuration         uint32
	DefaultSampleSize             uint32
	DefaultSampleFlags            uint32
}

// Type returns the BoxType.
func (*Trex) Type() BoxType {
	return [4]byte{'t', 'r', 'e', 'x'}
}

// Size returns the marshaled size in bytes.
func (b *Trex) Size() int {
	return 24
}

// Marshal box to writer.
func (b *Trex) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.TrackID)
	w.TryWriteUint32(b.DefaultSampleDescriptionIndex)
	w.TryWriteUint32(b.DefaultSampleDuration)
	w.TryWriteUint32(b.DefaultSampleSize)
	w.TryWriteUint32(b.DefaultSampleFlags)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Trex) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.TrackID = r.TryReadUint32()
	b.DefaultSampleDescriptionIndex = r.TryReadUint32()
	b.DefaultSampleDuration = r.TryReadUint32()
	b.DefaultSampleSize = r.TryReadUint32()
	b.DefaultSampleFlags = r.TryReadUint32()
	return r.TryError
}

/*************************** trun ****************************/

// TrunEntry .
type TrunEntry struct {
	SampleDuration                uint32
	SampleSize                    uint32
	SampleFlags                   uint32
	SampleCompositionTimeOffsetV0 uint32
	SampleCompositionTimeOffsetV1 int32
}

// trun flags.
const (
	TrunDataOffsetPresent                  = 0x000001
	TrunFirstSampleFlagsPresent            = 0x000004
	TrunSampleDurationPresent              = 0x000100
	TrunSampleSizePresent                  = 0x000200
	TrunSampleFlagsPresent                 = 0x000400
	TrunSampleCompositionTimeOffsetPresent = 0x000800
)

// Sample flags used in trun entries and in tfhd/trex defaults.
const (
	SampleFlagDependsYes = 0x1000000
	SampleFlagDependsNo  = 0x2000000
	SampleFlagIsNonSync  = 0x10000
)

// FieldSize returns the marshaled size in bytes.
func (b *TrunEntry) FieldSize(fullBox FullBox) int {
	total := 0
	if fullBox.CheckFlag(TrunSampleDurationPresent) {
		total += 4
	}
	if fullBox.CheckFlag(TrunSampleSizePresent) {
		total += 4
	}
	if fullBox.CheckFlag(TrunSampleFlagsPresent) {
		total += 4
	}
	if fullBox.CheckFlag(TrunSampleCompositionTimeOffsetPresent) {
		total += 4
	}
	return total
}

// MarshalField entry to buffer.
func (b *TrunEntry) MarshalField(w *bitio.Writer, fullBox FullBox) error {
	if fullBox.CheckFlag(TrunSampleDurationPresent) {
		w.TryWriteUint32(b.SampleDuration)
	}
	if fullBox.CheckFlag(TrunSampleSizePresent) {
		w.TryWriteUint32(b.SampleSize)
	}
	if fullBox.CheckFlag(TrunSampleFlagsPresent) {
		w.TryWriteUint32(b.SampleFlags)
	}
	if fullBox.CheckFlag(TrunSampleCompositionTimeOffsetPresent) {
		if fullBox.Version == 0 {
			w.TryWriteUint32(b.SampleCompositionTimeOffsetV0)
		} else {
			w.TryWriteUint32(uint32(b.SampleCompositionTimeOffsetV1))
		}
	}
	return w.TryError
}

// UnmarshalField entry from reader.
func (b *TrunEntry) UnmarshalField(r *bitio.Reader, fullBox FullBox) error {
	if fullBox.CheckFlag(TrunSampleDurationPresent) {
		b.SampleDuration = r.TryReadUint32()
	}
	if fullBox.CheckFlag(TrunSampleSizePresent) {
		b.SampleSize = r.TryReadUint32()
	}
	if fullBox.CheckFlag(TrunSampleFlagsPresent) {
		b.SampleFlags = r.TryReadUint32()
	}
	if fullBox.CheckFlag(TrunSampleCompositionTimeOffsetPresent) {
		if fullBox.Version == 0 {
			b.SampleCompositionTimeOffsetV0 = r.TryReadUint32()
		} else {
			b.SampleCompositionTimeOffsetV1 = int32(r.TryReadUint32())
		}
	}
	return r.TryError
}

// Trun is ISOBMFF trun box type.
type Trun struct {
	FullBox
	SampleCount uint32

	// optional fields
	DataOffset       int32
	FirstSampleFlags uint32
	Entries          []TrunEntry
}

// Type returns the BoxType.
func (*Trun) Type() BoxType {
	return [4]byte{'t', 'r', 'u', 'n'}
}

// Size returns the marshaled size in bytes.
func (b *Trun) Size() int {
	total := 8
	if b.FullBox.CheckFlag(TrunDataOffsetPresent) {
		total += 4
	}
	if b.FullBox.CheckFlag(TrunFirstSampleFlagsPresent) {
		total += 4
	}
	for _, entry := range b.Entries {
		total += entry.FieldSize(b.FullBox)
	}
	return total
}

// Marshal box to writer.
func (b *Trun) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.SampleCount)
	if b.FullBox.CheckFlag(TrunDataOffsetPresent) {
		w.TryWriteUint32(uint32(b.DataOffset))
	}
	if b.FullBox.CheckFlag(TrunFirstSampleFlagsPresent) {
		w.TryWriteUint32(b.FirstSampleFlags)
	}
	if w.TryError != nil {
		return w.TryError
	}
	for _, entry := range b.Entries {
		err := entry.MarshalField(w, b.FullBox)
		if err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal box from reader.
func (b *Trun) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.SampleCount = r.TryReadUint32()
	fixedSize := uint64(8)
	if b.FullBox.CheckFlag(TrunDataOffsetPresent) {
		b.DataOffset = int32(r.TryReadUint32())
		fixedSize += 4
	}
	if b.FullBox.CheckFlag(TrunFirstSampleFlagsPresent) {
		b.FirstSampleFlags = r.TryReadUint32()
		fixedSize += 4
	}
	if r.TryError != nil {
		return r.TryError
	}
	var entrySize uint64
	for _, flag := range []uint32{
		TrunSampleDurationPresent,
		TrunSampleSizePresent,
		TrunSampleFlagsPresent,
		TrunSampleCompositionTimeOffsetPresent,
	} {
		if b.FullBox.CheckFlag(flag) {
			entrySize += 4
		}
	}
	if entrySize == 0 {
		// Every per-sample field comes from the tfhd defaults, so
		// there is nothing to read and nothing worth allocating.
		return nil
	}
	if err := checkEntryCount(b.SampleCount, payloadSize, fixedSize, entrySize); err != nil {
		return err
	}
	if b.SampleCount > 0 {
		b.Entries = make([]TrunEntry, b.SampleCount)
		for i := range b.Entries {
			if err := b.Entries[i].UnmarshalField(r, b.FullBox); err != nil {
				return err
			}
		}
	}
	return nil
}

/*************************** udta ****************************/

// Udta is ISOBMFF udta box type.
type Udta struct{}

// Type returns the BoxType.
func (*Udta) Type() BoxType {
	return [4]byte{'u', 'd', 't', 'a'}
}

// Size returns the marshaled size in bytes.
func (b *Udta) Size() int {
	return 0
}

// Marshal is never called.
func (b *Udta) Marshal(w *bitio.Writer) error { return nil }

// Unmarshal is a no-op, children are parsed by the container loop.
func (b *Udta) Unmarshal(r *bitio.Reader, _ uint64) error { return nil }

/*************************** vmhd ****************************/

// Vmhd is ISOBMFF vmhd box type.
type Vmhd struct {
	FullBox
	Graphicsmode uint16    // template=0
	Opcolor      [3]uint16 // template={0, 0, 0}
}

// Type returns the BoxType.
func (*Vmhd) Type() BoxType {
	return [4]byte{'v', 'm', 'h', 'd'}
}

// Size returns the marshaled size in bytes.
func (b *Vmhd) Size() int {
	return 12
}

// Marshal box to writer.
func (b *Vmhd) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint16(b.Graphicsmode)
	for _, color := range b.Opcolor {
		w.TryWriteUint16(color)
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Vmhd) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.Graphicsmode = r.TryReadUint16()
	for i := range b.Opcolor {
		b.Opcolor[i] = r.TryReadUint16()
	}
	return r.TryError
}

// readCString reads a null-terminated string of at most max bytes,
// terminator included.
func readCString(r *bitio.Reader, max uint64) (string, error) {
	var buf []byte
	for i := uint64(0); i < max; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if c == 0 {
			return string(buf), nil
		}
		buf = append(buf, c)
	}
	return "", fmt.Errorf("%w: unterminated string", ErrInvalidData)
}
