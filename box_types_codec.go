package mp4

import (
	"fmt"

	"mp4/bitio"
)

/*********************** SampleEntry *************************/

// SampleEntry .
type SampleEntry struct {
	DataReferenceIndex uint16
}

// Marshal entry to buffer.
func (b *SampleEntry) Marshal(w *bitio.Writer) error {
	w.TryWriteZeros(6) // Reserved.
	w.TryWriteUint16(b.DataReferenceIndex)
	return w.TryError
}

// Unmarshal entry from reader.
func (b *SampleEntry) Unmarshal(r *bitio.Reader) error {
	if err := r.Skip(6); err != nil { // Reserved.
		return err
	}
	b.DataReferenceIndex = r.TryReadUint16()
	return r.TryError
}

/********************* VisualSampleEntry *********************/

// VisualSampleEntry is the fixed part shared by the coded video
// sample entries. Codec configuration boxes follow as children.
type VisualSampleEntry struct {
	SampleEntry
	PreDefined      uint16
	Reserved        uint16
	PreDefined2     [3]uint32
	Width           uint16
	Height          uint16
	Horizresolution uint32
	Vertresolution  uint32
	Reserved2       uint32
	FrameCount      uint16
	Compressorname  [32]byte
	Depth           uint16
	PreDefined3     int16
}

// FieldSize returns the marshaled size in bytes.
func (b *VisualSampleEntry) FieldSize() int {
	return 78
}

// MarshalField entry to buffer.
func (b *VisualSampleEntry) MarshalField(w *bitio.Writer) error {
	err := b.SampleEntry.Marshal(w)
	if err != nil {
		return err
	}
	w.TryWriteUint16(b.PreDefined)
	w.TryWriteUint16(b.Reserved)
	for _, preDefined := range b.PreDefined2 {
		w.TryWriteUint32(preDefined)
	}
	w.TryWriteUint16(b.Width)
	w.TryWriteUint16(b.Height)
	w.TryWriteUint32(b.Horizresolution)
	w.TryWriteUint32(b.Vertresolution)
	w.TryWriteUint32(b.Reserved2)
	w.TryWriteUint16(b.FrameCount)
	w.TryWrite(b.Compressorname[:])
	w.TryWriteUint16(b.Depth)
	w.TryWriteUint16(uint16(b.PreDefined3))
	return w.TryError
}

// UnmarshalField entry from reader.
func (b *VisualSampleEntry) UnmarshalField(r *bitio.Reader) error {
	if err := b.SampleEntry.Unmarshal(r); err != nil {
		return err
	}
	b.PreDefined = r.TryReadUint16()
	b.Reserved = r.TryReadUint16()
	for i := range b.PreDefined2 {
		b.PreDefined2[i] = r.TryReadUint32()
	}
	b.Width = r.TryReadUint16()
	b.Height = r.TryReadUint16()
	b.Horizresolution = r.TryReadUint32()
	b.Vertresolution = r.TryReadUint32()
	b.Reserved2 = r.TryReadUint32()
	b.FrameCount = r.TryReadUint16()
	r.TryReadFull(b.Compressorname[:])
	b.Depth = r.TryReadUint16()
	b.PreDefined3 = int16(r.TryReadUint16())
	return r.TryError
}

/*********************** avc1 *************************/

// Avc1 is ISOBMFF AVC box type.
type Avc1 struct {
	VisualSampleEntry
}

// Type returns the BoxType.
func (*Avc1) Type() BoxType {
	return [4]byte{'a', 'v', 'c', '1'}
}

// Size returns the marshaled size in bytes.
func (b *Avc1) Size() int {
	return b.VisualSampleEntry.FieldSize()
}

// Marshal box to writer.
func (b *Avc1) Marshal(w *bitio.Writer) error {
	return b.VisualSampleEntry.MarshalField(w)
}

// Unmarshal box from reader.
func (b *Avc1) Unmarshal(r *bitio.Reader, _ uint64) error {
	return b.VisualSampleEntry.UnmarshalField(r)
}

/*********************** hev1 *************************/

// Hev1 is ISOBMFF HEVC box type.
type Hev1 struct {
	VisualSampleEntry
}

// Type returns the BoxType.
func (*Hev1) Type() BoxType {
	return [4]byte{'h', 'e', 'v', '1'}
}

// Size returns the marshaled size in bytes.
func (b *Hev1) Size() int {
	return b.VisualSampleEntry.FieldSize()
}

// Marshal box to writer.
func (b *Hev1) Marshal(w *bitio.Writer) error {
	return b.VisualSampleEntry.MarshalField(w)
}

// Unmarshal box from reader.
func (b *Hev1) Unmarshal(r *bitio.Reader, _ uint64) error {
	return b.VisualSampleEntry.UnmarshalField(r)
}

/*********************** av01 *************************/

// Av01 is the AV1 sample entry.
type Av01 struct {
	VisualSampleEntry
}

// Type returns the BoxType.
func (*Av01) Type() BoxType {
	return [4]byte{'a', 'v', '0', '1'}
}

// Size returns the marshaled size in bytes.
func (b *Av01) Size() int {
	return b.VisualSampleEntry.FieldSize()
}

// Marshal box to writer.
func (b *Av01) Marshal(w *bitio.Writer) error {
	return b.VisualSampleEntry.MarshalField(w)
}

// Unmarshal box from reader.
func (b *Av01) Unmarshal(r *bitio.Reader, _ uint64) error {
	return b.VisualSampleEntry.UnmarshalField(r)
}

/*********************** mp4a *************************/

// Mp4a ?
type Mp4a struct {
	SampleEntry
	EntryVersion uint16
	Reserved     [3]uint16
	ChannelCount uint16
	SampleSize   uint16
	PreDefined   uint16
	Reserved2    uint16
	SampleRate   uint32
}

// Type returns the BoxType.
func (*Mp4a) Type() BoxType {
	return [4]byte{'m', 'p', '4', 'a'}
}

// Size returns the marshaled size in bytes.
func (b *Mp4a) Size() int {
	return 28
}

// Marshal box to writer.
func (b *Mp4a) Marshal(w *bitio.Writer) error {
	err := b.SampleEntry.Marshal(w)
	if err != nil {
		return err
	}
	w.TryWriteUint16(b.EntryVersion)
	for _, reserved := range b.Reserved {
		w.TryWriteUint16(reserved)
	}
	w.TryWriteUint16(b.ChannelCount)
	w.TryWriteUint16(b.SampleSize)
	w.TryWriteUint16(b.PreDefined)
	w.TryWriteUint16(b.Reserved2)
	w.TryWriteUint32(b.SampleRate)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Mp4a) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.SampleEntry.Unmarshal(r); err != nil {
		return err
	}
	b.EntryVersion = r.TryReadUint16()
	for i := range b.Reserved {
		b.Reserved[i] = r.TryReadUint16()
	}
	b.ChannelCount = r.TryReadUint16()
	b.SampleSize = r.TryReadUint16()
	b.PreDefined = r.TryReadUint16()
	b.Reserved2 = r.TryReadUint16()
	b.SampleRate = r.TryReadUint32()
	return r.TryError
}

/*********************** Opus *************************/

// Opus is the Opus audio sample entry. The dOps configuration box
// follows as a child.
type Opus struct {
	SampleEntry
	EntryVersion uint16
	Reserved     [3]uint16
	ChannelCount uint16
	SampleSize   uint16
	PreDefined   uint16
	Reserved2    uint16
	SampleRate   uint32
}

// Type returns the BoxType.
func (*Opus) Type() BoxType {
	return [4]byte{'O', 'p', 'u', 's'}
}

// Size returns the marshaled size in bytes.
func (b *Opus) Size() int {
	return 28
}

// Marshal box to writer.
func (b *Opus) Marshal(w *bitio.Writer) error {
	err := b.SampleEntry.Marshal(w)
	if err != nil {
		return err
	}
	w.TryWriteUint16(b.EntryVersion)
	for _, reserved := range b.Reserved {
		w.TryWriteUint16(reserved)
	}
	w.TryWriteUint16(b.ChannelCount)
	w.TryWriteUint16(b.SampleSize)
	w.TryWriteUint16(b.PreDefined)
	w.TryWriteUint16(b.Reserved2)
	w.TryWriteUint32(b.SampleRate)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Opus) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.SampleEntry.Unmarshal(r); err != nil {
		return err
	}
	b.EntryVersion = r.TryReadUint16()
	for i := range b.Reserved {
		b.Reserved[i] = r.TryReadUint16()
	}
	b.ChannelCount = r.TryReadUint16()
	b.SampleSize = r.TryReadUint16()
	b.PreDefined = r.TryReadUint16()
	b.Reserved2 = r.TryReadUint16()
	b.SampleRate = r.TryReadUint32()
	return r.TryError
}

/**************** AVCDecoderConfiguration ****************.*/
const (
	AVCBaselineProfile uint8 = 66  // 0x42
	AVCMainProfile     uint8 = 77  // 0x4d
	AVCExtendedProfile uint8 = 88  // 0x58
	AVCHighProfile     uint8 = 100 // 0x64
	AVCHigh10Profile   uint8 = 110 // 0x6e
	AVCHigh422Profile  uint8 = 122 // 0x7a
)

// AVCParameterSet .
type AVCParameterSet struct {
	Length  uint16
	NALUnit []byte
}

// FieldSize returns the marshaled size in bytes.
func (b *AVCParameterSet) FieldSize() int {
	return len(b.NALUnit) + 2
}

// MarshalField box to writer.
func (b *AVCParameterSet) MarshalField(w *bitio.Writer) error {
	w.TryWriteUint16(b.Length)
	w.TryWrite(b.NALUnit)
	return w.TryError
}

// UnmarshalField box from reader.
func (b *AVCParameterSet) UnmarshalField(r *bitio.Reader) error {
	b.Length = r.TryReadUint16()
	if r.TryError != nil {
		return r.TryError
	}
	b.NALUnit = make([]byte, b.Length)
	return r.ReadFull(b.NALUnit)
}

/*************************** avcC ****************************/

// AvcC is ISOBMFF AVC configuration box type.
type AvcC struct {
	ConfigurationVersion         uint8
	Profile                      uint8
	ProfileCompatibility         uint8
	Level                        uint8
	Reserved                     uint8 // 6 bits.
	LengthSizeMinusOne           uint8 // 2 bits.
	Reserved2                    uint8 // 3 bits.
	NumOfSequenceParameterSets   uint8 // 5 bits.
	SequenceParameterSets        []AVCParameterSet
	NumOfPictureParameterSets    uint8
	PictureParameterSets         []AVCParameterSet
	HighProfileFieldsEnabled     bool
	Reserved3                    uint8 // 6 bits.
	ChromaFormat                 uint8 // 2 bits.
	Reserved4                    uint8 // 5 bits.
	BitDepthLumaMinus8           uint8 // 3 bits.
	Reserved5                    uint8 // 5 bits.
	BitDepthChromaMinus8         uint8 // 3 bits.
	NumOfSequenceParameterSetExt uint8
	SequenceParameterSetsExt     []AVCParameterSet
}

// Type returns the BoxType.
func (*AvcC) Type() BoxType {
	return [4]byte{'a', 'v', 'c', 'C'}
}

// Size returns the marshaled size in bytes.
func (b *AvcC) Size() int {
	total := 7
	for _, sets := range b.SequenceParameterSets {
		total += sets.FieldSize()
	}
	for _, sets := range b.PictureParameterSets {
		total += sets.FieldSize()
	}
	if b.Reserved3 != 0 {
		total += 4
		for _, sets := range b.SequenceParameterSetsExt {
			total += sets.FieldSize()
		}
	}
	return total
}

// Marshal box to writer.
func (b *AvcC) Marshal(w *bitio.Writer) error {
	w.TryWriteByte(b.ConfigurationVersion)
	w.TryWriteByte(b.Profile)
	w.TryWriteByte(b.ProfileCompatibility)
	w.TryWriteByte(b.Level)
	w.TryWriteByte(b.Reserved<<2 | b.LengthSizeMinusOne&0x3)
	w.TryWriteByte(b.Reserved2<<5 | b.NumOfSequenceParameterSets&0x1f)
	for _, sets := range b.SequenceParameterSets {
		err := sets.MarshalField(w)
		if err != nil {
			return err
		}
	}
	w.TryWriteByte(b.NumOfPictureParameterSets)
	for _, sets := range b.PictureParameterSets {
		err := sets.MarshalField(w)
		if err != nil {
			return err
		}
	}
	if b.HighProfileFieldsEnabled &&
		b.Profile != AVCHighProfile &&
		b.Profile != AVCHigh10Profile &&
		b.Profile != AVCHigh422Profile &&
		b.Profile != 144 {
		return fmt.Errorf("%w: avcC profile %d does not carry"+
			" high profile fields", ErrInvalidData, b.Profile)
	}
	if b.Reserved3 != 0 {
		w.TryWriteByte(b.Reserved3<<2 | b.ChromaFormat&0x3)
		w.TryWriteByte(b.Reserved4<<3 | b.BitDepthLumaMinus8&0x7)
		w.TryWriteByte(b.Reserved5<<3 | b.BitDepthChromaMinus8&0x7)
		w.TryWriteByte(b.NumOfSequenceParameterSetExt)
		for _, sets := range b.SequenceParameterSetsExt {
			err := sets.MarshalField(w)
			if err != nil {
				return err
			}
		}
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *AvcC) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	start, err := r.Pos()
	if err != nil {
		return err
	}
	b.ConfigurationVersion = r.TryReadByte()
	b.Profile = r.TryReadByte()
	b.ProfileCompatibility = r.TryReadByte()
	b.Level = r.TryReadByte()
	lengthSize := r.TryReadByte()
	b.Reserved = lengthSize >> 2
	b.LengthSizeMinusOne = lengthSize & 0x3
	numSPS := r.TryReadByte()
	b.Reserved2 = numSPS >> 5
	b.NumOfSequenceParameterSets = numSPS & 0x1f
	if r.TryError != nil {
		return r.TryError
	}
	for i := uint8(0); i < b.NumOfSequenceParameterSets; i++ {
		var set AVCParameterSet
		if err := set.UnmarshalField(r); err != nil {
			return err
		}
		b.SequenceParameterSets = append(b.SequenceParameterSets, set)
	}
	b.NumOfPictureParameterSets = r.TryReadByte()
	if r.TryError != nil {
		return r.TryError
	}
	for i := uint8(0); i < b.NumOfPictureParameterSets; i++ {
		var set AVCParameterSet
		if err := set.UnmarshalField(r); err != nil {
			return err
		}
		b.PictureParameterSets = append(b.PictureParameterSets, set)
	}
	pos, err := r.Pos()
	if err != nil {
		return err
	}
	consumed := pos - start
	if consumed > payloadSize {
		return fmt.Errorf("%w: avcC parameter sets exceed %d payload bytes",
			ErrInvalidData, payloadSize)
	}
	if payloadSize-consumed < 4 {
		return nil
	}
	// High profile extension fields are present.
	b.HighProfileFieldsEnabled = true
	chroma := r.TryReadByte()
	b.Reserved3 = chroma >> 2
	b.ChromaFormat = chroma & 0x3
	luma := r.TryReadByte()
	b.Reserved4 = luma >> 3
	b.BitDepthLumaMinus8 = luma & 0x7
	chromaDepth := r.TryReadByte()
	b.Reserved5 = chromaDepth >> 3
	b.BitDepthChromaMinus8 = chromaDepth & 0x7
	b.NumOfSequenceParameterSetExt = r.TryReadByte()
	if r.TryError != nil {
		return r.TryError
	}
	for i := uint8(0); i < b.NumOfSequenceParameterSetExt; i++ {
		var set AVCParameterSet
		if err := set.UnmarshalField(r); err != nil {
			return err
		}
		b.SequenceParameterSetsExt = append(b.SequenceParameterSetsExt, set)
	}
	return nil
}

/*************************** hvcC ****************************/

// HEVCNalu is a length-prefixed NAL unit inside a hvcC array.
type HEVCNalu struct {
	Length  uint16
	NALUnit []byte
}

// HEVCNaluArray is one NAL unit array of the HEVC decoder
// configuration record.
type HEVCNaluArray struct {
	Completeness bool
	NaluType     uint8 // 6 bits.
	Nalus        []HEVCNalu
}

// FieldSize returns the marshaled size in bytes.
func (a *HEVCNaluArray) FieldSize() int {
	total := 3
	for _, nalu := range a.Nalus {
		total += 2 + len(nalu.NALUnit)
	}
	return total
}

// HvcC is the HEVC decoder configuration box.
type HvcC struct {
	ConfigurationVersion        uint8
	GeneralProfileSpace         uint8 // 2 bits.
	GeneralTierFlag             bool
	GeneralProfileIdc           uint8 // 5 bits.
	GeneralProfileCompatibility uint32
	GeneralConstraintIndicator  [6]byte
	GeneralLevelIdc             uint8
	MinSpatialSegmentationIdc   uint16 // 12 bits.
	ParallelismType             uint8  // 2 bits.
	ChromaFormatIdc             uint8  // 2 bits.
	BitDepthLumaMinus8          uint8  // 3 bits.
	BitDepthChromaMinus8        uint8  // 3 bits.
	AvgFrameRate                uint16
	ConstantFrameRate           uint8 // 2 bits.
	NumTemporalLayers           uint8 // 3 bits.
	TemporalIDNested            bool
	LengthSizeMinusOne          uint8 // 2 bits.
	NaluArrays                  []HEVCNaluArray
}

// Type returns the BoxType.
func (*HvcC) Type() BoxType {
	return [4]byte{'h', 'v', 'c', 'C'}
}

// Size returns the marshaled size in bytes.
func (b *HvcC) Size() int {
	total := 23
	for i := range b.NaluArrays {
		total += b.NaluArrays[i].FieldSize()
	}
	return total
}

// Marshal box to writer.
func (b *HvcC) Marshal(w *bitio.Writer) error {
	w.TryWriteByte(b.ConfigurationVersion)
	profile := b.GeneralProfileSpace << 6
	if b.GeneralTierFlag {
		profile |= 0x20
	}
	profile |= b.GeneralProfileIdc & 0x1f
	w.TryWriteByte(profile)
	w.TryWriteUint32(b.GeneralProfileCompatibility)
	w.TryWrite(b.GeneralConstraintIndicator[:])
	w.TryWriteByte(b.GeneralLevelIdc)
	w.TryWriteUint16(0xf000 | b.MinSpatialSegmentationIdc&0xfff)
	w.TryWriteByte(0xfc | b.ParallelismType&0x3)
	w.TryWriteByte(0xfc | b.ChromaFormatIdc&0x3)
	w.TryWriteByte(0xf8 | b.BitDepthLumaMinus8&0x7)
	w.TryWriteByte(0xf8 | b.BitDepthChromaMinus8&0x7)
	w.TryWriteUint16(b.AvgFrameRate)
	misc := b.ConstantFrameRate<<6 | b.NumTemporalLayers&0x7<<3
	if b.TemporalIDNested {
		misc |= 0x4
	}
	misc |= b.LengthSizeMinusOne & 0x3
	w.TryWriteByte(misc)
	w.TryWriteByte(uint8(len(b.NaluArrays)))
	for i := range b.NaluArrays {
		array := &b.NaluArrays[i]
		head := array.NaluType & 0x3f
		if array.Completeness {
			head |= 0x80
		}
		w.TryWriteByte(head)
		w.TryWriteUint16(uint16(len(array.Nalus)))
		for _, nalu := range array.Nalus {
			w.TryWriteUint16(nalu.Length)
			w.TryWrite(nalu.NALUnit)
		}
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *HvcC) Unmarshal(r *bitio.Reader, _ uint64) error {
	b.ConfigurationVersion = r.TryReadByte()
	profile := r.TryReadByte()
	b.GeneralProfileSpace = profile >> 6
	b.GeneralTierFlag = profile&0x20 != 0
	b.GeneralProfileIdc = profile & 0x1f
	b.GeneralProfileCompatibility = r.TryReadUint32()
	r.TryReadFull(b.GeneralConstraintIndicator[:])
	b.GeneralLevelIdc = r.TryReadByte()
	b.MinSpatialSegmentationIdc = r.TryReadUint16() & 0xfff
	b.ParallelismType = r.TryReadByte() & 0x3
	b.ChromaFormatIdc = r.TryReadByte() & 0x3
	b.BitDepthLumaMinus8 = r.TryReadByte() & 0x7
	b.BitDepthChromaMinus8 = r.TryReadByte() & 0x7
	b.AvgFrameRate = r.TryReadUint16()
	misc := r.TryReadByte()
	b.ConstantFrameRate = misc >> 6
	b.NumTemporalLayers = misc >> 3 & 0x7
	b.TemporalIDNested = misc&0x4 != 0
	b.LengthSizeMinusOne = misc & 0x3
	numArrays := r.TryReadByte()
	if r.TryError != nil {
		return r.TryError
	}
	for i := uint8(0); i < numArrays; i++ {
		var array HEVCNaluArray
		head := r.TryReadByte()
		array.Completeness = head&0x80 != 0
		array.NaluType = head & 0x3f
		numNalus := r.TryReadUint16()
		if r.TryError != nil {
			return r.TryError
		}
		for j := uint16(0); j < numNalus; j++ {
			var nalu HEVCNalu
			nalu.Length = r.TryReadUint16()
			if r.TryError != nil {
				return r.TryError
			}
			nalu.NALUnit = make([]byte, nalu.Length)
			if err := r.ReadFull(nalu.NALUnit); err != nil {
				return err
			}
			array.Nalus = append(array.Nalus, nalu)
		}
		b.NaluArrays = append(b.NaluArrays, array)
	}
	return nil
}

/*************************** av1C ****************************/

// Av1C is the AV1 codec configuration box.
type Av1C struct {
	SeqProfile                       uint8 // 3 bits.
	SeqLevelIdx0                     uint8 // 5 bits.
	SeqTier0                         uint8 // 1 bit.
	HighBitdepth                     bool
	TwelveBit                        bool
	Monochrome                       bool
	ChromaSubsamplingX               uint8 // 1 bit.
	ChromaSubsamplingY               uint8 // 1 bit.
	ChromaSamplePosition             uint8 // 2 bits.
	InitialPresentationDelayPresent  bool
	InitialPresentationDelayMinusOne uint8 // 4 bits.
	ConfigOBUs                       []byte
}

// av1CMarkerVersion is the fixed first byte, marker=1 version=1.
const av1CMarkerVersion = 0x81

// Type returns the BoxType.
func (*Av1C) Type() BoxType {
	return [4]byte{'a', 'v', '1', 'C'}
}

// Size returns the marshaled size in bytes.
func (b *Av1C) Size() int {
	return 4 + len(b.ConfigOBUs)
}

// Marshal box to writer.
func (b *Av1C) Marshal(w *bitio.Writer) error {
	w.TryWriteByte(av1CMarkerVersion)
	w.TryWriteByte(b.SeqProfile<<5 | b.SeqLevelIdx0&0x1f)
	flags := b.SeqTier0 << 7
	if b.HighBitdepth {
		flags |= 0x40
	}
	if b.TwelveBit {
		flags |= 0x20
	}
	if b.Monochrome {
		flags |= 0x10
	}
	flags |= b.ChromaSubsamplingX & 0x1 << 3
	flags |= b.ChromaSubsamplingY & 0x1 << 2
	flags |= b.ChromaSamplePosition & 0x3
	w.TryWriteByte(flags)
	if b.InitialPresentationDelayPresent {
		w.TryWriteByte(0x10 | b.InitialPresentationDelayMinusOne&0xf)
	} else {
		w.TryWriteByte(0)
	}
	w.TryWrite(b.ConfigOBUs)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Av1C) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if payloadSize < 4 {
		return fmt.Errorf("%w: av1C payload too short", ErrInvalidData)
	}
	head := r.TryReadByte()
	seq := r.TryReadByte()
	flags := r.TryReadByte()
	delay := r.TryReadByte()
	if r.TryError != nil {
		return r.TryError
	}
	if head != av1CMarkerVersion {
		return fmt.Errorf("%w: unsupported av1C marker/version 0x%02x",
			ErrInvalidData, head)
	}
	b.SeqProfile = seq >> 5
	b.SeqLevelIdx0 = seq & 0x1f
	b.SeqTier0 = flags >> 7
	b.HighBitdepth = flags&0x40 != 0
	b.TwelveBit = flags&0x20 != 0
	b.Monochrome = flags&0x10 != 0
	b.ChromaSubsamplingX = flags >> 3 & 0x1
	b.ChromaSubsamplingY = flags >> 2 & 0x1
	b.ChromaSamplePosition = flags & 0x3
	b.InitialPresentationDelayPresent = delay&0x10 != 0
	if b.InitialPresentationDelayPresent {
		b.InitialPresentationDelayMinusOne = delay & 0xf
	}
	if payloadSize > 4 {
		b.ConfigOBUs = make([]byte, payloadSize-4)
		if err := r.ReadFull(b.ConfigOBUs); err != nil {
			return err
		}
	}
	return nil
}

/*************************** dOps ****************************/

// DOps is the Opus decoder configuration box.
type DOps struct {
	Version              uint8
	OutputChannelCount   uint8
	PreSkip              uint16
	InputSampleRate      uint32
	OutputGain           int16
	ChannelMappingFamily uint8
	// Present only when ChannelMappingFamily is not 0.
	StreamCount    uint8
	CoupledCount   uint8
	ChannelMapping []byte
}

// Type returns the BoxType.
func (*DOps) Type() BoxType {
	return [4]byte{'d', 'O', 'p', 's'}
}

// Size returns the marshaled size in bytes.
func (b *DOps) Size() int {
	total := 11
	if b.ChannelMappingFamily != 0 {
		total += 2 + len(b.ChannelMapping)
	}
	return total
}

// Marshal box to writer.
func (b *DOps) Marshal(w *bitio.Writer) error {
	w.TryWriteByte(b.Version)
	w.TryWriteByte(b.OutputChannelCount)
	w.TryWriteUint16(b.PreSkip)
	w.TryWriteUint32(b.InputSampleRate)
	w.TryWriteUint16(uint16(b.OutputGain))
	w.TryWriteByte(b.ChannelMappingFamily)
	if b.ChannelMappingFamily != 0 {
		w.TryWriteByte(b.StreamCount)
		w.TryWriteByte(b.CoupledCount)
		w.TryWrite(b.ChannelMapping)
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *DOps) Unmarshal(r *bitio.Reader, _ uint64) error {
	b.Version = r.TryReadByte()
	b.OutputChannelCount = r.TryReadByte()
	b.PreSkip = r.TryReadUint16()
	b.InputSampleRate = r.TryReadUint32()
	b.OutputGain = int16(r.TryReadUint16())
	b.ChannelMappingFamily = r.TryReadByte()
	if r.TryError != nil {
		return r.TryError
	}
	if b.ChannelMappingFamily != 0 {
		b.StreamCount = r.TryReadByte()
		b.CoupledCount = r.TryReadByte()
		if r.TryError != nil {
			return r.TryError
		}
		b.ChannelMapping = make([]byte, b.OutputChannelCount)
		if err := r.ReadFull(b.ChannelMapping); err != nil {
			return err
		}
	}
	return nil
}

/*************************** esds ****************************/

// Esds carries the MPEG-4 elementary stream descriptor chain.
type Esds struct {
	FullBox
	ESID                 uint16
	ObjectTypeIndication uint8
	StreamType           uint8
	BufferSizeDB         uint32 // 24 bits.
	MaxBitrate           uint32
	AvgBitrate           uint32
	DecSpecificInfo      []byte
}

// descrHdrSize is DescrHeaderSize for lengths known to be in range.
func descrHdrSize(length uint32) int {
	n, err := DescrHeaderSize(length)
	if err != nil {
		return 5
	}
	return n
}

func (b *Esds) descrLengths() (esLen, decConfigLen, decSpecLen uint32) {
	decSpecLen = uint32(len(b.DecSpecificInfo))
	decConfigLen = uint32(13+descrHdrSize(decSpecLen)) + decSpecLen
	esLen = uint32(3+descrHdrSize(decConfigLen)) + decConfigLen +
		uint32(descrHdrSize(1)) + 1
	return esLen, decConfigLen, decSpecLen
}

// Type returns the BoxType.
func (*Esds) Type() BoxType {
	return [4]byte{'e', 's', 'd', 's'}
}

// Size returns the marshaled size in bytes.
func (b *Esds) Size() int {
	esLen, _, _ := b.descrLengths()
	return 4 + descrHdrSize(esLen) + int(esLen)
}

// Marshal box to writer.
func (b *Esds) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	esLen, decConfigLen, decSpecLen := b.descrLengths()

	if err := WriteDescrHeader(w, ESDescrTag, esLen); err != nil {
		return err
	}
	w.TryWriteUint16(b.ESID)
	w.TryWriteByte(0) // No stream dependence, URL or OCR stream.

	if err := WriteDescrHeader(w, DecoderConfigDescrTag, decConfigLen); err != nil {
		return err
	}
	w.TryWriteByte(b.ObjectTypeIndication)
	w.TryWriteByte(b.StreamType)
	w.TryWriteByte(byte(b.BufferSizeDB >> 16))
	w.TryWriteByte(byte(b.BufferSizeDB >> 8))
	w.TryWriteByte(byte(b.BufferSizeDB))
	w.TryWriteUint32(b.MaxBitrate)
	w.TryWriteUint32(b.AvgBitrate)

	if err := WriteDescrHeader(w, DecSpecificInfoTag, decSpecLen); err != nil {
		return err
	}
	w.TryWrite(b.DecSpecificInfo)

	if err := WriteDescrHeader(w, SLConfigDescrTag, 1); err != nil {
		return err
	}
	w.TryWriteByte(0x02) // Predefined, reserved for use in MP4 files.
	return w.TryError
}

// Unmarshal box from reader. Descriptors are read sequentially;
// unknown tags are skipped over using their declared length.
func (b *Esds) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	if payloadSize < 4 {
		return fmt.Errorf("%w: esds payload too short", ErrInvalidData)
	}
	start, err := r.Pos()
	if err != nil {
		return err
	}
	end := start + payloadSize - 4
	for {
		pos, err := r.Pos()
		if err != nil {
			return err
		}
		if pos >= end {
			break
		}
		tag, length, _, err := ReadDescrHeader(r)
		if err != nil {
			return err
		}
		pos, err = r.Pos()
		if err != nil {
			return err
		}
		if uint64(length) > end-pos {
			return fmt.Errorf(
				"%w: descriptor 0x%02x declares %d bytes but only %d remain",
				ErrInvalidData, tag, length, end-pos)
		}
		switch tag {
		case ESDescrTag:
			b.ESID = r.TryReadUint16()
			flags := r.TryReadByte()
			if r.TryError != nil {
				return r.TryError
			}
			if flags&0x80 != 0 { // Stream dependence.
				if err := r.Skip(2); err != nil {
					return err
				}
			}
			if flags&0x40 != 0 { // URL.
				urlLen, err := r.ReadByte()
				if err != nil {
					return err
				}
				if err := r.Skip(uint64(urlLen)); err != nil {
					return err
				}
			}
			if flags&0x20 != 0 { // OCR stream.
				if err := r.Skip(2); err != nil {
					return err
				}
			}
			// Nested descriptors follow, keep looping.
		case DecoderConfigDescrTag:
			b.ObjectTypeIndication = r.TryReadByte()
			b.StreamType = r.TryReadByte()
			b.BufferSizeDB = uint32(r.TryReadByte())<<16 |
				uint32(r.TryReadByte())<<8 |
				uint32(r.TryReadByte())
			b.MaxBitrate = r.TryReadUint32()
			b.AvgBitrate = r.TryReadUint32()
			if r.TryError != nil {
				return r.TryError
			}
		case DecSpecificInfoTag:
			b.DecSpecificInfo = make([]byte, length)
			if err := r.ReadFull(b.DecSpecificInfo); err != nil {
				return err
			}
		default:
			if err := r.Skip(uint64(length)); err != nil {
				return err
			}
		}
	}
	return nil
}

/*************************** colr ****************************/

// Colr color types.
var (
	ColrTypeNclx = [4]byte{'n', 'c', 'l', 'x'}
	ColrTypeProf = [4]byte{'p', 'r', 'o', 'f'}
)

// Colr is the color information box. The color type is a closed
// enumeration, nclx parameters or a raw ICC profile.
type Colr struct {
	ColorType [4]byte

	// nclx
	ColorPrimaries          uint16
	TransferCharacteristics uint16
	MatrixCoefficients      uint16
	FullRange               bool

	// prof
	Profile []byte
}

// Type returns the BoxType.
func (*Colr) Type() BoxType {
	return [4]byte{'c', 'o', 'l', 'r'}
}

// Size returns the marshaled size in bytes.
func (b *Colr) Size() int {
	if b.ColorType == ColrTypeProf {
		return 4 + len(b.Profile)
	}
	return 11
}

// Marshal box to writer.
func (b *Colr) Marshal(w *bitio.Writer) error {
	switch b.ColorType {
	case ColrTypeNclx:
		w.TryWrite(b.ColorType[:])
		w.TryWriteUint16(b.ColorPrimaries)
		w.TryWriteUint16(b.TransferCharacteristics)
		w.TryWriteUint16(b.MatrixCoefficients)
		if b.FullRange {
			w.TryWriteByte(0x80)
		} else {
			w.TryWriteByte(0)
		}
	case ColrTypeProf:
		w.TryWrite(b.ColorType[:])
		w.TryWrite(b.Profile)
	default:
		return fmt.Errorf("%w: invalid colr color type '%s'",
			ErrInvalidData, string(b.ColorType[:]))
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Colr) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if payloadSize < 4 {
		return fmt.Errorf("%w: colr payload too short", ErrInvalidData)
	}
	r.TryReadFull(b.ColorType[:])
	if r.TryError != nil {
		return r.TryError
	}
	switch b.ColorType {
	case ColrTypeNclx:
		b.ColorPrimaries = r.TryReadUint16()
		b.TransferCharacteristics = r.TryReadUint16()
		b.MatrixCoefficients = r.TryReadUint16()
		b.FullRange = r.TryReadByte()&0x80 != 0
		return r.TryError
	case ColrTypeProf:
		b.Profile = make([]byte, payloadSize-4)
		return r.ReadFull(b.Profile)
	}
	return fmt.Errorf("%w: invalid colr color type '%s'",
		ErrInvalidData, string(b.ColorType[:]))
}

/*************************** pasp ****************************/

// Pasp is the pixel aspect ratio box.
type Pasp struct {
	HSpacing uint32
	VSpacing uint32
}

// Type returns the BoxType.
func (*Pasp) Type() BoxType {
	return [4]byte{'p', 'a', 's', 'p'}
}

// Size returns the marshaled size in bytes.
func (b *Pasp) Size() int {
	return 8
}

// Marshal box to writer.
func (b *Pasp) Marshal(w *bitio.Writer) error {
	w.TryWriteUint32(b.HSpacing)
	w.TryWriteUint32(b.VSpacing)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Pasp) Unmarshal(r *bitio.Reader, _ uint64) error {
	b.HSpacing = r.TryReadUint32()
	b.VSpacing = r.TryReadUint32()
	return r.TryError
}
