// Package cmaf writes CMAF initialization segments and media
// fragments on top of the mp4 box catalog.
package cmaf

import (
	"fmt"

	"mp4"
	"mp4/h264"
)

// TrackType is the kind of elementary stream a track carries.
type TrackType int

// Track types.
const (
	TrackVideo TrackType = iota
	TrackAudio
)

// TrackConfig describes one track of the initialization segment.
type TrackConfig struct {
	TrackType TrackType
	Timescale uint32
	Language  [3]byte // ISO-639-2/T, 'und' when zero.
	Media     MediaConfig
}

// MediaConfig is the codec-specific part of a track configuration.
type MediaConfig interface {
	// sampleEntry builds the stsd child subtree for the codec.
	sampleEntry() (mp4.Boxes, error)

	// dimensions returns the coded size, zero for audio codecs.
	dimensions() (width, height uint16)
}

// AvcConfig configures a H264 video track. Width and height are taken
// as given when non-zero, otherwise they are derived from the
// sequence parameter set.
type AvcConfig struct {
	Width  uint16
	Height uint16
	SPS    []byte
	PPS    []byte

	// Optional btrt hints, omitted when both are zero.
	MaxBitrate uint32
	AvgBitrate uint32
}

func (c *AvcConfig) params() (*AvcConfig, error) {
	if c.Width != 0 && c.Height != 0 {
		return c, nil
	}
	if len(c.SPS) < 4 {
		return nil, fmt.Errorf("avc config: %w", h264.ErrSPSBufferTooShort)
	}
	var spsp h264.SPS
	if err := spsp.Unmarshal(c.SPS); err != nil {
		return nil, fmt.Errorf("parse sps: %w", err)
	}
	out := *c
	if out.Width == 0 {
		out.Width = uint16(spsp.Width())
	}
	if out.Height == 0 {
		out.Height = uint16(spsp.Height())
	}
	return &out, nil
}

func (c *AvcConfig) dimensions() (uint16, uint16) {
	p, err := c.params()
	if err != nil {
		return c.Width, c.Height
	}
	return p.Width, p.Height
}

func (c *AvcConfig) sampleEntry() (mp4.Boxes, error) {
	p, err := c.params()
	if err != nil {
		return mp4.Boxes{}, err
	}
	avc1 := &mp4.Avc1{
		VisualSampleEntry: visualSampleEntry(p.Width, p.Height),
	}
	avcc := &mp4.AvcC{
		ConfigurationVersion:       1,
		Profile:                    c.SPS[1],
		ProfileCompatibility:       c.SPS[2],
		Level:                      c.SPS[3],
		LengthSizeMinusOne:         3,
		NumOfSequenceParameterSets: 1,
		SequenceParameterSets: []mp4.AVCParameterSet{
			{Length: uint16(len(c.SPS)), NALUnit: c.SPS},
		},
		NumOfPictureParameterSets: 1,
		PictureParameterSets: []mp4.AVCParameterSet{
			{Length: uint16(len(c.PPS)), NALUnit: c.PPS},
		},
	}
	entry := mp4.Boxes{
		Box: avc1,
		Children: []mp4.Boxes{
			{Box: avcc},
		},
	}
	if c.MaxBitrate != 0 || c.AvgBitrate != 0 {
		entry.Children = append(entry.Children, mp4.Boxes{
			Box: &mp4.Btrt{
				MaxBitrate: c.MaxBitrate,
				AvgBitrate: c.AvgBitrate,
			},
		})
	}
	return entry, nil
}

// HevcConfig configures a H265 video track from a prebuilt decoder
// configuration record.
type HevcConfig struct {
	Width  uint16
	Height uint16
	HvcC   mp4.HvcC
}

func (c *HevcConfig) dimensions() (uint16, uint16) {
	return c.Width, c.Height
}

func (c *HevcConfig) sampleEntry() (mp4.Boxes, error) {
	hvcc := c.HvcC
	return mp4.Boxes{
		Box: &mp4.Hev1{
			VisualSampleEntry: visualSampleEntry(c.Width, c.Height),
		},
		Children: []mp4.Boxes{
			{Box: &hvcc},
		},
	}, nil
}

// Av1Config configures an AV1 video track from a prebuilt codec
// configuration record.
type Av1Config struct {
	Width  uint16
	Height uint16
	Av1C   mp4.Av1C
}

func (c *Av1Config) dimensions() (uint16, uint16) {
	return c.Width, c.Height
}

func (c *Av1Config) sampleEntry() (mp4.Boxes, error) {
	av1c := c.Av1C
	return mp4.Boxes{
		Box: &mp4.Av01{
			VisualSampleEntry: visualSampleEntry(c.Width, c.Height),
		},
		Children: []mp4.Boxes{
			{Box: &av1c},
		},
	}, nil
}

// AacConfig configures an AAC audio track.
type AacConfig struct {
	SampleRate      uint32
	ChannelCount    uint16
	DecSpecificInfo []byte // AudioSpecificConfig.
	MaxBitrate      uint32
	AvgBitrate      uint32
}

// MPEG-4 audio object type and stream type used in the esds chain.
// The stream type byte packs streamType<<2 with the reserved bit set.
const (
	objectTypeAudioISO14496_3 = 0x40
	streamTypeAudio           = 0x05
)

func (*AacConfig) dimensions() (uint16, uint16) {
	return 0, 0
}

func (c *AacConfig) sampleEntry() (mp4.Boxes, error) {
	mp4a := &mp4.Mp4a{
		SampleEntry: mp4.SampleEntry{
			DataReferenceIndex: 1,
		},
		ChannelCount: c.ChannelCount,
		SampleSize:   16,
		SampleRate:   c.SampleRate << 16,
	}
	esds := &mp4.Esds{
		ESID:                 0,
		ObjectTypeIndication: objectTypeAudioISO14496_3,
		StreamType:           streamTypeAudio<<2 | 0x01,
		MaxBitrate:           c.MaxBitrate,
		AvgBitrate:           c.AvgBitrate,
		DecSpecificInfo:      c.DecSpecificInfo,
	}
	return mp4.Boxes{
		Box: mp4a,
		Children: []mp4.Boxes{
			{Box: esds},
		},
	}, nil
}

// OpusConfig configures an Opus audio track from a prebuilt decoder
// configuration record.
type OpusConfig struct {
	SampleRate   uint32
	ChannelCount uint16
	DOps         mp4.DOps
}

func (*OpusConfig) dimensions() (uint16, uint16) {
	return 0, 0
}

func (c *OpusConfig) sampleEntry() (mp4.Boxes, error) {
	dops := c.DOps
	return mp4.Boxes{
		Box: &mp4.Opus{
			SampleEntry: mp4.SampleEntry{
				DataReferenceIndex: 1,
			},
			ChannelCount: c.ChannelCount,
			SampleSize:   16,
			SampleRate:   c.SampleRate << 16,
		},
		Children: []mp4.Boxes{
			{Box: &dops},
		},
	}, nil
}

func visualSampleEntry(width, height uint16) mp4.VisualSampleEntry {
	return mp4.VisualSampleEntry{
		SampleEntry: mp4.SampleEntry{
			DataReferenceIndex: 1,
		},
		Width:           width,
		Height:          height,
		Horizresolution: 4718592, // 72 dpi.
		Vertresolution:  4718592,
		FrameCount:      1,
		Depth:           24,
		PreDefined3:     -1,
	}
}

// FragmentConfig carries the per-fragment track defaults.
type FragmentConfig struct {
	Timescale             uint32
	DefaultSampleDuration uint32
	DefaultSampleSize     uint32
	DefaultSampleFlags    uint32

	// Optional producer reference time emitted before the fragment.
	ProducerReferenceTime *ProducerReferenceTime
}

// ProducerReferenceTime ties an NTP wall clock timestamp to a media
// time on the fragment's track.
type ProducerReferenceTime struct {
	NTPTimestamp uint64
	MediaTime    uint64
}

// Sample is one decodable unit of media handed to a fragment writer.
type Sample struct {
	// StartTime is the decode time in track timescale units.
	StartTime uint64

	// Duration in track timescale units.
	Duration uint32

	// RenderingOffset is the composition time offset.
	RenderingOffset int32

	// IsSync reports whether the sample can be decoded independently.
	IsSync bool

	Data []byte
}
