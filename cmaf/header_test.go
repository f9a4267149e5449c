package cmaf

import (
	"bytes"
	"testing"

	"mp4"

	"github.com/stretchr/testify/require"
)

var testSPS = []byte{
	103, 100, 0, 22, 172, 217, 64, 164,
	59, 228, 136, 192, 68, 0, 0, 3,
	0, 4, 0, 0, 3, 0, 96, 60,
	88, 182, 88,
}

var testPPS = []byte{0x68, 0xce, 0x3c, 0x80}

func TestAvcConfigDimensions(t *testing.T) {
	config := AvcConfig{SPS: testSPS, PPS: testPPS}
	width, height := config.dimensions()
	require.Equal(t, uint16(650), width)
	require.Equal(t, uint16(450), height)

	// Explicit values win over the parameter set.
	config.Width = 1280
	config.Height = 720
	width, height = config.dimensions()
	require.Equal(t, uint16(1280), width)
	require.Equal(t, uint16(720), height)
}

func TestHeaderWriter(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	h, err := NewHeaderWriter(buf, HeaderConfig{
		MajorBrand:   [4]byte{'i', 's', 'o', '6'},
		MinorVersion: 1,
		CompatibleBrands: [][4]byte{
			{'i', 's', 'o', '6'},
			{'c', 'm', 'f', 'c'},
		},
		Timescale: 1000,
	})
	require.NoError(t, err)

	videoID, err := h.AddTrack(TrackConfig{
		TrackType: TrackVideo,
		Timescale: 90000,
		Media:     &AvcConfig{SPS: testSPS, PPS: testPPS},
	})
	require.NoError(t, err)
	require.Equal(t, uint32(1), videoID)

	audioID, err := h.AddTrack(TrackConfig{
		TrackType: TrackAudio,
		Timescale: 48000,
		Media: &AacConfig{
			SampleRate:      48000,
			ChannelCount:    2,
			DecSpecificInfo: []byte{0x11, 0x90},
		},
	})
	require.NoError(t, err)
	require.Equal(t, uint32(2), audioID)

	require.NoError(t, h.AddDuration(videoID, 90000))
	require.NoError(t, h.AddDuration(audioID, 48000))
	require.Error(t, h.AddDuration(9, 1))

	require.NoError(t, h.WriteEnd())

	boxes := parseBoxes(t, buf.Bytes())
	require.Len(t, boxes, 2)

	ftyp, ok := boxes[0].Box.(*mp4.Ftyp)
	require.True(t, ok)
	require.Equal(t, [4]byte{'i', 's', 'o', '6'}, ftyp.MajorBrand)
	require.Equal(t, []mp4.CompatibleBrandElem{
		{CompatibleBrand: [4]byte{'i', 's', 'o', '6'}},
		{CompatibleBrand: [4]byte{'c', 'm', 'f', 'c'}},
	}, ftyp.CompatibleBrands)

	moov := boxes[1]
	require.Equal(t, (&mp4.Moov{}).Type(), moov.Box.Type())

	mvhd := moov.Children[0].Box.(*mp4.Mvhd)
	require.Equal(t, uint32(1000), mvhd.Timescale)
	require.Equal(t, uint32(1000), mvhd.DurationV0) // Both tracks last 1s.
	require.Equal(t, int32(0x00010000), mvhd.Rate)
	require.Equal(t, int16(0x0100), mvhd.Volume)
	require.Equal(t, uint32(3), mvhd.NextTrackID)

	video := moov.Children[1]
	require.Equal(t, (&mp4.Trak{}).Type(), video.Box.Type())

	tkhd := video.FindType((&mp4.Tkhd{}).Type()).Box.(*mp4.Tkhd)
	require.Equal(t, uint32(1), tkhd.TrackID)
	require.Equal(t, uint32(1000), tkhd.DurationV0)
	require.Equal(t, uint32(650)<<16, tkhd.Width)
	require.Equal(t, uint32(450)<<16, tkhd.Height)
	require.Equal(t, int16(0), tkhd.Volume)

	mdhd := video.FindType((&mp4.Mdhd{}).Type()).Box.(*mp4.Mdhd)
	require.Equal(t, uint32(90000), mdhd.Timescale)
	require.Equal(t, uint32(90000), mdhd.DurationV0)
	require.Equal(t, [3]byte{'u', 'n', 'd'}, mdhd.Language)

	hdlr := video.FindType((&mp4.Hdlr{}).Type()).Box.(*mp4.Hdlr)
	require.Equal(t, [4]byte{'v', 'i', 'd', 'e'}, hdlr.HandlerType)
	require.Equal(t, "VideoHandler", hdlr.Name)

	require.NotNil(t, video.FindType((&mp4.Vmhd{}).Type()))

	avcc := video.FindType((&mp4.AvcC{}).Type()).Box.(*mp4.AvcC)
	require.Equal(t, uint8(100), avcc.Profile)
	require.Equal(t, uint8(22), avcc.Level)
	require.Len(t, avcc.SequenceParameterSets, 1)
	require.Equal(t, testSPS, avcc.SequenceParameterSets[0].NALUnit)
	require.Len(t, avcc.PictureParameterSets, 1)
	require.Equal(t, testPPS, avcc.PictureParameterSets[0].NALUnit)

	audio := moov.Children[2]
	atkhd := audio.FindType((&mp4.Tkhd{}).Type()).Box.(*mp4.Tkhd)
	require.Equal(t, uint32(2), atkhd.TrackID)
	require.Equal(t, int16(256), atkhd.Volume)
	require.Equal(t, int16(1), atkhd.AlternateGroup)

	ahdlr := audio.FindType((&mp4.Hdlr{}).Type()).Box.(*mp4.Hdlr)
	require.Equal(t, [4]byte{'s', 'o', 'u', 'n'}, ahdlr.HandlerType)
	require.Equal(t, "SoundHandler", ahdlr.Name)

	require.NotNil(t, audio.FindType((&mp4.Smhd{}).Type()))

	mp4a := audio.FindType((&mp4.Mp4a{}).Type()).Box.(*mp4.Mp4a)
	require.Equal(t, uint16(2), mp4a.ChannelCount)
	require.Equal(t, uint32(48000)<<16, mp4a.SampleRate)

	esds := audio.FindType((&mp4.Esds{}).Type()).Box.(*mp4.Esds)
	require.Equal(t, uint8(0x40), esds.ObjectTypeIndication)
	require.Equal(t, uint8(0x15), esds.StreamType)
	require.Equal(t, []byte{0x11, 0x90}, esds.DecSpecificInfo)

	mvex := moov.Children[3]
	require.Equal(t, (&mp4.Mvex{}).Type(), mvex.Box.Type())

	mehd := mvex.FindType((&mp4.Mehd{}).Type()).Box.(*mp4.Mehd)
	require.Equal(t, uint32(1000), mehd.FragmentDurationV0)

	require.Len(t, mvex.Children, 3)
	for i, trackID := range []uint32{1, 2} {
		trex := mvex.Children[i+1].Box.(*mp4.Trex)
		require.Equal(t, trackID, trex.TrackID)
		require.Equal(t, uint32(1), trex.DefaultSampleDescriptionIndex)
	}
}

func TestHeaderClosed(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	h, err := NewHeaderWriter(buf, HeaderConfig{Timescale: 1000})
	require.NoError(t, err)
	require.NoError(t, h.WriteEnd())

	_, err = h.AddTrack(TrackConfig{})
	require.ErrorIs(t, err, ErrHeaderClosed)
	require.ErrorIs(t, h.AddDuration(1, 1), ErrHeaderClosed)
	require.ErrorIs(t, h.WriteEnd(), ErrHeaderClosed)
}

// TestHeaderAndFragment concatenates an initialization segment with one
// fragment and checks that sample timing and sync flags survive the
// trip through the encoded bytes.
func TestHeaderAndFragment(t *testing.T) {
	buf := bytes.NewBuffer(nil)

	h, err := NewHeaderWriter(buf, HeaderConfig{
		MajorBrand:       [4]byte{'i', 's', 'o', '6'},
		CompatibleBrands: [][4]byte{{'c', 'm', 'f', 'c'}},
		Timescale:        1000,
	})
	require.NoError(t, err)

	trackID, err := h.AddTrack(TrackConfig{
		TrackType: TrackVideo,
		Timescale: 1000,
		Media:     &AvcConfig{SPS: testSPS, PPS: testPPS},
	})
	require.NoError(t, err)
	require.NoError(t, h.WriteEnd())

	nonSync := uint32(mp4.SampleFlagDependsYes | mp4.SampleFlagIsNonSync)
	f := NewFragmentWriter(buf, trackID, FragmentConfig{
		Timescale:          1000,
		DefaultSampleFlags: nonSync,
	})
	_, err = f.WriteSample(Sample{
		Duration: 10,
		IsSync:   true,
		Data:     []byte{0xaa, 0xbb},
	})
	require.NoError(t, err)
	_, err = f.WriteSample(Sample{
		StartTime: 10,
		Duration:  10,
		Data:      []byte{0xcc},
	})
	require.NoError(t, err)
	require.NoError(t, f.WriteEnd(1))

	boxes := parseBoxes(t, buf.Bytes())
	require.Len(t, boxes, 4)
	require.Equal(t, (&mp4.Ftyp{}).Type(), boxes[0].Box.Type())
	require.Equal(t, (&mp4.Moov{}).Type(), boxes[1].Box.Type())
	require.Equal(t, (&mp4.Moof{}).Type(), boxes[2].Box.Type())
	require.Equal(t, (&mp4.Mdat{}).Type(), boxes[3].Box.Type())

	moof := boxes[2]
	tfhd := moof.FindType((&mp4.Tfhd{}).Type()).Box.(*mp4.Tfhd)
	require.Equal(t, trackID, tfhd.TrackID)
	require.Equal(t, nonSync, tfhd.DefaultSampleFlags)

	trun := findTrun(t, boxes)
	require.Equal(t, uint32(2), trun.SampleCount)
	require.Len(t, trun.Entries, 2)
	require.Equal(t, uint32(10), trun.Entries[0].SampleDuration)
	require.Equal(t, uint32(10), trun.Entries[1].SampleDuration)
	require.Equal(t, uint32(2), trun.Entries[0].SampleSize)
	require.Equal(t, uint32(1), trun.Entries[1].SampleSize)

	// The first sample's sync state comes from the override, the
	// second falls back to the tfhd default.
	require.True(t, trun.CheckFlag(mp4.TrunFirstSampleFlagsPresent))
	require.Zero(t, trun.FirstSampleFlags&mp4.SampleFlagIsNonSync)
	require.NotZero(t, tfhd.DefaultSampleFlags&mp4.SampleFlagIsNonSync)

	// Sample payloads line up with the trun data offset.
	start := len(buf.Bytes()) - len(boxes[3].Box.(*mp4.Mdat).Data)
	require.Equal(t, []byte{0xaa, 0xbb, 0xcc}, buf.Bytes()[start:])
}
