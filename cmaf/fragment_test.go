package cmaf

import (
	"bytes"
	"testing"
	"time"

	"mp4"
	"mp4/bitio"

	"github.com/stretchr/testify/require"
)

func parseBoxes(t *testing.T, bin []byte) []mp4.Boxes {
	t.Helper()
	r := bitio.NewReader(bytes.NewReader(bin))
	boxes, err := mp4.ReadBoxes(r, uint64(len(bin)))
	require.NoError(t, err)
	return boxes
}

func findTrun(t *testing.T, boxes []mp4.Boxes) *mp4.Trun {
	t.Helper()
	for i := range boxes {
		if found := boxes[i].FindType((&mp4.Trun{}).Type()); found != nil {
			return found.Box.(*mp4.Trun)
		}
	}
	t.Fatal("no trun box")
	return nil
}

func TestFragmentFirstSampleFlags(t *testing.T) {
	nonSync := uint32(mp4.SampleFlagDependsYes | mp4.SampleFlagIsNonSync)

	t.Run("derived equals default", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		w := NewFragmentWriter(buf, 1, FragmentConfig{
			Timescale:          90000,
			DefaultSampleFlags: mp4.SampleFlagDependsNo,
		})
		_, err := w.WriteSample(Sample{
			Duration: 3000,
			IsSync:   true,
			Data:     []byte{0x01},
		})
		require.NoError(t, err)
		require.NoError(t, w.WriteEnd(1))

		trun := findTrun(t, parseBoxes(t, buf.Bytes()))
		require.False(t, trun.CheckFlag(mp4.TrunFirstSampleFlagsPresent))
		require.Zero(t, trun.FirstSampleFlags)
	})

	t.Run("derived differs from default", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		w := NewFragmentWriter(buf, 1, FragmentConfig{
			Timescale:          90000,
			DefaultSampleFlags: nonSync,
		})
		_, err := w.WriteSample(Sample{
			Duration: 3000,
			IsSync:   true,
			Data:     []byte{0x01},
		})
		require.NoError(t, err)
		require.NoError(t, w.WriteEnd(1))

		trun := findTrun(t, parseBoxes(t, buf.Bytes()))
		require.True(t, trun.CheckFlag(mp4.TrunFirstSampleFlagsPresent))
		require.Equal(t, uint32(mp4.SampleFlagDependsNo), trun.FirstSampleFlags)
	})
}

func TestFragmentCompositionOffsetFlag(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	w := NewFragmentWriter(buf, 1, FragmentConfig{Timescale: 90000})

	_, err := w.WriteSample(Sample{
		Duration: 3000,
		IsSync:   true,
		Data:     []byte{0x01},
	})
	require.NoError(t, err)

	// The first sample has no offset, so the flag is derived only
	// once the second sample introduces one.
	_, err = w.WriteSample(Sample{
		Duration:        3000,
		RenderingOffset: 10,
		Data:            []byte{0x02},
	})
	require.NoError(t, err)
	require.NoError(t, w.WriteEnd(1))

	trun := findTrun(t, parseBoxes(t, buf.Bytes()))
	require.True(t, trun.CheckFlag(mp4.TrunSampleCompositionTimeOffsetPresent))
	require.Len(t, trun.Entries, 2)
	require.Equal(t, int32(0), trun.Entries[0].SampleCompositionTimeOffsetV1)
	require.Equal(t, int32(10), trun.Entries[1].SampleCompositionTimeOffsetV1)
}

func TestFragmentDataOffset(t *testing.T) {
	sample1 := []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16}
	sample2 := []byte{0x20, 0x21, 0x22, 0x23}

	buf := bytes.NewBuffer(nil)
	w := NewFragmentWriter(buf, 1, FragmentConfig{Timescale: 1000})

	_, err := w.WriteSample(Sample{Duration: 10, IsSync: true, Data: sample1})
	require.NoError(t, err)
	_, err = w.WriteSample(Sample{Duration: 10, Data: sample2})
	require.NoError(t, err)
	require.NoError(t, w.WriteEnd(7))

	bin := buf.Bytes()
	boxes := parseBoxes(t, bin)
	require.Len(t, boxes, 2) // moof and mdat.

	moof := boxes[0]
	require.Equal(t, (&mp4.Moof{}).Type(), moof.Box.Type())

	mfhd := moof.FindType((&mp4.Mfhd{}).Type())
	require.NotNil(t, mfhd)
	require.Equal(t, uint32(7), mfhd.Box.(*mp4.Mfhd).SequenceNumber)

	// The moof starts at offset zero, so the data offset is the
	// absolute position of the first sample's bytes.
	trun := findTrun(t, boxes)
	require.Equal(t, int32(moof.Size()+8), trun.DataOffset)
	offset := int(trun.DataOffset)
	require.Equal(t, sample1, bin[offset:offset+len(sample1)])
	require.Equal(t, sample2, bin[offset+len(sample1):offset+len(sample1)+len(sample2)])
}

func TestFragmentAccessors(t *testing.T) {
	w := NewFragmentWriter(bytes.NewBuffer(nil), 1, FragmentConfig{
		Timescale: 90000,
	})
	require.False(t, w.HasSyncSample())

	total, err := w.WriteSample(Sample{
		StartTime: 18000,
		Duration:  3000,
		IsSync:    true,
		Data:      []byte{0x01},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(3000), total)

	total, err = w.WriteSample(Sample{Duration: 3000, Data: []byte{0x02}})
	require.NoError(t, err)
	require.Equal(t, uint64(6000), total)

	require.Equal(t, uint64(18000), w.BaseDecodeTime())
	require.True(t, w.FirstSampleIsSync())
	require.True(t, w.HasSyncSample())

	// 6000/90000 s, truncated to microseconds.
	require.Equal(t, 66666*time.Microsecond, w.Duration())
}

func TestFragmentClosed(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	w := NewFragmentWriter(buf, 1, FragmentConfig{Timescale: 1000})
	_, err := w.WriteSample(Sample{Duration: 10, IsSync: true, Data: []byte{0x01}})
	require.NoError(t, err)
	require.NoError(t, w.WriteEnd(1))

	_, err = w.WriteSample(Sample{Duration: 10, Data: []byte{0x02}})
	require.ErrorIs(t, err, ErrFragmentClosed)
	require.ErrorIs(t, w.AddEmsg(EmsgData{}), ErrFragmentClosed)
	require.ErrorIs(t, w.WriteEnd(2), ErrFragmentClosed)
}

func TestFragmentEmsgAndPrftOrder(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	w := NewFragmentWriter(buf, 1, FragmentConfig{
		Timescale: 1000,
		ProducerReferenceTime: &ProducerReferenceTime{
			NTPTimestamp: 0x0102030405060708,
			MediaTime:    90,
		},
	})

	require.NoError(t, w.AddEmsg(ID3Emsg([]byte{0xde, 0xad}, 1000, 10, 5, 1)))
	require.NoError(t, w.AddEmsg(EmsgData{
		SchemeIDURI:      "urn:example:event",
		Timescale:        1000,
		PresentationTime: 20,
		ID:               2,
	}))
	_, err := w.WriteSample(Sample{Duration: 10, IsSync: true, Data: []byte{0x01}})
	require.NoError(t, err)
	require.NoError(t, w.WriteEnd(1))

	boxes := parseBoxes(t, buf.Bytes())
	require.Len(t, boxes, 5)
	require.Equal(t, (&mp4.Emsg{}).Type(), boxes[0].Box.Type())
	require.Equal(t, (&mp4.Emsg{}).Type(), boxes[1].Box.Type())
	require.Equal(t, (&mp4.Prft{}).Type(), boxes[2].Box.Type())
	require.Equal(t, (&mp4.Moof{}).Type(), boxes[3].Box.Type())
	require.Equal(t, (&mp4.Mdat{}).Type(), boxes[4].Box.Type())

	first := boxes[0].Box.(*mp4.Emsg)
	require.Equal(t, EmsgSchemeID3, first.SchemeIDURI)
	require.Equal(t, []byte{0xde, 0xad}, first.MessageData)
	require.Equal(t, uint32(1), first.ID)

	second := boxes[1].Box.(*mp4.Emsg)
	require.Equal(t, "urn:example:event", second.SchemeIDURI)
	require.Equal(t, uint32(2), second.ID)

	prft := boxes[2].Box.(*mp4.Prft)
	require.Equal(t, uint64(0x0102030405060708), prft.NTPTimestamp)
	require.Equal(t, uint64(90), prft.MediaTimeV1)
}
