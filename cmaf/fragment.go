package cmaf

import (
	"errors"
	"io"
	"time"

	"mp4"
	"mp4/bitio"
)

// ErrFragmentClosed is returned when a fragment writer is used after
// its terminal write.
var ErrFragmentClosed = errors.New("fragment is already written")

// sampleData is the mdat box of a fragment, payloads back to back.
type sampleData struct {
	samples [][]byte
}

func (*sampleData) Type() mp4.BoxType {
	return [4]byte{'m', 'd', 'a', 't'}
}

func (b *sampleData) Size() int {
	var total int
	for _, sample := range b.samples {
		total += len(sample)
	}
	return total
}

func (b *sampleData) Marshal(w *bitio.Writer) error {
	for _, sample := range b.samples {
		if _, err := w.Write(sample); err != nil {
			return err
		}
	}
	return nil
}

// FragmentWriter accumulates samples for a single track and writes
// them out as one moof+mdat pair. A writer produces exactly one
// fragment; the next fragment needs a new writer.
type FragmentWriter struct {
	out       io.Writer
	timescale uint32

	tfhd mp4.Tfhd
	tfdt mp4.Tfdt
	trun mp4.Trun

	prft    *mp4.Prft
	emsgs   []*mp4.Emsg
	samples [][]byte

	firstIsSync bool
	hasSync     bool
	closed      bool
}

// NewFragmentWriter prepares a fragment for the given track. Nothing
// is written until WriteEnd.
func NewFragmentWriter(out io.Writer, trackID uint32, config FragmentConfig) *FragmentWriter {
	f := &FragmentWriter{
		out:       out,
		timescale: config.Timescale,
		tfhd: mp4.Tfhd{
			TrackID:               trackID,
			DefaultSampleDuration: config.DefaultSampleDuration,
			DefaultSampleSize:     config.DefaultSampleSize,
			DefaultSampleFlags:    config.DefaultSampleFlags,
		},
	}
	f.tfhd.SetFlags(mp4.TfhdDefaultSampleDurationPresent |
		mp4.TfhdDefaultSampleSizePresent |
		mp4.TfhdDefaultSampleFlagsPresent)

	if config.ProducerReferenceTime != nil {
		f.prft = &mp4.Prft{
			FullBox:          mp4.FullBox{Version: 1},
			ReferenceTrackID: trackID,
			NTPTimestamp:     config.ProducerReferenceTime.NTPTimestamp,
			MediaTimeV1:      config.ProducerReferenceTime.MediaTime,
		}
	}
	return f
}

// sampleFlags derives the trun flags of a single sample.
func sampleFlags(isSync bool) uint32 {
	if isSync {
		return mp4.SampleFlagDependsNo
	}
	return mp4.SampleFlagDependsYes | mp4.SampleFlagIsNonSync
}

// WriteSample appends a sample to the pending run and returns the
// fragment's total duration so far in track timescale units.
func (f *FragmentWriter) WriteSample(sample Sample) (uint64, error) {
	if f.closed {
		return 0, ErrFragmentClosed
	}
	f.samples = append(f.samples, sample.Data)

	if len(f.samples) == 1 {
		f.tfdt = mp4.Tfdt{
			FullBox:               mp4.FullBox{Version: 1},
			BaseMediaDecodeTimeV1: sample.StartTime,
		}
		f.trun = mp4.Trun{
			FullBox: mp4.FullBox{Version: 1},
		}
		f.trun.SetFlags(mp4.TrunDataOffsetPresent |
			mp4.TrunSampleDurationPresent |
			mp4.TrunSampleSizePresent)
		f.firstIsSync = sample.IsSync
	}
	if sample.IsSync {
		f.hasSync = true
	}

	flags := sampleFlags(sample.IsSync)
	if len(f.samples) == 1 && flags != f.tfhd.DefaultSampleFlags {
		f.trun.SetFlags(f.trun.GetFlags() | mp4.TrunFirstSampleFlagsPresent)
		f.trun.FirstSampleFlags = flags
	}

	f.trun.SampleCount = uint32(len(f.samples))
	f.trun.Entries = append(f.trun.Entries, mp4.TrunEntry{
		SampleDuration:                sample.Duration,
		SampleSize:                    uint32(len(sample.Data)),
		SampleFlags:                   flags,
		SampleCompositionTimeOffsetV1: sample.RenderingOffset,
	})

	// The composition offset flag is a whole-run decision, so it has
	// to be derived again after every append.
	for _, entry := range f.trun.Entries {
		if entry.SampleCompositionTimeOffsetV1 != 0 {
			f.trun.SetFlags(f.trun.GetFlags() |
				mp4.TrunSampleCompositionTimeOffsetPresent)
			break
		}
	}

	return f.runDuration(), nil
}

func (f *FragmentWriter) runDuration() uint64 {
	var total uint64
	for _, entry := range f.trun.Entries {
		total += uint64(entry.SampleDuration)
	}
	return total
}

// AddEmsg queues a timed-metadata box to be written before the
// fragment, in insertion order.
func (f *FragmentWriter) AddEmsg(data EmsgData) error {
	if f.closed {
		return ErrFragmentClosed
	}
	f.emsgs = append(f.emsgs, data.box())
	return nil
}

// Duration returns the fragment's total duration so far as wall-clock
// time, truncated to microseconds. A zero timescale is a caller
// error.
func (f *FragmentWriter) Duration() time.Duration {
	micros := f.runDuration() * 1_000_000 / uint64(f.timescale)
	return time.Duration(micros) * time.Microsecond
}

// BaseDecodeTime returns the decode time of the first sample.
func (f *FragmentWriter) BaseDecodeTime() uint64 {
	return f.tfdt.BaseMediaDecodeTimeV1
}

// FirstSampleIsSync reports whether the first sample is a keyframe.
func (f *FragmentWriter) FirstSampleIsSync() bool {
	return f.firstIsSync
}

// HasSyncSample reports whether any sample is a keyframe.
func (f *FragmentWriter) HasSyncSample() bool {
	return f.hasSync
}

// WriteEnd assigns the fragment's sequence number and writes the
// queued emsg boxes, the pending prft, the moof and the mdat. The
// trun data offset is patched from the moof's computed size before
// anything is written.
func (f *FragmentWriter) WriteEnd(sequenceNumber uint32) error {
	if f.closed {
		return ErrFragmentClosed
	}
	f.closed = true

	mfhd := &mp4.Mfhd{SequenceNumber: sequenceNumber}

	traf := mp4.Boxes{
		Box: &mp4.Traf{},
		Children: []mp4.Boxes{
			{Box: &f.tfhd},
		},
	}
	if len(f.samples) > 0 {
		traf.Children = append(traf.Children,
			mp4.Boxes{Box: &f.tfdt},
			mp4.Boxes{Box: &f.trun},
		)
	}

	moof := mp4.Boxes{
		Box: &mp4.Moof{},
		Children: []mp4.Boxes{
			{Box: mfhd},
			traf,
		},
	}

	// The sample data starts right after the mdat header, which
	// follows immediately after the moof.
	f.trun.DataOffset = int32(moof.Size() + 8)

	w := bitio.NewWriter(bitio.NewByteWriter(f.out))
	for _, emsg := range f.emsgs {
		if _, err := mp4.WriteSingleBox(w, emsg); err != nil {
			return err
		}
	}
	if f.prft != nil {
		if _, err := mp4.WriteSingleBox(w, f.prft); err != nil {
			return err
		}
	}
	if err := moof.Marshal(w); err != nil {
		return err
	}
	_, err := mp4.WriteSingleBox(w, &sampleData{samples: f.samples})
	return err
}
