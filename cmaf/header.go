package cmaf

import (
	"errors"
	"fmt"
	"io"
	"math"

	"mp4"
	"mp4/bitio"
)

// ErrHeaderClosed is returned when a header writer is used after its
// terminal write.
var ErrHeaderClosed = errors.New("header is already written")

// HeaderConfig describes the initialization segment.
type HeaderConfig struct {
	MajorBrand       [4]byte
	MinorVersion     uint32
	CompatibleBrands [][4]byte

	// Timescale is the movie timescale.
	Timescale uint32

	// Duration is the total presentation duration in movie timescale
	// units, when known upfront. Zero leaves the duration open, the
	// usual case for live content.
	Duration uint64
}

var identityMatrix = [9]int32{
	0x00010000, 0, 0,
	0, 0x00010000, 0,
	0, 0, 0x40000000,
}

// trackWriter holds one track's box subtree between AddTrack and
// WriteEnd so the durations can be patched in before serializing.
type trackWriter struct {
	trackID   uint32
	timescale uint32
	duration  uint64 // in media timescale units.

	tkhd *mp4.Tkhd
	mdhd *mp4.Mdhd
	trak mp4.Boxes
}

// HeaderWriter writes a CMAF initialization segment, a ftyp box
// followed by a moov box. The ftyp is written immediately, the moov
// only on WriteEnd once every track is known.
type HeaderWriter struct {
	out       io.Writer
	timescale uint32
	duration  uint64
	tracks    []*trackWriter
	closed    bool
}

// NewHeaderWriter writes the file-type box and returns a writer with
// an empty track list.
func NewHeaderWriter(out io.Writer, config HeaderConfig) (*HeaderWriter, error) {
	brands := make([]mp4.CompatibleBrandElem, len(config.CompatibleBrands))
	for i, brand := range config.CompatibleBrands {
		brands[i] = mp4.CompatibleBrandElem{CompatibleBrand: brand}
	}
	ftyp := mp4.Boxes{
		Box: &mp4.Ftyp{
			MajorBrand:       config.MajorBrand,
			MinorVersion:     config.MinorVersion,
			CompatibleBrands: brands,
		},
	}

	w := bitio.NewWriter(bitio.NewByteWriter(out))
	if err := ftyp.Marshal(w); err != nil {
		return nil, err
	}
	return &HeaderWriter{
		out:       out,
		timescale: config.Timescale,
		duration:  config.Duration,
	}, nil
}

// AddTrack assigns the next sequential track id, builds the track's
// subtree and returns the id. Nothing is serialized yet.
func (h *HeaderWriter) AddTrack(config TrackConfig) (uint32, error) {
	if h.closed {
		return 0, ErrHeaderClosed
	}
	trackID := uint32(len(h.tracks)) + 1

	entry, err := config.Media.sampleEntry()
	if err != nil {
		return 0, err
	}
	width, height := config.Media.dimensions()

	tkhd := &mp4.Tkhd{
		FullBox: mp4.FullBox{
			Flags: [3]byte{0, 0, 3}, // Enabled and in movie.
		},
		TrackID: trackID,
		Width:   mp4.NewFixedPointU16(width).Raw(),
		Height:  mp4.NewFixedPointU16(height).Raw(),
		Matrix:  identityMatrix,
	}

	language := config.Language
	if language == [3]byte{} {
		language = [3]byte{'u', 'n', 'd'}
	}
	mdhd := &mp4.Mdhd{
		Timescale: config.Timescale,
		Language:  language,
	}

	var mediaHeader mp4.ImmutableBox
	var hdlr *mp4.Hdlr
	if config.TrackType == TrackVideo {
		mediaHeader = &mp4.Vmhd{
			FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}},
		}
		hdlr = &mp4.Hdlr{
			HandlerType: [4]byte{'v', 'i', 'd', 'e'},
			Name:        "VideoHandler",
		}
	} else {
		tkhd.Volume = 256
		tkhd.AlternateGroup = 1
		mediaHeader = &mp4.Smhd{}
		hdlr = &mp4.Hdlr{
			HandlerType: [4]byte{'s', 'o', 'u', 'n'},
			Name:        "SoundHandler",
		}
	}

	stbl := mp4.Boxes{
		Box: &mp4.Stbl{},
		Children: []mp4.Boxes{
			{
				Box:      &mp4.Stsd{EntryCount: 1},
				Children: []mp4.Boxes{entry},
			},
			{Box: &mp4.Stts{}},
			{Box: &mp4.Stsc{}},
			{Box: &mp4.Stsz{}},
			{Box: &mp4.Stco{}},
		},
	}

	minf := mp4.Boxes{
		Box: &mp4.Minf{},
		Children: []mp4.Boxes{
			{Box: mediaHeader},
			{
				Box: &mp4.Dinf{},
				Children: []mp4.Boxes{
					{
						Box: &mp4.Dref{EntryCount: 1},
						Children: []mp4.Boxes{
							{Box: &mp4.Url{
								FullBox: mp4.FullBox{
									Flags: [3]byte{0, 0, 1}, // Self contained.
								},
							}},
						},
					},
				},
			},
			stbl,
		},
	}

	trak := mp4.Boxes{
		Box: &mp4.Trak{},
		Children: []mp4.Boxes{
			{Box: tkhd},
			{
				Box: &mp4.Mdia{},
				Children: []mp4.Boxes{
					{Box: mdhd},
					{Box: hdlr},
					minf,
				},
			},
		},
	}

	h.tracks = append(h.tracks, &trackWriter{
		trackID:   trackID,
		timescale: config.Timescale,
		tkhd:      tkhd,
		mdhd:      mdhd,
		trak:      trak,
	})
	return trackID, nil
}

// AddDuration extends a track's accumulated media duration, in that
// track's timescale units. The caller reports each fragment's duration
// here so WriteEnd can patch the totals into the track headers.
func (h *HeaderWriter) AddDuration(trackID uint32, duration uint64) error {
	if h.closed {
		return ErrHeaderClosed
	}
	for _, track := range h.tracks {
		if track.trackID == trackID {
			track.duration += duration
			return nil
		}
	}
	return fmt.Errorf("unknown track id %d", trackID)
}

// movieDuration scales a track duration to the movie timescale.
func (h *HeaderWriter) movieDuration(t *trackWriter) uint64 {
	if t.timescale == 0 {
		return 0
	}
	return t.duration * uint64(h.timescale) / uint64(t.timescale)
}

// WriteEnd patches the final durations into every track header and
// writes the complete moov box.
func (h *HeaderWriter) WriteEnd() error {
	if h.closed {
		return ErrHeaderClosed
	}
	h.closed = true

	duration := h.duration
	for _, track := range h.tracks {
		track.mdhd.DurationV0 = uint32(track.duration)
		track.tkhd.DurationV0 = uint32(h.movieDuration(track))
		if scaled := h.movieDuration(track); scaled > duration {
			duration = scaled
		}
	}

	mvhd := &mp4.Mvhd{
		Timescale:   h.timescale,
		Rate:        0x00010000,
		Volume:      0x0100,
		Matrix:      identityMatrix,
		NextTrackID: uint32(len(h.tracks)) + 1,
	}
	if duration > math.MaxUint32 {
		mvhd.Version = 1
		mvhd.DurationV1 = duration
	} else {
		mvhd.DurationV0 = uint32(duration)
	}

	mvex := mp4.Boxes{Box: &mp4.Mvex{}}
	if duration > 0 {
		mehd := &mp4.Mehd{}
		if duration > math.MaxUint32 {
			mehd.Version = 1
			mehd.FragmentDurationV1 = duration
		} else {
			mehd.FragmentDurationV0 = uint32(duration)
		}
		mvex.Children = append(mvex.Children, mp4.Boxes{Box: mehd})
	}
	for _, track := range h.tracks {
		mvex.Children = append(mvex.Children, mp4.Boxes{
			Box: &mp4.Trex{
				TrackID:                       track.trackID,
				DefaultSampleDescriptionIndex: 1,
			},
		})
	}

	moov := mp4.Boxes{
		Box: &mp4.Moov{},
		Children: []mp4.Boxes{
			{Box: mvhd},
		},
	}
	for _, track := range h.tracks {
		moov.Children = append(moov.Children, track.trak)
	}
	moov.Children = append(moov.Children, mvex)

	w := bitio.NewWriter(bitio.NewByteWriter(h.out))
	return moov.Marshal(w)
}
