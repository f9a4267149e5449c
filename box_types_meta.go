package mp4

import (
	"fmt"

	"mp4/bitio"
)

/*************************** prft ****************************/

// Prft is the producer reference time box. It ties an NTP wall clock
// timestamp to a media time on the reference track.
type Prft struct {
	FullBox
	ReferenceTrackID uint32
	NTPTimestamp     uint64
	MediaTimeV0      uint32
	MediaTimeV1      uint64
}

// Type returns the BoxType.
func (*Prft) Type() BoxType {
	return [4]byte{'p', 'r', 'f', 't'}
}

// Size returns the marshaled size in bytes.
func (b *Prft) Size() int {
	if b.FullBox.Version == 0 {
		return 20
	}
	return 24
}

// Marshal box to writer.
func (b *Prft) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	w.TryWriteUint32(b.ReferenceTrackID)
	w.TryWriteUint64(b.NTPTimestamp)
	if b.FullBox.Version == 0 {
		w.TryWriteUint32(b.MediaTimeV0)
	} else {
		w.TryWriteUint64(b.MediaTimeV1)
	}
	return w.TryError
}

// Unmarshal box from reader.
func (b *Prft) Unmarshal(r *bitio.Reader, _ uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	b.ReferenceTrackID = r.TryReadUint32()
	b.NTPTimestamp = r.TryReadUint64()
	if b.FullBox.Version == 0 {
		b.MediaTimeV0 = r.TryReadUint32()
	} else {
		b.MediaTimeV1 = r.TryReadUint64()
	}
	return r.TryError
}

/*************************** emsg ****************************/

// Emsg is the event message box. Version 0 places the scheme and
// value strings before the timing fields and expresses the event time
// as a delta, version 1 leads with the timing fields and an absolute
// presentation time.
type Emsg struct {
	FullBox
	Timescale             uint32
	PresentationTimeDelta uint32 // version 0.
	PresentationTime      uint64 // version 1.
	EventDuration         uint32
	ID                    uint32
	SchemeIDURI           string
	Value                 string
	MessageData           []byte
}

// Type returns the BoxType.
func (*Emsg) Type() BoxType {
	return [4]byte{'e', 'm', 's', 'g'}
}

// Size returns the marshaled size in bytes.
func (b *Emsg) Size() int {
	total := 4 + len(b.SchemeIDURI) + 1 + len(b.Value) + 1 + len(b.MessageData)
	if b.FullBox.Version == 0 {
		total += 16
	} else {
		total += 20
	}
	return total
}

// Marshal box to writer.
func (b *Emsg) Marshal(w *bitio.Writer) error {
	err := b.FullBox.MarshalField(w)
	if err != nil {
		return err
	}
	if b.FullBox.Version == 0 {
		w.TryWrite([]byte(b.SchemeIDURI + "\000"))
		w.TryWrite([]byte(b.Value + "\000"))
		w.TryWriteUint32(b.Timescale)
		w.TryWriteUint32(b.PresentationTimeDelta)
		w.TryWriteUint32(b.EventDuration)
		w.TryWriteUint32(b.ID)
	} else {
		w.TryWriteUint32(b.Timescale)
		w.TryWriteUint64(b.PresentationTime)
		w.TryWriteUint32(b.EventDuration)
		w.TryWriteUint32(b.ID)
		w.TryWrite([]byte(b.SchemeIDURI + "\000"))
		w.TryWrite([]byte(b.Value + "\000"))
	}
	w.TryWrite(b.MessageData)
	return w.TryError
}

// Unmarshal box from reader.
func (b *Emsg) Unmarshal(r *bitio.Reader, payloadSize uint64) error {
	if err := b.FullBox.UnmarshalField(r); err != nil {
		return err
	}
	// Two empty strings and the timing fields are the smallest
	// possible payload for either version.
	minSize := uint64(22)
	if b.FullBox.Version != 0 {
		minSize = 26
	}
	if payloadSize < minSize {
		return fmt.Errorf("%w: emsg payload of %d bytes is too short",
			ErrInvalidData, payloadSize)
	}
	start, err := r.Pos()
	if err != nil {
		return err
	}
	end := start + payloadSize - 4

	readStrings := func() error {
		pos, err := r.Pos()
		if err != nil {
			return err
		}
		b.SchemeIDURI, err = readCString(r, end-pos)
		if err != nil {
			return err
		}
		pos, err = r.Pos()
		if err != nil {
			return err
		}
		b.Value, err = readCString(r, end-pos)
		return err
	}

	if b.FullBox.Version == 0 {
		if err := readStrings(); err != nil {
			return err
		}
		b.Timescale = r.TryReadUint32()
		b.PresentationTimeDelta = r.TryReadUint32()
		b.EventDuration = r.TryReadUint32()
		b.ID = r.TryReadUint32()
		if r.TryError != nil {
			return r.TryError
		}
	} else {
		b.Timescale = r.TryReadUint32()
		b.PresentationTime = r.TryReadUint64()
		b.EventDuration = r.TryReadUint32()
		b.ID = r.TryReadUint32()
		if r.TryError != nil {
			return r.TryError
		}
		if err := readStrings(); err != nil {
			return err
		}
	}

	pos, err := r.Pos()
	if err != nil {
		return err
	}
	if pos > end {
		return fmt.Errorf("%w: emsg fields exceed payload", ErrInvalidData)
	}
	if end > pos {
		b.MessageData = make([]byte, end-pos)
		return r.ReadFull(b.MessageData)
	}
	return nil
}
