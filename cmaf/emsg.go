package cmaf

import (
	"mp4"
)

// EmsgSchemeID3 is the scheme URI for ID3 timed metadata carried in
// emsg boxes.
const EmsgSchemeID3 = "https://aomedia.org/emsg/ID3"

// EmsgData is a timed-metadata record attached to a fragment.
type EmsgData struct {
	SchemeIDURI      string
	Value            string
	Timescale        uint32
	PresentationTime uint64
	EventDuration    uint32
	ID               uint32
	MessageData      []byte
}

// ID3Emsg returns a timed-metadata record carrying an ID3 tag.
func ID3Emsg(
	data []byte,
	timescale uint32,
	presentationTime uint64,
	eventDuration uint32,
	id uint32,
) EmsgData {
	return EmsgData{
		SchemeIDURI:      EmsgSchemeID3,
		Timescale:        timescale,
		PresentationTime: presentationTime,
		EventDuration:    eventDuration,
		ID:               id,
		MessageData:      data,
	}
}

func (d *EmsgData) box() *mp4.Emsg {
	return &mp4.Emsg{
		FullBox:          mp4.FullBox{Version: 1},
		Timescale:        d.Timescale,
		PresentationTime: d.PresentationTime,
		EventDuration:    d.EventDuration,
		ID:               d.ID,
		SchemeIDURI:      d.SchemeIDURI,
		Value:            d.Value,
		MessageData:      d.MessageData,
	}
}
