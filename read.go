package mp4

import (
	"fmt"

	"mp4/bitio"
)

// childBearing is the set of box types whose payload, after the fixed
// fields the type itself declares, consists of a sequence of child
// boxes parsed by the generic container loop.
var childBearing = map[BoxType]bool{
	{'m', 'o', 'o', 'v'}: true,
	{'t', 'r', 'a', 'k'}: true,
	{'e', 'd', 't', 's'}: true,
	{'m', 'd', 'i', 'a'}: true,
	{'m', 'i', 'n', 'f'}: true,
	{'d', 'i', 'n', 'f'}: true,
	{'d', 'r', 'e', 'f'}: true,
	{'s', 't', 'b', 'l'}: true,
	{'s', 't', 's', 'd'}: true,
	{'m', 'v', 'e', 'x'}: true,
	{'m', 'o', 'o', 'f'}: true,
	{'t', 'r', 'a', 'f'}: true,
	{'u', 'd', 't', 'a'}: true,
	{'m', 'e', 't', 'a'}: true,
	{'a', 'v', 'c', '1'}: true,
	{'h', 'e', 'v', '1'}: true,
	{'m', 'p', '4', 'a'}: true,
	{'a', 'v', '0', '1'}: true,
	{'O', 'p', 'u', 's'}: true,
}

// newBox returns a fresh decoder for the given type. The decodable set
// is closed and known at build time; unrecognized types are skipped by
// the container loop instead of dispatched.
func newBox(typ BoxType) (Box, bool) { //nolint:funlen,gocyclo
	switch typ {
	case (&Ftyp{}).Type():
		return &Ftyp{}, true
	case (&Moov{}).Type():
		return &Moov{}, true
	case (&Mvhd{}).Type():
		return &Mvhd{}, true
	case (&Trak{}).Type():
		return &Trak{}, true
	case (&Tkhd{}).Type():
		return &Tkhd{}, true
	case (&Edts{}).Type():
		return &Edts{}, true
	case (&Elst{}).Type():
		return &Elst{}, true
	case (&Mdia{}).Type():
		return &Mdia{}, true
	case (&Mdhd{}).Type():
		return &Mdhd{}, true
	case (&Hdlr{}).Type():
		return &Hdlr{}, true
	case (&Minf{}).Type():
		return &Minf{}, true
	case (&Vmhd{}).Type():
		return &Vmhd{}, true
	case (&Smhd{}).Type():
		return &Smhd{}, true
	case (&Dinf{}).Type():
		return &Dinf{}, true
	case (&Dref{}).Type():
		return &Dref{}, true
	case (&Url{}).Type():
		return &Url{}, true
	case (&Stbl{}).Type():
		return &Stbl{}, true
	case (&Stsd{}).Type():
		return &Stsd{}, true
	case (&Stts{}).Type():
		return &Stts{}, true
	case (&Stsc{}).Type():
		return &Stsc{}, true
	case (&Stsz{}).Type():
		return &Stsz{}, true
	case (&Stco{}).Type():
		return &Stco{}, true
	case (&Stss{}).Type():
		return &Stss{}, true
	case (&Ctts{}).Type():
		return &Ctts{}, true
	case (&Btrt{}).Type():
		return &Btrt{}, true
	case (&Mvex{}).Type():
		return &Mvex{}, true
	case (&Mehd{}).Type():
		return &Mehd{}, true
	case (&Trex{}).Type():
		return &Trex{}, true
	case (&Moof{}).Type():
		return &Moof{}, true
	case (&Mfhd{}).Type():
		return &Mfhd{}, true
	case (&Traf{}).Type():
		return &Traf{}, true
	case (&Tfhd{}).Type():
		return &Tfhd{}, true
	case (&Tfdt{}).Type():
		return &Tfdt{}, true
	case (&Trun{}).Type():
		return &Trun{}, true
	case (&Mdat{}).Type():
		return &Mdat{}, true
	case (&Udta{}).Type():
		return &Udta{}, true
	case (&Meta{}).Type():
		return &Meta{}, true
	case (&Free{}).Type():
		return &Free{}, true
	case (&Avc1{}).Type():
		return &Avc1{}, true
	case (&AvcC{}).Type():
		return &AvcC{}, true
	case (&Hev1{}).Type():
		return &Hev1{}, true
	case (&HvcC{}).Type():
		return &HvcC{}, true
	case (&Mp4a{}).Type():
		return &Mp4a{}, true
	case (&Esds{}).Type():
		return &Esds{}, true
	case (&Av01{}).Type():
		return &Av01{}, true
	case (&Av1C{}).Type():
		return &Av1C{}, true
	case (&Opus{}).Type():
		return &Opus{}, true
	case (&DOps{}).Type():
		return &DOps{}, true
	case (&Colr{}).Type():
		return &Colr{}, true
	case (&Pasp{}).Type():
		return &Pasp{}, true
	case (&Prft{}).Type():
		return &Prft{}, true
	case (&Emsg{}).Type():
		return &Emsg{}, true
	case (&Pssh{}).Type():
		return &Pssh{}, true
	case (&Sinf{}).Type():
		return &Sinf{}, true
	case (&Frma{}).Type():
		return &Frma{}, true
	case (&Schm{}).Type():
		return &Schm{}, true
	case (&Schi{}).Type():
		return &Schi{}, true
	case (&Tenc{}).Type():
		return &Tenc{}, true
	}
	return nil, false
}

// ReadBox reads a single box, including its children for container
// types. remaining is the number of bytes left in the enclosing box; a
// box whose declared size exceeds it is rejected with ErrInvalidData
// rather than being allowed to read out of bounds. A nil node with a
// nil error is returned for unrecognized types, which are skipped.
func ReadBox(r *bitio.Reader, remaining uint64) (*Boxes, uint64, error) {
	hdr, err := ReadBoxHeader(r)
	if err != nil {
		return nil, 0, err
	}
	if hdr.Size > remaining {
		return nil, 0, fmt.Errorf(
			"%w: box '%v' declares %d bytes but only %d remain in parent",
			ErrInvalidData, hdr.Type, hdr.Size, remaining)
	}

	payloadSize := hdr.PayloadSize()
	start, err := r.Pos()
	if err != nil {
		return nil, 0, err
	}

	box, known := newBox(hdr.Type)
	if !known {
		if err := r.Skip(payloadSize); err != nil {
			return nil, 0, err
		}
		return nil, hdr.Size, nil
	}

	if err := box.Unmarshal(r, payloadSize); err != nil {
		return nil, 0, fmt.Errorf("unmarshal '%v': %w", hdr.Type, err)
	}

	node := &Boxes{Box: box}
	if childBearing[hdr.Type] {
		pos, err := r.Pos()
		if err != nil {
			return nil, 0, err
		}
		consumed := pos - start
		if consumed > payloadSize {
			return nil, 0, fmt.Errorf(
				"%w: box '%v' decoder consumed %d of %d payload bytes",
				ErrInvalidData, hdr.Type, consumed, payloadSize)
		}
		children, err := ReadBoxes(r, payloadSize-consumed)
		if err != nil {
			return nil, 0, fmt.Errorf("children of '%v': %w", hdr.Type, err)
		}
		node.Children = children
	}

	// Absorb trailing padding and anything the decoder left unread.
	if err := r.SeekTo(start + payloadSize); err != nil {
		return nil, 0, err
	}
	return node, hdr.Size, nil
}

// ReadBoxes reads a sequence of sibling boxes spanning exactly size
// bytes. Unrecognized boxes are skipped and omitted from the result.
func ReadBoxes(r *bitio.Reader, size uint64) ([]Boxes, error) {
	var boxes []Boxes
	remaining := size
	for remaining >= 8 {
		node, n, err := ReadBox(r, remaining)
		if err != nil {
			return nil, err
		}
		remaining -= n
		if node != nil {
			boxes = append(boxes, *node)
		}
	}
	// A remainder too short to hold a header is padding.
	if remaining > 0 {
		if err := r.Skip(remaining); err != nil {
			return nil, err
		}
	}
	return boxes, nil
}
