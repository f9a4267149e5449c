// Package h264 parses the parts of H.264 sequence parameter sets
// needed to fill in sample entry dimensions.
package h264

import (
	"bytes"
	"errors"

	"github.com/icza/bitio"
)

// naluTypeSPS is the NAL unit type of a sequence parameter set.
const naluTypeSPS = 7

func readGolombUnsigned(br *bitio.Reader) (uint32, error) {
	leadingZeroBits := uint32(0)
	for {
		b, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}
		if b != 0 {
			break
		}
		leadingZeroBits++
	}

	codeNum := uint32(0)
	for n := leadingZeroBits; n > 0; n-- {
		b, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}
		codeNum |= uint32(b) << (n - 1)
	}
	return (1 << leadingZeroBits) - 1 + codeNum, nil
}

func readGolombSigned(br *bitio.Reader) (int32, error) {
	v, err := readGolombUnsigned(br)
	if err != nil {
		return 0, err
	}
	vi := int32(v)
	if (vi & 0x01) != 0 {
		return (vi + 1) / 2, nil
	}
	return -vi / 2, nil
}

func readFlag(br *bitio.Reader) (bool, error) {
	tmp, err := br.ReadBits(1)
	if err != nil {
		return false, err
	}
	return tmp == 1, nil
}

// skipScalingList advances past one scaling list without keeping it.
func skipScalingList(br *bitio.Reader, size int) error {
	lastScale := int32(8)
	nextScale := int32(8)
	for j := 0; j < size; j++ {
		if nextScale != 0 {
			deltaScale, err := readGolombSigned(br)
			if err != nil {
				return err
			}
			nextScale = (lastScale + deltaScale + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

// deemulate removes the 0x03 emulation prevention bytes from a NAL
// unit payload.
func deemulate(buf []byte) []byte {
	out := make([]byte, 0, len(buf))
	zeros := 0
	for _, b := range buf {
		if zeros == 2 && b == 0x03 {
			zeros = 0
			continue
		}
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b)
	}
	return out
}

type frameCropping struct {
	leftOffset   uint32
	rightOffset  uint32
	topOffset    uint32
	bottomOffset uint32
}

func (c *frameCropping) unmarshal(br *bitio.Reader) error {
	var err error
	if c.leftOffset, err = readGolombUnsigned(br); err != nil {
		return err
	}
	if c.rightOffset, err = readGolombUnsigned(br); err != nil {
		return err
	}
	if c.topOffset, err = readGolombUnsigned(br); err != nil {
		return err
	}
	c.bottomOffset, err = readGolombUnsigned(br)
	return err
}

// SPS holds the fields of a H264 sequence parameter set that matter
// for building a sample entry.
type SPS struct {
	ProfileIdc           uint8
	ProfileCompatibility uint8
	LevelIdc             uint8

	ChromaFormatIdc      uint32
	PicWidthInMbsMinus1  uint32
	PicHeightInMbsMinus1 uint32
	FrameMbsOnlyFlag     bool

	cropping *frameCropping
}

// SPS errors.
var (
	ErrSPSBufferTooShort = errors.New("buffer too short")
	ErrSPSNotSPS         = errors.New("not a SPS")
)

// Unmarshal decodes a SPS from bytes.
func (s *SPS) Unmarshal(buf []byte) error {
	// ref: ISO/IEC 14496-10:2020
	buf = deemulate(buf)

	if len(buf) < 4 {
		return ErrSPSBufferTooShort
	}
	if buf[0]&0x1F != naluTypeSPS {
		return ErrSPSNotSPS
	}

	s.ProfileIdc = buf[1]
	s.ProfileCompatibility = buf[2]
	s.LevelIdc = buf[3]

	br := bitio.NewReader(bytes.NewReader(buf[4:]))

	// seq_parameter_set_id.
	if _, err := readGolombUnsigned(br); err != nil {
		return err
	}

	if err := s.unmarshalProfileIdc(br); err != nil {
		return err
	}

	// log2_max_frame_num_minus4.
	if _, err := readGolombUnsigned(br); err != nil {
		return err
	}

	picOrderCntType, err := readGolombUnsigned(br)
	if err != nil {
		return err
	}
	if err := s.skipPicOrderCnt(br, picOrderCntType); err != nil {
		return err
	}

	// max_num_ref_frames.
	if _, err := readGolombUnsigned(br); err != nil {
		return err
	}
	// gaps_in_frame_num_value_allowed_flag.
	if _, err := readFlag(br); err != nil {
		return err
	}

	if s.PicWidthInMbsMinus1, err = readGolombUnsigned(br); err != nil {
		return err
	}
	if s.PicHeightInMbsMinus1, err = readGolombUnsigned(br); err != nil {
		return err
	}
	if s.FrameMbsOnlyFlag, err = readFlag(br); err != nil {
		return err
	}
	if !s.FrameMbsOnlyFlag {
		// mb_adaptive_frame_field_flag.
		if _, err := readFlag(br); err != nil {
			return err
		}
	}

	// direct_8x8_inference_flag.
	if _, err := readFlag(br); err != nil {
		return err
	}

	frameCroppingFlag, err := readFlag(br)
	if err != nil {
		return err
	}
	if frameCroppingFlag {
		s.cropping = &frameCropping{}
		if err := s.cropping.unmarshal(br); err != nil {
			return err
		}
	} else {
		s.cropping = nil
	}

	// The VUI that may follow carries nothing dimension related.
	return nil
}

func (s *SPS) unmarshalProfileIdc(br *bitio.Reader) error {
	switch s.ProfileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		var err error
		if s.ChromaFormatIdc, err = readGolombUnsigned(br); err != nil {
			return err
		}
		if s.ChromaFormatIdc == 3 {
			// separate_colour_plane_flag.
			if _, err := readFlag(br); err != nil {
				return err
			}
		}
		// bit_depth_luma_minus8 and bit_depth_chroma_minus8.
		if _, err := readGolombUnsigned(br); err != nil {
			return err
		}
		if _, err := readGolombUnsigned(br); err != nil {
			return err
		}
		// qpprime_y_zero_transform_bypass_flag.
		if _, err := readFlag(br); err != nil {
			return err
		}

		seqScalingMatrixPresentFlag, err := readFlag(br)
		if err != nil {
			return err
		}
		if seqScalingMatrixPresentFlag {
			if err := s.skipSeqScalingMatrix(br); err != nil {
				return err
			}
		}
	default:
		s.ChromaFormatIdc = 1
	}
	return nil
}

func (s *SPS) skipSeqScalingMatrix(br *bitio.Reader) error {
	lim := 8
	if s.ChromaFormatIdc == 3 {
		lim = 12
	}
	for i := 0; i < lim; i++ {
		present, err := readFlag(br)
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		size := 16
		if i >= 6 {
			size = 64
		}
		if err := skipScalingList(br, size); err != nil {
			return err
		}
	}
	return nil
}

func (s *SPS) skipPicOrderCnt(br *bitio.Reader, picOrderCntType uint32) error {
	switch picOrderCntType {
	case 0:
		// log2_max_pic_order_cnt_lsb_minus4.
		_, err := readGolombUnsigned(br)
		return err
	case 1:
		// delta_pic_order_always_zero_flag.
		if _, err := readFlag(br); err != nil {
			return err
		}
		// offset_for_non_ref_pic and offset_for_top_to_bottom_field.
		if _, err := readGolombSigned(br); err != nil {
			return err
		}
		if _, err := readGolombSigned(br); err != nil {
			return err
		}
		numRefFrames, err := readGolombUnsigned(br)
		if err != nil {
			return err
		}
		for i := uint32(0); i < numRefFrames; i++ {
			if _, err := readGolombSigned(br); err != nil {
				return err
			}
		}
	}
	return nil
}

// Width returns the video width.
func (s SPS) Width() int {
	if s.cropping != nil {
		return int(((s.PicWidthInMbsMinus1 + 1) * 16) -
			(s.cropping.leftOffset+s.cropping.rightOffset)*2)
	}
	return int((s.PicWidthInMbsMinus1 + 1) * 16)
}

// Height returns the video height.
func (s SPS) Height() int {
	f := uint32(0)
	if s.FrameMbsOnlyFlag {
		f = 1
	}
	if s.cropping != nil {
		return int(((2-f)*(s.PicHeightInMbsMinus1+1)*16) -
			(s.cropping.topOffset+s.cropping.bottomOffset)*2)
	}
	return int((2 - f) * (s.PicHeightInMbsMinus1 + 1) * 16)
}
