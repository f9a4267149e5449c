package mp4

import (
	"bytes"
	"testing"

	"mp4/bitio"

	"github.com/stretchr/testify/require"
)

func TestBoxTypes(t *testing.T) { //nolint:funlen
	testCases := []struct {
		name string
		src  Box
		dst  Box
		bin  []byte
	}{
		{
			name: "btrt",
			src: &Btrt{
				BufferSizeDB: 0x12345678,
				MaxBitrate:   0x3456789a,
				AvgBitrate:   0x56789abc,
			},
			dst: &Btrt{},
			bin: []byte{
				0x12, 0x34, 0x56, 0x78, // bufferSizeDB
				0x34, 0x56, 0x78, 0x9a, // maxBitrate
				0x56, 0x78, 0x9a, 0xbc, // avgBitrate
			},
		},
		{
			name: "ctts: version 1",
			src: &Ctts{
				FullBox: FullBox{
					Version: 1,
				},
				EntryCount: 2,
				Entries: []CttsEntry{
					{SampleCount: 1, SampleOffsetV1: 0x12345678},
					{SampleCount: 2, SampleOffsetV1: -2},
				},
			},
			dst: &Ctts{},
			bin: []byte{
				1,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x02, // entry count
				0x00, 0x00, 0x00, 0x01, // sample count
				0x12, 0x34, 0x56, 0x78, // sample offset
				0x00, 0x00, 0x00, 0x02, // sample count
				0xff, 0xff, 0xff, 0xfe, // sample offset
			},
		},
		{
			name: "ftyp",
			src: &Ftyp{
				MajorBrand:   [4]byte{'i', 's', 'o', '6'},
				MinorVersion: 512,
				CompatibleBrands: []CompatibleBrandElem{
					{CompatibleBrand: [4]byte{'c', 'm', 'f', 'c'}},
					{CompatibleBrand: [4]byte{'m', 'p', '4', '1'}},
				},
			},
			dst: &Ftyp{},
			bin: []byte{
				'i', 's', 'o', '6', // major brand
				0x00, 0x00, 0x02, 0x00, // minor version
				'c', 'm', 'f', 'c', // compatible brand
				'm', 'p', '4', '1', // compatible brand
			},
		},
		{
			name: "hdlr",
			src: &Hdlr{
				HandlerType: [4]byte{'v', 'i', 'd', 'e'},
				Name:        "VideoHandler",
			},
			dst: &Hdlr{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0x00, 0x00, 0x00, 0x00, // predefined
				'v', 'i', 'd', 'e', // handler type
				0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x00, 0x00, 0x00, // reserved
				'V', 'i', 'd', 'e', 'o', 'H', 'a', 'n',
				'd', 'l', 'e', 'r', 0x00, // name
			},
		},
		{
			name: "mehd: version 1",
			src: &Mehd{
				FullBox:            FullBox{Version: 1},
				FragmentDurationV1: 0x0100000000,
			},
			dst: &Mehd{},
			bin: []byte{
				1, 0x00, 0x00, 0x00, // fullbox
				0x00, 0x00, 0x00, 0x01,
				0x00, 0x00, 0x00, 0x00, // fragment duration
			},
		},
		{
			name: "mfhd",
			src: &Mfhd{
				SequenceNumber: 7,
			},
			dst: &Mfhd{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0x00, 0x00, 0x00, 0x07, // sequence number
			},
		},
		{
			name: "tfdt: version 1",
			src: &Tfdt{
				FullBox:               FullBox{Version: 1},
				BaseMediaDecodeTimeV1: 0x0123456789abcdef,
			},
			dst: &Tfdt{},
			bin: []byte{
				1, 0x00, 0x00, 0x00, // fullbox
				0x01, 0x23, 0x45, 0x67,
				0x89, 0xab, 0xcd, 0xef, // base media decode time
			},
		},
		{
			name: "tfhd: defaults present",
			src: &Tfhd{
				FullBox: FullBox{
					Flags: [3]byte{0x00, 0x00, 0x38},
				},
				TrackID:               1,
				DefaultSampleDuration: 512,
				DefaultSampleSize:     1024,
				DefaultSampleFlags:    SampleFlagDependsNo,
			},
			dst: &Tfhd{},
			bin: []byte{
				0, 0x00, 0x00, 0x38, // fullbox
				0x00, 0x00, 0x00, 0x01, // track ID
				0x00, 0x00, 0x02, 0x00, // default sample duration
				0x00, 0x00, 0x04, 0x00, // default sample size
				0x02, 0x00, 0x00, 0x00, // default sample flags
			},
		},
		{
			name: "trun: version 1",
			src: &Trun{
				FullBox: FullBox{
					Version: 1,
					Flags:   [3]byte{0x00, 0x0b, 0x05},
				},
				SampleCount:      2,
				DataOffset:       100,
				FirstSampleFlags: SampleFlagDependsNo,
				Entries: []TrunEntry{
					{SampleDuration: 10, SampleSize: 7},
					{
						SampleDuration:                10,
						SampleSize:                    8,
						SampleCompositionTimeOffsetV1: -2,
					},
				},
			},
			dst: &Trun{},
			bin: []byte{
				1, 0x00, 0x0b, 0x05, // fullbox
				0x00, 0x00, 0x00, 0x02, // sample count
				0x00, 0x00, 0x00, 0x64, // data offset
				0x02, 0x00, 0x00, 0x00, // first sample flags
				0x00, 0x00, 0x00, 0x0a, // duration
				0x00, 0x00, 0x00, 0x07, // size
				0x00, 0x00, 0x00, 0x00, // composition offset
				0x00, 0x00, 0x00, 0x0a, // duration
				0x00, 0x00, 0x00, 0x08, // size
				0xff, 0xff, 0xff, 0xfe, // composition offset
			},
		},
		{
			name: "url: self contained",
			src: &Url{
				FullBox: FullBox{
					Flags: [3]byte{0x00, 0x00, 0x01},
				},
			},
			dst: &Url{},
			bin: []byte{
				0, 0x00, 0x00, 0x01, // fullbox
			},
		},
		{
			name: "avcC",
			src: &AvcC{
				ConfigurationVersion:       1,
				Profile:                    AVCMainProfile,
				ProfileCompatibility:       0xc0,
				Level:                      30,
				LengthSizeMinusOne:         3,
				NumOfSequenceParameterSets: 1,
				SequenceParameterSets: []AVCParameterSet{
					{Length: 2, NALUnit: []byte{0x67, 0x4d}},
				},
				NumOfPictureParameterSets: 1,
				PictureParameterSets: []AVCParameterSet{
					{Length: 3, NALUnit: []byte{0x68, 0xce, 0x3c}},
				},
			},
			dst: &AvcC{},
			bin: []byte{
				0x01,             // configuration version
				0x4d, 0xc0, 0x1e, // profile, compatibility, level
				0x03,       // length size minus one
				0x01,       // num of SPS
				0x00, 0x02, // SPS length
				0x67, 0x4d, // SPS
				0x01,       // num of PPS
				0x00, 0x03, // PPS length
				0x68, 0xce, 0x3c, // PPS
			},
		},
		{
			name: "hvcC",
			src: &HvcC{
				ConfigurationVersion:        1,
				GeneralProfileIdc:           1,
				GeneralProfileCompatibility: 0x60000000,
				GeneralConstraintIndicator:  [6]byte{0x90, 0, 0, 0, 0, 0},
				GeneralLevelIdc:             123,
				ChromaFormatIdc:             1,
				NumTemporalLayers:           1,
				TemporalIDNested:            true,
				LengthSizeMinusOne:          3,
				NaluArrays: []HEVCNaluArray{
					{
						Completeness: true,
						NaluType:     32,
						Nalus: []HEVCNalu{
							{Length: 2, NALUnit: []byte{0x40, 0x01}},
						},
					},
				},
			},
			dst: &HvcC{},
			bin: []byte{
				0x01,                   // configuration version
				0x01,                   // profile space, tier, profile idc
				0x60, 0x00, 0x00, 0x00, // profile compatibility
				0x90, 0x00, 0x00,
				0x00, 0x00, 0x00, // constraint indicator
				0x7b,       // level idc
				0xf0, 0x00, // min spatial segmentation
				0xfc,       // parallelism type
				0xfd,       // chroma format idc
				0xf8,       // bit depth luma minus 8
				0xf8,       // bit depth chroma minus 8
				0x00, 0x00, // avg frame rate
				0x0f,       // frame rate, layers, nested, length size
				0x01,       // num of arrays
				0xa0,       // completeness, NALU type
				0x00, 0x01, // num NALUs
				0x00, 0x02, // NALU length
				0x40, 0x01, // NALU
			},
		},
		{
			name: "av1C",
			src: &Av1C{
				SeqLevelIdx0:       8,
				ChromaSubsamplingX: 1,
				ChromaSubsamplingY: 1,
			},
			dst: &Av1C{},
			bin: []byte{
				0x81, // marker, version
				0x08, // profile, level
				0x0c, // tier, depth, subsampling
				0x00, // presentation delay
			},
		},
		{
			name: "dOps: mapping family 0",
			src: &DOps{
				OutputChannelCount: 2,
				PreSkip:            312,
				InputSampleRate:    48000,
			},
			dst: &DOps{},
			bin: []byte{
				0x00,       // version
				0x02,       // output channel count
				0x01, 0x38, // pre skip
				0x00, 0x00, 0xbb, 0x80, // input sample rate
				0x00, 0x00, // output gain
				0x00, // channel mapping family
			},
		},
		{
			name: "dOps: mapping family 1",
			src: &DOps{
				OutputChannelCount:   2,
				PreSkip:              312,
				InputSampleRate:      48000,
				ChannelMappingFamily: 1,
				StreamCount:          1,
				CoupledCount:         1,
				ChannelMapping:       []byte{0, 1},
			},
			dst: &DOps{},
			bin: []byte{
				0x00,       // version
				0x02,       // output channel count
				0x01, 0x38, // pre skip
				0x00, 0x00, 0xbb, 0x80, // input sample rate
				0x00, 0x00, // output gain
				0x01,       // channel mapping family
				0x01, 0x01, // stream count, coupled count
				0x00, 0x01, // channel mapping
			},
		},
		{
			name: "esds",
			src: &Esds{
				ESID:                 1,
				ObjectTypeIndication: 0x40,
				StreamType:           0x15,
				DecSpecificInfo:      []byte{0x12, 0x10},
			},
			dst: &Esds{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0x03, 0x19, // ES descriptor
				0x00, 0x01, // ES ID
				0x00,       // flags
				0x04, 0x11, // decoder config descriptor
				0x40,             // object type indication
				0x15,             // stream type
				0x00, 0x00, 0x00, // buffer size DB
				0x00, 0x00, 0x00, 0x00, // max bitrate
				0x00, 0x00, 0x00, 0x00, // avg bitrate
				0x05, 0x02, // decoder specific info
				0x12, 0x10,
				0x06, 0x01, 0x02, // SL config descriptor
			},
		},
		{
			name: "colr: nclx",
			src: &Colr{
				ColorType:               ColrTypeNclx,
				ColorPrimaries:          1,
				TransferCharacteristics: 1,
				MatrixCoefficients:      1,
				FullRange:               true,
			},
			dst: &Colr{},
			bin: []byte{
				'n', 'c', 'l', 'x',
				0x00, 0x01, // color primaries
				0x00, 0x01, // transfer characteristics
				0x00, 0x01, // matrix coefficients
				0x80, // full range
			},
		},
		{
			name: "colr: prof",
			src: &Colr{
				ColorType: ColrTypeProf,
				Profile:   []byte{0x01, 0x02, 0x03},
			},
			dst: &Colr{},
			bin: []byte{
				'p', 'r', 'o', 'f',
				0x01, 0x02, 0x03,
			},
		},
		{
			name: "pasp",
			src: &Pasp{
				HSpacing: 1,
				VSpacing: 1,
			},
			dst: &Pasp{},
			bin: []byte{
				0x00, 0x00, 0x00, 0x01, // horizontal spacing
				0x00, 0x00, 0x00, 0x01, // vertical spacing
			},
		},
		{
			name: "prft: version 1",
			src: &Prft{
				FullBox:          FullBox{Version: 1},
				ReferenceTrackID: 1,
				NTPTimestamp:     0x0102030405060708,
				MediaTimeV1:      0x1122334455667788,
			},
			dst: &Prft{},
			bin: []byte{
				1, 0x00, 0x00, 0x00, // fullbox
				0x00, 0x00, 0x00, 0x01, // reference track ID
				0x01, 0x02, 0x03, 0x04,
				0x05, 0x06, 0x07, 0x08, // NTP timestamp
				0x11, 0x22, 0x33, 0x44,
				0x55, 0x66, 0x77, 0x88, // media time
			},
		},
		{
			name: "emsg: version 0",
			src: &Emsg{
				Timescale:             1000,
				PresentationTimeDelta: 8,
				EventDuration:         10,
				ID:                    1,
				SchemeIDURI:           "a",
				Value:                 "b",
				MessageData:           []byte{0xde, 0xad},
			},
			dst: &Emsg{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				'a', 0x00, // scheme ID URI
				'b', 0x00, // value
				0x00, 0x00, 0x03, 0xe8, // timescale
				0x00, 0x00, 0x00, 0x08, // presentation time delta
				0x00, 0x00, 0x00, 0x0a, // event duration
				0x00, 0x00, 0x00, 0x01, // ID
				0xde, 0xad, // message data
			},
		},
		{
			name: "emsg: version 1",
			src: &Emsg{
				FullBox:          FullBox{Version: 1},
				Timescale:        1000,
				PresentationTime: 0x0102030405060708,
				EventDuration:    10,
				ID:               1,
				SchemeIDURI:      "a",
				Value:            "b",
				MessageData:      []byte{0xde, 0xad},
			},
			dst: &Emsg{},
			bin: []byte{
				1, 0x00, 0x00, 0x00, // fullbox
				0x00, 0x00, 0x03, 0xe8, // timescale
				0x01, 0x02, 0x03, 0x04,
				0x05, 0x06, 0x07, 0x08, // presentation time
				0x00, 0x00, 0x00, 0x0a, // event duration
				0x00, 0x00, 0x00, 0x01, // ID
				'a', 0x00, // scheme ID URI
				'b', 0x00, // value
				0xde, 0xad, // message data
			},
		},
		{
			name: "pssh: version 1",
			src: &Pssh{
				FullBox: FullBox{Version: 1},
				SystemID: [16]byte{
					0x10, 0x77, 0xef, 0xec, 0xc0, 0xb2, 0x4d, 0x02,
					0xac, 0xe3, 0x3c, 0x1e, 0x52, 0xe2, 0xfb, 0x4b,
				},
				KIDs: [][16]byte{{
					0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
					0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
				}},
				Data: []byte{0xd1, 0xd2},
			},
			dst: &Pssh{},
			bin: []byte{
				1, 0x00, 0x00, 0x00, // fullbox
				0x10, 0x77, 0xef, 0xec, 0xc0, 0xb2, 0x4d, 0x02,
				0xac, 0xe3, 0x3c, 0x1e, 0x52, 0xe2, 0xfb, 0x4b, // system ID
				0x00, 0x00, 0x00, 0x01, // KID count
				0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
				0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, // KID
				0x00, 0x00, 0x00, 0x02, // data size
				0xd1, 0xd2, // data
			},
		},
		{
			name: "frma",
			src: &Frma{
				DataFormat: [4]byte{'a', 'v', 'c', '1'},
			},
			dst: &Frma{},
			bin: []byte{
				'a', 'v', 'c', '1',
			},
		},
		{
			name: "schm: with scheme URI",
			src: &Schm{
				FullBox: FullBox{
					Flags: [3]byte{0x00, 0x00, 0x01},
				},
				SchemeType:    [4]byte{'c', 'e', 'n', 'c'},
				SchemeVersion: 0x00010000,
				SchemeURI:     "urn:test",
			},
			dst: &Schm{},
			bin: []byte{
				0, 0x00, 0x00, 0x01, // fullbox
				'c', 'e', 'n', 'c', // scheme type
				0x00, 0x01, 0x00, 0x00, // scheme version
				'u', 'r', 'n', ':', 't', 'e', 's', 't', 0x00,
			},
		},
		{
			name: "tenc: version 0 with constant IV",
			src: &Tenc{
				DefaultIsProtected: true,
				DefaultKID: [16]byte{
					0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
					0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
				},
				DefaultConstantIVSize: 8,
				DefaultConstantIV: [16]byte{
					0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
				},
			},
			dst: &Tenc{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0x00, 0x00, // reserved
				0x01, // is protected
				0x00, // per sample IV size
				0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
				0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, // KID
				0x08, // constant IV size
				0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
			},
		},
		{
			name: "tenc: version 1 byte blocks",
			src: &Tenc{
				FullBox:                FullBox{Version: 1},
				DefaultCryptByteBlock:  1,
				DefaultSkipByteBlock:   9,
				DefaultIsProtected:     true,
				DefaultPerSampleIVSize: 8,
				DefaultKID: [16]byte{
					0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
					0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
				},
			},
			dst: &Tenc{},
			bin: []byte{
				1, 0x00, 0x00, 0x00, // fullbox
				0x00, // reserved
				0x19, // crypt and skip byte blocks
				0x01, // is protected
				0x08, // per sample IV size
				0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
				0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, // KID
			},
		},
		{
			name: "mp4a",
			src: &Mp4a{
				SampleEntry: SampleEntry{
					DataReferenceIndex: 1,
				},
				ChannelCount: 2,
				SampleSize:   16,
				SampleRate:   48000 << 16,
			},
			dst: &Mp4a{},
			bin: []byte{
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x01, // data reference index
				0x00, 0x00, // entry version
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x02, // channel count
				0x00, 0x10, // sample size
				0x00, 0x00, // predefined
				0x00, 0x00, // reserved
				0xbb, 0x80, 0x00, 0x00, // sample rate
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Marshal.
			box := Boxes{Box: tc.src}
			buf := bytes.NewBuffer(make([]byte, 0, tc.src.Size()))

			w := bitio.NewWriter(buf)
			err := box.Box.Marshal(w)
			require.NoError(t, err)

			require.Equal(t, tc.src.Size(), buf.Len())
			require.Equal(t, tc.bin, buf.Bytes())

			// Unmarshal.
			r := bitio.NewReader(bytes.NewReader(tc.bin))
			err = tc.dst.Unmarshal(r, uint64(len(tc.bin)))
			require.NoError(t, err)
			require.Equal(t, tc.src, tc.dst)
		})
	}
}

// TestEntryCountExceedsPayload feeds each counted box a payload whose
// count field claims far more entries than the payload could hold. The
// decoder must reject the count instead of allocating for it.
func TestEntryCountExceedsPayload(t *testing.T) {
	testCases := []struct {
		name string
		dst  Box
		bin  []byte
	}{
		{
			name: "ctts",
			dst:  &Ctts{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0xff, 0xff, 0xff, 0xff, // entry count
			},
		},
		{
			name: "elst",
			dst:  &Elst{},
			bin: []byte{
				1, 0x00, 0x00, 0x00, // fullbox
				0xff, 0xff, 0xff, 0xff, // entry count
			},
		},
		{
			name: "stco",
			dst:  &Stco{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0xff, 0xff, 0xff, 0xff, // entry count
			},
		},
		{
			name: "stsc",
			dst:  &Stsc{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0xff, 0xff, 0xff, 0xff, // entry count
			},
		},
		{
			name: "stss",
			dst:  &Stss{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0xff, 0xff, 0xff, 0xff, // entry count
			},
		},
		{
			name: "stsz",
			dst:  &Stsz{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0x00, 0x00, 0x00, 0x00, // sample size
				0xff, 0xff, 0xff, 0xff, // sample count
			},
		},
		{
			name: "stts",
			dst:  &Stts{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0xff, 0xff, 0xff, 0xff, // entry count
			},
		},
		{
			name: "trun",
			dst:  &Trun{},
			bin: []byte{
				1, 0x00, 0x03, 0x00, // fullbox, duration and size present
				0xff, 0xff, 0xff, 0xff, // sample count
			},
		},
		{
			name: "pssh KID count",
			dst:  &Pssh{},
			bin: []byte{
				1, 0x00, 0x00, 0x00, // fullbox
				0x10, 0x77, 0xef, 0xec, 0xc0, 0xb2, 0x4d, 0x02,
				0xac, 0xe3, 0x3c, 0x1e, 0x52, 0xe2, 0xfb, 0x4b, // system ID
				0xff, 0xff, 0xff, 0xff, // KID count
			},
		},
		{
			name: "pssh data size",
			dst:  &Pssh{},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // fullbox
				0x10, 0x77, 0xef, 0xec, 0xc0, 0xb2, 0x4d, 0x02,
				0xac, 0xe3, 0x3c, 0x1e, 0x52, 0xe2, 0xfb, 0x4b, // system ID
				0xff, 0xff, 0xff, 0xff, // data size
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := bitio.NewReader(bytes.NewReader(tc.bin))
			err := tc.dst.Unmarshal(r, uint64(len(tc.bin)))
			require.ErrorIs(t, err, ErrInvalidData)
		})
	}
}

func TestEmsgPayloadTooShort(t *testing.T) {
	bin := []byte{
		0, 0x00, 0x00, 0x00, // fullbox
		'a', 0x00, // scheme ID URI
		'b', 0x00, // value
	}
	r := bitio.NewReader(bytes.NewReader(bin))
	err := (&Emsg{}).Unmarshal(r, uint64(len(bin)))
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestAvcCParameterSetOverrun(t *testing.T) {
	// A SPS longer than the declared payload, with sibling bytes
	// following it in the stream.
	bin := []byte{
		0x01,             // configuration version
		0x4d, 0xc0, 0x1e, // profile, compatibility, level
		0x03,       // length size minus one
		0x01,       // num of SPS
		0x00, 0x08, // SPS length
		0x67, 0x4d, 0x00, 0x1e, 0x01, 0x02, 0x03, 0x04, // SPS
		0x00, // num of PPS
	}
	r := bitio.NewReader(bytes.NewReader(bin))
	err := (&AvcC{}).Unmarshal(r, 12)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestColrInvalidType(t *testing.T) {
	colr := &Colr{ColorType: [4]byte{'b', 'o', 'g', 's'}}
	w := bitio.NewWriter(bytes.NewBuffer(nil))
	require.ErrorIs(t, colr.Marshal(w), ErrInvalidData)

	bin := []byte{'b', 'o', 'g', 's', 0, 0, 0, 0, 0, 0, 0}
	r := bitio.NewReader(bytes.NewReader(bin))
	require.ErrorIs(t, (&Colr{}).Unmarshal(r, uint64(len(bin))), ErrInvalidData)
}

func TestTencMissingConstantIV(t *testing.T) {
	tenc := &Tenc{DefaultIsProtected: true}
	w := bitio.NewWriter(bytes.NewBuffer(nil))
	require.ErrorIs(t, tenc.Marshal(w), ErrInvalidData)
}

func TestSinf(t *testing.T) {
	src := &Sinf{
		Frma: Frma{DataFormat: [4]byte{'a', 'v', 'c', '1'}},
		Schm: &Schm{
			SchemeType:    [4]byte{'c', 'e', 'n', 'c'},
			SchemeVersion: 0x00010000,
		},
		Schi: &Schi{
			Tenc: Tenc{
				DefaultIsProtected:     true,
				DefaultPerSampleIVSize: 8,
				DefaultKID: [16]byte{
					0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
					0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
				},
			},
		},
	}

	buf := bytes.NewBuffer(nil)
	w := bitio.NewWriter(buf)
	_, err := WriteSingleBox(w, src)
	require.NoError(t, err)
	require.Equal(t, 8+src.Size(), buf.Len())

	r := bitio.NewReader(bytes.NewReader(buf.Bytes()))
	hdr, err := ReadBoxHeader(r)
	require.NoError(t, err)
	require.Equal(t, src.Type(), hdr.Type)

	dst := &Sinf{}
	require.NoError(t, dst.Unmarshal(r, hdr.PayloadSize()))
	require.Equal(t, src, dst)
}

func TestSinfMissingFrma(t *testing.T) {
	// A sinf containing only a schm box.
	schm := &Schm{SchemeType: [4]byte{'c', 'e', 'n', 'c'}}
	buf := bytes.NewBuffer(nil)
	w := bitio.NewWriter(buf)
	_, err := WriteSingleBox(w, schm)
	require.NoError(t, err)

	r := bitio.NewReader(bytes.NewReader(buf.Bytes()))
	err = (&Sinf{}).Unmarshal(r, uint64(buf.Len()))

	var notFound BoxNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, (&Frma{}).Type(), notFound.Type)
}
