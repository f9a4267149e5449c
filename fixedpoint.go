package mp4

// FixedPointU16 is a 16.16 fixed-point number stored in its raw
// 32-bit wire form.
type FixedPointU16 uint32

// NewFixedPointU16 returns the fixed-point form of an integer value.
func NewFixedPointU16(v uint16) FixedPointU16 {
	return FixedPointU16(uint32(v) << 16)
}

// Value returns the integer part.
func (f FixedPointU16) Value() uint16 {
	return uint16(uint32(f) >> 16)
}

// Raw returns the raw 32-bit wire form.
func (f FixedPointU16) Raw() uint32 {
	return uint32(f)
}
