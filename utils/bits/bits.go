package bits

// Package bits implements a bit-granular Reader and Writer over a plain
// byte slice. Payload encoding packs many sub-byte fields (presence flags,
// 2-3 bit length selectors) and storing each of them in a full byte would
// roughly double the size of small instructions, so the codec keeps them
// in a dedicated bit stream instead.
//
// Bits are written LSB-first within each byte: the first bit written lands
// in bit 0 of byte 0, the ninth in bit 0 of byte 1, and so on. The Reader
// consumes them in the same order.

type (
	// Array is the backing storage of a bit stream.
	Array struct {
		Bytes []byte
	}

	// Writer appends bit groups to an Array. It tracks only the bit
	// cursor inside the last byte; the byte position is implied by
	// len(Bytes).
	Writer struct {
		*Array
		bitOffset int // next free bit (0-7) in Bytes[len-1]
	}

	// Reader consumes bit groups from an Array, tracking both the byte
	// index and the bit cursor inside it.
	Reader struct {
		*Array
		byteOffset int
		bitOffset  int
	}
)

// NewWriter returns a Writer appending to arr.
func NewWriter(arr *Array) *Writer {
	return &Writer{
		Array: arr,
	}
}

// NewReader returns a Reader consuming arr from the beginning.
func NewReader(arr *Array) *Reader {
	return &Reader{
		Array: arr,
	}
}

func (a *Writer) byteBitsFree() int {
	return 8 - a.bitOffset
}

// writeIntoLastByte ORs the low bits of v into the free slots of the
// current byte. Bits already written are never touched.
func (a *Writer) writeIntoLastByte(v uint) {
	a.Bytes[len(a.Bytes)-1] |= byte(v << a.bitOffset)
}

// maskLowBits keeps only the bits of v that fit after 'used' high bits
// are discarded. Used when a group is split across a byte boundary.
func maskLowBits(v uint, used int) uint {
	mask := uint(0xff) >> used
	return v & mask
}

// Write appends the lowest 'bits' bits of v to the stream.
func (a *Writer) Write(bits int, v uint) {
	if a.bitOffset == 0 {
		a.Bytes = append(a.Bytes, byte(0))
	}

	free := a.byteBitsFree()

	if bits <= free {
		// The group fits into the current byte.
		a.writeIntoLastByte(v)
		if bits == free {
			a.bitOffset = 0
		} else {
			a.bitOffset += bits
		}
	} else {
		// The group spills over: fill the current byte, then recurse
		// with the remaining high bits.
		a.writeIntoLastByte(maskLowBits(v, a.bitOffset))
		a.bitOffset = 0
		a.Write(bits-free, v>>free)
	}
}

func (a *Reader) byteBitsFree() int {
	return 8 - a.bitOffset
}

// Read consumes 'bits' bits and returns them as an integer. Reading past
// the end of the backing array panics with an index error; the cser layer
// recovers such panics into a malformed-encoding error.
func (a *Reader) Read(bits int) (v uint) {
	if bits == 0 {
		return 0
	}

	free := a.byteBitsFree()

	if bits <= free {
		// Whole group sits inside the current byte: mask away the bits
		// above it, then shift out the cursor offset.
		clear := 8 - (a.bitOffset + bits)
		v = maskLowBits(uint(a.Bytes[a.byteOffset]), clear) >> a.bitOffset
		if bits == free {
			a.bitOffset = 0
			a.byteOffset++
		} else {
			a.bitOffset += bits
		}
	} else {
		// Group spans a byte boundary: take what is left here, then
		// recurse for the high bits.
		v = uint(a.Bytes[a.byteOffset]) >> a.bitOffset
		a.bitOffset = 0
		a.byteOffset++
		rest := a.Read(bits - free)
		v |= rest << free
	}
	return
}

// View peeks at the next 'bits' bits without advancing the cursor.
func (a *Reader) View(bits int) (v uint) {
	cp := *a
	return (&cp).Read(bits)
}

// NonReadBytes returns how many bytes the Reader has not fully consumed.
func (a *Reader) NonReadBytes() int {
	return len(a.Bytes) - a.byteOffset
}

// NonReadBits returns how many individual bits remain unread.
func (a *Reader) NonReadBits() int {
	return a.NonReadBytes()*8 - a.bitOffset
}
