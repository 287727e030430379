package cser

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-token-layer/utils/bits"
	"github.com/rony4d/go-token-layer/utils/fast"
)

// newReaderFromWriter connects a Reader directly to a Writer's streams,
// bypassing the container framing of binary.go.
func newReaderFromWriter(w *Writer) *Reader {
	return &Reader{
		BitsR:  bits.NewReader(w.BitsW.Array),
		BytesR: fast.NewReader(w.BytesW.Bytes()),
	}
}

func TestIntegersRoundTrip(t *testing.T) {
	w := NewWriter()

	u8Vals := []uint8{0, 1, 0xFF}
	u16Vals := []uint16{0, 1, 0xFF, 0xFFFF}
	u32Vals := []uint32{0, 1, 0xFFFF, 0xFFFFFFFF}
	u64Vals := []uint64{0, 1, 0xFFFF, 0xFFFFFFFF, 0xFFFFFFFFFFFFFFFF}
	i64Vals := []int64{0, 1, -1, math.MinInt64 + 1, math.MaxInt64}
	u56Vals := []uint64{0, 1, (1 << 56) - 1}

	for _, v := range u8Vals {
		w.U8(v)
	}
	for _, v := range u16Vals {
		w.U16(v)
	}
	for _, v := range u32Vals {
		w.U32(v)
	}
	for _, v := range u64Vals {
		w.U64(v)
	}
	for _, v := range u64Vals {
		w.VarUint(v)
	}
	for _, v := range i64Vals {
		w.I64(v)
	}
	for _, v := range u56Vals {
		w.U56(v)
	}

	r := newReaderFromWriter(w)

	for i, want := range u8Vals {
		assert.Equal(t, want, r.U8(), "U8 index %d", i)
	}
	for i, want := range u16Vals {
		assert.Equal(t, want, r.U16(), "U16 index %d", i)
	}
	for i, want := range u32Vals {
		assert.Equal(t, want, r.U32(), "U32 index %d", i)
	}
	for i, want := range u64Vals {
		assert.Equal(t, want, r.U64(), "U64 index %d", i)
	}
	for i, want := range u64Vals {
		assert.Equal(t, want, r.VarUint(), "VarUint index %d", i)
	}
	for i, want := range i64Vals {
		assert.Equal(t, want, r.I64(), "I64 index %d", i)
	}
	for i, want := range u56Vals {
		assert.Equal(t, want, r.U56(), "U56 index %d", i)
	}

	// Both streams must be drained; the bit stream may carry zero
	// padding up to the next byte boundary.
	assert.True(t, r.BytesR.Empty(), "byte stream not drained")
	remaining := r.BitsR.NonReadBits()
	assert.Less(t, remaining, 8, "at most padding bits may remain")
	if remaining > 0 {
		assert.Equal(t, uint(0), r.BitsR.Read(remaining), "padding bits must be zero")
	}
}

func TestBoolRoundTrip(t *testing.T) {
	w := NewWriter()
	vals := []bool{true, false, true, true, false}

	for _, v := range vals {
		w.Bool(v)
	}

	r := newReaderFromWriter(w)
	for i, want := range vals {
		assert.Equal(t, want, r.Bool(), "Bool index %d", i)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	w := NewWriter()

	fixed := []byte{1, 2, 3}
	slice := []byte{6, 7, 8, 9}
	empty := []byte{}

	w.FixedBytes(fixed)
	w.SliceBytes(slice)
	w.SliceBytes(empty)

	r := newReaderFromWriter(w)

	buf := make([]byte, len(fixed))
	r.FixedBytes(buf)
	assert.Equal(t, fixed, buf)

	assert.Equal(t, slice, r.SliceBytes(100))
	assert.Equal(t, empty, r.SliceBytes(100))
}

// BigInt stores only the magnitude; protocol values are never negative.
func TestBigIntRoundTrip(t *testing.T) {
	w := NewWriter()
	vals := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(123456789),
		new(big.Int).SetUint64(math.MaxUint64),
	}

	for _, v := range vals {
		w.BigInt(v)
	}

	r := newReaderFromWriter(w)
	for i, want := range vals {
		assert.Equal(t, want, r.BigInt(), "BigInt index %d", i)
	}
}

func TestPaddedBytes(t *testing.T) {
	tests := []struct {
		in       []byte
		n        int
		expected []byte
	}{
		{[]byte{1}, 2, []byte{0, 1}},
		{[]byte{1, 2}, 2, []byte{1, 2}},
		{[]byte{1, 2, 3}, 2, []byte{1, 2, 3}},
		{[]byte{}, 3, []byte{0, 0, 0}},
	}
	for i, tc := range tests {
		assert.Equal(t, tc.expected, PaddedBytes(tc.in, tc.n), "case %d", i)
	}
}

// SliceBytes enforces the caller's allocation limit.
func TestAllocLimit(t *testing.T) {
	w := NewWriter()
	w.SliceBytes(make([]byte, 100))

	r := newReaderFromWriter(w)
	assert.PanicsWithError(t, ErrTooLargeAlloc.Error(), func() {
		r.SliceBytes(50)
	})
}

func TestU56Overflow(t *testing.T) {
	w := NewWriter()
	assert.Panics(t, func() {
		w.U56(1 << 56)
	})
}

// TestCompactLayout inspects the raw streams to confirm minimal packing.
func TestCompactLayout(t *testing.T) {
	w := NewWriter()
	w.U64(0)
	require.Equal(t, []byte{0}, w.BytesW.Bytes(), "U64(0) must occupy one value byte")

	w = NewWriter()
	w.U64(256)
	require.Equal(t, []byte{0, 1}, w.BytesW.Bytes(), "U64(256) must occupy two value bytes")

	r := newReaderFromWriter(w)
	sizeOffset := r.BitsR.Read(3)
	assert.Equal(t, uint(1), sizeOffset, "length selector of a 2-byte U64")
}
