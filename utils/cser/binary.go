package cser

import (
	"github.com/rony4d/go-token-layer/utils/bits"
	"github.com/rony4d/go-token-layer/utils/fast"
)

// binary.go defines the container format that merges the two cser streams
// into a single byte slice, and splits them back apart on decode.
//
// Wire layout:
//
//	[ value bytes ... ][ bit-stream bytes ... ][ reversed varint: len(bit-stream) ]
//
// The bit-stream length is appended as a byte-reversed varint so the
// decoder can scan backwards from the end of the payload to find the
// split point without any leading header.

// MarshalBinaryAdapter runs the provided serialization callback against a
// fresh Writer and packs both streams into one byte slice.
func MarshalBinaryAdapter(marshalCser func(*Writer) error) ([]byte, error) {
	w := NewWriter()

	err := marshalCser(w)
	if err != nil {
		return nil, err
	}

	return binaryFromCSER(w.BitsW.Array, w.BytesW.Bytes())
}

// binaryFromCSER appends the bit-stream bytes and the reversed length
// suffix after the value bytes.
func binaryFromCSER(bbits *bits.Array, bbytes []byte) (raw []byte, err error) {
	bodyBytes := fast.NewWriter(bbytes)
	bodyBytes.Write(bbits.Bytes)

	sizeWriter := fast.NewWriter(make([]byte, 0, 4))
	writeUint64Compact(sizeWriter, uint64(len(bbits.Bytes)))
	bodyBytes.Write(reversed(sizeWriter.Bytes()))

	return bodyBytes.Bytes(), nil
}

// binaryToCSER splits a raw payload back into its bit and byte streams,
// working backwards from the length suffix.
func binaryToCSER(raw []byte) (bbits *bits.Array, bbytes []byte, err error) {
	// A 64-bit varint occupies at most 9 bytes; un-reverse the tail and
	// decode the bit-stream length from it.
	bitsSizeBuf := reversed(tail(raw, 9))
	bitsSizeReader := fast.NewReader(bitsSizeBuf)
	bitsSize := readUint64Compact(bitsSizeReader)

	// Strip the suffix; what remains is [value bytes][bit-stream bytes].
	raw = raw[:len(raw)-bitsSizeReader.Position()]
	if uint64(len(raw)) < bitsSize {
		err = ErrMalformedEncoding
		return
	}

	bbits = &bits.Array{Bytes: raw[uint64(len(raw))-bitsSize:]}
	bbytes = raw[:uint64(len(raw))-bitsSize]
	return
}

// UnmarshalBinaryAdapter splits the raw payload and runs the provided
// deserialization callback, enforcing canonical-encoding rules afterwards.
// Internal codec panics (truncated input, padded integers) surface as
// ErrMalformedEncoding rather than crashing the caller; a hostile payload
// embedded in a chain transaction must never take down block processing.
func UnmarshalBinaryAdapter(raw []byte, unmarshalCser func(reader *Reader) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrMalformedEncoding
		}
	}()

	bbits, bbytes, err := binaryToCSER(raw)
	if err != nil {
		return err
	}

	bodyReader := &Reader{
		BitsR:  bits.NewReader(bbits),
		BytesR: fast.NewReader(bbytes),
	}

	err = unmarshalCser(bodyReader)
	if err != nil {
		return err
	}

	// Canonical checks: every byte and bit must be consumed, and unused
	// trailing bits of the final bit-stream byte must be zero.
	if bodyReader.BitsR.NonReadBytes() > 1 {
		return ErrNonCanonicalEncoding
	}
	tail := bodyReader.BitsR.Read(bodyReader.BitsR.NonReadBits())
	if tail != 0 {
		return ErrNonCanonicalEncoding
	}
	if !bodyReader.BytesR.Empty() {
		return ErrNonCanonicalEncoding
	}

	return nil
}

// tail returns the last cap bytes of b, or all of b if shorter.
func tail(b []byte, cap int) []byte {
	if len(b) > cap {
		return b[len(b)-cap:]
	}
	return b
}

// reversed returns a new slice with the bytes of b in reverse order.
func reversed(b []byte) []byte {
	reversed := make([]byte, len(b))
	for i, v := range b {
		reversed[len(b)-1-i] = v
	}
	return reversed
}
