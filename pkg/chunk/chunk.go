// Package chunk maps arbitrary byte sequences onto the field-element aligned
// layout accepted by the disperser, and back.
//
// Every 32-byte stride starts with a reserved zero byte so the stride, read
// as a big-endian integer, stays below the BN254 field modulus. The remaining
// 31 bytes carry payload.
package chunk

import (
	"errors"
	"fmt"

	"github.com/jacktea/eigenkv/pkg/xerrors"
)

const (
	// StrideSize is the width of one encoded field element.
	StrideSize = 32
	// PayloadPerStride is the number of payload bytes carried by one stride.
	PayloadPerStride = StrideSize - 1
)

// ErrMalformedInput reports encoded data whose length is not stride aligned.
var ErrMalformedInput = errors.New("encoded length is not a multiple of the stride size")

// EncodedLen returns the encoded size of an n-byte payload.
func EncodedLen(n int) int {
	return StrideSize * ((n + PayloadPerStride - 1) / PayloadPerStride)
}

// Encode packs data into 32-byte strides whose first byte is zero.
func Encode(data []byte) []byte {
	out := make([]byte, EncodedLen(len(data)))
	for i, off := 0, 0; off < len(data); i, off = i+1, off+PayloadPerStride {
		end := off + PayloadPerStride
		if end > len(data) {
			end = len(data)
		}
		copy(out[i*StrideSize+1:], data[off:end])
	}
	return out
}

// Decode strips the reserved byte from every stride and trims trailing zero
// padding.
//
// The trim cannot tell padding from payload: data that ended in 0x00 before
// Encode comes back without those bytes. Serializers that may emit a trailing
// zero must frame their output accordingly.
func Decode(encoded []byte) ([]byte, error) {
	if len(encoded)%StrideSize != 0 {
		return nil, xerrors.Wrap(xerrors.KindMalformedInput, "chunk.Decode", "",
			fmt.Errorf("%w: got %d bytes", ErrMalformedInput, len(encoded)))
	}
	out := make([]byte, 0, len(encoded)/StrideSize*PayloadPerStride)
	for off := 0; off < len(encoded); off += StrideSize {
		out = append(out, encoded[off+1:off+StrideSize]...)
	}
	end := len(out)
	for end > 0 && out[end-1] == 0 {
		end--
	}
	return out[:end], nil
}
