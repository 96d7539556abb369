package chunk

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/jacktea/eigenkv/pkg/xerrors"
)

func TestEncodeLayout(t *testing.T) {
	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i + 1)
	}
	out := Encode(data)
	if len(out) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(out))
	}
	if out[0] != 0 || out[32] != 0 {
		t.Fatalf("reserved bytes not zero: %x %x", out[0], out[32])
	}
	if !bytes.Equal(out[1:32], data[:31]) {
		t.Fatalf("first stride mismatch: %x", out[1:32])
	}
	if !bytes.Equal(out[33:42], data[31:]) {
		t.Fatalf("second stride mismatch: %x", out[33:42])
	}
	for i, b := range out[42:] {
		if b != 0 {
			t.Fatalf("padding byte %d = %x", 42+i, b)
		}
	}
}

func TestEncodeStrideInvariant(t *testing.T) {
	for n := 0; n <= 200; n++ {
		out := Encode(make([]byte, n))
		want := 32 * ((n + 30) / 31)
		if len(out) != want {
			t.Fatalf("len(Encode(%d bytes)) = %d, want %d", n, len(out), want)
		}
		if len(out)%StrideSize != 0 {
			t.Fatalf("len %d not stride aligned", len(out))
		}
		if EncodedLen(n) != want {
			t.Fatalf("EncodedLen(%d) = %d, want %d", n, EncodedLen(n), want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		data := make([]byte, rng.Intn(300)+1)
		rng.Read(data)
		if data[len(data)-1] == 0 {
			data[len(data)-1] = 0xff
		}
		got, err := Decode(Encode(data))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch for %d bytes", len(data))
		}
	}
}

func TestRoundTripDropsTrailingZeros(t *testing.T) {
	// Known limitation: trailing zero bytes are indistinguishable from padding.
	got, err := Decode(Encode([]byte{1, 2, 0}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2}) {
		t.Fatalf("expected [1 2], got %v", got)
	}

	got, err = Decode(Encode([]byte{0, 0, 0}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
	if len(Encode(nil)) != 0 {
		t.Fatalf("expected empty encoding")
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, n := range []int{1, 31, 33, 63} {
		_, err := Decode(make([]byte, n))
		if err == nil {
			t.Fatalf("expected error for %d bytes", n)
		}
		if xerrors.KindOf(err) != xerrors.KindMalformedInput {
			t.Fatalf("kind = %v", xerrors.KindOf(err))
		}
		if !errors.Is(err, ErrMalformedInput) {
			t.Fatalf("expected ErrMalformedInput, got %v", err)
		}
	}
}

func TestGuardBoundary(t *testing.T) {
	g := Guard{MaxBytes: 64}
	if !g.Fits(make([]byte, 63)) {
		t.Fatalf("63 bytes should fit")
	}
	if g.Fits(make([]byte, 64)) {
		t.Fatalf("64 bytes should not fit")
	}

	var def Guard
	if def.Limit() != 2*1024*1024 {
		t.Fatalf("default limit = %d", def.Limit())
	}
	if !def.Fits(make([]byte, DefaultMaxBytes-1)) {
		t.Fatalf("max-1 should fit")
	}
	if def.Fits(make([]byte, DefaultMaxBytes)) {
		t.Fatalf("max should not fit")
	}
}
