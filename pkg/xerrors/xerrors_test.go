package xerrors

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"testing"
)

func TestKindOf(t *testing.T) {
	wrapped := Wrap(KindTransport, "op", "", errors.New("boom"))

	testcases := []struct {
		name string
		err  error
		kind Kind
	}{
		{name: "nil", err: nil, kind: KindInvalid},
		{name: "wrapped error", err: wrapped, kind: KindTransport},
		{name: "fmt wrapped", err: fmt.Errorf("outer: %w", wrapped), kind: KindTransport},
		{name: "context canceled", err: context.Canceled, kind: KindCanceled},
		{name: "deadline exceeded", err: context.DeadlineExceeded, kind: KindTimeout},
		{name: "iofs invalid", err: iofs.ErrInvalid, kind: KindInvalid},
		{name: "os not exist", err: os.ErrNotExist, kind: KindNotFound},
		{name: "unknown error defaults internal", err: errors.New("other"), kind: KindInternal},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.kind {
				t.Fatalf("KindOf() = %v, want %v", got, tc.kind)
			}
		})
	}
}

func TestHasWalksChain(t *testing.T) {
	inner := E(KindMalformedInput, "chunk.Decode", "")
	outer := Wrap(KindRetrieval, "Client.Get", "5-AQI=", inner)

	if KindOf(outer) != KindRetrieval {
		t.Fatalf("outer kind = %v", KindOf(outer))
	}
	if !Has(outer, KindMalformedInput) {
		t.Fatalf("expected malformed input in chain")
	}
	if Has(outer, KindTimeout) {
		t.Fatalf("unexpected timeout in chain")
	}
	if !errors.Is(outer, inner) {
		t.Fatalf("errors.Is should reach the cause")
	}

	joined := errors.Join(E(KindInvalidIdentifier, "blob.ParseID", "x"), fmt.Errorf("lookup: %w", E(KindNotFound, "ledger.Lookup", "x")))
	if !Has(joined, KindInvalidIdentifier) || !Has(joined, KindNotFound) {
		t.Fatalf("expected both kinds in joined error: %v", joined)
	}
}

func TestCodeOf(t *testing.T) {
	err := Wrap(KindTransport, "x", "", WithCode(KindUnconfirmed, "Client.Put", "req", 3))
	code, ok := CodeOf(err)
	if !ok || code != 3 {
		t.Fatalf("CodeOf = %d, %v", code, ok)
	}
	if _, ok := CodeOf(E(KindTimeout, "Client.Put", "")); ok {
		t.Fatalf("expected no code")
	}
}

func TestErrorString(t *testing.T) {
	err := WithCode(KindUnconfirmed, "Client.Put", "abcd", 5)
	want := "Client.Put: submission not confirmed abcd (status 5)"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	wrapped := Wrap(KindTransport, "Client.Disperse", "", errors.New("unavailable"))
	if wrapped.Error() != "Client.Disperse: transport error: unavailable" {
		t.Fatalf("Error() = %q", wrapped.Error())
	}
	if Wrap(KindInternal, "op", "", nil) != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
}
