// Package payload turns application values into the bytes handed to the
// chunk codec, and back.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Serializer converts application values to bytes.
type Serializer interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// terminator closes every binary frame. The chunk codec trims trailing zero
// bytes on decode, and both CBOR and gzip output may legitimately end in 0x00.
const terminator = 0x01

// ErrUnterminated reports a binary frame missing its terminator byte.
var ErrUnterminated = errors.New("payload: frame is not terminated")

func seal(data []byte) []byte {
	return append(data, terminator)
}

func unseal(data []byte) ([]byte, error) {
	if len(data) == 0 || data[len(data)-1] != terminator {
		return nil, ErrUnterminated
	}
	return data[:len(data)-1], nil
}

// JSON serializes values as UTF-8 JSON text. JSON text never ends in a zero
// byte, so it is stored unframed.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Lookup resolves a serializer by name: json, cbor, json+gzip or cbor+gzip.
func Lookup(name string) (Serializer, error) {
	base, compressed := strings.CutSuffix(strings.ToLower(strings.TrimSpace(name)), "+gzip")
	var s Serializer
	switch base {
	case "", "json":
		s = JSON{}
	case "cbor":
		s = CBOR{}
	default:
		return nil, fmt.Errorf("payload: unknown serializer %q", name)
	}
	if compressed {
		s = Gzip{Inner: s}
	}
	return s, nil
}
