package payload

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// DefaultMaxInflated caps the decompressed size accepted by Gzip.Unmarshal.
const DefaultMaxInflated = 64 << 20

// Gzip compresses the output of another serializer. The gzip trailer ends
// with the little-endian input size, which is frequently zero-padded, so the
// stream is followed by a terminator byte.
type Gzip struct {
	Inner Serializer
	// Level is a gzip compression level; zero selects gzip.BestCompression.
	Level int
	// MaxInflated bounds decompression; zero selects DefaultMaxInflated.
	MaxInflated int64
}

func (g Gzip) Name() string { return g.inner().Name() + "+gzip" }

func (g Gzip) Marshal(v any) ([]byte, error) {
	raw, err := g.inner().Marshal(v)
	if err != nil {
		return nil, err
	}
	level := g.Level
	if level == 0 {
		level = gzip.BestCompression
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return seal(buf.Bytes()), nil
}

func (g Gzip) Unmarshal(data []byte, v any) error {
	body, err := unseal(data)
	if err != nil {
		return err
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer zr.Close()
	limit := g.MaxInflated
	if limit <= 0 {
		limit = DefaultMaxInflated
	}
	raw, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return err
	}
	if int64(len(raw)) > limit {
		return fmt.Errorf("payload: inflated size exceeds %d bytes", limit)
	}
	return g.inner().Unmarshal(raw, v)
}

func (g Gzip) inner() Serializer {
	if g.Inner == nil {
		return JSON{}
	}
	return g.Inner
}
