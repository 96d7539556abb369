// Package da stores application values on a data-availability network and
// reads them back.
//
// A Put serializes the value, packs it into field-element strides, disperses
// it and polls the disperser until the blob is placed. The resulting blob.ID
// is all a caller needs to Get the value later.
package da

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jacktea/eigenkv/pkg/blob"
	"github.com/jacktea/eigenkv/pkg/cache"
	"github.com/jacktea/eigenkv/pkg/chunk"
	"github.com/jacktea/eigenkv/pkg/payload"
	"github.com/jacktea/eigenkv/pkg/xerrors"
)

// DefaultPollInterval is the delay between two status polls.
const DefaultPollInterval = time.Second

// Config wires a Client.
type Config struct {
	Transport  blob.Transport
	Serializer payload.Serializer
	// MaxPayloadBytes is the exclusive ceiling on encoded blobs; zero selects
	// chunk.DefaultMaxBytes.
	MaxPayloadBytes int
	PollInterval    time.Duration
	// CacheEntries sizes the retrieval cache: zero selects 512 entries and a
	// negative value disables caching.
	CacheEntries int
	CacheTTL     time.Duration
	Logger       *slog.Logger
}

// PutOptions tunes a single Put.
type PutOptions struct {
	// MaxTimeout bounds the whole submission. Zero waits until the network
	// reaches an exit condition.
	MaxTimeout time.Duration
}

// Client implements the submission and retrieval flows. It is safe for
// concurrent use; every call keeps its own state.
type Client struct {
	transport    blob.Transport
	serializer   payload.Serializer
	guard        chunk.Guard
	pollInterval time.Duration
	cache        *cache.Cache[[]byte]
	log          *slog.Logger
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.Transport == nil {
		return nil, xerrors.E(xerrors.KindInvalid, "da.New", "transport")
	}
	if cfg.Serializer == nil {
		cfg.Serializer = payload.JSON{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CacheEntries == 0 {
		cfg.CacheEntries = 512
	}
	var blobCache *cache.Cache[[]byte]
	if cfg.CacheEntries > 0 {
		blobCache = cache.New[[]byte](cfg.CacheEntries, cfg.CacheTTL)
	}
	return &Client{
		transport:    cfg.Transport,
		serializer:   cfg.Serializer,
		guard:        chunk.Guard{MaxBytes: cfg.MaxPayloadBytes},
		pollInterval: cfg.PollInterval,
		cache:        blobCache,
		log:          cfg.Logger,
	}, nil
}

// Serializer returns the serializer used for Put and Get.
func (c *Client) Serializer() payload.Serializer {
	return c.serializer
}

// Close releases the retrieval cache.
func (c *Client) Close() error {
	return c.cache.Close()
}

// transportErr keeps the kind of classified transport errors and marks
// everything else as a transport failure.
func transportErr(op, ref string, err error) error {
	kind := xerrors.KindTransport
	var xe *xerrors.Error
	switch {
	case errors.As(err, &xe):
		kind = xe.Kind
	case errors.Is(err, context.Canceled):
		kind = xerrors.KindCanceled
	}
	return xerrors.Wrap(kind, op, ref, err)
}
