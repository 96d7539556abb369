package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/jacktea/eigenkv/pkg/xerrors"
)

// ID locates a confirmed blob: its position within a batch plus the batch
// header hash.
type ID struct {
	Index    uint32
	BatchTag []byte
}

// String returns the canonical "<index>-<base64(batchTag)>" form.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id.Index), 10) + "-" + base64.StdEncoding.EncodeToString(id.BatchTag)
}

// Equal reports whether both identifiers reference the same blob.
func (id ID) Equal(other ID) bool {
	return id.Index == other.Index && bytes.Equal(id.BatchTag, other.BatchTag)
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID decodes the canonical string form produced by ID.String.
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return ID{}, xerrors.Wrap(xerrors.KindInvalidIdentifier, "blob.ParseID", s,
			fmt.Errorf("expected 2 parts, got %d", len(parts)))
	}
	index, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return ID{}, xerrors.Wrap(xerrors.KindInvalidIdentifier, "blob.ParseID", s, err)
	}
	tag, err := base64.StdEncoding.Strict().DecodeString(parts[1])
	if err != nil {
		return ID{}, xerrors.Wrap(xerrors.KindInvalidIdentifier, "blob.ParseID", s, err)
	}
	return ID{Index: uint32(index), BatchTag: tag}, nil
}

// Status mirrors the disperser's BlobStatus enum.
type Status int32

const (
	StatusUnknown                Status = 0
	StatusProcessing             Status = 1
	StatusConfirmed              Status = 2
	StatusFailed                 Status = 3
	StatusFinalized              Status = 4
	StatusInsufficientSignatures Status = 5
	StatusDispersing             Status = 6
)

// Terminal reports whether the network will no longer update a submission in
// this status. Finalized is deliberately absent: the disperser reports it only
// after Confirmed, and polling stops on Confirmed.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusFailed, StatusInsufficientSignatures:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusProcessing:
		return "PROCESSING"
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusFailed:
		return "FAILED"
	case StatusFinalized:
		return "FINALIZED"
	case StatusInsufficientSignatures:
		return "INSUFFICIENT_SIGNATURES"
	case StatusDispersing:
		return "DISPERSING"
	default:
		return "STATUS(" + strconv.Itoa(int(s)) + ")"
	}
}

// DisperseReply is returned when the disperser accepts a blob.
type DisperseReply struct {
	RequestID []byte
	Status    Status
}

// StatusReply is one observation of a pending submission. Index and BatchTag
// appear once the network has placed the blob, independently of Status.
type StatusReply struct {
	Status   Status
	Index    *uint32
	BatchTag []byte
}

// Transport is the minimal interface the client needs from a disperser.
// Implementations must be safe for concurrent use.
type Transport interface {
	Disperse(ctx context.Context, data []byte) (DisperseReply, error)
	PollStatus(ctx context.Context, requestID []byte) (StatusReply, error)
	Retrieve(ctx context.Context, index uint32, batchTag []byte) ([]byte, error)
}
