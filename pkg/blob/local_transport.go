package blob

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/jacktea/eigenkv/pkg/xerrors"
)

// LocalConfig configures a LocalTransport.
type LocalConfig struct {
	Root string
	// ConfirmAfter is the number of status polls a request stays pending.
	ConfirmAfter int
	// BatchSize is the number of blobs placed in one batch before it is sealed.
	BatchSize int
}

// LocalTransport is a filesystem-backed stand-in for the disperser. Blobs are
// confirmed after a fixed number of polls and stored under
// <root>/batches/<hex(batchTag)>/<index>, so retrieval works across processes.
type LocalTransport struct {
	root         string
	confirmAfter int
	batchSize    int

	mu       sync.Mutex
	seq      uint64
	pending  map[string]*localRequest
	batchTag []byte
	next     uint32
}

type localRequest struct {
	path     string
	polls    int
	index    uint32
	batchTag []byte
	placed   bool
}

// NewLocalTransport returns a Transport rooted at cfg.Root.
func NewLocalTransport(cfg LocalConfig) (*LocalTransport, error) {
	if cfg.Root == "" {
		return nil, xerrors.E(xerrors.KindInvalid, "LocalTransport", "root")
	}
	if err := os.MkdirAll(filepath.Join(cfg.Root, "requests"), 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.KindInternal, "LocalTransport.mkdir", cfg.Root, err)
	}
	if cfg.ConfirmAfter <= 0 {
		cfg.ConfirmAfter = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	return &LocalTransport{
		root:         cfg.Root,
		confirmAfter: cfg.ConfirmAfter,
		batchSize:    cfg.BatchSize,
		pending:      make(map[string]*localRequest),
	}, nil
}

// Disperse stores data as a pending request.
func (l *LocalTransport) Disperse(ctx context.Context, data []byte) (DisperseReply, error) {
	if err := ctx.Err(); err != nil {
		return DisperseReply{}, err
	}
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	hasher := sha256.New()
	hasher.Write(data)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	hasher.Write(seqBuf[:])
	requestID := []byte(hex.EncodeToString(hasher.Sum(nil)))

	path := filepath.Join(l.root, "requests", string(requestID))
	if err := writeFileAtomic(path, data); err != nil {
		return DisperseReply{}, xerrors.Wrap(xerrors.KindTransport, "LocalTransport.Disperse", "", err)
	}
	l.mu.Lock()
	l.pending[string(requestID)] = &localRequest{path: path}
	l.mu.Unlock()
	return DisperseReply{RequestID: requestID, Status: StatusProcessing}, nil
}

// PollStatus advances the request and places it into a batch once it has
// been polled ConfirmAfter times.
func (l *LocalTransport) PollStatus(ctx context.Context, requestID []byte) (StatusReply, error) {
	if err := ctx.Err(); err != nil {
		return StatusReply{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.pending[string(requestID)]
	if !ok {
		return StatusReply{}, xerrors.E(xerrors.KindNotFound, "LocalTransport.PollStatus", string(requestID))
	}
	req.polls++
	if req.polls < l.confirmAfter {
		return StatusReply{Status: StatusDispersing}, nil
	}
	if !req.placed {
		if err := l.place(req); err != nil {
			return StatusReply{}, xerrors.Wrap(xerrors.KindTransport, "LocalTransport.PollStatus", string(requestID), err)
		}
	}
	index := req.index
	return StatusReply{
		Status:   StatusConfirmed,
		Index:    &index,
		BatchTag: append([]byte(nil), req.batchTag...),
	}, nil
}

// Retrieve reads a confirmed blob.
func (l *LocalTransport) Retrieve(ctx context.Context, index uint32, batchTag []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref := ID{Index: index, BatchTag: batchTag}.String()
	data, err := os.ReadFile(l.blobPath(index, batchTag))
	if errors.Is(err, os.ErrNotExist) {
		return nil, xerrors.E(xerrors.KindNotFound, "LocalTransport.Retrieve", ref)
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindTransport, "LocalTransport.Retrieve", ref, err)
	}
	return data, nil
}

// place must be called with l.mu held.
func (l *LocalTransport) place(req *localRequest) error {
	if l.batchTag == nil || int(l.next) >= l.batchSize {
		tag := make([]byte, 32)
		if _, err := rand.Read(tag); err != nil {
			return err
		}
		l.batchTag = tag
		l.next = 0
	}
	index := l.next
	final := l.blobPath(index, l.batchTag)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}
	if err := os.Rename(req.path, final); err != nil {
		return err
	}
	l.next++
	req.index = index
	req.batchTag = l.batchTag
	req.placed = true
	return nil
}

func (l *LocalTransport) blobPath(index uint32, batchTag []byte) string {
	return filepath.Join(l.root, "batches", hex.EncodeToString(batchTag), strconv.FormatUint(uint64(index), 10))
}

func writeFileAtomic(path string, data []byte) error {
	file, err := os.CreateTemp(filepath.Dir(path), "upload-*")
	if err != nil {
		return err
	}
	tmpName := file.Name()
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpName)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpName)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
