// Package ledger keeps named references to confirmed blobs in a local BoltDB
// file, together with a content identifier of the payload they carry.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	bolt "go.etcd.io/bbolt"

	"github.com/jacktea/eigenkv/pkg/blob"
	"github.com/jacktea/eigenkv/pkg/xerrors"
)

var bucketRecords = []byte("records")

// ErrDigestMismatch is returned by Verify when retrieved bytes do not hash to
// the recorded CID.
var ErrDigestMismatch = errors.New("ledger: payload digest mismatch")

// Record names one stored blob.
type Record struct {
	Name       string    `json:"name"`
	ID         blob.ID   `json:"id"`
	CID        string    `json:"cid,omitempty"`
	Serializer string    `json:"serializer,omitempty"`
	Size       int       `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

// Config configures the ledger file.
type Config struct {
	Path    string
	NoSync  bool
	Timeout time.Duration
}

// Store persists records in BoltDB, keyed by name.
type Store struct {
	cfg Config
	db  *bolt.DB
}

// Open opens or creates the ledger at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, xerrors.E(xerrors.KindInvalid, "ledger.Open", "path")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: cfg.Timeout, NoSync: cfg.NoSync})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindInternal, "ledger.Open", cfg.Path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.KindInternal, "ledger.Open", cfg.Path, err)
	}
	return &Store{cfg: cfg, db: db}, nil
}

// Record stores rec under rec.Name, replacing any previous record.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.Name == "" {
		return xerrors.E(xerrors.KindInvalid, "ledger.Record", "name")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return xerrors.Wrap(xerrors.KindInternal, "ledger.Record", rec.Name, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).Put([]byte(rec.Name), data)
	})
}

// Lookup returns the record stored under name.
func (s *Store) Lookup(ctx context.Context, name string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(name))
		if data == nil {
			return xerrors.E(xerrors.KindNotFound, "ledger.Lookup", name)
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// List returns every record ordered by name.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("ledger: decode %q: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// Delete removes the record stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket.Get([]byte(name)) == nil {
			return xerrors.E(xerrors.KindNotFound, "ledger.Delete", name)
		}
		return bucket.Delete([]byte(name))
	})
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Digest returns the CIDv1 (raw codec, sha2-256) of data.
func Digest(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// Verify checks data against the CID recorded in rec. Records without a CID
// always verify.
func (rec Record) Verify(data []byte) error {
	if rec.CID == "" {
		return nil
	}
	want, err := cid.Decode(rec.CID)
	if err != nil {
		return xerrors.Wrap(xerrors.KindInvalid, "ledger.Verify", rec.Name, err)
	}
	got, err := want.Prefix().Sum(data)
	if err != nil {
		return xerrors.Wrap(xerrors.KindInternal, "ledger.Verify", rec.Name, err)
	}
	if !got.Equals(want) {
		return xerrors.Wrap(xerrors.KindDeserialization, "ledger.Verify", rec.Name, ErrDigestMismatch)
	}
	return nil
}
