package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// Persister loads and saves a whole store.
type Persister interface {
	Load(ctx context.Context) (map[string]value.Value, error)
	Save(ctx context.Context, data map[string]value.Value) error
	Close() error
}

// --- JSON file ---

// FilePersister keeps the store in one JSON document. Saves are atomic.
type FilePersister struct {
	path string
}

// NewFilePersister returns a persister for path. The parent directory is
// created with 0755 permissions if it does not exist.
func NewFilePersister(path string) (*FilePersister, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: file path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create directory %s: %w", filepath.Dir(path), err)
	}
	return &FilePersister{path: path}, nil
}

// Path returns the document path.
func (p *FilePersister) Path() string { return p.path }

// Load returns an empty map when the file does not exist yet.
func (p *FilePersister) Load(ctx context.Context) (map[string]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]value.Value{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := map[string]value.Value{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p.path, err)
	}
	return out, nil
}

func (p *FilePersister) Save(ctx context.Context, data map[string]value.Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return atomicWrite(p.path, buf, filepath.Dir(p.path))
}

func (p *FilePersister) Close() error { return nil }

// atomicWrite writes data to path via a temporary file and rename.
func atomicWrite(path string, data []byte, tmpDir string) error {
	tmp, err := os.CreateTemp(tmpDir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	success = true
	return nil
}

// --- bbolt ---

const stateBucket = "state"

// BoltPersister keeps one JSON-encoded value per key in a bbolt bucket.
type BoltPersister struct {
	db *bolt.DB
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*BoltPersister, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: bolt path is required")
	}
	db, err := bolt.Open(filepath.Clean(path), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}
	return &BoltPersister{db: db}, nil
}

func (p *BoltPersister) Load(ctx context.Context) (map[string]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := map[string]value.Value{}
	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(stateBucket))
		if b == nil {
			return errors.New("state bucket is missing")
		}
		return b.ForEach(func(k, raw []byte) error {
			var v value.Value
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decode %q: %w", k, err)
			}
			out[string(k)] = v
			return nil
		})
	})
	return out, err
}

// Save replaces the bucket contents with data in one transaction.
func (p *BoltPersister) Save(ctx context.Context, data map[string]value.Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(stateBucket)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket([]byte(stateBucket))
		if err != nil {
			return err
		}
		for k, v := range data {
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode %q: %w", k, err)
			}
			if err := b.Put([]byte(k), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *BoltPersister) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
