package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/MrEthical07/authcore/credential"
)

const (
	dbFilePerm      = 0o600
	dbDirPerm       = 0o700
	defaultOpenWait = 5 * time.Second
)

var (
	accountsBucket        = []byte("accounts")
	emailIndexBucket      = []byte("accounts_by_email")
	usernameIndexBucket   = []byte("accounts_by_username")
	providerIndexBucket   = []byte("accounts_by_provider")
	credentialsBucket     = []byte("credentials")
	sessionHeadBucket     = []byte("session_heads")
	accountSessionsBucket = []byte("account_sessions")
)

var allBuckets = [][]byte{
	accountsBucket,
	emailIndexBucket,
	usernameIndexBucket,
	providerIndexBucket,
	credentialsBucket,
	sessionHeadBucket,
	accountSessionsBucket,
}

var _ credential.Store = (*Store)(nil)

// Store is a bbolt-backed credential.Store.
type Store struct {
	db *bolt.DB
}

// Options tunes Open.
type Options struct {
	// Timeout bounds how long Open waits for the file lock held by another
	// process. Zero uses five seconds.
	Timeout time.Duration
}

// Open opens or creates the database at path and ensures all buckets exist.
func Open(path string, opts Options) (*Store, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultOpenWait
	}
	if err := os.MkdirAll(filepath.Dir(path), dbDirPerm); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bolt.Open(path, dbFilePerm, &bolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.view(ctx, func(tx *bolt.Tx) error {
		if tx.Bucket(credentialsBucket) == nil {
			return errors.New("credentials bucket missing")
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

func (s *Store) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}
	return classify(s.db.View(fn))
}

func (s *Store) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}
	return classify(s.db.Update(fn))
}

// classify passes domain sentinels through and wraps everything else as
// ErrUnavailable.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, credential.ErrNotFound),
		errors.Is(err, credential.ErrConflict),
		errors.Is(err, credential.ErrSuperseded),
		errors.Is(err, credential.ErrInactive):
		return err
	default:
		return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}
}

func getJSON(b *bolt.Bucket, key []byte, out any) error {
	raw := b.Get(key)
	if raw == nil {
		return credential.ErrNotFound
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return b.Put(key, raw)
}

func providerKey(provider, subject string) []byte {
	return []byte(provider + "\x00" + subject)
}

func accountSessionKey(accountID, sessionID string) []byte {
	return []byte(accountID + "\x00" + sessionID)
}
