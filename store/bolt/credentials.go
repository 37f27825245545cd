package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/MrEthical07/authcore/credential"
)

func (s *Store) CreateCredential(ctx context.Context, c credential.RefreshCredential) error {
	return s.update(ctx, func(tx *bolt.Tx) error {
		if tx.Bucket(accountsBucket).Get([]byte(c.AccountID)) == nil {
			return credential.ErrNotFound
		}
		creds := tx.Bucket(credentialsBucket)
		if creds.Get(c.TokenHash[:]) != nil {
			return credential.ErrConflict
		}
		return putHead(tx, c)
	})
}

// putHead stores c and points its session at it.
func putHead(tx *bolt.Tx, c credential.RefreshCredential) error {
	if err := putJSON(tx.Bucket(credentialsBucket), c.TokenHash[:], fromCredential(c)); err != nil {
		return err
	}
	if err := tx.Bucket(sessionHeadBucket).Put([]byte(c.SessionID), c.TokenHash[:]); err != nil {
		return err
	}
	return tx.Bucket(accountSessionsBucket).Put(accountSessionKey(c.AccountID, c.SessionID), nil)
}

func loadCredential(tx *bolt.Tx, hash []byte) (credential.RefreshCredential, error) {
	var rec credentialRecord
	if err := getJSON(tx.Bucket(credentialsBucket), hash, &rec); err != nil {
		return credential.RefreshCredential{}, err
	}
	return rec.toCredential(), nil
}

func (s *Store) Rotate(ctx context.Context, presentedHash [32]byte, rotation credential.Rotation, now time.Time) (credential.RefreshCredential, credential.RefreshCredential, error) {
	var prev, next, stale credential.RefreshCredential

	err := s.update(ctx, func(tx *bolt.Tx) error {
		var err error
		prev, err = loadCredential(tx, presentedHash[:])
		if err != nil {
			return err
		}
		switch prev.State(now) {
		case credential.StateValid:
		case credential.StateSuperseded:
			stale = prev
			return credential.ErrSuperseded
		default:
			return credential.ErrInactive
		}

		var ok bool
		if next, ok = rotation.Next(prev, now); !ok {
			return credential.ErrInactive
		}
		if tx.Bucket(credentialsBucket).Get(next.TokenHash[:]) != nil {
			return credential.ErrConflict
		}

		prev.SupersededAt = &now
		prev.ReplacedBy = next.ID
		if err := putJSON(tx.Bucket(credentialsBucket), prev.TokenHash[:], fromCredential(prev)); err != nil {
			return err
		}
		return putHead(tx, next)
	})
	if err != nil {
		return stale, credential.RefreshCredential{}, err
	}
	return prev, next, nil
}

func (s *Store) Revoke(ctx context.Context, hash [32]byte, now time.Time) (credential.RefreshCredential, bool, error) {
	var (
		c       credential.RefreshCredential
		revoked bool
	)
	err := s.update(ctx, func(tx *bolt.Tx) error {
		var err error
		c, err = loadCredential(tx, hash[:])
		if errors.Is(err, credential.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !c.Valid(now) {
			return nil
		}
		if err := revoke(tx, c, now); err != nil {
			return err
		}
		c.RevokedAt = &now
		revoked = true
		return nil
	})
	if err != nil || !revoked {
		return credential.RefreshCredential{}, false, err
	}
	return c, true, nil
}

// revoke marks c revoked and unlinks its session from the live indexes.
func revoke(tx *bolt.Tx, c credential.RefreshCredential, now time.Time) error {
	c.RevokedAt = &now
	if err := putJSON(tx.Bucket(credentialsBucket), c.TokenHash[:], fromCredential(c)); err != nil {
		return err
	}
	if err := tx.Bucket(sessionHeadBucket).Delete([]byte(c.SessionID)); err != nil {
		return err
	}
	return tx.Bucket(accountSessionsBucket).Delete(accountSessionKey(c.AccountID, c.SessionID))
}

func (s *Store) RevokeAccount(ctx context.Context, accountID string, now time.Time) ([]string, error) {
	var sessions []string
	err := s.update(ctx, func(tx *bolt.Tx) error {
		sessions = nil
		prefix := []byte(accountID + "\x00")
		heads := tx.Bucket(sessionHeadBucket)

		var sids []string
		c := tx.Bucket(accountSessionsBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			sids = append(sids, string(k[len(prefix):]))
		}

		for _, sid := range sids {
			hash := heads.Get([]byte(sid))
			if hash == nil {
				continue
			}
			cred, err := loadCredential(tx, hash)
			if errors.Is(err, credential.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !cred.Valid(now) {
				continue
			}
			if err := revoke(tx, cred, now); err != nil {
				return err
			}
			sessions = append(sessions, sid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Store) ActiveSession(ctx context.Context, sessionID string, now time.Time) (credential.RefreshCredential, error) {
	var c credential.RefreshCredential
	err := s.view(ctx, func(tx *bolt.Tx) error {
		hash := tx.Bucket(sessionHeadBucket).Get([]byte(sessionID))
		if hash == nil {
			return credential.ErrNotFound
		}
		var err error
		if c, err = loadCredential(tx, hash); err != nil {
			return err
		}
		if !c.Valid(now) {
			return credential.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return credential.RefreshCredential{}, err
	}
	return c, nil
}

func (s *Store) DeleteInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.update(ctx, func(tx *bolt.Tx) error {
		n = 0
		creds := tx.Bucket(credentialsBucket)
		heads := tx.Bucket(sessionHeadBucket)
		accountSessions := tx.Bucket(accountSessionsBucket)

		var doomed []credentialRecord
		err := creds.ForEach(func(k, v []byte) error {
			var rec credentialRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.inactiveBefore(cutoff) {
				doomed = append(doomed, rec)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, rec := range doomed {
			if err := creds.Delete(rec.TokenHash); err != nil {
				return err
			}
			if bytes.Equal(heads.Get([]byte(rec.SessionID)), rec.TokenHash) {
				if err := heads.Delete([]byte(rec.SessionID)); err != nil {
					return err
				}
				if err := accountSessions.Delete(accountSessionKey(rec.AccountID, rec.SessionID)); err != nil {
					return err
				}
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
