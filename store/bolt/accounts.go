package bolt

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/MrEthical07/authcore/credential"
)

func (s *Store) CreateAccount(ctx context.Context, a credential.Account) (credential.Account, error) {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		accounts := tx.Bucket(accountsBucket)
		emails := tx.Bucket(emailIndexBucket)
		usernames := tx.Bucket(usernameIndexBucket)
		providers := tx.Bucket(providerIndexBucket)

		if accounts.Get([]byte(a.ID)) != nil || emails.Get([]byte(a.Email)) != nil {
			return credential.ErrConflict
		}
		if a.Username != "" && usernames.Get([]byte(a.Username)) != nil {
			return credential.ErrConflict
		}
		for _, l := range a.Providers {
			if providers.Get(providerKey(l.Provider, l.Subject)) != nil {
				return credential.ErrConflict
			}
		}

		id := []byte(a.ID)
		if err := putJSON(accounts, id, fromAccount(a)); err != nil {
			return err
		}
		if err := emails.Put([]byte(a.Email), id); err != nil {
			return err
		}
		if a.Username != "" {
			if err := usernames.Put([]byte(a.Username), id); err != nil {
				return err
			}
		}
		for _, l := range a.Providers {
			if err := providers.Put(providerKey(l.Provider, l.Subject), id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return credential.Account{}, err
	}
	return a, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (credential.Account, error) {
	var rec accountRecord
	err := s.view(ctx, func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(accountsBucket), []byte(id), &rec)
	})
	if err != nil {
		return credential.Account{}, err
	}
	return rec.toAccount(), nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (credential.Account, error) {
	return s.getByIndex(ctx, emailIndexBucket, []byte(email))
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (credential.Account, error) {
	if username == "" {
		return credential.Account{}, credential.ErrNotFound
	}
	return s.getByIndex(ctx, usernameIndexBucket, []byte(username))
}

func (s *Store) GetAccountByProvider(ctx context.Context, provider, subject string) (credential.Account, error) {
	return s.getByIndex(ctx, providerIndexBucket, providerKey(provider, subject))
}

func (s *Store) getByIndex(ctx context.Context, index, key []byte) (credential.Account, error) {
	var rec accountRecord
	err := s.view(ctx, func(tx *bolt.Tx) error {
		id := tx.Bucket(index).Get(key)
		if id == nil {
			return credential.ErrNotFound
		}
		return getJSON(tx.Bucket(accountsBucket), id, &rec)
	})
	if err != nil {
		return credential.Account{}, err
	}
	return rec.toAccount(), nil
}

func (s *Store) LinkProvider(ctx context.Context, accountID string, link credential.ProviderLink) error {
	return s.update(ctx, func(tx *bolt.Tx) error {
		accounts := tx.Bucket(accountsBucket)
		var rec accountRecord
		if err := getJSON(accounts, []byte(accountID), &rec); err != nil {
			return err
		}

		providers := tx.Bucket(providerIndexBucket)
		key := providerKey(link.Provider, link.Subject)
		if owner := providers.Get(key); owner != nil {
			if string(owner) != accountID {
				return credential.ErrConflict
			}
			return nil
		}

		rec.Providers = append(rec.Providers, providerRecord(link))
		if err := putJSON(accounts, []byte(accountID), rec); err != nil {
			return err
		}
		return providers.Put(key, []byte(accountID))
	})
}

func (s *Store) MarkVerified(ctx context.Context, accountID string, at time.Time) error {
	return s.mutateAccount(ctx, accountID, func(rec *accountRecord) {
		rec.Verified = true
		rec.UpdatedAt = at
	}, nil)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, accountID, hash string, at time.Time) error {
	return s.mutateAccount(ctx, accountID, func(rec *accountRecord) {
		rec.PasswordHash = hash
		rec.UpdatedAt = at
	}, nil)
}

func (s *Store) UpdateProfile(ctx context.Context, accountID string, update credential.ProfileUpdate, at time.Time) (credential.Account, error) {
	var out accountRecord
	err := s.mutateAccount(ctx, accountID, func(rec *accountRecord) {
		if update.DisplayName != nil {
			rec.DisplayName = *update.DisplayName
		}
		if update.AvatarURL != nil {
			rec.AvatarURL = *update.AvatarURL
		}
		if update.Bio != nil {
			rec.Bio = *update.Bio
		}
		rec.UpdatedAt = at
	}, &out)
	if err != nil {
		return credential.Account{}, err
	}
	return out.toAccount(), nil
}

func (s *Store) mutateAccount(ctx context.Context, accountID string, fn func(*accountRecord), out *accountRecord) error {
	return s.update(ctx, func(tx *bolt.Tx) error {
		accounts := tx.Bucket(accountsBucket)
		var rec accountRecord
		if err := getJSON(accounts, []byte(accountID), &rec); err != nil {
			return err
		}
		fn(&rec)
		if out != nil {
			*out = rec
		}
		return putJSON(accounts, []byte(accountID), rec)
	})
}
