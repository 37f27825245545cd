package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authcore/credential"
)

const accountColumns = `id, email, username, password_hash, verified, display_name, avatar_url, bio, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (credential.Account, error) {
	var (
		a        credential.Account
		username sql.NullString
	)
	err := row.Scan(&a.ID, &a.Email, &username, &a.PasswordHash, &a.Verified,
		&a.DisplayName, &a.AvatarURL, &a.Bio, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return credential.Account{}, err
	}
	a.Username = username.String
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *Store) CreateAccount(ctx context.Context, a credential.Account) (credential.Account, error) {
	if _, err := uuid.Parse(a.ID); err != nil {
		return credential.Account{}, fmt.Errorf("invalid account id: %w", err)
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO accounts (` + accountColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		if _, err := tx.ExecContext(ctx, query,
			a.ID, a.Email, nullString(a.Username), a.PasswordHash, a.Verified,
			a.DisplayName, a.AvatarURL, a.Bio, a.CreatedAt, a.UpdatedAt,
		); err != nil {
			return mapErr(err)
		}

		for _, link := range a.Providers {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO account_providers (provider, subject, account_id, linked_at)
				VALUES ($1, $2, $3, $4)
			`, link.Provider, link.Subject, a.ID, link.LinkedAt); err != nil {
				return mapErr(err)
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
	if _, err := uuid.Parse(id); err != nil {
		return credential.Account{}, credential.ErrNotFound
	}
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (credential.Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (credential.Account, error) {
	if username == "" {
		return credential.Account{}, credential.ErrNotFound
	}
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (s *Store) GetAccountByProvider(ctx context.Context, provider, subject string) (credential.Account, error) {
	query := `
		SELECT a.id, a.email, a.username, a.password_hash, a.verified, a.display_name, a.avatar_url, a.bio, a.created_at, a.updated_at
		FROM accounts a
		JOIN account_providers p ON p.account_id = a.id
		WHERE p.provider = $1 AND p.subject = $2
	`
	return s.getAccount(ctx, query, provider, subject)
}

func (s *Store) getAccount(ctx context.Context, query string, args ...any) (credential.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return credential.Account{}, mapErr(err)
	}
	if a.Providers, err = s.providers(ctx, a.ID); err != nil {
		return credential.Account{}, err
	}
	return a, nil
}

func (s *Store) providers(ctx context.Context, accountID string) ([]credential.ProviderLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, subject, linked_at
		FROM account_providers
		WHERE account_id = $1
		ORDER BY linked_at
	`, accountID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var links []credential.ProviderLink
	for rows.Next() {
		var l credential.ProviderLink
		if err := rows.Scan(&l.Provider, &l.Subject, &l.LinkedAt); err != nil {
			return nil, mapErr(err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return links, nil
}

func (s *Store) LinkProvider(ctx context.Context, accountID string, link credential.ProviderLink) error {
	// The no-op update makes RETURNING yield the existing owner on conflict.
	query := `
		INSERT INTO account_providers (provider, subject, account_id, linked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, subject) DO UPDATE SET provider = EXCLUDED.provider
		RETURNING account_id
	`
	var owner string
	if err := s.db.QueryRowContext(ctx, query, link.Provider, link.Subject, accountID, link.LinkedAt).Scan(&owner); err != nil {
		return mapErr(err)
	}
	if owner != accountID {
		return fmt.Errorf("%w: provider subject linked to another account", credential.ErrConflict)
	}
	return nil
}

func (s *Store) MarkVerified(ctx context.Context, accountID string, at time.Time) error {
	return s.updateOne(ctx, `UPDATE accounts SET verified = TRUE, updated_at = $2 WHERE id = $1`, accountID, at)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, accountID, hash string, at time.Time) error {
	return s.updateOne(ctx, `UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`, accountID, hash, at)
}

func (s *Store) UpdateProfile(ctx context.Context, accountID string, update credential.ProfileUpdate, at time.Time) (credential.Account, error) {
	query := `
		UPDATE accounts
		SET display_name = COALESCE($2, display_name),
		    avatar_url = COALESCE($3, avatar_url),
		    bio = COALESCE($4, bio),
		    updated_at = $5
		WHERE id = $1
		RETURNING ` + accountColumns
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, accountID,
		nullStringPtr(update.DisplayName), nullStringPtr(update.AvatarURL), nullStringPtr(update.Bio), at))
	if err != nil {
		return credential.Account{}, mapErr(err)
	}
	if a.Providers, err = s.providers(ctx, a.ID); err != nil {
		return credential.Account{}, err
	}
	return a, nil
}

func (s *Store) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return credential.ErrNotFound
	}
	return nil
}
