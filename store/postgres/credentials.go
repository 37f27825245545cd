package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/credential"
)

const credentialColumns = `id, session_id, account_id, token_hash, created_at, session_started_at, expires_at, superseded_at, revoked_at, replaced_by`

func scanCredential(row rowScanner) (credential.RefreshCredential, error) {
	var (
		c          credential.RefreshCredential
		hash       []byte
		superseded sql.NullTime
		revoked    sql.NullTime
		replacedBy sql.NullString
	)
	err := row.Scan(&c.ID, &c.SessionID, &c.AccountID, &hash, &c.CreatedAt,
		&c.SessionStartedAt, &c.ExpiresAt, &superseded, &revoked, &replacedBy)
	if err != nil {
		return credential.RefreshCredential{}, err
	}
	copy(c.TokenHash[:], hash)
	if superseded.Valid {
		t := superseded.Time
		c.SupersededAt = &t
	}
	if revoked.Valid {
		t := revoked.Time
		c.RevokedAt = &t
	}
	c.ReplacedBy = replacedBy.String
	return c, nil
}

func (s *Store) CreateCredential(ctx context.Context, c credential.RefreshCredential) error {
	return insertCredential(ctx, s.db, c)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCredential(ctx context.Context, db execer, c credential.RefreshCredential) error {
	query := `
		INSERT INTO refresh_credentials (id, session_id, account_id, token_hash, created_at, session_started_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := db.ExecContext(ctx, query, c.ID, c.SessionID, c.AccountID, c.TokenHash[:],
		c.CreatedAt, c.SessionStartedAt, c.ExpiresAt)
	return mapErr(err)
}

var errSessionSpent = errors.New("session lifetime spent")

func (s *Store) Rotate(ctx context.Context, presentedHash [32]byte, rotation credential.Rotation, now time.Time) (credential.RefreshCredential, credential.RefreshCredential, error) {
	var prev, next credential.RefreshCredential

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			UPDATE refresh_credentials
			SET superseded_at = $2, replaced_by = $3
			WHERE token_hash = $1
			  AND superseded_at IS NULL
			  AND revoked_at IS NULL
			  AND expires_at > $2
			RETURNING ` + credentialColumns
		var err error
		prev, err = scanCredential(tx.QueryRowContext(ctx, query, presentedHash[:], now, rotation.ID))
		if errors.Is(err, sql.ErrNoRows) {
			return s.classify(ctx, tx, presentedHash, now, &prev)
		}
		if err != nil {
			return mapErr(err)
		}

		var ok bool
		if next, ok = rotation.Next(prev, now); !ok {
			return errSessionSpent
		}
		return insertCredential(ctx, tx, next)
	})
	if errors.Is(err, errSessionSpent) {
		return credential.RefreshCredential{}, credential.RefreshCredential{}, credential.ErrInactive
	}
	if err != nil {
		if errors.Is(err, credential.ErrSuperseded) {
			return prev, credential.RefreshCredential{}, err
		}
		return credential.RefreshCredential{}, credential.RefreshCredential{}, err
	}
	return prev, next, nil
}

// classify explains why the conditional update matched nothing.
func (s *Store) classify(ctx context.Context, tx *sql.Tx, hash [32]byte, now time.Time, out *credential.RefreshCredential) error {
	c, err := scanCredential(tx.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM refresh_credentials WHERE token_hash = $1`, hash[:]))
	if err != nil {
		return mapErr(err)
	}

	if c.State(now) == credential.StateSuperseded {
		*out = c
		return credential.ErrSuperseded
	}
	return credential.ErrInactive
}

func (s *Store) Revoke(ctx context.Context, hash [32]byte, now time.Time) (credential.RefreshCredential, bool, error) {
	query := `
		UPDATE refresh_credentials
		SET revoked_at = $2
		WHERE token_hash = $1
		  AND superseded_at IS NULL
		  AND revoked_at IS NULL
		  AND expires_at > $2
		RETURNING ` + credentialColumns
	c, err := scanCredential(s.db.QueryRowContext(ctx, query, hash[:], now))
	if errors.Is(err, sql.ErrNoRows) {
		return credential.RefreshCredential{}, false, nil
	}
	if err != nil {
		return credential.RefreshCredential{}, false, mapErr(err)
	}
	return c, true, nil
}

func (s *Store) RevokeAccount(ctx context.Context, accountID string, now time.Time) ([]string, error) {
	query := `
		UPDATE refresh_credentials
		SET revoked_at = $2
		WHERE account_id = $1
		  AND superseded_at IS NULL
		  AND revoked_at IS NULL
		  AND expires_at > $2
		RETURNING session_id
	`
	rows, err := s.db.QueryContext(ctx, query, accountID, now)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, mapErr(err)
		}
		sessions = append(sessions, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return sessions, nil
}

func (s *Store) ActiveSession(ctx context.Context, sessionID string, now time.Time) (credential.RefreshCredential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM refresh_credentials
		WHERE session_id = $1
		  AND superseded_at IS NULL
		  AND revoked_at IS NULL
		  AND expires_at > $2
	`
	c, err := scanCredential(s.db.QueryRowContext(ctx, query, sessionID, now))
	if err != nil {
		return credential.RefreshCredential{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) DeleteInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_credentials
		WHERE expires_at < $1
		   OR superseded_at < $1
		   OR revoked_at < $1
	`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}
