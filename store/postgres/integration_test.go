//go:build integration

package postgres_test

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/store/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "authcore_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/authcore_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func openStore(t *testing.T) *postgres.Store {
	t.Helper()
	var (
		s   *postgres.Store
		err error
	)
	// The port can accept connections before the server is ready.
	for i := 0; i < 20; i++ {
		if s, err = postgres.Open(context.Background(), dsn); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AccountsAndRotation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	acct, err := s.CreateAccount(ctx, credential.Account{
		ID:        uuid.NewString(),
		Email:     "alice@example.com",
		Username:  "alice",
		CreatedAt: now,
		UpdatedAt: now,
		Providers: []credential.ProviderLink{{Provider: "github", Subject: "42", LinkedAt: now}},
	})
	require.NoError(t, err)

	_, err = s.CreateAccount(ctx, credential.Account{ID: uuid.NewString(), Email: "alice@example.com", CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, credential.ErrConflict)

	byProvider, err := s.GetAccountByProvider(ctx, "github", "42")
	require.NoError(t, err)
	require.Equal(t, acct.ID, byProvider.ID)
	require.Len(t, byProvider.Providers, 1)

	require.NoError(t, s.MarkVerified(ctx, acct.ID, now))
	bio := "hello"
	updated, err := s.UpdateProfile(ctx, acct.ID, credential.ProfileUpdate{Bio: &bio}, now)
	require.NoError(t, err)
	require.True(t, updated.Verified)
	require.Equal(t, "hello", updated.Bio)

	first := credential.RefreshCredential{
		ID:               uuid.NewString(),
		SessionID:        "sid-1",
		AccountID:        acct.ID,
		TokenHash:        sha256.Sum256([]byte("secret-a")),
		CreatedAt:        now,
		SessionStartedAt: now,
		ExpiresAt:        now.Add(time.Hour),
	}
	require.NoError(t, s.CreateCredential(ctx, first))

	rot := credential.Rotation{ID: uuid.NewString(), TokenHash: sha256.Sum256([]byte("secret-b")), TTL: time.Hour}
	prev, next, err := s.Rotate(ctx, first.TokenHash, rot, now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, first.ID, prev.ID)
	require.Equal(t, "sid-1", next.SessionID)

	stale, _, err := s.Rotate(ctx, first.TokenHash, credential.Rotation{ID: uuid.NewString(), TokenHash: sha256.Sum256([]byte("secret-c")), TTL: time.Hour}, now.Add(2*time.Second))
	require.ErrorIs(t, err, credential.ErrSuperseded)
	require.Equal(t, acct.ID, stale.AccountID)

	active, err := s.ActiveSession(ctx, "sid-1", now.Add(2*time.Second))
	require.NoError(t, err)
	require.Equal(t, next.ID, active.ID)

	sids, err := s.RevokeAccount(ctx, acct.ID, now.Add(3*time.Second))
	require.NoError(t, err)
	require.Equal(t, []string{"sid-1"}, sids)

	_, err = s.ActiveSession(ctx, "sid-1", now.Add(3*time.Second))
	require.ErrorIs(t, err, credential.ErrNotFound)

	n, err := s.DeleteInactive(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestStore_ConcurrentRotateSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	acct, err := s.CreateAccount(ctx, credential.Account{ID: uuid.NewString(), Email: "race@example.com", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	hash := sha256.Sum256([]byte("race-secret"))
	require.NoError(t, s.CreateCredential(ctx, credential.RefreshCredential{
		ID:               uuid.NewString(),
		SessionID:        "sid-race",
		AccountID:        acct.ID,
		TokenHash:        hash,
		CreatedAt:        now,
		SessionStartedAt: now,
		ExpiresAt:        now.Add(time.Hour),
	}))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		others  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rot := credential.Rotation{ID: uuid.NewString(), TokenHash: sha256.Sum256([]byte(uuid.NewString())), TTL: time.Hour}
			_, _, err := s.Rotate(ctx, hash, rot, now.Add(time.Second))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
				return
			}
			others = append(others, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, winners)
	for _, err := range others {
		require.True(t, errors.Is(err, credential.ErrSuperseded), "unexpected error: %v", err)
	}
}
