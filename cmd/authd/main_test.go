package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore/internal/config"
	"github.com/MrEthical07/authcore/mail"
	boltstore "github.com/MrEthical07/authcore/store/bolt"
)

var discard = slog.New(slog.DiscardHandler)

func TestOpenStore_Bolt(t *testing.T) {
	cfg := &config.Config{BoltPath: filepath.Join(t.TempDir(), "nested", "authd.db")}

	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*boltstore.Store)
	assert.True(t, ok, "expected bolt store, got %T", store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenRedis_Dev(t *testing.T) {
	client, closeFn, err := openRedis(&config.Config{Dev: true}, discard)
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	assert.Equal(t, "v", client.Get(context.Background(), "k").Val())
}

func TestNewMailer(t *testing.T) {
	sender := newMailer(&config.Config{Dev: true}, discard)
	logSender, ok := sender.(mail.LogSender)
	require.True(t, ok, "expected LogSender, got %T", sender)
	assert.True(t, logSender.IncludeBody)

	cfg := &config.Config{SMTP: config.SMTP{Host: "smtp.example.com", Port: 587, From: "auth@example.com"}}
	_, ok = newMailer(cfg, discard).(*mail.SMTPSender)
	assert.True(t, ok)

	cfg.SMTP.Port = 0
	_, ok = newMailer(cfg, discard).(mail.LogSender)
	assert.True(t, ok, "invalid SMTP settings should fall back to logging")
}

func TestBuildProviders(t *testing.T) {
	providers, err := buildProviders(&config.Config{})
	require.NoError(t, err)
	assert.Empty(t, providers)

	providers, err = buildProviders(&config.Config{
		Google: config.OAuthClient{ClientID: "g", ClientSecret: "gs", RedirectURL: "https://auth.example.com/auth/oauth/google/callback"},
		GitHub: config.OAuthClient{ClientID: "h", ClientSecret: "hs", RedirectURL: "https://auth.example.com/auth/oauth/github/callback"},
	})
	require.NoError(t, err)
	require.Len(t, providers, 2)

	names := []string{providers[0].Name(), providers[1].Name()}
	assert.Equal(t, []string{"google", "github"}, names)

}

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepExpired(context.Context) (int64, error) {
	s.calls.Add(1)
	return 2, s.err
}

func TestRunSweeper_TicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &countingSweeper{err: errors.New("store down")}

	done := make(chan struct{})
	go func() {
		runSweeper(ctx, s, 5*time.Millisecond, discard)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
