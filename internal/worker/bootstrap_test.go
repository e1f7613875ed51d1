package worker

import (
	"errors"
	"testing"

	"github.com/compss-go/pipeworker/internal/config"
	"github.com/compss-go/pipeworker/internal/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct{}

func (fakeBackend) Submit(req *streaming.Request) {}

func TestBootstrapSetsWorkerRole(t *testing.T) {
	cfg := config.Default()
	s, err := Bootstrap(cfg, nil, nil, func(string) {})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, RoleWorker, CurrentRole())
}

func TestBootstrapRunsPostForkHookWhenPersistent(t *testing.T) {
	cfg := config.Default()
	cfg.Executor.PersistentStorage = true

	called := false
	hook := PostForkHookFunc(func() error {
		called = true
		return nil
	})

	s, err := Bootstrap(cfg, hook, nil, func(string) {})
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, called)
}

func TestBootstrapIgnoresFailingPostForkHook(t *testing.T) {
	cfg := config.Default()
	cfg.Executor.PersistentStorage = true
	hook := PostForkHookFunc(func() error { return errors.New("not available") })

	s, err := Bootstrap(cfg, hook, nil, func(string) {})
	require.NoError(t, err)
	defer s.Close()
}

func TestBootstrapRequiresBackendWhenStreamingEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Streaming.Enabled = true

	_, err := Bootstrap(cfg, nil, nil, func(string) {})
	assert.Error(t, err)
}

func TestBootstrapStartsStreamingClientWithBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Streaming.Enabled = true
	cfg.Streaming.MasterIP = "127.0.0.1"
	cfg.Streaming.MasterPort = 49049

	s, err := Bootstrap(cfg, nil, fakeBackend{}, func(string) {})
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, s.Streaming)
	assert.Equal(t, "127.0.0.1:49049", s.Streaming.Address())
}

func TestSessionCloseIsSafe(t *testing.T) {
	cfg := config.Default()
	s, err := Bootstrap(cfg, nil, nil, func(string) {})
	require.NoError(t, err)
	s.Close()
}
