package adapter

import (
	"context"
	"io"
	"testing"

	"CourtSync/internal/config"
	"CourtSync/internal/interfaces"
	"CourtSync/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	platform model.PlatformType
	baseURL  string
}

func (s *stubAdapter) GetType() model.PlatformType { return s.platform }

func (s *stubAdapter) FetchAll(context.Context, []string) ([]model.CanonicalSlot, error) {
	return nil, nil
}

func TestPlatformRegistry(t *testing.T) {
	Register("stub-a", func(cfg config.PlatformConfig, _ Options) interfaces.SlotAdapter {
		return &stubAdapter{platform: "stub-a", baseURL: cfg.BaseURL}
	})
	Register("stub-mismatch", func(config.PlatformConfig, Options) interfaces.SlotAdapter {
		return &stubAdapter{platform: "something-else"}
	})
	Register("stub-nil", func(config.PlatformConfig, Options) interfaces.SlotAdapter { return nil })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{Platforms: map[string]config.PlatformConfig{
		"stub-a":        {BaseURL: "http://a"},
		"stub-mismatch": {BaseURL: "http://b"},
		"stub-nil":      {BaseURL: "http://c"},
		"unregistered":  {BaseURL: "http://d"},
	}}

	r := NewPlatformRegistry(cfg, Options{Logger: logger})
	require.Equal(t, 1, r.GetPlatformCount())
	require.Equal(t, []model.PlatformType{"stub-a"}, r.ListRegisteredPlatforms())

	a, err := r.GetAdapter("stub-a")
	require.NoError(t, err)
	require.Equal(t, "http://a", a.(*stubAdapter).baseURL)
	require.Len(t, r.Adapters(), 1)

	_, err = r.GetAdapter("unregistered")
	require.Error(t, err)

	require.Contains(t, ListFactories(), model.PlatformType("stub-a"))
}

func TestRegister_NilPanics(t *testing.T) {
	require.Panics(t, func() { Register("stub-panic", nil) })
}
