package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"xlsxsplit/internal/shared/testutil"
	"xlsxsplit/pkg/contracts"
)

func TestHealthService(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	ctx := context.Background()

	t.Run("health", func(t *testing.T) {
		hs := NewHealthService("1.2.3", NewSplitService(nil, logger), logger)
		status := hs.HealthCheck(ctx)
		assert.Equal(t, "ok", status.Status)
		assert.Equal(t, "1.2.3", status.Version)
	})

	t.Run("ready with split service", func(t *testing.T) {
		hs := NewHealthService("1.2.3", NewSplitService(nil, logger), logger)
		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "ready", status.Status)
		assert.Contains(t, status.Services, "splitter")
	})

	t.Run("not ready without split service", func(t *testing.T) {
		hs := NewHealthService("1.2.3", nil, logger)
		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "not_ready", status.Status)
	})

	t.Run("liveness", func(t *testing.T) {
		hs := NewHealthService("", nil, logger)
		status := hs.LivenessCheck(ctx)
		assert.Equal(t, "alive", status.Status)
		assert.Equal(t, contracts.Version, status.Version)
		assert.Contains(t, status.Runtime, "goroutines")
	})

	t.Run("version", func(t *testing.T) {
		hs := NewHealthService("1.2.3", NewSplitService(nil, logger), logger)
		info := hs.Version()
		assert.Equal(t, "1.2.3", info["version"])
		assert.Equal(t, contracts.APIVersion, info["api_version"])
		assert.Equal(t, "correciones_SKU", info["archive_prefix"])
		assert.NotContains(t, info, "build_time")
	})
}
