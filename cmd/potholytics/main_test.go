package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"potholytics-service/internal/config"
)

func TestRun_StopsOnCancelledContext(t *testing.T) {
	cfg := &config.Config{
		App:       config.AppConfig{Env: "development"},
		HTTP:      config.HTTPConfig{Host: "127.0.0.1", Port: 0},
		Backend:   config.BackendConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Detection: config.DetectionConfig{DefaultModel: "yolov11n", Models: []string{"yolov11n"}},
		Dashboard: config.DashboardConfig{Source: config.DashboardSourceBackend, RecentLimit: 5},
		Session:   config.SessionConfig{TTL: time.Hour, CleanupInterval: time.Minute},
		Upload:    config.UploadConfig{MaxBytes: 1 << 20},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, zerolog.Nop()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
