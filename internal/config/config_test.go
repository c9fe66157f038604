package config

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	modes, err := cfg.ParsePresentModes()
	require.NoError(t, err)
	require.Equal(t, []khr_surface.PresentMode{khr_surface.PresentModeMailbox}, modes)

	samples, err := cfg.SampleLimit()
	require.NoError(t, err)
	require.Equal(t, core1_0.Samples64, samples)
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse("renderer", []string{
		"-width", "1280",
		"-height", "720",
		"-validation=false",
		"-present-mode", "immediate, fifo",
		"-msaa", "4",
		"-pipeline-cache", "cache.bin",
		"-log-level", "debug",
		"-log-format", "json",
	}, io.Discard)
	require.NoError(t, err)

	require.Equal(t, 1280, cfg.Width)
	require.Equal(t, 720, cfg.Height)
	require.False(t, cfg.Validation)
	require.Equal(t, "cache.bin", cfg.PipelineCache)

	modes, err := cfg.ParsePresentModes()
	require.NoError(t, err)
	require.Equal(t, []khr_surface.PresentMode{khr_surface.PresentModeImmediate, khr_surface.PresentModeFIFO}, modes)

	samples, err := cfg.SampleLimit()
	require.NoError(t, err)
	require.Equal(t, core1_0.Samples4, samples)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestParseRejects(t *testing.T) {
	for idx, args := range [][]string{
		{"-width", "0"},
		{"-height", "-5"},
		{"-present-mode", "vsync"},
		{"-msaa", "3"},
		{"-log-level", "loud"},
		{"-log-format", "xml"},
		{"-model", ""},
		{"-max-texture-size", "-1"},
		{"-no-such-flag"},
		{"stray"},
	} {
		_, err := Parse("renderer", args, io.Discard)
		require.Error(t, err, "%d: %v", idx, args)
	}
}

func TestHandler(t *testing.T) {
	var buf bytes.Buffer

	cfg := Default()
	cfg.LogFormat = "json"
	handler := cfg.Handler(&buf)
	require.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
	require.True(t, handler.Enabled(context.Background(), slog.LevelInfo))

	slog.New(handler).Info("hello", "frames", 3)
	require.Contains(t, buf.String(), `"frames":3`)
}
