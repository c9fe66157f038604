package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarStartsSilent(t *testing.T) {
	var v Var
	require.Same(t, Nop(), v.Get())
	require.False(t, v.Get().Enabled(context.Background(), slog.LevelError))
}

func TestVarSet(t *testing.T) {
	var v Var
	buf := &bytes.Buffer{}
	v.Set(slog.New(slog.NewTextHandler(buf, nil)))

	v.Get().Info("swapchain built", "generation", 2)
	require.Contains(t, buf.String(), "generation=2")

	v.Set(nil)
	v.Get().Info("dropped")
	require.NotContains(t, buf.String(), "dropped")
	require.Same(t, Nop(), v.Get())
}

func TestNopKeepsDroppingWithAttrs(t *testing.T) {
	l := Nop().With("component", "frame").WithGroup("slot")
	require.False(t, l.Enabled(context.Background(), slog.LevelError))
}
