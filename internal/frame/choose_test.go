package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	unorm := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	rgba := khr_surface.SurfaceFormat{Format: core1_0.FormatR8G8B8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	for idx, tc := range []struct {
		available []khr_surface.SurfaceFormat
		want      khr_surface.SurfaceFormat
	}{
		{[]khr_surface.SurfaceFormat{srgb}, srgb},
		{[]khr_surface.SurfaceFormat{unorm, srgb}, srgb},
		{[]khr_surface.SurfaceFormat{rgba, unorm}, rgba},
		{[]khr_surface.SurfaceFormat{unorm}, unorm},
	} {
		got, err := ChooseSurfaceFormat(tc.available)
		require.NoError(t, err, "%d", idx)
		require.Equal(t, tc.want, got, "%d", idx)
	}
}

func TestChooseSurfaceFormatEmpty(t *testing.T) {
	_, err := ChooseSurfaceFormat(nil)
	require.Error(t, err)
}

func TestChoosePresentMode(t *testing.T) {
	for idx, tc := range []struct {
		available []khr_surface.PresentMode
		preferred []khr_surface.PresentMode
		want      khr_surface.PresentMode
	}{
		// Only FIFO is guaranteed to exist.
		{[]khr_surface.PresentMode{khr_surface.PresentModeFIFO}, nil, khr_surface.PresentModeFIFO},
		{[]khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox}, nil, khr_surface.PresentModeMailbox},
		{[]khr_surface.PresentMode{khr_surface.PresentModeImmediate}, nil, khr_surface.PresentModeFIFO},
		{
			[]khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox, khr_surface.PresentModeImmediate},
			[]khr_surface.PresentMode{khr_surface.PresentModeImmediate, khr_surface.PresentModeMailbox},
			khr_surface.PresentModeImmediate,
		},
		{
			[]khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox},
			[]khr_surface.PresentMode{khr_surface.PresentModeImmediate, khr_surface.PresentModeMailbox},
			khr_surface.PresentModeMailbox,
		},
		{nil, nil, khr_surface.PresentModeFIFO},
	} {
		require.Equal(t, tc.want, ChoosePresentMode(tc.available, tc.preferred...), "%d", idx)
	}
}

func TestChooseExtent(t *testing.T) {
	limits := func(current core1_0.Extent2D) khr_surface.SurfaceCapabilities {
		return khr_surface.SurfaceCapabilities{
			CurrentExtent:  current,
			MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
		}
	}
	undefined := core1_0.Extent2D{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF}

	for idx, tc := range []struct {
		capabilities khr_surface.SurfaceCapabilities
		framebuffer  core1_0.Extent2D
		want         core1_0.Extent2D
	}{
		// The surface lets the application decide.
		{limits(undefined), core1_0.Extent2D{Width: 1024, Height: 768}, core1_0.Extent2D{Width: 1024, Height: 768}},
		{limits(core1_0.Extent2D{Width: -1, Height: -1}), core1_0.Extent2D{Width: 1024, Height: 768}, core1_0.Extent2D{Width: 1024, Height: 768}},
		{limits(undefined), core1_0.Extent2D{Width: 8000, Height: 600}, core1_0.Extent2D{Width: 4096, Height: 600}},
		{limits(undefined), core1_0.Extent2D{Width: 0, Height: 5000}, core1_0.Extent2D{Width: 1, Height: 4096}},
		// The surface dictates the size.
		{limits(core1_0.Extent2D{Width: 800, Height: 600}), core1_0.Extent2D{Width: 1024, Height: 768}, core1_0.Extent2D{Width: 800, Height: 600}},
	} {
		require.Equal(t, tc.want, ChooseExtent(tc.capabilities, tc.framebuffer), "%d", idx)
	}
}

func TestChooseImageCount(t *testing.T) {
	for idx, tc := range []struct {
		min, max int
		want     int
	}{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
		{1, 2, 2},
		{0, 0, 1},
	} {
		capabilities := khr_surface.SurfaceCapabilities{MinImageCount: tc.min, MaxImageCount: tc.max}
		require.Equal(t, tc.want, ChooseImageCount(capabilities), "%d", idx)
	}
}
