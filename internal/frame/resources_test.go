package frame

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

func testResourceOptions() ResourceOptions {
	return ResourceOptions{
		DepthFormat: core1_0.FormatD32SignedFloat,
		Samples:     core1_0.Samples4,
	}
}

func TestBuildResourcesConsistent(t *testing.T) {
	gpu := newFakeGPU()

	group, err := BuildResources(gpu, testResourceOptions(), core1_0.Extent2D{Width: 1024, Height: 768})
	require.NoError(t, err)

	require.Equal(t, 3, group.ImageCount())
	require.Equal(t, group.ImageCount(), group.ViewCount())
	require.Equal(t, group.ImageCount(), group.FramebufferCount())
	require.Equal(t, core1_0.Extent2D{Width: 1024, Height: 768}, group.Extent())
	for _, extent := range gpu.framebufferExt {
		require.Equal(t, group.Extent(), extent)
	}

	require.Equal(t, core1_0.FormatB8G8R8A8SRGB, group.Format().Format)
	require.Equal(t, khr_surface.PresentModeMailbox, group.PresentMode())
	require.Equal(t, core1_0.Samples4, group.ColorAttachment().Samples)
	require.Equal(t, core1_0.FormatB8G8R8A8SRGB, group.ColorAttachment().Format)
	require.Equal(t, core1_0.FormatD32SignedFloat, group.DepthAttachment().Format)

	_, err = group.Framebuffer(3)
	require.Error(t, err)
	fb, err := group.Framebuffer(2)
	require.NoError(t, err)
	require.NotNil(t, fb)
}

func TestBuildResourcesPassesSurfaceChoices(t *testing.T) {
	gpu := newFakeGPU()
	gpu.support.Capabilities.CurrentExtent = core1_0.Extent2D{Width: 640, Height: 480}
	gpu.support.Capabilities.MinImageCount = 3
	gpu.support.Capabilities.MaxImageCount = 3

	options := testResourceOptions()
	options.PresentModes = []khr_surface.PresentMode{khr_surface.PresentModeImmediate}

	group, err := BuildResources(gpu, options, core1_0.Extent2D{Width: 1024, Height: 768})
	require.NoError(t, err)
	defer group.Destroy()

	require.Len(t, gpu.swapchainOpts, 1)
	created := gpu.swapchainOpts[0]
	require.Equal(t, 3, created.MinImageCount)
	require.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, created.Extent)
	require.Equal(t, khr_surface.PresentModeFIFO, created.PresentMode)
	require.Equal(t, gpu.support.Capabilities, created.Capabilities)
}

func TestResourceGroupDestroyOrder(t *testing.T) {
	gpu := newFakeGPU()

	group, err := BuildResources(gpu, testResourceOptions(), core1_0.Extent2D{Width: 800, Height: 600})
	require.NoError(t, err)
	gpu.log = nil

	group.Destroy()
	require.Zero(t, gpu.liveObjects)
	require.Empty(t, gpu.violations)
	require.Zero(t, group.FramebufferCount())

	for i := 0; i < 3; i++ {
		require.Equal(t, "destroy framebuffer", gpu.log[i])
	}
	require.Equal(t, "destroy swapchain", gpu.log[len(gpu.log)-1])

	lastFramebuffer := 2
	for i, entry := range gpu.log {
		if !strings.HasPrefix(entry, "destroy image ") {
			continue
		}
		require.Greater(t, i, lastFramebuffer)
		memory := gpu.indexOf("destroy memory for " + strings.TrimPrefix(entry, "destroy "))
		require.Greater(t, memory, i, "memory for %q freed before its image", entry)
	}

	// Destroying twice is harmless.
	group.Destroy()
	require.Empty(t, gpu.violations)
}

func TestBuildResourcesReleasesOnFailure(t *testing.T) {
	gpu := newFakeGPU()
	gpu.failFramebuffer = 1

	group, err := BuildResources(gpu, testResourceOptions(), core1_0.Extent2D{Width: 800, Height: 600})
	require.Error(t, err)
	require.Nil(t, group)
	require.Zero(t, gpu.liveObjects)
	require.Empty(t, gpu.violations)
}

func TestBuildResourcesRejectsZeroArea(t *testing.T) {
	gpu := newFakeGPU()

	for _, extent := range []core1_0.Extent2D{{Width: 0, Height: 600}, {Width: 800, Height: 0}, {}} {
		_, err := BuildResources(gpu, testResourceOptions(), extent)
		require.ErrorIs(t, err, ErrZeroExtent)
	}
	require.Empty(t, gpu.swapchains)
}

func TestBuildResourcesRejectsZeroSurfaceExtent(t *testing.T) {
	gpu := newFakeGPU()
	gpu.support.Capabilities.CurrentExtent = core1_0.Extent2D{}
	gpu.support.Capabilities.MinImageExtent = core1_0.Extent2D{}

	group, err := BuildResources(gpu, testResourceOptions(), core1_0.Extent2D{Width: 800, Height: 600})
	require.ErrorIs(t, err, ErrZeroExtent)
	require.Nil(t, group)
	require.Empty(t, gpu.swapchains)
	require.Zero(t, gpu.liveObjects)
}

func TestBuildResourcesPinnedFormat(t *testing.T) {
	gpu := newFakeGPU()

	options := testResourceOptions()
	options.Format = core1_0.FormatR8G8B8A8SRGB
	_, err := BuildResources(gpu, options, core1_0.Extent2D{Width: 800, Height: 600})
	require.Error(t, err)

	options.Format = core1_0.FormatB8G8R8A8SRGB
	group, err := BuildResources(gpu, options, core1_0.Extent2D{Width: 800, Height: 600})
	require.NoError(t, err)
	group.Destroy()
}
