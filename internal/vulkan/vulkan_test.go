package vulkan

import (
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/nycsi/renderer/internal/frame"
)

func TestDebugLevel(t *testing.T) {
	require.Equal(t, slog.LevelError, debugLevel(ext_debug_utils.SeverityError))
	require.Equal(t, slog.LevelError, debugLevel(ext_debug_utils.SeverityError|ext_debug_utils.SeverityWarning))
	require.Equal(t, slog.LevelWarn, debugLevel(ext_debug_utils.SeverityWarning))
	require.Equal(t, slog.LevelDebug, debugLevel(ext_debug_utils.SeverityInfo))
	require.Equal(t, slog.LevelDebug-4, debugLevel(0))
}

func TestSwapchainStatus(t *testing.T) {
	failure := errors.New("device lost")

	status, err := swapchainStatus(core1_0.VKSuccess, nil)
	require.NoError(t, err)
	require.Equal(t, frame.StatusOptimal, status)

	status, err = swapchainStatus(khr_swapchain.VKSuboptimal, nil)
	require.NoError(t, err)
	require.Equal(t, frame.StatusSuboptimal, status)

	status, err = swapchainStatus(khr_swapchain.VKErrorOutOfDate, failure)
	require.NoError(t, err)
	require.Equal(t, frame.StatusOutOfDate, status)

	_, err = swapchainStatus(core1_0.VKSuccess, failure)
	require.ErrorIs(t, err, failure)
}

func TestMaxUsableSampleCount(t *testing.T) {
	testCases := []struct {
		name   string
		counts core1_0.SampleCountFlags
		limit  core1_0.SampleCountFlags
		want   core1_0.SampleCountFlags
	}{
		{"highest supported", core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8, core1_0.Samples64, core1_0.Samples8},
		{"capped by limit", core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8, core1_0.Samples4, core1_0.Samples4},
		{"limit not supported", core1_0.Samples1 | core1_0.Samples8, core1_0.Samples4, core1_0.Samples1},
		{"single sample only", core1_0.Samples1, core1_0.Samples64, core1_0.Samples1},
		{"multisampling disabled", core1_0.Samples1 | core1_0.Samples4, core1_0.Samples1, core1_0.Samples1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, maxUsableSampleCount(tc.counts, tc.limit))
		})
	}
}

func TestSupportedFormat(t *testing.T) {
	features := map[core1_0.Format]core1_0.FormatFeatureFlags{
		core1_0.FormatD32SignedFloat:                   core1_0.FormatFeatureSampledImage,
		core1_0.FormatD24UnsignedNormalizedS8UnsignedInt: core1_0.FormatFeatureDepthStencilAttachment | core1_0.FormatFeatureSampledImage,
	}
	lookup := func(format core1_0.Format) core1_0.FormatFeatureFlags { return features[format] }

	format, err := supportedFormat(
		[]core1_0.Format{core1_0.FormatD32SignedFloat, core1_0.FormatD32SignedFloatS8UnsignedInt, core1_0.FormatD24UnsignedNormalizedS8UnsignedInt},
		core1_0.FormatFeatureDepthStencilAttachment,
		lookup)
	require.NoError(t, err)
	require.Equal(t, core1_0.FormatD24UnsignedNormalizedS8UnsignedInt, format)

	_, err = supportedFormat([]core1_0.Format{core1_0.FormatD32SignedFloat}, core1_0.FormatFeatureDepthStencilAttachment, lookup)
	require.Error(t, err)
}

func TestMemoryTypeIndex(t *testing.T) {
	types := []core1_0.MemoryType{
		{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
		{PropertyFlags: core1_0.MemoryPropertyHostVisible},
		{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
	}

	index, err := memoryTypeIndex(types, 0b111, core1_0.MemoryPropertyDeviceLocal)
	require.NoError(t, err)
	require.Equal(t, 0, index)

	index, err = memoryTypeIndex(types, 0b111, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	require.NoError(t, err)
	require.Equal(t, 2, index)

	// The filter excludes the only device-local type.
	_, err = memoryTypeIndex(types, 0b110, core1_0.MemoryPropertyDeviceLocal)
	require.Error(t, err)
}

func TestMipExtent(t *testing.T) {
	require.Equal(t, 512, mipExtent(1024))
	require.Equal(t, 1, mipExtent(3))
	require.Equal(t, 1, mipExtent(1))
}

func TestRenderPassAttachments(t *testing.T) {
	attachments, subpass := renderPassAttachments(core1_0.FormatB8G8R8A8SRGB, core1_0.FormatD32SignedFloat, core1_0.Samples8)
	require.Len(t, attachments, 3)
	require.Equal(t, core1_0.Samples8, attachments[0].Samples)
	require.Equal(t, core1_0.Samples8, attachments[1].Samples)
	require.Equal(t, core1_0.Samples1, attachments[2].Samples)
	require.Equal(t, khr_swapchain.ImageLayoutPresentSrc, attachments[2].FinalLayout)
	require.Equal(t, 0, subpass.ColorAttachments[0].Attachment)
	require.Len(t, subpass.ResolveAttachments, 1)
	require.Equal(t, 2, subpass.ResolveAttachments[0].Attachment)
	require.Equal(t, 1, subpass.DepthStencilAttachment.Attachment)

	attachments, subpass = renderPassAttachments(core1_0.FormatB8G8R8A8SRGB, core1_0.FormatD32SignedFloat, core1_0.Samples1)
	require.Equal(t, 2, subpass.ColorAttachments[0].Attachment)
	require.Empty(t, subpass.ResolveAttachments)
	require.Equal(t, core1_0.AttachmentLoadOpClear, attachments[2].LoadOp)
}

func TestDeviceAttrs(t *testing.T) {
	attrs := deviceAttrs(&core1_0.PhysicalDeviceProperties{
		DriverName: "Test GPU",
		DriverType: core1_0.PhysicalDeviceTypeDiscreteGPU,
		VendorID:   0x10de,
	})
	require.Equal(t, []any{
		"device", "Test GPU",
		"type", core1_0.PhysicalDeviceTypeDiscreteGPU,
		"vendorID", uint32(0x10de),
	}, attrs)

	require.Equal(t, []any{"device", "unknown"}, deviceAttrs(nil))
}
