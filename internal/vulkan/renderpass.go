package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var sampleCountsDescending = []core1_0.SampleCountFlags{
	core1_0.Samples64,
	core1_0.Samples32,
	core1_0.Samples16,
	core1_0.Samples8,
	core1_0.Samples4,
	core1_0.Samples2,
}

// maxUsableSampleCount picks the highest sample count in counts that does
// not exceed limit.
func maxUsableSampleCount(counts core1_0.SampleCountFlags, limit core1_0.SampleCountFlags) core1_0.SampleCountFlags {
	for _, samples := range sampleCountsDescending {
		if samples <= limit && (counts&samples) != 0 {
			return samples
		}
	}
	return core1_0.Samples1
}

func supportedFormat(candidates []core1_0.Format, features core1_0.FormatFeatureFlags, optimalFeatures func(core1_0.Format) core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range candidates {
		if (optimalFeatures(format) & features) == features {
			return format, nil
		}
	}

	return 0, errors.Newf("no format among %v supports %s with optimal tiling", candidates, features)
}

// renderPassAttachments describes attachments in framebuffer order: the
// multisampled color target, depth, and the swapchain image. Without
// multisampling the swapchain image is drawn to directly and the first
// attachment goes unused.
func renderPassAttachments(colorFormat, depthFormat core1_0.Format, samples core1_0.SampleCountFlags) ([]core1_0.AttachmentDescription, core1_0.SubpassDescription) {
	attachments := []core1_0.AttachmentDescription{
		{
			Format:         colorFormat,
			Samples:        samples,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpStore,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
		},
		{
			Format:         depthFormat,
			Samples:        samples,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpDontCare,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		},
		{
			Format:         colorFormat,
			Samples:        core1_0.Samples1,
			LoadOp:         core1_0.AttachmentLoadOpDontCare,
			StoreOp:        core1_0.AttachmentStoreOpStore,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
		},
	}

	subpass := core1_0.SubpassDescription{
		PipelineBindPoint: core1_0.PipelineBindPointGraphics,
		ColorAttachments: []core1_0.AttachmentReference{
			{
				Attachment: 0,
				Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
			},
		},
		ResolveAttachments: []core1_0.AttachmentReference{
			{
				Attachment: 2,
				Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
			},
		},
		DepthStencilAttachment: &core1_0.AttachmentReference{
			Attachment: 1,
			Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	if samples == core1_0.Samples1 {
		attachments[2].LoadOp = core1_0.AttachmentLoadOpClear
		subpass.ColorAttachments[0].Attachment = 2
		subpass.ResolveAttachments = nil
	}

	return attachments, subpass
}

func (c *Context) createRenderPass() error {
	attachments, subpass := renderPassAttachments(c.colorFormat.Format, c.depthFormat, c.samples)

	renderPass, _, err := c.deviceDriver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: attachments,
		Subpasses:   []core1_0.SubpassDescription{subpass},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	if err != nil {
		return err
	}

	c.renderPass = renderPass
	return nil
}
