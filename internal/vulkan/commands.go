package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// runOnce records commands into a throwaway command buffer, submits it to
// the graphics queue and waits for the queue to drain.
func (c *Context) runOnce(record func(buffer core1_0.CommandBuffer) error) error {
	buffers, _, err := c.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        c.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return errors.Wrap(err, "allocate one-shot command buffer")
	}

	buffer := buffers[0]
	defer c.deviceDriver.FreeCommandBuffers(buffer)

	_, err = c.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return err
	}

	err = record(buffer)
	if err != nil {
		return err
	}

	_, err = c.deviceDriver.EndCommandBuffer(buffer)
	if err != nil {
		return err
	}

	_, err = c.deviceDriver.QueueSubmit(c.graphicsQueue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return errors.Wrap(err, "submit one-shot commands")
	}

	_, err = c.deviceDriver.QueueWaitIdle(c.graphicsQueue)
	return err
}

func (c *Context) copyBuffer(src, dst core1_0.Buffer, size int) error {
	return c.runOnce(func(buffer core1_0.CommandBuffer) error {
		return c.deviceDriver.CmdCopyBuffer(buffer, src, dst,
			core1_0.BufferCopy{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      size,
			},
		)
	})
}

func (c *Context) copyBufferToImage(src core1_0.Buffer, dst core1_0.Image, width, height int) error {
	return c.runOnce(func(buffer core1_0.CommandBuffer) error {
		return c.deviceDriver.CmdCopyBufferToImage(buffer, src, dst, core1_0.ImageLayoutTransferDstOptimal,
			core1_0.BufferImageCopy{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
			},
		)
	})
}

func (c *Context) transitionImageLayout(img core1_0.Image, oldLayout, newLayout core1_0.ImageLayout, mipLevels int) error {
	var sourceStage, destStage core1_0.PipelineStageFlags
	var sourceAccess, destAccess core1_0.AccessFlags

	if oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal {
		sourceAccess = 0
		destAccess = core1_0.AccessTransferWrite
		sourceStage = core1_0.PipelineStageTopOfPipe
		destStage = core1_0.PipelineStageTransfer
	} else if oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal {
		sourceAccess = core1_0.AccessTransferWrite
		destAccess = core1_0.AccessShaderRead
		sourceStage = core1_0.PipelineStageTransfer
		destStage = core1_0.PipelineStageFragmentShader
	} else {
		return errors.Newf("unexpected layout transition: %s -> %s", oldLayout, newLayout)
	}

	return c.runOnce(func(buffer core1_0.CommandBuffer) error {
		return c.deviceDriver.CmdPipelineBarrier(buffer, sourceStage, destStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
			{
				OldLayout:           oldLayout,
				NewLayout:           newLayout,
				SrcQueueFamilyIndex: -1,
				DstQueueFamilyIndex: -1,
				Image:               img,
				SubresourceRange: core1_0.ImageSubresourceRange{
					AspectMask:     core1_0.ImageAspectColor,
					BaseMipLevel:   0,
					LevelCount:     mipLevels,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				SrcAccessMask: sourceAccess,
				DstAccessMask: destAccess,
			},
		})
	})
}

// mipExtent halves a mip dimension, stopping at 1.
func mipExtent(size int) int {
	if size > 1 {
		return size / 2
	}
	return 1
}

// generateMipmaps fills levels 1..mipLevels-1 by successive linear blits of
// level 0 and leaves every level shader-readable.
func (c *Context) generateMipmaps(img core1_0.Image, format core1_0.Format, width, height int, mipLevels int) error {
	properties := c.instanceDriver.GetPhysicalDeviceFormatProperties(c.physicalDevice, format)
	if (properties.OptimalTilingFeatures & core1_0.FormatFeatureSampledImageFilterLinear) == 0 {
		return errors.Newf("texture image format %s does not support linear blitting", format)
	}

	return c.runOnce(func(buffer core1_0.CommandBuffer) error {
		barrier := core1_0.ImageMemoryBarrier{
			Image:               img,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseArrayLayer: 0,
				LayerCount:     1,
				LevelCount:     1,
			},
		}

		mipWidth := width
		mipHeight := height
		for i := 1; i < mipLevels; i++ {
			barrier.SubresourceRange.BaseMipLevel = i - 1
			barrier.OldLayout = core1_0.ImageLayoutTransferDstOptimal
			barrier.NewLayout = core1_0.ImageLayoutTransferSrcOptimal
			barrier.SrcAccessMask = core1_0.AccessTransferWrite
			barrier.DstAccessMask = core1_0.AccessTransferRead

			err := c.deviceDriver.CmdPipelineBarrier(buffer, core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
			if err != nil {
				return err
			}

			nextMipWidth := mipExtent(mipWidth)
			nextMipHeight := mipExtent(mipHeight)

			err = c.deviceDriver.CmdBlitImage(buffer, img, core1_0.ImageLayoutTransferSrcOptimal, img, core1_0.ImageLayoutTransferDstOptimal, []core1_0.ImageBlit{
				{
					SrcSubresource: core1_0.ImageSubresourceLayers{
						AspectMask:     core1_0.ImageAspectColor,
						MipLevel:       i - 1,
						BaseArrayLayer: 0,
						LayerCount:     1,
					},
					SrcOffsets: [2]core1_0.Offset3D{
						{X: 0, Y: 0, Z: 0},
						{X: mipWidth, Y: mipHeight, Z: 1},
					},

					DstSubresource: core1_0.ImageSubresourceLayers{
						AspectMask:     core1_0.ImageAspectColor,
						MipLevel:       i,
						BaseArrayLayer: 0,
						LayerCount:     1,
					},
					DstOffsets: [2]core1_0.Offset3D{
						{X: 0, Y: 0, Z: 0},
						{X: nextMipWidth, Y: nextMipHeight, Z: 1},
					},
				},
			}, core1_0.FilterLinear)
			if err != nil {
				return err
			}

			barrier.OldLayout = core1_0.ImageLayoutTransferSrcOptimal
			barrier.NewLayout = core1_0.ImageLayoutShaderReadOnlyOptimal
			barrier.SrcAccessMask = core1_0.AccessTransferRead
			barrier.DstAccessMask = core1_0.AccessShaderRead
			err = c.deviceDriver.CmdPipelineBarrier(buffer, core1_0.PipelineStageTransfer, core1_0.PipelineStageFragmentShader, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
			if err != nil {
				return err
			}

			mipWidth = nextMipWidth
			mipHeight = nextMipHeight
		}

		// The last level was only ever written to.
		barrier.SubresourceRange.BaseMipLevel = mipLevels - 1
		barrier.OldLayout = core1_0.ImageLayoutTransferDstOptimal
		barrier.NewLayout = core1_0.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = core1_0.AccessTransferWrite
		barrier.DstAccessMask = core1_0.AccessShaderRead

		return c.deviceDriver.CmdPipelineBarrier(
			buffer,
			core1_0.PipelineStageTransfer,
			core1_0.PipelineStageFragmentShader,
			0, nil, nil,
			[]core1_0.ImageMemoryBarrier{barrier})
	})
}
