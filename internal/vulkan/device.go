package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/nycsi/renderer/internal/frame"
)

func (c *Context) querySurfaceSupport(device core1_0.PhysicalDevice) (frame.SurfaceSupport, error) {
	var support frame.SurfaceSupport

	capabilities, _, err := c.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(c.surface, device)
	if err != nil {
		return support, err
	}
	support.Capabilities = *capabilities

	support.Formats, _, err = c.surfaceExtension.GetPhysicalDeviceSurfaceFormats(c.surface, device)
	if err != nil {
		return support, err
	}

	support.PresentModes, _, err = c.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(c.surface, device)
	return support, err
}

func (c *Context) SurfaceSupport() (frame.SurfaceSupport, error) {
	return c.querySurfaceSupport(c.physicalDevice)
}

func (c *Context) CreateSwapchain(options frame.SwapchainOptions) (frame.Swapchain, error) {
	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	graphics, present := *c.queueFamilies.GraphicsFamily, *c.queueFamilies.PresentFamily
	if graphics != present {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, graphics, present)
	}

	handle, _, err := c.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: c.surface,

		MinImageCount:    options.MinImageCount,
		ImageFormat:      options.Format.Format,
		ImageColorSpace:  options.Format.ColorSpace,
		ImageExtent:      options.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   options.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    options.PresentMode,
		Clipped:        true,
	})
	if err != nil {
		return nil, err
	}

	return &swapchain{
		extension:    c.swapchainExtension,
		handle:       handle,
		presentQueue: c.presentQueue,
	}, nil
}

func (c *Context) CreateImage(options frame.ImageOptions) (frame.Image, error) {
	handle, _, err := c.deviceDriver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  options.Extent.Width,
			Height: options.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        options.Format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         options.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       options.Samples,
	})
	if err != nil {
		return nil, err
	}

	return &image{driver: c.deviceDriver, handle: handle}, nil
}

func (c *Context) AllocateImageMemory(img frame.Image) (frame.Memory, error) {
	handle, err := c.allocateImageMemory(img.Handle(), core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}
	return &memory{driver: c.deviceDriver, handle: handle}, nil
}

func (c *Context) CreateImageView(img core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (frame.ImageView, error) {
	handle, err := c.createImageView(img, format, aspect, 1)
	if err != nil {
		return nil, err
	}
	return &imageView{driver: c.deviceDriver, handle: handle}, nil
}

func (c *Context) createImageView(img core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags, mipLevels int) (core1_0.ImageView, error) {
	imageView, _, err := c.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    img,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	return imageView, err
}

func (c *Context) CreateFramebuffer(attachments []frame.ImageView, extent core1_0.Extent2D) (frame.Framebuffer, error) {
	views := make([]core1_0.ImageView, 0, len(attachments))
	for _, attachment := range attachments {
		views = append(views, attachment.Handle())
	}

	handle, _, err := c.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  c.renderPass,
		Layers:      1,
		Attachments: views,
		Width:       extent.Width,
		Height:      extent.Height,
	})
	if err != nil {
		return nil, err
	}

	return &framebuffer{driver: c.deviceDriver, handle: handle}, nil
}

func (c *Context) WaitIdle() error {
	_, err := c.deviceDriver.DeviceWaitIdle()
	if err != nil {
		return errors.Wrap(err, "device wait idle")
	}
	return nil
}

type image struct {
	driver core1_0.CoreDeviceDriver
	handle core1_0.Image
}

func (i *image) Handle() core1_0.Image { return i.handle }
func (i *image) Destroy()              { i.driver.DestroyImage(i.handle, nil) }

type memory struct {
	driver core1_0.CoreDeviceDriver
	handle core1_0.DeviceMemory
}

func (m *memory) Destroy() { m.driver.FreeMemory(m.handle, nil) }

type imageView struct {
	driver core1_0.CoreDeviceDriver
	handle core1_0.ImageView
}

func (v *imageView) Handle() core1_0.ImageView { return v.handle }
func (v *imageView) Destroy()                  { v.driver.DestroyImageView(v.handle, nil) }

type framebuffer struct {
	driver core1_0.CoreDeviceDriver
	handle core1_0.Framebuffer
}

func (f *framebuffer) Handle() core1_0.Framebuffer { return f.handle }
func (f *framebuffer) Destroy()                    { f.driver.DestroyFramebuffer(f.handle, nil) }
