package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// destroyList releases what was pushed onto it in reverse order, so anything
// created from an earlier object is gone before that object is.
type destroyList []func()

func (l *destroyList) push(destroy func()) {
	*l = append(*l, destroy)
}

func (l *destroyList) release() {
	for i := len(*l) - 1; i >= 0; i-- {
		(*l)[i]()
	}
	*l = nil
}

// Attachment is a render target sized to the swapchain: the multisampled
// color buffer or the depth buffer.
type Attachment struct {
	Format  core1_0.Format
	Samples core1_0.SampleCountFlags

	image  Image
	memory Memory
	view   ImageView
}

func (a *Attachment) View() ImageView {
	return a.view
}

// destroy frees the memory last; it must outlive the image bound to it.
func (a *Attachment) destroy() {
	a.view.Destroy()
	a.image.Destroy()
	a.memory.Destroy()
}

func createAttachment(device Device, options ImageOptions, aspect core1_0.ImageAspectFlags) (*Attachment, error) {
	image, err := device.CreateImage(options)
	if err != nil {
		return nil, errors.Wrap(err, "create image")
	}

	memory, err := device.AllocateImageMemory(image)
	if err != nil {
		image.Destroy()
		return nil, errors.Wrap(err, "allocate image memory")
	}

	view, err := device.CreateImageView(image.Handle(), options.Format, aspect)
	if err != nil {
		image.Destroy()
		memory.Destroy()
		return nil, errors.Wrap(err, "create image view")
	}

	return &Attachment{
		Format:  options.Format,
		Samples: options.Samples,
		image:   image,
		memory:  memory,
		view:    view,
	}, nil
}

type ResourceOptions struct {
	// Format pins the surface format when non-zero. The render pass is
	// created once against a format and every rebuild has to match it.
	Format       core1_0.Format
	PresentModes []khr_surface.PresentMode
	DepthFormat  core1_0.Format
	Samples      core1_0.SampleCountFlags
}

// ResourceGroup owns everything that has to be recreated with the swapchain.
type ResourceGroup struct {
	swapchain   Swapchain
	format      khr_surface.SurfaceFormat
	presentMode khr_surface.PresentMode
	extent      core1_0.Extent2D

	images       []core1_0.Image
	views        []ImageView
	color        *Attachment
	depth        *Attachment
	framebuffers []Framebuffer

	releases destroyList
}

// ErrZeroExtent means there is nothing to draw into yet. Callers wait for
// window events and try again.
var ErrZeroExtent = errors.New("surface has no drawable area")

// BuildResources creates a swapchain for the given window framebuffer size
// along with its views, attachments and framebuffers. On failure everything
// created so far is released.
func BuildResources(device Device, options ResourceOptions, framebufferSize core1_0.Extent2D) (*ResourceGroup, error) {
	if framebufferSize.Width <= 0 || framebufferSize.Height <= 0 {
		return nil, errors.Wrapf(ErrZeroExtent, "framebuffer is %dx%d", framebufferSize.Width, framebufferSize.Height)
	}

	support, err := device.SurfaceSupport()
	if err != nil {
		return nil, errors.Wrap(err, "query surface support")
	}

	surfaceFormat, err := ChooseSurfaceFormat(support.Formats)
	if err != nil {
		return nil, err
	}
	if options.Format != 0 && surfaceFormat.Format != options.Format {
		return nil, errors.Newf("surface format changed from %s to %s", options.Format, surfaceFormat.Format)
	}

	group := &ResourceGroup{
		format:      surfaceFormat,
		presentMode: ChoosePresentMode(support.PresentModes, options.PresentModes...),
		extent:      ChooseExtent(support.Capabilities, framebufferSize),
	}
	// A minimized surface can report a current extent of 0x0 even though the
	// window still has a framebuffer.
	if group.extent.Width <= 0 || group.extent.Height <= 0 {
		return nil, errors.Wrapf(ErrZeroExtent, "surface extent is %dx%d", group.extent.Width, group.extent.Height)
	}

	err = group.build(device, options, support)
	if err != nil {
		group.Destroy()
		return nil, err
	}

	return group, nil
}

func (g *ResourceGroup) build(device Device, options ResourceOptions, support SurfaceSupport) error {
	swapchain, err := device.CreateSwapchain(SwapchainOptions{
		MinImageCount: ChooseImageCount(support.Capabilities),
		Format:        g.format,
		PresentMode:   g.presentMode,
		Extent:        g.extent,
		Capabilities:  support.Capabilities,
	})
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}
	g.swapchain = swapchain
	g.releases.push(swapchain.Destroy)

	g.images, err = swapchain.Images()
	if err != nil {
		return errors.Wrap(err, "get swapchain images")
	}

	for i, image := range g.images {
		view, err := device.CreateImageView(image, g.format.Format, core1_0.ImageAspectColor)
		if err != nil {
			return errors.Wrapf(err, "create view for swapchain image %d", i)
		}
		g.views = append(g.views, view)
		g.releases.push(view.Destroy)
	}

	g.color, err = createAttachment(device, ImageOptions{
		Extent:  g.extent,
		Format:  g.format.Format,
		Samples: options.Samples,
		Usage:   core1_0.ImageUsageTransientAttachment | core1_0.ImageUsageColorAttachment,
	}, core1_0.ImageAspectColor)
	if err != nil {
		return errors.Wrap(err, "color attachment")
	}
	g.releases.push(g.color.destroy)

	g.depth, err = createAttachment(device, ImageOptions{
		Extent:  g.extent,
		Format:  options.DepthFormat,
		Samples: options.Samples,
		Usage:   core1_0.ImageUsageDepthStencilAttachment,
	}, core1_0.ImageAspectDepth)
	if err != nil {
		return errors.Wrap(err, "depth attachment")
	}
	g.releases.push(g.depth.destroy)

	for i, view := range g.views {
		framebuffer, err := device.CreateFramebuffer([]ImageView{g.color.View(), g.depth.View(), view}, g.extent)
		if err != nil {
			return errors.Wrapf(err, "create framebuffer %d", i)
		}
		g.framebuffers = append(g.framebuffers, framebuffer)
		g.releases.push(framebuffer.Destroy)
	}

	return nil
}

// Destroy releases framebuffers, attachments, image views and finally the
// swapchain. The device must be idle.
func (g *ResourceGroup) Destroy() {
	g.releases.release()
	g.framebuffers = nil
	g.color = nil
	g.depth = nil
	g.views = nil
	g.images = nil
	g.swapchain = nil
}

func (g *ResourceGroup) Swapchain() Swapchain {
	return g.swapchain
}

func (g *ResourceGroup) Format() khr_surface.SurfaceFormat {
	return g.format
}

func (g *ResourceGroup) PresentMode() khr_surface.PresentMode {
	return g.presentMode
}

func (g *ResourceGroup) Extent() core1_0.Extent2D {
	return g.extent
}

func (g *ResourceGroup) ImageCount() int {
	return len(g.images)
}

func (g *ResourceGroup) ViewCount() int {
	return len(g.views)
}

func (g *ResourceGroup) FramebufferCount() int {
	return len(g.framebuffers)
}

func (g *ResourceGroup) Framebuffer(imageIndex int) (Framebuffer, error) {
	if imageIndex < 0 || imageIndex >= len(g.framebuffers) {
		return nil, errors.Newf("image index %d out of range for %d framebuffers", imageIndex, len(g.framebuffers))
	}
	return g.framebuffers[imageIndex], nil
}

func (g *ResourceGroup) ColorAttachment() *Attachment {
	return g.color
}

func (g *ResourceGroup) DepthAttachment() *Attachment {
	return g.depth
}
