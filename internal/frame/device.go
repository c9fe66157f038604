package frame

import (
	"time"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Status reports whether a swapchain can keep being used after an acquire or
// present call.
type Status int

const (
	StatusOptimal Status = iota
	StatusSuboptimal
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	}
	return "unknown"
}

// Stale is true when the swapchain must be rebuilt.
func (s Status) Stale() bool {
	return s != StatusOptimal
}

type Fence interface {
	Handle() core1_0.Fence
	// Wait blocks until the fence is signaled. There is no timeout: a hung
	// device is not recoverable.
	Wait() error
	Reset() error
	Destroy()
}

type Semaphore interface {
	Handle() core1_0.Semaphore
	Destroy()
}

type CommandBuffer interface {
	Handle() core1_0.CommandBuffer
	Reset() error
}

type Image interface {
	Handle() core1_0.Image
	Destroy()
}

// Memory is a device allocation bound to exactly one Image.
type Memory interface {
	Destroy()
}

type ImageView interface {
	Handle() core1_0.ImageView
	Destroy()
}

type Framebuffer interface {
	Handle() core1_0.Framebuffer
	Destroy()
}

// Swapchain is the presentation engine's image queue for one surface.
type Swapchain interface {
	Images() ([]core1_0.Image, error)
	AcquireNextImage(signal Semaphore) (int, Status, error)
	Present(imageIndex int, wait Semaphore) (Status, error)
	Destroy()
}

type SurfaceSupport struct {
	Capabilities khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

type SwapchainOptions struct {
	MinImageCount int
	Format        khr_surface.SurfaceFormat
	PresentMode   khr_surface.PresentMode
	Extent        core1_0.Extent2D
	Capabilities  khr_surface.SurfaceCapabilities
}

type ImageOptions struct {
	Extent  core1_0.Extent2D
	Format  core1_0.Format
	Samples core1_0.SampleCountFlags
	Usage   core1_0.ImageUsageFlags
}

// Device creates and destroys everything that depends on the swapchain.
type Device interface {
	SurfaceSupport() (SurfaceSupport, error)
	CreateSwapchain(options SwapchainOptions) (Swapchain, error)
	CreateImage(options ImageOptions) (Image, error)
	AllocateImageMemory(image Image) (Memory, error)
	CreateImageView(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (ImageView, error)
	// CreateFramebuffer binds the views, in order, to the render pass the
	// device was configured with.
	CreateFramebuffer(attachments []ImageView, extent core1_0.Extent2D) (Framebuffer, error)
	WaitIdle() error
}

// SyncDevice creates the resize-independent per-slot objects.
type SyncDevice interface {
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	AllocateCommandBuffers(count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers []CommandBuffer)
}

type Submission struct {
	Commands  CommandBuffer
	Wait      Semaphore
	WaitStage core1_0.PipelineStageFlags
	Signal    Semaphore
	Fence     Fence
}

type Queue interface {
	Submit(submission Submission) error
}

type RenderTarget struct {
	ImageIndex  int
	Framebuffer Framebuffer
	Extent      core1_0.Extent2D
}

// Recorder fills a reset command buffer with the draw for one frame slot.
type Recorder interface {
	Record(commands CommandBuffer, slot int, target RenderTarget) error
}

// Scene computes the per-frame uniform block. It must not have side effects.
type Scene interface {
	FrameUniforms(elapsed time.Duration, extent core1_0.Extent2D) []byte
}

// UniformSink copies uniform data into the host-visible buffer of a slot.
type UniformSink interface {
	WriteUniforms(slot int, data []byte) error
}

type Window interface {
	FramebufferSize() (width, height int)
	// TakeResized reports whether a resize happened since the last call and
	// clears the flag.
	TakeResized() bool
	WaitEvents()
	ShouldClose() bool
}
