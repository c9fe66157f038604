package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// ErrWindowClosed is returned by Start and Rebuild when the window was asked
// to close while waiting for a drawable area. No resources are live then.
var ErrWindowClosed = errors.New("window closed before it had a drawable area")

// Lifecycle owns the current ResourceGroup and replaces it whenever the
// surface goes stale. It never touches the frame ring.
type Lifecycle struct {
	device  Device
	window  Window
	options ResourceOptions

	resources  *ResourceGroup
	generation int
}

func NewLifecycle(device Device, window Window, options ResourceOptions) *Lifecycle {
	return &Lifecycle{
		device:  device,
		window:  window,
		options: options,
	}
}

// Start builds the first resource group.
func (l *Lifecycle) Start() error {
	if l.resources != nil {
		return errors.New("swapchain lifecycle already started")
	}
	return l.build()
}

// Rebuild waits for the device to go idle, destroys the current resources
// and builds new ones for the current window size. A minimized window blocks
// here until it has a drawable area again or is closed. Any other failure is
// fatal.
func (l *Lifecycle) Rebuild() error {
	err := l.device.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device idle")
	}

	if l.resources != nil {
		l.resources.Destroy()
		l.resources = nil
	}

	// Any resize that happened so far is covered by this rebuild.
	l.window.TakeResized()

	return l.build()
}

func (l *Lifecycle) build() error {
	var resources *ResourceGroup
	for resources == nil {
		extent, err := l.waitForDrawableArea()
		if err != nil {
			return err
		}

		resources, err = BuildResources(l.device, l.options, extent)
		if errors.Is(err, ErrZeroExtent) {
			Logger().Debug("surface not drawable yet", "error", err)
			l.window.WaitEvents()
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "build swapchain resources at %dx%d", extent.Width, extent.Height)
		}
	}
	l.resources = resources
	l.generation++

	Logger().Info("swapchain built",
		"generation", l.generation,
		"width", resources.Extent().Width,
		"height", resources.Extent().Height,
		"images", resources.ImageCount(),
		"format", resources.Format().Format,
		"presentMode", resources.PresentMode())
	return nil
}

func (l *Lifecycle) waitForDrawableArea() (core1_0.Extent2D, error) {
	for {
		if l.window.ShouldClose() {
			return core1_0.Extent2D{}, ErrWindowClosed
		}
		width, height := l.window.FramebufferSize()
		if width > 0 && height > 0 {
			return core1_0.Extent2D{Width: width, Height: height}, nil
		}
		Logger().Debug("waiting for a drawable area", "width", width, "height", height)
		l.window.WaitEvents()
	}
}

// Resources is the current group. It is replaced on every rebuild, so callers
// must not hold on to it across frames.
func (l *Lifecycle) Resources() *ResourceGroup {
	return l.resources
}

// Generation counts successful builds.
func (l *Lifecycle) Generation() int {
	return l.generation
}

func (l *Lifecycle) TakeResized() bool {
	return l.window.TakeResized()
}

func (l *Lifecycle) AcquireNextImage(signal Semaphore) (int, Status, error) {
	return l.resources.Swapchain().AcquireNextImage(signal)
}

func (l *Lifecycle) Present(imageIndex int, wait Semaphore) (Status, error) {
	return l.resources.Swapchain().Present(imageIndex, wait)
}

// Destroy releases the current resources. The device must be idle.
func (l *Lifecycle) Destroy() {
	if l.resources != nil {
		l.resources.Destroy()
		l.resources = nil
	}
}
