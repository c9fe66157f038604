package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

type Options struct {
	Title  string
	Width  int
	Height int
}

// Window is an SDL window with a Vulkan surface. All methods must be called
// from the thread that created it.
type Window struct {
	window *sdl.Window

	resized   ResizeSignal
	minimized bool
	closed    bool
}

func New(options Options) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "init sdl video")
	}

	window, err := sdl.CreateWindow(options.Title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(options.Width), int32(options.Height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrapf(err, "create %dx%d window", options.Width, options.Height)
	}

	return &Window{window: window}, nil
}

// PollEvents drains the SDL event queue without blocking.
func (w *Window) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handle(event)
	}
}

// WaitEvents blocks until at least one event arrives, then drains the queue.
func (w *Window) WaitEvents() {
	event := sdl.WaitEvent()
	if event != nil {
		w.handle(event)
	}
	w.PollEvents()
}

func (w *Window) handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		w.closed = true
	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
			w.closed = true
		}
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_CLOSE:
			w.closed = true
		case sdl.WINDOWEVENT_MINIMIZED:
			w.minimized = true
		case sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_MAXIMIZED:
			w.minimized = false
			w.resized.Raise()
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			w.resized.Raise()
		}
	}
}

// FramebufferSize is the drawable size in pixels. It is 0x0 while the window
// is minimized.
func (w *Window) FramebufferSize() (int, int) {
	if w.minimized || w.window.GetFlags()&sdl.WINDOW_MINIMIZED != 0 {
		return 0, 0
	}
	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

func (w *Window) TakeResized() bool {
	return w.resized.Take()
}

func (w *Window) Minimized() bool {
	return w.minimized
}

func (w *Window) ShouldClose() bool {
	return w.closed
}

// Close asks the run loop to stop at the next frame boundary.
func (w *Window) Close() {
	w.closed = true
}

func (w *Window) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *Window) InstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

func (w *Window) CreateSurface(instance core1_0.Instance, surfaceDriver khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	surface, err := vkng_sdl2.CreateSurface(instance, surfaceDriver, w.window)
	if err != nil {
		return khr_surface.Surface{}, errors.Wrap(err, "create sdl vulkan surface")
	}
	return surface, nil
}

func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}
