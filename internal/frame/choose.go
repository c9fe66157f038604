package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// undefinedExtent is the currentExtent value a surface reports when the
// application picks the swapchain size itself. Bindings surface it either as
// the raw uint32 or sign-extended.
const undefinedExtent = 0xFFFFFFFF

func isUndefinedExtent(v int) bool {
	return v == -1 || v == undefinedExtent
}

// ChooseSurfaceFormat prefers 32-bit BGRA sRGB in the sRGB nonlinear color
// space and otherwise takes the first format the surface lists.
func ChooseSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) (khr_surface.SurfaceFormat, error) {
	if len(availableFormats) == 0 {
		return khr_surface.SurfaceFormat{}, errors.New("surface reports no formats")
	}

	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format, nil
		}
	}

	return availableFormats[0], nil
}

// ChoosePresentMode returns the first preferred mode the surface supports.
// With no preference it looks for mailbox. FIFO is the fallback because every
// implementation must support it.
func ChoosePresentMode(availablePresentModes []khr_surface.PresentMode, preferred ...khr_surface.PresentMode) khr_surface.PresentMode {
	if len(preferred) == 0 {
		preferred = []khr_surface.PresentMode{khr_surface.PresentModeMailbox}
	}

	for _, want := range preferred {
		for _, presentMode := range availablePresentModes {
			if presentMode == want {
				return presentMode
			}
		}
	}

	return khr_surface.PresentModeFIFO
}

// ChooseExtent uses the surface's current extent when it is defined and
// otherwise clamps the window's framebuffer size to the surface limits.
func ChooseExtent(capabilities khr_surface.SurfaceCapabilities, framebuffer core1_0.Extent2D) core1_0.Extent2D {
	if !isUndefinedExtent(capabilities.CurrentExtent.Width) && !isUndefinedExtent(capabilities.CurrentExtent.Height) {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(framebuffer.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(framebuffer.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum so the driver
// never has to wait on us to release one. A max of zero means unbounded.
func ChooseImageCount(capabilities khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if imageCount < 1 {
		imageCount = 1
	}
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}

	return imageCount
}

func clamp(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}
