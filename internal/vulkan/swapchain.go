package vulkan

import (
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/nycsi/renderer/internal/frame"
)

type swapchain struct {
	extension    khr_swapchain.ExtensionDriver
	handle       khr_swapchain.Swapchain
	presentQueue core1_0.Queue
}

// swapchainStatus separates "rebuild the swapchain" results from real
// failures. The driver reports out-of-date as an error as well.
func swapchainStatus(res common.VkResult, err error) (frame.Status, error) {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return frame.StatusOutOfDate, nil
	case khr_swapchain.VKSuboptimal:
		return frame.StatusSuboptimal, nil
	}
	return frame.StatusOptimal, err
}

func (s *swapchain) Images() ([]core1_0.Image, error) {
	images, _, err := s.extension.GetSwapchainImages(s.handle)
	return images, err
}

func (s *swapchain) AcquireNextImage(signal frame.Semaphore) (int, frame.Status, error) {
	sem := signal.Handle()
	imageIndex, res, err := s.extension.AcquireNextImage(s.handle, common.NoTimeout, &sem, nil)
	status, err := swapchainStatus(res, err)
	return imageIndex, status, err
}

func (s *swapchain) Present(imageIndex int, wait frame.Semaphore) (frame.Status, error) {
	res, err := s.extension.QueuePresent(s.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait.Handle()},
		Swapchains:     []khr_swapchain.Swapchain{s.handle},
		ImageIndices:   []int{imageIndex},
	})
	return swapchainStatus(res, err)
}

func (s *swapchain) Destroy() {
	s.extension.DestroySwapchain(s.handle, nil)
}
