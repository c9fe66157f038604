package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/nycsi/renderer/internal/frame"
)

func (c *Context) CreateFence(signaled bool) (frame.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	handle, _, err := c.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{Flags: flags})
	if err != nil {
		return nil, err
	}
	return &fence{driver: c.deviceDriver, handle: handle}, nil
}

func (c *Context) CreateSemaphore() (frame.Semaphore, error) {
	handle, _, err := c.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, err
	}
	return &semaphore{driver: c.deviceDriver, handle: handle}, nil
}

func (c *Context) AllocateCommandBuffers(count int) ([]frame.CommandBuffer, error) {
	handles, _, err := c.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        c.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, err
	}

	buffers := make([]frame.CommandBuffer, 0, len(handles))
	for _, handle := range handles {
		buffers = append(buffers, &commandBuffer{driver: c.deviceDriver, handle: handle})
	}
	return buffers, nil
}

func (c *Context) FreeCommandBuffers(buffers []frame.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}

	handles := make([]core1_0.CommandBuffer, 0, len(buffers))
	for _, buffer := range buffers {
		handles = append(handles, buffer.Handle())
	}
	c.deviceDriver.FreeCommandBuffers(handles...)
}

func (c *Context) Submit(submission frame.Submission) error {
	fence := submission.Fence.Handle()

	_, err := c.deviceDriver.QueueSubmit(c.graphicsQueue, &fence,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{submission.Wait.Handle()},
			WaitDstStageMask: []core1_0.PipelineStageFlags{submission.WaitStage},
			CommandBuffers:   []core1_0.CommandBuffer{submission.Commands.Handle()},
			SignalSemaphores: []core1_0.Semaphore{submission.Signal.Handle()},
		},
	)
	if err != nil {
		return errors.Wrap(err, "queue submit")
	}
	return nil
}

type fence struct {
	driver core1_0.CoreDeviceDriver
	handle core1_0.Fence
}

func (f *fence) Handle() core1_0.Fence { return f.handle }

func (f *fence) Wait() error {
	_, err := f.driver.WaitForFences(true, common.NoTimeout, f.handle)
	return err
}

func (f *fence) Reset() error {
	_, err := f.driver.ResetFences(f.handle)
	return err
}

func (f *fence) Destroy() { f.driver.DestroyFence(f.handle, nil) }

type semaphore struct {
	driver core1_0.CoreDeviceDriver
	handle core1_0.Semaphore
}

func (s *semaphore) Handle() core1_0.Semaphore { return s.handle }
func (s *semaphore) Destroy()                  { s.driver.DestroySemaphore(s.handle, nil) }

type commandBuffer struct {
	driver core1_0.CoreDeviceDriver
	handle core1_0.CommandBuffer
}

func (b *commandBuffer) Handle() core1_0.CommandBuffer { return b.handle }

func (b *commandBuffer) Reset() error {
	_, err := b.driver.ResetCommandBuffer(b.handle, 0)
	return err
}
