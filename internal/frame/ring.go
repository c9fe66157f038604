package frame

import (
	"github.com/cockroachdb/errors"
)

// MaxFramesInFlight bounds how far the CPU may run ahead of the GPU.
const MaxFramesInFlight = 2

// Slot holds what one frame in flight needs. Slots survive swapchain rebuilds.
type Slot struct {
	Index int

	Commands       CommandBuffer
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       Fence
}

type Ring struct {
	device   SyncDevice
	slots    []*Slot
	commands []CommandBuffer
	releases destroyList
}

// NewRing allocates n slots. Fences start signaled so the first wait on each
// slot returns immediately.
func NewRing(device SyncDevice, n int) (*Ring, error) {
	if n < 1 {
		return nil, errors.Newf("frame ring needs at least one slot, got %d", n)
	}

	ring := &Ring{device: device}
	err := ring.allocate(n)
	if err != nil {
		ring.Destroy()
		return nil, err
	}

	return ring, nil
}

func (r *Ring) allocate(n int) error {
	commands, err := r.device.AllocateCommandBuffers(n)
	if err != nil {
		return errors.Wrap(err, "allocate frame command buffers")
	}
	if len(commands) != n {
		r.device.FreeCommandBuffers(commands)
		return errors.Newf("allocated %d command buffers, wanted %d", len(commands), n)
	}
	r.commands = commands
	r.releases.push(func() { r.device.FreeCommandBuffers(commands) })

	for i := 0; i < n; i++ {
		imageAvailable, err := r.device.CreateSemaphore()
		if err != nil {
			return errors.Wrapf(err, "create image-available semaphore %d", i)
		}
		r.releases.push(imageAvailable.Destroy)

		renderFinished, err := r.device.CreateSemaphore()
		if err != nil {
			return errors.Wrapf(err, "create render-finished semaphore %d", i)
		}
		r.releases.push(renderFinished.Destroy)

		inFlight, err := r.device.CreateFence(true)
		if err != nil {
			return errors.Wrapf(err, "create in-flight fence %d", i)
		}
		r.releases.push(inFlight.Destroy)

		r.slots = append(r.slots, &Slot{
			Index:          i,
			Commands:       commands[i],
			ImageAvailable: imageAvailable,
			RenderFinished: renderFinished,
			InFlight:       inFlight,
		})
	}

	return nil
}

func (r *Ring) Len() int {
	return len(r.slots)
}

// Slot returns the slot for a frame counter.
func (r *Ring) Slot(counter int) *Slot {
	return r.slots[counter%len(r.slots)]
}

// Destroy releases every slot. No submission from the ring may still be
// pending.
func (r *Ring) Destroy() {
	r.releases.release()
	r.slots = nil
	r.commands = nil
}
