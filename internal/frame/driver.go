package frame

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type DriverConfig struct {
	Queue    Queue
	Recorder Recorder

	// Scene and Uniforms are optional, but one needs the other.
	Scene    Scene
	Uniforms UniformSink

	// Clock returns the time elapsed since rendering started.
	Clock func() time.Duration
	// Trace observes every state transition.
	Trace func(State)
}

// Driver runs the wait, acquire, record, submit, present loop over a ring of
// frame slots. It is not safe for concurrent use: one goroutine drives it.
type Driver struct {
	ring      *Ring
	lifecycle *Lifecycle
	config    DriverConfig

	state    State
	counter  int
	frames   int
	rebuilds int

	// unsignaled marks slots whose fence was reset but whose submission
	// failed. Nothing will ever signal those fences.
	unsignaled []bool
}

func NewDriver(ring *Ring, lifecycle *Lifecycle, config DriverConfig) (*Driver, error) {
	if ring == nil || lifecycle == nil {
		return nil, errors.New("frame driver needs a ring and a swapchain lifecycle")
	}
	if config.Queue == nil || config.Recorder == nil {
		return nil, errors.New("frame driver needs a queue and a recorder")
	}
	if (config.Scene == nil) != (config.Uniforms == nil) {
		return nil, errors.New("frame driver scene and uniform sink must be set together")
	}
	if config.Clock == nil {
		start := time.Now()
		config.Clock = func() time.Duration { return time.Since(start) }
	}

	return &Driver{
		ring:       ring,
		lifecycle:  lifecycle,
		config:     config,
		unsignaled: make([]bool, ring.Len()),
	}, nil
}

func (d *Driver) setState(state State) {
	d.state = state
	if d.config.Trace != nil {
		d.config.Trace(state)
	}
}

// DrawFrame renders one frame. Stale swapchains are rebuilt here and never
// reported as errors; any error returned is fatal.
func (d *Driver) DrawFrame() error {
	slot := d.ring.Slot(d.counter)
	if d.unsignaled[slot.Index] {
		return errors.Newf("frame slot %d lost its submission", slot.Index)
	}

	d.setState(StateWaitingOnFence)
	err := slot.InFlight.Wait()
	if err != nil {
		return errors.Wrapf(err, "wait for frame slot %d", slot.Index)
	}

	d.setState(StateAcquiring)
	imageIndex, status, err := d.lifecycle.AcquireNextImage(slot.ImageAvailable)
	if err != nil {
		return errors.Wrap(err, "acquire swapchain image")
	}
	if status == StatusOutOfDate {
		// Nothing was submitted: the fence is still signaled and the counter
		// stays put, so the next call reuses this slot without blocking.
		Logger().Debug("swapchain out of date on acquire", "slot", slot.Index)
		err = d.rebuild()
		d.setState(StateIdle)
		return err
	}
	rebuild := status == StatusSuboptimal

	d.setState(StateRecording)
	resources := d.lifecycle.Resources()
	err = d.updateUniforms(slot, resources.Extent())
	if err != nil {
		return err
	}

	framebuffer, err := resources.Framebuffer(imageIndex)
	if err != nil {
		return err
	}

	err = slot.Commands.Reset()
	if err != nil {
		return errors.Wrapf(err, "reset command buffer for slot %d", slot.Index)
	}

	err = d.config.Recorder.Record(slot.Commands, slot.Index, RenderTarget{
		ImageIndex:  imageIndex,
		Framebuffer: framebuffer,
		Extent:      resources.Extent(),
	})
	if err != nil {
		return errors.Wrapf(err, "record command buffer for slot %d", slot.Index)
	}

	d.setState(StateSubmitting)
	// The fence stays signaled until the submit that will signal it again, so
	// an earlier failure leaves the slot drainable.
	err = slot.InFlight.Reset()
	if err != nil {
		return errors.Wrapf(err, "reset fence for slot %d", slot.Index)
	}
	err = d.config.Queue.Submit(Submission{
		Commands:  slot.Commands,
		Wait:      slot.ImageAvailable,
		WaitStage: core1_0.PipelineStageColorAttachmentOutput,
		Signal:    slot.RenderFinished,
		Fence:     slot.InFlight,
	})
	if err != nil {
		d.unsignaled[slot.Index] = true
		return errors.Wrapf(err, "submit frame slot %d", slot.Index)
	}

	d.setState(StatePresenting)
	status, err = d.lifecycle.Present(imageIndex, slot.RenderFinished)
	if err != nil {
		return errors.Wrap(err, "present swapchain image")
	}
	// The resize flag is read only now, so a resize that arrived while
	// recording never interrupts this frame.
	if status.Stale() || d.lifecycle.TakeResized() {
		rebuild = true
	}

	d.counter = (d.counter + 1) % d.ring.Len()
	d.frames++

	if rebuild {
		err = d.rebuild()
		if err != nil {
			return err
		}
	}

	d.setState(StateIdle)
	return nil
}

func (d *Driver) updateUniforms(slot *Slot, extent core1_0.Extent2D) error {
	if d.config.Scene == nil {
		return nil
	}

	data := d.config.Scene.FrameUniforms(d.config.Clock(), extent)
	err := d.config.Uniforms.WriteUniforms(slot.Index, data)
	if err != nil {
		return errors.Wrapf(err, "write uniforms for slot %d", slot.Index)
	}
	return nil
}

func (d *Driver) rebuild() error {
	d.setState(StateRebuilding)
	err := d.lifecycle.Rebuild()
	if err != nil {
		return errors.Wrap(err, "rebuild swapchain")
	}
	d.rebuilds++
	return nil
}

// Drain blocks until all submitted frames have finished on the device. It is
// safe to call after DrawFrame failed.
func (d *Driver) Drain() error {
	for i := 0; i < d.ring.Len(); i++ {
		if d.unsignaled[i] {
			continue
		}
		err := d.ring.Slot(i).InFlight.Wait()
		if err != nil {
			return errors.Wrapf(err, "drain frame slot %d", i)
		}
	}
	return nil
}

func (d *Driver) State() State {
	return d.state
}

// Counter is the index of the slot the next frame will use.
func (d *Driver) Counter() int {
	return d.counter
}

// Frames counts submitted frames.
func (d *Driver) Frames() int {
	return d.frames
}

func (d *Driver) Rebuilds() int {
	return d.rebuilds
}
