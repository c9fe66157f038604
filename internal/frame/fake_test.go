package frame

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// fakeGPU stands in for a device and its queues. Submitted work stays pending
// until something forces it: a wait on its fence or a device wait-idle. That
// makes every ordering the driver relies on visible in the event log.
type fakeGPU struct {
	log []string

	support SurfaceSupport

	fences     []*fakeFence
	semaphores int
	commands   int
	liveSync   int

	pending     []*fakeSubmission
	submitted   int
	maxInFlight int
	violations  []string

	swapchains     []*fakeSwapchain
	swapchainOpts  []SwapchainOptions
	framebufferExt []core1_0.Extent2D
	buildExtents   []core1_0.Extent2D
	liveObjects    int

	acquireScript []Status
	presentScript []Status

	failFramebuffer int
	failFence       int
	failSemaphore   int
	failSubmit      error
}

type fakeSubmission struct {
	frame int
	fence *fakeFence
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{
		support: SurfaceSupport{
			Capabilities: khr_surface.SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  0,
				CurrentExtent:  core1_0.Extent2D{Width: -1, Height: -1},
				MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
			},
			Formats: []khr_surface.SurfaceFormat{
				{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
				{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			},
			PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox},
		},
		failFramebuffer: -1,
		failFence:       -1,
		failSemaphore:   -1,
	}
}

func (g *fakeGPU) record(format string, args ...any) {
	g.log = append(g.log, fmt.Sprintf(format, args...))
}

func (g *fakeGPU) indexOf(entry string) int {
	for i, e := range g.log {
		if e == entry {
			return i
		}
	}
	return -1
}

func (g *fakeGPU) inFlight() int {
	return len(g.pending)
}

func (g *fakeGPU) complete(sub *fakeSubmission) {
	for i, p := range g.pending {
		if p == sub {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			break
		}
	}
	sub.fence.signaled = true
	sub.fence.pending = nil
	g.record("complete frame %d", sub.frame)
}

// Device

func (g *fakeGPU) SurfaceSupport() (SurfaceSupport, error) {
	return g.support, nil
}

func (g *fakeGPU) CreateSwapchain(options SwapchainOptions) (Swapchain, error) {
	g.swapchainOpts = append(g.swapchainOpts, options)
	g.buildExtents = append(g.buildExtents, options.Extent)
	sc := &fakeSwapchain{gpu: g, imageCount: options.MinImageCount}
	g.swapchains = append(g.swapchains, sc)
	g.liveObjects++
	g.record("create swapchain %dx%d", options.Extent.Width, options.Extent.Height)
	return sc, nil
}

func (g *fakeGPU) CreateImage(options ImageOptions) (Image, error) {
	g.liveObjects++
	return &fakeImage{&fakeObject{gpu: g, name: fmt.Sprintf("image %s", options.Format)}}, nil
}

func (g *fakeGPU) AllocateImageMemory(image Image) (Memory, error) {
	g.liveObjects++
	return &fakeObject{gpu: g, name: fmt.Sprintf("memory for %s", image.(*fakeImage).name)}, nil
}

func (g *fakeGPU) CreateImageView(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (ImageView, error) {
	g.liveObjects++
	return &fakeView{&fakeObject{gpu: g, name: fmt.Sprintf("view %s", format)}}, nil
}

func (g *fakeGPU) CreateFramebuffer(attachments []ImageView, extent core1_0.Extent2D) (Framebuffer, error) {
	if g.failFramebuffer >= 0 && len(g.framebufferExt) == g.failFramebuffer {
		return nil, errors.New("out of device memory")
	}
	if len(attachments) != 3 {
		return nil, errors.Newf("framebuffer wants 3 attachments, got %d", len(attachments))
	}
	g.framebufferExt = append(g.framebufferExt, extent)
	g.liveObjects++
	return &fakeFramebuffer{&fakeObject{gpu: g, name: "framebuffer"}}, nil
}

func (g *fakeGPU) WaitIdle() error {
	for len(g.pending) > 0 {
		g.complete(g.pending[0])
	}
	g.record("wait idle")
	return nil
}

// SyncDevice

func (g *fakeGPU) CreateFence(signaled bool) (Fence, error) {
	if len(g.fences) == g.failFence {
		return nil, errors.Newf("fence %d: out of device memory", g.failFence)
	}
	f := &fakeFence{gpu: g, id: len(g.fences), signaled: signaled}
	g.fences = append(g.fences, f)
	g.liveSync++
	return f, nil
}

func (g *fakeGPU) CreateSemaphore() (Semaphore, error) {
	if g.semaphores == g.failSemaphore {
		return nil, errors.Newf("semaphore %d: out of device memory", g.failSemaphore)
	}
	g.semaphores++
	g.liveSync++
	return &fakeSemaphore{gpu: g, id: g.semaphores - 1}, nil
}

func (g *fakeGPU) AllocateCommandBuffers(count int) ([]CommandBuffer, error) {
	var buffers []CommandBuffer
	for i := 0; i < count; i++ {
		buffers = append(buffers, &fakeCommandBuffer{gpu: g, id: g.commands})
		g.commands++
	}
	return buffers, nil
}

func (g *fakeGPU) FreeCommandBuffers(buffers []CommandBuffer) {
	g.commands -= len(buffers)
}

// Queue

func (g *fakeGPU) Submit(submission Submission) error {
	fence := submission.Fence.(*fakeFence)
	if fence.signaled {
		g.violations = append(g.violations, fmt.Sprintf("submit with signaled fence %d", fence.id))
	}
	if submission.WaitStage != core1_0.PipelineStageColorAttachmentOutput {
		g.violations = append(g.violations, "submit waits at the wrong stage")
	}
	if g.failSubmit != nil {
		g.record("submit failed slot %d", fence.id)
		return g.failSubmit
	}

	sub := &fakeSubmission{frame: g.submitted, fence: fence}
	fence.pending = sub
	g.pending = append(g.pending, sub)
	g.submitted++
	if len(g.pending) > g.maxInFlight {
		g.maxInFlight = len(g.pending)
	}
	g.record("submit frame %d slot %d", sub.frame, fence.id)
	return nil
}

type fakeObject struct {
	gpu       *fakeGPU
	name      string
	destroyed bool
}

func (o *fakeObject) destroy() {
	if o.destroyed {
		o.gpu.violations = append(o.gpu.violations, "double destroy of "+o.name)
	}
	o.destroyed = true
	o.gpu.liveObjects--
	o.gpu.record("destroy %s", o.name)
}

func (o *fakeObject) Destroy() { o.destroy() }

// Handle values are never inspected by the code under test, so every fake
// handle is the zero value.
type fakeImage struct{ *fakeObject }

func (fakeImage) Handle() core1_0.Image { return core1_0.Image{} }

type fakeView struct{ *fakeObject }

func (fakeView) Handle() core1_0.ImageView { return core1_0.ImageView{} }

type fakeFramebuffer struct{ *fakeObject }

func (fakeFramebuffer) Handle() core1_0.Framebuffer { return core1_0.Framebuffer{} }

type fakeFence struct {
	gpu      *fakeGPU
	id       int
	signaled bool
	pending  *fakeSubmission
	resets   int
}

func (f *fakeFence) Handle() core1_0.Fence { return core1_0.Fence{} }

func (f *fakeFence) Wait() error {
	if !f.signaled {
		if f.pending == nil {
			return errors.Newf("fence %d would never signal", f.id)
		}
		f.gpu.complete(f.pending)
	}
	f.gpu.record("waited slot %d", f.id)
	return nil
}

func (f *fakeFence) Reset() error {
	if !f.signaled {
		f.gpu.violations = append(f.gpu.violations, fmt.Sprintf("reset of unsignaled fence %d", f.id))
	}
	f.signaled = false
	f.resets++
	return nil
}

func (f *fakeFence) Destroy() { f.gpu.liveSync-- }

type fakeSemaphore struct {
	gpu *fakeGPU
	id  int
}

func (s *fakeSemaphore) Handle() core1_0.Semaphore { return core1_0.Semaphore{} }
func (s *fakeSemaphore) Destroy()                  { s.gpu.liveSync-- }

type fakeCommandBuffer struct {
	gpu    *fakeGPU
	id     int
	resets int
}

func (c *fakeCommandBuffer) Handle() core1_0.CommandBuffer { return core1_0.CommandBuffer{} }

func (c *fakeCommandBuffer) Reset() error {
	c.resets++
	return nil
}

type fakeSwapchain struct {
	gpu        *fakeGPU
	imageCount int
	next       int
	acquires   int
	presents   int
	destroyed  bool
}

func (s *fakeSwapchain) Images() ([]core1_0.Image, error) {
	return make([]core1_0.Image, s.imageCount), nil
}

func (s *fakeSwapchain) AcquireNextImage(signal Semaphore) (int, Status, error) {
	s.acquires++
	status := StatusOptimal
	if len(s.gpu.acquireScript) > 0 {
		status = s.gpu.acquireScript[0]
		s.gpu.acquireScript = s.gpu.acquireScript[1:]
	}
	s.gpu.record("acquire %s", status)
	if status == StatusOutOfDate {
		return 0, status, nil
	}
	index := s.next
	s.next = (s.next + 1) % s.imageCount
	return index, status, nil
}

func (s *fakeSwapchain) Present(imageIndex int, wait Semaphore) (Status, error) {
	s.presents++
	status := StatusOptimal
	if len(s.gpu.presentScript) > 0 {
		status = s.gpu.presentScript[0]
		s.gpu.presentScript = s.gpu.presentScript[1:]
	}
	s.gpu.record("present image %d %s", imageIndex, status)
	return status, nil
}

func (s *fakeSwapchain) Destroy() {
	s.destroyed = true
	s.gpu.liveObjects--
	s.gpu.record("destroy swapchain")
}

// fakeWindow replays framebuffer sizes; each WaitEvents moves to the next.
type fakeWindow struct {
	sizes   [][2]int
	waits   int
	resized bool
	closed  bool
	// onWait runs after each WaitEvents.
	onWait func()
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	size := w.sizes[0]
	return size[0], size[1]
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
	if w.onWait != nil {
		w.onWait()
	}
}

func (w *fakeWindow) ShouldClose() bool {
	return w.closed
}

func (w *fakeWindow) TakeResized() bool {
	resized := w.resized
	w.resized = false
	return resized
}

type fakeRecorder struct {
	gpu     *fakeGPU
	targets []RenderTarget
	// onRecord runs in the middle of recording.
	onRecord func()
	fail     error
}

func (r *fakeRecorder) Record(commands CommandBuffer, slot int, target RenderTarget) error {
	r.targets = append(r.targets, target)
	r.gpu.record("record slot %d image %d", slot, target.ImageIndex)
	if r.onRecord != nil {
		r.onRecord()
	}
	return r.fail
}

type fakeScene struct {
	calls []time.Duration
}

func (s *fakeScene) FrameUniforms(elapsed time.Duration, extent core1_0.Extent2D) []byte {
	s.calls = append(s.calls, elapsed)
	return []byte{byte(extent.Width), byte(extent.Height)}
}

type fakeUniforms struct {
	gpu    *fakeGPU
	writes map[int]int
}

func (u *fakeUniforms) WriteUniforms(slot int, data []byte) error {
	// The previous submission from this slot must be done before its
	// host-visible buffer is touched.
	for _, p := range u.gpu.pending {
		if p.fence.id == slot {
			u.gpu.violations = append(u.gpu.violations, fmt.Sprintf("uniform write to slot %d while in flight", slot))
		}
	}
	if u.writes == nil {
		u.writes = map[int]int{}
	}
	u.writes[slot]++
	return nil
}
