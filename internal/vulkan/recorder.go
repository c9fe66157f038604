package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/nycsi/renderer/internal/frame"
)

// Recorder writes the model draw into a frame slot's command buffer.
type Recorder struct {
	driver         core1_0.CoreDeviceDriver
	renderPass     core1_0.RenderPass
	pipeline       core1_0.Pipeline
	pipelineLayout core1_0.PipelineLayout
	mesh           *Mesh
	uniforms       *UniformSet
}

type RecorderOptions struct {
	Pipeline       core1_0.Pipeline
	PipelineLayout core1_0.PipelineLayout
	Mesh           *Mesh
	Uniforms       *UniformSet
}

func (c *Context) NewRecorder(options RecorderOptions) *Recorder {
	return &Recorder{
		driver:         c.deviceDriver,
		renderPass:     c.renderPass,
		pipeline:       options.Pipeline,
		pipelineLayout: options.PipelineLayout,
		mesh:           options.Mesh,
		uniforms:       options.Uniforms,
	}
}

func (r *Recorder) Record(commands frame.CommandBuffer, slot int, target frame.RenderTarget) error {
	buffer := commands.Handle()

	_, err := r.driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return errors.Wrap(err, "begin command buffer")
	}

	err = r.driver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  r.renderPass,
			Framebuffer: target.Framebuffer.Handle(),
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: target.Extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0, 0, 0, 1},
				core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
				core1_0.ClearValueFloat{0, 0, 0, 1},
			},
		})
	if err != nil {
		return err
	}

	r.driver.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, r.pipeline)
	r.driver.CmdSetViewport(buffer, core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(target.Extent.Width),
		Height:   float32(target.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	r.driver.CmdSetScissor(buffer, core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: target.Extent,
	})
	r.driver.CmdBindVertexBuffers(buffer, 0, []core1_0.Buffer{r.mesh.VertexBuffer()}, []int{0})
	r.driver.CmdBindIndexBuffer(buffer, r.mesh.IndexBuffer(), 0, core1_0.IndexTypeUInt32)
	r.driver.CmdBindDescriptorSets(buffer, core1_0.PipelineBindPointGraphics, r.pipelineLayout, 0, []core1_0.DescriptorSet{
		r.uniforms.DescriptorSet(slot),
	}, nil)
	r.driver.CmdDrawIndexed(buffer, r.mesh.IndexCount(), 1, 0, 0, 0)
	r.driver.CmdEndRenderPass(buffer)

	_, err = r.driver.EndCommandBuffer(buffer)
	if err != nil {
		return errors.Wrap(err, "end command buffer")
	}
	return nil
}
