package pipeline

import (
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type Options struct {
	FS             fs.FS
	VertexShader   string
	FragmentShader string
	RenderPass     core1_0.RenderPass
	Samples        core1_0.SampleCountFlags
	// Cache is optional.
	Cache *Cache
}

// Pipeline is the graphics pipeline for the textured model together with
// the layouts its descriptor sets must match. Viewport and scissor are
// dynamic, so it outlives swapchain rebuilds.
type Pipeline struct {
	driver core1_0.CoreDeviceDriver

	DescriptorSetLayout core1_0.DescriptorSetLayout
	Layout              core1_0.PipelineLayout
	Handle              core1_0.Pipeline
}

func Build(driver core1_0.CoreDeviceDriver, options Options) (*Pipeline, error) {
	p := &Pipeline{driver: driver}
	err := p.build(options)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) build(options Options) error {
	var err error
	p.DescriptorSetLayout, _, err = p.driver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,

				StageFlags: core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,

				StageFlags: core1_0.StageFragment,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create descriptor set layout")
	}

	p.Layout, _, err = p.driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{
			p.DescriptorSetLayout,
		},
	})
	if err != nil {
		return errors.Wrap(err, "create pipeline layout")
	}

	vertShader, err := createShaderModule(p.driver, options.FS, options.VertexShader)
	if err != nil {
		return err
	}
	defer p.driver.DestroyShaderModule(vertShader, nil)

	fragShader, err := createShaderModule(p.driver, options.FS, options.FragmentShader)
	if err != nil {
		return err
	}
	defer p.driver.DestroyShaderModule(fragShader, nil)

	var cache *core1_0.PipelineCache
	if options.Cache != nil {
		handle := options.Cache.Handle()
		cache = &handle
	}

	start := hrtime.Now()
	pipelines, _, err := p.driver.CreateGraphicsPipelines(cache, nil,
		graphicsPipelineInfo(options, vertShader, fragShader, p.Layout),
	)
	if err != nil {
		return errors.Wrap(err, "create graphics pipeline")
	}
	p.Handle = pipelines[0]

	Logger().Info("created graphics pipeline",
		"elapsed", hrtime.Now()-start,
		"cached", options.Cache != nil)
	return nil
}

func graphicsPipelineInfo(options Options, vertShader, fragShader core1_0.ShaderModule, layout core1_0.PipelineLayout) core1_0.GraphicsPipelineCreateInfo {
	return core1_0.GraphicsPipelineCreateInfo{
		Stages: []core1_0.PipelineShaderStageCreateInfo{
			{
				Stage:  core1_0.StageVertex,
				Module: vertShader,
				Name:   "main",
			},
			{
				Stage:  core1_0.StageFragment,
				Module: fragShader,
				Name:   "main",
			},
		},
		VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
			VertexBindingDescriptions:   vertexBindings(),
			VertexAttributeDescriptions: vertexAttributes(),
		},
		InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
			Topology:               core1_0.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: false,
		},
		// One viewport and scissor; their contents are set while recording.
		ViewportState: &core1_0.PipelineViewportStateCreateInfo{
			Viewports: []core1_0.Viewport{{MaxDepth: 1}},
			Scissors:  []core1_0.Rect2D{{}},
		},
		RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
			DepthClampEnable:        false,
			RasterizerDiscardEnable: false,

			PolygonMode: core1_0.PolygonModeFill,
			CullMode:    core1_0.CullModeBack,
			FrontFace:   core1_0.FrontFaceCounterClockwise,

			DepthBiasEnable: false,

			LineWidth: 1.0,
		},
		MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
			SampleShadingEnable:  false,
			RasterizationSamples: options.Samples,
			MinSampleShading:     1.0,
		},
		DepthStencilState: &core1_0.PipelineDepthStencilStateCreateInfo{
			DepthTestEnable:  true,
			DepthWriteEnable: true,
			DepthCompareOp:   core1_0.CompareOpLess,
		},
		ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
			LogicOpEnabled: false,
			LogicOp:        core1_0.LogicOpCopy,

			BlendConstants: [4]float32{0, 0, 0, 0},
			Attachments: []core1_0.PipelineColorBlendAttachmentState{
				{
					BlendEnabled:   false,
					ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
				},
			},
		},
		DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
			DynamicStates: []core1_0.DynamicState{
				core1_0.DynamicStateViewport,
				core1_0.DynamicStateScissor,
			},
		},
		Layout:            layout,
		RenderPass:        options.RenderPass,
		Subpass:           0,
		BasePipelineIndex: -1,
	}
}

func (p *Pipeline) Destroy() {
	if p.Handle.Initialized() {
		p.driver.DestroyPipeline(p.Handle, nil)
	}
	if p.Layout.Initialized() {
		p.driver.DestroyPipelineLayout(p.Layout, nil)
	}
	if p.DescriptorSetLayout.Initialized() {
		p.driver.DestroyDescriptorSetLayout(p.DescriptorSetLayout, nil)
	}
}
