package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/nycsi/renderer/internal/frame"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

// Surface is the window side of the context: it loads Vulkan and owns the
// native surface.
type Surface interface {
	ProcAddr() unsafe.Pointer
	InstanceExtensions() []string
	CreateSurface(instance core1_0.Instance, surfaceDriver khr_surface.ExtensionDriver) (khr_surface.Surface, error)
}

type Options struct {
	AppName    string
	Validation bool
	// MaxSamples caps the MSAA sample count picked for the device.
	MaxSamples core1_0.SampleCountFlags
}

type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

// Context owns the instance, the logical device and everything that lives
// as long as they do. It implements frame.Device, frame.SyncDevice and
// frame.Queue.
type Context struct {
	options Options

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	swapchainExtension khr_swapchain.ExtensionDriver

	physicalDevice core1_0.PhysicalDevice
	properties     *core1_0.PhysicalDeviceProperties
	queueFamilies  QueueFamilyIndices

	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	commandPool core1_0.CommandPool

	samples     core1_0.SampleCountFlags
	colorFormat khr_surface.SurfaceFormat
	depthFormat core1_0.Format
	renderPass  core1_0.RenderPass
}

// NewContext brings up Vulkan for the given window. On failure everything
// created so far is destroyed.
func NewContext(window Surface, options Options) (*Context, error) {
	if options.MaxSamples == 0 {
		options.MaxSamples = core1_0.Samples64
	}

	ctx := &Context{options: options}
	err := ctx.init(window)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}

	return ctx, nil
}

func (c *Context) init(window Surface) error {
	var err error
	c.globalDriver, err = core.CreateDriverFromProcAddr(window.ProcAddr())
	if err != nil {
		return errors.Wrap(err, "load vulkan")
	}

	err = c.createInstance(window.InstanceExtensions())
	if err != nil {
		return errors.Wrap(err, "create instance")
	}

	err = c.setupDebugMessenger()
	if err != nil {
		return errors.Wrap(err, "set up debug messenger")
	}

	c.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(c.instanceDriver)
	c.surface, err = window.CreateSurface(c.instanceDriver.Instance(), c.surfaceExtension)
	if err != nil {
		return err
	}

	err = c.pickPhysicalDevice()
	if err != nil {
		return err
	}

	err = c.createLogicalDevice()
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}

	err = c.createCommandPool()
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}

	err = c.chooseFormats()
	if err != nil {
		return err
	}

	err = c.createRenderPass()
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}

	attrs := append(deviceAttrs(c.properties),
		"samples", c.samples,
		"colorFormat", c.colorFormat.Format,
		"depthFormat", c.depthFormat)
	Logger().Info("vulkan device ready", attrs...)
	return nil
}

func deviceAttrs(properties *core1_0.PhysicalDeviceProperties) []any {
	if properties == nil {
		return []any{"device", "unknown"}
	}
	return []any{
		"device", properties.DriverName,
		"type", properties.DriverType,
		"vendorID", properties.VendorID,
	}
}

func (c *Context) createInstance(windowExtensions []string) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    c.options.AppName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := c.globalDriver.AvailableExtensions()
	if err != nil {
		return err
	}

	for _, ext := range windowExtensions {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Newf("missing window extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if c.options.Validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if c.options.Validation {
		layers, _, err := c.globalDriver.AvailableLayers()
		if err != nil {
			return err
		}

		for _, layer := range validationLayers {
			_, hasValidation := layers[layer]
			if !hasValidation {
				return errors.Newf("validation layer %s not available, install the LunarG Vulkan SDK or pass -validation=false", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		// Also covers messages from instance creation and destruction.
		instanceOptions.Next = debugMessengerOptions()
	}

	c.instanceDriver, _, err = c.globalDriver.CreateInstance(nil, instanceOptions)
	return err
}

func (c *Context) setupDebugMessenger() error {
	if !c.options.Validation {
		return nil
	}

	var err error
	c.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(c.instanceDriver)
	c.debugMessenger, _, err = c.debugDriver.CreateDebugUtilsMessenger(nil, debugMessengerOptions())
	return err
}

func (c *Context) pickPhysicalDevice() error {
	physicalDevices, _, err := c.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}

	for _, device := range physicalDevices {
		indices, suitable := c.isDeviceSuitable(device)
		if !suitable {
			continue
		}

		properties, err := c.instanceDriver.GetPhysicalDeviceProperties(device)
		if err != nil {
			return errors.Wrap(err, "get physical device properties")
		}

		c.physicalDevice = device
		c.properties = properties
		c.queueFamilies = indices
		limits := properties.Limits
		c.samples = maxUsableSampleCount(limits.FramebufferColorSampleCounts&limits.FramebufferDepthSampleCounts, c.options.MaxSamples)
		return nil
	}

	return errors.New("failed to find a suitable GPU")
}

func (c *Context) isDeviceSuitable(device core1_0.PhysicalDevice) (QueueFamilyIndices, bool) {
	indices, err := c.findQueueFamilies(device)
	if err != nil || !indices.IsComplete() {
		return indices, false
	}

	if !c.checkDeviceExtensionSupport(device) {
		return indices, false
	}

	support, err := c.querySurfaceSupport(device)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return indices, false
	}

	features := c.instanceDriver.GetPhysicalDeviceFeatures(device)
	return indices, features.SamplerAnisotropy
}

func (c *Context) checkDeviceExtensionSupport(device core1_0.PhysicalDevice) bool {
	extensions, _, err := c.instanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return false
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func (c *Context) findQueueFamilies(device core1_0.PhysicalDevice) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}
	queueFamilies := c.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(device)

	for queueFamilyIdx, queueFamily := range queueFamilies {
		if (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0 {
			indices.GraphicsFamily = new(int)
			*indices.GraphicsFamily = queueFamilyIdx
		}

		supported, _, err := c.surfaceExtension.GetPhysicalDeviceSurfaceSupport(c.surface, device, queueFamilyIdx)
		if err != nil {
			return indices, err
		}

		if supported {
			indices.PresentFamily = new(int)
			*indices.PresentFamily = queueFamilyIdx
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices, nil
}

func (c *Context) createLogicalDevice() error {
	indices := c.queueFamilies

	uniqueQueueFamilies := []int{*indices.GraphicsFamily}
	if uniqueQueueFamilies[0] != *indices.PresentFamily {
		uniqueQueueFamilies = append(uniqueQueueFamilies, *indices.PresentFamily)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range uniqueQueueFamilies {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	// Required on MoltenVK and other portability implementations.
	extensions, _, err := c.instanceDriver.EnumerateDeviceExtensionProperties(c.physicalDevice)
	if err != nil {
		return err
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	c.deviceDriver, _, err = c.instanceDriver.CreateDevice(c.physicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueFamilyOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return err
	}

	c.graphicsQueue = c.deviceDriver.GetQueue(*indices.GraphicsFamily, 0)
	c.presentQueue = c.deviceDriver.GetQueue(*indices.PresentFamily, 0)
	c.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(c.deviceDriver)
	return nil
}

func (c *Context) createCommandPool() error {
	// Frame command buffers are reset one at a time before re-recording.
	pool, _, err := c.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: *c.queueFamilies.GraphicsFamily,
	})
	if err != nil {
		return err
	}

	c.commandPool = pool
	return nil
}

// chooseFormats pins the color format for the lifetime of the render pass.
func (c *Context) chooseFormats() error {
	support, err := c.querySurfaceSupport(c.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "query surface support")
	}

	c.colorFormat, err = frame.ChooseSurfaceFormat(support.Formats)
	if err != nil {
		return err
	}

	c.depthFormat, err = supportedFormat(
		[]core1_0.Format{core1_0.FormatD32SignedFloat, core1_0.FormatD32SignedFloatS8UnsignedInt, core1_0.FormatD24UnsignedNormalizedS8UnsignedInt},
		core1_0.FormatFeatureDepthStencilAttachment,
		c.optimalTilingFeatures)
	if err != nil {
		return errors.Wrap(err, "depth format")
	}
	return nil
}

func (c *Context) optimalTilingFeatures(format core1_0.Format) core1_0.FormatFeatureFlags {
	return c.instanceDriver.GetPhysicalDeviceFormatProperties(c.physicalDevice, format).OptimalTilingFeatures
}

func (c *Context) Driver() core1_0.CoreDeviceDriver {
	return c.deviceDriver
}

func (c *Context) Properties() *core1_0.PhysicalDeviceProperties {
	return c.properties
}

func (c *Context) RenderPass() core1_0.RenderPass {
	return c.renderPass
}

func (c *Context) Samples() core1_0.SampleCountFlags {
	return c.samples
}

func (c *Context) ColorFormat() core1_0.Format {
	return c.colorFormat.Format
}

func (c *Context) DepthFormat() core1_0.Format {
	return c.depthFormat
}

// ResourceOptions describes the swapchain resources this context's render
// pass accepts.
func (c *Context) ResourceOptions(presentModes []khr_surface.PresentMode) frame.ResourceOptions {
	return frame.ResourceOptions{
		Format:       c.colorFormat.Format,
		PresentModes: presentModes,
		DepthFormat:  c.depthFormat,
		Samples:      c.samples,
	}
}

// Destroy tears the context down. Everything created from the device must
// already be gone.
func (c *Context) Destroy() {
	if c.renderPass.Initialized() {
		c.deviceDriver.DestroyRenderPass(c.renderPass, nil)
		c.renderPass = core1_0.RenderPass{}
	}

	if c.commandPool.Initialized() {
		c.deviceDriver.DestroyCommandPool(c.commandPool, nil)
		c.commandPool = core1_0.CommandPool{}
	}

	if c.deviceDriver != nil {
		c.deviceDriver.DestroyDevice(nil)
		c.deviceDriver = nil
	}

	if c.debugMessenger.Initialized() {
		c.debugDriver.DestroyDebugUtilsMessenger(c.debugMessenger, nil)
		c.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if c.surface.Initialized() {
		c.surfaceExtension.DestroySurface(c.surface, nil)
		c.surface = khr_surface.Surface{}
	}

	if c.instanceDriver != nil {
		c.instanceDriver.DestroyInstance(nil)
		c.instanceDriver = nil
	}
}
