package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/nycsi/renderer/internal/assets"
)

const textureFormat = core1_0.FormatR8G8B8A8SRGB

// Mesh holds a model's vertex and index buffers in device-local memory.
type Mesh struct {
	ctx        *Context
	vertices   buffer
	indices    buffer
	indexCount int
}

// UploadMesh copies the model to the GPU through staging buffers.
func (c *Context) UploadMesh(model *assets.Model) (*Mesh, error) {
	mesh := &Mesh{ctx: c, indexCount: len(model.Indices)}

	var err error
	mesh.vertices, err = c.uploadBuffer(model.Vertices, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return nil, errors.Wrap(err, "upload vertices")
	}

	mesh.indices, err = c.uploadBuffer(model.Indices, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		mesh.Destroy()
		return nil, errors.Wrap(err, "upload indices")
	}

	Logger().Debug("uploaded mesh", "vertices", len(model.Vertices), "indices", mesh.indexCount)
	return mesh, nil
}

func (c *Context) uploadBuffer(data any, usage core1_0.BufferUsageFlags) (buffer, error) {
	encoded, err := encode(data)
	if err != nil {
		return buffer{}, err
	}

	staging, err := c.stage(encoded)
	if err != nil {
		return buffer{}, err
	}
	defer c.destroyBuffer(staging)

	dst, err := c.createBuffer(len(encoded), core1_0.BufferUsageTransferDst|usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return buffer{}, err
	}

	err = c.copyBuffer(staging.handle, dst.handle, len(encoded))
	if err != nil {
		c.destroyBuffer(dst)
		return buffer{}, err
	}
	return dst, nil
}

func (m *Mesh) VertexBuffer() core1_0.Buffer { return m.vertices.handle }
func (m *Mesh) IndexBuffer() core1_0.Buffer  { return m.indices.handle }
func (m *Mesh) IndexCount() int              { return m.indexCount }

func (m *Mesh) Destroy() {
	m.ctx.destroyBuffer(m.indices)
	m.ctx.destroyBuffer(m.vertices)
}

// Texture is a sampled, fully mipmapped image.
type Texture struct {
	ctx     *Context
	image   core1_0.Image
	memory  core1_0.DeviceMemory
	view    core1_0.ImageView
	sampler core1_0.Sampler
}

func (c *Context) UploadTexture(tex *assets.Texture) (*Texture, error) {
	t := &Texture{ctx: c}
	err := t.upload(tex)
	if err != nil {
		t.Destroy()
		return nil, err
	}

	Logger().Debug("uploaded texture", "width", tex.Width, "height", tex.Height, "mipLevels", tex.MipLevels)
	return t, nil
}

func (t *Texture) upload(tex *assets.Texture) error {
	c := t.ctx

	staging, err := c.stage(tex.Pixels)
	if err != nil {
		return err
	}
	defer c.destroyBuffer(staging)

	t.image, _, err = c.deviceDriver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  tex.Width,
			Height: tex.Height,
			Depth:  1,
		},
		MipLevels:     tex.MipLevels,
		ArrayLayers:   1,
		Format:        textureFormat,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         core1_0.ImageUsageTransferSrc | core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return errors.Wrap(err, "create texture image")
	}

	t.memory, err = c.allocateImageMemory(t.image, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return err
	}

	err = c.transitionImageLayout(t.image, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, tex.MipLevels)
	if err != nil {
		return err
	}

	err = c.copyBufferToImage(staging.handle, t.image, tex.Width, tex.Height)
	if err != nil {
		return err
	}

	err = c.generateMipmaps(t.image, textureFormat, tex.Width, tex.Height, tex.MipLevels)
	if err != nil {
		return err
	}

	t.view, err = c.createImageView(t.image, textureFormat, core1_0.ImageAspectColor, tex.MipLevels)
	if err != nil {
		return errors.Wrap(err, "create texture view")
	}

	t.sampler, _, err = c.deviceDriver.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: true,
		MaxAnisotropy:    c.properties.Limits.MaxSamplerAnisotropy,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
		MinLod:     0,
		MaxLod:     float32(tex.MipLevels),
	})
	if err != nil {
		return errors.Wrap(err, "create texture sampler")
	}
	return nil
}

func (t *Texture) View() core1_0.ImageView  { return t.view }
func (t *Texture) Sampler() core1_0.Sampler { return t.sampler }

func (t *Texture) Destroy() {
	d := t.ctx.deviceDriver
	if t.sampler.Initialized() {
		d.DestroySampler(t.sampler, nil)
	}
	if t.view.Initialized() {
		d.DestroyImageView(t.view, nil)
	}
	if t.image.Initialized() {
		d.DestroyImage(t.image, nil)
	}
	if t.memory.Initialized() {
		d.FreeMemory(t.memory, nil)
	}
}
