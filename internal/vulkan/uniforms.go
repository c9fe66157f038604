package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// UniformSet owns one persistently mapped uniform buffer and one descriptor
// set per frame slot. Each set also binds the model texture.
type UniformSet struct {
	ctx     *Context
	size    int
	buffers []buffer
	mapped  [][]byte
	pool    core1_0.DescriptorPool
	sets    []core1_0.DescriptorSet
}

func (c *Context) NewUniformSet(layout core1_0.DescriptorSetLayout, texture *Texture, slots int, size int) (*UniformSet, error) {
	u := &UniformSet{ctx: c, size: size}
	err := u.init(layout, texture, slots)
	if err != nil {
		u.Destroy()
		return nil, err
	}
	return u, nil
}

func (u *UniformSet) init(layout core1_0.DescriptorSetLayout, texture *Texture, slots int) error {
	c := u.ctx

	for i := 0; i < slots; i++ {
		buf, err := c.createBuffer(u.size, core1_0.BufferUsageUniformBuffer, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			return errors.Wrapf(err, "create uniform buffer %d", i)
		}
		u.buffers = append(u.buffers, buf)

		mapped, err := c.mapMemory(buf.memory, u.size)
		if err != nil {
			return err
		}
		u.mapped = append(u.mapped, mapped)
	}

	var err error
	u.pool, _, err = c.deviceDriver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: slots,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: slots,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: slots,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}

	layouts := make([]core1_0.DescriptorSetLayout, slots)
	for i := range layouts {
		layouts[i] = layout
	}

	u.sets, _, err = c.deviceDriver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: u.pool,
		SetLayouts:     layouts,
	})
	if err != nil {
		return errors.Wrap(err, "allocate descriptor sets")
	}

	for i, set := range u.sets {
		err = c.deviceDriver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
			{
				DstSet:          set,
				DstBinding:      0,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeUniformBuffer,

				BufferInfo: []core1_0.DescriptorBufferInfo{
					{
						Buffer: u.buffers[i].handle,
						Offset: 0,
						Range:  u.size,
					},
				},
			},
			{
				DstSet:          set,
				DstBinding:      1,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

				ImageInfo: []core1_0.DescriptorImageInfo{
					{
						ImageView:   texture.View(),
						Sampler:     texture.Sampler(),
						ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
					},
				},
			},
		}, nil)
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteUniforms copies data into the slot's buffer. The caller must have
// waited on the slot's fence first.
func (u *UniformSet) WriteUniforms(slot int, data []byte) error {
	if slot < 0 || slot >= len(u.mapped) {
		return errors.Newf("uniform slot %d out of range [0,%d)", slot, len(u.mapped))
	}
	if len(data) > u.size {
		return errors.Newf("uniform data is %d bytes, buffer holds %d", len(data), u.size)
	}

	copy(u.mapped[slot], data)
	return nil
}

func (u *UniformSet) DescriptorSet(slot int) core1_0.DescriptorSet {
	return u.sets[slot]
}

func (u *UniformSet) Destroy() {
	c := u.ctx
	if u.pool.Initialized() {
		c.deviceDriver.DestroyDescriptorPool(u.pool, nil)
	}
	for i, buf := range u.buffers {
		if i < len(u.mapped) {
			c.deviceDriver.UnmapMemory(buf.memory)
		}
		c.destroyBuffer(buf)
	}
	u.buffers = nil
	u.mapped = nil
}
