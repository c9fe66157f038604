package vulkan

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func memoryTypeIndex(types []core1_0.MemoryType, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range types {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("no memory type with %s in filter 0x%x", properties, typeFilter)
}

func (c *Context) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := c.instanceDriver.GetPhysicalDeviceMemoryProperties(c.physicalDevice)
	return memoryTypeIndex(memProperties.MemoryTypes, typeFilter, properties)
}

func (c *Context) allocateImageMemory(img core1_0.Image, properties core1_0.MemoryPropertyFlags) (core1_0.DeviceMemory, error) {
	memReqs := c.deviceDriver.GetImageMemoryRequirements(img)
	memoryIndex, err := c.findMemoryType(memReqs.MemoryTypeBits, properties)
	if err != nil {
		return core1_0.DeviceMemory{}, err
	}

	imageMemory, _, err := c.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		return core1_0.DeviceMemory{}, errors.Wrap(err, "allocate image memory")
	}

	_, err = c.deviceDriver.BindImageMemory(img, imageMemory, 0)
	if err != nil {
		c.deviceDriver.FreeMemory(imageMemory, nil)
		return core1_0.DeviceMemory{}, errors.Wrap(err, "bind image memory")
	}

	return imageMemory, nil
}

// buffer is a VkBuffer with its own dedicated allocation.
type buffer struct {
	handle core1_0.Buffer
	memory core1_0.DeviceMemory
	size   int
}

func (c *Context) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (buffer, error) {
	handle, _, err := c.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return buffer{}, errors.Wrap(err, "create buffer")
	}

	memRequirements := c.deviceDriver.GetBufferMemoryRequirements(handle)
	memoryTypeIndex, err := c.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		c.deviceDriver.DestroyBuffer(handle, nil)
		return buffer{}, err
	}

	mem, _, err := c.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		c.deviceDriver.DestroyBuffer(handle, nil)
		return buffer{}, errors.Wrap(err, "allocate buffer memory")
	}

	_, err = c.deviceDriver.BindBufferMemory(handle, mem, 0)
	if err != nil {
		c.deviceDriver.DestroyBuffer(handle, nil)
		c.deviceDriver.FreeMemory(mem, nil)
		return buffer{}, errors.Wrap(err, "bind buffer memory")
	}

	return buffer{handle: handle, memory: mem, size: size}, nil
}

func (c *Context) destroyBuffer(b buffer) {
	if b.handle.Initialized() {
		c.deviceDriver.DestroyBuffer(b.handle, nil)
	}
	if b.memory.Initialized() {
		c.deviceDriver.FreeMemory(b.memory, nil)
	}
}

// encode lays data out the way the GPU reads it.
func encode(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, errors.Wrap(err, "encode buffer data")
	}
	return buf.Bytes(), nil
}

// mapMemory maps size bytes of host-visible memory.
func (c *Context) mapMemory(mem core1_0.DeviceMemory, size int) ([]byte, error) {
	memoryPtr, _, err := c.deviceDriver.MapMemory(mem, 0, size, 0)
	if err != nil {
		return nil, errors.Wrap(err, "map memory")
	}
	return unsafe.Slice((*byte)(memoryPtr), size), nil
}

func (c *Context) writeData(mem core1_0.DeviceMemory, data []byte) error {
	mapped, err := c.mapMemory(mem, len(data))
	if err != nil {
		return err
	}
	defer c.deviceDriver.UnmapMemory(mem)

	copy(mapped, data)
	return nil
}

// stage creates a host-visible transfer source holding data.
func (c *Context) stage(data []byte) (buffer, error) {
	staging, err := c.createBuffer(len(data), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return buffer{}, errors.Wrap(err, "create staging buffer")
	}

	err = c.writeData(staging.memory, data)
	if err != nil {
		c.destroyBuffer(staging)
		return buffer{}, err
	}
	return staging, nil
}
