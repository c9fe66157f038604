package pipeline

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// ErrStaleCache marks cache data written by a different driver or device.
var ErrStaleCache = errors.New("stale pipeline cache")

const cacheHeaderVersionOne uint32 = 1

// CacheIdentity is what a driver stamps into the header of its pipeline
// cache data.
type CacheIdentity struct {
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

func IdentityFromProperties(properties *core1_0.PhysicalDeviceProperties) CacheIdentity {
	return CacheIdentity{
		VendorID: properties.VendorID,
		DeviceID: properties.DeviceID,
		UUID:     properties.PipelineCacheUUID,
	}
}

// cacheHeader is the version one layout, least significant byte first.
type cacheHeader struct {
	Length   uint32
	Version  uint32
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

// ValidateCacheHeader reports whether data can be handed to this device.
// Every rejection wraps ErrStaleCache.
func ValidateCacheHeader(data []byte, identity CacheIdentity) error {
	var header cacheHeader
	err := binary.Read(bytes.NewReader(data), common.ByteOrder, &header)
	if err != nil {
		return errors.Wrapf(ErrStaleCache, "truncated header: %v", err)
	}

	if header.Length < uint32(binary.Size(header)) {
		return errors.Wrapf(ErrStaleCache, "bad header length 0x%x", header.Length)
	}
	if header.Version != cacheHeaderVersionOne {
		return errors.Wrapf(ErrStaleCache, "unsupported header version 0x%x", header.Version)
	}
	if header.VendorID != identity.VendorID {
		return errors.Wrapf(ErrStaleCache, "vendor id 0x%x, driver expects 0x%x", header.VendorID, identity.VendorID)
	}
	if header.DeviceID != identity.DeviceID {
		return errors.Wrapf(ErrStaleCache, "device id 0x%x, driver expects 0x%x", header.DeviceID, identity.DeviceID)
	}
	if header.UUID != identity.UUID {
		return errors.Wrapf(ErrStaleCache, "uuid %s, driver expects %s", header.UUID, identity.UUID)
	}
	return nil
}

// Cache is a VkPipelineCache backed by a file. An empty path gives a cache
// that lives only for the process.
type Cache struct {
	driver core1_0.CoreDeviceDriver
	path   string
	handle core1_0.PipelineCache
}

// NewCache seeds a pipeline cache from path. Missing or stale files are not
// errors: the cache starts empty and a stale file is removed so the next
// Save repopulates it.
func NewCache(driver core1_0.CoreDeviceDriver, path string, identity CacheIdentity) (*Cache, error) {
	initial, err := readCacheFile(path, identity)
	if err != nil {
		return nil, err
	}

	handle, _, err := driver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initial,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline cache")
	}

	return &Cache{driver: driver, path: path, handle: handle}, nil
}

func readCacheFile(path string, identity CacheIdentity) ([]byte, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		Logger().Info("pipeline cache miss", "path", path)
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "read pipeline cache %s", path)
	}

	err = ValidateCacheHeader(data, identity)
	if errors.Is(err, ErrStaleCache) {
		Logger().Warn("discarding pipeline cache", "path", path, "reason", err)
		// Not important if this fails; Save overwrites it anyway.
		_ = os.Remove(path)
		return nil, nil
	}

	Logger().Info("pipeline cache hit", "path", path, "bytes", len(data))
	return data, nil
}

func (c *Cache) Handle() core1_0.PipelineCache {
	return c.handle
}

// Save writes the cache contents back to its file.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}

	data, _, err := c.driver.GetPipelineCacheData(c.handle)
	if err != nil {
		return errors.Wrap(err, "get pipeline cache data")
	}

	err = os.WriteFile(c.path, data, 0666)
	if err != nil {
		return errors.Wrapf(err, "write pipeline cache %s", c.path)
	}

	Logger().Debug("saved pipeline cache", "path", c.path, "bytes", len(data))
	return nil
}

func (c *Cache) Destroy() {
	c.driver.DestroyPipelineCache(c.handle, nil)
}
