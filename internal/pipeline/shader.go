package pipeline

import (
	"bytes"
	"encoding/binary"
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

const spirvMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V")

// DecodeSPIRV turns a compiled shader into the word stream Vulkan expects.
func DecodeSPIRV(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "length %d is not a positive multiple of 4", len(b))
	}

	code := make([]uint32, len(b)/4)
	err := binary.Read(bytes.NewReader(b), common.ByteOrder, code)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if code[0] != spirvMagic {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "magic number 0x%08x", code[0])
	}
	return code, nil
}

// LoadSPIRV reads and decodes the shader at path.
func LoadSPIRV(fsys fs.FS, path string) ([]uint32, error) {
	b, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", path)
	}

	code, err := DecodeSPIRV(b)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	return code, nil
}

func createShaderModule(driver core1_0.CoreDeviceDriver, fsys fs.FS, path string) (core1_0.ShaderModule, error) {
	code, err := LoadSPIRV(fsys, path)
	if err != nil {
		return core1_0.ShaderModule{}, err
	}

	module, _, err := driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	if err != nil {
		return core1_0.ShaderModule{}, errors.Wrapf(err, "create shader module %s", path)
	}

	Logger().Debug("loaded shader", "path", path, "words", len(code))
	return module, nil
}
