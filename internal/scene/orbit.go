package scene

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Uniforms matches the vertex shader's uniform block.
type Uniforms struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// UniformSize is the byte size of Uniforms as written to the GPU.
var UniformSize = binary.Size(Uniforms{})

// Orbit spins the model around its Z axis under a fixed camera.
type Orbit struct {
	// DegreesPerSecond is the model's spin rate.
	DegreesPerSecond float32
	Eye              mgl32.Vec3
	Center           mgl32.Vec3
	Up               mgl32.Vec3
	FovY             float32
	Near, Far        float32
}

func NewOrbit() *Orbit {
	return &Orbit{
		DegreesPerSecond: 90,
		Eye:              mgl32.Vec3{2, 2, 2},
		Center:           mgl32.Vec3{0, 0, 0},
		Up:               mgl32.Vec3{0, 0, 1},
		FovY:             45,
		Near:             0.1,
		Far:              10,
	}
}

func (o *Orbit) Uniforms(elapsed time.Duration, extent core1_0.Extent2D) Uniforms {
	// Wrap the angle so long runs keep float32 precision.
	seconds := math.Mod(elapsed.Seconds(), float64(360/o.DegreesPerSecond))
	angle := mgl32.DegToRad(float32(seconds) * o.DegreesPerSecond)

	aspect := float32(1)
	if extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}

	proj := mgl32.Perspective(mgl32.DegToRad(o.FovY), aspect, o.Near, o.Far)
	// Vulkan's clip space Y points down.
	proj[5] *= -1

	return Uniforms{
		Model: mgl32.HomogRotate3DZ(angle),
		View:  mgl32.LookAtV(o.Eye, o.Center, o.Up),
		Proj:  proj,
	}
}

// FrameUniforms serializes Uniforms for the uniform buffer.
func (o *Orbit) FrameUniforms(elapsed time.Duration, extent core1_0.Extent2D) []byte {
	ubo := o.Uniforms(elapsed, extent)

	buf := bytes.NewBuffer(make([]byte, 0, UniformSize))
	// Writing fixed-size float arrays into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, common.ByteOrder, &ubo)
	return buf.Bytes()
}
