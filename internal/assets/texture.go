package assets

import (
	"image"
	"image/png"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"
)

// Texture is tightly packed 8-bit RGBA, top row first.
type Texture struct {
	Width     int
	Height    int
	MipLevels int
	Pixels    []byte
}

// MipLevels is the length of the full mip chain down to 1x1.
func MipLevels(width, height int) int {
	largest := width
	if height > largest {
		largest = height
	}
	if largest < 1 {
		return 1
	}
	return int(math.Floor(math.Log2(float64(largest)))) + 1
}

// LoadTexture decodes a PNG. When maxSize is positive, images with a side
// larger than it are scaled down to fit, keeping the aspect ratio.
func LoadTexture(r io.Reader, maxSize int) (*Texture, error) {
	decoded, err := png.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode png")
	}

	bounds := decoded.Bounds()
	if bounds.Empty() {
		return nil, errors.New("png has no pixels")
	}

	target := fitWithin(bounds.Size(), maxSize)
	rgba := image.NewRGBA(image.Rect(0, 0, target.X, target.Y))
	if target == bounds.Size() {
		draw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), decoded, bounds, draw.Src, nil)
	}

	return &Texture{
		Width:     target.X,
		Height:    target.Y,
		MipLevels: MipLevels(target.X, target.Y),
		Pixels:    rgba.Pix,
	}, nil
}

func fitWithin(size image.Point, maxSize int) image.Point {
	if maxSize <= 0 || (size.X <= maxSize && size.Y <= maxSize) {
		return size
	}

	if size.X >= size.Y {
		return image.Pt(maxSize, max(1, size.Y*maxSize/size.X))
	}
	return image.Pt(max(1, size.X*maxSize/size.Y), maxSize)
}
