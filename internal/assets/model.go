package assets

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is laid out exactly as the vertex shader reads it.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

type Model struct {
	Vertices []Vertex
	Indices  []uint32
}

type vertexKey struct {
	position int
	uv       int
}

type modelBuilder struct {
	decoder *obj.Decoder
	model   *Model
	unique  map[vertexKey]uint32
}

func (b *modelBuilder) addVertex(face obj.Face, faceIndex int) error {
	key := vertexKey{position: face.Vertices[faceIndex], uv: -1}
	if faceIndex < len(face.Uvs) {
		key.uv = face.Uvs[faceIndex]
	}

	index, exists := b.unique[key]
	if !exists {
		if (key.position+1)*3 > len(b.decoder.Vertices) {
			return errors.Newf("face references vertex %d of %d", key.position, len(b.decoder.Vertices)/3)
		}

		vert := Vertex{
			Position: mgl32.Vec3{
				b.decoder.Vertices[key.position*3],
				b.decoder.Vertices[key.position*3+1],
				b.decoder.Vertices[key.position*3+2],
			},
			Color: mgl32.Vec3{1, 1, 1},
		}

		if key.uv >= 0 {
			if (key.uv+1)*2 > len(b.decoder.Uvs) {
				return errors.Newf("face references texture coordinate %d of %d", key.uv, len(b.decoder.Uvs)/2)
			}
			// OBJ puts the origin at the bottom left, Vulkan samples from the top left.
			vert.TexCoord = mgl32.Vec2{
				b.decoder.Uvs[key.uv*2],
				1.0 - b.decoder.Uvs[key.uv*2+1],
			}
		}

		index = uint32(len(b.model.Vertices))
		b.model.Vertices = append(b.model.Vertices, vert)
		b.unique[key] = index
	}

	b.model.Indices = append(b.model.Indices, index)
	return nil
}

// LoadModel decodes an OBJ mesh into an indexed triangle list. Polygons are
// fanned into triangles and identical position/uv pairs share one vertex.
// materials may be nil.
func LoadModel(mesh io.Reader, materials io.Reader) (*Model, error) {
	if materials == nil {
		materials = bytes.NewReader(nil)
	}

	decoder, err := obj.DecodeReader(mesh, materials)
	if err != nil {
		return nil, errors.Wrap(err, "decode obj")
	}

	builder := &modelBuilder{
		decoder: decoder,
		model:   &Model{},
		unique:  make(map[vertexKey]uint32),
	}

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					err = builder.addVertex(face, corner)
					if err != nil {
						return nil, errors.Wrapf(err, "object %q", decodedObj.Name)
					}
				}
			}
		}
	}

	if len(builder.model.Indices) == 0 {
		return nil, errors.New("obj contains no triangles")
	}

	return builder.model, nil
}
