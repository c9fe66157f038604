package assets

import (
	"context"
	"io"
	"io/fs"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

type Paths struct {
	Model     string
	Materials string
	Texture   string
}

type Options struct {
	Paths Paths
	// MaxTextureSize caps the longest texture side; zero keeps the source size.
	MaxTextureSize int
}

type Assets struct {
	Model   *Model
	Texture *Texture
}

// Load decodes the model and the texture concurrently.
func Load(ctx context.Context, fsys fs.FS, options Options) (*Assets, error) {
	group, ctx := errgroup.WithContext(ctx)
	assets := &Assets{}

	group.Go(func() error {
		model, err := loadModel(ctx, fsys, options.Paths)
		if err != nil {
			return err
		}
		assets.Model = model
		return nil
	})

	group.Go(func() error {
		texture, err := loadTexture(ctx, fsys, options.Paths.Texture, options.MaxTextureSize)
		if err != nil {
			return err
		}
		assets.Texture = texture
		return nil
	})

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	Logger().Info("assets loaded",
		"vertices", len(assets.Model.Vertices),
		"indices", len(assets.Model.Indices),
		"textureWidth", assets.Texture.Width,
		"textureHeight", assets.Texture.Height,
		"mipLevels", assets.Texture.MipLevels)
	return assets, nil
}

func loadModel(ctx context.Context, fsys fs.FS, paths Paths) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meshFile, err := fsys.Open(paths.Model)
	if err != nil {
		return nil, errors.Wrap(err, "open model")
	}
	defer meshFile.Close()

	var materials io.Reader
	if paths.Materials != "" {
		matFile, err := fsys.Open(paths.Materials)
		if err != nil {
			return nil, errors.Wrap(err, "open materials")
		}
		defer matFile.Close()
		materials = matFile
	}

	model, err := LoadModel(meshFile, materials)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", paths.Model)
	}
	return model, nil
}

func loadTexture(ctx context.Context, fsys fs.FS, path string, maxSize int) (*Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := fsys.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open texture")
	}
	defer file.Close()

	texture, err := LoadTexture(file, maxSize)
	if err != nil {
		return nil, errors.Wrapf(err, "load texture %s", path)
	}
	return texture, nil
}
