package app

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"

	"github.com/nycsi/renderer/internal/assets"
	"github.com/nycsi/renderer/internal/config"
	"github.com/nycsi/renderer/internal/frame"
	"github.com/nycsi/renderer/internal/pipeline"
	"github.com/nycsi/renderer/internal/scene"
	"github.com/nycsi/renderer/internal/vulkan"
	"github.com/nycsi/renderer/internal/window"
)

// Renderer draws the textured model into a window until it is closed.
type Renderer struct {
	window *window.Window

	ctx       *vulkan.Context
	cache     *pipeline.Cache
	ring      *frame.Ring
	lifecycle *frame.Lifecycle
	driver    *frame.Driver

	teardown releaser
}

// New opens the window and builds everything needed to draw. On failure
// whatever was built is released again.
func New(ctx context.Context, cfg config.Config) (*Renderer, error) {
	r := &Renderer{}
	err := r.init(ctx, cfg)
	if err != nil {
		if r.ctx != nil {
			r.waitIdle()
		}
		r.teardown.release()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init(ctx context.Context, cfg config.Config) error {
	presentModes, err := cfg.ParsePresentModes()
	if err != nil {
		return err
	}

	maxSamples, err := cfg.SampleLimit()
	if err != nil {
		return err
	}

	fsys := os.DirFS(cfg.AssetDir)
	loaded, err := assets.Load(ctx, fsys, assets.Options{
		Paths: assets.Paths{
			Model:     cfg.ModelPath,
			Materials: cfg.MaterialsPath,
			Texture:   cfg.TexturePath,
		},
		MaxTextureSize: cfg.MaxTextureSize,
	})
	if err != nil {
		return errors.Wrap(err, "load assets")
	}

	r.window, err = window.New(window.Options{
		Title:  cfg.Title,
		Width:  cfg.Width,
		Height: cfg.Height,
	})
	if err != nil {
		return err
	}
	r.teardown.push(r.window.Destroy)

	r.ctx, err = vulkan.NewContext(r.window, vulkan.Options{
		AppName:    cfg.Title,
		Validation: cfg.Validation,
		MaxSamples: maxSamples,
	})
	if err != nil {
		return errors.Wrap(err, "create vulkan context")
	}
	r.teardown.push(r.ctx.Destroy)

	mesh, err := r.ctx.UploadMesh(loaded.Model)
	if err != nil {
		return err
	}
	r.teardown.push(mesh.Destroy)

	texture, err := r.ctx.UploadTexture(loaded.Texture)
	if err != nil {
		return errors.Wrap(err, "upload texture")
	}
	r.teardown.push(texture.Destroy)

	if cfg.PipelineCache != "" {
		r.cache, err = pipeline.NewCache(r.ctx.Driver(), cfg.PipelineCache, pipeline.IdentityFromProperties(r.ctx.Properties()))
		if err != nil {
			return err
		}
		r.teardown.push(r.cache.Destroy)
	}

	graphics, err := pipeline.Build(r.ctx.Driver(), pipeline.Options{
		FS:             fsys,
		VertexShader:   cfg.VertexShader,
		FragmentShader: cfg.FragmentShader,
		RenderPass:     r.ctx.RenderPass(),
		Samples:        r.ctx.Samples(),
		Cache:          r.cache,
	})
	if err != nil {
		return errors.Wrap(err, "build graphics pipeline")
	}
	r.teardown.push(graphics.Destroy)

	uniforms, err := r.ctx.NewUniformSet(graphics.DescriptorSetLayout, texture, frame.MaxFramesInFlight, scene.UniformSize)
	if err != nil {
		return errors.Wrap(err, "create uniform buffers")
	}
	r.teardown.push(uniforms.Destroy)

	r.ring, err = frame.NewRing(r.ctx, frame.MaxFramesInFlight)
	if err != nil {
		return err
	}
	r.teardown.push(r.ring.Destroy)

	r.lifecycle = frame.NewLifecycle(r.ctx, r.window, r.ctx.ResourceOptions(presentModes))
	err = r.lifecycle.Start()
	if err != nil {
		return err
	}
	r.teardown.push(r.lifecycle.Destroy)

	start := hrtime.Now()
	r.driver, err = frame.NewDriver(r.ring, r.lifecycle, frame.DriverConfig{
		Queue: r.ctx,
		Recorder: r.ctx.NewRecorder(vulkan.RecorderOptions{
			Pipeline:       graphics.Handle,
			PipelineLayout: graphics.Layout,
			Mesh:           mesh,
			Uniforms:       uniforms,
		}),
		Scene:    scene.NewOrbit(),
		Uniforms: uniforms,
		Clock: func() time.Duration {
			return hrtime.Since(start)
		},
	})
	if err != nil {
		return err
	}

	// Everything above was created from the device, so nothing may be
	// destroyed until the device is idle.
	r.teardown.push(r.waitIdle)
	return nil
}

func (r *Renderer) waitIdle() {
	err := r.ctx.WaitIdle()
	if err != nil {
		Logger().Error("wait for device idle before teardown", "error", err)
	}
}

// Run draws frames until the window closes, ctx is cancelled or a frame
// fails.
func (r *Renderer) Run(ctx context.Context) error {
	for {
		r.window.PollEvents()
		if r.window.ShouldClose() {
			break
		}

		select {
		case <-ctx.Done():
			Logger().Info("shutting down", "reason", context.Cause(ctx))
			return r.finish()
		default:
		}

		if r.window.Minimized() {
			r.window.WaitEvents()
			continue
		}

		err := r.driver.DrawFrame()
		if errors.Is(err, frame.ErrWindowClosed) {
			break
		}
		if err != nil {
			// A failed frame may leave fences that never signal, so wait on
			// the device instead of the ring before teardown.
			r.waitIdle()
			return err
		}
	}

	return r.finish()
}

func (r *Renderer) finish() error {
	err := r.driver.Drain()
	if err != nil {
		return err
	}

	Logger().Info("renderer stopped",
		"frames", r.driver.Frames(),
		"rebuilds", r.driver.Rebuilds(),
		"swapchains", r.lifecycle.Generation())

	if r.cache != nil {
		err = r.cache.Save()
		if err != nil {
			Logger().Warn("pipeline cache not saved", "error", err)
		}
	}
	return nil
}

// Close releases everything in reverse construction order.
func (r *Renderer) Close() {
	r.teardown.release()
}
