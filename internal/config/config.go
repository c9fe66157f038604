package config

import (
	"flag"
	"io"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

type Config struct {
	Title  string
	Width  int
	Height int

	AssetDir       string
	ModelPath      string
	MaterialsPath  string
	TexturePath    string
	VertexShader   string
	FragmentShader string
	MaxTextureSize int

	Validation    bool
	PresentModes  []string
	MaxSamples    int
	PipelineCache string

	LogLevel  string
	LogFormat string
}

func Default() Config {
	return Config{
		Title:          "Vulkan",
		Width:          800,
		Height:         600,
		AssetDir:       ".",
		ModelPath:      "meshes/viking_room.obj",
		MaterialsPath:  "meshes/viking_room.mtl",
		TexturePath:    "images/viking_room.png",
		VertexShader:   "shaders/vert.spv",
		FragmentShader: "shaders/frag.spv",
		Validation:     true,
		PresentModes:   []string{"mailbox"},
		MaxSamples:     64,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Parse reads command-line flags over the defaults and validates the result.
func Parse(name string, args []string, output io.Writer) (Config, error) {
	cfg := Default()

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(output)

	flags.StringVar(&cfg.Title, "title", cfg.Title, "window title")
	flags.IntVar(&cfg.Width, "width", cfg.Width, "initial window width")
	flags.IntVar(&cfg.Height, "height", cfg.Height, "initial window height")
	flags.StringVar(&cfg.AssetDir, "assets", cfg.AssetDir, "directory the asset paths are relative to")
	flags.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "OBJ model")
	flags.StringVar(&cfg.MaterialsPath, "materials", cfg.MaterialsPath, "MTL file for the model, empty for none")
	flags.StringVar(&cfg.TexturePath, "texture", cfg.TexturePath, "PNG texture")
	flags.StringVar(&cfg.VertexShader, "vert", cfg.VertexShader, "SPIR-V vertex shader")
	flags.StringVar(&cfg.FragmentShader, "frag", cfg.FragmentShader, "SPIR-V fragment shader")
	flags.IntVar(&cfg.MaxTextureSize, "max-texture-size", cfg.MaxTextureSize, "scale textures down to this size, 0 to keep")
	flags.BoolVar(&cfg.Validation, "validation", cfg.Validation, "enable the Khronos validation layer")
	flags.Func("present-mode", "comma separated present modes in order of preference (mailbox, fifo, fifo-relaxed, immediate)", func(value string) error {
		cfg.PresentModes = nil
		for _, mode := range strings.Split(value, ",") {
			mode = strings.TrimSpace(mode)
			if mode != "" {
				cfg.PresentModes = append(cfg.PresentModes, mode)
			}
		}
		return nil
	})
	flags.IntVar(&cfg.MaxSamples, "msaa", cfg.MaxSamples, "upper bound on the MSAA sample count")
	flags.StringVar(&cfg.PipelineCache, "pipeline-cache", cfg.PipelineCache, "file to persist the pipeline cache in, empty to disable")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")

	err := flags.Parse(args)
	if err != nil {
		return Config{}, err
	}
	if flags.NArg() > 0 {
		return Config{}, errors.Newf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.ModelPath == "" || c.TexturePath == "" {
		return errors.New("model and texture paths are required")
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return errors.New("vertex and fragment shader paths are required")
	}
	if c.MaxTextureSize < 0 {
		return errors.Newf("max texture size must not be negative, got %d", c.MaxTextureSize)
	}

	_, err := c.SampleLimit()
	if err != nil {
		return err
	}
	_, err = c.ParsePresentModes()
	if err != nil {
		return err
	}
	_, err = c.Level()
	if err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.Newf("unknown log format %q", c.LogFormat)
	}
	return nil
}

var presentModeNames = map[string]khr_surface.PresentMode{
	"immediate":    khr_surface.PresentModeImmediate,
	"mailbox":      khr_surface.PresentModeMailbox,
	"fifo":         khr_surface.PresentModeFIFO,
	"fifo-relaxed": khr_surface.PresentModeFIFORelaxed,
}

func (c Config) ParsePresentModes() ([]khr_surface.PresentMode, error) {
	var modes []khr_surface.PresentMode
	for _, name := range c.PresentModes {
		mode, ok := presentModeNames[strings.ToLower(name)]
		if !ok {
			return nil, errors.Newf("unknown present mode %q", name)
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

var sampleCounts = map[int]core1_0.SampleCountFlags{
	1:  core1_0.Samples1,
	2:  core1_0.Samples2,
	4:  core1_0.Samples4,
	8:  core1_0.Samples8,
	16: core1_0.Samples16,
	32: core1_0.Samples32,
	64: core1_0.Samples64,
}

// SampleLimit is MaxSamples as a sample count flag.
func (c Config) SampleLimit() (core1_0.SampleCountFlags, error) {
	samples, ok := sampleCounts[c.MaxSamples]
	if !ok {
		return 0, errors.Newf("msaa must be a power of two between 1 and 64, got %d", c.MaxSamples)
	}
	return samples, nil
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return 0, errors.Wrapf(err, "log level %q", c.LogLevel)
	}
	return level, nil
}

// Handler builds the slog handler the flags describe.
func (c Config) Handler(w io.Writer) slog.Handler {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, options)
	}
	return slog.NewTextHandler(w, options)
}
