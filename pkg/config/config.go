// Package config loads glbview's TOML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/taigrr/glbview/pkg/assets"
	"github.com/taigrr/glbview/pkg/engine"
	"github.com/taigrr/glbview/pkg/render"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "glbview.toml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full viewer configuration.
type Config struct {
	Model       string   `toml:"model"`
	Environment string   `toml:"environment"`
	FPS         int      `toml:"fps"`
	AutoScale   bool     `toml:"auto_scale"`
	Background  string   `toml:"background"` // hex clear color, like "#14141e"
	Quality     Quality  `toml:"quality"`
	Lighting    Lighting `toml:"lighting"`
}

// Quality maps onto engine.QualityOptions.
type Quality struct {
	MSAA              bool              `toml:"msaa"`
	FXAA              bool              `toml:"fxaa"`
	AmbientOcclusion  bool              `toml:"ambient_occlusion"`
	Bloom             bool              `toml:"bloom"`
	HDRColorBuffer    render.Tier       `toml:"hdr_color_buffer"`
	DynamicResolution DynamicResolution `toml:"dynamic_resolution"`
}

// DynamicResolution configures render scaling.
type DynamicResolution struct {
	Enabled bool        `toml:"enabled"`
	Quality render.Tier `toml:"quality"`
}

// Lighting configures the scene lights.
type Lighting struct {
	IndirectIntensity float64 `toml:"indirect_intensity"` // lux
}

// Default returns the configuration the viewer ships with.
func Default() Config {
	return Config{
		Model:       "models/Tooth-3.glb",
		Environment: "venetian_crossroads_2k",
		FPS:         30,
		AutoScale:   true,
		Background:  "#14141e",
		Quality: Quality{
			MSAA:             true,
			FXAA:             true,
			AmbientOcclusion: true,
			Bloom:            true,
			HDRColorBuffer:   render.TierMedium,
			DynamicResolution: DynamicResolution{
				Enabled: true,
				Quality: render.TierMedium,
			},
		},
		Lighting: Lighting{IndirectIntensity: engine.ReferenceIntensity},
	}
}

// Load reads path over the defaults. A leading ~ expands to the home
// directory. A missing file at DefaultPath is not an error; a missing
// file anywhere else is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	full, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return cfg, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges that decoding cannot.
func (c *Config) Validate() error {
	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("%w: fps %d out of range [1, 240]", ErrInvalid, c.FPS)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model path is empty", ErrInvalid)
	}
	if c.Lighting.IndirectIntensity < 0 {
		return fmt.Errorf("%w: negative indirect_intensity", ErrInvalid)
	}
	if _, err := ParseHexColor(c.Background); err != nil {
		return err
	}
	return nil
}

// Encode writes the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Options converts the quality section for the engine.
func (q Quality) Options() engine.QualityOptions {
	return engine.QualityOptions{
		DynamicResolution:     q.DynamicResolution.Enabled,
		DynamicResolutionTier: q.DynamicResolution.Quality,
		MSAA:                  q.MSAA,
		FXAA:                  q.FXAA,
		AmbientOcclusion:      q.AmbientOcclusion,
		Bloom:                 q.Bloom,
		HDRColorBuffer:        q.HDRColorBuffer,
	}
}

// IBLPath returns the indirect light KTX of the configured environment.
func (c *Config) IBLPath() string {
	ibl, _ := assets.EnvironmentPaths(c.Environment)
	return ibl
}

// SkyboxPath returns the skybox KTX of the configured environment.
func (c *Config) SkyboxPath() string {
	_, sky := assets.EnvironmentPaths(c.Environment)
	return sky
}

// ParseHexColor reads "#rrggbb".
func ParseHexColor(s string) (render.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return render.Color{}, fmt.Errorf("%w: color %q, want #rrggbb", ErrInvalid, s)
	}
	return render.RGB(c.RGB255()), nil
}
