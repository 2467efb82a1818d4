package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"

	"github.com/taigrr/glbview/pkg/render"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	opts := cfg.Quality.Options()
	if !opts.MSAA || !opts.FXAA || !opts.AmbientOcclusion || !opts.Bloom || !opts.DynamicResolution {
		t.Errorf("default quality options = %+v, want everything on", opts)
	}
	if opts.HDRColorBuffer != render.TierMedium || opts.DynamicResolutionTier != render.TierMedium {
		t.Errorf("default tiers = %v/%v, want medium", opts.HDRColorBuffer, opts.DynamicResolutionTier)
	}
	if got, want := cfg.IBLPath(), "envs/venetian_crossroads_2k/venetian_crossroads_2k_ibl.ktx"; got != want {
		t.Errorf("IBLPath() = %q, want %q", got, want)
	}
	if got, want := cfg.SkyboxPath(), "envs/venetian_crossroads_2k/venetian_crossroads_2k_skybox.ktx"; got != want {
		t.Errorf("SkyboxPath() = %q, want %q", got, want)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
model = "models/Molar.glb"
fps = 60
auto_scale = false

[quality]
bloom = false
hdr_color_buffer = "high"

[quality.dynamic_resolution]
quality = "low"

[lighting]
indirect_intensity = 15000.0
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Model != "models/Molar.glb" || cfg.FPS != 60 || cfg.AutoScale {
		t.Errorf("top level = %q/%d/%v", cfg.Model, cfg.FPS, cfg.AutoScale)
	}
	if cfg.Environment != "venetian_crossroads_2k" {
		t.Errorf("Environment = %q, want default kept", cfg.Environment)
	}
	q := cfg.Quality
	if q.Bloom || !q.MSAA || q.HDRColorBuffer != render.TierHigh {
		t.Errorf("quality = %+v", q)
	}
	if !q.DynamicResolution.Enabled || q.DynamicResolution.Quality != render.TierLow {
		t.Errorf("dynamic resolution = %+v", q.DynamicResolution)
	}
	if cfg.Lighting.IndirectIntensity != 15000 {
		t.Errorf("IndirectIntensity = %v, want 15000", cfg.Lighting.IndirectIntensity)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", `modle = "x.glb"`},
		{"unknown section key", "[quality]\nssao = true"},
		{"fps zero", `fps = 0`},
		{"fps too high", `fps = 1000`},
		{"empty model", `model = ""`},
		{"bad tier", "[quality]\nhdr_color_buffer = \"extreme\""},
		{"negative intensity", "[lighting]\nindirect_intensity = -1.0"},
		{"bad color", `background = "teal"`},
		{"syntax", `fps = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalid", tt.data, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viewer.toml")
	if err := os.WriteFile(path, []byte("fps = 24\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FPS != 24 {
		t.Errorf("FPS = %d, want 24", cfg.FPS)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load(missing explicit path) error = nil")
	}
}

func TestLoadMissingDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.FPS != Default().FPS {
		t.Errorf("FPS = %d, want default", cfg.FPS)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Quality.HDRColorBuffer = render.TierLow
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Encode()) error = %v\n%s", err, data)
	}
	if back != cfg {
		t.Errorf("round trip = %+v, want %+v", back, cfg)
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#ff8000")
	if err != nil {
		t.Fatal(err)
	}
	if c.R != 255 || c.G != 128 || c.B != 0 || c.A != 255 {
		t.Errorf("ParseHexColor(#ff8000) = %v", c)
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	if err := os.WriteFile(filepath.Join(home, "glbview.toml"), []byte("fps = 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("~/glbview.toml")
	if err != nil {
		t.Fatalf("Load(~/glbview.toml) error = %v", err)
	}
	if cfg.FPS != 12 {
		t.Errorf("FPS = %d, want 12", cfg.FPS)
	}
}
