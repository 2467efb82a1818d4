package render

import (
	"image"
	"math"
	"testing"

	"github.com/taigrr/glbview/pkg/math3d"
)

func TestSRGBRoundTrip(t *testing.T) {
	for _, v := range []uint8{0, 1, 10, 64, 128, 200, 254, 255} {
		if got := LinearToSRGB(SRGBToLinear(v)); got != v {
			t.Errorf("LinearToSRGB(SRGBToLinear(%d)) = %d, want %d", v, got, v)
		}
	}
	if got := LinearToSRGB(math.NaN()); got != 0 {
		t.Errorf("LinearToSRGB(NaN) = %d, want 0", got)
	}
	if got := LinearToSRGB(5); got != 255 {
		t.Errorf("LinearToSRGB(5) = %d, want 255", got)
	}
}

func TestTonemappers(t *testing.T) {
	tests := []struct {
		name string
		tm   Tonemapper
	}{
		{"clamp", TonemapClamp},
		{"aces", TonemapACES},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tm(math3d.Zero3()); got.MaxComponent() > 1e-3 {
				t.Errorf("tonemap(0) = %v, want about 0", got)
			}
			bright := tc.tm(math3d.V3(100, 100, 100))
			if bright.X > 1 || bright.X < 0.95 {
				t.Errorf("tonemap(100) = %v, want just under or at 1", bright)
			}
			lo, hi := tc.tm(math3d.V3(0.2, 0.2, 0.2)), tc.tm(math3d.V3(0.6, 0.6, 0.6))
			if lo.X >= hi.X {
				t.Errorf("tonemap not monotonic: %v >= %v", lo.X, hi.X)
			}
		})
	}
}

func TestTextureSample(t *testing.T) {
	tex := NewCheckerTexture(2, 2, 1, ColorWhite, ColorBlack)

	tests := []struct {
		name string
		u, v float64
		want Color
	}{
		// V is flipped: v near 1 is the top image row
		{"top left", 0.25, 0.75, ColorWhite},
		{"top right", 0.75, 0.75, ColorBlack},
		{"bottom left", 0.25, 0.25, ColorBlack},
		{"wraps", 1.25, 0.75, ColorWhite},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tex.Sample(tc.u, tc.v); got != tc.want {
				t.Errorf("Sample(%v, %v) = %v, want %v", tc.u, tc.v, got, tc.want)
			}
		})
	}

	if TextureFromImage(nil) != nil {
		t.Error("TextureFromImage(nil) should be nil")
	}
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(2, 1, ColorRed)
	if got := TextureFromImage(img).GetPixel(2, 1); got != ColorRed {
		t.Errorf("TextureFromImage pixel = %v, want red", got)
	}
}

func TestBloomSpreadsBrightPixels(t *testing.T) {
	target := NewTarget(9, 9)
	target.HDR[4*9+4] = math3d.V3(8, 8, 8)

	ApplyBloom(target, 2)

	if n := target.HDR[4*9+5]; n.X <= 0 {
		t.Errorf("neighbor radiance = %v, want glow", n)
	}
	if far := target.HDR[0]; far.X != 0 {
		t.Errorf("far corner radiance = %v, want 0", far)
	}
}

func TestBloomSkipsDimFrames(t *testing.T) {
	target := NewTarget(4, 4)
	for i := range target.HDR {
		target.HDR[i] = math3d.V3(0.5, 0.5, 0.5)
	}
	ApplyBloom(target, 1)
	for i, c := range target.HDR {
		if c != math3d.V3(0.5, 0.5, 0.5) {
			t.Fatalf("HDR[%d] = %v, want unchanged", i, c)
		}
	}
}

func TestSSAOFlatSurfaceUnoccluded(t *testing.T) {
	target := NewTarget(8, 8)
	for i := range target.HDR {
		target.HDR[i] = math3d.One3()
		target.Depth[i] = 0.5
		target.View[i] = 3
	}
	ApplySSAO(target, 2)
	for i, c := range target.HDR {
		if c != math3d.One3() {
			t.Fatalf("HDR[%d] = %v, want unoccluded", i, c)
		}
	}
}

func TestSSAOCreaseOccluded(t *testing.T) {
	target := NewTarget(9, 9)
	for i := range target.HDR {
		target.HDR[i] = math3d.One3()
		target.Depth[i] = 0.5
		target.View[i] = 2.8 // ring of nearer geometry
	}
	target.View[4*9+4] = 3

	ApplySSAO(target, 1)
	if c := target.HDR[4*9+4]; c.X >= 1 {
		t.Errorf("recessed sample = %v, want darkened", c)
	}
}

func TestFXAA(t *testing.T) {
	t.Run("flat image unchanged", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 6, 6))
		for i := range img.Pix {
			img.Pix[i] = 100
		}
		before := append([]uint8(nil), img.Pix...)
		ApplyFXAA(img)
		for i := range img.Pix {
			if img.Pix[i] != before[i] {
				t.Fatalf("Pix[%d] changed on a flat image", i)
			}
		}
	})

	t.Run("edge softened", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 6, 6))
		for y := range 6 {
			for x := range 6 {
				c := ColorBlack
				if x >= 3 {
					c = ColorWhite
				}
				img.SetRGBA(x, y, c)
			}
		}
		ApplyFXAA(img)
		if got := img.RGBAAt(3, 3); got == ColorWhite {
			t.Error("edge pixel should be blended")
		}
		if got := img.RGBAAt(5, 3); got != ColorWhite {
			t.Errorf("interior pixel = %v, want untouched white", got)
		}
	})
}
