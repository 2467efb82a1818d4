package render

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/taigrr/glbview/pkg/math3d"
)

const (
	// BloomThreshold is the radiance above which pixels glow.
	BloomThreshold = 1.0
	bloomRange     = 4.0 // excess radiance mapped onto the 8-bit bright pass
	bloomStrength  = 0.6

	aoSamples  = 8
	aoStrength = 0.6
)

var aoKernel = func() [aoSamples][2]float64 {
	var k [aoSamples][2]float64
	for i := range k {
		a := float64(i) / aoSamples * 2 * math.Pi
		// alternate radii so the ring picks up both creases and broad occluders
		r := 1.0 + float64(i%2)
		k[i] = [2]float64{math.Cos(a) * r, math.Sin(a) * r}
	}
	return k
}()

// ApplySSAO darkens samples whose screen-space neighbors sit in front of
// them. radius is in samples.
func ApplySSAO(t *Target, radius float64) {
	if t.Width == 0 || t.Height == 0 {
		return
	}
	factors := make([]float64, len(t.View))
	for y := range t.Height {
		for x := range t.Width {
			i := y*t.Width + x
			factors[i] = 1
			if !t.Covered(i) {
				continue
			}
			center := t.View[i]
			// world-space falloff so distant surfaces do not occlude
			rangeLimit := 0.25 * center
			occluded := 0
			for _, k := range aoKernel {
				sx := x + int(math.Round(k[0]*radius))
				sy := y + int(math.Round(k[1]*radius))
				if sx < 0 || sy < 0 || sx >= t.Width || sy >= t.Height {
					continue
				}
				j := sy*t.Width + sx
				if !t.Covered(j) {
					continue
				}
				d := center - t.View[j]
				if d > 0.02*center && d < rangeLimit {
					occluded++
				}
			}
			factors[i] = 1 - aoStrength*float64(occluded)/aoSamples
		}
	}
	for i, f := range factors {
		t.HDR[i] = t.HDR[i].Scale(f)
	}
}

// ApplyBloom extracts radiance above BloomThreshold, blurs it and adds it
// back.
func ApplyBloom(t *Target, radius float64) {
	if t.Width == 0 || t.Height == 0 {
		return
	}
	bright := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	lit := false
	for i, c := range t.HDR {
		ex := math3d.V3(
			math.Max(0, c.X-BloomThreshold),
			math.Max(0, c.Y-BloomThreshold),
			math.Max(0, c.Z-BloomThreshold),
		)
		if ex.MaxComponent() <= 0 {
			continue
		}
		lit = true
		o := i * 4
		bright.Pix[o] = uint8(clamp01(ex.X/bloomRange) * 255)
		bright.Pix[o+1] = uint8(clamp01(ex.Y/bloomRange) * 255)
		bright.Pix[o+2] = uint8(clamp01(ex.Z/bloomRange) * 255)
		bright.Pix[o+3] = 255
	}
	if !lit {
		return
	}

	glow := blur.Box(bright, radius)
	for i := range t.HDR {
		o := i * 4
		add := math3d.V3(float64(glow.Pix[o]), float64(glow.Pix[o+1]), float64(glow.Pix[o+2]))
		t.HDR[i] = t.HDR[i].Add(add.Scale(bloomRange * bloomStrength / 255))
	}
}

// Resolve tonemaps the HDR buffer into an 8-bit sRGB image.
func Resolve(t *Target, tm Tonemapper, dst *image.RGBA) {
	for i, c := range t.HDR {
		px := EncodeColor(tm(c))
		o := i * 4
		dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2], dst.Pix[o+3] = px.R, px.G, px.B, 255
	}
}

// ApplyFXAA blends pixels across high-contrast luma edges along the
// dominant edge direction.
func ApplyFXAA(img *image.RGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return
	}
	src := image.NewRGBA(b)
	copy(src.Pix, img.Pix)

	luma := func(x, y int) float64 {
		return Luma(src.RGBAAt(b.Min.X+x, b.Min.Y+y))
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			m := luma(x, y)
			n, s := luma(x, y-1), luma(x, y+1)
			e, wst := luma(x+1, y), luma(x-1, y)
			lo := math.Min(m, math.Min(math.Min(n, s), math.Min(e, wst)))
			hi := math.Max(m, math.Max(math.Max(n, s), math.Max(e, wst)))
			if hi-lo < math.Max(0.0312, 0.125*hi) {
				continue
			}

			c := src.RGBAAt(b.Min.X+x, b.Min.Y+y)
			var a, bb Color
			if math.Abs(n+s-2*m) >= math.Abs(e+wst-2*m) {
				// horizontal edge: blend vertically
				a, bb = src.RGBAAt(b.Min.X+x, b.Min.Y+y-1), src.RGBAAt(b.Min.X+x, b.Min.Y+y+1)
			} else {
				a, bb = src.RGBAAt(b.Min.X+x-1, b.Min.Y+y), src.RGBAAt(b.Min.X+x+1, b.Min.Y+y)
			}
			img.SetRGBA(b.Min.X+x, b.Min.Y+y, lerpColor(c, lerpColor(a, bb, 0.5), 0.5))
		}
	}
}
