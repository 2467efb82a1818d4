package render

import (
	"image/color"
	"math"
	"sync"
	"sync/atomic"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/taigrr/glbview/pkg/math3d"
)

// Color is an alias for color.RGBA for convenience.
type Color = color.RGBA

// Colors for convenience
var (
	ColorBlack = color.RGBA{0, 0, 0, 255}
	ColorWhite = color.RGBA{255, 255, 255, 255}
	ColorRed   = color.RGBA{255, 0, 0, 255}
	ColorGray  = color.RGBA{128, 128, 128, 255}
)

// RGB creates a color from RGB values.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}

const encodeSteps = 4096

var (
	tablesOnce  sync.Once
	tablesReady atomic.Bool

	decodeTable [256]float64           // sRGB byte -> linear
	encodeTable [encodeSteps + 1]uint8 // linear [0,1] -> sRGB byte
)

// InitColorTables builds the sRGB transfer tables. It is safe to call more
// than once; every call after the first is a no-op.
func InitColorTables() {
	tablesOnce.Do(func() {
		for i := range decodeTable {
			r, _, _ := colorful.Color{R: float64(i) / 255}.LinearRgb()
			decodeTable[i] = r
		}
		for i := range encodeTable {
			c := colorful.LinearRgb(float64(i)/encodeSteps, 0, 0)
			encodeTable[i] = uint8(math.Round(math.Max(0, math.Min(1, c.R)) * 255))
		}
		tablesReady.Store(true)
	})
}

// ColorTablesReady reports whether InitColorTables has run.
func ColorTablesReady() bool {
	return tablesReady.Load()
}

// SRGBToLinear decodes one sRGB channel byte.
func SRGBToLinear(v uint8) float64 {
	return decodeTable[v]
}

// LinearToSRGB encodes a linear channel value, clamping to [0, 1].
func LinearToSRGB(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return encodeTable[int(v*encodeSteps+0.5)]
}

// DecodeColor converts an sRGB color to linear RGB.
func DecodeColor(c Color) math3d.Vec3 {
	return math3d.V3(SRGBToLinear(c.R), SRGBToLinear(c.G), SRGBToLinear(c.B))
}

// EncodeColor converts linear RGB in [0, 1] to an opaque sRGB color.
func EncodeColor(v math3d.Vec3) Color {
	return Color{R: LinearToSRGB(v.X), G: LinearToSRGB(v.Y), B: LinearToSRGB(v.Z), A: 255}
}

// Tonemapper maps HDR radiance into [0, 1].
type Tonemapper func(math3d.Vec3) math3d.Vec3

// TonemapClamp saturates every channel at 1.
func TonemapClamp(c math3d.Vec3) math3d.Vec3 {
	return math3d.V3(clamp01(c.X), clamp01(c.Y), clamp01(c.Z))
}

// TonemapACES is Narkowicz's fit of the ACES filmic curve.
func TonemapACES(c math3d.Vec3) math3d.Vec3 {
	f := func(x float64) float64 {
		const a, b, cc, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
		return clamp01((x * (a*x + b)) / (x*(cc*x+d) + e))
	}
	return math3d.V3(f(c.X), f(c.Y), f(c.Z))
}

// Luma returns the perceptual brightness of an sRGB color in [0, 1].
func Luma(c Color) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func lerpColor(a, b Color, t float64) Color {
	return Color{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
		A: uint8(float64(a.A) + (float64(b.A)-float64(a.A))*t),
	}
}
