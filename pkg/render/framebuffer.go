// Package render is the glbview software renderer: it rasterizes shaded,
// pickable primitives into HDR, depth and entity-ID buffers, runs the post
// chain and presents the result on a terminal using half blocks.
package render

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/anthonynsimon/bild/transform"

	"github.com/taigrr/glbview/pkg/math3d"
)

// Framebuffer is the displayable 8-bit image. It wraps an image.RGBA so the
// resampling passes can draw into it directly.
// We use double vertical resolution by using half-block characters (▀).
type Framebuffer struct {
	Width  int // Width in "pixels" (same as terminal columns)
	Height int // Height in "pixels" (2x terminal rows due to half-blocks)
	Img    *image.RGBA
}

// NewFramebuffer creates a new framebuffer with the given dimensions.
// Height should be 2x the desired terminal rows for half-block rendering.
func NewFramebuffer(width, height int) *Framebuffer {
	width, height = max(width, 0), max(height, 0)
	return &Framebuffer{
		Width:  width,
		Height: height,
		Img:    image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Clear fills the framebuffer with a solid color.
func (fb *Framebuffer) Clear(c color.RGBA) {
	pix := fb.Img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
}

// SetPixel sets a pixel at (x, y) to the given color.
// Bounds checking is performed.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Img.SetRGBA(x, y, c)
}

// GetPixel returns the color at (x, y).
// Returns transparent black if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.RGBA{}
	}
	return fb.Img.RGBAAt(x, y)
}

// ToImage returns the backing image.
func (fb *Framebuffer) ToImage() *image.RGBA {
	return fb.Img
}

// Upscaled returns a copy enlarged by an integer factor with hard pixel
// edges. Factors below 2 return a plain copy.
func (fb *Framebuffer) Upscaled(factor int) *image.RGBA {
	factor = max(1, factor)
	return transform.Resize(fb.Img, fb.Width*factor, fb.Height*factor, transform.NearestNeighbor)
}

// SavePNG saves the framebuffer as a PNG file, enlarged by scale.
func (fb *Framebuffer) SavePNG(path string, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, fb.Upscaled(scale)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Target holds the per-sample buffers a frame is rasterized into.
type Target struct {
	Width, Height int

	HDR   []math3d.Vec3 // linear radiance
	Depth []float64     // NDC depth, +Inf where nothing was drawn
	View  []float64     // view-space distance along the camera axis
	IDs   []uint32      // entity under each sample, 0 for background
}

// NewTarget allocates a cleared target.
func NewTarget(width, height int) *Target {
	width, height = max(width, 0), max(height, 0)
	n := width * height
	t := &Target{
		Width:  width,
		Height: height,
		HDR:    make([]math3d.Vec3, n),
		Depth:  make([]float64, n),
		View:   make([]float64, n),
		IDs:    make([]uint32, n),
	}
	t.Clear()
	return t
}

// Clear resets every sample to background.
func (t *Target) Clear() {
	n := len(t.Depth)
	if n == 0 {
		return
	}
	// Use copy-doubling for faster clearing
	t.Depth[0] = math.Inf(1)
	for i := 1; i < n; i *= 2 {
		copy(t.Depth[i:], t.Depth[:i])
	}
	clear(t.HDR)
	clear(t.View)
	clear(t.IDs)
}

// Covered reports whether geometry was drawn at sample i.
func (t *Target) Covered(i int) bool {
	return !math.IsInf(t.Depth[i], 1)
}
