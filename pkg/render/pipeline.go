package render

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/taigrr/glbview/pkg/math3d"
	"golang.org/x/image/draw"
)

// Tier is a quality level shared by the HDR buffer and dynamic resolution.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierUltra
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierUltra:
		return "ultra"
	}
	return "unknown"
}

// ParseTier reads a tier name as written by String.
func ParseTier(s string) (Tier, error) {
	for t := TierLow; t <= TierUltra; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return TierLow, fmt.Errorf("unknown quality tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Options toggles the stages of the frame pipeline.
type Options struct {
	DynamicResolution bool
	DynamicTier       Tier
	MSAA              bool
	FXAA              bool
	AmbientOcclusion  bool
	Bloom             bool
	HDR               Tier
}

// DynamicResolution scales the render size to hold a frame budget.
type DynamicResolution struct {
	MinScale float64
	Scale    float64
	Budget   time.Duration
}

// MinScaleFor returns the lowest render scale a tier may drop to.
func MinScaleFor(t Tier) float64 {
	switch t {
	case TierLow:
		return 0.5
	case TierMedium:
		return 0.6
	case TierHigh:
		return 0.75
	default:
		return 0.9
	}
}

// Update adapts the scale from the last frame's cost.
func (d *DynamicResolution) Update(frame time.Duration) {
	if d.Budget <= 0 || frame <= 0 {
		return
	}
	switch ratio := float64(frame) / float64(d.Budget); {
	case ratio > 1.1:
		d.Scale *= 0.9
	case ratio < 0.7:
		d.Scale *= 1.05
	}
	d.Scale = math.Max(d.MinScale, math.Min(1, d.Scale))
}

// Frame is an immutable snapshot of one rendered frame's pick buffers.
type Frame struct {
	ViewWidth, ViewHeight int // surface size the frame was presented at
	Width, Height         int // sample grid
	IDs                   []uint32
	Depth                 []float64
	InvViewProj           math3d.Mat4
}

// At returns the entity, NDC depth and world position under surface pixel
// (x, y), with a top-left origin. Outside the frame it reports id 0.
func (f *Frame) At(x, y int) (id uint32, depth float64, world math3d.Vec3) {
	if f == nil || f.ViewWidth <= 0 || f.ViewHeight <= 0 || x < 0 || y < 0 || x >= f.ViewWidth || y >= f.ViewHeight {
		return 0, 0, math3d.Vec3{}
	}
	sx := min(f.Width-1, int((float64(x)+0.5)*float64(f.Width)/float64(f.ViewWidth)))
	sy := min(f.Height-1, int((float64(y)+0.5)*float64(f.Height)/float64(f.ViewHeight)))
	i := sy*f.Width + sx
	if f.IDs[i] == 0 {
		return 0, 0, math3d.Vec3{}
	}
	depth = f.Depth[i]
	ndcX := (float64(sx)+0.5)/float64(f.Width)*2 - 1
	ndcY := 1 - (float64(sy)+0.5)/float64(f.Height)*2
	world = f.InvViewProj.MulVec3(math3d.V3(ndcX, ndcY, depth))
	return f.IDs[i], depth, world
}

// Renderer runs the frame pipeline: rasterize, skybox, SSAO, bloom,
// tonemap, MSAA resolve, FXAA and the dynamic-resolution upscale.
type Renderer struct {
	Camera *Camera
	Raster *Rasterizer
	Output *Framebuffer

	Clear Color

	opts    Options
	dyn     DynamicResolution
	target  *Target
	ldr     *image.RGBA
	resolve *image.RGBA
}

// NewRenderer creates a renderer presenting width x height pixels.
func NewRenderer(width, height int) *Renderer {
	cam := NewCamera()
	r := &Renderer{
		Camera: cam,
		Raster: NewRasterizer(cam, NewTarget(0, 0)),
		Output: NewFramebuffer(width, height),
		Clear:  RGB(20, 20, 30),
		dyn:    DynamicResolution{MinScale: 1, Scale: 1},
	}
	r.SetViewport(width, height)
	return r
}

// SetViewport resizes the presented image.
func (r *Renderer) SetViewport(width, height int) {
	if width == r.Output.Width && height == r.Output.Height {
		return
	}
	r.Output = NewFramebuffer(width, height)
	if height > 0 {
		// half blocks keep pixels roughly square
		r.Camera.SetAspectRatio(float64(width) / float64(height))
	}
}

// Viewport returns the presented size.
func (r *Renderer) Viewport() (width, height int) {
	return r.Output.Width, r.Output.Height
}

// Configure applies quality options from the next frame on.
func (r *Renderer) Configure(opts Options) {
	r.opts = opts
	if opts.DynamicResolution {
		r.dyn.MinScale = MinScaleFor(opts.DynamicTier)
	} else {
		r.dyn.MinScale, r.dyn.Scale = 1, 1
	}
	r.dyn.Scale = math.Max(r.dyn.MinScale, math.Min(1, r.dyn.Scale))
}

// Options returns the active quality options.
func (r *Renderer) Options() Options {
	return r.opts
}

// SetFrameBudget sets the target frame time for dynamic resolution.
func (r *Renderer) SetFrameBudget(d time.Duration) {
	r.dyn.Budget = d
}

// Scale returns the current dynamic-resolution scale.
func (r *Renderer) Scale() float64 {
	return r.dyn.Scale
}

func (r *Renderer) sampleSize() (int, int) {
	w, h := r.Output.Width, r.Output.Height
	if w == 0 || h == 0 {
		return 0, 0
	}
	w = max(1, int(math.Round(float64(w)*r.dyn.Scale)))
	h = max(1, int(math.Round(float64(h)*r.dyn.Scale)))
	if r.opts.MSAA {
		w, h = w*2, h*2
	}
	return w, h
}

// Begin prepares the sample buffers for a new frame.
func (r *Renderer) Begin() {
	w, h := r.sampleSize()
	if r.target == nil || r.target.Width != w || r.target.Height != h {
		r.target = NewTarget(w, h)
		r.ldr = image.NewRGBA(image.Rect(0, 0, w, h))
		r.Raster.SetTarget(r.target)
	}
	r.Raster.Begin()
}

// Draw rasterizes one primitive.
func (r *Renderer) Draw(mesh MeshRenderer, transform math3d.Mat4, surf *Surface, id uint32) bool {
	return r.Raster.DrawMesh(mesh, transform, surf, id)
}

// End runs post processing, presents into Output and returns the pick
// snapshot. cost is the time spent on this frame so far and feeds the
// dynamic-resolution controller.
func (r *Renderer) End(cost time.Duration) *Frame {
	t := r.target
	if t == nil || t.Width == 0 {
		return nil
	}

	r.fillBackground()
	if r.opts.AmbientOcclusion {
		radius := 2.0
		if r.opts.MSAA {
			radius *= 2
		}
		ApplySSAO(t, radius)
	}
	if r.opts.Bloom {
		ApplyBloom(t, math.Max(1, float64(t.Width)/60))
	}

	tm := TonemapACES
	if r.opts.HDR == TierLow {
		tm = TonemapClamp
	}
	Resolve(t, tm, r.ldr)

	img := r.ldr
	if r.opts.MSAA {
		rw, rh := t.Width/2, t.Height/2
		if r.resolve == nil || r.resolve.Bounds().Dx() != rw || r.resolve.Bounds().Dy() != rh {
			r.resolve = image.NewRGBA(image.Rect(0, 0, rw, rh))
		}
		draw.ApproxBiLinear.Scale(r.resolve, r.resolve.Bounds(), r.ldr, r.ldr.Bounds(), draw.Src, nil)
		img = r.resolve
	}
	if r.opts.FXAA {
		ApplyFXAA(img)
	}

	if img.Bounds().Size() == r.Output.Img.Bounds().Size() {
		copy(r.Output.Img.Pix, img.Pix)
	} else {
		draw.NearestNeighbor.Scale(r.Output.Img, r.Output.Img.Bounds(), img, img.Bounds(), draw.Src, nil)
	}

	if r.opts.DynamicResolution {
		r.dyn.Update(cost)
	}

	return &Frame{
		ViewWidth:   r.Output.Width,
		ViewHeight:  r.Output.Height,
		Width:       t.Width,
		Height:      t.Height,
		IDs:         append([]uint32(nil), t.IDs...),
		Depth:       append([]float64(nil), t.Depth...),
		InvViewProj: r.Camera.InverseViewProjection(),
	}
}

func (r *Renderer) fillBackground() {
	t := r.target
	clearLinear := DecodeColor(r.Clear)
	env := r.Raster.Lighting.Env
	scale := r.Raster.Lighting.Intensity
	for y := range t.Height {
		for x := range t.Width {
			i := y*t.Width + x
			if t.Covered(i) {
				continue
			}
			t.HDR[i] = clearLinear
			if env == nil {
				continue
			}
			dir := r.Camera.Ray(float64(x)+0.5, float64(y)+0.5, t.Width, t.Height)
			if c, ok := env.Background(dir); ok {
				t.HDR[i] = c.Scale(scale)
			}
		}
	}
}
