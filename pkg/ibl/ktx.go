// Package ibl decodes pre-baked KTX1 environment maps and evaluates them
// as image-based lighting: spherical-harmonics irradiance, prefiltered
// reflections and a skybox.
package ibl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/taigrr/glbview/pkg/math3d"
)

// ErrFormat is wrapped by every failure caused by an unrecognized or
// corrupt texture container.
var ErrFormat = errors.New("unrecognized texture format")

var ktxIdentifier = []byte{0xAB, 'K', 'T', 'X', ' ', '1', '1', 0xBB, '\r', '\n', 0x1A, '\n'}

const (
	ktxEndianness = 0x04030201
	headerSize    = 64
)

// OpenGL enums used by KTX1 headers.
const (
	glUnsignedByte = 0x1401
	glHalfFloat    = 0x140B
	glFloat        = 0x1406
	glR11fG11fB10f = 0x8C3B // UNSIGNED_INT_10F_11F_11F_REV
	glRGB          = 0x1907
	glRGBA         = 0x1908
	glSRGB8        = 0x8C41
	glSRGB8Alpha8  = 0x8C43
)

// Header is the fixed part of a KTX1 file.
type Header struct {
	GLType                uint32
	GLTypeSize            uint32
	GLFormat              uint32
	GLInternalFormat      uint32
	GLBaseInternalFormat  uint32
	PixelWidth            uint32
	PixelHeight           uint32
	PixelDepth            uint32
	NumberOfArrayElements uint32
	NumberOfFaces         uint32
	NumberOfMipmapLevels  uint32
	BytesOfKeyValueData   uint32
}

// Level is one mip level: a linear-RGB image per face.
type Level struct {
	Size  int
	Faces [][]math3d.Vec3
}

// Texture is a decoded KTX1 container.
type Texture struct {
	Header   Header
	Metadata map[string]string
	Levels   []Level
}

// DecodeKTX parses an uncompressed KTX1 file of 2D or cubemap images.
func DecodeKTX(data []byte) (*Texture, error) {
	if len(data) < headerSize || !bytes.Equal(data[:12], ktxIdentifier) {
		return nil, fmt.Errorf("%w: missing KTX1 identifier", ErrFormat)
	}

	var order binary.ByteOrder = binary.LittleEndian
	switch binary.LittleEndian.Uint32(data[12:]) {
	case ktxEndianness:
	case 0x01020304:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad endianness marker", ErrFormat)
	}

	var h Header
	if err := binary.Read(bytes.NewReader(data[16:headerSize]), order, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	if h.GLType == 0 {
		return nil, fmt.Errorf("%w: compressed internal format 0x%x", ErrFormat, h.GLInternalFormat)
	}
	if h.PixelDepth > 1 || h.NumberOfArrayElements > 1 {
		return nil, fmt.Errorf("%w: 3D and array textures are not supported", ErrFormat)
	}
	if h.NumberOfFaces != 1 && h.NumberOfFaces != 6 {
		return nil, fmt.Errorf("%w: %d faces", ErrFormat, h.NumberOfFaces)
	}
	if h.PixelWidth == 0 || h.PixelWidth > 1<<14 || h.PixelHeight > 1<<14 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrFormat, h.PixelWidth, h.PixelHeight)
	}
	pf, err := pixelFormatOf(&h)
	if err != nil {
		return nil, err
	}

	r := &reader{data: data, off: headerSize, order: order}
	kv, err := r.bytes(int(h.BytesOfKeyValueData))
	if err != nil {
		return nil, fmt.Errorf("%w: key/value data: %v", ErrFormat, err)
	}
	meta, err := parseKeyValues(kv, order)
	if err != nil {
		return nil, err
	}

	levels := max(1, int(h.NumberOfMipmapLevels))
	tex := &Texture{Header: h, Metadata: meta}
	w, ht := int(h.PixelWidth), max(1, int(h.PixelHeight))
	for lvl := range levels {
		lw, lh := max(1, w>>lvl), max(1, ht>>lvl)
		imageSize, err := r.uint32()
		if err != nil {
			return nil, fmt.Errorf("%w: level %d: %v", ErrFormat, lvl, err)
		}
		faceBytes := pf.rowStride(lw) * lh
		if int(imageSize) < faceBytes {
			return nil, fmt.Errorf("%w: level %d: image size %d, want %d", ErrFormat, lvl, imageSize, faceBytes)
		}

		level := Level{Size: lw}
		for range h.NumberOfFaces {
			raw, err := r.bytes(int(imageSize))
			if err != nil {
				return nil, fmt.Errorf("%w: level %d: %v", ErrFormat, lvl, err)
			}
			level.Faces = append(level.Faces, pf.decode(raw, lw, lh, order))
			r.align4()
		}
		tex.Levels = append(tex.Levels, level)
		r.align4()
	}
	return tex, nil
}

// IsCubemap reports whether the texture has six faces.
func (t *Texture) IsCubemap() bool {
	return t.Header.NumberOfFaces == 6
}

// SphericalHarmonics returns the irradiance coefficients baked into the
// "sh" metadata key, if any.
func (t *Texture) SphericalHarmonics() (SH, bool, error) {
	s, ok := t.Metadata["sh"]
	if !ok {
		return SH{}, false, nil
	}
	sh, err := ParseSH(s)
	if err != nil {
		return SH{}, true, err
	}
	return sh, true, nil
}

type reader struct {
	data  []byte
	off   int
	order binary.ByteOrder
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, fmt.Errorf("truncated at offset %d", r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *reader) align4() {
	r.off = (r.off + 3) &^ 3
}

func parseKeyValues(kv []byte, order binary.ByteOrder) (map[string]string, error) {
	meta := make(map[string]string)
	for len(kv) >= 4 {
		n := int(order.Uint32(kv))
		kv = kv[4:]
		if n > len(kv) {
			return nil, fmt.Errorf("%w: key/value entry overruns block", ErrFormat)
		}
		entry := kv[:n]
		kv = kv[min(len(kv), (n+3)&^3):]

		key, value, ok := bytes.Cut(entry, []byte{0})
		if !ok {
			return nil, fmt.Errorf("%w: key/value entry without terminator", ErrFormat)
		}
		meta[string(key)] = strings.TrimRight(string(value), "\x00")
	}
	return meta, nil
}

type pixelFormat struct {
	channels  int // stored channels per pixel
	elemSize  int // bytes per channel, 0 for packed
	pixelSize int
	kind      uint32
	srgb      bool
}

func pixelFormatOf(h *Header) (pixelFormat, error) {
	pf := pixelFormat{kind: h.GLType}
	switch h.GLFormat {
	case glRGB:
		pf.channels = 3
	case glRGBA:
		pf.channels = 4
	default:
		return pf, fmt.Errorf("%w: pixel format 0x%x", ErrFormat, h.GLFormat)
	}

	switch h.GLType {
	case glUnsignedByte:
		pf.elemSize = 1
		pf.srgb = h.GLInternalFormat == glSRGB8 || h.GLInternalFormat == glSRGB8Alpha8
	case glHalfFloat:
		pf.elemSize = 2
	case glFloat:
		pf.elemSize = 4
	case glR11fG11fB10f:
		if pf.channels != 3 {
			return pf, fmt.Errorf("%w: packed float with %d channels", ErrFormat, pf.channels)
		}
		pf.pixelSize = 4
		return pf, nil
	default:
		return pf, fmt.Errorf("%w: pixel type 0x%x", ErrFormat, h.GLType)
	}
	pf.pixelSize = pf.channels * pf.elemSize
	return pf, nil
}

// rowStride applies KTX1's four byte row alignment.
func (pf pixelFormat) rowStride(width int) int {
	return (width*pf.pixelSize + 3) &^ 3
}

func (pf pixelFormat) decode(raw []byte, w, h int, order binary.ByteOrder) []math3d.Vec3 {
	out := make([]math3d.Vec3, w*h)
	stride := pf.rowStride(w)
	for y := range h {
		row := raw[y*stride:]
		for x := range w {
			px := row[x*pf.pixelSize:]
			out[y*w+x] = pf.texel(px, order)
		}
	}
	return out
}

func (pf pixelFormat) texel(px []byte, order binary.ByteOrder) math3d.Vec3 {
	var c [3]float64
	switch pf.kind {
	case glUnsignedByte:
		for i := range c {
			c[i] = float64(px[i]) / 255
			if pf.srgb {
				c[i] = srgbDecode(c[i])
			}
		}
	case glHalfFloat:
		for i := range c {
			c[i] = halfToFloat(order.Uint16(px[i*2:]))
		}
	case glFloat:
		for i := range c {
			c[i] = float64(math.Float32frombits(order.Uint32(px[i*4:])))
		}
	case glR11fG11fB10f:
		v := order.Uint32(px)
		c[0] = unsignedFloat(v&0x7FF, 6)
		c[1] = unsignedFloat((v>>11)&0x7FF, 6)
		c[2] = unsignedFloat((v>>22)&0x3FF, 5)
	}
	for i := range c {
		if math.IsNaN(c[i]) || math.IsInf(c[i], 0) || c[i] < 0 {
			c[i] = 0
		}
	}
	return math3d.V3(c[0], c[1], c[2])
}

func srgbDecode(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// halfToFloat expands an IEEE 754 binary16 value.
func halfToFloat(h uint16) float64 {
	sign := 1.0
	if h&0x8000 != 0 {
		sign = -1
	}
	exp := int(h>>10) & 0x1F
	mant := float64(h & 0x3FF)
	switch exp {
	case 0:
		return sign * mant / 1024 * math.Ldexp(1, -14)
	case 31:
		if mant == 0 {
			return sign * math.Inf(1)
		}
		return math.NaN()
	}
	return sign * (1 + mant/1024) * math.Ldexp(1, exp-15)
}

// unsignedFloat expands the 11- and 10-bit floats of R11F_G11F_B10F: a
// five bit exponent over a mantBits wide mantissa.
func unsignedFloat(v uint32, mantBits uint) float64 {
	exp := int(v >> mantBits)
	scale := float64(uint32(1) << mantBits)
	mant := float64(v & (1<<mantBits - 1))
	switch exp {
	case 0:
		return mant / scale * math.Ldexp(1, -14)
	case 31:
		// inf/nan: saturate to the largest finite value
		return (1 + (scale-1)/scale) * math.Ldexp(1, 15)
	}
	return (1 + mant/scale) * math.Ldexp(1, exp-15)
}
