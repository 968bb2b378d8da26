package style

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sync"

	"github.com/aquilax/go-perlin"
	"github.com/disintegration/gift"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// IconOptions controls marker icon rasterization.
type IconOptions struct {
	// Size is the circle diameter in pixels, border included.
	Size int
	// Border is the border width in pixels.
	Border int
	// ShadowSigma is the Gaussian blur applied to the drop shadow.
	ShadowSigma float32
	// ShadowAlpha is the shadow opacity (0-1).
	ShadowAlpha float64
	// GrainStrength perturbs the fill brightness with Perlin noise (0 = flat).
	GrainStrength float64
	// Seed for deterministic grain.
	Seed int64
}

// DefaultIconOptions matches the map marker look: a 40px circle with a 2px
// border and a soft shadow offset 2px down.
func DefaultIconOptions() IconOptions {
	return IconOptions{
		Size:          40,
		Border:        2,
		ShadowSigma:   2.5,
		ShadowAlpha:   0.25,
		GrainStrength: 0.06,
		Seed:          1919,
	}
}

// shadowOffset is the downward shadow displacement in pixels.
const shadowOffset = 2

// RenderIcon rasterizes a category marker: a filled circle with a darker
// border, a centered white glyph and a blurred drop shadow. The canvas is
// padded so the shadow is not clipped.
func RenderIcon(fill, border color.NRGBA, glyph string, opts IconOptions) *image.NRGBA {
	pad := int(math.Ceil(float64(opts.ShadowSigma)*2)) + shadowOffset
	w := opts.Size + 2*pad
	dst := image.NewNRGBA(image.Rect(0, 0, w, w))

	cx := float32(w) / 2
	cy := float32(w) / 2
	r := float32(opts.Size) / 2

	// Shadow
	shadowMask := circleMask(w, cx, cy+shadowOffset, r)
	shadowMask = gaussianBlur(shadowMask, opts.ShadowSigma)
	shadow := image.NewUniform(color.NRGBA{A: uint8(255 * opts.ShadowAlpha)})
	draw.DrawMask(dst, dst.Bounds(), shadow, image.Point{}, asAlpha(shadowMask), image.Point{}, draw.Over)

	// Border, then fill on top
	fillCircle(dst, cx, cy, r, border)
	inner := r - float32(opts.Border)
	body := image.NewNRGBA(dst.Bounds())
	fillCircle(body, cx, cy, inner, fill)
	if opts.GrainStrength > 0 {
		applyGrain(body, opts.GrainStrength, opts.Seed)
	}
	draw.Draw(dst, dst.Bounds(), body, image.Point{}, draw.Over)

	if glyph != "" {
		drawGlyph(dst, glyph, int(cx), int(cy), glyphFace(float64(opts.Size)*0.5))
	}
	return dst
}

// EncodePNG encodes an icon.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode icon png: %w", err)
	}
	return buf.Bytes(), nil
}

func circlePath(ras *vector.Rasterizer, cx, cy, r float32) {
	// Four cubic Bézier quadrants
	const k = 0.5522847498
	kr := r * k
	ras.MoveTo(cx+r, cy)
	ras.CubeTo(cx+r, cy+kr, cx+kr, cy+r, cx, cy+r)
	ras.CubeTo(cx-kr, cy+r, cx-r, cy+kr, cx-r, cy)
	ras.CubeTo(cx-r, cy-kr, cx-kr, cy-r, cx, cy-r)
	ras.CubeTo(cx+kr, cy-r, cx+r, cy-kr, cx+r, cy)
	ras.ClosePath()
}

func fillCircle(dst *image.NRGBA, cx, cy, r float32, c color.NRGBA) {
	b := dst.Bounds()
	ras := vector.NewRasterizer(b.Dx(), b.Dy())
	circlePath(ras, cx, cy, r)
	ras.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func circleMask(size int, cx, cy, r float32) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, size, size))
	ras := vector.NewRasterizer(size, size)
	circlePath(ras, cx, cy, r)
	ras.Draw(mask, mask.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{})
	return mask
}

// asAlpha reinterprets gray levels as coverage. image.Gray itself is always opaque.
func asAlpha(g *image.Gray) *image.Alpha {
	return &image.Alpha{Pix: g.Pix, Stride: g.Stride, Rect: g.Rect}
}

// gaussianBlur softens a mask; sigma controls the blur radius.
func gaussianBlur(mask *image.Gray, sigma float32) *image.Gray {
	if sigma <= 0 {
		return mask
	}
	g := gift.New(gift.GaussianBlur(sigma))
	dst := image.NewGray(g.Bounds(mask.Bounds()))
	g.Draw(dst, mask)
	return dst
}

// applyGrain perturbs the brightness of opaque pixels with Perlin noise, a
// paper-like texture that stays identical for a given seed.
func applyGrain(img *image.NRGBA, strength float64, seed int64) {
	// alpha 2 (persistence), beta 2 (lacunarity), 3 octaves
	p := perlin.NewPerlin(2.0, 2.0, 3, seed)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			if img.Pix[i+3] == 0 {
				continue
			}
			// Noise is roughly in [-1, 1]
			factor := 1 + p.Noise2D(float64(x)/6, float64(y)/6)*strength
			for c := 0; c < 3; c++ {
				img.Pix[i+c] = clamp8(float64(img.Pix[i+c]) * factor)
			}
		}
	}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func drawGlyph(dst *image.NRGBA, text string, cx, cy int, face font.Face) {
	width := font.MeasureString(face, text)
	m := face.Metrics()
	// Center the text box on (cx, cy)
	x := fixed.I(cx) - width/2
	y := fixed.I(cy) + (m.Ascent-m.Descent)/2
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	d.DrawString(text)
}

var (
	goboldOnce sync.Once
	goboldFont *opentype.Font
)

// glyphFace returns a new Go Bold face of the given size, falling back to the
// fixed 7x13 bitmap face if the font cannot be parsed. Faces are not safe for
// concurrent use, so each render gets its own.
func glyphFace(size float64) font.Face {
	goboldOnce.Do(func() {
		goboldFont, _ = opentype.Parse(gobold.TTF)
	})
	if goboldFont == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(goboldFont, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
