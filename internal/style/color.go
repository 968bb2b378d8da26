package style

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// ParseHex parses "#rrggbb" or "#rgb" into an opaque color.
func ParseHex(hex string) (color.NRGBA, error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return color.NRGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
}

// Hex formats c as "#rrggbb".
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Darken scales each channel by (1 - amount), rounding down.
func Darken(c color.NRGBA, amount float64) color.NRGBA {
	scale := func(v uint8) uint8 {
		return uint8(math.Max(0, math.Floor(float64(v)*(1-amount))))
	}
	return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// DarkenHex is Darken on hex strings. Unparseable input is returned unchanged.
func DarkenHex(hex string, amount float64) string {
	c, err := ParseHex(hex)
	if err != nil {
		return hex
	}
	return Hex(Darken(c, amount))
}
