package augment

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
)

// brightness multiplies the colour channels by factor, clamping to 255.
func brightness(img image.Image, factor float64) image.Image {
	scale := func(v uint8) uint8 {
		return uint8(math.Min(255, math.Round(float64(v)*factor)))
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
	})
}

// blackAndWhite converts to greyscale and maps every pixel above threshold to
// white, the rest to black.
func blackAndWhite(img image.Image, threshold uint8) image.Image {
	return imaging.AdjustFunc(imaging.Grayscale(img), func(c color.NRGBA) color.NRGBA {
		v := uint8(0)
		if c.R > threshold {
			v = 255
		}
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// randomErasing overwrites a random rectangle with uniform noise. Each side
// of the rectangle is between 10% and area of the image side.
func randomErasing(img image.Image, area float64, rng *rand.Rand) image.Image {
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	minW, maxW := int(float64(w)*0.1), int(float64(w)*area)
	minH, maxH := int(float64(h)*0.1), int(float64(h)*area)
	if maxW < 1 || maxH < 1 {
		return out
	}
	minW, minH = max(minW, 1), max(minH, 1)
	rw := minW + rng.IntN(maxW-minW+1)
	rh := minH + rng.IntN(maxH-minH+1)
	x0 := rng.IntN(w - rw + 1)
	y0 := rng.IntN(h - rh + 1)
	for y := y0; y < y0+rh; y++ {
		row := out.Pix[y*out.Stride:]
		for x := x0; x < x0+rw; x++ {
			i := x * 4
			row[i] = uint8(rng.UintN(256))
			row[i+1] = uint8(rng.UintN(256))
			row[i+2] = uint8(rng.UintN(256))
			row[i+3] = 255
		}
	}
	return out
}
