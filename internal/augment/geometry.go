package augment

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// zoom rescales img by factor around its centre and returns an image of the
// original size. Factors below 1 leave a black border.
func zoom(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	zw, zh := atLeast1(math.Round(float64(w)*factor)), atLeast1(math.Round(float64(h)*factor))
	zoomed := imaging.Resize(img, zw, zh, imaging.CatmullRom)
	if zw >= w && zh >= h {
		return imaging.CropCenter(zoomed, w, h)
	}
	return imaging.PasteCenter(imaging.New(w, h, black), zoomed)
}

// shear applies a shear of angle degrees, horizontally or vertically, then
// crops away the wedge it exposed and resizes back to the original size.
func shear(img image.Image, angle float64, horizontal bool) image.Image {
	if angle == 0 {
		return imaging.Clone(img)
	}
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	phi := math.Tan(angle * math.Pi / 180)

	side := h
	if !horizontal {
		side = w
	}
	shift := int(math.Ceil(math.Abs(phi) * float64(side)))
	offset := 0.0
	if phi > 0 {
		offset = float64(shift)
	}

	var dst *image.NRGBA
	var s2d f64.Aff3
	var keep image.Rectangle
	if horizontal {
		dst = image.NewNRGBA(image.Rect(0, 0, w+shift, h))
		s2d = f64.Aff3{1, -phi, offset, 0, 1, 0}
		keep = image.Rect(shift, 0, w, h)
	} else {
		dst = image.NewNRGBA(image.Rect(0, 0, w, h+shift))
		s2d = f64.Aff3{1, 0, 0, -phi, 1, offset}
		keep = image.Rect(0, shift, w, h)
	}
	draw.CatmullRom.Transform(dst, s2d, src, src.Bounds(), draw.Src, nil)

	var sheared image.Image = dst
	if !keep.Empty() {
		sheared = imaging.Crop(dst, keep)
	}
	return imaging.Resize(sheared, w, h, imaging.CatmullRom)
}

// rotateCropped rotates img by angle degrees (counter-clockwise), crops the
// largest axis-aligned rectangle free of background, and resizes back to
// the original size.
func rotateCropped(img image.Image, angle float64) image.Image {
	if angle == 0 {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rotated := imaging.Rotate(img, angle, black)
	cw, ch := largestRotatedRect(w, h, angle)
	return imaging.Resize(imaging.CropCenter(rotated, cw, ch), w, h, imaging.CatmullRom)
}

// largestRotatedRect returns the size of the largest axis-aligned rectangle
// that fits inside a w x h rectangle rotated by angle degrees.
func largestRotatedRect(w, h int, angle float64) (int, int) {
	a := math.Abs(angle) * math.Pi / 180
	sinA, cosA := math.Abs(math.Sin(a)), math.Abs(math.Cos(a))
	fw, fh := float64(w), float64(h)
	widthIsLonger := fw >= fh
	long, short := fw, fh
	if !widthIsLonger {
		long, short = fh, fw
	}

	var wr, hr float64
	if short <= 2*sinA*cosA*long || math.Abs(sinA-cosA) < 1e-10 {
		x := 0.5 * short
		if widthIsLonger {
			wr, hr = x/sinA, x/cosA
		} else {
			wr, hr = x/cosA, x/sinA
		}
	} else {
		cos2a := cosA*cosA - sinA*sinA
		wr = (fw*cosA - fh*sinA) / cos2a
		hr = (fh*cosA - fw*sinA) / cos2a
	}
	return min(atLeast1(wr), w), min(atLeast1(hr), h)
}

// cropRandom crops a region covering area of each side at a random position.
func cropRandom(img image.Image, area float64, rng *rand.Rand) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw, ch := atLeast1(float64(w)*area), atLeast1(float64(h)*area)
	x := b.Min.X + rng.IntN(w-cw+1)
	y := b.Min.Y + rng.IntN(h-ch+1)
	return imaging.Crop(img, image.Rect(x, y, x+cw, y+ch))
}
