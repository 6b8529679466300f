package augment

import (
	"image"
	"image/color"
	"math/rand/v2"
	"sort"

	"github.com/disintegration/imaging"
)

// Kind describes a registered operation type.
type Kind struct {
	Name        string
	Params      []string
	Description string

	build func(r *paramReader) Transform
}

var registry = map[string]Kind{}

func register(k Kind) {
	registry[k.Name] = k
}

// Kinds returns every registered operation type sorted by name.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for _, k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Name < kinds[j].Name })
	return kinds
}

// Lookup returns the registered kind with the given name.
func Lookup(name string) (Kind, bool) {
	k, ok := registry[name]
	return k, ok
}

func init() {
	register(Kind{
		Name:        "zoom",
		Params:      []string{"min_factor", "max_factor"},
		Description: "Scale by a random factor, keeping the original size (crop or pad).",
		build: func(r *paramReader) Transform {
			lo, hi := r.Range("min_factor", "max_factor")
			return func(img image.Image, rng *rand.Rand) image.Image {
				return zoom(img, uniform(rng, lo, hi))
			}
		},
	})
	register(Kind{
		Name:        "flip_top_bottom",
		Description: "Mirror vertically.",
		build: func(*paramReader) Transform {
			return func(img image.Image, _ *rand.Rand) image.Image { return imaging.FlipV(img) }
		},
	})
	register(Kind{
		Name:        "flip_left_right",
		Description: "Mirror horizontally.",
		build: func(*paramReader) Transform {
			return func(img image.Image, _ *rand.Rand) image.Image { return imaging.FlipH(img) }
		},
	})
	register(Kind{
		Name:        "flip_random",
		Description: "Mirror horizontally or vertically, chosen at random.",
		build: func(*paramReader) Transform {
			return func(img image.Image, rng *rand.Rand) image.Image {
				if rng.IntN(2) == 0 {
					return imaging.FlipH(img)
				}
				return imaging.FlipV(img)
			}
		},
	})
	register(Kind{
		Name:        "random_brightness",
		Params:      []string{"min_factor", "max_factor"},
		Description: "Multiply pixel intensities by a random factor.",
		build: func(r *paramReader) Transform {
			lo, hi := r.Range("min_factor", "max_factor")
			return func(img image.Image, rng *rand.Rand) image.Image {
				return brightness(img, uniform(rng, lo, hi))
			}
		},
	})
	register(Kind{
		Name:        "random_contrast",
		Params:      []string{"min_factor", "max_factor"},
		Description: "Scale contrast by a random factor (1 keeps the image).",
		build: func(r *paramReader) Transform {
			lo, hi := r.Range("min_factor", "max_factor")
			return func(img image.Image, rng *rand.Rand) image.Image {
				return imaging.AdjustContrast(img, percent(uniform(rng, lo, hi)))
			}
		},
	})
	register(Kind{
		Name:        "random_color",
		Params:      []string{"min_factor", "max_factor"},
		Description: "Scale saturation by a random factor (0 is greyscale, 1 keeps the image).",
		build: func(r *paramReader) Transform {
			lo, hi := r.Range("min_factor", "max_factor")
			return func(img image.Image, rng *rand.Rand) image.Image {
				return imaging.AdjustSaturation(img, percent(uniform(rng, lo, hi)))
			}
		},
	})
	register(Kind{
		Name:        "random_distortion",
		Params:      []string{"grid_width", "grid_height", "magnitude"},
		Description: "Elastic distortion: jitter interior grid vertices by up to magnitude pixels.",
		build: func(r *paramReader) Transform {
			gw, gh, mag := r.Int("grid_width"), r.Int("grid_height"), r.Int("magnitude")
			r.Positive("grid_width", float64(gw))
			r.Positive("grid_height", float64(gh))
			r.Within("magnitude", float64(mag), 0, 1<<16)
			return func(img image.Image, rng *rand.Rand) image.Image {
				return randomDistortion(img, gw, gh, mag, rng)
			}
		},
	})
	register(Kind{
		Name: "gaussian_distortion",
		Params: []string{"grid_width", "grid_height", "magnitude", "corner", "method",
			"mex", "mey", "sdx", "sdy"},
		Description: "Distortion whose strength follows a 2D gaussian over the image.",
		build: func(r *paramReader) Transform {
			gw, gh, mag := r.Int("grid_width"), r.Int("grid_height"), r.Int("magnitude")
			r.Positive("grid_width", float64(gw))
			r.Positive("grid_height", float64(gh))
			r.Within("magnitude", float64(mag), 0, 1<<16)
			corner := r.StringOr("corner", "bell")
			r.OneOf("corner", corner, "bell", "ul", "ur", "dl", "dr")
			method := r.StringOr("method", "in")
			r.OneOf("method", method, "in", "out")
			field := gaussianField{
				mex: r.FloatOr("mex", 0.5),
				mey: r.FloatOr("mey", 0.5),
				sdx: r.FloatOr("sdx", 0.05),
				sdy: r.FloatOr("sdy", 0.05),
			}
			r.Positive("sdx", field.sdx)
			r.Positive("sdy", field.sdy)
			field.init(corner, method, float64(mag))
			return func(img image.Image, rng *rand.Rand) image.Image {
				return gaussianDistortion(img, gw, gh, &field, rng)
			}
		},
	})
	register(Kind{
		Name:        "shear",
		Params:      []string{"max_shear_left", "max_shear_right"},
		Description: "Shear along a random axis by up to the given angles (degrees, max 25).",
		build: func(r *paramReader) Transform {
			left, right := r.Int("max_shear_left"), r.Int("max_shear_right")
			r.Within("max_shear_left", float64(left), 0, 25)
			r.Within("max_shear_right", float64(right), 0, 25)
			return func(img image.Image, rng *rand.Rand) image.Image {
				angle := rng.IntN(left+right+1) - left
				return shear(img, float64(angle), rng.IntN(2) == 0)
			}
		},
	})
	register(Kind{
		Name:        "rotate",
		Params:      []string{"max_left_rotation", "max_right_rotation"},
		Description: "Rotate by a random angle, cropping to the largest inner rectangle (degrees, max 25).",
		build: func(r *paramReader) Transform {
			left, right := r.Int("max_left_rotation"), r.Int("max_right_rotation")
			r.Within("max_left_rotation", float64(left), 0, 25)
			r.Within("max_right_rotation", float64(right), 0, 25)
			return func(img image.Image, rng *rand.Rand) image.Image {
				var angle int
				if rng.IntN(2) == 0 {
					angle = rng.IntN(left + 1)
				} else {
					angle = -rng.IntN(right + 1)
				}
				return rotateCropped(img, float64(angle))
			}
		},
	})
	for _, rot := range []struct {
		name string
		fn   func(image.Image) *image.NRGBA
	}{
		{"rotate90", imaging.Rotate90},
		{"rotate180", imaging.Rotate180},
		{"rotate270", imaging.Rotate270},
	} {
		register(Kind{
			Name:        rot.name,
			Description: "Rotate counter-clockwise by a fixed multiple of 90 degrees.",
			build: func(*paramReader) Transform {
				return func(img image.Image, _ *rand.Rand) image.Image { return rot.fn(img) }
			},
		})
	}
	register(Kind{
		Name:        "rotate_random_90",
		Description: "Rotate by 90, 180 or 270 degrees, chosen at random.",
		build: func(*paramReader) Transform {
			rotations := []func(image.Image) *image.NRGBA{imaging.Rotate90, imaging.Rotate180, imaging.Rotate270}
			return func(img image.Image, rng *rand.Rand) image.Image {
				return rotations[rng.IntN(len(rotations))](img)
			}
		},
	})
	register(Kind{
		Name:        "black_and_white",
		Params:      []string{"threshold"},
		Description: "Greyscale then binarise: pixels above threshold become white.",
		build: func(r *paramReader) Transform {
			threshold := r.IntOr("threshold", 128)
			r.Within("threshold", float64(threshold), 0, 255)
			return func(img image.Image, _ *rand.Rand) image.Image {
				return blackAndWhite(img, uint8(threshold))
			}
		},
	})
	register(Kind{
		Name:        "greyscale",
		Description: "Convert to greyscale.",
		build: func(*paramReader) Transform {
			return func(img image.Image, _ *rand.Rand) image.Image { return imaging.Grayscale(img) }
		},
	})
	register(Kind{
		Name:        "invert",
		Description: "Invert colours.",
		build: func(*paramReader) Transform {
			return func(img image.Image, _ *rand.Rand) image.Image { return imaging.Invert(img) }
		},
	})
	register(Kind{
		Name:        "random_erasing",
		Params:      []string{"rectangle_area"},
		Description: "Replace a random rectangle (up to rectangle_area of each side) with noise.",
		build: func(r *paramReader) Transform {
			area := r.Float("rectangle_area")
			if area <= 0.1 || area > 1 {
				r.fail("rectangle_area", "must be in (0.1, 1], got %g", area)
			}
			return func(img image.Image, rng *rand.Rand) image.Image {
				return randomErasing(img, area, rng)
			}
		},
	})
	register(Kind{
		Name:        "crop_random",
		Params:      []string{"percentage_area", "randomise_percentage_area"},
		Description: "Crop a randomly placed region covering percentage_area of each side.",
		build: func(r *paramReader) Transform {
			area := r.Float("percentage_area")
			if area <= 0.1 || area > 1 {
				r.fail("percentage_area", "must be in (0.1, 1], got %g", area)
			}
			randomise := r.BoolOr("randomise_percentage_area", false)
			return func(img image.Image, rng *rand.Rand) image.Image {
				a := area
				if randomise {
					a = uniform(rng, 0.1, area)
				}
				return cropRandom(img, a, rng)
			}
		},
	})
	register(Kind{
		Name:        "crop_centre",
		Params:      []string{"percentage_area"},
		Description: "Crop the central region covering percentage_area of each side.",
		build: func(r *paramReader) Transform {
			area := r.Float("percentage_area")
			if area <= 0.1 || area > 1 {
				r.fail("percentage_area", "must be in (0.1, 1], got %g", area)
			}
			return func(img image.Image, _ *rand.Rand) image.Image {
				b := img.Bounds()
				return imaging.CropCenter(img, atLeast1(float64(b.Dx())*area), atLeast1(float64(b.Dy())*area))
			}
		},
	})
	register(Kind{
		Name:        "resize",
		Params:      []string{"width", "height"},
		Description: "Resize to a fixed width and height.",
		build: func(r *paramReader) Transform {
			w, h := r.Int("width"), r.Int("height")
			r.Positive("width", float64(w))
			r.Positive("height", float64(h))
			return func(img image.Image, _ *rand.Rand) image.Image {
				return imaging.Resize(img, w, h, imaging.CatmullRom)
			}
		},
	})
	register(Kind{
		Name:        "scale",
		Params:      []string{"scale_factor"},
		Description: "Enlarge by scale_factor (must be greater than 1).",
		build: func(r *paramReader) Transform {
			f := r.Float("scale_factor")
			if f <= 1 {
				r.fail("scale_factor", "must be greater than 1, got %g", f)
			}
			return func(img image.Image, _ *rand.Rand) image.Image {
				b := img.Bounds()
				return imaging.Resize(img, atLeast1(float64(b.Dx())*f), atLeast1(float64(b.Dy())*f), imaging.CatmullRom)
			}
		},
	})
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// percent converts a multiplicative enhancement factor into the percentage
// change used by the imaging adjust functions.
func percent(factor float64) float64 {
	return (factor - 1) * 100
}

func atLeast1(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}

var black = color.NRGBA{A: 255}
