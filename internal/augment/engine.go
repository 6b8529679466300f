package augment

import (
	"image"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ImagingEngine decodes, transforms and encodes images with the imaging
// package. The zero value is ready to use.
type ImagingEngine struct {
	// JPEGQuality used when encoding JPEG outputs. Defaults to 95.
	JPEGQuality int
}

// Open decodes the image at path, honouring EXIF orientation.
func (e ImagingEngine) Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", path)
	}
	return img, nil
}

// Apply runs op on img.
func (e ImagingEngine) Apply(img image.Image, op Operation, rng *rand.Rand) (image.Image, error) {
	out := op.Apply(img, rng)
	if out == nil {
		return nil, errors.Errorf("operation %s produced no image", op.Name())
	}
	return out, nil
}

// Encode writes img to w in the given format ("png", "jpg", "jpeg", "gif",
// "tif", "tiff" or "bmp").
func (e ImagingEngine) Encode(w io.Writer, img image.Image, format string) error {
	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return errors.Wrapf(err, "unsupported output format %q", format)
	}
	quality := e.JPEGQuality
	if quality <= 0 {
		quality = 95
	}
	if err := imaging.Encode(w, img, f, imaging.JPEGQuality(quality)); err != nil {
		return errors.Wrapf(err, "failed to encode %s image", strings.ToLower(f.String()))
	}
	return nil
}

// SupportedFormat reports whether format names an output format Encode
// accepts.
func SupportedFormat(format string) bool {
	_, err := imaging.FormatFromExtension(format)
	return err == nil
}
