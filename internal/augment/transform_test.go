package augment

import (
	"bytes"
	"image"
	"image/color"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient returns a w x h opaque image whose pixels differ along both axes.
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / max(1, w-1)), G: uint8(y * 255 / max(1, h-1)), B: 100, A: 255})
		}
	}
	return img
}

func apply(t *testing.T, spec Spec, img image.Image, seed uint64) image.Image {
	t.Helper()
	op := must.M1(Build(spec))
	return op.Apply(img, rand.New(rand.NewPCG(seed, 0)))
}

func TestTransformsKeepSize(t *testing.T) {
	img := gradient(40, 30)
	specs := []Spec{
		{Type: "zoom", Probability: 1, Params: Params{"min_factor": 0.5, "max_factor": 0.7}},
		{Type: "zoom", Probability: 1, Params: Params{"min_factor": 1.2, "max_factor": 1.5}},
		{Type: "random_brightness", Probability: 1, Params: Params{"min_factor": 0.3, "max_factor": 1.2}},
		{Type: "random_distortion", Probability: 1, Params: Params{"grid_width": 4, "grid_height": 4, "magnitude": 50}},
		{Type: "gaussian_distortion", Probability: 1, Params: Params{"grid_width": 2, "grid_height": 10, "magnitude": 10, "corner": "ur", "method": "in", "sdx": 0.65, "sdy": 0.05}},
		{Type: "shear", Probability: 1, Params: Params{"max_shear_left": 25, "max_shear_right": 25}},
		{Type: "rotate", Probability: 1, Params: Params{"max_left_rotation": 25, "max_right_rotation": 25}},
		{Type: "random_erasing", Probability: 1, Params: Params{"rectangle_area": 0.6}},
		{Type: "black_and_white", Probability: 1, Params: Params{"threshold": 150}},
		{Type: "rotate180", Probability: 1},
	}
	for _, spec := range specs {
		for seed := range uint64(5) {
			out := apply(t, spec, img, seed)
			assert.Equal(t, img.Bounds().Size(), out.Bounds().Size(), "%s seed %d", spec.Type, seed)
		}
	}
}

func TestTransformsChangeSize(t *testing.T) {
	img := gradient(40, 30)
	out := apply(t, Spec{Type: "rotate90", Probability: 1}, img, 0)
	assert.Equal(t, image.Pt(30, 40), out.Bounds().Size())

	out = apply(t, Spec{Type: "crop_centre", Probability: 1, Params: Params{"percentage_area": 0.5}}, img, 0)
	assert.Equal(t, image.Pt(20, 15), out.Bounds().Size())

	out = apply(t, Spec{Type: "resize", Probability: 1, Params: Params{"width": 8, "height": 6}}, img, 0)
	assert.Equal(t, image.Pt(8, 6), out.Bounds().Size())

	out = apply(t, Spec{Type: "scale", Probability: 1, Params: Params{"scale_factor": 2.0}}, img, 0)
	assert.Equal(t, image.Pt(80, 60), out.Bounds().Size())

	out = apply(t, Spec{Type: "crop_random", Probability: 1, Params: Params{"percentage_area": 0.5}}, img, 3)
	assert.Equal(t, image.Pt(20, 15), out.Bounds().Size())
}

func TestFlipTopBottom(t *testing.T) {
	img := gradient(4, 4)
	out := imaging.Clone(apply(t, Spec{Type: "flip_top_bottom", Probability: 1}, img, 0))
	assert.Equal(t, img.NRGBAAt(1, 0), out.NRGBAAt(1, 3))
	assert.Equal(t, img.NRGBAAt(2, 3), out.NRGBAAt(2, 0))
}

func TestBrightnessScalesChannels(t *testing.T) {
	img := imaging.New(2, 2, color.NRGBA{R: 100, G: 200, B: 50, A: 255})
	out := imaging.Clone(brightness(img, 0.5))
	assert.Equal(t, color.NRGBA{R: 50, G: 100, B: 25, A: 255}, out.NRGBAAt(0, 0))
	out = imaging.Clone(brightness(img, 2))
	assert.Equal(t, color.NRGBA{R: 200, G: 255, B: 100, A: 255}, out.NRGBAAt(1, 1))
}

func TestBlackAndWhiteIsBinary(t *testing.T) {
	out := imaging.Clone(blackAndWhite(gradient(16, 16), 128))
	for i := 0; i < len(out.Pix); i += 4 {
		v := out.Pix[i]
		require.True(t, v == 0 || v == 255, "pixel value %d", v)
		require.Equal(t, v, out.Pix[i+1])
		require.Equal(t, v, out.Pix[i+2])
	}
}

func TestDistortionWithZeroMagnitudeIsIdentity(t *testing.T) {
	img := gradient(20, 12)
	out := randomDistortion(img, 4, 3, 0, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, img.Pix, imaging.Clone(out).Pix)
}

func TestDistortionMovesPixels(t *testing.T) {
	img := gradient(32, 32)
	out := randomDistortion(img, 4, 4, 6, rand.New(rand.NewPCG(7, 7)))
	assert.NotEqual(t, img.Pix, imaging.Clone(out).Pix)
}

func TestDistortionOnTinyImage(t *testing.T) {
	img := gradient(3, 2)
	out := randomDistortion(img, 8, 8, 5, rand.New(rand.NewPCG(1, 1)))
	assert.Equal(t, image.Pt(3, 2), out.Bounds().Size())
}

func TestGaussianFieldShape(t *testing.T) {
	f := gaussianField{mex: 0.5, mey: 0.5, sdx: 0.05, sdy: 0.05}
	f.init("bell", "in", 10)
	assert.InDelta(t, 10, f.sigma(0.5, 0.5), 0.1)
	assert.InDelta(t, 0.1, f.sigma(0, 0), 1e-9)

	f.init("bell", "out", 10)
	assert.InDelta(t, 0.1, f.sigma(0.5, 0.5), 1e-9)
	assert.Greater(t, f.sigma(0, 0), 9.0)
}

func TestLargestRotatedRect(t *testing.T) {
	w, h := largestRotatedRect(40, 30, 0)
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)

	w, h = largestRotatedRect(40, 30, 20)
	assert.Less(t, w, 40)
	assert.Less(t, h, 30)
	assert.Greater(t, w, 0)
	assert.Greater(t, h, 0)
}

func TestShearZeroAngleIsCopy(t *testing.T) {
	img := gradient(10, 10)
	assert.Equal(t, img.Pix, imaging.Clone(shear(img, 0, true)).Pix)
}

func TestImagingEngineRoundTrip(t *testing.T) {
	var engine ImagingEngine
	img := gradient(12, 9)

	var buf bytes.Buffer
	require.NoError(t, engine.Encode(&buf, img, "png"))
	path := filepath.Join(t.TempDir(), "img.png")
	must.M(imaging.Save(img, path))

	decoded, err := engine.Open(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Size(), decoded.Bounds().Size())

	op := must.M1(Build(Spec{Type: "flip_left_right", Probability: 1}))
	out, err := engine.Apply(decoded, op, rand.New(rand.NewPCG(0, 0)))
	require.NoError(t, err)
	assert.Equal(t, img.NRGBAAt(0, 0), imaging.Clone(out).NRGBAAt(11, 0))

	assert.Error(t, engine.Encode(&buf, img, "webp"))
	assert.True(t, SupportedFormat("jpeg"))
	assert.False(t, SupportedFormat("webp"))

	_, err = engine.Open(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
