package augment

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
)

type point struct{ x, y float64 }

// grid is a gw x gh partition of a w x h image. Every cell is floor(w/gw)
// wide except the last column, which takes the remainder; rows likewise.
type grid struct {
	w, h   int
	gw, gh int
	xs, ys []int // vertex coordinates, len gw+1 and gh+1
}

func newGrid(w, h, gw, gh int) *grid {
	gw, gh = max(1, min(gw, w)), max(1, min(gh, h))
	g := &grid{w: w, h: h, gw: gw, gh: gh, xs: make([]int, gw+1), ys: make([]int, gh+1)}
	for i := range gw {
		g.xs[i] = i * (w / gw)
	}
	g.xs[gw] = w
	for j := range gh {
		g.ys[j] = j * (h / gh)
	}
	g.ys[gh] = h
	return g
}

// vertices returns the undisplaced vertex positions in row-major order.
func (g *grid) vertices() []point {
	v := make([]point, 0, (g.gw+1)*(g.gh+1))
	for j := 0; j <= g.gh; j++ {
		for i := 0; i <= g.gw; i++ {
			v = append(v, point{float64(g.xs[i]), float64(g.ys[j])})
		}
	}
	return v
}

// displaceInterior calls fn for every vertex shared by four cells and moves
// it by the returned offset. Border vertices stay put.
func (g *grid) displaceInterior(v []point, fn func(p point) (dx, dy float64)) {
	for j := 1; j < g.gh; j++ {
		for i := 1; i < g.gw; i++ {
			k := j*(g.gw+1) + i
			dx, dy := fn(v[k])
			v[k].x += dx
			v[k].y += dy
		}
	}
}

// warp renders the destination image: each destination cell samples the
// source quad spanned by its (displaced) vertices, with bilinear mapping
// inside the quad and bilinear pixel interpolation.
func (g *grid) warp(src *image.NRGBA, v []point) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, g.w, g.h))
	col := make([]int, g.w)
	for i := range g.gw {
		for x := g.xs[i]; x < g.xs[i+1]; x++ {
			col[x] = i
		}
	}
	stride := g.gw + 1
	for j := range g.gh {
		y0, y1 := g.ys[j], g.ys[j+1]
		for y := y0; y < y1; y++ {
			fy := (float64(y-y0) + 0.5) / float64(y1-y0)
			row := dst.Pix[y*dst.Stride:]
			for x := 0; x < g.w; x++ {
				i := col[x]
				x0, x1 := g.xs[i], g.xs[i+1]
				fx := (float64(x-x0) + 0.5) / float64(x1-x0)
				p00, p10 := v[j*stride+i], v[j*stride+i+1]
				p01, p11 := v[(j+1)*stride+i], v[(j+1)*stride+i+1]
				sx := (1-fx)*(1-fy)*p00.x + fx*(1-fy)*p10.x + (1-fx)*fy*p01.x + fx*fy*p11.x
				sy := (1-fx)*(1-fy)*p00.y + fx*(1-fy)*p10.y + (1-fx)*fy*p01.y + fx*fy*p11.y
				copy(row[x*4:x*4+4], sample(src, sx-0.5, sy-0.5))
			}
		}
	}
	return dst
}

// sample returns the bilinearly interpolated pixel at (x, y), clamping to the
// image edge.
func sample(src *image.NRGBA, x, y float64) []uint8 {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	x = math.Max(0, math.Min(x, float64(w-1)))
	y = math.Max(0, math.Min(y, float64(h-1)))
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)
	var out [4]uint8
	for c := range 4 {
		a := float64(src.Pix[y0*src.Stride+x0*4+c])
		b := float64(src.Pix[y0*src.Stride+x1*4+c])
		d := float64(src.Pix[y1*src.Stride+x0*4+c])
		e := float64(src.Pix[y1*src.Stride+x1*4+c])
		top := a + (b-a)*fx
		bottom := d + (e-d)*fx
		out[c] = uint8(math.Round(top + (bottom-top)*fy))
	}
	return out[:]
}

// randomDistortion moves every interior vertex of a gw x gh grid by a random
// integer offset in [-magnitude, magnitude] on each axis.
func randomDistortion(img image.Image, gw, gh, magnitude int, rng *rand.Rand) image.Image {
	src := imaging.Clone(img)
	g := newGrid(src.Bounds().Dx(), src.Bounds().Dy(), gw, gh)
	v := g.vertices()
	g.displaceInterior(v, func(point) (float64, float64) {
		dx := rng.IntN(2*magnitude+1) - magnitude
		dy := rng.IntN(2*magnitude+1) - magnitude
		return float64(dx), float64(dy)
	})
	return g.warp(src, v)
}

// gaussianField gives, for a normalised image position, the standard
// deviation of the displacement applied to a grid vertex there. Its shape is
// a 2D gaussian centred at (mex, mey), optionally restricted to one quadrant.
type gaussianField struct {
	mex, mey, sdx, sdy float64

	sign      float64 // +1 for "in", -1 for "out"
	xr, yr    [2]float64
	lo, hi    float64
	magnitude float64
}

var cornerRanges = map[string][4]float64{
	"bell": {0, 1, 0, 1},
	"dr":   {0, 0.5, 0, 0.5},
	"dl":   {0.5, 1, 0, 0.5},
	"ur":   {0, 0.5, 0.5, 1},
	"ul":   {0.5, 1, 0.5, 1},
}

func (f *gaussianField) init(corner, method string, magnitude float64) {
	f.sign = 1
	if method == "out" {
		f.sign = -1
	}
	r := cornerRanges[corner]
	f.xr, f.yr = [2]float64{r[0], r[1]}, [2]float64{r[2], r[3]}
	f.magnitude = magnitude

	// Normalisation bounds over a 50x50 lattice of the unit square.
	const n = 50
	f.lo, f.hi = math.Inf(1), math.Inf(-1)
	for j := range n {
		for i := range n {
			v := f.raw(float64(i)/(n-1), float64(j)/(n-1))
			f.lo, f.hi = math.Min(f.lo, v), math.Max(f.hi, v)
		}
	}
}

func (f *gaussianField) raw(x, y float64) float64 {
	e := math.Exp(-((x-f.mex)*(x-f.mex)/f.sdx + (y-f.mey)*(y-f.mey)/f.sdy))
	return f.sign*e + math.Max(0, -f.sign) - math.Max(0, f.sign)
}

// sigma maps a normalised position to a displacement standard deviation in
// pixels, never below 1% of the magnitude.
func (f *gaussianField) sigma(x, y float64) float64 {
	x = f.xr[0] + x*(f.xr[1]-f.xr[0])
	y = f.yr[0] + y*(f.yr[1]-f.yr[0])
	if f.hi <= f.lo {
		return f.magnitude
	}
	return math.Max((f.raw(x, y)-f.lo)/(f.hi-f.lo), 0.01) * f.magnitude
}

func gaussianDistortion(img image.Image, gw, gh int, f *gaussianField, rng *rand.Rand) image.Image {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	g := newGrid(w, h, gw, gh)
	v := g.vertices()
	g.displaceInterior(v, func(p point) (float64, float64) {
		s := f.sigma(p.x/float64(w), p.y/float64(h))
		return rng.NormFloat64() * s, rng.NormFloat64() * s
	})
	return g.warp(src, v)
}
