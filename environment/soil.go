package environment

import (
	"math"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
)

// SoilField is a tileable grid of an absolute soil resource (water or
// nutrient) with depletion, regrowth toward a noise-shaped capacity, and
// optional diffusion. Implements Availability.
type SoilField struct {
	W, H int

	// Current amount per cell
	Res []float64
	// Capacity/target per cell - what Res regrows toward
	Cap []float64

	// World dimensions for coordinate mapping
	worldW, worldH float64

	// Parameters
	RegrowRate float64 // per second toward Cap
	Diffuse    float64 // diffusion strength per second (0 disables)

	// Noise parameters
	Scale      float64
	Octaves    int
	Lacunarity float64
	Gain       float64
	Contrast   float64 // Exponent for contrast shaping (higher = sparser patches)
	Seed       uint32

	// Scratch buffer for diffusion
	tmp []float64
}

// NewSoilField creates a soil field shaped by the soil noise settings and one field's parameters.
func NewSoilField(soil config.SoilConfig, field config.FieldConfig) *SoilField {
	w, h := soil.GridW, soil.GridH
	sf := &SoilField{
		W: w, H: h,
		Res: make([]float64, w*h),
		Cap: make([]float64, w*h),
		tmp: make([]float64, w*h),

		worldW: soil.WorldW,
		worldH: soil.WorldH,

		RegrowRate: field.RegrowRate,
		Diffuse:    field.Diffuse,

		Scale:      soil.Scale,
		Octaves:    soil.Octaves,
		Lacunarity: soil.Lacunarity,
		Gain:       soil.Gain,
		Contrast:   soil.Contrast,
		Seed:       field.Seed,
	}

	sf.rebuildCapacity(field.CellCapacity)
	for i := range sf.Res {
		sf.Res[i] = sf.Cap[i] * field.InitialFill
	}
	return sf
}

// NewUniformSoilField creates a field where every cell holds the same amount.
// Handy for tests and flat scenarios.
func NewUniformSoilField(w, h int, worldW, worldH, perCell float64) *SoilField {
	sf := &SoilField{
		W: w, H: h,
		Res:    make([]float64, w*h),
		Cap:    make([]float64, w*h),
		tmp:    make([]float64, w*h),
		worldW: worldW,
		worldH: worldH,
	}
	for i := range sf.Res {
		sf.Res[i] = perCell
		sf.Cap[i] = perCell
	}
	return sf
}

// Width returns world width.
func (sf *SoilField) Width() float64 { return sf.worldW }

// Height returns world height.
func (sf *SoilField) Height() float64 { return sf.worldH }

// GridSize returns the grid dimensions.
func (sf *SoilField) GridSize() (int, int) { return sf.W, sf.H }

// Total returns the amount held by the whole grid.
func (sf *SoilField) Total() float64 {
	var sum float64
	for _, v := range sf.Res {
		sum += v
	}
	return sum
}

// Sample returns the amount at world coordinates (bilinear interpolation).
func (sf *SoilField) Sample(x, y float64) float64 {
	u := fract(x / sf.worldW)
	v := fract(y / sf.worldH)
	return sf.sampleBilinear(sf.Res, u, v)
}

// AvailableAbsolute returns the amount held by cells under the footprint.
func (sf *SoilField) AvailableAbsolute(fp components.Footprint) float64 {
	var sum float64
	sf.forCells(fp, func(i int) {
		sum += sf.Res[i]
	})
	return sum
}

// Drain removes amount from the cells under the footprint, proportionally to
// what each cell holds. Never drives a cell below zero.
func (sf *SoilField) Drain(amount float64, fp components.Footprint) {
	if amount <= 0 {
		return
	}
	avail := sf.AvailableAbsolute(fp)
	if avail <= 0 {
		return
	}
	frac := amount / avail
	if frac > 1 {
		frac = 1
	}
	sf.forCells(fp, func(i int) {
		sf.Res[i] -= sf.Res[i] * frac
	})
}

// Replenish spreads amount evenly over the cells under the footprint.
// Cells may exceed capacity; regrowth relaxes them back.
func (sf *SoilField) Replenish(amount float64, fp components.Footprint) {
	if amount <= 0 {
		return
	}
	var cells []int
	sf.forCells(fp, func(i int) {
		cells = append(cells, i)
	})
	share := amount / float64(len(cells))
	for _, i := range cells {
		sf.Res[i] += share
	}
}

// Step advances the field by dt seconds: regrowth toward capacity, then diffusion.
func (sf *SoilField) Step(dt float64) {
	if dt <= 0 {
		return
	}
	if sf.RegrowRate > 0 {
		k := math.Min(sf.RegrowRate*dt, 1)
		for i := range sf.Res {
			sf.Res[i] += (sf.Cap[i] - sf.Res[i]) * k
			if sf.Res[i] < 0 {
				sf.Res[i] = 0
			}
		}
	}
	if sf.Diffuse > 0 {
		sf.diffuse(dt)
	}
}

// forCells visits every cell whose center lies inside the footprint.
// The cell under the footprint center is always visited.
func (sf *SoilField) forCells(fp components.Footprint, visit func(i int)) {
	cellW := sf.worldW / float64(sf.W)
	cellH := sf.worldH / float64(sf.H)

	cx := int(math.Floor(fp.X / cellW))
	cy := int(math.Floor(fp.Y / cellH))
	rx := int(math.Ceil(fp.Radius/cellW)) + 1
	ry := int(math.Ceil(fp.Radius/cellH)) + 1

	seen := make(map[int]struct{})
	for oy := -ry; oy <= ry; oy++ {
		for ox := -rx; ox <= rx; ox++ {
			gx, gy := cx+ox, cy+oy
			centerX := (float64(gx) + 0.5) * cellW
			centerY := (float64(gy) + 0.5) * cellH
			if !(ox == 0 && oy == 0) && !fp.Contains(centerX, centerY) {
				continue
			}
			i := modInt(gy, sf.H)*sf.W + modInt(gx, sf.W)
			if _, dup := seen[i]; dup {
				continue
			}
			seen[i] = struct{}{}
			visit(i)
		}
	}
}

// rebuildCapacity fills the capacity grid from FBM noise scaled to cellCapacity.
func (sf *SoilField) rebuildCapacity(cellCapacity float64) {
	for y := 0; y < sf.H; y++ {
		v := (float64(y) + 0.5) / float64(sf.H)
		for x := 0; x < sf.W; x++ {
			u := (float64(x) + 0.5) / float64(sf.W)
			sf.Cap[y*sf.W+x] = sf.fbm(u, v) * cellCapacity
		}
	}
}

// diffuse applies 5-point stencil diffusion on the toroidal grid.
func (sf *SoilField) diffuse(dt float64) {
	a := sf.Diffuse * dt
	if a <= 0 {
		return
	}
	// Stability clamp for explicit diffusion
	if a > 0.25 {
		a = 0.25
	}

	w, h := sf.W, sf.H
	src := sf.Res
	dst := sf.tmp

	for y := 0; y < h; y++ {
		yN := modInt(y-1, h)
		yS := modInt(y+1, h)
		for x := 0; x < w; x++ {
			xW := modInt(x-1, w)
			xE := modInt(x+1, w)

			i := y*w + x
			c := src[i]
			dst[i] = c + a*(src[yN*w+x]+src[yS*w+x]+src[y*w+xE]+src[y*w+xW]-4*c)
		}
	}

	copy(sf.Res, dst)
	for i := range sf.Res {
		if sf.Res[i] < 0 {
			sf.Res[i] = 0
		}
	}
}

// fbm generates tileable Fractional Brownian Motion noise in [0,1].
func (sf *SoilField) fbm(u, v float64) float64 {
	sum := 0.0
	amp := 0.5
	freq := sf.Scale

	for o := 0; o < sf.Octaves; o++ {
		sum += amp * sf.valueNoiseTileable(u, v, freq)
		freq *= sf.Lacunarity
		amp *= sf.Gain
	}

	return clamp01(math.Pow(sum, sf.Contrast))
}

// valueNoiseTileable generates tileable value noise at the given frequency.
func (sf *SoilField) valueNoiseTileable(u, v, freq float64) float64 {
	x := u * freq
	y := v * freq

	ix := int(math.Floor(x))
	iy := int(math.Floor(y))
	fx := x - float64(ix)
	fy := y - float64(iy)

	// Wrap lattice coordinates for tiling
	f := int(freq)
	if f < 1 {
		f = 1
	}
	a := sf.hash(modInt(ix, f), modInt(iy, f))
	b := sf.hash(modInt(ix+1, f), modInt(iy, f))
	c := sf.hash(modInt(ix, f), modInt(iy+1, f))
	d := sf.hash(modInt(ix+1, f), modInt(iy+1, f))

	ux := smoothstep(fx)
	uy := smoothstep(fy)

	ab := a + (b-a)*ux
	cd := c + (d-c)*ux
	return ab + (cd-ab)*uy
}

// hash generates a pseudo-random float in [0,1) from integer coordinates.
func (sf *SoilField) hash(ix, iy int) float64 {
	x := uint32(ix)
	y := uint32(iy)
	h := x*374761393 + y*668265263 + sf.Seed*1442695041
	h = (h ^ (h >> 13)) * 1274126177
	h ^= (h >> 16)
	return float64(h&0x00FFFFFF) / float64(0x01000000)
}

// sampleBilinear performs bilinear interpolation on a grid.
func (sf *SoilField) sampleBilinear(grid []float64, u, v float64) float64 {
	fx := u * float64(sf.W)
	fy := v * float64(sf.H)

	x0 := modInt(int(math.Floor(fx)), sf.W)
	y0 := modInt(int(math.Floor(fy)), sf.H)
	x1 := modInt(x0+1, sf.W)
	y1 := modInt(y0+1, sf.H)

	tx := fx - math.Floor(fx)
	ty := fy - math.Floor(fy)

	a := grid[y0*sf.W+x0] + (grid[y0*sf.W+x1]-grid[y0*sf.W+x0])*tx
	b := grid[y1*sf.W+x0] + (grid[y1*sf.W+x1]-grid[y1*sf.W+x0])*tx
	return a + (b-a)*ty
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

func fract(x float64) float64 {
	return x - math.Floor(x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func modInt(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
