package composite

import (
	"fmt"
	"math"

	"github.com/coastcube/filmstrip/internal/raster"
	"gonum.org/v1/gonum/floats"
)

// ChangeHeatmap computes the per-pixel spectral Euclidean distance between
// two composites on the same grid, normalized to [0,1] by the stack's
// maximum distance. Pixels that are nodata in either composite stay NaN.
func ChangeHeatmap(a, b *raster.Grid, bands []string) ([]float64, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("composites differ in size: %dx%d vs %dx%d",
			a.Width, a.Height, b.Width, b.Height)
	}

	va := make([]float64, len(bands))
	vb := make([]float64, len(bands))
	out := make([]float64, a.Width*a.Height)

	planesA := make([][]float64, len(bands))
	planesB := make([][]float64, len(bands))
	for bi, name := range bands {
		if planesA[bi] = a.Band(name); planesA[bi] == nil {
			return nil, fmt.Errorf("first composite missing band %q", name)
		}
		if planesB[bi] = b.Band(name); planesB[bi] == nil {
			return nil, fmt.Errorf("second composite missing band %q", name)
		}
	}

	maxDist := 0.0
	for px := range out {
		valid := true
		for bi := range bands {
			va[bi] = planesA[bi][px]
			vb[bi] = planesB[bi][px]
			if math.IsNaN(va[bi]) || math.IsNaN(vb[bi]) {
				valid = false
				break
			}
		}
		if !valid {
			out[px] = math.NaN()
			continue
		}
		d := floats.Distance(va, vb, 2)
		out[px] = d
		if d > maxDist {
			maxDist = d
		}
	}

	if maxDist > 0 {
		for px := range out {
			if !math.IsNaN(out[px]) {
				out[px] /= maxDist
			}
		}
	}

	return out, nil
}
