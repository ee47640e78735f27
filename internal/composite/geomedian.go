// Package composite computes per-epoch geomedian composites and the
// derived change heatmap from stacks of cloud-masked scenes.
package composite

import (
	"fmt"
	"math"

	"github.com/coastcube/filmstrip/internal/raster"
	"gonum.org/v1/gonum/floats"
)

// Weiszfeld iteration controls. The geometric median has no closed form;
// iteration stops on convergence or after maxIterations.
const (
	maxIterations = 50
	tolerance     = 1e-7
)

// Geomedian computes the per-pixel geometric median composite of a stack
// of scenes already resampled onto a common grid. Observations whose QA
// plane is nonzero, or that hold NaN in any spectral band, are excluded
// pixelwise. Pixels with no valid observation stay NaN in every band.
func Geomedian(scenes []*raster.Grid, bands []string) (*raster.Grid, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("geomedian requires at least one scene")
	}

	ref := scenes[0]
	for i, s := range scenes[1:] {
		if s.Width != ref.Width || s.Height != ref.Height {
			return nil, fmt.Errorf("scene %d is %dx%d, stack grid is %dx%d",
				i+1, s.Width, s.Height, ref.Width, ref.Height)
		}
	}

	// Band planes per scene, fetched once
	planes := make([][][]float64, len(scenes))
	qa := make([][]float64, len(scenes))
	for i, s := range scenes {
		planes[i] = make([][]float64, len(bands))
		for bi, name := range bands {
			p := s.Band(name)
			if p == nil {
				return nil, fmt.Errorf("scene %d missing band %q", i, name)
			}
			planes[i][bi] = p
		}
		qa[i] = s.Band(raster.QABand)
	}

	out := raster.NewGrid(ref.Width, ref.Height, ref.OriginLon, ref.OriginLat,
		ref.PixelWidth, ref.PixelHeight, bands)

	nBands := len(bands)
	obs := make([][]float64, 0, len(scenes))
	scratch := make([]float64, nBands)

	for px := 0; px < ref.Width*ref.Height; px++ {
		obs = obs[:0]
		for si := range scenes {
			if qa[si] != nil && qa[si][px] != 0 {
				continue
			}
			vec := make([]float64, nBands)
			valid := true
			for bi := 0; bi < nBands; bi++ {
				v := planes[si][bi][px]
				if math.IsNaN(v) {
					valid = false
					break
				}
				vec[bi] = v
			}
			if valid {
				obs = append(obs, vec)
			}
		}
		if len(obs) == 0 {
			continue
		}

		med := geometricMedian(obs, scratch)
		for bi := 0; bi < nBands; bi++ {
			out.Planes[bi][px] = med[bi]
		}
	}

	return out, nil
}

// geometricMedian runs Weiszfeld's algorithm on a set of band vectors.
// scratch must have the vector dimension; the returned slice is newly
// allocated.
func geometricMedian(obs [][]float64, scratch []float64) []float64 {
	dim := len(obs[0])
	est := make([]float64, dim)

	// Start from the componentwise mean
	for _, o := range obs {
		floats.Add(est, o)
	}
	floats.Scale(1/float64(len(obs)), est)

	if len(obs) == 1 {
		return est
	}

	next := make([]float64, dim)
	for iter := 0; iter < maxIterations; iter++ {
		for i := range next {
			next[i] = 0
		}
		var weightSum float64
		var coincident bool

		for _, o := range obs {
			d := floats.Distance(est, o, 2)
			if d < tolerance {
				// Estimate sits on an observation; Weiszfeld weights
				// blow up, accept the current estimate
				coincident = true
				break
			}
			w := 1 / d
			copy(scratch, o)
			floats.Scale(w, scratch)
			floats.Add(next, scratch)
			weightSum += w
		}
		if coincident || weightSum == 0 {
			break
		}
		floats.Scale(1/weightSum, next)

		if floats.Distance(est, next, 2) < tolerance {
			copy(est, next)
			break
		}
		copy(est, next)
	}

	return est
}
