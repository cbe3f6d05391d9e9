package ml

import (
	"sort"
)

// binner discretises each feature into at most maxBins buckets. Bucket b of
// feature f holds values v with cuts[f][b-1] < v <= cuts[f][b].
type binner struct {
	cuts [][]float64
	bins [][]int // bins[f][row]
}

func newBinner(X [][]float64, maxBins int) *binner {
	if maxBins < 2 {
		maxBins = 2
	}
	width := len(X[0])
	b := &binner{cuts: make([][]float64, width), bins: make([][]int, width)}

	col := make([]float64, len(X))
	for f := 0; f < width; f++ {
		for i, row := range X {
			col[i] = row[f]
		}
		b.cuts[f] = cutPoints(col, maxBins)

		b.bins[f] = make([]int, len(X))
		for i, v := range col {
			b.bins[f][i] = sort.SearchFloat64s(b.cuts[f], v)
		}
	}
	return b
}

// numBins is the bucket count of feature f, one more than its cut count.
func (b *binner) numBins(f int) int {
	return len(b.cuts[f]) + 1
}

// cutPoints returns midpoints between distinct values, thinned to quantiles
// when there are more distinct values than buckets.
func cutPoints(values []float64, maxBins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	distinct := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < 2 {
		return nil
	}

	positions := make([]int, 0, len(distinct)-1)
	if len(distinct) <= maxBins {
		for i := 0; i < len(distinct)-1; i++ {
			positions = append(positions, i)
		}
	} else {
		last := -1
		for k := 1; k < maxBins; k++ {
			pos := k * (len(distinct) - 1) / maxBins
			if pos != last {
				positions = append(positions, pos)
				last = pos
			}
		}
	}

	cuts := make([]float64, len(positions))
	for i, pos := range positions {
		cuts[i] = (distinct[pos] + distinct[pos+1]) / 2
	}
	return cuts
}

// histogram accumulates gradient statistics per bucket of one feature.
type histogram struct {
	grad, hess []float64
	count      []int
}

func (b *binner) histogram(f int, idx []int, grad, hess []float64) histogram {
	n := b.numBins(f)
	hist := histogram{grad: make([]float64, n), hess: make([]float64, n), count: make([]int, n)}
	for _, i := range idx {
		bin := b.bins[f][i]
		hist.grad[bin] += grad[i]
		hist.hess[bin] += hess[i]
		hist.count[bin]++
	}
	return hist
}
