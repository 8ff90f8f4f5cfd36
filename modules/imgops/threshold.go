package imgops

import (
	"fmt"
	"image"
	"math"
)

// Threshold methods.
const (
	ThreshBinary   = "Binary"
	ThreshTriangle = "Triangle"
	ThreshOtsu     = "Otsu"
)

var thresholdTypes = []string{ThreshBinary, ThreshTriangle, ThreshOtsu}

// Threshold sets every pixel strictly above t to maxval and every other
// pixel to zero. For Otsu and Triangle, t is ignored and computed from the
// histogram instead. The threshold actually used is returned.
func Threshold(img *image.Gray, t, maxval float64, method string) (float64, *image.Gray, error) {
	switch method {
	case ThreshBinary:
	case ThreshOtsu:
		t = float64(otsu(histogram(img)))
	case ThreshTriangle:
		t = float64(triangle(histogram(img)))
	default:
		return 0, nil, fmt.Errorf("invalid threshold type %q", method)
	}
	hi := uint8(math.Round(math.Min(math.Max(maxval, 0), 255)))
	out := mapGray(img, func(p uint8) uint8 {
		if float64(p) > t {
			return hi
		}
		return 0
	})
	return t, out, nil
}

func histogram(img *image.Gray) [256]int {
	var h [256]int
	grayRows(img, func(_ int, row []uint8) {
		for _, p := range row {
			h[p]++
		}
	})
	return h
}

// otsu picks the level maximizing between-class variance.
func otsu(h [256]int) int {
	total := 0
	sum := 0.0
	for i, c := range h {
		total += c
		sum += float64(i * c)
	}
	if total == 0 {
		return 0
	}

	var (
		best    int
		bestVar float64
		weightB int
		sumB    float64
	)
	for t := 0; t < 256; t++ {
		weightB += h[t]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * h[t])
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return best
}

// triangle draws a line from the histogram peak to the far end of the
// occupied range and picks the level farthest below it.
func triangle(h [256]int) int {
	lo, hi := -1, -1
	for i, c := range h {
		if c > 0 {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	if lo < 0 || lo == hi {
		return max(lo, 0)
	}

	peak := lo
	for i := lo; i <= hi; i++ {
		if h[i] > h[peak] {
			peak = i
		}
	}

	// Work on the longer tail side of the peak.
	end, step := hi, 1
	if peak-lo > hi-peak {
		end, step = lo, -1
	}
	if end == peak {
		return peak
	}

	// Line from (peak, h[peak]) to (end, h[end]).
	dx := float64(end - peak)
	dy := float64(h[end] - h[peak])
	norm := math.Hypot(dx, dy)
	best, bestDist := peak, 0.0
	for i := peak; i != end; i += step {
		dist := math.Abs(dy*float64(i-peak)-dx*float64(h[i]-h[peak])) / norm
		if dist > bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}
