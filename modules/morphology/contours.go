package morphology

import (
	"image"

	"github.com/vk/framegraph/internal/value"
)

// Clockwise neighbour offsets in image coordinates, starting west.
var neighbours = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func direction(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return 0
}

// FindContours traces the outer boundary of every 8-connected group of
// non-zero pixels, in raster order of each group's first pixel. Boundaries
// with fewer than minPoints points are dropped.
func FindContours(img *image.Gray, minPoints int) []value.Contour {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	fg := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && img.Pix[p.Y*img.Stride+p.X] != 0
	}
	labeled := make([]bool, w*h)

	contours := []value.Contour{}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			start := image.Pt(x, y)
			if !fg(start) || labeled[y*w+x] {
				continue
			}
			fill(start, w, fg, labeled)
			if c := trace(start, w*h, fg); len(c) >= minPoints {
				contours = append(contours, c)
			}
		}
	}
	return contours
}

// fill marks the 8-connected group containing start.
func fill(start image.Point, w int, fg func(image.Point) bool, labeled []bool) {
	stack := []image.Point{start}
	labeled[start.Y*w+start.X] = true
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range neighbours {
			n := p.Add(d)
			if fg(n) && !labeled[n.Y*w+n.X] {
				labeled[n.Y*w+n.X] = true
				stack = append(stack, n)
			}
		}
	}
}

// trace walks the boundary clockwise with Moore neighbour tracing. start
// must be the first pixel of its group in raster order, so its west
// neighbour is background.
func trace(start image.Point, area int, fg func(image.Point) bool) value.Contour {
	contour := value.Contour{start}
	cur := start
	back := start.Add(neighbours[0])
	var first image.Point
	haveFirst := false

	for steps := 0; steps < 4*area+8; steps++ {
		bi := direction(back.Sub(cur))
		var next image.Point
		found := false
		for k := 1; k <= 8; k++ {
			cand := cur.Add(neighbours[(bi+k)%8])
			if fg(cand) {
				next = cand
				back = cur.Add(neighbours[(bi+k-1)%8])
				found = true
				break
			}
		}
		if !found {
			return contour
		}
		if cur == start && haveFirst && next == first {
			break
		}
		if !haveFirst {
			first, haveFirst = next, true
		}
		contour = append(contour, next)
		cur = next
	}
	if len(contour) > 1 && contour[len(contour)-1] == start {
		contour = contour[:len(contour)-1]
	}
	return contour
}
