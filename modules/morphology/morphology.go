package morphology

import (
	"image"
)

// Erode replaces every pixel with the minimum of its size x size
// neighbourhood, iterations times. Neighbours outside the image are ignored.
func Erode(img *image.Gray, size, iterations int) *image.Gray {
	return repeat(img, size, iterations, func(a, b uint8) bool { return b < a })
}

// Dilate replaces every pixel with the maximum of its size x size
// neighbourhood, iterations times.
func Dilate(img *image.Gray, size, iterations int) *image.Gray {
	return repeat(img, size, iterations, func(a, b uint8) bool { return b > a })
}

func repeat(img *image.Gray, size, iterations int, better func(a, b uint8) bool) *image.Gray {
	out := clone(img)
	for i := 0; i < iterations; i++ {
		// A rectangular kernel is separable: a horizontal pass followed by
		// a vertical pass gives the same result as the full window.
		out = pass(out, size, 1, 0, better)
		out = pass(out, size, 0, 1, better)
	}
	return out
}

func pass(img *image.Gray, size, dx, dy int, better func(a, b uint8) bool) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	lo := -(size - 1) / 2
	hi := size / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			best := img.Pix[y*img.Stride+x]
			for k := lo; k <= hi; k++ {
				nx, ny := x+k*dx, y+k*dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if p := img.Pix[ny*img.Stride+nx]; better(best, p) {
					best = p
				}
			}
			out.Pix[y*out.Stride+x] = best
		}
	}
	return out
}

func clone(img *image.Gray) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], img.Pix[y*img.Stride:y*img.Stride+w])
	}
	return out
}
