package imgops

import (
	"errors"
	"fmt"
	"image"
)

// ErrSizeMismatch is returned when two operands do not share bounds.
var ErrSizeMismatch = errors.New("image sizes differ")

func sameBounds(a, b image.Rectangle) error {
	if a.Dx() != b.Dx() || a.Dy() != b.Dy() {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, a.Dx(), a.Dy(), b.Dx(), b.Dy())
	}
	return nil
}

// grayRows calls fn with the pixel slice of every row of img.
func grayRows(img *image.Gray, fn func(y int, row []uint8)) {
	w := img.Rect.Dx()
	for y := 0; y < img.Rect.Dy(); y++ {
		off := y * img.Stride
		fn(y, img.Pix[off:off+w])
	}
}

// combine applies op pixel by pixel to two equally sized gray images.
func combine(a, b *image.Gray, op func(x, y uint8) uint8) (*image.Gray, error) {
	if err := sameBounds(a.Rect, b.Rect); err != nil {
		return nil, err
	}
	out := image.NewGray(image.Rect(0, 0, a.Rect.Dx(), a.Rect.Dy()))
	grayRows(a, func(y int, rowA []uint8) {
		rowB := b.Pix[y*b.Stride : y*b.Stride+len(rowA)]
		dst := out.Pix[y*out.Stride : y*out.Stride+len(rowA)]
		for x := range rowA {
			dst[x] = op(rowA[x], rowB[x])
		}
	})
	return out, nil
}

// mapGray applies op to every pixel of img.
func mapGray(img *image.Gray, op func(uint8) uint8) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	grayRows(img, func(y int, row []uint8) {
		dst := out.Pix[y*out.Stride : y*out.Stride+len(row)]
		for x, p := range row {
			dst[x] = op(p)
		}
	})
	return out
}

// AbsDiff returns |a - b| per pixel.
func AbsDiff(a, b *image.Gray) (*image.Gray, error) {
	return combine(a, b, func(x, y uint8) uint8 {
		if x > y {
			return x - y
		}
		return y - x
	})
}

// ClampedDiff returns a - b per pixel, with every difference below cutoff
// (including all negative ones) set to zero.
func ClampedDiff(a, b *image.Gray, cutoff int) (*image.Gray, error) {
	return combine(a, b, func(x, y uint8) uint8 {
		d := int(x) - int(y)
		if d < cutoff || d < 0 {
			return 0
		}
		return uint8(d)
	})
}

// Min keeps the darker pixel of a and b.
func Min(a, b *image.Gray) (*image.Gray, error) {
	return combine(a, b, func(x, y uint8) uint8 { return min(x, y) })
}

// Max keeps the brighter pixel of a and b.
func Max(a, b *image.Gray) (*image.Gray, error) {
	return combine(a, b, func(x, y uint8) uint8 { return max(x, y) })
}

// InvertGray returns the bitwise complement of img.
func InvertGray(img *image.Gray) *image.Gray {
	return mapGray(img, func(p uint8) uint8 { return ^p })
}

// InvertColor complements the color channels and keeps alpha.
func InvertColor(img *image.RGBA) *image.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+4*w]
		dst := out.Pix[y*out.Stride : y*out.Stride+4*w]
		for i := 0; i < len(src); i += 4 {
			dst[i] = ^src[i]
			dst[i+1] = ^src[i+1]
			dst[i+2] = ^src[i+2]
			dst[i+3] = src[i+3]
		}
	}
	return out
}

// Color codes accepted by GrayScale.
const (
	CodeBGR2Gray = "BGR2GRAY"
	CodeB2Gray   = "B2GRAY"
	CodeG2Gray   = "G2GRAY"
	CodeR2Gray   = "R2GRAY"
)

var colorCodes = []string{CodeBGR2Gray, CodeB2Gray, CodeG2Gray, CodeR2Gray}

// channelOffset maps a single channel code to its byte within an RGBA pixel.
var channelOffset = map[string]int{
	CodeR2Gray: 0,
	CodeG2Gray: 1,
	CodeB2Gray: 2,
}

// ToGray converts img with the given color code. BGR2GRAY uses the
// ITU-R 601 luma weights; the other codes pick one channel.
func ToGray(img *image.RGBA, code string) (*image.Gray, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	ch, single := channelOffset[code]
	if !single && code != CodeBGR2Gray {
		return nil, fmt.Errorf("invalid color code %q", code)
	}
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+4*w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := range dst {
			px := src[4*x : 4*x+4]
			if single {
				dst[x] = px[ch]
				continue
			}
			lum := (299*int(px[0]) + 587*int(px[1]) + 114*int(px[2]) + 500) / 1000
			dst[x] = uint8(lum)
		}
	}
	return out, nil
}

// SplitChannels returns the blue, green and red planes of img.
func SplitChannels(img *image.RGBA) (blue, green, red *image.Gray) {
	blue, _ = ToGray(img, CodeB2Gray)
	green, _ = ToGray(img, CodeG2Gray)
	red, _ = ToGray(img, CodeR2Gray)
	return blue, green, red
}
