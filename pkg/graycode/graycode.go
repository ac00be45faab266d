// Package graycode turns a stack of binarized Gray-code pattern images into a
// coarse period index per pixel.
package graycode

import (
	"fmt"
	"unsafe"

	"slphase/pkg/bitmap"
)

// BitsOf returns the width in bits of the index type U.
func BitsOf[U bitmap.Index]() int {
	var zero U
	return int(unsafe.Sizeof(zero)) * 8
}

// GrayToBinary converts a reflected binary code to its natural binary value.
// Each output bit is the XOR of the matching Gray bit with every higher bit
// already produced, i.e. g ^ g>>1 ^ g>>2 ^ ...
func GrayToBinary[U bitmap.Index](g U) U {
	b := g
	for shift := g >> 1; shift != 0; shift >>= 1 {
		b ^= shift
	}
	return b
}

// BinaryToGray is the inverse of GrayToBinary.
func BinaryToGray[U bitmap.Index](b U) U {
	return b ^ (b >> 1)
}

// Decoder reads Gray-code pattern stacks with intensity type T into index maps of type U.
type Decoder[T bitmap.Intensity, U bitmap.Index] struct {
	workers int
}

// NewDecoder returns a decoder that splits each image over the given number
// of goroutines (0 uses every CPU).
func NewDecoder[T bitmap.Intensity, U bitmap.Index](workers int) *Decoder[T, U] {
	return &Decoder[T, U]{workers: workers}
}

// Decode builds the coarse index map. patterns[0] carries the most
// significant bit; a pixel reads as 1 when its sample is at least the
// threshold at that pixel.
func (d *Decoder[T, U]) Decode(threshold *bitmap.Bitmap[T], patterns bitmap.Sequence[T]) (*bitmap.Bitmap[U], error) {
	if err := Validate[T, U](threshold, patterns); err != nil {
		return nil, err
	}

	width, height := threshold.Width, threshold.Height
	out := bitmap.New[U](width, height)
	bitmap.ParallelRows(height, d.workers, func(y0, y1 int) {
		for i := y0 * width; i < y1*width; i++ {
			limit := threshold.Pix[i]
			var code U
			for _, p := range patterns {
				code <<= 1
				if p.Pix[i] >= limit {
					code |= 1
				}
			}
			out.Pix[i] = GrayToBinary(code)
		}
	})
	return out, nil
}

// Validate checks the pattern count against the index type and that every
// image matches the threshold size.
func Validate[T bitmap.Intensity, U bitmap.Index](threshold *bitmap.Bitmap[T], patterns bitmap.Sequence[T]) error {
	k := len(patterns)
	if k == 0 {
		return bitmap.Domainf("no gray code pattern images")
	}
	if bits := BitsOf[U](); k > bits {
		return bitmap.Domainf("too many pattern images for output type: %d patterns, %s holds %d bits",
			k, bitmap.KindFor[U](), bits)
	}

	want := threshold.Size()
	for i, p := range patterns {
		if err := bitmap.SameSize("threshold", want, fmt.Sprintf("pattern %d", i), p.Size()); err != nil {
			return err
		}
	}
	return nil
}
