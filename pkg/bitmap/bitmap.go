// Package bitmap provides the dense 2-D grids shared by every decoding stage.
// A Bitmap is row-major with a fixed size set at creation; a Sequence is an
// ordered list of bitmaps whose index carries meaning (pattern index, bit order).
package bitmap

import (
	"fmt"
)

// Intensity is the set of element types a captured image may use.
type Intensity interface {
	~uint8 | ~uint16 | ~uint32 | ~float32 | ~float64
}

// Index is the set of element types a coarse index map may use.
type Index interface {
	~uint8 | ~uint16 | ~uint32
}

// Phase is the set of element types a phase map may use.
type Phase interface {
	~float32 | ~float64
}

// Size is the width and height of a bitmap
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Bitmap is a dense 2-D grid of elements stored in row-major order.
type Bitmap[T Intensity] struct {
	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int

	// Pix holds Width*Height samples, row after row
	Pix []T
}

// New allocates a zero-filled bitmap of the given size.
func New[T Intensity](width, height int) *Bitmap[T] {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("bitmap: negative size %dx%d", width, height))
	}
	return &Bitmap[T]{
		Width:  width,
		Height: height,
		Pix:    make([]T, width*height),
	}
}

// FromSlice wraps pix as a bitmap. The slice length must equal width*height.
func FromSlice[T Intensity](width, height int, pix []T) (*Bitmap[T], error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, fmt.Errorf("bitmap: %d samples do not fill %dx%d", len(pix), width, height)
	}
	return &Bitmap[T]{Width: width, Height: height, Pix: pix}, nil
}

// Size returns the bitmap dimensions.
func (b *Bitmap[T]) Size() Size {
	return Size{Width: b.Width, Height: b.Height}
}

// At returns the sample at (x, y).
func (b *Bitmap[T]) At(x, y int) T {
	return b.Pix[y*b.Width+x]
}

// Set stores v at (x, y).
func (b *Bitmap[T]) Set(x, y int, v T) {
	b.Pix[y*b.Width+x] = v
}

// Row returns the samples of row y without copying.
func (b *Bitmap[T]) Row(y int) []T {
	return b.Pix[y*b.Width : (y+1)*b.Width]
}

// Clone returns a deep copy.
func (b *Bitmap[T]) Clone() *Bitmap[T] {
	c := New[T](b.Width, b.Height)
	copy(c.Pix, b.Pix)
	return c
}

// Fill creates a bitmap where every sample equals v.
func Fill[T Intensity](width, height int, v T) *Bitmap[T] {
	b := New[T](width, height)
	for i := range b.Pix {
		b.Pix[i] = v
	}
	return b
}

// Sequence is an ordered list of bitmaps. Order is significant.
type Sequence[T Intensity] []*Bitmap[T]

// UniformSize returns the common size of every bitmap in the sequence.
// An empty sequence and a sequence with differing sizes are domain errors;
// the latter lists every distinct size present in order of first appearance.
func (s Sequence[T]) UniformSize() (Size, error) {
	if len(s) == 0 {
		return Size{}, Domainf("empty sequence")
	}
	first := s[0].Size()
	sizes := []Size{first}
	for _, b := range s[1:] {
		sz := b.Size()
		seen := false
		for _, known := range sizes {
			if known == sz {
				seen = true
				break
			}
		}
		if !seen {
			sizes = append(sizes, sz)
		}
	}
	if len(sizes) > 1 {
		return Size{}, &SizeError{Sizes: sizes}
	}
	return first, nil
}

// Rotate returns a view of s cyclically rotated left by offset positions,
// so that element offset becomes element 0. Offsets equal to len(s) wrap to 0.
func (s Sequence[T]) Rotate(offset int) Sequence[T] {
	n := len(s)
	if n == 0 {
		return s
	}
	offset %= n
	if offset < 0 {
		offset += n
	}
	out := make(Sequence[T], 0, n)
	out = append(out, s[offset:]...)
	out = append(out, s[:offset]...)
	return out
}

// Reverse returns a copy of s in reverse order.
func (s Sequence[T]) Reverse() Sequence[T] {
	out := make(Sequence[T], len(s))
	for i, b := range s {
		out[len(s)-1-i] = b
	}
	return out
}
