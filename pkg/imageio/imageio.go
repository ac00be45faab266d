// Package imageio loads captured frames from disk into bitmaps.
//
// PNG, JPEG and TIFF files are decoded and converted to grayscale. Integer
// element types receive the full-range value of the 16-bit gray sample
// (uint8 keeps the high byte, uint32 replicates it); float types receive the
// sample on the 0..255 scale so that modulation thresholds mean the same for
// 8-bit and float pipelines.
package imageio

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/tiff"

	"slphase/internal/models"
	"slphase/pkg/bitmap"
)

// Extensions lists the file extensions LoadSequence picks up.
var Extensions = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff"}

// IsImage reports whether name has one of the supported extensions.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ListFrames returns the image files in dir sorted by frame number, then name.
func ListFrames(dir string) ([]models.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}

	var frames []models.Frame
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		frames = append(frames, models.NewFrame(filepath.Join(dir, e.Name())))
	}

	sort.SliceStable(frames, func(i, j int) bool {
		if frames[i].Number != frames[j].Number {
			return frames[i].Number < frames[j].Number
		}
		return frames[i].Filename < frames[j].Filename
	})
	return frames, nil
}

// LoadSequence loads every image in dir, ordered by frame number. All images
// must have the same size.
func LoadSequence[T bitmap.Intensity](dir string) (bitmap.Sequence[T], []models.Frame, error) {
	frames, err := ListFrames(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(frames) == 0 {
		return nil, nil, bitmap.Domainf("no images found in %s", dir)
	}

	seq := make(bitmap.Sequence[T], len(frames))
	for i := range frames {
		b, err := LoadBitmap[T](frames[i].Path)
		if err != nil {
			return nil, nil, err
		}
		frames[i].Width, frames[i].Height = b.Width, b.Height
		seq[i] = b
	}
	if _, err := seq.UniformSize(); err != nil {
		return nil, nil, bitmap.Named(err, dir)
	}
	return seq, frames, nil
}

// LoadBitmap decodes one image file into a grayscale bitmap.
func LoadBitmap[T bitmap.Intensity](path string) (*bitmap.Bitmap[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return FromImage[T](img), nil
}

// FromImage converts img to a grayscale bitmap.
func FromImage[T bitmap.Intensity](img image.Image) *bitmap.Bitmap[T] {
	bounds := img.Bounds()
	out := bitmap.New[T](bounds.Dx(), bounds.Dy())
	sample := sampler[T]()

	for y := 0; y < out.Height; y++ {
		row := out.Row(y)
		for x := range row {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			row[x] = sample(g.Y)
		}
	}
	return out
}

func sampler[T bitmap.Intensity]() func(uint16) T {
	switch bitmap.KindFor[T]() {
	case bitmap.Uint8:
		return func(v uint16) T { return T(v >> 8) }
	case bitmap.Uint16:
		return func(v uint16) T { return T(v) }
	case bitmap.Uint32:
		return func(v uint16) T { return T(uint32(v) * 0x10001) }
	}
	return func(v uint16) T { return T(float64(v) / 257) }
}
