// Package visualization renders decoded maps as 16-bit grayscale images.
//
// Phase and modulation maps are stretched between their finite minimum and
// maximum; index maps are scaled by the largest index present; masks map
// straight to black and white. A Renderer writes the images as PNG or TIFF and
// can act as a pipeline sink.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"

	"slphase/pkg/bitmap"
	"slphase/pkg/correlate"
	"slphase/pkg/pipeline"
)

// Normalize stretches a map linearly onto the full Gray16 range. NaN and
// infinite values render black. A constant map renders mid-gray.
func Normalize[T bitmap.Intensity](b *bitmap.Bitmap[T]) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, b.Width, b.Height))

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range b.Pix {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			f := float64(b.At(x, y))
			var value uint16
			switch {
			case math.IsNaN(f) || math.IsInf(f, 0):
			case hi == lo:
				value = 32768
			default:
				value = uint16(math.Round((f - lo) / (hi - lo) * 65535))
			}
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img
}

// IndexImage scales a coarse index map so that index 0 is black and the
// largest index present is white.
func IndexImage[U bitmap.Index](b *bitmap.Bitmap[U]) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, b.Width, b.Height))
	var top U
	for _, v := range b.Pix {
		if v > top {
			top = v
		}
	}
	if top == 0 {
		return img
	}
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(uint64(b.At(x, y)) * 65535 / uint64(top))})
		}
	}
	return img
}

// MaskImage renders a quality mask as an 8-bit image.
func MaskImage(b *bitmap.Bitmap[uint8]) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}

// Image renders any bitmap a pipeline emits. Unsigned maps on the index
// stream use IndexImage; everything else is normalized.
func Image(stream string, v any) (image.Image, error) {
	switch b := v.(type) {
	case *bitmap.Bitmap[uint8]:
		if stream == pipeline.StreamMask {
			return MaskImage(b), nil
		}
		if stream == pipeline.StreamIndex {
			return IndexImage(b), nil
		}
		return Normalize(b), nil
	case *bitmap.Bitmap[uint16]:
		if stream == pipeline.StreamIndex {
			return IndexImage(b), nil
		}
		return Normalize(b), nil
	case *bitmap.Bitmap[uint32]:
		if stream == pipeline.StreamIndex {
			return IndexImage(b), nil
		}
		return Normalize(b), nil
	case *bitmap.Bitmap[float32]:
		return Normalize(b), nil
	case *bitmap.Bitmap[float64]:
		return Normalize(b), nil
	}
	return nil, errors.Errorf("cannot render %T", v)
}

// Renderer writes rendered maps into a directory.
type Renderer struct {
	// Dir is the output directory, created on first write
	Dir string

	// Format is "png" or "tiff"
	Format string

	// Prefix is prepended to every file name, e.g. "x_"
	Prefix string

	// Streams limits Emit to the listed streams; empty means all
	Streams []string
}

// NewRenderer returns a Renderer writing format files into dir.
func NewRenderer(dir, format string) (*Renderer, error) {
	switch format {
	case "png", "tiff":
	default:
		return nil, bitmap.Configf("output format %q not supported (png, tiff)", format)
	}
	return &Renderer{Dir: dir, Format: format}, nil
}

// Ext returns the file extension for the configured format.
func (r *Renderer) Ext() string {
	if r.Format == "tiff" {
		return ".tif"
	}
	return ".png"
}

// Save encodes img under name plus the format extension and returns the path.
func (r *Renderer) Save(img image.Image, name string) (string, error) {
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating %s", r.Dir)
	}
	path := filepath.Join(r.Dir, r.Prefix+name+r.Ext())

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if r.Format == "tiff" {
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	} else {
		err = png.Encode(file, img)
	}
	if err != nil {
		return "", errors.Wrapf(err, "encoding %s", path)
	}
	return path, nil
}

// Emit renders rec and writes it as <prefix><stream>_<id>. It lets a
// Renderer stand in as a pipeline sink.
func (r *Renderer) Emit(stream string, rec correlate.Record) error {
	if !r.wants(stream) {
		return nil
	}
	img, err := Image(stream, rec.Value)
	if err != nil {
		return errors.Wrapf(err, "stream %s", stream)
	}
	_, err = r.Save(img, FileName(stream, rec.ID))
	return err
}

func (r *Renderer) wants(stream string) bool {
	if len(r.Streams) == 0 {
		return true
	}
	for _, s := range r.Streams {
		if s == stream {
			return true
		}
	}
	return false
}

// FileName builds a file system friendly name for a stream record.
func FileName(stream string, id correlate.ID) string {
	name := strings.ReplaceAll(stream, " ", "_")
	if id == "" {
		return name
	}
	return fmt.Sprintf("%s_%s", name, id)
}
