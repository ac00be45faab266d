package correlate

import (
	"strings"
	"testing"

	"github.com/pkg/errors"

	"slphase/pkg/bitmap"
)

func bitmaps(ids ...ID) []Record {
	out := make([]Record, len(ids))
	for i, id := range ids {
		out[i] = Record{ID: id, Value: bitmap.New[uint16](2, 2)}
	}
	return out
}

func TestZipLockStep(t *testing.T) {
	a := Stream{Name: "bright", Kind: bitmap.Uint16, Records: bitmaps("c1", "c1")}
	b := Stream{Name: "dark", Kind: bitmap.Uint16, Records: bitmaps("c1", "c1")}

	tuples, err := Zip(a, b)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(tuples) != 2 {
		t.Fatalf("Expected 2 tuples, got %d", len(tuples))
	}
	if tuples[1].ID != "c1" || len(tuples[1].Values) != 2 {
		t.Errorf("Unexpected tuple %+v", tuples[1])
	}
	if tuples[0].Values[1] != b.Records[0].Value {
		t.Error("Tuple values are not in stream order")
	}
}

// TestZipCountMismatch verifies no tuples are produced when counts differ
func TestZipCountMismatch(t *testing.T) {
	a := Stream{Name: "threshold", Kind: bitmap.Uint16, Records: bitmaps("c1")}
	b := Stream{Name: "gray", Kind: bitmap.Uint16, Records: bitmaps("c1", "c1")}

	tuples, err := Zip(a, b)
	if !errors.Is(err, bitmap.ErrCorrelation) {
		t.Fatalf("Expected correlation error, got %v", err)
	}
	if tuples != nil {
		t.Error("Expected no output on error")
	}
	for _, want := range []string{`"threshold" has 1`, `"gray" has 2`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %q", want, err.Error())
		}
	}
}

func TestZipIDMismatch(t *testing.T) {
	a := Stream{Name: "phase", Kind: bitmap.Uint16, Records: bitmaps("c1", "c2")}
	b := Stream{Name: "index", Kind: bitmap.Uint16, Records: bitmaps("c1", "c3")}

	_, err := Zip(a, b)
	if !errors.Is(err, bitmap.ErrCorrelation) {
		t.Fatalf("Expected correlation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "internal consistency") || !strings.Contains(err.Error(), "c3") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestZipKindMismatch(t *testing.T) {
	a := Stream{Name: "bright", Kind: bitmap.Uint16, Records: bitmaps("c1")}
	b := Stream{Name: "dark", Kind: bitmap.Uint16, Records: []Record{
		{ID: "c1", Value: bitmap.New[uint8](2, 2)},
	}}

	_, err := Zip(a, b)
	if !errors.Is(err, bitmap.ErrCorrelation) {
		t.Fatalf("Expected correlation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "uint8") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestZipEmpty(t *testing.T) {
	tuples, err := Zip()
	if err != nil || tuples != nil {
		t.Errorf("Expected nil result, got %v, %v", tuples, err)
	}

	tuples, err = Zip(Stream{Name: "a"}, Stream{Name: "b"})
	if err != nil || len(tuples) != 0 {
		t.Errorf("Expected zero tuples, got %v, %v", tuples, err)
	}
}

func TestSameKind(t *testing.T) {
	if err := SameKind(Stream{Name: "a", Kind: bitmap.Uint8}); err != nil {
		t.Errorf("Unexpected error for a single stream: %v", err)
	}
	err := SameKind(Stream{Name: "threshold", Kind: bitmap.Uint8}, Stream{Name: "gray", Kind: bitmap.Float32})
	if !errors.Is(err, bitmap.ErrCorrelation) {
		t.Errorf("Expected correlation error, got %v", err)
	}
}

func TestAs(t *testing.T) {
	tuple := Tuple{ID: "c9", Values: []any{bitmap.New[uint8](1, 1)}}

	if _, err := As[*bitmap.Bitmap[uint8]](tuple, 0, "bright"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	_, err := As[bitmap.Sequence[uint8]](tuple, 0, "cos")
	if !errors.Is(err, bitmap.ErrCorrelation) {
		t.Errorf("Expected correlation error, got %v", err)
	}
}
