// Package correlate lines up records from several input streams that belong
// to the same exec cycle.
//
// A host delivers, per cycle, one or more records on each connected stream.
// Before a stage may combine streams it must know that every stream carries
// the same number of records, that records at the same position share the
// cycle id, and that the element types agree. Zip checks all three once so
// the stages never have to.
package correlate

import (
	"fmt"
	"strings"

	"slphase/pkg/bitmap"
)

// ID identifies one exec cycle.
type ID string

// Record is one id-tagged value: a *bitmap.Bitmap[T] or a bitmap.Sequence[T].
type Record struct {
	ID    ID
	Value any
}

// Kind returns the element kind of the record value.
func (r Record) Kind() bitmap.Kind {
	return bitmap.KindOf(r.Value)
}

// Stream is the records one input delivered for a cycle.
type Stream struct {
	// Name identifies the input in error messages
	Name string

	// Kind is the element kind every record must carry
	Kind bitmap.Kind

	// Records in delivery order
	Records []Record
}

// Tuple is one lock-step row across the zipped streams.
type Tuple struct {
	ID     ID
	Values []any
}

// Zip walks the streams in lock step and returns one tuple per position.
//
// It fails with bitmap.ErrCorrelation when record counts differ, when records
// at the same position carry different ids, or when a record's element kind
// differs from its stream's declared kind.
func Zip(streams ...Stream) ([]Tuple, error) {
	if len(streams) == 0 {
		return nil, nil
	}
	if err := checkCounts(streams); err != nil {
		return nil, err
	}

	count := len(streams[0].Records)
	tuples := make([]Tuple, count)
	for i := 0; i < count; i++ {
		id := streams[0].Records[i].ID
		values := make([]any, len(streams))
		for s, stream := range streams {
			rec := stream.Records[i]
			if rec.ID != id {
				return nil, bitmap.Correlationf(
					"internal consistency: record %d of %q has cycle id %q, %q has %q",
					i, streams[0].Name, id, stream.Name, rec.ID)
			}
			if got := rec.Kind(); got != stream.Kind {
				return nil, bitmap.Correlationf(
					"record %d of %q (cycle %q) has element type %s, expected %s",
					i, stream.Name, rec.ID, got, stream.Kind)
			}
			values[s] = rec.Value
		}
		tuples[i] = Tuple{ID: id, Values: values}
	}
	return tuples, nil
}

func checkCounts(streams []Stream) error {
	want := len(streams[0].Records)
	for _, s := range streams[1:] {
		if len(s.Records) != want {
			return bitmap.Correlationf("record count mismatch: %s", describeCounts(streams))
		}
	}
	return nil
}

func describeCounts(streams []Stream) string {
	parts := make([]string, len(streams))
	for i, s := range streams {
		parts[i] = fmt.Sprintf("%q has %d", s.Name, len(s.Records))
	}
	return strings.Join(parts, ", ")
}

// SameKind checks that the named streams declare one element kind. Stages
// whose inputs must share an intensity type call it before zipping.
func SameKind(streams ...Stream) error {
	if len(streams) < 2 {
		return nil
	}
	for _, s := range streams[1:] {
		if s.Kind != streams[0].Kind {
			return bitmap.Correlationf("element type mismatch: %q is %s, %q is %s",
				streams[0].Name, streams[0].Kind, s.Name, s.Kind)
		}
	}
	return nil
}

// As converts a zipped value to its concrete type. A failure means the
// value passed Zip's kind check but has the wrong shape (bitmap vs sequence).
func As[V any](t Tuple, pos int, name string) (V, error) {
	v, ok := t.Values[pos].(V)
	if !ok {
		var zero V
		return zero, bitmap.Correlationf("cycle %q: %s carries %T, expected %T", t.ID, name, t.Values[pos], zero)
	}
	return v, nil
}
