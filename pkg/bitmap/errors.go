package bitmap

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error classes. Every failure raised by the decoding stages wraps exactly one
// of these so a host can decide between skipping a cycle and aborting.
var (
	// ErrConfig marks setup failures: unsupported step counts, ambiguous
	// input selection, violated flag preconditions.
	ErrConfig = errors.New("configuration error")

	// ErrCorrelation marks record-count, cycle-id or element-type mismatches
	// between correlated input streams. These point at an upstream defect.
	ErrCorrelation = errors.New("correlation error")

	// ErrDomain marks invalid data inside one cycle: empty sequences,
	// inconsistent sizes, codes too long for the index type.
	ErrDomain = errors.New("domain error")
)

// Configf returns a configuration error.
func Configf(format string, args ...any) error {
	return errors.Wrapf(ErrConfig, format, args...)
}

// Correlationf returns a correlation error.
func Correlationf(format string, args ...any) error {
	return errors.Wrapf(ErrCorrelation, format, args...)
}

// Domainf returns a domain error.
func Domainf(format string, args ...any) error {
	return errors.Wrapf(ErrDomain, format, args...)
}

// SizeError reports a sequence holding bitmaps of more than one size.
type SizeError struct {
	// Name identifies the offending input, if known
	Name string

	// Sizes lists every distinct size in order of first appearance
	Sizes []Size
}

func (e *SizeError) Error() string {
	parts := make([]string, len(e.Sizes))
	for i, s := range e.Sizes {
		parts[i] = s.String()
	}
	prefix := "sequence"
	if e.Name != "" {
		prefix = e.Name
	}
	return fmt.Sprintf("%s has different image sizes: %s", prefix, strings.Join(parts, ", "))
}

// Unwrap makes errors.Is(err, ErrDomain) hold for size errors.
func (e *SizeError) Unwrap() error {
	return ErrDomain
}

// Named returns a copy of err labelled with name when err is a *SizeError,
// and err unchanged otherwise.
func Named(err error, name string) error {
	var se *SizeError
	if errors.As(err, &se) {
		return &SizeError{Name: name, Sizes: se.Sizes}
	}
	return err
}

// SameSize checks that two bitmaps share one size and names both on failure.
func SameSize(aName string, a Size, bName string, b Size) error {
	if a != b {
		return Domainf("different size: %s is %s, %s is %s", aName, a, bName, b)
	}
	return nil
}
