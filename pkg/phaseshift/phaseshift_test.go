package phaseshift

import (
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"

	"slphase/pkg/bitmap"
)

// wrap maps an angle into (-pi, pi]
func wrap(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// angleDiff returns the smallest absolute difference between two angles
func angleDiff(a, b float64) float64 {
	return math.Abs(wrap(a - b))
}

// syntheticSequence creates steps images of size w x h where image k holds
// offset + amplitude*cos(phi - 2*pi*k/steps)
func syntheticSequence(steps, w, h int, offset, amplitude, phi float64) bitmap.Sequence[float64] {
	seq := make(bitmap.Sequence[float64], steps)
	for k := range seq {
		v := offset + amplitude*math.Cos(phi-2*math.Pi*float64(k)/float64(steps))
		seq[k] = bitmap.Fill(w, h, v)
	}
	return seq
}

func TestConfigValidate(t *testing.T) {
	for _, n := range []int{4, 6, 8, 16} {
		if err := (Config{Steps: n}).Validate(); err != nil {
			t.Errorf("Steps=%d: unexpected error %v", n, err)
		}
	}

	for _, n := range []int{0, 3, 5, 7, 12, 32} {
		err := (Config{Steps: n}).Validate()
		if !errors.Is(err, bitmap.ErrConfig) {
			t.Errorf("Steps=%d: expected configuration error, got %v", n, err)
			continue
		}
		if !strings.Contains(err.Error(), "not implemented for other counts") {
			t.Errorf("Steps=%d: unexpected message %q", n, err.Error())
		}
	}

	if err := (Config{Steps: 4, Rotate: 4}).Validate(); err != nil {
		t.Errorf("Rotate=N should be accepted: %v", err)
	}
	if err := (Config{Steps: 4, Rotate: 5}).Validate(); !errors.Is(err, bitmap.ErrConfig) {
		t.Errorf("Expected configuration error for Rotate=5, got %v", err)
	}
	if err := (Config{Steps: 8, Rotate: -1}).Validate(); !errors.Is(err, bitmap.ErrConfig) {
		t.Errorf("Expected configuration error for Rotate=-1, got %v", err)
	}
}

// TestKernelsAreAntisymmetric checks the half-period property Components relies on
func TestKernelsAreAntisymmetric(t *testing.T) {
	for _, n := range Supported() {
		k, _ := KernelFor(n)
		if len(k.Num) != n || len(k.Den) != n {
			t.Fatalf("N=%d: weight lengths %d/%d", n, len(k.Num), len(k.Den))
		}
		for i := 0; i < n/2; i++ {
			if k.Num[i] != -k.Num[i+n/2] || k.Den[i] != -k.Den[i+n/2] {
				t.Errorf("N=%d: tap %d is not antisymmetric", n, i)
			}
		}
	}
}

// TestComponentsMatchLiteralFormulas compares against the written-out expressions
func TestComponentsMatchLiteralFormulas(t *testing.T) {
	v := []float64{11, 52, 93, 14, 75, 36, 27, 88}
	r2 := math.Sqrt2 / 2
	r3 := math.Sqrt(3) / 2

	tests := []struct {
		steps        int
		wantN, wantD float64
	}{
		{4, v[1] - v[3], v[2] - v[0]},
		{6, r3 * (v[2] + v[1] - v[5] - v[4]), 0.5 * (v[4] - v[5] - v[1] + v[2] + v[3] - v[0])},
		{8, r2*(v[5]+v[7]-v[3]-v[1]) + v[6] - v[2], r2*(v[1]+v[7]-v[3]-v[5]) + v[0] - v[4]},
	}
	for _, tt := range tests {
		k, _ := KernelFor(tt.steps)
		n, d := k.Components(v[:tt.steps])
		if math.Abs(n-tt.wantN) > 1e-9 || math.Abs(d-tt.wantD) > 1e-9 {
			t.Errorf("N=%d: expected (%f, %f), got (%f, %f)", tt.steps, tt.wantN, tt.wantD, n, d)
		}
	}
}

// TestKernelsMatchFourierCoefficient cross-checks the 8 and 16 tap kernels
// against the first DFT coefficient: n = Im(X1), d = Re(X1)
func TestKernelsMatchFourierCoefficient(t *testing.T) {
	for _, steps := range []int{8, 16} {
		samples := make([]float64, steps)
		for i := range samples {
			samples[i] = float64((i*37)%101) + 3.5
		}

		fft := fourier.NewFFT(steps)
		coeffs := fft.Coefficients(nil, samples)

		k, _ := KernelFor(steps)
		n, d := k.Components(samples)
		if math.Abs(n-imag(coeffs[1])) > 1e-9 || math.Abs(d-real(coeffs[1])) > 1e-9 {
			t.Errorf("N=%d: kernel (%f, %f) differs from X1 %v", steps, n, d, coeffs[1])
		}
	}
}

// TestDemodulateFourStep uses v_k = 128 + 100 cos(phi - k pi/2). The 4-tap
// kernel yields n = 200 sin(phi), d = -200 cos(phi): phase pi - phi and
// modulation 2 * amplitude.
func TestDemodulateFourStep(t *testing.T) {
	d, err := NewDemodulator[float64, float64](Config{Steps: 4, Workers: 2})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, phi := range []float64{0.1, 0.7, 1.5, 2.9, -2.0, -0.4} {
		phase, mod, err := d.Demodulate(syntheticSequence(4, 3, 2, 128, 100, phi))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if diff := angleDiff(phase.At(1, 1), math.Pi-phi); diff > 1e-3 {
			t.Errorf("phi=%f: phase %f off by %f", phi, phase.At(1, 1), diff)
		}
		if math.Abs(mod.At(2, 0)-200) > 1e-6 {
			t.Errorf("phi=%f: expected modulation 200, got %f", phi, mod.At(2, 0))
		}
	}
}

// TestDemodulateLockIn checks the 8 and 16 tap kernels decode phase -phi
func TestDemodulateLockIn(t *testing.T) {
	tests := []struct {
		steps   int
		modGain float64
	}{
		{8, 2},
		{16, 1},
	}
	for _, tt := range tests {
		d, err := NewDemodulator[float64, float32](Config{Steps: tt.steps})
		if err != nil {
			t.Fatalf("N=%d: unexpected error %v", tt.steps, err)
		}
		for _, phi := range []float64{0.3, 1.2, 2.5, -1.7} {
			phase, mod, err := d.Demodulate(syntheticSequence(tt.steps, 2, 2, 500, 80, phi))
			if err != nil {
				t.Fatalf("N=%d: unexpected error %v", tt.steps, err)
			}
			if diff := angleDiff(float64(phase.At(0, 0)), -phi); diff > 1e-3 {
				t.Errorf("N=%d phi=%f: phase %f off by %f", tt.steps, phi, phase.At(0, 0), diff)
			}
			if want := 80 * tt.modGain; math.Abs(mod.At(0, 0)-want) > 1e-6 {
				t.Errorf("N=%d phi=%f: expected modulation %f, got %f", tt.steps, phi, want, mod.At(0, 0))
			}
		}
	}
}

func TestDemodulateSixStepAxes(t *testing.T) {
	d, _ := NewDemodulator[float64, float64](Config{Steps: 6})

	// phi = 0: n = 0, d < 0
	phase, _, err := d.Demodulate(syntheticSequence(6, 1, 1, 100, 50, 0))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if angleDiff(phase.Pix[0], math.Pi) > 1e-9 {
		t.Errorf("Expected pi, got %f", phase.Pix[0])
	}

	// phi = pi/2: d = 0, n > 0
	phase, _, _ = d.Demodulate(syntheticSequence(6, 1, 1, 100, 50, math.Pi/2))
	if angleDiff(phase.Pix[0], math.Pi/2) > 1e-9 {
		t.Errorf("Expected pi/2, got %f", phase.Pix[0])
	}
}

// TestDemodulateFlat covers the unmodulated edge case
func TestDemodulateFlat(t *testing.T) {
	for _, steps := range Supported() {
		d, _ := NewDemodulator[uint16, float64](Config{Steps: steps})
		seq := make(bitmap.Sequence[uint16], steps)
		for i := range seq {
			seq[i] = bitmap.Fill[uint16](2, 2, 777)
		}
		phase, mod, err := d.Demodulate(seq)
		if err != nil {
			t.Fatalf("N=%d: unexpected error %v", steps, err)
		}
		if phase.Pix[3] != math.Pi/2 {
			t.Errorf("N=%d: expected exactly pi/2, got %v", steps, phase.Pix[3])
		}
		if mod.Pix[3] != 0 {
			t.Errorf("N=%d: expected zero modulation, got %d", steps, mod.Pix[3])
		}
	}
}

func TestPhaseRange(t *testing.T) {
	if p := Phase(math.Copysign(0, -1), -1); p != math.Pi {
		t.Errorf("Expected pi for atan2(-0, -1), got %f", p)
	}
	if p := Phase(0, 0); p != math.Pi/2 {
		t.Errorf("Expected pi/2, got %f", p)
	}
	if p := Phase(-1, 0); p != -math.Pi/2 {
		t.Errorf("Expected -pi/2, got %f", p)
	}
}

// TestRotateAndReverseOrder verifies the pre-decoding transforms
func TestRotateAndReverseOrder(t *testing.T) {
	phi := 0.9
	base := syntheticSequence(4, 1, 1, 128, 100, phi)

	plain, _ := NewDemodulator[float64, float64](Config{Steps: 4})
	want, _, _ := plain.Demodulate(base)

	// Feeding the sequence rotated right by one and undoing it with Rotate=3
	shifted := base.Rotate(3)
	rot, _ := NewDemodulator[float64, float64](Config{Steps: 4, Rotate: 1})
	got, _, err := rot.Demodulate(shifted)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(got.Pix[0]-want.Pix[0]) > 1e-9 {
		t.Errorf("Rotate: expected %f, got %f", want.Pix[0], got.Pix[0])
	}

	rev, _ := NewDemodulator[float64, float64](Config{Steps: 4, Reverse: true})
	got, _, _ = rev.Demodulate(base.Reverse())
	if math.Abs(got.Pix[0]-want.Pix[0]) > 1e-9 {
		t.Errorf("Reverse: expected %f, got %f", want.Pix[0], got.Pix[0])
	}

	// Rotate = Steps is the identity
	full, _ := NewDemodulator[float64, float64](Config{Steps: 4, Rotate: 4})
	got, _, _ = full.Demodulate(base)
	if math.Abs(got.Pix[0]-want.Pix[0]) > 1e-9 {
		t.Errorf("Rotate=N: expected %f, got %f", want.Pix[0], got.Pix[0])
	}
}

func TestModulationSaturates(t *testing.T) {
	d, _ := NewDemodulator[uint8, float32](Config{Steps: 4})
	seq := bitmap.Sequence[uint8]{
		bitmap.Fill[uint8](1, 1, 0),
		bitmap.Fill[uint8](1, 1, 255),
		bitmap.Fill[uint8](1, 1, 255),
		bitmap.Fill[uint8](1, 1, 0),
	}
	_, mod, err := d.Demodulate(seq)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// sqrt(255^2 + 255^2) exceeds the uint8 range
	if mod.Pix[0] != 255 {
		t.Errorf("Expected saturated 255, got %d", mod.Pix[0])
	}
}

func TestDemodulateErrors(t *testing.T) {
	d, _ := NewDemodulator[uint8, float64](Config{Steps: 4})

	if _, _, err := d.Demodulate(nil); !errors.Is(err, bitmap.ErrDomain) {
		t.Errorf("Expected domain error for empty sequence, got %v", err)
	}

	seq := bitmap.Sequence[uint8]{
		bitmap.New[uint8](4, 4), bitmap.New[uint8](4, 4),
		bitmap.New[uint8](2, 4), bitmap.New[uint8](4, 1),
	}
	_, _, err := d.Demodulate(seq)
	if !errors.Is(err, bitmap.ErrDomain) {
		t.Fatalf("Expected domain error, got %v", err)
	}
	for _, want := range []string{"different image sizes", "4x4", "2x4", "4x1"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %q", want, err.Error())
		}
	}

	short := bitmap.Sequence[uint8]{bitmap.New[uint8](1, 1), bitmap.New[uint8](1, 1)}
	if _, _, err := d.Demodulate(short); !errors.Is(err, bitmap.ErrDomain) {
		t.Errorf("Expected domain error for wrong count, got %v", err)
	}
}
