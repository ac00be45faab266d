package models

import "testing"

func TestFrameNumber(t *testing.T) {
	tests := map[string]int{
		"pattern_03.png":    3,
		"cam0_shift_12.tif": 12,
		"frame10.jpg":       10,
		"bright.png":        -1,
		"/data/x/7.png":     7,
	}
	for name, want := range tests {
		if got := FrameNumber(name); got != want {
			t.Errorf("FrameNumber(%q): expected %d, got %d", name, want, got)
		}
	}
}

func TestNewFrame(t *testing.T) {
	f := NewFrame("/scan/gray/gray_5.png")
	if f.Filename != "gray_5.png" || f.Number != 5 || f.Path != "/scan/gray/gray_5.png" {
		t.Errorf("Unexpected frame %+v", f)
	}
}

func TestParseAxes(t *testing.T) {
	axes, ok := ParseAxes("x, Y")
	if !ok || len(axes) != 2 || axes[0] != AxisX || axes[1] != AxisY {
		t.Errorf("Unexpected axes %v (%v)", axes, ok)
	}
	if _, ok := ParseAxes("z"); ok {
		t.Error("Expected z to be rejected")
	}
}
