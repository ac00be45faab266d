package models

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// Frame describes one captured image file
type Frame struct {
	// Path is the full path the frame was read from
	Path string

	// Filename is the base name of the file
	Filename string

	// Number is the frame number taken from the filename, -1 if it has none
	Number int

	// Width and Height of the decoded image in pixels
	Width, Height int
}

// NewFrame returns a Frame for path with Number parsed from the file name.
func NewFrame(path string) Frame {
	name := filepath.Base(path)
	return Frame{Path: path, Filename: name, Number: FrameNumber(name)}
}

// FrameNumber returns the last run of digits in the file name (without
// extension), or -1. "pattern_03.png" and "cam0_shift_12.tif" give 3 and 12.
func FrameNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	end := -1
	for i := len(base) - 1; i >= 0; i-- {
		if unicode.IsDigit(rune(base[i])) {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return -1
	}
	start := end - 1
	for start > 0 && unicode.IsDigit(rune(base[start-1])) {
		start--
	}
	n, err := strconv.Atoi(base[start:end])
	if err != nil {
		return -1
	}
	return n
}

// Axis is the direction a pattern set varies along
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// ParseAxes splits a comma separated axis list such as "x,y".
func ParseAxes(s string) ([]Axis, bool) {
	var axes []Axis
	for _, part := range strings.Split(s, ",") {
		switch a := Axis(strings.ToLower(strings.TrimSpace(part))); a {
		case AxisX, AxisY:
			axes = append(axes, a)
		default:
			return nil, false
		}
	}
	return axes, true
}
