package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, unit := range ValidUnits {
		if !IsValid(unit) {
			t.Errorf("IsValid(%q) = false, want true", unit)
		}
	}
	for _, unit := range []string{"", "ft", "yards", "M"} {
		if IsValid(unit) {
			t.Errorf("IsValid(%q) = true, want false", unit)
		}
	}
}

func TestConvertLength(t *testing.T) {
	testCases := []struct {
		name   string
		metres float64
		target string
		want   float64
	}{
		{"metres_noop", 1.5, Meters, 1.5},
		{"centimetres", 1.5, Centimeters, 150},
		{"millimetres", 0.075, Millimeters, 75},
		{"inches", 1.0, Inches, 39.37007874},
		{"unknown_defaults_to_metres", 2.0, "furlongs", 2.0},
		{"zero", 0, Millimeters, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConvertLength(tc.metres, tc.target); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("ConvertLength(%g, %q) = %g, want %g", tc.metres, tc.target, got, tc.want)
			}
		})
	}
}
