// Package units provides shared constants and validation for length units.
package units

// Unit constants. Wall dimensions and waypoints are stored in metres.
const (
	Meters      = "m"
	Centimeters = "cm"
	Millimeters = "mm"
	Inches      = "in"
)

// ValidUnits contains all valid unit values.
var ValidUnits = []string{Meters, Centimeters, Millimeters, Inches}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for
// error messages.
func GetValidUnitsString() string {
	return "m, cm, mm, in"
}

// ConvertLength converts a length from metres to the target units.
func ConvertLength(metres float64, targetUnits string) float64 {
	switch targetUnits {
	case Centimeters:
		return metres * 100
	case Millimeters:
		return metres * 1000
	case Inches:
		return metres * 39.37007874 // metres to inches
	case Meters:
		return metres // no conversion needed
	default:
		return metres // default to metres if unknown unit
	}
}
