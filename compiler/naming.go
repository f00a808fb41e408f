package compiler

import "fmt"

// Default name suffixes of the per-target measurement sensors.
const (
	SuffixXPosition          = "X Position"
	SuffixYPosition          = "Y Position"
	SuffixSpeed              = "Speed"
	SuffixDistance           = "Distance"
	SuffixDistanceResolution = "Distance Resolution"
	SuffixAngle              = "Angle"
)

// Labels appended to the root name for top-level entities without a name.
const (
	LabelOccupancy    = "Occupancy"
	LabelTargetCount  = "Target Count"
	LabelRestart      = "Restart"
	LabelFactoryReset = "Factory Reset"
	LabelTrackingMode = "Tracking Mode"
)

// ResolveName derives the display name of a child entity. Without an own
// name the default suffix is appended to the parent; an explicit empty name
// inherits the parent name unchanged.
func ResolveName(parent string, own *string, suffix string) string {
	if own == nil {
		if suffix == "" {
			return parent
		}
		return parent + " " + suffix
	}
	if *own == "" {
		return parent
	}
	return parent + " " + *own
}

// TargetName returns the declared name or "Target {index+1}".
func TargetName(index int, own *string) string {
	if own != nil {
		return *own
	}
	return fmt.Sprintf("Target %d", index+1)
}

// TopLevelName returns the declared name verbatim or root + " " + label.
// An explicit empty name inherits the root name, as nested entities do.
func TopLevelName(root string, own *string, label string) string {
	if own == nil {
		return root + " " + label
	}
	if *own == "" {
		return root
	}
	return *own
}

func optional(value string, ok bool) *string {
	if !ok {
		return nil
	}
	return &value
}
