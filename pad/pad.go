// Package pad reads wireless gamepads and normalizes them to one state
// shape: sticks in [-100, 100] (up and right positive), a pressed-button
// set, and trigger travel in percent.
package pad

// Buttons is the pressed-button set, one bit per button.
type Buttons uint16

const (
	ButtonA Buttons = 1 << iota
	ButtonB
	ButtonX
	ButtonY
	ButtonLB
	ButtonRB
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonLT
	ButtonRT
	ButtonMenu
	ButtonView
)

// Pressed reports whether every button in mask is held.
func (b Buttons) Pressed(mask Buttons) bool {
	return b&mask == mask
}

// Rising returns the buttons held now that were not held in prev.
func (b Buttons) Rising(prev Buttons) Buttons {
	return b &^ prev
}

// State is one gamepad sample.
type State struct {
	Buttons Buttons

	// Stick axes in [-100, 100], up and right positive.
	LX, LY int
	RX, RY int

	// Trigger travel in percent [0, 100]. Zero on pads whose triggers
	// are plain buttons; those set ButtonLT/ButtonRT instead.
	LT, RT float64
}

// Capabilities describes optional pad features, resolved once when the
// backend opens the device.
type Capabilities struct {
	AnalogTriggers bool
	Rumble         bool
}

// axisDeadzone is the centered band (in percent of full travel) treated
// as zero, so a resting stick cannot creep the motors.
const axisDeadzone = 10

// scaleAxis converts a centered int16 axis to [-100, 100].
func scaleAxis(raw int16) int {
	v := int(raw) * 100 / 32767
	if v > 100 {
		v = 100
	} else if v < -100 {
		v = -100
	}
	if v > -axisDeadzone && v < axisDeadzone {
		return 0
	}
	return v
}

// scaleTrigger converts a 0..max trigger reading to percent.
func scaleTrigger(raw, max int) float64 {
	if raw < 0 {
		raw = 0
	}
	if raw > max {
		raw = max
	}
	return float64(raw) * 100 / float64(max)
}
