package pad

import (
	"time"

	"github.com/0xcafed00d/joystick"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Kernel joystick axis order for xpad-style pads.
const (
	jsAxisLX = iota
	jsAxisLY
	jsAxisRX
	jsAxisRY
	jsAxisLT
	jsAxisRT
	jsAxisDPadX
	jsAxisDPadY
)

// Button bit order reported by the kernel driver.
const (
	jsButtonA = iota
	jsButtonB
	jsButtonX
	jsButtonY
	jsButtonLB
	jsButtonRB
	jsButtonView
	jsButtonMenu
	jsButtonLS
	jsButtonRS
	jsButtonLT // pads without trigger axes report clicks here
	jsButtonRT
)

// JSPad reads a pad through the kernel joystick device. The node has no
// force-feedback path, so rumble pulses are dropped.
type JSPad struct {
	js   joystick.Joystick
	caps Capabilities
	axes int
}

// OpenJS opens /dev/input/js<index>. Pads exposing fewer than six axes
// have no analog triggers; LT/RT then come from the button set.
func OpenJS(index int) (*JSPad, error) {
	js, err := joystick.Open(index)
	if err != nil {
		return nil, errors.Wrapf(err, "open joystick %d", index)
	}

	p := &JSPad{
		js:   js,
		axes: js.AxisCount(),
	}
	p.caps = Capabilities{AnalogTriggers: p.axes > jsAxisRT}

	log.WithFields(log.Fields{
		"name":    js.Name(),
		"axes":    p.axes,
		"buttons": js.ButtonCount(),
	}).Info("gamepad connected")
	if !p.caps.AnalogTriggers {
		log.Info("no trigger axes, reading LT/RT as buttons")
	}
	if p.axes <= jsAxisDPadY {
		log.Warn("pad does not expose a d-pad hat, cruise adjust and turn assist are unavailable")
	}
	return p, nil
}

func (p *JSPad) Capabilities() Capabilities {
	return p.caps
}

// Poll reads the current device state.
func (p *JSPad) Poll() (State, error) {
	raw, err := p.js.Read()
	if err != nil {
		return State{}, errors.Wrap(err, "read joystick")
	}
	return mapJSState(raw, p.caps), nil
}

// mapJSState decodes one kernel joystick sample.
func mapJSState(raw joystick.State, caps Capabilities) State {
	axis := func(n int) int {
		if n < len(raw.AxisData) {
			return raw.AxisData[n]
		}
		return 0
	}
	held := func(n int) bool {
		return raw.Buttons&(1<<uint(n)) != 0
	}

	var s State

	// Device Y grows downward; up is positive here.
	s.LX = scaleAxis(clampInt16(axis(jsAxisLX)))
	s.LY = -scaleAxis(clampInt16(axis(jsAxisLY)))
	s.RX = scaleAxis(clampInt16(axis(jsAxisRX)))
	s.RY = -scaleAxis(clampInt16(axis(jsAxisRY)))

	if caps.AnalogTriggers {
		// Trigger axes rest at -32767 and saturate at +32767.
		s.LT = scaleTrigger(axis(jsAxisLT)+32767, 65534)
		s.RT = scaleTrigger(axis(jsAxisRT)+32767, 65534)
	} else {
		if held(jsButtonLT) {
			s.Buttons |= ButtonLT
		}
		if held(jsButtonRT) {
			s.Buttons |= ButtonRT
		}
	}

	if held(jsButtonA) {
		s.Buttons |= ButtonA
	}
	if held(jsButtonB) {
		s.Buttons |= ButtonB
	}
	if held(jsButtonX) {
		s.Buttons |= ButtonX
	}
	if held(jsButtonY) {
		s.Buttons |= ButtonY
	}
	if held(jsButtonLB) {
		s.Buttons |= ButtonLB
	}
	if held(jsButtonRB) {
		s.Buttons |= ButtonRB
	}
	if held(jsButtonView) {
		s.Buttons |= ButtonView
	}
	if held(jsButtonMenu) {
		s.Buttons |= ButtonMenu
	}

	// The d-pad is a pair of hat axes.
	switch {
	case axis(jsAxisDPadX) < 0:
		s.Buttons |= ButtonLeft
	case axis(jsAxisDPadX) > 0:
		s.Buttons |= ButtonRight
	}
	switch {
	case axis(jsAxisDPadY) < 0:
		s.Buttons |= ButtonUp
	case axis(jsAxisDPadY) > 0:
		s.Buttons |= ButtonDown
	}

	return s
}

func clampInt16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Rumble is a no-op: the kernel joystick interface cannot drive the
// motors. Callers gate on Capabilities.Rumble.
func (p *JSPad) Rumble(power int, duration time.Duration) error {
	return nil
}

func (p *JSPad) Close() error {
	p.js.Close()
	return nil
}
