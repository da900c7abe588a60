package pad

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/karalabe/hid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Microsoft's USB vendor ID. Any wireless pad model is accepted; the
// report layout below is shared across them.
const vendorMicrosoft = 0x045E

// Input report layout:
//
//	[2]     guide button (bit 0)
//	[3]     share, menu, view, A, X, B, Y (bits 0,2,3,4,5,6,7)
//	[4]     dpad up/down/left/right, LB, RB, LS, RS (bits 0..7)
//	[5:7]   left trigger, uint16 LE, 0..1023
//	[7:9]   right trigger, uint16 LE, 0..1023
//	[9:17]  LX, LY, RX, RY, int16 LE
const inputReportLen = 17

const triggerRawMax = 1023

// XboxPad reads a wireless controller over raw HID. Reports arrive much
// faster than the control loop polls, so a reader goroutine keeps only
// the newest decoded state.
type XboxPad struct {
	dev  *hid.Device
	caps Capabilities

	mu    sync.Mutex
	state State
	err   error
}

// OpenXbox opens the first Microsoft pad on the HID bus.
func OpenXbox() (*XboxPad, error) {
	infos := hid.Enumerate(vendorMicrosoft, 0)
	if len(infos) == 0 {
		return nil, errors.New("no gamepad on the HID bus")
	}

	info := infos[0]
	dev, err := info.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", info.Product)
	}
	log.WithFields(log.Fields{
		"product": info.Product,
		"device":  info.Path,
	}).Info("gamepad connected")

	x := &XboxPad{
		dev:  dev,
		caps: Capabilities{AnalogTriggers: true, Rumble: true},
	}
	go x.readLoop()
	return x, nil
}

func (x *XboxPad) Capabilities() Capabilities {
	return x.caps
}

func (x *XboxPad) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := x.dev.Read(buf)
		if err != nil {
			x.mu.Lock()
			x.err = errors.Wrap(err, "read input report")
			x.mu.Unlock()
			return
		}
		st, err := parseInputReport(buf[:n])
		if err != nil {
			// Battery and other vendor reports share the endpoint.
			continue
		}
		x.mu.Lock()
		x.state = st
		x.mu.Unlock()
	}
}

// Poll returns the newest decoded state. Once the reader has failed the
// same error is returned on every call.
func (x *XboxPad) Poll() (State, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.err != nil {
		return State{}, x.err
	}
	return x.state, nil
}

func parseInputReport(buf []byte) (State, error) {
	if len(buf) < inputReportLen {
		return State{}, errors.Errorf("short report: %d bytes", len(buf))
	}

	var s State
	btn1 := buf[3]
	btn2 := buf[4]

	if btn1&0x10 != 0 {
		s.Buttons |= ButtonA
	}
	if btn1&0x40 != 0 {
		s.Buttons |= ButtonB
	}
	if btn1&0x20 != 0 {
		s.Buttons |= ButtonX
	}
	if btn1&0x80 != 0 {
		s.Buttons |= ButtonY
	}
	if btn1&0x04 != 0 {
		s.Buttons |= ButtonMenu
	}
	if btn1&0x08 != 0 {
		s.Buttons |= ButtonView
	}
	if btn2&0x01 != 0 {
		s.Buttons |= ButtonUp
	}
	if btn2&0x02 != 0 {
		s.Buttons |= ButtonDown
	}
	if btn2&0x04 != 0 {
		s.Buttons |= ButtonLeft
	}
	if btn2&0x08 != 0 {
		s.Buttons |= ButtonRight
	}
	if btn2&0x10 != 0 {
		s.Buttons |= ButtonLB
	}
	if btn2&0x20 != 0 {
		s.Buttons |= ButtonRB
	}

	s.LT = scaleTrigger(int(binary.LittleEndian.Uint16(buf[5:7])), triggerRawMax)
	s.RT = scaleTrigger(int(binary.LittleEndian.Uint16(buf[7:9])), triggerRawMax)

	// Report Y grows downward; up is positive here.
	s.LX = scaleAxis(int16(binary.LittleEndian.Uint16(buf[9:11])))
	s.LY = -scaleAxis(int16(binary.LittleEndian.Uint16(buf[11:13])))
	s.RX = scaleAxis(int16(binary.LittleEndian.Uint16(buf[13:15])))
	s.RY = -scaleAxis(int16(binary.LittleEndian.Uint16(buf[15:17])))

	return s, nil
}

// rumbleReport builds the output report for one pulse on the main
// motors. Magnitudes are percent; duration is coded in 10 ms ticks.
func rumbleReport(power int, duration time.Duration) []byte {
	if power < 0 {
		power = 0
	} else if power > 100 {
		power = 100
	}
	ticks := duration.Milliseconds() / 10
	if ticks > 255 {
		ticks = 255
	}
	return []byte{
		0x03,       // rumble report ID
		0x0F,       // motor enable mask
		0x00, 0x00, // trigger motors unused
		byte(power), // strong (left) magnitude
		byte(power), // weak (right) magnitude
		byte(ticks), // duration
		0x00,        // start delay
		0x00,        // no repeat
	}
}

// Rumble plays one pulse on both main motors.
func (x *XboxPad) Rumble(power int, duration time.Duration) error {
	if _, err := x.dev.Write(rumbleReport(power, duration)); err != nil {
		return errors.Wrap(err, "write rumble report")
	}
	return nil
}

// Close releases the HID handle; the reader goroutine exits on its next
// read.
func (x *XboxPad) Close() error {
	return x.dev.Close()
}
