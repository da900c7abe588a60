package hub

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Color is a palette entry understood by the status light.
type Color uint8

const (
	ColorOff Color = iota
	ColorRed
	ColorGreen
	ColorBlue
	ColorYellow
	ColorCyan
	ColorOrange
	ColorMagenta
	ColorViolet
	ColorWhite
)

var colorNames = map[Color]string{
	ColorOff:     "off",
	ColorRed:     "red",
	ColorGreen:   "green",
	ColorBlue:    "blue",
	ColorYellow:  "yellow",
	ColorCyan:    "cyan",
	ColorOrange:  "orange",
	ColorMagenta: "magenta",
	ColorViolet:  "violet",
	ColorWhite:   "white",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return "unknown"
}

// Direction sets which way a motor turns for positive speeds.
type Direction uint8

const (
	Clockwise        Direction = 0
	Counterclockwise Direction = 1
)

// StopAction is how Stop halts the motors. Which actions the firmware
// supports is read from the hub once at bring-up.
type StopAction uint8

const (
	// StopZeroSpeed commands speed 0. Always available.
	StopZeroSpeed StopAction = iota
	StopBrake
	StopCoast
)

func (a StopAction) String() string {
	switch a {
	case StopBrake:
		return "brake"
	case StopCoast:
		return "coast"
	default:
		return "zero-speed"
	}
}

// Bits of the hub's stop-capability register.
const (
	stopModeBrake = 0x01
	stopModeCoast = 0x02
)

// HubID is the bus ID of the hub itself (light, capability registers).
const HubID uint8 = 1

// Port names a motor attachment point on the hub.
type Port byte

// DeviceID returns the bus ID assigned to the device on a port.
func (p Port) DeviceID() (uint8, error) {
	if p < 'A' || p > 'D' {
		return 0, errors.Errorf("no such port %q", string(p))
	}
	return uint8(p-'A') + 2, nil
}

// ParsePort converts a flag value like "B" into a Port.
func ParsePort(s string) (Port, error) {
	if len(s) != 1 {
		return 0, errors.Errorf("invalid port %q", s)
	}
	p := Port(s[0])
	if _, err := p.DeviceID(); err != nil {
		return 0, err
	}
	return p, nil
}

// MotorModel lists the register addresses of one motor channel.
type MotorModel struct {
	AddrDirection    uint16
	AddrSpeedLimit   uint16
	AddrAccelLimit   uint16
	AddrGoalSpeed    uint16
	AddrStopAction   uint16
	AddrPresentSpeed uint16
}

// HubModel lists the hub's own registers. Blink color and the two blink
// durations are contiguous so one write arms a pattern.
type HubModel struct {
	AddrStopModes  uint16
	AddrLightColor uint16
	AddrBlink      uint16
}

var (
	ModelDriveMotor = MotorModel{
		AddrDirection:    10,
		AddrSpeedLimit:   12,
		AddrAccelLimit:   16,
		AddrGoalSpeed:    20,
		AddrStopAction:   24,
		AddrPresentSpeed: 28,
	}
	ModelTechnic = HubModel{
		AddrStopModes:  6,
		AddrLightColor: 8,
		AddrBlink:      9,
	}
)

// Config describes the vehicle attached to the link.
type Config struct {
	PortName string
	BaudRate int

	LeftPort       Port
	RightPort      Port
	LeftDirection  Direction
	RightDirection Direction

	SpeedLimit int
	AccelLimit int
}

// Hub drives the two motors and the status light over one serial link.
type Hub struct {
	drv   *Driver
	model HubModel
	motor MotorModel

	leftID  uint8
	rightID uint8
	stop    StopAction
}

// Connect opens the link, checks every device answers, configures the
// motors, and resolves the stop action the firmware supports.
func Connect(cfg Config) (*Hub, error) {
	port, err := OpenSerial(cfg.PortName, cfg.BaudRate)
	if err != nil {
		return nil, err
	}
	h, err := connect(NewDriver(port), cfg)
	if err != nil {
		port.Close()
		return nil, err
	}
	return h, nil
}

func connect(drv *Driver, cfg Config) (*Hub, error) {
	leftID, err := cfg.LeftPort.DeviceID()
	if err != nil {
		return nil, errors.Wrap(err, "left motor")
	}
	rightID, err := cfg.RightPort.DeviceID()
	if err != nil {
		return nil, errors.Wrap(err, "right motor")
	}

	h := &Hub{
		drv:     drv,
		model:   ModelTechnic,
		motor:   ModelDriveMotor,
		leftID:  leftID,
		rightID: rightID,
	}

	model, err := drv.Ping(HubID)
	if err != nil {
		return nil, errors.Wrap(err, "ping hub")
	}
	log.WithField("model", model).Debug("hub found")

	// Red means waiting: shown until the operator's pad is connected.
	if err := h.SetLight(ColorRed); err != nil {
		return nil, errors.Wrap(err, "set waiting light")
	}

	if err := h.setupMotor(leftID, cfg.LeftDirection, cfg); err != nil {
		return nil, errors.Wrapf(err, "configure motor %c", cfg.LeftPort)
	}
	if err := h.setupMotor(rightID, cfg.RightDirection, cfg); err != nil {
		return nil, errors.Wrapf(err, "configure motor %c", cfg.RightPort)
	}

	h.stop = h.probeStopAction()
	log.WithField("action", h.stop).Debug("stop action resolved")
	return h, nil
}

func (h *Hub) setupMotor(id uint8, dir Direction, cfg Config) error {
	model, err := h.drv.Ping(id)
	if err != nil {
		return errors.Wrap(err, "ping")
	}
	log.WithFields(log.Fields{"id": id, "model": model}).Debug("motor found")

	if err := h.drv.WriteByte(id, h.motor.AddrDirection, uint8(dir)); err != nil {
		return errors.Wrap(err, "set direction")
	}
	if err := h.drv.Write4Byte(id, h.motor.AddrSpeedLimit, uint32(cfg.SpeedLimit)); err != nil {
		return errors.Wrap(err, "set speed limit")
	}
	if err := h.drv.Write4Byte(id, h.motor.AddrAccelLimit, uint32(cfg.AccelLimit)); err != nil {
		return errors.Wrap(err, "set acceleration limit")
	}
	return nil
}

// probeStopAction reads the stop-capability register once and picks the
// strongest supported action. Firmware without the register gets the
// zero-speed fallback, which any motor accepts.
func (h *Hub) probeStopAction() StopAction {
	caps, err := h.drv.ReadByte(HubID, h.model.AddrStopModes)
	if err != nil {
		log.WithError(err).Warn("stop capability probe failed, using zero-speed stop")
		return StopZeroSpeed
	}
	switch {
	case caps&stopModeBrake != 0:
		return StopBrake
	case caps&stopModeCoast != 0:
		return StopCoast
	default:
		return StopZeroSpeed
	}
}

// StopMode reports the action Stop will use.
func (h *Hub) StopMode() StopAction {
	return h.stop
}

func speedBytes(speed int) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(int32(speed)))
	return buf
}

// Drive commands both motor speeds in one broadcast frame.
func (h *Hub) Drive(left, right int) error {
	return h.drv.SyncWrite(h.motor.AddrGoalSpeed, 4, []SyncWriteData{
		{ID: h.leftID, Data: speedBytes(left)},
		{ID: h.rightID, Data: speedBytes(right)},
	})
}

// Stop halts both motors using the action resolved at bring-up.
func (h *Hub) Stop() error {
	if h.stop == StopZeroSpeed {
		return h.Drive(0, 0)
	}
	return h.drv.SyncWrite(h.motor.AddrStopAction, 1, []SyncWriteData{
		{ID: h.leftID, Data: []byte{byte(h.stop)}},
		{ID: h.rightID, Data: []byte{byte(h.stop)}},
	})
}

// SetLight shows a solid color on the status light.
func (h *Hub) SetLight(c Color) error {
	return h.drv.WriteByte(HubID, h.model.AddrLightColor, byte(c))
}

// Blink arms a blink pattern on the status light. The firmware animates
// it, so the pattern keeps running while the host is busy elsewhere.
func (h *Hub) Blink(c Color, on, off time.Duration) error {
	buf := make([]byte, 5)
	buf[0] = byte(c)
	binary.LittleEndian.PutUint16(buf[1:], uint16(on.Milliseconds()))
	binary.LittleEndian.PutUint16(buf[3:], uint16(off.Milliseconds()))
	return h.drv.Write(HubID, h.model.AddrBlink, buf)
}

// PresentSpeed reads back one motor's measured speed. Used by the
// hardware scripts, not the control loop.
func (h *Hub) PresentSpeed(left bool) (int, error) {
	id := h.rightID
	if left {
		id = h.leftID
	}
	raw, err := h.drv.Read4Byte(id, h.motor.AddrPresentSpeed)
	if err != nil {
		return 0, err
	}
	return int(int32(raw)), nil
}

func (h *Hub) Close() error {
	return h.drv.Close()
}
