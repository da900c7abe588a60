// Package teleop maps gamepad input to motor and light commands at a
// fixed rate: direct per-side stick steering, a toggled cruise mode with
// a persistent setpoint, and light/rumble feedback on button events.
package teleop

import (
	"context"
	"runtime"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go_rover/hub"
	"go_rover/pad"
)

// Vehicle is the drivetrain surface the loop needs.
type Vehicle interface {
	Drive(left, right int) error
	Stop() error
}

// Light is the status light surface.
type Light interface {
	SetLight(c hub.Color) error
	Blink(c hub.Color, on, off time.Duration) error
}

// Pad is the gamepad surface.
type Pad interface {
	Poll() (pad.State, error)
	Rumble(power int, duration time.Duration) error
	Capabilities() pad.Capabilities
	Close() error
}

// Tunables collects the control constants.
type Tunables struct {
	// LoopPeriod is the tick length of the control loop.
	LoopPeriod time.Duration

	// AxisGain scales stick units (±100) to motor speed.
	AxisGain int

	SpeedMax int
	SpeedMin int

	// Cruise setpoint start value and the step per d-pad edge.
	CruiseStart int
	CruiseStep  int

	// TurnAssistDelta is subtracted from one side while the matching
	// d-pad direction is held.
	TurnAssistDelta int

	// SkidThreshold is the stick deflection beyond which opposite
	// sticks count as a skid-steer attempt.
	SkidThreshold int

	// FlashHold is the duration of one step in a light effect.
	FlashHold time.Duration

	// Gamepad connect retry: light pattern and wait between attempts.
	RetryWait time.Duration
	BlinkOn   time.Duration
	BlinkOff  time.Duration
}

// DefaultTunables matches the vehicle this was built for: ±100 sticks
// map onto ±2000 motor speed, 20 ticks per second.
func DefaultTunables() Tunables {
	return Tunables{
		LoopPeriod:      50 * time.Millisecond,
		AxisGain:        20,
		SpeedMax:        2000,
		SpeedMin:        -2000,
		CruiseStart:     1000,
		CruiseStep:      100,
		TurnAssistDelta: 300,
		SkidThreshold:   20,
		FlashHold:       200 * time.Millisecond,
		RetryWait:       5 * time.Second,
		BlinkOn:         100 * time.Millisecond,
		BlinkOff:        100 * time.Millisecond,
	}
}

// colorCycle is the override palette B steps through.
var colorCycle = []hub.Color{
	hub.ColorBlue,
	hub.ColorCyan,
	hub.ColorOrange,
	hub.ColorRed,
	hub.ColorGreen,
}

// triggerThreshold decides when an analog trigger activates the light
// override. The value assumes a 0..1 scale, but trigger travel arrives
// as 0..100 percent, so the faintest pull already counts as active.
// Kept as-is; see the startup warning in Run.
const triggerThreshold = 0.05

type loopState struct {
	cruise      bool
	cruiseSpeed int

	// colorIndex selects from colorCycle; -1 disables the override.
	colorIndex int

	prev         pad.Buttons
	trigOverride bool
}

// Teleop runs the control loop against one vehicle, light, and pad.
type Teleop struct {
	veh   Vehicle
	light Light
	pad   Pad
	cfg   Tunables

	analogTriggers bool
	rumbleable     bool

	st loopState
}

func New(veh Vehicle, light Light, p Pad, cfg Tunables) *Teleop {
	caps := p.Capabilities()
	return &Teleop{
		veh:            veh,
		light:          light,
		pad:            p,
		cfg:            cfg,
		analogTriggers: caps.AnalogTriggers,
		rumbleable:     caps.Rumble,
		st: loopState{
			cruiseSpeed: cfg.CruiseStart,
			colorIndex:  -1,
		},
	}
}

// Run executes the loop until ctx is cancelled or a device call fails.
// On the way out the motors are stopped and the light turned off.
func (t *Teleop) Run(ctx context.Context) error {
	// Pin the loop to one OS thread to keep tick jitter down.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if t.analogTriggers {
		log.Warn("trigger threshold 0.05 against the 0..100 percent scale fires on the faintest pull")
	}

	// Connected: show the base color until an event changes it.
	if err := t.light.SetLight(t.baseColor()); err != nil {
		return errors.Wrap(err, "set base color")
	}

	defer func() {
		if err := t.veh.Stop(); err != nil {
			log.WithError(err).Warn("stop on shutdown failed")
		}
		if err := t.light.SetLight(hub.ColorOff); err != nil {
			log.WithError(err).Warn("light off on shutdown failed")
		}
	}()

	ticker := time.NewTicker(t.cfg.LoopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s, err := t.pad.Poll()
			if err != nil {
				return errors.Wrap(err, "poll gamepad")
			}
			if err := t.step(s); err != nil {
				return err
			}
		}
	}
}

// step handles one tick: edges first, then the drive write, then the
// momentary light effects.
func (t *Teleop) step(s pad.State) error {
	rising := s.Buttons.Rising(t.st.prev)

	// LB toggles cruise. Leaving cruise stops the motors once.
	if rising.Pressed(pad.ButtonLB) {
		t.st.cruise = !t.st.cruise
		if !t.st.cruise {
			if err := t.veh.Stop(); err != nil {
				return errors.Wrap(err, "stop on cruise off")
			}
		}
		log.WithField("cruise", t.st.cruise).Debug("mode toggled")
		if err := t.light.SetLight(t.baseColor()); err != nil {
			return err
		}
	}

	// B acknowledges with a pulse and advances the override color.
	if rising.Pressed(pad.ButtonB) {
		t.rumble(cycleRumblePower, cycleRumbleDur)
		t.st.colorIndex = (t.st.colorIndex + 1) % len(colorCycle)
		if err := t.light.SetLight(t.baseColor()); err != nil {
			return err
		}
	}

	// D-pad up/down nudge the cruise setpoint. It persists across
	// mode changes and releases.
	if rising.Pressed(pad.ButtonUp) {
		t.st.cruiseSpeed = min(t.st.cruiseSpeed+t.cfg.CruiseStep, t.cfg.SpeedMax)
	}
	if rising.Pressed(pad.ButtonDown) {
		t.st.cruiseSpeed = max(t.st.cruiseSpeed-t.cfg.CruiseStep, t.cfg.SpeedMin)
	}

	var left, right int
	if t.st.cruise {
		left, right = t.st.cruiseSpeed, t.st.cruiseSpeed
	} else {
		left = s.LY * t.cfg.AxisGain
		right = s.RY * t.cfg.AxisGain
		if t.skidSteer(s) {
			t.rumble(skidRumblePower, skidRumbleDur)
		}
	}

	// Turn assist drags one side down while its d-pad direction is held.
	if s.Buttons.Pressed(pad.ButtonLeft) {
		left = max(left-t.cfg.TurnAssistDelta, t.cfg.SpeedMin)
	}
	if s.Buttons.Pressed(pad.ButtonRight) {
		right = max(right-t.cfg.TurnAssistDelta, t.cfg.SpeedMin)
	}

	if err := t.veh.Drive(left, right); err != nil {
		return errors.Wrap(err, "drive")
	}

	// Momentary effects. These hold the loop on purpose; input and
	// drive refresh wait until the sequence ends.
	if s.Buttons.Pressed(pad.ButtonA) {
		if err := t.flash(blueFlash); err != nil {
			return err
		}
	}
	if s.Buttons.Pressed(pad.ButtonY) {
		if err := t.flash(warningSequence); err != nil {
			return err
		}
	}

	// Trigger override before RB: the later write wins while both are
	// held, and releases restore the base color exactly once.
	trig, trigColor := t.triggerOverride(s)
	switch {
	case trig:
		if err := t.light.SetLight(trigColor); err != nil {
			return err
		}
	case t.st.trigOverride:
		if err := t.light.SetLight(t.baseColor()); err != nil {
			return err
		}
	}
	t.st.trigOverride = trig

	if s.Buttons.Pressed(pad.ButtonRB) {
		if err := t.light.SetLight(hub.ColorRed); err != nil {
			return err
		}
	} else if t.st.prev.Pressed(pad.ButtonRB) {
		if err := t.light.SetLight(t.baseColor()); err != nil {
			return err
		}
	}

	t.st.prev = s.Buttons
	return nil
}

// baseColor is what the light shows absent a momentary effect: the
// override color when the cycle is engaged, else the mode color.
func (t *Teleop) baseColor() hub.Color {
	if t.st.colorIndex >= 0 {
		return colorCycle[t.st.colorIndex]
	}
	if t.st.cruise {
		return hub.ColorYellow
	}
	return hub.ColorGreen
}

// skidSteer reports sticks pushed hard in opposite directions.
func (t *Teleop) skidSteer(s pad.State) bool {
	th := t.cfg.SkidThreshold
	return (s.LY > th && s.RY < -th) || (s.LY < -th && s.RY > th)
}

// triggerOverride resolves the LT/RT light override for this tick.
func (t *Teleop) triggerOverride(s pad.State) (bool, hub.Color) {
	var lt, rt bool
	if t.analogTriggers {
		lt = s.LT > triggerThreshold
		rt = s.RT > triggerThreshold
	} else {
		lt = s.Buttons.Pressed(pad.ButtonLT)
		rt = s.Buttons.Pressed(pad.ButtonRT)
	}
	switch {
	case lt && rt:
		return true, hub.ColorWhite
	case lt:
		return true, hub.ColorViolet
	case rt:
		return true, hub.ColorMagenta
	default:
		return false, hub.ColorOff
	}
}
