package teleop

import (
	"time"

	log "github.com/sirupsen/logrus"

	"go_rover/hub"
)

// Rumble pulses: the color-cycle acknowledgement and the skid-steer
// warning.
const (
	cycleRumblePower = 80
	skidRumblePower  = 50
)

const (
	cycleRumbleDur = 250 * time.Millisecond
	skidRumbleDur  = 100 * time.Millisecond
)

// blueFlash acknowledges A.
var blueFlash = []hub.Color{hub.ColorBlue}

// warningSequence is Y's four-step strobe.
var warningSequence = []hub.Color{
	hub.ColorCyan,
	hub.ColorRed,
	hub.ColorOrange,
	hub.ColorRed,
}

// flash shows each color for one FlashHold, then restores the base
// color. Blocks for the whole sequence.
func (t *Teleop) flash(seq []hub.Color) error {
	for _, c := range seq {
		if err := t.light.SetLight(c); err != nil {
			return err
		}
		time.Sleep(t.cfg.FlashHold)
	}
	return t.light.SetLight(t.baseColor())
}

// rumble fires one pulse. Feedback is cosmetic: pads without motors
// skip it, and a failed pulse never fails the tick.
func (t *Teleop) rumble(power int, d time.Duration) {
	if !t.rumbleable {
		return
	}
	if err := t.pad.Rumble(power, d); err != nil {
		log.WithError(err).Debug("rumble failed")
	}
}
