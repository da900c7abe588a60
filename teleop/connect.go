package teleop

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go_rover/hub"
)

// PadOpener attempts one gamepad connection.
type PadOpener func() (Pad, error)

// ConnectPad retries the opener until it succeeds, blinking the status
// light orange and waiting between attempts. There is no retry bound:
// the vehicle sits and waits for its operator. Cancelling ctx is the
// only other way out.
func ConnectPad(ctx context.Context, open PadOpener, light Light, cfg Tunables) (Pad, error) {
	for attempt := 1; ; attempt++ {
		p, err := open()
		if err == nil {
			return p, nil
		}
		log.WithError(err).WithField("attempt", attempt).Warn("gamepad not available, retrying")

		if blinkErr := light.Blink(hub.ColorOrange, cfg.BlinkOn, cfg.BlinkOff); blinkErr != nil {
			return nil, errors.Wrap(blinkErr, "blink retry pattern")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryWait):
		}
	}
}
