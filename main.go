package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go_rover/hub"
	"go_rover/pad"
	"go_rover/teleop"
)

// The drive motors top out at 2000 deg/s; acceleration is effectively
// uncapped so the sticks feel direct.
const (
	speedLimit = 2000
	accelLimit = 20000
)

func main() {
	portVal := flag.String("port", "/dev/ttyACM0", "Hub serial port")
	baudVal := flag.Int("baud", 115200, "Baudrate")
	leftVal := flag.String("left", "B", "Left motor port (A-D)")
	rightVal := flag.String("right", "D", "Right motor port (A-D)")
	padVal := flag.String("pad", "hid", "Gamepad backend: hid or js")
	jsVal := flag.Int("js", 0, "Joystick index for the js backend")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	leftPort, err := hub.ParsePort(*leftVal)
	if err != nil {
		log.WithError(err).Fatal("bad -left value")
	}
	rightPort, err := hub.ParsePort(*rightVal)
	if err != nil {
		log.WithError(err).Fatal("bad -right value")
	}
	opener, err := padOpener(*padVal, *jsVal)
	if err != nil {
		log.WithError(err).Fatal("bad -pad value")
	}

	log.WithFields(log.Fields{"port": *portVal, "baud": *baudVal}).Info("connecting to hub")
	h, err := hub.Connect(hub.Config{
		PortName:       *portVal,
		BaudRate:       *baudVal,
		LeftPort:       leftPort,
		RightPort:      rightPort,
		LeftDirection:  hub.Counterclockwise, // left motor is mounted mirrored
		RightDirection: hub.Clockwise,
		SpeedLimit:     speedLimit,
		AccelLimit:     accelLimit,
	})
	if err != nil {
		log.WithError(err).Fatal("hub bring-up failed")
	}
	defer h.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := teleop.DefaultTunables()
	p, err := teleop.ConnectPad(ctx, opener, h, cfg)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("interrupted")
			return
		}
		log.WithError(err).Fatal("gamepad bring-up failed")
	}
	defer p.Close()

	log.Info("teleop running, interrupt to stop")
	if err := teleop.New(h, h, p, cfg).Run(ctx); err != nil {
		log.WithError(err).Fatal("teleop stopped")
	}
	log.Info("teleop stopped")
}

func padOpener(backend string, index int) (teleop.PadOpener, error) {
	switch backend {
	case "hid":
		return func() (teleop.Pad, error) { return pad.OpenXbox() }, nil
	case "js":
		return func() (teleop.Pad, error) { return pad.OpenJS(index) }, nil
	default:
		return nil, errors.Errorf("unknown backend %q", backend)
	}
}
