package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go_rover/pad"
)

type padDevice interface {
	Poll() (pad.State, error)
	Capabilities() pad.Capabilities
	Close() error
}

func main() {
	backendVal := flag.String("pad", "hid", "Gamepad backend: hid or js")
	jsVal := flag.Int("js", 0, "Joystick index for the js backend")
	rateVal := flag.Int("rate", 20, "Poll rate in Hz")
	flag.Parse()

	fmt.Printf("Opening %s gamepad...\n", *backendVal)

	var (
		p   padDevice
		err error
	)
	switch *backendVal {
	case "js":
		p, err = pad.OpenJS(*jsVal)
	default:
		p, err = pad.OpenXbox()
	}
	if err != nil {
		fmt.Printf("Error opening gamepad: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	caps := p.Capabilities()
	fmt.Printf("Capabilities: analog triggers=%v, rumble=%v\n", caps.AnalogTriggers, caps.Rumble)
	fmt.Println("Dumping state, Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	ticker := time.NewTicker(time.Second / time.Duration(*rateVal))
	defer ticker.Stop()

Loop:
	for {
		select {
		case <-sigChan:
			fmt.Println("\nDone.")
			break Loop
		case <-ticker.C:
			s, err := p.Poll()
			if err != nil {
				fmt.Printf("Poll error: %v\n", err)
				break Loop
			}
			fmt.Printf("L(%4d,%4d) R(%4d,%4d) LT %5.1f RT %5.1f buttons %014b\r",
				s.LX, s.LY, s.RX, s.RY, s.LT, s.RT, s.Buttons)
		}
	}
}
