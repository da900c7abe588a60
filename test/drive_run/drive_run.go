package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go_rover/hub"
)

func main() {
	portVal := flag.String("port", "/dev/ttyACM0", "Hub serial port")
	baudVal := flag.Int("baud", 115200, "Baudrate")
	leftVal := flag.String("left", "B", "Left motor port (A-D)")
	rightVal := flag.String("right", "D", "Right motor port (A-D)")
	speedVal := flag.Int("speed", 500, "Goal speed for both motors")
	flag.Parse()

	leftPort, err := hub.ParsePort(*leftVal)
	if err != nil {
		fmt.Printf("Bad -left value: %v\n", err)
		os.Exit(1)
	}
	rightPort, err := hub.ParsePort(*rightVal)
	if err != nil {
		fmt.Printf("Bad -right value: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connecting to hub on %s at %d baud...\n", *portVal, *baudVal)
	h, err := hub.Connect(hub.Config{
		PortName:       *portVal,
		BaudRate:       *baudVal,
		LeftPort:       leftPort,
		RightPort:      rightPort,
		LeftDirection:  hub.Counterclockwise,
		RightDirection: hub.Clockwise,
		SpeedLimit:     2000,
		AccelLimit:     20000,
	})
	if err != nil {
		fmt.Printf("Error connecting to hub: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	fmt.Printf("Stop action: %s\n", h.StopMode())
	fmt.Printf("Driving both motors at %d, Ctrl+C to stop...\n", *speedVal)

	if err := h.Drive(*speedVal, *speedVal); err != nil {
		fmt.Printf("Drive failed: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

Loop:
	for {
		select {
		case <-sigChan:
			fmt.Println("\nStopping...")
			if err := h.Stop(); err != nil {
				fmt.Printf("Stop failed: %v\n", err)
			}
			time.Sleep(200 * time.Millisecond)
			break Loop
		case <-ticker.C:
			// Keep the goal fresh and show what the motors report back.
			if err := h.Drive(*speedVal, *speedVal); err != nil {
				fmt.Printf("Drive failed: %v\n", err)
				break Loop
			}
			left, lerr := h.PresentSpeed(true)
			right, rerr := h.PresentSpeed(false)
			if lerr != nil || rerr != nil {
				fmt.Printf("Speed read error: %v %v\n", lerr, rerr)
				continue
			}
			fmt.Printf("present speed left=%d right=%d\r", left, right)
		}
	}
}
