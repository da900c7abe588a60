package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go_rover/hub"
)

// Walks the status light palette and a blink pattern using the raw
// driver, so it works with no motors attached.
func main() {
	portVal := flag.String("port", "/dev/ttyACM0", "Hub serial port")
	baudVal := flag.Int("baud", 115200, "Baudrate")
	holdVal := flag.Int("hold", 500, "Per-color hold in ms")
	flag.Parse()

	port, err := hub.OpenSerial(*portVal, *baudVal)
	if err != nil {
		fmt.Printf("Error opening port: %v\n", err)
		os.Exit(1)
	}
	drv := hub.NewDriver(port)
	defer drv.Close()

	model, err := drv.Ping(hub.HubID)
	if err != nil {
		fmt.Printf("Hub did not answer: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Hub found, model %d\n", model)

	colors := []hub.Color{
		hub.ColorRed, hub.ColorGreen, hub.ColorBlue, hub.ColorYellow,
		hub.ColorCyan, hub.ColorOrange, hub.ColorMagenta, hub.ColorViolet,
		hub.ColorWhite,
	}
	hold := time.Duration(*holdVal) * time.Millisecond

	for _, c := range colors {
		fmt.Printf("light: %s\n", c)
		if err := drv.WriteByte(hub.HubID, hub.ModelTechnic.AddrLightColor, byte(c)); err != nil {
			fmt.Printf("Set color failed: %v\n", err)
			os.Exit(1)
		}
		time.Sleep(hold)
	}

	fmt.Println("light: blinking orange")
	blink := []byte{byte(hub.ColorOrange), 100, 0, 100, 0} // color, on ms, off ms (LE)
	if err := drv.Write(hub.HubID, hub.ModelTechnic.AddrBlink, blink); err != nil {
		fmt.Printf("Blink failed: %v\n", err)
		os.Exit(1)
	}
	time.Sleep(3 * time.Second)

	fmt.Println("light: off")
	if err := drv.WriteByte(hub.HubID, hub.ModelTechnic.AddrLightColor, byte(hub.ColorOff)); err != nil {
		fmt.Printf("Set color failed: %v\n", err)
	}
}
