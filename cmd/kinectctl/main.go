// Command kinectctl is a development-only companion to the bridge
// executable: an interactive REPL for poking the motor/LED subdevice
// directly, and a one-shot subcommand for writing the discovery manifest.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"kinect-xr-go/device"
	"kinect-xr-go/manifest"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "manifest" {
		os.Exit(runManifestCommand(os.Args[2:]))
	}
	os.Exit(runREPL())
}

func runManifestCommand(args []string) int {
	if len(args) != 3 || args[0] != "write" {
		fmt.Fprintln(os.Stderr, "usage: kinectctl manifest write <path> <library_path>")
		return 1
	}
	path, libraryPath := args[1], args[2]
	m := manifest.New("kinect-xr-go", libraryPath)
	if err := manifest.Write(path, m); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write manifest: %v\n", err)
		return 1
	}
	fmt.Printf("wrote manifest to %s\n", path)
	return 0
}

func runREPL() int {
	session := device.NewSession()
	if err := session.Initialize(device.Config{EnableMotor: true}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize device: %v\n", err)
		return 1
	}
	defer session.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("kinectctl — type 'help' for commands, 'quit' to exit")
	for {
		input, err := line.Prompt("kinectctl> ")
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if !dispatch(session, input) {
			break
		}
	}
	return 0
}

// dispatch runs one command line and returns false when the REPL should exit.
func dispatch(session device.Session, input string) bool {
	fields := strings.Fields(input)
	cmd := fields[0]

	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		printHelp()
	case "tilt":
		runTilt(session, fields[1:])
	case "led":
		runLED(session, fields[1:])
	case "reset":
		runReset(session)
	case "status":
		runStatus(session)
	case "devices":
		runDevices()
	default:
		fmt.Printf("unknown command %q; type 'help'\n", cmd)
	}
	return true
}

func printHelp() {
	fmt.Println(`commands:
  tilt <degrees>   set motor tilt angle, clamped to [-27, 27]
  led <state>      set LED state (off, green, red, yellow, blink_green, blink_red_yellow)
  reset            reset tilt to 0
  status           read tilt angle, motor status, and accelerometer
  devices          list attached depth cameras (vendor/product id, bus location)
  help             show this message
  quit, exit       leave the REPL`)
}

func runTilt(session device.Session, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: tilt <degrees>")
		return
	}
	angle, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("invalid angle %q: %v\n", args[0], err)
		return
	}
	if err := session.SetTilt(angle); err != nil {
		fmt.Printf("set tilt failed: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func runLED(session device.Session, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: led <state>")
		return
	}
	state := device.LEDState(args[0])
	if _, ok := device.ValidLEDStates[state]; !ok {
		fmt.Printf("invalid LED state %q\n", args[0])
		return
	}
	if err := session.SetLED(state); err != nil {
		fmt.Printf("set LED failed: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func runReset(session device.Session) {
	if err := session.Reset(); err != nil {
		fmt.Printf("reset failed: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func runStatus(session device.Session) {
	status, err := session.GetStatus()
	if err != nil {
		fmt.Printf("get status failed: %v\n", err)
		return
	}
	fmt.Printf("tilt: %d degrees, status: %s, accelerometer: {x:%d y:%d z:%d}\n",
		status.TiltAngle, status.TiltStatus, status.Accelerometer.X, status.Accelerometer.Y, status.Accelerometer.Z)
}

func runDevices() {
	infos, err := device.EnumerateDevices(device.CameraVID, device.CameraPID)
	if err != nil {
		fmt.Printf("enumerate devices failed: %v\n", err)
		return
	}
	if len(infos) == 0 {
		fmt.Println("no depth cameras found")
		return
	}
	for i, info := range infos {
		fmt.Printf("[%d] vendor=0x%04x product=0x%04x bus=%d address=%d\n",
			i, info.VendorID, info.ProductID, info.Bus, info.Address)
	}
}
