// Command kinect-xr-go is the bridge executable: it opens the depth
// camera (or synthesizes frames in --mock mode), serves the WebSocket
// control-and-streaming endpoint, and shuts down cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"kinect-xr-go/bridge"
	"kinect-xr-go/device"
	"kinect-xr-go/framecache"
)

const (
	exitOK                = 0
	exitGenericError      = 1
	exitNoDeviceDetected  = 2
	exitInitializationFail = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("kinect-xr-go", flag.ContinueOnError)
	mock := fs.Bool("mock", false, "generate synthetic frames; no device required")
	port := fs.Int("port", 8765, "bridge WebSocket listen port")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitGenericError
	}

	cache := framecache.New()

	var session device.Session
	if !*mock {
		count, err := device.DeviceCount()
		if err != nil {
			slog.Error("failed to enumerate devices", "err", err)
			return exitGenericError
		}
		if count == 0 {
			slog.Error("no depth camera detected; pass --mock to run without hardware")
			return exitNoDeviceDetected
		}

		session = device.NewSession()
		if err := session.Initialize(device.Config{EnableColor: true, EnableDepth: true, EnableMotor: true}); err != nil {
			slog.Error("failed to initialize device", "err", err)
			return exitInitializationFail
		}
		defer session.Close()

		session.SetColorCallback(func(frame *device.ColorFrame) { cache.PutColor(frame) })
		session.SetDepthCallback(func(frame *device.DepthFrame) { cache.PutDepth(frame) })
	}

	server := bridge.NewServer(cache, session, *mock)
	if err := server.Start(*port); err != nil {
		slog.Error("failed to start bridge server", "err", err)
		return exitGenericError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info(fmt.Sprintf("kinect-xr-go bridge listening on :%d (mock=%v)", *port, *mock))
	<-ctx.Done()

	slog.Info("shutting down")
	if err := server.Stop(); err != nil {
		slog.Error("error during shutdown", "err", err)
		return exitGenericError
	}
	return exitOK
}
