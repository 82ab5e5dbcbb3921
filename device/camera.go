package device

import (
	"fmt"
	"log/slog"

	libusb "github.com/gotmc/libusb/v2"
)

// Vendor/product identifiers for the depth camera's two UVC-class
// endpoints. Both subdevices live on the same physical unit but present as
// independent USB interfaces, the same shape the teacher uses for its
// separate RGB and SLAM cameras in device/light_cameras.go.
const (
	CameraVID = uint16(0x1d6b)
	CameraPID = uint16(0x0101)

	colorInterface = 1
	depthInterface = 2

	colorBulkEndpoint = 0x81
	depthBulkEndpoint = 0x82

	cameraInterfaceTimeoutMS = 1000
)

// enableStreamingPacket is sent as a UVC_SET_CUR/UVC_VS_COMMIT_CONTROL
// control transfer to commit the negotiated stream format before bulk
// transfers start flowing, the same handshake the teacher issues in
// device/light_cameras.go's initialize().
var enableStreamingPacket = [26]byte{
	0x01, 0x00, // bmHint
	0x01,                   // bFormatIndex
	0x01,                   // bFrameIndex
	0x15, 0x16, 0x05, 0x00, // bFrameInterval (333333 -> 30Hz)
	0x00, 0x00, // wKeyFrameRate
	0x00, 0x00, // wPFrameRate
	0x00, 0x00, // wCompQuality
	0x00, 0x00, // wCompWindowSize
	0x00, 0x00, // wDelay
	0x00, 0x00, 0x0e, 0x00, // dwMaxVideoFrameSize
	0x00, 0x80, 0x00, 0x00, // dwMaxPayloadTransferSize
}

// libusbNewContext is a thin indirection over libusb.NewContext so
// deviceCount (session.go) and enumerateDevices share one entry point.
func libusbNewContext() (*libusb.Context, error) {
	return libusb.NewContext()
}

type cameraTransport struct {
	ctx          *libusb.Context
	colorHandle  *libusb.DeviceHandle
	depthHandle  *libusb.DeviceHandle
	enableColor  bool
	enableDepth  bool
}

func openCameraTransport(deviceIndex uint32, enableColor, enableDepth bool) (*cameraTransport, error) {
	ctx, err := libusb.NewContext()
	if err != nil {
		return nil, newError(KindInitializationFailed, "failed to create libusb context: %w", err)
	}

	devices, err := ctx.DeviceList()
	if err != nil {
		ctx.Close()
		return nil, newError(KindInitializationFailed, "failed to enumerate USB devices: %w", err)
	}

	var matches []*libusb.Device
	for _, dev := range devices {
		descriptor, err := dev.DeviceDescriptor()
		if err != nil {
			slog.Debug(fmt.Sprintf("failed to read device descriptor, skip: %v", err))
			continue
		}
		if descriptor.VendorID == CameraVID && descriptor.ProductID == CameraPID {
			matches = append(matches, dev)
		}
	}

	if len(matches) == 0 {
		ctx.Close()
		return nil, ErrDeviceNotFound
	}
	if int(deviceIndex) >= len(matches) {
		ctx.Close()
		return nil, newError(KindDeviceNotFound, "device index %d out of range (%d found)", deviceIndex, len(matches))
	}

	transport := &cameraTransport{ctx: ctx, enableColor: enableColor, enableDepth: enableDepth}
	target := matches[deviceIndex]

	handle, err := target.Open()
	if err != nil {
		ctx.Close()
		return nil, newError(KindInitializationFailed, "failed to open depth camera: %w", err)
	}

	if enableColor {
		if err := handle.SetAutoDetachKernelDriver(true); err != nil {
			handle.Close()
			ctx.Close()
			return nil, newError(KindInitializationFailed, "failed to detach kernel driver for color interface: %w", err)
		}
		if err := handle.ClaimInterface(colorInterface); err != nil {
			handle.Close()
			ctx.Close()
			return nil, newError(KindInitializationFailed, "failed to claim color interface: %w", err)
		}
		transport.colorHandle = handle
	}

	if enableDepth {
		if !enableColor {
			if err := handle.SetAutoDetachKernelDriver(true); err != nil {
				handle.Close()
				ctx.Close()
				return nil, newError(KindInitializationFailed, "failed to detach kernel driver for depth interface: %w", err)
			}
		}
		if err := handle.ClaimInterface(depthInterface); err != nil {
			if enableColor {
				handle.ReleaseInterface(colorInterface)
			}
			handle.Close()
			ctx.Close()
			return nil, newError(KindInitializationFailed, "failed to claim depth interface: %w", err)
		}
		transport.depthHandle = handle
	}

	if !enableColor && !enableDepth {
		handle.Close()
	}

	return transport, nil
}

func (t *cameraTransport) commitStream(handle *libusb.DeviceHandle, iface int) error {
	_, err := handle.ControlTransfer(
		0x21,    // LIBUSB_REQUEST_TYPE_CLASS | LIBUSB_RECIPIENT_INTERFACE
		0x01,    // UVC_SET_CUR
		0x02<<8, // UVC_VS_COMMIT_CONTROL
		uint16(iface),
		enableStreamingPacket[:],
		len(enableStreamingPacket),
		cameraInterfaceTimeoutMS,
	)
	if err != nil {
		return fmt.Errorf("failed to commit stream on interface %d: %w", iface, err)
	}
	return nil
}

// readColorFrame performs one synchronous bulk transfer for a color frame.
// The destination buffer is caller-owned; the transport never retains it.
func (t *cameraTransport) readColorFrame(dst []byte) (uint32, error) {
	n, err := t.colorHandle.BulkTransfer(colorBulkEndpoint, dst, len(dst), 0)
	if err != nil {
		return 0, fmt.Errorf("failed to read color bulk transfer: %w", err)
	}
	if n != len(dst) {
		return 0, fmt.Errorf("short color read: got %d want %d", n, len(dst))
	}
	return deviceTimestamp(), nil
}

// readDepthFrame performs one synchronous bulk transfer for a depth frame.
func (t *cameraTransport) readDepthFrame(dst []byte) (uint32, error) {
	n, err := t.depthHandle.BulkTransfer(depthBulkEndpoint, dst, len(dst), 0)
	if err != nil {
		return 0, fmt.Errorf("failed to read depth bulk transfer: %w", err)
	}
	if n != len(dst) {
		return 0, fmt.Errorf("short depth read: got %d want %d", n, len(dst))
	}
	return deviceTimestamp(), nil
}

func (t *cameraTransport) close() error {
	var colorErr, depthErr error
	if t.colorHandle != nil {
		t.colorHandle.ReleaseInterface(colorInterface)
		colorErr = t.colorHandle.Close()
		if t.depthHandle == t.colorHandle {
			t.depthHandle = nil
		}
		t.colorHandle = nil
	}
	if t.depthHandle != nil {
		t.depthHandle.ReleaseInterface(depthInterface)
		depthErr = t.depthHandle.Close()
		t.depthHandle = nil
	}
	if t.ctx != nil {
		if err := t.ctx.Close(); err != nil {
			return fmt.Errorf("failed to close libusb context: %w", err)
		}
	}
	if colorErr != nil || depthErr != nil {
		return fmt.Errorf("color close err: %v; depth close err: %v", colorErr, depthErr)
	}
	return nil
}

// enumerateDevices walks a transient libusb context's device list looking
// for every match on vid/pid and reports each one's bus location, the same
// descriptor walk openCameraTransport does but collecting detail instead
// of opening a handle.
func enumerateDevices(vid, pid uint16) ([]DeviceInfo, error) {
	ctx, err := libusbNewContext()
	if err != nil {
		return nil, newError(KindInitializationFailed, "failed to create libusb context: %w", err)
	}
	defer ctx.Close()

	devices, err := ctx.DeviceList()
	if err != nil {
		return nil, newError(KindInitializationFailed, "failed to enumerate USB devices: %w", err)
	}

	var out []DeviceInfo
	for _, dev := range devices {
		descriptor, err := dev.DeviceDescriptor()
		if err != nil {
			slog.Debug(fmt.Sprintf("failed to read device descriptor, skip: %v", err))
			continue
		}
		if descriptor.VendorID != vid || descriptor.ProductID != pid {
			continue
		}

		info := DeviceInfo{VendorID: descriptor.VendorID, ProductID: descriptor.ProductID}
		if bus, err := dev.GetBusNumber(); err == nil {
			info.Bus = int(bus)
		}
		if addr, err := dev.GetDeviceAddress(); err == nil {
			info.Address = int(addr)
		}
		out = append(out, info)
	}
	return out, nil
}

// deviceTimestamp is a placeholder for the 32-bit device-reported timestamp
// that would otherwise come from the frame's own header; real hardware
// reports this inline with the payload, decoded by the caller.
func deviceTimestamp() uint32 {
	return uint32(monotonicMillis())
}
