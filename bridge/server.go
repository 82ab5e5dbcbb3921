// Package bridge implements the WebSocket control-and-streaming server:
// connection lifecycle, lazy device start/stop, subscription state, and
// the fixed-cadence broadcast loop.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kinect-xr-go/device"
	"kinect-xr-go/framecache"
	"kinect-xr-go/protocol"
)

func httpListen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

const (
	protocolVersion    = "1.0.0"
	serverName         = "kinect-xr-go"
	motorRateLimitMS   = 500
	endpointPath       = "/kinect"
	statsLogInterval   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1 << 20, // frames are large (up to ~900KB); one big buffer beats growing per write.
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server owns the HTTP listener, client registry, frame cache, and (in
// real-device mode) the underlying device.Session that the first/last
// client connection lazily starts and stops.
type Server struct {
	mutex      sync.Mutex
	httpServer *http.Server
	running    bool

	mock    bool
	session device.Session // nil in mock mode
	cache   *framecache.Cache

	registry *registry
	stats    *Stats
	loop     *broadcastLoop

	statsStop chan struct{}
	statsDone chan struct{}
}

// NewServer wires a bridge around an existing frame cache. session is nil
// in mock mode; otherwise it must already be Initialize()'d (not yet
// streaming — Server starts/stops streaming lazily per spec §4.3).
func NewServer(cache *framecache.Cache, session device.Session, mock bool) *Server {
	s := &Server{
		mock:     mock,
		session:  session,
		cache:    cache,
		registry: newRegistry(),
		stats:    newStats(),
	}
	s.loop = newBroadcastLoop(s)
	return s
}

// Start binds the listener, installs handlers, and starts the broadcast
// loop. A second call while already running returns an error (spec §4.3:
// "idempotent-protected"). Port 0 is explicitly rejected rather than
// letting the OS pick an ephemeral port, matching spec §8's boundary
// behavior for `--port 0`.
func (s *Server) Start(port int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return fmt.Errorf("bridge server already running")
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(endpointPath, s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	listener, err := httpListen(s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind port %d: %w", port, err)
	}

	go s.loop.run()

	s.statsStop = make(chan struct{})
	s.statsDone = make(chan struct{})
	go s.runStatsLogger()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("bridge listener exited", "err", err)
		}
	}()

	s.running = true
	return nil
}

// runStatsLogger logs the broadcast stats snapshot and pushes a status
// message to every connected client once per statsLogInterval, satisfying
// spec §4.3's "exposed via a periodic log line" and giving statusPayload a
// caller instead of leaving it dead.
func (s *Server) runStatsLogger() {
	defer close(s.statsDone)

	ticker := time.NewTicker(statsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.statsStop:
			return
		case <-ticker.C:
			snap := s.stats.Snapshot()
			slog.Info(fmt.Sprintf(
				"bridge stats: sent(color=%d depth=%d) dropped=%d fps(color=%.1f depth=%.1f) clients=%d",
				snap.FramesSentColor, snap.FramesSentDepth, snap.DroppedFrames,
				snap.ColorFPS, snap.DepthFPS, s.registry.count(),
			))

			payload := s.statusPayload()
			for _, c := range s.registry.snapshot() {
				if err := c.sendJSON(payload); err != nil {
					slog.Debug("failed to send periodic status", "client", c.id, "err", err)
				}
			}
		}
	}
}

// Stop joins the broadcast task, then tears down the listener, in that
// order, per spec §4.3.
func (s *Server) Stop() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.running = false
	s.mutex.Unlock()

	close(s.loop.stop)
	<-s.loop.done

	close(s.statsStop)
	<-s.statsDone

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Stats exposes a read-only snapshot of the broadcast counters.
func (s *Server) Stats() Snapshot {
	return s.stats.Snapshot()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}

	c := newClient(conn)
	s.onConnect(c)
	defer s.onDisconnect(c)

	if err := c.sendJSON(s.helloPayload()); err != nil {
		slog.Debug("failed to send hello", "client", c.id, "err", err)
		return
	}

	s.readLoop(c)
}

func (s *Server) onConnect(c *client) {
	s.registry.add(c)
	if s.registry.count() == 1 && !s.mock && s.session != nil {
		if err := s.session.StartStreams(); err != nil {
			slog.Warn("failed to start device streams on first client", "err", err)
		}
	}
}

func (s *Server) onDisconnect(c *client) {
	s.registry.remove(c)
	c.conn.Close()
	if s.registry.count() == 0 && !s.mock && s.session != nil {
		if err := s.session.StopStreams(); err != nil {
			slog.Debug("failed to stop device streams on last disconnect", "err", err)
		}
	}
}

func (s *Server) helloPayload() []byte {
	hello := protocol.HelloMessage{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocolVersion,
		ServerName:      serverName,
	}
	hello.Capabilities.Color.Width = device.FrameWidth
	hello.Capabilities.Color.Height = device.FrameHeight
	hello.Capabilities.Color.BytesPerFrame = device.ColorBytesPerFrame
	hello.Capabilities.Depth.Width = device.FrameWidth
	hello.Capabilities.Depth.Height = device.FrameHeight
	hello.Capabilities.Depth.BytesPerFrame = device.DepthBytesPerFrame
	hello.Capabilities.FrameRateHz = 30
	hello.Capabilities.Motor.TiltMinDegrees = -27
	hello.Capabilities.Motor.TiltMaxDegrees = 27
	hello.Capabilities.Motor.RateLimitMillis = motorRateLimitMS
	hello.Capabilities.Motor.LEDStates = []string{
		string(device.LEDOff), string(device.LEDGreen), string(device.LEDRed),
		string(device.LEDYellow), string(device.LEDBlinkGreen), string(device.LEDBlinkRedYellow),
	}

	data, err := protocol.Emit(hello)
	if err != nil {
		// Emit only fails on an unmarshalable field, which hello never has.
		slog.Error("failed to marshal hello message", "err", err)
		return nil
	}
	return data
}

func (s *Server) readLoop(c *client) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleClientMessage(c, raw)
	}
}

func (s *Server) handleClientMessage(c *client, raw []byte) {
	msg, err := protocol.ParseClientMessage(raw)
	if err != nil {
		var protoErr *protocol.Error
		if as, ok := err.(*protocol.Error); ok {
			protoErr = as
		} else {
			protoErr = &protocol.Error{Kind: protocol.KindProtocolError, Message: err.Error(), Recoverable: true}
		}
		s.sendError(c, protoErr)
		return
	}

	switch msg.Type {
	case protocol.TypeSubscribe:
		c.setSubscriptions(msg.Streams)
	case protocol.TypeUnsubscribe:
		c.clearSubscriptions()
	case protocol.TypeMotorSetTilt:
		s.handleMotorSetTilt(c, msg.Angle)
	case protocol.TypeMotorSetLED:
		s.handleMotorSetLED(c, msg.State)
	case protocol.TypeMotorReset:
		s.handleMotorReset(c)
	case protocol.TypeMotorGetStatus:
		s.handleMotorGetStatus(c)
	}
}

func (s *Server) sendError(c *client, err *protocol.Error) {
	data, marshalErr := protocol.Emit(protocol.NewErrorMessage(err))
	if marshalErr != nil {
		return
	}
	c.sendJSON(data)
}

func (s *Server) sendMotorError(c *client, kind protocol.Kind, message string) {
	data, err := protocol.Emit(protocol.NewMotorErrorMessage(kind, message))
	if err != nil {
		return
	}
	c.sendJSON(data)
}

func (s *Server) sendMotorStatus(c *client, status device.Status) {
	msg := protocol.MotorStatusMessage{
		Type:   protocol.TypeMotorStatus,
		Angle:  status.TiltAngle,
		Status: status.TiltStatus.String(),
	}
	msg.Accelerometer.X = status.Accelerometer.X
	msg.Accelerometer.Y = status.Accelerometer.Y
	msg.Accelerometer.Z = status.Accelerometer.Z

	data, err := protocol.Emit(msg)
	if err != nil {
		return
	}
	c.sendJSON(data)
}

// reportMotorOutcome sends a motor.status on success or translates a
// device.Error into the matching protocol error kind, per spec §4.5 ("on
// success ... reads device status back"; rate-limit/motor failures
// surface as motor.error).
func (s *Server) reportMotorOutcome(c *client, err error) {
	if s.session == nil {
		s.sendMotorError(c, protocol.KindDeviceNotConnected, "no device attached (mock mode)")
		return
	}
	if err != nil {
		kind := protocol.KindMotorFailed
		if errors.Is(err, device.ErrRateLimited) {
			kind = protocol.KindRateLimited
		}
		s.sendMotorError(c, kind, err.Error())
		return
	}

	status, statusErr := s.session.GetStatus()
	if statusErr != nil {
		s.sendMotorError(c, protocol.KindDeviceNotConnected, statusErr.Error())
		return
	}
	s.sendMotorStatus(c, status)
}

func (s *Server) handleMotorSetTilt(c *client, angle float64) {
	if s.session == nil {
		s.sendMotorError(c, protocol.KindDeviceNotConnected, "no device attached (mock mode)")
		return
	}
	s.reportMotorOutcome(c, s.session.SetTilt(int(angle)))
}

func (s *Server) handleMotorSetLED(c *client, state string) {
	if s.session == nil {
		s.sendMotorError(c, protocol.KindDeviceNotConnected, "no device attached (mock mode)")
		return
	}
	if _, ok := device.ValidLEDStates[device.LEDState(state)]; !ok {
		s.sendMotorError(c, protocol.KindInvalidLEDState, fmt.Sprintf("invalid LED state: %s", state))
		return
	}
	s.reportMotorOutcome(c, s.session.SetLED(device.LEDState(state)))
}

func (s *Server) handleMotorReset(c *client) {
	if s.session == nil {
		s.sendMotorError(c, protocol.KindDeviceNotConnected, "no device attached (mock mode)")
		return
	}
	s.reportMotorOutcome(c, s.session.Reset())
}

func (s *Server) handleMotorGetStatus(c *client) {
	if s.session == nil {
		s.sendMotorError(c, protocol.KindDeviceNotConnected, "no device attached (mock mode)")
		return
	}
	status, err := s.session.GetStatus()
	if err != nil {
		s.sendMotorError(c, protocol.KindDeviceNotConnected, err.Error())
		return
	}
	s.sendMotorStatus(c, status)
}

// statusPayload builds the periodic status message (spec §6), sent to
// every connected client by runStatsLogger.
func (s *Server) statusPayload() []byte {
	snap := s.stats.Snapshot()
	msg := protocol.StatusMessage{
		Type:          protocol.TypeStatus,
		Connected:     s.registry.count() > 0,
		LatestFrameID: s.cache.FrameID(),
		DroppedFrames: snap.DroppedFrames,
		ClientCount:   s.registry.count(),
	}
	data, _ := json.Marshal(msg)
	return data
}
