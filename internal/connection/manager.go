// Package connection owns the MQTT session lifecycle: login, broker
// resolution, connect, per-device subscriptions, inbound routing and the
// reconnect/re-authentication loop.
package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/benmeehan/sengled-bridge/internal/codec"
	"github.com/benmeehan/sengled-bridge/internal/devices"
	"github.com/benmeehan/sengled-bridge/internal/models"
	"github.com/benmeehan/sengled-bridge/internal/session"
	"github.com/benmeehan/sengled-bridge/pkg/mqtt"
)

// Observer is notified after a status update has been applied to a device.
type Observer func(device *devices.Device)

// Config carries the manager's tunables.
type Config struct {
	QOS             byte
	LoginRetryDelay time.Duration
	ReconnectDelay  time.Duration
	MinMireds       int
	MaxMireds       int

	// IsAuthFailure overrides DefaultAuthFailurePredicate when set.
	IsAuthFailure AuthFailurePredicate
}

// Manager runs the connection state machine in a background goroutine.
// Device registration and command publishing are safe to call concurrently
// with any state transition.
type Manager struct {
	cfg      Config
	session  session.Client
	mqtt     mqtt.Client
	registry *devices.Registry
	observer Observer
	logger   zerolog.Logger

	isAuthFailure AuthFailurePredicate

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	lost   chan error

	stateMu sync.RWMutex
	state   State

	sessMu sync.Mutex
	sess   *models.Session
}

// NewManager wires a connection manager. The observer may be nil.
func NewManager(cfg Config, sessionClient session.Client, mqttClient mqtt.Client,
	registry *devices.Registry, observer Observer, logger zerolog.Logger) *Manager {

	if cfg.LoginRetryDelay <= 0 {
		cfg.LoginRetryDelay = 10 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 10 * time.Second
	}
	if cfg.MinMireds <= 0 {
		cfg.MinMireds = devices.DefaultMinMireds
	}
	if cfg.MaxMireds <= 0 {
		cfg.MaxMireds = devices.DefaultMaxMireds
	}

	isAuthFailure := cfg.IsAuthFailure
	if isAuthFailure == nil {
		isAuthFailure = DefaultAuthFailurePredicate
	}

	return &Manager{
		cfg:           cfg,
		session:       sessionClient,
		mqtt:          mqttClient,
		registry:      registry,
		observer:      observer,
		logger:        logger,
		isAuthFailure: isAuthFailure,
		state:         StateDisconnected,
	}
}

// Start launches the background session loop. It returns an error if the
// manager is already running; login failures do not surface here, they are
// retried indefinitely inside the loop.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return errors.New("connection manager is already running")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.done = make(chan struct{})
	m.lost = make(chan error, 1)

	go m.run(m.ctx)
	m.logger.Info().Msg("Connection manager started")
	return nil
}

// Stop requests shutdown from any state, interrupts the message loop and
// releases the MQTT and HTTP sessions.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return errors.New("connection manager is not running")
	}

	m.cancel()
	<-m.done

	m.mqtt.Disconnect(250)
	m.session.Shutdown()

	m.ctx = nil
	m.cancel = nil

	m.setState(StateShutdown)
	m.logger.Info().Msg("Connection manager stopped")
	return nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// run is the single long-running task that owns the state machine.
func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	needLogin := true
	discovered := false

	for ctx.Err() == nil {
		if needLogin {
			m.setState(StateAuthenticating)
			sess, err := m.session.Login(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Error().Err(err).Msg("Login failed, retrying")
				if !m.sleep(ctx, m.cfg.LoginRetryDelay) {
					return
				}
				continue
			}
			m.setSession(sess)
			needLogin = false
		}

		if !discovered {
			if err := m.discoverDevices(ctx); err != nil {
				m.logger.Warn().Err(err).Msg("Device discovery failed, will retry on next cycle")
			} else {
				discovered = true
			}
		}

		m.setState(StateFetchingBrokerInfo)
		endpoint, err := m.session.ResolveBrokerInfo(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error().Err(err).Msg("Broker resolution failed")
			if !m.sleep(ctx, m.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		m.setState(StateConnecting)
		m.drainLost()
		if err := m.mqtt.Initialize(endpoint, m.currentSession(), m.onConnectionLost); err != nil {
			m.logger.Error().Err(err).Msg("MQTT initialization failed")
			if !m.sleep(ctx, m.cfg.ReconnectDelay) {
				return
			}
			continue
		}
		if err := m.mqtt.Connect(); err != nil {
			if m.isAuthFailure(err) {
				m.logger.Info().Err(err).Msg("Broker refused session, re-authenticating")
				needLogin = true
				continue
			}
			m.logger.Error().Err(err).Msg("MQTT connect failed")
			m.setState(StateReconnecting)
			if !m.sleep(ctx, m.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		m.setState(StateSubscribing)
		for _, d := range m.registry.Snapshot() {
			m.subscribeDevice(d)
		}
		m.setState(StateLive)
		m.logger.Info().Int("devices", m.registry.Len()).Msg("Session live")

		select {
		case <-ctx.Done():
			return
		case err := <-m.lost:
			m.setState(StateReconnecting)
			needLogin = m.isAuthFailure(err)
			m.logger.Warn().Err(err).Bool("reauth", needLogin).Msg("Connection lost, waiting to reconnect")
			if !m.sleep(ctx, m.cfg.ReconnectDelay) {
				return
			}
		}
	}
}

// ListDiscoveredDevices fetches the account's device list, registers every
// device (re-discovery replaces, never duplicates) and returns them.
func (m *Manager) ListDiscoveredDevices(ctx context.Context) ([]*devices.Device, error) {
	infos, err := m.session.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	discovered := make([]*devices.Device, 0, len(infos))
	for _, info := range infos {
		d, err := devices.New(info, m.cfg.MinMireds, m.cfg.MaxMireds)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Skipping malformed discovery packet")
			continue
		}
		m.RegisterDevice(d)
		discovered = append(discovered, d)
	}
	return discovered, nil
}

// RegisterDevice adds a device to the registry. When a live connection
// exists its status subscription is issued immediately; otherwise the
// subscribing step picks it up from the next registry snapshot, so a
// registration racing a reconnect never loses its subscription.
func (m *Manager) RegisterDevice(d *devices.Device) {
	m.registry.Register(d)
	if m.mqtt.IsConnected() {
		m.subscribeDevice(d)
	}
}

// SendUpdate publishes attribute changes for one device as a single wire
// message. Publish failures are returned to the caller; they do not trigger
// a reconnect by themselves.
func (m *Manager) SendUpdate(deviceID string, changes ...models.AttributeChange) error {
	if len(changes) == 0 {
		return nil
	}

	now := time.Now().UnixMilli()
	records := make([]models.UpdateRecord, 0, len(changes))
	for _, change := range changes {
		records = append(records, models.UpdateRecord{
			Type:     change.Type,
			Value:    change.Value,
			DeviceID: deviceID,
			Time:     now,
		})
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to serialize update: %w", err)
	}

	if err := m.mqtt.Publish(UpdateTopic(deviceID), m.cfg.QOS, false, payload); err != nil {
		return &models.ConnectionError{Op: "publish update for " + deviceID, Err: err}
	}

	m.logger.Debug().Str("device_id", deviceID).Int("changes", len(changes)).Msg("Update published")
	return nil
}

// SetPower switches a device on or off.
func (m *Manager) SetPower(deviceID string, on bool) error {
	if _, ok := m.registry.Lookup(deviceID); !ok {
		return &models.UnknownDeviceError{DeviceID: deviceID}
	}
	value := codec.ValueOff
	if on {
		value = codec.ValueOn
	}
	return m.SendUpdate(deviceID, models.AttributeChange{Type: codec.PacketSwitch, Value: value})
}

// SetBrightness sets the brightness from a 0-255 value.
func (m *Manager) SetBrightness(deviceID string, value int) error {
	if _, ok := m.registry.Lookup(deviceID); !ok {
		return &models.UnknownDeviceError{DeviceID: deviceID}
	}
	return m.SendUpdate(deviceID, models.AttributeChange{
		Type:  codec.PacketBrightness,
		Value: codec.EncodeBrightness(value),
	})
}

// SetColor sets the RGB color on a color-capable device.
func (m *Manager) SetColor(deviceID string, r, g, b int) error {
	d, ok := m.registry.Lookup(deviceID)
	if !ok {
		return &models.UnknownDeviceError{DeviceID: deviceID}
	}
	if !d.HasCapability(devices.CapabilityColor) {
		return fmt.Errorf("device %s does not support color", deviceID)
	}
	return m.SendUpdate(deviceID, models.AttributeChange{
		Type:  codec.PacketRGBColor,
		Value: codec.EncodeRGB(r, g, b),
	})
}

// SetColorTemperature sets the color temperature in mireds using the
// device's range.
func (m *Manager) SetColorTemperature(deviceID string, mireds int) error {
	d, ok := m.registry.Lookup(deviceID)
	if !ok {
		return &models.UnknownDeviceError{DeviceID: deviceID}
	}
	if !d.HasCapability(devices.CapabilityColorTemperature) {
		return fmt.Errorf("device %s does not support color temperature", deviceID)
	}
	return m.SendUpdate(deviceID, models.AttributeChange{
		Type:  codec.PacketColorTemp,
		Value: codec.EncodeColorTemperature(mireds, d.MinMireds(), d.MaxMireds()),
	})
}

// SetEffect activates a named effect. The "none" sentinel disables whichever
// effect the device last reported active; with no active effect it is a
// no-op, since the vendor has no standalone disable command.
func (m *Manager) SetEffect(deviceID, name string) error {
	d, ok := m.registry.Lookup(deviceID)
	if !ok {
		return &models.UnknownDeviceError{DeviceID: deviceID}
	}
	if !d.HasCapability(devices.CapabilityColor) {
		return fmt.Errorf("device %s does not support effects", deviceID)
	}

	if name == codec.EffectNone {
		active, ok := d.Effect()
		if !ok {
			m.logger.Debug().Str("device_id", deviceID).Msg("No active effect to disable")
			return nil
		}
		return m.SendUpdate(deviceID, models.AttributeChange{Type: active, Value: codec.ValueOff})
	}

	if _, ok := codec.EncodeEffectName(name); !ok {
		return fmt.Errorf("unknown effect %q", name)
	}
	return m.SendUpdate(deviceID, models.AttributeChange{Type: name, Value: codec.ValueOn})
}

// subscribeDevice issues the status subscription for one device.
// Fire-and-forget: failures are logged, the reconnect loop is the recovery
// path.
func (m *Manager) subscribeDevice(d *devices.Device) {
	topic := StatusTopic(d.ID())
	if err := m.mqtt.Subscribe(topic, m.cfg.QOS, m.handleMessage); err != nil {
		m.logger.Error().Err(err).Str("topic", topic).Msg("Subscribe failed")
		return
	}
	m.logger.Debug().Str("topic", topic).Msg("Subscribed")
}

// handleMessage routes one inbound message by topic.
func (m *Manager) handleMessage(_ MQTT.Client, msg MQTT.Message) {
	deviceID, kind, ok := parseTopic(msg.Topic())
	if !ok {
		m.logger.Warn().Str("topic", msg.Topic()).Msg("Dropping message on unexpected topic")
		return
	}

	switch kind {
	case "status":
		m.handleStatus(deviceID, msg.Payload())
	case "update":
		// Echo of a self-issued command.
	default:
		m.logger.Warn().Str("topic", msg.Topic()).Msg("Dropping message on unexpected topic")
	}
}

func (m *Manager) handleStatus(deviceID string, payload []byte) {
	packet, err := codec.DecodeStatusPacket(payload)
	if err != nil {
		m.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Dropping malformed status message")
		return
	}

	d, ok := m.registry.Lookup(deviceID)
	if !ok {
		m.logger.Warn().Err(&models.UnknownDeviceError{DeviceID: deviceID}).Msg("Dropping status message")
		return
	}

	d.ApplyUpdate(packet)
	m.logger.Debug().Str("device_id", deviceID).Int("attributes", len(packet)).Msg("Status applied")

	if m.observer != nil {
		m.observer(d)
	}
}

func (m *Manager) discoverDevices(ctx context.Context) error {
	discovered, err := m.ListDiscoveredDevices(ctx)
	if err != nil {
		return err
	}
	m.logger.Info().Int("count", len(discovered)).Msg("Discovered devices registered")
	return nil
}

// onConnectionLost feeds the transport failure signal into the state machine.
func (m *Manager) onConnectionLost(_ MQTT.Client, err error) {
	select {
	case m.lost <- err:
	default:
	}
}

func (m *Manager) drainLost() {
	select {
	case <-m.lost:
	default:
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (m *Manager) setState(s State) {
	m.stateMu.Lock()
	m.state = s
	m.stateMu.Unlock()
	m.logger.Debug().Str("state", string(s)).Msg("State changed")
}

func (m *Manager) setSession(s *models.Session) {
	m.sessMu.Lock()
	m.sess = s
	m.sessMu.Unlock()
}

func (m *Manager) currentSession() *models.Session {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	return m.sess
}
