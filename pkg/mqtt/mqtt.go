// Package mqtt wraps the paho client behind a small interface so the
// connection manager can be exercised without a live broker.
package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/benmeehan/sengled-bridge/internal/models"
)

// requestedWithHeader identifies the vendor's mobile app on the websocket
// upgrade; the broker rejects connections without it.
const requestedWithHeader = "com.sengled.life2"

// Client is the MQTT surface the connection manager uses. Initialize builds
// a fresh underlying client for the given session; the manager calls it
// again on every reconnect cycle since the client identifier and cookie are
// session-scoped.
type Client interface {
	Initialize(endpoint *models.BrokerEndpoint, session *models.Session, onConnectionLost MQTT.ConnectionLostHandler) error
	Connect() error
	Subscribe(topic string, qos byte, callback MQTT.MessageHandler) error
	Unsubscribe(topics ...string) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	IsConnected() bool
	Disconnect(quiesce uint)
}

// PahoService implements Client on top of eclipse/paho over websockets.
type PahoService struct {
	client         MQTT.Client
	connectTimeout time.Duration
	opTimeout      time.Duration
	logger         zerolog.Logger
}

// NewPahoService creates an uninitialized MQTT service.
func NewPahoService(connectTimeout, opTimeout time.Duration, logger zerolog.Logger) *PahoService {
	return &PahoService{
		connectTimeout: connectTimeout,
		opTimeout:      opTimeout,
		logger:         logger,
	}
}

// Initialize configures a fresh paho client for one session. Any previous
// client is disconnected first.
func (s *PahoService) Initialize(endpoint *models.BrokerEndpoint, session *models.Session,
	onConnectionLost MQTT.ConnectionLostHandler) error {

	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(0)
	}

	opts := MQTT.NewClientOptions()
	opts.AddBroker(endpoint.URL())
	opts.SetClientID(session.ClientID())
	opts.SetHTTPHeaders(http.Header{
		"Cookie":           {"JSESSIONID=" + session.ID},
		"X-Requested-With": {requestedWithHeader},
	})
	opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	opts.SetConnectTimeout(s.connectTimeout)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetCleanSession(true)
	// Reconnect policy lives in the connection manager, not in paho.
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(onConnectionLost)

	s.client = MQTT.NewClient(opts)
	s.logger.Debug().Str("broker", endpoint.URL()).Msg("MQTT client initialized")
	return nil
}

// Connect dials the broker and waits for the CONNACK.
func (s *PahoService) Connect() error {
	if s.client == nil {
		return errors.New("mqtt client is not initialized")
	}
	token := s.client.Connect()
	token.Wait()
	return token.Error()
}

// Subscribe subscribes with the given message callback.
func (s *PahoService) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) error {
	if s.client == nil {
		return errors.New("mqtt client is not initialized")
	}
	return s.wait("subscribe "+topic, s.client.Subscribe(topic, qos, callback))
}

// Unsubscribe removes subscriptions for the given topics.
func (s *PahoService) Unsubscribe(topics ...string) error {
	if s.client == nil {
		return errors.New("mqtt client is not initialized")
	}
	return s.wait("unsubscribe", s.client.Unsubscribe(topics...))
}

// Publish sends a payload and waits for the operation to complete.
func (s *PahoService) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if s.client == nil {
		return errors.New("mqtt client is not initialized")
	}
	return s.wait("publish "+topic, s.client.Publish(topic, qos, retained, payload))
}

// IsConnected reports whether a live broker connection exists.
func (s *PahoService) IsConnected() bool {
	return s.client != nil && s.client.IsConnected()
}

// Disconnect closes the broker connection, waiting quiesce milliseconds for
// in-flight work. Safe to call when never connected.
func (s *PahoService) Disconnect(quiesce uint) {
	if s.client != nil {
		s.client.Disconnect(quiesce)
	}
}

func (s *PahoService) wait(op string, token MQTT.Token) error {
	if !token.WaitTimeout(s.opTimeout) {
		return fmt.Errorf("%s timed out after %s", op, s.opTimeout)
	}
	return token.Error()
}
