package connection_test

import (
	"context"
	"sync"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/sengled-bridge/internal/models"
)

// MockSessionClient is a mock implementation of the session.Client interface
type MockSessionClient struct {
	mock.Mock
}

func (m *MockSessionClient) Login(ctx context.Context) (*models.Session, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionClient) ResolveBrokerInfo(ctx context.Context) (*models.BrokerEndpoint, error) {
	args := m.Called(ctx)
	if e := args.Get(0); e != nil {
		return e.(*models.BrokerEndpoint), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionClient) ListDevices(ctx context.Context) ([]map[string]string, error) {
	args := m.Called(ctx)
	if l := args.Get(0); l != nil {
		return l.([]map[string]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionClient) Shutdown() {
	m.Called()
}

// MockMQTTClient is a mock implementation of the mqtt.Client interface. It
// records subscriptions and the connection-lost handler so tests can feed
// messages and transport failures back into the manager.
type MockMQTTClient struct {
	mock.Mock

	mu            sync.Mutex
	connected     bool
	lost          MQTT.ConnectionLostHandler
	subscriptions map[string]MQTT.MessageHandler
}

func (m *MockMQTTClient) Initialize(endpoint *models.BrokerEndpoint, session *models.Session,
	onConnectionLost MQTT.ConnectionLostHandler) error {

	m.mu.Lock()
	m.lost = onConnectionLost
	m.subscriptions = make(map[string]MQTT.MessageHandler)
	m.mu.Unlock()

	args := m.Called(endpoint, session)
	return args.Error(0)
}

func (m *MockMQTTClient) Connect() error {
	args := m.Called()
	if args.Error(0) == nil {
		m.mu.Lock()
		m.connected = true
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) error {
	args := m.Called(topic, qos)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.subscriptions[topic] = callback
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockMQTTClient) Unsubscribe(topics ...string) error {
	args := m.Called(topics)
	return args.Error(0)
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	args := m.Called(topic, qos, retained, payload)
	return args.Error(0)
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	m.Called(quiesce)
}

// SubscribedTopics returns the topics currently subscribed.
func (m *MockMQTTClient) SubscribedTopics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	topics := make([]string, 0, len(m.subscriptions))
	for topic := range m.subscriptions {
		topics = append(topics, topic)
	}
	return topics
}

// Deliver invokes an active subscription callback with an inbound message.
// The callback is shared across subscriptions, so any registered topic can
// carry a message for any topic string.
func (m *MockMQTTClient) Deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	var callback MQTT.MessageHandler
	for _, cb := range m.subscriptions {
		callback = cb
		break
	}
	m.mu.Unlock()

	if callback == nil {
		return false
	}
	callback(nil, NewMockMessage(topic, payload))
	return true
}

// DropConnection simulates a transport failure on the inbound stream.
func (m *MockMQTTClient) DropConnection(err error) {
	m.mu.Lock()
	m.connected = false
	lost := m.lost
	m.mu.Unlock()

	if lost != nil {
		lost(nil, err)
	}
}

// MockMessage implements MQTT.Message for testing
type MockMessage struct {
	payload []byte
	topic   string
}

// NewMockMessage creates a new mock MQTT message
func NewMockMessage(topic string, payload []byte) *MockMessage {
	return &MockMessage{
		payload: payload,
		topic:   topic,
	}
}

func (m *MockMessage) Payload() []byte   { return m.payload }
func (m *MockMessage) Topic() string     { return m.topic }
func (m *MockMessage) Duplicate() bool   { return false }
func (m *MockMessage) Qos() byte         { return 0 }
func (m *MockMessage) Retained() bool    { return false }
func (m *MockMessage) MessageID() uint16 { return 1 }
func (m *MockMessage) Ack()              {} // No-op for testing
