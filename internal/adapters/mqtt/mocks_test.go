package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type publishedMessage struct {
	payload  any
	topic    string
	qos      byte
	retained bool
}

// mockClient implements paho.Client for testing.
type mockClient struct {
	mu             sync.Mutex
	connectError   error
	publishError   error
	published      []publishedMessage
	connected      bool
	disconnectCall int
	pending        bool
}

func (m *mockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockClient) IsConnectionOpen() bool {
	return m.IsConnected()
}

func (m *mockClient) Connect() paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectError != nil {
		return &mockToken{err: m.connectError}
	}
	m.connected = true
	return &mockToken{}
}

func (m *mockClient) Disconnect(uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnectCall++
}

func (m *mockClient) Publish(topic string, qos byte, retained bool, payload any) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishError != nil {
		return &mockToken{err: m.publishError}
	}
	if m.pending {
		return &mockToken{pending: true}
	}
	m.published = append(m.published, publishedMessage{
		topic:    topic,
		qos:      qos,
		retained: retained,
		payload:  payload,
	})
	return &mockToken{}
}

func (*mockClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return &mockToken{}
}

func (*mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &mockToken{}
}

func (*mockClient) Unsubscribe(...string) paho.Token {
	return &mockToken{}
}

func (*mockClient) AddRoute(string, paho.MessageHandler) {}

func (*mockClient) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}

// mockToken implements paho.Token. A pending token never completes.
type mockToken struct {
	err     error
	pending bool
}

func (t *mockToken) Wait() bool {
	return !t.pending
}

func (t *mockToken) WaitTimeout(time.Duration) bool {
	return !t.pending
}

func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

func (t *mockToken) Error() error {
	return t.err
}
