package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/usdplan/core/model"
	coremqtt "github.com/kilianp07/usdplan/core/mqtt"
	"github.com/kilianp07/usdplan/core/trace"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pemBlock("CERTIFICATE", der)
	keyPEM := pemBlock("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(priv))

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	for path, data := range map[string][]byte{certFile: certPEM, keyFile: keyPEM, caFile: certPEM} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return
}

func pemBlock(kind string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: kind, Bytes: der})
}

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 || tlsCfg.RootCAs == nil {
		t.Fatalf("tls config incomplete")
	}
	if _, err := (Config{UseTLS: true}).LoadTLSConfig(); err == nil {
		t.Fatalf("expected error for missing files")
	}
}

func TestNewClientOptions(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p", TopicPrefix: "plant"}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
	if !opts.WillEnabled || opts.WillTopic != "plant/status" || string(opts.WillPayload) != "offline" || !opts.WillRetained {
		t.Fatalf("will options incorrect: %+v", opts)
	}
}

func TestConfigValidate(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.NoError(t, c.Validate())
	c.Enabled = true
	assert.Error(t, c.Validate())
	c.Broker = "tcp://b:1883"
	assert.NoError(t, c.Validate())
	c.QoS = 3
	assert.Error(t, c.Validate())
	c.QoS = 1
	c.TopicPrefix = "a/#"
	assert.Error(t, c.Validate())
	assert.Equal(t, "usdplan/results/2025-04", Config{TopicPrefix: "usdplan"}.ResultTopic(model.Period{Month: 4, Year: 2025}))
}

func TestPublishResult(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", QoS: 1, Retain: true})
	require.NoError(t, err)

	res := model.Result{RunID: "r1", Period: model.Period{Month: 4, Year: 2025}, Converged: true, UtilityAuxPowerMWh: 120.456}
	id, err := cli.PublishResult(context.Background(), res)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	pubs := mc.publishes()
	require.Len(t, pubs, 2)
	assert.Equal(t, "usdplan/status", pubs[0].topic)
	got := pubs[1]
	assert.Equal(t, "usdplan/results/2025-04", got.topic)
	assert.Equal(t, byte(1), got.qos)
	assert.True(t, got.retained)

	var msg ResultMessage
	require.NoError(t, json.Unmarshal(got.payload, &msg))
	assert.Equal(t, id, msg.MessageID)
	assert.Equal(t, "r1", msg.Result.RunID)
	assert.Equal(t, 120.46, msg.Summary.UtilityAuxMWh)
}

func TestPublishRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{nil, errors.New("net fail"), nil}}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	_, err = cli.PublishResult(context.Background(), model.Result{Period: model.Period{Month: 5, Year: 2025}})
	require.NoError(t, err)
	assert.Len(t, mc.publishes(), 3)
}

func TestPublishGivesUp(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{nil, fail, fail, fail}}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1})
	require.NoError(t, err)
	_, err = cli.PublishResult(context.Background(), model.Result{Period: model.Period{Month: 5, Year: 2025}})
	assert.ErrorIs(t, err, fail)
	assert.Len(t, mc.publishes(), 4)
}

func TestPublishNotConnected(t *testing.T) {
	mc := &mockClient{disconnected: true}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	_, err = cli.PublishResult(context.Background(), model.Result{})
	assert.ErrorIs(t, err, coremqtt.ErrNotConnected)
}

func TestPublishEvent(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", TopicPrefix: "plant"})
	require.NoError(t, err)
	require.NoError(t, cli.PublishEvent(trace.Event{RunID: "r9", Iteration: 2, State: trace.StateBalanceSteam}))
	pubs := mc.publishes()
	require.Len(t, pubs, 2)
	assert.Equal(t, "plant/runs/r9/events", pubs[1].topic)
	assert.Equal(t, byte(0), pubs[1].qos)
	assert.Contains(t, string(pubs[1].payload), `"state":"BALANCE_STEAM"`)
}

func TestHandleRequests(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", QoS: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan coremqtt.Request, 2)
	done := make(chan error, 1)
	go func() {
		done <- cli.HandleRequests(ctx, func(_ context.Context, r coremqtt.Request) { got <- r })
	}()
	require.Eventually(t, func() bool { return len(mc.subscriptions()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "usdplan/requests", mc.subscriptions()[0])

	cli.onRequest(nil, mockMessage{[]byte(`{"request_id":"q1","period":"2025-06"}`)})
	cli.onRequest(nil, mockMessage{[]byte(`{"period":"2025-13"}`)})
	cli.onRequest(nil, mockMessage{[]byte(`not json`)})

	select {
	case r := <-got:
		assert.Equal(t, "q1", r.RequestID)
		assert.Equal(t, model.Period{Month: 6, Year: 2025}, r.Period)
	case <-time.After(time.Second):
		t.Fatal("request not delivered")
	}
	assert.Empty(t, got)
	cancel()
	require.NoError(t, <-done)
}

func TestDisconnectPublishesOffline(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)
	cli.Disconnect()
	pubs := mc.publishes()
	require.Len(t, pubs, 2)
	assert.Equal(t, "offline", string(pubs[1].payload))
	assert.True(t, mc.closed)
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// mockClient implements pahoClient and paho.Client for tests
type mockClient struct {
	mu           sync.Mutex
	opts         *paho.ClientOptions
	subscribed   []string
	published    []published
	publishErrs  []error
	disconnected bool
	closed       bool
}

func (m *mockClient) publishes() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.published...)
}

func (m *mockClient) subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subscribed...)
}

func (m *mockClient) IsConnected() bool { return !m.disconnected }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) { m.closed = true }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	m.published = append(m.published, published{topic: topic, qos: qos, retained: retained, payload: b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, _ byte, _ paho.MessageHandler) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, topic)
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return !m.disconnected }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct{ p []byte }

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return "" }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
