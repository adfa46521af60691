package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/usdplan/core/model"
	coremqtt "github.com/kilianp07/usdplan/core/mqtt"
	corestore "github.com/kilianp07/usdplan/core/store"
	"github.com/kilianp07/usdplan/core/trace"
	"github.com/kilianp07/usdplan/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool        `json:"enabled"`
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	Retain      bool        `json:"retain"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	LWTPayload  string      `json:"lwt_payload"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TimeoutMS   int         `json:"timeout_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "usdplan"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "usdplan"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
}

// Validate checks mandatory fields of an enabled client.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	if strings.ContainsAny(c.TopicPrefix, "+#") {
		return fmt.Errorf("mqtt.topic_prefix must not contain wildcards")
	}
	return nil
}

// ResultTopic is the retained topic of a period's result.
func (c Config) ResultTopic(p model.Period) string {
	return fmt.Sprintf("%s/results/%s", c.TopicPrefix, p)
}

// EventTopic carries solver progress of one run.
func (c Config) EventTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s/events", c.TopicPrefix, runID)
}

// RequestTopic receives planning requests.
func (c Config) RequestTopic() string { return c.TopicPrefix + "/requests" }

// StatusTopic carries the online/offline status and the last will.
func (c Config) StatusTopic() string { return c.TopicPrefix + "/status" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient publishes planning results using Eclipse Paho.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	logger  logger.Logger
	backoff time.Duration
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	handler coremqtt.RequestHandler
	ctx     context.Context
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and announces itself online.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:     cfg,
		logger:  log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		now:     time.Now,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Publish(cfg.StatusTopic(), cfg.QoS, true, "online"); token.Wait() && token.Error() != nil {
			log.Errorf("status publish error: %v", token.Error())
		}
		pc.mu.Lock()
		subscribed := pc.handler != nil
		pc.mu.Unlock()
		if subscribed {
			pc.subscribe(c)
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	payload := cfg.LWTPayload
	if payload == "" {
		payload = "offline"
	}
	opts.SetWill(cfg.StatusTopic(), payload, cfg.QoS, true)
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// ResultMessage is the payload published for each solved period.
type ResultMessage struct {
	MessageID   string            `json:"message_id"`
	PublishedAt time.Time         `json:"published_at"`
	Summary     corestore.Summary `json:"summary"`
	Result      model.Result      `json:"result"`
}

// PublishResult sends the result to its period topic, retrying with
// exponential backoff.
func (p *PahoClient) PublishResult(ctx context.Context, res model.Result) (string, error) {
	now := p.now().UTC()
	msg := ResultMessage{
		MessageID:   uuid.NewString(),
		PublishedAt: now,
		Summary:     corestore.Summarize(res, now),
		Result:      res,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	topic := p.cfg.ResultTopic(res.Period)
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		publishErr = p.publish(topic, p.cfg.Retain, payload)
		if publishErr == nil {
			p.logger.Infof("published result %s to %s", msg.MessageID, topic)
			return msg.MessageID, nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return "", fmt.Errorf("publish %s: %w", topic, publishErr)
}

// PublishEvent forwards a solver event at QoS 0 without retries.
func (p *PahoClient) PublishEvent(ev trace.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	tok := p.cli.Publish(p.cfg.EventTopic(ev.RunID), 0, false, payload)
	go func() {
		if tok.Wait() && tok.Error() != nil {
			p.logger.Debugf("event publish failed: %v", tok.Error())
		}
	}()
	return nil
}

func (p *PahoClient) publish(topic string, retained bool, payload []byte) error {
	if p.cli == nil || !p.cli.IsConnected() {
		return coremqtt.ErrNotConnected
	}
	tok := p.cli.Publish(topic, p.cfg.QoS, retained, payload)
	if !tok.WaitTimeout(p.timeout) {
		return coremqtt.ErrPublishTimeout
	}
	return tok.Error()
}

// HandleRequests subscribes to the request topic and calls h for every
// valid request until ctx is canceled.
func (p *PahoClient) HandleRequests(ctx context.Context, h coremqtt.RequestHandler) error {
	p.mu.Lock()
	p.handler = h
	p.ctx = ctx
	p.mu.Unlock()
	if err := p.subscribe(p.cli); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (p *PahoClient) subscribe(c interface {
	Subscribe(string, byte, paho.MessageHandler) paho.Token
}) error {
	token := c.Subscribe(p.cfg.RequestTopic(), p.cfg.QoS, p.onRequest)
	if token.Wait() && token.Error() != nil {
		p.logger.Errorf("subscribe error: %v", token.Error())
		return token.Error()
	}
	return nil
}

func (p *PahoClient) onRequest(_ paho.Client, msg paho.Message) {
	var m struct {
		RequestID string `json:"request_id"`
		Period    string `json:"period"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode request: %v", err)
		return
	}
	period, err := model.ParsePeriod(m.Period)
	if err != nil {
		p.logger.Errorf("request %s: %v", m.RequestID, err)
		return
	}
	if m.RequestID == "" {
		m.RequestID = uuid.NewString()
	}
	p.mu.Lock()
	h, ctx := p.handler, p.ctx
	p.mu.Unlock()
	if h == nil {
		return
	}
	p.logger.Infof("received request %s for %s", m.RequestID, period)
	h(ctx, coremqtt.Request{RequestID: m.RequestID, Period: period})
}

// Disconnect publishes the offline status and closes the connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		tok := p.cli.Publish(p.cfg.StatusTopic(), p.cfg.QoS, true, "offline")
		tok.WaitTimeout(p.timeout)
		p.cli.Disconnect(250)
	}
}
