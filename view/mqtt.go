package view

import (
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SnapshotHandler is called for every message on the snapshot topic.
// On decode failure snap is nil and err is set; payload is always the raw message.
type SnapshotHandler func(payload []byte, snap *Snapshot, err error)

// MQTTClient subscribes to simulator snapshots.
type MQTTClient struct {
	client      mqtt.Client
	config      *Config
	handler     SnapshotHandler
	log         *zap.SugaredLogger
	isConnected bool
	mu          sync.RWMutex
}

// InitMQTT builds and connects an MQTT client. If no broker is configured
// (neither MQTT_BROKER nor mqtt.broker) MQTT is disabled and nil is returned.
func InitMQTT(config *Config, handler SnapshotHandler, log *zap.SugaredLogger) (*MQTTClient, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil {
		broker = config.MQTT.Broker
	}
	if broker == "" {
		log.Info("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}
	if config == nil || config.MQTT.SnapshotTopic == "" {
		return nil, fmt.Errorf("MQTT enabled but no snapshot topic configured")
	}

	c := &MQTTClient{
		config:  config,
		handler: handler,
		log:     log,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID(config))

	username := os.Getenv("MQTT_USERNAME")
	if username == "" {
		username = config.MQTT.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" {
			password = config.MQTT.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false)
	// snapshots supersede each other; only the newest matters
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.client = mqtt.NewClient(opts)
	go c.connectWithRetry()

	return c, nil
}

// clientID picks the MQTT client ID: env, config, then a random stepview-* ID.
func clientID(config *Config) string {
	if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
		return id
	}
	if config.MQTT.ClientID != "" {
		return config.MQTT.ClientID
	}
	return "stepview-" + uuid.NewString()[:8]
}

// connectWithRetry attempts to connect to the broker with exponential backoff.
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		c.log.Info("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				c.log.Info("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			c.log.Warnf("MQTT connection failed: %v", token.Error())
		} else {
			c.log.Warn("MQTT connection timeout")
		}

		c.log.Infof("Retrying MQTT connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)
	topic := c.config.MQTT.SnapshotTopic
	c.log.Infof("MQTT connected, subscribing to %s", topic)

	token := client.Subscribe(topic, 0, c.createMessageHandler())
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		c.log.Errorf("Error subscribing to %s: %v", topic, token.Error())
	} else {
		c.log.Infof("Successfully subscribed to %s", topic)
	}
}

// onConnectionLost is typically transient; auto-reconnect will retry.
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	c.log.Warnf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	c.log.Info("MQTT reconnecting...")
}

// createMessageHandler decodes snapshot payloads and forwards them.
func (c *MQTTClient) createMessageHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		c.log.Debugf("Received snapshot (topic: %s, size: %d bytes)", msg.Topic(), len(payload))

		snap, err := DecodeSnapshot(payload)
		if err != nil {
			c.log.Errorf("Error decoding snapshot: %v", err)
		}
		if c.handler != nil {
			c.handler(payload, snap, err)
		}
	}
}

// IsConnected returns true if the MQTT client is connected.
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection.
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.log.Info("Disconnecting from MQTT broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing.
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock wires an MQTTClient around a provided mqtt.Client.
func newMQTTClientWithMock(client mqtt.Client, config *Config, handler SnapshotHandler) *MQTTClient {
	return &MQTTClient{
		client:  client,
		config:  config,
		handler: handler,
		log:     zap.NewNop().Sugar(),
	}
}
