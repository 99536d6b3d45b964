// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     sink
// Description: MQTT publisher for pipeline events
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package sink

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

const publishTimeout = 5 * time.Second

// MQTTConfig holds MQTT sink configuration
type MQTTConfig struct {
	BrokerURL string
	Topic     string
	ClientID  string
	Username  string
	Password  string
	QoS       byte
}

// publisher is the part of paho.Client the sink uses
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// MQTT publishes every event to <topic>/events and the current state,
// retained, to <topic>/state
type MQTT struct {
	cfg    MQTTConfig
	client paho.Client
	pub    publisher
	logger *logging.Logger
}

// NewMQTT creates an unconnected MQTT sink
func NewMQTT(cfg MQTTConfig) *MQTT {
	if cfg.Topic == "" {
		cfg.Topic = "dolmetscher/status"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dolmetscher"
	}
	return &MQTT{
		cfg:    cfg,
		logger: logging.New("mqtt"),
	}
}

// Connect connects to the broker
func (m *MQTT) Connect() error {
	// Unique per process so two interpreters never kick each other off
	clientID := m.cfg.ClientID + "-" + uuid.New().String()[:8]

	opts := paho.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(publishTimeout)

	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		m.logger.Error("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		m.logger.Info("MQTT connected", "broker", m.cfg.BrokerURL, "client_id", clientID)
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt connect to %s timed out", m.cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect failed: %w", err)
	}

	m.client = client
	m.pub = client
	return nil
}

// Publish implements interpreter.Sink
func (m *MQTT) Publish(e interpreter.Event) {
	if m.pub == nil {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		m.logger.Error("Failed to encode event", "error", err)
		return
	}

	m.send(m.cfg.Topic+"/events", false, payload)
	m.send(m.cfg.Topic+"/state", true, []byte(e.State))
}

func (m *MQTT) send(topic string, retained bool, payload []byte) {
	token := m.pub.Publish(topic, m.cfg.QoS, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		m.logger.Warn("MQTT publish timed out", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		m.logger.Warn("MQTT publish failed", "topic", topic, "error", err)
	}
}

// Close disconnects from the broker
func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}
