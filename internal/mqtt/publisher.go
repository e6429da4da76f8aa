// Package mqtt publishes projected snapshots to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"conduit-capture/internal/database"
	"conduit-capture/internal/models"
)

const publishTimeout = 2 * time.Second

// Config holds broker connection settings
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// Client is the part of the paho client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Connect dials the broker.
func Connect(cfg Config) (pahomqtt.Client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("mqtt: connected to %s as %s", cfg.Broker, cfg.ClientID)
	return client, nil
}

// Topic returns the topic a snapshot is published on: <prefix>/<slice>.
func Topic(prefix string, s models.Snapshot) string {
	return prefix + "/" + s.Slice.String()
}

// Publisher sends each snapshot as a JSON message. Writes are queued and
// published from a background loop so capture never waits on the broker.
type Publisher struct {
	client  Client
	cfg     Config
	batcher *database.Batcher[models.Snapshot]
}

// NewPublisher creates a publisher over a connected client.
func NewPublisher(client Client, cfg Config, queueSize int) *Publisher {
	return &Publisher{
		client:  client,
		cfg:     cfg,
		batcher: database.NewBatcher[models.Snapshot]("mqtt", queueSize, 100*time.Millisecond),
	}
}

// Start begins publishing. A non-empty prefix overrides the configured one.
func (p *Publisher) Start(prefix string) {
	if prefix != "" {
		p.cfg.TopicPrefix = prefix
	}
	p.batcher.Start(p.publish)
}

func (p *Publisher) publish(_ context.Context, snapshots []models.Snapshot) error {
	var failed int
	var lastErr error
	for _, s := range snapshots {
		payload, err := json.Marshal(s)
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		token := p.client.Publish(Topic(p.cfg.TopicPrefix, s), p.cfg.QoS, false, payload)
		if !token.WaitTimeout(publishTimeout) {
			failed++
			lastErr = fmt.Errorf("publish timed out after %s", publishTimeout)
			continue
		}
		if err := token.Error(); err != nil {
			failed++
			lastErr = err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d publishes failed: %w", failed, len(snapshots), lastErr)
	}
	return nil
}

// Write queues a snapshot for publishing
func (p *Publisher) Write(s models.Snapshot) {
	p.batcher.Add(s)
}

// Close publishes what is queued and disconnects.
func (p *Publisher) Close() error {
	p.batcher.Close()
	p.client.Disconnect(250)
	return nil
}

var _ database.Writer = (*Publisher)(nil)
