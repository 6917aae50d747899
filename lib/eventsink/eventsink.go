// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventsink forwards network lifecycle events to an MQTT
// broker, one message per event on "<prefix>/<EventKind>". Payloads
// are JSON:
//
//	{"event":"ConnectionCreated","path":"/org/bluez/network/connection0","time":"2026-10-16T09:30:00Z"}
//
// Publishing happens on a queue goroutine, so the listener never
// blocks the manager loop. Events arriving while the queue is full are
// dropped and logged.
package eventsink

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/bureau-foundation/pannet/lib/clock"
	"github.com/bureau-foundation/pannet/lib/network"
)

const (
	queueDepth     = 256
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Config describes the broker connection.
type Config struct {
	// Broker is the broker URL, such as tcp://localhost:1883.
	Broker string

	TopicPrefix string
	ClientID    string

	// QoS is the MQTT delivery level for every message (0, 1, or 2).
	QoS byte

	// Clock stamps each payload. Defaults to clock.Real().
	Clock clock.Clock

	Logger *slog.Logger
}

// Payload is the JSON body of each message.
type Payload struct {
	Event string    `json:"event"`
	Path  string    `json:"path"`
	Time  time.Time `json:"time"`
}

// Publisher publishes lifecycle events to MQTT.
type Publisher struct {
	client paho.Client
	prefix string
	qos    byte
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Payload
	done   chan struct{}
}

// New connects to the broker and starts the publishing goroutine.
func New(config Config) (*Publisher, error) {
	if config.Broker == "" {
		return nil, errors.New("eventsink: broker URL is required")
	}
	if config.QoS > 2 {
		return nil, fmt.Errorf("eventsink: invalid QoS %d", config.QoS)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	options := paho.NewClientOptions()
	options.AddBroker(config.Broker)
	options.SetClientID(config.ClientID)
	options.SetAutoReconnect(true)
	options.SetConnectTimeout(connectTimeout)

	client := paho.NewClient(options)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("eventsink: connecting to %s timed out", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("eventsink: connecting to %s: %w", config.Broker, err)
	}

	p := &Publisher{
		client: client,
		prefix: strings.TrimSuffix(config.TopicPrefix, "/"),
		qos:    config.QoS,
		clock:  config.Clock,
		logger: config.Logger.With("component", "eventsink", "broker", config.Broker),
		queue:  make(chan Payload, queueDepth),
		done:   make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// Topic returns the topic events of kind are published on.
func (p *Publisher) Topic(kind network.EventKind) string {
	if p.prefix == "" {
		return string(kind)
	}
	return p.prefix + "/" + string(kind)
}

// Listener returns the network.Listener that feeds the publisher.
func (p *Publisher) Listener() network.Listener {
	return p.enqueue
}

func (p *Publisher) enqueue(event network.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	payload := Payload{Event: string(event.Kind), Path: string(event.Path), Time: p.clock.Now().UTC()}
	select {
	case p.queue <- payload:
	default:
		p.logger.Warn("event queue full, dropping event", "event", event.Kind, "path", event.Path)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for payload := range p.queue {
		body, err := json.Marshal(payload)
		if err != nil {
			p.logger.Error("encoding event", "event", payload.Event, "error", err)
			continue
		}
		topic := p.Topic(network.EventKind(payload.Event))
		token := p.client.Publish(topic, p.qos, false, body)
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Warn("publishing event timed out", "topic", topic, "path", payload.Path)
			continue
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("publishing event", "topic", topic, "path", payload.Path, "error", err)
		}
	}
}

// Close publishes the events already queued, then disconnects.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	p.client.Disconnect(250)
}
