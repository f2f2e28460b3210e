// Package amqp provides a core.IntentRecorder that publishes records to a
// RabbitMQ fanout exchange so downstream analytics consumers can subscribe
// without coupling to the chat core.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/supportmesh/core"
	"github.com/streadway/amqp"
)

// Options configures the AMQP recorder.
type Options struct {
	// Exchange is the fanout exchange records are published to.
	Exchange string
}

// Recorder publishes intent records to a RabbitMQ exchange. Publishing is
// best-effort; callers treat errors as log-and-drop.
type Recorder struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	opts    Options
}

// NewRecorder dials the broker, opens a channel and declares the exchange.
func NewRecorder(amqpURL string, optFns ...func(o *Options)) (*Recorder, error) {
	opts := Options{Exchange: "supportmesh.intents"}
	for _, fn := range optFns {
		fn(&opts)
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(opts.Exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	return &Recorder{conn: conn, channel: ch, opts: opts}, nil
}

// Record publishes one intent record as a JSON message.
func (r *Recorder) Record(_ context.Context, rec core.IntentRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal intent record: %w", err)
	}
	return r.channel.Publish(
		r.opts.Exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Close closes the channel and connection.
func (r *Recorder) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}
