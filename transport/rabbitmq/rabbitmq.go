// Package rabbitmq carries analytics envelopes over durable AMQP 0.9.1 queues.
package rabbitmq

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/drblury/analyticsbase/transport"
)

// Name selects RabbitMQ as the pubsub system.
const Name = "rabbitmq"

// Prefetch bounds unacknowledged envelopes held by one consumer.
const Prefetch = 32

// Factories are swapped out in tests.
var (
	ConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
		return amqp.NewConnection(cfg, logger)
	}
	PublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
		return amqp.NewPublisherWithConnection(cfg, logger, conn)
	}
	SubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
		return amqp.NewSubscriberWithConnection(cfg, logger, conn)
	}
)

func init() {
	Register(transport.DefaultRegistry)
}

// Register adds the RabbitMQ backend to r.
func Register(r *transport.Registry) {
	r.Register(Name, Build, transport.RabbitMQCapabilities)
}

// labelEnvelope marks publishings as persistent analytics envelopes.
func labelEnvelope(p amqp091.Publishing) amqp091.Publishing {
	p.ContentType = transport.EnvelopeContentType
	p.DeliveryMode = amqp091.Persistent
	return p
}

// QueueConfig is the durable queue setup shared by publisher and subscriber.
// Queues are named after their topic so every instance consumes from the
// same queue. Publishing waits for broker confirms.
func QueueConfig(url string) amqp.Config {
	cfg := amqp.NewDurableQueueConfig(url)
	cfg.Marshaler = amqp.DefaultMarshaler{PostprocessPublishing: labelEnvelope}
	cfg.Publish.ConfirmDelivery = true
	cfg.Consume.Qos.PrefetchCount = Prefetch
	return cfg
}

// Build opens one reconnecting connection shared by the publisher and the
// subscriber. The connection is closed again when either fails to start.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetRabbitMQURL()
	if url == "" {
		return transport.Transport{}, errors.New("rabbitmq: URL is required")
	}

	conn, err := ConnectionFactory(amqp.ConnectionConfig{
		AmqpURI:   url,
		Reconnect: amqp.DefaultReconnectConfig(),
	}, logger)
	if err != nil {
		return transport.Transport{}, err
	}
	closeConn := func() {
		if conn != nil {
			_ = conn.Close()
		}
	}

	queue := QueueConfig(url)
	publisher, err := PublisherFactory(queue, logger, conn)
	if err != nil {
		closeConn()
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(queue, logger, conn)
	if err != nil {
		_ = publisher.Close()
		closeConn()
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
