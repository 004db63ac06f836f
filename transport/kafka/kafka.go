// Package kafka carries analytics envelopes over Kafka topics.
//
// Envelopes are keyed by their origin so all messages of one head unit land
// on the same partition and keep their order.
package kafka

import (
	"context"
	"errors"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	metadatapkg "github.com/drblury/analyticsbase/internal/runtime/metadata"
	"github.com/drblury/analyticsbase/transport"
)

// Name selects Kafka as the pubsub system.
const Name = "kafka"

const clientID = "analyticsbase"

// PublisherFactory and SubscriberFactory are swapped out in tests.
var (
	PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return kafka.NewPublisher(cfg, logger)
	}
	SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return kafka.NewSubscriber(cfg, logger)
	}
)

func init() {
	Register(transport.DefaultRegistry)
}

// Register adds the Kafka backend to r.
func Register(r *transport.Registry) {
	r.Register(Name, Build, transport.KafkaCapabilities)
}

// PartitionKey keys a message by the origin header set on published
// envelopes, falling back to the message UUID.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	if origin := msg.Metadata.Get(metadatapkg.KeyOrigin); origin != "" {
		return origin, nil
	}
	return msg.UUID, nil
}

// producerConfig caps produced messages at the size accepted for envelopes.
func producerConfig() *sarama.Config {
	cfg := kafka.DefaultSaramaSyncPublisherConfig()
	cfg.ClientID = clientID
	cfg.Producer.MaxMessageBytes = int(transport.KafkaCapabilities.MaxMessageSize)
	return cfg
}

// consumerConfig starts new consumer groups at the oldest retained offset so
// envelopes published before the first deployment are still ingested.
func consumerConfig() *sarama.Config {
	cfg := kafka.DefaultSaramaSubscriberConfig()
	cfg.ClientID = clientID
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	return cfg
}

// Build connects an origin-partitioned publisher and a consumer-group
// subscriber to the configured brokers.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	brokers := cfg.GetKafkaBrokers()
	if len(brokers) == 0 {
		return transport.Transport{}, errors.New("kafka: brokers are required")
	}
	group := cfg.GetKafkaConsumerGroup()
	if group == "" {
		return transport.Transport{}, errors.New("kafka: consumer group is required")
	}

	codec := kafka.NewWithPartitioningMarshaler(PartitionKey)

	publisher, err := PublisherFactory(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             codec,
		OverwriteSaramaConfig: producerConfig(),
	}, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           codec,
		ConsumerGroup:         group,
		OverwriteSaramaConfig: consumerConfig(),
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
