// Package channel provides an in-process Go channel transport. It backs local
// runs and tests where no broker is available.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/analyticsbase/transport"
)

// Name selects this backend as the pubsub system.
const Name = "channel"

// OutputChannelBuffer sizes each subscriber's buffer so HTTP-side publishers
// do not block on a slow consumer.
const OutputChannelBuffer = 256

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	Register(transport.DefaultRegistry)
}

// Register adds the channel transport to r.
func Register(r *transport.Registry) {
	r.Register(Name, Build, transport.ChannelCapabilities)
}

// Build creates a gochannel pub/sub shared by the publisher and subscriber.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(gochannel.Config{
		OutputChannelBuffer:            OutputChannelBuffer,
		BlockPublishUntilSubscriberAck: false,
	}, logger)
	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}
