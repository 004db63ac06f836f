package runtime

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/analyticsbase/internal/analytics"
	errspkg "github.com/drblury/analyticsbase/internal/runtime/errors"
	idspkg "github.com/drblury/analyticsbase/internal/runtime/ids"
	metadatapkg "github.com/drblury/analyticsbase/internal/runtime/metadata"
	"github.com/drblury/analyticsbase/transport"
)

// NewEnvelopeMessage validates buf and wraps it in a Watermill message with
// descriptive headers. The payload is the envelope, unchanged.
func NewEnvelopeMessage(ctx context.Context, buf []byte) (*message.Message, error) {
	if len(buf) == 0 {
		return nil, errspkg.ErrEnvelopeRequired
	}
	decoded, err := analytics.DecodeMessage(buf)
	if err != nil {
		return nil, err
	}

	correlationID := RequestIDFromContext(ctx)
	if correlationID == "" {
		correlationID = idspkg.CreateULID()
	}
	md := metadatapkg.ForMessage(decoded.Metadata).With(metadatapkg.KeyCorrelationID, correlationID)

	msg := message.NewMessage(idspkg.CreateULID(), buf)
	msg.Metadata = metadatapkg.ToWatermill(md)
	msg.SetContext(ctx)
	return msg, nil
}

// PublishEnvelope publishes a validated envelope to topic. Envelopes larger
// than the backend accepts are rejected before publishing.
func PublishEnvelope(ctx context.Context, publisher message.Publisher, caps transport.Capabilities, topic string, buf []byte) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}
	if !caps.Accepts(len(buf)) {
		return fmt.Errorf("envelope of %d bytes exceeds the %s limit of %d bytes", len(buf), caps.Name, caps.MaxMessageSize)
	}

	msg, err := NewEnvelopeMessage(ctx, buf)
	if err != nil {
		return err
	}
	return publisher.Publish(topic, msg)
}

// PublishEnvelope publishes buf to the configured topic so that this or
// another instance ingests it from the broker.
func (s *Service) PublishEnvelope(ctx context.Context, buf []byte) error {
	if s == nil {
		return errspkg.ErrPublisherRequired
	}
	if !s.Conf.BrokerEnabled() {
		return errspkg.ErrBrokerDisabled
	}
	return PublishEnvelope(ctx, s.transport.Publisher, s.capabilities, s.Conf.Topic, buf)
}

// PublishMessage encodes msg and publishes it like PublishEnvelope.
func (s *Service) PublishMessage(ctx context.Context, msg analytics.Message) error {
	buf, err := analytics.Encode(msg)
	if err != nil {
		return err
	}
	return s.PublishEnvelope(ctx, buf)
}
