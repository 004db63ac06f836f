package runtime

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/analyticsbase/internal/dispatch"
)

// IngestHandlerName names the broker handler in router logs and metrics.
const IngestHandlerName = "analytics_ingest"

// handleBrokerMessage dispatches one consumed envelope. Storage failures are
// acknowledged after the dispatcher hooks logged them, so a message is never
// redelivered. Decode failures go to the poison queue when one is configured
// and are acknowledged otherwise.
func (s *Service) handleBrokerMessage(msg *message.Message) error {
	err := s.brokerDispatcher.Handle(msg.Context(), msg.Payload)
	if err == nil {
		return nil
	}
	if dispatch.IsDecodeError(err) && s.Conf.PoisonQueue != "" {
		return &UnprocessableEventError{messageUUID: msg.UUID, err: err}
	}
	return nil
}

func (s *Service) addIngestHandler() {
	s.router.AddConsumerHandler(
		IngestHandlerName,
		s.Conf.Topic,
		s.transport.Subscriber,
		s.handleBrokerMessage,
	)
}
