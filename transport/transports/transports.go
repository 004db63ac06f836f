// Package transports registers every built-in broker backend with the
// default registry. Import it for side effects.
package transports

import (
	_ "github.com/drblury/analyticsbase/transport/aws"
	_ "github.com/drblury/analyticsbase/transport/channel"
	_ "github.com/drblury/analyticsbase/transport/http"
	_ "github.com/drblury/analyticsbase/transport/kafka"
	_ "github.com/drblury/analyticsbase/transport/nats"
	_ "github.com/drblury/analyticsbase/transport/rabbitmq"
)
