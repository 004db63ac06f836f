// Package transport builds the broker connection selected by the service
// configuration.
package transport

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/analyticsbase/internal/runtime/config"
	errspkg "github.com/drblury/analyticsbase/internal/runtime/errors"
	"github.com/drblury/analyticsbase/transport"

	_ "github.com/drblury/analyticsbase/transport/transports"
)

// Factory abstracts how the service obtains its broker transport.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (transport.Transport, error)
	Capabilities(name string) transport.Capabilities
}

// DefaultFactory returns a factory backed by transport.DefaultRegistry.
func DefaultFactory() Factory {
	return RegistryFactory(transport.DefaultRegistry)
}

// RegistryFactory returns a factory backed by r.
func RegistryFactory(r *transport.Registry) Factory {
	return registryFactory{registry: r}
}

type registryFactory struct {
	registry *transport.Registry
}

func (f registryFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	if conf == nil {
		return transport.Transport{}, errspkg.ErrConfigRequired
	}
	if !conf.BrokerEnabled() {
		return transport.Transport{}, errspkg.ErrBrokerDisabled
	}
	t, err := f.registry.Build(ctx, conf, logger)
	if err != nil {
		return transport.Transport{}, fmt.Errorf("build %s transport: %w", conf.PubSubSystem, err)
	}
	return t, nil
}

func (f registryFactory) Capabilities(name string) transport.Capabilities {
	return f.registry.Capabilities(name)
}
