package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), "  ", "analyticsbase")
	require.NoError(t, err)
	require.NotNil(t, tp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx))
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address, nothing is exported before shutdown.
	tp, shutdown, err := Setup(context.Background(), "http://192.0.2.1:4318", "analyticsbase-test")
	require.NoError(t, err)
	require.NotNil(t, tp)

	assert.NoError(t, shutdown(context.Background()))
}
