package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/analyticsbase/internal/runtime/config"
	errspkg "github.com/drblury/analyticsbase/internal/runtime/errors"
	loggingpkg "github.com/drblury/analyticsbase/internal/runtime/logging"
	"github.com/drblury/analyticsbase/internal/storage/memory"
	"github.com/drblury/analyticsbase/transport"
	"github.com/drblury/analyticsbase/transport/transporttest"
)

type stubFactory struct {
	caps    transport.Capabilities
	err     error
	started *atomic.Bool
}

func (f stubFactory) Build(context.Context, *configpkg.Config, watermill.LoggerAdapter) (transport.Transport, error) {
	if f.err != nil {
		return transport.Transport{}, f.err
	}
	t := transport.Transport{
		Publisher:  &transporttest.Publisher{},
		Subscriber: &transporttest.Subscriber{},
	}
	if f.started != nil {
		t.Start = func() error {
			f.started.Store(true)
			return nil
		}
	}
	return t, nil
}

func (f stubFactory) Capabilities(string) transport.Capabilities { return f.caps }

func TestNewServiceRequiresConfigAndLogger(t *testing.T) {
	_, err := NewService(nil, loggingpkg.Discard(), context.Background(), ServiceDependencies{})
	assert.ErrorIs(t, err, errspkg.ErrConfigRequired)

	_, err = NewService(newTestConfig(t), nil, context.Background(), ServiceDependencies{})
	assert.ErrorIs(t, err, errspkg.ErrLoggerRequired)
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	conf := newTestConfig(t)
	conf.Storage = "cassandra"

	_, err := NewService(conf, loggingpkg.Discard(), context.Background(), ServiceDependencies{})
	var validation errspkg.ConfigValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestNewServiceMemoryStore(t *testing.T) {
	conf := newTestConfig(t)
	conf.Storage = configpkg.StorageMemory
	svc := newTestService(t, conf, ServiceDependencies{})

	_, ok := svc.Store().(*memory.Store)
	assert.True(t, ok)
}

func TestNewServiceTransportError(t *testing.T) {
	conf := newBrokerConfig(t)
	boom := errors.New("broker unreachable")

	_, err := NewService(conf, loggingpkg.Discard(), context.Background(), ServiceDependencies{
		TransportFactory: stubFactory{err: boom},
	})
	assert.ErrorIs(t, err, boom)
}

func TestNewServiceCallerOwnsStore(t *testing.T) {
	store := memory.New()
	svc, err := NewService(newTestConfig(t), loggingpkg.Discard(), context.Background(), ServiceDependencies{Store: store})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	_, err = store.CountRecords(context.Background())
	assert.NoError(t, err)
}

func TestStartServesHTTPUntilCancelled(t *testing.T) {
	svc := newTestService(t, newTestConfig(t), ServiceDependencies{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	select {
	case <-svc.Ready():
	case err := <-done:
		t.Fatalf("start failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not start listening")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s%s", svc.Addr(), HeartbeatPath))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not shut down")
	}
}

func TestStartListenError(t *testing.T) {
	original := listen
	t.Cleanup(func() { listen = original })
	boom := errors.New("address in use")
	listen = func(string, string) (net.Listener, error) { return nil, boom }

	svc := newTestService(t, newTestConfig(t), ServiceDependencies{})
	assert.ErrorIs(t, svc.Start(context.Background()), boom)
	assert.Nil(t, svc.Addr())
}

func TestStartRunsTransportStartHook(t *testing.T) {
	started := &atomic.Bool{}
	conf := newBrokerConfig(t)
	conf.PoisonQueue = ""
	svc := newTestService(t, conf, ServiceDependencies{
		TransportFactory: stubFactory{caps: transport.HTTPCapabilities, started: started},
	})
	startService(t, svc)

	assert.Eventually(t, started.Load, 5*time.Second, 10*time.Millisecond)
}

func TestCloseWithoutStartReturnsPromptly(t *testing.T) {
	conf := newBrokerConfig(t)
	conf.Storage = configpkg.StorageMemory
	svc, err := NewService(conf, loggingpkg.Discard(), context.Background(), ServiceDependencies{})
	require.NoError(t, err)

	begin := time.Now()
	require.NoError(t, svc.Close())
	assert.Less(t, time.Since(begin), 2*time.Second)
}

func TestCloseAfterSetupFailureReturnsPromptly(t *testing.T) {
	conf := newBrokerConfig(t)
	var calls atomic.Int32
	begin := time.Now()

	_, err := NewService(conf, loggingpkg.Discard(), context.Background(), ServiceDependencies{
		Middlewares: []MiddlewareRegistration{{
			Name: "failing",
			Builder: func(*Service) (message.HandlerMiddleware, error) {
				calls.Add(1)
				return nil, errors.New("middleware unavailable")
			},
		}},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Less(t, time.Since(begin), 2*time.Second)
}

func TestStartTwiceIsRejected(t *testing.T) {
	svc := newTestService(t, newTestConfig(t), ServiceDependencies{})
	startService(t, svc)

	assert.ErrorIs(t, svc.Start(context.Background()), errspkg.ErrAlreadyStarted)
}

func TestStartAfterListenErrorCanRetry(t *testing.T) {
	original := listen
	t.Cleanup(func() { listen = original })
	boom := errors.New("address in use")
	listen = func(string, string) (net.Listener, error) { return nil, boom }

	svc := newTestService(t, newTestConfig(t), ServiceDependencies{})
	require.ErrorIs(t, svc.Start(context.Background()), boom)

	listen = original
	startService(t, svc)
	assert.NotNil(t, svc.Addr())
}
