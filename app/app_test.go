package app

import (
	"context"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/games"
	"github.com/lefinal/ctf-server/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"testing"
	"time"
)

func TestApp_wire(t *testing.T) {
	c, err := NewApp(validConfig()).wire(context.Background(), zap.New(zapcore.NewNopCore()))
	require.NoError(t, err, "should not fail")
	assert.NotNil(t, c.match)
	assert.NotNil(t, c.relay)
	assert.NotNil(t, c.hub)
	assert.NotNil(t, c.push)
	assert.NotNil(t, c.webServer)
	assert.Nil(t, c.portalBase, "should not create portal without mqtt address")
	assert.Equal(t, games.PhaseWaitingToStart, c.match.Status().Phase)
	assert.Len(t, c.match.Teams(), 2)
}

func TestApp_wireWithMQTT(t *testing.T) {
	config := validConfig()
	config.MQTTAddr = nulls.NewString("mqtt://localhost:1883")
	logger := zap.New(zapcore.NewNopCore())
	c, err := NewApp(config).wire(context.Background(), logger)
	require.NoError(t, err, "should not fail")
	assert.NotNil(t, c.portalBase)
	s, err := createServices(config, logger, c)
	require.NoError(t, err)
	assert.Contains(t, s, "portal")
	assert.Contains(t, s, "control")
}

func TestCreateServices(t *testing.T) {
	logger := zap.New(zapcore.NewNopCore())
	c, err := NewApp(validConfig()).wire(context.Background(), logger)
	require.NoError(t, err)
	s, err := createServices(validConfig(), logger, c)
	require.NoError(t, err)
	for _, name := range []string{"debug-stats", "relay", "ws-hub", "web-server"} {
		assert.Contains(t, s, name)
	}
	assert.NotContains(t, s, "portal")
}

func TestServicesRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stopped := make(chan struct{})
	s := services{
		"failing": service.Func(func(_ context.Context) error {
			return errors.NewInternalError("sad life", nil)
		}),
		"waiting": service.Func(func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return nil
		}),
	}
	err := s.run(ctx, zap.New(zapcore.NewNopCore()))
	require.Error(t, err, "should fail")
	assert.True(t, errors.HasCode(err, errors.ErrInternal), "should keep error code")
	select {
	case <-stopped:
	default:
		t.Fatal("should stop other services")
	}
	assert.NoError(t, ctx.Err(), "should not time out")
}
