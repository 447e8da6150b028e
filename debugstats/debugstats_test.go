package debugstats

import (
	"context"
	"github.com/lefinal/ctf-server/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"testing"
	"time"
)

type matchStub struct{}

func (matchStub) Status() games.Status {
	return games.Status{
		Phase:   games.PhaseScoutPeriod,
		Paused:  true,
		Players: []games.Player{{Name: "alice"}, {Name: "bob"}},
	}
}

func (matchStub) AllFlagsRegistered() bool {
	return true
}

type hubStub int

func (h hubStub) ClientCount() int {
	return int(h)
}

type relayStub uint64

func (r relayStub) Dropped() uint64 {
	return uint64(r)
}

func TestCollect(t *testing.T) {
	stats := collect(Sources{
		Match: matchStub{},
		Hub:   hubStub(3),
		Relay: relayStub(7),
	})
	assert.Positive(t, stats.NumCPU)
	assert.Positive(t, stats.NumGoroutine)
	assert.Equal(t, games.PhaseScoutPeriod, stats.Phase)
	assert.Equal(t, "Scout period", stats.PhaseName)
	assert.True(t, stats.AllFlags)
	assert.True(t, stats.Paused)
	assert.Equal(t, 2, stats.Players)
	assert.Equal(t, 3, stats.WSClients)
	assert.EqualValues(t, 7, stats.DroppedEvents)
}

func TestCollectMissingSources(t *testing.T) {
	stats := collect(Sources{})
	assert.Empty(t, stats.Phase)
	assert.Empty(t, stats.PhaseName)
	assert.False(t, stats.AllFlags)
	assert.Zero(t, stats.WSClients)
}

func TestDisabled(t *testing.T) {
	s, err := NewService(zap.New(zapcore.NewNopCore()), Config{}, Sources{})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Run(ctx), "should return immediately")
	assert.NoError(t, ctx.Err(), "should not wait for context")
}

func TestLogsPeriodically(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, err := NewService(zap.New(core), Config{IsEnabled: true, Interval: time.Millisecond}, Sources{Hub: hubStub(1)})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- s.Run(ctx)
	}()
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("debug system stats").Len() >= 2
	}, 3*time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
