package scheduling

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
	"testing"
	"time"
)

const waitTimeout = 3 * time.Second

type runtimeTimerSuite struct {
	suite.Suite
	timer Timer
}

func (suite *runtimeTimerSuite) SetupTest() {
	suite.timer = NewTimer()
}

func (suite *runtimeTimerSuite) TearDownTest() {
	suite.timer.Cancel()
}

func (suite *runtimeTimerSuite) TestFires() {
	fired := make(chan struct{})
	suite.timer.Arm(10*time.Millisecond, func() { close(fired) })
	select {
	case <-time.After(waitTimeout):
		suite.Fail("timeout", "callback should have fired")
	case <-fired:
	}
}

func (suite *runtimeTimerSuite) TestCancel() {
	fired := atomic.NewBool(false)
	suite.timer.Arm(10*time.Millisecond, func() { fired.Store(true) })
	suite.timer.Cancel()
	<-time.After(50 * time.Millisecond)
	suite.False(fired.Load(), "cancelled callback should not fire")
}

func (suite *runtimeTimerSuite) TestRearmReplacesPending() {
	first := atomic.NewBool(false)
	second := make(chan struct{})
	suite.timer.Arm(10*time.Millisecond, func() { first.Store(true) })
	suite.timer.Arm(20*time.Millisecond, func() { close(second) })
	select {
	case <-time.After(waitTimeout):
		suite.Fail("timeout", "second callback should have fired")
	case <-second:
	}
	<-time.After(20 * time.Millisecond)
	suite.False(first.Load(), "replaced callback should not fire")
}

func (suite *runtimeTimerSuite) TestCancelWithoutArm() {
	suite.NotPanics(func() {
		suite.timer.Cancel()
	})
}

func TestRuntimeTimer(t *testing.T) {
	suite.Run(t, new(runtimeTimerSuite))
}

func TestManualTimer(t *testing.T) {
	timer := NewManualTimer()
	assert.False(t, timer.Fire(), "should not fire when nothing armed")
	calls := 0
	timer.Arm(time.Minute, func() { calls++ })
	assert.True(t, timer.Pending(), "should be pending")
	assert.Equal(t, time.Minute, timer.Duration(), "should remember duration")
	timer.Arm(2*time.Minute, func() { calls += 10 })
	assert.True(t, timer.Fire(), "should fire")
	assert.Equal(t, 10, calls, "should only call latest callback")
	assert.False(t, timer.Pending(), "should be disarmed after fire")
	assert.Equal(t, 2, timer.ArmCount(), "should count arms")
}

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)
	assert.Equal(t, start, clock.Now())
	clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, start.Add(4999*time.Millisecond), clock.Now())
}
