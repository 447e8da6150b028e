package broadcast

import (
	"context"
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/event"
	"github.com/lefinal/ctf-server/games"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"testing"
	"time"
)

const timeout = 3 * time.Second

// relaySuite tests Relay.
type relaySuite struct {
	suite.Suite
	publisherA *PublisherStub
	publisherB *PublisherStub
	push       *PushNotifierStub
	relay      *Relay
}

func (suite *relaySuite) SetupTest() {
	suite.publisherA = &PublisherStub{}
	suite.publisherB = &PublisherStub{}
	suite.push = &PushNotifierStub{}
	suite.relay = NewRelay(zap.New(zapcore.NewNopCore()), Config{BufferSize: 4}, suite.push,
		suite.publisherA, suite.publisherB)
}

// run runs the relay until all queued events are delivered.
func (suite *relaySuite) run() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = suite.relay.Run(ctx)
	}()
	suite.Eventually(func() bool {
		return len(suite.relay.queue) == 0
	}, timeout, time.Millisecond)
	// Allow the last dequeued event to be delivered.
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done
}

func (suite *relaySuite) TestState() {
	want := event.StateEvent{State: games.PhaseScoutPeriod, Duration: 1500, Paused: true}
	suite.publisherA.On("Publish", mock.Anything, event.TopicState, want).Once()
	suite.publisherB.On("Publish", mock.Anything, event.TopicState, want).Once()
	defer suite.publisherA.AssertExpectations(suite.T())
	defer suite.publisherB.AssertExpectations(suite.T())
	suite.relay.BroadcastState(games.PhaseScoutPeriod, 1500*time.Millisecond, true)
	suite.run()
}

func (suite *relaySuite) TestAnnouncement() {
	want := event.AnnouncementEvent{Type: games.AnnouncementFrozen}
	suite.publisherA.On("Publish", mock.Anything, event.TopicAnnouncement, want).Once()
	suite.publisherB.On("Publish", mock.Anything, event.TopicAnnouncement, want).Once()
	defer suite.publisherA.AssertExpectations(suite.T())
	suite.relay.BroadcastAnnouncement(games.AnnouncementFrozen, nulls.String{})
	suite.run()
}

func (suite *relaySuite) TestTeamMessage() {
	teamID := uuid.New()
	message := games.ChatMessage{
		ID:      3,
		Content: "meow",
		Sender:  games.Player{ID: uuid.New(), Name: "Alice", Team: teamID},
		Scope:   uuid.NullUUID{UUID: teamID, Valid: true},
	}
	suite.publisherA.On("Publish", mock.Anything, event.TeamChatTopic(teamID), event.NewChatMessageEvent(message)).Once()
	suite.publisherB.On("Publish", mock.Anything, mock.Anything, mock.Anything)
	defer suite.publisherA.AssertExpectations(suite.T())
	suite.relay.BroadcastMessage(message)
	suite.run()
}

func (suite *relaySuite) TestNotificationForwardedToPush() {
	suite.publisherA.On("Publish", mock.Anything, event.TopicNotification, event.NotificationEvent{
		Title: "Hello",
		Body:  "World",
	}).Once()
	suite.publisherB.On("Publish", mock.Anything, mock.Anything, mock.Anything)
	suite.push.On("NotifyAll", mock.Anything, "Hello", "World").Return(nil).Once()
	defer suite.publisherA.AssertExpectations(suite.T())
	defer suite.push.AssertExpectations(suite.T())
	suite.relay.NotifyAll("Hello", "World")
	suite.run()
}

func (suite *relaySuite) TestPushFailureDoesNotStop() {
	suite.publisherA.On("Publish", mock.Anything, mock.Anything, mock.Anything)
	suite.publisherB.On("Publish", mock.Anything, mock.Anything, mock.Anything)
	suite.push.On("NotifyAll", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.NewInternalError("sad life", nil))
	suite.relay.NotifyAll("Hello", "World")
	suite.relay.BroadcastState(games.PhaseEnded, 0, false)
	suite.run()
	suite.publisherA.AssertCalled(suite.T(), "Publish", mock.Anything, event.TopicState,
		event.StateEvent{State: games.PhaseEnded})
}

func (suite *relaySuite) TestFullBufferDrops() {
	for i := 0; i < 10; i++ {
		suite.NotPanics(func() {
			suite.relay.BroadcastState(games.PhaseGracePeriod, time.Second, false)
		}, "should not block")
	}
	suite.EqualValues(6, suite.relay.Dropped())
	suite.publisherA.On("Publish", mock.Anything, mock.Anything, mock.Anything)
	suite.publisherB.On("Publish", mock.Anything, mock.Anything, mock.Anything)
	suite.run()
	suite.publisherA.AssertNumberOfCalls(suite.T(), "Publish", 4)
}

func TestRelay(t *testing.T) {
	suite.Run(t, new(relaySuite))
}

func TestRelayImplementsMatchSinks(t *testing.T) {
	var _ games.Broadcaster = (*Relay)(nil)
	var _ games.Notifier = (*Relay)(nil)
}

func TestNewRelayDefaultBufferSize(t *testing.T) {
	r := NewRelay(zap.NewNop(), Config{}, nil)
	if cap(r.queue) != DefaultBufferSize {
		t.Errorf("expected buffer size %d, got %d", DefaultBufferSize, cap(r.queue))
	}
}
