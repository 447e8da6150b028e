package games

import (
	"github.com/gobuffalo/nulls"
	"github.com/stretchr/testify/mock"
	"time"
)

// BroadcasterStub mocks Broadcaster.
type BroadcasterStub struct {
	mock.Mock
}

// NewBroadcasterStub creates a BroadcasterStub that accepts any call.
func NewBroadcasterStub() *BroadcasterStub {
	stub := &BroadcasterStub{}
	stub.On("BroadcastState", mock.Anything, mock.Anything, mock.Anything).Maybe()
	stub.On("BroadcastAnnouncement", mock.Anything, mock.Anything).Maybe()
	stub.On("BroadcastMessage", mock.Anything).Maybe()
	return stub
}

func (s *BroadcasterStub) BroadcastState(phase Phase, remaining time.Duration, paused bool) {
	s.Called(phase, remaining, paused)
}

func (s *BroadcasterStub) BroadcastAnnouncement(kind AnnouncementKind, payload nulls.String) {
	s.Called(kind, payload)
}

func (s *BroadcasterStub) BroadcastMessage(message ChatMessage) {
	s.Called(message)
}

// StateCalls returns the number of BroadcastState calls.
func (s *BroadcasterStub) StateCalls() int {
	return s.callCount("BroadcastState")
}

// LastState returns the arguments of the last BroadcastState call. If there
// was none, false is returned.
func (s *BroadcasterStub) LastState() (Phase, time.Duration, bool, bool) {
	for i := len(s.Calls) - 1; i >= 0; i-- {
		call := s.Calls[i]
		if call.Method != "BroadcastState" {
			continue
		}
		return call.Arguments.Get(0).(Phase), call.Arguments.Get(1).(time.Duration), call.Arguments.Bool(2), true
	}
	return "", 0, false, false
}

// ResetCalls forgets all recorded calls.
func (s *BroadcasterStub) ResetCalls() {
	s.Calls = nil
}

func (s *BroadcasterStub) callCount(method string) int {
	count := 0
	for _, call := range s.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// NotifierStub mocks Notifier.
type NotifierStub struct {
	mock.Mock
}

// NewNotifierStub creates a NotifierStub that accepts any call.
func NewNotifierStub() *NotifierStub {
	stub := &NotifierStub{}
	stub.On("NotifyAll", mock.Anything, mock.Anything).Maybe()
	return stub
}

func (s *NotifierStub) NotifyAll(title string, body string) {
	s.Called(title, body)
}

// Titles returns the titles of all NotifyAll calls in order.
func (s *NotifierStub) Titles() []string {
	titles := make([]string, 0, len(s.Calls))
	for _, call := range s.Calls {
		if call.Method == "NotifyAll" {
			titles = append(titles, call.Arguments.String(0))
		}
	}
	return titles
}

// ResetCalls forgets all recorded calls.
func (s *NotifierStub) ResetCalls() {
	s.Calls = nil
}
