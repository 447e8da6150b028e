package broadcast

import (
	"context"
	"github.com/lefinal/ctf-server/event"
	"github.com/stretchr/testify/mock"
)

// PublisherStub mocks Publisher.
type PublisherStub struct {
	mock.Mock
}

func (s *PublisherStub) Publish(ctx context.Context, topic event.Topic, payload interface{}) {
	s.Called(ctx, topic, payload)
}

// PushNotifierStub mocks PushNotifier.
type PushNotifierStub struct {
	mock.Mock
}

func (s *PushNotifierStub) NotifyAll(ctx context.Context, title string, body string) error {
	return s.Called(ctx, title, body).Error(0)
}
