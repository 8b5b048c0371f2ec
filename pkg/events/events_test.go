package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer b.Unsubscribe(sub1)
	defer b.Unsubscribe(sub2)

	b.Publish(New(EventPodScheduled, "pod scheduled", "pod_id", "pod-1", "node_id", "node-1"))

	for _, sub := range []Subscriber{sub1, sub2} {
		select {
		case e := <-sub:
			assert.Equal(t, EventPodScheduled, e.Type)
			assert.Equal(t, "pod-1", e.Metadata["pod_id"])
			assert.NotEmpty(t, e.ID)
			assert.False(t, e.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	assert.False(t, open, "unsubscribed channel must be closed")

	// Double unsubscribe must not panic.
	b.Unsubscribe(sub)
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	// Fill the slow subscriber's buffer so further sends drop.
	slow := b.Subscribe()
	fast := b.Subscribe()
	defer b.Unsubscribe(slow)
	defer b.Unsubscribe(fast)

	for i := 0; i < cap(slow)+10; i++ {
		b.Publish(New(EventNodeRegistered, "node up"))
	}

	require.Eventually(t, func() bool {
		return len(fast) >= cap(slow)
	}, time.Second, 10*time.Millisecond, "fast subscriber should keep receiving")
}

func TestStopIsIdempotent(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()
	b.Stop()
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()

	done := make(chan struct{})
	go func() {
		b.Publish(New(EventPodCreated, "late event"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Stop")
	}
}

func TestNewMetadataPairs(t *testing.T) {
	e := New(EventSecretCreated, "created", "namespace", "default", "name", "db")
	assert.Equal(t, "default", e.Metadata["namespace"])
	assert.Equal(t, "db", e.Metadata["name"])

	// Odd trailing key is ignored rather than panicking.
	e = New(EventSecretDeleted, "deleted", "namespace")
	assert.Empty(t, e.Metadata["namespace"])
}
