package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		topic, pattern Topic
		want           bool
	}{
		{"marginalia.session.ready", "marginalia.session.ready", true},
		{"marginalia.session.ready", "marginalia.session.*", true},
		{"marginalia.session.ready", "marginalia.*", false},
		{"marginalia.session.ready", "marginalia.**", true},
		{"marginalia", "marginalia.**", false},
		{"marginalia.scroll", "*.scroll", true},
		{"marginalia.scroll", "marginalia.zoom", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.topic)+"~"+string(tt.pattern), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.topic.Matches(tt.pattern))
		})
	}
}

func TestTopicValidate(t *testing.T) {
	assert.NoError(t, Topic("a.b.**").Validate())
	assert.ErrorIs(t, Topic("").Validate(), ErrInvalidTopic)
	assert.ErrorIs(t, Topic("a..b").Validate(), ErrInvalidTopic)
	assert.ErrorIs(t, Topic("a.**.b").Validate(), ErrInvalidTopic)
}

func TestPublishPriorityOrder(t *testing.T) {
	bus := NewBus(Options{})
	var order []string
	record := func(name string) HandlerFunc {
		return func(context.Context, Event) error {
			order = append(order, name)
			return nil
		}
	}

	_, err := bus.Subscribe("x.y", record("low"), WithPriority(PriorityLow))
	require.NoError(t, err)
	_, err = bus.Subscribe("x.*", record("normal"))
	require.NoError(t, err)
	_, err = bus.Subscribe("x.**", record("critical"), WithPriority(PriorityCritical))
	require.NoError(t, err)
	_, err = bus.Subscribe("z", record("other"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "x.y", nil))
	assert.Equal(t, []string{"critical", "normal", "low"}, order)
	assert.Equal(t, uint64(1), bus.Published())
}

func TestPublishRejectsPatterns(t *testing.T) {
	bus := NewBus(Options{})
	assert.ErrorIs(t, bus.Publish(context.Background(), "a.*", nil), ErrInvalidTopic)
	assert.ErrorIs(t, bus.Publish(context.Background(), "", nil), ErrInvalidTopic)
}

func TestSubscribeValidation(t *testing.T) {
	bus := NewBus(Options{})
	_, err := bus.Subscribe("a", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
	_, err = bus.Subscribe("", func(context.Context, Event) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidTopic)
}

func TestHandlerFailuresAreIsolated(t *testing.T) {
	bus := NewBus(Options{})
	boom := errors.New("boom")
	var ran bool

	_, err := bus.Subscribe("t", func(context.Context, Event) error { panic("kaput") }, WithPriority(PriorityCritical))
	require.NoError(t, err)
	_, err = bus.Subscribe("t", func(context.Context, Event) error { return boom }, WithPriority(PriorityHigh))
	require.NoError(t, err)
	_, err = bus.Subscribe("t", func(context.Context, Event) error { ran = true; return nil })
	require.NoError(t, err)

	err = bus.Publish(context.Background(), "t", 1)
	require.Error(t, err)
	assert.True(t, ran)
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.ErrorIs(t, err, boom)

	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, Topic("t"), herr.Topic)
}

func TestFilterAndOnce(t *testing.T) {
	bus := NewBus(Options{})
	var even, once int
	_, err := bus.Subscribe("n", func(context.Context, Event) error { even++; return nil },
		WithFilter(func(ev Event) bool { return ev.Payload.(int)%2 == 0 }))
	require.NoError(t, err)
	sub, err := bus.Subscribe("n", func(context.Context, Event) error { once++; return nil }, WithOnce())
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, bus.Publish(context.Background(), "n", i))
	}
	assert.Equal(t, 2, even)
	assert.Equal(t, 1, once)
	assert.Equal(t, SubscriptionCancelled, sub.State())
	assert.Equal(t, 1, bus.Len())
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(Options{})
	var calls int
	sub, err := bus.Subscribe("t", func(context.Context, Event) error { calls++; return nil })
	require.NoError(t, err)

	require.NoError(t, bus.Unsubscribe(sub))
	assert.ErrorIs(t, bus.Unsubscribe(sub), ErrSubscriptionNotFound)
	assert.False(t, sub.IsActive())

	require.NoError(t, bus.Publish(context.Background(), "t", nil))
	assert.Zero(t, calls)
	assert.Zero(t, bus.Len())
}

func TestCancelDuringDelivery(t *testing.T) {
	bus := NewBus(Options{})
	var second Subscription
	var secondCalls int
	_, err := bus.Subscribe("t", func(context.Context, Event) error {
		second.Cancel()
		return nil
	}, WithPriority(PriorityHigh))
	require.NoError(t, err)
	second, err = bus.Subscribe("t", func(context.Context, Event) error { secondCalls++; return nil })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "t", nil))
	assert.Zero(t, secondCalls)
}

func TestClose(t *testing.T) {
	bus := NewBus(Options{})
	sub, err := bus.Subscribe("t", func(context.Context, Event) error { return nil })
	require.NoError(t, err)

	bus.Close()
	assert.False(t, sub.IsActive())
	assert.ErrorIs(t, bus.Publish(context.Background(), "t", nil), ErrBusClosed)
	_, err = bus.Subscribe("t", func(context.Context, Event) error { return nil })
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestSetRelease(t *testing.T) {
	bus := NewBus(Options{})
	var set Set
	noop := func(context.Context, Event) error { return nil }

	require.NoError(t, set.Add(bus.Subscribe("a", noop)))
	require.NoError(t, set.Add(bus.Subscribe("b.*", noop)))
	assert.ErrorIs(t, set.Add(bus.Subscribe("", noop)), ErrInvalidTopic)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 2, bus.Len())

	assert.Equal(t, 2, set.Release())
	assert.Zero(t, set.Len())
	assert.Zero(t, bus.Len())
	assert.Zero(t, set.Release())
}

func TestConcurrentPublish(t *testing.T) {
	bus := NewBus(Options{})
	var mu sync.Mutex
	var got int
	_, err := bus.Subscribe("c", func(context.Context, Event) error {
		mu.Lock()
		got++
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), "c", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, got)
}
