package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a published message.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// HandlerFunc handles one event.
type HandlerFunc func(ctx context.Context, ev Event) error

// Priority orders delivery. Lower values run first.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 100
	PriorityNormal   Priority = 200
	PriorityLow      Priority = 300
)

// FilterFunc decides whether a subscription sees an event.
type FilterFunc func(ev Event) bool

type subscriptionConfig struct {
	priority Priority
	filter   FilterFunc
	once     bool
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*subscriptionConfig)

// WithPriority sets the delivery priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(c *subscriptionConfig) { c.priority = p }
}

// WithFilter skips events for which f returns false.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *subscriptionConfig) { c.filter = f }
}

// WithOnce cancels the subscription after its first delivery.
func WithOnce() SubscriptionOption {
	return func(c *subscriptionConfig) { c.once = true }
}

// SubscriptionState is the lifecycle state of a subscription.
type SubscriptionState int32

const (
	SubscriptionActive SubscriptionState = iota
	SubscriptionCancelled
)

func (s SubscriptionState) String() string {
	if s == SubscriptionActive {
		return "active"
	}
	return "cancelled"
}

// Subscription is a handle to a registered handler.
type Subscription interface {
	ID() string
	Topic() Topic
	State() SubscriptionState
	IsActive() bool
	// Cancel removes the subscription from its bus. It is idempotent.
	Cancel()
}

type subscription struct {
	id      string
	pattern Topic
	handler HandlerFunc
	config  subscriptionConfig
	seq     uint64
	state   atomic.Int32
	bus     *Bus
}

func (s *subscription) ID() string     { return s.id }
func (s *subscription) Topic() Topic   { return s.pattern }
func (s *subscription) IsActive() bool { return s.State() == SubscriptionActive }

func (s *subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

func (s *subscription) Cancel() {
	if s.state.CompareAndSwap(int32(SubscriptionActive), int32(SubscriptionCancelled)) {
		s.bus.remove(s)
	}
}

// Options configures a Bus.
type Options struct {
	Logger zerolog.Logger
}

// Bus delivers events synchronously to matching subscriptions.
// It is safe for concurrent use. Handlers may subscribe, unsubscribe or
// publish from within a delivery.
type Bus struct {
	log zerolog.Logger

	mu     sync.RWMutex
	subs   []*subscription
	seq    uint64
	closed bool

	published atomic.Uint64
}

// NewBus creates a bus.
func NewBus(opts Options) *Bus {
	return &Bus{log: opts.Logger.With().Str("component", "event").Logger()}
}

// Subscribe registers fn for every topic matched by pattern.
func (b *Bus) Subscribe(pattern Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	if err := pattern.Validate(); err != nil {
		return nil, err
	}

	cfg := subscriptionConfig{priority: PriorityNormal}
	for _, opt := range opts {
		opt(&cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	b.seq++
	sub := &subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: fn,
		config:  cfg,
		seq:     b.seq,
		bus:     b,
	}

	// Copy on write so in-flight deliveries keep their snapshot.
	next := make([]*subscription, len(b.subs), len(b.subs)+1)
	copy(next, b.subs)
	next = append(next, sub)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].config.priority < next[j].config.priority
	})
	b.subs = next
	return sub, nil
}

// Unsubscribe cancels sub.
func (b *Bus) Unsubscribe(sub Subscription) error {
	s, ok := sub.(*subscription)
	if !ok || s.bus != b {
		return ErrSubscriptionNotFound
	}
	if !s.IsActive() {
		return ErrSubscriptionNotFound
	}
	s.Cancel()
	return nil
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			next := make([]*subscription, 0, len(b.subs)-1)
			next = append(next, b.subs[:i]...)
			next = append(next, b.subs[i+1:]...)
			b.subs = next
			return
		}
	}
}

// Publish delivers payload to every active subscription matching topic.
// Handler failures are joined into the returned error; they never stop
// delivery to later handlers.
func (b *Bus) Publish(ctx context.Context, topic Topic, payload any) error {
	if topic == "" || topic.IsWildcard() {
		return ErrInvalidTopic
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := b.subs
	b.mu.RUnlock()

	b.published.Add(1)
	ev := Event{Topic: topic, Payload: payload, Timestamp: time.Now()}

	var errs []error
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !sub.IsActive() || !topic.Matches(sub.pattern) {
			continue
		}
		if sub.config.filter != nil && !sub.config.filter(ev) {
			continue
		}
		if sub.config.once {
			if !sub.state.CompareAndSwap(int32(SubscriptionActive), int32(SubscriptionCancelled)) {
				continue
			}
			b.remove(sub)
		}
		if err := deliver(ctx, sub, ev); err != nil {
			herr := &HandlerError{SubscriptionID: sub.id, Topic: topic, Err: err}
			b.log.Error().Err(err).Str("topic", topic.String()).Str("subscription", sub.id).Msg("event handler failed")
			errs = append(errs, herr)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, sub *subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return sub.handler(ctx, ev)
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Published returns the number of events published so far.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Close cancels every subscription and rejects further use.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.closed = true
	b.mu.Unlock()
	for _, s := range subs {
		s.state.Store(int32(SubscriptionCancelled))
	}
}
