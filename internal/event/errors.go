package event

import (
	"errors"
	"fmt"
)

var (
	// ErrNilHandler is returned when subscribing with a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidTopic is returned for empty or malformed topics.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrSubscriptionNotFound is returned when unsubscribing an unknown subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrBusClosed is returned when using a closed bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic is wrapped by HandlerError when a handler panicked.
	ErrHandlerPanic = errors.New("handler panicked")
)

// HandlerError records a failure in a single handler.
type HandlerError struct {
	SubscriptionID string
	Topic          Topic
	Err            error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s for %s: %v", e.SubscriptionID, e.Topic, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// panicError carries the recovered value of a handler panic.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrHandlerPanic, e.value)
}

func (e *panicError) Unwrap() error {
	return ErrHandlerPanic
}
