// Package event provides the synchronous message bus that connects the
// host editor to an overlay view.
//
// Topics are dot-separated names such as "marginalia.session.ready".
// Subscriptions may use wildcard patterns:
//
//	marginalia.session.*   - one segment (ready, logout)
//	marginalia.**          - any number of trailing segments
//
// Delivery happens on the publishing goroutine in priority order. A
// handler that panics is recovered and reported as a *HandlerError
// wrapping ErrHandlerPanic; the remaining handlers still run.
//
// Subscriptions that belong together are collected in a Set and
// released as a unit:
//
//	var subs event.Set
//	subs.Add(bus.SubscribeFunc("marginalia.layout.changed", onLayout))
//	...
//	subs.Release()
package event
