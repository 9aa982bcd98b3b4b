// Package placement finds marker-bearing lines off the owner goroutine.
//
// A Search scans one immutable snapshot against a captured marker set on
// its own goroutine. It either completes, publishing its Result and firing
// its completion callback exactly once, or is aborted and discards
// everything. The two outcomes race through a single compare-and-swap on
// the search state, so an aborted search can never report.
//
// A Coordinator owns the current search of one view and the latest
// completed Result. Completions are marshaled to the view's owner goroutine
// and applied only if the search is still current.
package placement
