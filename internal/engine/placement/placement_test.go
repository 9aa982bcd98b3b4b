package placement

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marginalia/internal/engine/tracking"
	"github.com/dshills/marginalia/internal/marker"
)

// gatedText blocks LineCount until the gate is opened.
type gatedText struct {
	tracking.Lines
	gate chan struct{}
}

func (g gatedText) LineCount() int {
	<-g.gate
	return g.Lines.LineCount()
}

// panicText panics when the worker asks for its size.
type panicText struct{ tracking.Lines }

func (panicText) LineCount() int { panic("broken text") }

type countingObserver struct {
	started, aborted, completed, failed atomic.Int32
}

func (o *countingObserver) SearchStarted()                     { o.started.Add(1) }
func (o *countingObserver) SearchAborted()                     { o.aborted.Add(1) }
func (o *countingObserver) SearchCompleted(time.Duration, int) { o.completed.Add(1) }
func (o *countingObserver) SearchFailed()                      { o.failed.Add(1) }

func blank(n int) tracking.Lines {
	return make(tracking.Lines, n)
}

func markersOn(lines ...int) []marker.Marker {
	out := make([]marker.Marker, len(lines))
	for i, l := range lines {
		out[i] = marker.Marker{ID: string(rune('a' + i%26)), AnchorLine: l, Color: marker.Color(i % 8)}
	}
	return out
}

func newSet(t *testing.T, snap *tracking.Snapshot, markers []marker.Marker) *marker.Set {
	t.Helper()
	set, errs := marker.NewSet(snap, markers)
	require.Empty(t, errs)
	return set
}

func TestSearchCompletes(t *testing.T) {
	s0 := tracking.NewSnapshot(blank(20))
	set := newSet(t, s0, markersOn(9, 5, 5, 30))
	s1, err := s0.Apply(blank(22), tracking.InsertLines(0, 2))
	require.NoError(t, err)

	fired := make(chan *Search, 1)
	s := Start(s1, set, func(s *Search) { fired <- s }, Options{})

	select {
	case got := <-fired:
		assert.Same(t, s, got)
	case <-time.After(5 * time.Second):
		t.Fatal("search did not complete")
	}

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, tracking.Version(1), res.Version)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, Match{Line: 7, Color: marker.Color(1), Count: 2}, res.Matches[0])
	assert.Equal(t, 11, res.Matches[1].Line)
	assert.Equal(t, 1, res.Dropped)
	assert.False(t, s.Abort(), "completed searches cannot be aborted")
	assert.NoError(t, s.Err())
}

func TestSearchAbortedNeverFires(t *testing.T) {
	gate := make(chan struct{})
	snap := tracking.NewSnapshot(gatedText{Lines: blank(100), gate: gate})
	set := newSet(t, snap, markersOn(1, 2, 3))

	var fired atomic.Bool
	obs := &countingObserver{}
	s := Start(snap, set, func(*Search) { fired.Store(true) }, Options{Observer: obs})

	require.True(t, s.Abort())
	assert.False(t, s.Abort())
	close(gate)
	<-s.Done()

	assert.False(t, fired.Load())
	assert.Equal(t, StateAborted, s.State())
	_, ok := s.Result()
	assert.False(t, ok)
	assert.EqualValues(t, 1, obs.started.Load())
	assert.EqualValues(t, 1, obs.aborted.Load())
	assert.Zero(t, obs.completed.Load())
}

func TestSearchPanicIsRecovered(t *testing.T) {
	snap := tracking.NewSnapshot(panicText{})
	obs := &countingObserver{}
	var fired atomic.Bool

	s := Start(snap, nil, func(*Search) { fired.Store(true) }, Options{Observer: obs})
	<-s.Done()

	assert.Equal(t, StateFailed, s.State())
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "broken text")
	assert.False(t, fired.Load())
	assert.EqualValues(t, 1, obs.failed.Load())
}

func TestDecimate(t *testing.T) {
	matches := make([]Match, 1500)
	for i := range matches {
		matches[i] = Match{Line: i}
	}

	got := Decimate(matches[:1000], 500)
	require.Len(t, got, 500)
	for i, m := range got {
		require.Equal(t, 2*i, m.Line)
	}
	assert.Equal(t, got, Decimate(matches[:1000], 500), "deterministic")

	tests := []struct {
		name  string
		n     int
		limit int
		want  int
		last  int
	}{
		{"under cap", 10, 500, 10, 9},
		{"at cap", 500, 500, 500, 499},
		{"just over cap", 501, 500, 500, 499},
		{"one short of twice cap", 999, 500, 500, 997},
		{"one over twice cap", 1001, 500, 500, 998},
		{"uneven", 1499, 500, 500, 1496},
		{"no cap", 1000, 0, 1000, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decimate(matches[:tt.n], tt.limit)
			require.Len(t, got, tt.want)
			assert.Equal(t, 0, got[0].Line)
			assert.Equal(t, tt.last, got[len(got)-1].Line)
			for i := 1; i < len(got); i++ {
				require.Less(t, got[i-1].Line, got[i].Line)
			}
		})
	}
}

// ownerLoop runs posted functions on one goroutine, like app.Loop.
type ownerLoop struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func newOwnerLoop() *ownerLoop {
	l := &ownerLoop{tasks: make(chan func(), 16)}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for fn := range l.tasks {
			fn()
		}
	}()
	return l
}

func (l *ownerLoop) post(fn func()) { l.tasks <- fn }

func (l *ownerLoop) stop() {
	close(l.tasks)
	l.wg.Wait()
}

func TestCoordinatorPublishes(t *testing.T) {
	loop := newOwnerLoop()
	defer loop.stop()

	results := make(chan *Result, 4)
	c := NewCoordinator(CoordinatorOptions{
		Post:     loop.post,
		OnResult: func(r *Result) { results <- r },
	})

	snap := tracking.NewSnapshot(blank(10))
	set := newSet(t, snap, markersOn(3))
	s := c.Restart(snap, set)
	require.NotNil(t, s)

	select {
	case r := <-results:
		assert.Equal(t, s.ID(), r.SearchID)
		assert.Same(t, r, c.Latest())
	case <-time.After(5 * time.Second):
		t.Fatal("no result published")
	}

	assert.Same(t, s, c.Refresh(snap, set), "refresh reuses a covering search")
}

func TestCoordinatorRestartAbortsPrevious(t *testing.T) {
	gate := make(chan struct{})
	slow := tracking.NewSnapshot(gatedText{Lines: blank(10), gate: gate})

	var published atomic.Int32
	c := NewCoordinator(CoordinatorOptions{
		OnResult: func(*Result) { published.Add(1) },
	})

	first := c.Restart(slow, newSet(t, slow, markersOn(1)))
	fast := tracking.NewSnapshot(blank(10))
	second := c.Restart(fast, newSet(t, fast, markersOn(2)))

	assert.Equal(t, StateAborted, first.State())
	<-second.Done()
	close(gate)
	<-first.Done()

	require.Eventually(t, func() bool { return c.Latest() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, second.ID(), c.Latest().SearchID)
	assert.EqualValues(t, 1, published.Load())
}

func TestCoordinatorDropsStaleCompletion(t *testing.T) {
	var queued []func()
	var mu sync.Mutex
	post := func(fn func()) {
		mu.Lock()
		queued = append(queued, fn)
		mu.Unlock()
	}

	var published atomic.Int32
	c := NewCoordinator(CoordinatorOptions{
		Post:     post,
		OnResult: func(*Result) { published.Add(1) },
	})

	snap := tracking.NewSnapshot(blank(5))
	first := c.Restart(snap, newSet(t, snap, markersOn(1)))
	<-first.Done()

	// The first search completed but its result is still queued for the
	// owner when a new search replaces it.
	gate := make(chan struct{})
	defer close(gate)
	c.Restart(tracking.NewSnapshot(gatedText{Lines: blank(5), gate: gate}), nil)

	mu.Lock()
	pending := queued
	mu.Unlock()
	require.Len(t, pending, 1)
	pending[0]()

	assert.Nil(t, c.Latest())
	assert.Zero(t, published.Load())
}

func TestCoordinatorDispose(t *testing.T) {
	gate := make(chan struct{})
	snap := tracking.NewSnapshot(gatedText{Lines: blank(5), gate: gate})
	c := NewCoordinator(CoordinatorOptions{})

	s := c.Restart(snap, nil)
	c.Dispose()
	c.Dispose()
	close(gate)
	<-s.Done()

	assert.Equal(t, StateAborted, s.State())
	assert.Nil(t, c.Restart(snap, nil))
	assert.Nil(t, c.Latest())
	assert.False(t, c.Abort())
}
