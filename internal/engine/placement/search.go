package placement

import (
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/dshills/marginalia/internal/engine/tracking"
	"github.com/dshills/marginalia/internal/marker"
)

// State is the lifecycle state of a search.
type State int32

const (
	StateRunning State = iota
	StateCompleted
	StateAborted
	StateFailed
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer receives search lifecycle notifications. Implementations must
// be safe for concurrent use.
type Observer interface {
	SearchStarted()
	SearchAborted()
	SearchCompleted(d time.Duration, matches int)
	SearchFailed()
}

type nopObserver struct{}

func (nopObserver) SearchStarted() {}
func (nopObserver) SearchAborted() {}
func (nopObserver) SearchCompleted(time.Duration, int) {}
func (nopObserver) SearchFailed() {}

// Options configures a search.
type Options struct {
	Logger   zerolog.Logger
	Observer Observer
}

// Search is one background scan of a snapshot.
type Search struct {
	id       string
	snapshot *tracking.Snapshot
	set      *marker.Set
	started  time.Time

	state atomic.Int32

	// result is written by the worker before the completion CAS and read
	// only after observing StateCompleted.
	result *Result
	err    error

	onComplete func(*Search)
	done       chan struct{}
	logger     zerolog.Logger
	observer   Observer
}

// Start launches a search of snap for the markers in set. onComplete runs
// on the worker goroutine exactly once if the search completes, and never
// if it is aborted or fails.
func Start(snap *tracking.Snapshot, set *marker.Set, onComplete func(*Search), opts Options) *Search {
	s := &Search{
		id:         uuid.NewString(),
		snapshot:   snap,
		set:        set,
		started:    time.Now(),
		onComplete: onComplete,
		done:       make(chan struct{}),
		observer:   opts.Observer,
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	s.logger = opts.Logger.With().Str("component", "placement").Str("search", s.id).Logger()
	s.observer.SearchStarted()

	go s.work()
	return s
}

// ID returns the search's unique id.
func (s *Search) ID() string {
	return s.id
}

// Snapshot returns the snapshot being searched.
func (s *Search) Snapshot() *tracking.Snapshot {
	return s.snapshot
}

// Set returns the marker set captured at start.
func (s *Search) Set() *marker.Set {
	return s.set
}

// State returns the current state.
func (s *Search) State() State {
	return State(s.state.Load())
}

// Done is closed when the worker goroutine exits.
func (s *Search) Done() <-chan struct{} {
	return s.done
}

// Abort stops a running search. It returns false if the search had
// already completed, failed or been aborted.
func (s *Search) Abort() bool {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateAborted)) {
		return false
	}
	s.observer.SearchAborted()
	s.logger.Debug().Msg("search aborted")
	return true
}

// Result returns the result of a completed search.
func (s *Search) Result() (*Result, bool) {
	if s.State() != StateCompleted {
		return nil, false
	}
	return s.result, true
}

// Err returns the recovered panic of a failed search.
func (s *Search) Err() error {
	<-s.done
	return s.err
}

func (s *Search) aborted() bool {
	return s.State() == StateAborted
}

func (s *Search) work() {
	defer close(s.done)

	var pc panics.Catcher
	var res *Result
	pc.Try(func() { res = s.scan() })

	if r := pc.Recovered(); r != nil {
		s.err = r.AsError()
		if s.state.CompareAndSwap(int32(StateRunning), int32(StateFailed)) {
			s.observer.SearchFailed()
			s.logger.Error().Err(s.err).Msg("search worker panicked")
		}
		return
	}
	if res == nil {
		return
	}

	s.result = res
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateCompleted)) {
		return
	}
	s.observer.SearchCompleted(res.Duration, len(res.Matches))
	s.logger.Debug().
		Int("matches", len(res.Matches)).
		Dur("took", res.Duration).
		Msg("search completed")
	if s.onComplete != nil {
		s.onComplete(s)
	}
}

// scan returns nil if the search was aborted while running.
func (s *Search) scan() *Result {
	if s.snapshot == nil {
		panic(ErrNilSnapshot)
	}
	if s.aborted() {
		return nil
	}

	lineCount := s.snapshot.LineCount()
	lines := roaring.New()
	first := make(map[uint32]Match)
	dropped := 0

	var from *tracking.Snapshot
	var markers []marker.Marker
	if s.set != nil {
		from = s.set.Snapshot()
		markers = s.set.Markers()
	}
	for _, m := range markers {
		if s.aborted() {
			return nil
		}
		p, ok := tracking.Translate(m.AnchorLine, from, s.snapshot)
		if !ok || p.Line >= lineCount {
			dropped++
			continue
		}
		key := uint32(p.Line)
		if lines.CheckedAdd(key) {
			first[key] = Match{Line: p.Line, Color: m.Color, Kind: m.Kind, Count: 1}
			continue
		}
		match := first[key]
		match.Count++
		first[key] = match
	}

	matches := make([]Match, 0, lines.GetCardinality())
	for line := 0; line < lineCount; line++ {
		if s.aborted() {
			return nil
		}
		if lines.Contains(uint32(line)) {
			matches = append(matches, first[uint32(line)])
		}
	}

	return &Result{
		SearchID: s.id,
		Snapshot: s.snapshot,
		Version:  s.snapshot.Version(),
		Matches:  matches,
		Dropped:  dropped,
		Duration: time.Since(s.started),
	}
}
