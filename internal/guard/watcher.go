package guard

import "context"

// Watcher re-runs a guard whenever the session changes, so an open page
// learns about sign-out without reloading. Each event supersedes any
// resolution still in flight: a stale profile fetch that completes after a
// newer event can no longer surface its decision.
type Watcher struct {
	guard     *Guard
	events    <-chan *Session
	decisions chan Decision
}

// NewWatcher wraps a guard around a session event stream. The stream
// delivers the new session on each change, nil meaning signed out.
func NewWatcher(g *Guard, events <-chan *Session) *Watcher {
	return &Watcher{
		guard:     g,
		events:    events,
		decisions: make(chan Decision),
	}
}

// Decisions delivers at most one decision per session change, in event
// order.
func (w *Watcher) Decisions() <-chan Decision {
	return w.decisions
}

// Run resolves once for the initial page load, then once per event, until
// ctx is cancelled or the event stream closes.
func (w *Watcher) Run(ctx context.Context) {
	type staged struct {
		gen uint64
		d   Decision
	}

	ctx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	results := make(chan staged, 1)
	var gen uint64
	cancel := func() {}

	start := func(resolve func(context.Context) Decision) {
		cancel()
		gen++
		myGen := gen
		rctx, c := context.WithCancel(ctx)
		cancel = c
		go func() {
			d := resolve(rctx)
			select {
			case results <- staged{gen: myGen, d: d}:
			case <-ctx.Done():
			}
		}()
	}

	start(w.guard.Resolve)

	for {
		select {
		case <-ctx.Done():
			return
		case sess, ok := <-w.events:
			if !ok {
				return
			}
			start(func(rctx context.Context) Decision {
				return w.guard.ResolveSession(rctx, sess)
			})
		case r := <-results:
			if r.gen != gen {
				continue // superseded by a newer event
			}
			select {
			case w.decisions <- r.d:
			case <-ctx.Done():
				return
			}
		}
	}
}
