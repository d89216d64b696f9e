package classify

import (
	"sync"
	"time"
)

// DefaultRebuildInterval caps how often a full display rebuild runs.
const DefaultRebuildInterval = 2 * time.Second

// Rebuilder coalesces rebuild requests and caps rebuild rate. Requests
// arriving inside the interval collapse into one deferred run; a deferred
// run is never dropped, so the last request always produces a rebuild.
type Rebuilder struct {
	interval time.Duration
	rebuild  func()

	mu      sync.Mutex
	quit    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	pending bool
	signal  chan struct{}
}

// NewRebuilder wraps rebuild with rate capping. Call Start before Request.
func NewRebuilder(interval time.Duration, rebuild func()) *Rebuilder {
	if interval <= 0 {
		interval = DefaultRebuildInterval
	}
	return &Rebuilder{
		interval: interval,
		rebuild:  rebuild,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		signal:   make(chan struct{}, 1),
	}
}

func (r *Rebuilder) Start() {
	r.wg.Add(1)
	go r.run()
}

func (r *Rebuilder) Stop() {
	close(r.quit)
	<-r.done
}

// Request asks for a rebuild. Safe from any goroutine; returns immediately.
func (r *Rebuilder) Request() {
	r.mu.Lock()
	r.pending = true
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *Rebuilder) run() {
	defer r.wg.Done()
	defer close(r.done)

	var last time.Time
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-r.signal:
			wait := r.interval - time.Since(last)
			if wait > 0 {
				// Inside the interval: hold the request until the
				// window reopens, coalescing anything that arrives
				// meanwhile.
				timer.Reset(wait)
				select {
				case <-timer.C:
				case <-r.quit:
					r.flush(&last)
					return
				}
			}
			r.flush(&last)
		case <-r.quit:
			r.flush(&last)
			return
		}
	}
}

// flush runs one rebuild if a request is pending.
func (r *Rebuilder) flush(last *time.Time) {
	r.mu.Lock()
	run := r.pending
	r.pending = false
	r.mu.Unlock()
	if run {
		r.rebuild()
		*last = time.Now()
	}
}
