// Package classify owns the two display buffers and decides, per incoming
// spot, whether it is still needed for an award and how long it stays
// highlighted.
package classify

import (
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"dxwatch/award"
	"dxwatch/cty"
	"dxwatch/spot"
)

// Classified is a spot plus the two award flags computed at classification
// time. Flags are never cached across award-table reloads; a rebuild
// reclassifies from the live tables.
type Classified struct {
	Spot            *spot.Spot
	EntityID        string // resolved award entity, "" when resolution failed
	NeededChallenge bool
	NeededGrid      bool
}

// Needed reports whether either award still wants this spot.
func (c Classified) Needed() bool {
	return c.NeededChallenge || c.NeededGrid
}

type neededEntry struct {
	c       Classified
	keyHash uint64 // xxh3 of (callsign, band) for replacement matching
	at      time.Time
}

const (
	// DefaultRegularCapacity bounds the regular buffer; oldest entries are
	// dropped once exceeded.
	DefaultRegularCapacity = 500
	// DefaultNeededTTL keeps needed spots visible longer than the regular
	// buffer naturally would.
	DefaultNeededTTL = 30 * time.Minute

	rateWindow = time.Minute
)

// Classifier consumes parsed spots, asks the resolver and tracker whether
// each one matters, and maintains the needed/regular buffers for display.
// Resolver and tracker references are immutable snapshots; a reload swaps
// the whole table under the lock.
type Classifier struct {
	mu       sync.Mutex
	resolver *cty.Resolver
	tracker  *award.Tracker

	gridBand string // the single band qualifying for the grid award

	needed   []neededEntry // front = newest
	regular  []Classified  // front = newest, bounded
	capacity int
	ttl      time.Duration

	rateTimes []time.Time

	now func() time.Time
}

// Options configures a Classifier.
type Options struct {
	Resolver        *cty.Resolver
	Tracker         *award.Tracker
	GridBand        string        // defaults to "6m"
	RegularCapacity int           // defaults to DefaultRegularCapacity
	NeededTTL       time.Duration // defaults to DefaultNeededTTL

	now func() time.Time
}

// NewClassifier builds a classifier. A nil resolver or tracker degrades to
// "never needed" rather than failing.
func NewClassifier(opts Options) *Classifier {
	if opts.Resolver == nil {
		opts.Resolver = cty.Empty()
	}
	if opts.Tracker == nil {
		opts.Tracker = award.NewTracker()
	}
	if opts.GridBand == "" {
		opts.GridBand = "6m"
	}
	if opts.RegularCapacity <= 0 {
		opts.RegularCapacity = DefaultRegularCapacity
	}
	if opts.NeededTTL <= 0 {
		opts.NeededTTL = DefaultNeededTTL
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return &Classifier{
		resolver: opts.Resolver,
		tracker:  opts.Tracker,
		gridBand: opts.GridBand,
		capacity: opts.RegularCapacity,
		ttl:      opts.NeededTTL,
		now:      opts.now,
	}
}

// SetResolver installs a freshly built resolver snapshot.
func (cl *Classifier) SetResolver(r *cty.Resolver) {
	if r == nil {
		r = cty.Empty()
	}
	cl.mu.Lock()
	cl.resolver = r
	cl.mu.Unlock()
}

// SetTracker installs a freshly loaded award tracker snapshot.
func (cl *Classifier) SetTracker(t *award.Tracker) {
	if t == nil {
		t = award.NewTracker()
	}
	cl.mu.Lock()
	cl.tracker = t
	cl.mu.Unlock()
}

// SetNeededTTL changes how long needed spots stay buffered. The new value
// applies on the next read; existing entries keep their arrival timestamps.
func (cl *Classifier) SetNeededTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	cl.mu.Lock()
	cl.ttl = ttl
	cl.mu.Unlock()
}

// Process classifies one spot and files it into the appropriate buffer.
func (cl *Classifier) Process(s *spot.Spot) Classified {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	c := cl.classifyLocked(s)
	cl.recordRateLocked(now)

	if c.Needed() {
		cl.insertNeededLocked(c, now)
	} else {
		cl.insertRegularLocked(c)
	}
	return c
}

// classifyLocked computes the award flags without touching the buffers.
func (cl *Classifier) classifyLocked(s *spot.Spot) Classified {
	c := Classified{Spot: s}

	entityID, ok := cl.resolver.Resolve(s.Entity)
	if ok {
		c.EntityID = entityID
		c.NeededChallenge = cl.tracker.IsNeededChallenge(entityID, s.Band)
	}

	// The grid award runs on a single band; spots elsewhere never qualify.
	if award.NormalizeBand(s.Band) == award.NormalizeBand(cl.gridBand) && cty.IsValidGrid(s.Grid) {
		c.NeededGrid = cl.tracker.IsNeededGrid(s.Grid)
	}
	return c
}

// insertNeededLocked places a needed spot at the front, evicting any prior
// entry for the same (callsign, band) regardless of recency.
func (cl *Classifier) insertNeededLocked(c Classified, at time.Time) {
	keyHash := xxh3.HashString(c.Spot.Key())
	kept := cl.needed[:0]
	for _, e := range cl.needed {
		if e.keyHash != keyHash {
			kept = append(kept, e)
		}
	}
	cl.needed = append([]neededEntry{{c: c, keyHash: keyHash, at: at}}, kept...)
}

func (cl *Classifier) insertRegularLocked(c Classified) {
	cl.regular = append([]Classified{c}, cl.regular...)
	if len(cl.regular) > cl.capacity {
		cl.regular = cl.regular[:cl.capacity]
	}
}

// pruneNeededLocked drops entries older than the TTL. Runs before every
// read so a TTL change takes effect on the next read.
func (cl *Classifier) pruneNeededLocked(now time.Time) {
	kept := cl.needed[:0]
	for _, e := range cl.needed {
		if now.Sub(e.at) < cl.ttl {
			kept = append(kept, e)
		}
	}
	cl.needed = kept
}

// Snapshot returns the filtered view for display: needed spots first (newest
// leading), then the regular buffer.
func (cl *Classifier) Snapshot(f Filter) []Classified {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.pruneNeededLocked(cl.now())

	out := make([]Classified, 0, len(cl.needed)+len(cl.regular))
	for _, e := range cl.needed {
		if f.Match(e.c) {
			out = append(out, e.c)
		}
	}
	for _, c := range cl.regular {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// NeededCount returns the live needed-buffer size after TTL pruning.
func (cl *Classifier) NeededCount() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.pruneNeededLocked(cl.now())
	return len(cl.needed)
}

// RegularCount returns the regular-buffer size.
func (cl *Classifier) RegularCount() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.regular)
}

// recordRateLocked tracks arrivals inside the rolling rate window.
func (cl *Classifier) recordRateLocked(now time.Time) {
	kept := cl.rateTimes[:0]
	for _, t := range cl.rateTimes {
		if now.Sub(t) <= rateWindow {
			kept = append(kept, t)
		}
	}
	cl.rateTimes = append(kept, now)
}

// Rate returns spots received in the last minute.
func (cl *Classifier) Rate() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	now := cl.now()
	n := 0
	for _, t := range cl.rateTimes {
		if now.Sub(t) <= rateWindow {
			n++
		}
	}
	return n
}
