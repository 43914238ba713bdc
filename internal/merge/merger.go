// Package merge reconciles freshly processed records against the
// consolidated dataset. Dedup key is the listing URL; stored resolutions
// are only ever replaced by better or equally ranked ones, so a transient
// unresolved scrape can never erase a previously good resolution.
package merge

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/pricebot-pl/internal/classify"
	"github.com/pricebot-pl/internal/dataset"
	"github.com/pricebot-pl/internal/listing"
	"github.com/pricebot-pl/internal/normalize"
	"github.com/pricebot-pl/internal/resolve"
)

// Candidate is one scraped record after normalization, resolution and
// classification, ready to merge.
type Candidate struct {
	Record     listing.RawRecord
	Address    normalize.Address
	Resolution resolve.Resolution
	Ownership  classify.Class
}

// Conflict records two equally ranked resolutions disagreeing on the
// administrative unit for one listing. The stored value is left unchanged
// pending manual review.
type Conflict struct {
	URL        string  `json:"link"`
	StoredUnit string  `json:"stored_unit"`
	NewUnit    string  `json:"new_unit"`
	Confidence float64 `json:"confidence"`
}

// Skip records a raw record excluded from the batch, with its cause.
type Skip struct {
	URL   string `json:"link"`
	Cause string `json:"cause"`
}

// Report aggregates per-run outcomes. Unresolved addresses and conflicts
// are first-class outcomes here, not errors.
type Report struct {
	mu sync.Mutex

	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
	Unresolved int        `json:"unresolved"`
	Conflicts  []Conflict `json:"conflicts"`
	Skipped    []Skip     `json:"skipped"`
}

// NewReport starts a report for one run.
func NewReport(runID string, startedAt time.Time) *Report {
	return &Report{RunID: runID, StartedAt: startedAt}
}

// AddSkip records an excluded record. Safe for concurrent use.
func (r *Report) AddSkip(url, cause string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, Skip{URL: url, Cause: cause})
}

// ConflictCount returns the number of recorded conflicts.
func (r *Report) ConflictCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Conflicts)
}

// SkipCount returns the number of excluded records.
func (r *Report) SkipCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Skipped)
}

func (r *Report) addConflict(c Conflict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Conflicts = append(r.Conflicts, c)
}

func (r *Report) count(inserted bool, unresolved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inserted {
		r.Inserted++
	} else {
		r.Updated++
	}
	if unresolved {
		r.Unresolved++
	}
}

// mergeStripes bounds the number of per-key locks. Merges for URLs on
// different stripes proceed concurrently.
const mergeStripes = 64

// Merger applies candidates to a dataset under striped per-URL locking, so
// at most one mutation per listing URL is in flight at a time.
type Merger struct {
	locks [mergeStripes]sync.Mutex
}

// NewMerger returns a merger ready for concurrent use.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge applies a whole batch sequentially and stamps the report finished.
// Concurrent callers use MergeOne directly.
func (m *Merger) Merge(ds *dataset.Dataset, cands []Candidate, at time.Time, rep *Report) {
	for _, c := range cands {
		m.MergeOne(ds, c, at, rep)
	}
	rep.FinishedAt = at
}

// MergeOne reconciles a single candidate. The new record value is built
// fully and swapped in atomically; aborting between merges leaves every
// record either untouched or fully updated.
func (m *Merger) MergeOne(ds *dataset.Dataset, c Candidate, at time.Time, rep *Report) {
	lock := &m.locks[stripe(c.Record.URL)]
	lock.Lock()
	defer lock.Unlock()

	unresolved := !c.Resolution.Resolved()

	cur, ok := ds.Get(c.Record.URL)
	if !ok {
		ds.Swap(dataset.ConsolidatedRecord{
			URL:        c.Record.URL,
			RawAddress: c.Record.RawAddress,
			AddressKey: c.Address.Key,
			Resolution: c.Resolution,
			Ownership:  c.Ownership,
			FirstSeen:  at,
			LastSeen:   at,
			MergeCount: 1,
		})
		rep.count(true, unresolved)
		return
	}

	next := cur
	next.LastSeen = at
	next.MergeCount++
	next.RawAddress = c.Record.RawAddress
	next.AddressKey = c.Address.Key
	// Ownership can legitimately change between runs; the latest
	// classification always wins.
	next.Ownership = c.Ownership

	switch {
	case c.Resolution.Confidence > cur.Resolution.Confidence:
		next.Resolution = c.Resolution

	case c.Resolution.Confidence == cur.Resolution.Confidence &&
		c.Resolution.Method.Rank() >= cur.Resolution.Method.Rank():
		if c.Resolution.Resolved() && cur.Resolution.Resolved() &&
			c.Resolution.UnitCode != cur.Resolution.UnitCode {
			// Equal rank, different unit: flag for review, keep the
			// stored value.
			rep.addConflict(Conflict{
				URL:        c.Record.URL,
				StoredUnit: cur.Resolution.UnitCode,
				NewUnit:    c.Resolution.UnitCode,
				Confidence: c.Resolution.Confidence,
			})
		} else {
			next.Resolution = c.Resolution
		}
	}

	ds.Swap(next)
	rep.count(false, unresolved)
}

func stripe(url string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(url))
	return h.Sum32() % mergeStripes
}
