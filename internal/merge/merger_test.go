package merge

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricebot-pl/internal/classify"
	"github.com/pricebot-pl/internal/dataset"
	"github.com/pricebot-pl/internal/listing"
	"github.com/pricebot-pl/internal/normalize"
	"github.com/pricebot-pl/internal/resolve"
)

func candidate(url string, res resolve.Resolution, class classify.Class) Candidate {
	return Candidate{
		Record:     listing.RawRecord{URL: url, RawAddress: "ul. Kwiatowa 5, Warszawa"},
		Address:    normalize.Normalize("ul. Kwiatowa 5, Warszawa"),
		Resolution: res,
		Ownership:  class,
	}
}

func exact(code string) resolve.Resolution {
	return resolve.Resolution{UnitCode: code, UnitName: "Warszawa", Court: "SR Warszawa", Confidence: 1.0, Method: resolve.MethodExact}
}

func variant(code string) resolve.Resolution {
	return resolve.Resolution{UnitCode: code, UnitName: "Warszawa", Court: "SR Warszawa", Confidence: 0.8, Method: resolve.MethodVariant}
}

func TestMergeInsertAndUpdate(t *testing.T) {
	ds := dataset.New()
	m := NewMerger()

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rep := NewReport("run-1", t0)
	m.Merge(ds, []Candidate{
		candidate("https://example.pl/oferta/1", exact("1465011"), classify.SingleOwner),
		candidate("https://example.pl/oferta/2", resolve.Unresolved(), classify.Unknown),
	}, t0, rep)

	assert.Equal(t, 2, rep.Inserted)
	assert.Equal(t, 0, rep.Updated)
	assert.Equal(t, 1, rep.Unresolved)

	rec, ok := ds.Get("https://example.pl/oferta/1")
	require.True(t, ok)
	assert.Equal(t, t0, rec.FirstSeen)
	assert.Equal(t, t0, rec.LastSeen)
	assert.Equal(t, 1, rec.MergeCount)

	// Second sighting advances last-seen and the merge count.
	t1 := t0.Add(24 * time.Hour)
	rep2 := NewReport("run-2", t1)
	m.Merge(ds, []Candidate{
		candidate("https://example.pl/oferta/1", exact("1465011"), classify.MultiOwner),
	}, t1, rep2)

	assert.Equal(t, 1, rep2.Updated)
	rec, _ = ds.Get("https://example.pl/oferta/1")
	assert.Equal(t, t0, rec.FirstSeen)
	assert.Equal(t, t1, rec.LastSeen)
	assert.Equal(t, 2, rec.MergeCount)
	// Latest ownership classification always wins.
	assert.Equal(t, classify.MultiOwner, rec.Ownership)
}

func TestMergeMonotonicEnrichment(t *testing.T) {
	ds := dataset.New()
	m := NewMerger()
	t0 := time.Now().UTC().Truncate(time.Second)

	m.Merge(ds, []Candidate{candidate("u", exact("1465011"), classify.SingleOwner)}, t0, NewReport("r1", t0))

	// A later unresolved scrape must not erase the stored resolution but
	// must still advance last-seen.
	t1 := t0.Add(time.Hour)
	m.Merge(ds, []Candidate{candidate("u", resolve.Unresolved(), classify.SingleOwner)}, t1, NewReport("r2", t1))

	rec, _ := ds.Get("u")
	assert.Equal(t, resolve.MethodExact, rec.Resolution.Method)
	assert.Equal(t, "1465011", rec.Resolution.UnitCode)
	assert.Equal(t, t1, rec.LastSeen)
	assert.Equal(t, 2, rec.MergeCount)

	// A variant match (lower confidence) does not replace exact either.
	t2 := t1.Add(time.Hour)
	m.Merge(ds, []Candidate{candidate("u", variant("1465011"), classify.SingleOwner)}, t2, NewReport("r3", t2))
	rec, _ = ds.Get("u")
	assert.Equal(t, resolve.MethodExact, rec.Resolution.Method)

	// A strictly higher confidence replaces a stored variant resolution.
	ds2 := dataset.New()
	m.Merge(ds2, []Candidate{candidate("v", variant("1465011"), classify.SingleOwner)}, t0, NewReport("r4", t0))
	m.Merge(ds2, []Candidate{candidate("v", exact("1465011"), classify.SingleOwner)}, t1, NewReport("r5", t1))
	rec, _ = ds2.Get("v")
	assert.Equal(t, resolve.MethodExact, rec.Resolution.Method)
	assert.Equal(t, 1.0, rec.Resolution.Confidence)
}

func TestMergeConflict(t *testing.T) {
	ds := dataset.New()
	m := NewMerger()
	t0 := time.Now().UTC()

	m.Merge(ds, []Candidate{candidate("u", exact("1465011"), classify.SingleOwner)}, t0, NewReport("r1", t0))

	// Equal confidence and rank but a different unit: flagged, stored
	// value unchanged.
	rep := NewReport("r2", t0.Add(time.Hour))
	m.Merge(ds, []Candidate{candidate("u", exact("0661011"), classify.SingleOwner)}, t0.Add(time.Hour), rep)

	require.Equal(t, 1, rep.ConflictCount())
	assert.Equal(t, "1465011", rep.Conflicts[0].StoredUnit)
	assert.Equal(t, "0661011", rep.Conflicts[0].NewUnit)

	rec, _ := ds.Get("u")
	assert.Equal(t, "1465011", rec.Resolution.UnitCode)
	// The conflicting sighting still counts as an update.
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, 2, rec.MergeCount)
}

func TestMergeIdempotence(t *testing.T) {
	batch := []Candidate{
		candidate("a", exact("1465011"), classify.SingleOwner),
		candidate("b", variant("0661011"), classify.MultiOwner),
		candidate("c", resolve.Unresolved(), classify.Unknown),
	}

	m := NewMerger()
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	once := dataset.New()
	m.Merge(once, batch, t0, NewReport("r1", t0))

	twice := dataset.New()
	m.Merge(twice, batch, t0, NewReport("r2", t0))
	rep := NewReport("r3", t1)
	m.Merge(twice, batch, t1, rep)

	assert.Equal(t, 0, rep.Inserted)
	assert.Equal(t, 3, rep.Updated)
	assert.Equal(t, 0, rep.ConflictCount())

	for _, url := range []string{"a", "b", "c"} {
		one, _ := once.Get(url)
		two, _ := twice.Get(url)

		// Identical except last-seen advances and the merge count grows
		// by one.
		assert.Equal(t, one.Resolution, two.Resolution, url)
		assert.Equal(t, one.Ownership, two.Ownership, url)
		assert.Equal(t, one.FirstSeen, two.FirstSeen, url)
		assert.Equal(t, t1, two.LastSeen, url)
		assert.Equal(t, one.MergeCount+1, two.MergeCount, url)
	}
}

func TestMergeConcurrentDistinctURLs(t *testing.T) {
	ds := dataset.New()
	m := NewMerger()
	t0 := time.Now().UTC()
	rep := NewReport("r", t0)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := candidate(fmt.Sprintf("url-%d", i), exact("1465011"), classify.SingleOwner)
			m.MergeOne(ds, c, t0, rep)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 200, ds.Len())
	assert.Equal(t, 200, rep.Inserted)
}
