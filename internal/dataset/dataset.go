// Package dataset holds the consolidated listing dataset: one durable
// record per listing URL, enriched monotonically across scraping runs.
package dataset

import (
	"sort"
	"sync"
	"time"

	"github.com/pricebot-pl/internal/classify"
	"github.com/pricebot-pl/internal/resolve"
)

// ConsolidatedRecord is the durable representation of one listing across
// all runs. Created on first sighting of a URL, mutated on every
// subsequent sighting, never deleted automatically.
type ConsolidatedRecord struct {
	URL        string             `json:"link"`
	RawAddress string             `json:"adres"`
	AddressKey string             `json:"klucz"`
	Resolution resolve.Resolution `json:"adres_urzedowy"`
	Ownership  classify.Class     `json:"wlasnosc"`
	FirstSeen  time.Time          `json:"pierwszy_odczyt"`
	LastSeen   time.Time          `json:"ostatni_odczyt"`
	MergeCount int                `json:"scalenia"`
}

// Dataset maps listing URL to its consolidated record. Reads and swaps are
// guarded internally; the merger additionally serializes per-URL mutation
// so a record is never half-updated.
type Dataset struct {
	mu      sync.RWMutex
	records map[string]ConsolidatedRecord
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{records: make(map[string]ConsolidatedRecord)}
}

// Get returns a copy of the record for url.
func (d *Dataset) Get(url string) (ConsolidatedRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.records[url]
	return rec, ok
}

// Swap stores rec under its URL, replacing any previous value whole. The
// caller builds the new record fully before swapping, which keeps
// cancellation safe: either the old record or the new one is visible,
// nothing in between.
func (d *Dataset) Swap(rec ConsolidatedRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[rec.URL] = rec
}

// Len returns the number of consolidated records.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Snapshot returns all records ordered by URL, for stable persistence and
// listing endpoints.
func (d *Dataset) Snapshot() []ConsolidatedRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]ConsolidatedRecord, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
