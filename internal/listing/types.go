package listing

import (
	"fmt"
	"time"
)

// CategoryResidentialUnit is the premises category used by land-register
// reports for a self-contained residential unit.
const CategoryResidentialUnit = "lokal mieszkalny"

// RawRecord is one scraped listing as delivered by the scraper. It is
// immutable once produced; the pipeline only reads it.
type RawRecord struct {
	URL        string    // listing URL, dedup key across runs
	RawAddress string    // free-text address as shown on the listing page
	OwnerCount *int      // declared owner count, nil when the listing does not state it
	Premises   string    // premises category tag, e.g. "lokal mieszkalny"
	ScrapedAt  time.Time // when the page was fetched
}

// Validate reports whether the record carries the fields the pipeline
// requires. A failing record is skipped, never fatal to the batch.
func (r RawRecord) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("raw record has no listing URL")
	}
	if r.RawAddress == "" {
		return fmt.Errorf("raw record %s has no address text", r.URL)
	}
	return nil
}
