// Package classify assigns an ownership classification to a scraped
// record from its declared owner count and premises category.
package classify

import (
	"strings"

	"github.com/pricebot-pl/internal/listing"
	"github.com/pricebot-pl/internal/normalize"
)

// Class is the ownership classification of a listing.
type Class string

const (
	Unknown                    Class = "unknown"
	SingleOwner                Class = "single_owner"
	SingleOwnerResidentialUnit Class = "single_owner_residential_unit"
	MultiOwner                 Class = "multi_owner"
)

// Classify applies the ownership decision table. Pure, no failure mode.
// An owner count of 0 is treated the same as absent: the registers never
// report zero owners, so it can only mean "not stated".
func Classify(rec listing.RawRecord) Class {
	if rec.OwnerCount == nil || *rec.OwnerCount <= 0 {
		return Unknown
	}
	if *rec.OwnerCount > 1 {
		return MultiOwner
	}
	premises := strings.Join(strings.Fields(normalize.Fold(rec.Premises)), " ")
	if premises == listing.CategoryResidentialUnit {
		return SingleOwnerResidentialUnit
	}
	return SingleOwner
}
