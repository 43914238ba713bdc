// Package resolve matches normalized addresses against the reference
// registry. The matching is an explicit, ordered confidence ladder so the
// behaviour is deterministic: exact canonical name, then registered
// variant spelling, then unresolved. Unresolved is a valid terminal
// outcome, not an error.
package resolve

import (
	"github.com/pricebot-pl/internal/normalize"
	"github.com/pricebot-pl/internal/registry"
)

// Method tags how a resolution was obtained.
type Method string

const (
	MethodExact      Method = "exact"
	MethodVariant    Method = "variant"
	MethodUnresolved Method = "unresolved"
)

// Rank orders methods for merge decisions: exact > variant > unresolved.
func (m Method) Rank() int {
	switch m {
	case MethodExact:
		return 2
	case MethodVariant:
		return 1
	default:
		return 0
	}
}

// Confidence scores per rung of the ladder.
const (
	confidenceExact   = 1.0
	confidenceVariant = 0.8
)

// Resolution links a normalized address to an administrative unit and its
// competent court. It is embedded in the consolidated record; unresolved
// resolutions carry empty unit fields and confidence 0.
type Resolution struct {
	UnitCode   string  `json:"unit_code,omitempty"`
	UnitName   string  `json:"unit_name,omitempty"`
	Court      string  `json:"court,omitempty"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
}

// Resolved reports whether the ladder found an administrative unit.
func (r Resolution) Resolved() bool { return r.Method != MethodUnresolved }

// Unresolved is the zero outcome returned for addresses with no match.
func Unresolved() Resolution {
	return Resolution{Method: MethodUnresolved}
}

// Resolve walks the ladder for one address. Stateless and safe to call
// concurrently; the registry is read-only for the run's duration. The only
// error is a missing court mapping for a matched unit, which is a
// reference-data integrity failure and must abort the run.
func Resolve(addr normalize.Address, reg *registry.Registry) (Resolution, error) {
	if addr.Locality == "" {
		return Unresolved(), nil
	}

	if unit := reg.LookupExact(addr.Locality); unit != nil {
		return withJurisdiction(unit, confidenceExact, MethodExact, reg)
	}
	if unit := reg.LookupVariant(addr.Locality); unit != nil {
		return withJurisdiction(unit, confidenceVariant, MethodVariant, reg)
	}
	return Unresolved(), nil
}

func withJurisdiction(unit *registry.AdministrativeUnit, confidence float64, method Method, reg *registry.Registry) (Resolution, error) {
	area, err := reg.JurisdictionFor(unit.Code)
	if err != nil {
		return Unresolved(), err
	}
	return Resolution{
		UnitCode:   unit.Code,
		UnitName:   unit.Name,
		Court:      area.Court,
		Confidence: confidence,
		Method:     method,
	}, nil
}
