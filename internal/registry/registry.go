// Package registry loads the administrative-unit (TERYT) table and the
// court-jurisdiction table and indexes them for locality lookups. A
// Registry is built once per run and is read-only afterwards, so it is
// safe to share across workers without locking.
package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pricebot-pl/internal/normalize"
)

// AdministrativeUnit is one row of the territorial registry.
type AdministrativeUnit struct {
	Code       string   // stable territorial code, unique
	Name       string   // canonical name
	ParentCode string   // parent region code, empty for top-level units
	Variants   []string // known variant spellings
}

// JurisdictionArea is the court with legal competence over one unit.
type JurisdictionArea struct {
	UnitCode string
	Court    string
}

// LoadError reports a structural problem in a reference table. Reference
// data is required before any resolution, so this is fatal to the run.
type LoadError struct {
	Table  string
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("reference table %s: %s", e.Table, e.Reason)
}

// MissingJurisdictionError signals a unit with no mapped court. This is a
// data-integrity gap surfaced to the operator, never swallowed.
type MissingJurisdictionError struct {
	UnitCode string
}

func (e *MissingJurisdictionError) Error() string {
	return fmt.Sprintf("no court mapped for administrative unit %s", e.UnitCode)
}

// Registry indexes units by code, canonical name and variant spelling.
// Name and variant keys are locality bases (see normalize.LocalityBase) so
// lookups and normalization agree on what "the same name" means.
type Registry struct {
	byCode    map[string]*AdministrativeUnit
	byName    map[string]*AdministrativeUnit
	byVariant map[string]*AdministrativeUnit
	courts    map[string]string
}

// Load reads both reference tables. Either table missing a required column
// or containing a duplicate primary key fails with a LoadError.
func Load(unitsPath, courtsPath string) (*Registry, error) {
	r := &Registry{
		byCode:    make(map[string]*AdministrativeUnit),
		byName:    make(map[string]*AdministrativeUnit),
		byVariant: make(map[string]*AdministrativeUnit),
		courts:    make(map[string]string),
	}

	if err := r.loadUnits(unitsPath); err != nil {
		return nil, err
	}
	if err := r.loadCourts(courtsPath); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup finds a unit by normalized locality: exact canonical name first,
// then the variant index. Nil means no match, which is an expected outcome.
func (r *Registry) Lookup(normalizedLocality string) *AdministrativeUnit {
	if unit := r.LookupExact(normalizedLocality); unit != nil {
		return unit
	}
	return r.LookupVariant(normalizedLocality)
}

// LookupExact matches against canonical names only.
func (r *Registry) LookupExact(normalizedLocality string) *AdministrativeUnit {
	return r.byName[normalizedLocality]
}

// LookupVariant matches against registered variant spellings only.
func (r *Registry) LookupVariant(normalizedLocality string) *AdministrativeUnit {
	return r.byVariant[normalizedLocality]
}

// JurisdictionFor returns the competent court for a unit code.
func (r *Registry) JurisdictionFor(unitCode string) (JurisdictionArea, error) {
	court, ok := r.courts[unitCode]
	if !ok {
		return JurisdictionArea{}, &MissingJurisdictionError{UnitCode: unitCode}
	}
	return JurisdictionArea{UnitCode: unitCode, Court: court}, nil
}

// UnitCount returns the number of loaded administrative units.
func (r *Registry) UnitCount() int { return len(r.byCode) }

// CourtCount returns the number of loaded jurisdiction mappings.
func (r *Registry) CourtCount() int { return len(r.courts) }

func (r *Registry) loadUnits(path string) error {
	rows, columnMap, err := openTable(path, "units")
	if err != nil {
		return err
	}
	defer rows.close()

	for _, col := range []string{"kod", "nazwa", "warianty"} {
		if _, ok := columnMap[col]; !ok {
			return &LoadError{Table: "units", Reason: fmt.Sprintf("missing required column %q", col)}
		}
	}

	for {
		row, err := rows.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &LoadError{Table: "units", Reason: err.Error()}
		}

		unit := &AdministrativeUnit{
			Code:       cell(row, columnMap, "kod"),
			Name:       cell(row, columnMap, "nazwa"),
			ParentCode: cell(row, columnMap, "kod_nadrzedny"),
		}
		if unit.Code == "" {
			continue
		}
		if _, dup := r.byCode[unit.Code]; dup {
			return &LoadError{Table: "units", Reason: fmt.Sprintf("duplicate unit code %s", unit.Code)}
		}

		if variants := cell(row, columnMap, "warianty"); variants != "" {
			for _, v := range strings.Split(variants, "|") {
				if v = strings.TrimSpace(v); v != "" {
					unit.Variants = append(unit.Variants, v)
				}
			}
		}

		r.byCode[unit.Code] = unit
		r.byName[normalize.LocalityBase(unit.Name)] = unit
		for _, v := range unit.Variants {
			key := normalize.LocalityBase(v)
			// Canonical names win over another unit's variant spelling.
			if _, taken := r.byVariant[key]; !taken {
				r.byVariant[key] = unit
			}
		}
	}
	return nil
}

func (r *Registry) loadCourts(path string) error {
	rows, columnMap, err := openTable(path, "courts")
	if err != nil {
		return err
	}
	defer rows.close()

	for _, col := range []string{"kod", "sad"} {
		if _, ok := columnMap[col]; !ok {
			return &LoadError{Table: "courts", Reason: fmt.Sprintf("missing required column %q", col)}
		}
	}

	for {
		row, err := rows.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &LoadError{Table: "courts", Reason: err.Error()}
		}

		code := cell(row, columnMap, "kod")
		court := cell(row, columnMap, "sad")
		if code == "" || court == "" {
			continue
		}
		// One court per unit at any given time.
		if _, dup := r.courts[code]; dup {
			return &LoadError{Table: "courts", Reason: fmt.Sprintf("duplicate court mapping for unit %s", code)}
		}
		r.courts[code] = court
	}
	return nil
}

// tableRows wraps a semicolon-separated CSV reader with its backing file.
type tableRows struct {
	file   *os.File
	reader *csv.Reader
}

func (t *tableRows) next() ([]string, error) { return t.reader.Read() }
func (t *tableRows) close()                  { t.file.Close() }

func openTable(path, table string) (*tableRows, map[string]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, &LoadError{Table: table, Reason: err.Error()}
	}

	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, nil, &LoadError{Table: table, Reason: "empty or unreadable header"}
	}
	if len(header) > 0 {
		// Reference exports come from Excel as utf-8-sig.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	columnMap := make(map[string]int)
	for i, col := range header {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return &tableRows{file: file, reader: reader}, columnMap, nil
}

func cell(row []string, columnMap map[string]int, name string) string {
	if idx, ok := columnMap[name]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
