package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const unitsCSV = `kod;nazwa;kod_nadrzedny;warianty
1465011;Warszawa;14;Warsaw|M. St. Warszawa
0661011;Lublin;06;
1261011;Kraków;12;Cracow|Krakow Miasto
`

const courtsCSV = `kod;sad
1465011;Sąd Rejonowy dla Warszawy-Mokotowa
0661011;Sąd Rejonowy Lublin-Zachód
`

func TestLoadAndLookup(t *testing.T) {
	reg, err := Load(writeFile(t, "teryt.csv", unitsCSV), writeFile(t, "sady.csv", courtsCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, reg.UnitCount())
	assert.Equal(t, 2, reg.CourtCount())

	unit := reg.LookupExact("warszawa")
	require.NotNil(t, unit)
	assert.Equal(t, "1465011", unit.Code)
	assert.Equal(t, "14", unit.ParentCode)

	// Diacritics in the canonical name are folded for the index key.
	require.NotNil(t, reg.LookupExact("krakow"))

	// A locality present only as a variant spelling is not an exact match.
	assert.Nil(t, reg.LookupExact("warsaw"))
	variant := reg.LookupVariant("warsaw")
	require.NotNil(t, variant)
	assert.Equal(t, "1465011", variant.Code)

	// Lookup falls through exact to variant and returns nil on a miss.
	assert.Equal(t, variant, reg.Lookup("warsaw"))
	assert.Nil(t, reg.Lookup("pcim dolny"))
}

func TestJurisdictionFor(t *testing.T) {
	reg, err := Load(writeFile(t, "teryt.csv", unitsCSV), writeFile(t, "sady.csv", courtsCSV))
	require.NoError(t, err)

	area, err := reg.JurisdictionFor("1465011")
	require.NoError(t, err)
	assert.Equal(t, "Sąd Rejonowy dla Warszawy-Mokotowa", area.Court)

	// Kraków has no mapped court: a data-integrity gap, surfaced as a
	// typed error.
	_, err = reg.JurisdictionFor("1261011")
	var missing *MissingJurisdictionError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "1261011", missing.UnitCode)
}

func TestLoadErrors(t *testing.T) {
	courts := writeFile(t, "sady.csv", courtsCSV)

	t.Run("missing column", func(t *testing.T) {
		units := writeFile(t, "teryt.csv", "kod;nazwa\n1;Warszawa\n")
		_, err := Load(units, courts)
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "units", loadErr.Table)
	})

	t.Run("duplicate unit code", func(t *testing.T) {
		units := writeFile(t, "teryt.csv", "kod;nazwa;kod_nadrzedny;warianty\n1;Warszawa;;\n1;Lublin;;\n")
		_, err := Load(units, courts)
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Contains(t, loadErr.Reason, "duplicate unit code")
	})

	t.Run("duplicate court mapping", func(t *testing.T) {
		units := writeFile(t, "teryt.csv", unitsCSV)
		dupCourts := writeFile(t, "sady.csv", "kod;sad\n1465011;A\n1465011;B\n")
		_, err := Load(units, dupCourts)
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "courts", loadErr.Table)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), courts)
		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
	})
}
