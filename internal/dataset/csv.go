package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pricebot-pl/internal/classify"
	"github.com/pricebot-pl/internal/resolve"
)

// Store loads the dataset at run start and saves it at run end. The core
// only depends on this load/save contract keyed by listing URL; format and
// location are the store's concern.
type Store interface {
	Load(ctx context.Context) (*Dataset, error)
	Save(ctx context.Context, ds *Dataset) error
}

var csvHeader = []string{
	"link", "adres", "klucz", "kod_teryt", "jednostka", "sad",
	"pewnosc", "metoda", "wlasnosc", "pierwszy_odczyt", "ostatni_odczyt", "scalenia",
}

// CSVStore persists the dataset as a single CSV file.
type CSVStore struct {
	Path string
}

// NewCSVStore returns a store backed by the file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{Path: path}
}

// Load reads the dataset. A missing file is a first run and yields an
// empty dataset.
func (s *CSVStore) Load(ctx context.Context) (*Dataset, error) {
	file, err := os.Open(s.Path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	columnMap := make(map[string]int)
	for i, col := range header {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	ds := New()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row: %w", err)
		}

		rec, err := recordFromRow(row, columnMap)
		if err != nil {
			return nil, fmt.Errorf("malformed dataset row: %w", err)
		}
		if rec.URL == "" {
			continue
		}
		ds.Swap(rec)
	}
	return ds, nil
}

// Save writes the full dataset, replacing the file atomically via a
// temporary sibling so a cancelled run never truncates the previous save.
func (s *CSVStore) Save(ctx context.Context, ds *Dataset) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}

	tmp := s.Path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		file.Close()
		return fmt.Errorf("failed to write dataset header: %w", err)
	}
	for _, rec := range ds.Snapshot() {
		if err := writer.Write(rowFromRecord(rec)); err != nil {
			file.Close()
			return fmt.Errorf("failed to write dataset row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush dataset: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close dataset file: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("failed to replace dataset file: %w", err)
	}
	return nil
}

func rowFromRecord(rec ConsolidatedRecord) []string {
	return []string{
		rec.URL,
		rec.RawAddress,
		rec.AddressKey,
		rec.Resolution.UnitCode,
		rec.Resolution.UnitName,
		rec.Resolution.Court,
		strconv.FormatFloat(rec.Resolution.Confidence, 'f', -1, 64),
		string(rec.Resolution.Method),
		string(rec.Ownership),
		rec.FirstSeen.Format(time.RFC3339),
		rec.LastSeen.Format(time.RFC3339),
		strconv.Itoa(rec.MergeCount),
	}
}

func recordFromRow(row []string, columnMap map[string]int) (ConsolidatedRecord, error) {
	get := func(name string) string {
		if idx, ok := columnMap[name]; ok && idx < len(row) {
			return row[idx]
		}
		return ""
	}

	rec := ConsolidatedRecord{
		URL:        get("link"),
		RawAddress: get("adres"),
		AddressKey: get("klucz"),
		Resolution: resolve.Resolution{
			UnitCode: get("kod_teryt"),
			UnitName: get("jednostka"),
			Court:    get("sad"),
			Method:   resolve.Method(get("metoda")),
		},
		Ownership: classify.Class(get("wlasnosc")),
	}
	if rec.Resolution.Method == "" {
		rec.Resolution.Method = resolve.MethodUnresolved
	}
	if rec.Ownership == "" {
		rec.Ownership = classify.Unknown
	}

	if v := get("pewnosc"); v != "" {
		conf, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return rec, fmt.Errorf("bad confidence %q: %w", v, err)
		}
		rec.Resolution.Confidence = conf
	}
	if v := get("scalenia"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rec, fmt.Errorf("bad merge count %q: %w", v, err)
		}
		rec.MergeCount = n
	}
	for name, dst := range map[string]*time.Time{
		"pierwszy_odczyt": &rec.FirstSeen,
		"ostatni_odczyt":  &rec.LastSeen,
	} {
		if v := get(name); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return rec, fmt.Errorf("bad timestamp %q: %w", v, err)
			}
			*dst = ts
		}
	}
	return rec, nil
}
