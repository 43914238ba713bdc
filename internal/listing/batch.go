package listing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ReadBatch reads scraped records from a CSV file, or from every *.csv file
// in a directory when path points at one (the scraper writes one file per
// province). Rows that cannot be parsed are dropped; the pipeline validates
// the survivors anyway.
func ReadBatch(path string) ([]RawRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat batch input: %w", err)
	}

	if !info.IsDir() {
		return readBatchFile(path)
	}

	files, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list batch directory: %w", err)
	}
	sort.Strings(files)

	var all []RawRecord
	for _, f := range files {
		recs, err := readBatchFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(f), err)
		}
		all = append(all, recs...)
	}
	return all, nil
}

func readBatchFile(path string) ([]RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) > 0 {
		// The original scraper writes utf-8-sig.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	columnMap := make(map[string]int)
	for i, col := range header {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var records []RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		rec := RawRecord{
			URL:        columnValue(row, columnMap, "link"),
			RawAddress: columnValue(row, columnMap, "adres"),
			Premises:   columnValue(row, columnMap, "przeznaczenie"),
		}
		if n := columnValue(row, columnMap, "liczba_wlascicieli"); n != "" {
			if v, err := strconv.Atoi(n); err == nil {
				rec.OwnerCount = &v
			}
		}
		if ts := columnValue(row, columnMap, "pobrano"); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				rec.ScrapedAt = t
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

var batchHeader = []string{"link", "adres", "liczba_wlascicieli", "przeznaczenie", "pobrano"}

// WriteBatch writes records as one batch CSV in the layout ReadBatch
// expects, replacing the file atomically via a temporary sibling.
func WriteBatch(path string, recs []RawRecord) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create batch CSV: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(batchHeader); err != nil {
		file.Close()
		return fmt.Errorf("failed to write batch header: %w", err)
	}
	for _, rec := range recs {
		var owners, scraped string
		if rec.OwnerCount != nil {
			owners = strconv.Itoa(*rec.OwnerCount)
		}
		if !rec.ScrapedAt.IsZero() {
			scraped = rec.ScrapedAt.Format(time.RFC3339)
		}
		row := []string{rec.URL, rec.RawAddress, owners, rec.Premises, scraped}
		if err := writer.Write(row); err != nil {
			file.Close()
			return fmt.Errorf("failed to write batch row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush batch CSV: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close batch CSV: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace batch CSV: %w", err)
	}
	return nil
}

func columnValue(row []string, columnMap map[string]int, name string) string {
	if idx, ok := columnMap[name]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
