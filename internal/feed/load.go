package feed

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile reads a snapshot from a .json or .xlsx file.
func LoadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	snap, err := decodeByName(path, data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// decodeByName picks the snapshot format from the extension of name.
func decodeByName(name string, data []byte) (Snapshot, error) {
	var (
		snap   Snapshot
		source string
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		source = "json"
		snap, err = ReadSnapshot(bytes.NewReader(data))
	case ".xlsx":
		source = "xlsx"
		snap, err = ReadWorkbook(bytes.NewReader(data))
	default:
		return Snapshot{}, fmt.Errorf("unsupported catalog file type %q (want .json or .xlsx)", ext)
	}
	recordLoad(source, err)
	return snap, err
}

// LoadSplit reads cart items from a CSV file and coupons from a JSON file.
// An empty couponsPath yields a cart without coupons.
func LoadSplit(itemsPath, couponsPath string, opts CSVOptions) (Snapshot, error) {
	data, err := os.ReadFile(itemsPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", itemsPath, err)
	}
	items, err := ReadItemsCSV(data, opts)
	recordLoad("csv", err)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", itemsPath, err)
	}

	snap := Snapshot{Items: items}
	if couponsPath == "" {
		return snap, nil
	}
	f, err := os.Open(couponsPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to open %s: %w", couponsPath, err)
	}
	defer f.Close()
	if snap.Coupons, err = ReadCoupons(f); err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", couponsPath, err)
	}
	return snap, nil
}
