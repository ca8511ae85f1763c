package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVOptions configure item CSV parsing. Zero values mean auto-detect.
type CSVOptions struct {
	Encoding  Encoding
	Delimiter rune
}

// RowError reports a malformed feed row.
type RowError struct {
	Source string
	Row    int // 1-based, header is row 1
	Column string
	Reason string
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s row %d: %s", e.Source, e.Row, e.Reason)
	}
	return fmt.Sprintf("%s row %d, column %q: %s", e.Source, e.Row, e.Column, e.Reason)
}

// itemColumns lists accepted header names per field, lowercase.
var itemColumns = map[string][]string{
	"id":         {"id", "item_id", "itemid", "sku"},
	"name":       {"name", "title", "item_name"},
	"shop":       {"shop", "shop_id", "shopid", "store", "seller"},
	"price":      {"price", "unit_price", "unitprice"},
	"quantity":   {"quantity", "qty", "count"},
	"categories": {"categories", "category", "tags"},
}

// ReadItemsCSV parses a cart CSV with a header row. Categories are separated
// by "|" within their cell.
func ReadItemsCSV(data []byte, opts CSVOptions) ([]ItemDTO, error) {
	decoded, err := Decode(data, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = DetectDelimiter(decoded)
	}

	r := csv.NewReader(strings.NewReader(decoded))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = delim != '\t'

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := resolveColumns(header, itemColumns, "id", "shop", "price")
	if err != nil {
		return nil, err
	}

	var items []ItemDTO
	row := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, &RowError{Source: "items.csv", Row: row, Reason: err.Error()}
		}
		if isEmptyRecord(rec) {
			continue
		}
		it, err := itemFromRecord(rec, cols)
		if err != nil {
			return nil, withRow(err, "items.csv", row)
		}
		items = append(items, it)
	}
	return items, nil
}

func itemFromRecord(rec []string, cols map[string]int) (ItemDTO, error) {
	cell := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	it := ItemDTO{
		ID:       cell("id"),
		Name:     cell("name"),
		ShopID:   cell("shop"),
		Price:    cell("price"),
		Quantity: 1,
	}
	if q := cell("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return ItemDTO{}, &RowError{Column: "quantity", Reason: fmt.Sprintf("invalid quantity %q", q)}
		}
		it.Quantity = n
	}
	if c := cell("categories"); c != "" {
		for _, cat := range strings.Split(c, "|") {
			if cat = strings.TrimSpace(cat); cat != "" {
				it.Categories = append(it.Categories, cat)
			}
		}
	}
	return it, nil
}

// resolveColumns maps field names to header indices and checks the required ones.
func resolveColumns(header []string, aliases map[string][]string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(aliases))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		for field, names := range aliases {
			if _, done := cols[field]; done {
				continue
			}
			for _, alias := range names {
				if name == alias {
					cols[field] = i
				}
			}
		}
	}
	for _, field := range required {
		if _, ok := cols[field]; !ok {
			return nil, fmt.Errorf("required column %q not found in header %v", field, header)
		}
	}
	return cols, nil
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// DetectDelimiter picks the delimiter whose count is most consistent across
// the first non-empty lines.
func DetectDelimiter(content string) rune {
	sample := make([]string, 0, 5)
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			sample = append(sample, trimmed)
			if len(sample) == 5 {
				break
			}
		}
	}
	if len(sample) == 0 {
		return ','
	}

	best, bestScore := ',', 0.0
	for _, delim := range []rune{',', ';', '\t'} {
		counts := make([]float64, len(sample))
		sum := 0.0
		for i, line := range sample {
			counts[i] = float64(strings.Count(line, string(delim)))
			sum += counts[i]
		}
		avg := sum / float64(len(counts))
		if avg == 0 {
			continue
		}
		variance := 0.0
		for _, c := range counts {
			variance += (c - avg) * (c - avg)
		}
		variance /= float64(len(counts))

		if score := avg / (1 + variance); score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}
