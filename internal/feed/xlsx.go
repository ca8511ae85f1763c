package feed

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	itemsSheet   = "items"
	couponsSheet = "coupons"
)

var couponColumns = map[string][]string{
	"id":              {"id", "coupon_id"},
	"name":            {"name", "title"},
	"scope":           {"scope", "scope_kind"},
	"scope_shops":     {"scope_shops", "scope_shop"},
	"min_spend":       {"min_spend", "minspend", "threshold"},
	"categories":      {"categories", "category"},
	"shops":           {"shops", "required_shops"},
	"condition":       {"condition"},
	"kind":            {"kind", "discount", "discount_kind"},
	"amount":          {"amount"},
	"percent":         {"percent", "percentage"},
	"cap":             {"cap"},
	"tiers":           {"tiers"},
	"every":           {"every"},
	"save":            {"save"},
	"stacking_class":  {"stacking_class", "class"},
	"per_order_limit": {"per_order_limit"},
	"global_limit":    {"global_limit", "limit"},
}

// ReadWorkbook reads a snapshot from an XLSX workbook with an "items" sheet
// (same columns as the item CSV) and an optional "coupons" sheet. List cells
// use "|" separators; tiers are written "300:40|500:75".
func ReadWorkbook(r io.Reader) (Snapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	items, err := readSheet(f, itemsSheet, itemColumns, []string{"id", "shop", "price"})
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	for i, rec := range items.rows {
		it, err := itemFromRecord(rec, items.cols)
		if err != nil {
			return Snapshot{}, withRow(err, itemsSheet, items.rowNumbers[i])
		}
		s.Items = append(s.Items, it)
	}

	if _, ok := sheetName(f, couponsSheet); !ok {
		return s, nil
	}
	coupons, err := readSheet(f, couponsSheet, couponColumns, []string{"id", "scope", "kind"})
	if err != nil {
		return Snapshot{}, err
	}
	for i, rec := range coupons.rows {
		c, err := couponFromRecord(rec, coupons.cols)
		if err != nil {
			return Snapshot{}, withRow(err, couponsSheet, coupons.rowNumbers[i])
		}
		s.Coupons = append(s.Coupons, c)
	}
	return s, nil
}

type sheetRows struct {
	cols       map[string]int
	rows       [][]string
	rowNumbers []int
}

func readSheet(f *excelize.File, name string, aliases map[string][]string, required []string) (*sheetRows, error) {
	actual, ok := sheetName(f, name)
	if !ok {
		return nil, fmt.Errorf("sheet %q not found. Available sheets: %s", name, strings.Join(f.GetSheetList(), ", "))
	}
	rows, err := f.GetRows(actual)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return &sheetRows{}, nil
	}
	cols, err := resolveColumns(rows[0], aliases, required...)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", name, err)
	}
	out := &sheetRows{cols: cols}
	for i, rec := range rows[1:] {
		if isEmptyRecord(rec) {
			continue
		}
		out.rows = append(out.rows, rec)
		out.rowNumbers = append(out.rowNumbers, i+2)
	}
	return out, nil
}

// sheetName finds a sheet case-insensitively and returns its actual name.
func sheetName(f *excelize.File, name string) (string, bool) {
	for _, s := range f.GetSheetList() {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

func couponFromRecord(rec []string, cols map[string]int) (CouponDTO, error) {
	cell := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	intCell := func(field string) (int, error) {
		v := cell(field)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, &RowError{Column: field, Reason: fmt.Sprintf("invalid integer %q", v)}
		}
		return n, nil
	}

	c := CouponDTO{
		ID:            cell("id"),
		Name:          cell("name"),
		Scope:         ScopeDTO{Kind: cell("scope"), Shops: splitList(cell("scope_shops"))},
		MinSpend:      cell("min_spend"),
		Categories:    splitList(cell("categories")),
		Shops:         splitList(cell("shops")),
		Condition:     cell("condition"),
		StackingClass: cell("stacking_class"),
		Discount: DiscountDTO{
			Kind:    cell("kind"),
			Amount:  cell("amount"),
			Percent: cell("percent"),
			Cap:     cell("cap"),
			Every:   cell("every"),
			Save:    cell("save"),
		},
	}
	var err error
	if c.PerOrderLimit, err = intCell("per_order_limit"); err != nil {
		return CouponDTO{}, err
	}
	if c.GlobalLimit, err = intCell("global_limit"); err != nil {
		return CouponDTO{}, err
	}
	for _, t := range splitList(cell("tiers")) {
		threshold, save, ok := strings.Cut(t, ":")
		if !ok {
			return CouponDTO{}, &RowError{Column: "tiers", Reason: fmt.Sprintf("tier %q is not threshold:save", t)}
		}
		c.Discount.Tiers = append(c.Discount.Tiers, TierDTO{Threshold: strings.TrimSpace(threshold), Save: strings.TrimSpace(save)})
	}
	return c, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, "|") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func withRow(err error, source string, row int) error {
	var re *RowError
	if errors.As(err, &re) {
		re.Source, re.Row = source, row
	}
	return err
}
