package feed

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheets map[string][][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			row := row
			require.NoError(t, f.SetSheetRow(name, fmt.Sprintf("A%d", i+1), &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbook(t *testing.T) {
	data := writeWorkbook(t, map[string][][]any{
		"Items": {
			{"id", "name", "shop", "price", "quantity", "categories"},
			{"a", "Rice", "s1", "3.20", 2, "food"},
			{},
			{"b", "Soap", "s2", "1.10", 1, ""},
		},
		"Coupons": {
			{"id", "scope", "scope_shops", "kind", "tiers", "min_spend", "per_order_limit", "global_limit"},
			{"t1", "single_shop", "s1", "tiered", "5:0.50|10:1.50", "5", 1, 2},
		},
	})

	snap, err := ReadWorkbook(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, snap.Items, 2)
	assert.Equal(t, "a", snap.Items[0].ID)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.Equal(t, []string{"food"}, snap.Items[0].Categories)
	assert.Equal(t, "b", snap.Items[1].ID)

	require.Len(t, snap.Coupons, 1)
	c := snap.Coupons[0]
	assert.Equal(t, []string{"s1"}, c.Scope.Shops)
	assert.Equal(t, []TierDTO{{Threshold: "5", Save: "0.50"}, {Threshold: "10", Save: "1.50"}}, c.Discount.Tiers)
	assert.Equal(t, 2, c.GlobalLimit)

	cat, err := snap.Catalog()
	require.NoError(t, err)
	assert.Len(t, cat.Rules(), 1)
}

func TestReadWorkbookWithoutCoupons(t *testing.T) {
	data := writeWorkbook(t, map[string][][]any{
		"items": {{"id", "shop", "price"}, {"a", "s1", "1"}},
	})

	snap, err := ReadWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)
	assert.Empty(t, snap.Coupons)
}

func TestReadWorkbookErrors(t *testing.T) {
	t.Run("missing items sheet", func(t *testing.T) {
		data := writeWorkbook(t, map[string][][]any{"prices": {{"id"}}})
		_, err := ReadWorkbook(bytes.NewReader(data))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `sheet "items" not found`)
	})

	t.Run("bad tier cell", func(t *testing.T) {
		data := writeWorkbook(t, map[string][][]any{
			"items":   {{"id", "shop", "price"}, {"a", "s1", "1"}},
			"coupons": {{"id", "scope", "kind", "tiers"}, {"t", "platform", "tiered", "5-1"}},
		})
		_, err := ReadWorkbook(bytes.NewReader(data))

		var re *RowError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "coupons", re.Source)
		assert.Equal(t, 2, re.Row)
		assert.Equal(t, "tiers", re.Column)
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := ReadWorkbook(bytes.NewReader([]byte("plain text")))
		assert.Error(t, err)
	})
}
