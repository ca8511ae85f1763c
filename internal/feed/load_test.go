package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		before := testutil.ToFloat64(loads.WithLabelValues("json", "ok"))
		snap, err := LoadFile(writeFile(t, dir, "cart.json", []byte(sampleSnapshot)))
		require.NoError(t, err)
		assert.Len(t, snap.Items, 2)
		assert.Len(t, snap.Coupons, 2)
		assert.Equal(t, before+1, testutil.ToFloat64(loads.WithLabelValues("json", "ok")))
	})

	t.Run("xlsx", func(t *testing.T) {
		data := writeWorkbook(t, map[string][][]any{
			"items": {{"id", "shop", "price"}, {"a", "s1", "2.00"}},
		})
		snap, err := LoadFile(writeFile(t, dir, "cart.XLSX", data))
		require.NoError(t, err)
		assert.Len(t, snap.Items, 1)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, dir, "cart.yaml", []byte("items: []")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed json", func(t *testing.T) {
		before := testutil.ToFloat64(loads.WithLabelValues("json", "error"))
		_, err := LoadFile(writeFile(t, dir, "bad.json", []byte("{")))
		require.Error(t, err)
		assert.Equal(t, before+1, testutil.ToFloat64(loads.WithLabelValues("json", "error")))
	})
}

func TestLoadSplit(t *testing.T) {
	dir := t.TempDir()
	items := writeFile(t, dir, "items.csv", []byte("id;shop;price\na;s1;5,00\nb;s2;7,00\n"))
	coupons := writeFile(t, dir, "coupons.json", []byte(`{"coupons": [
		{"id": "c1", "scope": {"kind": "cross_shop", "shops": ["s1", "s2"]}, "minSpend": "10",
		 "discount": {"kind": "flat", "amount": "2"}}
	]}`))

	snap, err := LoadSplit(items, coupons, CSVOptions{})
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	require.Len(t, snap.Coupons, 1)

	cat, err := snap.Catalog()
	require.NoError(t, err)
	assert.Equal(t, "12.00", cat.Baseline().String())

	noCoupons, err := LoadSplit(items, "", CSVOptions{})
	require.NoError(t, err)
	assert.Empty(t, noCoupons.Coupons)
}
