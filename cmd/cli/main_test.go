package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/money"
	"github.com/kosarica/coupon-planner/internal/optimizer"
)

const cartJSON = `{
	"items": [
		{"id": "a", "shopId": "s1", "price": "10.00", "quantity": 1},
		{"id": "b", "shopId": "s2", "price": "5.00", "quantity": 1}
	],
	"coupons": [
		{"id": "plat", "scope": {"kind": "platform"}, "minSpend": "12", "discount": {"kind": "flat", "amount": "3"}}
	]
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// flag targets are package state shared between executions
	planSource = catalogSource{encoding: "auto"}
	validateSource = catalogSource{encoding: "auto"}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPlanJSON(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "cart.json")
	require.NoError(t, os.WriteFile(path, []byte(cartJSON), 0o644))

	out, err := execute(t, "plan", path, "--iterations", "200", "--output", "json")
	require.NoError(t, err)

	var res optimizer.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, int64(200), res.Iterations)
	require.NotEmpty(t, res.Plans)
	assert.Equal(t, money.Money(1200), res.Plans[0].Cost)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	items := filepath.Join(dir, "items.csv")
	require.NoError(t, os.WriteFile(items, []byte("id;shop;price\na;s1;10,00\nb;s2;5,00\n"), 0o644))

	out, err := execute(t, "validate", "--items", items)
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog is valid.")
	assert.Contains(t, out, "15.00")
}

func TestValidateURL(t *testing.T) {
	t.Chdir(t.TempDir())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cartJSON))
	}))
	defer srv.Close()

	out, err := execute(t, "validate", srv.URL+"/carts/1")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog is valid.")
	assert.Contains(t, out, "15.00")
}

func TestValidateRejectsBadCatalog(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items": [{"id": "a", "shopId": "s1", "price": "1", "quantity": 0}]}`), 0o644))

	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrInvalidCatalog)
	assert.Equal(t, 1, exitCode(err))
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(optimizer.ErrInvalidConfig{Field: "top_k", Reason: "must be at least 1"}))
}
