package feed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/money"
)

const sampleSnapshot = `{
	"items": [
		{"id": "b", "shopId": "s1", "price": "4,50", "quantity": 2, "categories": ["food"]},
		{"id": "a", "shopId": "s2", "price": "12.99 EUR", "quantity": 1}
	],
	"coupons": [
		{"id": "pct", "scope": {"kind": "platform"}, "categories": ["food"],
		 "discount": {"kind": "percent", "percent": "12.5%", "cap": "5"}},
		{"id": "tier", "scope": {"kind": "single_shop", "shops": ["s2"]}, "minSpend": "10",
		 "discount": {"kind": "tiered", "tiers": [{"threshold": "10", "save": "1"}, {"threshold": "20", "save": "3"}]},
		 "perOrderLimit": 1, "globalLimit": 1}
	]
}`

func TestSnapshotCatalog(t *testing.T) {
	snap, err := ReadSnapshot(strings.NewReader(sampleSnapshot))
	require.NoError(t, err)

	cat, err := snap.Catalog()
	require.NoError(t, err)

	items := cat.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, money.Money(1299), items[0].UnitPrice)
	assert.Equal(t, money.Money(450), items[1].UnitPrice)
	assert.Equal(t, money.Money(2199), cat.Baseline())

	rules := cat.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "pct", rules[0].ID)
	assert.Equal(t, 1250, rules[0].Discount.PercentBps)
	assert.Equal(t, money.Money(500), rules[0].Discount.Cap)
	assert.Equal(t, catalog.DiscountTiered, rules[1].Discount.Kind)
	assert.Equal(t, money.Money(1000), rules[1].Eligibility.MinSpend)
}

func TestSnapshotCatalogErrors(t *testing.T) {
	tests := []struct {
		name  string
		snap  Snapshot
		field string
	}{
		{
			name:  "bad item price",
			snap:  Snapshot{Items: []ItemDTO{{ID: "a", ShopID: "s1", Price: "abc", Quantity: 1}}},
			field: "items[0].price",
		},
		{
			name: "bad min spend",
			snap: Snapshot{
				Items:   []ItemDTO{{ID: "a", ShopID: "s1", Price: "1", Quantity: 1}},
				Coupons: []CouponDTO{{ID: "c", Scope: ScopeDTO{Kind: "platform"}, MinSpend: "lots", Discount: DiscountDTO{Kind: "flat", Amount: "1"}}},
			},
			field: "coupons[c].minSpend",
		},
		{
			name: "bad percent",
			snap: Snapshot{
				Items:   []ItemDTO{{ID: "a", ShopID: "s1", Price: "1", Quantity: 1}},
				Coupons: []CouponDTO{{ID: "c", Scope: ScopeDTO{Kind: "platform"}, Discount: DiscountDTO{Kind: "percent", Percent: "ten"}}},
			},
			field: "coupons[c].discount.percent",
		},
		{
			name: "bad tier",
			snap: Snapshot{
				Items: []ItemDTO{{ID: "a", ShopID: "s1", Price: "1", Quantity: 1}},
				Coupons: []CouponDTO{{ID: "c", Scope: ScopeDTO{Kind: "platform"}, Discount: DiscountDTO{
					Kind: "tiered", Tiers: []TierDTO{{Threshold: "10", Save: "1"}, {Threshold: "x", Save: "2"}},
				}}},
			},
			field: "coupons[c].discount.tiers[1].threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.snap.Catalog()
			require.Error(t, err)
			assert.ErrorIs(t, err, catalog.ErrInvalidCatalog)

			var ce *catalog.CatalogError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestFromCatalogPreservesRules(t *testing.T) {
	snap, err := ReadSnapshot(strings.NewReader(sampleSnapshot))
	require.NoError(t, err)
	cat, err := snap.Catalog()
	require.NoError(t, err)

	again, err := FromCatalog(cat).Catalog()
	require.NoError(t, err)
	assert.Equal(t, cat.Fingerprint(), again.Fingerprint())

	out := FromCatalog(cat)
	assert.Equal(t, "12.5%", out.Coupons[0].Discount.Percent)
	assert.Equal(t, "12.99", out.Items[0].Price)
}

func TestReadSnapshotRejectsUnknownFields(t *testing.T) {
	_, err := ReadSnapshot(strings.NewReader(`{"items": [], "coupon": []}`))
	require.Error(t, err)
}

func TestReadCoupons(t *testing.T) {
	list, err := ReadCoupons(strings.NewReader(`[{"id": "a", "scope": {"kind": "platform"}, "discount": {"kind": "flat", "amount": "1"}}]`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)

	wrapped, err := ReadCoupons(strings.NewReader(`{"coupons": [{"id": "b"}, {"id": "c"}]}`))
	require.NoError(t, err)
	assert.Len(t, wrapped, 2)

	_, err = ReadCoupons(strings.NewReader(`not json`))
	assert.Error(t, err)
}
