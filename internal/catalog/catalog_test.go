package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/coupon-planner/internal/money"
)

func sampleItems() []Item {
	return []Item{
		{ID: "b", ShopID: "shop-2", UnitPrice: 150, Quantity: 2, Categories: []string{"food", "food"}},
		{ID: "a", ShopID: "shop-1", UnitPrice: 1000, Quantity: 1, Categories: []string{"books"}},
		{ID: "c", ShopID: "shop-1", UnitPrice: 250, Quantity: 1},
	}
}

func TestNewSortsAndIndexes(t *testing.T) {
	rules := []CouponRule{
		{ID: "z", Scope: Scope{Kind: ScopePlatform}, Discount: Discount{Kind: DiscountFlat, Amount: 10}},
		{ID: "m", Scope: Scope{Kind: ScopeSingleShop, Shops: []string{"shop-1"}}, Discount: Discount{Kind: DiscountFlat, Amount: 5}, GlobalLimit: 2},
	}
	cat, err := New(sampleItems(), rules)
	require.NoError(t, err)

	ids := []string{}
	for _, it := range cat.Items() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, "m", cat.Rules()[0].ID)
	assert.Equal(t, []string{"shop-1", "shop-2"}, cat.Shops())
	assert.Equal(t, []int{0, 2}, cat.ItemsInShop("shop-1"))
	assert.True(t, cat.HasShop("shop-2"))
	assert.False(t, cat.HasShop("shop-3"))
	assert.Equal(t, money.Money(1550), cat.Baseline())
	assert.Equal(t, []string{"food"}, cat.Items()[1].Categories)

	// defaults
	assert.Equal(t, "m", cat.Rules()[0].StackingClass)
	assert.Equal(t, 1, cat.Rules()[0].PerOrderLimit)
	assert.Equal(t, 2, cat.Rules()[0].GlobalLimit)

	idx, ok := cat.RuleIndex("z")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = cat.RuleIndex("nope")
	assert.False(t, ok)
}

func TestNewDoesNotMutateInput(t *testing.T) {
	items := sampleItems()
	_, err := New(items, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", items[0].ID)
}

func TestNewRejectsInvalidCatalog(t *testing.T) {
	flat := Discount{Kind: DiscountFlat, Amount: 10}
	tests := []struct {
		name  string
		items []Item
		rules []CouponRule
		field string
	}{
		{
			name:  "subtotal overflows",
			items: []Item{{ID: "a", ShopID: "s", UnitPrice: 1 << 40, Quantity: 1 << 30}},
			field: "items[0].quantity",
		},
		{
			name: "cart total too large",
			items: []Item{
				{ID: "a", ShopID: "s", UnitPrice: money.MaxAmount, Quantity: 1},
				{ID: "b", ShopID: "s", UnitPrice: 1, Quantity: 1},
			},
			field: "items",
		},
		{
			name:  "price too large",
			items: []Item{{ID: "a", ShopID: "s", UnitPrice: money.MaxAmount + 1, Quantity: 1}},
			field: "items[0].unitPrice",
		},
		{
			name:  "flat amount too large",
			items: []Item{{ID: "a", ShopID: "s", UnitPrice: 1, Quantity: 1}},
			rules: []CouponRule{{ID: "c", Scope: Scope{Kind: ScopePlatform}, Discount: Discount{Kind: DiscountFlat, Amount: money.MaxAmount + 1}}},
			field: "coupons[c].discount.amount",
		},
		{
			name:  "empty item id",
			items: []Item{{ShopID: "s", UnitPrice: 1, Quantity: 1}},
			field: "items[0].id",
		},
		{
			name: "duplicate item id",
			items: []Item{
				{ID: "a", ShopID: "s", UnitPrice: 1, Quantity: 1},
				{ID: "a", ShopID: "s", UnitPrice: 1, Quantity: 1},
			},
			field: "items[1].id",
		},
		{
			name:  "zero price",
			items: []Item{{ID: "a", ShopID: "s", UnitPrice: 0, Quantity: 1}},
			field: "items[0].unitPrice",
		},
		{
			name:  "negative quantity",
			items: []Item{{ID: "a", ShopID: "s", UnitPrice: 5, Quantity: -1}},
			field: "items[0].quantity",
		},
		{
			name:  "missing shop",
			items: []Item{{ID: "a", UnitPrice: 5, Quantity: 1}},
			field: "items[0].shopId",
		},
		{
			name:  "scope shop absent from cart",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopeSingleShop, Shops: []string{"ghost"}}, Discount: flat}},
			field: "coupons[c1].scope",
		},
		{
			name:  "eligibility shop absent from cart",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopePlatform}, Eligibility: Eligibility{Shops: []string{"ghost"}}, Discount: flat}},
			field: "coupons[c1].eligibility.shops",
		},
		{
			name:  "single shop with two shops",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopeSingleShop, Shops: []string{"shop-1", "shop-2"}}, Discount: flat}},
			field: "coupons[c1].scope",
		},
		{
			name:  "cross shop without shops",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopeCrossShop}, Discount: flat}},
			field: "coupons[c1].scope",
		},
		{
			name:  "percent above 100",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopePlatform}, Discount: Discount{Kind: DiscountPercent, PercentBps: 10001}}},
			field: "coupons[c1].discount.percent",
		},
		{
			name: "non increasing tiers",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopePlatform}, Discount: Discount{Kind: DiscountTiered, Tiers: []Tier{
				{Threshold: 500, Save: 75}, {Threshold: 300, Save: 40},
			}}}},
			field: "coupons[c1].discount.tiers[1]",
		},
		{
			name:  "negative global limit",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopePlatform}, Discount: flat, GlobalLimit: -1}},
			field: "coupons[c1].globalLimit",
		},
		{
			name:  "duplicate coupon",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopePlatform}, Discount: flat}, {ID: "c1", Scope: Scope{Kind: ScopePlatform}, Discount: flat}},
			field: "coupons[1].id",
		},
		{
			name:  "condition does not compile",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopePlatform}, Discount: flat, Eligibility: Eligibility{Condition: "subtotal >"}}},
			field: "coupons[c1].eligibility.condition",
		},
		{
			name:  "condition is not boolean",
			rules: []CouponRule{{ID: "c1", Scope: Scope{Kind: ScopePlatform}, Discount: flat, Eligibility: Eligibility{Condition: "subtotal + 1"}}},
			field: "coupons[c1].eligibility.condition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := tt.items
			if items == nil {
				items = sampleItems()
			}
			_, err := New(items, tt.rules)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog))

			var ce *CatalogError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestEligible(t *testing.T) {
	rules := []CouponRule{
		{ID: "cross", Scope: Scope{Kind: ScopeCrossShop, Shops: []string{"shop-1", "shop-2"}}, Eligibility: Eligibility{MinSpend: 1300}, Discount: Discount{Kind: DiscountFlat, Amount: 100}},
		{ID: "food", Scope: Scope{Kind: ScopePlatform}, Eligibility: Eligibility{Categories: []string{"food"}}, Discount: Discount{Kind: DiscountFlat, Amount: 10}},
		{ID: "single", Scope: Scope{Kind: ScopeSingleShop, Shops: []string{"shop-1"}}, Discount: Discount{Kind: DiscountFlat, Amount: 10}},
		{ID: "two-items", Scope: Scope{Kind: ScopePlatform}, Eligibility: Eligibility{Condition: `item_count >= 2 && "shop-2" in shops`}, Discount: Discount{Kind: DiscountFlat, Amount: 10}},
	}
	cat, err := New(sampleItems(), rules)
	require.NoError(t, err)

	idx := func(id string) int {
		i, ok := cat.RuleIndex(id)
		require.True(t, ok)
		return i
	}

	all := cat.Facts([]int{0, 1, 2})
	shop1 := cat.Facts([]int{0, 2})
	onlyB := cat.Facts([]int{1})

	assert.Equal(t, money.Money(1550), all.Subtotal)
	assert.Equal(t, []string{"shop-1", "shop-2"}, all.Shops)
	assert.Equal(t, []string{"books", "food"}, all.Categories)

	assert.True(t, cat.Eligible(idx("cross"), all))
	assert.False(t, cat.Eligible(idx("cross"), shop1), "below min spend")

	assert.True(t, cat.Eligible(idx("food"), onlyB))
	assert.False(t, cat.Eligible(idx("food"), shop1))

	assert.True(t, cat.Eligible(idx("single"), shop1))
	assert.False(t, cat.Eligible(idx("single"), all), "shop-2 item outside scope")

	assert.True(t, cat.Eligible(idx("two-items"), all))
	assert.False(t, cat.Eligible(idx("two-items"), shop1))
	assert.False(t, cat.Eligible(idx("two-items"), onlyB))
}

func TestDiscountReductions(t *testing.T) {
	tiered := Discount{Kind: DiscountTiered, Tiers: []Tier{{Threshold: 300, Save: 40}, {Threshold: 500, Save: 75}}}
	assert.Equal(t, money.Money(0), tiered.FixedReduction(299))
	assert.Equal(t, money.Money(40), tiered.FixedReduction(300))
	assert.Equal(t, money.Money(75), tiered.FixedReduction(800))

	every := Discount{Kind: DiscountEvery, Every: 200, Save: 25}
	assert.Equal(t, money.Money(75), every.FixedReduction(650))
	assert.Equal(t, money.Money(0), every.FixedReduction(199))

	huge := Discount{Kind: DiscountEvery, Every: 1, Save: money.MaxAmount}
	assert.Equal(t, money.MaxAmount, huge.FixedReduction(money.MaxAmount), "clamped to the subtotal")

	pct := Discount{Kind: DiscountPercent, PercentBps: 1000, Cap: 50}
	assert.False(t, pct.IsFixed())
	assert.Equal(t, money.Money(0), pct.FixedReduction(1000))
	assert.Equal(t, money.Money(33), pct.PercentReduction(333))
	assert.Equal(t, money.Money(50), pct.PercentReduction(10000))
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	rules := []CouponRule{
		{ID: "a", Scope: Scope{Kind: ScopePlatform}, Discount: Discount{Kind: DiscountFlat, Amount: 10}},
		{ID: "b", Scope: Scope{Kind: ScopePlatform}, Discount: Discount{Kind: DiscountPercent, PercentBps: 500}},
	}
	c1, err := New(sampleItems(), rules)
	require.NoError(t, err)

	items := sampleItems()
	items[0], items[2] = items[2], items[0]
	c2, err := New(items, []CouponRule{rules[1], rules[0]})
	require.NoError(t, err)

	assert.Equal(t, c1.Fingerprint(), c2.Fingerprint())
	assert.Len(t, c1.Fingerprint(), 64)

	items[0].UnitPrice++
	c3, err := New(items, rules)
	require.NoError(t, err)
	assert.NotEqual(t, c1.Fingerprint(), c3.Fingerprint())
}

func TestFingerprintSeparatesFieldBoundaries(t *testing.T) {
	food := []CouponRule{{
		ID:          "food-10",
		Scope:       Scope{Kind: ScopePlatform},
		Eligibility: Eligibility{Categories: []string{"food"}},
		Discount:    Discount{Kind: DiscountFlat, Amount: 10},
	}}

	tests := []struct {
		name string
		a, b []Item
	}{
		{
			name: "joined categories",
			a:    []Item{{ID: "x", ShopID: "s1", UnitPrice: 100, Quantity: 1, Categories: []string{"drink", "food"}}},
			b:    []Item{{ID: "x", ShopID: "s1", UnitPrice: 100, Quantity: 1, Categories: []string{"drink,food"}}},
		},
		{
			name: "separator inside ids",
			a:    []Item{{ID: "x:s1", ShopID: "s2", UnitPrice: 100, Quantity: 1}},
			b:    []Item{{ID: "x", ShopID: "s1:s2", UnitPrice: 100, Quantity: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ca, err := New(tt.a, food)
			require.NoError(t, err)
			cb, err := New(tt.b, food)
			require.NoError(t, err)
			assert.NotEqual(t, ca.Fingerprint(), cb.Fingerprint())
		})
	}

	ca, err := New(tests[0].a, food)
	require.NoError(t, err)
	cb, err := New(tests[0].b, food)
	require.NoError(t, err)
	assert.True(t, ca.Eligible(0, ca.Facts([]int{0})))
	assert.False(t, cb.Eligible(0, cb.Facts([]int{0})))
}

func TestFingerprintTreatsNilAndEmptySetsAlike(t *testing.T) {
	c1, err := New([]Item{{ID: "x", ShopID: "s1", UnitPrice: 100, Quantity: 1}}, nil)
	require.NoError(t, err)
	c2, err := New([]Item{{ID: "x", ShopID: "s1", UnitPrice: 100, Quantity: 1, Categories: []string{}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, c1.Fingerprint(), c2.Fingerprint())
}
