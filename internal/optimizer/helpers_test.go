package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/money"
)

func item(id, shop string, price money.Money, qty int, cats ...string) catalog.Item {
	return catalog.Item{ID: id, Name: id, ShopID: shop, UnitPrice: price, Quantity: qty, Categories: cats}
}

func flat(id string, scope catalog.Scope, minSpend, amount money.Money) catalog.CouponRule {
	return catalog.CouponRule{
		ID:          id,
		Scope:       scope,
		Eligibility: catalog.Eligibility{MinSpend: minSpend},
		Discount:    catalog.Discount{Kind: catalog.DiscountFlat, Amount: amount},
	}
}

func percent(id string, scope catalog.Scope, bps int, maxOff money.Money) catalog.CouponRule {
	return catalog.CouponRule{
		ID:       id,
		Scope:    scope,
		Discount: catalog.Discount{Kind: catalog.DiscountPercent, PercentBps: bps, Cap: maxOff},
	}
}

var platform = catalog.Scope{Kind: catalog.ScopePlatform}

func singleShop(shop string) catalog.Scope {
	return catalog.Scope{Kind: catalog.ScopeSingleShop, Shops: []string{shop}}
}

func crossShop(shops ...string) catalog.Scope {
	return catalog.Scope{Kind: catalog.ScopeCrossShop, Shops: shops}
}

func mustCatalog(t *testing.T, items []catalog.Item, rules []catalog.CouponRule) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(items, rules)
	require.NoError(t, err)
	return cat
}

func testConfig(iterations int) Config {
	cfg := Defaults()
	cfg.Iterations = iterations
	cfg.TimeBudget = 0
	return cfg
}

// mixedCatalog has two shops, overlapping coupon scopes, a shared stacking
// class and a globally limited rule.
func mixedCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	items := []catalog.Item{
		item("i1", "s1", 12000, 1, "food"),
		item("i2", "s1", 4500, 2),
		item("i3", "s2", 20000, 1, "tech"),
		item("i4", "s2", 3000, 3),
		item("i5", "s3", 9900, 1, "food"),
	}
	tiered := catalog.CouponRule{
		ID:    "tier-s2",
		Scope: singleShop("s2"),
		Discount: catalog.Discount{Kind: catalog.DiscountTiered, Tiers: []catalog.Tier{
			{Threshold: 20000, Save: 2000}, {Threshold: 29000, Save: 4500},
		}},
	}
	cross := flat("cross-s1-s3", crossShop("s1", "s3"), 30000, 3500)
	cross.StackingClass = "store-voucher"
	plat := flat("platform-300", platform, 30000, 3000)
	plat.StackingClass = "store-voucher"
	plat.GlobalLimit = 1
	pct := percent("pct-10", platform, 1000, 1500)
	pct.Eligibility.Categories = []string{"food"}
	every := catalog.CouponRule{
		ID:            "every-100",
		Scope:         platform,
		Discount:      catalog.Discount{Kind: catalog.DiscountEvery, Every: 10000, Save: 500},
		PerOrderLimit: 2,
		GlobalLimit:   3,
	}
	return mustCatalog(t, items, []catalog.CouponRule{tiered, cross, plat, pct, every})
}

// enumerateTerminals walks every terminal state reachable with the canonical generator.
func enumerateTerminals(cat *catalog.Catalog, eval *Evaluator, visit func(*PlanState)) {
	gen := NewMoveGenerator(cat)
	stack := []*PlanState{NewPlanState(cat, eval)}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.Terminal() {
			visit(s)
			continue
		}
		for _, m := range gen.Moves(s) {
			stack = append(stack, s.Apply(m))
		}
	}
}
