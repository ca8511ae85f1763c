package catalog

import (
	"github.com/kosarica/coupon-planner/internal/money"
)

// Item is a single cart line. Immutable once loaded from the feed.
type Item struct {
	ID         string      // Item identifier, unique within the cart
	Name       string      // Display name
	ShopID     string      // Owning shop
	UnitPrice  money.Money // Price per unit in minor units
	Quantity   int         // Units in the cart (must be > 0)
	Categories []string    // Category tags used by coupon eligibility
}

// Subtotal returns UnitPrice * Quantity.
func (i Item) Subtotal() money.Money {
	return i.UnitPrice.Mul(i.Quantity)
}

// ScopeKind describes which groupings a coupon may be applied to.
type ScopeKind string

const (
	// ScopePlatform coupons apply to any grouping.
	ScopePlatform ScopeKind = "platform"
	// ScopeCrossShop coupons apply to groupings whose items all come from the scope's shop set.
	ScopeCrossShop ScopeKind = "cross_shop"
	// ScopeSingleShop coupons apply to groupings made only of one shop's items.
	ScopeSingleShop ScopeKind = "single_shop"
)

// Scope restricts the shops a coupon covers.
type Scope struct {
	Kind  ScopeKind
	Shops []string // cross_shop: the shop set, single_shop: exactly one shop
}

// DiscountKind selects the discount function of a coupon.
type DiscountKind string

const (
	// DiscountFlat reduces the grouping by a fixed amount.
	DiscountFlat DiscountKind = "flat"
	// DiscountTiered reduces by the saving of the highest reached threshold.
	DiscountTiered DiscountKind = "tiered"
	// DiscountEvery saves a fixed amount for every full step of spend.
	DiscountEvery DiscountKind = "every"
	// DiscountPercent reduces by a percentage of the post-fixed-reduction base.
	DiscountPercent DiscountKind = "percent"
)

// Tier is one threshold of a tiered discount: spend >= Threshold saves Save.
type Tier struct {
	Threshold money.Money
	Save      money.Money
}

// Discount is a coupon's discount function.
type Discount struct {
	Kind       DiscountKind
	Amount     money.Money // flat
	PercentBps int         // percent, in basis points (1000 = 10%)
	Cap        money.Money // percent cap, 0 = uncapped
	Tiers      []Tier      // tiered, ascending thresholds
	Every      money.Money // every: step size
	Save       money.Money // every: saving per step
}

// IsFixed reports whether the discount is a fixed reduction (applied before percentages).
func (d Discount) IsFixed() bool {
	return d.Kind != DiscountPercent
}

// FixedReduction returns the fixed reduction for a grouping subtotal.
// Percent discounts return 0.
func (d Discount) FixedReduction(subtotal money.Money) money.Money {
	switch d.Kind {
	case DiscountFlat:
		return d.Amount
	case DiscountTiered:
		var save money.Money
		for _, t := range d.Tiers {
			if subtotal >= t.Threshold {
				save = t.Save
			}
		}
		return save
	case DiscountEvery:
		if d.Every <= 0 || d.Save <= 0 || subtotal <= 0 {
			return 0
		}
		steps := subtotal / d.Every
		if steps > subtotal/d.Save {
			return subtotal
		}
		return steps * d.Save
	default:
		return 0
	}
}

// PercentReduction returns the capped percentage reduction for a base amount.
// Fixed discounts return 0.
func (d Discount) PercentReduction(base money.Money) money.Money {
	if d.Kind != DiscountPercent {
		return 0
	}
	r := base.ApplyBps(d.PercentBps)
	if d.Cap > 0 && r > d.Cap {
		r = d.Cap
	}
	return r
}

// Eligibility is the predicate a grouping must satisfy for a coupon to apply.
type Eligibility struct {
	MinSpend   money.Money // grouping subtotal must reach this amount
	Categories []string    // each category must appear on at least one item
	Shops      []string    // each shop must be represented in the grouping
	Condition  string      // optional CEL expression over subtotal, item_count, shops, categories
}

// CouponRule is one promotional coupon.
type CouponRule struct {
	ID            string
	Name          string
	Scope         Scope
	Eligibility   Eligibility
	Discount      Discount
	StackingClass string // rules in the same class are mutually exclusive on a grouping
	PerOrderLimit int    // applications allowed on one grouping
	GlobalLimit   int    // applications allowed across the plan, 0 = unlimited
}

// Facts summarises a candidate grouping for eligibility checks.
type Facts struct {
	Subtotal   money.Money
	ItemCount  int
	Shops      []string // sorted, unique
	Categories []string // sorted, unique
}

func (f Facts) hasShop(shop string) bool {
	return containsSorted(f.Shops, shop)
}

func (f Facts) hasCategory(category string) bool {
	return containsSorted(f.Categories, category)
}
