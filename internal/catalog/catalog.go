package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kosarica/coupon-planner/internal/money"
)

// MaxBps is the largest accepted percentage in basis points (100%).
const MaxBps = 10000

// Catalog is the validated, read-only view of a cart and its coupon rules.
// Items and rules are kept in canonical (ascending ID) order and are safe to
// share between goroutines.
type Catalog struct {
	items      []Item
	rules      []CouponRule
	conditions []*condition // per rule index, nil when the rule has no condition
	shopItems  map[string][]int
	shops      []string
	baseline   money.Money
	fp         string
}

// New validates the items and rules, normalizes defaults and builds the shop index.
func New(items []Item, rules []CouponRule) (*Catalog, error) {
	c := &Catalog{
		items:     make([]Item, len(items)),
		rules:     make([]CouponRule, len(rules)),
		shopItems: make(map[string][]int),
	}
	copy(c.items, items)
	copy(c.rules, rules)

	if err := c.validateItems(); err != nil {
		return nil, err
	}

	sort.Slice(c.items, func(i, j int) bool { return c.items[i].ID < c.items[j].ID })
	for i, it := range c.items {
		c.items[i].Categories = uniqueSorted(it.Categories)
		if _, ok := c.shopItems[it.ShopID]; !ok {
			c.shops = append(c.shops, it.ShopID)
		}
		c.shopItems[it.ShopID] = append(c.shopItems[it.ShopID], i)
		c.baseline += it.Subtotal()
	}
	sort.Strings(c.shops)

	if err := c.validateRules(); err != nil {
		return nil, err
	}
	sort.Slice(c.rules, func(i, j int) bool { return c.rules[i].ID < c.rules[j].ID })

	c.conditions = make([]*condition, len(c.rules))
	for i, r := range c.rules {
		if strings.TrimSpace(r.Eligibility.Condition) == "" {
			continue
		}
		cond, err := compileCondition(r.Eligibility.Condition)
		if err != nil {
			return nil, invalid(ruleField(r.ID, "eligibility.condition"), "%v", err)
		}
		c.conditions[i] = cond
	}

	c.fp = fingerprint(c.items, c.rules)
	return c, nil
}

func (c *Catalog) validateItems() error {
	var total money.Money
	seen := make(map[string]struct{}, len(c.items))
	for i, it := range c.items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.ID) == "" {
			return invalid(field+".id", "cannot be empty")
		}
		if _, dup := seen[it.ID]; dup {
			return invalid(field+".id", "duplicate item id %q", it.ID)
		}
		seen[it.ID] = struct{}{}
		if strings.TrimSpace(it.ShopID) == "" {
			return invalid(field+".shopId", "item %q has no shop", it.ID)
		}
		if it.UnitPrice <= 0 {
			return invalid(field+".unitPrice", "item %q has non-positive price %s", it.ID, it.UnitPrice)
		}
		if it.UnitPrice > money.MaxAmount {
			return invalid(field+".unitPrice", "item %q price exceeds %s", it.ID, money.MaxAmount)
		}
		if it.Quantity <= 0 {
			return invalid(field+".quantity", "item %q has non-positive quantity %d", it.ID, it.Quantity)
		}
		sub, ok := it.UnitPrice.MulChecked(it.Quantity)
		if !ok {
			return invalid(field+".quantity", "item %q subtotal exceeds %s", it.ID, money.MaxAmount)
		}
		if total += sub; total > money.MaxAmount {
			return invalid("items", "cart total exceeds %s", money.MaxAmount)
		}
	}
	return nil
}

func (c *Catalog) validateRules() error {
	seen := make(map[string]struct{}, len(c.rules))
	for i := range c.rules {
		r := &c.rules[i]
		if strings.TrimSpace(r.ID) == "" {
			return invalid(fmt.Sprintf("coupons[%d].id", i), "cannot be empty")
		}
		if _, dup := seen[r.ID]; dup {
			return invalid(fmt.Sprintf("coupons[%d].id", i), "duplicate coupon id %q", r.ID)
		}
		seen[r.ID] = struct{}{}

		if err := c.validateScope(r); err != nil {
			return err
		}
		for _, shop := range r.Eligibility.Shops {
			if !c.HasShop(shop) {
				return invalid(ruleField(r.ID, "eligibility.shops"), "shop %q is not in the cart", shop)
			}
		}
		if r.Eligibility.MinSpend < 0 {
			return invalid(ruleField(r.ID, "eligibility.minSpend"), "cannot be negative")
		}
		if r.Eligibility.MinSpend > money.MaxAmount {
			return invalid(ruleField(r.ID, "eligibility.minSpend"), "exceeds %s", money.MaxAmount)
		}
		if err := validateDiscount(r.ID, r.Discount); err != nil {
			return err
		}

		if r.StackingClass == "" {
			r.StackingClass = r.ID
		}
		if r.PerOrderLimit < 0 {
			return invalid(ruleField(r.ID, "perOrderLimit"), "cannot be negative")
		}
		if r.PerOrderLimit == 0 {
			r.PerOrderLimit = 1
		}
		if r.GlobalLimit < 0 {
			return invalid(ruleField(r.ID, "globalLimit"), "cannot be negative")
		}
		r.Scope.Shops = uniqueSorted(r.Scope.Shops)
		r.Eligibility.Shops = uniqueSorted(r.Eligibility.Shops)
		r.Eligibility.Categories = uniqueSorted(r.Eligibility.Categories)
	}
	return nil
}

func (c *Catalog) validateScope(r *CouponRule) error {
	field := ruleField(r.ID, "scope")
	switch r.Scope.Kind {
	case ScopePlatform:
		if len(r.Scope.Shops) > 0 {
			return invalid(field, "platform scope takes no shops")
		}
	case ScopeSingleShop:
		if len(r.Scope.Shops) != 1 {
			return invalid(field, "single_shop scope needs exactly one shop, got %d", len(r.Scope.Shops))
		}
	case ScopeCrossShop:
		if len(r.Scope.Shops) == 0 {
			return invalid(field, "cross_shop scope needs at least one shop")
		}
	default:
		return invalid(field, "unknown scope kind %q", r.Scope.Kind)
	}
	for _, shop := range r.Scope.Shops {
		if !c.HasShop(shop) {
			return invalid(field, "shop %q is not in the cart", shop)
		}
	}
	return nil
}

func validateDiscount(id string, d Discount) error {
	field := ruleField(id, "discount")
	for _, a := range []struct {
		name string
		v    money.Money
	}{{"amount", d.Amount}, {"cap", d.Cap}, {"every", d.Every}, {"save", d.Save}} {
		if a.v > money.MaxAmount {
			return invalid(field+"."+a.name, "exceeds %s", money.MaxAmount)
		}
	}
	for i, t := range d.Tiers {
		if t.Threshold > money.MaxAmount || t.Save > money.MaxAmount {
			return invalid(fmt.Sprintf("%s.tiers[%d]", field, i), "exceeds %s", money.MaxAmount)
		}
	}
	switch d.Kind {
	case DiscountFlat:
		if d.Amount <= 0 {
			return invalid(field+".amount", "must be positive")
		}
	case DiscountPercent:
		if d.PercentBps <= 0 || d.PercentBps > MaxBps {
			return invalid(field+".percent", "must be in (0%%, 100%%], got %d bps", d.PercentBps)
		}
		if d.Cap < 0 {
			return invalid(field+".cap", "cannot be negative")
		}
	case DiscountTiered:
		if len(d.Tiers) == 0 {
			return invalid(field+".tiers", "at least one tier is required")
		}
		for i, t := range d.Tiers {
			if t.Save <= 0 || t.Threshold < 0 {
				return invalid(fmt.Sprintf("%s.tiers[%d]", field, i), "threshold must be non-negative and save positive")
			}
			if i > 0 && t.Threshold <= d.Tiers[i-1].Threshold {
				return invalid(fmt.Sprintf("%s.tiers[%d]", field, i), "thresholds must be strictly increasing")
			}
		}
	case DiscountEvery:
		if d.Every <= 0 || d.Save <= 0 {
			return invalid(field, "every and save must be positive")
		}
	default:
		return invalid(field+".kind", "unknown discount kind %q", d.Kind)
	}
	return nil
}

func ruleField(id, field string) string {
	return fmt.Sprintf("coupons[%s].%s", id, field)
}

// Items returns the items in canonical order. Callers must not modify the slice.
func (c *Catalog) Items() []Item { return c.items }

// Rules returns the coupon rules in canonical order. Callers must not modify the slice.
func (c *Catalog) Rules() []CouponRule { return c.rules }

// Shops returns the sorted shop IDs present in the cart.
func (c *Catalog) Shops() []string { return c.shops }

// ItemsInShop returns the indices of the items owned by shop.
func (c *Catalog) ItemsInShop(shop string) []int { return c.shopItems[shop] }

// HasShop reports whether any cart item belongs to shop.
func (c *Catalog) HasShop(shop string) bool {
	_, ok := c.shopItems[shop]
	return ok
}

// Baseline is the cost of the cart with no coupons applied.
func (c *Catalog) Baseline() money.Money { return c.baseline }

// Fingerprint identifies the catalog content independent of input order.
func (c *Catalog) Fingerprint() string { return c.fp }

// Facts summarises the grouping made of the given item indices.
func (c *Catalog) Facts(itemIdx []int) Facts {
	f := Facts{ItemCount: len(itemIdx)}
	shops := make([]string, 0, 2)
	var cats []string
	for _, i := range itemIdx {
		it := c.items[i]
		f.Subtotal += it.Subtotal()
		shops = append(shops, it.ShopID)
		cats = append(cats, it.Categories...)
	}
	f.Shops = uniqueSorted(shops)
	f.Categories = uniqueSorted(cats)
	if f.Shops == nil {
		f.Shops = []string{}
	}
	if f.Categories == nil {
		f.Categories = []string{}
	}
	return f
}

// InScope reports whether every shop of the grouping is covered by the rule's scope.
func (c *Catalog) InScope(rule int, f Facts) bool {
	r := c.rules[rule]
	if r.Scope.Kind == ScopePlatform {
		return true
	}
	for _, shop := range f.Shops {
		if !containsSorted(r.Scope.Shops, shop) {
			return false
		}
	}
	return true
}

// Eligible reports whether the grouping satisfies the rule's scope and eligibility predicate.
func (c *Catalog) Eligible(rule int, f Facts) bool {
	if !c.InScope(rule, f) {
		return false
	}
	e := c.rules[rule].Eligibility
	if f.Subtotal < e.MinSpend {
		return false
	}
	for _, cat := range e.Categories {
		if !f.hasCategory(cat) {
			return false
		}
	}
	for _, shop := range e.Shops {
		if !f.hasShop(shop) {
			return false
		}
	}
	if cond := c.conditions[rule]; cond != nil && !cond.eval(f) {
		return false
	}
	return true
}

// RuleIndex returns the canonical index of the rule with the given ID.
func (c *Catalog) RuleIndex(id string) (int, bool) {
	i := sort.Search(len(c.rules), func(i int) bool { return c.rules[i].ID >= id })
	if i < len(c.rules) && c.rules[i].ID == id {
		return i, true
	}
	return -1, false
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func containsSorted(sorted []string, s string) bool {
	i := sort.SearchStrings(sorted, s)
	return i < len(sorted) && sorted[i] == s
}
