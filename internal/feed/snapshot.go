// Package feed loads cart and coupon snapshots from JSON, CSV, XLSX and
// Postgres sources and turns them into validated catalogs.
package feed

import (
	"fmt"
	"strings"

	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/money"
)

// Snapshot is the wire form of a cart and its coupons. Amounts are decimal
// strings in major units ("12.99", "1.299,00 EUR").
type Snapshot struct {
	Items   []ItemDTO   `json:"items" binding:"dive"`
	Coupons []CouponDTO `json:"coupons" binding:"dive"`
}

// ItemDTO is one cart line.
type ItemDTO struct {
	ID         string   `json:"id" binding:"required"`
	Name       string   `json:"name,omitempty"`
	ShopID     string   `json:"shopId" binding:"required"`
	Price      string   `json:"price" binding:"required"`
	Quantity   int      `json:"quantity" binding:"required"`
	Categories []string `json:"categories,omitempty"`
}

// ScopeDTO restricts the shops a coupon covers.
type ScopeDTO struct {
	Kind  string   `json:"kind" binding:"required" jsonschema:"enum=platform,enum=cross_shop,enum=single_shop"`
	Shops []string `json:"shops,omitempty"`
}

// TierDTO is one threshold of a tiered discount.
type TierDTO struct {
	Threshold string `json:"threshold"`
	Save      string `json:"save"`
}

// DiscountDTO describes the discount function.
type DiscountDTO struct {
	Kind    string    `json:"kind" binding:"required" jsonschema:"enum=flat,enum=tiered,enum=every,enum=percent"`
	Amount  string    `json:"amount,omitempty"`
	Percent string    `json:"percent,omitempty"` // "10", "12.5%"
	Cap     string    `json:"cap,omitempty"`
	Tiers   []TierDTO `json:"tiers,omitempty"`
	Every   string    `json:"every,omitempty"`
	Save    string    `json:"save,omitempty"`
}

// CouponDTO is one coupon rule.
type CouponDTO struct {
	ID            string      `json:"id" binding:"required"`
	Name          string      `json:"name,omitempty"`
	Scope         ScopeDTO    `json:"scope"`
	MinSpend      string      `json:"minSpend,omitempty"`
	Categories    []string    `json:"categories,omitempty"`
	Shops         []string    `json:"shops,omitempty"`
	Condition     string      `json:"condition,omitempty"`
	Discount      DiscountDTO `json:"discount"`
	StackingClass string      `json:"stackingClass,omitempty"`
	PerOrderLimit int         `json:"perOrderLimit,omitempty"`
	GlobalLimit   int         `json:"globalLimit,omitempty"`
}

// Catalog converts the snapshot into a validated catalog. Amount parse
// failures are reported as catalog errors.
func (s Snapshot) Catalog() (*catalog.Catalog, error) {
	items := make([]catalog.Item, 0, len(s.Items))
	for i, dto := range s.Items {
		price, err := money.Parse(dto.Price)
		if err != nil {
			return nil, &catalog.CatalogError{Field: fmt.Sprintf("items[%d].price", i), Reason: err.Error()}
		}
		items = append(items, catalog.Item{
			ID:         strings.TrimSpace(dto.ID),
			Name:       dto.Name,
			ShopID:     strings.TrimSpace(dto.ShopID),
			UnitPrice:  price,
			Quantity:   dto.Quantity,
			Categories: dto.Categories,
		})
	}

	rules := make([]catalog.CouponRule, 0, len(s.Coupons))
	for _, dto := range s.Coupons {
		r, err := dto.rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return catalog.New(items, rules)
}

func (c CouponDTO) rule() (catalog.CouponRule, error) {
	p := amountParser{prefix: fmt.Sprintf("coupons[%s]", c.ID)}
	r := catalog.CouponRule{
		ID:   strings.TrimSpace(c.ID),
		Name: c.Name,
		Scope: catalog.Scope{
			Kind:  catalog.ScopeKind(strings.ToLower(strings.TrimSpace(c.Scope.Kind))),
			Shops: c.Scope.Shops,
		},
		Eligibility: catalog.Eligibility{
			MinSpend:   p.optional("minSpend", c.MinSpend),
			Categories: c.Categories,
			Shops:      c.Shops,
			Condition:  c.Condition,
		},
		Discount: catalog.Discount{
			Kind:   catalog.DiscountKind(strings.ToLower(strings.TrimSpace(c.Discount.Kind))),
			Amount: p.optional("discount.amount", c.Discount.Amount),
			Cap:    p.optional("discount.cap", c.Discount.Cap),
			Every:  p.optional("discount.every", c.Discount.Every),
			Save:   p.optional("discount.save", c.Discount.Save),
		},
		StackingClass: c.StackingClass,
		PerOrderLimit: c.PerOrderLimit,
		GlobalLimit:   c.GlobalLimit,
	}
	if c.Discount.Percent != "" {
		bps, err := money.PercentBps(c.Discount.Percent)
		if err != nil && p.err == nil {
			p.err = &catalog.CatalogError{Field: p.prefix + ".discount.percent", Reason: err.Error()}
		}
		r.Discount.PercentBps = bps
	}
	for i, t := range c.Discount.Tiers {
		r.Discount.Tiers = append(r.Discount.Tiers, catalog.Tier{
			Threshold: p.optional(fmt.Sprintf("discount.tiers[%d].threshold", i), t.Threshold),
			Save:      p.optional(fmt.Sprintf("discount.tiers[%d].save", i), t.Save),
		})
	}
	if p.err != nil {
		return catalog.CouponRule{}, p.err
	}
	return r, nil
}

// amountParser parses optional amounts and keeps the first failure.
type amountParser struct {
	prefix string
	err    error
}

func (p *amountParser) optional(field, value string) money.Money {
	if strings.TrimSpace(value) == "" {
		return 0
	}
	m, err := money.Parse(value)
	if err != nil && p.err == nil {
		p.err = &catalog.CatalogError{Field: p.prefix + "." + field, Reason: err.Error()}
	}
	return m
}

// FromCatalog renders a catalog back into its wire form.
func FromCatalog(cat *catalog.Catalog) Snapshot {
	var s Snapshot
	for _, it := range cat.Items() {
		s.Items = append(s.Items, ItemDTO{
			ID:         it.ID,
			Name:       it.Name,
			ShopID:     it.ShopID,
			Price:      it.UnitPrice.String(),
			Quantity:   it.Quantity,
			Categories: it.Categories,
		})
	}
	for _, r := range cat.Rules() {
		s.Coupons = append(s.Coupons, couponDTO(r))
	}
	return s
}

func couponDTO(r catalog.CouponRule) CouponDTO {
	amount := func(m money.Money) string {
		if m == 0 {
			return ""
		}
		return m.String()
	}
	d := DiscountDTO{
		Kind:   string(r.Discount.Kind),
		Amount: amount(r.Discount.Amount),
		Cap:    amount(r.Discount.Cap),
		Every:  amount(r.Discount.Every),
		Save:   amount(r.Discount.Save),
	}
	if r.Discount.PercentBps > 0 {
		d.Percent = money.FormatBps(r.Discount.PercentBps)
	}
	for _, t := range r.Discount.Tiers {
		d.Tiers = append(d.Tiers, TierDTO{Threshold: t.Threshold.String(), Save: t.Save.String()})
	}
	return CouponDTO{
		ID:            r.ID,
		Name:          r.Name,
		Scope:         ScopeDTO{Kind: string(r.Scope.Kind), Shops: r.Scope.Shops},
		MinSpend:      amount(r.Eligibility.MinSpend),
		Categories:    r.Eligibility.Categories,
		Shops:         r.Eligibility.Shops,
		Condition:     r.Eligibility.Condition,
		Discount:      d,
		StackingClass: r.StackingClass,
		PerOrderLimit: r.PerOrderLimit,
		GlobalLimit:   r.GlobalLimit,
	}
}
