package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// FingerprintVersion is bumped whenever the canonical encoding changes.
const FingerprintVersion = 2

type canonicalItem struct {
	ID         string   `json:"id"`
	ShopID     string   `json:"shop"`
	UnitPrice  int64    `json:"price"`
	Quantity   int      `json:"qty"`
	Categories []string `json:"cats"`
}

type canonicalTier struct {
	Threshold int64 `json:"threshold"`
	Save      int64 `json:"save"`
}

type canonicalRule struct {
	ID            string          `json:"id"`
	ScopeKind     ScopeKind       `json:"scope"`
	ScopeShops    []string        `json:"scopeShops"`
	MinSpend      int64           `json:"minSpend"`
	Categories    []string        `json:"cats"`
	Shops         []string        `json:"shops"`
	Condition     string          `json:"cond"`
	Kind          DiscountKind    `json:"kind"`
	Amount        int64           `json:"amount"`
	PercentBps    int             `json:"bps"`
	Cap           int64           `json:"cap"`
	Every         int64           `json:"every"`
	Save          int64           `json:"save"`
	Tiers         []canonicalTier `json:"tiers"`
	StackingClass string          `json:"class"`
	PerOrderLimit int             `json:"perOrder"`
	GlobalLimit   int             `json:"global"`
}

type canonicalCatalog struct {
	Version int             `json:"v"`
	Items   []canonicalItem `json:"items"`
	Rules   []canonicalRule `json:"rules"`
}

// fingerprint hashes the canonical catalog: items and rules already sorted
// by ID, string sets already sorted. Display names are left out. Every
// string goes through JSON so separators inside IDs or tags stay escaped.
func fingerprint(items []Item, rules []CouponRule) string {
	c := canonicalCatalog{
		Version: FingerprintVersion,
		Items:   make([]canonicalItem, len(items)),
		Rules:   make([]canonicalRule, len(rules)),
	}
	for i, it := range items {
		c.Items[i] = canonicalItem{
			ID:         it.ID,
			ShopID:     it.ShopID,
			UnitPrice:  int64(it.UnitPrice),
			Quantity:   it.Quantity,
			Categories: orEmpty(it.Categories),
		}
	}
	for i, r := range rules {
		d := r.Discount
		tiers := make([]canonicalTier, len(d.Tiers))
		for j, t := range d.Tiers {
			tiers[j] = canonicalTier{Threshold: int64(t.Threshold), Save: int64(t.Save)}
		}
		c.Rules[i] = canonicalRule{
			ID:            r.ID,
			ScopeKind:     r.Scope.Kind,
			ScopeShops:    orEmpty(r.Scope.Shops),
			MinSpend:      int64(r.Eligibility.MinSpend),
			Categories:    orEmpty(r.Eligibility.Categories),
			Shops:         orEmpty(r.Eligibility.Shops),
			Condition:     r.Eligibility.Condition,
			Kind:          d.Kind,
			Amount:        int64(d.Amount),
			PercentBps:    d.PercentBps,
			Cap:           int64(d.Cap),
			Every:         int64(d.Every),
			Save:          int64(d.Save),
			Tiers:         tiers,
			StackingClass: r.StackingClass,
			PerOrderLimit: r.PerOrderLimit,
			GlobalLimit:   r.GlobalLimit,
		}
	}

	// only strings, ints and slices of them: Marshal cannot fail
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// orEmpty makes nil and empty sets encode the same way.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
