package optimizer

import (
	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/money"
)

// GroupCost is the priced breakdown of one grouping.
type GroupCost struct {
	Subtotal         money.Money
	FixedReduction   money.Money
	PercentReduction money.Money
	Final            money.Money
}

// Evaluation is the priced breakdown of a plan.
type Evaluation struct {
	Groups []GroupCost
	Total  money.Money
}

// Evaluator prices groupings and plans. It holds no mutable state.
type Evaluator struct {
	cat   *catalog.Catalog
	order EvaluationOrder
}

// NewEvaluator returns an evaluator for the catalog. An empty order means FlatFirst.
func NewEvaluator(cat *catalog.Catalog, order EvaluationOrder) *Evaluator {
	if order == "" {
		order = FlatFirst
	}
	return &Evaluator{cat: cat, order: order}
}

// EvaluateGroup prices a grouping with the given committed rules.
func (e *Evaluator) EvaluateGroup(subtotal money.Money, rules []int) GroupCost {
	gc := GroupCost{Subtotal: subtotal}
	if len(rules) == 0 {
		gc.Final = subtotal
		return gc
	}

	all := e.cat.Rules()
	fixedSum := func(limit money.Money) money.Money {
		var sum money.Money
		for _, r := range rules {
			sum += all[r].Discount.FixedReduction(subtotal)
		}
		return money.Min(sum, limit)
	}
	percentSum := func(base money.Money) money.Money {
		var sum money.Money
		for _, r := range rules {
			sum += all[r].Discount.PercentReduction(base)
		}
		return money.Min(sum, base)
	}

	switch e.order {
	case PercentFirst:
		gc.PercentReduction = percentSum(subtotal)
		base := subtotal - gc.PercentReduction
		gc.FixedReduction = fixedSum(base)
		gc.Final = base - gc.FixedReduction
	default:
		gc.FixedReduction = fixedSum(subtotal)
		base := subtotal - gc.FixedReduction
		gc.PercentReduction = percentSum(base)
		gc.Final = base - gc.PercentReduction
	}
	gc.Final = money.ClampNonNegative(gc.Final)
	return gc
}

// Evaluate prices every grouping of the state from scratch. Unplaced items
// are charged at their subtotal.
func (e *Evaluator) Evaluate(s *PlanState) Evaluation {
	ev := Evaluation{Groups: make([]GroupCost, len(s.groups))}
	for i, g := range s.groups {
		ev.Groups[i] = e.EvaluateGroup(e.subtotal(g.items), g.rules)
		ev.Total += ev.Groups[i].Final
	}
	items := e.cat.Items()
	for i := s.next; i < len(items); i++ {
		ev.Total += items[i].Subtotal()
	}
	return ev
}

func (e *Evaluator) subtotal(itemIdx []int) money.Money {
	items := e.cat.Items()
	var sum money.Money
	for _, i := range itemIdx {
		sum += items[i].Subtotal()
	}
	return sum
}

// bestSingleDiscount is the largest reduction any single eligible rule gives
// the grouping, ignoring budgets and stacking.
func (e *Evaluator) bestSingleDiscount(f catalog.Facts) money.Money {
	var best money.Money
	one := make([]int, 1)
	for r := range e.cat.Rules() {
		if !e.cat.Eligible(r, f) {
			continue
		}
		one[0] = r
		if d := f.Subtotal - e.EvaluateGroup(f.Subtotal, one).Final; d > best {
			best = d
		}
	}
	return best
}
