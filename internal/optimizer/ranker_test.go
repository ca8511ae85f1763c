package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/money"
)

func TestRanker(t *testing.T) {
	cat := mustCatalog(t,
		[]catalog.Item{item("a", "s1", 1000, 1), item("b", "s2", 500, 1)},
		[]catalog.CouponRule{flat("f", platform, 0, 100), percent("p", platform, 1000, 0)},
	)
	eval := NewEvaluator(cat, FlatFirst)

	var terminals []*PlanState
	enumerateTerminals(cat, eval, func(s *PlanState) { terminals = append(terminals, s) })
	require.NotEmpty(t, terminals)

	t.Run("keeps k lowest distinct plans", func(t *testing.T) {
		r := NewRanker(3)
		for _, s := range terminals {
			r.Add(s)
		}
		plans := r.Plans()
		require.Len(t, plans, 3)
		for i := 1; i < len(plans); i++ {
			assert.LessOrEqual(t, plans[i-1].Cost, plans[i].Cost)
			assert.Equal(t, i+1, plans[i].Rank)
		}

		best := money.Money(1 << 62)
		for _, s := range terminals {
			best = money.Min(best, s.Cost())
		}
		assert.Equal(t, best, plans[0].Cost)
		got, ok := r.Best()
		assert.True(t, ok)
		assert.Equal(t, best, got)
	})

	t.Run("deduplicates on cost and partition", func(t *testing.T) {
		r := NewRanker(5)
		assert.True(t, r.Add(terminals[0]))
		assert.False(t, r.Add(terminals[0]))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("ties keep discovery order", func(t *testing.T) {
		r := NewRanker(5)
		var same []*PlanState
		for _, s := range terminals {
			if s.Cost() == cat.Baseline() {
				same = append(same, s)
			}
		}
		// both partitions without coupons cost the baseline
		require.GreaterOrEqual(t, len(same), 2)
		for _, s := range same {
			r.Add(s)
		}
		plans := r.Plans()
		require.Len(t, plans, 2)
		assert.Equal(t, same[0].PartitionSignature(), partitionOf(plans[0]))
		assert.Equal(t, same[1].PartitionSignature(), partitionOf(plans[1]))
	})

	t.Run("breakdown", func(t *testing.T) {
		s := NewPlanState(cat, eval).
			Apply(Move{Kind: MovePlace, Item: 0, Group: 0}).
			Apply(Move{Kind: MovePlace, Item: 1, Group: 0})
		fi, _ := cat.RuleIndex("f")
		pi, _ := cat.RuleIndex("p")
		s = s.Apply(Move{Kind: MoveApply, Group: 0, Rule: fi}).
			Apply(Move{Kind: MoveApply, Group: 0, Rule: pi}).
			Apply(Move{Kind: MoveClose, Group: 0})

		r := NewRanker(1)
		r.Add(s)
		plans := r.Plans()
		require.Len(t, plans, 1)
		p := plans[0]
		assert.Equal(t, money.Money(1260), p.Cost)
		assert.Equal(t, money.Money(240), p.Savings)
		require.Len(t, p.Groups, 1)
		g := p.Groups[0]
		assert.Equal(t, []string{"a", "b"}, g.ItemIDs)
		assert.Equal(t, []string{"s1", "s2"}, g.Shops)
		assert.Equal(t, money.Money(1500), g.Subtotal)
		assert.Equal(t, money.Money(100), g.FixedReduction)
		assert.Equal(t, money.Money(140), g.PercentReduction)
		assert.Equal(t, []string{"f", "p"}, g.CouponIDs)
	})
}

func partitionOf(p RankedPlan) string {
	sig := ""
	for i, g := range p.Groups {
		if i > 0 {
			sig += "|"
		}
		for j, id := range g.ItemIDs {
			if j > 0 {
				sig += ","
			}
			sig += id
		}
	}
	return sig
}
