package optimizer

import (
	"sort"
	"sync"

	"github.com/kosarica/coupon-planner/internal/money"
)

// GroupBreakdown is the priced content of one grouping of a ranked plan.
type GroupBreakdown struct {
	ItemIDs          []string    `json:"itemIds"`
	Shops            []string    `json:"shops"`
	Subtotal         money.Money `json:"subtotal"`
	FixedReduction   money.Money `json:"fixedReduction"`
	PercentReduction money.Money `json:"percentReduction"`
	Final            money.Money `json:"final"`
	CouponIDs        []string    `json:"couponIds"`
}

// RankedPlan is a complete plan in the result set.
type RankedPlan struct {
	Rank    int              `json:"rank"`
	Cost    money.Money      `json:"cost"`
	Savings money.Money      `json:"savings"`
	Groups  []GroupBreakdown `json:"groups"`
}

type rankKey struct {
	cost      money.Money
	partition string
}

type rankEntry struct {
	key   rankKey
	seq   int64
	state *PlanState
}

// Ranker keeps the K lowest-cost distinct terminal plans seen during a run.
// Plans with the same final cost and partition count as one; among equal
// costs the earlier discovery ranks first.
type Ranker struct {
	mu      sync.Mutex
	k       int
	seq     int64
	entries []rankEntry
	seen    map[rankKey]struct{}
}

// NewRanker returns a ranker retaining at most k plans.
func NewRanker(k int) *Ranker {
	if k < 1 {
		k = 1
	}
	return &Ranker{k: k, seen: make(map[rankKey]struct{})}
}

// Add offers a terminal state and reports whether it was retained.
func (r *Ranker) Add(s *PlanState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	cost := s.Cost()
	if len(r.entries) == r.k && cost >= r.entries[len(r.entries)-1].key.cost {
		return false
	}
	key := rankKey{cost: cost, partition: s.PartitionSignature()}
	if _, dup := r.seen[key]; dup {
		return false
	}

	e := rankEntry{key: key, seq: r.seq, state: s}
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].key.cost > cost
	})
	r.entries = append(r.entries, rankEntry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = e
	r.seen[key] = struct{}{}

	if len(r.entries) > r.k {
		evicted := r.entries[len(r.entries)-1]
		delete(r.seen, evicted.key)
		r.entries = r.entries[:r.k]
	}
	return true
}

// Len returns the number of retained plans.
func (r *Ranker) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Best returns the lowest retained cost, false when empty.
func (r *Ranker) Best() (money.Money, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return 0, false
	}
	return r.entries[0].key.cost, true
}

// Plans returns the retained plans in ascending cost order with their breakdown.
func (r *Ranker) Plans() []RankedPlan {
	r.mu.Lock()
	entries := make([]rankEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	plans := make([]RankedPlan, 0, len(entries))
	for i, e := range entries {
		plans = append(plans, breakdown(i+1, e.state))
	}
	return plans
}

func breakdown(rank int, s *PlanState) RankedPlan {
	items := s.cat.Items()
	rules := s.cat.Rules()
	ev := s.eval.Evaluate(s)

	p := RankedPlan{
		Rank:    rank,
		Cost:    ev.Total,
		Savings: s.cat.Baseline() - ev.Total,
		Groups:  make([]GroupBreakdown, len(s.groups)),
	}
	for gi, g := range s.groups {
		gc := ev.Groups[gi]
		gb := GroupBreakdown{
			ItemIDs:          make([]string, 0, len(g.items)),
			Shops:            []string{},
			Subtotal:         gc.Subtotal,
			FixedReduction:   gc.FixedReduction,
			PercentReduction: gc.PercentReduction,
			Final:            gc.Final,
			CouponIDs:        make([]string, 0, len(g.rules)),
		}
		for _, it := range g.items {
			gb.ItemIDs = append(gb.ItemIDs, items[it].ID)
		}
		gb.Shops = append(gb.Shops, s.cat.Facts(g.items).Shops...)
		for _, ri := range g.rules {
			gb.CouponIDs = append(gb.CouponIDs, rules[ri].ID)
		}
		p.Groups[gi] = gb
	}
	return p
}
