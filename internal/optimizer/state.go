package optimizer

import (
	"strconv"
	"strings"

	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/money"
)

// group is one grouping of a plan in progress.
type group struct {
	items    []int // item indices in placement (ascending) order
	rules    []int // committed rule indices in application order
	closed   bool
	subtotal money.Money
	cost     GroupCost
	facts    catalog.Facts // set once every item is placed
}

// PlanState is a partial or complete plan. It is immutable by convention:
// Apply returns a new state and never modifies the receiver, so states may be
// shared freely between search nodes and goroutines.
type PlanState struct {
	cat    *catalog.Catalog
	eval   *Evaluator
	next   int // index of the next item to place
	groups []group
	usage  []int // applications per rule across the plan
	cost   money.Money
}

// NewPlanState returns the root state: nothing placed, nothing committed.
func NewPlanState(cat *catalog.Catalog, eval *Evaluator) *PlanState {
	return &PlanState{
		cat:   cat,
		eval:  eval,
		usage: make([]int, len(cat.Rules())),
		cost:  cat.Baseline(),
	}
}

// Cost is the running cost: priced groupings plus unplaced items at full price.
func (s *PlanState) Cost() money.Money { return s.cost }

// Placed reports whether every item has been assigned to a grouping.
func (s *PlanState) Placed() bool { return s.next >= len(s.cat.Items()) }

// Terminal reports whether every item is placed and every grouping is closed.
func (s *PlanState) Terminal() bool {
	if !s.Placed() {
		return false
	}
	for i := range s.groups {
		if !s.groups[i].closed {
			return false
		}
	}
	return true
}

// NumGroups returns the number of groupings created so far.
func (s *PlanState) NumGroups() int { return len(s.groups) }

// Usage returns how many times the rule has been applied across the plan.
func (s *PlanState) Usage(rule int) int { return s.usage[rule] }

// GroupRules returns the committed rules of a grouping. Callers must not modify the slice.
func (s *PlanState) GroupRules(g int) []int { return s.groups[g].rules }

// GroupItems returns the item indices of a grouping. Callers must not modify the slice.
func (s *PlanState) GroupItems(g int) []int { return s.groups[g].items }

// openGroup returns the lowest-index grouping whose coupon decision is open, or -1.
func (s *PlanState) openGroup() int {
	for i := range s.groups {
		if !s.groups[i].closed {
			return i
		}
	}
	return -1
}

// Apply returns the state reached by m. The move must be legal for s, as
// produced by a MoveGenerator.
func (s *PlanState) Apply(m Move) *PlanState {
	ns := &PlanState{
		cat:    s.cat,
		eval:   s.eval,
		next:   s.next,
		groups: make([]group, len(s.groups), len(s.groups)+1),
		usage:  s.usage,
		cost:   s.cost,
	}
	copy(ns.groups, s.groups)

	switch m.Kind {
	case MovePlace:
		item := s.cat.Items()[m.Item]
		if m.Group == len(ns.groups) {
			ns.groups = append(ns.groups, group{})
		}
		g := &ns.groups[m.Group]
		g.items = appendCopy(g.items, m.Item)
		g.subtotal += item.Subtotal()
		g.cost = GroupCost{Subtotal: g.subtotal, Final: g.subtotal}
		ns.next++
		if ns.Placed() {
			for i := range ns.groups {
				ns.groups[i].facts = s.cat.Facts(ns.groups[i].items)
			}
		}

	case MoveApply:
		g := &ns.groups[m.Group]
		g.rules = appendCopy(g.rules, m.Rule)
		prev := g.cost.Final
		g.cost = s.eval.EvaluateGroup(g.subtotal, g.rules)
		ns.cost = ns.cost - prev + g.cost.Final
		ns.usage = make([]int, len(s.usage))
		copy(ns.usage, s.usage)
		ns.usage[m.Rule]++

	case MoveClose:
		ns.groups[m.Group].closed = true
	}
	return ns
}

func appendCopy(src []int, v int) []int {
	out := make([]int, len(src), len(src)+1)
	copy(out, src)
	return append(out, v)
}

// Signature identifies the state: placement progress, groupings with their
// committed rules and closed flags.
func (s *PlanState) Signature() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.next))
	for _, g := range s.groups {
		b.WriteByte('|')
		writeInts(&b, g.items)
		b.WriteByte('/')
		writeInts(&b, g.rules)
		if g.closed {
			b.WriteString("/x")
		}
	}
	return b.String()
}

// PartitionSignature identifies the partition of items into groupings by item ID.
func (s *PlanState) PartitionSignature() string {
	items := s.cat.Items()
	var b strings.Builder
	for i, g := range s.groups {
		if i > 0 {
			b.WriteByte('|')
		}
		for j, it := range g.items {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(items[it].ID)
		}
	}
	return b.String()
}

// Describe renders the state with item and coupon IDs, for errors and logs.
func (s *PlanState) Describe() string {
	items := s.cat.Items()
	rules := s.cat.Rules()
	var b strings.Builder
	b.WriteString("placed=")
	b.WriteString(strconv.Itoa(s.next))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(len(items)))
	for i, g := range s.groups {
		b.WriteString(" g")
		b.WriteString(strconv.Itoa(i))
		b.WriteString("[")
		for j, it := range g.items {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(items[it].ID)
		}
		b.WriteString("]{")
		for j, r := range g.rules {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(rules[r].ID)
		}
		b.WriteByte('}')
		if g.closed {
			b.WriteString(" closed")
		}
	}
	b.WriteString(" cost=")
	b.WriteString(s.cost.String())
	return b.String()
}

func writeInts(b *strings.Builder, vs []int) {
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
}
