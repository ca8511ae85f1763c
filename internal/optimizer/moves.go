package optimizer

import (
	"fmt"

	"github.com/kosarica/coupon-planner/internal/catalog"
)

// MoveKind is the kind of decision a move makes.
type MoveKind uint8

const (
	// MovePlace puts the next unplaced item into a grouping. Group equal to
	// the current number of groupings opens a new one.
	MovePlace MoveKind = iota + 1
	// MoveApply commits a coupon rule to the lowest open grouping.
	MoveApply
	// MoveClose finalizes the coupon decision of a grouping.
	MoveClose
)

// Move is one decision in the plan.
type Move struct {
	Kind  MoveKind
	Item  int
	Group int
	Rule  int
}

func (m Move) String() string {
	switch m.Kind {
	case MovePlace:
		return fmt.Sprintf("place(item=%d, group=%d)", m.Item, m.Group)
	case MoveApply:
		return fmt.Sprintf("apply(group=%d, rule=%d)", m.Group, m.Rule)
	case MoveClose:
		return fmt.Sprintf("close(group=%d)", m.Group)
	default:
		return "unknown"
	}
}

// MoveSource enumerates the legal moves of a state.
type MoveSource interface {
	Moves(s *PlanState) []Move
}

// MoveGenerator produces canonical moves: items are placed in ascending ID
// order into existing groupings or a new one, so every partition has exactly
// one placement sequence; coupons are committed to the lowest open grouping in
// non-decreasing rule order, so every coupon multiset has exactly one sequence.
// The moves of a state therefore lead to pairwise distinct signatures.
type MoveGenerator struct {
	cat *catalog.Catalog
}

// NewMoveGenerator returns a generator for the catalog.
func NewMoveGenerator(cat *catalog.Catalog) *MoveGenerator {
	return &MoveGenerator{cat: cat}
}

// Moves returns the legal moves of s in deterministic order. Terminal states have none.
func (g *MoveGenerator) Moves(s *PlanState) []Move {
	if !s.Placed() {
		moves := make([]Move, 0, len(s.groups)+1)
		for gi := 0; gi <= len(s.groups); gi++ {
			moves = append(moves, Move{Kind: MovePlace, Item: s.next, Group: gi})
		}
		return moves
	}

	gi := s.openGroup()
	if gi < 0 {
		return nil
	}
	grp := &s.groups[gi]
	rules := g.cat.Rules()

	first := 0
	if n := len(grp.rules); n > 0 {
		first = grp.rules[n-1]
	}

	moves := make([]Move, 0, 4)
	for r := first; r < len(rules); r++ {
		if g.applicable(s, grp, r) {
			moves = append(moves, Move{Kind: MoveApply, Group: gi, Rule: r})
		}
	}
	return append(moves, Move{Kind: MoveClose, Group: gi})
}

// applicable checks scope, eligibility, budgets and stacking for rule r on grp.
func (g *MoveGenerator) applicable(s *PlanState, grp *group, r int) bool {
	rule := g.cat.Rules()[r]
	if rule.GlobalLimit > 0 && s.usage[r] >= rule.GlobalLimit {
		return false
	}
	uses := 0
	for _, c := range grp.rules {
		if c == r {
			uses++
			continue
		}
		if g.cat.Rules()[c].StackingClass == rule.StackingClass {
			return false
		}
	}
	if uses >= rule.PerOrderLimit {
		return false
	}
	return g.cat.Eligible(r, grp.facts)
}
