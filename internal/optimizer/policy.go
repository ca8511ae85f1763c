package optimizer

import (
	"math/rand"

	"github.com/kosarica/coupon-planner/internal/money"
)

// Policy picks the next move during simulation. Implementations must be safe
// for concurrent use; per-worker randomness comes in through rng.
type Policy interface {
	Choose(s *PlanState, moves []Move, rng *rand.Rand) Move
}

// UniformPolicy picks uniformly at random.
type UniformPolicy struct{}

func (UniformPolicy) Choose(_ *PlanState, moves []Move, rng *rand.Rand) Move {
	return moves[rng.Intn(len(moves))]
}

// GreedyPolicy places items where the best reachable single-coupon discount
// grows the most, then commits the coupon that lowers the cost the most.
// Ties go to Close, then to a random pick among the tied moves.
type GreedyPolicy struct {
	eval *Evaluator
}

// NewGreedyPolicy returns a greedy policy pricing moves with eval.
func NewGreedyPolicy(eval *Evaluator) *GreedyPolicy {
	return &GreedyPolicy{eval: eval}
}

func (p *GreedyPolicy) Choose(s *PlanState, moves []Move, rng *rand.Rand) Move {
	if len(moves) == 1 {
		return moves[0]
	}
	if moves[0].Kind == MovePlace {
		return p.choosePlacement(s, moves, rng)
	}
	return p.chooseCoupon(s, moves, rng)
}

func (p *GreedyPolicy) choosePlacement(s *PlanState, moves []Move, rng *rand.Rand) Move {
	cat := s.cat
	best := money.Money(-1 << 62)
	var tied []Move
	for _, m := range moves {
		var before money.Money
		items := []int{m.Item}
		if m.Group < len(s.groups) {
			g := s.groups[m.Group].items
			before = p.eval.bestSingleDiscount(cat.Facts(g))
			items = appendCopy(g, m.Item)
		}
		gain := p.eval.bestSingleDiscount(cat.Facts(items)) - before
		switch {
		case gain > best:
			best = gain
			tied = append(tied[:0], m)
		case gain == best:
			tied = append(tied, m)
		}
	}
	return tied[rng.Intn(len(tied))]
}

func (p *GreedyPolicy) chooseCoupon(s *PlanState, moves []Move, rng *rand.Rand) Move {
	var (
		bestCost  money.Money
		tied      []Move
		closeMove *Move
	)
	for i, m := range moves {
		var cost money.Money
		if m.Kind == MoveClose {
			cost = s.cost
		} else {
			cost = s.Apply(m).cost
		}
		switch {
		case tied == nil || cost < bestCost:
			bestCost = cost
			tied = append(tied[:0], m)
			closeMove = nil
		case cost == bestCost:
			tied = append(tied, m)
		default:
			continue
		}
		if m.Kind == MoveClose {
			closeMove = &moves[i]
		}
	}
	if closeMove != nil {
		return *closeMove
	}
	return tied[rng.Intn(len(tied))]
}

func newPolicy(strategy Strategy, eval *Evaluator) Policy {
	if strategy == StrategyUniform {
		return UniformPolicy{}
	}
	return NewGreedyPolicy(eval)
}
