package optimizer

import (
	"math"
	"sync"
	"sync/atomic"
)

// node is one search tree record. Tree links are arena indices; statistics
// are atomics so workers update shared nodes without locks.
type node struct {
	state  *PlanState
	parent int
	move   Move

	mu          sync.Mutex // guards children, untried, initialized
	children    []int
	untried     []Move
	initialized bool

	terminal bool
	visits   atomic.Int64
	value    atomic.Uint64 // float64 bits, sum of rewards
	virtual  atomic.Int64
}

func newNode(state *PlanState, parent int, move Move) *node {
	return &node{state: state, parent: parent, move: move, terminal: state.Terminal()}
}

func (n *node) addValue(v float64) {
	for {
		old := n.value.Load()
		if n.value.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+v)) {
			return
		}
	}
}

func (n *node) valueSum() float64 {
	return math.Float64frombits(n.value.Load())
}

// arena owns every node of one run.
type arena struct {
	mu    sync.RWMutex
	nodes []*node
}

func newArena(root *PlanState) *arena {
	return &arena{nodes: []*node{newNode(root, -1, Move{})}}
}

func (a *arena) add(n *node) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

func (a *arena) get(i int) *node {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nodes[i]
}

func (a *arena) len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.nodes)
}
