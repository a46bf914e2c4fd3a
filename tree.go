package lookahead

import (
	"math"
)

// Node is a node of the real branch-and-bound tree. Bounds are the node's own
// copy; constraints accumulate down the tree.
type Node struct {
	id    int64
	depth int

	lower []float64
	upper []float64

	// dual bound known for this node's subtree
	lowerBound float64

	conss []*LogicOrConstraint

	// set by createChildren
	children    []*Node
	branchedVar int
	branchedVal float64
}

// ID returns the node's identifier.
func (n *Node) ID() int64 { return n.id }

// LowerBound returns the dual bound currently known for the node.
func (n *Node) LowerBound() float64 { return n.lowerBound }

// Children returns the child nodes created by branching, if any.
func (n *Node) Children() []*Node { return n.children }

// Constraints returns the logic-or constraints attached to the node.
func (n *Node) Constraints() []*LogicOrConstraint { return n.conss }

func newRootNode(prob *milpProblem) *Node {
	return &Node{
		id:          0,
		lower:       append([]float64(nil), prob.lower...),
		upper:       append([]float64(nil), prob.upper...),
		lowerBound:  math.Inf(-1),
		branchedVar: -1,
	}
}

// updateLowerBound raises the node's dual bound, never lowers it.
func (n *Node) updateLowerBound(bound float64) {
	if bound > n.lowerBound {
		n.lowerBound = bound
	}
}

// addConstraint attaches a logic-or constraint to the node; it is inherited
// by all children created afterwards.
func (n *Node) addConstraint(c *LogicOrConstraint) {
	n.conss = append(n.conss, c)
}

// createChildren materializes the two-child branch on variable idx at the
// given fractional value. The down child gets upper bound floor(value), the
// up child lower bound ceil(value). Both inherit the node's constraints and
// its dual bound.
func (n *Node) createChildren(idx int, value float64, nextID func() int64) (down, up *Node) {
	child := func() *Node {
		return &Node{
			id:          nextID(),
			depth:       n.depth + 1,
			lower:       append([]float64(nil), n.lower...),
			upper:       append([]float64(nil), n.upper...),
			lowerBound:  n.lowerBound,
			conss:       append([]*LogicOrConstraint(nil), n.conss...),
			branchedVar: -1,
		}
	}
	down = child()
	down.upper[idx] = math.Floor(value)
	up = child()
	up.lower[idx] = math.Ceil(value)

	n.children = []*Node{down, up}
	n.branchedVar = idx
	n.branchedVal = value
	return down, up
}

// probingStack is the reversible exploration mode of the engine. Every bound
// change is recorded on a trail; newProbingNode marks the trail, backtrack
// rewinds it. A relaxation must never be handed back to the caller with the
// stack non-empty.
type probingStack struct {
	rel *relaxation

	// trail length at each open probing node
	marks []int

	trail []boundChange
}

type boundChange struct {
	idx   int
	upper bool
	old   float64
}

func newProbingStack(rel *relaxation) *probingStack {
	return &probingStack{rel: rel}
}

// depth is the number of open probing nodes.
func (p *probingStack) depth() int { return len(p.marks) }

func (p *probingStack) newProbingNode() {
	p.marks = append(p.marks, len(p.trail))
}

// tightenUpper lowers the working upper bound of variable idx inside the
// current probing node. Loosening is a programming error.
func (p *probingStack) tightenUpper(idx int, v float64) {
	if len(p.marks) == 0 {
		panic("bound change outside a probing node")
	}
	old := p.rel.bound(idx, true)
	if v > old {
		panic("probing must only tighten bounds")
	}
	p.trail = append(p.trail, boundChange{idx: idx, upper: true, old: old})
	p.rel.setBound(idx, true, v)
}

// tightenLower raises the working lower bound of variable idx inside the
// current probing node.
func (p *probingStack) tightenLower(idx int, v float64) {
	if len(p.marks) == 0 {
		panic("bound change outside a probing node")
	}
	old := p.rel.bound(idx, false)
	if v < old {
		panic("probing must only tighten bounds")
	}
	p.trail = append(p.trail, boundChange{idx: idx, upper: false, old: old})
	p.rel.setBound(idx, false, v)
}

// backtrack pops probing nodes until depth toDepth remains, undoing their
// bound changes in reverse order.
func (p *probingStack) backtrack(toDepth int) {
	if toDepth > len(p.marks) {
		panic("backtrack beyond current probing depth")
	}
	for len(p.marks) > toDepth {
		mark := p.marks[len(p.marks)-1]
		p.marks = p.marks[:len(p.marks)-1]
		for len(p.trail) > mark {
			bc := p.trail[len(p.trail)-1]
			p.trail = p.trail[:len(p.trail)-1]
			p.rel.setBound(bc.idx, bc.upper, bc.old)
		}
	}
}

func (p *probingStack) backtrackAll() {
	p.backtrack(0)
}
