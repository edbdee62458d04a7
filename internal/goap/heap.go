package goap

import "container/heap"

// priorityQueue orders search nodes for Search's frontier. It is not
// addressed directly by callers; heap.Push/heap.Pop drive it.
//
// Ordering, most significant first, keeps planning deterministic
// (spec.md §4.5, §8): (1) lower g+h estimated total cost, (2) lower raw
// g-cost (prefers cheaper concrete paths when heuristics tie), (3) fewer
// steps taken to reach the node, (4) lexicographically earlier action
// name on the step that produced the node.
type priorityQueue []*node

var _ heap.Interface = (*priorityQueue)(nil)

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	fa, fb := a.gCost+a.hCost, b.gCost+b.hCost
	if fa != fb {
		return fa < fb
	}
	if a.gCost != b.gCost {
		return a.gCost < b.gCost
	}
	if a.depth != b.depth {
		return a.depth < b.depth
	}
	return actionNameOf(a) < actionNameOf(b)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := x.(*node)
	n.index = len(*pq)
	*pq = append(*pq, n)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func actionNameOf(n *node) string {
	if n.action == nil {
		return ""
	}
	return n.action.Name
}
