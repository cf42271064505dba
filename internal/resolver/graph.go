package resolver

import (
	"fmt"
	"sync"
)

// Graph is a dependency graph over named values. All operations are
// concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	order []string // insertion order, used for deterministic traversal
}

type node struct {
	id         string
	deps       map[string]*node
	dependents map[string]*node
}

// NewGraph returns an initialized, empty Graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a node with the given ID. Adding an existing ID is a no-op.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// AddEdge records that toID depends on fromID. Both nodes must exist.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode
	return nil
}

// Dependencies returns the IDs the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	return deps, nil
}

// TopoSort returns every node ID ordered so each node appears after all of
// its dependencies. Ties are broken by insertion order, so the result is
// deterministic. A cycle yields a *CycleError naming the cycle path.
func (g *Graph) TopoSort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	pending := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		pending[id] = len(n.deps)
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(sorted) < len(g.nodes) {
		progressed := false
		for _, id := range g.order {
			if pending[id] != 0 {
				continue
			}
			pending[id] = -1 // visited
			sorted = append(sorted, id)
			for depID := range g.nodes[id].dependents {
				pending[depID]--
			}
			progressed = true
		}
		if !progressed {
			return nil, &CycleError{Path: g.findCycle()}
		}
	}
	return sorted, nil
}

// findCycle runs a depth-first search and extracts one cycle path for the
// error message. Callers must hold at least a read lock.
func (g *Graph) findCycle() []string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(n *node) bool
	visit = func(n *node) bool {
		state[n.id] = visiting
		stack = append(stack, n.id)
		for depID, dep := range n.deps {
			switch state[depID] {
			case visiting:
				// Slice the current stack from the first occurrence of depID.
				for i, id := range stack {
					if id == depID {
						cycle = append(append([]string{}, stack[i:]...), depID)
						return true
					}
				}
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[n.id] = done
		return false
	}

	for _, id := range g.order {
		if state[id] == unvisited && visit(g.nodes[id]) {
			return cycle
		}
	}
	return nil
}
