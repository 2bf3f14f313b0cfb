package graph

import (
	"container/list"
	"fmt"
	"strings"
)

// CyclePolicy decides what happens when some tables can never reach in-degree 0.
type CyclePolicy string

const (
	// CycleAppend appends the unresolved tables in input order after the sorted
	// ones. Foreign keys inside the cycle may then point at rows not yet inserted.
	CycleAppend CyclePolicy = "append"
	// CycleReject fails the sort with a *CycleError.
	CycleReject CyclePolicy = "reject"
)

// ParseCyclePolicy maps a configuration value to a policy. Empty selects CycleAppend.
func ParseCyclePolicy(s string) (CyclePolicy, error) {
	switch CyclePolicy(s) {
	case "", CycleAppend:
		return CycleAppend, nil
	case CycleReject:
		return CycleReject, nil
	}
	return "", fmt.Errorf("unknown cycle policy %q (must be 'append' or 'reject')", s)
}

// ProcessingQueue wraps a list-based queue for Kahn's algorithm processing.
// It holds nodes that are ready to be processed (have in-degree of 0).
type ProcessingQueue struct {
	queue *list.List
}

// NewProcessingQueue creates a new empty processing queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{
		queue: list.New(),
	}
}

// InitializeQueue creates a processing queue holding every zero in-degree node
// in first-seen order.
func (g *Graph) InitializeQueue(inDegree map[string]int) *ProcessingQueue {
	pq := NewProcessingQueue()
	for _, name := range g.AllNodes() {
		if inDegree[name] == 0 {
			pq.Enqueue(name)
		}
	}
	return pq
}

// Enqueue adds a node to the back of the queue.
func (pq *ProcessingQueue) Enqueue(node string) {
	pq.queue.PushBack(node)
}

// Dequeue removes and returns the node at the front of the queue.
// Returns empty string and false if queue is empty.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// IsEmpty returns true if the queue has no nodes.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// CalculateInDegrees returns, per table, how many selected tables it references.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int, g.NodeCount())
	for _, name := range g.AllNodes() {
		inDegree[name] = 0
	}
	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}
	return inDegree
}

// CycleInfo describes the tables Kahn's algorithm could not place.
type CycleInfo struct {
	TotalNodes        int      // Total number of nodes in the graph
	ProcessedNodes    int      // Number of nodes successfully ordered
	UnprocessedNodes  []string // Nodes in a cycle or blocked behind one, in input order
	CycleParticipants []string // Nodes that are actually part of a cycle (subset of UnprocessedNodes)
	CyclePath         []string // Ordered path showing the cycle (e.g., [A, B, C, A])
}

// BlockedNodes returns unprocessed tables that are not themselves in a cycle.
func (ci *CycleInfo) BlockedNodes() []string {
	participantSet := make(map[string]bool, len(ci.CycleParticipants))
	for _, p := range ci.CycleParticipants {
		participantSet[p] = true
	}
	var blocked []string
	for _, u := range ci.UnprocessedNodes {
		if !participantSet[u] {
			blocked = append(blocked, u)
		}
	}
	return blocked
}

// CycleError is returned under CycleReject when the selected tables contain a
// foreign-key cycle.
type CycleError struct {
	Info *CycleInfo
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in dependency graph: %d of %d tables could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}
	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nTables in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}
	if blocked := e.Info.BlockedNodes(); len(blocked) > 0 {
		msg += fmt.Sprintf("\nTables blocked by cycle: %s", strings.Join(blocked, ", "))
	}
	return msg
}

// kahn runs Kahn's algorithm and returns the ordered prefix it could resolve.
func (g *Graph) kahn() []string {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	result := make([]string, 0, g.NodeCount())
	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		result = append(result, node)

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}
	return result
}

func (g *Graph) cycleInfo(sorted []string) *CycleInfo {
	if len(sorted) == g.NodeCount() {
		return nil
	}

	processed := make(map[string]bool, len(sorted))
	for _, name := range sorted {
		processed[name] = true
	}

	var unprocessed []string
	unprocessedSet := make(map[string]bool)
	for _, name := range g.AllNodes() {
		if !processed[name] {
			unprocessed = append(unprocessed, name)
			unprocessedSet[name] = true
		}
	}

	var cycleParticipants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, node)
		}
	}

	var cyclePath []string
	if len(cycleParticipants) > 0 {
		cyclePath = g.FindCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        g.NodeCount(),
		ProcessedNodes:    len(sorted),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// FindCyclePath finds the actual path that forms a cycle starting from the given node.
// Returns the ordered list of nodes forming the cycle (including the start node at both ends).
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}

	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}
	return nil
}

// dfsFindPath performs DFS to find a path back to the target node.
func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		if !allowedNodes[child] {
			continue
		}
		if child == target {
			*path = append(*path, target)
			return true
		}
		if visited[child] {
			continue
		}

		visited[child] = true
		*path = append(*path, child)
		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}
		*path = (*path)[:len(*path)-1]
	}
	return false
}

// canReachSelf checks if a node can reach itself through the subgraph
// defined by the allowedNodes set.
func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

// dfsCanReach performs DFS to check if we can reach the target node.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}
	if visited[current] || !allowedNodes[current] {
		return false
	}

	visited[current] = true
	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}
	return false
}

// InsertionOrder orders every table under the given policy. With CycleAppend
// the unresolved tables follow the sorted ones in input order and the returned
// CycleInfo describes them; it is nil when the graph is acyclic.
func (g *Graph) InsertionOrder(policy CyclePolicy) ([]string, *CycleInfo, error) {
	sorted := g.kahn()
	info := g.cycleInfo(sorted)
	if info == nil {
		return sorted, nil, nil
	}
	if policy == CycleReject {
		return nil, info, &CycleError{Info: info}
	}
	return append(sorted, info.UnprocessedNodes...), info, nil
}

// DeleteOrder returns the reverse of the insertion order: referencing tables
// before the tables they reference. Used to empty tables before seeding.
func (g *Graph) DeleteOrder(policy CyclePolicy) ([]string, error) {
	order, _, err := g.InsertionOrder(policy)
	if err != nil {
		return nil, err
	}

	deleteOrder := make([]string, len(order))
	for i, table := range order {
		deleteOrder[len(order)-1-i] = table
	}
	return deleteOrder, nil
}
