package schema

import (
	"slices"
	"sort"
)

// Plan is the execution order derived from a Graph.
type Plan struct {
	// Entities in creation order: every entity follows the entities it
	// references through a non-deferred, non-self foreign key.
	Entities []Entity
	// Immediate holds, per entity, the foreign keys created with its table.
	Immediate map[string][]Relationship
	// Deferred foreign keys are added after every table exists, in declaration
	// order. Self references are always deferred.
	Deferred []Relationship
	// Indexes grouped by table in creation order, declaration order within a table.
	Indexes []Index

	levels map[string]int
}

// DropOrder returns the entities in reverse creation order.
func (p *Plan) DropOrder() []Entity {
	out := make([]Entity, len(p.Entities))
	for i, e := range p.Entities {
		out[len(p.Entities)-1-i] = e.clone()
	}
	return out
}

// Level returns the dependency depth of an entity: 0 for entities without
// immediate dependencies, otherwise one more than the deepest dependency.
func (p *Plan) Level(entity string) int {
	return p.levels[entity]
}

// Names returns the entity names in creation order.
func (p *Plan) Names() []string {
	out := make([]string, len(p.Entities))
	for i, e := range p.Entities {
		out[i] = e.Name
	}
	return out
}

// Order computes a creation order for g with Kahn's algorithm over the
// non-deferred, non-self foreign keys. Among entities that are ready at the
// same time the one declared first wins, so a graph whose declaration order is
// already valid is created exactly in that order.
//
// A cycle that remains among non-deferred edges yields a *CycleError.
func Order(g *Graph) (*Plan, error) {
	n := len(g.entities)
	dependsOn := make([][]int, n)  // source -> targets
	dependents := make([][]int, n) // target -> sources
	inDegree := make([]int, n)
	edges := make(map[[2]int]bool)

	plan := &Plan{
		Immediate: make(map[string][]Relationship),
		levels:    make(map[string]int, n),
	}

	for _, r := range g.relationships {
		if r.Deferred || r.SelfReference() {
			plan.Deferred = append(plan.Deferred, r.clone())
			continue
		}
		plan.Immediate[r.Source] = append(plan.Immediate[r.Source], r.clone())

		src, dst := g.position(r.Source), g.position(r.Target)
		if edges[[2]int{src, dst}] {
			continue
		}
		edges[[2]int{src, dst}] = true
		dependsOn[src] = append(dependsOn[src], dst)
		dependents[dst] = append(dependents[dst], src)
		inDegree[src]++
	}

	// ready is kept sorted by declaration position.
	var ready []int
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dep := range dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				at, _ := slices.BinarySearch(ready, dep)
				ready = slices.Insert(ready, at, dep)
			}
		}
	}

	if len(order) < n {
		return nil, cycleError(g, inDegree, dependsOn)
	}

	rank := make(map[string]int, n)
	for i, pos := range order {
		e := g.entities[pos]
		plan.Entities = append(plan.Entities, e.clone())
		rank[e.Name] = i

		level := 0
		for _, dst := range dependsOn[pos] {
			if l := plan.levels[g.entities[dst].Name] + 1; l > level {
				level = l
			}
		}
		plan.levels[e.Name] = level
	}

	plan.Indexes = make([]Index, 0, len(g.indexes))
	for _, idx := range g.indexes {
		plan.Indexes = append(plan.Indexes, idx.clone())
	}
	sort.SliceStable(plan.Indexes, func(i, j int) bool {
		return rank[plan.Indexes[i].Entity] < rank[plan.Indexes[j].Entity]
	})

	return plan, nil
}

// cycleError walks dependency edges among the unordered entities until one
// repeats. Every unordered entity still depends on another unordered entity,
// so the walk always closes a loop.
func cycleError(g *Graph, inDegree []int, dependsOn [][]int) *CycleError {
	stuck := make([]bool, len(inDegree))
	var names []string
	start := -1
	for i, d := range inDegree {
		if d > 0 {
			stuck[i] = true
			names = append(names, g.entities[i].Name)
			if start < 0 {
				start = i
			}
		}
	}

	seenAt := make(map[int]int)
	var path []int
	for cur := start; ; {
		if at, ok := seenAt[cur]; ok {
			path = append(path[at:], cur)
			break
		}
		seenAt[cur] = len(path)
		path = append(path, cur)

		next := -1
		for _, dst := range dependsOn[cur] {
			if stuck[dst] {
				next = dst
				break
			}
		}
		if next < 0 {
			break
		}
		cur = next
	}

	cycle := make([]string, len(path))
	for i, pos := range path {
		cycle[i] = g.entities[pos].Name
	}
	return &CycleError{Cycle: cycle, Entities: names}
}
