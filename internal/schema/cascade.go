package schema

// CascadeConflicts returns the foreign keys of the plan that, once the keys
// created before them exist, would close a cycle of cascading deletes or give
// a table a second cascading path from another table. Keys are visited in
// creation order: immediate keys table by table, then deferred keys. Only
// accepted keys extend the paths later keys are checked against.
func (p *Plan) CascadeConflicts() []Relationship {
	down := make(map[string][]string) // referenced -> referencing
	up := make(map[string][]string)   // referencing -> referenced

	var conflicts []Relationship
	visit := func(r Relationship) {
		if !r.OnDelete.Cascades() {
			return
		}
		if r.SelfReference() || secondPath(down, up, r.Target, r.Source) {
			conflicts = append(conflicts, r.clone())
			return
		}
		down[r.Target] = append(down[r.Target], r.Source)
		up[r.Source] = append(up[r.Source], r.Target)
	}

	for _, e := range p.Entities {
		for _, r := range p.Immediate[e.Name] {
			visit(r)
		}
	}
	for _, r := range p.Deferred {
		visit(r)
	}
	return conflicts
}

// secondPath reports whether a cascading edge from -> to would reach a table
// that is already reachable, or reach from itself.
func secondPath(down, up map[string][]string, from, to string) bool {
	below := walk(down, to)
	if below[from] {
		return true
	}
	for a := range walk(up, from) {
		for b := range walk(down, a) {
			if below[b] {
				return true
			}
		}
	}
	return false
}

// walk returns start and every node reachable from it.
func walk(adj map[string][]string, start string) map[string]bool {
	seen := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range adj[n] {
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}
	return seen
}
