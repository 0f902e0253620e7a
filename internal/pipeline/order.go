package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// ExecutionOrder returns the job identifiers in an order that satisfies
// every needs dependency. Among jobs whose dependencies are all
// satisfied, alphabetical order is used, so the result is deterministic
// for a given definition.
//
// Returns an error when the needs graph contains a cycle. Unknown needs
// references are treated as unsatisfiable and surface as part of the
// cycle error; Validate reports them more precisely beforehand.
func ExecutionOrder(jobs map[string]*Job) ([]string, error) {
	// Kahn's algorithm with a sorted ready set. indegree counts the
	// unsatisfied dependencies of each job.
	indegree := make(map[string]int, len(jobs))
	dependents := make(map[string][]string, len(jobs))

	for id, job := range jobs {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		if job == nil {
			continue
		}
		for _, dep := range job.Needs {
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(jobs))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := false
		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) != len(jobs) {
		var stuck []string
		for id, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("dependency cycle among jobs: %s", strings.Join(stuck, ", "))
	}

	return order, nil
}
