// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package txtpp

// DependencyGraph is a directed graph over AbsPath: an edge (A, B) means A
// (the depender) requires B's (the dependency's) output to exist before A
// can finish its second pass. Vertices are keyed by AbsPath.pathKey so that
// equality ignores the display base, per spec.
//
// Counting by vertex rather than by edge-insertion event keeps
// NotifyFinish O(|in_edges[B]|) and avoids double-counting when the same
// dependency is named twice by the same depender (ninja's Node/Edge
// out-degree bookkeeping plays the analogous role for its build DAG).
type DependencyGraph struct {
	outCount map[string]int
	inEdges  map[string]map[string]struct{}
	finished map[string]struct{}

	// paths keeps a canonical AbsPath for every vertex id we have seen, so
	// TakeRemaining can report real AbsPath values instead of bare keys.
	paths map[string]AbsPath
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		outCount: map[string]int{},
		inEdges:  map[string]map[string]struct{}{},
		finished: map[string]struct{}{},
		paths:    map[string]AbsPath{},
	}
}

// AddDependency records that depender requires every dep in deps. Deps
// already in the finished set are skipped (they are already satisfied and
// never produce an edge). Returns true iff at least one live edge was
// added; an empty deps or all-already-finished deps returns false without
// mutating the graph.
func (g *DependencyGraph) AddDependency(depender AbsPath, deps []AbsPath) bool {
	if len(deps) == 0 {
		return false
	}
	dk := depender.pathKey()
	g.paths[dk] = depender
	added := false
	for _, dep := range deps {
		bk := dep.pathKey()
		if _, done := g.finished[bk]; done {
			continue
		}
		g.paths[bk] = dep
		dependers, ok := g.inEdges[bk]
		if !ok {
			dependers = map[string]struct{}{}
			g.inEdges[bk] = dependers
		}
		if _, exists := dependers[dk]; exists {
			continue
		}
		dependers[dk] = struct{}{}
		g.outCount[dk]++
		added = true
	}
	return added
}

// NotifyFinish marks dep finished and returns every depender whose
// out-degree has just reached zero (i.e. is now fully unblocked).
func (g *DependencyGraph) NotifyFinish(dep AbsPath) []AbsPath {
	bk := dep.pathKey()
	g.finished[bk] = struct{}{}
	dependers, ok := g.inEdges[bk]
	if !ok {
		return nil
	}
	delete(g.inEdges, bk)
	var unblocked []AbsPath
	for dk := range dependers {
		g.outCount[dk]--
		if g.outCount[dk] <= 0 {
			delete(g.outCount, dk)
			unblocked = append(unblocked, g.paths[dk])
		}
	}
	return unblocked
}

// TakeRemaining consumes the graph and reports any residual depender ->
// dependency edges. A non-empty result indicates a cycle (or an
// unsatisfiable dependency that never finished).
func (g *DependencyGraph) TakeRemaining() map[AbsPath][]AbsPath {
	out := map[AbsPath][]AbsPath{}
	for bk, dependers := range g.inEdges {
		dep := g.paths[bk]
		for dk := range dependers {
			depender := g.paths[dk]
			out[depender] = append(out[depender], dep)
		}
	}
	g.inEdges = nil
	g.outCount = nil
	return out
}
