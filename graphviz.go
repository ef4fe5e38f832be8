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

import (
	"fmt"
	"sort"
	"strings"
)

// DOT renders the graph's current depender->dependency edges as a
// graphviz "digraph", the generalization of ninja's GraphViz tool
// (graphviz.go's AddTarget walk over Node/Edge) to a plain dependency
// graph with no build-edge or dyndep concept. Unlike TakeRemaining, DOT
// does not consume the graph: it is meant as a diagnostic taken mid-run.
func (g *DependencyGraph) DOT() string {
	type pair struct{ from, to string }
	var edges []pair
	for bk, dependers := range g.inEdges {
		to := g.paths[bk].Display()
		for dk := range dependers {
			edges = append(edges, pair{from: g.paths[dk].Display(), to: to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})

	var b strings.Builder
	b.WriteString("digraph txtpp {\n")
	b.WriteString("rankdir=\"LR\"\n")
	for _, e := range edges {
		fmt.Fprintf(&b, "%q -> %q\n", e.from, e.to)
	}
	b.WriteString("}\n")
	return b.String()
}
