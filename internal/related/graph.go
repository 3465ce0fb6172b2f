package related

import (
	"context"
	"sort"
)

// graphMode performs a breadth-first search over ItemRelation out to
// Depth hops, optionally restricting which reached nodes are included
// in the result by Types. Edges are returned for every traversed hop
// regardless of type, since relations are structural; only inclusion
// in Items is type-filtered.
func (e *Engine) graphMode(ctx context.Context, p Params) (Result, error) {
	depth := p.Depth
	if depth < 1 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}

	typeSet := toSet(p.Types)
	visited := map[int64]bool{p.ID: true}
	frontier := []int64{p.ID}

	var edges []Edge
	var items []ScoredItem

	for hop := 0; hop < depth; hop++ {
		var next []int64
		for _, nodeID := range frontier {
			neighborIDs, err := e.store.GetRelatedIDs(ctx, nodeID)
			if err != nil {
				return Result{}, err
			}
			for _, neighborID := range neighborIDs {
				edges = append(edges, Edge{Source: nodeID, Target: neighborID})
				if !visited[neighborID] {
					visited[neighborID] = true
					next = append(next, neighborID)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	for nodeID := range visited {
		if nodeID == p.ID {
			continue
		}
		item, err := e.store.GetItem(ctx, nodeID)
		if err != nil {
			continue // node may have been deleted mid-traversal; skip it
		}
		if len(typeSet) > 0 && !typeSet[item.Type] {
			continue
		}
		items = append(items, ScoredItem{Item: item})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Item.ID < items[j].Item.ID })
	return Result{Items: items, Edges: dedupeEdges(edges)}, nil
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func dedupeEdges(edges []Edge) []Edge {
	seen := make(map[Edge]bool, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
