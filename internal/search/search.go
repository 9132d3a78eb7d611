// Package search implements HybridSearcher (spec §4.7): vector top-k
// retrieval seeds a bounded multi-hop walk over RELATED_TO edges, scores
// are accumulated per destination concept (never per path, per the design
// note of spec §9), and the two result streams are returned separately.
package search

import (
	"context"
	"sort"

	"graphrag/internal/graphstore"
	"graphrag/internal/llm"
	"graphrag/internal/vectorstore"
)

// VectorHit mirrors one row of a vector query result (spec §4.6/§6).
type VectorHit struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}

// GraphHit is one fused graph-traversal result (spec §4.7/§6).
type GraphHit struct {
	ID             string
	Name           string
	RelevanceScore float64
}

// Results is the output of hybrid_search: the two streams kept explicitly
// separate so the caller decides how to re-rank or display them.
type Results struct {
	VectorResults []VectorHit
	GraphResults  []GraphHit
}

type Searcher struct {
	Graph  graphstore.GraphRepo
	Vector vectorstore.VectorRepo
	LLM    *llm.Gateway
}

func New(graph graphstore.GraphRepo, vector vectorstore.VectorRepo, gateway *llm.Gateway) *Searcher {
	return &Searcher{Graph: graph, Vector: vector, LLM: gateway}
}

// HybridSearch implements spec §4.7. It never errors on an empty result —
// it returns empty streams — but does surface a hard failure when the
// vector store is unhealthy and repair (when requested) does not recover it.
func (s *Searcher) HybridSearch(ctx context.Context, query string, kVector, maxHops int, repairIndex bool) (Results, error) {
	if repairIndex {
		if healthy, _ := s.Vector.CheckHealth(ctx); !healthy {
			if r := s.Vector.Repair(ctx); !r.OK {
				return Results{}, &UnavailableError{Diagnostic: r.Diagnostic}
			}
		}
	}

	queryVector, err := s.embedQuery(ctx, query)
	if err != nil {
		return Results{}, err
	}

	vecHits, err := s.Vector.Query(ctx, queryVector, kVector, nil)
	if err != nil {
		return Results{}, &UnavailableError{Diagnostic: err.Error()}
	}

	vectorResults := make([]VectorHit, 0, len(vecHits))
	seedIDs := make([]string, 0)
	seenSeed := make(map[string]struct{})
	for _, h := range vecHits {
		vectorResults = append(vectorResults, VectorHit{ID: h.ID, Document: h.Document, Metadata: h.Metadata, Distance: h.Distance})
		for _, id := range seedConceptIDs(h.Metadata) {
			if _, ok := seenSeed[id]; !ok {
				seenSeed[id] = struct{}{}
				seedIDs = append(seedIDs, id)
			}
		}
	}

	graphResults, err := s.walk(ctx, seedIDs, maxHops)
	if err != nil {
		return Results{}, err
	}

	return Results{VectorResults: vectorResults, GraphResults: graphResults}, nil
}

// seedConceptIDs honors both the singular concept_id and the comma-joined
// concept_ids chunk-metadata conventions (spec §4.7, §9 open question a).
func seedConceptIDs(metadata map[string]string) []string {
	var out []string
	if v, ok := metadata["concept_id"]; ok && v != "" {
		out = append(out, v)
	}
	if v, ok := metadata["concept_ids"]; ok && v != "" {
		out = append(out, vectorstore.SplitList(v)...)
	}
	return out
}

// walk performs a bounded Bellman-Ford-style relaxation over RELATED_TO
// edges: path scores are sums of edge strengths and therefore monotonically
// nondecreasing with depth, so the searcher accumulates the best score seen
// per destination concept rather than enumerating simple paths.
func (s *Searcher) walk(ctx context.Context, seeds []string, maxHops int) ([]GraphHit, error) {
	if maxHops <= 0 || len(seeds) == 0 {
		return nil, nil
	}

	best := make(map[string]float64)
	order := make([]string, 0)
	frontier := make(map[string]float64, len(seeds))
	for _, id := range seeds {
		frontier[id] = 0
	}

	for hop := 0; hop < maxHops; hop++ {
		next := make(map[string]float64)
		for conceptID, scoreSoFar := range frontier {
			edges, err := s.Graph.RelatedTo(ctx, conceptID)
			if err != nil {
				return nil, &UnavailableError{Diagnostic: err.Error()}
			}
			for _, e := range edges {
				candidate := scoreSoFar + e.Strength
				if prev, ok := best[e.TargetID]; !ok || candidate > prev {
					if !ok {
						order = append(order, e.TargetID)
					}
					best[e.TargetID] = candidate
				}
				if prev, ok := next[e.TargetID]; !ok || candidate > prev {
					next[e.TargetID] = candidate
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	hits := make([]GraphHit, 0, len(order))
	for _, id := range order {
		name := id
		if c, ok, err := s.Graph.GetConcept(ctx, id); err == nil && ok {
			name = c.Name
		}
		hits = append(hits, GraphHit{ID: id, Name: name, RelevanceScore: best[id]})
	}

	// Stable sort by descending score; insertion order (first-reached) breaks ties.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].RelevanceScore > hits[j].RelevanceScore })
	return hits, nil
}

func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := s.LLM.Embed(ctx, []string{query})
	if err != nil {
		return nil, &UnavailableError{Diagnostic: err.Error()}
	}
	if len(vecs) == 0 {
		return nil, &UnavailableError{Diagnostic: "embedding gateway returned no vectors"}
	}
	return vecs[0], nil
}

// UnavailableError marks a hard search failure (vector store/LLM
// unreachable, repair failed) as opposed to the normal empty-result case,
// which HybridSearch never treats as an error (spec §7).
type UnavailableError struct {
	Diagnostic string
}

func (e *UnavailableError) Error() string { return "search: upstream unavailable: " + e.Diagnostic }
