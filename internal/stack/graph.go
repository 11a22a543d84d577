package stack

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

var ErrUnresolvedReference = errors.New("unresolved resource reference")

// Graph holds the stack's resources. An edge A -> B means A depends on B.
type (
	Graph = graph.Graph[ResourceId, *Resource]
	Edge  = graph.Edge[ResourceId]
)

func NewGraph() Graph {
	return graph.New(
		func(r *Resource) ResourceId {
			return r.ID
		},
		graph.Directed(),
		graph.Acyclic(),
		graph.PreventCycles(),
	)
}

func AddResources(g Graph, resources ...*Resource) error {
	for _, r := range resources {
		if err := g.AddVertex(r); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) {
				return fmt.Errorf("duplicate resource %s: %w", r.ID, err)
			}
			return fmt.Errorf("could not add resource %s: %w", r.ID, err)
		}
	}
	return nil
}

// Link adds an edge for every reference held by the resources in the graph.
// References to resources outside the graph are reported as ErrUnresolvedReference.
func Link(g Graph) error {
	ids, err := vertexIds(g)
	if err != nil {
		return err
	}

	var errs error
	for _, id := range ids {
		r, err := g.Vertex(id)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		for _, ref := range r.References() {
			err := g.AddEdge(id, ref)
			switch {
			case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrVertexNotFound):
				errs = errors.Join(errs, fmt.Errorf("%s -> %s: %w", id, ref, ErrUnresolvedReference))
			default:
				errs = errors.Join(errs, fmt.Errorf("could not link %s -> %s: %w", id, ref, err))
			}
		}
	}
	return errs
}

// Validate checks that every reference resolves to a resource in the graph, is
// backed by an edge, and that the graph can be ordered.
func Validate(g Graph) error {
	ids, err := vertexIds(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	var errs error
	for _, id := range ids {
		r, err := g.Vertex(id)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if r.CloudFormationType() == "" {
			errs = errors.Join(errs, fmt.Errorf("resource %s has unsupported type %q", id, id.Type))
		}
		for _, ref := range r.References() {
			if _, ok := adj[ref]; !ok {
				errs = errors.Join(errs, fmt.Errorf("%s -> %s: %w", id, ref, ErrUnresolvedReference))
				continue
			}
			if _, ok := adj[id][ref]; !ok {
				errs = errors.Join(errs, fmt.Errorf("%s -> %s: reference is not linked", id, ref))
			}
		}
	}
	if errs != nil {
		return errs
	}

	_, err = TopologicalSort(g)
	return err
}

// TopologicalSort returns the resource ids ordered so that every resource comes after
// the resources it depends on. Ties are broken by id for a stable order.
func TopologicalSort(g Graph) ([]ResourceId, error) {
	topo, err := graph.StableTopologicalSort(g, func(a, b ResourceId) bool {
		// The sort is reversed below, so invert the tie-break to keep ids ascending.
		return a.String() > b.String()
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(topo)-1; i < j; i, j = i+1, j-1 {
		topo[i], topo[j] = topo[j], topo[i]
	}
	return topo, nil
}

// DirectDependencies returns the resources `id` depends on directly.
func DirectDependencies(g Graph, id ResourceId) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(adj[id]), nil
}

// Dependents returns the resources that depend directly on `id`.
func Dependents(g Graph, id ResourceId) ([]ResourceId, error) {
	pred, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(pred[id]), nil
}

func ResourcesOfType(g Graph, typ string) ([]*Resource, error) {
	ids, err := vertexIds(g)
	if err != nil {
		return nil, err
	}
	var resources []*Resource
	for _, id := range ids {
		if id.Type != typ {
			continue
		}
		r, err := g.Vertex(id)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// String renders the graph as a dependency listing, one resource per line followed
// by its direct dependencies.
func String(g Graph) (string, error) {
	w := new(strings.Builder)
	err := WriteTo(g, w)
	return w.String(), err
}

func WriteTo(g Graph, w io.Writer) error {
	topo, err := TopologicalSort(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}
	for _, id := range topo {
		if _, err := fmt.Fprintf(w, "%s\n", id); err != nil {
			return err
		}
		for _, dep := range sortedKeys(adj[id]) {
			if _, err := fmt.Fprintf(w, "-> %s\n", dep); err != nil {
				return err
			}
		}
	}
	return nil
}

func vertexIds(g Graph) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(adj), nil
}

func sortedKeys[V any](m map[ResourceId]V) []ResourceId {
	ids := make([]ResourceId, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Sort(sortedIds(ids))
	return ids
}
