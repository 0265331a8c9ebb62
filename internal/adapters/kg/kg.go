// Package kg is an in-memory typed knowledge graph for screening artifacts:
// compounds, extracts, assays, and the relations the analysis pipeline
// derives between them.
package kg

import (
	"fmt"
	"sync"

	"github.com/phytokit/screen/pkg/metrics"
)

// SchemaVersion identifies the node/edge vocabulary below.
const SchemaVersion = "0.2"

// NodeType classifies graph nodes.
type NodeType string

const (
	NodeCompound    NodeType = "compound"
	NodeTarget      NodeType = "target"
	NodeExtract     NodeType = "extract"
	NodeFraction    NodeType = "fraction"
	NodeMixture     NodeType = "mixture"
	NodeAssay       NodeType = "assay"
	NodePhenotype   NodeType = "phenotype"
	NodePathway     NodeType = "pathway"
	NodeOrganism    NodeType = "organism"
	NodePublication NodeType = "publication"
)

// EdgeType classifies graph edges.
type EdgeType string

const (
	EdgeActsOn         EdgeType = "ACTS_ON"
	EdgeContains       EdgeType = "CONTAINS"
	EdgeAssayedIn      EdgeType = "ASSAYED_IN"
	EdgeDerivedFrom    EdgeType = "DERIVED_FROM"
	EdgeAssociatedWith EdgeType = "ASSOCIATED_WITH"
	EdgeSynergyWith    EdgeType = "SYNERGY_WITH"
	EdgePublishedIn    EdgeType = "PUBLISHED_IN"
	EdgeSimilarTo      EdgeType = "SIMILAR_TO"
	EdgeRegulates      EdgeType = "REGULATES"
)

// Direction selects edge orientation for traversals.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// ParseDirection validates a traversal direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionOut, DirectionIn, DirectionBoth:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// NodeID uniquely identifies a node: the ID is unique within its type.
type NodeID struct {
	Type NodeType `json:"type"`
	ID   string   `json:"id"`
}

// Node is a typed node with free-form attributes.
type Node struct {
	NodeID
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Edge is a typed, directed relation with evidence provenance. At most one
// edge of each type exists per (src, dst) pair; re-adding replaces it.
type Edge struct {
	Src      NodeID         `json:"src"`
	Dst      NodeID         `json:"dst"`
	Type     EdgeType       `json:"etype"`
	Weight   float64        `json:"weight"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

type edgeKey struct {
	src   NodeID
	dst   NodeID
	etype EdgeType
}

// Graph is a concurrency-safe typed multigraph.
type Graph struct {
	mu    sync.RWMutex
	nodes map[NodeID]*Node
	edges map[edgeKey]*Edge
	out   map[NodeID][]edgeKey
	in    map[NodeID][]edgeKey
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*Node),
		edges: make(map[edgeKey]*Edge),
		out:   make(map[NodeID][]edgeKey),
		in:    make(map[NodeID][]edgeKey),
	}
}

// AddNode adds or updates a typed node. Adding an existing node merges the
// given attributes into it. Returns the node identifier.
func (g *Graph) AddNode(ntype NodeType, id string, attrs map[string]any) (NodeID, error) {
	if ntype == "" || id == "" {
		return NodeID{}, fmt.Errorf("%w: type=%q id=%q", ErrInvalidNode, ntype, id)
	}

	nid := NodeID{Type: ntype, ID: id}

	g.mu.Lock()
	defer g.mu.Unlock()

	n, exists := g.nodes[nid]
	if !exists {
		n = &Node{NodeID: nid}
		g.nodes[nid] = n
		metrics.UpdateGraphNodes(len(g.nodes))
	}
	if len(attrs) > 0 {
		if n.Attrs == nil {
			n.Attrs = make(map[string]any, len(attrs))
		}
		for k, v := range attrs {
			n.Attrs[k] = v
		}
	}
	return nid, nil
}

// AddEdge adds a typed edge between existing nodes. Re-adding an edge of the
// same type between the same pair replaces its weight and evidence.
func (g *Graph) AddEdge(src, dst NodeID, etype EdgeType, weight float64, evidence map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[src]; !ok {
		return fmt.Errorf("%w: src %s/%s", ErrUnknownNode, src.Type, src.ID)
	}
	if _, ok := g.nodes[dst]; !ok {
		return fmt.Errorf("%w: dst %s/%s", ErrUnknownNode, dst.Type, dst.ID)
	}

	key := edgeKey{src: src, dst: dst, etype: etype}
	if _, exists := g.edges[key]; !exists {
		g.out[src] = append(g.out[src], key)
		g.in[dst] = append(g.in[dst], key)
	}
	g.edges[key] = &Edge{Src: src, Dst: dst, Type: etype, Weight: weight, Evidence: evidence}
	metrics.UpdateGraphEdges(len(g.edges))
	return nil
}

// GetNode looks up a node by identifier.
func (g *Graph) GetNode(nid NodeID) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[nid]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// NeighborsByType returns neighbors of node filtered by node type.
func (g *Graph) NeighborsByType(node NodeID, ntype NodeType, dir Direction) ([]NodeID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[NodeID]struct{})
	var result []NodeID

	add := func(nid NodeID) {
		if nid.Type != ntype {
			return
		}
		if _, dup := seen[nid]; dup {
			return
		}
		seen[nid] = struct{}{}
		result = append(result, nid)
	}

	switch dir {
	case DirectionOut:
		for _, k := range g.out[node] {
			add(k.dst)
		}
	case DirectionIn:
		for _, k := range g.in[node] {
			add(k.src)
		}
	case DirectionBoth:
		for _, k := range g.out[node] {
			add(k.dst)
		}
		for _, k := range g.in[node] {
			add(k.src)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	return result, nil
}

// EdgesByType returns edges touching node filtered by edge type.
func (g *Graph) EdgesByType(node NodeID, etype EdgeType, dir Direction) ([]Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var result []Edge

	if dir != DirectionOut && dir != DirectionIn && dir != DirectionBoth {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	if dir == DirectionOut || dir == DirectionBoth {
		for _, k := range g.out[node] {
			if k.etype == etype {
				result = append(result, *g.edges[k])
			}
		}
	}
	if dir == DirectionIn || dir == DirectionBoth {
		for _, k := range g.in[node] {
			if k.etype == etype {
				result = append(result, *g.edges[k])
			}
		}
	}
	return result, nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Snapshot is a JSON-serializable export of the graph.
type Snapshot struct {
	SchemaVersion string `json:"schema_version"`
	Nodes         []Node `json:"nodes"`
	Edges         []Edge `json:"edges"`
}

// Export copies the graph into a serializable snapshot.
func (g *Graph) Export() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{
		SchemaVersion: SchemaVersion,
		Nodes:         make([]Node, 0, len(g.nodes)),
		Edges:         make([]Edge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		snap.Nodes = append(snap.Nodes, *n)
	}
	for _, e := range g.edges {
		snap.Edges = append(snap.Edges, *e)
	}
	return snap
}
