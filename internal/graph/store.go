package graph

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// Store owns a mutable strategy graph and enforces its structural invariants.
// Mutations are all-or-nothing: a rejected call leaves the graph unchanged.
// The store is the only component allowed to add or remove entities; the
// evaluation engine works on immutable snapshots taken via Graph().
type Store struct {
	catalog  *Catalog
	log      *logger.Logger
	graph    types.Graph
	revision uint64
}

// NewStore creates an empty store backed by the given catalog.
func NewStore(catalog *Catalog, log *logger.Logger) *Store {
	return &Store{
		catalog: catalog,
		log:     log,
		graph: types.Graph{
			Version:     SchemaVersion,
			Nodes:       nil,
			Connections: nil,
		},
		revision: 0,
	}
}

// NewStoreFromGraph creates a store seeded with an existing (loaded) graph.
func NewStoreFromGraph(catalog *Catalog, log *logger.Logger, g types.Graph) *Store {
	s := NewStore(catalog, log)
	s.graph = g.Clone()

	return s
}

// Graph returns an immutable structural copy of the current graph.
func (s *Store) Graph() types.Graph {
	return s.graph.Clone()
}

// Revision returns a counter incremented by every successful mutation.
func (s *Store) Revision() uint64 {
	return s.revision
}

// AddNode instantiates a node from a catalog template at the given position.
// Config is copied from the template's defaults.
func (s *Store) AddNode(kind string, position types.Position) (types.Node, error) {
	template, err := s.catalog.Template(kind)
	if err != nil {
		return types.Node{}, err
	}

	def, err := s.catalog.DefinitionFor(kind)
	if err != nil {
		return types.Node{}, err
	}

	node := types.Node{
		ID:       uuid.NewString(),
		Type:     template.Type,
		Kind:     template.Kind,
		Label:    template.Label,
		Position: position,
		Inputs:   def.Inputs,
		Outputs:  def.Outputs,
		Config:   def.DefaultConfig,
	}

	s.graph.Nodes = append(s.graph.Nodes, node)
	s.revision++

	s.log.Debug("node added",
		zap.String("node_id", node.ID),
		zap.String("kind", node.Kind),
	)

	return node.Clone(), nil
}

// AddCustomNode instantiates a custom script node with a caller-chosen port
// set. The port set is frozen for the node's lifetime: no store operation can
// change it afterwards. Port lists must each carry 1-N unique names.
func (s *Store) AddCustomNode(label string, inputs, outputs []string, code string, position types.Position) (types.Node, error) {
	if len(inputs) == 0 || len(outputs) == 0 {
		return types.Node{}, errors.New(errors.ErrCodeInvalidPortSet, "custom node needs at least one input and one output port")
	}

	seen := make(map[string]bool, len(inputs)+len(outputs))
	for _, p := range append(append([]string(nil), inputs...), outputs...) {
		if p == "" {
			return types.Node{}, errors.New(errors.ErrCodeInvalidPortSet, "custom node port names must be non-empty")
		}

		if seen[p] {
			return types.Node{}, errors.Newf(errors.ErrCodeInvalidPortSet, "duplicate custom node port name %q", p)
		}

		seen[p] = true
	}

	if label == "" {
		label = "Custom Script"
	}

	node := types.Node{
		ID:       uuid.NewString(),
		Type:     types.NodeTypeCustom,
		Kind:     KindCustomScript,
		Label:    label,
		Position: position,
		Inputs:   append([]string(nil), inputs...),
		Outputs:  append([]string(nil), outputs...),
		Config: map[string]types.ConfigValue{
			"code": types.StringConfig(code),
		},
	}

	s.graph.Nodes = append(s.graph.Nodes, node)
	s.revision++

	s.log.Debug("custom node added",
		zap.String("node_id", node.ID),
		zap.Strings("inputs", inputs),
		zap.Strings("outputs", outputs),
	)

	return node.Clone(), nil
}

// MoveNode updates a node's canvas position. Pure coordinate update with no
// semantic effect on evaluation.
func (s *Store) MoveNode(nodeID string, position types.Position) error {
	idx := s.nodeIndex(nodeID)
	if idx < 0 {
		return errors.Newf(errors.ErrCodeNodeNotFound, "node %s not found", nodeID)
	}

	s.graph.Nodes[idx].Position = position
	s.revision++

	return nil
}

// UpdateConfig merges a patch into a node's config. Every key must be declared
// configurable for the node's template and every value's kind must agree with
// the existing value's kind; otherwise the whole patch is rejected.
func (s *Store) UpdateConfig(nodeID string, patch map[string]types.ConfigValue) error {
	idx := s.nodeIndex(nodeID)
	if idx < 0 {
		return errors.Newf(errors.ErrCodeNodeNotFound, "node %s not found", nodeID)
	}

	node := s.graph.Nodes[idx]

	// Check the whole patch before touching the config.
	for key, value := range patch {
		existing, declared := node.Config[key]
		if !declared {
			return errors.Newf(errors.ErrCodeInvalidConfigKey, "config key %q is not declared for node kind %q", key, node.Kind)
		}

		if existing.Kind != value.Kind {
			return errors.Newf(errors.ErrCodeTypeMismatch,
				"config key %q expects kind %q, got %q", key, existing.Kind, value.Kind)
		}
	}

	for key, value := range patch {
		s.graph.Nodes[idx].Config[key] = value
	}

	s.revision++

	return nil
}

// RemoveNode removes a node and cascades deletion of every connection that
// references it. Removing an absent node is an idempotent no-op, which keeps
// undo/redo replay safe.
func (s *Store) RemoveNode(nodeID string) {
	idx := s.nodeIndex(nodeID)
	if idx < 0 {
		return
	}

	s.graph.Nodes = append(s.graph.Nodes[:idx], s.graph.Nodes[idx+1:]...)

	kept := s.graph.Connections[:0]

	for _, c := range s.graph.Connections {
		if c.FromNodeID == nodeID || c.ToNodeID == nodeID {
			continue
		}

		kept = append(kept, c)
	}

	s.graph.Connections = kept
	s.revision++

	s.log.Debug("node removed", zap.String("node_id", nodeID))
}

// Connect binds a source node's output port to a destination node's input
// port. An input port accepts a single producer: if the destination port is
// already bound the call fails with DuplicateInputBinding and the caller must
// Disconnect first. Output ports may fan out freely.
func (s *Store) Connect(fromNodeID, fromPort, toNodeID, toPort string) (types.Connection, error) {
	fromIdx := s.nodeIndex(fromNodeID)
	if fromIdx < 0 {
		return types.Connection{}, errors.Newf(errors.ErrCodeNodeNotFound, "node %s not found", fromNodeID)
	}

	toIdx := s.nodeIndex(toNodeID)
	if toIdx < 0 {
		return types.Connection{}, errors.Newf(errors.ErrCodeNodeNotFound, "node %s not found", toNodeID)
	}

	if !s.graph.Nodes[fromIdx].HasOutput(fromPort) {
		return types.Connection{}, errors.Newf(errors.ErrCodePortNotFound,
			"output port %q not found on node %s", fromPort, fromNodeID)
	}

	if !s.graph.Nodes[toIdx].HasInput(toPort) {
		return types.Connection{}, errors.Newf(errors.ErrCodePortNotFound,
			"input port %q not found on node %s", toPort, toNodeID)
	}

	for _, c := range s.graph.Connections {
		if c.ToNodeID == toNodeID && c.ToPort == toPort {
			return types.Connection{}, errors.Newf(errors.ErrCodeDuplicateInputBinding,
				"input port %q on node %s already has a producer", toPort, toNodeID)
		}
	}

	conn := types.Connection{
		ID:         uuid.NewString(),
		FromNodeID: fromNodeID,
		FromPort:   fromPort,
		ToNodeID:   toNodeID,
		ToPort:     toPort,
	}

	s.graph.Connections = append(s.graph.Connections, conn)
	s.revision++

	s.log.Debug("connection added",
		zap.String("connection_id", conn.ID),
		zap.String("from", fromNodeID+"."+fromPort),
		zap.String("to", toNodeID+"."+toPort),
	)

	return conn, nil
}

// Disconnect removes one connection. Idempotent.
func (s *Store) Disconnect(connectionID string) {
	for i, c := range s.graph.Connections {
		if c.ID == connectionID {
			s.graph.Connections = append(s.graph.Connections[:i], s.graph.Connections[i+1:]...)
			s.revision++

			return
		}
	}
}

func (s *Store) nodeIndex(nodeID string) int {
	for i, n := range s.graph.Nodes {
		if n.ID == nodeID {
			return i
		}
	}

	return -1
}
