package graph

import (
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/internal/version"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// SchemaVersion is the serialized-graph schema version this engine writes and
// accepts. Graphs saved with a different major or minor version are rejected
// at load time.
const SchemaVersion = "1.0.0"

// Marshal serializes a graph to its persisted JSON record. Engine-internal
// state (indicator rolling windows) is never included: a reloaded graph
// restarts with cold state.
func Marshal(g types.Graph) ([]byte, error) {
	if g.Version == "" {
		g.Version = SchemaVersion
	}

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGraphWriteFailed, "failed to marshal graph", err)
	}

	return data, nil
}

// Unmarshal parses a persisted graph record, enforcing schema version
// compatibility and the store's structural invariants (unique node ids, valid
// port references, single producer per input port).
func Unmarshal(data []byte) (types.Graph, error) {
	var g types.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return types.Graph{}, errors.Wrap(errors.ErrCodeGraphParseFailed, "failed to parse graph", err)
	}

	if g.Version == "" {
		g.Version = SchemaVersion
	}

	if err := version.CheckSchemaCompatibility(SchemaVersion, g.Version); err != nil {
		return types.Graph{}, err
	}

	if err := checkIntegrity(g); err != nil {
		return types.Graph{}, err
	}

	return g, nil
}

// Save writes a graph record to a file.
func Save(path string, g types.Graph) error {
	data, err := Marshal(g)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(errors.ErrCodeGraphWriteFailed, err, "failed to write graph to %s", path)
	}

	return nil
}

// LoadFile reads and parses a graph record from a file.
func LoadFile(path string) (types.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Graph{}, errors.Wrapf(errors.ErrCodeGraphParseFailed, err, "failed to read graph from %s", path)
	}

	return Unmarshal(data)
}

// checkIntegrity verifies the invariants the store would have enforced had the
// graph been built through it.
func checkIntegrity(g types.Graph) error {
	nodes := make(map[string]types.Node, len(g.Nodes))

	for _, n := range g.Nodes {
		if _, exists := nodes[n.ID]; exists {
			return errors.Newf(errors.ErrCodeDuplicateNodeID, "duplicate node id %s", n.ID)
		}

		nodes[n.ID] = n
	}

	boundInputs := make(map[string]bool, len(g.Connections))

	for _, c := range g.Connections {
		from, ok := nodes[c.FromNodeID]
		if !ok {
			return errors.Newf(errors.ErrCodeNodeNotFound, "connection %s references missing node %s", c.ID, c.FromNodeID)
		}

		to, ok := nodes[c.ToNodeID]
		if !ok {
			return errors.Newf(errors.ErrCodeNodeNotFound, "connection %s references missing node %s", c.ID, c.ToNodeID)
		}

		if !from.HasOutput(c.FromPort) {
			return errors.Newf(errors.ErrCodePortNotFound, "output port %q not found on node %s", c.FromPort, c.FromNodeID)
		}

		if !to.HasInput(c.ToPort) {
			return errors.Newf(errors.ErrCodePortNotFound, "input port %q not found on node %s", c.ToPort, c.ToNodeID)
		}

		key := c.ToNodeID + "\x00" + c.ToPort
		if boundInputs[key] {
			return errors.Newf(errors.ErrCodeDuplicateInputBinding,
				"input port %q on node %s has more than one producer", c.ToPort, c.ToNodeID)
		}

		boundInputs[key] = true
	}

	return nil
}

// GenerateSchema generates a JSON schema for the persisted graph record.
func GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.Reflect(&types.Graph{})
	schema.Title = "strategy-graph"
	schema.Description = "Persisted strategy graph record"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates the JSON schema string for the persisted graph
// record.
func GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
