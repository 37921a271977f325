package graph

import (
	"testing"

	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogUnknownKind(t *testing.T) {
	catalog := NewCatalog()

	_, err := catalog.Template("ichimoku_cloud")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownNodeType, errors.GetCode(err))

	_, err = catalog.DefinitionFor("ichimoku_cloud")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownNodeType, errors.GetCode(err))
}

func TestCatalogDefinitionIsACopy(t *testing.T) {
	catalog := NewCatalog()

	first, err := catalog.DefinitionFor(KindRSI)
	require.NoError(t, err)

	first.DefaultConfig["period"] = types.NumberConfig(2)
	first.Inputs[0] = "tampered"

	second, err := catalog.DefinitionFor(KindRSI)
	require.NoError(t, err)
	assert.Equal(t, 14.0, second.DefaultConfig["period"].Num)
	assert.Equal(t, []string{"Source"}, second.Inputs)
}

func TestCatalogTemplateShape(t *testing.T) {
	catalog := NewCatalog()

	tests := []struct {
		kind    string
		typ     types.NodeType
		inputs  []string
		outputs []string
	}{
		{KindTimeTrigger, types.NodeTypeTrigger, nil, []string{"OnTick"}},
		{KindConstant, types.NodeTypeTrigger, nil, []string{"Value"}},
		{KindBollinger, types.NodeTypeIndicator, []string{"Source"}, []string{"Upper", "Middle", "Lower"}},
		{KindMACD, types.NodeTypeIndicator, []string{"Source"}, []string{"MACD", "Signal", "Hist"}},
		{KindStochastic, types.NodeTypeIndicator, nil, []string{"K", "D"}},
		{KindCrossOver, types.NodeTypeCondition, []string{"A", "B"}, []string{"True", "False"}},
		{KindBuyMarket, types.NodeTypeAction, []string{"Signal"}, []string{"OnFill"}},
		{KindClosePosition, types.NodeTypeAction, []string{"Signal"}, []string{"OnClosed"}},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			template, err := catalog.Template(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, template.Type)
			assert.Equal(t, tt.inputs, template.Inputs)
			assert.Equal(t, tt.outputs, template.Outputs)
		})
	}
}

func TestCatalogPortDefinitions(t *testing.T) {
	catalog := NewCatalog()

	defs, err := catalog.PortDefinitions(KindCompareGT)
	require.NoError(t, err)
	require.Len(t, defs, 4)

	directions := map[string]types.PortDirection{}
	for _, d := range defs {
		directions[d.Name] = d.Direction
	}

	assert.Equal(t, types.PortDirectionIn, directions["A"])
	assert.Equal(t, types.PortDirectionIn, directions["B"])
	assert.Equal(t, types.PortDirectionOut, directions["True"])
	assert.Equal(t, types.PortDirectionOut, directions["False"])
}

func TestCatalogCoversEveryCategory(t *testing.T) {
	catalog := NewCatalog()

	categories := map[string]int{}
	for _, template := range catalog.Templates() {
		categories[template.Category]++
	}

	assert.Equal(t, 3, categories["Triggers"])
	assert.Equal(t, 7, categories["Indicators"])
	assert.Equal(t, 5, categories["Logic"])
	assert.Equal(t, 3, categories["Actions"])
	assert.Equal(t, 1, categories["Custom"])
}
