package graph

import (
	"testing"

	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.store = NewStore(NewCatalog(), logger.NewNopLogger())
}

func (s *StoreTestSuite) TestAddNodeCopiesTemplateDefaults() {
	rsi, err := s.store.AddNode(KindRSI, types.Position{X: 10, Y: 20})
	s.Require().NoError(err)

	s.Equal(types.NodeTypeIndicator, rsi.Type)
	s.Equal([]string{"Source"}, rsi.Inputs)
	s.Equal([]string{"Value"}, rsi.Outputs)
	s.Equal(14.0, rsi.Config["period"].Num)

	// The returned node is a copy: mutating it must not leak into the store.
	rsi.Config["period"] = types.NumberConfig(99)

	stored, ok := s.store.Graph().NodeByID(rsi.ID)
	s.Require().True(ok)
	s.Equal(14.0, stored.Config["period"].Num)
}

func (s *StoreTestSuite) TestAddNodeUnknownKind() {
	_, err := s.store.AddNode("ichimoku_cloud", types.Position{})
	s.Require().Error(err)
	s.Equal(errors.ErrCodeUnknownNodeType, errors.GetCode(err))
	s.Empty(s.store.Graph().Nodes)
}

func (s *StoreTestSuite) TestDefaultConfigNotSharedBetweenNodes() {
	first, err := s.store.AddNode(KindSMA, types.Position{})
	s.Require().NoError(err)

	second, err := s.store.AddNode(KindSMA, types.Position{})
	s.Require().NoError(err)

	s.Require().NoError(s.store.UpdateConfig(first.ID, map[string]types.ConfigValue{
		"period": types.NumberConfig(50),
	}))

	g := s.store.Graph()
	firstStored, _ := g.NodeByID(first.ID)
	secondStored, _ := g.NodeByID(second.ID)
	s.Equal(50.0, firstStored.Config["period"].Num)
	s.Equal(20.0, secondStored.Config["period"].Num)
}

func (s *StoreTestSuite) TestConnectRejectsDuplicateInputBinding() {
	rsi, err := s.store.AddNode(KindRSI, types.Position{})
	s.Require().NoError(err)

	sma, err := s.store.AddNode(KindSMA, types.Position{})
	s.Require().NoError(err)

	compare, err := s.store.AddNode(KindCompareGT, types.Position{})
	s.Require().NoError(err)

	_, err = s.store.Connect(rsi.ID, "Value", compare.ID, "A")
	s.Require().NoError(err)

	before := s.store.Graph()
	revision := s.store.Revision()

	_, err = s.store.Connect(sma.ID, "Value", compare.ID, "A")
	s.Require().Error(err)
	s.Equal(errors.ErrCodeDuplicateInputBinding, errors.GetCode(err))

	// Rejected mutation leaves the graph untouched.
	s.Equal(before.Connections, s.store.Graph().Connections)
	s.Equal(revision, s.store.Revision())
}

func (s *StoreTestSuite) TestConnectRejectsUnknownPort() {
	rsi, err := s.store.AddNode(KindRSI, types.Position{})
	s.Require().NoError(err)

	compare, err := s.store.AddNode(KindCompareGT, types.Position{})
	s.Require().NoError(err)

	_, err = s.store.Connect(rsi.ID, "Momentum", compare.ID, "A")
	s.Require().Error(err)
	s.Equal(errors.ErrCodePortNotFound, errors.GetCode(err))

	_, err = s.store.Connect(rsi.ID, "Value", compare.ID, "C")
	s.Require().Error(err)
	s.Equal(errors.ErrCodePortNotFound, errors.GetCode(err))
	s.Empty(s.store.Graph().Connections)
}

func (s *StoreTestSuite) TestConnectRejectsUnknownNode() {
	rsi, err := s.store.AddNode(KindRSI, types.Position{})
	s.Require().NoError(err)

	_, err = s.store.Connect(rsi.ID, "Value", "ghost", "A")
	s.Require().Error(err)
	s.Equal(errors.ErrCodeNodeNotFound, errors.GetCode(err))
}

func (s *StoreTestSuite) TestRemoveNodeCascadesConnections() {
	rsi, err := s.store.AddNode(KindRSI, types.Position{})
	s.Require().NoError(err)

	compare, err := s.store.AddNode(KindCompareGT, types.Position{})
	s.Require().NoError(err)

	constant, err := s.store.AddNode(KindConstant, types.Position{})
	s.Require().NoError(err)

	_, err = s.store.Connect(rsi.ID, "Value", compare.ID, "A")
	s.Require().NoError(err)
	surviving, err := s.store.Connect(constant.ID, "Value", compare.ID, "B")
	s.Require().NoError(err)

	// Deleting the comparator must take both of its connections with it.
	s.store.RemoveNode(compare.ID)

	g := s.store.Graph()
	s.Len(g.Nodes, 2)
	s.Empty(g.Connections)

	// Deleting a producer only removes its own edge.
	_, err = s.store.Connect(constant.ID, "Value", rsi.ID, "Source")
	s.Require().NoError(err)
	s.store.RemoveNode(constant.ID)
	s.Empty(s.store.Graph().Connections)

	// A second delete of the same node is a no-op, as is disconnecting a
	// connection that is already gone.
	revision := s.store.Revision()
	s.store.RemoveNode(compare.ID)
	s.store.Disconnect(surviving.ID)
	s.Equal(revision, s.store.Revision())
}

func (s *StoreTestSuite) TestMoveNode() {
	rsi, err := s.store.AddNode(KindRSI, types.Position{X: 0, Y: 0})
	s.Require().NoError(err)

	s.Require().NoError(s.store.MoveNode(rsi.ID, types.Position{X: 300, Y: 120}))

	moved, ok := s.store.Graph().NodeByID(rsi.ID)
	s.Require().True(ok)
	s.Equal(types.Position{X: 300, Y: 120}, moved.Position)

	err = s.store.MoveNode("ghost", types.Position{})
	s.Require().Error(err)
	s.Equal(errors.ErrCodeNodeNotFound, errors.GetCode(err))
}

func (s *StoreTestSuite) TestUpdateConfigRejectsUndeclaredKey() {
	rsi, err := s.store.AddNode(KindRSI, types.Position{})
	s.Require().NoError(err)

	err = s.store.UpdateConfig(rsi.ID, map[string]types.ConfigValue{
		"lookback": types.NumberConfig(10),
	})
	s.Require().Error(err)
	s.Equal(errors.ErrCodeInvalidConfigKey, errors.GetCode(err))
}

func (s *StoreTestSuite) TestUpdateConfigRejectsKindMismatch() {
	rsi, err := s.store.AddNode(KindRSI, types.Position{})
	s.Require().NoError(err)

	err = s.store.UpdateConfig(rsi.ID, map[string]types.ConfigValue{
		"period": types.StringConfig("fourteen"),
	})
	s.Require().Error(err)
	s.Equal(errors.ErrCodeTypeMismatch, errors.GetCode(err))
}

func (s *StoreTestSuite) TestUpdateConfigIsAllOrNothing() {
	bollinger, err := s.store.AddNode(KindBollinger, types.Position{})
	s.Require().NoError(err)

	// One good key and one bad key: neither may be applied.
	err = s.store.UpdateConfig(bollinger.ID, map[string]types.ConfigValue{
		"period": types.NumberConfig(10),
		"width":  types.NumberConfig(3),
	})
	s.Require().Error(err)

	stored, _ := s.store.Graph().NodeByID(bollinger.ID)
	s.Equal(20.0, stored.Config["period"].Num)
}

func (s *StoreTestSuite) TestAddCustomNodePortRules() {
	_, err := s.store.AddCustomNode("No Outputs", []string{"In1"}, nil, "{}", types.Position{})
	s.Require().Error(err)
	s.Equal(errors.ErrCodeInvalidPortSet, errors.GetCode(err))

	_, err = s.store.AddCustomNode("Dup", []string{"X", "X"}, []string{"Out"}, "{}", types.Position{})
	s.Require().Error(err)
	s.Equal(errors.ErrCodeInvalidPortSet, errors.GetCode(err))

	_, err = s.store.AddCustomNode("Shared", []string{"X"}, []string{"X"}, "{}", types.Position{})
	s.Require().Error(err)
	s.Equal(errors.ErrCodeInvalidPortSet, errors.GetCode(err))

	node, err := s.store.AddCustomNode("Spread", []string{"Fast", "Slow"}, []string{"Wide"}, "{ Wide = inputs.Fast - inputs.Slow }", types.Position{})
	s.Require().NoError(err)
	s.Equal(types.NodeTypeCustom, node.Type)
	s.Equal([]string{"Fast", "Slow"}, node.Inputs)
	s.Equal("{ Wide = inputs.Fast - inputs.Slow }", node.Config["code"].Str)
}

func (s *StoreTestSuite) TestGraphReturnsSnapshot() {
	rsi, err := s.store.AddNode(KindRSI, types.Position{})
	s.Require().NoError(err)

	snapshot := s.store.Graph()
	snapshot.Nodes[0].Config["period"] = types.NumberConfig(7)
	snapshot.Nodes[0].Label = "tampered"

	stored, _ := s.store.Graph().NodeByID(rsi.ID)
	s.Equal(14.0, stored.Config["period"].Num)
	s.Equal("RSI", stored.Label)
}
