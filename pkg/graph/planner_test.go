package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosmolabs/filterchain/pkg/fcerr"
)

func buildChain(t *testing.T) *Graph {
	t.Helper()
	g, err := Build(newTestRegistry(), twoCopiesDesc())
	require.NoError(t, err)
	return g
}

func TestPlanMonoMatchDimensionsHandleOne(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, Plan(g, 48000, 1, 1))
	assert.Equal(t, 1, g.NHndl)
	require.Len(t, g.Hndl, 2)
	assert.Equal(t, g.FindNode("one"), g.Hndl[0].Node)
	assert.Equal(t, g.FindNode("two"), g.Hndl[1].Node)
}

func TestPlanDerivesNHndlFromChannelRatio(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, Plan(g, 48000, 2, 2))
	assert.Equal(t, 2, g.NHndl)
	assert.Len(t, g.Hndl, 4)
}

func TestPlanRejectsMismatchedChannelRatios(t *testing.T) {
	g := buildChain(t)
	err := Plan(g, 48000, 2, 3)
	require.Error(t, err)
	assert.True(t, fcerr.Is(err, fcerr.Invalid))
}

func TestPlanClampsNHndlToMax(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, Plan(g, 48000, MaxHndl+5, MaxHndl+5))
	assert.Equal(t, MaxHndl, g.NHndl)
}

func TestPlanDegradesZeroHndlToOne(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, Plan(g, 48000, 0, 0))
	assert.Equal(t, 1, g.NHndl)
}

func TestPlanExternalBindingDefaultsToFirstLastNode(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, Plan(g, 48000, 1, 1))
	require.Len(t, g.Input, 1)
	require.Len(t, g.Output, 1)
	assert.Equal(t, g.FindNode("one"), g.Input[0].Node)
	assert.Equal(t, g.FindNode("two"), g.Output[0].Node)
}

func TestPlanNullInputSlotLeavesZeroBinding(t *testing.T) {
	g, err := Build(newTestRegistry(), map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "mixer", "name": "m"},
		},
		"inputs": []interface{}{"null", "In 2"},
	})
	require.NoError(t, err)
	require.NoError(t, Plan(g, 48000, 2, 1))
	assert.Nil(t, g.Input[0].Node)
	assert.NotNil(t, g.Input[1].Node)
}

func TestPlanRejectsDoublyBoundInputPort(t *testing.T) {
	g, err := Build(newTestRegistry(), map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "a"},
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "b"},
		},
		"links": []interface{}{
			map[string]interface{}{"output": "a:Out", "input": "b:In"},
		},
		"inputs": []interface{}{"b:In"},
	})
	require.NoError(t, err)
	err = Plan(g, 48000, 1, 1)
	require.Error(t, err)
	assert.True(t, fcerr.Is(err, fcerr.Busy))
}

func TestPlanDetectsCycle(t *testing.T) {
	g, err := Build(newTestRegistry(), map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "a"},
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "b"},
		},
		"links": []interface{}{
			map[string]interface{}{"output": "a:Out", "input": "b:In"},
			map[string]interface{}{"output": "b:Out", "input": "a:In"},
		},
	})
	require.NoError(t, err)
	err = Plan(g, 48000, 1, 1)
	require.Error(t, err)
	assert.True(t, fcerr.Is(err, fcerr.Invalid))
}

func TestPlanDerivesPortCountsFromSingleNodeGraph(t *testing.T) {
	g, err := Build(newTestRegistry(), map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "mixer", "name": "m"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, Plan(g, 48000, 8, 1))
}

func TestPlanAllocatesScratchBufferForEachOutputPort(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, Plan(g, 48000, 1, 1))
	one := g.FindNode("one")
	require.Len(t, one.AudioOut[0].AudioData, 1)
	assert.Len(t, one.AudioOut[0].AudioData[0], MaxFrames)
}
