package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosmolabs/filterchain/pkg/fcerr"
	"github.com/kosmolabs/filterchain/pkg/plugin/builtin"
	"github.com/kosmolabs/filterchain/pkg/registry"
	"github.com/kosmolabs/filterchain/pkg/spajson"
)

func newTestRegistry() *registry.Registry {
	r := registry.New()
	r.RegisterFamily("builtin", builtin.Family{})
	return r
}

func twoCopiesDesc() map[string]interface{} {
	return map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "one"},
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "two"},
		},
		"links": []interface{}{
			map[string]interface{}{"output": "one:Out", "input": "two:In"},
		},
	}
}

func TestBuildConstructsNodesAndLinks(t *testing.T) {
	g, err := Build(newTestRegistry(), twoCopiesDesc())
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Links, 1)

	one := g.FindNode("one")
	two := g.FindNode("two")
	require.NotNil(t, one)
	require.NotNil(t, two)
	assert.Equal(t, 1, two.NDeps)
	assert.Equal(t, 0, one.NDeps)
	assert.Same(t, g.Links[0], one.AudioOut[0].Links[0])
	assert.Same(t, g.Links[0], two.AudioIn[0].Links[0])
}

func TestBuildRejectsNonObjectRoot(t *testing.T) {
	_, err := Build(newTestRegistry(), []interface{}{})
	require.Error(t, err)
	assert.True(t, fcerr.Is(err, fcerr.Invalid))
}

func TestBuildRejectsEmptyNodeList(t *testing.T) {
	_, err := Build(newTestRegistry(), map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, fcerr.Is(err, fcerr.Invalid))
}

func TestBuildRejectsDuplicateNodeNames(t *testing.T) {
	desc := map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "dup"},
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "dup"},
		},
	}
	_, err := Build(newTestRegistry(), desc)
	require.Error(t, err)
	assert.True(t, fcerr.Is(err, fcerr.Invalid))
}

func TestBuildRejectsUnknownLabel(t *testing.T) {
	desc := map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "nonexistent", "name": "x"},
		},
	}
	_, err := Build(newTestRegistry(), desc)
	require.Error(t, err)
}

func TestBuildResolvesBarePortNameLinkAgainstDefaultNodes(t *testing.T) {
	desc := map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "one"},
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "two"},
		},
		"links": []interface{}{
			map[string]interface{}{"output": "Out", "input": "In"},
		},
	}
	g, err := Build(newTestRegistry(), desc)
	require.NoError(t, err)
	require.Len(t, g.Links, 1)
	assert.Same(t, g.FindNode("one").AudioOut[0], g.Links[0].Output)
	assert.Same(t, g.FindNode("two").AudioIn[0], g.Links[0].Input)
}

func TestBuildRejectsDoublyLinkedInput(t *testing.T) {
	desc := map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "a"},
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "b"},
			map[string]interface{}{"type": "builtin", "label": "copy", "name": "c"},
		},
		"links": []interface{}{
			map[string]interface{}{"output": "a:Out", "input": "c:In"},
			map[string]interface{}{"output": "b:Out", "input": "c:In"},
		},
	}
	_, err := Build(newTestRegistry(), desc)
	require.Error(t, err)
	assert.True(t, fcerr.Is(err, fcerr.Busy))
}

func TestBuildAppliesInitialControlValuesByName(t *testing.T) {
	desc := map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{
				"type": "builtin", "label": "mixer", "name": "m",
				"control": map[string]interface{}{"Gain 1": 0.25},
			},
		},
	}
	g, err := Build(newTestRegistry(), desc)
	require.NoError(t, err)
	m := g.FindNode("m")
	assert.InDelta(t, 0.25, m.ControlIn[0].ControlData.Load(), 1e-9)
}

func TestBuildRejectsUnknownControlName(t *testing.T) {
	desc := map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{
				"type": "builtin", "label": "mixer", "name": "m",
				"control": map[string]interface{}{"NoSuchPort": 1.0},
			},
		},
	}
	_, err := Build(newTestRegistry(), desc)
	require.Error(t, err)
	assert.True(t, fcerr.Is(err, fcerr.NotFound))
}

func TestBuildCapturesRawConfigSubstring(t *testing.T) {
	desc := map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{
				"type": "builtin", "label": "delay", "name": "d",
				"config": spajson.RawConfig(`{ max-delay = 2.0 }`),
			},
		},
	}
	g, err := Build(newTestRegistry(), desc)
	require.NoError(t, err)
	assert.Contains(t, g.FindNode("d").Config, "max-delay")
}
