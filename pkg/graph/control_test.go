package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	published []struct {
		subject string
		data    []byte
	}
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.published = append(f.published, struct {
		subject string
		data    []byte
	}{subject, data})
	return nil
}

func planMixer(t *testing.T) *Graph {
	t.Helper()
	g, err := Build(newTestRegistry(), map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"type": "builtin", "label": "mixer", "name": "m"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, Plan(g, 48000, 8, 1))
	return g
}

func TestPlaneInfoEnumeratesControlPortMetadata(t *testing.T) {
	g := planMixer(t)
	pl := NewPlane(g, "test", nil)
	info := pl.Info()
	require.NotEmpty(t, info)
	assert.Equal(t, "m:Gain 1", info[0].Name)
	assert.Equal(t, "float", info[0].Type)
	assert.Equal(t, 1.0, info[0].Default)
}

func TestPlaneSnapshotReflectsCurrentValues(t *testing.T) {
	g := planMixer(t)
	pl := NewPlane(g, "test", nil)
	snap := pl.Snapshot()
	assert.Equal(t, 1.0, snap["m:Gain 1"])
}

func TestPlaneUpdateAppliesQualifiedName(t *testing.T) {
	g := planMixer(t)
	pub := &fakePublisher{}
	pl := NewPlane(g, "test", pub)

	n, err := pl.Update(map[string]float64{"m:Gain 1": 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 0.5, pl.Snapshot()["m:Gain 1"], 1e-9)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "filterchain.test.params", pub.published[0].subject)
	var decoded map[string]float64
	require.NoError(t, json.Unmarshal(pub.published[0].data, &decoded))
	assert.InDelta(t, 0.5, decoded["m:Gain 1"], 1e-9)
}

func TestPlaneUpdateAppliesBareNameAgainstFirstMatchingNode(t *testing.T) {
	g := planMixer(t)
	pl := NewPlane(g, "test", nil)
	n, err := pl.Update(map[string]float64{"Gain 2": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 2.0, pl.Snapshot()["m:Gain 2"], 1e-9)
}

func TestPlaneUpdateIgnoresUnknownNameWithoutError(t *testing.T) {
	g := planMixer(t)
	pub := &fakePublisher{}
	pl := NewPlane(g, "test", pub)
	n, err := pl.Update(map[string]float64{"no:such": 1.0})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, pub.published, "no publish when nothing changed")
}

func TestPlaneResetReactivatesEveryHandleWithoutTouchingControlValues(t *testing.T) {
	g := planMixer(t)
	pl := NewPlane(g, "test", nil)

	_, err := pl.Update(map[string]float64{"m:Gain 1": 0.75})
	require.NoError(t, err)

	assert.NotPanics(t, func() { pl.Reset() })
	assert.InDelta(t, 0.75, pl.Snapshot()["m:Gain 1"], 1e-9)
}

func TestPlaneNilPublisherSkipsPublication(t *testing.T) {
	g := planMixer(t)
	pl := NewPlane(g, "test", nil)
	assert.NotPanics(t, func() {
		_, err := pl.Update(map[string]float64{"m:Gain 1": 0.2})
		require.NoError(t, err)
	})
}
