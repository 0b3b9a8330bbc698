package spajson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBareIdentifiersAndEqualsAsColon(t *testing.T) {
	v, err := Parse(`{ type = builtin label = mixer }`)
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	assert.Equal(t, "builtin", obj["type"])
	assert.Equal(t, "mixer", obj["label"])
}

func TestParseHandlesColonAndEqualsInterchangeably(t *testing.T) {
	v, err := Parse(`{ "a": 1, b = 2 }`)
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	assert.Equal(t, 1.0, obj["a"])
	assert.Equal(t, 2.0, obj["b"])
}

func TestParseSkipsHashComments(t *testing.T) {
	v, err := Parse("{\n  # this is a comment\n  name = delay\n}")
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	assert.Equal(t, "delay", obj["name"])
}

func TestParseNullSentinel(t *testing.T) {
	v, err := Parse(`{ input = null }`)
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	assert.Nil(t, obj["input"])
	_, ok := obj["input"]
	assert.True(t, ok, "key is present with a nil value, not absent")
}

func TestParseBooleansAndNumbers(t *testing.T) {
	v, err := Parse(`{ a = true, b = false, c = -3.5, d = 42 }`)
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	assert.Equal(t, true, obj["a"])
	assert.Equal(t, false, obj["b"])
	assert.Equal(t, -3.5, obj["c"])
	assert.Equal(t, 42.0, obj["d"])
}

func TestParseArrayOfObjects(t *testing.T) {
	v, err := Parse(`{ nodes = [ { type = builtin label = mixer } { type = builtin label = copy } ] }`)
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	arr := obj["nodes"].([]interface{})
	require.Len(t, arr, 2)
	assert.Equal(t, "mixer", arr[0].(map[string]interface{})["label"])
	assert.Equal(t, "copy", arr[1].(map[string]interface{})["label"])
}

func TestParseQuotedStringEscapes(t *testing.T) {
	v, err := Parse(`{ path = "/tmp/a\"b" }`)
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	assert.Equal(t, `/tmp/a"b`, obj["path"])
}

func TestParseCapturesConfigAsRawVerbatimSpan(t *testing.T) {
	v, err := Parse(`{ config = { max-delay = 2.5, filename = "/dirac" } }`)
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	raw, ok := obj["config"].(RawConfig)
	require.True(t, ok, "config key must be captured as RawConfig, not decoded into a map")
	assert.Contains(t, string(raw), "max-delay")
	assert.Contains(t, string(raw), "/dirac")
	assert.True(t, string(raw)[0] == '{')
}

func TestParseConfigAsBareScalarStillCapturesRaw(t *testing.T) {
	v, err := Parse(`{ config = filename }`)
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	raw, ok := obj["config"].(RawConfig)
	require.True(t, ok)
	assert.Equal(t, RawConfig("filename"), raw)
}

func TestParseUnterminatedObjectErrors(t *testing.T) {
	_, err := Parse(`{ a = 1`)
	require.Error(t, err)
}

func TestParseMissingKeySeparatorErrors(t *testing.T) {
	_, err := Parse(`{ a 1 }`)
	require.Error(t, err)
}

func TestParseTopLevelArray(t *testing.T) {
	v, err := Parse(`[1, 2, 3]`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, v)
}
