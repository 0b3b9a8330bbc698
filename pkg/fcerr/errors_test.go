package fcerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatsCodeOpMsg(t *testing.T) {
	err := New(NotFound, "registry.Load", "unknown family")
	assert.Equal(t, "NOT_FOUND: registry.Load: unknown family", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("dlopen failed")
	err := Wrap(IO, "ladspa.Load", cause)
	require.ErrorIs(t, err, cause)
	assert.True(t, Is(err, IO))
	assert.False(t, Is(err, Invalid))
}

func TestIsWalksWrappedChain(t *testing.T) {
	inner := New(Busy, "graph.addLink", "already linked")
	outer := Wrap(Invalid, "graph.Build", inner)
	assert.True(t, Is(outer, Invalid))
	assert.True(t, Is(outer, Busy), "Is walks nested *Error causes, not just the outermost code")
	assert.False(t, Is(outer, NoMem))
}

func TestCodeString(t *testing.T) {
	cases := map[Code]string{
		Invalid: "INVALID", NotFound: "NOT_FOUND", Unsupported: "UNSUPPORTED",
		Busy: "BUSY", NoMem: "NO_MEM", IO: "IO",
	}
	for code, want := range cases {
		assert.Equal(t, want, code.String())
	}
}
