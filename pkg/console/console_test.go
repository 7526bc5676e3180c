package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferCapacityEnforcement(t *testing.T) {
	buf := NewWithCapacity(3)

	buf.Push("line1")
	buf.Push("line2")
	buf.Push("line3")
	buf.Push("line4")

	lines := buf.Lines()
	assert.Equal(t, []string{"line2", "line3", "line4"}, lines)
}

func TestBufferPreservesInsertionOrder(t *testing.T) {
	buf := New()
	buf.Push("hello")
	buf.Push("world")

	assert.Equal(t, []string{"hello", "world"}, buf.Lines())
}

func TestBufferEmpty(t *testing.T) {
	buf := New()
	assert.Empty(t, buf.Lines())
}

func TestRegistryGetOrCreateIsStableAcrossCalls(t *testing.T) {
	reg := NewRegistry()
	a := reg.GetOrCreate("uuid-1")
	a.Push("line")

	b := reg.GetOrCreate("uuid-1")
	assert.Equal(t, []string{"line"}, b.Lines())
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry()
	reg.GetOrCreate("uuid-1").Push("line")
	reg.Remove("uuid-1")

	fresh := reg.GetOrCreate("uuid-1")
	assert.Empty(t, fresh.Lines())
}
