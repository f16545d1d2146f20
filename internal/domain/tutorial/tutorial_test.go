package tutorial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceInOrder(t *testing.T) {
	r := NewRunner(DefaultScript())

	_, ok := r.Advance(TriggerFirstClick, 0)
	assert.False(t, ok, "out-of-order trigger must be ignored")

	msg, ok := r.Advance(TriggerStart, 0)
	require.True(t, ok)
	assert.Contains(t, msg, "Welcome")
	assert.Equal(t, 1, r.State().CurrentStep)
}

func TestRequirementGate(t *testing.T) {
	r := NewRunner([]Step{{Trigger: TriggerCanHireTech, Requirement: 25, Message: "hire"}})

	_, ok := r.Advance(TriggerCanHireTech, 24)
	assert.False(t, ok)

	msg, ok := r.Advance(TriggerCanHireTech, 25)
	require.True(t, ok)
	assert.Equal(t, "hire", msg)
	assert.True(t, r.State().Completed)
}

func TestCompletedIsTerminal(t *testing.T) {
	r := NewRunner([]Step{{Trigger: TriggerStart, Message: "hi"}})
	_, ok := r.Advance(TriggerStart, 0)
	require.True(t, ok)

	_, ok = r.Advance(TriggerStart, 0)
	assert.False(t, ok)
	assert.True(t, r.State().Completed)

	_, ok = r.Current()
	assert.False(t, ok)
}

func TestRestorePastEnd(t *testing.T) {
	r := NewRunner(DefaultScript())
	r.Restore(State{CurrentStep: 42})
	assert.True(t, r.State().Completed)

	r.Reset()
	assert.Equal(t, State{}, r.State())
}

func TestEmptyScript(t *testing.T) {
	r := NewRunner(nil)
	assert.True(t, r.State().Completed)
}
