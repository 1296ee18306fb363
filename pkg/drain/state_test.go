package drain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StatePending, StateTransferring, true},
		{StatePending, StateSkipped, true},
		{StateTransferring, StateTransferred, true},
		{StateTransferring, StateTransferFailed, true},
		{StateTransferred, StateDeleted, true},
		{StateTransferred, StateDeleteFailed, true},
		{StatePending, StateDeleted, false},
		{StateTransferFailed, StateTransferring, false},
		{StateTransferFailed, StateDeleted, false},
		{StateDeleteFailed, StateDeleted, false},
		{StateDeleted, StatePending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateTransferFailed, StateDeleted, StateDeleteFailed, StateSkipped} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []State{StatePending, StateTransferring, StateTransferred} {
		assert.False(t, s.Terminal(), s)
	}
}

func TestItemResult_Advance(t *testing.T) {
	res := ItemResult{State: StatePending}
	res.advance(StateTransferring)
	res.advance(StateTransferred)
	res.advance(StateDeleted)
	assert.Equal(t, StateDeleted, res.State)

	failed := ItemResult{State: StateTransferFailed}
	assert.Panics(t, func() { failed.advance(StateDeleted) })
	assert.Equal(t, StateTransferFailed, failed.State)

	skipped := ItemResult{State: StatePending}
	skipped.advance(StateSkipped)
	assert.Panics(t, func() { skipped.advance(StateTransferring) })
}
