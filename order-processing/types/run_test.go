package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunOptionsWithDefaults(t *testing.T) {
	opts := RunOptions{}.WithDefaults()
	assert.Equal(t, DefaultMaxReplanAttempts, opts.MaxReplanAttempts)
	assert.Equal(t, DefaultCollaboratorTimeout, opts.CollaboratorTimeout)

	opts = RunOptions{MaxReplanAttempts: -1, CollaboratorTimeout: time.Second}.WithDefaults()
	assert.Equal(t, 0, opts.MaxReplanAttempts)
	assert.Equal(t, time.Second, opts.CollaboratorTimeout)
}

func TestRunResultRecord(t *testing.T) {
	var r RunResult
	r.Record("intake", StageIntentCreated, OutcomeOK, "intent INT-0001")
	r.Record("inventory", StageInventoryChecked, OutcomeRejected, "short")

	assert.Equal(t, StageInventoryChecked, r.Stage)
	assert.Len(t, r.Trace, 2)
	assert.Equal(t, 2, r.Trace[1].StepNumber)
	assert.Equal(t, "inventory", r.Trace[1].Component)

	r.Emit(Event{Type: EventStockReserved}, Event{Type: EventLowStock})
	assert.Len(t, r.Events, 2)
}
