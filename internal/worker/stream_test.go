package worker

import (
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-triage/internal/triage"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		want    Message
		wantErr bool
	}{
		{name: "defaults attempt", values: map[string]any{"ticket_id": "t1"}, want: Message{ID: "1-0", TicketID: "t1", Attempt: 1}},
		{name: "string attempt", values: map[string]any{"ticket_id": "t1", "attempt": "3"}, want: Message{ID: "1-0", TicketID: "t1", Attempt: 3}},
		{name: "missing ticket", values: map[string]any{"attempt": "1"}, wantErr: true},
		{name: "bad attempt", values: map[string]any{"ticket_id": "t1", "attempt": "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessage(redis.XMessage{ID: "1-0", Values: tt.values})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.TicketID, got.TicketID)
			assert.Equal(t, tt.want.Attempt, got.Attempt)
			assert.Equal(t, tt.want.ID, got.ID)
		})
	}
}

func TestMessageValuesRoundTrip(t *testing.T) {
	values := messageValues(Message{TicketID: "t9"})
	got, err := ParseMessage(redis.XMessage{ID: "2-0", Values: values})
	require.NoError(t, err)
	assert.Equal(t, "t9", got.TicketID)
	assert.Equal(t, 1, got.Attempt)
}

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(nil))
	assert.False(t, retryable(&triage.StageError{Stage: triage.StageLoad, Err: triage.ErrTicketNotFound}))
	assert.False(t, retryable(triage.ErrInvalidTransition))
	assert.True(t, retryable(triage.ErrPersistence))
	assert.True(t, retryable(errors.New("connection reset")))
}

func TestSettle(t *testing.T) {
	first := Message{TicketID: "t1", Attempt: 1}
	failed := func(err error) triage.Result { return triage.Result{TicketID: "t1", Error: err.Error(), Err: err} }

	tests := []struct {
		name        string
		res         triage.Result
		msg         Message
		maxAttempts int
		want        settlement
	}{
		{"success acks", triage.Result{Success: true}, first, 1, settleAck},
		{"queue full keeps attempt", failed(ErrQueueFull), first, 1, settleReschedule},
		{"pool closed keeps attempt", failed(ErrPoolClosed), Message{TicketID: "t1", Attempt: 3}, 3, settleReschedule},
		{"retryable under limit", failed(triage.ErrPersistence), first, 3, settleRequeue},
		{"retryable at limit", failed(triage.ErrPersistence), Message{TicketID: "t1", Attempt: 3}, 3, settleDeadLetter},
		{"default single attempt", failed(triage.ErrPersistence), first, 1, settleDeadLetter},
		{"not found never retried", failed(&triage.StageError{Stage: triage.StageLoad, Err: triage.ErrTicketNotFound}), first, 5, settleDeadLetter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, settle(tt.res, tt.msg, tt.maxAttempts))
		})
	}
}
