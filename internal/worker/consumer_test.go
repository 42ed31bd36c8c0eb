package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeAck struct {
	acked    bool
	nacked   bool
	requeued bool
	ackErr   error
}

func (a *fakeAck) Ack(multiple bool) error {
	a.acked = true
	return a.ackErr
}

func (a *fakeAck) Nack(multiple, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func TestWorker_HandleWakeup(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		ackErr    error
		wantAck   bool
		wantNack  bool
		wantWaken bool
	}{
		{
			name:      "valid wake-up for a served queue",
			body:      `{"job_id":"7c9e6679-7425-40de-944b-e07fc1f90ae7","queue":"emails"}`,
			wantAck:   true,
			wantWaken: true,
		},
		{
			name:    "queue not served by this worker",
			body:    `{"job_id":"7c9e6679-7425-40de-944b-e07fc1f90ae7","queue":"low"}`,
			wantAck: true,
		},
		{
			name:      "ack failure still wakes",
			body:      `{"job_id":"7c9e6679-7425-40de-944b-e07fc1f90ae7","queue":"emails"}`,
			ackErr:    errors.New("channel closed"),
			wantAck:   true,
			wantWaken: true,
		},
		{
			name:     "malformed json",
			body:     `{not-json`,
			wantNack: true,
		},
		{
			name:     "job id is not a uuid",
			body:     `{"job_id":"123","queue":"emails"}`,
			wantNack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(t, &fakeStore{}, NewRegistry(), &recordingSink{})
			ack := &fakeAck{ackErr: tt.ackErr}

			w.handleWakeup([]byte(tt.body), ack)

			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, tt.wantNack, ack.nacked)
			assert.False(t, ack.requeued)
			assert.Equal(t, tt.wantWaken, len(w.wakeChan) == 1)
		})
	}
}
