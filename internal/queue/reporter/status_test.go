package reporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueStatus(t *testing.T) {
	tests := []struct {
		name     string
		pending  int
		failed   int
		expected string
	}{
		{name: "empty queue", pending: 0, failed: 0, expected: StatusHealthy},
		{name: "pending at threshold", pending: 50, failed: 0, expected: StatusHealthy},
		{name: "pending above threshold", pending: 51, failed: 0, expected: StatusBusy},
		{name: "failed at warning threshold", pending: 0, failed: 5, expected: StatusHealthy},
		{name: "failed above warning threshold", pending: 0, failed: 6, expected: StatusWarning},
		{name: "failed at critical threshold", pending: 0, failed: 10, expected: StatusWarning},
		{name: "failed above critical threshold", pending: 0, failed: 11, expected: StatusCritical},
		{name: "failures win over busy", pending: 100, failed: 6, expected: StatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QueueStatus(tt.pending, tt.failed))
		})
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		jobs     int
		failed   int
		expected string
	}{
		{name: "idle", jobs: 0, failed: 0, expected: StatusHealthy},
		{name: "jobs at threshold", jobs: 100, failed: 0, expected: StatusHealthy},
		{name: "jobs above threshold", jobs: 101, failed: 0, expected: StatusBusy},
		{name: "failed at warning threshold", jobs: 0, failed: 10, expected: StatusHealthy},
		{name: "failed above warning threshold", jobs: 0, failed: 11, expected: StatusWarning},
		{name: "failed at critical threshold", jobs: 0, failed: 20, expected: StatusWarning},
		{name: "failed above critical threshold", jobs: 500, failed: 21, expected: StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OverallStatus(tt.jobs, tt.failed))
		})
	}
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name     string
		jobs     int
		failed   int
		reserved int
		expected []string
	}{
		{name: "normal operation", expected: []string{RecommendOperatingFine}},
		{name: "failed jobs", failed: 11, expected: []string{RecommendReviewFailed}},
		{name: "busy", jobs: 101, expected: []string{RecommendScaleWorkers}},
		{name: "stuck reservations", jobs: 60, reserved: 51, expected: []string{RecommendCheckWorkers}},
		{
			name:     "everything at once keeps order",
			jobs:     200,
			failed:   30,
			reserved: 80,
			expected: []string{RecommendReviewFailed, RecommendScaleWorkers, RecommendCheckWorkers},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Recommendations(tt.jobs, tt.failed, tt.reserved))
		})
	}
}
