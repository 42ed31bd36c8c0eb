package reporter

// Status values reported for a queue or for the whole system
const (
	StatusHealthy  = "healthy"
	StatusBusy     = "busy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Thresholds. All comparisons are strict.
const (
	queueFailedCritical   = 10
	queueFailedWarning    = 5
	queuePendingBusy      = 50
	overallFailedCritical = 20
	overallFailedWarning  = 10
	overallJobsBusy       = 100
	reservedStuck         = 50
)

// Recommendation messages, in the order they are emitted
const (
	RecommendReviewFailed  = "High number of failed jobs detected. Review failed jobs and fix underlying issues."
	RecommendScaleWorkers  = "Queue is getting busy. Consider scaling up queue workers."
	RecommendCheckWorkers  = "Many jobs are stuck in reserved state. Check if queue workers are running properly."
	RecommendOperatingFine = "Queue system is operating normally."
)

// QueueStatus classifies a single queue from its pending and failed counts
func QueueStatus(pending, failed int) string {
	switch {
	case failed > queueFailedCritical:
		return StatusCritical
	case failed > queueFailedWarning:
		return StatusWarning
	case pending > queuePendingBusy:
		return StatusBusy
	default:
		return StatusHealthy
	}
}

// OverallStatus classifies the whole system from total job and failure counts
func OverallStatus(totalJobs, totalFailed int) string {
	switch {
	case totalFailed > overallFailedCritical:
		return StatusCritical
	case totalFailed > overallFailedWarning:
		return StatusWarning
	case totalJobs > overallJobsBusy:
		return StatusBusy
	default:
		return StatusHealthy
	}
}

// Recommendations returns operator hints for the given totals. It is never empty.
func Recommendations(totalJobs, totalFailed, totalReserved int) []string {
	var recs []string

	if totalFailed > overallFailedWarning {
		recs = append(recs, RecommendReviewFailed)
	}
	if totalJobs > overallJobsBusy {
		recs = append(recs, RecommendScaleWorkers)
	}
	if totalReserved > reservedStuck {
		recs = append(recs, RecommendCheckWorkers)
	}

	if len(recs) == 0 {
		recs = append(recs, RecommendOperatingFine)
	}
	return recs
}
