package dto

import (
	"time"

	"github.com/cuongbtq/property-be/internal/queue"
)

type QueueStatsRequest struct {
	Queue    string `form:"queue"`
	Detailed bool   `form:"detailed"`
}

type ListFailedJobsRequest struct {
	Queue string `form:"queue"`
	Limit int    `form:"limit"`
}

type FailedJobDTO struct {
	ID               string    `json:"id"`
	JobID            string    `json:"job_id"`
	Queue            string    `json:"queue"`
	Kind             string    `json:"kind"`
	Attempts         int       `json:"attempts"`
	ExceptionSummary string    `json:"exception_summary"`
	Exception        string    `json:"exception"`
	FailedAt         time.Time `json:"failed_at"`
}

func NewFailedJobDTOs(failed []queue.FailedJob) []FailedJobDTO {
	out := make([]FailedJobDTO, len(failed))
	for i, f := range failed {
		out[i] = FailedJobDTO{
			ID:               f.ID,
			JobID:            f.JobID,
			Queue:            f.Queue,
			Kind:             f.Payload.Kind,
			Attempts:         f.Attempts,
			ExceptionSummary: queue.SummarizeException(f.Exception),
			Exception:        f.Exception,
			FailedAt:         f.FailedAt,
		}
	}
	return out
}

type RetryFailedJobResponse struct {
	JobID string `json:"job_id"`
	Queue string `json:"queue"`
}
