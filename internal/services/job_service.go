package services

import (
	"github.com/sjperalta/fintera-cashflow/internal/jobs"
)

type JobService struct {
	worker *jobs.Worker
}

func NewJobService(worker *jobs.Worker) *JobService {
	return &JobService{
		worker: worker,
	}
}

// GetStatus returns the worker statistics
func (s *JobService) GetStatus() jobs.WorkerStats {
	return s.worker.GetStats()
}
