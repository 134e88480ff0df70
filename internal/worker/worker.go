// Package worker runs generation jobs on a bounded pool with per-user
// fair scheduling.
package worker

type JobType string

const (
	Run  JobType = "run"
	Stop JobType = "stop"
)

// Job is one unit of background work attributed to a user.
type Job struct {
	Type   JobType
	UserID string
	Fn     func()
}

type Worker struct {
	pool       *jobChannelPool
	jobChannel chan Job
}

func NewWorker(pool *jobChannelPool) *Worker {
	return &Worker{
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		// Offer the fresh worker to the pool before the first job.
		w.pool.Release(w.jobChannel)
		for job := range w.jobChannel {
			if job.Type == Stop {
				w.pool.retire(w.jobChannel)
				return
			}
			if job.Fn != nil {
				job.Fn()
			}
			w.pool.Release(w.jobChannel)
		}
	}()
}
