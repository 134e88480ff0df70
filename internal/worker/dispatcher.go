package worker

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrDispatcherBusy is returned when the job queue is full.
var ErrDispatcherBusy = errors.New("dispatcher queue is full")

type userQueue struct {
	jobs     []Job
	enqueued bool
}

// Dispatcher schedules jobs fairly across users: each user holds one slot
// in an LRU ready list, so a flood from one user cannot starve the rest.
type Dispatcher struct {
	pool     *jobChannelPool
	jobQueue chan Job
	log      zerolog.Logger

	mu        sync.Mutex
	queues    map[string]*userQueue
	ready     *list.List
	positions map[string]*list.Element
}

func NewDispatcher(minWorkers, maxWorkers, queueSize int, idleTimeout time.Duration, log zerolog.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		pool:      newJobChannelPool(minWorkers, maxWorkers, idleTimeout),
		jobQueue:  make(chan Job, queueSize),
		log:       log,
		queues:    make(map[string]*userQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
	}

	for i := 0; i < minWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Submit queues the job without blocking the caller.
func (d *Dispatcher) Submit(job Job) error {
	if job.Fn == nil {
		return errors.New("job requires a function")
	}
	job.Type = Run
	select {
	case d.jobQueue <- job:
		return nil
	default:
		return ErrDispatcherBusy
	}
}

func (d *Dispatcher) run() {
	for {
		d.drainQueue()
		if !d.dispatchOne() {
			job := <-d.jobQueue
			d.enqueueJob(job)
		}
	}
}

// drainQueue moves every pending job into its user queue so fairness
// applies across all users before the next dispatch.
func (d *Dispatcher) drainQueue() {
	for {
		select {
		case job := <-d.jobQueue:
			d.enqueueJob(job)
		default:
			return
		}
	}
}

// CancelUser drops the user's queued jobs. Jobs already dispatched keep
// running.
func (d *Dispatcher) CancelUser(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.queues, userID)
	if elem, ok := d.positions[userID]; ok {
		d.ready.Remove(elem)
		delete(d.positions, userID)
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.UserID]
	if q == nil {
		q = &userQueue{}
		d.queues[job.UserID] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		return
	}
	q.enqueued = true
	elem := d.ready.PushBack(job.UserID)
	d.positions[job.UserID] = elem
}

// dispatchOne takes the next ready user's first job and hands it to a
// worker, rotating the user to the back of the ready list. The worker is
// acquired before picking the job so jobs arriving while the pool is
// saturated still schedule fairly.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	empty := d.ready.Front() == nil
	d.mu.Unlock()
	if empty {
		return false
	}

	workerChan := d.pool.acquire()
	d.drainQueue()

	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil {
		// Queued work was cancelled while waiting for a worker.
		d.mu.Unlock()
		d.pool.Release(workerChan)
		return false
	}

	userID := elem.Value.(string)
	q := d.queues[userID]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		q.enqueued = false
		d.ready.Remove(elem)
		delete(d.positions, userID)
		delete(d.queues, userID)
	} else {
		d.ready.MoveToBack(elem)
	}
	d.mu.Unlock()

	d.log.Debug().Str("user_id", userID).Msg("job assigned to worker")
	workerChan <- job
	return true
}
