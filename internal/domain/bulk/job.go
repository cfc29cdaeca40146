package bulk

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const retainedJobs = 256

// Job is one running or finished bulk job.
type Job struct {
	ID     string
	req    Request
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu         sync.Mutex
	status     Status
	results    []Result
	cancelled  bool
	err        string
	startedAt  time.Time
	finishedAt *time.Time
}

func newJob(req Request, cancel context.CancelFunc) *Job {
	return &Job{
		ID:        uuid.NewString(),
		req:       req,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    StatusRunning,
		startedAt: time.Now().UTC(),
	}
}

// Cancel asks the job to stop at its next checkpoint.
func (j *Job) Cancel() {
	j.mu.Lock()
	j.cancelled = true
	j.mu.Unlock()
	j.cancel()
}

// Cancelled reports whether Cancel was called.
func (j *Job) Cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// Done is closed when the job finishes.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-j.done:
		return j.Snapshot(), nil
	case <-ctx.Done():
		return j.Snapshot(), ctx.Err()
	}
}

// Snapshot copies the job's current progress.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:         j.ID,
		Kind:       j.req.Kind,
		Target:     j.req.Target,
		Status:     j.status,
		Total:      len(j.req.Identifiers),
		Completed:  len(j.results),
		Results:    append([]Result(nil), j.results...),
		Error:      j.err,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
	}
}

func (j *Job) add(r Result) {
	j.mu.Lock()
	j.results = append(j.results, r)
	j.mu.Unlock()
}

func (j *Job) finish(status Status, errMsg string) {
	j.once.Do(func() {
		j.mu.Lock()
		now := time.Now().UTC()
		j.status = status
		j.err = errMsg
		j.finishedAt = &now
		j.mu.Unlock()
		j.cancel()
		close(j.done)
	})
}

func (j *Job) finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// registry tracks jobs by id. Past its limit it drops the oldest finished
// jobs; running jobs are never dropped.
type registry struct {
	mu    sync.Mutex
	limit int
	jobs  map[string]*Job
	order []string
}

func newRegistry(limit int) *registry {
	return &registry{limit: limit, jobs: make(map[string]*Job)}
}

func (r *registry) add(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
	r.order = append(r.order, j.ID)
	r.prune()
}

func (r *registry) prune() {
	excess := len(r.order) - r.limit
	if excess <= 0 {
		return
	}
	kept := r.order[:0]
	for _, id := range r.order {
		if excess > 0 && r.jobs[id].finished() {
			delete(r.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func (r *registry) get(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

// list returns the jobs oldest first.
func (r *registry) list() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.jobs[id])
	}
	return out
}
