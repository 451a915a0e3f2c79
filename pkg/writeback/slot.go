package writeback

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
)

// Job is a handle on an in-flight write-back.
type Job struct {
	doc     ports.Document
	total   int
	cursor  atomic.Int64
	outcome Outcome
	err     error
	cancel  context.CancelCauseFunc
	done    chan struct{}
}

// Document returns the document being written.
func (j *Job) Document() ports.Document {
	return j.doc
}

// Progress returns the number of characters written so far and the total.
func (j *Job) Progress() (cursor, total int) {
	return int(j.cursor.Load()), j.total
}

// Active reports whether the job is still running.
func (j *Job) Active() bool {
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

// Done is closed when the job has stopped.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job stops or ctx is done, and returns the job's error.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome returns how the job ended. Only meaningful once Done is closed.
func (j *Job) Outcome() Outcome {
	<-j.done
	return j.outcome
}

// Cancel stops the job with context.Canceled and waits for it.
func (j *Job) Cancel() {
	j.cancel(context.Canceled)
	<-j.done
}

// Slot holds at most one active job.
type Slot struct {
	opts    Options
	mu      sync.Mutex
	current *Job
}

// NewSlot creates a slot whose jobs use opts.
func NewSlot(opts Options) *Slot {
	return &Slot{opts: opts}
}

// Start cancels the current job, if any, waits for it to stop, and starts a new one
// writing text into doc. The job runs until it completes or ctx is cancelled.
func (s *Slot) Start(ctx context.Context, doc ports.Document, text string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev := s.current; prev != nil {
		prev.cancel(domain.ErrSuperseded)
		<-prev.done
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	target := split(text)
	job := &Job{
		doc:    doc,
		total:  len(target),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.current = job

	go func() {
		defer close(job.done)
		defer cancel(nil)
		job.outcome, job.err = run(jobCtx, doc, target, s.opts, func(n int) {
			job.cursor.Store(int64(n))
		})
	}()

	return job
}

// Current returns the most recently started job, or nil.
func (s *Slot) Current() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Cancel stops the current job, if any, and waits for it.
func (s *Slot) Cancel() {
	s.mu.Lock()
	job := s.current
	s.mu.Unlock()

	if job != nil {
		job.Cancel()
	}
}
