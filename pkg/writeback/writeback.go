package writeback

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
	"unicode/utf8"

	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
)

// DefaultDelay is the pause between two character insertions.
const DefaultDelay = 10 * time.Millisecond

// DefaultLockTTL bounds how long a distributed lock outlives a crashed job.
const DefaultLockTTL = 30 * time.Second

// clearAttempts bounds retries of the clear step when the document shrinks under us.
const clearAttempts = 3

// Outcome describes how a job ended.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeCancelled  Outcome = "cancelled"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeFailed     Outcome = "failed"
)

// Hooks are optional callbacks fired during a job. They must not block.
type Hooks struct {
	OnStart  func(doc string, total int)
	OnRune   func(doc string, cursor, total int)
	OnFinish func(doc string, outcome Outcome, err error)
}

// Options configures a write-back.
type Options struct {
	// Delay between two insertions. Zero still yields to the scheduler.
	Delay time.Duration

	// Locker, if set, serializes jobs on the same document across processes.
	Locker  ports.DistributedLocker
	LockTTL time.Duration

	Hooks Hooks
}

// Run replaces the contents of doc with text, one character per edit.
// It returns nil once the document holds text, or the first error encountered.
func Run(ctx context.Context, doc ports.Document, text string, opts Options) error {
	_, err := run(ctx, doc, split(text), opts, nil)
	return err
}

// split cuts text into the units inserted one per edit: each valid UTF-8 sequence,
// and each invalid byte on its own, so joining them gives back text unchanged.
func split(text string) []string {
	out := make([]string, 0, utf8.RuneCountInString(text))
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		out = append(out, text[i:i+size])
		i += size
	}
	return out
}

func run(ctx context.Context, doc ports.Document, target []string, opts Options, progress func(int)) (Outcome, error) {
	name := doc.Name()
	total := len(target)
	if opts.Hooks.OnStart != nil {
		opts.Hooks.OnStart(name, total)
	}

	outcome, err := replay(ctx, doc, target, opts, progress)
	if opts.Hooks.OnFinish != nil {
		opts.Hooks.OnFinish(name, outcome, err)
	}
	return outcome, err
}

func replay(ctx context.Context, doc ports.Document, target []string, opts Options, progress func(int)) (Outcome, error) {
	if opts.Locker != nil {
		ttl := opts.LockTTL
		if ttl <= 0 {
			ttl = DefaultLockTTL
		}
		unlock, err := opts.Locker.Lock(ctx, doc.Name(), ttl)
		if err != nil {
			return stopped(ctx, fmt.Errorf("lock %s: %w", doc.Name(), err))
		}
		defer func() {
			_ = unlock(context.WithoutCancel(ctx))
		}()
	}

	// 1. Clear, awaited before the first insertion.
	if err := clearDocument(ctx, doc); err != nil {
		return stopped(ctx, err)
	}

	// 2-4. Insert one character at the current end, await, advance, pause.
	for cursor, ch := range target {
		if ctx.Err() != nil {
			return stopped(ctx, nil)
		}

		end, err := doc.Len(ctx)
		if err != nil {
			return stopped(ctx, fmt.Errorf("write-back %s: %w", doc.Name(), err))
		}
		if err := doc.Replace(ctx, domain.At(end), ch); err != nil {
			return stopped(ctx, fmt.Errorf("write-back %s: %w", doc.Name(), err))
		}

		if progress != nil {
			progress(cursor + 1)
		}
		if opts.Hooks.OnRune != nil {
			opts.Hooks.OnRune(doc.Name(), cursor+1, len(target))
		}

		if cursor+1 < len(target) {
			if err := pause(ctx, opts.Delay); err != nil {
				return stopped(ctx, nil)
			}
		}
	}

	return OutcomeCompleted, nil
}

func clearDocument(ctx context.Context, doc ports.Document) error {
	var err error
	for attempt := 0; attempt < clearAttempts; attempt++ {
		var n int
		n, err = doc.Len(ctx)
		if err != nil {
			break
		}
		err = doc.Replace(ctx, domain.Full(n), "")
		if !errors.Is(err, domain.ErrInvalidRange) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("clear %s: %w", doc.Name(), err)
	}
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// stopped classifies the end of a job. A cancelled context wins over the edit error
// it usually causes.
func stopped(ctx context.Context, err error) (Outcome, error) {
	if ctx.Err() == nil {
		return OutcomeFailed, err
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, domain.ErrSuperseded) {
		return OutcomeSuperseded, fmt.Errorf("%w: %w", domain.ErrSuperseded, ctx.Err())
	}
	return OutcomeCancelled, ctx.Err()
}
