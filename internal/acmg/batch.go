package acmg

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-acmg/internal/variant"
)

// Job is one variant queued for batch classification. Variant is used when
// set; otherwise Input is resolved.
type Job struct {
	Seq     int
	Input   string
	Variant variant.Variant
	Source  any // caller data carried through to the Outcome
}

// Outcome is the classification of one Job.
type Outcome struct {
	Job
	Result *Result
	Err    error
}

// ClassifyStream classifies jobs on a pool of workers and passes each
// outcome to emit in Seq order. Sequence numbers start at zero without
// gaps. Classification failures are reported on the Outcome; an error from
// emit stops the workers and is returned. If workers is 0, runtime.NumCPU()
// is used.
func (e *Engine) ClassifyStream(ctx context.Context, jobs <-chan Job, workers int, emit func(Outcome) error) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan Outcome, 2*workers)
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for job := range jobs {
				outcomes <- e.runJob(ctx, job)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(outcomes)
	}()

	seq := newSequencer(emit)
	for o := range outcomes {
		if err := seq.add(o); err != nil {
			cancel()
			for range outcomes {
			}
			return err
		}
	}
	return nil
}

func (e *Engine) runJob(ctx context.Context, job Job) Outcome {
	out := Outcome{Job: job}
	switch {
	case ctx.Err() != nil:
		out.Err = ctx.Err()
	case job.Variant != nil:
		out.Result, out.Err = e.ClassifyVariant(ctx, job.Variant)
		if out.Result != nil && job.Input != "" {
			out.Result.Input = job.Input
		}
	default:
		out.Result, out.Err = e.Classify(ctx, job.Input)
	}
	return out
}

// sequencer holds outcomes that arrive ahead of their turn.
type sequencer struct {
	emit    func(Outcome) error
	next    int
	waiting map[int]Outcome
}

func newSequencer(emit func(Outcome) error) *sequencer {
	return &sequencer{emit: emit, waiting: make(map[int]Outcome)}
}

// add queues o and emits every outcome that is now in turn.
func (s *sequencer) add(o Outcome) error {
	if o.Seq != s.next {
		s.waiting[o.Seq] = o
		return nil
	}
	for {
		if err := s.emit(o); err != nil {
			return err
		}
		s.next++
		var ok bool
		if o, ok = s.waiting[s.next]; !ok {
			return nil
		}
		delete(s.waiting, s.next)
	}
}
