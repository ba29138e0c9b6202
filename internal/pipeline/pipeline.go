// Package pipeline runs the ordered stages of one batch job.
//
// A stage is registered with the State the orchestrator is in while it runs.
// Stages must be registered in the order extract, transform, load, report
// (any of them may be left out). Stages only communicate through artifacts
// on disk, so the orchestrator passes nothing between them; it only decides
// whether the next one runs:
//
//	o, err := pipeline.New("crypto", pipeline.FailFast, log,
//		pipeline.Stage{Name: "extract", State: pipeline.Extracting, Run: fetch},
//		pipeline.Stage{Name: "load", State: pipeline.Loading, Run: load},
//	)
//	run := o.Run(ctx)
//	os.Exit(run.ExitCode())
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"batchetl/internal/etlerr"
	"batchetl/internal/metrics"
)

// Stage is one unit of work.
type Stage struct {
	Name  string
	State State
	Run   func(ctx context.Context) error
}

// Outcome records what happened to one stage.
type Outcome struct {
	Stage    string
	State    State
	Status   Status
	Kind     etlerr.Kind
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Run is the record of one orchestrator run. It is never persisted.
type Run struct {
	ID       string
	Job      string
	Policy   Policy
	State    State
	Started  time.Time
	Ended    time.Time
	Outcomes []Outcome
}

// Err joins the errors of all failed stages, in stage order.
func (r *Run) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Stage, o.Err))
		}
	}
	return errors.Join(errs...)
}

// ExitCode is 0 for a successful run and 1 otherwise.
func (r *Run) ExitCode() int {
	if r.State == Succeeded {
		return 0
	}
	return 1
}

// Orchestrator runs a fixed, validated list of stages.
type Orchestrator struct {
	job    string
	policy Policy
	stages []Stage
	log    *slog.Logger

	now   func() time.Time
	newID func() string
}

// New validates the stage order and returns an orchestrator. Stage states
// must be working states in strictly increasing order.
func New(job string, policy Policy, log *slog.Logger, stages ...Stage) (*Orchestrator, error) {
	if policy == "" {
		policy = FailFast
	}
	if policy != FailFast && policy != BestEffort {
		return nil, fmt.Errorf("pipeline: unknown policy %q", policy)
	}
	if len(stages) == 0 {
		return nil, errors.New("pipeline: no stages")
	}

	prev := Idle
	for i, s := range stages {
		switch {
		case s.Run == nil:
			return nil, fmt.Errorf("pipeline: stage %d (%s) has no Run func", i, s.Name)
		case !s.State.working():
			return nil, fmt.Errorf("pipeline: stage %d (%s) has non-stage state %s", i, s.Name, s.State)
		case s.State <= prev:
			return nil, fmt.Errorf("pipeline: stage %d (%s) state %s after %s: order must be extract, transform, load, report", i, s.Name, s.State, prev)
		}
		prev = s.State
	}

	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		job:    job,
		policy: policy,
		stages: append([]Stage(nil), stages...),
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Run executes the stages once. It never returns nil; inspect the Run's
// State, Outcomes and Err.
func (o *Orchestrator) Run(ctx context.Context) *Run {
	run := &Run{
		ID:       o.newID(),
		Job:      o.job,
		Policy:   o.policy,
		State:    Idle,
		Started:  o.now(),
		Outcomes: make([]Outcome, 0, len(o.stages)),
	}
	log := o.log.With("run_id", run.ID, "job", o.job)
	log.Info("pipeline: run started", "policy", o.policy, "stages", len(o.stages))

	failed := false
	for _, s := range o.stages {
		if failed && o.policy == FailFast {
			run.Outcomes = append(run.Outcomes, Outcome{Stage: s.Name, State: s.State, Status: StatusSkipped})
			metrics.RecordSkip(o.job, s.Name)
			log.Warn("pipeline: stage skipped", "stage", s.Name, "state", s.State, "reason", "earlier stage failed")
			continue
		}

		run.State = s.State
		out := o.runStage(ctx, log, s)
		run.Outcomes = append(run.Outcomes, out)
		if out.Status == StatusFailed {
			failed = true
		}
	}

	run.State = Succeeded
	if failed {
		run.State = Failed
	}
	run.Ended = o.now()

	attrs := []any{"state", run.State, "elapsed", run.Ended.Sub(run.Started).Truncate(time.Millisecond)}
	if failed {
		log.Error("pipeline: run finished", append(attrs, "error", run.Err())...)
	} else {
		log.Info("pipeline: run finished", attrs...)
	}
	return run
}

func (o *Orchestrator) runStage(ctx context.Context, log *slog.Logger, s Stage) Outcome {
	out := Outcome{Stage: s.Name, State: s.State, Started: o.now()}
	log.Info("pipeline: stage started", "stage", s.Name, "state", s.State)

	err := s.Run(ctx)
	out.Duration = o.now().Sub(out.Started)
	metrics.RecordStep(o.job, s.Name, err, out.Duration)

	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		out.Kind = etlerr.KindOf(err)
		log.Error("pipeline: stage failed",
			"stage", s.Name,
			"state", s.State,
			"kind", out.Kind,
			"error", err,
			"duration", out.Duration,
		)
		return out
	}

	out.Status = StatusSucceeded
	log.Info("pipeline: stage succeeded", "stage", s.Name, "state", s.State, "duration", out.Duration)
	return out
}
