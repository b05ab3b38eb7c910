package vm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jbweber/vmtui/internal/fetch"
	"github.com/jbweber/vmtui/internal/naming"
	"github.com/jbweber/vmtui/internal/stream"
)

// StepKind selects how a step runs.
type StepKind int

const (
	// StepFunc runs Func in-process.
	StepFunc StepKind = iota
	// StepStream runs Argv through the stream supervisor.
	StepStream
	// StepFetch downloads URL to Dest.
	StepFetch
)

// Step is one titled unit of a workflow.
type Step struct {
	Title string
	Kind  StepKind

	Func func(ctx context.Context) error
	Argv []string
	URL  string
	Dest string

	// SkipIfExists skips a fetch whose destination was completely
	// downloaded by an earlier run.
	SkipIfExists bool
	// IgnoreFailure logs a failure and carries on.
	IgnoreFailure bool
}

// Plan is an ordered workflow with a closing message.
type Plan struct {
	Name  string
	Steps []Step
	Done  string
}

// EventKind says what an Event reports.
type EventKind int

const (
	StepStarted EventKind = iota
	StepOutput
	StepProgress
	StepSkipped
	StepFinished
)

// Event is one report from a running plan.
type Event struct {
	Kind     EventKind
	Index    int
	Total    int
	Title    string
	Stream   bool
	Line     string
	Progress fetch.Progress
	Err      error
}

// Observer receives plan events in order. It is called from the goroutine
// running the plan.
type Observer func(Event)

// Outcome is the result of a plan.
type Outcome struct {
	OK bool
	// Message is Done on success, or the failed step title plus error text.
	Message string
	// FailedStep is the title of the step that aborted the plan.
	FailedStep string
	ErrorText  string
	Sessions   []*stream.Session
}

// Executor runs plans.
type Executor struct {
	streams streamRunner
	fetcher downloader
}

// NewExecutor returns an Executor.
func NewExecutor(streams streamRunner, fetcher downloader) *Executor {
	return &Executor{streams: streams, fetcher: fetcher}
}

// Run executes plan step by step, blocking until the plan completes or a
// step fails.
func (e *Executor) Run(ctx context.Context, plan Plan, observe Observer) Outcome {
	if observe == nil {
		observe = func(Event) {}
	}

	log.Info("plan start", "plan", plan.Name, "steps", len(plan.Steps))
	var out Outcome

	for i, step := range plan.Steps {
		ev := Event{Index: i, Total: len(plan.Steps), Title: step.Title, Stream: step.Kind != StepFunc}

		if step.Kind == StepFetch && step.SkipIfExists && downloaded(step.Dest) {
			log.Info("step skipped", "plan", plan.Name, "step", step.Title, "dest", step.Dest)
			ev.Kind = StepSkipped
			observe(ev)
			continue
		}

		ev.Kind = StepStarted
		observe(ev)
		log.Info("step start", "plan", plan.Name, "step", step.Title)

		errText := e.runStep(ctx, step, ev, observe, &out)

		ev.Kind = StepFinished
		if errText != "" {
			ev.Err = errors.New(errText)
		}
		observe(ev)

		if errText == "" {
			continue
		}
		if step.IgnoreFailure {
			log.Info("step failed, continuing", "plan", plan.Name, "step", step.Title, "error", errText)
			continue
		}

		log.Error("plan aborted", "plan", plan.Name, "step", step.Title, "error", errText)
		out.FailedStep = step.Title
		out.ErrorText = errText
		out.Message = fmt.Sprintf("%s failed:\n%s", step.Title, errText)
		return out
	}

	log.Info("plan done", "plan", plan.Name)
	out.OK = true
	out.Message = plan.Done
	return out
}

// runStep runs one step and returns its error text, empty on success.
func (e *Executor) runStep(ctx context.Context, step Step, ev Event, observe Observer, out *Outcome) string {
	switch step.Kind {
	case StepFunc:
		if step.Func == nil {
			return ""
		}
		if err := step.Func(ctx); err != nil {
			return err.Error()
		}
		return ""

	case StepStream:
		sink := stream.SinkFunc(func(line string) error {
			le := ev
			le.Kind = StepOutput
			le.Line = line
			observe(le)
			return nil
		})
		sess := e.streams.Run(ctx, step.Title, step.Argv, sink)
		out.Sessions = append(out.Sessions, sess)
		_, text := sess.Result()
		return text

	case StepFetch:
		marker := naming.CompleteMarker(step.Dest)
		if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Sprintf("failed to clear %s: %v", marker, err)
		}
		_, err := e.fetcher.Fetch(ctx, step.URL, step.Dest, func(p fetch.Progress) {
			pe := ev
			pe.Kind = StepProgress
			pe.Progress = p
			observe(pe)
		})
		if err != nil {
			return err.Error()
		}
		if err := os.WriteFile(marker, nil, 0o644); err != nil {
			return fmt.Sprintf("failed to mark %s complete: %v", step.Dest, err)
		}
		return ""
	}
	return fmt.Sprintf("unknown step kind %d", step.Kind)
}

// downloaded reports whether dest and its completion marker both exist. A
// failed fetch leaves dest behind without the marker.
func downloaded(dest string) bool {
	return exists(dest) && exists(naming.CompleteMarker(dest))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
