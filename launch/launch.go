//go:build unix

// Package launch runs an ordered list of child programs, one at a time, each
// with the same explicitly constructed environment block.
package launch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"time"
)

// Descriptor names a program to launch and the label printed before it runs.
type Descriptor struct {
	Program string `json:"program" validate:"required"`
	Label   string `json:"label"`
}

// Outcome records what happened to one descriptor.
type Outcome struct {
	Descriptor

	// Pid is the child's process id, or 0 if it never started.
	Pid int
	// Status is how the child terminated. Only meaningful when Err is nil.
	Status ExitStatus
	// Err is set when the child could not be spawned or waited for, or when
	// the run was cancelled before this descriptor was reached.
	Err error
	// Duration is the wall time from spawn to reap.
	Duration time.Duration
}

// Failed reports whether the child did not run to a successful exit.
func (o Outcome) Failed() bool {
	return o.Err != nil || !o.Status.Success()
}

// Result is a short human readable description of the outcome.
func (o Outcome) Result() string {
	switch {
	case o.Err != nil:
		return "error: " + o.Err.Error()
	case o.Status.Success():
		return "ok"
	default:
		return o.Status.String()
	}
}

// Launcher runs children sequentially.
type Launcher struct {
	// Spawner creates the children.
	Spawner Spawner
	// Diag receives progress lines and per-child diagnostics. Nil discards them.
	Diag io.Writer
	// Color enables ANSI colors in the progress line.
	Color bool
	// Logger receives debug records. Nil discards them.
	Logger *slog.Logger
}

// LaunchAll runs each descriptor in order, waiting for every child to
// terminate before starting the next. A failure in one slot does not stop
// later slots. If ctx is cancelled, the running child gets SIGTERM and the
// remaining descriptors are not started; their outcomes carry ctx.Err().
func (l *Launcher) LaunchAll(ctx context.Context, descriptors []Descriptor, env []string) []Outcome {
	outcomes := make([]Outcome, 0, len(descriptors))

	for _, d := range descriptors {
		err := ctx.Err()
		if err != nil {
			l.logger().Debug("skipping child", "program", d.Program, "reason", err)
			outcomes = append(outcomes, Outcome{Descriptor: d, Err: err})

			continue
		}

		outcomes = append(outcomes, l.LaunchOne(ctx, d, env))
	}

	return outcomes
}

// LaunchOne prints the progress line for d, spawns d.Program with argv
// [d.Program] and environment env, and blocks until it terminates.
//
// Spawn failures are reported to Diag and returned in the Outcome; they never
// panic or abort the caller.
func (l *Launcher) LaunchOne(ctx context.Context, d Descriptor, env []string) Outcome {
	l.fprintf("%s", Banner(d, l.Color))

	log := l.logger().With("program", d.Program)
	out := Outcome{Descriptor: d}

	start := time.Now()

	child, err := l.Spawner.Spawn(d.Program, []string{d.Program}, env)
	if err != nil {
		out.Err = fmt.Errorf("spawn %s: %w", d.Program, err)
		l.fprintf("envprop: %v\n", out.Err)
		log.Debug("spawn failed", "error", err)

		return out
	}

	out.Pid = child.Pid()
	log.Debug("spawned", "pid", out.Pid, "env_entries", len(env))

	// Forward cancellation as SIGTERM so the child can shut down cleanly.
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			log.Debug("context cancelled, sending SIGTERM", "pid", out.Pid)

			_ = child.Signal(syscall.SIGTERM)
		case <-done:
		}
	}()

	status, err := child.Wait()

	close(done)

	out.Duration = time.Since(start)
	out.Status = status

	if err != nil {
		out.Err = err
		l.fprintf("envprop: %s: %v\n", d.Program, err)
		log.Debug("wait failed", "error", err)

		return out
	}

	log.Debug("reaped", "pid", out.Pid, "status", status.String(), "duration", out.Duration)

	if !status.Success() {
		l.fprintf("envprop: %s: %s\n", d.Program, status)
	}

	return out
}

func (l *Launcher) fprintf(format string, a ...any) {
	if l.Diag == nil {
		return
	}

	_, _ = fmt.Fprintf(l.Diag, format, a...)
}

func (l *Launcher) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return l.Logger
}
