//go:build unix

package launch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrWaitDelay is returned by Wait when the child exited but its output
// pipes were still held open after WaitDelay elapsed.
var ErrWaitDelay = errors.New("output pipes still open after wait delay")

// Spawner creates child processes.
type Spawner interface {
	// Spawn starts program with exactly argv and env. It returns once the
	// child is running or creation failed; it never waits for the child.
	Spawn(program string, argv, env []string) (Child, error)
}

// Child is a running child process.
type Child interface {
	// Pid returns the process id.
	Pid() int
	// Wait blocks until the child terminates and reaps it.
	Wait() (ExitStatus, error)
	// Signal delivers sig to the child.
	Signal(sig os.Signal) error
}

// ExitStatus is how a child terminated.
type ExitStatus struct {
	// Code is the exit code, or -1 when the child was killed by a signal.
	Code int
	// Signal is the terminating signal, or 0 for a normal exit.
	Signal unix.Signal
}

// Success reports a normal exit with code 0.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == 0
}

func (s ExitStatus) String() string {
	if s.Signal != 0 {
		name := unix.SignalName(s.Signal)
		if name == "" {
			name = s.Signal.String()
		}

		return "killed by signal " + name
	}

	return fmt.Sprintf("exit status %d", s.Code)
}

// OSSpawner starts real processes with os.StartProcess.
//
// The environment is handed to the kernel as given. os/exec is not used
// because exec.Cmd deduplicates Env, which would hide the duplicate entries
// this package exists to pass through.
type OSSpawner struct {
	// Dir is the child's working directory. Empty means the caller's.
	Dir string
	// Stdin is handed to the child when it is an *os.File; anything else
	// (including nil) gives the child /dev/null.
	Stdin io.Reader
	// Stdout and Stderr receive the child's output. *os.File values are
	// inherited directly; other writers are fed through a pipe. Nil means
	// /dev/null. When both are the same writer, the child gets a single
	// pipe and at most one goroutine writes to it at a time.
	Stdout io.Writer
	Stderr io.Writer
	// WaitDelay bounds how long Wait keeps copying output after the child
	// exits. A grandchild that inherited the pipe can otherwise hold Wait
	// until it exits too. Zero waits for end of file.
	WaitDelay time.Duration
}

// Spawn implements [Spawner].
func (s *OSSpawner) Spawn(program string, argv, env []string) (Child, error) {
	if env == nil {
		// os.StartProcess treats a nil Env as "inherit the parent's".
		env = []string{}
	}

	var (
		closeAfterStart []*os.File
		readers         []*os.File
		copiers         []func() error
	)

	fail := func(err error) (Child, error) {
		return nil, errors.Join(err, closeFiles(closeAfterStart...), closeFiles(readers...))
	}

	stdin, ok := s.Stdin.(*os.File)
	if !ok || stdin == nil {
		devNull, err := os.Open(os.DevNull)
		if err != nil {
			return fail(fmt.Errorf("open %s for stdin: %w", os.DevNull, err))
		}

		stdin = devNull
		closeAfterStart = append(closeAfterStart, devNull)
	}

	files := []*os.File{stdin}

	for i, w := range []io.Writer{s.Stdout, s.Stderr} {
		if i == 1 && interfaceEqual(s.Stdout, s.Stderr) {
			files = append(files, files[1])

			continue
		}

		out, err := outputFile(w)
		if err != nil {
			return fail(err)
		}

		files = append(files, out.child)

		if out.closeAfterStart != nil {
			closeAfterStart = append(closeAfterStart, out.closeAfterStart)
		}

		if out.reader != nil {
			readers = append(readers, out.reader)
			copiers = append(copiers, out.copier(w))
		}
	}

	proc, err := os.StartProcess(program, argv, &os.ProcAttr{
		Dir:   s.Dir,
		Env:   env,
		Files: files,
	})
	if err != nil {
		return fail(err)
	}

	closeErr := closeFiles(closeAfterStart...)
	if closeErr != nil {
		_ = proc.Kill()
		_, _ = proc.Wait()

		return nil, errors.Join(fmt.Errorf("closing parent pipe ends: %w", closeErr), closeFiles(readers...))
	}

	child := &osChild{
		proc:      proc,
		readers:   readers,
		waitDelay: s.WaitDelay,
		copyDone:  make(chan error, len(copiers)),
	}
	for _, c := range copiers {
		go func() {
			child.copyDone <- c()
		}()
	}

	return child, nil
}

type output struct {
	child           *os.File
	closeAfterStart *os.File
	reader          *os.File
}

func (o output) copier(w io.Writer) func() error {
	return func() error {
		_, err := io.Copy(w, o.reader)
		closeErr := o.reader.Close()

		return errors.Join(err, closeErr)
	}
}

func outputFile(w io.Writer) (output, error) {
	if w == nil {
		devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			return output{}, fmt.Errorf("open %s for output: %w", os.DevNull, err)
		}

		return output{child: devNull, closeAfterStart: devNull}, nil
	}

	if f, ok := w.(*os.File); ok && f != nil {
		return output{child: f}, nil
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return output{}, fmt.Errorf("creating output pipe: %w", err)
	}

	return output{child: pw, closeAfterStart: pw, reader: pr}, nil
}

// interfaceEqual reports a == b without panicking on uncomparable
// dynamic types.
func interfaceEqual(a, b any) bool {
	defer func() {
		_ = recover()
	}()

	return a == b
}

func closeFiles(files ...*os.File) error {
	var errs []error

	for _, f := range files {
		if f == nil {
			continue
		}

		err := f.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

type osChild struct {
	proc      *os.Process
	readers   []*os.File
	waitDelay time.Duration
	copyDone  chan error
}

func (c *osChild) Pid() int {
	return c.proc.Pid
}

func (c *osChild) Signal(sig os.Signal) error {
	return c.proc.Signal(sig)
}

func (c *osChild) Wait() (ExitStatus, error) {
	state, err := c.proc.Wait()

	copyErr := c.drain()

	if err != nil {
		return ExitStatus{Code: -1}, errors.Join(fmt.Errorf("wait for pid %d: %w", c.proc.Pid, err), copyErr)
	}

	status := exitStatusFromState(state)

	if copyErr != nil {
		return status, fmt.Errorf("copying output of pid %d: %w", c.proc.Pid, copyErr)
	}

	return status, nil
}

// drain waits for the output copiers. They finish once every holder of a
// pipe's write end is gone, or when waitDelay elapses and the read ends are
// closed under them.
func (c *osChild) drain() error {
	var timeout <-chan time.Time

	if c.waitDelay > 0 {
		timer := time.NewTimer(c.waitDelay)
		defer timer.Stop()

		timeout = timer.C
	}

	var errs []error

	for remaining := len(c.readers); remaining > 0; {
		select {
		case err := <-c.copyDone:
			errs = append(errs, err)
			remaining--
		case <-timeout:
			_ = closeFiles(c.readers...)

			for ; remaining > 0; remaining-- {
				<-c.copyDone
			}

			return ErrWaitDelay
		}
	}

	return errors.Join(errs...)
}

func exitStatusFromState(state *os.ProcessState) ExitStatus {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return ExitStatus{Code: state.ExitCode()}
	}

	if ws.Signaled() {
		return ExitStatus{Code: -1, Signal: ws.Signal()}
	}

	return ExitStatus{Code: ws.ExitStatus()}
}
