package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	flag "github.com/spf13/pflag"
)

// Set via ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Run is the main entry point. Returns exit code.
//
// environ is the ordered environment block the parent received, duplicates
// included. sigCh can be nil if signal handling is not needed (e.g., in tests).
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, environ []string, sigCh <-chan os.Signal) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdout, stderr = lockOutputs(stdout, stderr)

	// Invoked through a child alias such as print_all_tmpdir.
	if len(args) > 0 && isMulticallName(args[0]) {
		return InspectCmd(environ).Run(ctx, stdin, stdout, stderr, args[1:])
	}

	// Create fresh global flags for this invocation
	globalFlags := flag.NewFlagSet("envprop", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagVersion := globalFlags.BoolP("version", "v", false, "Show version and exit")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.String("config", "", "Use specified config `file`")

	var rest []string
	if len(args) > 0 {
		rest = args[1:]
	}

	err := globalFlags.Parse(rest)
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		printGlobalOptions(stderr)

		return 1
	}

	if *flagVersion {
		if commit == "none" && date == "unknown" {
			fprintf(stdout, "envprop %s (built from source)\n", version)
		} else {
			fprintf(stdout, "envprop %s (%s, %s)\n", version, commit, date)
		}

		return 0
	}

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: *flagCwd,
		ConfigPath:      *flagConfig,
		Env:             environ,
	})
	if err != nil {
		fprintError(stderr, err)

		return 1
	}

	commands := []*Command{
		RunCmd(&cfg, environ),
		EnvCmd(&cfg, environ),
		InspectCmd(environ),
	}

	commandMap := make(map[string]*Command, len(commands)*2)
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases {
			commandMap[alias] = cmd
		}
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp || len(commandAndArgs) == 0 {
		printUsage(stdout, commands)

		return 0
	}

	cmd, ok := commandMap[commandAndArgs[0]]
	if !ok {
		// Not a command name: treat everything as programs for "run".
		cmd = commandMap["run"]
	} else {
		commandAndArgs = commandAndArgs[1:]
	}

	done := make(chan int, 1)

	go func() {
		done <- cmd.Run(ctx, stdin, stdout, stderr, commandAndArgs)
	}()

	if sigCh == nil {
		return <-done
	}

	select {
	case exitCode := <-done:
		return exitCode
	case <-sigCh:
		fprintln(stderr, "Interrupted, terminating child... (Ctrl+C again to force exit)")
		cancel()
	}

	select {
	case <-done:
		return 130
	case <-time.After(10 * time.Second):
		fprintln(stderr, "Child did not exit in time, forced exit.")

		return 130
	case <-sigCh:
		fprintln(stderr, "Forced exit.")

		return 130
	}
}

func fprintln(output io.Writer, a ...any) {
	_, _ = fmt.Fprintln(output, a...)
}

func fprintf(output io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(output, format, a...)
}

// syncWriter serializes writes to a writer shared by several goroutines:
// the interrupt handler, the launcher, the debug logger and child output copiers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}

// lockOutputs wraps a stderr that is not an *os.File in a syncWriter. Files
// are handed to children directly and need no lock. A stdout that is the
// same writer as stderr shares the wrapper.
func lockOutputs(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stderr == nil {
		return stdout, stderr
	}

	if _, ok := stderr.(*os.File); ok {
		return stdout, stderr
	}

	locked := &syncWriter{w: stderr}

	if sameWriter(stdout, stderr) {
		return locked, locked
	}

	return stdout, locked
}

func sameWriter(a, b io.Writer) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()

	return a == b
}

// ANSI color codes for terminal output.
const (
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// fprintError prints an error message, in red when output is a terminal.
func fprintError(output io.Writer, err error) {
	if isTerminal(output) {
		fprintln(output, colorRed+"error:"+colorReset, err)
	} else {
		fprintln(output, "error:", err)
	}
}

const globalOptionsHelp = `  -h, --help             Show help
  -v, --version          Show version and exit
  -C, --cwd <dir>        Run as if started in <dir>
      --config <file>    Use specified config file`

func printGlobalOptions(output io.Writer) {
	fprintln(output, "Usage: envprop [flags] <command> [args]")
	fprintln(output)
	fprintln(output, "Global flags:")
	fprintln(output, globalOptionsHelp)
	fprintln(output)
	fprintln(output, "Run 'envprop --help' for a list of commands.")
}

func printUsage(output io.Writer, commands []*Command) {
	fprintln(output, "envprop - launch children with a duplicated environment variable")
	fprintln(output)
	fprintln(output, "Usage: envprop [flags] <command> [args]")
	fprintln(output)
	fprintln(output, "Flags:")
	fprintln(output, globalOptionsHelp)
	fprintln(output)
	fprintln(output, "Commands:")

	for _, cmd := range commands {
		fprintln(output, cmd.HelpLine())
	}

	fprintln(output)
	fprintln(output, "Run 'envprop <command> --help' for more information on a command.")
}
