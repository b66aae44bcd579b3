package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/envprop/envblock"
	"github.com/calvinalkan/envprop/launch"
)

// ErrChildFailed is returned by run --strict when any child did not exit 0.
var ErrChildFailed = errors.New("child failed")

// childOutputWaitDelay bounds how long output is copied after a child exits,
// when a grandchild still holds the pipe.
const childOutputWaitDelay = 2 * time.Second

// RunCmd creates the run command, which launches the children.
func RunCmd(cfg *Config, environ []string) *Command {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	addOverrideFlags(flags)
	flags.Bool("summary", false, "Print a table of child outcomes when done")
	flags.Bool("strict", false, "Exit 1 if any child fails, exits non-zero or is killed")
	flags.Bool("dry-run", false, "Print progress lines without launching anything")
	flags.Bool("debug", false, "Print launch details to stderr")

	return &Command{
		Flags: flags,
		Usage: "run [flags] [program...]",
		Short: "Launch children with the duplicated variable",
		Long: "Build the environment (inherited block + override entry, no deduplication) and\n" +
			"launch each program in order, waiting for each before the next. Programs are\n" +
			"run with no arguments; relative paths resolve against the working directory.\n" +
			"Without programs, the configured children (or the built-in list) are used.",
		Aliases: []string{},
		Exec: func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
			debugEnabled, _ := flags.GetBool("debug")

			var debug *DebugLogger
			if debugEnabled {
				debug = NewDebugLogger(stderr)
			} else {
				debug = NewDebugLogger(nil)
			}

			debug.ConfigFiles(cfg)

			err := applyOverrideFlags(cfg, flags)
			if err != nil {
				return err
			}

			if flags.Changed("summary") {
				summary, _ := flags.GetBool("summary")
				cfg.Summary = boolPtr(summary)
			}

			if flags.Changed("strict") {
				strict, _ := flags.GetBool("strict")
				cfg.Strict = boolPtr(strict)
			}

			err = cfg.Validate()
			if err != nil {
				return err
			}

			env, err := buildChildEnv(cfg, environ)
			if err != nil {
				return err
			}

			debug.Block(env, cfg.Key)

			descriptors := cfg.Descriptors(args)
			debug.Descriptors(descriptors)

			colorize := isTerminal(stderr)

			if dryRun, _ := flags.GetBool("dry-run"); dryRun {
				for _, d := range descriptors {
					fprintf(stderr, "%s", launch.Banner(d, colorize))
				}

				return nil
			}

			launcher := &launch.Launcher{
				Spawner: &launch.OSSpawner{
					Dir:       cfg.EffectiveCwd,
					Stdin:     stdin,
					Stdout:    stdout,
					Stderr:    stderr,
					WaitDelay: childOutputWaitDelay,
				},
				Diag:   stderr,
				Color:  colorize,
				Logger: debug.Logger(),
			}

			outcomes := launcher.LaunchAll(ctx, descriptors, env)

			if *cfg.Summary {
				fprintln(stderr)
				launch.WriteSummary(stderr, outcomes)
			}

			failed := launch.CountFailed(outcomes)
			if *cfg.Strict && failed > 0 {
				return fmt.Errorf("%w: %d of %d children did not exit 0", ErrChildFailed, failed, len(outcomes))
			}

			return nil
		},
	}
}

// addOverrideFlags registers the flags shared by run and env.
func addOverrideFlags(flags *flag.FlagSet) {
	flags.StringP("key", "k", "", "Variable to append (default from config, else TMPDIR)")
	flags.String("value", "", "Value of the appended variable (default /tmp/other-tmp-dir)")
	flags.StringArray("env-file", nil, "Append KEY=VALUE entries from a dotenv `file` (repeatable)")
}

// applyOverrideFlags applies CLI flags on top of the merged config.
func applyOverrideFlags(cfg *Config, flags *flag.FlagSet) error {
	if flags.Changed("key") {
		key, err := flags.GetString("key")
		if err != nil {
			return fmt.Errorf("reading --key: %w", err)
		}

		cfg.Key = key
	}

	if flags.Changed("value") {
		value, err := flags.GetString("value")
		if err != nil {
			return fmt.Errorf("reading --value: %w", err)
		}

		cfg.Value = stringPtr(value)
	}

	if flags.Changed("env-file") {
		files, err := flags.GetStringArray("env-file")
		if err != nil {
			return fmt.Errorf("reading --env-file: %w", err)
		}

		cfg.EnvFiles = append(cfg.EnvFiles, files...)
	}

	return nil
}

// buildChildEnv returns the block handed to every child: the inherited
// environ, then dotenv entries, then the override entry last.
func buildChildEnv(cfg *Config, environ []string) ([]string, error) {
	extras, err := envblock.ReadDotenv(cfg.ResolvedEnvFiles()...)
	if err != nil {
		return nil, err
	}

	value := ""
	if cfg.Value != nil {
		value = *cfg.Value
	}

	return envblock.Build(envblock.Append(environ, extras...), cfg.Key, value), nil
}
