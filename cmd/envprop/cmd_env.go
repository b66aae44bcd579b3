package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/envprop/envblock"
)

// EnvCmd creates the env command, which prints the block children would get.
func EnvCmd(cfg *Config, environ []string) *Command {
	flags := flag.NewFlagSet("env", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	addOverrideFlags(flags)
	flags.BoolP("null", "0", false, "End each entry with NUL instead of newline")

	return &Command{
		Flags:   flags,
		Usage:   "env [flags]",
		Short:   "Print the environment block children would receive",
		Long:    "Print the constructed environment block, one entry per line, in the order it\nis handed to children. Duplicate keys are printed as they appear.",
		Aliases: []string{},
		Exec: func(_ context.Context, _ io.Reader, stdout, _ io.Writer, _ []string) error {
			err := applyOverrideFlags(cfg, flags)
			if err != nil {
				return err
			}

			err = cfg.Validate()
			if err != nil {
				return err
			}

			env, err := buildChildEnv(cfg, environ)
			if err != nil {
				return err
			}

			sep := byte('\n')
			if nul, _ := flags.GetBool("null"); nul {
				sep = 0
			}

			_, _ = stdout.Write(envblock.Format(env, sep))

			return nil
		},
	}
}
