package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/envprop/envblock"
)

// InspectCmd creates the inspect command. It plays the child role: it lists
// every occurrence of a key in the block this process was started with.
func InspectCmd(environ []string) *Command {
	initialKey := defaultKey
	if k, ok := envblock.First(environ, "ENVPROP_KEY"); ok && envblock.ValidKey(k) {
		initialKey = k
	}

	flags := flag.NewFlagSet("inspect", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.StringP("key", "k", initialKey, "Variable to look for (default from ENVPROP_KEY)")
	flags.BoolP("all", "a", false, "Print every entry of the block, not only matches")

	return &Command{
		Flags: flags,
		Usage: "inspect [flags]",
		Short: "Show every occurrence of a variable in this process's block",
		Long: "List each entry of the raw environment block whose key matches, with its\n" +
			"position, then show which value first-wins and last-wins lookups resolve to.\n" +
			"Also runs when the binary is invoked as print_all_tmpdir or envprop-inspect.",
		Aliases: []string{},
		Exec: func(_ context.Context, _ io.Reader, stdout, _ io.Writer, _ []string) error {
			key, _ := flags.GetString("key")
			if !envblock.ValidKey(key) {
				return ErrInvalidKey
			}

			if all, _ := flags.GetBool("all"); all {
				for i, entry := range environ {
					fprintf(stdout, "entry #%d: '%s'\n", i, entry)
				}
			}

			matches := envblock.Lookup(environ, key)
			if len(matches) == 0 {
				fprintf(stdout, "%s: not set\n", key)

				return nil
			}

			for _, m := range matches {
				fprintf(stdout, "%s entry #%d: '%s'\n", key, m.Index, m.Entry)
			}

			first, _ := envblock.First(environ, key)
			last, _ := envblock.Last(environ, key)

			fprintf(stdout, "%s first-wins (getenv, Go, Python): '%s'\n", key, first)
			fprintf(stdout, "%s last-wins (sh, bash): '%s'\n", key, last)
			fprintf(stdout, "%s entries: %d\n", key, len(matches))

			return nil
		},
	}
}
