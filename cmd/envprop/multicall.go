// Multicall dispatch for the child role.
//
// Children are launched with argv = [program] and nothing else, so a child
// cannot be told which subcommand to run. Instead the binary is symlinked
// (or copied) under one of the names below and placed in the launch list:
//
//	ln -s $(command -v envprop) ./print_all_tmpdir
//	envprop run ./print_all_tmpdir
//
// When argv[0]'s base name matches, Run goes straight to inspect. The key
// comes from ENVPROP_KEY and defaults to TMPDIR.

package main

import (
	"path/filepath"
	"slices"
)

var multicallNames = []string{"print_all_tmpdir", "envprop-inspect"}

func isMulticallName(argv0 string) bool {
	return slices.Contains(multicallNames, filepath.Base(argv0))
}
