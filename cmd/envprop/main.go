package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/calvinalkan/envprop/envblock"
)

func main() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args, rawEnviron(), sigCh))
}

// rawEnviron returns the block this process was started with, duplicates
// included. os.Environ drops repeated keys, so it is only the fallback.
func rawEnviron() []string {
	block, err := envblock.ReadRaw(envblock.ProcEnvironPath)
	if err != nil {
		return os.Environ()
	}

	return block
}
