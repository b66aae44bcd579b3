//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package main

import "io"

var isTerminal = func(io.Writer) bool { return false }
