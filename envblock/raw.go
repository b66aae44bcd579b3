package envblock

import (
	"bytes"
	"fmt"
	"os"
)

// ProcEnvironPath is the Linux file holding the calling process's initial
// environment block exactly as it was passed to execve.
const ProcEnvironPath = "/proc/self/environ"

// ParseRaw splits a NUL-separated environment block. A trailing NUL is
// optional; empty records are dropped.
func ParseRaw(data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}

	parts := bytes.Split(data, []byte{0})
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if len(part) == 0 {
			continue
		}

		out = append(out, string(part))
	}

	return out
}

// ReadRaw reads a NUL-separated environment block from path.
//
// Unlike os.Environ, the result keeps duplicate keys. The Go runtime drops
// every occurrence after the first when it loads the environment, so
// os.Environ cannot be used to observe duplicates.
func ReadRaw(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading environment block %s: %w", path, err)
	}

	return ParseRaw(data), nil
}

// Format joins a block for display, one entry per sep-terminated record.
func Format(block []string, sep byte) []byte {
	var buf bytes.Buffer

	for _, entry := range block {
		buf.WriteString(entry)
		buf.WriteByte(sep)
	}

	return buf.Bytes()
}
