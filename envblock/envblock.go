// Package envblock builds and inspects process environment blocks.
//
// A block is the ordered list of KEY=VALUE strings a process receives at
// creation time. Keys are not unique: a block may carry the same key several
// times, and each runtime picks its own winner when asked for the value.
// Nothing in this package deduplicates.
//
// Blocks are plain []string. The NUL-terminated envp form only exists at the
// process-creation boundary, where os.StartProcess converts it.
package envblock

import (
	"slices"
	"strings"
)

// Build returns a new block holding every entry of base, in order, followed
// by a single key=value entry.
//
// If base already contains key, the result contains it twice; the override is
// always the last entry. The returned slice never shares its backing array
// with base.
func Build(base []string, key, value string) []string {
	return Append(base, key+"="+value)
}

// Append returns a new block holding base followed by entries.
func Append(base []string, entries ...string) []string {
	out := make([]string, 0, len(base)+len(entries))
	out = append(out, base...)
	out = append(out, entries...)

	return out
}

// Split splits an entry into key and value. Entries without '=' are returned
// as a key with an empty value and ok=false.
func Split(entry string) (string, string, bool) {
	return strings.Cut(entry, "=")
}

// Match is a single occurrence of a key in a block.
type Match struct {
	// Index is the position of the entry in the block.
	Index int
	// Entry is the full KEY=VALUE string.
	Entry string
	// Value is the part after the first '='.
	Value string
}

// Lookup returns every occurrence of key in block, in block order.
func Lookup(block []string, key string) []Match {
	var matches []Match

	for i, entry := range block {
		k, v, ok := Split(entry)
		if !ok || k != key {
			continue
		}

		matches = append(matches, Match{Index: i, Entry: entry, Value: v})
	}

	return matches
}

// First returns the value of the first occurrence of key. This is what glibc
// getenv, the Go runtime and Python's os.environ report; CPython fills
// os.environ with setdefault, so later duplicates are ignored.
func First(block []string, key string) (string, bool) {
	matches := Lookup(block, key)
	if len(matches) == 0 {
		return "", false
	}

	return matches[0].Value, true
}

// Last returns the value of the last occurrence of key. This is what POSIX
// shells such as dash and bash report, since they import the block into
// their variable table front to back and each entry overwrites the previous.
func Last(block []string, key string) (string, bool) {
	matches := Lookup(block, key)
	if len(matches) == 0 {
		return "", false
	}

	return matches[len(matches)-1].Value, true
}

// Duplicates returns the keys that occur more than once in block, sorted.
func Duplicates(block []string) []string {
	counts := make(map[string]int, len(block))

	for _, entry := range block {
		k, _, ok := Split(entry)
		if !ok {
			continue
		}

		counts[k]++
	}

	var dups []string

	for k, n := range counts {
		if n > 1 {
			dups = append(dups, k)
		}
	}

	slices.Sort(dups)

	return dups
}

// ValidKey reports whether key can be used as an override key. Empty keys and
// keys containing '=' or NUL would corrupt the block.
func ValidKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, "=\x00")
}
