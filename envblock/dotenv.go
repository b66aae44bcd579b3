package envblock

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"
)

// ReadDotenv reads KEY=VALUE pairs from dotenv files and returns them as
// block entries sorted by key. When several files set the same key, the
// later file wins; within the result every key appears once.
func ReadDotenv(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		return []string{}, nil
	}

	merged := make(map[string]string)

	for _, path := range paths {
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", path, err)
		}

		for k, v := range vars {
			merged[k] = v
		}
	}

	return mapToSliceSorted(merged), nil
}

// mapToSliceSorted converts a map env to a sorted KEY=VALUE slice.
func mapToSliceSorted(env map[string]string) []string {
	if len(env) == 0 {
		return []string{}
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}

	return out
}
