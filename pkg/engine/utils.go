package engine

import "sort"

func labelsToArgs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	// deterministic argv
	sort.Strings(keys)

	args := []string{}
	for _, k := range keys {
		args = append(args, "--label", k+"="+labels[k])
	}
	return args
}
