// Package output mirrors the run result into the CI job's structured
// output channel. When GITHUB_OUTPUT points at a file, key=value lines
// are appended there; otherwise they go to stdout where the surrounding
// pipeline can scrape them.
package output

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

func Write(keys []string, outputs map[string]string) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		for _, key := range keys {
			fmt.Printf("%s=%s\n", key, outputs[key])
		}
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing output file")
		}
	}()

	for _, key := range keys {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, outputs[key]); err != nil {
			return fmt.Errorf("writing output %q: %w", key, err)
		}
	}

	log.Debug().Str("file", path).Interface("outputs", outputs).Msg("Reported")
	return nil
}
