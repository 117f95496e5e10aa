package config

// Flags carry the CLI-only knobs, everything that is not part of the
// build request itself.
type Flags struct {
	ConfigFile   string
	Engine       string
	DryRun       bool
	PushLatest   bool
	Verbose      bool
	PrintVersion bool
}
