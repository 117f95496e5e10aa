package engine

import (
	"context"
	"fmt"

	"imagegate/pkg/cmd"
	"imagegate/pkg/config"
)

// Engine is the external containerization tool, reduced to the
// operations this step needs. Every call is a blocking subprocess
// request/response; the context carries the caller's wall-clock budget.
type Engine interface {
	Name() string

	// verify the tool is installed and responsive
	Available(ctx context.Context) error

	// authenticate against a registry, password over stdin
	Login(ctx context.Context, registryURL, username, password string) error

	// query the registry manifest without pulling content; never fails,
	// any probe trouble collapses to false
	ManifestExists(ctx context.Context, ref string) bool

	Pull(ctx context.Context, ref string) error
	Build(ctx context.Context, opts BuildOpts) error
	Tag(ctx context.Context, src, dst string) error
	Push(ctx context.Context, ref string) error
}

// BuildOpts describe a single build invocation.
type BuildOpts struct {
	Dockerfile string            // resolved path, verified by the caller
	ContextDir string            // build context directory
	Tag        string            // target name:tag
	Labels     map[string]string // OCI provenance labels
	ExtraArgs  []string          // pass-through tokens, appended verbatim
	Env        map[string]string // forwarded into the subprocess environment
}

// RunFunc executes an assembled command. The engines default to
// (*cmd.Cmd).Run; tests swap in a recorder.
type RunFunc func(ctx context.Context, c *cmd.Cmd) (string, error)

// New picks the engine implementation by name.
func New(flags *config.Flags) (Engine, error) {
	switch flags.Engine {
	case "", "docker":
		return NewDocker(flags), nil
	case "podman":
		return NewPodman(flags), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", flags.Engine)
	}
}
