// Package build sequences a single conditional build-and-publish run:
// engine check, registry login, existence probe, then either skip or
// build, tag and push. It is the only place that decides the
// skip/build branch; the engine operations below it are branch-agnostic.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"imagegate/pkg/config"
	"imagegate/pkg/engine"
	"imagegate/pkg/image"
)

type Orchestrator struct {
	engine engine.Engine
	flags  *config.Flags
}

func New(e engine.Engine, flags *config.Flags) *Orchestrator {
	return &Orchestrator{
		engine: e,
		flags:  flags,
	}
}

// Run executes the whole sequence for one request. Every step is
// blocking; the first fatal error aborts the run. The only non-fatal
// conditions are the existence probe and the warm-cache pull.
func (o *Orchestrator) Run(ctx context.Context, req *config.BuildRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid build request: %w", err)
	}

	ref := image.New(req.RegistryURL, req.ImageName, req.Version)
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("invalid build request: %w", err)
	}

	log.Debug().Str("engine", o.engine.Name()).Msg("Checking engine availability")
	if err := o.engine.Available(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	if err := o.engine.Login(ctx, req.RegistryURL, req.RegistryUser, req.RegistryPassword); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	result := &Result{
		Image: req.ImageName,
		Tag:   req.Version,
		Href:  ref.FullRef(),
	}

	if o.engine.ManifestExists(ctx, ref.FullRef()) {
		log.Info().Str("image", ref.FullRef()).Msg("Image already published, skipping build")
		result.Skipped = true
		return result, nil
	}

	if err := o.build(ctx, req, ref); err != nil {
		return nil, err
	}
	if err := o.publish(ctx, ref); err != nil {
		return nil, err
	}

	return result, nil
}

func (o *Orchestrator) build(ctx context.Context, req *config.BuildRequest, ref image.Reference) error {
	dockerfile := filepath.Join(req.ProjectPath, req.Dockerfile())
	// pre-flight, no subprocess spawned for a missing Dockerfile
	if !o.flags.DryRun {
		if st, err := os.Stat(dockerfile); err != nil || st.IsDir() {
			return fmt.Errorf("%w: %s", ErrDockerfileMissing, dockerfile)
		}
	}

	if req.PullLatest {
		// best-effort warm cache for layer reuse; a missing cache image
		// only makes the build slower
		if err := o.engine.Pull(ctx, ref.Latest().FullRef()); err != nil {
			log.Warn().Err(err).Str("image", ref.Latest().FullRef()).Msg("Cache warmup pull failed, building without it")
		}
	}

	opts := engine.BuildOpts{
		Dockerfile: dockerfile,
		ContextDir: req.ProjectPath,
		Tag:        ref.Local(),
		Labels:     image.OCILabels(req.ProjectPath, req.Version),
		ExtraArgs:  req.BuildArgs(),
		Env:        req.Env,
	}
	if err := o.engine.Build(ctx, opts); err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}
	return nil
}

// publish tags the locally built image with its registry-qualified
// references and pushes them. With --push-latest both the versioned and
// the latest reference must succeed; pushing latest is a publishing
// guarantee, not an optimization.
func (o *Orchestrator) publish(ctx context.Context, ref image.Reference) error {
	targets := []image.Reference{ref}
	if o.flags.PushLatest {
		targets = append(targets, ref.Latest())
	}

	for _, target := range targets {
		if err := o.engine.Tag(ctx, ref.Local(), target.FullRef()); err != nil {
			return fmt.Errorf("%w: tagging %s: %v", ErrPush, target.FullRef(), err)
		}
		if err := o.engine.Push(ctx, target.FullRef()); err != nil {
			return fmt.Errorf("%w: pushing %s: %v", ErrPush, target.FullRef(), err)
		}
	}
	return nil
}
