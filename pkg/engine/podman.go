package engine

import (
	"context"
	"errors"
	"os/exec"

	"github.com/rs/zerolog/log"

	"imagegate/pkg/cmd"
	"imagegate/pkg/config"
)

type Podman struct {
	flags *config.Flags
	run   RunFunc
}

func NewPodman(flags *config.Flags) *Podman {
	return &Podman{flags: flags}
}

func (e *Podman) SetRunner(run RunFunc) {
	e.run = run
}

func (e *Podman) Name() string {
	return "podman"
}

func (e *Podman) exec(ctx context.Context, c *cmd.Cmd) (string, error) {
	if e.run != nil {
		return e.run(ctx, c)
	}
	return c.Run(ctx)
}

func (e *Podman) command(args ...string) *cmd.Cmd {
	return cmd.New("podman").Arg(args...).
		SetVerbose(e.flags.Verbose).
		SetDryRun(e.flags.DryRun)
}

func (e *Podman) Available(ctx context.Context) error {
	_, err := e.exec(ctx, e.command("version"))
	return err
}

func (e *Podman) Login(ctx context.Context, registryURL, username, password string) error {
	login := e.command("login", "--username", username, "--password-stdin", registryURL).
		Stdin(password).
		PostInfo("Logged in to " + registryURL)
	_, err := e.exec(ctx, login)
	return err
}

func (e *Podman) ManifestExists(ctx context.Context, ref string) bool {
	if e.flags.DryRun {
		log.Info().Str("image", ref).Msg("DRY-RUN: probing registry, assuming image is absent")
		return false
	}

	probe := cmd.New("podman").Arg("manifest", "inspect", ref).
		SetVerbose(false)
	if _, err := e.exec(ctx, probe); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Debug().Str("image", ref).Msg("Image not found in registry")
		} else {
			log.Warn().Err(err).Str("image", ref).Msg("Existence probe errored, treating image as absent")
		}
		return false
	}
	return true
}

func (e *Podman) Pull(ctx context.Context, ref string) error {
	puller := e.command("pull").
		PreInfo("Pulling " + ref)
	if !e.flags.Verbose {
		puller = puller.Arg("--quiet")
	}
	puller = puller.Arg(ref)
	_, err := e.exec(ctx, puller)
	return err
}

func (e *Podman) Build(ctx context.Context, opts BuildOpts) error {
	// registries still expect Docker-format manifests more often than OCI
	builder := e.command("build", "--format", "docker").
		Arg("-f", opts.Dockerfile).
		Arg("-t", opts.Tag).
		Arg(labelsToArgs(opts.Labels)...).
		Arg(opts.ExtraArgs...).
		Arg(opts.ContextDir).
		Env(opts.Env).
		PreInfo("Building " + opts.Tag)
	_, err := e.exec(ctx, builder)
	return err
}

func (e *Podman) Tag(ctx context.Context, src, dst string) error {
	tagger := e.command("tag", src, dst).
		PreInfo("Tagging " + dst)
	_, err := e.exec(ctx, tagger)
	return err
}

func (e *Podman) Push(ctx context.Context, ref string) error {
	pusher := e.command("push").
		PreInfo("Pushing " + ref)
	if !e.flags.Verbose {
		pusher = pusher.Arg("--quiet")
	}
	pusher = pusher.Arg(ref)
	_, err := e.exec(ctx, pusher)
	return err
}
