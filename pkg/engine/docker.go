package engine

import (
	"context"
	"errors"
	"os/exec"

	"github.com/rs/zerolog/log"

	"imagegate/pkg/cmd"
	"imagegate/pkg/config"
)

type Docker struct {
	flags *config.Flags
	run   RunFunc
}

func NewDocker(flags *config.Flags) *Docker {
	return &Docker{flags: flags}
}

// SetRunner replaces the subprocess executor, used by tests.
func (e *Docker) SetRunner(run RunFunc) {
	e.run = run
}

func (e *Docker) Name() string {
	return "docker"
}

func (e *Docker) exec(ctx context.Context, c *cmd.Cmd) (string, error) {
	if e.run != nil {
		return e.run(ctx, c)
	}
	return c.Run(ctx)
}

func (e *Docker) command(args ...string) *cmd.Cmd {
	return cmd.New("docker").Arg(args...).
		SetVerbose(e.flags.Verbose).
		SetDryRun(e.flags.DryRun)
}

func (e *Docker) Available(ctx context.Context) error {
	_, err := e.exec(ctx, e.command("version"))
	return err
}

func (e *Docker) Login(ctx context.Context, registryURL, username, password string) error {
	login := e.command("login", "--username", username, "--password-stdin", registryURL).
		Stdin(password).
		PostInfo("Logged in to " + registryURL)
	_, err := e.exec(ctx, login)
	return err
}

func (e *Docker) ManifestExists(ctx context.Context, ref string) bool {
	if e.flags.DryRun {
		log.Info().Str("image", ref).Msg("DRY-RUN: probing registry, assuming image is absent")
		return false
	}

	probe := cmd.New("docker").Arg("manifest", "inspect", ref).
		SetVerbose(false)
	if _, err := e.exec(ctx, probe); err != nil {
		// The return type collapses "not found" and "probe errored" to
		// false; the logs keep them apart for operators.
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

func (e *Docker) Pull(ctx context.Context, ref string) error {
	puller := e.command("pull").
		PreInfo("Pulling " + ref)
	if !e.flags.Verbose {
		puller = puller.Arg("--quiet")
	}
	puller = puller.Arg(ref)
	_, err := e.exec(ctx, puller)
	return err
}

func (e *Docker) Build(ctx context.Context, opts BuildOpts) error {
	builder := e.command("build").
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

func (e *Docker) Tag(ctx context.Context, src, dst string) error {
	tagger := e.command("tag", src, dst).
		PreInfo("Tagging " + dst)
	_, err := e.exec(ctx, tagger)
	return err
}

func (e *Docker) Push(ctx context.Context, ref string) error {
	pusher := e.command("push").
		PreInfo("Pushing " + ref)
	if !e.flags.Verbose {
		pusher = pusher.Arg("--quiet")
	}
	pusher = pusher.Arg(ref)
	_, err := e.exec(ctx, pusher)
	return err
}
