package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

type Cmd struct {
	cmd      string
	args     []string
	env      map[string]string
	stdin    string
	verbose  bool
	dryRun   bool
	preText  string
	postText string
	output   string
}

func New(c string) *Cmd {
	return &Cmd{
		cmd:     c,
		verbose: false,
	}
}

func (c *Cmd) Equal(cmd *Cmd) bool {
	return c.String() == cmd.String()
}

func (c *Cmd) Arg(args ...string) *Cmd {
	c.args = append(c.args, args...)
	return c
}

func (c *Cmd) Args() []string {
	return c.args
}

// Env merges extra variables into the subprocess environment.
// The process inherits the full parent environment; on key collision
// the override wins.
func (c *Cmd) Env(env map[string]string) *Cmd {
	if c.env == nil {
		c.env = map[string]string{}
	}
	for k, v := range env {
		c.env[k] = v
	}
	return c
}

// Stdin feeds the given string to the subprocess standard input.
// Secrets travel this way so they never show up in argv or logs.
func (c *Cmd) Stdin(input string) *Cmd {
	c.stdin = input
	return c
}

func (c *Cmd) HasStdin() bool {
	return c.stdin != ""
}

func (c *Cmd) SetVerbose(verbosity bool) *Cmd {
	c.verbose = verbosity
	return c
}

func (c *Cmd) SetDryRun(dryRun bool) *Cmd {
	c.dryRun = dryRun
	return c
}

func (c *Cmd) PreInfo(msg string) *Cmd {
	c.preText = msg
	return c
}

func (c *Cmd) PostInfo(msg string) *Cmd {
	c.postText = msg
	return c
}

func (c *Cmd) Run(ctx context.Context) (string, error) {
	if c.cmd == "" {
		return "", errors.New("command not set")
	}
	if c.dryRun {
		log.Info().Str("cmd", c.String()).Msg("DRY-RUN: Run")
		return "", nil
	}
	if c.preText != "" {
		log.Info().Msg(c.preText)
	}

	cmd := exec.CommandContext(ctx, c.cmd, c.args...)
	cmd.Env = mergedEnviron(c.env)
	if c.stdin != "" {
		cmd.Stdin = strings.NewReader(c.stdin)
	}

	// pipe the commands output to the applications
	var b bytes.Buffer
	if c.verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &b
		cmd.Stderr = &b
	}

	log.Debug().Str("cmd", c.cmd).Interface("args", c.args).Msg("Running")
	err := cmd.Run()

	// Check for context cancellation or timeout
	if ctx.Err() != nil {
		if ctx.Err() == context.Canceled {
			log.Warn().Str("cmd", c.cmd).Msg("Command was cancelled")
		} else if ctx.Err() == context.DeadlineExceeded {
			log.Warn().Str("cmd", c.cmd).Msg("Command timed out")
		}
		return "", ctx.Err()
	}

	if err != nil {
		c.output = b.String()
		return c.output, fmt.Errorf("%s: %w: %s", c.cmd, err, strings.TrimSpace(c.output))
	}
	c.output = b.String()

	if c.postText != "" {
		log.Info().Msg(c.postText)
	}
	return c.output, nil
}

func (c *Cmd) String() string {
	return strings.Trim(fmt.Sprintf("%s %s", c.cmd, strings.Join(c.args, " ")), " ")
}

func mergedEnviron(overrides map[string]string) []string {
	environ := os.Environ()
	for k, v := range overrides {
		environ = append(environ, k+"="+v)
	}
	return environ
}
