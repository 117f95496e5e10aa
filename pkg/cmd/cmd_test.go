package cmd_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagegate/pkg/cmd"
)

func TestString(t *testing.T) {
	// Arrange
	input := []string{
		cmd.New("echo").Arg("hello").Arg("world").String(),
		cmd.New("cmd-only").String(),
		cmd.New("").String(),
	}
	expected := []string{
		"echo hello world",
		"cmd-only",
		"",
	}

	// Assert
	for i, input := range input {
		assert.Equal(t, expected[i], input)
	}
}

func TestStdinNotInArgs(t *testing.T) {
	c := cmd.New("docker").Arg("login", "--username", "bob", "--password-stdin", "reg.example").
		Stdin("s3cret")

	assert.True(t, c.HasStdin())
	assert.NotContains(t, c.Args(), "s3cret")
	assert.NotContains(t, c.String(), "s3cret")
}

func TestRunEmptyCommand(t *testing.T) {
	_, err := cmd.New("").Run(context.Background())
	require.Error(t, err)
}

func TestDryRunSkipsExecution(t *testing.T) {
	// a command that would fail if actually spawned
	out, err := cmd.New("definitely-not-a-binary").Arg("boom").
		SetDryRun(true).
		Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunCapturesOutput(t *testing.T) {
	out, err := cmd.New("echo").Arg("hello").Run(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestRunForwardsEnv(t *testing.T) {
	c := cmd.New("sh").Arg("-c", "echo $IMAGEGATE_TEST_VAR").
		Env(map[string]string{"IMAGEGATE_TEST_VAR": "forwarded"})

	out, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "forwarded")
}
