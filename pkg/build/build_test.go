package build_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagegate/pkg/build"
	"imagegate/pkg/config"
	"imagegate/pkg/engine"
)

// fakeEngine records every operation the orchestrator asks for.
type fakeEngine struct {
	calls []string

	exists       bool
	availableErr error
	loginErr     error
	pullErr      error
	buildErr     error
	tagErr       error
	pushErr      map[string]error

	lastBuild engine.BuildOpts
	lastLogin [3]string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Available(_ context.Context) error {
	f.calls = append(f.calls, "available")
	return f.availableErr
}

func (f *fakeEngine) Login(_ context.Context, registryURL, username, password string) error {
	f.calls = append(f.calls, "login")
	f.lastLogin = [3]string{registryURL, username, password}
	return f.loginErr
}

func (f *fakeEngine) ManifestExists(_ context.Context, ref string) bool {
	f.calls = append(f.calls, "probe "+ref)
	return f.exists
}

func (f *fakeEngine) Pull(_ context.Context, ref string) error {
	f.calls = append(f.calls, "pull "+ref)
	return f.pullErr
}

func (f *fakeEngine) Build(_ context.Context, opts engine.BuildOpts) error {
	f.calls = append(f.calls, "build "+opts.Tag)
	f.lastBuild = opts
	return f.buildErr
}

func (f *fakeEngine) Tag(_ context.Context, src, dst string) error {
	f.calls = append(f.calls, "tag "+src+" "+dst)
	return f.tagErr
}

func (f *fakeEngine) Push(_ context.Context, ref string) error {
	f.calls = append(f.calls, "push "+ref)
	if f.pushErr != nil {
		return f.pushErr[ref]
	}
	return nil
}

func validRequest(t *testing.T) *config.BuildRequest {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644))
	return &config.BuildRequest{
		ProjectPath:      dir,
		ImageName:        "app",
		Version:          "v1",
		RegistryURL:      "reg.example",
		RegistryUser:     "bob",
		RegistryPassword: "s3cret",
		PullLatest:       true,
	}
}

func run(t *testing.T, e *fakeEngine, req *config.BuildRequest, flags *config.Flags) (*build.Result, error) {
	t.Helper()
	if flags == nil {
		flags = &config.Flags{}
	}
	return build.New(e, flags).Run(context.Background(), req)
}

func TestSkipWhenImageExists(t *testing.T) {
	e := &fakeEngine{exists: true}
	req := validRequest(t)

	result, err := run(t, e, req, nil)
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Equal(t, "app", result.Image)
	assert.Equal(t, "v1", result.Tag)
	assert.Equal(t, "reg.example/app:v1", result.Href)
	// registry and local cache untouched: no pull, build, tag or push
	assert.Equal(t, []string{"available", "login", "probe reg.example/app:v1"}, e.calls)
}

func TestBuildAndPushWhenAbsent(t *testing.T) {
	e := &fakeEngine{exists: false}
	req := validRequest(t)

	result, err := run(t, e, req, nil)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, "reg.example/app:v1", result.Href)
	assert.Equal(t, []string{
		"available",
		"login",
		"probe reg.example/app:v1",
		"pull reg.example/app:latest",
		"build app:v1",
		"tag app:v1 reg.example/app:v1",
		"push reg.example/app:v1",
	}, e.calls)
}

func TestOutputsStringTyped(t *testing.T) {
	e := &fakeEngine{exists: true}
	req := validRequest(t)

	result, err := run(t, e, req, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"image":   "app",
		"tag":     "v1",
		"href":    "reg.example/app:v1",
		"skipped": "true",
	}, result.Outputs())
}

func TestValidationFailsBeforeAnySubprocess(t *testing.T) {
	e := &fakeEngine{}
	req := validRequest(t)
	req.Version = ""

	_, err := run(t, e, req, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
	assert.Empty(t, e.calls)
}

func TestMalformedReferenceFailsBeforeAnySubprocess(t *testing.T) {
	e := &fakeEngine{}
	req := validRequest(t)
	req.ImageName = "App" // repository names must be lowercase

	_, err := run(t, e, req, nil)
	require.Error(t, err)
	assert.Empty(t, e.calls)
}

func TestEngineUnavailableIsFatal(t *testing.T) {
	e := &fakeEngine{availableErr: errors.New("docker: command not found")}
	req := validRequest(t)

	_, err := run(t, e, req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, build.ErrEngineUnavailable)
	assert.Equal(t, []string{"available"}, e.calls)
}

func TestAuthFailureIsFatal(t *testing.T) {
	e := &fakeEngine{loginErr: errors.New("unauthorized")}
	req := validRequest(t)

	_, err := run(t, e, req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, build.ErrAuth)
	assert.Equal(t, []string{"available", "login"}, e.calls)
}

func TestDockerfileMissingPreflight(t *testing.T) {
	e := &fakeEngine{}
	req := validRequest(t)
	req.DockerfileName = "Dockerfile.missing"

	_, err := run(t, e, req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, build.ErrDockerfileMissing)
	assert.ErrorIs(t, err, build.ErrBuild)
	// pre-flight: neither the warm-cache pull nor a build was attempted
	assert.Equal(t, []string{"available", "login", "probe reg.example/app:v1"}, e.calls)
}

func TestPullLatestFailureIsSwallowed(t *testing.T) {
	e := &fakeEngine{pullErr: errors.New("manifest unknown")}
	req := validRequest(t)

	result, err := run(t, e, req, nil)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Contains(t, e.calls, "pull reg.example/app:latest")
	assert.Contains(t, e.calls, "build app:v1")
}

func TestPullLatestDisabled(t *testing.T) {
	e := &fakeEngine{}
	req := validRequest(t)
	req.PullLatest = false

	_, err := run(t, e, req, nil)
	require.NoError(t, err)
	assert.NotContains(t, e.calls, "pull reg.example/app:latest")
}

func TestBuildFailureAbortsBeforePush(t *testing.T) {
	e := &fakeEngine{buildErr: errors.New("step 3/7 failed")}
	req := validRequest(t)

	_, err := run(t, e, req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, build.ErrBuild)
	assert.NotContains(t, e.calls, "push reg.example/app:v1")
}

func TestPushFailureNamesReference(t *testing.T) {
	e := &fakeEngine{pushErr: map[string]error{
		"reg.example/app:v1": errors.New("denied"),
	}}
	req := validRequest(t)

	_, err := run(t, e, req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, build.ErrPush)
	assert.Contains(t, err.Error(), "reg.example/app:v1")
}

func TestPushLatestAlias(t *testing.T) {
	e := &fakeEngine{}
	req := validRequest(t)

	_, err := run(t, e, req, &config.Flags{PushLatest: true})
	require.NoError(t, err)
	assert.Contains(t, e.calls, "tag app:v1 reg.example/app:latest")
	assert.Contains(t, e.calls, "push reg.example/app:latest")
}

func TestPushLatestFailureIsFatal(t *testing.T) {
	// unlike the warm-cache pull, the latest alias is a publishing
	// guarantee: its failure surfaces as a push failure
	e := &fakeEngine{pushErr: map[string]error{
		"reg.example/app:latest": errors.New("denied"),
	}}
	req := validRequest(t)

	_, err := run(t, e, req, &config.Flags{PushLatest: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, build.ErrPush)
	assert.Contains(t, err.Error(), "reg.example/app:latest")
}

func TestBuildForwardsRequestDetails(t *testing.T) {
	e := &fakeEngine{}
	req := validRequest(t)
	req.Args = "--no-cache --build-arg FOO=bar"
	req.Env = map[string]string{"DOCKER_BUILDKIT": "1"}

	_, err := run(t, e, req, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(req.ProjectPath, "Dockerfile"), e.lastBuild.Dockerfile)
	assert.Equal(t, req.ProjectPath, e.lastBuild.ContextDir)
	assert.Equal(t, []string{"--no-cache", "--build-arg", "FOO=bar"}, e.lastBuild.ExtraArgs)
	assert.Equal(t, "1", e.lastBuild.Env["DOCKER_BUILDKIT"])
	assert.Equal(t, "v1", e.lastBuild.Labels["org.opencontainers.image.version"])
}

func TestSecondRunSkipsAfterPublish(t *testing.T) {
	req := validRequest(t)

	first := &fakeEngine{exists: false}
	r1, err := run(t, first, req, nil)
	require.NoError(t, err)
	assert.False(t, r1.Skipped)

	// the registry now has the image, an identical request skips
	second := &fakeEngine{exists: true}
	r2, err := run(t, second, req, nil)
	require.NoError(t, err)
	assert.True(t, r2.Skipped)
	assert.Equal(t, r1.Href, r2.Href)
	assert.NotContains(t, second.calls, "build app:v1")
}
