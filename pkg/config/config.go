package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"imagegate/pkg/image"
)

// BuildRequest is the immutable input record of a single run. It is
// assembled once at process start from CLI parameters, IMAGEGATE_*
// environment variables and the optional step file, then passed down
// the call chain. No ambient globals.
type BuildRequest struct {
	ProjectPath      string
	DockerfileName   string
	ImageName        string
	Version          string
	RegistryURL      string
	RegistryUser     string
	RegistryPassword string
	Args             string
	Env              map[string]string
	PullLatest       bool
}

// StepFile mirrors the CI step inputs in YAML form. String values may
// contain Go templates with the sprig function map, e.g.
// version: '{{ env "CI_COMMIT_TAG" }}'.
type StepFile struct {
	ProjectPath    string            `yaml:"project-path"`
	DockerfileName string            `yaml:"dockerfile-name"`
	ImageName      string            `yaml:"image-name"`
	Version        string            `yaml:"version"`
	RegistryURL    string            `yaml:"registry-url"`
	RegistryUser   string            `yaml:"registry-username"`
	Args           string            `yaml:"args"`
	Env            map[string]string `yaml:"env"`
	PullLatest     string            `yaml:"pull-latest"`
	PushLatest     string            `yaml:"push-latest"`
}

func LoadFile(filename string) (*StepFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		log.Error().Err(err).Msg("Error loading config")
		return nil, err
	}
	defer file.Close()

	var f StepFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&f); err != nil {
		log.Error().Err(err).Msg("Decoding YAML " + filename + " failed! Check syntax and try again")
		return nil, err
	}

	if err := f.render(); err != nil {
		return nil, err
	}
	return &f, nil
}

// render expands templated string values against the process environment.
func (f *StepFile) render() error {
	data := map[string]interface{}{
		"env": image.EnvVariables(),
	}

	fields := []*string{
		&f.ProjectPath, &f.DockerfileName, &f.ImageName, &f.Version,
		&f.RegistryURL, &f.RegistryUser, &f.Args,
	}
	for _, field := range fields {
		templated, err := image.TemplateString(*field, data)
		if err != nil {
			return fmt.Errorf("templating step file: %w", err)
		}
		*field = strings.TrimSpace(templated)
	}

	env, err := image.TemplateMap(f.Env, data)
	if err != nil {
		return fmt.Errorf("templating step file env: %w", err)
	}
	f.Env = env
	return nil
}

// ApplyFile fills request fields left empty by flags and environment.
// Flag and environment values take precedence over the file.
func (r *BuildRequest) ApplyFile(f *StepFile) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&r.ProjectPath, f.ProjectPath)
	fill(&r.DockerfileName, f.DockerfileName)
	fill(&r.ImageName, f.ImageName)
	fill(&r.Version, f.Version)
	fill(&r.RegistryURL, f.RegistryURL)
	fill(&r.RegistryUser, f.RegistryUser)
	fill(&r.Args, f.Args)

	if r.Env == nil {
		r.Env = map[string]string{}
	}
	for k, v := range f.Env {
		if _, ok := r.Env[k]; !ok {
			r.Env[k] = v
		}
	}
}

// Validate checks the required inputs. It runs before any subprocess is
// spawned; a failure here is a request problem, not a build problem.
func (r *BuildRequest) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"project-path", r.ProjectPath},
		{"image-name", r.ImageName},
		{"version", r.Version},
		{"registry-url", r.RegistryURL},
		{"registry-username", r.RegistryUser},
		{"registry-password", r.RegistryPassword},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("required input %q is empty", field.name)
		}
	}
	return nil
}

// Dockerfile returns the Dockerfile name, defaulted.
func (r *BuildRequest) Dockerfile() string {
	if r.DockerfileName == "" {
		return "Dockerfile"
	}
	return r.DockerfileName
}

// BuildArgs tokenizes the raw extra argument string. Tokens are split on
// whitespace and appended verbatim to the build invocation; an empty
// string yields no tokens.
func (r *BuildRequest) BuildArgs() []string {
	return strings.Fields(r.Args)
}

// ParseBool parses CI-style boolean strings ("true", "FALSE", "1", ...)
// case-insensitively, falling back to a default on anything unparsable.
func ParseBool(s string, def bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Warn().Str("value", s).Bool("default", def).Msg("Not a boolean, using default")
		return def
	}
	return b
}

// ParseEnv turns KEY=VALUE entries into a map.
func ParseEnv(entries []string) (map[string]string, error) {
	env := map[string]string{}
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid env entry %q, expected KEY=VALUE", entry)
		}
		env[key] = value
	}
	return env, nil
}
