package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"imagegate/pkg/build"
	"imagegate/pkg/config"
	"imagegate/pkg/engine"
	"imagegate/pkg/output"
	"imagegate/pkg/util"
)

var BuildVersion string // Will be set dynamically at build time.
var appName string = "imagegate"

var (
	flags      config.Flags
	request    config.BuildRequest
	envEntries []string
	pullLatest string
	pushLatest string
)

var cmd = &cobra.Command{
	Use:   appName,
	Short: "A CI step that builds and publishes a container image only when the registry does not have it yet.",
	Long: `A CI pipeline step that probes a registry for name:tag and skips the
expensive build-and-push sequence when the image is already published.

Inputs come from flags, IMAGEGATE_* environment variables or an optional
YAML step file; flags win over environment, environment wins over file.`,
	Run: func(cmd *cobra.Command, args []string) {
		initLogger(flags.Verbose)

		// If version flag is provided, show the version and exit.
		if flags.PrintVersion {
			fmt.Printf("%s version: %s\n", appName, BuildVersion)
			return
		}

		if flags.Verbose {
			log.Debug().Msg("Verbose mode enabled.")
		}
		if flags.DryRun {
			log.Info().Msg("Dry run enabled - no actions will be executed.")
		}

		resolveEnvFallbacks()

		envMap, err := config.ParseEnv(envEntries)
		util.FailOnError(err, "Invalid --env entry")
		request.Env = envMap

		if flags.ConfigFile != "" {
			log.Info().Str("config", flags.ConfigFile).Msg("Loading")
			stepFile, err := config.LoadFile(flags.ConfigFile)
			util.FailOnError(err, "Error loading config")
			request.ApplyFile(stepFile)
			if pullLatest == "" {
				pullLatest = stepFile.PullLatest
			}
			if pushLatest == "" {
				pushLatest = stepFile.PushLatest
			}
		}
		request.PullLatest = config.ParseBool(pullLatest, true)
		flags.PushLatest = config.ParseBool(pushLatest, false)

		buildEngine, err := engine.New(&flags)
		util.FailOnError(err, "Failed to initialize engine.")
		log.Debug().Str("engine", buildEngine.Name()).Msg("Using")

		result, err := build.New(buildEngine, &flags).Run(cmd.Context(), &request)
		util.FailOnError(err, "Run failed")

		err = output.Write(build.OutputKeys, result.Outputs())
		util.FailOnError(err, "Reporting outputs failed")

		log.Info().
			Str("href", result.Href).
			Bool("skipped", result.Skipped).
			Msg("Done")
	},
}

func init() {
	if BuildVersion == "" {
		BuildVersion = "development" // Fallback if not set during build
	}

	// Local overrides for dev runs; harmless in CI.
	_ = godotenv.Load()

	cmd.Flags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to an optional YAML step file")
	cmd.Flags().StringVar(&request.ProjectPath, "project-path", "", "Directory used as the build context (required)")
	cmd.Flags().StringVar(&request.DockerfileName, "dockerfile-name", "", "Dockerfile name inside the project path, defaults to Dockerfile")
	cmd.Flags().StringVar(&request.ImageName, "image-name", "", "Image name without registry prefix (required)")
	cmd.Flags().StringVar(&request.Version, "version", "", "Version tag to publish (required)")
	cmd.Flags().StringVar(&request.RegistryURL, "registry-url", "", "Registry endpoint, e.g. registry.example.com (required)")
	cmd.Flags().StringVar(&request.RegistryUser, "registry-username", "", "Registry login user (required)")
	cmd.Flags().StringVar(&request.RegistryPassword, "registry-password", "", "Registry login password, prefer IMAGEGATE_REGISTRY_PASSWORD (required)")
	cmd.Flags().StringVar(&request.Args, "args", "", "Extra build arguments, whitespace separated, appended verbatim")
	cmd.Flags().StringArrayVarP(&envEntries, "env", "e", nil, "KEY=VALUE forwarded into the build subprocess environment, repeatable")
	cmd.Flags().StringVar(&pullLatest, "pull-latest", "", "Pull name:latest before building as a cache warmup, defaults to true")
	cmd.Flags().StringVar(&pushLatest, "push-latest", "", "Also tag and push name:latest, defaults to false")
	cmd.Flags().StringVar(&flags.Engine, "engine", "docker", "Container engine to drive: docker or podman")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Print engine commands but don't execute them")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Increase verbosity of output")
	cmd.Flags().BoolVarP(&flags.PrintVersion, "version-info", "V", false, "Display the application version and exit")
}

// resolveEnvFallbacks fills flags left empty from IMAGEGATE_* variables.
// Flag values always win; secrets intentionally have no flag default so
// they never show up in --help output.
func resolveEnvFallbacks() {
	fallbacks := []struct {
		dst *string
		env string
	}{
		{&request.ProjectPath, "IMAGEGATE_PROJECT_PATH"},
		{&request.DockerfileName, "IMAGEGATE_DOCKERFILE_NAME"},
		{&request.ImageName, "IMAGEGATE_IMAGE_NAME"},
		{&request.Version, "IMAGEGATE_VERSION"},
		{&request.RegistryURL, "IMAGEGATE_REGISTRY_URL"},
		{&request.RegistryUser, "IMAGEGATE_REGISTRY_USERNAME"},
		{&request.RegistryPassword, "IMAGEGATE_REGISTRY_PASSWORD"},
		{&request.Args, "IMAGEGATE_ARGS"},
		{&pullLatest, "IMAGEGATE_PULL_LATEST"},
		{&pushLatest, "IMAGEGATE_PUSH_LATEST"},
		{&flags.ConfigFile, "IMAGEGATE_CONFIG"},
	}
	for _, f := range fallbacks {
		if *f.dst == "" {
			*f.dst = os.Getenv(f.env)
		}
	}
	if flags.Engine == "docker" {
		if v := os.Getenv("IMAGEGATE_ENGINE"); v != "" {
			flags.Engine = v
		}
	}
}

func main() {
	if err := cmd.Execute(); err != nil {
		util.FailOnError(err)
	}
}

func initLogger(verbose bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: colorable.NewColorableStderr()})
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
