// Package cmd implements the stackup CLI commands using Cobra.
// It provides commands for launching compose manifests with transformed
// image, path, and port definitions, and for inspecting and stopping the
// resulting instances.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mgale/stackup/internal/config"
	"github.com/mgale/stackup/internal/credentials"
	"github.com/mgale/stackup/internal/engine"
	stkexec "github.com/mgale/stackup/internal/exec"
	"github.com/mgale/stackup/internal/flags"
	"github.com/mgale/stackup/internal/launcher"
	"github.com/mgale/stackup/internal/registry"
	"github.com/mgale/stackup/internal/slogger"
	"github.com/mgale/stackup/internal/spinner"
	"github.com/mgale/stackup/internal/state"
)

// appConfig holds the loaded application configuration.
var appConfig *config.Config

// configLoader is used for reading and writing configuration keys.
var configLoader *config.Loader

// verbosity counts the -v flags.
var verbosity int

var rootCmd = &cobra.Command{
	Use:   "stackup",
	Short: "Launch compose manifests with build-time image and port resolution",
	Long: `Stackup prepares a compose manifest for launch: it classifies each
service's image as locally built, pull-skipped, or registry-defined, resolves
env_file and volume paths against the invocation and manifest directories,
expands port ranges, and optionally pins static host ports. The rewritten
manifest is launched through the configured container runtime and the started
containers are tracked across invocations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := slogger.New(slogger.Config{Verbosity: verbosity})
		ctx := slogger.WithLogger(cmd.Context(), logger)

		if err := checkDependencies(); err != nil {
			return err
		}

		l, progress, err := buildLauncher(ctx)
		if err != nil {
			return err
		}

		ctx = WithConfig(ctx, appConfig)
		ctx = WithLoader(ctx, configLoader)
		ctx = WithLauncher(ctx, l)
		ctx = WithSpinner(ctx, progress)
		cmd.SetContext(ctx)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
}

func initConfig() {
	loader, err := config.NewLoader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
		return
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config validation failed: %v\n", err)
	}

	appConfig = cfg
	configLoader = loader
}

// checkDependencies verifies the container runtime binary is available.
func checkDependencies() error {
	bin := runtimeBinary()
	if _, err := osexec.LookPath(bin); err != nil {
		return errors.New("missing required dependency: " + bin)
	}
	return nil
}

// runtimeBinary returns the configured container runtime binary.
func runtimeBinary() string {
	if appConfig != nil && appConfig.Compose.Binary != "" {
		return appConfig.Compose.Binary
	}
	return "docker"
}

// buildLauncher wires the executor, engine, state store, and registry client
// into a launcher. The returned spinner is nil unless subprocess output
// should be ticker-displayed.
func buildLauncher(ctx context.Context) (*launcher.Launcher, *spinner.Spinner, error) {
	var upFlags flags.Flags
	statePath := ""
	if appConfig != nil {
		parsed, err := flags.FromConfig(appConfig.Compose.Flags)
		if err != nil {
			return nil, nil, fmt.Errorf("parse compose.flags: %w", err)
		}
		upFlags = parsed
		statePath = appConfig.Storage.StateFile
	}

	dockerCfg := engine.DockerConfig{
		Binary:  runtimeBinary(),
		UpFlags: upFlags,
	}

	// Subprocess output handling: -v on a terminal streams it raw, a plain
	// terminal gets a one-line spinner, and anything non-interactive keeps
	// output captured so it only surfaces inside errors.
	var progress *spinner.Spinner
	if term.IsTerminal(int(os.Stderr.Fd())) {
		if verbosity > 0 {
			dockerCfg.Output = os.Stderr
		} else {
			progress = spinner.New(os.Stderr)
			dockerCfg.Output = progress.Writer()
		}
	}

	eng := engine.NewDockerEngine(stkexec.New(), dockerCfg)
	store := state.NewStore(statePath)

	var regClient registry.Client
	if appConfig != nil && appConfig.Registry.Check {
		regClient = registry.NewClient(registry.ClientConfig{
			Insecure:    appConfig.Registry.Insecure,
			Credentials: &keyringSource{service: appConfig.Registry.CredentialService},
		})
	}

	return launcher.New(eng, store, regClient, slogger.FromContext(ctx)), progress, nil
}

// keyringSource adapts the credentials store to the registry client's
// credential lookup. The keyring is opened lazily so commands that never
// touch a registry never prompt for keyring access.
type keyringSource struct {
	service string
}

func (k *keyringSource) Lookup(host string) (*registry.BasicAuth, error) {
	store, err := credentials.Open(k.service)
	if err != nil {
		return nil, err
	}
	creds, err := store.Get(host)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &registry.BasicAuth{Username: creds.Username, Password: creds.Password}, nil
}
