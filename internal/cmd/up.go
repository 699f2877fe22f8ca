package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgale/stackup/internal/launcher"
	"github.com/mgale/stackup/internal/slogger"
)

var upCmd = &cobra.Command{
	Use:   "up [compose-file]",
	Short: "Transform a compose manifest and launch its services",
	Long: `Transform a compose manifest and launch its services.

Each service's image is classified: the project's own service (configured as
project.service or passed via --service) is retagged with the build version,
images carrying the local-build marker are used as-is, images carrying the
skip-pull marker are taken from the local cache, and everything else is
pulled. env_file and volume paths are resolved against the current directory
first and the manifest's directory second. Port ranges are expanded, and
--static-ports pins each dynamic port to its container port when free.

The rewritten manifest is written next to the original and launched detached.
Started containers are recorded so 'stackup stop' and 'stackup ps' can find
them later.`,
	Example: `  # Launch the manifest in the current directory
  stackup up

  # Launch a specific manifest with static host ports
  stackup up deploy/docker-compose.yml --static-ports

  # Substitute variables and pin the project name
  stackup up -e REGISTRY=ghcr.io/acme -p myproj`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest := "docker-compose.yml"
		if len(args) == 1 {
			manifest = args[0]
		}

		l, err := requireLauncher(cmd.Context())
		if err != nil {
			return err
		}

		opts, err := upOptions(cmd)
		if err != nil {
			return err
		}

		// Show subprocess progress on a single spinner line while pulls,
		// builds, and the launch run. Stopped before the summary prints.
		s := SpinnerFromContext(cmd.Context())
		if s != nil {
			go func() { _ = s.Start() }()
		}

		result, err := l.Up(cmd.Context(), manifest, opts)
		if s != nil {
			s.Stop()
		}
		if err != nil {
			return err
		}

		for _, w := range result.Warnings {
			slogger.L(cmd.Context()).Warn(w)
		}

		fmt.Printf("Launched project %s (%d services)\n", result.Project, len(result.Services))
		for _, svc := range result.Services {
			fmt.Printf("  %s -> %s\n", svc.Name, svc.Image)
			for _, port := range svc.Ports {
				host := port.HostPort
				if host == "0" {
					host = "dynamic"
				}
				suffix := ""
				if port.Debug {
					suffix = " (debug)"
				}
				fmt.Printf("    port %s -> %s%s\n", host, port.ContainerPort, suffix)
			}
		}

		return nil
	},
}

// upOptions assembles launch options from flags, falling back to config.
func upOptions(cmd *cobra.Command) (launcher.UpOptions, error) {
	var opts launcher.UpOptions

	cfg := ConfigFromContext(cmd.Context())
	if cfg != nil {
		opts.LocalService = cfg.Project.Service
		opts.BuildVersion = cfg.Project.Version
		opts.LocalBuildTag = cfg.Tags.LocalBuild
		opts.SkipPullTag = cfg.Tags.SkipPull
		opts.BuildContext = cfg.Project.BuildContext
		opts.Dockerfile = cfg.Project.Dockerfile
	}

	if v, _ := cmd.Flags().GetString("service"); v != "" {
		opts.LocalService = v
	}
	if v, _ := cmd.Flags().GetString("build-version"); v != "" {
		opts.BuildVersion = v
	}
	if v, _ := cmd.Flags().GetString("build-context"); v != "" {
		opts.BuildContext = v
	}
	if v, _ := cmd.Flags().GetString("dockerfile"); v != "" {
		opts.Dockerfile = v
	}

	opts.NoBuild, _ = cmd.Flags().GetBool("no-build")
	opts.SkipPull, _ = cmd.Flags().GetBool("skip-pull")
	opts.StaticPorts, _ = cmd.Flags().GetBool("static-ports")
	opts.Project, _ = cmd.Flags().GetString("project")

	pairs, _ := cmd.Flags().GetStringArray("env")
	vars, err := parseVars(pairs)
	if err != nil {
		return launcher.UpOptions{}, err
	}
	opts.Vars = vars

	if opts.LocalService != "" && opts.BuildVersion == "" {
		return launcher.UpOptions{}, fmt.Errorf("a build version is required when a local service is set (config project.version or --build-version)")
	}

	return opts, nil
}

func init() {
	rootCmd.AddCommand(upCmd)

	upCmd.Flags().StringArrayP("env", "e", nil, "substitute ${KEY} in the manifest (repeatable, KEY=VALUE)")
	upCmd.Flags().StringP("project", "p", "", "compose project name (generated when empty)")
	upCmd.Flags().String("service", "", "the project's own service (overrides config project.service)")
	upCmd.Flags().String("build-version", "", "tag for the local service's image (overrides config project.version)")
	upCmd.Flags().String("build-context", "", "build the local service's image from this directory")
	upCmd.Flags().String("dockerfile", "", "Dockerfile path relative to the build context")
	upCmd.Flags().Bool("no-build", false, "treat the local service's image as registry-defined")
	upCmd.Flags().Bool("skip-pull", false, "use local cache for every image")
	upCmd.Flags().Bool("static-ports", false, "pin dynamic host ports to their container ports when free")
}
