package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgale/stackup/internal/launcher"
	"github.com/mgale/stackup/internal/prompt"
	"github.com/mgale/stackup/internal/slogger"
)

var stopCmd = &cobra.Command{
	Use:   "stop [service]",
	Short: "Stop tracked containers",
	Long: `Stop the containers recorded by previous 'stackup up' invocations.

With a service name, only that service's containers are stopped. Service
matching is case-insensitive. With --all, every tracked container is stopped.
With neither, a single tracked service is stopped directly and multiple
tracked services produce a selection prompt.`,
	Example: `  stackup stop postgres
  stackup stop --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := requireLauncher(cmd.Context())
		if err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")

		var service string
		switch {
		case all:
			service = ""
		case len(args) == 1:
			service = args[0]
		default:
			service, err = selectService(l)
			if err != nil {
				if errors.Is(err, launcher.ErrNoInstances) {
					return errors.New("no tracked containers to stop")
				}
				return err
			}
		}

		ids, err := l.Stop(cmd.Context(), service)
		if err != nil {
			if errors.Is(err, launcher.ErrNoInstances) {
				if service == "" {
					return errors.New("no tracked containers to stop")
				}
				return fmt.Errorf("no tracked containers for service %q", service)
			}
			return fmt.Errorf("stop containers: %w", err)
		}

		slogger.L(cmd.Context()).Info("stopped containers", "count", len(ids), "service", service)
		fmt.Printf("Stopped %d container(s)\n", len(ids))
		return nil
	},
}

// selectService resolves which service to stop when none was named. A single
// tracked service is used directly; multiple prompt for a choice.
func selectService(l *launcher.Launcher) (string, error) {
	services := l.TrackedServices()
	switch len(services) {
	case 0:
		return "", launcher.ErrNoInstances
	case 1:
		return services[0], nil
	}

	idx, err := prompt.New().Choice("Which service should be stopped?", services)
	if err != nil {
		return "", err
	}
	return services[idx], nil
}

func init() {
	rootCmd.AddCommand(stopCmd)

	stopCmd.Flags().BoolP("all", "a", false, "stop every tracked container")
}
