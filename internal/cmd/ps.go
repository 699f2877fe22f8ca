package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mgale/stackup/internal/slogger"
	"github.com/mgale/stackup/internal/state"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List tracked containers",
	Long: `List the containers recorded by previous 'stackup up' invocations.

Each entry shows whether the runtime still reports the container running
(live) or whether only the record remains (stale). The first tracked
container that is still running is marked active.`,
	Example: `  stackup ps`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := requireLauncher(cmd.Context())
		if err != nil {
			return err
		}

		statuses, active, err := l.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("query runtime: %w", err)
		}

		if len(statuses) == 0 {
			slogger.L(cmd.Context()).Info("no tracked containers")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(w, "SERVICE\tCONTAINER\tPROJECT\tPORTS\tSTATE"); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for i := range statuses {
			st := &statuses[i]

			stateLabel := "stale"
			if st.Live {
				stateLabel = "live"
			}
			if active != nil && active.ID == st.ID {
				stateLabel += " (active)"
			}

			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				st.Service,
				shortID(st.ID),
				st.Project,
				formatPorts(st.Ports),
				stateLabel,
			); err != nil {
				return fmt.Errorf("write container: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}

		return nil
	},
}

// shortID truncates container IDs to the familiar 12-character form.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// formatPorts renders recorded ports as host:container pairs. A "0" host
// means the runtime assigned it dynamically.
func formatPorts(ports []state.Port) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		host := p.Host
		if host == "0" {
			host = "*"
		}
		entry := host + ":" + p.Container
		if p.Debug {
			entry += " (debug)"
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(psCmd)
}
